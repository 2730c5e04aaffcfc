package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/reshetovitsme/stalker-bot/internal/modules/message/domain"
	messageService "github.com/reshetovitsme/stalker-bot/internal/modules/message/service"
	"github.com/samber/oops"
)

const feedItemLimit = 50

// Service generates an RSS feed of the most recent keyword matches.
type Service struct {
	messages *messageService.Service
}

// New creates a new feed service.
func New(messages *messageService.Service) *Service {
	return &Service{
		messages: messages,
	}
}

// GenerateFeed builds the RSS feed of recent matches, newest item first.
func (s *Service) GenerateFeed(baseURL string) (*feeds.Feed, error) {
	messages, err := s.messages.GetRecentMessages(feedItemLimit)
	if err != nil {
		return nil, oops.With("context", "failed to load recent matches").Wrap(err)
	}

	feed := &feeds.Feed{
		Title:       "Keyword matches",
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/rss", baseURL)},
		Description: "Messages from monitored Telegram channels that matched a configured keyword",
		Updated:     time.Now().UTC(),
	}

	// Recent messages come oldest first; the feed wants newest first.
	items := make([]*feeds.Item, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		items = append(items, s.messageToFeedItem(messages[i]))
	}

	feed.Items = items
	return feed, nil
}

func (s *Service) messageToFeedItem(msg *domain.FoundMessage) *feeds.Item {
	description := msg.Text
	if description == "" {
		description = "No text content"
	}

	content := fmt.Sprintf(
		"<p>%s</p><p><strong>Keywords:</strong> %s</p><p><strong>Sender:</strong> %s</p>",
		escapeHTML(description),
		escapeHTML(strings.Join(msg.FoundKeywords, ", ")),
		escapeHTML(msg.SenderFullName),
	)

	return &feeds.Item{
		Title:       fmt.Sprintf("[%s] %s", strings.Join(msg.FoundKeywords, ", "), truncate(msg.ChannelName, 80)),
		Link:        &feeds.Link{Href: fmt.Sprintf("https://t.me/c/%d/%d", msg.ChannelID, msg.MessageID)},
		Description: description,
		Content:     content,
		Author:      &feeds.Author{Name: msg.SenderFullName},
		Created:     msg.Date,
		Id:          fmt.Sprintf("%d-%d", msg.ChannelID, msg.MessageID),
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

func escapeHTML(s string) string {
	result := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '<':
			result = append(result, []rune("&lt;")...)
		case '>':
			result = append(result, []rune("&gt;")...)
		case '&':
			result = append(result, []rune("&amp;")...)
		case '"':
			result = append(result, []rune("&quot;")...)
		case '\'':
			result = append(result, []rune("&#39;")...)
		default:
			result = append(result, r)
		}
	}
	return string(result)
}
