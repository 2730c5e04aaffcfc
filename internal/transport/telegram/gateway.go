package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	monitorDomain "github.com/reshetovitsme/stalker-bot/internal/modules/monitor/domain"
)

// Gateway adapts the Bot API client to the monitor's transport surface.
type Gateway struct {
	bot *bot.Bot
}

// NewGateway creates a monitor gateway backed by the Bot API.
func NewGateway(b *bot.Bot) *Gateway {
	return &Gateway{bot: b}
}

// CheckChannel verifies the bot can see the channel. The canonical id is
// expanded back into the -100 prefixed chat id form the API expects.
func (g *Gateway) CheckChannel(ctx context.Context, channelID int64) error {
	_, err := g.bot.GetChat(ctx, &bot.GetChatParams{
		ChatID: supergroupChatID(channelID),
	})
	return mapRateLimit(err)
}

// ResolveSender fetches sender identity, best-effort. Bot API exposes user
// info through the chat of the same id once the user is visible to the bot.
func (g *Gateway) ResolveSender(ctx context.Context, senderID int64) (*monitorDomain.Sender, error) {
	chat, err := g.bot.GetChat(ctx, &bot.GetChatParams{
		ChatID: senderID,
	})
	if err != nil {
		return nil, mapRateLimit(err)
	}

	sender := &monitorDomain.Sender{
		FirstName: chat.FirstName,
		LastName:  chat.LastName,
	}
	if chat.Username != "" {
		sender.Username = "@" + chat.Username
	}
	return sender, nil
}

// supergroupChatID converts a canonical channel id to the -100 prefixed
// form used on the wire.
func supergroupChatID(channelID int64) string {
	return fmt.Sprintf("-100%d", channelID)
}

// mapRateLimit converts the client's too-many-requests error into the
// monitor's rate-limit signal, preserving the server-specified backoff.
func mapRateLimit(err error) error {
	if err == nil {
		return nil
	}
	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return &monitorDomain.RateLimitError{
			RetryAfter: time.Duration(tooMany.RetryAfter) * time.Second,
		}
	}
	return err
}
