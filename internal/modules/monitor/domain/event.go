package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChannelEvent is one incoming message from the transport, before any
// filtering or matching.
type ChannelEvent struct {
	ChatID      int64 // raw transport chat id, possibly in the -100 prefixed form
	MessageID   int
	Text        string
	Date        time.Time
	SenderID    int64
	IsForwarded bool
}

// Sender is the resolved identity of a message author.
type Sender struct {
	Username  string
	FirstName string
	LastName  string
}

// FullName builds a display name from the available parts, falling back to
// the username and finally to the synthetic "ID: <sender_id>" form.
func (s *Sender) FullName(senderID int64) string {
	var parts []string
	if s.FirstName != "" {
		parts = append(parts, s.FirstName)
	}
	if s.LastName != "" {
		parts = append(parts, s.LastName)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if s.Username != "" {
		return s.Username
	}
	return SyntheticSenderName(senderID)
}

// SyntheticSenderName is the fallback identity used when sender resolution
// fails or yields nothing.
func SyntheticSenderName(senderID int64) string {
	return fmt.Sprintf("ID: %d", senderID)
}

// RateLimitError signals a transport-imposed backoff. The ingestion loop
// sleeps for RetryAfter and resumes; it is not treated as a failure.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// CanonicalChannelID converts a transport chat id into its canonical form:
// the sign is dropped and the supergroup "100" marker is stripped, so both
// -1001495211598 and 1495211598 map to 1495211598.
func CanonicalChannelID(chatID int64) int64 {
	if chatID < 0 {
		chatID = -chatID
	}
	s := strconv.FormatInt(chatID, 10)
	if strings.HasPrefix(s, "100") && len(s) > 3 {
		if id, err := strconv.ParseInt(s[3:], 10, 64); err == nil {
			return id
		}
	}
	return chatID
}
