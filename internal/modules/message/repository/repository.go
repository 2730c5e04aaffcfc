package repository

import (
	"github.com/reshetovitsme/stalker-bot/internal/modules/message/domain"
)

// MaxStoredMessages is the retention cap: once reached, the oldest records
// by insertion order are evicted first.
const MaxStoredMessages = 1000

// Repository defines the interface for found-message persistence.
type Repository interface {
	// AddMessage stores a record and returns true if it was newly inserted.
	// A record whose (channel_id, message_id) pair is already present is
	// left untouched and reported with false.
	AddMessage(message *domain.FoundMessage) (bool, error)
	LoadAllMessages() ([]*domain.FoundMessage, error)
	GetRecentMessages(limit int) ([]*domain.FoundMessage, error)
	GetMessagesByChannel(channelID int64) ([]*domain.FoundMessage, error)
	SearchMessages(query string) ([]*domain.FoundMessage, error)
	Count() (int, error)
	ClearMessages() error
	Close() error
}
