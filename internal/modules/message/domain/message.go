package domain

import "time"

// FoundMessage is a stored keyword match. Records are immutable once stored;
// the repository may only evict them oldest-first when the retention cap is
// reached. A record is identified by the (ChannelID, MessageID) pair.
type FoundMessage struct {
	MessageID       int       `json:"message_id"`
	ChannelID       int64     `json:"channel_id"`
	ChannelName     string    `json:"channel_name"`
	Text            string    `json:"text"`
	FoundKeywords   []string  `json:"found_keywords"`
	Date            time.Time `json:"date"`       // source timestamp, UTC
	LocalTime       time.Time `json:"local_time"` // source timestamp shifted to the fixed UTC+2 offset
	SenderID        int64     `json:"sender_id"`
	SenderUsername  string    `json:"sender_username,omitempty"`
	SenderFirstName string    `json:"sender_first_name,omitempty"`
	SenderLastName  string    `json:"sender_last_name,omitempty"`
	SenderFullName  string    `json:"sender_full_name"`
	IsForwarded     bool      `json:"is_forwarded"`
	StoredAt        time.Time `json:"stored_at"`
}

// Key identifies a source message across channels.
type Key struct {
	ChannelID int64
	MessageID int
}

// Key returns the dedup key of the record.
func (m *FoundMessage) Key() Key {
	return Key{ChannelID: m.ChannelID, MessageID: m.MessageID}
}
