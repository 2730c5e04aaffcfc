package repository

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/reshetovitsme/stalker-bot/internal/modules/message/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const messagesDBFileName = "found_messages.db"

// SQLiteStorage implements message.Repository on an embedded sqlite
// database. Selected with storage_backend "sqlite"; the Repository contract
// (dedup, retention cap, FIFO eviction) is identical to the JSON backend.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (and if needed bootstraps) the message database
// under basePath.
func NewSQLiteStorage(basePath string) (Repository, error) {
	dbPath := filepath.Join(basePath, messagesDBFileName)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, oops.With("db_path", dbPath, "context", "failed to open database").Wrap(err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, oops.With("db_path", dbPath, "context", "failed to connect to database").Wrap(err)
	}

	// A single writer keeps the insert/evict ordering well-defined.
	db.SetMaxOpenConns(1)

	const schema = `
	CREATE TABLE IF NOT EXISTS found_messages (
		seq               INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id        INTEGER NOT NULL,
		channel_id        INTEGER NOT NULL,
		channel_name      TEXT NOT NULL,
		text              TEXT NOT NULL,
		found_keywords    TEXT NOT NULL,
		date              TEXT NOT NULL,
		local_time        TEXT NOT NULL,
		sender_id         INTEGER NOT NULL,
		sender_username   TEXT NOT NULL DEFAULT '',
		sender_first_name TEXT NOT NULL DEFAULT '',
		sender_last_name  TEXT NOT NULL DEFAULT '',
		sender_full_name  TEXT NOT NULL DEFAULT '',
		is_forwarded      INTEGER NOT NULL DEFAULT 0,
		stored_at         TEXT NOT NULL,
		UNIQUE (channel_id, message_id)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, oops.With("db_path", dbPath, "context", "failed to create found_messages table").Wrap(err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) AddMessage(message *domain.FoundMessage) (bool, error) {
	keywords, err := json.Marshal(message.FoundKeywords)
	if err != nil {
		return false, oops.With("channel_id", message.ChannelID, "message_id", message.MessageID, "context", "failed to marshal keywords").Wrap(err)
	}

	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO found_messages (
			message_id, channel_id, channel_name, text, found_keywords,
			date, local_time, sender_id, sender_username, sender_first_name,
			sender_last_name, sender_full_name, is_forwarded, stored_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		message.MessageID,
		message.ChannelID,
		message.ChannelName,
		message.Text,
		string(keywords),
		message.Date.Format(time.RFC3339Nano),
		message.LocalTime.Format(time.RFC3339Nano),
		message.SenderID,
		message.SenderUsername,
		message.SenderFirstName,
		message.SenderLastName,
		message.SenderFullName,
		boolToInt(message.IsForwarded),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, oops.With("channel_id", message.ChannelID, "message_id", message.MessageID, "context", "failed to insert message").Wrap(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, oops.With("context", "failed to read rows affected").Wrap(err)
	}
	if affected == 0 {
		return false, nil
	}

	// Evict oldest-by-insertion rows above the retention cap.
	if _, err := s.db.Exec(`
		DELETE FROM found_messages WHERE seq IN (
			SELECT seq FROM found_messages ORDER BY seq ASC
			LIMIT MAX((SELECT COUNT(*) FROM found_messages) - ?, 0)
		)`, MaxStoredMessages); err != nil {
		return false, oops.With("context", "failed to enforce retention cap").Wrap(err)
	}

	return true, nil
}

func (s *SQLiteStorage) LoadAllMessages() ([]*domain.FoundMessage, error) {
	return s.query(`SELECT * FROM found_messages ORDER BY seq ASC`)
}

func (s *SQLiteStorage) GetRecentMessages(limit int) ([]*domain.FoundMessage, error) {
	if limit <= 0 {
		return s.LoadAllMessages()
	}
	messages, err := s.query(`SELECT * FROM found_messages ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	// Restore oldest-first ordering.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *SQLiteStorage) GetMessagesByChannel(channelID int64) ([]*domain.FoundMessage, error) {
	return s.query(`SELECT * FROM found_messages WHERE channel_id = ? ORDER BY seq ASC`, channelID)
}

// SearchMessages filters in Go rather than with LIKE: sqlite folds case for
// ASCII only, and the store is mostly Cyrillic text.
func (s *SQLiteStorage) SearchMessages(query string) ([]*domain.FoundMessage, error) {
	messages, err := s.LoadAllMessages()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	return lo.Filter(messages, func(msg *domain.FoundMessage, _ int) bool {
		return strings.Contains(strings.ToLower(msg.Text), query)
	}), nil
}

func (s *SQLiteStorage) Count() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM found_messages`).Scan(&count); err != nil {
		return 0, oops.With("context", "failed to count messages").Wrap(err)
	}
	return count, nil
}

func (s *SQLiteStorage) ClearMessages() error {
	if _, err := s.db.Exec(`DELETE FROM found_messages`); err != nil {
		return oops.With("context", "failed to clear messages").Wrap(err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) query(q string, args ...any) ([]*domain.FoundMessage, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, oops.With("query", q, "context", "failed to query messages").Wrap(err)
	}
	defer rows.Close()

	var messages []*domain.FoundMessage
	for rows.Next() {
		var (
			msg       domain.FoundMessage
			seq       int64
			keywords  string
			date      string
			localTime string
			storedAt  string
			forwarded int
		)
		if err := rows.Scan(
			&seq, &msg.MessageID, &msg.ChannelID, &msg.ChannelName, &msg.Text,
			&keywords, &date, &localTime, &msg.SenderID, &msg.SenderUsername,
			&msg.SenderFirstName, &msg.SenderLastName, &msg.SenderFullName,
			&forwarded, &storedAt,
		); err != nil {
			return nil, oops.With("context", "failed to scan message row").Wrap(err)
		}

		if err := json.Unmarshal([]byte(keywords), &msg.FoundKeywords); err != nil {
			return nil, oops.With("context", "failed to unmarshal keywords").Wrap(err)
		}
		if msg.Date, err = time.Parse(time.RFC3339Nano, date); err != nil {
			return nil, oops.With("context", "failed to parse date").Wrap(err)
		}
		if msg.LocalTime, err = time.Parse(time.RFC3339Nano, localTime); err != nil {
			return nil, oops.With("context", "failed to parse local time").Wrap(err)
		}
		if msg.StoredAt, err = time.Parse(time.RFC3339Nano, storedAt); err != nil {
			return nil, oops.With("context", "failed to parse stored_at").Wrap(err)
		}
		msg.IsForwarded = forwarded != 0

		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
