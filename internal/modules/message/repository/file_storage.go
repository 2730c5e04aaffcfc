package repository

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/reshetovitsme/stalker-bot/internal/modules/message/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const messagesFileName = "found_messages.json"

// FileStorage implements message.Repository on a single JSON array file,
// oldest record first. The full list is kept in memory with a dedup index;
// mutations rewrite the file through a temp file and an atomic rename.
type FileStorage struct {
	path     string
	mu       sync.RWMutex
	messages []*domain.FoundMessage
	index    map[domain.Key]struct{}
}

// NewFileStorage creates a file-based message repository, loading any
// previously stored records. A corrupt file is set aside and the repository
// starts empty.
func NewFileStorage(basePath string) (Repository, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}

	s := &FileStorage{
		path:  filepath.Join(basePath, messagesFileName),
		index: map[domain.Key]struct{}{},
	}
	if err := s.loadFromDisk(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStorage) loadFromDisk() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return oops.With("path", s.path, "context", "failed to read messages").Wrap(err)
	}

	var messages []*domain.FoundMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
		if renameErr := os.Rename(s.path, aside); renameErr != nil {
			slog.Error("Failed to set aside corrupt messages file", "path", s.path, "error", renameErr)
		} else {
			slog.Error("Messages file is corrupt, starting empty", "path", s.path, "moved_to", aside, "error", err)
		}
		return nil
	}

	s.messages = messages
	for _, msg := range messages {
		s.index[msg.Key()] = struct{}{}
	}
	return nil
}

func (s *FileStorage) AddMessage(message *domain.FoundMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[message.Key()]; exists {
		return false, nil
	}

	stored := *message
	stored.StoredAt = time.Now().UTC()

	// Build the candidate list first and commit it only after a successful
	// write, so a persist failure never leaves memory ahead of disk.
	candidate := append(append([]*domain.FoundMessage(nil), s.messages...), &stored)

	// Retention cap: evict oldest-by-insertion until the cap holds.
	var evicted []*domain.FoundMessage
	for len(candidate) > MaxStoredMessages {
		evicted = append(evicted, candidate[0])
		candidate = candidate[1:]
	}

	if err := s.persist(candidate); err != nil {
		return false, oops.With("channel_id", message.ChannelID, "message_id", message.MessageID, "context", "failed to persist message").Wrap(err)
	}

	s.messages = candidate
	s.index[stored.Key()] = struct{}{}
	for _, old := range evicted {
		delete(s.index, old.Key())
	}
	return true, nil
}

func (s *FileStorage) LoadAllMessages() ([]*domain.FoundMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]*domain.FoundMessage(nil), s.messages...), nil
}

func (s *FileStorage) GetRecentMessages(limit int) ([]*domain.FoundMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.messages) {
		limit = len(s.messages)
	}
	recent := s.messages[len(s.messages)-limit:]
	return append([]*domain.FoundMessage(nil), recent...), nil
}

func (s *FileStorage) GetMessagesByChannel(channelID int64) ([]*domain.FoundMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Filter(s.messages, func(msg *domain.FoundMessage, _ int) bool {
		return msg.ChannelID == channelID
	}), nil
}

func (s *FileStorage) SearchMessages(query string) ([]*domain.FoundMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(query)
	return lo.Filter(s.messages, func(msg *domain.FoundMessage, _ int) bool {
		return strings.Contains(strings.ToLower(msg.Text), query)
	}), nil
}

func (s *FileStorage) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.messages), nil
}

func (s *FileStorage) ClearMessages() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(nil); err != nil {
		return err
	}
	s.messages = nil
	s.index = map[domain.Key]struct{}{}
	return nil
}

func (s *FileStorage) Close() error {
	return nil
}

func (s *FileStorage) persist(messages []*domain.FoundMessage) error {
	if messages == nil {
		messages = []*domain.FoundMessage{}
	}
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return oops.With("path", s.path, "context", "failed to marshal messages").Wrap(err)
	}
	return writeFileAtomic(s.path, data)
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over the destination.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return oops.With("path", path, "context", "failed to create temp file").Wrap(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return oops.With("path", path, "context", "failed to write temp file").Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return oops.With("path", path, "context", "failed to close temp file").Wrap(err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return oops.With("path", path, "context", "failed to replace file").Wrap(err)
	}
	return nil
}
