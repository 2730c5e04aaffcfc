package service

import (
	"github.com/reshetovitsme/stalker-bot/internal/modules/message/domain"
	"github.com/reshetovitsme/stalker-bot/internal/modules/message/repository"
)

// Service handles found-message business logic.
type Service struct {
	repo repository.Repository
}

// New creates a new message service.
func New(repo repository.Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// AddMessage stores a match record, reporting whether it was newly inserted.
func (s *Service) AddMessage(message *domain.FoundMessage) (bool, error) {
	return s.repo.AddMessage(message)
}

// GetRecentMessages returns the most recent matches, oldest first.
func (s *Service) GetRecentMessages(limit int) ([]*domain.FoundMessage, error) {
	return s.repo.GetRecentMessages(limit)
}

// GetMessagesByChannel returns all stored matches from one channel.
func (s *Service) GetMessagesByChannel(channelID int64) ([]*domain.FoundMessage, error) {
	return s.repo.GetMessagesByChannel(channelID)
}

// LoadAllMessages returns every stored match, oldest first.
func (s *Service) LoadAllMessages() ([]*domain.FoundMessage, error) {
	return s.repo.LoadAllMessages()
}

// SearchMessages returns stored matches whose text contains the query,
// case-insensitively.
func (s *Service) SearchMessages(query string) ([]*domain.FoundMessage, error) {
	return s.repo.SearchMessages(query)
}

// Count returns the number of stored matches.
func (s *Service) Count() (int, error) {
	return s.repo.Count()
}

// ClearMessages empties the message store. Settings are not touched.
func (s *Service) ClearMessages() error {
	return s.repo.ClearMessages()
}
