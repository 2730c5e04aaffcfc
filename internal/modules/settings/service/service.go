package service

import (
	"strconv"
	"strings"
	"sync"

	"github.com/reshetovitsme/stalker-bot/internal/modules/settings/domain"
	"github.com/reshetovitsme/stalker-bot/internal/modules/settings/repository"
	sharedErrors "github.com/reshetovitsme/stalker-bot/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Service owns all mutations of the settings document. Every read-modify-
// write cycle runs under a single writer lock; two concurrent mutators would
// otherwise silently drop one of the updates on the whole-file rewrite.
type Service struct {
	repo         repository.Repository
	superAdminID int64
	mu           sync.Mutex
}

// New creates a new settings service.
func New(repo repository.Repository, superAdminID int64) *Service {
	return &Service{
		repo:         repo,
		superAdminID: superAdminID,
	}
}

// Settings returns the current document.
func (s *Service) Settings() (*domain.Settings, error) {
	return s.repo.Load()
}

// SuperAdminID returns the fixed super admin id.
func (s *Service) SuperAdminID() int64 {
	return s.superAdminID
}

// RecoveredFromCorruption reports whether the underlying store had to set a
// corrupt document aside.
func (s *Service) RecoveredFromCorruption() bool {
	return s.repo.RecoveredFromCorruption()
}

// Keywords returns the active keyword set.
func (s *Service) Keywords() ([]string, error) {
	settings, err := s.repo.Load()
	if err != nil {
		return nil, err
	}
	return settings.Keywords, nil
}

// SetKeywords replaces the keyword set. Entries are trimmed and lower-cased;
// an edit that reduces to an empty set is rejected without touching the
// document.
func (s *Service) SetKeywords(keywords []string) error {
	normalized := NormalizeKeywords(keywords)
	if len(normalized) == 0 {
		return sharedErrors.ErrEmptyKeywordSet
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.repo.Load()
	if err != nil {
		return err
	}
	settings.Keywords = normalized
	return s.repo.Save(settings)
}

// NormalizeKeywords trims, lower-cases and deduplicates keyword entries,
// dropping empty ones. Insertion order is preserved for display.
func NormalizeKeywords(keywords []string) []string {
	normalized := lo.FilterMap(keywords, func(kw string, _ int) (string, bool) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		return kw, kw != ""
	})
	return lo.Uniq(normalized)
}

// Channels returns the monitored channels keyed by canonical id.
func (s *Service) Channels() (map[int64]string, error) {
	settings, err := s.repo.Load()
	if err != nil {
		return nil, err
	}
	return settings.ChannelMap(), nil
}

// AddChannel registers a channel for monitoring. Returns false if the id is
// already present.
func (s *Service) AddChannel(channelID int64, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.repo.Load()
	if err != nil {
		return false, err
	}

	key := strconv.FormatInt(channelID, 10)
	if _, exists := settings.Channels[key]; exists {
		return false, nil
	}
	settings.Channels[key] = name

	if err := s.repo.Save(settings); err != nil {
		return false, oops.With("channel_id", channelID, "context", "failed to save channel").Wrap(err)
	}
	return true, nil
}

// RemoveChannel removes a channel from monitoring. Returns false if the id
// is unknown.
func (s *Service) RemoveChannel(channelID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.repo.Load()
	if err != nil {
		return false, err
	}

	key := strconv.FormatInt(channelID, 10)
	if _, exists := settings.Channels[key]; !exists {
		return false, nil
	}
	delete(settings.Channels, key)

	if err := s.repo.Save(settings); err != nil {
		return false, oops.With("channel_id", channelID, "context", "failed to remove channel").Wrap(err)
	}
	return true, nil
}

// RenameChannel updates the display name of a monitored channel. Returns
// false if the id is unknown.
func (s *Service) RenameChannel(channelID int64, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.repo.Load()
	if err != nil {
		return false, err
	}

	key := strconv.FormatInt(channelID, 10)
	if _, exists := settings.Channels[key]; !exists {
		return false, nil
	}
	settings.Channels[key] = name

	if err := s.repo.Save(settings); err != nil {
		return false, oops.With("channel_id", channelID, "context", "failed to rename channel").Wrap(err)
	}
	return true, nil
}

// AdminIDs returns the current admin list.
func (s *Service) AdminIDs() ([]int64, error) {
	settings, err := s.repo.Load()
	if err != nil {
		return nil, err
	}
	return settings.AdminIDs, nil
}

// AddAdmin grants admin access to a user id. Returns false if the id is
// already an admin.
func (s *Service) AddAdmin(userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.repo.Load()
	if err != nil {
		return false, err
	}

	if settings.HasAdmin(userID) {
		return false, nil
	}
	settings.AdminIDs = append(settings.AdminIDs, userID)

	if err := s.repo.Save(settings); err != nil {
		return false, oops.With("user_id", userID, "context", "failed to add admin").Wrap(err)
	}
	return true, nil
}

// RemoveAdmin revokes admin access. The super admin is never removable.
func (s *Service) RemoveAdmin(userID int64) (bool, error) {
	if userID == s.superAdminID {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.repo.Load()
	if err != nil {
		return false, err
	}

	if !settings.HasAdmin(userID) {
		return false, nil
	}
	settings.AdminIDs = lo.Without(settings.AdminIDs, userID)

	if err := s.repo.Save(settings); err != nil {
		return false, oops.With("user_id", userID, "context", "failed to remove admin").Wrap(err)
	}
	return true, nil
}

// IsAdmin reports whether the user id has admin access.
func (s *Service) IsAdmin(userID int64) bool {
	settings, err := s.repo.Load()
	if err != nil {
		return false
	}
	return settings.HasAdmin(userID)
}

// IsSuperAdmin reports whether the user id is the fixed super admin.
func (s *Service) IsSuperAdmin(userID int64) bool {
	return userID == s.superAdminID
}

// MonitoringEnabled returns the current monitoring state.
func (s *Service) MonitoringEnabled() (bool, error) {
	settings, err := s.repo.Load()
	if err != nil {
		return false, err
	}
	return settings.MonitoringEnabled, nil
}

// ToggleMonitoring flips the monitoring flag and returns the new state.
// Keywords and channels are left untouched.
func (s *Service) ToggleMonitoring() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.repo.Load()
	if err != nil {
		return false, err
	}
	settings.MonitoringEnabled = !settings.MonitoringEnabled

	if err := s.repo.Save(settings); err != nil {
		return false, oops.With("context", "failed to toggle monitoring").Wrap(err)
	}
	return settings.MonitoringEnabled, nil
}

// BotMode returns the active bot mode.
func (s *Service) BotMode() (domain.BotMode, error) {
	settings, err := s.repo.Load()
	if err != nil {
		return domain.BotModeNone, err
	}
	return settings.BotMode, nil
}

// SetBotMode switches the bot mode, rejecting unknown values.
func (s *Service) SetBotMode(mode domain.BotMode) error {
	if !mode.IsValid() {
		return sharedErrors.ErrInvalidBotMode
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.repo.Load()
	if err != nil {
		return err
	}
	settings.BotMode = mode
	return s.repo.Save(settings)
}
