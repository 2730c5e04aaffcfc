package service

import (
	"log/slog"
	"strings"

	monitorService "github.com/reshetovitsme/stalker-bot/internal/modules/monitor/service"
	settingsService "github.com/reshetovitsme/stalker-bot/internal/modules/settings/service"
	sharedErrors "github.com/reshetovitsme/stalker-bot/internal/shared/errors"
)

// Service is the reload bridge: it applies configuration edits to the store
// and to the live engine state together, so the persisted and the active
// sets never diverge.
type Service struct {
	settings *settingsService.Service
	monitor  *monitorService.Service
}

// New creates a new reload bridge.
func New(settings *settingsService.Service, monitor *monitorService.Service) *Service {
	return &Service{
		settings: settings,
		monitor:  monitor,
	}
}

// ApplyKeywords parses a free-text comma-separated keyword list, persists
// the normalized set and swaps the engine's live set. An input that reduces
// to an empty set is rejected with no change on either side.
func (s *Service) ApplyKeywords(raw string) ([]string, error) {
	keywords := settingsService.NormalizeKeywords(strings.Split(raw, ","))
	if len(keywords) == 0 {
		return nil, sharedErrors.ErrEmptyKeywordSet
	}

	if err := s.settings.SetKeywords(keywords); err != nil {
		return nil, err
	}
	s.monitor.UpdateKeywords(keywords)

	slog.Info("Keyword set applied", "keywords", keywords)
	return keywords, nil
}

// AddChannel registers a channel and refreshes the live allow-list.
func (s *Service) AddChannel(channelID int64, name string) (bool, error) {
	changed, err := s.settings.AddChannel(channelID, name)
	if err != nil || !changed {
		return changed, err
	}
	return true, s.monitor.ReloadConfig()
}

// RemoveChannel drops a channel and refreshes the live allow-list.
func (s *Service) RemoveChannel(channelID int64) (bool, error) {
	changed, err := s.settings.RemoveChannel(channelID)
	if err != nil || !changed {
		return changed, err
	}
	return true, s.monitor.ReloadConfig()
}

// RenameChannel renames a channel and refreshes the live allow-list.
func (s *Service) RenameChannel(channelID int64, name string) (bool, error) {
	changed, err := s.settings.RenameChannel(channelID, name)
	if err != nil || !changed {
		return changed, err
	}
	return true, s.monitor.ReloadConfig()
}

// ToggleMonitoring flips the persisted monitoring flag and pushes the new
// state to the engine. The subscription itself stays open either way.
func (s *Service) ToggleMonitoring() (bool, error) {
	enabled, err := s.settings.ToggleMonitoring()
	if err != nil {
		return false, err
	}
	return enabled, s.monitor.ReloadConfig()
}
