package repository

import (
	"github.com/reshetovitsme/stalker-bot/internal/modules/settings/domain"
)

// Repository defines the interface for settings document persistence.
// Load always returns a usable document: a missing or unreadable file is
// replaced by the default document rather than surfaced as an error.
type Repository interface {
	Load() (*domain.Settings, error)
	Save(settings *domain.Settings) error
	RecoveredFromCorruption() bool
}
