package repository

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reshetovitsme/stalker-bot/internal/modules/settings/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const settingsFileName = "settings.json"

// FileStorage implements settings.Repository on a single JSON document.
// Writes go through a temp file and an atomic rename so a crash mid-write
// never leaves a half-written document behind.
type FileStorage struct {
	path         string
	superAdminID int64
	seedAdminIDs []int64
	mu           sync.RWMutex
	recovered    atomic.Bool
}

// NewFileStorage creates a file-based settings repository. superAdminID is
// reinstated on every load and save; seedAdminIDs populate the admin list of
// a freshly created document.
func NewFileStorage(basePath string, superAdminID int64, seedAdminIDs []int64) (Repository, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}

	return &FileStorage{
		path:         filepath.Join(basePath, settingsFileName),
		superAdminID: superAdminID,
		seedAdminIDs: seedAdminIDs,
	}, nil
}

func (s *FileStorage) Load() (*domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.load()
}

func (s *FileStorage) load() (*domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewDefaultSettings(s.superAdminID, s.seedAdminIDs), nil
		}
		return nil, oops.With("path", s.path, "context", "failed to read settings").Wrap(err)
	}

	var settings domain.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		s.setAsideCorrupt(err)
		return domain.NewDefaultSettings(s.superAdminID, s.seedAdminIDs), nil
	}

	s.normalize(&settings)
	return &settings, nil
}

func (s *FileStorage) Save(settings *domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.normalize(settings)
	settings.LastUpdate = time.Now().UTC()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return oops.With("path", s.path, "context", "failed to marshal settings").Wrap(err)
	}

	return writeFileAtomic(s.path, data)
}

// RecoveredFromCorruption reports whether a corrupt settings file was set
// aside since this repository was created.
func (s *FileStorage) RecoveredFromCorruption() bool {
	return s.recovered.Load()
}

// normalize enforces the document invariants: the super admin is always
// present, channels is never nil and the bot mode is a known value.
func (s *FileStorage) normalize(settings *domain.Settings) {
	if !lo.Contains(settings.AdminIDs, s.superAdminID) {
		settings.AdminIDs = append(settings.AdminIDs, s.superAdminID)
	}
	if settings.Channels == nil {
		settings.Channels = map[string]string{}
	}
	if !settings.BotMode.IsValid() {
		settings.BotMode = domain.BotModeChannels
	}
}

func (s *FileStorage) setAsideCorrupt(cause error) {
	if !s.recovered.CompareAndSwap(false, true) {
		return
	}
	aside := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, aside); err != nil {
		slog.Error("Failed to set aside corrupt settings file", "path", s.path, "error", err)
		return
	}
	slog.Error("Settings file is corrupt, falling back to defaults", "path", s.path, "moved_to", aside, "error", cause)
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
