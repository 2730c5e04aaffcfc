package repository

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reshetovitsme/stalker-bot/internal/modules/settings/domain"
)

const testSuperAdminID int64 = 111

func newTestStorage(t *testing.T) (Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := NewFileStorage(dir, testSuperAdminID, []int64{222})
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	return repo, dir
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	repo, _ := newTestStorage(t)

	settings, err := repo.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !settings.MonitoringEnabled {
		t.Error("expected monitoring enabled by default")
	}
	if len(settings.Keywords) != len(domain.DefaultKeywords) {
		t.Errorf("expected default keywords, got %v", settings.Keywords)
	}
	if !settings.HasAdmin(testSuperAdminID) {
		t.Error("expected super admin in default admin list")
	}
	if !settings.HasAdmin(222) {
		t.Error("expected seed admin in default admin list")
	}
	if settings.BotMode != domain.BotModeChannels {
		t.Errorf("expected channels mode, got %s", settings.BotMode)
	}
	if repo.RecoveredFromCorruption() {
		t.Error("missing file is not corruption")
	}
}

func TestSaveAndReload(t *testing.T) {
	repo, dir := newTestStorage(t)

	settings, err := repo.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	settings.Keywords = []string{"go", "golang"}
	settings.Channels["123"] = "Test Channel"

	if err := repo.Save(settings); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A second repository over the same directory sees the saved document.
	repo2, err := NewFileStorage(dir, testSuperAdminID, nil)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	reloaded, err := repo2.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(reloaded.Keywords) != 2 || reloaded.Keywords[0] != "go" {
		t.Errorf("unexpected keywords after reload: %v", reloaded.Keywords)
	}
	if name, ok := reloaded.ChannelName(123); !ok || name != "Test Channel" {
		t.Errorf("unexpected channel after reload: %q %v", name, ok)
	}
	if reloaded.LastUpdate.IsZero() {
		t.Error("expected LastUpdate to be set on save")
	}
}

func TestSuperAdminAlwaysReinstated(t *testing.T) {
	repo, _ := newTestStorage(t)

	settings, err := repo.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Strip the super admin and save; the repository must put it back.
	settings.AdminIDs = []int64{333}
	if err := repo.Save(settings); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := repo.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reloaded.HasAdmin(testSuperAdminID) {
		t.Error("super admin was not reinstated")
	}
	if !reloaded.HasAdmin(333) {
		t.Error("regular admin was dropped")
	}
}

func TestCorruptFileSetAsideAndDefaults(t *testing.T) {
	repo, dir := newTestStorage(t)

	path := filepath.Join(dir, settingsFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	settings, err := repo.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(settings.Keywords) != len(domain.DefaultKeywords) {
		t.Errorf("expected defaults after corruption, got %v", settings.Keywords)
	}
	if !repo.RecoveredFromCorruption() {
		t.Error("expected corruption recovery flag")
	}

	// The corrupt payload must be preserved under a set-aside name.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var found bool
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), settingsFileName+".corrupt-") {
			found = true
		}
	}
	if !found {
		t.Error("corrupt file was not set aside")
	}
}

func TestInvalidBotModeNormalized(t *testing.T) {
	repo, dir := newTestStorage(t)

	path := filepath.Join(dir, settingsFileName)
	doc := `{"monitoring_enabled":true,"keywords":["x"],"channels":{},"admin_ids":[111],"bot_mode":"smoke"}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	settings, err := repo.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.BotMode != domain.BotModeChannels {
		t.Errorf("expected unknown mode to normalize to channels, got %s", settings.BotMode)
	}
	if repo.RecoveredFromCorruption() {
		t.Error("unknown enum value is not document corruption")
	}
}
