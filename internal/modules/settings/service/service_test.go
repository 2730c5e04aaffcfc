package service

import (
	"errors"
	"testing"

	"github.com/reshetovitsme/stalker-bot/internal/modules/settings/domain"
	"github.com/reshetovitsme/stalker-bot/internal/modules/settings/repository"
	sharedErrors "github.com/reshetovitsme/stalker-bot/internal/shared/errors"
)

const testSuperAdminID int64 = 111

func newTestService(t *testing.T) *Service {
	t.Helper()
	repo, err := repository.NewFileStorage(t.TempDir(), testSuperAdminID, nil)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	return New(repo, testSuperAdminID)
}

func TestSetKeywordsNormalizes(t *testing.T) {
	svc := newTestService(t)

	if err := svc.SetKeywords([]string{"  Go ", "GOLANG", "golang", ""}); err != nil {
		t.Fatalf("SetKeywords: %v", err)
	}

	keywords, err := svc.Keywords()
	if err != nil {
		t.Fatalf("Keywords: %v", err)
	}
	if len(keywords) != 2 || keywords[0] != "go" || keywords[1] != "golang" {
		t.Errorf("unexpected keywords: %v", keywords)
	}
}

func TestSetKeywordsRejectsEmptySet(t *testing.T) {
	svc := newTestService(t)

	before, err := svc.Keywords()
	if err != nil {
		t.Fatalf("Keywords: %v", err)
	}

	err = svc.SetKeywords([]string{"  ", ""})
	if !errors.Is(err, sharedErrors.ErrEmptyKeywordSet) {
		t.Fatalf("expected ErrEmptyKeywordSet, got %v", err)
	}

	after, err := svc.Keywords()
	if err != nil {
		t.Fatalf("Keywords: %v", err)
	}
	if len(after) != len(before) {
		t.Errorf("keyword set changed on rejected edit: %v -> %v", before, after)
	}
}

func TestChannelLifecycle(t *testing.T) {
	svc := newTestService(t)

	added, err := svc.AddChannel(123, "News")
	if err != nil || !added {
		t.Fatalf("AddChannel: added=%v err=%v", added, err)
	}

	// Duplicate add is a no-op.
	added, err = svc.AddChannel(123, "Other")
	if err != nil {
		t.Fatalf("AddChannel: %v", err)
	}
	if added {
		t.Error("expected duplicate add to report false")
	}

	renamed, err := svc.RenameChannel(123, "News Renamed")
	if err != nil || !renamed {
		t.Fatalf("RenameChannel: renamed=%v err=%v", renamed, err)
	}

	channels, err := svc.Channels()
	if err != nil {
		t.Fatalf("Channels: %v", err)
	}
	if channels[123] != "News Renamed" {
		t.Errorf("unexpected channel name: %q", channels[123])
	}

	removed, err := svc.RemoveChannel(123)
	if err != nil || !removed {
		t.Fatalf("RemoveChannel: removed=%v err=%v", removed, err)
	}

	removed, err = svc.RemoveChannel(123)
	if err != nil {
		t.Fatalf("RemoveChannel: %v", err)
	}
	if removed {
		t.Error("expected removing an unknown channel to report false")
	}
}

func TestRenameUnknownChannel(t *testing.T) {
	svc := newTestService(t)

	renamed, err := svc.RenameChannel(999, "Nope")
	if err != nil {
		t.Fatalf("RenameChannel: %v", err)
	}
	if renamed {
		t.Error("expected rename of unknown channel to report false")
	}
}

func TestAdminLifecycle(t *testing.T) {
	svc := newTestService(t)

	added, err := svc.AddAdmin(222)
	if err != nil || !added {
		t.Fatalf("AddAdmin: added=%v err=%v", added, err)
	}
	if !svc.IsAdmin(222) {
		t.Error("expected 222 to be admin")
	}

	added, err = svc.AddAdmin(222)
	if err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}
	if added {
		t.Error("expected duplicate admin add to report false")
	}

	removed, err := svc.RemoveAdmin(222)
	if err != nil || !removed {
		t.Fatalf("RemoveAdmin: removed=%v err=%v", removed, err)
	}
	if svc.IsAdmin(222) {
		t.Error("expected 222 to be removed")
	}
}

func TestSuperAdminNotRemovable(t *testing.T) {
	svc := newTestService(t)

	removed, err := svc.RemoveAdmin(testSuperAdminID)
	if err != nil {
		t.Fatalf("RemoveAdmin: %v", err)
	}
	if removed {
		t.Error("super admin must not be removable")
	}
	if !svc.IsAdmin(testSuperAdminID) {
		t.Error("super admin lost admin access")
	}
	if !svc.IsSuperAdmin(testSuperAdminID) {
		t.Error("expected IsSuperAdmin for the configured id")
	}
}

func TestToggleMonitoringPreservesConfiguration(t *testing.T) {
	svc := newTestService(t)

	if err := svc.SetKeywords([]string{"go"}); err != nil {
		t.Fatalf("SetKeywords: %v", err)
	}
	if _, err := svc.AddChannel(123, "News"); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}

	enabled, err := svc.ToggleMonitoring()
	if err != nil {
		t.Fatalf("ToggleMonitoring: %v", err)
	}
	if enabled {
		t.Error("expected toggle from default-on to report off")
	}

	enabled, err = svc.ToggleMonitoring()
	if err != nil {
		t.Fatalf("ToggleMonitoring: %v", err)
	}
	if !enabled {
		t.Error("expected second toggle to report on")
	}

	keywords, err := svc.Keywords()
	if err != nil {
		t.Fatalf("Keywords: %v", err)
	}
	if len(keywords) != 1 || keywords[0] != "go" {
		t.Errorf("keywords changed across toggles: %v", keywords)
	}
	channels, err := svc.Channels()
	if err != nil {
		t.Fatalf("Channels: %v", err)
	}
	if channels[123] != "News" {
		t.Errorf("channels changed across toggles: %v", channels)
	}
}

func TestSetBotMode(t *testing.T) {
	svc := newTestService(t)

	if err := svc.SetBotMode(domain.BotModeNone); err != nil {
		t.Fatalf("SetBotMode: %v", err)
	}
	mode, err := svc.BotMode()
	if err != nil {
		t.Fatalf("BotMode: %v", err)
	}
	if mode != domain.BotModeNone {
		t.Errorf("unexpected mode: %s", mode)
	}

	err = svc.SetBotMode(domain.BotMode("smoke"))
	if !errors.Is(err, sharedErrors.ErrInvalidBotMode) {
		t.Fatalf("expected ErrInvalidBotMode, got %v", err)
	}
}
