package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/reshetovitsme/stalker-bot/internal/modules/settings/domain"
	sharedErrors "github.com/reshetovitsme/stalker-bot/internal/shared/errors"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("SUPER_ADMIN_ID", "111")
	t.Setenv("ADMIN_IDS", "222, 333")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.TelegramBotToken != "test-token" {
		t.Errorf("unexpected token: %q", cfg.TelegramBotToken)
	}
	if cfg.SuperAdminID != 111 {
		t.Errorf("unexpected super admin id: %d", cfg.SuperAdminID)
	}
	if !reflect.DeepEqual(cfg.AdminIDs, []int64{222, 333}) {
		t.Errorf("unexpected admin ids: %v", cfg.AdminIDs)
	}
	if cfg.StorageBackend != StorageBackendSQLite {
		t.Errorf("unexpected backend: %q", cfg.StorageBackend)
	}
	if cfg.AppEnv != domain.AppEnvDevelopment {
		t.Errorf("unexpected app env: %s", cfg.AppEnv)
	}
}

func TestLoadAdminIDsFromEnvString(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("SUPER_ADMIN_ID", "111")
	t.Setenv("ADMIN_IDS", "222,333")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.AdminIDs, []int64{222, 333}) {
		t.Errorf("unexpected admin ids: %v", cfg.AdminIDs)
	}
}

func TestLoadAdminIDsFromConfigFileArray(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWD); err != nil {
			t.Errorf("Chdir back: %v", err)
		}
	})

	doc := `{"admin_ids": [222, 333]}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("SUPER_ADMIN_ID", "111")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.AdminIDs, []int64{222, 333}) {
		t.Errorf("unexpected admin ids: %v", cfg.AdminIDs)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("SUPER_ADMIN_ID", "111")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.TelegramAPIURL != "https://api.telegram.org" {
		t.Errorf("unexpected api url: %q", cfg.TelegramAPIURL)
	}
	if cfg.StoragePath != "./data" {
		t.Errorf("unexpected storage path: %q", cfg.StoragePath)
	}
	if cfg.StorageBackend != StorageBackendJSON {
		t.Errorf("unexpected backend: %q", cfg.StorageBackend)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("unexpected port: %q", cfg.HTTPPort)
	}
	if cfg.QueueSize != 256 {
		t.Errorf("unexpected queue size: %d", cfg.QueueSize)
	}
	if cfg.AppEnv != domain.AppEnvProduction {
		t.Errorf("unexpected app env: %s", cfg.AppEnv)
	}
}

func TestLoadRequiresBotToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("SUPER_ADMIN_ID", "111")

	_, err := Load()
	if !errors.Is(err, sharedErrors.ErrMissingBotToken) {
		t.Fatalf("expected ErrMissingBotToken, got %v", err)
	}
}

func TestLoadRequiresSuperAdmin(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("SUPER_ADMIN_ID", "")

	_, err := Load()
	if !errors.Is(err, sharedErrors.ErrMissingSuperAdmin) {
		t.Fatalf("expected ErrMissingSuperAdmin, got %v", err)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("SUPER_ADMIN_ID", "111")
	t.Setenv("STORAGE_BACKEND", "parquet")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestParseAdminIDs(t *testing.T) {
	tests := []struct {
		input string
		want  []int64
	}{
		{"", []int64{}},
		{"111", []int64{111}},
		{"111,222", []int64{111, 222}},
		{" 111 , 222 ", []int64{111, 222}},
		{"111,abc,222", []int64{111, 222}},
		{",,", []int64{}},
	}

	for _, tt := range tests {
		if got := ParseAdminIDs(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseAdminIDs(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
