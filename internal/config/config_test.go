package config

import (
	"os"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("BOT_TOKEN", "123456:test-token")
	os.Setenv("BOT_USERNAME", "filestoretestbot")
	os.Setenv("DB_CHANNEL_ID", "-1001234567890")
	os.Setenv("DB_PASSWORD", "test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Bot.ChannelID != -1001234567890 {
		t.Errorf("ChannelID: got %d, want -1001234567890", cfg.Bot.ChannelID)
	}
	if cfg.Access.VerifyEnabled {
		t.Error("VerifyEnabled should default to false")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("DB port: got %d, want 5432", cfg.Database.Port)
	}
	if cfg.HTTP.Port != "8080" {
		t.Errorf("HTTP port: got %s, want 8080", cfg.HTTP.Port)
	}
}

func TestLoad_MissingBotToken(t *testing.T) {
	setRequiredEnv(t)
	os.Unsetenv("BOT_TOKEN")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without BOT_TOKEN")
	}
}

func TestLoad_MissingChannelID(t *testing.T) {
	setRequiredEnv(t)
	os.Unsetenv("DB_CHANNEL_ID")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without DB_CHANNEL_ID")
	}
}

func TestLoad_VerifyRequiresTutorialURL(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("VERIFY_ENABLED", "true")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail when VERIFY_ENABLED is set without VERIFY_TUTORIAL_URL")
	}

	os.Setenv("VERIFY_TUTORIAL_URL", "https://example.com/how-to-verify")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if !cfg.Access.VerifyEnabled {
		t.Error("VerifyEnabled should be true")
	}
}

func TestLoad_UsernameAtPrefixStripped(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("BOT_USERNAME", "@filestoretestbot")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Bot.Username != "filestoretestbot" {
		t.Errorf("Username: got %q, want %q", cfg.Bot.Username, "filestoretestbot")
	}
}

func TestLoad_AdminIDs(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("ADMIN_IDS", "123, 456,bad,789")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	want := []int64{123, 456, 789}
	if len(cfg.Bot.AdminIDs) != len(want) {
		t.Fatalf("AdminIDs: got %v, want %v", cfg.Bot.AdminIDs, want)
	}
	for i, id := range want {
		if cfg.Bot.AdminIDs[i] != id {
			t.Errorf("AdminIDs[%d]: got %d, want %d", i, cfg.Bot.AdminIDs[i], id)
		}
	}

	if !cfg.Bot.IsAdmin(456) {
		t.Error("IsAdmin(456) should be true")
	}
	if cfg.Bot.IsAdmin(999) {
		t.Error("IsAdmin(999) should be false")
	}
}
