package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.TimeOffsetSeconds != 8*3600 {
		t.Errorf("expected time offset 28800, got %d", cfg.TimeOffsetSeconds)
	}
	if !strings.Contains(cfg.DatabasePath, ".nekogate") {
		t.Errorf("database path should contain .nekogate: %s", cfg.DatabasePath)
	}
	if !strings.Contains(cfg.AuditLogPath, ".nekogate") {
		t.Errorf("audit log path should contain .nekogate: %s", cfg.AuditLogPath)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default logging level info, got %s", cfg.Logging.Level)
	}
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	if path == "" {
		t.Error("ConfigPath returned empty string")
	}
	if !strings.HasSuffix(path, "config.toml") {
		t.Errorf("expected path ending with config.toml, got %s", path)
	}
	if !strings.Contains(path, ".nekogate") {
		t.Errorf("config path should contain .nekogate: %s", path)
	}
}

func TestNekogateDir(t *testing.T) {
	dir := NekogateDir()
	if dir == "" {
		t.Error("NekogateDir returned empty string")
	}
	if !strings.HasSuffix(dir, ".nekogate") {
		t.Errorf("expected dir ending with .nekogate, got %s", dir)
	}
}

func TestLoadNonexistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.TimeOffsetSeconds != 8*3600 {
		t.Errorf("expected default time offset, got %d", cfg.TimeOffsetSeconds)
	}
}

func TestLoadValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
admin_key = "12345"
time_offset_seconds = 28800
database_path = "/custom/path/gate.db"
audit_log_path = "/custom/path/audit.log"
tpm_seal_enabled = true

[telegram]
bot_token = "123:abc"
admin_chat_id = 42

[logging]
level = "debug"
path = "/custom/path/gate.log"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.AdminKey != "12345" {
		t.Errorf("expected admin key 12345, got %s", cfg.AdminKey)
	}
	if cfg.DatabasePath != "/custom/path/gate.db" {
		t.Errorf("expected database path /custom/path/gate.db, got %s", cfg.DatabasePath)
	}
	if cfg.Telegram.BotToken != "123:abc" {
		t.Errorf("expected telegram bot token 123:abc, got %s", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.AdminChatID != 42 {
		t.Errorf("expected telegram admin chat id 42, got %d", cfg.Telegram.AdminChatID)
	}
	if !cfg.TPMSealEnabled {
		t.Error("expected tpm_seal_enabled true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
admin_key = "999"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.AdminKey != "999" {
		t.Errorf("expected admin key 999, got %s", cfg.AdminKey)
	}
	if !strings.Contains(cfg.DatabasePath, ".nekogate") {
		t.Errorf("database path should have default value")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
this is not valid toml {{{
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestValidateRequiresAdminKey(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Error("default config should fail validation without an admin_key")
	}
}

func TestValidateRejectsMalformedAdminKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AdminKey = "12" // too short
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for too-short admin key")
	}

	cfg.AdminKey = "12a45"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-digit admin key")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AdminKey = "123456"
	if err := cfg.Validate(); err != nil {
		t.Errorf("well-formed config should validate: %v", err)
	}
}

func TestValidateRejectsImplausibleOffset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AdminKey = "123456"
	cfg.TimeOffsetSeconds = 100000
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for implausible time offset")
	}
}

func TestValidateRejectsMissingDatabasePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AdminKey = "123456"
	cfg.DatabasePath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing database path")
	}
}

func TestValidateRejectsBadLoggingLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AdminKey = "123456"
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unrecognized logging level")
	}
}

func TestEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &Config{
		DatabasePath: filepath.Join(tmpDir, "subdir1", "gate.db"),
		AuditLogPath: filepath.Join(tmpDir, "subdir2", "audit.log"),
		Logging:      LoggingConfig{Path: filepath.Join(tmpDir, "subdir3", "gate.log")},
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, sub := range []string{"subdir1", "subdir2", "subdir3"} {
		if _, err := os.Stat(filepath.Join(tmpDir, sub)); os.IsNotExist(err) {
			t.Errorf("%s was not created", sub)
		}
	}
}

func TestEnsureDirectoriesEmptyPaths(t *testing.T) {
	cfg := &Config{}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Errorf("EnsureDirectories failed with empty paths: %v", err)
	}
}
