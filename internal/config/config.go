// Package config handles configuration loading and validation for the gate
// daemon.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// TelegramConfig holds the opaque credentials the out-of-scope Telegram
// workflow collaborator reads from this config. The core never touches
// these fields; they exist only so that collaborator has somewhere to find
// them.
type TelegramConfig struct {
	BotToken    string `toml:"bot_token"`
	AdminChatID int64  `toml:"admin_chat_id"`
}

// LoggingConfig controls internal/logging's handler.
type LoggingConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
	Path  string `toml:"path"`
}

// Config holds the gate daemon configuration.
type Config struct {
	// AdminKey is the 4-10 digit decimal string keyderivation.Derive turns
	// into the KeeLoq key. It is the single secret the whole codec's
	// security rests on.
	AdminKey string `toml:"admin_key"`

	// TimeOffsetSeconds is the configured UTC offset, in seconds. Defaults
	// to 8*3600 (UTC+8) and is range-checked by Validate. Window
	// quantization does not read it: the codec always uses clock.Offset.
	TimeOffsetSeconds int `toml:"time_offset_seconds"`

	// DatabasePath is the path to the SQLite password-record store.
	DatabasePath string `toml:"database_path"`

	// AuditLogPath is the path to the structured audit log.
	AuditLogPath string `toml:"audit_log_path"`

	Telegram TelegramConfig `toml:"telegram"`
	Logging  LoggingConfig  `toml:"logging"`

	// TPMSealEnabled selects a TPM-backed Sealer for the admin key at
	// rest over the software HKDF fallback.
	TPMSealEnabled bool `toml:"tpm_seal_enabled"`
}

// DefaultConfig returns a configuration with sensible defaults. AdminKey is
// deliberately left empty: Validate rejects an empty key, forcing an
// operator to set one rather than run with a silently-accepted default.
func DefaultConfig() *Config {
	dir := NekogateDir()
	return &Config{
		TimeOffsetSeconds: 8 * 3600,
		DatabasePath:      filepath.Join(dir, "gate.db"),
		AuditLogPath:      filepath.Join(dir, "audit.log"),
		Logging: LoggingConfig{
			Level: "info",
			Path:  filepath.Join(dir, "gate.log"),
		},
		TPMSealEnabled: false,
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(NekogateDir(), "config.toml")
}

// NekogateDir returns the base gate daemon directory.
func NekogateDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".nekogate")
}

// Load reads configuration from the specified path. If the file doesn't
// exist, returns default configuration. Callers should still call
// Validate before using the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	return cfg, nil
}

// EnsureDirectories creates all necessary directories for the daemon.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.DatabasePath),
		filepath.Dir(c.AuditLogPath),
		filepath.Dir(c.Logging.Path),
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}

	return nil
}
