// Package logging provides structured logging with slog for the gate
// daemon.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// AuditEventType represents the type of audit event. The vocabulary is
// deliberately narrow: this is a door-access codec, not a forensic
// witnessing system.
type AuditEventType string

// Audit event types.
const (
	AuditEventKeyDerived       AuditEventType = "key_derived"
	AuditEventPasswordGenerate AuditEventType = "password_generated"
	AuditEventPasswordVerify   AuditEventType = "password_verified"
	AuditEventPasswordReject   AuditEventType = "password_rejected"
	AuditEventAdminKeyRotated  AuditEventType = "admin_key_rotated"
	AuditEventStartup          AuditEventType = "startup"
	AuditEventShutdown         AuditEventType = "shutdown"
	AuditEventError            AuditEventType = "error"
)

// AuditEvent represents a security-relevant event. KeyFingerprint carries
// the first 8 hex chars of SHA-256 of the derived cipher key, never the
// admin key or the derived key itself: logging either would defeat the
// codec it is meant to protect.
type AuditEvent struct {
	Timestamp      time.Time      `json:"timestamp"`
	EventType      AuditEventType `json:"event_type"`
	Action         string         `json:"action"`
	Variant        string         `json:"variant,omitempty"`
	KeyFingerprint string         `json:"key_fingerprint,omitempty"`
	Result         string         `json:"result"` // "success", "failure", "denied"
	Details        map[string]any `json:"details,omitempty"`
	SourceFile     string         `json:"source_file,omitempty"`
	SourceLine     int            `json:"source_line,omitempty"`
	Error          string         `json:"error,omitempty"`
	RequestID      string         `json:"request_id,omitempty"`
}

// AuditLoggerConfig holds configuration for the audit logger.
type AuditLoggerConfig struct {
	FilePath   string
	MaxSize    int64 // megabytes before rotation
	MaxAge     int   // days before deletion
	MaxBackups int
	Compress   bool
}

// DefaultAuditConfig returns default audit logger configuration.
func DefaultAuditConfig() *AuditLoggerConfig {
	return &AuditLoggerConfig{
		FilePath:   defaultAuditLogPath(),
		MaxSize:    50,
		MaxAge:     90,
		MaxBackups: 10,
		Compress:   true,
	}
}

// defaultAuditLogPath returns the platform-specific default audit log
// path.
func defaultAuditLogPath() string {
	switch runtime.GOOS {
	case "darwin":
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "Library", "Logs", "nekogate", "audit.log")
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		return filepath.Join(appData, "nekogate", "logs", "audit.log")
	default:
		stateHome := os.Getenv("XDG_STATE_HOME")
		if stateHome == "" {
			homeDir, _ := os.UserHomeDir()
			stateHome = filepath.Join(homeDir, ".local", "state")
		}
		return filepath.Join(stateHome, "nekogate", "audit.log")
	}
}

// AuditLogger handles security audit logging.
type AuditLogger struct {
	config  *AuditLoggerConfig
	rotator *FileRotator
	mu      sync.Mutex
}

var (
	defaultAuditLogger *AuditLogger
	auditLoggerOnce    sync.Once
)

// DefaultAuditLogger returns the default global audit logger.
func DefaultAuditLogger() *AuditLogger {
	auditLoggerOnce.Do(func() {
		var err error
		defaultAuditLogger, err = NewAuditLogger(DefaultAuditConfig())
		if err != nil {
			defaultAuditLogger = &AuditLogger{config: DefaultAuditConfig()}
		}
	})
	return defaultAuditLogger
}

// SetDefaultAuditLogger sets the default global audit logger.
func SetDefaultAuditLogger(l *AuditLogger) {
	defaultAuditLogger = l
}

// NewAuditLogger creates a new AuditLogger.
func NewAuditLogger(cfg *AuditLoggerConfig) (*AuditLogger, error) {
	if cfg == nil {
		cfg = DefaultAuditConfig()
	}

	rotatorCfg := &Config{
		FilePath:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
		Format:     FormatJSON,
		Level:      LevelInfo,
	}

	rotator, err := NewFileRotator(rotatorCfg)
	if err != nil {
		return nil, fmt.Errorf("create audit rotator: %w", err)
	}

	return &AuditLogger{config: cfg, rotator: rotator}, nil
}

// Log writes an audit event.
func (a *AuditLogger) Log(ctx context.Context, event AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = RequestIDFromContext(ctx)
	}
	if event.SourceFile == "" {
		_, file, line, ok := runtime.Caller(1)
		if ok {
			event.SourceFile = file
			event.SourceLine = line
		}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	data = append(data, '\n')

	if a.rotator == nil {
		_, err := os.Stderr.Write(data)
		return err
	}
	if _, err := a.rotator.Write(data); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// LogKeyDerived logs a successful admin-key-to-cipher-key derivation.
func (a *AuditLogger) LogKeyDerived(ctx context.Context, fingerprint string) error {
	return a.Log(ctx, AuditEvent{
		EventType:      AuditEventKeyDerived,
		Action:         "key_derived",
		Result:         "success",
		KeyFingerprint: fingerprint,
	})
}

// LogPasswordGenerated logs a Generate call.
func (a *AuditLogger) LogPasswordGenerated(ctx context.Context, variant, fingerprint string) error {
	return a.Log(ctx, AuditEvent{
		EventType:      AuditEventPasswordGenerate,
		Action:         "password_generated",
		Variant:        variant,
		Result:         "success",
		KeyFingerprint: fingerprint,
	})
}

// LogPasswordVerified logs a successful Verify call.
func (a *AuditLogger) LogPasswordVerified(ctx context.Context, variant, fingerprint string) error {
	return a.Log(ctx, AuditEvent{
		EventType:      AuditEventPasswordVerify,
		Action:         "password_verified",
		Variant:        variant,
		Result:         "success",
		KeyFingerprint: fingerprint,
	})
}

// LogPasswordRejected logs a Verify call that did not match any variant.
func (a *AuditLogger) LogPasswordRejected(ctx context.Context, fingerprint string) error {
	return a.Log(ctx, AuditEvent{
		EventType:      AuditEventPasswordReject,
		Action:         "password_rejected",
		Result:         "denied",
		KeyFingerprint: fingerprint,
	})
}

// LogAdminKeyRotated logs a change of the configured admin key.
func (a *AuditLogger) LogAdminKeyRotated(ctx context.Context) error {
	return a.Log(ctx, AuditEvent{
		EventType: AuditEventAdminKeyRotated,
		Action:    "admin_key_rotated",
		Result:    "success",
	})
}

// LogStartup logs a daemon startup event.
func (a *AuditLogger) LogStartup(ctx context.Context, version string) error {
	return a.Log(ctx, AuditEvent{
		EventType: AuditEventStartup,
		Action:    "daemon_started",
		Result:    "success",
		Details:   map[string]any{"version": version},
	})
}

// LogShutdown logs a daemon shutdown event.
func (a *AuditLogger) LogShutdown(ctx context.Context, reason string) error {
	return a.Log(ctx, AuditEvent{
		EventType: AuditEventShutdown,
		Action:    "daemon_stopped",
		Result:    "success",
		Details:   map[string]any{"reason": reason},
	})
}

// LogError logs an error event.
func (a *AuditLogger) LogError(ctx context.Context, operation string, err error) error {
	return a.Log(ctx, AuditEvent{
		EventType: AuditEventError,
		Action:    operation,
		Result:    "failure",
		Error:     err.Error(),
	})
}

// Close closes the audit logger.
func (a *AuditLogger) Close() error {
	if a.rotator != nil {
		return a.rotator.Close()
	}
	return nil
}

// Sync flushes any buffered audit events.
func (a *AuditLogger) Sync() error {
	if a.rotator != nil {
		return a.rotator.Sync()
	}
	return nil
}

// Audit logs an audit event using the default audit logger.
func Audit(ctx context.Context, event AuditEvent) error {
	return DefaultAuditLogger().Log(ctx, event)
}
