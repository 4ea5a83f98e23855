// Package logging provides structured logging with slog for nekogate.
package logging

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileRotator adapts lumberjack's size/age/backup-count rotation to the
// io.Writer the structured and audit loggers write through. Both the
// operational log (internal/logging.Logger) and the security audit trail
// (AuditLogger) go through this same rotator, configured independently
// from the same Config shape.
type FileRotator struct {
	lj *lumberjack.Logger
}

// NewFileRotator creates a new FileRotator from the logging config.
func NewFileRotator(cfg *Config) (*FileRotator, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0750); err != nil {
		return nil, err
	}

	return &FileRotator{
		lj: &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    int(cfg.MaxSize),
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		},
	}, nil
}

// Write implements io.Writer, rotating the underlying file when it grows
// past MaxSize.
func (r *FileRotator) Write(p []byte) (int, error) {
	return r.lj.Write(p)
}

// Rotate forces an immediate rotation regardless of current file size.
func (r *FileRotator) Rotate() error {
	return r.lj.Rotate()
}

// GetLogFiles returns the current log file, if it exists, followed by the
// rotated backups lumberjack has left beside it.
func (r *FileRotator) GetLogFiles() ([]string, error) {
	var files []string
	if _, err := os.Stat(r.lj.Filename); err == nil {
		files = append(files, r.lj.Filename)
	}
	ext := filepath.Ext(r.lj.Filename)
	backups, err := filepath.Glob(strings.TrimSuffix(r.lj.Filename, ext) + "-*" + ext + "*")
	if err != nil {
		return nil, err
	}
	return append(files, backups...), nil
}

// Close closes the underlying file handle.
func (r *FileRotator) Close() error {
	return r.lj.Close()
}

// Sync is a no-op: lumberjack writes straight through to the OS file on
// every Write, so there is nothing buffered to flush.
func (r *FileRotator) Sync() error {
	return nil
}
