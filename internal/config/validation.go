// Package config handles configuration loading and validation for the gate
// daemon.
package config

import (
	"fmt"
	"strings"

	"nekogate/internal/keyderivation"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors. A malformed admin key is
// rejected here so the daemon never starts with a key keyderivation.Derive
// would refuse at the first Generate/Verify call.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.AdminKey == "" {
		errs = append(errs, ValidationError{Field: "admin_key", Message: "required"})
	} else if !keyderivation.Valid(c.AdminKey) {
		errs = append(errs, ValidationError{
			Field:   "admin_key",
			Message: fmt.Sprintf("must be %d-%d decimal digits", keyderivation.MinLength, keyderivation.MaxLength),
		})
	}

	if c.TimeOffsetSeconds < -12*3600 || c.TimeOffsetSeconds > 14*3600 {
		errs = append(errs, ValidationError{Field: "time_offset_seconds", Message: "must be a plausible UTC offset"})
	}

	if c.DatabasePath == "" {
		errs = append(errs, ValidationError{Field: "database_path", Message: "required"})
	}

	if c.AuditLogPath == "" {
		errs = append(errs, ValidationError{Field: "audit_log_path", Message: "required"})
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{Field: "logging.level", Message: "must be debug, info, warn, or error"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
