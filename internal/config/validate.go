package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRowCap indicates a non-positive row cap.
	ErrInvalidRowCap = errors.New("invalid max rows per table")

	// ErrInvalidTimeout indicates a non-positive statement timeout.
	ErrInvalidTimeout = errors.New("invalid statement timeout")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateSandbox(&cfg.Sandbox); err != nil {
		errs = append(errs, err)
	}
	if err := validateLive(&cfg.Live); err != nil {
		errs = append(errs, err)
	}

	return joinErrors(errs)
}

func validateSandbox(cfg *SandboxConfig) error {
	var errs []error

	if cfg.MaxRowsPerTable <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_rows_per_table must be positive, got %d", ErrInvalidRowCap, cfg.MaxRowsPerTable))
	}

	return joinErrors(errs)
}

func validateLive(cfg *LiveConfig) error {
	var errs []error

	if cfg.StatementTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: statement_timeout must be positive, got %s", ErrInvalidTimeout, cfg.StatementTimeout))
	}
	for i, name := range cfg.SystemDatabases {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("system_databases[%d] is empty", i))
		}
	}

	return joinErrors(errs)
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
