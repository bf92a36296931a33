package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gobwas/glob"
)

var (
	// ErrEmptyCommand indicates the analyzer command is missing
	ErrEmptyCommand = errors.New("empty analyzer command")

	// ErrInvalidTimeout indicates a negative analyzer timeout
	ErrInvalidTimeout = errors.New("invalid analyzer timeout")

	// ErrEmptyInclude indicates no include patterns were configured
	ErrEmptyInclude = errors.New("empty include patterns")

	// ErrInvalidPattern indicates a glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrInvalidWorkers indicates a non-positive worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidCacheSize indicates a negative projection cache size
	ErrInvalidCacheSize = errors.New("invalid cache size")

	// ErrEmptyStateLocation indicates state is enabled without a location
	ErrEmptyStateLocation = errors.New("empty state location")

	// ErrInvalidLogLevel indicates an unknown log level
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateAnalyzer(&cfg.Analyzer); err != nil {
		errs = append(errs, err)
	}

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if err := validateExtraction(&cfg.Extraction); err != nil {
		errs = append(errs, err)
	}

	if err := validateState(&cfg.State); err != nil {
		errs = append(errs, err)
	}

	if err := validateLog(&cfg.Log); err != nil {
		errs = append(errs, err)
	}

	return joinErrors(errs)
}

func validateAnalyzer(cfg *AnalyzerConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.Command) == "" {
		errs = append(errs, fmt.Errorf("%w: command is required", ErrEmptyCommand))
	}

	if cfg.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: timeout cannot be negative, got %s", ErrInvalidTimeout, cfg.Timeout))
	}

	return joinErrors(errs)
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	if len(cfg.Include) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one include pattern required", ErrEmptyInclude))
	}

	for _, pattern := range append(append([]string{}, cfg.Include...), cfg.Ignore...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	return joinErrors(errs)
}

func validateExtraction(cfg *ExtractionConfig) error {
	var errs []error

	if cfg.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	// Zero disables the cache.
	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidCacheSize, cfg.CacheSize))
	}

	return joinErrors(errs)
}

func validateState(cfg *StateConfig) error {
	if cfg.Enabled && strings.TrimSpace(cfg.Location) == "" {
		return fmt.Errorf("%w: location is required when state is enabled", ErrEmptyStateLocation)
	}
	return nil
}

func validateLog(cfg *LogConfig) error {
	if cfg.Level == "" || strings.EqualFold(cfg.Level, "disabled") {
		return nil
	}
	if _, err := log.ParseLevel(strings.ToLower(cfg.Level)); err != nil {
		return fmt.Errorf("%w: %q (valid: debug, info, warn, error, disabled)", ErrInvalidLogLevel, cfg.Level)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The result still matches every sentinel through errors.Is.
func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}

	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return &validationError{
		msg:  fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - ")),
		errs: errs,
	}
}

type validationError struct {
	msg  string
	errs []error
}

func (e *validationError) Error() string   { return e.msg }
func (e *validationError) Unwrap() []error { return e.errs }
