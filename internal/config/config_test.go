package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - Load() uses defaults when no config file exists
// - Load() loads from .ruumba/config.yml and .ruumba/config.yaml
// - Load() merges a partial config file with defaults
// - Environment variables override config file values and defaults
// - Load() returns error for malformed YAML and invalid values
// - Validate() rejects each invalid field with its sentinel error
// - Validate() reports multiple errors at once
// - Extensions() and StatePath() derive values from the config

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	configDir := filepath.Join(dir, DirName)
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, name), []byte(content), 0644))
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, "rubocop", cfg.Analyzer.Command)
	assert.Equal(t, 5*time.Minute, cfg.Analyzer.Timeout)
	assert.Equal(t, ".rubocop_todo.yml", cfg.Analyzer.TodoFile)
	assert.Equal(t, []string{"**/*.erb"}, cfg.Paths.Include)
	assert.Contains(t, cfg.Paths.Ignore, "node_modules/**")
	assert.True(t, cfg.Extraction.TrimTrailingSpace)
	assert.False(t, cfg.Extraction.DisableRbExtension)
	assert.Positive(t, cfg.Extraction.Workers)
	assert.True(t, cfg.State.Enabled)
	assert.Equal(t, ".ruumba/state.db", cfg.State.Location)
	assert.Equal(t, "warn", cfg.Log.Level)

	assert.NoError(t, Validate(cfg))
}

func TestLoad_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()

	require.NoError(t, err)
	defaults := Default()
	assert.Equal(t, defaults.Analyzer.Command, cfg.Analyzer.Command)
	assert.Equal(t, defaults.Analyzer.Timeout, cfg.Analyzer.Timeout)
	assert.Equal(t, defaults.Paths, cfg.Paths)
	assert.Equal(t, defaults.Extraction, cfg.Extraction)
	assert.Equal(t, defaults.State, cfg.State)
	assert.Equal(t, defaults.Log, cfg.Log)
}

func TestLoad_LoadsFromConfigYml(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", `
analyzer:
  command: bundle-rubocop
  arguments: ["--force-exclusion"]
  config_file: .rubocop-erb.yml
  timeout: 30s

paths:
  include:
    - "app/views/**/*.erb"
  ignore:
    - "app/views/legacy/**"

extraction:
  tmp_folder: tmp/ruumba
  disable_rb_extension: true
  trim_trailing_space: false
  workers: 2
`)

	cfg, err := NewLoader(dir).Load()

	require.NoError(t, err)
	assert.Equal(t, "bundle-rubocop", cfg.Analyzer.Command)
	assert.Equal(t, []string{"--force-exclusion"}, cfg.Analyzer.Arguments)
	assert.Equal(t, ".rubocop-erb.yml", cfg.Analyzer.ConfigFile)
	assert.Equal(t, 30*time.Second, cfg.Analyzer.Timeout)
	assert.Equal(t, []string{"app/views/**/*.erb"}, cfg.Paths.Include)
	assert.Equal(t, []string{"app/views/legacy/**"}, cfg.Paths.Ignore)
	assert.Equal(t, "tmp/ruumba", cfg.Extraction.TmpFolder)
	assert.True(t, cfg.Extraction.DisableRbExtension)
	assert.False(t, cfg.Extraction.TrimTrailingSpace)
	assert.Equal(t, 2, cfg.Extraction.Workers)
}

func TestLoad_LoadsFromConfigYaml(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
log:
  level: debug
  json: true
`)

	cfg, err := NewLoader(dir).Load()

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestLoad_MergesConfigWithDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", `
analyzer:
  command: /usr/local/bin/rubocop
`)

	cfg, err := NewLoader(dir).Load()

	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/rubocop", cfg.Analyzer.Command)

	defaults := Default()
	assert.Equal(t, defaults.Analyzer.Timeout, cfg.Analyzer.Timeout)
	assert.Equal(t, defaults.Paths, cfg.Paths)
	assert.Equal(t, defaults.Extraction, cfg.Extraction)
	assert.Equal(t, defaults.State, cfg.State)
}

func TestLoad_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", `
analyzer:
  command: from-file
extraction:
  workers: 3
`)

	t.Setenv("RUUMBA_ANALYZER_COMMAND", "from-env")
	t.Setenv("RUUMBA_EXTRACTION_WORKERS", "5")

	cfg, err := NewLoader(dir).Load()

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Analyzer.Command)
	assert.Equal(t, 5, cfg.Extraction.Workers)
}

func TestLoad_EnvironmentVariablesOverrideDefaults(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	t.Setenv("RUUMBA_STATE_ENABLED", "false")
	t.Setenv("RUUMBA_ANALYZER_TIMEOUT", "90s")
	t.Setenv("RUUMBA_LOG_LEVEL", "info")

	cfg, err := NewLoader(t.TempDir()).Load()

	require.NoError(t, err)
	assert.False(t, cfg.State.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Analyzer.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ReturnsErrorForMalformedYaml(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "analyzer:\n  command: [unclosed\n")

	_, err := NewLoader(dir).Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_ReturnsErrorForInvalidValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", `
extraction:
  workers: 0
`)

	_, err := NewLoader(dir).Load()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidWorkers)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate_RejectsInvalidFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"empty command", func(c *Config) { c.Analyzer.Command = "  " }, ErrEmptyCommand},
		{"negative timeout", func(c *Config) { c.Analyzer.Timeout = -time.Second }, ErrInvalidTimeout},
		{"no include patterns", func(c *Config) { c.Paths.Include = nil }, ErrEmptyInclude},
		{"bad include glob", func(c *Config) { c.Paths.Include = []string{"[a-"} }, ErrInvalidPattern},
		{"bad ignore glob", func(c *Config) { c.Paths.Ignore = []string{"views/["} }, ErrInvalidPattern},
		{"zero workers", func(c *Config) { c.Extraction.Workers = 0 }, ErrInvalidWorkers},
		{"negative cache", func(c *Config) { c.Extraction.CacheSize = -1 }, ErrInvalidCacheSize},
		{"enabled state without location", func(c *Config) { c.State.Location = "" }, ErrEmptyStateLocation},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)

			assert.ErrorIs(t, Validate(cfg), tt.want)
		})
	}
}

func TestValidate_AllowsDisabledStateWithoutLocation(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.State.Enabled = false
	cfg.State.Location = ""

	assert.NoError(t, Validate(cfg))
}

func TestValidate_ReturnsMultipleErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Analyzer.Command = ""
	cfg.Extraction.Workers = -1

	err := Validate(cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyCommand)
	assert.ErrorIs(t, err, ErrInvalidWorkers)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestConfig_Extensions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Paths.Include = []string{"**/*.erb", "app/**/*.rhtml", "views/*.erb", "Gemfile"}

	assert.Equal(t, []string{".erb", ".rhtml"}, cfg.Extensions())
}

func TestConfig_StatePath(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, filepath.Join("/project", ".ruumba", "state.db"), cfg.StatePath("/project"))

	cfg.State.Location = "/var/lib/ruumba.db"
	assert.Equal(t, "/var/lib/ruumba.db", cfg.StatePath("/project"))
}
