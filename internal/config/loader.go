package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DirName is the per-project directory holding config.yml and the state database.
const DirName = ".ruumba"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (RUUMBA_*)
// 2. Config file (.ruumba/config.yml or .ruumba/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, DirName))

	// RUUMBA_ANALYZER_COMMAND overrides analyzer.command, and so on.
	v.SetEnvPrefix("RUUMBA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// AutomaticEnv only sees keys viper already knows; bind the scalar ones.
	for _, key := range []string{
		"analyzer.command",
		"analyzer.config_file",
		"analyzer.timeout",
		"analyzer.todo_file",
		"extraction.tmp_folder",
		"extraction.disable_rb_extension",
		"extraction.trim_trailing_space",
		"extraction.workers",
		"extraction.cache_size",
		"state.enabled",
		"state.location",
		"log.level",
		"log.json",
	} {
		_ = v.BindEnv(key)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("analyzer.command", defaults.Analyzer.Command)
	v.SetDefault("analyzer.arguments", defaults.Analyzer.Arguments)
	v.SetDefault("analyzer.config_file", defaults.Analyzer.ConfigFile)
	v.SetDefault("analyzer.timeout", defaults.Analyzer.Timeout)
	v.SetDefault("analyzer.todo_file", defaults.Analyzer.TodoFile)

	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("extraction.tmp_folder", defaults.Extraction.TmpFolder)
	v.SetDefault("extraction.disable_rb_extension", defaults.Extraction.DisableRbExtension)
	v.SetDefault("extraction.trim_trailing_space", defaults.Extraction.TrimTrailingSpace)
	v.SetDefault("extraction.workers", defaults.Extraction.Workers)
	v.SetDefault("extraction.cache_size", defaults.Extraction.CacheSize)

	v.SetDefault("state.enabled", defaults.State.Enabled)
	v.SetDefault("state.location", defaults.State.Location)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.json", defaults.Log.JSON)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}

// StatePath resolves the state database location against rootDir.
func (c *Config) StatePath(rootDir string) string {
	if filepath.IsAbs(c.State.Location) {
		return c.State.Location
	}
	return filepath.Join(rootDir, c.State.Location)
}
