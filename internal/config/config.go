// Package config provides configuration loading for ruumba.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Command-line flags (applied by the cli package)
//  2. Environment variables (RUUMBA_*)
//  3. Project config (.ruumba/config.yml)
//  4. Built-in defaults
package config

import "time"

// Config represents the complete ruumba configuration.
// It can be loaded from .ruumba/config.yml with environment variable overrides.
type Config struct {
	Analyzer   AnalyzerConfig   `yaml:"analyzer" mapstructure:"analyzer"`
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	State      StateConfig      `yaml:"state" mapstructure:"state"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnalyzerConfig configures the external Ruby analyzer.
type AnalyzerConfig struct {
	Command    string        `yaml:"command" mapstructure:"command"`         // executable name or path, e.g. "rubocop"
	Arguments  []string      `yaml:"arguments" mapstructure:"arguments"`     // always passed before user arguments
	ConfigFile string        `yaml:"config_file" mapstructure:"config_file"` // passed as --config when set
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`         // zero disables the timeout
	TodoFile   string        `yaml:"todo_file" mapstructure:"todo_file"`     // copied back after --auto-gen-config runs
}

// PathsConfig defines which templates to analyze and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for templates
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
}

// ExtractionConfig controls how projections are produced and where they go.
type ExtractionConfig struct {
	TmpFolder          string `yaml:"tmp_folder" mapstructure:"tmp_folder"`                     // keep projections here instead of a throwaway directory
	DisableRbExtension bool   `yaml:"disable_rb_extension" mapstructure:"disable_rb_extension"` // write a.html.erb instead of a.html.erb.rb
	TrimTrailingSpace  bool   `yaml:"trim_trailing_space" mapstructure:"trim_trailing_space"`   // strip blanked line tails from direct projections
	Workers            int    `yaml:"workers" mapstructure:"workers"`                           // parallel extraction workers
	CacheSize          int    `yaml:"cache_size" mapstructure:"cache_size"`                     // projection cache capacity, in bytes of projection text
}

// StateConfig configures the run state database used by --changed.
type StateConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Location string `yaml:"location" mapstructure:"location"` // relative to the project root unless absolute
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Analyzer: AnalyzerConfig{
			Command:   "rubocop",
			Arguments: []string{},
			Timeout:   5 * time.Minute,
			TodoFile:  ".rubocop_todo.yml",
		},
		Paths: PathsConfig{
			Include: []string{
				"**/*.erb",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"tmp/**",
				".ruumba/**",
			},
		},
		Extraction: ExtractionConfig{
			TmpFolder:          "", // Empty means a fresh temporary directory per run
			DisableRbExtension: false,
			TrimTrailingSpace:  true,
			Workers:            8,
			CacheSize:          64 << 20,
		},
		State: StateConfig{
			Enabled:  true,
			Location: ".ruumba/state.db",
		},
		Log: LogConfig{
			Level: "warn",
			JSON:  false,
		},
	}
}

// Extensions returns the file extensions named by the include patterns,
// with leading dot (e.g., []string{".erb"}).
func (c *Config) Extensions() []string {
	seen := make(map[string]bool)
	extensions := make([]string, 0, len(c.Paths.Include))

	for _, pattern := range c.Paths.Include {
		if ext := extractExtension(pattern); ext != "" && !seen[ext] {
			seen[ext] = true
			extensions = append(extensions, ext)
		}
	}

	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if pattern doesn't match a simple extension pattern.
// Examples: "**/*.erb" -> ".erb", "*.rhtml" -> ".rhtml"
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
