package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the project configuration file looked up in the project root
const FileName = "uimacro.json"

// Config represents the uimacro.json configuration
type Config struct {
	// Directory holding component files
	InputDir string `json:"inputDir,omitempty"`

	// Directory generated macros are written to
	OutputDir string `json:"outputDir,omitempty"`

	// Target templating language
	Backend string `json:"backend,omitempty"`

	// Component file extensions; empty accepts every file
	Extensions []string `json:"extensions,omitempty"`

	// Replaces the input extension on output files when set
	OutputExt string `json:"outputExt,omitempty"`

	// Fail on rules whose target matches nothing
	Strict bool `json:"strict,omitempty"`

	// Parallel compiles; 0 uses the number of CPUs
	Workers int `json:"workers,omitempty"`

	Cache *CacheConfig `json:"cache,omitempty"`

	Dev *DevConfig `json:"dev,omitempty"`
}

// CacheConfig contains compile cache configuration
type CacheConfig struct {
	Enabled bool `json:"enabled"`

	// Cache directory, relative to the project root
	Dir string `json:"dir,omitempty"`

	// Maximum cache size in bytes
	MaxSize int64 `json:"maxSize,omitempty"`
}

// DevConfig contains development server configuration
type DevConfig struct {
	Host string `json:"host,omitempty"`

	Port int `json:"port,omitempty"`

	// Quiet period before a burst of file events triggers a rebuild
	DebounceMs int `json:"debounceMs,omitempty"`
}

// Load loads configuration from uimacro.json in projectPath
func Load(projectPath string) (*Config, error) {
	configPath := filepath.Join(projectPath, FileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return &config, nil
}

// Save saves configuration to uimacro.json
func Save(config *Config, projectPath string) error {
	configPath := filepath.Join(projectPath, FileName)

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, append(data, '\n'), 0644)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		InputDir:   "components",
		OutputDir:  "macros",
		Backend:    "jinja",
		Extensions: []string{".html"},
		Cache: &CacheConfig{
			Enabled: true,
			Dir:     ".uimacro/cache",
			MaxSize: 64 << 20,
		},
		Dev: &DevConfig{
			Host:       "localhost",
			Port:       7331,
			DebounceMs: 100,
		},
	}
}

// applyDefaults applies default values to missing configuration
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.InputDir == "" {
		config.InputDir = defaults.InputDir
	}
	if config.OutputDir == "" {
		config.OutputDir = defaults.OutputDir
	}
	if config.Backend == "" {
		config.Backend = defaults.Backend
	}

	if config.Cache == nil {
		config.Cache = defaults.Cache
	} else {
		if config.Cache.Dir == "" {
			config.Cache.Dir = defaults.Cache.Dir
		}
		if config.Cache.MaxSize == 0 {
			config.Cache.MaxSize = defaults.Cache.MaxSize
		}
	}

	if config.Dev == nil {
		config.Dev = defaults.Dev
	} else {
		if config.Dev.Host == "" {
			config.Dev.Host = defaults.Dev.Host
		}
		if config.Dev.Port == 0 {
			config.Dev.Port = defaults.Dev.Port
		}
		if config.Dev.DebounceMs == 0 {
			config.Dev.DebounceMs = defaults.Dev.DebounceMs
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	if c.OutputExt != "" && !strings.HasPrefix(c.OutputExt, ".") {
		return fmt.Errorf("outputExt %q must start with a dot", c.OutputExt)
	}
	if c.Dev != nil {
		if c.Dev.Port < 0 || c.Dev.Port > 65535 {
			return fmt.Errorf("dev.port %d out of range", c.Dev.Port)
		}
		if c.Dev.DebounceMs < 0 {
			return fmt.Errorf("dev.debounceMs must not be negative")
		}
	}
	return nil
}

// Addr returns the dev server listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Dev.Host, c.Dev.Port)
}
