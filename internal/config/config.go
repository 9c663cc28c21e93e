// Package config loads tool configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/codexkg/codex/internal/kv"
)

// Config is the tool's YAML configuration.
type Config struct {
	// Engine is the graph engine address.
	Engine EngineConfig `yaml:"engine"`

	// Cache configures the local schema cache.
	Cache CacheConfig `yaml:"cache"`
}

// EngineConfig locates the graph engine.
type EngineConfig struct {
	URI string `yaml:"uri"`
}

// CacheConfig selects the schema cache backend.
type CacheConfig struct {
	// Backend is one of sqlite, badger, memory.
	Backend string `yaml:"backend"`

	// Path is the store location for the file-backed backends.
	Path string `yaml:"path"`
}

// DefaultEngineURI is the engine address used when none is configured.
const DefaultEngineURI = "localhost:48555"

// Default returns the configuration used when no file is present: the
// default engine address and an in-process sqlite cache.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{URI: DefaultEngineURI},
		Cache:  CacheConfig{Backend: kv.BackendSQLite, Path: "codex.db"},
	}
}

// Load reads a YAML config file, filling unset fields from Default.
// A missing file is not an error; Default is returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enum fields and required paths.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case kv.BackendSQLite, kv.BackendBadger, kv.BackendMemory:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend != kv.BackendMemory && c.Cache.Path == "" {
		return fmt.Errorf("cache backend %q needs a path", c.Cache.Backend)
	}
	if c.Engine.URI == "" {
		return fmt.Errorf("engine uri must not be empty")
	}
	return nil
}

// OpenCache opens the configured schema cache store.
func (c *Config) OpenCache() (kv.Store, error) {
	return kv.Open(c.Cache.Backend, c.Cache.Path)
}
