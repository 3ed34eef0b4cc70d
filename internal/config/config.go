// Package config loads the graph store configuration from file, environment
// and defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete graph store configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Redis   RedisConfig   `mapstructure:"redis"`
	File    FileConfig    `mapstructure:"file"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `mapstructure:"addr"`
}

// StoreConfig selects the storage backend.
type StoreConfig struct {
	// Backend is "memory", "redis" or "file".
	Backend string `mapstructure:"backend"`
}

// RedisConfig applies when the redis backend is selected.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// FileConfig applies when the file backend is selected.
type FileConfig struct {
	// Path is the YAML snapshot file location.
	Path string `mapstructure:"path"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// Load reads configuration from the given file path (optional), environment
// variables prefixed GRAPHSTORE_, and built-in defaults, in that order of
// precedence from highest to lowest: env, file, defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("store.backend", "memory")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "graphstore:")
	v.SetDefault("file.path", ".graphstore/graph.yaml")
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("GRAPHSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "redis", "file":
	default:
		return fmt.Errorf("invalid store backend %q (want memory, redis or file)", c.Store.Backend)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	return nil
}
