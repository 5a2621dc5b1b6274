// Package config loads leapdplyr configuration from defaults, a YAML file,
// DPLYR_ environment variables and command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
)

// Config holds all configuration options.
type Config struct {
	Debug               bool          `koanf:"debug"`
	LogLevel            string        `koanf:"log_level"`
	LogFormat           string        `koanf:"log_format"`
	Strict              bool          `koanf:"strict"`
	PreserveComments    bool          `koanf:"preserve_comments"`
	MaxInputLength      int           `koanf:"max_input_length"`
	MaxProcessingTimeMS int           `koanf:"max_processing_time_ms"`
	Mode                string        `koanf:"mode"`
	Output              string        `koanf:"output"`
	Host                HostConfig    `koanf:"host"`
	Cache               CacheConfig   `koanf:"cache"`
	History             HistoryConfig `koanf:"history"`

	// File is the config file that was loaded, or empty.
	File string `koanf:"-"`
}

// HostConfig selects and connects the host engine.
type HostConfig struct {
	Type     string            `koanf:"type"`
	Database string            `koanf:"database"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// CacheConfig sizes the per-session transpile cache.
type CacheConfig struct {
	Size       int `koanf:"size"`
	TTLSeconds int `koanf:"ttl_seconds"`
}

// HistoryConfig locates the history database. An empty path disables it.
type HistoryConfig struct {
	Path string `koanf:"path"`
}

// Default configuration values.
const (
	FileName          = "leapdplyr.yaml"
	FileNameAlt       = "leapdplyr.yml"
	EnvPrefix         = "DPLYR_"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultMode       = "chain"
	DefaultOutput     = "table"
	DefaultHostType   = "duckdb"
	DefaultHistory    = ".leapdplyr/history.db"
	DefaultCacheSize  = 100
	DefaultCacheTTL   = 300
	DefaultPostgresPt = 5432
)

// Options converts the transpile settings into core.Options.
func (c *Config) Options() core.Options {
	return core.Options{
		StrictMode:        c.Strict,
		PreserveComments:  c.PreserveComments,
		Debug:             c.Debug,
		MaxInputLength:    c.MaxInputLength,
		MaxProcessingTime: time.Duration(c.MaxProcessingTimeMS) * time.Millisecond,
	}
}

// CacheTTL returns the cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// HostConfig converts the host section into the shape host.New expects.
// File-backed engines receive Database as Path.
func (c *Config) HostConfig() core.HostConfig {
	h := c.Host
	return core.HostConfig{
		Type:     h.Type,
		Path:     h.Database,
		Host:     h.Host,
		Port:     h.Port,
		Database: h.Database,
		Username: h.User,
		Password: h.Password,
		Options:  h.Options,
		Params:   h.Params,
	}
}
