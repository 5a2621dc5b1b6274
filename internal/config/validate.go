package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdplyr/internal/logging"
	"github.com/leapstack-labs/leapdplyr/pkg/accept"
	"github.com/leapstack-labs/leapdplyr/pkg/host"
)

// Output formats accepted by the output setting.
var outputFormats = []string{"table", "json", "csv", "markdown", "md"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch logging.Format(c.LogFormat) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q (expected text or json)", c.LogFormat)
	}
	if err := c.Options().Validate(); err != nil {
		return err
	}
	if c.MaxProcessingTimeMS < 0 {
		return fmt.Errorf("max_processing_time_ms cannot be negative")
	}
	mode, ok := accept.ParseMode(c.Mode)
	if !ok {
		return fmt.Errorf("unknown mode %q (expected chain)", c.Mode)
	}
	if mode == accept.ModeKeyword {
		return accept.ErrKeywordMode
	}
	if !isOutputFormat(c.Output) {
		return fmt.Errorf("unknown output format %q (expected %s)", c.Output, strings.Join(outputFormats, ", "))
	}
	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive")
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttl_seconds cannot be negative")
	}
	return c.ValidateHost()
}

// ValidateHost checks the host section against the registered hosts.
// Host packages register themselves on import, so callers must import them first.
func (c *Config) ValidateHost() error {
	t := strings.ToLower(c.Host.Type)
	if t == "" {
		return fmt.Errorf("host type is required")
	}
	if !host.IsRegistered(t) {
		return &host.UnknownHostError{Type: c.Host.Type, Available: host.List()}
	}
	if c.Host.Port < 0 || c.Host.Port > 65535 {
		return fmt.Errorf("host port %d out of range", c.Host.Port)
	}
	return nil
}

func isOutputFormat(s string) bool {
	for _, f := range outputFormats {
		if s == f {
			return true
		}
	}
	return false
}
