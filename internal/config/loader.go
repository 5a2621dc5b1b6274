package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
)

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// sections are the nested config keys. Env variables and flags whose
// name starts with one of these are split into section.key.
var sections = []string{"host", "cache", "history"}

// flagKeys maps flag names that differ from their config key.
var flagKeys = map[string]string{
	"database": "host.database",
	"host":     "host.type",
	"history":  "history.path",
}

// Defaults returns the default configuration values keyed by config path.
func Defaults() map[string]any {
	return map[string]any{
		"debug":                  false,
		"log_level":              DefaultLogLevel,
		"log_format":             DefaultLogFormat,
		"strict":                 false,
		"preserve_comments":      false,
		"max_input_length":       core.MaxInputLength,
		"max_processing_time_ms": int(core.MaxProcessingTime.Milliseconds()),
		"mode":                   DefaultMode,
		"output":                 DefaultOutput,
		"host.type":              DefaultHostType,
		"host.database":          "",
		"cache.size":             DefaultCacheSize,
		"cache.ttl_seconds":      DefaultCacheTTL,
		"history.path":           DefaultHistory,
	}
}

// configExistsIn returns the config file in dir, or empty.
func configExistsIn(dir string) string {
	for _, name := range []string{FileName, FileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a config file.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// findConfigFile resolves the file to load.
// Priority: explicit path > nearest leapdplyr.yaml upward from the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findConfigUpward(cwd)
}

// envKey maps DPLYR_HOST_DATABASE to host.database and DPLYR_LOG_LEVEL to log_level.
func envKey(s string) string {
	return sectionKey(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_")
}

// sectionKey splits the first sep of a known section prefix into a dot.
func sectionKey(key, sep string) string {
	for _, sec := range sections {
		if strings.HasPrefix(key, sec+sep) {
			return sec + "." + key[len(sec)+len(sep):]
		}
	}
	return key
}

// Load reads configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment variables (DPLYR_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			if key, ok := flagKeys[f.Name]; ok {
				return key, posflag.FlagVal(flags, f)
			}
			return sectionKey(strings.ReplaceAll(f.Name, "-", "_"), "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	cfg.Host.Type = strings.ToLower(cfg.Host.Type)
	if cfg.Host.Type == "postgres" && cfg.Host.Port == 0 {
		cfg.Host.Port = DefaultPostgresPt
	}
	expandHostEnvVars(&cfg.Host)

	// Relative paths in a config file are relative to the file, not the working directory.
	if used != "" && (flags == nil || !flags.Changed("history")) {
		cfg.History.Path = resolvePathRelativeTo(cfg.History.Path, filepath.Dir(used))
	}

	return &cfg, nil
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, absolute or an in-memory name.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment values.
// Unknown variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandHostEnvVars expands environment variables in sensitive host fields.
func expandHostEnvVars(h *HostConfig) {
	h.Password = expandEnvVars(h.Password)
	h.User = expandEnvVars(h.User)
	h.Host = expandEnvVars(h.Host)
	h.Database = expandEnvVars(h.Database)
}
