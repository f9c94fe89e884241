// Package config loads the collector configuration with layered
// precedence: built-in defaults, then an optional YAML file, then
// STROBOSCOPE_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "STROBOSCOPE_"

// Config is the collector configuration.
type Config struct {
	// Pipeline names the scheduling pipeline to compile with.
	Pipeline string `koanf:"pipeline"`
	// MaxBW caps demand estimates, in Mbps.
	MaxBW float64 `koanf:"max_bw"`
	// Retention is how many campaigns bandwidth samples stay relevant.
	Retention int `koanf:"retention"`

	Backend BackendConfig `koanf:"backend"`
	Logging LoggingConfig `koanf:"logging"`
}

// BackendConfig selects and parameterizes the rule backend.
type BackendConfig struct {
	// Profile is the router profile: "linux" or "ios".
	Profile string `koanf:"profile"`
	// User and KeyPath authenticate the SSH sessions.
	User    string `koanf:"user"`
	KeyPath string `koanf:"key_path"`
	// CollectorAddress receives the mirrored traffic.
	CollectorAddress string `koanf:"collector_address"`
	// EncapAddress terminates the GRE tunnels.
	EncapAddress string `koanf:"encap_address"`
	// DialTimeout bounds each SSH connection attempt.
	DialTimeout time.Duration `koanf:"dial_timeout"`
	// DryRun replaces the SSH backend with a logging one.
	DryRun bool `koanf:"dry_run"`
}

// LoggingConfig parameterizes the zap logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// File receives the log instead of stderr when set.
	File string `koanf:"file"`
	// MaxSizeMB, MaxBackups and MaxAgeDays drive log rotation.
	MaxSizeMB  int `koanf:"max_size_mb"`
	MaxBackups int `koanf:"max_backups"`
	MaxAgeDays int `koanf:"max_age_days"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"pipeline":             "approximation",
		"max_bw":               50,
		"retention":            10,
		"backend.profile":      "linux",
		"backend.user":         "root",
		"backend.dial_timeout": 10 * time.Second,
		"backend.dry_run":      false,
		"logging.level":        "info",
		"logging.max_size_mb":  50,
		"logging.max_backups":  3,
		"logging.max_age_days": 14,
	}
}

// Load builds the configuration. The file path may be empty, in which
// case only defaults and the environment apply; a configured path that
// does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	// STROBOSCOPE_BACKEND_KEY_PATH=... becomes backend.key_path.
	if err := k.Load(env.Provider(envPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envToKey maps an environment variable to its koanf key: the section
// prefix becomes a path segment, the remainder keeps its underscores
// (top-level keys such as max_bw contain some).
func envToKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range []string{"backend", "logging"} {
		if strings.HasPrefix(s, section+"_") {
			return section + "." + strings.TrimPrefix(s, section+"_")
		}
	}
	return s
}

func (c *Config) validate() error {
	if c.MaxBW <= 0 {
		return fmt.Errorf("config: max_bw must be positive, got %g", c.MaxBW)
	}
	if c.Retention <= 0 {
		return fmt.Errorf("config: retention must be positive, got %d", c.Retention)
	}
	switch c.Backend.Profile {
	case "linux", "ios":
	default:
		return fmt.Errorf("config: unknown backend profile %q", c.Backend.Profile)
	}
	return nil
}
