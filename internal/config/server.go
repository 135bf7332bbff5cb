package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PROPS_LSP_LOG_LEVEL.
const EnvPrefix = "PROPS_LSP"

type ServerConfig struct {
	MetadataPaths []string `mapstructure:"metadata_paths"`
	LogLevel      string   `mapstructure:"log_level"`
	// Cost budget of the parsed document cache, in bytes of source text.
	DocumentCacheBytes int64 `mapstructure:"document_cache_bytes"`
	// Quiet period after the last edit before diagnostics are recomputed.
	ReconcileDebounceMs int `mapstructure:"reconcile_debounce_ms"`
	// Directory for cached parsed descriptors. Empty selects the user cache dir.
	SnapshotCacheDir string           `mapstructure:"snapshot_cache_dir"`
	Completion       CompletionConfig `mapstructure:"completion"`
}

// CompletionConfig holds completion settings.
type CompletionConfig struct {
	// Maximum proposals returned per request; 0 means unlimited.
	MaxResults int `mapstructure:"max_results"`
}

// ReconcileDebounce returns the debounce interval as a duration.
func (c *ServerConfig) ReconcileDebounce() time.Duration {
	return time.Duration(c.ReconcileDebounceMs) * time.Millisecond
}

func LoadServerConfig(configPath string) (*ServerConfig, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("metadata_paths", []string{"./metadata"})
	v.SetDefault("log_level", "info")
	v.SetDefault("document_cache_bytes", 64<<20)
	v.SetDefault("reconcile_debounce_ms", 250)
	v.SetDefault("snapshot_cache_dir", "")
	v.SetDefault("completion.max_results", 200)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config '%s': %w", configPath, err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *ServerConfig) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &InvalidSettingError{Key: "log_level", Value: c.LogLevel}
	}
	if c.DocumentCacheBytes <= 0 {
		return &InvalidSettingError{Key: "document_cache_bytes", Value: fmt.Sprint(c.DocumentCacheBytes)}
	}
	if c.ReconcileDebounceMs < 0 {
		return &InvalidSettingError{Key: "reconcile_debounce_ms", Value: fmt.Sprint(c.ReconcileDebounceMs)}
	}
	if c.Completion.MaxResults < 0 {
		return &InvalidSettingError{Key: "completion.max_results", Value: fmt.Sprint(c.Completion.MaxResults)}
	}
	return nil
}

// InvalidSettingError reports a configuration value out of range.
type InvalidSettingError struct {
	Key   string
	Value string
}

func (e *InvalidSettingError) Error() string {
	return fmt.Sprintf("invalid value %q for setting '%s'", e.Value, e.Key)
}
