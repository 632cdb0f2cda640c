package config

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// Load reads configuration from the specified YAML file.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to read config file", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to unmarshal config", err)
	}

	ApplyEnvironmentOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, types.WrapError(types.CONFIG_VALIDATION_FAILED, "configuration validation failed", err)
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration from path, falling back to defaults
// when the file does not exist. Environment overrides apply either way.
func LoadWithDefaults(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := DefaultConfig()
	ApplyEnvironmentOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, types.WrapError(types.CONFIG_VALIDATION_FAILED, "configuration validation failed", err)
	}
	return cfg, nil
}

// ApplyEnvironmentOverrides overlays HYPERCUT_* environment variables onto
// the configuration. Unparseable values are ignored in favor of the file or
// default value.
func ApplyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("HYPERCUT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HYPERCUT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("HYPERCUT_TOOL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Execution.ToolTimeout = d
		}
	}
	if v := os.Getenv("HYPERCUT_MAX_QUALITY_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Execution.MaxQualityIterations = n
		}
	}
	if v := os.Getenv("HYPERCUT_WORKFLOWS_DIR"); v != "" {
		cfg.Workflows.Dir = v
	}
	if v := os.Getenv("HYPERCUT_RECOVERY_POLICY_FILE"); v != "" {
		cfg.Recovery.PolicyFile = v
	}
}
