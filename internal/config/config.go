// Package config defines the runtime configuration surface: logging,
// execution limits, workflow and recovery policy locations.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Execution ExecutionConfig `mapstructure:"execution" yaml:"execution"`
	Workflows WorkflowsConfig `mapstructure:"workflows" yaml:"workflows"`
	Recovery  RecoveryConfig  `mapstructure:"recovery" yaml:"recovery"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ExecutionConfig contains execution limits applied to every tool call.
type ExecutionConfig struct {
	// ToolTimeout is the ceiling on a single tool execution.
	ToolTimeout time.Duration `mapstructure:"tool_timeout" yaml:"tool_timeout"`

	// MaxQualityIterations bounds quality loop re-execution.
	MaxQualityIterations int `mapstructure:"max_quality_iterations" yaml:"max_quality_iterations"`
}

// WorkflowsConfig locates user-provided workflow definitions.
type WorkflowsConfig struct {
	// Dir is scanned for *.yaml workflow definitions. Definitions there
	// shadow builtins of the same name.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// RecoveryConfig locates the error recovery policy table.
type RecoveryConfig struct {
	// PolicyFile is merged over the builtin policies when set.
	PolicyFile string `mapstructure:"policy_file" yaml:"policy_file"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Execution: ExecutionConfig{
			ToolTimeout:          2 * time.Minute,
			MaxQualityIterations: 3,
		},
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be text or json; got %q", c.Logging.Format)
	}
	if c.Execution.ToolTimeout <= 0 {
		return fmt.Errorf("execution.tool_timeout must be positive; got %s", c.Execution.ToolTimeout)
	}
	if c.Execution.MaxQualityIterations < 1 {
		return fmt.Errorf("execution.max_quality_iterations must be at least 1; got %d", c.Execution.MaxQualityIterations)
	}
	return nil
}
