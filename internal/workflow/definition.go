package workflow

import (
	"fmt"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/dag"
)

// ArgType is the declared type of a workflow step argument.
type ArgType string

const (
	ArgTypeString ArgType = "string"
	ArgTypeInt    ArgType = "int"
	ArgTypeFloat  ArgType = "float"
	ArgTypeBool   ArgType = "bool"
)

// ArgSpec declares the schema for one step argument: its type, numeric
// bounds, allowed values, and default.
type ArgSpec struct {
	Key     string   `yaml:"key" json:"key"`
	Type    ArgType  `yaml:"type" json:"type"`
	Min     *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max     *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Enum    []string `yaml:"enum,omitempty" json:"enum,omitempty"`
	Default any      `yaml:"default,omitempty" json:"default,omitempty"`
}

// StepDefinition is one templated step inside a workflow definition.
type StepDefinition struct {
	ID                   string         `yaml:"id" json:"id"`
	Tool                 string         `yaml:"tool" json:"tool"`
	DefaultArgs          map[string]any `yaml:"default_args,omitempty" json:"default_args,omitempty"`
	Schema               []ArgSpec      `yaml:"schema,omitempty" json:"schema,omitempty"`
	Op                   dag.OpKind     `yaml:"op,omitempty" json:"op,omitempty"`
	DependsOn            []string       `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	ResourceLocks        []string       `yaml:"resource_locks,omitempty" json:"resource_locks,omitempty"`
	RequiresConfirmation bool           `yaml:"requires_confirmation,omitempty" json:"requires_confirmation,omitempty"`
}

// SpecFor returns the schema entry for an argument key, if declared.
func (sd StepDefinition) SpecFor(key string) (ArgSpec, bool) {
	for _, spec := range sd.Schema {
		if spec.Key == key {
			return spec, true
		}
	}
	return ArgSpec{}, false
}

// Definition is a reusable named template expanding to a concrete step list.
type Definition struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []StepDefinition `yaml:"steps" json:"steps"`
}

// Validate checks structural integrity of the definition.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("workflow definition must have a name")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("workflow %q must have at least one step", d.Name)
	}

	seen := make(map[string]bool, len(d.Steps))
	for _, step := range d.Steps {
		if step.ID == "" {
			return fmt.Errorf("workflow %q has a step without an id", d.Name)
		}
		if step.Tool == "" {
			return fmt.Errorf("workflow %q step %q has no tool", d.Name, step.ID)
		}
		if seen[step.ID] {
			return fmt.Errorf("workflow %q has duplicate step id %q", d.Name, step.ID)
		}
		seen[step.ID] = true
	}
	return nil
}

// Override targets one step of a definition with a partial argument map.
// Steps are addressed by id, or by zero-based position when Position is set.
type Override struct {
	StepID   string         `json:"step_id,omitempty"`
	Position *int           `json:"position,omitempty"`
	Args     map[string]any `json:"args"`
}
