package workflow

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/dag"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// Resolver expands named workflow definitions into concrete, schema-validated
// step lists honoring caller overrides.
type Resolver struct {
	mu          sync.RWMutex
	definitions map[string]Definition
}

// NewResolver creates a Resolver seeded with the given definitions.
func NewResolver(definitions ...Definition) (*Resolver, error) {
	r := &Resolver{definitions: make(map[string]Definition, len(definitions))}
	for _, def := range definitions {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a definition, replacing any previous one with the same name.
func (r *Resolver) Register(def Definition) error {
	if err := def.Validate(); err != nil {
		return types.WrapError(types.CONFIG_VALIDATION_FAILED, "invalid workflow definition", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.Name] = def
	return nil
}

// Get returns the definition for a name.
func (r *Resolver) Get(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[name]
	if !ok {
		return Definition{}, types.NewError(types.WORKFLOW_NOT_FOUND,
			fmt.Sprintf("unknown workflow %q", name))
	}
	return def, nil
}

// Names returns the registered workflow names, sorted.
func (r *Resolver) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve expands the named template into a concrete step list. Overrides
// merge onto template defaults per step; every touched value is validated
// against that step's schema entry. Any validation failure aborts resolution
// entirely, with no partial application. An unknown workflow name is a
// distinct error class from a malformed override.
func (r *Resolver) Resolve(name string, overrides []Override) ([]dag.Step, error) {
	def, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	// Merge overrides onto per-step argument maps before any validation,
	// so a later invalid override leaves nothing applied.
	merged := make([]map[string]any, len(def.Steps))
	for i, step := range def.Steps {
		args := make(map[string]any, len(step.DefaultArgs))
		for k, v := range step.DefaultArgs {
			args[k] = v
		}
		merged[i] = args
	}

	for _, override := range overrides {
		idx, err := r.targetIndex(def, override)
		if err != nil {
			return nil, err
		}
		step := def.Steps[idx]

		for key, value := range override.Args {
			spec, ok := step.SpecFor(key)
			if !ok {
				return nil, types.NewError(types.WORKFLOW_OVERRIDE_INVALID,
					fmt.Sprintf("workflow %q step %q has no argument %q", name, step.ID, key))
			}
			if err := validateArg(spec, value); err != nil {
				return nil, types.WrapError(types.WORKFLOW_OVERRIDE_INVALID,
					fmt.Sprintf("workflow %q step %q", name, step.ID), err)
			}
			merged[idx][key] = value
		}
	}

	steps := make([]dag.Step, len(def.Steps))
	for i, stepDef := range def.Steps {
		steps[i] = dag.Step{
			ID:                   stepDef.ID,
			Tool:                 stepDef.Tool,
			Args:                 merged[i],
			Op:                   stepDef.Op,
			DependsOn:            stepDef.DependsOn,
			ResourceLocks:        stepDef.ResourceLocks,
			RequiresConfirmation: stepDef.RequiresConfirmation,
		}
	}
	return steps, nil
}

func (r *Resolver) targetIndex(def Definition, override Override) (int, error) {
	if override.Position != nil {
		pos := *override.Position
		if pos < 0 || pos >= len(def.Steps) {
			return 0, types.NewError(types.WORKFLOW_OVERRIDE_INVALID,
				fmt.Sprintf("workflow %q has no step at position %d", def.Name, pos))
		}
		return pos, nil
	}

	for i, step := range def.Steps {
		if step.ID == override.StepID {
			return i, nil
		}
	}
	return 0, types.NewError(types.WORKFLOW_OVERRIDE_INVALID,
		fmt.Sprintf("workflow %q has no step %q", def.Name, override.StepID))
}

// validateArg checks one override value against its schema entry. Error
// messages name the field and the violated bound so callers can surface
// targeted remediation.
func validateArg(spec ArgSpec, value any) error {
	switch spec.Type {
	case ArgTypeString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("argument %q must be a string, got %T", spec.Key, value)
		}
		if len(spec.Enum) > 0 {
			for _, allowed := range spec.Enum {
				if s == allowed {
					return nil
				}
			}
			return fmt.Errorf("argument %q value %q not in allowed set %v", spec.Key, s, spec.Enum)
		}
		return nil

	case ArgTypeInt, ArgTypeFloat:
		n, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("argument %q must be a number, got %T", spec.Key, value)
		}
		if spec.Type == ArgTypeInt && n != float64(int64(n)) {
			return fmt.Errorf("argument %q must be an integer, got %v", spec.Key, value)
		}
		if spec.Min != nil && n < *spec.Min {
			return fmt.Errorf("argument %q value %v is below minimum %v", spec.Key, value, *spec.Min)
		}
		if spec.Max != nil && n > *spec.Max {
			return fmt.Errorf("argument %q value %v exceeds maximum %v", spec.Key, value, *spec.Max)
		}
		return nil

	case ArgTypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean, got %T", spec.Key, value)
		}
		return nil

	default:
		return fmt.Errorf("argument %q has unknown schema type %q", spec.Key, spec.Type)
	}
}

// asFloat widens any numeric value for bound checks.
func asFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
