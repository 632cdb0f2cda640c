package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// Descriptor summarizes a registered tool for discovery.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Metrics tracks execution statistics for a single tool.
type Metrics struct {
	Calls         int64         `json:"calls"`
	Failures      int64         `json:"failures"`
	TotalDuration time.Duration `json:"total_duration"`
}

// Registry manages tool registration, discovery, and execution.
// It is the single lookup point the scheduler uses to run plan steps.
type Registry interface {
	// Register adds a tool to the registry.
	Register(t Tool) error

	// Unregister removes a tool from the registry by name.
	Unregister(name string) error

	// Get retrieves a tool by name, returning an error if not found.
	Get(name string) (Tool, error)

	// List returns descriptors for all registered tools, sorted by name.
	List() []Descriptor

	// Execute runs a tool by name with the given arguments, recording metrics.
	// An unknown name yields a failed Result with code TOOL_NOT_FOUND.
	Execute(ctx context.Context, name string, args map[string]any, tc Context) (Result, error)

	// Metrics returns execution metrics for a specific tool.
	Metrics(name string) (Metrics, error)
}

// DefaultRegistry implements Registry with thread-safe operations.
type DefaultRegistry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	metrics map[string]*Metrics
}

// NewRegistry creates a new empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		tools:   make(map[string]Tool),
		metrics: make(map[string]*Metrics),
	}
}

// Register adds a tool to the registry.
// Returns an error if the tool is nil, unnamed, or already registered.
func (r *DefaultRegistry) Register(t Tool) error {
	if t == nil {
		return types.NewError(types.TOOL_NOT_FOUND, "tool cannot be nil")
	}
	name := t.Name()
	if name == "" {
		return types.NewError(types.TOOL_NOT_FOUND, "tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	r.tools[name] = t
	r.metrics[name] = &Metrics{}
	return nil
}

// Unregister removes a tool from the registry by name.
func (r *DefaultRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return types.NewError(types.TOOL_NOT_FOUND, fmt.Sprintf("tool %q is not registered", name))
	}

	delete(r.tools, name)
	delete(r.metrics, name)
	return nil
}

// Get retrieves a tool by name.
func (r *DefaultRegistry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tools[name]
	if !exists {
		return nil, types.NewError(types.TOOL_NOT_FOUND, fmt.Sprintf("tool %q is not registered", name))
	}
	return t, nil
}

// List returns descriptors for all registered tools, sorted by name.
func (r *DefaultRegistry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		descriptors = append(descriptors, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
		})
	}

	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})
	return descriptors
}

// Execute runs a tool by name, recording call metrics.
// An unknown tool name is reported through the Result so it can flow through
// the normal failure path rather than aborting the scheduler.
func (r *DefaultRegistry) Execute(ctx context.Context, name string, args map[string]any, tc Context) (Result, error) {
	t, err := r.Get(name)
	if err != nil {
		return Fail(types.TOOL_NOT_FOUND, fmt.Sprintf("tool %q is not registered", name)), nil
	}

	start := time.Now()
	result, execErr := t.Execute(ctx, args, tc)
	elapsed := time.Since(start)

	r.mu.Lock()
	if m, exists := r.metrics[name]; exists {
		m.Calls++
		m.TotalDuration += elapsed
		if execErr != nil || !result.Success {
			m.Failures++
		}
	}
	r.mu.Unlock()

	return result, execErr
}

// Metrics returns execution metrics for a specific tool.
func (r *DefaultRegistry) Metrics(name string) (Metrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.metrics[name]
	if !exists {
		return Metrics{}, types.NewError(types.TOOL_NOT_FOUND, fmt.Sprintf("tool %q is not registered", name))
	}
	return *m, nil
}

// Ensure DefaultRegistry implements Registry at compile time.
var _ Registry = (*DefaultRegistry)(nil)
