package tool

import (
	"context"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// ExecutionMode controls how a tool handles confirmation-gated sub-steps.
type ExecutionMode string

const (
	// ModeInteractive pauses at confirmation-gated operations and returns a
	// paused result so the caller can confirm.
	ModeInteractive ExecutionMode = "interactive"

	// ModeAuto proceeds through confirmation gates without pausing. Used by
	// the quality loop and plan resume paths.
	ModeAuto ExecutionMode = "auto"
)

// ProgressFunc reports incremental progress from inside a tool. The scheduler
// forwards reports as telemetry events keyed by request and step id without
// interpreting their content.
type ProgressFunc func(message string, data map[string]any)

// Context carries per-call execution context into a tool.
// Cancellation travels on the context.Context passed to Execute; tools must
// observe it and return a cancelled Result promptly rather than raising past
// the scheduler boundary.
type Context struct {
	// RequestID identifies the top-level request this call belongs to.
	RequestID types.ID

	// ToolCallID uniquely identifies this invocation.
	ToolCallID types.ID

	// StepID is the plan step this call executes, if any.
	StepID string

	// Mode controls confirmation-gate behavior.
	Mode ExecutionMode

	// Progress reports incremental progress. May be nil.
	Progress ProgressFunc
}

// Report forwards a progress message if a reporter is attached.
func (c Context) Report(message string, data map[string]any) {
	if c.Progress != nil {
		c.Progress(message, data)
	}
}

// Tool represents an atomic operation that mutates or inspects the shared
// timeline document. Tools are external collaborators: the scheduler treats
// Execute as an opaque asynchronous operation and never touches the document
// itself.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	Description() string

	// Execute runs the tool with the given arguments. Tool failures are
	// reported through the Result (with a machine-readable error code), not
	// the error return; the error return is reserved for infrastructure
	// failures that should bypass recovery.
	Execute(ctx context.Context, args map[string]any, tc Context) (Result, error)
}
