package dag

import (
	"fmt"
	"time"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/tool"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// RunStatus is the terminal status of a graph walk.
type RunStatus string

const (
	// RunStatusCompleted indicates every node completed successfully.
	RunStatusCompleted RunStatus = "completed"

	// RunStatusFailed indicates a node failed after recovery was exhausted.
	RunStatusFailed RunStatus = "failed"

	// RunStatusPaused indicates a node returned an awaiting-confirmation
	// marker and the walk returned early.
	RunStatusPaused RunStatus = "paused"

	// RunStatusCancelled indicates the walk observed cooperative cancellation.
	RunStatusCancelled RunStatus = "cancelled"
)

// NodeError describes the failure that ended a run.
type NodeError struct {
	NodeID  string          `json:"node_id"`
	Tool    string          `json:"tool"`
	Code    types.ErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("%s [step: %s]: %s", e.Code, e.NodeID, e.Message)
}

// RunResult is the complete outcome of a scheduler run.
type RunResult struct {
	Status      RunStatus              `json:"status"`
	NodeResults map[string]tool.Result `json:"node_results"`
	Failed      *NodeError             `json:"failed,omitempty"`

	// PausedAt names the step whose confirmation gate halted the walk.
	PausedAt string `json:"paused_at,omitempty"`

	Duration      time.Duration `json:"duration"`
	NodesExecuted int           `json:"nodes_executed"`
	NodesFailed   int           `json:"nodes_failed"`
	NodesSkipped  int           `json:"nodes_skipped"`
}
