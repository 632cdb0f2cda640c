package orchestrator

import (
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/plan"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// ResponseStatus classifies the outcome of one orchestrator call.
type ResponseStatus string

const (
	// StatusCompleted indicates the request ran to completion.
	StatusCompleted ResponseStatus = "completed"

	// StatusError indicates the request failed.
	StatusError ResponseStatus = "error"

	// StatusPlanned indicates a multi-step plan was proposed and is waiting
	// for confirmation before execution.
	StatusPlanned ResponseStatus = "planned"

	// StatusAwaitingConfirmation indicates execution paused at a
	// confirmation gate and can be resumed.
	StatusAwaitingConfirmation ResponseStatus = "awaiting_confirmation"

	// StatusCancelled indicates the request was cancelled.
	StatusCancelled ResponseStatus = "cancelled"
)

// Response is the user-facing outcome of one orchestrator call.
type Response struct {
	// Message is a human-readable summary of what happened.
	Message string `json:"message"`

	// Success is true for completed and planned outcomes.
	Success bool `json:"success"`

	// Status classifies the outcome.
	Status ResponseStatus `json:"status"`

	// RequestID identifies the request, when one was started.
	RequestID types.ID `json:"request_id,omitempty"`

	// Plan summarizes the proposed or executed plan, when one exists.
	Plan *plan.Summary `json:"plan,omitempty"`

	// NextStep names the step waiting at a confirmation gate.
	NextStep string `json:"next_step,omitempty"`

	// ResumeHint tells the caller how to continue a paused execution.
	ResumeHint string `json:"resume_hint,omitempty"`

	// ErrorCode is the machine-readable code for error outcomes.
	ErrorCode types.ErrorCode `json:"error_code,omitempty"`
}

func errorResponse(code types.ErrorCode, message string) Response {
	return Response{
		Message:   message,
		Success:   false,
		Status:    StatusError,
		ErrorCode: code,
	}
}
