// Package plan models a resolved execution plan and its lifecycle: the step
// list produced for one user request, tracked from proposal through
// confirmation, execution, and a terminal outcome.
package plan

import (
	"time"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/dag"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// Status represents the current lifecycle state of a plan.
type Status string

const (
	// StatusPendingConfirmation indicates the plan was proposed to the user
	// and is waiting for an explicit go-ahead.
	StatusPendingConfirmation Status = "pending_confirmation"

	// StatusConfirmed indicates the user accepted the plan and it is ready
	// for execution.
	StatusConfirmed Status = "confirmed"

	// StatusExecuting indicates the plan is currently being executed.
	StatusExecuting Status = "executing"

	// StatusPaused indicates execution halted at a confirmation gate and can
	// be resumed.
	StatusPaused Status = "paused"

	// StatusCompleted indicates every step finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed indicates a step failed and execution stopped.
	StatusFailed Status = "failed"

	// StatusCancelled indicates the plan was abandoned before or during
	// execution.
	StatusCancelled Status = "cancelled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status represents a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo validates whether the current status can transition to the
// target status. It enforces the following state machine:
//
//	pending_confirmation -> confirmed, cancelled
//	confirmed -> executing, cancelled
//	executing -> paused, completed, failed, cancelled
//	paused -> executing, cancelled
//
// Terminal states cannot transition to any other state.
func (s Status) CanTransitionTo(target Status) bool {
	if s.IsTerminal() {
		return false
	}

	allowedTransitions := map[Status][]Status{
		StatusPendingConfirmation: {
			StatusConfirmed,
			StatusCancelled,
		},
		StatusConfirmed: {
			StatusExecuting,
			StatusCancelled,
		},
		StatusExecuting: {
			StatusPaused,
			StatusCompleted,
			StatusFailed,
			StatusCancelled,
		},
		StatusPaused: {
			StatusExecuting,
			StatusCancelled,
		},
	}

	allowedTargets, exists := allowedTransitions[s]
	if !exists {
		return false
	}

	for _, allowedTarget := range allowedTargets {
		if allowedTarget == target {
			return true
		}
	}

	return false
}

// Plan is the resolved step list for one user request.
type Plan struct {
	// ID is the unique identifier for this plan.
	ID types.ID `json:"id"`

	// Request is the user utterance or workflow invocation that produced
	// this plan.
	Request string `json:"request"`

	// Workflow names the template this plan was resolved from, if any.
	Workflow string `json:"workflow,omitempty"`

	// Steps is the ordered step list as submitted for graph construction.
	Steps []dag.Step `json:"steps"`

	// Status is the plan's current lifecycle state.
	Status Status `json:"status"`

	// ConfirmedSteps lists step ids whose confirmation gates were already
	// accepted, carried across a pause and resume.
	ConfirmedSteps []string `json:"confirmed_steps,omitempty"`

	// CreatedAt is the timestamp when the plan was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the plan was last updated.
	UpdatedAt time.Time `json:"updated_at"`

	// StartedAt is the timestamp when execution began, nil until then.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is the timestamp when the plan reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// New creates a plan in the pending_confirmation state.
func New(request, workflow string, steps []dag.Step) *Plan {
	now := time.Now()
	return &Plan{
		ID:        types.NewID(),
		Request:   request,
		Workflow:  workflow,
		Steps:     steps,
		Status:    StatusPendingConfirmation,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo moves the plan to the target status, maintaining timestamps.
// It returns an error when the transition is not allowed.
func (p *Plan) TransitionTo(target Status) error {
	if !p.Status.CanTransitionTo(target) {
		return types.NewError(types.ORCH_PLAN_FAILED,
			"invalid plan transition from "+p.Status.String()+" to "+target.String())
	}

	now := time.Now()
	p.Status = target
	p.UpdatedAt = now

	switch target {
	case StatusExecuting:
		if p.StartedAt == nil {
			p.StartedAt = &now
		}
	case StatusCompleted, StatusFailed, StatusCancelled:
		p.CompletedAt = &now
	}
	return nil
}

// StepConfirmed reports whether the given step's confirmation gate was
// already accepted.
func (p *Plan) StepConfirmed(stepID string) bool {
	for _, id := range p.ConfirmedSteps {
		if id == stepID {
			return true
		}
	}
	return false
}

// ConfirmStep records a step's confirmation gate as accepted.
func (p *Plan) ConfirmStep(stepID string) {
	if p.StepConfirmed(stepID) {
		return
	}
	p.ConfirmedSteps = append(p.ConfirmedSteps, stepID)
	p.UpdatedAt = time.Now()
}

// Step returns the step with the given id, if present.
func (p *Plan) Step(stepID string) (dag.Step, bool) {
	for _, step := range p.Steps {
		if step.ID == stepID {
			return step, true
		}
	}
	return dag.Step{}, false
}

// Summary is a compact description of the plan for user-facing output.
type Summary struct {
	ID        types.ID `json:"id"`
	Workflow  string   `json:"workflow,omitempty"`
	Status    Status   `json:"status"`
	StepCount int      `json:"step_count"`
	Tools     []string `json:"tools"`
}

// Summarize produces a Summary for the plan.
func (p *Plan) Summarize() Summary {
	tools := make([]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		tools = append(tools, step.Tool)
	}
	return Summary{
		ID:        p.ID,
		Workflow:  p.Workflow,
		Status:    p.Status,
		StepCount: len(p.Steps),
		Tools:     tools,
	}
}
