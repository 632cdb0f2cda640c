package events

import (
	"time"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// EventType identifies the kind of telemetry event.
type EventType string

// Plan lifecycle events.
const (
	EventPlanCreated   EventType = "plan.created"
	EventPlanConfirmed EventType = "plan.confirmed"
	EventPlanCancelled EventType = "plan.cancelled"
)

// Scheduler node events.
const (
	EventNodeStarted   EventType = "node.started"
	EventNodeCompleted EventType = "node.completed"
	EventNodeFailed    EventType = "node.failed"
	EventNodeSkipped   EventType = "node.skipped"
)

// Recovery engine phase events. Informational only; correctness never
// depends on their delivery.
const (
	EventRecoveryDecision        EventType = "recovery.decision"
	EventRecoveryPrereqStarted   EventType = "recovery.prereq_started"
	EventRecoveryPrereqCompleted EventType = "recovery.prereq_completed"
	EventRecoveryRetrying        EventType = "recovery.retrying"
)

// Quality loop events.
const (
	EventQualityEvaluated EventType = "quality.evaluated"
	EventQualityRetrying  EventType = "quality.retrying"
)

// Tool progress forwarded from a tool's progress reporter.
const (
	EventToolProgress EventType = "tool.progress"
)

// Event is a single telemetry record, keyed by the originating request and
// step so front ends can correlate progress with plan entries.
type Event struct {
	Type      EventType      `json:"type"`
	RequestID types.ID       `json:"request_id,omitempty"`
	StepID    string         `json:"step_id,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Filter specifies criteria for event subscriptions.
// Zero-valued fields match everything.
type Filter struct {
	// Types restricts delivery to the listed event types.
	Types []EventType

	// RequestID restricts delivery to events from a single request.
	RequestID types.ID
}

// Matches reports whether the event passes the filter.
func (f Filter) Matches(event Event) bool {
	if !f.RequestID.IsZero() && f.RequestID != event.RequestID {
		return false
	}

	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == event.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}
