package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/events"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/tool"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// DataRetryCount annotates a recovered result with how many retries ran.
const DataRetryCount = "retry_count"

// DataOriginalErrorCode annotates a prerequisite failure with the error code
// that recovery was attempting to repair.
const DataOriginalErrorCode = "original_error_code"

// Runner executes a single call. The engine routes the original call, every
// prerequisite, and every retry through the same runner.
type Runner func(ctx context.Context, call Call) (tool.Result, error)

// Scope keys the engine's telemetry events to a request and plan step.
type Scope struct {
	RequestID types.ID
	StepID    string
}

// Engine makes a failed call transparently retryable when a known recovery
// path exists. It loops execute -> consult table -> run prerequisites ->
// wait -> substitute -> retry until the call succeeds, recovery is
// exhausted, or no policy matches.
type Engine struct {
	table  *Table
	logger *slog.Logger
	bus    events.Bus
}

// EngineOption is a functional option for configuring an Engine.
type EngineOption func(*Engine)

// WithLogger configures the engine's structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEventBus configures the engine to emit recovery phase events.
// Events are informational only; correctness never depends on them.
func WithEventBus(bus events.Bus) EngineOption {
	return func(e *Engine) {
		e.bus = bus
	}
}

// NewEngine creates an Engine over the given policy table.
func NewEngine(table *Table, opts ...EngineOption) *Engine {
	e := &Engine{
		table:  table,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the call with automatic recovery. The returned result is the
// final settled outcome; recovered results carry a retry_count annotation.
// Cancellation and pause markers pass through untouched; cancellation is a
// terminal status, not an error, and is never retried.
func (e *Engine) Execute(ctx context.Context, scope Scope, call Call, run Runner) tool.Result {
	retryCounts := make(map[policyKey]int)
	totalRetries := 0

	for {
		result, err := run(ctx, call)
		if err != nil {
			result = tool.Fail(types.TOOL_EXECUTION_FAILED, err.Error())
		}

		if result.Success || result.IsCancelled() || result.IsPaused() {
			return e.annotate(result, totalRetries)
		}

		code := result.ErrorCode()
		key := policyKey{tool: call.Tool, code: code}
		decision := e.table.Lookup(call.Tool, code, retryCounts[key])
		if decision == nil {
			return e.annotate(result, totalRetries)
		}

		e.logger.InfoContext(ctx, "recovery decision found",
			"step_id", scope.StepID,
			"tool", call.Tool,
			"error_code", code,
			"policy", decision.PolicyID,
			"retry_count", retryCounts[key],
		)
		e.emit(ctx, scope, events.EventRecoveryDecision, call.Tool, string(code), map[string]any{
			"policy": decision.PolicyID,
		})

		// Prerequisites run in order; any failure aborts recovery and is
		// surfaced distinctly from the original error.
		aborted := false
		var prereqResult tool.Result
		var failedPrereq Call
		for _, prereq := range decision.Prerequisites {
			e.emit(ctx, scope, events.EventRecoveryPrereqStarted, prereq.Tool, "", nil)

			prereqResult, err = run(ctx, prereq)
			if err != nil {
				prereqResult = tool.Fail(types.TOOL_EXECUTION_FAILED, err.Error())
			}
			if prereqResult.IsCancelled() {
				return e.annotate(prereqResult, totalRetries)
			}
			if !prereqResult.Success {
				aborted = true
				failedPrereq = prereq
				break
			}

			e.emit(ctx, scope, events.EventRecoveryPrereqCompleted, prereq.Tool, "", nil)
		}
		if aborted {
			e.logger.WarnContext(ctx, "recovery prerequisite failed",
				"step_id", scope.StepID,
				"prerequisite", failedPrereq.Tool,
				"original_error_code", code,
			)
			return tool.Fail(types.RECOVERY_PREREQ_FAILED,
				fmt.Sprintf("recovery prerequisite %q failed: %s", failedPrereq.Tool, prereqResult.Message)).
				WithData(DataOriginalErrorCode, string(code))
		}

		if decision.Delay > 0 {
			select {
			case <-time.After(decision.Delay):
			case <-ctx.Done():
				return tool.Cancelled()
			}
		}

		next := decision.RetryCall
		if next.Args == nil {
			// A retry template without arguments repeats the failed call's.
			next.Args = call.Args
		}

		retryCounts[key]++
		totalRetries++
		call = next

		e.emit(ctx, scope, events.EventRecoveryRetrying, call.Tool, "", map[string]any{
			"retry_count": retryCounts[key],
		})
	}
}

func (e *Engine) annotate(result tool.Result, retries int) tool.Result {
	if retries == 0 {
		return result
	}
	return result.WithData(DataRetryCount, retries)
}

func (e *Engine) emit(ctx context.Context, scope Scope, eventType events.EventType, toolName, message string, data map[string]any) {
	if e.bus == nil {
		return
	}
	_ = e.bus.Publish(ctx, events.Event{
		Type:      eventType,
		RequestID: scope.RequestID,
		StepID:    scope.StepID,
		Tool:      toolName,
		Message:   message,
		Data:      data,
	})
}
