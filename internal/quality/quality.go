package quality

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/events"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/tool"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// MetricScore is one measured dimension of an artifact's quality.
type MetricScore struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Passed bool    `json:"passed"`
	Detail string  `json:"detail,omitempty"`
}

// Report is the outcome of one quality evaluation.
type Report struct {
	OverallScore float64       `json:"overall_score"`
	Passed       bool          `json:"passed"`
	Metrics      []MetricScore `json:"metrics,omitempty"`
}

// Target carries the parameters the evaluator measures against.
type Target struct {
	// DurationSeconds is the desired artifact duration.
	DurationSeconds float64 `json:"duration_seconds"`

	// Tolerance is the acceptable deviation, as a fraction of the target.
	Tolerance float64 `json:"tolerance"`
}

// Evaluator measures the artifact produced by a successful operation.
// It is an external collaborator; the loop only interprets the report.
type Evaluator interface {
	Evaluate(ctx context.Context, result tool.Result, target Target) (Report, error)
}

// Runner re-invokes the enrolled operation. The mode forces
// confirmation-gated sub-steps to proceed automatically on re-execution.
type Runner func(ctx context.Context, mode tool.ExecutionMode) (tool.Result, error)

// DefaultMaxIterations bounds re-execution when no override is given.
const DefaultMaxIterations = 3

// MaxIterationsCap is the hard ceiling on any per-invocation override.
const MaxIterationsCap = 4

// Loop repeats an explicitly-enrolled operation until its artifact passes
// quality evaluation or the iteration budget is exhausted. Non-enrolled
// operations pass through untouched.
type Loop struct {
	evaluator Evaluator
	enrolled  map[string]Target
	maxIter   int
	logger    *slog.Logger
	bus       events.Bus
}

// LoopOption is a functional option for configuring a Loop.
type LoopOption func(*Loop)

// WithMaxIterations sets the default iteration budget, clamped to the cap.
func WithMaxIterations(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.maxIter = min(n, MaxIterationsCap)
		}
	}
}

// WithLogger configures the loop's structured logger.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithEventBus configures the loop to emit per-iteration telemetry.
func WithEventBus(bus events.Bus) LoopOption {
	return func(l *Loop) {
		l.bus = bus
	}
}

// NewLoop creates a Loop over the given evaluator. Enrollment maps tool
// names to their default evaluation targets.
func NewLoop(evaluator Evaluator, enrolled map[string]Target, opts ...LoopOption) *Loop {
	l := &Loop{
		evaluator: evaluator,
		enrolled:  enrolled,
		maxIter:   DefaultMaxIterations,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Enrolled reports whether the named tool participates in the quality loop.
func (l *Loop) Enrolled(toolName string) bool {
	_, ok := l.enrolled[toolName]
	return ok
}

// Invocation scopes one Run call.
type Invocation struct {
	RequestID types.ID
	StepID    string
	Tool      string

	// Target overrides the enrolled default target when non-zero.
	Target *Target

	// MaxIterations overrides the loop default for this invocation only.
	// Values beyond the cap are clamped.
	MaxIterations int
}

// Run executes the operation under the quality loop. For a non-enrolled tool
// this is a single run with no evaluation. For an enrolled tool: run,
// evaluate, and on a failing report re-run with confirmation gates forced
// open, until the report passes or the budget is exhausted. The final result
// is annotated with the last report on success, or all accumulated reports
// and QUALITY_THRESHOLD_NOT_MET on exhaustion.
func (l *Loop) Run(ctx context.Context, inv Invocation, run Runner) (tool.Result, error) {
	target, enrolled := l.enrolled[inv.Tool]
	if !enrolled {
		return run(ctx, tool.ModeInteractive)
	}
	if inv.Target != nil {
		target = *inv.Target
	}

	maxIter := l.maxIter
	if inv.MaxIterations > 0 {
		maxIter = min(inv.MaxIterations, MaxIterationsCap)
	}

	var reports []Report
	var result tool.Result
	var err error

	for iteration := 1; iteration <= maxIter; iteration++ {
		mode := tool.ModeInteractive
		if iteration > 1 {
			// Re-execution must not stall on confirmation gates.
			mode = tool.ModeAuto
		}

		result, err = run(ctx, mode)
		if err != nil {
			return result, err
		}
		if !result.Success || result.IsPaused() || result.IsCancelled() {
			return result, nil
		}

		report, evalErr := l.evaluator.Evaluate(ctx, result, target)
		if evalErr != nil {
			return tool.Fail(types.TOOL_EXECUTION_FAILED,
				fmt.Sprintf("quality evaluation failed: %v", evalErr)), nil
		}
		reports = append(reports, report)

		l.emit(ctx, inv, events.EventQualityEvaluated, map[string]any{
			"iteration":     iteration,
			"overall_score": report.OverallScore,
			"passed":        report.Passed,
		})

		if report.Passed {
			l.logger.InfoContext(ctx, "quality threshold met",
				"tool", inv.Tool,
				"step_id", inv.StepID,
				"iteration", iteration,
				"score", report.OverallScore,
			)
			return result.WithData(tool.DataQualityReport, report), nil
		}

		if iteration < maxIter {
			l.logger.InfoContext(ctx, "quality threshold not met, re-running",
				"tool", inv.Tool,
				"step_id", inv.StepID,
				"iteration", iteration,
				"score", report.OverallScore,
			)
			l.emit(ctx, inv, events.EventQualityRetrying, map[string]any{
				"iteration": iteration,
			})
		}
	}

	l.logger.WarnContext(ctx, "quality iteration budget exhausted",
		"tool", inv.Tool,
		"step_id", inv.StepID,
		"iterations", maxIter,
	)
	failed := tool.Fail(types.QUALITY_THRESHOLD_NOT_MET,
		fmt.Sprintf("quality threshold not met after %d iterations", maxIter))
	return failed.WithData(tool.DataQualityReports, reports), nil
}

func (l *Loop) emit(ctx context.Context, inv Invocation, eventType events.EventType, data map[string]any) {
	if l.bus == nil {
		return
	}
	_ = l.bus.Publish(ctx, events.Event{
		Type:      eventType,
		RequestID: inv.RequestID,
		StepID:    inv.StepID,
		Tool:      inv.Tool,
		Data:      data,
	})
}
