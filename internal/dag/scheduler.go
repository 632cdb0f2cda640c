package dag

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/events"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/tool"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// NodeExecutor runs a single node to a settled Result. The orchestrator
// assembles it from the tool registry, the recovery policy engine, and the
// quality loop; the scheduler only cares about the settled outcome.
type NodeExecutor func(ctx context.Context, node *Node) tool.Result

// Scheduler walks a graph to completion, pause, or cancellation with maximum
// safe concurrency. It launches every ready node concurrently, settles
// completions one at a time, and recomputes readiness after each settlement
// so lock releases admit waiting nodes as early as possible.
type Scheduler struct {
	logger *slog.Logger
	tracer trace.Tracer
	bus    events.Bus
}

// SchedulerOption is a functional option for configuring a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger configures the scheduler to use the specified structured logger.
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithTracer configures the scheduler to create spans for runs and nodes.
func WithTracer(tracer trace.Tracer) SchedulerOption {
	return func(s *Scheduler) {
		s.tracer = tracer
	}
}

// WithEventBus configures the scheduler to emit node lifecycle events.
func WithEventBus(bus events.Bus) SchedulerOption {
	return func(s *Scheduler) {
		s.bus = bus
	}
}

// NewScheduler creates a Scheduler with the given options.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// completion carries one settled node off the worker goroutines.
type completion struct {
	node   *Node
	result tool.Result
}

// Run executes the graph. It returns a non-nil RunResult in every case; the
// error return is reserved for the scheduling-deadlock invariant violation,
// which is fatal and never surfaced as ordinary user-facing text.
func (s *Scheduler) Run(ctx context.Context, requestID types.ID, graph *Graph, exec NodeExecutor) (*RunResult, error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "dag.run",
			trace.WithAttributes(
				attribute.String("request.id", requestID.String()),
				attribute.Int("dag.node_count", graph.Len()),
			),
		)
		defer span.End()
	}

	s.logger.InfoContext(ctx, "starting graph run",
		"request_id", requestID,
		"node_count", graph.Len(),
	)

	state := NewState(graph)
	results := make(chan completion)
	startTime := time.Now()

	running := 0
	admitting := true
	status := RunStatusCompleted
	pausedAt := ""
	var failed *NodeError

	for {
		// Cancellation of the top-level request stops admission; in-flight
		// tools observe the same context and settle promptly.
		if admitting && ctx.Err() != nil {
			admitting = false
			status = RunStatusCancelled
		}

		if admitting {
			for _, node := range state.ReadyNodes() {
				// Re-checked atomically: an earlier admission in this pass
				// may have taken a shared lock.
				if !state.TryAdmit(node.ID) {
					continue
				}
				running++
				s.emit(ctx, events.EventNodeStarted, requestID, node, "")

				go func(n *Node) {
					results <- completion{node: n, result: exec(ctx, n)}
				}(node)
			}
		}

		if running == 0 {
			if !admitting || state.AllTerminal() {
				break
			}

			// Pending nodes with nothing running and nothing ready: the
			// builder invariant is violated. Fail loudly, never hang.
			pending := state.PendingIDs()
			s.logger.ErrorContext(ctx, "scheduling deadlock detected",
				"request_id", requestID,
				"pending_steps", pending,
			)
			deadlock := types.NewError(types.SCHED_DEADLOCK,
				"pending steps remain with nothing running; dependency graph invariant violated")
			result := s.buildResult(state, RunStatusFailed, "", nil, startTime)
			return result, deadlock
		}

		settled := <-results
		running--

		node := settled.node
		res := settled.result

		switch {
		case res.IsCancelled():
			state.settle(node.ID, NodeStatusSkipped, res)
			s.emit(ctx, events.EventNodeSkipped, requestID, node, "cancelled")
			admitting = false
			status = RunStatusCancelled

		case res.IsPaused():
			// The node did not complete; admission halts and in-flight
			// nodes drain before the walk returns.
			state.settle(node.ID, NodeStatusSkipped, res)
			s.emit(ctx, events.EventNodeSkipped, requestID, node, "awaiting confirmation")
			admitting = false
			if status != RunStatusCancelled {
				status = RunStatusPaused
				pausedAt = res.PausedStep()
				if pausedAt == "" {
					pausedAt = node.ID
				}
			}

		case !res.Success:
			state.MarkFailed(node.ID, res)
			s.emit(ctx, events.EventNodeFailed, requestID, node, res.Message)
			admitting = false
			if status == RunStatusCompleted {
				status = RunStatusFailed
				failed = &NodeError{
					NodeID:  node.ID,
					Tool:    node.Tool,
					Code:    res.ErrorCode(),
					Message: res.Message,
				}
			}

		default:
			state.MarkCompleted(node.ID, res)
			s.emit(ctx, events.EventNodeCompleted, requestID, node, "")
		}
	}

	// Nodes that never started settle as skipped.
	for _, id := range state.PendingIDs() {
		state.MarkSkipped(id)
	}

	result := s.buildResult(state, status, pausedAt, failed, startTime)

	s.logger.InfoContext(ctx, "graph run finished",
		"request_id", requestID,
		"status", result.Status,
		"executed", result.NodesExecuted,
		"failed", result.NodesFailed,
		"skipped", result.NodesSkipped,
		"duration", result.Duration,
	)
	if span != nil {
		span.SetAttributes(attribute.String("dag.status", string(result.Status)))
	}

	return result, nil
}

func (s *Scheduler) buildResult(state *State, status RunStatus, pausedAt string, failed *NodeError, startTime time.Time) *RunResult {
	counts := state.CountByStatus()
	return &RunResult{
		Status:        status,
		NodeResults:   state.Results(),
		Failed:        failed,
		PausedAt:      pausedAt,
		Duration:      time.Since(startTime),
		NodesExecuted: counts[NodeStatusCompleted],
		NodesFailed:   counts[NodeStatusFailed],
		NodesSkipped:  counts[NodeStatusSkipped],
	}
}

func (s *Scheduler) emit(ctx context.Context, eventType events.EventType, requestID types.ID, node *Node, message string) {
	if s.bus == nil {
		return
	}
	_ = s.bus.Publish(ctx, events.Event{
		Type:      eventType,
		RequestID: requestID,
		StepID:    node.ID,
		Tool:      node.Tool,
		Message:   message,
	})
}
