// Package orchestrator coordinates one user request at a time: it turns a
// request into a plan, walks the plan's dependency graph through the
// scheduler, and routes every tool call through recovery and quality
// policies. It owns the pending-plan confirmation flow and the single
// cancellation handle for the active execution.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/dag"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/events"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/plan"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/quality"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/recovery"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/tool"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/workflow"
)

// Planner converts a free-form user message into a step list. It is an
// external collaborator backed by the chat model; the orchestrator only
// consumes its output. The string return is the conversational reply shown
// alongside the plan (or alone, when no steps are needed).
type Planner interface {
	Plan(ctx context.Context, userMessage string) ([]dag.Step, string, error)
}

// ResumeOptions carries confirmation state across a pause and resume.
type ResumeOptions struct {
	// ConfirmedSteps names steps whose confirmation gates were accepted.
	// They execute in auto mode instead of pausing again.
	ConfirmedSteps []string
}

// Orchestrator is the top-level coordinator. It admits one active request
// at a time and holds at most one pending plan awaiting confirmation.
type Orchestrator struct {
	registry tool.Registry
	resolver *workflow.Resolver
	planner  Planner
	recovery *recovery.Engine
	quality  *quality.Loop
	bus      events.Bus
	logger   *slog.Logger
	tracer   trace.Tracer

	toolTimeout time.Duration

	mu      sync.Mutex
	pending *plan.Plan
	active  *activeExecution
}

// activeExecution is the cancellation handle for the in-flight request.
type activeExecution struct {
	requestID types.ID
	cancel    context.CancelFunc
}

// Option is a functional option for configuring an Orchestrator.
type Option func(*Orchestrator)

// WithPlanner configures the planner used by Process.
func WithPlanner(planner Planner) Option {
	return func(o *Orchestrator) {
		o.planner = planner
	}
}

// WithQualityLoop configures the quality loop applied to enrolled tools.
func WithQualityLoop(loop *quality.Loop) Option {
	return func(o *Orchestrator) {
		o.quality = loop
	}
}

// WithEventBus configures the bus for execution telemetry.
func WithEventBus(bus events.Bus) Option {
	return func(o *Orchestrator) {
		o.bus = bus
	}
}

// WithLogger configures the orchestrator's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithTracer configures the tracer used for request spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

// WithToolTimeout sets the ceiling applied around every tool execution.
func WithToolTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.toolTimeout = timeout
		}
	}
}

// DefaultToolTimeout bounds a single tool execution when not configured.
const DefaultToolTimeout = 2 * time.Minute

// New creates an Orchestrator over the given tool registry, workflow
// resolver, and recovery engine.
func New(registry tool.Registry, resolver *workflow.Resolver, engine *recovery.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:    registry,
		resolver:    resolver,
		recovery:    engine,
		logger:      slog.Default(),
		toolTimeout: DefaultToolTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process handles a free-form user message. A plan with a single
// unconfirmed-gate-free step executes immediately; anything larger is
// stored as the pending plan and proposed to the user instead.
func (o *Orchestrator) Process(ctx context.Context, userMessage string) Response {
	if o.planner == nil {
		return errorResponse(types.ORCH_PLAN_FAILED, "no planner configured")
	}

	steps, reply, err := o.planner.Plan(ctx, userMessage)
	if err != nil {
		o.logger.ErrorContext(ctx, "planning failed", "error", err)
		return errorResponse(types.ORCH_PLAN_FAILED, fmt.Sprintf("planning failed: %v", err))
	}

	if len(steps) == 0 {
		// Conversational turn, nothing to execute.
		return Response{Message: reply, Success: true, Status: StatusCompleted}
	}

	p := plan.New(userMessage, "", steps)

	if len(steps) == 1 && !steps[0].RequiresConfirmation {
		if err := p.TransitionTo(plan.StatusConfirmed); err != nil {
			return errorResponse(types.ORCH_PLAN_FAILED, err.Error())
		}
		return o.run(ctx, p)
	}

	o.mu.Lock()
	o.pending = p
	o.mu.Unlock()

	status := StatusPlanned
	if requiresConfirmation(steps) {
		status = StatusAwaitingConfirmation
	}

	summary := p.Summarize()
	o.publish(ctx, events.Event{Type: events.EventPlanCreated, RequestID: p.ID, Message: reply})
	o.logger.InfoContext(ctx, "plan proposed",
		"plan_id", p.ID,
		"steps", len(steps),
		"status", status,
	)

	return Response{
		Message:    reply,
		Success:    true,
		Status:     status,
		RequestID:  p.ID,
		Plan:       &summary,
		ResumeHint: "confirm the plan to execute it",
	}
}

// RunWorkflow resolves a named workflow with overrides and executes it.
// Resume options pre-confirm steps so a paused run can continue past its
// confirmation gate.
func (o *Orchestrator) RunWorkflow(ctx context.Context, name string, overrides []workflow.Override, resume ResumeOptions) Response {
	steps, err := o.resolver.Resolve(name, overrides)
	if err != nil {
		o.logger.WarnContext(ctx, "workflow resolution failed", "workflow", name, "error", err)
		return errorResponse(types.CodeOf(err), err.Error())
	}

	p := plan.New(fmt.Sprintf("run workflow %s", name), name, steps)
	if err := p.TransitionTo(plan.StatusConfirmed); err != nil {
		return errorResponse(types.ORCH_PLAN_FAILED, err.Error())
	}
	for _, stepID := range resume.ConfirmedSteps {
		p.ConfirmStep(stepID)
	}

	return o.run(ctx, p)
}

// ConfirmPendingPlan executes the plan proposed by a previous Process call.
func (o *Orchestrator) ConfirmPendingPlan(ctx context.Context) Response {
	o.mu.Lock()
	p := o.pending
	o.pending = nil
	o.mu.Unlock()

	if p == nil {
		return errorResponse(types.ORCH_NO_PENDING_PLAN, "no plan is awaiting confirmation")
	}
	if err := p.TransitionTo(plan.StatusConfirmed); err != nil {
		return errorResponse(types.ORCH_PLAN_FAILED, err.Error())
	}

	o.publish(ctx, events.Event{Type: events.EventPlanConfirmed, RequestID: p.ID})
	return o.run(ctx, p)
}

// CancelPendingPlan discards the plan awaiting confirmation.
func (o *Orchestrator) CancelPendingPlan() Response {
	o.mu.Lock()
	p := o.pending
	o.pending = nil
	o.mu.Unlock()

	if p == nil {
		return errorResponse(types.ORCH_NO_PENDING_PLAN, "no plan is awaiting confirmation")
	}
	_ = p.TransitionTo(plan.StatusCancelled)

	o.publish(context.Background(), events.Event{Type: events.EventPlanCancelled, RequestID: p.ID})
	o.logger.Info("pending plan cancelled", "plan_id", p.ID)
	return Response{
		Message:   "plan cancelled",
		Success:   true,
		Status:    StatusCancelled,
		RequestID: p.ID,
	}
}

// CancelActiveExecution requests cooperative cancellation of the in-flight
// request. In-flight tools observe the cancelled context and settle; the
// run returns with a cancelled status.
func (o *Orchestrator) CancelActiveExecution() Response {
	o.mu.Lock()
	active := o.active
	o.mu.Unlock()

	if active == nil {
		return errorResponse(types.ORCH_NO_ACTIVE_EXECUTION, "no execution is in progress")
	}
	active.cancel()

	o.logger.Info("cancellation requested", "request_id", active.requestID)
	return Response{
		Message:   "cancellation requested",
		Success:   true,
		Status:    StatusCancelled,
		RequestID: active.requestID,
	}
}

// PendingPlan returns the plan awaiting confirmation, if any.
func (o *Orchestrator) PendingPlan() *plan.Plan {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending
}

// run executes a confirmed plan end to end. It holds the single active
// request slot for the duration; a concurrent second request is rejected
// with ORCH_BUSY, never queued.
func (o *Orchestrator) run(ctx context.Context, p *plan.Plan) Response {
	runCtx, cancel, err := o.acquire(ctx, p.ID)
	if err != nil {
		return errorResponse(types.ORCH_BUSY, err.Error())
	}
	defer o.release(cancel)

	var span trace.Span
	if o.tracer != nil {
		runCtx, span = o.tracer.Start(runCtx, "orchestrator.run",
			trace.WithAttributes(
				attribute.String("request.id", p.ID.String()),
				attribute.String("workflow", p.Workflow),
			),
		)
		defer span.End()
	}

	if err := p.TransitionTo(plan.StatusExecuting); err != nil {
		return errorResponse(types.ORCH_PLAN_FAILED, err.Error())
	}

	graph, err := dag.Build(p.Steps)
	if err != nil {
		_ = p.TransitionTo(plan.StatusFailed)
		o.logger.ErrorContext(runCtx, "graph construction failed", "plan_id", p.ID, "error", err)
		return errorResponse(types.CodeOf(err), err.Error())
	}

	scheduler := dag.NewScheduler(
		dag.WithLogger(o.logger),
		dag.WithTracer(o.tracer),
		dag.WithEventBus(o.bus),
	)
	runResult, err := scheduler.Run(runCtx, p.ID, graph, o.nodeExecutor(p))
	if err != nil {
		_ = p.TransitionTo(plan.StatusFailed)
		return errorResponse(types.CodeOf(err), err.Error())
	}

	return o.respond(p, runResult)
}

// respond maps a settled run onto the plan lifecycle and a user response.
func (o *Orchestrator) respond(p *plan.Plan, runResult *dag.RunResult) Response {
	summary := p.Summarize()

	switch runResult.Status {
	case dag.RunStatusCompleted:
		_ = p.TransitionTo(plan.StatusCompleted)
		summary.Status = p.Status
		return Response{
			Message:   fmt.Sprintf("completed %d steps in %s", runResult.NodesExecuted, runResult.Duration.Round(time.Millisecond)),
			Success:   true,
			Status:    StatusCompleted,
			RequestID: p.ID,
			Plan:      &summary,
		}

	case dag.RunStatusPaused:
		_ = p.TransitionTo(plan.StatusPaused)
		summary.Status = p.Status
		return Response{
			Message:    fmt.Sprintf("paused before step %q", runResult.PausedAt),
			Success:    false,
			Status:     StatusAwaitingConfirmation,
			RequestID:  p.ID,
			Plan:       &summary,
			NextStep:   runResult.PausedAt,
			ResumeHint: fmt.Sprintf("re-run with step %q confirmed to continue", runResult.PausedAt),
		}

	case dag.RunStatusCancelled:
		_ = p.TransitionTo(plan.StatusCancelled)
		summary.Status = p.Status
		return Response{
			Message:   "execution cancelled",
			Success:   false,
			Status:    StatusCancelled,
			RequestID: p.ID,
			Plan:      &summary,
		}

	default:
		_ = p.TransitionTo(plan.StatusFailed)
		summary.Status = p.Status
		resp := Response{
			Message:   "execution failed",
			Success:   false,
			Status:    StatusError,
			RequestID: p.ID,
			Plan:      &summary,
			ErrorCode: types.TOOL_EXECUTION_FAILED,
		}
		if runResult.Failed != nil {
			resp.Message = runResult.Failed.Error()
			resp.ErrorCode = runResult.Failed.Code
		}
		return resp
	}
}

func (o *Orchestrator) acquire(ctx context.Context, requestID types.ID) (context.Context, context.CancelFunc, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != nil {
		return nil, nil, fmt.Errorf("request %s is already executing", o.active.requestID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.active = &activeExecution{requestID: requestID, cancel: cancel}
	return runCtx, cancel, nil
}

func (o *Orchestrator) release(cancel context.CancelFunc) {
	cancel()
	o.mu.Lock()
	o.active = nil
	o.mu.Unlock()
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if o.bus == nil {
		return
	}
	_ = o.bus.Publish(ctx, event)
}

func requiresConfirmation(steps []dag.Step) bool {
	for _, step := range steps {
		if step.RequiresConfirmation {
			return true
		}
	}
	return false
}
