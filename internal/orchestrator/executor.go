package orchestrator

import (
	"context"
	"fmt"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/dag"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/events"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/plan"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/quality"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/recovery"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/tool"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// nodeExecutor assembles the per-node execution pipeline: confirmation gate,
// then the quality loop, then the recovery engine, then the registry call
// under the tool timeout. The scheduler sees only the settled result.
func (o *Orchestrator) nodeExecutor(p *plan.Plan) dag.NodeExecutor {
	return func(ctx context.Context, node *dag.Node) tool.Result {
		step := node.Step

		inv := quality.Invocation{
			RequestID: p.ID,
			StepID:    step.ID,
			Tool:      step.Tool,
		}
		run := func(ctx context.Context, mode tool.ExecutionMode) (tool.Result, error) {
			if step.RequiresConfirmation && mode != tool.ModeAuto && !p.StepConfirmed(step.ID) {
				return tool.Paused(step.ID, fmt.Sprintf("step %q requires confirmation", step.ID)), nil
			}

			scope := recovery.Scope{RequestID: p.ID, StepID: step.ID}
			call := recovery.Call{Tool: step.Tool, Args: step.Args}
			result := o.recovery.Execute(ctx, scope, call, func(ctx context.Context, call recovery.Call) (tool.Result, error) {
				return o.executeCall(ctx, p, step.ID, mode, call)
			})
			return result, nil
		}

		if o.quality != nil {
			result, err := o.quality.Run(ctx, inv, run)
			if err != nil {
				return tool.Fail(types.TOOL_EXECUTION_FAILED, err.Error())
			}
			return result
		}

		result, _ := run(ctx, o.stepMode(p, step.ID))
		return result
	}
}

// stepMode picks the execution mode for a step outside the quality loop.
// Pre-confirmed steps run in auto mode so their gates do not pause again.
func (o *Orchestrator) stepMode(p *plan.Plan, stepID string) tool.ExecutionMode {
	if p.StepConfirmed(stepID) {
		return tool.ModeAuto
	}
	return tool.ModeInteractive
}

// executeCall runs one registry call under the configured timeout ceiling.
// A deadline expiry settles as TOOL_TIMEOUT; cancellation of the request
// settles as a cancelled result.
func (o *Orchestrator) executeCall(ctx context.Context, p *plan.Plan, stepID string, mode tool.ExecutionMode, call recovery.Call) (tool.Result, error) {
	if p.StepConfirmed(stepID) {
		mode = tool.ModeAuto
	}

	callCtx, cancel := context.WithTimeout(ctx, o.toolTimeout)
	defer cancel()

	tc := tool.Context{
		RequestID:  p.ID,
		ToolCallID: types.NewID(),
		StepID:     stepID,
		Mode:       mode,
		Progress:   o.progressReporter(p.ID, stepID, call.Tool),
	}

	result, err := o.registry.Execute(callCtx, call.Tool, call.Args, tc)
	if err != nil {
		if ctx.Err() != nil {
			return tool.Cancelled(), nil
		}
		if callCtx.Err() == context.DeadlineExceeded {
			return tool.Fail(types.TOOL_TIMEOUT,
				fmt.Sprintf("tool %q exceeded the %s execution ceiling", call.Tool, o.toolTimeout)), nil
		}
		return tool.Fail(types.TOOL_EXECUTION_FAILED, err.Error()), nil
	}

	if !result.Success && ctx.Err() == nil && callCtx.Err() == context.DeadlineExceeded {
		return tool.Fail(types.TOOL_TIMEOUT,
			fmt.Sprintf("tool %q exceeded the %s execution ceiling", call.Tool, o.toolTimeout)), nil
	}
	return result, nil
}

// progressReporter forwards in-tool progress onto the event bus.
func (o *Orchestrator) progressReporter(requestID types.ID, stepID, toolName string) tool.ProgressFunc {
	if o.bus == nil {
		return nil
	}
	return func(message string, data map[string]any) {
		_ = o.bus.Publish(context.Background(), events.Event{
			Type:      events.EventToolProgress,
			RequestID: requestID,
			StepID:    stepID,
			Tool:      toolName,
			Message:   message,
			Data:      data,
		})
	}
}
