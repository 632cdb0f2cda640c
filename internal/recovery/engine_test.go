package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/events"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/tool"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// scriptedRunner replays canned results per tool, tracking call order.
type scriptedRunner struct {
	results map[string][]tool.Result
	calls   []Call
}

func (r *scriptedRunner) run(ctx context.Context, call Call) (tool.Result, error) {
	r.calls = append(r.calls, call)
	queue := r.results[call.Tool]
	if len(queue) == 0 {
		return tool.OK("done", nil), nil
	}
	next := queue[0]
	r.results[call.Tool] = queue[1:]
	return next, nil
}

func (r *scriptedRunner) toolCalls(name string) int {
	n := 0
	for _, c := range r.calls {
		if c.Tool == name {
			n++
		}
	}
	return n
}

func TestEngine_SuccessPassesThrough(t *testing.T) {
	engine := NewEngine(NewTable(DefaultPolicies()))
	runner := &scriptedRunner{results: map[string][]tool.Result{}}

	result := engine.Execute(context.Background(), Scope{}, Call{Tool: "trim_clip"}, runner.run)
	assert.True(t, result.Success)
	assert.NotContains(t, result.Data, DataRetryCount)
}

func TestEngine_NoTranscriptRecoversThroughPrerequisite(t *testing.T) {
	engine := NewEngine(NewTable(DefaultPolicies()))
	runner := &scriptedRunner{results: map[string][]tool.Result{
		"smart_cut": {
			tool.Fail("NO_TRANSCRIPT", "no transcript available"),
			tool.OK("cut complete", nil),
		},
	}}

	result := engine.Execute(context.Background(), Scope{StepID: "cut-1"},
		Call{Tool: "smart_cut", Args: map[string]any{"target": 60}}, runner.run)

	require.True(t, result.Success)
	assert.Equal(t, 1, result.Data[DataRetryCount])
	assert.Equal(t, 1, runner.toolCalls("generate_captions"))
	assert.Equal(t, 2, runner.toolCalls("smart_cut"))

	// The retry repeats the original arguments.
	last := runner.calls[len(runner.calls)-1]
	assert.Equal(t, 60, last.Args["target"])
}

func TestEngine_NoMatchSurfacesOriginalFailure(t *testing.T) {
	engine := NewEngine(NewTable(DefaultPolicies()))
	runner := &scriptedRunner{results: map[string][]tool.Result{
		"trim_clip": {tool.Fail("UNKNOWN_CODE", "mystery failure")},
	}}

	result := engine.Execute(context.Background(), Scope{}, Call{Tool: "trim_clip"}, runner.run)
	assert.False(t, result.Success)
	assert.Equal(t, types.ErrorCode("UNKNOWN_CODE"), result.ErrorCode())
	assert.Equal(t, 1, runner.toolCalls("trim_clip"))
}

func TestEngine_MaxRetriesNeverExceeded(t *testing.T) {
	const maxRetries = 3
	engine := NewEngine(NewTable([]Policy{
		{Tool: WildcardTool, ErrorCode: "FLAKY", MaxRetries: maxRetries},
	}))

	failures := make([]tool.Result, 10)
	for i := range failures {
		failures[i] = tool.Fail("FLAKY", "still failing")
	}
	runner := &scriptedRunner{results: map[string][]tool.Result{"flaky_tool": failures}}

	result := engine.Execute(context.Background(), Scope{}, Call{Tool: "flaky_tool"}, runner.run)

	assert.False(t, result.Success)
	// Original call plus exactly maxRetries retries.
	assert.Equal(t, maxRetries+1, runner.toolCalls("flaky_tool"))
	assert.Equal(t, maxRetries, result.Data[DataRetryCount])
}

func TestEngine_PrerequisiteFailureAbortsDistinctly(t *testing.T) {
	engine := NewEngine(NewTable(DefaultPolicies()))
	runner := &scriptedRunner{results: map[string][]tool.Result{
		"smart_cut":         {tool.Fail("NO_TRANSCRIPT", "no transcript available")},
		"generate_captions": {tool.Fail("AUDIO_UNREADABLE", "cannot decode audio track")},
	}}

	result := engine.Execute(context.Background(), Scope{}, Call{Tool: "smart_cut"}, runner.run)

	assert.False(t, result.Success)
	assert.Equal(t, types.RECOVERY_PREREQ_FAILED, result.ErrorCode())
	assert.Equal(t, "NO_TRANSCRIPT", result.Data[DataOriginalErrorCode])
	// The original call is not retried after a prerequisite failure.
	assert.Equal(t, 1, runner.toolCalls("smart_cut"))
}

func TestEngine_RetrySubstitutesCall(t *testing.T) {
	engine := NewEngine(NewTable([]Policy{
		{
			Tool:      "export_video",
			ErrorCode: "CODEC_UNSUPPORTED",
			Retry:     &Call{Tool: "export_video", Args: map[string]any{"codec": "h264"}},
			MaxRetries: 1,
		},
	}))
	runner := &scriptedRunner{results: map[string][]tool.Result{
		"export_video": {
			tool.Fail("CODEC_UNSUPPORTED", "av1 not supported"),
			tool.OK("exported", nil),
		},
	}}

	result := engine.Execute(context.Background(), Scope{},
		Call{Tool: "export_video", Args: map[string]any{"codec": "av1"}}, runner.run)

	require.True(t, result.Success)
	last := runner.calls[len(runner.calls)-1]
	assert.Equal(t, "h264", last.Args["codec"])
}

func TestEngine_CancelledNeverRetried(t *testing.T) {
	engine := NewEngine(NewTable([]Policy{
		{Tool: WildcardTool, ErrorCode: types.TOOL_CANCELLED, MaxRetries: 3},
	}))
	runner := &scriptedRunner{results: map[string][]tool.Result{
		"trim_clip": {tool.Cancelled()},
	}}

	result := engine.Execute(context.Background(), Scope{}, Call{Tool: "trim_clip"}, runner.run)

	assert.True(t, result.IsCancelled())
	assert.Equal(t, 1, runner.toolCalls("trim_clip"))
}

func TestEngine_PausedPassesThrough(t *testing.T) {
	engine := NewEngine(NewTable(DefaultPolicies()))
	runner := &scriptedRunner{results: map[string][]tool.Result{
		"delete_range": {tool.Paused("delete-range", "confirm deletion")},
	}}

	result := engine.Execute(context.Background(), Scope{}, Call{Tool: "delete_range"}, runner.run)
	assert.True(t, result.IsPaused())
}

func TestEngine_DelayObservesCancellation(t *testing.T) {
	engine := NewEngine(NewTable([]Policy{
		{Tool: WildcardTool, ErrorCode: "FLAKY", Delay: 10 * time.Second, MaxRetries: 1},
	}))
	runner := &scriptedRunner{results: map[string][]tool.Result{
		"flaky_tool": {tool.Fail("FLAKY", "still failing")},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	result := engine.Execute(ctx, Scope{}, Call{Tool: "flaky_tool"}, runner.run)

	assert.True(t, result.IsCancelled())
	assert.Less(t, time.Since(start), time.Second, "delay must not be waited out after cancellation")
}

func TestEngine_EmitsPhaseEvents(t *testing.T) {
	bus := events.NewBus(32)
	defer bus.Close()
	ch, cleanup := bus.Subscribe(context.Background(), events.Filter{}, 32)
	defer cleanup()

	engine := NewEngine(NewTable(DefaultPolicies()), WithEventBus(bus))
	runner := &scriptedRunner{results: map[string][]tool.Result{
		"smart_cut": {
			tool.Fail("NO_TRANSCRIPT", "no transcript available"),
			tool.OK("cut complete", nil),
		},
	}}

	requestID := types.NewID()
	result := engine.Execute(context.Background(), Scope{RequestID: requestID, StepID: "cut-1"},
		Call{Tool: "smart_cut"}, runner.run)
	require.True(t, result.Success)

	want := []events.EventType{
		events.EventRecoveryDecision,
		events.EventRecoveryPrereqStarted,
		events.EventRecoveryPrereqCompleted,
		events.EventRecoveryRetrying,
	}
	var seen []events.EventType
	deadline := time.After(time.Second)
	for len(seen) < len(want) {
		select {
		case event := <-ch:
			assert.Equal(t, requestID, event.RequestID)
			seen = append(seen, event.Type)
		case <-deadline:
			t.Fatalf("timed out, saw %v", seen)
		}
	}
	assert.Equal(t, want, seen)
}
