package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// fakeTool is a minimal Tool for registry tests.
type fakeTool struct {
	name    string
	execute func(ctx context.Context, args map[string]any, tc Context) (Result, error)
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake tool for tests" }

func (f *fakeTool) Execute(ctx context.Context, args map[string]any, tc Context) (Result, error) {
	if f.execute != nil {
		return f.execute(ctx, args, tc)
	}
	return OK("done", nil), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(&fakeTool{name: "trim_clip"}))

	got, err := registry.Get("trim_clip")
	require.NoError(t, err)
	assert.Equal(t, "trim_clip", got.Name())
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(&fakeTool{name: "trim_clip"}))
	assert.Error(t, registry.Register(&fakeTool{name: "trim_clip"}))
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	registry := NewRegistry()

	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&fakeTool{name: ""}))
}

func TestRegistry_GetUnknown(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("missing")
	require.Error(t, err)
	assert.Equal(t, types.TOOL_NOT_FOUND, types.CodeOf(err))
}

func TestRegistry_ExecuteUnknownToolReturnsFailedResult(t *testing.T) {
	registry := NewRegistry()

	result, err := registry.Execute(context.Background(), "missing", nil, Context{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, types.TOOL_NOT_FOUND, result.ErrorCode())
}

func TestRegistry_ExecuteRecordsMetrics(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeTool{
		name: "analyze_media",
		execute: func(ctx context.Context, args map[string]any, tc Context) (Result, error) {
			return Fail(types.TOOL_EXECUTION_FAILED, "decode error"), nil
		},
	}))

	_, err := registry.Execute(context.Background(), "analyze_media", nil, Context{})
	require.NoError(t, err)
	_, err = registry.Execute(context.Background(), "analyze_media", nil, Context{})
	require.NoError(t, err)

	m, err := registry.Metrics("analyze_media")
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.Calls)
	assert.Equal(t, int64(2), m.Failures)
}

func TestRegistry_ListSorted(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeTool{name: "trim_clip"}))
	require.NoError(t, registry.Register(&fakeTool{name: "analyze_media"}))
	require.NoError(t, registry.Register(&fakeTool{name: "generate_captions"}))

	descriptors := registry.List()
	require.Len(t, descriptors, 3)
	assert.Equal(t, "analyze_media", descriptors[0].Name)
	assert.Equal(t, "generate_captions", descriptors[1].Name)
	assert.Equal(t, "trim_clip", descriptors[2].Name)
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeTool{name: "trim_clip"}))
	require.NoError(t, registry.Unregister("trim_clip"))

	_, err := registry.Get("trim_clip")
	assert.Error(t, err)
	assert.Error(t, registry.Unregister("trim_clip"))
}

func TestResult_Markers(t *testing.T) {
	ok := OK("trimmed", map[string]any{"duration": 42.0})
	assert.True(t, ok.Success)
	assert.Equal(t, types.ErrorCode(""), ok.ErrorCode())
	assert.False(t, ok.IsPaused())
	assert.False(t, ok.IsCancelled())

	failed := Fail(types.TOOL_TIMEOUT, "exceeded ceiling")
	assert.False(t, failed.Success)
	assert.Equal(t, types.TOOL_TIMEOUT, failed.ErrorCode())

	uncoded := Result{Success: false, Message: "bare failure"}
	assert.Equal(t, types.TOOL_EXECUTION_FAILED, uncoded.ErrorCode())

	paused := Paused("delete-range", "confirm before deleting 3 clips")
	assert.True(t, paused.IsPaused())
	assert.Equal(t, "delete-range", paused.PausedStep())

	cancelled := Cancelled()
	assert.True(t, cancelled.IsCancelled())
	assert.Equal(t, types.TOOL_CANCELLED, cancelled.ErrorCode())
}

func TestResult_WithDataDoesNotMutateOriginal(t *testing.T) {
	original := OK("done", map[string]any{"a": 1})
	annotated := original.WithData("b", 2)

	assert.NotContains(t, original.Data, "b")
	assert.Equal(t, 2, annotated.Data["b"])
	assert.Equal(t, 1, annotated.Data["a"])
}

func TestAnalysisCache(t *testing.T) {
	cache := NewAnalysisCache()

	_, ok := cache.Get("asset-1")
	assert.False(t, ok)

	cache.Put("asset-1", map[string]any{"scenes": 12})
	entry, ok := cache.Get("asset-1")
	require.True(t, ok)
	assert.Equal(t, 12, entry.Data["scenes"])
	assert.Equal(t, 1, cache.Len())

	cache.Invalidate("asset-1")
	_, ok = cache.Get("asset-1")
	assert.False(t, ok)
	cache.Invalidate("asset-1")
	assert.Equal(t, 0, cache.Len())
}
