package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreError_Error(t *testing.T) {
	err := NewError(TOOL_NOT_FOUND, "tool \"trim_clip\" is not registered")
	assert.Equal(t, `[TOOL_NOT_FOUND] tool "trim_clip" is not registered`, err.Error())
}

func TestCoreError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := WrapError(TOOL_EXECUTION_FAILED, "analyze_media failed", cause)
	assert.Equal(t, "[TOOL_EXECUTION_FAILED] analyze_media failed: connection reset", err.Error())
}

func TestCoreError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := WrapError(CONFIG_LOAD_FAILED, "cannot read config", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestCoreError_IsMatchesByCode(t *testing.T) {
	a := NewError(TOOL_TIMEOUT, "call exceeded ceiling")
	b := NewError(TOOL_TIMEOUT, "different message")
	c := NewError(TOOL_CANCELLED, "cancelled")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestNewRetryableError(t *testing.T) {
	err := NewRetryableError(TOOL_EXECUTION_FAILED, "transient")
	assert.True(t, err.Retryable)
	assert.False(t, NewError(DAG_CYCLE_DETECTED, "cycle").Retryable)
}

func TestCodeOf(t *testing.T) {
	inner := NewError(WORKFLOW_NOT_FOUND, "no such workflow")
	wrapped := fmt.Errorf("resolving: %w", inner)

	assert.Equal(t, WORKFLOW_NOT_FOUND, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestID_RoundTrip(t *testing.T) {
	id := NewID()
	require.NoError(t, id.Validate())

	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseID_Invalid(t *testing.T) {
	_, err := ParseID("")
	assert.Error(t, err)

	_, err = ParseID("not-a-uuid")
	assert.Error(t, err)
}

func TestID_IsZero(t *testing.T) {
	var id ID
	assert.True(t, id.IsZero())
	assert.False(t, NewID().IsZero())
}
