package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for hypercut errors.
// Codes are machine-readable so callers can offer targeted remediation
// (e.g. "run caption generation first").
type ErrorCode string

// Graph construction error codes. Structural errors are programming errors,
// fatal to the request, and never eligible for recovery.
const (
	DAG_CYCLE_DETECTED     ErrorCode = "DAG_CYCLE_DETECTED"
	DAG_DUPLICATE_STEP     ErrorCode = "DAG_DUPLICATE_STEP"
	DAG_UNKNOWN_DEPENDENCY ErrorCode = "DAG_UNKNOWN_DEPENDENCY"
)

// Scheduling error codes.
const (
	// SCHED_DEADLOCK indicates pending nodes with nothing running and nothing
	// ready. It is an internal invariant violation, never a user-facing error.
	SCHED_DEADLOCK ErrorCode = "SCHED_DEADLOCK"
)

// Tool execution error codes.
const (
	TOOL_NOT_FOUND        ErrorCode = "TOOL_NOT_FOUND"
	TOOL_EXECUTION_FAILED ErrorCode = "TOOL_EXECUTION_FAILED"
	TOOL_TIMEOUT          ErrorCode = "TOOL_TIMEOUT"
	TOOL_CANCELLED        ErrorCode = "TOOL_CANCELLED"
)

// Recovery and quality error codes.
const (
	RECOVERY_PREREQ_FAILED    ErrorCode = "RECOVERY_PREREQ_FAILED"
	QUALITY_THRESHOLD_NOT_MET ErrorCode = "QUALITY_THRESHOLD_NOT_MET"
)

// Workflow resolution error codes.
const (
	WORKFLOW_NOT_FOUND        ErrorCode = "WORKFLOW_NOT_FOUND"
	WORKFLOW_OVERRIDE_INVALID ErrorCode = "WORKFLOW_OVERRIDE_INVALID"
)

// Orchestrator error codes.
const (
	ORCH_BUSY                ErrorCode = "ORCH_BUSY"
	ORCH_NO_PENDING_PLAN     ErrorCode = "ORCH_NO_PENDING_PLAN"
	ORCH_NO_ACTIVE_EXECUTION ErrorCode = "ORCH_NO_ACTIVE_EXECUTION"
	ORCH_PLAN_FAILED         ErrorCode = "ORCH_PLAN_FAILED"
)

// Configuration error codes.
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// CoreError represents a structured error with error code, message, and
// optional cause. It supports error wrapping and retryability hints for
// the recovery policy engine.
type CoreError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
func (e *CoreError) Is(target error) bool {
	var coreErr *CoreError
	if errors.As(target, &coreErr) {
		return e.Code == coreErr.Code
	}
	return false
}

// NewError creates a new non-retryable CoreError with the given code and message.
func NewError(code ErrorCode, message string) *CoreError {
	return &CoreError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a new retryable CoreError with the given code and
// message. Use this for transient errors that may succeed on retry.
func NewRetryableError(code ErrorCode, message string) *CoreError {
	return &CoreError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// WrapError creates a new non-retryable CoreError that wraps an existing error.
func WrapError(code ErrorCode, message string, cause error) *CoreError {
	return &CoreError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns an empty code if the chain contains no CoreError.
func CodeOf(err error) ErrorCode {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	return ""
}
