package tool

import (
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// Well-known keys in Result.Data. The scheduler inspects only these markers;
// everything else in Data is an opaque domain payload.
const (
	// DataErrorCode carries the machine-readable error code of a failure.
	DataErrorCode = "error_code"

	// DataPaused marks a result as awaiting confirmation. The scheduler
	// halts admission of new nodes and the walk returns early.
	DataPaused = "awaiting_confirmation"

	// DataCancelled marks a result as cancelled. Cancellation is a terminal
	// status, not an error.
	DataCancelled = "cancelled"

	// DataPausedStep names the step whose confirmation gate triggered the pause.
	DataPausedStep = "paused_step"

	// DataQualityReport carries the quality report attached by the quality loop.
	DataQualityReport = "quality_report"

	// DataQualityReports carries all accumulated reports when the quality
	// iteration budget is exhausted.
	DataQualityReports = "quality_reports"
)

// Result is the outcome of a single tool execution.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// OK builds a successful result.
func OK(message string, data map[string]any) Result {
	return Result{Success: true, Message: message, Data: data}
}

// Fail builds a failed result carrying a machine-readable error code.
func Fail(code types.ErrorCode, message string) Result {
	return Result{
		Success: false,
		Message: message,
		Data:    map[string]any{DataErrorCode: string(code)},
	}
}

// Paused builds a successful-so-far result that halts the scheduler until
// the named step is confirmed.
func Paused(stepID, message string) Result {
	return Result{
		Success: false,
		Message: message,
		Data: map[string]any{
			DataPaused:     true,
			DataPausedStep: stepID,
		},
	}
}

// Cancelled builds a result recording cooperative cancellation.
func Cancelled() Result {
	return Result{
		Success: false,
		Message: "operation cancelled",
		Data: map[string]any{
			DataCancelled: true,
			DataErrorCode: string(types.TOOL_CANCELLED),
		},
	}
}

// ErrorCode extracts the machine-readable error code from a failed result.
// Returns TOOL_EXECUTION_FAILED when a failure carries no explicit code.
func (r Result) ErrorCode() types.ErrorCode {
	if r.Success {
		return ""
	}
	if r.Data != nil {
		if code, ok := r.Data[DataErrorCode].(string); ok && code != "" {
			return types.ErrorCode(code)
		}
	}
	return types.TOOL_EXECUTION_FAILED
}

// IsPaused reports whether the result carries the awaiting-confirmation marker.
func (r Result) IsPaused() bool {
	if r.Data == nil {
		return false
	}
	paused, ok := r.Data[DataPaused].(bool)
	return ok && paused
}

// PausedStep returns the step named by a paused result, if any.
func (r Result) PausedStep() string {
	if r.Data == nil {
		return ""
	}
	step, _ := r.Data[DataPausedStep].(string)
	return step
}

// IsCancelled reports whether the result carries the cancelled marker.
func (r Result) IsCancelled() bool {
	if r.Data == nil {
		return false
	}
	cancelled, ok := r.Data[DataCancelled].(bool)
	return ok && cancelled
}

// WithData returns a copy of the result with an extra Data entry set.
func (r Result) WithData(key string, value any) Result {
	data := make(map[string]any, len(r.Data)+1)
	for k, v := range r.Data {
		data[k] = v
	}
	data[key] = value
	r.Data = data
	return r
}
