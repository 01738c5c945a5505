package pipeline

import (
	"errors"
	"fmt"
)

// ErrorType classifies what went wrong in a stage.
type ErrorType string

const (
	// ErrorTypeValidation means the upload itself was rejected; the
	// caller's input is at fault, not the service.
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeExecution means a stage failed doing its work.
	ErrorTypeExecution ErrorType = "execution"

	// ErrorTypeCancelled means the request context ended the run.
	ErrorTypeCancelled ErrorType = "cancelled"
)

// StageError is the error every failed run returns.
type StageError struct {
	Type    ErrorType `json:"type"`
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e == nil {
		return "unknown pipeline error"
	}
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Stage, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error so callers can match against the
// failing package's own error types.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewValidationError reports a rejected upload.
func NewValidationError(stage string, cause error) *StageError {
	return &StageError{
		Type:    ErrorTypeValidation,
		Stage:   stage,
		Message: cause.Error(),
		Cause:   cause,
	}
}

// NewExecutionError reports a stage that failed doing its work.
func NewExecutionError(stage string, cause error) *StageError {
	return &StageError{
		Type:    ErrorTypeExecution,
		Stage:   stage,
		Message: "stage execution failed",
		Cause:   cause,
	}
}

// NewCancellationError reports a run ended by its context.
func NewCancellationError(stage string, cause error) *StageError {
	return &StageError{
		Type:    ErrorTypeCancelled,
		Stage:   stage,
		Message: "pipeline run was cancelled",
		Cause:   cause,
	}
}

// GetErrorType returns the classification of err, defaulting to execution
// for errors that did not come from a stage.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Type
	}
	return ErrorTypeExecution
}
