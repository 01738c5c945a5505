package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageErrorFormat(t *testing.T) {
	cause := errors.New("file too large")

	err := NewValidationError("validate", cause)
	assert.Equal(t, "[validation] validate: file too large", err.Error())

	err = NewExecutionError("persist", cause)
	assert.Equal(t, "[execution] persist: stage execution failed", err.Error())

	err = NewCancellationError("extract", cause)
	assert.Equal(t, "[cancelled] extract: pipeline run was cancelled", err.Error())

	noStage := &StageError{Type: ErrorTypeExecution, Message: "broken"}
	assert.Equal(t, "[execution] broken", noStage.Error())

	var nilErr *StageError
	assert.Equal(t, "unknown pipeline error", nilErr.Error())
}

func TestStageErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewExecutionError("persist", cause)

	assert.ErrorIs(t, err, cause)

	// Wrapping the stage error keeps both layers reachable.
	wrapped := fmt.Errorf("run failed: %w", err)
	var stageErr *StageError
	require.ErrorAs(t, wrapped, &stageErr)
	assert.Equal(t, "persist", stageErr.Stage)
	assert.ErrorIs(t, wrapped, cause)
}

func TestGetErrorType(t *testing.T) {
	cause := errors.New("boom")

	assert.Equal(t, ErrorType(""), GetErrorType(nil))
	assert.Equal(t, ErrorTypeValidation, GetErrorType(NewValidationError("validate", cause)))
	assert.Equal(t, ErrorTypeExecution, GetErrorType(NewExecutionError("extract", cause)))
	assert.Equal(t, ErrorTypeCancelled, GetErrorType(NewCancellationError("persist", cause)))
	assert.Equal(t, ErrorTypeExecution, GetErrorType(cause), "plain errors classify as execution")
	assert.Equal(t, ErrorTypeCancelled, GetErrorType(fmt.Errorf("outer: %w", NewCancellationError("analyze", cause))))
}
