package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	assert.Equal(t, "Invalid request format", err.Error())
}

func TestNew(t *testing.T) {
	err := New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Workbook exceeds the upload size limit")

	assert.Equal(t, http.StatusRequestEntityTooLarge, err.StatusCode)
	assert.Equal(t, CodePayloadTooLarge, err.ErrorCode)
	assert.Equal(t, "Workbook exceeds the upload size limit", err.Message)
	assert.Nil(t, err.Details)
}

func TestNewWithDetails(t *testing.T) {
	details := map[string]interface{}{"max_bytes": int64(20 << 20)}
	err := NewWithDetails(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Workbook exceeds the upload size limit", details)

	assert.Equal(t, http.StatusRequestEntityTooLarge, err.StatusCode)
	assert.Equal(t, details, err.Details)
}

func TestAPIError_Render(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/reports", nil)

	require.NoError(t, render.Render(w, r, ErrValidation("file", "file field is required")))

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, CodeValidationFailed, body["error_code"])
	assert.Equal(t, "Request validation failed", body["message"])
}

func TestInvalidRequestWithError(t *testing.T) {
	err := InvalidRequestWithError(fmt.Errorf("unexpected end of JSON input"))

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, CodeInvalidRequest, err.ErrorCode)
	assert.Equal(t, "unexpected end of JSON input", err.Details)
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("question", "question must be at least 3 characters")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, CodeValidationFailed, err.ErrorCode)

	detail, ok := err.Details.(ValidationError)
	require.True(t, ok, "details should carry the rejected field")
	assert.Equal(t, "question", detail.Field)
	assert.Equal(t, "question must be at least 3 characters", detail.Message)
}

func TestNewValidationErrors(t *testing.T) {
	fields := []ValidationError{
		{Field: "question", Message: "question is required"},
		{Field: "sheet_name", Message: "sheet_name contains invalid characters"},
	}

	err := NewValidationErrors(fields)

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, CodeValidationFailed, err.ErrorCode)

	details, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, details.Errors, 2)
	assert.Equal(t, "question", details.Errors[0].Field)
	assert.Equal(t, "sheet_name", details.Errors[1].Field)
}
