package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeReportNotFound,
		"Not Found",
		"report not found",
		"/api/reports/r-42",
	).WithExtension("resource", "report")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, TypeReportNotFound, got["type"])
	assert.Equal(t, "Not Found", got["title"])
	assert.Equal(t, float64(http.StatusNotFound), got["status"])
	assert.Equal(t, "report not found", got["detail"])
	assert.Equal(t, "/api/reports/r-42", got["instance"])
	assert.Equal(t, "report", got["resource"], "extensions should flatten into the body")
}

func TestProblemDetails_MarshalJSON_OmitsEmptyFields(t *testing.T) {
	problem := NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error", "", "")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.NotContains(t, got, "detail")
	assert.NotContains(t, got, "instance")
}

func TestProblemDetails_Render(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/reports/r-42", nil)

	problem := NewProblemDetails(
		http.StatusUnprocessableEntity,
		TypeWorkbookUnreadable,
		"Unprocessable Entity",
		"workbook could not be decoded",
		r.URL.Path,
	)

	require.NoError(t, render.Render(w, r, problem))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, TypeWorkbookUnreadable, got["type"])
}
