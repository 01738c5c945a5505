package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffpulse/internal/assistant"
)

func askRequest(id, body string) *http.Request {
	req := httptest.NewRequest("POST", fmt.Sprintf("/api/reports/%s/ask", id), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAssistantHandler_Ask(t *testing.T) {
	env := newTestEnv(t, &fixedAuthz{})
	id := env.saveReport(t)
	env.assistant.Answer = "Revenue grew 40% against the prior week."

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, askRequest(id, `{"question":"How did revenue develop this week?"}`))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeEnvelope(t, w.Body.Bytes())
	assert.Equal(t, "success", resp["status"])

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, id, data["report_id"])
	assert.Equal(t, "How did revenue develop this week?", data["question"])
	assert.Equal(t, "Revenue grew 40% against the prior week.", data["answer"])
	assert.NotEmpty(t, data["answered_at"])

	calls := env.assistant.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Context, "Company Total")
}

func TestAssistantHandler_Ask_InvalidJSON(t *testing.T) {
	env := newTestEnv(t, &fixedAuthz{})
	id := env.saveReport(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, askRequest(id, `{"question":`))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.assistant.Calls())
}

func TestAssistantHandler_Ask_QuestionTooShort(t *testing.T) {
	env := newTestEnv(t, &fixedAuthz{})
	id := env.saveReport(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, askRequest(id, `{"question":"hi"}`))

	require.Equal(t, http.StatusBadRequest, w.Code)

	problem := decodeEnvelope(t, w.Body.Bytes())
	assert.Equal(t, "/errors/validation", problem["type"])
	assert.Empty(t, env.assistant.Calls())
}

func TestAssistantHandler_Ask_ReportNotFound(t *testing.T) {
	env := newTestEnv(t, &fixedAuthz{})

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, askRequest("0a97f238-1d6d-4a6a-9c75-6f7f6b1f98af", `{"question":"Anything to flag?"}`))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, env.assistant.Calls())
}

func TestAssistantHandler_Ask_RateLimited(t *testing.T) {
	env := newTestEnv(t, &fixedAuthz{})
	id := env.saveReport(t)
	env.assistant.Err = &assistant.RateLimitError{RetryAfter: 30 * time.Second}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, askRequest(id, `{"question":"Anything to flag?"}`))

	require.Equal(t, http.StatusTooManyRequests, w.Code)

	problem := decodeEnvelope(t, w.Body.Bytes())
	assert.Equal(t, "/errors/rate-limit", problem["type"])
	assert.Equal(t, float64(30), problem["retry_after_seconds"])
}
