package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffpulse/internal/authz"
)

func TestInsightHandler_SheetInsights(t *testing.T) {
	env := newTestEnv(t, &fixedAuthz{})
	id := env.saveReport(t)

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/reports/%s/sheets/Company%%20Total/insights", id), nil)
	w := httptest.NewRecorder()

	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeEnvelope(t, w.Body.Bytes())
	assert.Equal(t, "success", resp["status"])

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "Company Total", data["sheet_name"])

	findings := data["findings"].([]interface{})
	require.NotEmpty(t, findings)

	titles := make([]string, 0, len(findings))
	for _, raw := range findings {
		titles = append(titles, raw.(map[string]interface{})["title"].(string))
	}
	assert.Contains(t, titles, "Revenue Growth")
	assert.Contains(t, titles, "Margin Improvement")

	metrics := data["metrics"].(map[string]interface{})
	assert.InDelta(t, 40.0, metrics["revenue_growth_rate"].(float64), 0.01)
}

func TestInsightHandler_UnknownSheet(t *testing.T) {
	env := newTestEnv(t, &fixedAuthz{})
	id := env.saveReport(t)

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/reports/%s/sheets/Contract%%20Division/insights", id), nil)
	w := httptest.NewRecorder()

	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/errors/not-found", decodeEnvelope(t, w.Body.Bytes())["type"])
}

func TestInsightHandler_HiddenSheet(t *testing.T) {
	env := newTestEnv(t, &fixedAuthz{sheets: authz.NewSheetSet("Perm Division")})
	id := env.saveReport(t)

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/reports/%s/sheets/Company%%20Total/insights", id), nil)
	req.Header.Set("Authorization", "Bearer tester.secret")
	w := httptest.NewRecorder()

	env.router.ServeHTTP(w, req)

	// Indistinguishable from a sheet that does not exist.
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/errors/not-found", decodeEnvelope(t, w.Body.Bytes())["type"])
}

func TestInsightHandler_ReportNotFound(t *testing.T) {
	env := newTestEnv(t, &fixedAuthz{})

	req := httptest.NewRequest("GET", "/api/reports/0a97f238-1d6d-4a6a-9c75-6f7f6b1f98af/sheets/Company%20Total/insights", nil)
	w := httptest.NewRecorder()

	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}
