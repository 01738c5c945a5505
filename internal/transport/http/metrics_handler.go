package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// MetricsHandler exposes the Prometheus scrape endpoint backed by the OTel
// meter provider's exporter.
type MetricsHandler struct {
	exposition http.Handler
}

// NewMetricsHandler creates a new metrics handler. A nil exposition handler
// (metrics disabled by configuration) answers 404 on the scrape path.
func NewMetricsHandler(exposition http.Handler) *MetricsHandler {
	return &MetricsHandler{exposition: exposition}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Expose)
	return r
}

// Expose handles GET /metrics.
func (h *MetricsHandler) Expose(w http.ResponseWriter, r *http.Request) {
	if h.exposition == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]interface{}{
			"status": "error",
			"error":  "metrics exposition is disabled",
		})
		return
	}
	h.exposition.ServeHTTP(w, r)
}
