package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "staffpulse/internal/errors"
	mw "staffpulse/internal/middleware"
	"staffpulse/internal/services"
)

// InsightHandler serves on-demand sheet analytics.
type InsightHandler struct {
	service      *services.InsightService
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewInsightHandler creates a new insight handler.
func NewInsightHandler(service *services.InsightService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *InsightHandler {
	return &InsightHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "insight")),
	}
}

// SheetInsights handles GET /api/reports/{id}/sheets/{name}/insights.
func (h *InsightHandler) SheetInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	sheetName := sheetNameParam(r)
	if sheetName == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("name", "Sheet name is required"))
		return
	}

	insights, err := h.service.SheetInsights(ctx, mw.PrincipalFromContext(ctx), id, sheetName)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(ctx, "sheet insights served",
		slog.String("request_id", mw.GetReqID(ctx)),
		slog.String("report_id", id),
		slog.String("sheet", sheetName),
		slog.Int("findings", len(insights.Findings)))

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   insights,
	})
}

// sheetNameParam reads the sheet name path segment. Sheet names carry
// spaces, so the segment arrives percent-encoded.
func sheetNameParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
