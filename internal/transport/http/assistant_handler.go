package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "staffpulse/internal/errors"
	mw "staffpulse/internal/middleware"
	"staffpulse/internal/services"
	api "staffpulse/pkg/contracts/api/v1"
)

// AssistantHandler serves report Q&A requests.
type AssistantHandler struct {
	service      *services.AssistantService
	validation   *mw.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(service *services.AssistantService, validation *mw.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AssistantHandler {
	return &AssistantHandler{
		service:      service,
		validation:   validation,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "assistant")),
	}
}

// Ask handles POST /api/reports/{id}/ask.
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req api.AskRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "assistant question received",
		slog.String("request_id", mw.GetReqID(ctx)),
		slog.String("report_id", id),
		slog.Int("question_chars", len(req.Question)))

	answer, err := h.service.Ask(ctx, mw.PrincipalFromContext(ctx), id, req.Question)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": api.AskResponse{
			ReportID:   id,
			Question:   req.Question,
			Answer:     answer,
			AnsweredAt: time.Now().UTC(),
		},
	})
}
