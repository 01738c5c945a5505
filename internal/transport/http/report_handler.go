package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/samber/lo"

	apierrors "staffpulse/internal/errors"
	mw "staffpulse/internal/middleware"
	"staffpulse/internal/pipeline"
	"staffpulse/internal/services"
	"staffpulse/internal/store"
	api "staffpulse/pkg/contracts/api/v1"
)

// uploadFieldName is the multipart form field carrying the workbook.
const uploadFieldName = "file"

// ReportHandler handles the report resource: upload, retrieval, listing,
// deletion and CSV export.
type ReportHandler struct {
	service        *services.ReportService
	query          *mw.QueryParamValidator
	errorHandler   *apierrors.ErrorHandler
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewReportHandler creates a new report handler.
func NewReportHandler(service *services.ReportService, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:        service,
		query:          mw.NewQueryParamValidator(logger, errorHandler),
		errorHandler:   errorHandler,
		logger:         logger.With(slog.String("handler", "report")),
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the report CRUD routes. The nested insight and ask routes
// are wired by the application router alongside these.
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.Upload)
	r.Get("/", h.List)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Get("/export", h.Export)
	})

	return r
}

// Upload handles POST /api/reports. The workbook arrives either as a
// multipart form (field "file") or as a raw body with the file name in the
// X-File-Name header.
func (h *ReportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := mw.GetReqID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	fileName, data, err := readUploadBody(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge,
				apierrors.CodePayloadTooLarge,
				"Workbook exceeds the upload size limit",
				map[string]interface{}{"max_bytes": h.maxUploadBytes},
			))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "processing upload",
		slog.String("request_id", reqID),
		slog.String("file_name", fileName),
		slog.Int("bytes", len(data)))

	result, err := h.service.Upload(ctx, mw.PrincipalFromContext(ctx), fileName, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "upload failed",
			slog.String("request_id", reqID),
			slog.String("file_name", fileName),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   uploadResponse(result),
	})
}

// List handles GET /api/reports with limit/offset paging.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, ok := h.query.ValidateInt(w, r, "limit", 1, 200, store.DefaultListLimit)
	if !ok {
		return
	}
	offset, ok := h.query.ValidateInt(w, r, "offset", 0, 1<<30, 0)
	if !ok {
		return
	}

	summaries, total, err := h.service.List(ctx, limit, offset)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list reports",
			slog.String("request_id", mw.GetReqID(ctx)),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": api.ReportPage{
			Reports: summaries,
			Total:   total,
			Limit:   limit,
			Offset:  offset,
		},
		"count": len(summaries),
	})
}

// Get handles GET /api/reports/{id}. The response carries only the sheets
// the caller's principal may see.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	report, err := h.service.Get(ctx, mw.PrincipalFromContext(ctx), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   report,
	})
}

// Delete handles DELETE /api/reports/{id}.
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(ctx, mw.PrincipalFromContext(ctx), id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"id": id},
	})
}

// Export handles GET /api/reports/{id}/export, streaming the caller's view
// of the report as a CSV attachment.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	fileName, data, err := h.service.ExportCSV(ctx, mw.PrincipalFromContext(ctx), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		h.logger.WarnContext(ctx, "export write interrupted",
			slog.String("report_id", id),
			slog.String("error", err.Error()))
	}
}

// readUploadBody extracts the workbook name and bytes from the request.
func readUploadBody(r *http.Request) (string, []byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile(uploadFieldName)
		if err != nil {
			return "", nil, fmt.Errorf("multipart field %q is required: %w", uploadFieldName, err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		return header.Filename, data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}

	fileName := r.Header.Get("X-File-Name")
	if fileName == "" {
		fileName = r.URL.Query().Get("filename")
	}
	if fileName == "" {
		return "", nil, errors.New("file name is required (X-File-Name header or filename query parameter)")
	}
	return fileName, data, nil
}

// uploadResponse reduces a pipeline result to the upload response DTO.
func uploadResponse(result *pipeline.Result) api.UploadResponse {
	report := result.Report

	return api.UploadResponse{
		ReportID:   report.ID,
		FileName:   report.FileName,
		WeekNumber: report.WeekNumber,
		SheetCount: len(report.Sheets),
		WeekCount:  report.WeekCount(),
		PipelineID: result.PipelineID,
		DurationMS: result.Duration.Milliseconds(),
		Stages: lo.Map(result.Stages, func(s pipeline.StageSnapshot, _ int) api.StageState {
			return api.StageState{
				ID:         s.ID,
				Name:       s.Name,
				Status:     string(s.Status),
				DurationMS: s.Duration.Milliseconds(),
			}
		}),
	}
}
