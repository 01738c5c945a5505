package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Problem type URIs following RFC 7807. Statuses with no constant here get
// a URI derived from their standard status text.
const (
	TypeValidation = "/errors/validation"
	TypeNotFound   = "/errors/not-found"
	TypeForbidden  = "/errors/forbidden"
	TypeRateLimit  = "/errors/rate-limit"
	TypeTimeout    = "/errors/timeout"
	TypeInternal   = "/errors/internal"
	TypeUpstream   = "/errors/upstream-unavailable"
)

// Problem types for workbook-domain failures.
const (
	TypeReportNotFound     = "/errors/report/not-found"
	TypeSheetNotFound      = "/errors/report/sheet-not-found"
	TypeWorkbookUnreadable = "/errors/report/unreadable-workbook"
)

// ErrorHandler turns errors into RFC 7807 problem responses. One instance
// is shared by every HTTP handler so all failures log and render the same
// way.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates an error handler. Stack traces are attached to
// responses only when includeStack is set, which production config leaves
// off.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs err and writes it as a problem response. A nil err
// writes nothing.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)
	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	// Throttled requests carry their back-off hint as a header too.
	if problem.Status == http.StatusTooManyRequests {
		if secs, ok := problem.Extensions["retry_after_seconds"].(int); ok && secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
	}

	render.Render(w, r, problem)
}

// ErrorToProblem maps err onto RFC 7807 problem details. Typed errors map
// by their type; everything else becomes a generic 500 so internals never
// leak into responses.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return h.appErrorToProblem(appErr, r)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

// apiErrorToProblem renders a transport-level APIError. The status was
// decided by whoever built the error; only the problem type and extensions
// are filled in here.
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := typeForStatus(apiErr.StatusCode)
	switch apiErr.ErrorCode {
	case CodeValidationFailed, CodeInvalidRequest:
		problemType = TypeValidation
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// appErrorToProblem renders a service-layer AppError. The error type picks
// the status; context entries become extensions.
func (h *ErrorHandler) appErrorToProblem(appErr *AppError, r *http.Request) *ProblemDetails {
	status := http.StatusInternalServerError
	problemType := TypeInternal

	switch appErr.Type {
	case ErrTypeValidation:
		status = http.StatusBadRequest
		problemType = TypeValidation

	case ErrTypeNotFound:
		status = http.StatusNotFound
		problemType = TypeNotFound
		switch appErr.Context["resource"] {
		case "report":
			problemType = TypeReportNotFound
		case "sheet":
			problemType = TypeSheetNotFound
		}

	case ErrTypePermission:
		status = http.StatusForbidden
		problemType = TypeForbidden

	case ErrTypeParsing:
		status = http.StatusUnprocessableEntity
		problemType = TypeWorkbookUnreadable

	case ErrTypeRateLimit:
		status = http.StatusTooManyRequests
		problemType = TypeRateLimit

	case ErrTypeExternal, ErrTypeNetwork:
		status = http.StatusBadGateway
		problemType = TypeUpstream
	}

	problem := NewProblemDetails(
		status,
		problemType,
		http.StatusText(status),
		appErr.Message,
		r.URL.Path,
	).WithExtension("error_type", string(appErr.Type))

	for k, v := range appErr.Context {
		problem.WithExtension(k, v)
	}

	return problem
}

// NotFound is the router's fallback for unknown paths.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed is the router's fallback for known paths hit with the
// wrong verb.
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		typeForStatus(http.StatusMethodNotAllowed),
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// typeForStatus derives a problem type URI from the standard status text,
// e.g. 413 becomes /errors/request-entity-too-large.
func typeForStatus(status int) string {
	title := http.StatusText(status)
	if title == "" {
		return TypeInternal
	}
	return "/errors/" + strings.ReplaceAll(strings.ToLower(title), " ", "-")
}

// getStackTrace captures the current goroutine's stack.
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
