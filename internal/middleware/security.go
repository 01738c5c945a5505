package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"staffpulse/internal/authz"
	"staffpulse/internal/infrastructure"
)

// PrincipalResolver resolves API tokens from the Authorization header into
// principal names. Resolution is tolerant of missing credentials so that an
// unprovisioned directory keeps the API open; role enforcement happens in
// RequireRole on the routes that need it.
type PrincipalResolver struct {
	authorizer authz.Authorizer
	logger     *slog.Logger
}

// NewPrincipalResolver creates the resolver middleware.
func NewPrincipalResolver(authorizer authz.Authorizer, logger *slog.Logger) *PrincipalResolver {
	return &PrincipalResolver{
		authorizer: authorizer,
		logger:     logger,
	}
}

// Handler resolves the bearer token and stores the principal in the request
// context. Requests with a token that matches no enabled directory entry are
// rejected with 401.
func (pr *PrincipalResolver) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal, err := pr.authorizer.Identify(ctx, bearerToken(r))
		if err != nil {
			pr.logger.WarnContext(ctx, "authentication failed",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			problem := ProblemFromStatus(
				http.StatusUnauthorized,
				"Invalid or missing API token",
				infrastructure.GetTraceID(ctx),
			)
			problem.Render(w, r)
			return
		}

		if principal != "" {
			pr.logger.DebugContext(ctx, "principal resolved",
				"principal", principal,
				"method", r.Method,
				"path", r.URL.Path,
			)
		}

		ctx = context.WithValue(ctx, PrincipalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole guards a route group with a role check against the directory.
// An unprovisioned directory allows everything.
func (pr *PrincipalResolver) RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal := PrincipalFromContext(ctx)

			allowed, err := pr.authorizer.Allowed(ctx, principal, role)
			if err != nil {
				status := http.StatusInternalServerError
				detail := "Authorization check failed"
				if errors.Is(err, authz.ErrUnknownPrincipal) {
					status = http.StatusUnauthorized
					detail = "Unknown principal"
				}

				pr.logger.WarnContext(ctx, "authorization check failed",
					"error", err,
					"principal", principal,
					"role", role,
					"path", r.URL.Path,
				)

				problem := ProblemFromStatus(status, detail, infrastructure.GetTraceID(ctx))
				problem.Render(w, r)
				return
			}

			if !allowed {
				pr.logger.WarnContext(ctx, "role denied",
					"principal", principal,
					"role", role,
					"method", r.Method,
					"path", r.URL.Path,
				)

				problem := ProblemFromStatus(
					http.StatusForbidden,
					"Insufficient role for this operation",
					infrastructure.GetTraceID(ctx),
				)
				problem.Render(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext returns the principal resolved for this request.
// Empty means the directory is unprovisioned and the request is anonymous.
func PrincipalFromContext(ctx context.Context) string {
	if principal, ok := ctx.Value(PrincipalKey).(string); ok {
		return principal
	}
	return ""
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Missing or malformed headers yield an empty token so that the
// directory decides whether anonymous access is acceptable.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuditLog records who invoked a sensitive operation and what came back.
// Mounted on the upload and delete routes.
func AuditLog(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()

			ww := &auditResponseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			principal := PrincipalFromContext(ctx)
			if principal == "" {
				principal = "anonymous"
			}

			logger.InfoContext(ctx, "audit log",
				"event_type", "api_access",
				"principal", principal,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.Query().Encode(),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)

			next.ServeHTTP(ww, r)

			logger.InfoContext(ctx, "audit log complete",
				"event_type", "api_response",
				"principal", principal,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// auditResponseWriter captures the response status code
type auditResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *auditResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *auditResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}
