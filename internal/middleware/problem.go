package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Problem is an RFC 7807 problem details document. Middleware writes these
// directly; handler errors go through the richer internal/errors responder.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Trace  string `json:"trace_id,omitempty"`
}

// Render writes the problem with the application/problem+json content type.
func (p Problem) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	return json.NewEncoder(w).Encode(p)
}

// ProblemFromStatus builds a Problem for a plain HTTP status, deriving the
// type slug from the standard status text.
func ProblemFromStatus(status int, detail, traceID string) Problem {
	title := http.StatusText(status)
	if title == "" {
		title = "Unknown Error"
	}

	return Problem{
		Type:   "/errors/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Title:  title,
		Status: status,
		Detail: detail,
		Trace:  traceID,
	}
}
