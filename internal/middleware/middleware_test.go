package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffpulse/internal/authz"
)

// mockAuthorizer is a mock implementation of authz.Authorizer for testing
type mockAuthorizer struct {
	identifyFunc func(ctx context.Context, token string) (string, error)
	allowedFunc  func(ctx context.Context, principal, role string) (bool, error)
	sheetSetFunc func(ctx context.Context, principal string) (authz.SheetSet, error)
}

func (m *mockAuthorizer) Identify(ctx context.Context, token string) (string, error) {
	if m.identifyFunc != nil {
		return m.identifyFunc(ctx, token)
	}
	return "", nil
}

func (m *mockAuthorizer) Allowed(ctx context.Context, principal, role string) (bool, error) {
	if m.allowedFunc != nil {
		return m.allowedFunc(ctx, principal, role)
	}
	return true, nil
}

func (m *mockAuthorizer) SheetSet(ctx context.Context, principal string) (authz.SheetSet, error) {
	if m.sheetSetFunc != nil {
		return m.sheetSetFunc(ctx, principal)
	}
	return authz.NewSheetSet(authz.SheetWildcard), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	t.Run("generates new ID when header absent", func(t *testing.T) {
		var captured string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetReqID(r.Context())
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))

		assert.NotEmpty(t, captured)
		assert.Equal(t, captured, rec.Header().Get("X-Request-ID"))
	})

	t.Run("preserves incoming header", func(t *testing.T) {
		var captured string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetReqID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		req.Header.Set("X-Request-ID", "upstream-id-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "upstream-id-42", captured)
		assert.Equal(t, "upstream-id-42", rec.Header().Get("X-Request-ID"))
	})
}

func TestStructuredLogger(t *testing.T) {
	t.Run("failed JSON request logs sanitized body", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		handler := StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Consume the body the way a JSON handler would before rejecting.
			io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusBadRequest)
		}))

		body := `{"question":"what changed","api_key":"sk-very-secret"}`
		req := httptest.NewRequest(http.MethodPost, "/api/reports/r1/ask", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		logged := buf.String()
		assert.Contains(t, logged, "request_body")
		assert.Contains(t, logged, "[REDACTED]")
		assert.Contains(t, logged, "what changed")
		assert.NotContains(t, logged, "sk-very-secret")
		assert.Contains(t, logged, `"level":"WARN"`)
	})

	t.Run("successful request omits body", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		handler := StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/reports/r1/ask", strings.NewReader(`{"question":"routine"}`))
		req.Header.Set("Content-Type", "application/json")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.NotContains(t, buf.String(), "request_body")
	})

	t.Run("handler still reads the full body", func(t *testing.T) {
		var got []byte
		handler := StructuredLogger(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}))

		body := `{"question":"does buffering lose bytes"}`
		req := httptest.NewRequest(http.MethodPost, "/api/reports/r1/ask", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, body, string(got))
	})

	t.Run("server errors log at error level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		handler := StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/reports", nil))

		assert.Contains(t, buf.String(), `"level":"ERROR"`)
	})
}

func TestSanitizeBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []string
		notWant []string
	}{
		{
			name:    "top level credential fields",
			body:    `{"password":"hunter2","question":"why"}`,
			want:    []string{`"password":"[REDACTED]"`, `"question":"why"`},
			notWant: []string{"hunter2"},
		},
		{
			name:    "nested credential fields",
			body:    `{"settings":{"access_token":"tok-123"},"name":"weekly"}`,
			want:    []string{"[REDACTED]", `"name":"weekly"`},
			notWant: []string{"tok-123"},
		},
		{
			name: "non-JSON body passed through",
			body: "plain text payload",
			want: []string{"plain text payload"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeBody([]byte(tt.body))
			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
			for _, notWant := range tt.notWant {
				assert.NotContains(t, got, notWant)
			}
		})
	}

	t.Run("long bodies truncated", func(t *testing.T) {
		got := sanitizeBody([]byte(strings.Repeat("x", 2000)))
		assert.Less(t, len(got), 600)
		assert.Contains(t, got, "truncated")
	})
}

func TestRecoverer(t *testing.T) {
	handler := Recoverer(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("extraction exploded")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
}

func TestPrincipalResolver(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		identifyFunc   func(ctx context.Context, token string) (string, error)
		wantStatusCode int
		wantPrincipal  string
		wantNextCalled bool
	}{
		{
			name:       "open directory allows anonymous",
			authHeader: "",
			identifyFunc: func(ctx context.Context, token string) (string, error) {
				assert.Empty(t, token)
				return "", nil
			},
			wantStatusCode: http.StatusOK,
			wantPrincipal:  "",
			wantNextCalled: true,
		},
		{
			name:       "valid bearer token resolves principal",
			authHeader: "Bearer alice.s3cret",
			identifyFunc: func(ctx context.Context, token string) (string, error) {
				assert.Equal(t, "alice.s3cret", token)
				return "alice", nil
			},
			wantStatusCode: http.StatusOK,
			wantPrincipal:  "alice",
			wantNextCalled: true,
		},
		{
			name:       "case insensitive bearer scheme",
			authHeader: "bearer alice.s3cret",
			identifyFunc: func(ctx context.Context, token string) (string, error) {
				return "alice", nil
			},
			wantStatusCode: http.StatusOK,
			wantPrincipal:  "alice",
			wantNextCalled: true,
		},
		{
			name:       "invalid token rejected",
			authHeader: "Bearer bogus.token",
			identifyFunc: func(ctx context.Context, token string) (string, error) {
				return "", authz.ErrInvalidToken
			},
			wantStatusCode: http.StatusUnauthorized,
			wantNextCalled: false,
		},
		{
			name:       "malformed header treated as anonymous",
			authHeader: "Basic dXNlcjpwYXNz",
			identifyFunc: func(ctx context.Context, token string) (string, error) {
				assert.Empty(t, token)
				return "", nil
			},
			wantStatusCode: http.StatusOK,
			wantPrincipal:  "",
			wantNextCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewPrincipalResolver(&mockAuthorizer{identifyFunc: tt.identifyFunc}, testLogger())

			nextCalled := false
			var gotPrincipal string
			handler := resolver.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				gotPrincipal = PrincipalFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantNextCalled, nextCalled)
			if tt.wantNextCalled {
				assert.Equal(t, tt.wantPrincipal, gotPrincipal)
			} else {
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name           string
		principal      string
		allowedFunc    func(ctx context.Context, principal, role string) (bool, error)
		wantStatusCode int
		wantNextCalled bool
	}{
		{
			name:      "role granted",
			principal: "alice",
			allowedFunc: func(ctx context.Context, principal, role string) (bool, error) {
				assert.Equal(t, "alice", principal)
				assert.Equal(t, authz.RoleUploader, role)
				return true, nil
			},
			wantStatusCode: http.StatusOK,
			wantNextCalled: true,
		},
		{
			name:      "role denied",
			principal: "bob",
			allowedFunc: func(ctx context.Context, principal, role string) (bool, error) {
				return false, nil
			},
			wantStatusCode: http.StatusForbidden,
			wantNextCalled: false,
		},
		{
			name:      "unknown principal",
			principal: "ghost",
			allowedFunc: func(ctx context.Context, principal, role string) (bool, error) {
				return false, authz.ErrUnknownPrincipal
			},
			wantStatusCode: http.StatusUnauthorized,
			wantNextCalled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewPrincipalResolver(&mockAuthorizer{allowedFunc: tt.allowedFunc}, testLogger())

			nextCalled := false
			handler := resolver.RequireRole(authz.RoleUploader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/reports", nil)
			ctx := context.WithValue(req.Context(), PrincipalKey, tt.principal)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req.WithContext(ctx))

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantNextCalled, nextCalled)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		Logger:           testLogger(),
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run for preflight")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSDisallowedOrigin(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		Logger:         testLogger(),
	})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	t.Run("throttles a client past its burst", func(t *testing.T) {
		rl := NewRateLimiter(1, 1, testLogger())
		handler := rl.Handler(okHandler())

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
		require.Equal(t, http.StatusOK, first.Code)

		// Burst of one: the immediate second request must be limited
		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.Equal(t, "60", second.Header().Get("Retry-After"))
		assert.Equal(t, "application/problem+json", second.Header().Get("Content-Type"))
	})

	t.Run("budgets are per client", func(t *testing.T) {
		rl := NewRateLimiter(1, 1, testLogger())
		handler := rl.Handler(okHandler())

		exhaust := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		exhaust.RemoteAddr = "198.51.100.7:40001"
		handler.ServeHTTP(httptest.NewRecorder(), exhaust)

		// Same IP, different port: still over budget
		blocked := httptest.NewRecorder()
		again := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		again.RemoteAddr = "198.51.100.7:40002"
		handler.ServeHTTP(blocked, again)
		require.Equal(t, http.StatusTooManyRequests, blocked.Code)

		// A different client has its own bucket
		other := httptest.NewRecorder()
		fresh := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		fresh.RemoteAddr = "198.51.100.8:40003"
		handler.ServeHTTP(other, fresh)
		assert.Equal(t, http.StatusOK, other.Code)
	})
}

func TestTimeout(t *testing.T) {
	handler := Timeout(20*time.Millisecond, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
			t.Error("handler context was not cancelled")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestTimeoutLetsFastHandlersThrough(t *testing.T) {
	handler := Timeout(time.Second, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("done"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reports", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}

func TestProblemFromStatus(t *testing.T) {
	p := ProblemFromStatus(http.StatusNotFound, "no report with that id", "trace-1")
	assert.Equal(t, "/errors/not-found", p.Type)
	assert.Equal(t, "Not Found", p.Title)
	assert.Equal(t, http.StatusNotFound, p.Status)
	assert.Equal(t, "no report with that id", p.Detail)
	assert.Equal(t, "trace-1", p.Trace)

	p = ProblemFromStatus(http.StatusTooManyRequests, "", "")
	assert.Equal(t, "/errors/too-many-requests", p.Type)
	assert.Equal(t, "Too Many Requests", p.Title)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "socket address without port",
			remoteAddr: "192.0.2.1:1234",
			want:       "192.0.2.1",
		},
		{
			name:       "first forwarded-for entry wins",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"},
			want:       "203.0.113.9",
		},
		{
			name:       "real-ip header",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "203.0.113.10"},
			want:       "203.0.113.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
