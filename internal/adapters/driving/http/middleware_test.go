package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-edu/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-edu/internal/core/domain"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "valid bearer token",
			header:   "Bearer abc123",
			expected: "abc123",
		},
		{
			name:     "bearer with extra spaces",
			header:   "Bearer   token-with-spaces   ",
			expected: "token-with-spaces",
		},
		{
			name:     "lowercase bearer",
			header:   "bearer token123",
			expected: "token123",
		},
		{
			name:     "empty header",
			header:   "",
			expected: "",
		},
		{
			name:     "no bearer prefix",
			header:   "token123",
			expected: "",
		},
		{
			name:     "basic auth",
			header:   "Basic dXNlcjpwYXNz",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			result := extractBearerToken(req)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestGetAuthContext(t *testing.T) {
	authCtx := &domain.AuthContext{Subject: "tutor-1", Role: domain.RoleAdmin}
	ctx := context.WithValue(context.Background(), authContextKey, authCtx)

	if got := GetAuthContext(ctx); got != authCtx {
		t.Errorf("expected stored auth context, got %+v", got)
	}
	if GetAuthContext(context.Background()) != nil {
		t.Error("expected nil for empty context")
	}
	if GetAuthContext(context.WithValue(context.Background(), authContextKey, "wrong type")) != nil {
		t.Error("expected nil for wrong value type")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := NewLoggingMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/api/v1/subjects", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "path=/api/v1/subjects") || !strings.Contains(out, "status=418") {
		t.Errorf("unexpected access log %q", out)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := NewRecoveryMiddleware(slog.Default()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := NewCORSMiddleware([]string{"*"}).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/api/v1/search", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
			t.Error("expected CORS origin header")
		}
	})

	t.Run("regular request", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/subjects", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})
}

func TestCORSMiddleware_DisallowedOrigin(t *testing.T) {
	handler := NewCORSMiddleware([]string{"http://allowed.com"}).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://notallowed.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected no CORS header for disallowed origin")
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusCreated)

	if rw.statusCode != http.StatusCreated {
		t.Errorf("expected captured status 201, got %d", rw.statusCode)
	}
}

// Authentication

func newTokenAdapter(t *testing.T) *auth.Adapter {
	t.Helper()
	return auth.NewAdapter("test-secret")
}

func issue(t *testing.T, a *auth.Adapter, role domain.Role, ttl time.Duration) string {
	t.Helper()
	token, err := a.IssueToken("tutor-1", role, ttl)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	m := NewAuthMiddleware(nil)
	if m.Enabled() {
		t.Fatal("expected auth to be disabled without an adapter")
	}

	called := false
	handler := m.Authenticate(m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/documents", nil))

	if !called || rec.Code != http.StatusOK {
		t.Errorf("expected request to pass through, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Authenticate_MissingToken(t *testing.T) {
	m := NewAuthMiddleware(newTokenAdapter(t))
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Authenticate_Success(t *testing.T) {
	adapter := newTokenAdapter(t)
	m := NewAuthMiddleware(adapter)

	var got *domain.AuthContext
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetAuthContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, adapter, domain.RoleMember, time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got == nil || got.Subject != "tutor-1" || got.Role != domain.RoleMember {
		t.Errorf("unexpected auth context %+v", got)
	}
}

func TestAuthMiddleware_Authenticate_TokenExpired(t *testing.T) {
	adapter := newTokenAdapter(t)
	m := NewAuthMiddleware(adapter)
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, adapter, domain.RoleAdmin, -time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "token expired" {
		t.Errorf("expected token expired, got %q", msg)
	}
}

func TestAuthMiddleware_Authenticate_InvalidToken(t *testing.T) {
	other := auth.NewAdapter("another-secret")
	m := NewAuthMiddleware(newTokenAdapter(t))
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, other, domain.RoleAdmin, time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "invalid token" {
		t.Errorf("expected invalid token, got %q", msg)
	}
}

func TestAuthMiddleware_RequireAdmin(t *testing.T) {
	adapter := newTokenAdapter(t)
	m := NewAuthMiddleware(adapter)
	handler := m.Authenticate(m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	tests := []struct {
		name       string
		role       domain.Role
		wantStatus int
	}{
		{"admin", domain.RoleAdmin, http.StatusOK},
		{"member", domain.RoleMember, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/documents", nil)
			req.Header.Set("Authorization", "Bearer "+issue(t, adapter, tt.role, time.Hour))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestAuthMiddleware_RequireAdmin_NoContext(t *testing.T) {
	m := NewAuthMiddleware(newTokenAdapter(t))
	handler := m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestServer_RoutesRequireTokens(t *testing.T) {
	adapter := newTokenAdapter(t)
	ts := newTestServices()
	s := NewServer(DefaultConfig(), Services{
		Ingestion: ts.ingestion,
		Retrieval: ts.retrieval,
		Grammar:   ts.grammar,
		Answer:    ts.answer,
		Questions: ts.questions,
		Tasks:     ts.tasks,
	}, adapter, nil, nil)

	// health stays public
	rec := doRequest(s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected public /health, got %d", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/api/v1/subjects", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subjects", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, adapter, domain.RoleMember, time.Hour))
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected member to list subjects, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/abc", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, adapter, domain.RoleMember, time.Hour))
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected member to be refused task lookup, got %d", rr.Code)
	}
}
