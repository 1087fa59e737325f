package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/config"
	"github.com/straye-as/kosthorys-api/internal/http/middleware"
	"github.com/straye-as/kosthorys-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordedEntries struct {
	mu      sync.Mutex
	entries []service.LogEntry
}

func (r *recordedEntries) Log(_ context.Context, entry service.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordedEntries) snapshot() []service.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]service.LogEntry(nil), r.entries...)
}

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
	})
}

func TestAuditMiddleware_RecordsMutations(t *testing.T) {
	rec := &recordedEntries{}
	am := middleware.NewAuditMiddleware(rec, nil, zap.NewNop())

	r := chi.NewRouter()
	r.Use(middleware.Logging(zap.NewNop()))
	r.Use(am.Audit)
	r.Post("/api/v1/contracts/{id}/acts", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"number":"1"}`, string(body), "handler still sees the full body")
		w.WriteHeader(http.StatusCreated)
	})

	contractID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contracts/"+contractID.String()+"/acts", strings.NewReader(`{"number":"1"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	entry := rec.snapshot()[0]
	assert.Equal(t, http.MethodPost, entry.Method)
	assert.Equal(t, "Act", entry.EntityType)
	require.NotNil(t, entry.EntityID)
	assert.Equal(t, contractID, *entry.EntityID)
	assert.Equal(t, http.StatusCreated, entry.StatusCode)
	assert.JSONEq(t, `{"number":"1"}`, string(entry.RequestBody))
	assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), entry.RequestID)
}

func TestAuditMiddleware_Skips(t *testing.T) {
	rec := &recordedEntries{}
	am := middleware.NewAuditMiddleware(rec, nil, zap.NewNop())

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"reads", http.MethodGet, "/api/v1/budgets", http.StatusOK},
		{"options", http.MethodOptions, "/api/v1/budgets", http.StatusOK},
		{"health", http.MethodPost, "/health/ready", http.StatusOK},
		{"failed mutation", http.MethodPost, "/api/v1/budgets", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			am.Audit(okHandler(tt.status)).ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}")))
			assert.Equal(t, tt.status, w.Code)
		})
	}

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestAuditMiddleware_NilRecorder(t *testing.T) {
	am := middleware.NewAuditMiddleware(nil, nil, zap.NewNop())
	w := httptest.NewRecorder()
	am.Audit(okHandler(http.StatusOK)).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/vehicles/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogging_RequestID(t *testing.T) {
	var seen string
	h := middleware.Logging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, w.Header().Get(middleware.RequestIDHeader))

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, given)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, given, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "<script>", seen)
}

func TestRecovery(t *testing.T) {
	h := middleware.Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
}

func TestRateLimiter(t *testing.T) {
	cfg := &config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 2,
		WhitelistIPs:      []string{"127.0.0.1"},
		WhitelistPaths:    []string{"/health", "/swagger/*"},
	}
	h := middleware.NewRateLimiter(cfg, zap.NewNop()).LimitByIP(okHandler(http.StatusOK))

	do := func(path, addr string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("/api/v1/budgets", "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, do("/api/v1/budgets", "10.0.0.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, do("/api/v1/budgets", "10.0.0.1:1000"))

	assert.Equal(t, http.StatusOK, do("/api/v1/budgets", "10.0.0.2:1000"), "other clients are independent")
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do("/api/v1/budgets", "127.0.0.1:1000"))
		assert.Equal(t, http.StatusOK, do("/health", "10.0.0.1:1000"))
		assert.Equal(t, http.StatusOK, do("/swagger/index.html", "10.0.0.1:1000"))
	}

	disabled := middleware.NewRateLimiter(&config.RateLimitConfig{RequestsPerMinute: 1}, zap.NewNop()).LimitByIP(okHandler(http.StatusOK))
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		disabled.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	cfg := &config.SecurityConfig{
		EnableHSTS:            true,
		HSTSMaxAge:            100,
		HSTSIncludeSubdomains: true,
		FrameOptions:          "DENY",
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
	}
	w := httptest.NewRecorder()
	middleware.SecurityHeaders(cfg)(okHandler(http.StatusOK)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "max-age=100; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestCORS(t *testing.T) {
	cfg := &config.CORSConfig{
		AllowedOrigins: []string{"https://kosthorys.example"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}
	h := middleware.CORS(cfg, "production", zap.NewNop())(okHandler(http.StatusOK))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://kosthorys.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "https://kosthorys.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLogging_RequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := middleware.Logging(zap.New(core))(okHandler(http.StatusInternalServerError))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contracts", nil)
	req.Header.Set(middleware.RequestIDHeader, "6f1c2f7e-3c3a-4f0e-9d3e-0f6f0d1b2a11")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "6f1c2f7e-3c3a-4f0e-9d3e-0f6f0d1b2a11", fields["request_id"])
	assert.Equal(t, http.MethodPost, fields["method"])
	assert.Equal(t, "/api/v1/contracts", fields["path"])
	assert.EqualValues(t, http.StatusInternalServerError, fields["status_code"])
}

func TestCORS_ExposesReportHeaders(t *testing.T) {
	cfg := &config.CORSConfig{
		AllowedOrigins: []string{"https://kosthorys.example"},
		AllowedMethods: []string{http.MethodGet},
		ExposedHeaders: []string{"Location"},
	}
	h := middleware.CORS(cfg, "production", zap.NewNop())(okHandler(http.StatusOK))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/budgets/1/report", nil)
	req.Header.Set("Origin", "https://kosthorys.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	exposed := w.Header().Get("Access-Control-Expose-Headers")
	assert.Contains(t, exposed, "X-Report-Path")
	assert.Contains(t, exposed, "Content-Disposition")
	assert.Equal(t, 1, strings.Count(exposed, "Location"))
}

func TestCORS_UnconfiguredOrigins(t *testing.T) {
	tests := []struct {
		env     string
		allowed bool
	}{
		{env: "development", allowed: true},
		{env: "test", allowed: true},
		{env: "production", allowed: false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := &config.CORSConfig{AllowedMethods: []string{http.MethodGet}}
			h := middleware.CORS(cfg, tt.env, zap.NewNop())(okHandler(http.StatusOK))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", "http://localhost:5173")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if tt.allowed {
				assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}
