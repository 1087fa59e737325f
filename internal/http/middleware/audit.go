package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/service"
	"go.uber.org/zap"
)

// AuditConfig holds configuration for audit middleware
type AuditConfig struct {
	// SkipPaths contains path prefixes that should not be audited
	SkipPaths []string
	// MaxBodyBytes bounds how much of the request body is captured
	MaxBodyBytes int64
}

// DefaultAuditConfig returns default audit configuration
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		SkipPaths: []string{
			"/health",
			"/swagger",
		},
		MaxBodyBytes: 64 << 10,
	}
}

// AuditRecorder persists audit entries
type AuditRecorder interface {
	Log(ctx context.Context, entry service.LogEntry) error
}

// AuditMiddleware records successful mutations (POST, PUT, PATCH, DELETE)
type AuditMiddleware struct {
	recorder AuditRecorder
	config   *AuditConfig
	logger   *zap.Logger
}

// NewAuditMiddleware creates a new audit middleware
func NewAuditMiddleware(recorder AuditRecorder, config *AuditConfig, logger *zap.Logger) *AuditMiddleware {
	if config == nil {
		config = DefaultAuditConfig()
	}
	return &AuditMiddleware{
		recorder: recorder,
		config:   config,
		logger:   logger,
	}
}

// entityTypes maps path segments to audited entity types
var entityTypes = map[string]string{
	"budgets":        "Budget",
	"kekv":           "Kekv",
	"contracts":      "Contract",
	"specifications": "Specification",
	"usage":          "SpecificationUsage",
	"acts":           "Act",
	"payments":       "Payment",
	"vehicles":       "Vehicle",
}

// Audit returns middleware that logs modifications to the audit log
func (m *AuditMiddleware) Audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.shouldAudit(r) {
			next.ServeHTTP(w, r)
			return
		}

		var requestBody []byte
		if r.Body != nil && r.Method != http.MethodDelete {
			requestBody, _ = io.ReadAll(io.LimitReader(r.Body, m.config.MaxBodyBytes))
			rest := r.Body
			r.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(requestBody), rest), rest}
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if rw.statusCode < 200 || rw.statusCode >= 300 {
			return
		}

		entityType, entityID := m.extractEntityInfo(r)
		entry := service.LogEntry{
			Method:      r.Method,
			Path:        r.URL.Path,
			EntityType:  entityType,
			EntityID:    entityID,
			StatusCode:  rw.statusCode,
			RequestBody: requestBody,
			RequestID:   RequestIDFromContext(r.Context()),
		}
		go m.record(context.WithoutCancel(r.Context()), entry)
	})
}

// shouldAudit reports whether the request is a mutation outside the skipped paths
func (m *AuditMiddleware) shouldAudit(r *http.Request) bool {
	if m.recorder == nil {
		return false
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return false
	}
	for _, skipPath := range m.config.SkipPaths {
		if strings.HasPrefix(r.URL.Path, skipPath) {
			return false
		}
	}
	return true
}

func (m *AuditMiddleware) record(ctx context.Context, entry service.LogEntry) {
	if err := m.recorder.Log(ctx, entry); err != nil {
		m.logger.Warn("failed to create audit log entry",
			zap.String("path", entry.Path),
			zap.String("method", entry.Method),
			zap.Error(err))
	}
}

// extractEntityInfo derives the entity type from the matched route and the
// entity id from the last UUID route parameter
func (m *AuditMiddleware) extractEntityInfo(r *http.Request) (string, *uuid.UUID) {
	routeCtx := chi.RouteContext(r.Context())
	if routeCtx == nil {
		return parseEntityFromPath(r.URL.Path), nil
	}

	var entityID *uuid.UUID
	for i := len(routeCtx.URLParams.Values) - 1; i >= 0; i-- {
		if id, err := uuid.Parse(routeCtx.URLParams.Values[i]); err == nil {
			entityID = &id
			break
		}
	}

	pattern := routeCtx.RoutePattern()
	if pattern == "" {
		pattern = r.URL.Path
	}
	return parseEntityFromPath(pattern), entityID
}

// parseEntityFromPath returns the entity of the deepest known path segment,
// so /contracts/{id}/acts resolves to Act
func parseEntityFromPath(path string) string {
	entityType := "Unknown"
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if t, ok := entityTypes[part]; ok {
			entityType = t
		}
	}
	return entityType
}
