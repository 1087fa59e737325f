package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"go.uber.org/zap"
)

// maxAuditBodySize bounds the stored request body
const maxAuditBodySize = 8 << 10

var sensitiveFields = []string{"password", "secret", "token", "apiKey"}

// AuditLogService records the mutation trail of the API
type AuditLogService struct {
	auditRepo *repository.AuditLogRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuditLogService creates a new audit log service
func NewAuditLogService(auditRepo *repository.AuditLogRepository, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{
		auditRepo: auditRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// LogEntry represents the input for creating an audit log entry
type LogEntry struct {
	Method      string
	Path        string
	EntityType  string
	EntityID    *uuid.UUID
	StatusCode  int
	RequestBody []byte
	RequestID   string
}

// Log stores an audit entry. Sensitive JSON fields are stripped from the body.
func (s *AuditLogService) Log(ctx context.Context, entry LogEntry) error {
	auditLog := &domain.AuditLog{
		Method:      entry.Method,
		Path:        entry.Path,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		StatusCode:  entry.StatusCode,
		RequestBody: sanitizeBody(entry.RequestBody),
		RequestID:   entry.RequestID,
		CreatedAt:   s.now(),
	}

	if err := s.auditRepo.Create(ctx, auditLog); err != nil {
		s.logger.Error("failed to create audit log",
			zap.String("method", entry.Method),
			zap.String("path", entry.Path),
			zap.Error(err))
		return err
	}
	return nil
}

func sanitizeBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		if len(body) > maxAuditBodySize {
			body = body[:maxAuditBodySize]
		}
		return string(body)
	}
	for _, f := range sensitiveFields {
		delete(parsed, f)
	}
	out, err := json.Marshal(parsed)
	if err != nil {
		return ""
	}
	if len(out) > maxAuditBodySize {
		out = out[:maxAuditBodySize]
	}
	return string(out)
}

// AuditLogQueryParams represents query parameters for listing audit logs
type AuditLogQueryParams struct {
	EntityType string
	EntityID   *uuid.UUID
	Method     string
	StartTime  *time.Time
	EndTime    *time.Time
	RequestID  string
	Page       int
	PageSize   int
}

// List retrieves audit logs with filters
func (s *AuditLogService) List(ctx context.Context, params AuditLogQueryParams) (*domain.PaginatedResponse, error) {
	filter := &repository.AuditLogFilter{
		EntityType: params.EntityType,
		EntityID:   params.EntityID,
		Method:     params.Method,
		StartTime:  params.StartTime,
		EndTime:    params.EndTime,
		RequestID:  params.RequestID,
	}
	page, pageSize := repository.NormalizePage(params.Page, params.PageSize)
	logs, total, err := s.auditRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, err
	}
	return paginated(logs, total, page, pageSize), nil
}

// CleanupOldLogs removes logs older than the specified retention period
func (s *AuditLogService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	before := s.now().AddDate(0, 0, -retentionDays)
	count, err := s.auditRepo.DeleteOlderThan(ctx, before)
	if err != nil {
		s.logger.Error("failed to cleanup old audit logs",
			zap.Int("retention_days", retentionDays),
			zap.Error(err))
		return 0, err
	}

	if count > 0 {
		s.logger.Info("cleaned up old audit logs",
			zap.Int64("deleted_count", count),
			zap.Int("retention_days", retentionDays))
	}
	return count, nil
}
