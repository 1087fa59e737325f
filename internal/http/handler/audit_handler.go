package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/straye-as/kosthorys-api/internal/service"
	"go.uber.org/zap"
)

// AuditHandler serves the mutation audit trail
type AuditHandler struct {
	auditService *service.AuditLogService
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// List godoc
// @Summary List audit logs
// @Description Returns a paginated list of recorded mutations with optional filters
// @Tags Audit
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param entityType query string false "Filter by entity type, e.g. Contract"
// @Param entityId query string false "Filter by entity ID" format(uuid)
// @Param method query string false "Filter by HTTP method" Enums(POST, PUT, PATCH, DELETE)
// @Param requestId query string false "Filter by request ID"
// @Param startTime query string false "Filter by start time (RFC3339)"
// @Param endTime query string false "Filter by end time (RFC3339)"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.AuditLog}
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /audit [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := parsePage(r)

	params := service.AuditLogQueryParams{
		EntityType: q.Get("entityType"),
		Method:     strings.ToUpper(q.Get("method")),
		RequestID:  q.Get("requestId"),
		Page:       page,
		PageSize:   pageSize,
	}

	entityID, err := queryUUID(r, "entityId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Некоректний entityId")
		return
	}
	params.EntityID = entityID

	for name, dst := range map[string]**time.Time{"startTime": &params.StartTime, "endTime": &params.EndTime} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Некоректний формат часу "+name+", очікується RFC3339")
			return
		}
		*dst = &t
	}

	result, err := h.auditService.List(r.Context(), params)
	if err != nil {
		h.logger.Error("failed to list audit logs", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Не вдалося отримати журнал аудиту")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
