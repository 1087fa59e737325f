package service_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"github.com/straye-as/kosthorys-api/internal/service"
	"github.com/straye-as/kosthorys-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuditLogService_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewAuditLogService(repository.NewAuditLogRepository(db), zap.NewNop())
	ctx := context.Background()
	contractID := uuid.New()

	t.Run("strips sensitive fields", func(t *testing.T) {
		err := svc.Log(ctx, service.LogEntry{
			Method:      http.MethodPost,
			Path:        "/api/v1/contracts",
			EntityType:  "Contract",
			EntityID:    &contractID,
			StatusCode:  http.StatusCreated,
			RequestBody: []byte(`{"contractor":"ТОВ Сервіс","token":"abc","password":"p"}`),
			RequestID:   "req-42",
		})
		require.NoError(t, err)

		var stored domain.AuditLog
		require.NoError(t, db.Where("request_id = ?", "req-42").First(&stored).Error)
		assert.Contains(t, stored.RequestBody, "ТОВ Сервіс")
		assert.NotContains(t, stored.RequestBody, "abc")
		assert.NotContains(t, stored.RequestBody, "password")
		assert.Equal(t, contractID, *stored.EntityID)
	})

	t.Run("keeps non-JSON body truncated", func(t *testing.T) {
		body := make([]byte, 20000)
		for i := range body {
			body[i] = 'x'
		}
		require.NoError(t, svc.Log(ctx, service.LogEntry{
			Method: http.MethodPut, Path: "/api/v1/vehicles/1", StatusCode: http.StatusOK,
			RequestBody: body, RequestID: "req-big",
		}))

		var stored domain.AuditLog
		require.NoError(t, db.Where("request_id = ?", "req-big").First(&stored).Error)
		assert.Len(t, stored.RequestBody, 8<<10)
	})
}

func TestAuditLogService_ListAndCleanup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewAuditLogService(repository.NewAuditLogRepository(db), zap.NewNop())
	ctx := context.Background()

	old := &domain.AuditLog{
		Method: http.MethodDelete, Path: "/api/v1/payments/1", EntityType: "Payment",
		StatusCode: http.StatusNoContent, CreatedAt: time.Now().AddDate(0, 0, -400),
	}
	require.NoError(t, db.Create(old).Error)
	for _, method := range []string{http.MethodPost, http.MethodPatch} {
		require.NoError(t, svc.Log(ctx, service.LogEntry{
			Method: method, Path: "/api/v1/acts", EntityType: "Act", StatusCode: http.StatusOK,
		}))
	}

	result, err := svc.List(ctx, service.AuditLogQueryParams{EntityType: "Act"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.Total)

	result, err = svc.List(ctx, service.AuditLogQueryParams{Method: http.MethodPatch})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Total)

	since := time.Now().AddDate(0, 0, -1)
	result, err = svc.List(ctx, service.AuditLogQueryParams{StartTime: &since})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.Total)

	deleted, err := svc.CleanupOldLogs(ctx, 365)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	result, err = svc.List(ctx, service.AuditLogQueryParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.Total)
}
