package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/cache"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/http/handler"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"github.com/straye-as/kosthorys-api/internal/service"
	"github.com/straye-as/kosthorys-api/internal/storage"
	"github.com/straye-as/kosthorys-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testAPI struct {
	t     *testing.T
	db    *gorm.DB
	audit *service.AuditLogService
	mux   http.Handler
}

// newTestAPI wires real services over an in-memory database behind the
// same routes the server exposes
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	statsCache := cache.Noop{}

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	budgetRepo := repository.NewBudgetRepository(db)
	kekvRepo := repository.NewKekvRepository(db)
	contractRepo := repository.NewContractRepository(db)
	specRepo := repository.NewSpecificationRepository(db)
	actRepo := repository.NewActRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	numbers := service.NewNumberSequenceService(repository.NewNumberSequenceRepository(db), logger)

	budgets := service.NewBudgetService(db, budgetRepo, kekvRepo, statsCache, logger)
	contracts := service.NewContractService(db, service.ContractServiceDeps{
		ContractRepo:  contractRepo,
		SpecRepo:      specRepo,
		KekvRepo:      kekvRepo,
		VehicleRepo:   vehicleRepo,
		InventoryRepo: inventoryRepo,
		PaymentRepo:   paymentRepo,
		Numbers:       numbers,
		Cache:         statsCache,
	}, decimal.RequireFromString("99999.99"), logger)
	stats := service.NewStatisticsService(budgetRepo, contractRepo, paymentRepo, statsCache, logger)
	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), logger)

	budgetHandler := handler.NewBudgetHandler(budgets, stats, service.NewReportService(stats, contractRepo, paymentRepo, store, logger), logger)
	kekvHandler := handler.NewKekvHandler(service.NewKekvService(kekvRepo, logger), logger)
	contractHandler := handler.NewContractHandler(contracts, logger)
	actHandler := handler.NewActHandler(service.NewActService(db, actRepo, contractRepo, specRepo, statsCache, logger), logger)
	usageHandler := handler.NewUsageHandler(service.NewUsageService(db, usageRepo, specRepo, contractRepo, statsCache, logger), logger)
	paymentHandler := handler.NewPaymentHandler(service.NewPaymentService(db, paymentRepo, contractRepo, decimal.RequireFromString("99999.99"), statsCache, logger), logger)
	vehicleHandler := handler.NewVehicleHandler(service.NewVehicleService(vehicleRepo, logger), logger)
	inventoryHandler := handler.NewInventoryHandler(service.NewInventoryService(inventoryRepo), logger)
	auditHandler := handler.NewAuditHandler(audit, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/audit", auditHandler.List)
		r.Get("/budgets", budgetHandler.List)
		r.Post("/budgets", budgetHandler.Create)
		r.Get("/budgets/{id}", budgetHandler.GetByID)
		r.Put("/budgets/{id}", budgetHandler.Update)
		r.Delete("/budgets/{id}", budgetHandler.Delete)
		r.Get("/budgets/{id}/statistics", budgetHandler.Statistics)
		r.Get("/budgets/{id}/report", budgetHandler.Report)
		r.Post("/budgets/{id}/kekv", budgetHandler.AddAllocation)
		r.Get("/kekv", kekvHandler.List)
		r.Post("/kekv", kekvHandler.Create)
		r.Get("/contracts", contractHandler.List)
		r.Post("/contracts", contractHandler.Create)
		r.Get("/contracts/direct-limit", contractHandler.DirectLimit)
		r.Get("/contracts/{id}", contractHandler.GetByID)
		r.Put("/contracts/{id}", contractHandler.Update)
		r.Delete("/contracts/{id}", contractHandler.Delete)
		r.Get("/contracts/{id}/specifications", contractHandler.ListSpecifications)
		r.Post("/contracts/{id}/specifications", contractHandler.AddSpecifications)
		r.Get("/contracts/{id}/acts", actHandler.ListByContract)
		r.Post("/contracts/{id}/acts", actHandler.Create)
		r.Get("/contracts/{id}/payments", paymentHandler.ListByContract)
		r.Post("/contracts/{id}/payments", paymentHandler.Create)
		r.Delete("/specifications/usage/{usageId}", usageHandler.Delete)
		r.Delete("/specifications/{id}", contractHandler.DeleteSpecification)
		r.Get("/specifications/{id}/usage", usageHandler.List)
		r.Post("/specifications/{id}/usage", usageHandler.Post)
		r.Get("/acts/{id}", actHandler.GetByID)
		r.Patch("/acts/{id}", actHandler.UpdateStatus)
		r.Delete("/acts/{id}", actHandler.Delete)
		r.Delete("/payments/{id}", paymentHandler.Delete)
		r.Get("/vehicles", vehicleHandler.List)
		r.Post("/vehicles", vehicleHandler.Create)
		r.Get("/vehicles/{id}", vehicleHandler.GetByID)
		r.Put("/vehicles/{id}", vehicleHandler.Update)
		r.Delete("/vehicles/{id}", vehicleHandler.Delete)
		r.Get("/inventory", inventoryHandler.List)
	})

	return &testAPI{t: t, db: db, audit: audit, mux: r}
}

// do sends a request with an optional JSON body
func (a *testAPI) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.mux.ServeHTTP(rr, req)
	return rr
}

// decode unmarshals a response body, failing the test on malformed JSON
func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// requireError checks the status and problem type of an error response
func requireError(t *testing.T, rr *httptest.ResponseRecorder, status int, errType string) domain.APIError {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	apiErr := decode[domain.APIError](t, rr)
	require.Equal(t, errType, apiErr.Type)
	return apiErr
}

// createBudget posts a budget with a single allocation and returns it
func (a *testAPI) createBudget(kekvCode, amount string) domain.BudgetDTO {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/budgets", map[string]interface{}{
		"name": "Кошторис 2026",
		"year": 2026,
		"date": "2026-01-10",
		"allocations": []map[string]interface{}{
			{"kekvCode": kekvCode, "kekvName": "Оплата послуг", "amount": amount},
		},
	})
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[domain.BudgetDTO](a.t, rr)
}

// createContract posts a contract with one line quantity × price
func (a *testAPI) createContract(budget domain.BudgetDTO, contractType, dkCode, quantity, price string) *httptest.ResponseRecorder {
	a.t.Helper()
	return a.do(http.MethodPost, "/contracts", map[string]interface{}{
		"budgetId":     budget.ID,
		"kekvId":       budget.Allocations[0].KekvID,
		"contractor":   "ТОВ Сервіс",
		"dkCode":       dkCode,
		"contractType": contractType,
		"specifications": []map[string]interface{}{
			{"name": "Заміна мастила", "unit": "шт", "quantity": quantity, "price": price},
		},
	})
}
