package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"github.com/straye-as/kosthorys-api/internal/service"
	"github.com/straye-as/kosthorys-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testCeiling = decimal.RequireFromString("99999.99")

type services struct {
	db         *gorm.DB
	cache      *memoryCache
	budgets    *service.BudgetService
	kekv       *service.KekvService
	contracts  *service.ContractService
	acts       *service.ActService
	usage      *service.UsageService
	payments   *service.PaymentService
	vehicles   *service.VehicleService
	inventory  *service.InventoryService
	statistics *service.StatisticsService
}

func newServices(t *testing.T) *services {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	c := newMemoryCache()

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

	return &services{
		db:      db,
		cache:   c,
		budgets: service.NewBudgetService(db, budgetRepo, kekvRepo, c, logger),
		kekv:    service.NewKekvService(kekvRepo, logger),
		contracts: service.NewContractService(db, service.ContractServiceDeps{
			ContractRepo:  contractRepo,
			SpecRepo:      specRepo,
			KekvRepo:      kekvRepo,
			VehicleRepo:   vehicleRepo,
			InventoryRepo: inventoryRepo,
			PaymentRepo:   paymentRepo,
			Numbers:       numbers,
			Cache:         c,
		}, testCeiling, logger),
		acts:       service.NewActService(db, actRepo, contractRepo, specRepo, c, logger),
		usage:      service.NewUsageService(db, usageRepo, specRepo, contractRepo, c, logger),
		payments:   service.NewPaymentService(db, paymentRepo, contractRepo, testCeiling, c, logger),
		vehicles:   service.NewVehicleService(vehicleRepo, logger),
		inventory:  service.NewInventoryService(inventoryRepo),
		statistics: service.NewStatisticsService(budgetRepo, contractRepo, paymentRepo, c, logger),
	}
}

func date(y int, m time.Month, d int) *domain.Date {
	v := domain.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	return &v
}

func line(name string, quantity, price string) domain.SpecificationRequest {
	return domain.SpecificationRequest{
		Name:     name,
		Unit:     "шт",
		Quantity: testutil.D(quantity),
		Price:    testutil.D(price),
	}
}

func contractRequest(budget *domain.Budget, kekv *domain.Kekv, contractType domain.ContractType, dkCode string, lines ...domain.SpecificationRequest) *domain.CreateContractRequest {
	return &domain.CreateContractRequest{
		BudgetID:       budget.ID,
		KekvID:         kekv.ID,
		Contractor:     "ТОВ Постачальник",
		DkCode:         dkCode,
		ContractType:   contractType,
		Specifications: lines,
	}
}

// memoryCache is an in-process cache.Cache used to observe invalidation
type memoryCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	c.deletes++
	return nil
}

func (c *memoryCache) Close() error { return nil }

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}
