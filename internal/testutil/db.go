package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/database"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema.
// The database lives until the test finishes.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err, "failed to open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// D parses a decimal literal, failing loudly on typos in tests
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateTestKekv creates (or returns) the KEKV with the given code
func CreateTestKekv(t *testing.T, db *gorm.DB, code string) *domain.Kekv {
	t.Helper()
	kekv := &domain.Kekv{Code: code, Name: "KEKV " + code}
	err := db.Where("code = ?", code).FirstOrCreate(kekv).Error
	require.NoError(t, err)
	return kekv
}

// CreateTestBudget creates a budget with a single allocation for kekvCode
func CreateTestBudget(t *testing.T, db *gorm.DB, kekvCode string, allocation decimal.Decimal) (*domain.Budget, *domain.Kekv) {
	t.Helper()
	kekv := CreateTestKekv(t, db, kekvCode)

	budget := &domain.Budget{
		Name:        "Test budget",
		Type:        domain.BudgetTypeGeneral,
		Year:        2026,
		TotalAmount: allocation,
		Date:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Omit(clause.Associations).Create(budget).Error)

	alloc := &domain.BudgetKekv{
		BudgetID:      budget.ID,
		KekvID:        kekv.ID,
		PlannedAmount: allocation,
		Amount:        allocation,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(alloc).Error)

	return budget, kekv
}

// AllocationAmount returns the remaining allocation of (budgetID, kekvID)
func AllocationAmount(t *testing.T, db *gorm.DB, budgetID, kekvID uuid.UUID) decimal.Decimal {
	t.Helper()
	var bk domain.BudgetKekv
	require.NoError(t, db.Where("budget_id = ? AND kekv_id = ?", budgetID, kekvID).First(&bk).Error)
	return bk.Amount
}

// CreateTestContract inserts a contract with one specification line directly,
// bypassing allocation checks
func CreateTestContract(t *testing.T, db *gorm.DB, budgetID, kekvID uuid.UUID, contractType domain.ContractType, dkCode string, quantity, price decimal.Decimal) (*domain.Contract, *domain.Specification) {
	t.Helper()
	amount := quantity.Mul(price)
	contract := &domain.Contract{
		Status:       domain.ContractStatusActive,
		Contractor:   "ТОВ Тест",
		DkCode:       dkCode,
		Amount:       amount,
		BudgetID:     budgetID,
		KekvID:       kekvID,
		ContractType: contractType,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(contract).Error)

	spec := &domain.Specification{
		ContractID:   contract.ID,
		Name:         "Test line",
		Unit:         "шт",
		Quantity:     quantity,
		Price:        price,
		ServiceCount: 1,
		Section:      domain.SectionService,
		Amount:       amount,
		Remaining:    quantity,
	}
	require.NoError(t, db.Create(spec).Error)
	return contract, spec
}

// Reload re-reads a model by primary key
func Reload[T any](t *testing.T, db *gorm.DB, id uuid.UUID) *T {
	t.Helper()
	var out T
	require.NoError(t, db.First(&out, "id = ?", id).Error)
	return &out
}
