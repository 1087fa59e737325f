package ledger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/ledger"
	"github.com/straye-as/kosthorys-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var d = testutil.D

func TestLineAmount(t *testing.T) {
	tests := []struct {
		name         string
		quantity     string
		price        string
		serviceCount int
		want         string
	}{
		{name: "single service", quantity: "2", price: "150.50", serviceCount: 1, want: "301"},
		{name: "zero service count counts once", quantity: "2", price: "150.50", serviceCount: 0, want: "301"},
		{name: "repeated service", quantity: "1", price: "1000", serviceCount: 3, want: "3000"},
		{name: "fractional quantity", quantity: "2.5", price: "10.10", serviceCount: 1, want: "25.25"},
		{name: "rounding to kopecks", quantity: "0.333", price: "10", serviceCount: 1, want: "3.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ledger.LineAmount(d(tt.quantity), d(tt.price), tt.serviceCount)
			assert.True(t, d(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestContractAmount(t *testing.T) {
	lines := []ledger.Line{
		{Quantity: d("10"), Price: d("100"), ServiceCount: 1},
		{Quantity: d("1"), Price: d("500"), ServiceCount: 2},
	}
	assert.True(t, d("2000").Equal(ledger.ContractAmount(lines)))
	assert.True(t, ledger.ContractAmount(nil).IsZero())
}

func TestExceedsCeiling(t *testing.T) {
	ceiling := d("99999.99")
	assert.True(t, ledger.ExceedsCeiling(d("80000"), d("25000"), ceiling))
	assert.False(t, ledger.ExceedsCeiling(d("80000"), d("15000"), ceiling))
	assert.False(t, ledger.ExceedsCeiling(d("80000"), d("19999.99"), ceiling))
	assert.True(t, ledger.ExceedsCeiling(d("80000"), d("20000"), ceiling))
}

func TestReserveAllocation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	budget, kekv := testutil.CreateTestBudget(t, db, "2240", d("500000"))

	t.Run("decrements the allocation", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			return ledger.ReserveAllocation(tx, budget.ID, kekv.ID, d("100000"))
		})
		require.NoError(t, err)
		assert.True(t, d("400000").Equal(testutil.AllocationAmount(t, db, budget.ID, kekv.ID)))
	})

	t.Run("rejects amounts above the remaining allocation", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			return ledger.ReserveAllocation(tx, budget.ID, kekv.ID, d("450000"))
		})
		assert.ErrorIs(t, err, ledger.ErrInsufficientAllocation)
		assert.True(t, d("400000").Equal(testutil.AllocationAmount(t, db, budget.ID, kekv.ID)))
	})

	t.Run("allows reserving exactly what remains", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			return ledger.ReserveAllocation(tx, budget.ID, kekv.ID, d("400000"))
		})
		require.NoError(t, err)
		assert.True(t, testutil.AllocationAmount(t, db, budget.ID, kekv.ID).IsZero())
	})

	t.Run("missing allocation", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			return ledger.ReserveAllocation(tx, budget.ID, uuid.New(), d("1"))
		})
		assert.ErrorIs(t, err, ledger.ErrAllocationNotFound)
	})

	t.Run("release restores", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			return ledger.ReleaseAllocation(tx, budget.ID, kekv.ID, d("500000"))
		})
		require.NoError(t, err)
		assert.True(t, d("500000").Equal(testutil.AllocationAmount(t, db, budget.ID, kekv.ID)))
	})
}

func TestReserveAllocation_RollsBackWithTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	budget, kekv := testutil.CreateTestBudget(t, db, "2210", d("1000"))

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := ledger.ReserveAllocation(tx, budget.ID, kekv.ID, d("600")); err != nil {
			return err
		}
		return ledger.ReserveAllocation(tx, budget.ID, kekv.ID, d("600"))
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientAllocation)
	assert.True(t, d("1000").Equal(testutil.AllocationAmount(t, db, budget.ID, kekv.ID)))
}

func TestCheckDirectCeiling(t *testing.T) {
	db := testutil.SetupTestDB(t)
	budget, kekv := testutil.CreateTestBudget(t, db, "2240", d("1000000"))
	ceiling := d("99999.99")

	existing, _ := testutil.CreateTestContract(t, db, budget.ID, kekv.ID, domain.ContractTypeDirect, "50110000-9", d("1"), d("80000"))
	// other codes, types and statuses do not count
	testutil.CreateTestContract(t, db, budget.ID, kekv.ID, domain.ContractTypeDirect, "09130000-9", d("1"), d("90000"))
	testutil.CreateTestContract(t, db, budget.ID, kekv.ID, domain.ContractTypeOpenBidding, "50110000-9", d("1"), d("90000"))
	cancelled, _ := testutil.CreateTestContract(t, db, budget.ID, kekv.ID, domain.ContractTypeDirect, "50110000-9", d("1"), d("90000"))
	require.NoError(t, db.Model(cancelled).Update("status", domain.ContractStatusCancelled).Error)

	used, err := ledger.DirectAmountUsed(db, "50110000-9", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, d("80000").Equal(used))

	t.Run("over the ceiling", func(t *testing.T) {
		err := ledger.CheckDirectCeiling(db, "50110000-9", d("25000"), ceiling, uuid.Nil)
		assert.ErrorIs(t, err, ledger.ErrLimitExceeded)
	})

	t.Run("within the ceiling", func(t *testing.T) {
		err := ledger.CheckDirectCeiling(db, "50110000-9", d("15000"), ceiling, uuid.Nil)
		assert.NoError(t, err)
	})

	t.Run("excluding the contract itself", func(t *testing.T) {
		err := ledger.CheckDirectCeiling(db, "50110000-9", d("99000"), ceiling, existing.ID)
		assert.NoError(t, err)
	})
}

func TestPostAndReverseUsage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	budget, kekv := testutil.CreateTestBudget(t, db, "2240", d("100000"))
	_, spec := testutil.CreateTestContract(t, db, budget.ID, kekv.ID, domain.ContractTypeOpenBidding, "50110000-9", d("10"), d("100"))

	t.Run("over remaining is rejected", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := ledger.PostUsage(tx, spec.ID, d("12"))
			return err
		})
		assert.ErrorIs(t, err, ledger.ErrOverLimit)

		remaining, err := ledger.ComputeRemaining(db, spec.ID)
		require.NoError(t, err)
		assert.True(t, d("10").Equal(remaining))
	})

	t.Run("non-positive quantity is rejected", func(t *testing.T) {
		_, err := ledger.PostUsage(db, spec.ID, d("0"))
		assert.ErrorIs(t, err, ledger.ErrOverLimit)
	})

	t.Run("posting decrements remaining", func(t *testing.T) {
		var posted *domain.Specification
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			posted, err = ledger.PostUsage(tx, spec.ID, d("4"))
			return err
		})
		require.NoError(t, err)
		assert.True(t, d("6").Equal(posted.Remaining))
	})

	t.Run("reversal is capped at the line quantity", func(t *testing.T) {
		reversed, err := ledger.ReverseUsage(db, spec.ID, d("100"))
		require.NoError(t, err)
		assert.True(t, d("10").Equal(reversed.Remaining))
	})

	t.Run("unknown specification", func(t *testing.T) {
		_, err := ledger.PostUsage(db, uuid.New(), d("1"))
		assert.ErrorIs(t, err, ledger.ErrSpecificationNotFound)
	})
}

func TestAdjustUsedAmount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	budget, kekv := testutil.CreateTestBudget(t, db, "2240", d("100000"))
	contract, _ := testutil.CreateTestContract(t, db, budget.ID, kekv.ID, domain.ContractTypeOpenBidding, "50110000-9", d("10"), d("1000"))

	require.NoError(t, ledger.AdjustUsedAmount(db, contract.ID, d("5000")))
	require.NoError(t, ledger.AdjustUsedAmount(db, contract.ID, d("-5000")))

	reloaded := testutil.Reload[domain.Contract](t, db, contract.ID)
	assert.True(t, reloaded.UsedAmount.IsZero())

	assert.ErrorIs(t, ledger.AdjustUsedAmount(db, uuid.New(), d("1")), ledger.ErrContractNotFound)
}

func TestReconcile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	budget, kekv := testutil.CreateTestBudget(t, db, "2240", d("100000"))
	contract, spec := testutil.CreateTestContract(t, db, budget.ID, kekv.ID, domain.ContractTypeOpenBidding, "50110000-9", d("10"), d("100"))

	usage := &domain.SpecificationUsage{
		SpecificationID: spec.ID,
		Date:            budget.Date,
		QuantityUsed:    d("3"),
		Amount:          d("300"),
	}
	require.NoError(t, db.Create(usage).Error)

	result, err := ledger.Reconcile(context.Background(), db, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SpecificationsChecked)
	assert.Equal(t, 1, result.ContractsChecked)
	require.Len(t, result.Drifts, 2)

	// report-only run leaves the rows untouched
	assert.True(t, d("10").Equal(testutil.Reload[domain.Specification](t, db, spec.ID).Remaining))

	result, err = ledger.Reconcile(context.Background(), db, true)
	require.NoError(t, err)
	assert.Len(t, result.Drifts, 2)

	assert.True(t, d("7").Equal(testutil.Reload[domain.Specification](t, db, spec.ID).Remaining))
	assert.True(t, d("300").Equal(testutil.Reload[domain.Contract](t, db, contract.ID).UsedAmount))

	result, err = ledger.Reconcile(context.Background(), db, true)
	require.NoError(t, err)
	assert.Empty(t, result.Drifts)
}

func TestLineAmount_DecimalExactness(t *testing.T) {
	// 0.1 + 0.2 style drift must not appear in money sums
	total := decimal.Zero
	for i := 0; i < 10; i++ {
		total = total.Add(ledger.LineAmount(d("1"), d("0.10"), 1))
	}
	assert.True(t, d("1").Equal(total))
}
