// Package ledger owns every balance rule of the accounting model: KEKV
// allocations, the direct contract ceiling, remaining specification
// quantities and contract used amounts.
//
// All mutating functions take the caller's transaction and must run inside
// db.Transaction so that the balance change commits together with the
// document that caused it.
package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"gorm.io/gorm"
)

var (
	// ErrInsufficientAllocation is returned when a KEKV allocation cannot cover an amount
	ErrInsufficientAllocation = errors.New("insufficient budget allocation")

	// ErrLimitExceeded is returned when a direct contract would exceed the ceiling for its DK code
	ErrLimitExceeded = errors.New("direct contract limit exceeded")

	// ErrOverLimit is returned when a posted quantity exceeds the remaining quantity of a line
	ErrOverLimit = errors.New("quantity exceeds remaining")

	// ErrAllocationNotFound is returned when a budget has no allocation for a KEKV
	ErrAllocationNotFound = errors.New("budget allocation not found")

	// ErrSpecificationNotFound is returned when a specification line does not exist
	ErrSpecificationNotFound = errors.New("specification not found")

	// ErrContractNotFound is returned when a contract does not exist
	ErrContractNotFound = errors.New("contract not found")
)

// DirectCeilingStatuses are the contract statuses that consume the direct contract ceiling
var DirectCeilingStatuses = []domain.ContractStatus{
	domain.ContractStatusActive,
	domain.ContractStatusPlanned,
}

// LineAmount is quantity x price x max(serviceCount, 1), rounded to kopecks
func LineAmount(quantity, price decimal.Decimal, serviceCount int) decimal.Decimal {
	if serviceCount < 1 {
		serviceCount = 1
	}
	return quantity.Mul(price).Mul(decimal.NewFromInt(int64(serviceCount))).Round(2)
}

// Line is the minimal view of a specification needed to price it
type Line struct {
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	ServiceCount int
}

// ContractAmount sums the line amounts
func ContractAmount(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(LineAmount(l.Quantity, l.Price, l.ServiceCount))
	}
	return total
}

// ExceedsCeiling reports whether existing + amount is strictly above ceiling
func ExceedsCeiling(existing, amount, ceiling decimal.Decimal) bool {
	return existing.Add(amount).GreaterThan(ceiling)
}

// ReserveAllocation decrements the remaining allocation of (budgetID, kekvID)
// by amount. The decrement is a single conditional update so two concurrent
// reservations can never both pass the balance check.
func ReserveAllocation(tx *gorm.DB, budgetID, kekvID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsZero() {
		return allocationExists(tx, budgetID, kekvID)
	}
	if amount.IsNegative() {
		return ReleaseAllocation(tx, budgetID, kekvID, amount.Neg())
	}

	result := tx.Model(&domain.BudgetKekv{}).
		Where("budget_id = ? AND kekv_id = ? AND amount >= ?", budgetID, kekvID, amount).
		Update("amount", gorm.Expr("amount - ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to reserve allocation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if err := allocationExists(tx, budgetID, kekvID); err != nil {
			return err
		}
		return ErrInsufficientAllocation
	}
	return nil
}

// ReleaseAllocation returns amount to the remaining allocation of (budgetID, kekvID)
func ReleaseAllocation(tx *gorm.DB, budgetID, kekvID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	result := tx.Model(&domain.BudgetKekv{}).
		Where("budget_id = ? AND kekv_id = ?", budgetID, kekvID).
		Update("amount", gorm.Expr("amount + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to release allocation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAllocationNotFound
	}
	return nil
}

func allocationExists(tx *gorm.DB, budgetID, kekvID uuid.UUID) error {
	var count int64
	if err := tx.Model(&domain.BudgetKekv{}).
		Where("budget_id = ? AND kekv_id = ?", budgetID, kekvID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load allocation: %w", err)
	}
	if count == 0 {
		return ErrAllocationNotFound
	}
	return nil
}

// DirectAmountUsed sums the amounts of ACTIVE and PLANNED direct contracts
// sharing dkCode, skipping excludeID when it is not uuid.Nil
func DirectAmountUsed(tx *gorm.DB, dkCode string, excludeID uuid.UUID) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	query := tx.Model(&domain.Contract{}).
		Where("contract_type = ? AND dk_code = ? AND status IN ?",
			domain.ContractTypeDirect, dkCode, DirectCeilingStatuses)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum direct contracts: %w", err)
	}

	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total, nil
}

// CheckDirectCeiling fails with ErrLimitExceeded when adding amount to the
// direct contracts of dkCode would pass ceiling. On postgres it first takes a
// transaction-scoped advisory lock keyed by the DK code, serializing
// concurrent direct contracts of the same code until commit.
func CheckDirectCeiling(tx *gorm.DB, dkCode string, amount, ceiling decimal.Decimal, excludeID uuid.UUID) error {
	if tx.Dialector.Name() == "postgres" {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "dk:"+dkCode).Error; err != nil {
			return fmt.Errorf("failed to lock dk code: %w", err)
		}
	}

	existing, err := DirectAmountUsed(tx, dkCode, excludeID)
	if err != nil {
		return err
	}
	if ExceedsCeiling(existing, amount, ceiling) {
		return fmt.Errorf("%w: %s of %s already used for %s",
			ErrLimitExceeded, existing.StringFixed(2), ceiling.StringFixed(2), dkCode)
	}
	return nil
}

// PostUsage consumes quantity from the remaining quantity of a specification.
// It fails with ErrOverLimit when quantity is more than what remains.
func PostUsage(tx *gorm.DB, specificationID uuid.UUID, quantity decimal.Decimal) (*domain.Specification, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrOverLimit)
	}

	result := tx.Model(&domain.Specification{}).
		Where("id = ? AND remaining >= ?", specificationID, quantity).
		Update("remaining", gorm.Expr("remaining - ?", quantity))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to post usage: %w", result.Error)
	}

	spec, err := loadSpecification(tx, specificationID)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s requested, %s remaining for %q",
			ErrOverLimit, quantity.String(), spec.Remaining.String(), spec.Name)
	}
	return spec, nil
}

// ReverseUsage gives quantity back to a specification. The remaining
// quantity is capped at the line quantity.
func ReverseUsage(tx *gorm.DB, specificationID uuid.UUID, quantity decimal.Decimal) (*domain.Specification, error) {
	spec, err := loadSpecification(tx, specificationID)
	if err != nil {
		return nil, err
	}
	restored := decimal.Min(spec.Remaining.Add(quantity), spec.Quantity)

	if err := tx.Model(&domain.Specification{}).
		Where("id = ?", specificationID).
		Update("remaining", restored).Error; err != nil {
		return nil, fmt.Errorf("failed to reverse usage: %w", err)
	}
	spec.Remaining = restored
	return spec, nil
}

// ComputeRemaining returns the stored remaining quantity of a specification
func ComputeRemaining(tx *gorm.DB, specificationID uuid.UUID) (decimal.Decimal, error) {
	spec, err := loadSpecification(tx, specificationID)
	if err != nil {
		return decimal.Zero, err
	}
	return spec.Remaining, nil
}

// AdjustUsedAmount adds delta (possibly negative) to contract.used_amount
func AdjustUsedAmount(tx *gorm.DB, contractID uuid.UUID, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	result := tx.Model(&domain.Contract{}).
		Where("id = ?", contractID).
		Update("used_amount", gorm.Expr("used_amount + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to adjust used amount: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrContractNotFound
	}
	return nil
}

func loadSpecification(tx *gorm.DB, id uuid.UUID) (*domain.Specification, error) {
	var spec domain.Specification
	if err := tx.First(&spec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSpecificationNotFound
		}
		return nil, fmt.Errorf("failed to load specification: %w", err)
	}
	return &spec, nil
}
