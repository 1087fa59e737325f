package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"gorm.io/gorm"
)

// PaymentRepository handles payment data access
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

// Create inserts a payment
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// GetByID retrieves a payment
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	var payment domain.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByContract returns the payments of a contract by date
func (r *PaymentRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("date ASC, created_at ASC").
		Find(&payments).Error
	return payments, err
}

// SumByContract returns the total paid against a contract
func (r *PaymentRepository) SumByContract(ctx context.Context, contractID uuid.UUID) (decimal.Decimal, error) {
	totals, err := r.SumByContracts(ctx, []uuid.UUID{contractID})
	if err != nil {
		return decimal.Zero, err
	}
	return totals[contractID], nil
}

// SumByContracts returns the total paid per contract
func (r *PaymentRepository) SumByContracts(ctx context.Context, contractIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(contractIDs))
	if len(contractIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ContractID uuid.UUID
		Amount     decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&domain.Payment{}).
		Select("contract_id, amount").
		Where("contract_id IN ?", contractIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ContractID] = out[row.ContractID].Add(row.Amount)
	}
	return out, nil
}

// Delete removes a payment
func (r *PaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Payment{}, "id = ?", id).Error
}
