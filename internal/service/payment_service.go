package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/cache"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/ledger"
	"github.com/straye-as/kosthorys-api/internal/mapper"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentService records payments against contracts
type PaymentService struct {
	db           *gorm.DB
	paymentRepo  *repository.PaymentRepository
	contractRepo *repository.ContractRepository
	ceiling      decimal.Decimal
	cache        cache.Cache
	logger       *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	db *gorm.DB,
	paymentRepo *repository.PaymentRepository,
	contractRepo *repository.ContractRepository,
	directCeiling decimal.Decimal,
	statsCache cache.Cache,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		db:           db,
		paymentRepo:  paymentRepo,
		contractRepo: contractRepo,
		ceiling:      directCeiling,
		cache:        statsCache,
		logger:       logger,
	}
}

// Create records a payment. The paid total may not exceed the contract
// amount; reaching it exactly completes the contract. Cancelled contracts
// accept no payments.
func (s *PaymentService) Create(ctx context.Context, contractID uuid.UUID, req *domain.CreatePaymentRequest) (*domain.PaymentDTO, error) {
	if req.Date.Ptr() == nil {
		return nil, fmt.Errorf("%w: payment date is required", ErrInvalidInput)
	}
	payment := &domain.Payment{
		ContractID:  contractID,
		Amount:      req.Amount.Round(2),
		Date:        req.Date.Time,
		Description: req.Description,
	}
	var budgetID uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contractRepo := s.contractRepo.WithTx(tx)
		contract, err := contractRepo.GetForUpdate(ctx, contractID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContractNotFound
			}
			return fmt.Errorf("failed to get contract: %w", err)
		}
		budgetID = contract.BudgetID
		if contract.Status == domain.ContractStatusCancelled {
			return ErrContractNotEditable
		}

		paymentRepo := s.paymentRepo.WithTx(tx)
		paid, err := paymentRepo.SumByContract(ctx, contractID)
		if err != nil {
			return fmt.Errorf("failed to sum payments: %w", err)
		}

		total := paid.Add(payment.Amount)
		if total.GreaterThan(contract.Amount) {
			return fmt.Errorf("%w: %s paid, %s of %s left",
				ErrOverpayment, paid.StringFixed(2), contract.Amount.Sub(paid).StringFixed(2), contract.Amount.StringFixed(2))
		}

		if err := paymentRepo.Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		if total.Equal(contract.Amount) && contract.Status != domain.ContractStatusCompleted {
			s.logger.Info("contract fully paid",
				zap.String("contract_id", contractID.String()),
				zap.String("amount", contract.Amount.StringFixed(2)))
			return contractRepo.UpdateFields(ctx, contractID, map[string]interface{}{
				"status": domain.ContractStatusCompleted,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateBudgetStatistics(ctx, s.cache, s.logger, budgetID)
	dto := mapper.ToPaymentDTO(payment)
	return &dto, nil
}

// ListByContract returns the payments of a contract
func (s *PaymentService) ListByContract(ctx context.Context, contractID uuid.UUID) ([]domain.PaymentDTO, error) {
	if err := ensureContract(ctx, s.contractRepo, contractID); err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.ListByContract(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	dtos := make([]domain.PaymentDTO, len(payments))
	for i := range payments {
		dtos[i] = mapper.ToPaymentDTO(&payments[i])
	}
	return dtos, nil
}

// Delete removes a payment. A completed contract that was fully paid and
// drops below its amount becomes ACTIVE again; for a direct contract that
// is refused when the DK code ceiling has no room left for it.
func (s *PaymentService) Delete(ctx context.Context, id uuid.UUID) error {
	var budgetID uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		payment, err := paymentRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("failed to get payment: %w", err)
		}

		contractRepo := s.contractRepo.WithTx(tx)
		contract, err := contractRepo.GetForUpdate(ctx, payment.ContractID)
		if err != nil {
			return fmt.Errorf("failed to get contract: %w", err)
		}
		budgetID = contract.BudgetID

		paidBefore, err := paymentRepo.SumByContract(ctx, contract.ID)
		if err != nil {
			return fmt.Errorf("failed to sum payments: %w", err)
		}

		if err := paymentRepo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}

		if contract.Status != domain.ContractStatusCompleted || !paidBefore.Equal(contract.Amount) {
			return nil
		}
		if !paidBefore.Sub(payment.Amount).LessThan(contract.Amount) {
			return nil
		}
		return s.reopen(ctx, tx, contract)
	})
	if err != nil {
		return err
	}

	invalidateBudgetStatistics(ctx, s.cache, s.logger, budgetID)
	s.logger.Info("payment deleted", zap.String("payment_id", id.String()))
	return nil
}

// reopen moves a contract completed by payment back to ACTIVE
func (s *PaymentService) reopen(ctx context.Context, tx *gorm.DB, contract *domain.Contract) error {
	if contract.ContractType == domain.ContractTypeDirect {
		if err := ledger.CheckDirectCeiling(tx, contract.DkCode, contract.Amount, s.ceiling, contract.ID); err != nil {
			return err
		}
	}

	s.logger.Info("contract reopened after payment removal",
		zap.String("contract_id", contract.ID.String()))
	return s.contractRepo.WithTx(tx).UpdateFields(ctx, contract.ID, map[string]interface{}{
		"status": domain.ContractStatusActive,
	})
}
