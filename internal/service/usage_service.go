package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/cache"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/ledger"
	"github.com/straye-as/kosthorys-api/internal/mapper"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UsageService posts and reverses consumption against specification lines
type UsageService struct {
	db           *gorm.DB
	usageRepo    *repository.UsageRepository
	specRepo     *repository.SpecificationRepository
	contractRepo *repository.ContractRepository
	cache        cache.Cache
	logger       *zap.Logger
}

// NewUsageService creates a new UsageService
func NewUsageService(
	db *gorm.DB,
	usageRepo *repository.UsageRepository,
	specRepo *repository.SpecificationRepository,
	contractRepo *repository.ContractRepository,
	statsCache cache.Cache,
	logger *zap.Logger,
) *UsageService {
	return &UsageService{
		db:           db,
		usageRepo:    usageRepo,
		specRepo:     specRepo,
		contractRepo: contractRepo,
		cache:        statsCache,
		logger:       logger,
	}
}

// Post consumes quantity from a line and records the usage. Lines of a
// cancelled contract cannot be consumed.
func (s *UsageService) Post(ctx context.Context, specificationID uuid.UUID, req *domain.CreateUsageRequest) (*domain.UsageDTO, error) {
	if req.Date.Ptr() == nil {
		return nil, fmt.Errorf("%w: usage date is required", ErrInvalidInput)
	}
	usage := &domain.SpecificationUsage{
		SpecificationID: specificationID,
		Date:            req.Date.Time,
		QuantityUsed:    req.QuantityUsed,
		DocumentNumber:  req.DocumentNumber,
		Description:     req.Description,
	}
	var budgetID uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line, err := s.specRepo.WithTx(tx).GetByID(ctx, specificationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSpecificationNotFound
			}
			return fmt.Errorf("failed to get specification: %w", err)
		}

		contract, err := s.contractRepo.WithTx(tx).GetForUpdate(ctx, line.ContractID)
		if err != nil {
			return fmt.Errorf("failed to get contract: %w", err)
		}
		budgetID = contract.BudgetID
		if contract.Status == domain.ContractStatusCancelled {
			return ErrContractNotEditable
		}

		spec, err := ledger.PostUsage(tx, specificationID, req.QuantityUsed)
		if err != nil {
			return err
		}

		usage.Amount = ledger.LineAmount(req.QuantityUsed, spec.Price, spec.ServiceCount)
		if err := s.usageRepo.WithTx(tx).Create(ctx, usage); err != nil {
			return fmt.Errorf("failed to create usage: %w", err)
		}
		return ledger.AdjustUsedAmount(tx, spec.ContractID, usage.Amount)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("usage posted",
		zap.String("specification_id", specificationID.String()),
		zap.String("quantity", req.QuantityUsed.String()),
		zap.String("amount", usage.Amount.StringFixed(2)))

	invalidateBudgetStatistics(ctx, s.cache, s.logger, budgetID)
	dto := mapper.ToUsageDTO(usage)
	return &dto, nil
}

// List returns the usage history of a line
func (s *UsageService) List(ctx context.Context, specificationID uuid.UUID) ([]domain.UsageDTO, error) {
	if _, err := s.specRepo.GetByID(ctx, specificationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSpecificationNotFound
		}
		return nil, fmt.Errorf("failed to get specification: %w", err)
	}

	usages, err := s.usageRepo.ListBySpecification(ctx, specificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	dtos := make([]domain.UsageDTO, len(usages))
	for i := range usages {
		dtos[i] = mapper.ToUsageDTO(&usages[i])
	}
	return dtos, nil
}

// Delete removes a usage record and gives its quantity back to the line
func (s *UsageService) Delete(ctx context.Context, usageID uuid.UUID) error {
	var budgetID uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.usageRepo.WithTx(tx)
		usage, err := repo.GetByID(ctx, usageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUsageNotFound
			}
			return fmt.Errorf("failed to get usage: %w", err)
		}

		spec, err := ledger.ReverseUsage(tx, usage.SpecificationID, usage.QuantityUsed)
		if err != nil {
			return err
		}

		contract, err := s.contractRepo.WithTx(tx).GetForUpdate(ctx, spec.ContractID)
		if err != nil {
			return fmt.Errorf("failed to get contract: %w", err)
		}
		budgetID = contract.BudgetID

		if err := ledger.AdjustUsedAmount(tx, spec.ContractID, usage.Amount.Neg()); err != nil {
			return err
		}
		return repo.Delete(ctx, usageID)
	})
	if err != nil {
		return err
	}

	invalidateBudgetStatistics(ctx, s.cache, s.logger, budgetID)
	s.logger.Info("usage reversed", zap.String("usage_id", usageID.String()))
	return nil
}
