package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/cache"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/mapper"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BudgetService manages budgets and their KEKV allocations
type BudgetService struct {
	db         *gorm.DB
	budgetRepo *repository.BudgetRepository
	kekvRepo   *repository.KekvRepository
	cache      cache.Cache
	logger     *zap.Logger
}

// NewBudgetService creates a new BudgetService
func NewBudgetService(
	db *gorm.DB,
	budgetRepo *repository.BudgetRepository,
	kekvRepo *repository.KekvRepository,
	statsCache cache.Cache,
	logger *zap.Logger,
) *BudgetService {
	return &BudgetService{
		db:         db,
		budgetRepo: budgetRepo,
		kekvRepo:   kekvRepo,
		cache:      statsCache,
		logger:     logger,
	}
}

// Create creates a budget together with its allocations. KEKV codes that do
// not exist yet are created; repeated codes are merged.
func (s *BudgetService) Create(ctx context.Context, req *domain.CreateBudgetRequest) (*domain.BudgetDTO, error) {
	budgetType := req.Type
	if budgetType == "" {
		budgetType = domain.BudgetTypeGeneral
	}

	budget := &domain.Budget{
		Name:        req.Name,
		Type:        budgetType,
		Year:        req.Year,
		TotalAmount: req.TotalAmount,
		Date:        req.Date.Time,
		Description: req.Description,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocated := decimal.Zero
		for _, a := range req.Allocations {
			allocated = allocated.Add(a.Amount)
		}
		if budget.TotalAmount.IsZero() {
			budget.TotalAmount = allocated
		}

		if err := s.budgetRepo.WithTx(tx).Create(ctx, budget); err != nil {
			return fmt.Errorf("failed to create budget: %w", err)
		}

		for _, a := range req.Allocations {
			if err := s.allocate(ctx, tx, budget.ID, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("budget created",
		zap.String("budget_id", budget.ID.String()),
		zap.Int("allocations", len(req.Allocations)))
	return s.GetByID(ctx, budget.ID)
}

// allocate adds amount to the allocation of kekvCode, creating KEKV and allocation as needed
func (s *BudgetService) allocate(ctx context.Context, tx *gorm.DB, budgetID uuid.UUID, req domain.BudgetAllocationRequest) error {
	kekv, err := s.kekvRepo.WithTx(tx).FindOrCreate(ctx, req.KekvCode, req.KekvName)
	if err != nil {
		return fmt.Errorf("failed to resolve kekv %s: %w", req.KekvCode, err)
	}

	budgetRepo := s.budgetRepo.WithTx(tx)
	existing, err := budgetRepo.GetAllocation(ctx, budgetID, kekv.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to load allocation: %w", err)
	}
	if existing != nil {
		return budgetRepo.TopUpAllocation(ctx, existing.ID, req.Amount)
	}

	return budgetRepo.CreateAllocation(ctx, &domain.BudgetKekv{
		BudgetID:      budgetID,
		KekvID:        kekv.ID,
		PlannedAmount: req.Amount,
		Amount:        req.Amount,
	})
}

// AddAllocation adds a KEKV allocation to a budget or tops an existing one up
func (s *BudgetService) AddAllocation(ctx context.Context, budgetID uuid.UUID, req *domain.BudgetAllocationRequest) (*domain.BudgetDTO, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.budgetRepo.WithTx(tx).GetByID(ctx, budgetID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBudgetNotFound
			}
			return fmt.Errorf("failed to get budget: %w", err)
		}
		return s.allocate(ctx, tx, budgetID, *req)
	})
	if err != nil {
		return nil, err
	}

	invalidateBudgetStatistics(ctx, s.cache, s.logger, budgetID)
	return s.GetByID(ctx, budgetID)
}

// GetByID retrieves a budget with allocations
func (s *BudgetService) GetByID(ctx context.Context, id uuid.UUID) (*domain.BudgetDTO, error) {
	budget, err := s.budgetRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	dto := mapper.ToBudgetDTO(budget)
	return &dto, nil
}

// List returns a paginated list of budgets
func (s *BudgetService) List(ctx context.Context, page, pageSize int, filters *repository.BudgetFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePage(page, pageSize)

	budgets, total, err := s.budgetRepo.ListWithFilters(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}

	dtos := make([]domain.BudgetDTO, len(budgets))
	for i := range budgets {
		dtos[i] = mapper.ToBudgetDTO(&budgets[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

// Update changes budget attributes. The total amount can only change while
// no contract references the budget; allocations are managed via AddAllocation.
func (s *BudgetService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateBudgetRequest) (*domain.BudgetDTO, error) {
	budget, err := s.budgetRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	budget.Name = req.Name
	budget.Type = req.Type
	budget.Year = req.Year
	budget.Description = req.Description
	if req.TotalAmount != nil && !req.TotalAmount.Equal(budget.TotalAmount) {
		count, err := s.budgetRepo.CountContracts(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to count contracts: %w", err)
		}
		if count > 0 {
			return nil, fmt.Errorf("%w: total amount is fixed once contracts exist", ErrBudgetHasUsage)
		}
		budget.TotalAmount = *req.TotalAmount
	}
	if req.Date != nil && !req.Date.IsZero() {
		budget.Date = req.Date.Time
	}

	if err := s.budgetRepo.Update(ctx, budget); err != nil {
		return nil, fmt.Errorf("failed to update budget: %w", err)
	}

	invalidateBudgetStatistics(ctx, s.cache, s.logger, id)
	return s.GetByID(ctx, id)
}

// Delete removes a budget that no contract draws on
func (s *BudgetService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.budgetRepo.WithTx(tx)
		if _, err := repo.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBudgetNotFound
			}
			return fmt.Errorf("failed to get budget: %w", err)
		}

		count, err := repo.CountContracts(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count contracts: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %d contracts", ErrBudgetHasUsage, count)
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	invalidateBudgetStatistics(ctx, s.cache, s.logger, id)
	s.logger.Info("budget deleted", zap.String("budget_id", id.String()))
	return nil
}

func paginated(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}
}
