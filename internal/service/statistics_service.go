package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/cache"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/mapper"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var contractTypeOrder = []domain.ContractType{
	domain.ContractTypeDirect,
	domain.ContractTypeUrgent,
	domain.ContractTypeOpenBidding,
	domain.ContractTypeInsurance,
}

// StatisticsService builds spend-vs-plan roll-ups of budgets
type StatisticsService struct {
	budgetRepo   *repository.BudgetRepository
	contractRepo *repository.ContractRepository
	paymentRepo  *repository.PaymentRepository
	cache        cache.Cache
	logger       *zap.Logger
}

// NewStatisticsService creates a new StatisticsService
func NewStatisticsService(
	budgetRepo *repository.BudgetRepository,
	contractRepo *repository.ContractRepository,
	paymentRepo *repository.PaymentRepository,
	statsCache cache.Cache,
	logger *zap.Logger,
) *StatisticsService {
	if statsCache == nil {
		statsCache = cache.Noop{}
	}
	return &StatisticsService{
		budgetRepo:   budgetRepo,
		contractRepo: contractRepo,
		paymentRepo:  paymentRepo,
		cache:        statsCache,
		logger:       logger,
	}
}

// GetBudgetStatistics returns the roll-up of a budget, served from cache when present
func (s *StatisticsService) GetBudgetStatistics(ctx context.Context, budgetID uuid.UUID) (*domain.BudgetStatisticsDTO, error) {
	key := cache.BudgetStatisticsKey(budgetID)

	var cached domain.BudgetStatisticsDTO
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("failed to read statistics cache", zap.String("key", key), zap.Error(err))
	}
	if found {
		return &cached, nil
	}

	stats, err := s.compute(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, stats); err != nil {
		s.logger.Warn("failed to write statistics cache", zap.String("key", key), zap.Error(err))
	}
	return stats, nil
}

func (s *StatisticsService) compute(ctx context.Context, budgetID uuid.UUID) (*domain.BudgetStatisticsDTO, error) {
	budget, err := s.budgetRepo.GetByID(ctx, budgetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	contracts, err := s.contractRepo.ListByBudget(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	ids := make([]uuid.UUID, len(contracts))
	for i := range contracts {
		ids[i] = contracts[i].ID
	}
	paid, err := s.paymentRepo.SumByContracts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}

	stats := &domain.BudgetStatisticsDTO{
		BudgetID:      budget.ID,
		BudgetName:    budget.Name,
		Year:          budget.Year,
		ContractCount: int64(len(contracts)),
		StatusCounts:  make(map[domain.ContractStatus]int64),
		ByKekv:        make([]domain.KekvStatisticsDTO, 0, len(budget.Allocations)),
	}

	byKekv := make(map[uuid.UUID]*domain.AmountBreakdownDTO, len(budget.Allocations))
	for _, a := range budget.Allocations {
		row := domain.KekvStatisticsDTO{
			KekvID: a.KekvID,
			AmountBreakdownDTO: domain.AmountBreakdownDTO{
				Planned:   a.PlannedAmount,
				Remaining: a.Amount,
			},
		}
		if a.Kekv != nil {
			row.KekvCode = a.Kekv.Code
			row.KekvName = a.Kekv.Name
		}
		stats.ByKekv = append(stats.ByKekv, row)
	}
	for i := range stats.ByKekv {
		byKekv[stats.ByKekv[i].KekvID] = &stats.ByKekv[i].AmountBreakdownDTO
	}

	typeTotals := make(map[domain.ContractType]*domain.ContractTypeTotalDTO)
	for _, c := range contracts {
		stats.StatusCounts[c.Status]++
		if c.Status == domain.ContractStatusCancelled {
			continue
		}

		if row, ok := byKekv[c.KekvID]; ok {
			row.Contracted = row.Contracted.Add(c.Amount)
			row.Used = row.Used.Add(c.UsedAmount)
			row.Paid = row.Paid.Add(paid[c.ID])
		}

		total, ok := typeTotals[c.ContractType]
		if !ok {
			total = &domain.ContractTypeTotalDTO{ContractType: c.ContractType, Amount: decimal.Zero}
			typeTotals[c.ContractType] = total
		}
		total.Count++
		total.Amount = total.Amount.Add(c.Amount)
	}

	for i := range stats.ByKekv {
		row := &stats.ByKekv[i].AmountBreakdownDTO
		row.ExecutionPercent = mapper.ExecutionPercent(row.Paid, row.Planned)

		stats.Totals.Planned = stats.Totals.Planned.Add(row.Planned)
		stats.Totals.Remaining = stats.Totals.Remaining.Add(row.Remaining)
		stats.Totals.Contracted = stats.Totals.Contracted.Add(row.Contracted)
		stats.Totals.Used = stats.Totals.Used.Add(row.Used)
		stats.Totals.Paid = stats.Totals.Paid.Add(row.Paid)
	}
	stats.Totals.ExecutionPercent = mapper.ExecutionPercent(stats.Totals.Paid, stats.Totals.Planned)

	stats.ByContractType = make([]domain.ContractTypeTotalDTO, 0, len(typeTotals))
	for _, t := range contractTypeOrder {
		if total, ok := typeTotals[t]; ok {
			stats.ByContractType = append(stats.ByContractType, *total)
		}
	}
	return stats, nil
}

// invalidateBudgetStatistics drops the cached roll-up of a budget
func invalidateBudgetStatistics(ctx context.Context, c cache.Cache, logger *zap.Logger, budgetID uuid.UUID) {
	if c == nil || budgetID == uuid.Nil {
		return
	}
	if err := c.Delete(ctx, cache.BudgetStatisticsKey(budgetID)); err != nil {
		logger.Warn("failed to invalidate statistics cache",
			zap.String("budget_id", budgetID.String()),
			zap.Error(err))
	}
}
