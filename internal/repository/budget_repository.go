package repository

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BudgetFilters defines filter options for budget listing
type BudgetFilters struct {
	Year   *int
	Type   *domain.BudgetType
	Search string
}

var budgetSortableFields = map[string]string{
	"createdAt":   "created_at",
	"name":        "name",
	"year":        "year",
	"date":        "date",
	"totalAmount": "total_amount",
}

// BudgetRepository handles budget and allocation data access
type BudgetRepository struct {
	db *gorm.DB
}

// NewBudgetRepository creates a new budget repository instance
func NewBudgetRepository(db *gorm.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *BudgetRepository) WithTx(tx *gorm.DB) *BudgetRepository {
	return &BudgetRepository{db: tx}
}

// Create inserts a budget without touching its allocations
func (r *BudgetRepository) Create(ctx context.Context, budget *domain.Budget) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(budget).Error
}

// GetByID retrieves a budget with its allocations and their KEKV
func (r *BudgetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Budget, error) {
	var budget domain.Budget
	err := r.db.WithContext(ctx).
		Preload("Allocations.Kekv").
		First(&budget, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	sortAllocations(budget.Allocations)
	return &budget, nil
}

// Update saves budget attributes
func (r *BudgetRepository) Update(ctx context.Context, budget *domain.Budget) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(budget).Error
}

// Delete removes a budget and its allocations
func (r *BudgetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("budget_id = ?", id).Delete(&domain.BudgetKekv{}).Error; err != nil {
		return err
	}
	return db.Delete(&domain.Budget{}, "id = ?", id).Error
}

// ListWithFilters returns a paginated list of budgets with allocations
func (r *BudgetRepository) ListWithFilters(ctx context.Context, page, pageSize int, filters *BudgetFilters, sortCfg SortConfig) ([]domain.Budget, int64, error) {
	var budgets []domain.Budget
	var total int64

	page, pageSize = NormalizePage(page, pageSize)
	query := r.db.WithContext(ctx).Model(&domain.Budget{})

	if filters != nil {
		if filters.Year != nil {
			query = query.Where("year = ?", *filters.Year)
		}
		if filters.Type != nil {
			query = query.Where("type = ?", *filters.Type)
		}
		if filters.Search != "" {
			query = query.Where("LOWER(name) LIKE ?", likePattern(filters.Search))
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Preload("Allocations.Kekv").
		Order(BuildOrderClause(sortCfg, budgetSortableFields, "created_at")).
		Find(&budgets).Error
	for i := range budgets {
		sortAllocations(budgets[i].Allocations)
	}
	return budgets, total, err
}

// CountContracts returns the number of contracts drawing on a budget
func (r *BudgetRepository) CountContracts(ctx context.Context, budgetID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Contract{}).
		Where("budget_id = ?", budgetID).
		Count(&count).Error
	return count, err
}

// GetAllocation retrieves the allocation of a budget to a KEKV
func (r *BudgetRepository) GetAllocation(ctx context.Context, budgetID, kekvID uuid.UUID) (*domain.BudgetKekv, error) {
	var allocation domain.BudgetKekv
	err := r.db.WithContext(ctx).
		Preload("Kekv").
		Where("budget_id = ? AND kekv_id = ?", budgetID, kekvID).
		First(&allocation).Error
	if err != nil {
		return nil, err
	}
	return &allocation, nil
}

// CreateAllocation inserts a new allocation
func (r *BudgetRepository) CreateAllocation(ctx context.Context, allocation *domain.BudgetKekv) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(allocation).Error
}

// TopUpAllocation raises both the planned and remaining amount of an allocation
func (r *BudgetRepository) TopUpAllocation(ctx context.Context, allocationID uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&domain.BudgetKekv{}).
		Where("id = ?", allocationID).
		Updates(map[string]interface{}{
			"planned_amount": gorm.Expr("planned_amount + ?", amount),
			"amount":         gorm.Expr("amount + ?", amount),
		}).Error
}

// ListAllocations returns the allocations of a budget ordered by KEKV code
func (r *BudgetRepository) ListAllocations(ctx context.Context, budgetID uuid.UUID) ([]domain.BudgetKekv, error) {
	var allocations []domain.BudgetKekv
	err := r.db.WithContext(ctx).
		Preload("Kekv").
		Where("budget_id = ?", budgetID).
		Find(&allocations).Error
	sortAllocations(allocations)
	return allocations, err
}

func sortAllocations(allocations []domain.BudgetKekv) {
	sort.SliceStable(allocations, func(i, j int) bool {
		return kekvCode(allocations[i]) < kekvCode(allocations[j])
	})
}

func kekvCode(a domain.BudgetKekv) string {
	if a.Kekv == nil {
		return ""
	}
	return a.Kekv.Code
}
