package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContractFilters defines filter options for contract listing
type ContractFilters struct {
	BudgetID     *uuid.UUID
	KekvID       *uuid.UUID
	Status       *domain.ContractStatus
	ContractType *domain.ContractType
	DkCode       string
	Search       string
}

var contractSortableFields = map[string]string{
	"createdAt":      "created_at",
	"updatedAt":      "updated_at",
	"registryNumber": "registry_number",
	"contractor":     "contractor",
	"amount":         "amount",
	"usedAmount":     "used_amount",
	"status":         "status",
	"startDate":      "start_date",
	"endDate":        "end_date",
}

// ContractRepository handles contract data access operations
type ContractRepository struct {
	db *gorm.DB
}

// NewContractRepository creates a new contract repository instance
func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ContractRepository) WithTx(tx *gorm.DB) *ContractRepository {
	return &ContractRepository{db: tx}
}

// Create inserts the contract row only; specifications are inserted separately
func (r *ContractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(contract).Error
}

// GetByID retrieves a contract with its budget, KEKV and specifications
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	var contract domain.Contract
	err := r.db.WithContext(ctx).
		Preload("Budget").
		Preload("Kekv").
		Preload("Specifications", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&contract, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// GetForUpdate retrieves the bare contract row with a row lock
// (ignored by SQLite, which serializes writers)
func (r *ContractRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	var contract domain.Contract
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&contract, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// Exists reports whether a contract with id exists
func (r *ContractRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Contract{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Update saves contract attributes without touching associations
func (r *ContractRepository) Update(ctx context.Context, contract *domain.Contract) error {
	return r.db.WithContext(ctx).Omit(clause.Associations, "used_amount").Save(contract).Error
}

// UpdateFields applies a partial update
func (r *ContractRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.Contract{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes a contract and its specifications
func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("contract_id = ?", id).Delete(&domain.Specification{}).Error; err != nil {
		return err
	}
	return db.Delete(&domain.Contract{}, "id = ?", id).Error
}

// ListWithFilters returns a paginated list of contracts with filter and sort options
func (r *ContractRepository) ListWithFilters(ctx context.Context, page, pageSize int, filters *ContractFilters, sortCfg SortConfig) ([]domain.Contract, int64, error) {
	var contracts []domain.Contract
	var total int64

	page, pageSize = NormalizePage(page, pageSize)
	query := r.applyFilters(r.db.WithContext(ctx).Model(&domain.Contract{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Preload("Budget").
		Preload("Kekv").
		Order(BuildOrderClause(sortCfg, contractSortableFields, "created_at")).
		Find(&contracts).Error
	return contracts, total, err
}

func (r *ContractRepository) applyFilters(query *gorm.DB, filters *ContractFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if filters.BudgetID != nil {
		query = query.Where("budget_id = ?", *filters.BudgetID)
	}
	if filters.KekvID != nil {
		query = query.Where("kekv_id = ?", *filters.KekvID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ContractType != nil {
		query = query.Where("contract_type = ?", *filters.ContractType)
	}
	if filters.DkCode != "" {
		query = query.Where("dk_code = ?", filters.DkCode)
	}
	if filters.Search != "" {
		pattern := likePattern(filters.Search)
		query = query.Where("LOWER(contractor) LIKE ? OR LOWER(number) LIKE ? OR LOWER(registry_number) LIKE ?",
			pattern, pattern, pattern)
	}
	return query
}

// DocumentCounts holds the number of documents posted against a contract
type DocumentCounts struct {
	Acts     int64
	Usages   int64
	Payments int64
}

// Any reports whether at least one document exists
func (c DocumentCounts) Any() bool {
	return c.Acts+c.Usages+c.Payments > 0
}

// CountDocuments counts acts, usages and payments of a contract
func (r *ContractRepository) CountDocuments(ctx context.Context, contractID uuid.UUID) (DocumentCounts, error) {
	var counts DocumentCounts
	db := r.db.WithContext(ctx)

	if err := db.Model(&domain.Act{}).Where("contract_id = ?", contractID).Count(&counts.Acts).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&domain.SpecificationUsage{}).
		Where("specification_id IN (?)", db.Model(&domain.Specification{}).Select("id").Where("contract_id = ?", contractID)).
		Count(&counts.Usages).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&domain.Payment{}).Where("contract_id = ?", contractID).Count(&counts.Payments).Error; err != nil {
		return counts, err
	}
	return counts, nil
}

// ListByBudget returns every contract of a budget with its KEKV
func (r *ContractRepository) ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]domain.Contract, error) {
	var contracts []domain.Contract
	err := r.db.WithContext(ctx).
		Preload("Kekv").
		Where("budget_id = ?", budgetID).
		Order("created_at ASC").
		Find(&contracts).Error
	return contracts, err
}
