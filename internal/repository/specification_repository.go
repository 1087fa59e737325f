package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"gorm.io/gorm"
)

// SpecificationRepository handles contract line item data access
type SpecificationRepository struct {
	db *gorm.DB
}

// NewSpecificationRepository creates a new specification repository instance
func NewSpecificationRepository(db *gorm.DB) *SpecificationRepository {
	return &SpecificationRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *SpecificationRepository) WithTx(tx *gorm.DB) *SpecificationRepository {
	return &SpecificationRepository{db: tx}
}

// CreateBatch inserts specification lines
func (r *SpecificationRepository) CreateBatch(ctx context.Context, specs []domain.Specification) error {
	if len(specs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&specs).Error
}

// GetByID retrieves a specification by ID
func (r *SpecificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Specification, error) {
	var spec domain.Specification
	if err := r.db.WithContext(ctx).First(&spec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &spec, nil
}

// GetByIDs retrieves several specifications keyed by ID
func (r *SpecificationRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Specification, error) {
	var specs []domain.Specification
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&specs).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]domain.Specification, len(specs))
	for _, s := range specs {
		out[s.ID] = s
	}
	return out, nil
}

// ListByContract returns the lines of a contract in insertion order
func (r *SpecificationRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]domain.Specification, error) {
	var specs []domain.Specification
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at ASC").
		Find(&specs).Error
	return specs, err
}

// SetVehicle links a specification to a vehicle
func (r *SpecificationRepository) SetVehicle(ctx context.Context, id, vehicleID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Specification{}).
		Where("id = ?", id).
		Update("vehicle_id", vehicleID).Error
}

// Delete removes a specification
func (r *SpecificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Specification{}, "id = ?", id).Error
}

// CountReferences returns how many act items and usages reference a line
func (r *SpecificationRepository) CountReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	var items, usages int64
	if err := db.Model(&domain.ActItem{}).Where("specification_id = ?", id).Count(&items).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&domain.SpecificationUsage{}).Where("specification_id = ?", id).Count(&usages).Error; err != nil {
		return 0, err
	}
	return items + usages, nil
}
