package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageRepository handles specification usage data access
type UsageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new usage repository instance
func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *UsageRepository) WithTx(tx *gorm.DB) *UsageRepository {
	return &UsageRepository{db: tx}
}

// Create inserts a usage record
func (r *UsageRepository) Create(ctx context.Context, usage *domain.SpecificationUsage) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(usage).Error
}

// GetByID retrieves a usage record with its specification
func (r *UsageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SpecificationUsage, error) {
	var usage domain.SpecificationUsage
	err := r.db.WithContext(ctx).Preload("Specification").First(&usage, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// ListBySpecification returns the usage history of a line, newest first
func (r *UsageRepository) ListBySpecification(ctx context.Context, specificationID uuid.UUID) ([]domain.SpecificationUsage, error) {
	var usages []domain.SpecificationUsage
	err := r.db.WithContext(ctx).
		Where("specification_id = ?", specificationID).
		Order("date DESC, created_at DESC").
		Find(&usages).Error
	return usages, err
}

// Delete removes a usage record
func (r *UsageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.SpecificationUsage{}, "id = ?", id).Error
}
