package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActRepository handles completion act data access
type ActRepository struct {
	db *gorm.DB
}

// NewActRepository creates a new act repository instance
func NewActRepository(db *gorm.DB) *ActRepository {
	return &ActRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ActRepository) WithTx(tx *gorm.DB) *ActRepository {
	return &ActRepository{db: tx}
}

// Create inserts an act and its items
func (r *ActRepository) Create(ctx context.Context, act *domain.Act) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(act).Error; err != nil {
		return err
	}
	for i := range act.Items {
		act.Items[i].ActID = act.ID
	}
	if len(act.Items) == 0 {
		return nil
	}
	return db.Omit(clause.Associations).Create(&act.Items).Error
}

// GetByID retrieves an act with its items and their specifications
func (r *ActRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Act, error) {
	var act domain.Act
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Specification").
		First(&act, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &act, nil
}

// ListByContract returns the acts of a contract, newest first
func (r *ActRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]domain.Act, error) {
	var acts []domain.Act
	err := r.db.WithContext(ctx).
		Preload("Items.Specification").
		Where("contract_id = ?", contractID).
		Order("created_at DESC").
		Find(&acts).Error
	return acts, err
}

// UpdateFields applies a partial update
func (r *ActRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.Act{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes an act and its items
func (r *ActRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("act_id = ?", id).Delete(&domain.ActItem{}).Error; err != nil {
		return err
	}
	return db.Delete(&domain.Act{}, "id = ?", id).Error
}
