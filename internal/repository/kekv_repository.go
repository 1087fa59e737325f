package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"gorm.io/gorm"
)

// KekvRepository handles expenditure category data access
type KekvRepository struct {
	db *gorm.DB
}

// NewKekvRepository creates a new KEKV repository instance
func NewKekvRepository(db *gorm.DB) *KekvRepository {
	return &KekvRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *KekvRepository) WithTx(tx *gorm.DB) *KekvRepository {
	return &KekvRepository{db: tx}
}

// Create inserts a KEKV
func (r *KekvRepository) Create(ctx context.Context, kekv *domain.Kekv) error {
	return r.db.WithContext(ctx).Create(kekv).Error
}

// GetByID retrieves a KEKV by ID
func (r *KekvRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Kekv, error) {
	var kekv domain.Kekv
	if err := r.db.WithContext(ctx).First(&kekv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &kekv, nil
}

// GetByCode finds a KEKV by code, returning nil when absent
func (r *KekvRepository) GetByCode(ctx context.Context, code string) (*domain.Kekv, error) {
	var kekv domain.Kekv
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&kekv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &kekv, nil
}

// FindOrCreate returns the KEKV with code, creating it with name when missing
func (r *KekvRepository) FindOrCreate(ctx context.Context, code, name string) (*domain.Kekv, error) {
	existing, err := r.GetByCode(ctx, code)
	if err != nil || existing != nil {
		return existing, err
	}
	if name == "" {
		name = code
	}
	kekv := &domain.Kekv{Code: code, Name: name}
	if err := r.Create(ctx, kekv); err != nil {
		return nil, err
	}
	return kekv, nil
}

// List returns all KEKV ordered by code
func (r *KekvRepository) List(ctx context.Context) ([]domain.Kekv, error) {
	var kekvs []domain.Kekv
	err := r.db.WithContext(ctx).Order("code ASC").Find(&kekvs).Error
	return kekvs, err
}
