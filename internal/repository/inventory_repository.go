package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository handles warehouse stock data access
type InventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates a new inventory repository instance
func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *InventoryRepository) WithTx(tx *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: tx}
}

// FindItem looks an item up by code, then by name. Returns nil when absent.
func (r *InventoryRepository) FindItem(ctx context.Context, code, name string) (*domain.InventoryItem, error) {
	db := r.db.WithContext(ctx)
	var item domain.InventoryItem
	if code != "" {
		err := db.Where("code = ?", code).First(&item).Error
		if err == nil {
			return &item, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	err := db.Where("name = ?", name).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// CreateItem inserts an inventory item
func (r *InventoryRepository) CreateItem(ctx context.Context, item *domain.InventoryItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

// AddQuantity increments stock and records the latest price
func (r *InventoryRepository) AddQuantity(ctx context.Context, item *domain.InventoryItem, quantity, price decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&domain.InventoryItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity + ?", quantity),
			"price":    price,
		}).Error
}

// FindOrCreateUnit returns the unit with name, creating it when missing
func (r *InventoryRepository) FindOrCreateUnit(ctx context.Context, name string) (*domain.Unit, error) {
	unit := &domain.Unit{Name: name}
	err := r.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(unit).Error
	return unit, err
}

// FindOrCreateCategory returns the category with name, creating it when missing
func (r *InventoryRepository) FindOrCreateCategory(ctx context.Context, name string) (*domain.InventoryCategory, error) {
	category := &domain.InventoryCategory{Name: name}
	err := r.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(category).Error
	return category, err
}

// List returns a paginated list of items with category and unit
func (r *InventoryRepository) List(ctx context.Context, page, pageSize int, search string) ([]domain.InventoryItem, int64, error) {
	var items []domain.InventoryItem
	var total int64

	page, pageSize = NormalizePage(page, pageSize)
	query := r.db.WithContext(ctx).Model(&domain.InventoryItem{})
	if search != "" {
		pattern := likePattern(search)
		query = query.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", pattern, pattern)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := paginate(query, page, pageSize).
		Preload("Category").
		Preload("Unit").
		Order("name ASC").
		Find(&items).Error
	return items, total, err
}
