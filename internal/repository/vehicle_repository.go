package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"gorm.io/gorm"
)

var vehicleSortableFields = map[string]string{
	"createdAt": "created_at",
	"number":    "number",
	"brand":     "brand",
	"vin":       "vin",
	"year":      "year",
}

// VehicleRepository handles fleet vehicle data access
type VehicleRepository struct {
	db *gorm.DB
}

// NewVehicleRepository creates a new vehicle repository instance
func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *VehicleRepository) WithTx(tx *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: tx}
}

// Create inserts a vehicle
func (r *VehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	return r.db.WithContext(ctx).Create(vehicle).Error
}

// GetByID retrieves a vehicle
func (r *VehicleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	var vehicle domain.Vehicle
	if err := r.db.WithContext(ctx).First(&vehicle, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// GetByVin finds a vehicle by VIN, returning nil when absent
func (r *VehicleRepository) GetByVin(ctx context.Context, vin string) (*domain.Vehicle, error) {
	var vehicle domain.Vehicle
	err := r.db.WithContext(ctx).Where("vin = ?", vin).First(&vehicle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vehicle, nil
}

// Update saves a vehicle
func (r *VehicleRepository) Update(ctx context.Context, vehicle *domain.Vehicle) error {
	return r.db.WithContext(ctx).Save(vehicle).Error
}

// Delete removes a vehicle
func (r *VehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Vehicle{}, "id = ?", id).Error
}

// CountReferences returns how many contracts and specifications point at a vehicle
func (r *VehicleRepository) CountReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	var contracts, specs int64
	if err := db.Model(&domain.Contract{}).Where("vehicle_id = ?", id).Count(&contracts).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&domain.Specification{}).Where("vehicle_id = ?", id).Count(&specs).Error; err != nil {
		return 0, err
	}
	return contracts + specs, nil
}

// List returns a paginated list of vehicles
func (r *VehicleRepository) List(ctx context.Context, page, pageSize int, search string, sortCfg SortConfig) ([]domain.Vehicle, int64, error) {
	var vehicles []domain.Vehicle
	var total int64

	page, pageSize = NormalizePage(page, pageSize)
	query := r.db.WithContext(ctx).Model(&domain.Vehicle{})
	if search != "" {
		pattern := likePattern(search)
		query = query.Where("LOWER(vin) LIKE ? OR LOWER(number) LIKE ? OR LOWER(brand) LIKE ?", pattern, pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := paginate(query, page, pageSize).
		Order(BuildOrderClause(sortCfg, vehicleSortableFields, "created_at")).
		Find(&vehicles).Error
	return vehicles, total, err
}
