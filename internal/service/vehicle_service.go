package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/mapper"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VehicleService manages the fleet register
type VehicleService struct {
	repo   *repository.VehicleRepository
	logger *zap.Logger
}

// NewVehicleService creates a new VehicleService
func NewVehicleService(repo *repository.VehicleRepository, logger *zap.Logger) *VehicleService {
	return &VehicleService{repo: repo, logger: logger}
}

// Create registers a vehicle with a unique VIN
func (s *VehicleService) Create(ctx context.Context, req *domain.VehicleRequest) (*domain.VehicleDTO, error) {
	vin := strings.TrimSpace(req.Vin)
	existing, err := s.repo.GetByVin(ctx, vin)
	if err != nil {
		return nil, fmt.Errorf("failed to check vin: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrVehicleVinExists, vin)
	}

	vehicle := &domain.Vehicle{}
	applyVehicleRequest(vehicle, req)
	if err := s.repo.Create(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}

	s.logger.Info("vehicle created", zap.String("vehicle_id", vehicle.ID.String()), zap.String("vin", vin))
	dto := mapper.ToVehicleDTO(vehicle)
	return &dto, nil
}

// GetByID retrieves a vehicle
func (s *VehicleService) GetByID(ctx context.Context, id uuid.UUID) (*domain.VehicleDTO, error) {
	vehicle, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToVehicleDTO(vehicle)
	return &dto, nil
}

// List returns a paginated list of vehicles
func (s *VehicleService) List(ctx context.Context, page, pageSize int, search string, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePage(page, pageSize)
	vehicles, total, err := s.repo.List(ctx, page, pageSize, search, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	dtos := make([]domain.VehicleDTO, len(vehicles))
	for i := range vehicles {
		dtos[i] = mapper.ToVehicleDTO(&vehicles[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

// Update replaces vehicle attributes; the VIN stays unique
func (s *VehicleService) Update(ctx context.Context, id uuid.UUID, req *domain.VehicleRequest) (*domain.VehicleDTO, error) {
	vehicle, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	vin := strings.TrimSpace(req.Vin)
	if vin != vehicle.Vin {
		other, err := s.repo.GetByVin(ctx, vin)
		if err != nil {
			return nil, fmt.Errorf("failed to check vin: %w", err)
		}
		if other != nil {
			return nil, fmt.Errorf("%w: %s", ErrVehicleVinExists, vin)
		}
	}

	applyVehicleRequest(vehicle, req)
	if err := s.repo.Update(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}
	dto := mapper.ToVehicleDTO(vehicle)
	return &dto, nil
}

// Delete removes a vehicle no contract or line refers to
func (s *VehicleService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count references: %w", err)
	}
	if refs > 0 {
		return ErrVehicleInUse
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	s.logger.Info("vehicle deleted", zap.String("vehicle_id", id.String()))
	return nil
}

func (s *VehicleService) get(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	vehicle, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return vehicle, nil
}

func applyVehicleRequest(vehicle *domain.Vehicle, req *domain.VehicleRequest) {
	vehicle.Vin = strings.TrimSpace(req.Vin)
	vehicle.Number = req.Number
	vehicle.Brand = req.Brand
	vehicle.Model = req.Model
	vehicle.Location = req.Location
	vehicle.Mileage = req.Mileage
	vehicle.Year = req.Year
}
