package service

import (
	"context"
	"fmt"

	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/mapper"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"go.uber.org/zap"
)

// KekvService manages the expenditure category dictionary
type KekvService struct {
	repo   *repository.KekvRepository
	logger *zap.Logger
}

// NewKekvService creates a new KekvService
func NewKekvService(repo *repository.KekvRepository, logger *zap.Logger) *KekvService {
	return &KekvService{repo: repo, logger: logger}
}

// List returns every KEKV ordered by code
func (s *KekvService) List(ctx context.Context) ([]domain.KekvDTO, error) {
	kekvs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list kekv: %w", err)
	}
	dtos := make([]domain.KekvDTO, len(kekvs))
	for i := range kekvs {
		dtos[i] = mapper.ToKekvDTO(&kekvs[i])
	}
	return dtos, nil
}

// Create adds a KEKV with a unique code
func (s *KekvService) Create(ctx context.Context, req *domain.CreateKekvRequest) (*domain.KekvDTO, error) {
	existing, err := s.repo.GetByCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to check kekv code: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrKekvCodeExists, req.Code)
	}

	kekv := &domain.Kekv{Code: req.Code, Name: req.Name}
	if err := s.repo.Create(ctx, kekv); err != nil {
		return nil, fmt.Errorf("failed to create kekv: %w", err)
	}

	s.logger.Info("kekv created", zap.String("code", kekv.Code))
	dto := mapper.ToKekvDTO(kekv)
	return &dto, nil
}
