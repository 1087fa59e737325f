package service

import (
	"context"
	"fmt"

	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/mapper"
	"github.com/straye-as/kosthorys-api/internal/repository"
)

// InventoryService exposes warehouse stock filled by materials contracts
type InventoryService struct {
	repo *repository.InventoryRepository
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(repo *repository.InventoryRepository) *InventoryService {
	return &InventoryService{repo: repo}
}

// List returns a paginated list of inventory items
func (s *InventoryService) List(ctx context.Context, page, pageSize int, search string) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePage(page, pageSize)
	items, total, err := s.repo.List(ctx, page, pageSize, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	dtos := make([]domain.InventoryItemDTO, len(items))
	for i := range items {
		dtos[i] = mapper.ToInventoryItemDTO(&items[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}
