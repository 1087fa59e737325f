package service

import (
	"context"
	"fmt"
	"time"

	"github.com/straye-as/kosthorys-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContractNumberPrefix prefixes contract registry numbers
const ContractNumberPrefix = "КТ"

// NumberSequenceService generates registry numbers.
//
// Format: {PREFIX}-{YEAR}-{SEQUENCE}
// Example: КТ-2026-0001
type NumberSequenceService struct {
	repo   *repository.NumberSequenceRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(repo *repository.NumberSequenceRepository, logger *zap.Logger) *NumberSequenceService {
	return &NumberSequenceService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// GenerateContractNumber issues the next contract registry number inside tx
func (s *NumberSequenceService) GenerateContractNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	year := s.now().Year()

	next, err := s.repo.WithTx(tx).NextNumber(ctx, ContractNumberPrefix, year)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("prefix", ContractNumberPrefix),
			zap.Int("year", year),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate contract number: %w", err)
	}

	return FormatRegistryNumber(ContractNumberPrefix, year, next), nil
}

// FormatRegistryNumber renders PREFIX-YYYY-NNNN
func FormatRegistryNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}
