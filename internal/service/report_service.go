package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/mapper"
	"github.com/straye-as/kosthorys-api/internal/report"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"github.com/straye-as/kosthorys-api/internal/storage"
	"go.uber.org/zap"
)

// ReportService renders budget workbooks and keeps a copy in storage
type ReportService struct {
	stats        *StatisticsService
	contractRepo *repository.ContractRepository
	paymentRepo  *repository.PaymentRepository
	storage      storage.Storage
	logger       *zap.Logger
}

// NewReportService creates a new ReportService. store may be nil, in which
// case reports are only returned.
func NewReportService(
	stats *StatisticsService,
	contractRepo *repository.ContractRepository,
	paymentRepo *repository.PaymentRepository,
	store storage.Storage,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		stats:        stats,
		contractRepo: contractRepo,
		paymentRepo:  paymentRepo,
		storage:      store,
		logger:       logger,
	}
}

// BudgetReport builds the execution workbook of a budget
func (s *ReportService) BudgetReport(ctx context.Context, budgetID uuid.UUID) (*domain.ReportDTO, []byte, error) {
	stats, err := s.stats.GetBudgetStatistics(ctx, budgetID)
	if err != nil {
		return nil, nil, err
	}

	contracts, err := s.contractRepo.ListByBudget(ctx, budgetID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	ids := make([]uuid.UUID, len(contracts))
	for i := range contracts {
		ids[i] = contracts[i].ID
	}
	paid, err := s.paymentRepo.SumByContracts(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sum payments: %w", err)
	}
	dtos := make([]domain.ContractDTO, len(contracts))
	for i := range contracts {
		dtos[i] = mapper.ToContractDTO(&contracts[i], paid[contracts[i].ID])
	}

	buf, err := report.BudgetWorkbook(stats, dtos)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render report: %w", err)
	}
	data := buf.Bytes()

	dto := &domain.ReportDTO{
		FileName: report.FileName(stats),
		Size:     int64(len(data)),
	}

	if s.storage != nil {
		key := storage.ReportKey(budgetID.String(), dto.FileName)
		if _, err := s.storage.Put(ctx, key, report.ContentType, bytes.NewReader(data)); err != nil {
			s.logger.Warn("failed to store report",
				zap.String("budget_id", budgetID.String()),
				zap.Error(err))
		} else {
			dto.StoragePath = key
		}
	}

	s.logger.Info("budget report generated",
		zap.String("budget_id", budgetID.String()),
		zap.Int("contracts", len(contracts)),
		zap.Int64("size", dto.Size))
	return dto, data, nil
}
