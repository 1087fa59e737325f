package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/cache"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/ledger"
	"github.com/straye-as/kosthorys-api/internal/mapper"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActService manages completion acts. An ACTIVE or PAID act is posted: its
// quantities are consumed from the specification lines and its total is part
// of the contract's used amount.
type ActService struct {
	db           *gorm.DB
	actRepo      *repository.ActRepository
	contractRepo *repository.ContractRepository
	specRepo     *repository.SpecificationRepository
	cache        cache.Cache
	logger       *zap.Logger
}

// NewActService creates a new ActService
func NewActService(
	db *gorm.DB,
	actRepo *repository.ActRepository,
	contractRepo *repository.ContractRepository,
	specRepo *repository.SpecificationRepository,
	statsCache cache.Cache,
	logger *zap.Logger,
) *ActService {
	return &ActService{
		db:           db,
		actRepo:      actRepo,
		contractRepo: contractRepo,
		specRepo:     specRepo,
		cache:        statsCache,
		logger:       logger,
	}
}

// Create inserts an act with its items. Items are priced from their
// specification unless an explicit amount is given.
func (s *ActService) Create(ctx context.Context, contractID uuid.UUID, req *domain.CreateActRequest) (*domain.ActDTO, error) {
	status := req.Status
	if status == "" {
		status = domain.ActStatusPending
	}
	if status.IsPosted() && (strings.TrimSpace(req.Number) == "" || req.Date.Ptr() == nil) {
		return nil, ErrActActivationRequirement
	}

	act := &domain.Act{
		ContractID:  contractID,
		Number:      strings.TrimSpace(req.Number),
		Date:        req.Date.Ptr(),
		Status:      status,
		Description: req.Description,
	}
	var budgetID uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contract, err := s.contractRepo.WithTx(tx).GetForUpdate(ctx, contractID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContractNotFound
			}
			return fmt.Errorf("failed to get contract: %w", err)
		}
		budgetID = contract.BudgetID
		if contract.Status == domain.ContractStatusCancelled {
			return ErrContractNotEditable
		}

		ids := make([]uuid.UUID, len(req.Items))
		for i, item := range req.Items {
			ids[i] = item.SpecificationID
		}
		specs, err := s.specRepo.WithTx(tx).GetByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load specifications: %w", err)
		}

		requested := make(map[uuid.UUID]decimal.Decimal)
		total := decimal.Zero
		items := make([]domain.ActItem, len(req.Items))
		for i, r := range req.Items {
			spec, ok := specs[r.SpecificationID]
			if !ok {
				return fmt.Errorf("%w: %s", ErrSpecificationNotFound, r.SpecificationID)
			}
			if spec.ContractID != contractID {
				return fmt.Errorf("%w: %s", ErrSpecificationWrongContract, spec.Name)
			}

			requested[spec.ID] = requested[spec.ID].Add(r.Quantity)
			if requested[spec.ID].GreaterThan(spec.Remaining) {
				return fmt.Errorf("%w: %s requested, %s remaining for %q",
					ErrOverLimit, requested[spec.ID].String(), spec.Remaining.String(), spec.Name)
			}

			serviceCount := r.ServiceCount
			if serviceCount < 1 {
				serviceCount = spec.ServiceCount
			}
			amount := ledger.LineAmount(r.Quantity, spec.Price, serviceCount)
			if r.Amount != nil {
				amount = r.Amount.Round(2)
			}
			total = total.Add(amount)

			items[i] = domain.ActItem{
				SpecificationID: spec.ID,
				Quantity:        r.Quantity,
				ServiceCount:    serviceCount,
				Amount:          amount,
			}
		}
		act.TotalAmount = total
		act.Items = items

		if err := s.actRepo.WithTx(tx).Create(ctx, act); err != nil {
			return fmt.Errorf("failed to create act: %w", err)
		}

		if status.IsPosted() {
			return postAct(tx, act)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("act created",
		zap.String("act_id", act.ID.String()),
		zap.String("contract_id", contractID.String()),
		zap.String("status", string(act.Status)),
		zap.String("total_amount", act.TotalAmount.StringFixed(2)))

	invalidateBudgetStatistics(ctx, s.cache, s.logger, budgetID)
	return s.GetByID(ctx, act.ID)
}

// GetByID returns an act with its items
func (s *ActService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ActDTO, error) {
	act, err := s.actRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActNotFound
		}
		return nil, fmt.Errorf("failed to get act: %w", err)
	}
	dto := mapper.ToActDTO(act)
	return &dto, nil
}

// ListByContract returns the acts of a contract
func (s *ActService) ListByContract(ctx context.Context, contractID uuid.UUID) ([]domain.ActDTO, error) {
	if err := ensureContract(ctx, s.contractRepo, contractID); err != nil {
		return nil, err
	}

	acts, err := s.actRepo.ListByContract(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to list acts: %w", err)
	}
	dtos := make([]domain.ActDTO, len(acts))
	for i := range acts {
		dtos[i] = mapper.ToActDTO(&acts[i])
	}
	return dtos, nil
}

// UpdateStatus moves an act between PENDING, ACTIVE and PAID, posting or
// reversing it when it crosses the posted boundary
func (s *ActService) UpdateStatus(ctx context.Context, id uuid.UUID, req *domain.UpdateActRequest) (*domain.ActDTO, error) {
	var budgetID uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.actRepo.WithTx(tx)
		act, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActNotFound
			}
			return fmt.Errorf("failed to get act: %w", err)
		}

		contract, err := s.contractRepo.WithTx(tx).GetForUpdate(ctx, act.ContractID)
		if err != nil {
			return fmt.Errorf("failed to get contract: %w", err)
		}
		budgetID = contract.BudgetID

		fields := map[string]interface{}{}
		if req.Number != nil {
			act.Number = strings.TrimSpace(*req.Number)
			fields["number"] = act.Number
		}
		if req.Date != nil {
			act.Date = req.Date.Ptr()
			fields["date"] = act.Date
		}

		next := req.Status
		if next.IsPosted() && (act.Number == "" || act.Date == nil) {
			return ErrActActivationRequirement
		}
		if next.IsPosted() && contract.Status == domain.ContractStatusCancelled {
			return ErrContractNotEditable
		}

		switch {
		case !act.Status.IsPosted() && next.IsPosted():
			if err := postAct(tx, act); err != nil {
				return err
			}
		case act.Status.IsPosted() && !next.IsPosted():
			if err := reverseAct(tx, act); err != nil {
				return err
			}
		}

		if next != act.Status {
			s.logger.Info("act status changed",
				zap.String("act_id", act.ID.String()),
				zap.String("from", string(act.Status)),
				zap.String("to", string(next)))
			fields["status"] = next
		}
		if len(fields) == 0 {
			return nil
		}
		return repo.UpdateFields(ctx, id, fields)
	})
	if err != nil {
		return nil, err
	}

	invalidateBudgetStatistics(ctx, s.cache, s.logger, budgetID)
	return s.GetByID(ctx, id)
}

// Delete removes an act, reversing it first when it is posted
func (s *ActService) Delete(ctx context.Context, id uuid.UUID) error {
	var budgetID uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.actRepo.WithTx(tx)
		act, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActNotFound
			}
			return fmt.Errorf("failed to get act: %w", err)
		}

		contract, err := s.contractRepo.WithTx(tx).GetForUpdate(ctx, act.ContractID)
		if err != nil {
			return fmt.Errorf("failed to get contract: %w", err)
		}
		budgetID = contract.BudgetID

		if act.Status.IsPosted() {
			if err := reverseAct(tx, act); err != nil {
				return err
			}
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	invalidateBudgetStatistics(ctx, s.cache, s.logger, budgetID)
	s.logger.Info("act deleted", zap.String("act_id", id.String()))
	return nil
}

func postAct(tx *gorm.DB, act *domain.Act) error {
	for _, item := range act.Items {
		if _, err := ledger.PostUsage(tx, item.SpecificationID, item.Quantity); err != nil {
			return err
		}
	}
	return ledger.AdjustUsedAmount(tx, act.ContractID, act.TotalAmount)
}

func reverseAct(tx *gorm.DB, act *domain.Act) error {
	for _, item := range act.Items {
		if _, err := ledger.ReverseUsage(tx, item.SpecificationID, item.Quantity); err != nil {
			return err
		}
	}
	return ledger.AdjustUsedAmount(tx, act.ContractID, act.TotalAmount.Neg())
}
