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

// ContractService manages contracts, their specifications and the
// allocation and direct-ceiling rules that guard them
type ContractService struct {
	db            *gorm.DB
	contractRepo  *repository.ContractRepository
	specRepo      *repository.SpecificationRepository
	kekvRepo      *repository.KekvRepository
	vehicleRepo   *repository.VehicleRepository
	inventoryRepo *repository.InventoryRepository
	paymentRepo   *repository.PaymentRepository
	numbers       *NumberSequenceService
	cache         cache.Cache
	ceiling       decimal.Decimal
	logger        *zap.Logger
}

// ContractServiceDeps groups the collaborators of ContractService
type ContractServiceDeps struct {
	ContractRepo  *repository.ContractRepository
	SpecRepo      *repository.SpecificationRepository
	KekvRepo      *repository.KekvRepository
	VehicleRepo   *repository.VehicleRepository
	InventoryRepo *repository.InventoryRepository
	PaymentRepo   *repository.PaymentRepository
	Numbers       *NumberSequenceService
	Cache         cache.Cache
}

// NewContractService creates a new ContractService. ceiling is the
// cumulative limit of ACTIVE and PLANNED direct contracts per DK code.
func NewContractService(db *gorm.DB, deps ContractServiceDeps, ceiling decimal.Decimal, logger *zap.Logger) *ContractService {
	statsCache := deps.Cache
	if statsCache == nil {
		statsCache = cache.Noop{}
	}
	return &ContractService{
		db:            db,
		contractRepo:  deps.ContractRepo,
		specRepo:      deps.SpecRepo,
		kekvRepo:      deps.KekvRepo,
		vehicleRepo:   deps.VehicleRepo,
		inventoryRepo: deps.InventoryRepo,
		paymentRepo:   deps.PaymentRepo,
		numbers:       deps.Numbers,
		cache:         statsCache,
		ceiling:       ceiling,
		logger:        logger,
	}
}

// Create reserves the contract amount from its KEKV allocation and inserts
// the contract with its specifications in one transaction
func (s *ContractService) Create(ctx context.Context, req *domain.CreateContractRequest) (*domain.ContractDTO, error) {
	if err := validateDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = domain.ContractStatusPlanned
	}

	specs, amount := buildSpecifications(req.Specifications)

	contract := &domain.Contract{
		Number:       req.Number,
		Status:       status,
		Contractor:   req.Contractor,
		DkCode:       req.DkCode,
		DkName:       req.DkName,
		Amount:       amount,
		BudgetID:     req.BudgetID,
		KekvID:       req.KekvID,
		ContractType: req.ContractType,
		StartDate:    req.StartDate.Ptr(),
		EndDate:      req.EndDate.Ptr(),
		Description:  req.Description,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kekv, err := s.kekvRepo.WithTx(tx).GetByID(ctx, req.KekvID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrKekvNotFound
			}
			return fmt.Errorf("failed to get kekv: %w", err)
		}

		if err := ledger.ReserveAllocation(tx, req.BudgetID, req.KekvID, amount); err != nil {
			return err
		}

		if contract.ContractType == domain.ContractTypeDirect && countsTowardCeiling(status) {
			if err := ledger.CheckDirectCeiling(tx, contract.DkCode, amount, s.ceiling, uuid.Nil); err != nil {
				return err
			}
		}

		number, err := s.numbers.GenerateContractNumber(ctx, tx)
		if err != nil {
			return err
		}
		contract.RegistryNumber = number

		firstVehicle, err := s.linkVehicles(ctx, tx, kekv, req.Specifications, specs)
		if err != nil {
			return err
		}
		contract.VehicleID = firstVehicle

		if err := s.contractRepo.WithTx(tx).Create(ctx, contract); err != nil {
			return fmt.Errorf("failed to create contract: %w", err)
		}

		for i := range specs {
			specs[i].ContractID = contract.ID
		}
		if err := s.specRepo.WithTx(tx).CreateBatch(ctx, specs); err != nil {
			return fmt.Errorf("failed to create specifications: %w", err)
		}

		return s.receiveMaterials(ctx, tx, kekv, specs)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("contract created",
		zap.String("contract_id", contract.ID.String()),
		zap.String("registry_number", contract.RegistryNumber),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("contract_type", string(contract.ContractType)))

	invalidateBudgetStatistics(ctx, s.cache, s.logger, contract.BudgetID)
	return s.GetByID(ctx, contract.ID)
}

// buildSpecifications prices the requested lines; remaining starts at quantity
func buildSpecifications(reqs []domain.SpecificationRequest) ([]domain.Specification, decimal.Decimal) {
	specs := make([]domain.Specification, len(reqs))
	total := decimal.Zero
	for i, r := range reqs {
		serviceCount := r.ServiceCount
		if serviceCount < 1 {
			serviceCount = 1
		}
		section := r.Section
		if section == "" {
			section = domain.SectionService
		}
		amount := ledger.LineAmount(r.Quantity, r.Price, serviceCount)
		total = total.Add(amount)

		specs[i] = domain.Specification{
			Name:            r.Name,
			Code:            r.Code,
			Unit:            r.Unit,
			Quantity:        r.Quantity,
			Price:           r.Price,
			ServiceCount:    serviceCount,
			Section:         section,
			Amount:          amount,
			Remaining:       r.Quantity,
			VehicleBrand:    r.VehicleBrand,
			VehicleVin:      strings.TrimSpace(r.VehicleVin),
			VehicleLocation: r.VehicleLocation,
		}
	}
	return specs, total
}

// linkVehicles finds or creates a vehicle per distinct VIN of a vehicle
// repair contract and links the specifications to it. It returns the first
// vehicle, which becomes the contract's vehicle.
func (s *ContractService) linkVehicles(ctx context.Context, tx *gorm.DB, kekv *domain.Kekv, reqs []domain.SpecificationRequest, specs []domain.Specification) (*uuid.UUID, error) {
	if kekv.Code != domain.KekvCodeVehicleRepair {
		return nil, nil
	}

	repo := s.vehicleRepo.WithTx(tx)
	byVin := make(map[string]uuid.UUID)
	var first *uuid.UUID

	for i := range specs {
		vin := specs[i].VehicleVin
		if vin == "" {
			continue
		}
		id, ok := byVin[vin]
		if !ok {
			vehicle, err := repo.GetByVin(ctx, vin)
			if err != nil {
				return nil, fmt.Errorf("failed to find vehicle %s: %w", vin, err)
			}
			if vehicle == nil {
				vehicle = &domain.Vehicle{
					Vin:      vin,
					Number:   reqs[i].VehicleNumber,
					Brand:    reqs[i].VehicleBrand,
					Model:    reqs[i].VehicleModel,
					Location: reqs[i].VehicleLocation,
				}
				if err := repo.Create(ctx, vehicle); err != nil {
					return nil, fmt.Errorf("failed to create vehicle %s: %w", vin, err)
				}
				s.logger.Info("vehicle registered from contract", zap.String("vin", vin))
			}
			id = vehicle.ID
			byVin[vin] = id
		}

		vehicleID := id
		specs[i].VehicleID = &vehicleID
		if first == nil {
			first = &vehicleID
		}
	}
	return first, nil
}

// receiveMaterials books MATERIAL lines of a materials contract into the warehouse
func (s *ContractService) receiveMaterials(ctx context.Context, tx *gorm.DB, kekv *domain.Kekv, specs []domain.Specification) error {
	if kekv.Code != domain.KekvCodeMaterials {
		return nil
	}

	repo := s.inventoryRepo.WithTx(tx)
	for _, spec := range specs {
		if spec.Section != domain.SectionMaterial {
			continue
		}

		item, err := repo.FindItem(ctx, spec.Code, spec.Name)
		if err != nil {
			return fmt.Errorf("failed to find inventory item: %w", err)
		}
		if item != nil {
			if err := repo.AddQuantity(ctx, item, spec.Quantity, spec.Price); err != nil {
				return fmt.Errorf("failed to update inventory item: %w", err)
			}
			continue
		}

		unit, err := repo.FindOrCreateUnit(ctx, spec.Unit)
		if err != nil {
			return fmt.Errorf("failed to resolve unit: %w", err)
		}
		category, err := repo.FindOrCreateCategory(ctx, spec.Section.Label())
		if err != nil {
			return fmt.Errorf("failed to resolve category: %w", err)
		}
		code := spec.Code
		if code == "" {
			code = spec.Name
		}
		item = &domain.InventoryItem{
			Code:       code,
			Name:       spec.Name,
			CategoryID: &category.ID,
			UnitID:     &unit.ID,
			Quantity:   spec.Quantity,
			Price:      spec.Price,
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return fmt.Errorf("failed to create inventory item: %w", err)
		}
	}
	return nil
}

// GetByID returns a contract with specifications and paid amount
func (s *ContractService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContractDTO, error) {
	contract, err := s.contractRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	paid, err := s.paymentRepo.SumByContract(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}

	dto := mapper.ToContractDTO(contract, paid)
	return &dto, nil
}

// List returns a paginated, filtered list of contracts
func (s *ContractService) List(ctx context.Context, page, pageSize int, filters *repository.ContractFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePage(page, pageSize)

	contracts, total, err := s.contractRepo.ListWithFilters(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	ids := make([]uuid.UUID, len(contracts))
	for i := range contracts {
		ids[i] = contracts[i].ID
	}
	paid, err := s.paymentRepo.SumByContracts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}

	dtos := make([]domain.ContractDTO, len(contracts))
	for i := range contracts {
		dtos[i] = mapper.ToContractDTO(&contracts[i], paid[contracts[i].ID])
	}
	return paginated(dtos, total, page, pageSize), nil
}

// Update changes contract attributes and status. Entering CANCELLED releases
// the amount to the allocation; leaving it reserves the amount again.
func (s *ContractService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateContractRequest) (*domain.ContractDTO, error) {
	var budgetID uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.contractRepo.WithTx(tx)
		contract, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContractNotFound
			}
			return fmt.Errorf("failed to get contract: %w", err)
		}
		budgetID = contract.BudgetID

		fields := map[string]interface{}{}
		if req.Number != nil {
			contract.Number = strings.TrimSpace(*req.Number)
			fields["number"] = contract.Number
		}
		if req.StartDate != nil {
			contract.StartDate = req.StartDate.Ptr()
			fields["start_date"] = contract.StartDate
		}
		if req.EndDate != nil {
			contract.EndDate = req.EndDate.Ptr()
			fields["end_date"] = contract.EndDate
		}
		if req.Contractor != nil {
			fields["contractor"] = *req.Contractor
		}
		if req.DkName != nil {
			fields["dk_name"] = *req.DkName
		}
		if req.Description != nil {
			fields["description"] = *req.Description
		}

		if contract.StartDate != nil && contract.EndDate != nil && contract.EndDate.Before(*contract.StartDate) {
			return fmt.Errorf("%w: end date before start date", ErrInvalidInput)
		}

		if req.Status != nil && *req.Status != contract.Status {
			if err := s.transition(ctx, tx, contract, *req.Status); err != nil {
				return err
			}
			fields["status"] = *req.Status
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

// transition applies the balance effects of moving contract to next
func (s *ContractService) transition(ctx context.Context, tx *gorm.DB, contract *domain.Contract, next domain.ContractStatus) error {
	prev := contract.Status

	if next == domain.ContractStatusActive {
		if contract.Number == "" || contract.StartDate == nil || contract.EndDate == nil {
			return ErrActivationRequiresDetails
		}
	}

	switch {
	case next == domain.ContractStatusCancelled:
		counts, err := s.contractRepo.WithTx(tx).CountDocuments(ctx, contract.ID)
		if err != nil {
			return fmt.Errorf("failed to count documents: %w", err)
		}
		if counts.Any() {
			return ErrContractHasDocuments
		}
		if err := ledger.ReleaseAllocation(tx, contract.BudgetID, contract.KekvID, contract.Amount); err != nil {
			return err
		}
	case prev == domain.ContractStatusCancelled:
		if err := ledger.ReserveAllocation(tx, contract.BudgetID, contract.KekvID, contract.Amount); err != nil {
			return err
		}
	}

	if contract.ContractType == domain.ContractTypeDirect && !countsTowardCeiling(prev) && countsTowardCeiling(next) {
		if err := ledger.CheckDirectCeiling(tx, contract.DkCode, contract.Amount, s.ceiling, contract.ID); err != nil {
			return err
		}
	}

	s.logger.Info("contract status changed",
		zap.String("contract_id", contract.ID.String()),
		zap.String("from", string(prev)),
		zap.String("to", string(next)))
	contract.Status = next
	return nil
}

// Delete removes a contract without posted documents and releases its
// amount back to the allocation
func (s *ContractService) Delete(ctx context.Context, id uuid.UUID) error {
	var budgetID uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.contractRepo.WithTx(tx)
		contract, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContractNotFound
			}
			return fmt.Errorf("failed to get contract: %w", err)
		}
		budgetID = contract.BudgetID

		counts, err := repo.CountDocuments(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count documents: %w", err)
		}
		if counts.Any() {
			return ErrContractHasDocuments
		}

		if contract.Status != domain.ContractStatusCancelled {
			if err := ledger.ReleaseAllocation(tx, contract.BudgetID, contract.KekvID, contract.Amount); err != nil {
				return err
			}
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	invalidateBudgetStatistics(ctx, s.cache, s.logger, budgetID)
	s.logger.Info("contract deleted", zap.String("contract_id", id.String()))
	return nil
}

// ListSpecifications returns the lines of a contract
func (s *ContractService) ListSpecifications(ctx context.Context, contractID uuid.UUID) ([]domain.SpecificationDTO, error) {
	if err := ensureContract(ctx, s.contractRepo, contractID); err != nil {
		return nil, err
	}

	specs, err := s.specRepo.ListByContract(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to list specifications: %w", err)
	}
	dtos := make([]domain.SpecificationDTO, len(specs))
	for i := range specs {
		dtos[i] = mapper.ToSpecificationDTO(&specs[i])
	}
	return dtos, nil
}

// AddSpecifications appends lines to a contract, reserving their amount
func (s *ContractService) AddSpecifications(ctx context.Context, contractID uuid.UUID, req *domain.AddSpecificationsRequest) (*domain.ContractDTO, error) {
	var budgetID uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.contractRepo.WithTx(tx)
		contract, err := repo.GetForUpdate(ctx, contractID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContractNotFound
			}
			return fmt.Errorf("failed to get contract: %w", err)
		}
		if contract.Status == domain.ContractStatusCancelled {
			return ErrContractNotEditable
		}
		budgetID = contract.BudgetID

		kekv, err := s.kekvRepo.WithTx(tx).GetByID(ctx, contract.KekvID)
		if err != nil {
			return fmt.Errorf("failed to get kekv: %w", err)
		}

		specs, delta := buildSpecifications(req.Specifications)

		if err := ledger.ReserveAllocation(tx, contract.BudgetID, contract.KekvID, delta); err != nil {
			return err
		}
		if contract.ContractType == domain.ContractTypeDirect && countsTowardCeiling(contract.Status) {
			if err := ledger.CheckDirectCeiling(tx, contract.DkCode, contract.Amount.Add(delta), s.ceiling, contract.ID); err != nil {
				return err
			}
		}

		firstVehicle, err := s.linkVehicles(ctx, tx, kekv, req.Specifications, specs)
		if err != nil {
			return err
		}

		for i := range specs {
			specs[i].ContractID = contract.ID
		}
		if err := s.specRepo.WithTx(tx).CreateBatch(ctx, specs); err != nil {
			return fmt.Errorf("failed to create specifications: %w", err)
		}
		if err := s.receiveMaterials(ctx, tx, kekv, specs); err != nil {
			return err
		}

		fields := map[string]interface{}{"amount": contract.Amount.Add(delta)}
		if contract.VehicleID == nil && firstVehicle != nil {
			fields["vehicle_id"] = *firstVehicle
		}
		return repo.UpdateFields(ctx, contractID, fields)
	})
	if err != nil {
		return nil, err
	}

	invalidateBudgetStatistics(ctx, s.cache, s.logger, budgetID)
	return s.GetByID(ctx, contractID)
}

// DeleteSpecification removes a line nothing has been posted against and
// releases its amount. A contract keeps at least one line.
func (s *ContractService) DeleteSpecification(ctx context.Context, specificationID uuid.UUID) error {
	var budgetID uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		specRepo := s.specRepo.WithTx(tx)
		spec, err := specRepo.GetByID(ctx, specificationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSpecificationNotFound
			}
			return fmt.Errorf("failed to get specification: %w", err)
		}

		repo := s.contractRepo.WithTx(tx)
		contract, err := repo.GetForUpdate(ctx, spec.ContractID)
		if err != nil {
			return fmt.Errorf("failed to get contract: %w", err)
		}
		budgetID = contract.BudgetID

		refs, err := specRepo.CountReferences(ctx, specificationID)
		if err != nil {
			return fmt.Errorf("failed to count references: %w", err)
		}
		if refs > 0 || !spec.Remaining.Equal(spec.Quantity) {
			return ErrSpecificationConsumed
		}

		siblings, err := specRepo.ListByContract(ctx, contract.ID)
		if err != nil {
			return fmt.Errorf("failed to list specifications: %w", err)
		}
		if len(siblings) <= 1 {
			return fmt.Errorf("%w: a contract needs at least one specification", ErrInvalidInput)
		}

		if contract.Status != domain.ContractStatusCancelled {
			if err := ledger.ReleaseAllocation(tx, contract.BudgetID, contract.KekvID, spec.Amount); err != nil {
				return err
			}
		}
		if err := specRepo.Delete(ctx, specificationID); err != nil {
			return fmt.Errorf("failed to delete specification: %w", err)
		}
		return repo.UpdateFields(ctx, contract.ID, map[string]interface{}{
			"amount": contract.Amount.Sub(spec.Amount),
		})
	})
	if err != nil {
		return err
	}

	invalidateBudgetStatistics(ctx, s.cache, s.logger, budgetID)
	return nil
}

// DirectLimit reports how much of the direct contract ceiling a DK code has used
func (s *ContractService) DirectLimit(ctx context.Context, dkCode string) (*domain.DirectLimitDTO, error) {
	used, err := ledger.DirectAmountUsed(s.db.WithContext(ctx), dkCode, uuid.Nil)
	if err != nil {
		return nil, err
	}
	available := decimal.Max(s.ceiling.Sub(used), decimal.Zero)
	return &domain.DirectLimitDTO{
		DkCode:    dkCode,
		Ceiling:   s.ceiling,
		Used:      used,
		Available: available,
	}, nil
}

func countsTowardCeiling(status domain.ContractStatus) bool {
	for _, st := range ledger.DirectCeilingStatuses {
		if st == status {
			return true
		}
	}
	return false
}

func validateDates(start, end *domain.Date) error {
	s, e := start.Ptr(), end.Ptr()
	if s != nil && e != nil && e.Before(*s) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidInput)
	}
	return nil
}

func ensureContract(ctx context.Context, repo *repository.ContractRepository, id uuid.UUID) error {
	ok, err := repo.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get contract: %w", err)
	}
	if !ok {
		return ErrContractNotFound
	}
	return nil
}
