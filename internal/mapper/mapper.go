package mapper

import (
	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/domain"
)

const timestampLayout = "2006-01-02T15:04:05Z"

// ToBudgetDTO converts Budget to BudgetDTO
func ToBudgetDTO(budget *domain.Budget) domain.BudgetDTO {
	allocations := make([]domain.BudgetAllocationDTO, 0, len(budget.Allocations))
	for i := range budget.Allocations {
		allocations = append(allocations, ToBudgetAllocationDTO(&budget.Allocations[i]))
	}
	return domain.BudgetDTO{
		ID:          budget.ID,
		Name:        budget.Name,
		Type:        budget.Type,
		Year:        budget.Year,
		TotalAmount: budget.TotalAmount,
		Date:        budget.Date.Format(domain.DateLayout),
		Description: budget.Description,
		Allocations: allocations,
		CreatedAt:   budget.CreatedAt.Format(timestampLayout),
		UpdatedAt:   budget.UpdatedAt.Format(timestampLayout),
	}
}

// ToBudgetAllocationDTO converts BudgetKekv to BudgetAllocationDTO
func ToBudgetAllocationDTO(allocation *domain.BudgetKekv) domain.BudgetAllocationDTO {
	dto := domain.BudgetAllocationDTO{
		ID:              allocation.ID,
		KekvID:          allocation.KekvID,
		PlannedAmount:   allocation.PlannedAmount,
		RemainingAmount: allocation.Amount,
	}
	if allocation.Kekv != nil {
		dto.KekvCode = allocation.Kekv.Code
		dto.KekvName = allocation.Kekv.Name
	}
	return dto
}

// ToKekvDTO converts Kekv to KekvDTO
func ToKekvDTO(kekv *domain.Kekv) domain.KekvDTO {
	return domain.KekvDTO{ID: kekv.ID, Code: kekv.Code, Name: kekv.Name}
}

// ToContractDTO converts Contract to ContractDTO. paid is the sum of its payments.
func ToContractDTO(contract *domain.Contract, paid decimal.Decimal) domain.ContractDTO {
	dto := domain.ContractDTO{
		ID:              contract.ID,
		RegistryNumber:  contract.RegistryNumber,
		Number:          contract.Number,
		Status:          contract.Status,
		Contractor:      contract.Contractor,
		DkCode:          contract.DkCode,
		DkName:          contract.DkName,
		ContractType:    contract.ContractType,
		Amount:          contract.Amount,
		UsedAmount:      contract.UsedAmount,
		RemainingAmount: contract.Amount.Sub(contract.UsedAmount),
		PaidAmount:      paid,
		BudgetID:        contract.BudgetID,
		KekvID:          contract.KekvID,
		VehicleID:       contract.VehicleID,
		StartDate:       domain.FormatDate(contract.StartDate),
		EndDate:         domain.FormatDate(contract.EndDate),
		Description:     contract.Description,
		CreatedAt:       contract.CreatedAt.Format(timestampLayout),
		UpdatedAt:       contract.UpdatedAt.Format(timestampLayout),
	}
	if contract.Budget != nil {
		dto.BudgetName = contract.Budget.Name
	}
	if contract.Kekv != nil {
		dto.KekvCode = contract.Kekv.Code
	}
	if len(contract.Specifications) > 0 {
		dto.Specifications = make([]domain.SpecificationDTO, 0, len(contract.Specifications))
		for i := range contract.Specifications {
			dto.Specifications = append(dto.Specifications, ToSpecificationDTO(&contract.Specifications[i]))
		}
	}
	return dto
}

// ToSpecificationDTO converts Specification to SpecificationDTO
func ToSpecificationDTO(spec *domain.Specification) domain.SpecificationDTO {
	return domain.SpecificationDTO{
		ID:              spec.ID,
		ContractID:      spec.ContractID,
		Name:            spec.Name,
		Code:            spec.Code,
		Unit:            spec.Unit,
		Quantity:        spec.Quantity,
		Price:           spec.Price,
		ServiceCount:    spec.ServiceCount,
		Section:         spec.Section,
		Amount:          spec.Amount,
		Remaining:       spec.Remaining,
		VehicleID:       spec.VehicleID,
		VehicleBrand:    spec.VehicleBrand,
		VehicleVin:      spec.VehicleVin,
		VehicleLocation: spec.VehicleLocation,
	}
}

// ToActDTO converts Act to ActDTO
func ToActDTO(act *domain.Act) domain.ActDTO {
	items := make([]domain.ActItemDTO, 0, len(act.Items))
	for _, item := range act.Items {
		dto := domain.ActItemDTO{
			ID:              item.ID,
			SpecificationID: item.SpecificationID,
			Quantity:        item.Quantity,
			ServiceCount:    item.ServiceCount,
			Amount:          item.Amount,
		}
		if item.Specification != nil {
			dto.SpecificationName = item.Specification.Name
		}
		items = append(items, dto)
	}
	return domain.ActDTO{
		ID:          act.ID,
		ContractID:  act.ContractID,
		Number:      act.Number,
		Date:        domain.FormatDate(act.Date),
		Status:      act.Status,
		TotalAmount: act.TotalAmount,
		Description: act.Description,
		Items:       items,
		CreatedAt:   act.CreatedAt.Format(timestampLayout),
	}
}

// ToUsageDTO converts SpecificationUsage to UsageDTO
func ToUsageDTO(usage *domain.SpecificationUsage) domain.UsageDTO {
	return domain.UsageDTO{
		ID:              usage.ID,
		SpecificationID: usage.SpecificationID,
		Date:            usage.Date.Format(domain.DateLayout),
		QuantityUsed:    usage.QuantityUsed,
		Amount:          usage.Amount,
		DocumentNumber:  usage.DocumentNumber,
		Description:     usage.Description,
	}
}

// ToPaymentDTO converts Payment to PaymentDTO
func ToPaymentDTO(payment *domain.Payment) domain.PaymentDTO {
	return domain.PaymentDTO{
		ID:          payment.ID,
		ContractID:  payment.ContractID,
		Amount:      payment.Amount,
		Date:        payment.Date.Format(domain.DateLayout),
		Description: payment.Description,
	}
}

// ToVehicleDTO converts Vehicle to VehicleDTO
func ToVehicleDTO(vehicle *domain.Vehicle) domain.VehicleDTO {
	return domain.VehicleDTO{
		ID:       vehicle.ID,
		Number:   vehicle.Number,
		Brand:    vehicle.Brand,
		Model:    vehicle.Model,
		Vin:      vehicle.Vin,
		Location: vehicle.Location,
		Mileage:  vehicle.Mileage,
		Year:     vehicle.Year,
	}
}

// ToInventoryItemDTO converts InventoryItem to InventoryItemDTO
func ToInventoryItemDTO(item *domain.InventoryItem) domain.InventoryItemDTO {
	dto := domain.InventoryItemDTO{
		ID:       item.ID,
		Code:     item.Code,
		Name:     item.Name,
		Quantity: item.Quantity,
		Price:    item.Price,
	}
	if item.Category != nil {
		dto.Category = item.Category.Name
	}
	if item.Unit != nil {
		dto.Unit = item.Unit.Name
	}
	return dto
}

// ExecutionPercent returns part / whole * 100 rounded to two places, or zero
func ExecutionPercent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2)
}
