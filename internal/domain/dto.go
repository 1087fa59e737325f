package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaginatedResponse wraps list endpoints
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// ============================================================================
// Budgets
// ============================================================================

type BudgetDTO struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Type        BudgetType            `json:"type"`
	Year        int                   `json:"year"`
	TotalAmount decimal.Decimal       `json:"totalAmount"`
	Date        string                `json:"date"`
	Description string                `json:"description,omitempty"`
	Allocations []BudgetAllocationDTO `json:"allocations"`
	CreatedAt   string                `json:"createdAt"`
	UpdatedAt   string                `json:"updatedAt"`
}

type BudgetAllocationDTO struct {
	ID              uuid.UUID       `json:"id"`
	KekvID          uuid.UUID       `json:"kekvId"`
	KekvCode        string          `json:"kekvCode"`
	KekvName        string          `json:"kekvName"`
	PlannedAmount   decimal.Decimal `json:"plannedAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
}

type BudgetAllocationRequest struct {
	KekvCode string          `json:"kekvCode" validate:"required,max=20"`
	KekvName string          `json:"kekvName,omitempty" validate:"max=255"`
	Amount   decimal.Decimal `json:"amount" validate:"gte=0"`
}

type CreateBudgetRequest struct {
	Name        string                    `json:"name" validate:"required,max=255"`
	Type        BudgetType                `json:"type,omitempty" validate:"omitempty,oneof=GENERAL SPECIAL"`
	Year        int                       `json:"year" validate:"required,gte=2000,lte=2100"`
	TotalAmount decimal.Decimal           `json:"totalAmount" validate:"gte=0"`
	Date        *Date                     `json:"date" validate:"required"`
	Description string                    `json:"description,omitempty" validate:"max=2000"`
	Allocations []BudgetAllocationRequest `json:"allocations,omitempty" validate:"dive"`
}

type UpdateBudgetRequest struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Type        BudgetType       `json:"type" validate:"required,oneof=GENERAL SPECIAL"`
	Year        int              `json:"year" validate:"required,gte=2000,lte=2100"`
	TotalAmount *decimal.Decimal `json:"totalAmount,omitempty" validate:"omitempty,gte=0"`
	Date        *Date            `json:"date,omitempty"`
	Description string           `json:"description,omitempty" validate:"max=2000"`
}

// ============================================================================
// KEKV
// ============================================================================

type KekvDTO struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

type CreateKekvRequest struct {
	Code string `json:"code" validate:"required,max=20"`
	Name string `json:"name" validate:"required,max=255"`
}

// ============================================================================
// Contracts and specifications
// ============================================================================

type ContractDTO struct {
	ID              uuid.UUID          `json:"id"`
	RegistryNumber  string             `json:"registryNumber"`
	Number          string             `json:"number,omitempty"`
	Status          ContractStatus     `json:"status"`
	Contractor      string             `json:"contractor"`
	DkCode          string             `json:"dkCode"`
	DkName          string             `json:"dkName,omitempty"`
	ContractType    ContractType       `json:"contractType"`
	Amount          decimal.Decimal    `json:"amount"`
	UsedAmount      decimal.Decimal    `json:"usedAmount"`
	RemainingAmount decimal.Decimal    `json:"remainingAmount"`
	PaidAmount      decimal.Decimal    `json:"paidAmount"`
	BudgetID        uuid.UUID          `json:"budgetId"`
	BudgetName      string             `json:"budgetName,omitempty"`
	KekvID          uuid.UUID          `json:"kekvId"`
	KekvCode        string             `json:"kekvCode,omitempty"`
	VehicleID       *uuid.UUID         `json:"vehicleId,omitempty"`
	StartDate       string             `json:"startDate,omitempty"`
	EndDate         string             `json:"endDate,omitempty"`
	Description     string             `json:"description,omitempty"`
	Specifications  []SpecificationDTO `json:"specifications,omitempty"`
	CreatedAt       string             `json:"createdAt"`
	UpdatedAt       string             `json:"updatedAt"`
}

type SpecificationDTO struct {
	ID              uuid.UUID            `json:"id"`
	ContractID      uuid.UUID            `json:"contractId"`
	Name            string               `json:"name"`
	Code            string               `json:"code,omitempty"`
	Unit            string               `json:"unit"`
	Quantity        decimal.Decimal      `json:"quantity"`
	Price           decimal.Decimal      `json:"price"`
	ServiceCount    int                  `json:"serviceCount"`
	Section         SpecificationSection `json:"section"`
	Amount          decimal.Decimal      `json:"amount"`
	Remaining       decimal.Decimal      `json:"remaining"`
	VehicleID       *uuid.UUID           `json:"vehicleId,omitempty"`
	VehicleBrand    string               `json:"vehicleBrand,omitempty"`
	VehicleVin      string               `json:"vehicleVin,omitempty"`
	VehicleLocation string               `json:"vehicleLocation,omitempty"`
}

type SpecificationRequest struct {
	Name            string               `json:"name" validate:"required,max=500"`
	Code            string               `json:"code,omitempty" validate:"max=100"`
	Unit            string               `json:"unit" validate:"required,max=50"`
	Quantity        decimal.Decimal      `json:"quantity" validate:"gt=0"`
	Price           decimal.Decimal      `json:"price" validate:"gte=0"`
	ServiceCount    int                  `json:"serviceCount,omitempty" validate:"gte=0"`
	Section         SpecificationSection `json:"section,omitempty" validate:"omitempty,oneof=SERVICE PART MATERIAL EQUIPMENT"`
	VehicleNumber   string               `json:"vehicleNumber,omitempty" validate:"max=20"`
	VehicleBrand    string               `json:"vehicleBrand,omitempty" validate:"max=100"`
	VehicleModel    string               `json:"vehicleModel,omitempty" validate:"max=100"`
	VehicleVin      string               `json:"vehicleVin,omitempty" validate:"max=50"`
	VehicleLocation string               `json:"vehicleLocation,omitempty" validate:"max=255"`
}

type CreateContractRequest struct {
	BudgetID       uuid.UUID              `json:"budgetId" validate:"required"`
	KekvID         uuid.UUID              `json:"kekvId" validate:"required"`
	Contractor     string                 `json:"contractor" validate:"required,max=255"`
	DkCode         string                 `json:"dkCode" validate:"required,max=50"`
	DkName         string                 `json:"dkName,omitempty" validate:"max=500"`
	ContractType   ContractType           `json:"contractType" validate:"required,oneof=DIRECT URGENT OPEN_BIDDING INSURANCE"`
	Status         ContractStatus         `json:"status,omitempty" validate:"omitempty,oneof=PLANNED DRAFT"`
	Number         string                 `json:"number,omitempty" validate:"max=100"`
	StartDate      *Date                  `json:"startDate,omitempty"`
	EndDate        *Date                  `json:"endDate,omitempty"`
	Description    string                 `json:"description,omitempty" validate:"max=2000"`
	Specifications []SpecificationRequest `json:"specifications" validate:"required,min=1,dive"`
}

// UpdateContractRequest changes contract attributes and/or its status.
// Nil fields are left unchanged.
type UpdateContractRequest struct {
	Status      *ContractStatus `json:"status,omitempty" validate:"omitempty,oneof=PLANNED DRAFT ACTIVE COMPLETED TERMINATED CANCELLED"`
	Number      *string         `json:"number,omitempty" validate:"omitempty,max=100"`
	StartDate   *Date           `json:"startDate,omitempty"`
	EndDate     *Date           `json:"endDate,omitempty"`
	Contractor  *string         `json:"contractor,omitempty" validate:"omitempty,max=255"`
	DkName      *string         `json:"dkName,omitempty" validate:"omitempty,max=500"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type AddSpecificationsRequest struct {
	Specifications []SpecificationRequest `json:"specifications" validate:"required,min=1,dive"`
}

// DirectLimitDTO reports consumption of the direct contract ceiling for a DK code
type DirectLimitDTO struct {
	DkCode    string          `json:"dkCode"`
	Ceiling   decimal.Decimal `json:"ceiling"`
	Used      decimal.Decimal `json:"used"`
	Available decimal.Decimal `json:"available"`
}

// ============================================================================
// Acts
// ============================================================================

type ActDTO struct {
	ID          uuid.UUID       `json:"id"`
	ContractID  uuid.UUID       `json:"contractId"`
	Number      string          `json:"number,omitempty"`
	Date        string          `json:"date,omitempty"`
	Status      ActStatus       `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Description string          `json:"description,omitempty"`
	Items       []ActItemDTO    `json:"items"`
	CreatedAt   string          `json:"createdAt"`
}

type ActItemDTO struct {
	ID                uuid.UUID       `json:"id"`
	SpecificationID   uuid.UUID       `json:"specificationId"`
	SpecificationName string          `json:"specificationName,omitempty"`
	Quantity          decimal.Decimal `json:"quantity"`
	ServiceCount      int             `json:"serviceCount"`
	Amount            decimal.Decimal `json:"amount"`
}

type ActItemRequest struct {
	SpecificationID uuid.UUID        `json:"specificationId" validate:"required"`
	Quantity        decimal.Decimal  `json:"quantity" validate:"gt=0"`
	ServiceCount    int              `json:"serviceCount,omitempty" validate:"gte=0"`
	Amount          *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,gte=0"`
}

type CreateActRequest struct {
	Number      string           `json:"number,omitempty" validate:"max=100"`
	Date        *Date            `json:"date,omitempty"`
	Status      ActStatus        `json:"status,omitempty" validate:"omitempty,oneof=PENDING ACTIVE"`
	Description string           `json:"description,omitempty" validate:"max=2000"`
	Items       []ActItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateActRequest struct {
	Status ActStatus `json:"status" validate:"required,oneof=PENDING ACTIVE PAID"`
	Number *string   `json:"number,omitempty" validate:"omitempty,max=100"`
	Date   *Date     `json:"date,omitempty"`
}

// ============================================================================
// Usage and payments
// ============================================================================

type UsageDTO struct {
	ID              uuid.UUID       `json:"id"`
	SpecificationID uuid.UUID       `json:"specificationId"`
	Date            string          `json:"date"`
	QuantityUsed    decimal.Decimal `json:"quantityUsed"`
	Amount          decimal.Decimal `json:"amount"`
	DocumentNumber  string          `json:"documentNumber,omitempty"`
	Description     string          `json:"description,omitempty"`
}

type CreateUsageRequest struct {
	QuantityUsed   decimal.Decimal `json:"quantityUsed" validate:"gt=0"`
	Date           *Date           `json:"date" validate:"required"`
	DocumentNumber string          `json:"documentNumber,omitempty" validate:"max=100"`
	Description    string          `json:"description,omitempty" validate:"max=2000"`
}

type PaymentDTO struct {
	ID          uuid.UUID       `json:"id"`
	ContractID  uuid.UUID       `json:"contractId"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description,omitempty"`
}

type CreatePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Date        *Date           `json:"date" validate:"required"`
	Description string          `json:"description,omitempty" validate:"max=2000"`
}

// ============================================================================
// Vehicles and inventory
// ============================================================================

type VehicleDTO struct {
	ID       uuid.UUID `json:"id"`
	Number   string    `json:"number,omitempty"`
	Brand    string    `json:"brand,omitempty"`
	Model    string    `json:"model,omitempty"`
	Vin      string    `json:"vin"`
	Location string    `json:"location,omitempty"`
	Mileage  int       `json:"mileage"`
	Year     int       `json:"year,omitempty"`
}

type VehicleRequest struct {
	Number   string `json:"number,omitempty" validate:"max=20"`
	Brand    string `json:"brand,omitempty" validate:"max=100"`
	Model    string `json:"model,omitempty" validate:"max=100"`
	Vin      string `json:"vin" validate:"required,max=50"`
	Location string `json:"location,omitempty" validate:"max=255"`
	Mileage  int    `json:"mileage,omitempty" validate:"gte=0"`
	Year     int    `json:"year,omitempty" validate:"omitempty,gte=1950,lte=2100"`
}

type InventoryItemDTO struct {
	ID       uuid.UUID       `json:"id"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Unit     string          `json:"unit,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// ============================================================================
// Statistics
// ============================================================================

// BudgetStatisticsDTO is the spend-vs-plan roll-up of one budget
type BudgetStatisticsDTO struct {
	BudgetID       uuid.UUID                `json:"budgetId"`
	BudgetName     string                   `json:"budgetName"`
	Year           int                      `json:"year"`
	Totals         AmountBreakdownDTO       `json:"totals"`
	ByKekv         []KekvStatisticsDTO      `json:"byKekv"`
	ByContractType []ContractTypeTotalDTO   `json:"byContractType"`
	ContractCount  int64                    `json:"contractCount"`
	StatusCounts   map[ContractStatus]int64 `json:"statusCounts"`
}

// AmountBreakdownDTO holds the amounts tracked for any budget slice
type AmountBreakdownDTO struct {
	Planned    decimal.Decimal `json:"planned"`
	Remaining  decimal.Decimal `json:"remaining"`
	Contracted decimal.Decimal `json:"contracted"`
	Used       decimal.Decimal `json:"used"`
	Paid       decimal.Decimal `json:"paid"`
	// ExecutionPercent is paid / planned * 100
	ExecutionPercent decimal.Decimal `json:"executionPercent"`
}

type KekvStatisticsDTO struct {
	KekvID   uuid.UUID `json:"kekvId"`
	KekvCode string    `json:"kekvCode"`
	KekvName string    `json:"kekvName"`
	AmountBreakdownDTO
}

type ContractTypeTotalDTO struct {
	ContractType ContractType    `json:"contractType"`
	Count        int64           `json:"count"`
	Amount       decimal.Decimal `json:"amount"`
}

// ReportDTO describes a generated report file
type ReportDTO struct {
	FileName    string `json:"fileName"`
	StoragePath string `json:"storagePath"`
	Size        int64  `json:"size"`
}
