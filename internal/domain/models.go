package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns the primary key so the models do not depend on a
// database-side uuid generator
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// BudgetType distinguishes the general and special funds
type BudgetType string

const (
	BudgetTypeGeneral BudgetType = "GENERAL"
	BudgetTypeSpecial BudgetType = "SPECIAL"
)

// Label returns the Ukrainian name of the fund
func (t BudgetType) Label() string {
	switch t {
	case BudgetTypeSpecial:
		return "Спеціальний фонд"
	default:
		return "Загальний фонд"
	}
}

// Budget is a yearly plan ("kosthorys") split into KEKV allocations
type Budget struct {
	BaseModel
	Name        string          `gorm:"type:varchar(255);not null"`
	Type        BudgetType      `gorm:"type:varchar(20);not null;default:'GENERAL'"`
	Year        int             `gorm:"not null;index"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"`
	Date        time.Time       `gorm:"not null"`
	Description string          `gorm:"type:text"`
	Allocations []BudgetKekv    `gorm:"foreignKey:BudgetID;constraint:OnDelete:CASCADE"`
}

// Kekv is an expenditure category, shared across budgets by code
type Kekv struct {
	BaseModel
	Code string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name string `gorm:"type:varchar(255);not null"`
}

// Well-known KEKV codes that trigger side effects on contract creation
const (
	KekvCodeMaterials     = "2210"
	KekvCodeVehicleRepair = "2240"
)

// BudgetKekv is the allocation of a budget to one expenditure category.
// Amount is the remaining allocation; PlannedAmount is the original plan.
type BudgetKekv struct {
	BaseModel
	BudgetID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_budget_kekv"`
	Budget        *Budget         `gorm:"foreignKey:BudgetID"`
	KekvID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_budget_kekv"`
	Kekv          *Kekv           `gorm:"foreignKey:KekvID"`
	PlannedAmount decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"`
	Amount        decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"`
}

// ContractStatus represents the lifecycle state of a contract
type ContractStatus string

const (
	ContractStatusPlanned    ContractStatus = "PLANNED"
	ContractStatusDraft      ContractStatus = "DRAFT"
	ContractStatusActive     ContractStatus = "ACTIVE"
	ContractStatusCompleted  ContractStatus = "COMPLETED"
	ContractStatusTerminated ContractStatus = "TERMINATED"
	ContractStatusCancelled  ContractStatus = "CANCELLED"
)

// IsValid checks if the ContractStatus is a valid enum value
func (s ContractStatus) IsValid() bool {
	switch s {
	case ContractStatusPlanned, ContractStatusDraft, ContractStatusActive,
		ContractStatusCompleted, ContractStatusTerminated, ContractStatusCancelled:
		return true
	}
	return false
}

// ContractType is the procurement procedure used for a contract
type ContractType string

const (
	ContractTypeDirect      ContractType = "DIRECT"
	ContractTypeUrgent      ContractType = "URGENT"
	ContractTypeOpenBidding ContractType = "OPEN_BIDDING"
	ContractTypeInsurance   ContractType = "INSURANCE"
)

// Label returns the Ukrainian name of the procedure
func (t ContractType) Label() string {
	switch t {
	case ContractTypeDirect:
		return "Прямий договір"
	case ContractTypeUrgent:
		return "Терміновий"
	case ContractTypeOpenBidding:
		return "Відкриті торги"
	case ContractTypeInsurance:
		return "Страхування"
	}
	return string(t)
}

// Contract is a procurement contract consuming a KEKV allocation
type Contract struct {
	BaseModel
	RegistryNumber string          `gorm:"type:varchar(50);index"`
	Number         string          `gorm:"type:varchar(100)"`
	Status         ContractStatus  `gorm:"type:varchar(20);not null;default:'PLANNED';index"`
	Contractor     string          `gorm:"type:varchar(255);not null"`
	DkCode         string          `gorm:"type:varchar(50);not null;index"`
	DkName         string          `gorm:"type:varchar(500)"`
	Amount         decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"`
	UsedAmount     decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"`
	BudgetID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Budget         *Budget         `gorm:"foreignKey:BudgetID"`
	KekvID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kekv           *Kekv           `gorm:"foreignKey:KekvID"`
	ContractType   ContractType    `gorm:"type:varchar(20);not null;index"`
	VehicleID      *uuid.UUID      `gorm:"type:uuid"`
	Vehicle        *Vehicle        `gorm:"foreignKey:VehicleID"`
	StartDate      *time.Time
	EndDate        *time.Time
	Description    string          `gorm:"type:text"`
	Specifications []Specification `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE"`
}

// SpecificationSection groups contract lines
type SpecificationSection string

const (
	SectionService   SpecificationSection = "SERVICE"
	SectionPart      SpecificationSection = "PART"
	SectionMaterial  SpecificationSection = "MATERIAL"
	SectionEquipment SpecificationSection = "EQUIPMENT"
)

// Label returns the Ukrainian section name
func (s SpecificationSection) Label() string {
	switch s {
	case SectionService:
		return "Послуги"
	case SectionPart:
		return "Запчастини"
	case SectionMaterial:
		return "Матеріали"
	case SectionEquipment:
		return "Обладнання"
	}
	return string(s)
}

// Specification is a contract line item with a consumable remaining quantity
type Specification struct {
	BaseModel
	ContractID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	Name            string               `gorm:"type:varchar(500);not null"`
	Code            string               `gorm:"type:varchar(100)"`
	Unit            string               `gorm:"type:varchar(50);not null"`
	Quantity        decimal.Decimal      `gorm:"type:numeric(15,3);not null"`
	Price           decimal.Decimal      `gorm:"type:numeric(15,2);not null"`
	ServiceCount    int                  `gorm:"not null;default:1"`
	Section         SpecificationSection `gorm:"type:varchar(20);not null;default:'SERVICE'"`
	Amount          decimal.Decimal      `gorm:"type:numeric(15,2);not null"`
	Remaining       decimal.Decimal      `gorm:"type:numeric(15,3);not null"`
	VehicleID       *uuid.UUID           `gorm:"type:uuid;index"`
	VehicleBrand    string               `gorm:"type:varchar(100)"`
	VehicleVin      string               `gorm:"type:varchar(50)"`
	VehicleLocation string               `gorm:"type:varchar(255)"`
}

// ActStatus represents the posting state of a completion act
type ActStatus string

const (
	ActStatusPending ActStatus = "PENDING"
	ActStatusActive  ActStatus = "ACTIVE"
	ActStatusPaid    ActStatus = "PAID"
)

// IsValid checks if the ActStatus is a valid enum value
func (s ActStatus) IsValid() bool {
	switch s {
	case ActStatusPending, ActStatusActive, ActStatusPaid:
		return true
	}
	return false
}

// IsPosted reports whether an act in this status counts against the ledger
func (s ActStatus) IsPosted() bool {
	return s == ActStatusActive || s == ActStatusPaid
}

// Act is a completion certificate posting delivered quantities against a contract
type Act struct {
	BaseModel
	ContractID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Contract    *Contract       `gorm:"foreignKey:ContractID"`
	Number      string          `gorm:"type:varchar(100)"`
	Date        *time.Time
	Status      ActStatus       `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"`
	Description string          `gorm:"type:text"`
	Items       []ActItem       `gorm:"foreignKey:ActID;constraint:OnDelete:CASCADE"`
}

// ActItem is one line of an act
type ActItem struct {
	BaseModel
	ActID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	SpecificationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Specification   *Specification  `gorm:"foreignKey:SpecificationID"`
	Quantity        decimal.Decimal `gorm:"type:numeric(15,3);not null"`
	ServiceCount    int             `gorm:"not null;default:1"`
	Amount          decimal.Decimal `gorm:"type:numeric(15,2);not null"`
}

// SpecificationUsage is an ad hoc consumption record outside the act workflow
type SpecificationUsage struct {
	BaseModel
	SpecificationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Specification   *Specification  `gorm:"foreignKey:SpecificationID"`
	Date            time.Time       `gorm:"not null"`
	QuantityUsed    decimal.Decimal `gorm:"type:numeric(15,3);not null"`
	Amount          decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	DocumentNumber  string          `gorm:"type:varchar(100)"`
	Description     string          `gorm:"type:text"`
}

// Vehicle is a fleet vehicle serviced under KEKV 2240 contracts
type Vehicle struct {
	BaseModel
	Number   string `gorm:"type:varchar(20)"`
	Brand    string `gorm:"type:varchar(100)"`
	Model    string `gorm:"type:varchar(100)"`
	Vin      string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Location string `gorm:"type:varchar(255)"`
	Mileage  int
	Year     int
}

// Payment is money paid against a contract
type Payment struct {
	BaseModel
	ContractID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	Date        time.Time       `gorm:"not null"`
	Description string          `gorm:"type:text"`
}

// InventoryCategory groups warehouse items
type InventoryCategory struct {
	BaseModel
	Name string `gorm:"type:varchar(255);not null;uniqueIndex"`
}

// Unit is a unit of measure for warehouse items
type Unit struct {
	BaseModel
	Name string `gorm:"type:varchar(50);not null;uniqueIndex"`
}

// InventoryItem is a warehouse stock entry
type InventoryItem struct {
	BaseModel
	Code       string             `gorm:"type:varchar(255);not null;uniqueIndex"`
	Name       string             `gorm:"type:varchar(500);not null"`
	CategoryID *uuid.UUID         `gorm:"type:uuid"`
	Category   *InventoryCategory `gorm:"foreignKey:CategoryID"`
	UnitID     *uuid.UUID         `gorm:"type:uuid"`
	Unit       *Unit              `gorm:"foreignKey:UnitID"`
	Quantity   decimal.Decimal    `gorm:"type:numeric(15,3);not null;default:0"`
	Price      decimal.Decimal    `gorm:"type:numeric(15,2);not null;default:0"`
}

// NumberSequence tracks the last issued registry number per prefix and year
type NumberSequence struct {
	BaseModel
	Prefix       string `gorm:"type:varchar(10);not null;uniqueIndex:idx_sequence_prefix_year"`
	Year         int    `gorm:"not null;uniqueIndex:idx_sequence_prefix_year"`
	LastSequence int    `gorm:"not null;default:0"`
}

// AuditLog records a mutating API request
type AuditLog struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Method      string     `gorm:"type:varchar(10);not null" json:"method"`
	Path        string     `gorm:"type:varchar(500);not null" json:"path"`
	EntityType  string     `gorm:"type:varchar(50);index" json:"entityType"`
	EntityID    *uuid.UUID `gorm:"type:uuid;index" json:"entityId,omitempty"`
	StatusCode  int        `gorm:"not null" json:"statusCode"`
	RequestBody string     `gorm:"type:text" json:"requestBody,omitempty"`
	RequestID   string     `gorm:"type:varchar(64)" json:"requestId,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"createdAt"`
}

// BeforeCreate assigns the primary key
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
