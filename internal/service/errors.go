package service

import (
	"errors"

	"github.com/straye-as/kosthorys-api/internal/ledger"
)

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")
)

// Balance rule errors, shared with the ledger
var (
	ErrInsufficientAllocation = ledger.ErrInsufficientAllocation
	ErrLimitExceeded          = ledger.ErrLimitExceeded
	ErrOverLimit              = ledger.ErrOverLimit
	ErrAllocationNotFound     = ledger.ErrAllocationNotFound
	ErrSpecificationNotFound  = ledger.ErrSpecificationNotFound
	ErrContractNotFound       = ledger.ErrContractNotFound
)

// Budget errors
var (
	ErrBudgetNotFound = errors.New("budget not found")
	ErrBudgetHasUsage = errors.New("budget has contracts")
	ErrKekvNotFound   = errors.New("kekv not found")
	ErrKekvCodeExists = errors.New("kekv code already exists")
)

// Contract errors
var (
	ErrContractHasDocuments       = errors.New("contract has acts, usage or payments")
	ErrActivationRequiresDetails  = errors.New("activation requires number, start date and end date")
	ErrContractNotEditable        = errors.New("contract is cancelled")
	ErrSpecificationConsumed      = errors.New("specification has posted usage")
	ErrSpecificationWrongContract = errors.New("specification belongs to another contract")
)

// Act errors
var (
	ErrActNotFound              = errors.New("act not found")
	ErrActActivationRequirement = errors.New("act activation requires number and date")
)

// Usage and payment errors
var (
	ErrUsageNotFound   = errors.New("usage not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrOverpayment     = errors.New("payment exceeds contract amount")
)

// Vehicle errors
var (
	ErrVehicleNotFound  = errors.New("vehicle not found")
	ErrVehicleVinExists = errors.New("vehicle with this VIN already exists")
	ErrVehicleInUse     = errors.New("vehicle is referenced by contracts")
)
