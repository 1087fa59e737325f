package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"github.com/straye-as/kosthorys-api/internal/service"
	"go.uber.org/zap"
)

// ContractHandler handles contracts and their specification lines
type ContractHandler struct {
	contractService *service.ContractService
	logger          *zap.Logger
}

// NewContractHandler creates a new contract handler instance
func NewContractHandler(contractService *service.ContractService, logger *zap.Logger) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
		logger:          logger,
	}
}

// List godoc
// @Summary List contracts
// @Description Get paginated list of contracts with optional filters
// @Tags Contracts
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param budgetId query string false "Filter by budget" format(uuid)
// @Param kekvId query string false "Filter by KEKV" format(uuid)
// @Param status query string false "Filter by status" Enums(PLANNED, DRAFT, ACTIVE, COMPLETED, TERMINATED, CANCELLED)
// @Param contractType query string false "Filter by procurement type" Enums(DIRECT, URGENT, OPEN_BIDDING, INSURANCE)
// @Param dkCode query string false "Filter by DK code"
// @Param search query string false "Search by contractor, number or registry number"
// @Param sortBy query string false "Sort field" Enums(createdAt, updatedAt, registryNumber, contractor, amount, usedAmount, status, startDate, endDate)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ContractDTO}
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /contracts [get]
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := parsePage(r)

	filters := &repository.ContractFilters{
		DkCode: strings.TrimSpace(q.Get("dkCode")),
		Search: q.Get("search"),
	}
	var err error
	if filters.BudgetID, err = queryUUID(r, "budgetId"); err != nil {
		respondWithError(w, http.StatusBadRequest, "Некоректний budgetId")
		return
	}
	if filters.KekvID, err = queryUUID(r, "kekvId"); err != nil {
		respondWithError(w, http.StatusBadRequest, "Некоректний kekvId")
		return
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.ContractStatus(raw)
		filters.Status = &status
	}
	if raw := q.Get("contractType"); raw != "" {
		contractType := domain.ContractType(raw)
		filters.ContractType = &contractType
	}

	result, err := h.contractService.List(r.Context(), page, pageSize, filters, parseSort(r))
	if err != nil {
		h.handleContractError(w, err, "list contracts")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get contract by ID
// @Description Get a contract with its specification lines and paid amount
// @Tags Contracts
// @Produce json
// @Param id path string true "Contract ID" format(uuid)
// @Success 200 {object} domain.ContractDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /contracts/{id} [get]
func (h *ContractHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "договір")
	if !ok {
		return
	}

	contract, err := h.contractService.GetByID(r.Context(), id)
	if err != nil {
		h.handleContractError(w, err, "get contract")
		return
	}
	respondJSON(w, http.StatusOK, contract)
}

// Create godoc
// @Summary Create contract
// @Description Create a contract with its specification lines. The contract amount is reserved
// @Description from the budget KEKV allocation; direct contracts are checked against the DK ceiling.
// @Tags Contracts
// @Accept json
// @Produce json
// @Param request body domain.CreateContractRequest true "Contract data"
// @Success 201 {object} domain.ContractDTO
// @Failure 400 {object} domain.APIError "Validation error, insufficient allocation or direct ceiling exceeded"
// @Failure 404 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /contracts [post]
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateContractRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	contract, err := h.contractService.Create(r.Context(), &req)
	if err != nil {
		h.handleContractError(w, err, "create contract")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/contracts/%s", contract.ID))
	respondJSON(w, http.StatusCreated, contract)
}

// Update godoc
// @Summary Update contract
// @Description Update contract attributes and/or status. Activation requires number, start and end
// @Description dates; cancellation releases the reserved allocation.
// @Tags Contracts
// @Accept json
// @Produce json
// @Param id path string true "Contract ID" format(uuid)
// @Param request body domain.UpdateContractRequest true "Changes"
// @Success 200 {object} domain.ContractDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /contracts/{id} [put]
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "договір")
	if !ok {
		return
	}
	var req domain.UpdateContractRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	contract, err := h.contractService.Update(r.Context(), id, &req)
	if err != nil {
		h.handleContractError(w, err, "update contract")
		return
	}
	respondJSON(w, http.StatusOK, contract)
}

// Delete godoc
// @Summary Delete contract
// @Description Delete a contract without acts, usage or payments and restore its allocation
// @Tags Contracts
// @Param id path string true "Contract ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /contracts/{id} [delete]
func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "договір")
	if !ok {
		return
	}

	if err := h.contractService.Delete(r.Context(), id); err != nil {
		h.handleContractError(w, err, "delete contract")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DirectLimit godoc
// @Summary Direct contract ceiling
// @Description Used and available amount of the direct contract ceiling for a DK code
// @Tags Contracts
// @Produce json
// @Param dkCode query string true "DK code"
// @Success 200 {object} domain.DirectLimitDTO
// @Failure 400 {object} domain.APIError
// @Router /contracts/direct-limit [get]
func (h *ContractHandler) DirectLimit(w http.ResponseWriter, r *http.Request) {
	dkCode := strings.TrimSpace(r.URL.Query().Get("dkCode"))
	if dkCode == "" {
		respondWithError(w, http.StatusBadRequest, "Параметр dkCode обов'язковий")
		return
	}

	limit, err := h.contractService.DirectLimit(r.Context(), dkCode)
	if err != nil {
		h.handleContractError(w, err, "get direct limit")
		return
	}
	respondJSON(w, http.StatusOK, limit)
}

// ListSpecifications godoc
// @Summary List specification lines
// @Tags Contracts
// @Produce json
// @Param id path string true "Contract ID" format(uuid)
// @Success 200 {array} domain.SpecificationDTO
// @Failure 404 {object} domain.APIError
// @Router /contracts/{id}/specifications [get]
func (h *ContractHandler) ListSpecifications(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "договір")
	if !ok {
		return
	}

	specs, err := h.contractService.ListSpecifications(r.Context(), id)
	if err != nil {
		h.handleContractError(w, err, "list specifications")
		return
	}
	respondJSON(w, http.StatusOK, specs)
}

// AddSpecifications godoc
// @Summary Add specification lines
// @Description Append lines to a contract; the added amount is reserved from the allocation
// @Tags Contracts
// @Accept json
// @Produce json
// @Param id path string true "Contract ID" format(uuid)
// @Param request body domain.AddSpecificationsRequest true "Lines"
// @Success 200 {object} domain.ContractDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /contracts/{id}/specifications [post]
func (h *ContractHandler) AddSpecifications(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "договір")
	if !ok {
		return
	}
	var req domain.AddSpecificationsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	contract, err := h.contractService.AddSpecifications(r.Context(), id, &req)
	if err != nil {
		h.handleContractError(w, err, "add specifications")
		return
	}
	respondJSON(w, http.StatusOK, contract)
}

// DeleteSpecification godoc
// @Summary Delete specification line
// @Description Remove an unconsumed line; its amount is released to the allocation
// @Tags Specifications
// @Param id path string true "Specification ID" format(uuid)
// @Success 204
// @Failure 400 {object} domain.APIError "Last line of the contract"
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /specifications/{id} [delete]
func (h *ContractHandler) DeleteSpecification(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "специфікація")
	if !ok {
		return
	}

	if err := h.contractService.DeleteSpecification(r.Context(), id); err != nil {
		h.handleContractError(w, err, "delete specification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleContractError maps service errors to HTTP responses
func (h *ContractHandler) handleContractError(w http.ResponseWriter, err error, op string) {
	if status, msg, ok := mapDocumentError(err); ok {
		respondWithError(w, status, msg)
		return
	}
	h.logger.Error("contract handler error", zap.String("operation", op), zap.Error(err))
	respondWithError(w, http.StatusInternalServerError, "Внутрішня помилка сервера")
}
