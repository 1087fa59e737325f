package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/report"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"github.com/straye-as/kosthorys-api/internal/service"
	"go.uber.org/zap"
)

// BudgetHandler handles budgets, their allocations, statistics and reports
type BudgetHandler struct {
	budgetService     *service.BudgetService
	statisticsService *service.StatisticsService
	reportService     *service.ReportService
	logger            *zap.Logger
}

// NewBudgetHandler creates a new budget handler instance
func NewBudgetHandler(
	budgetService *service.BudgetService,
	statisticsService *service.StatisticsService,
	reportService *service.ReportService,
	logger *zap.Logger,
) *BudgetHandler {
	return &BudgetHandler{
		budgetService:     budgetService,
		statisticsService: statisticsService,
		reportService:     reportService,
		logger:            logger,
	}
}

// List godoc
// @Summary List budgets
// @Description Get paginated list of budgets with their KEKV allocations
// @Tags Budgets
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param year query int false "Filter by year"
// @Param type query string false "Filter by budget type" Enums(GENERAL, SPECIAL)
// @Param search query string false "Search by name"
// @Param sortBy query string false "Sort field" Enums(createdAt, name, year, date, totalAmount)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.BudgetDTO}
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /budgets [get]
func (h *BudgetHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePage(r)
	filters := &repository.BudgetFilters{Search: r.URL.Query().Get("search")}

	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Некоректний рік")
			return
		}
		filters.Year = &year
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		budgetType := domain.BudgetType(raw)
		filters.Type = &budgetType
	}

	result, err := h.budgetService.List(r.Context(), page, pageSize, filters, parseSort(r))
	if err != nil {
		h.handleBudgetError(w, err, "list budgets")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get budget by ID
// @Tags Budgets
// @Produce json
// @Param id path string true "Budget ID" format(uuid)
// @Success 200 {object} domain.BudgetDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /budgets/{id} [get]
func (h *BudgetHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "кошторис")
	if !ok {
		return
	}

	budget, err := h.budgetService.GetByID(r.Context(), id)
	if err != nil {
		h.handleBudgetError(w, err, "get budget")
		return
	}
	respondJSON(w, http.StatusOK, budget)
}

// Create godoc
// @Summary Create budget
// @Description Create a budget with KEKV allocations. Unknown KEKV codes are created, repeated codes are merged.
// @Tags Budgets
// @Accept json
// @Produce json
// @Param request body domain.CreateBudgetRequest true "Budget data"
// @Success 201 {object} domain.BudgetDTO
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /budgets [post]
func (h *BudgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBudgetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	budget, err := h.budgetService.Create(r.Context(), &req)
	if err != nil {
		h.handleBudgetError(w, err, "create budget")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/budgets/%s", budget.ID))
	respondJSON(w, http.StatusCreated, budget)
}

// Update godoc
// @Summary Update budget
// @Description Update budget attributes. The total amount is fixed once contracts reference the budget.
// @Tags Budgets
// @Accept json
// @Produce json
// @Param id path string true "Budget ID" format(uuid)
// @Param request body domain.UpdateBudgetRequest true "Budget data"
// @Success 200 {object} domain.BudgetDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /budgets/{id} [put]
func (h *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "кошторис")
	if !ok {
		return
	}
	var req domain.UpdateBudgetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	budget, err := h.budgetService.Update(r.Context(), id, &req)
	if err != nil {
		h.handleBudgetError(w, err, "update budget")
		return
	}
	respondJSON(w, http.StatusOK, budget)
}

// Delete godoc
// @Summary Delete budget
// @Description Delete a budget that no contract references
// @Tags Budgets
// @Param id path string true "Budget ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /budgets/{id} [delete]
func (h *BudgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "кошторис")
	if !ok {
		return
	}

	if err := h.budgetService.Delete(r.Context(), id); err != nil {
		h.handleBudgetError(w, err, "delete budget")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddAllocation godoc
// @Summary Add KEKV allocation
// @Description Add a KEKV allocation to a budget or top an existing one up
// @Tags Budgets
// @Accept json
// @Produce json
// @Param id path string true "Budget ID" format(uuid)
// @Param request body domain.BudgetAllocationRequest true "Allocation"
// @Success 200 {object} domain.BudgetDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /budgets/{id}/kekv [post]
func (h *BudgetHandler) AddAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "кошторис")
	if !ok {
		return
	}
	var req domain.BudgetAllocationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	budget, err := h.budgetService.AddAllocation(r.Context(), id, &req)
	if err != nil {
		h.handleBudgetError(w, err, "add allocation")
		return
	}
	respondJSON(w, http.StatusOK, budget)
}

// Statistics godoc
// @Summary Budget statistics
// @Description Spend-vs-plan roll-up per KEKV and per contract type
// @Tags Budgets
// @Produce json
// @Param id path string true "Budget ID" format(uuid)
// @Success 200 {object} domain.BudgetStatisticsDTO
// @Failure 404 {object} domain.APIError
// @Router /budgets/{id}/statistics [get]
func (h *BudgetHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "кошторис")
	if !ok {
		return
	}

	stats, err := h.statisticsService.GetBudgetStatistics(r.Context(), id)
	if err != nil {
		h.handleBudgetError(w, err, "get budget statistics")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Report godoc
// @Summary Budget execution report
// @Description Generates the xlsx execution report, stores a copy and streams it back
// @Tags Budgets
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Budget ID" format(uuid)
// @Success 200 {file} file
// @Failure 404 {object} domain.APIError
// @Router /budgets/{id}/report [get]
func (h *BudgetHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "кошторис")
	if !ok {
		return
	}

	meta, data, err := h.reportService.BudgetReport(r.Context(), id)
	if err != nil {
		h.handleBudgetError(w, err, "build budget report")
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, meta.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if meta.StoragePath != "" {
		w.Header().Set("X-Report-Path", meta.StoragePath)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleBudgetError maps service errors to HTTP responses
func (h *BudgetHandler) handleBudgetError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrBudgetNotFound):
		respondWithError(w, http.StatusNotFound, "Кошторис не знайдено")
	case errors.Is(err, service.ErrBudgetHasUsage):
		respondWithError(w, http.StatusConflict, "Кошторис використовується договорами")
	case errors.Is(err, service.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("budget handler error", zap.String("operation", op), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Внутрішня помилка сервера")
	}
}
