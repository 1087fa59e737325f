package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/service"
	"go.uber.org/zap"
)

// VehicleHandler handles the fleet registry
type VehicleHandler struct {
	vehicleService *service.VehicleService
	logger         *zap.Logger
}

// NewVehicleHandler creates a new vehicle handler instance
func NewVehicleHandler(vehicleService *service.VehicleService, logger *zap.Logger) *VehicleHandler {
	return &VehicleHandler{
		vehicleService: vehicleService,
		logger:         logger,
	}
}

// List godoc
// @Summary List vehicles
// @Tags Vehicles
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by number, brand, model or VIN"
// @Param sortBy query string false "Sort field" Enums(createdAt, number, brand, vin, year)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.VehicleDTO}
// @Failure 500 {object} domain.APIError
// @Router /vehicles [get]
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePage(r)
	result, err := h.vehicleService.List(r.Context(), page, pageSize, r.URL.Query().Get("search"), parseSort(r))
	if err != nil {
		h.handleVehicleError(w, err, "list vehicles")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get vehicle by ID
// @Tags Vehicles
// @Produce json
// @Param id path string true "Vehicle ID" format(uuid)
// @Success 200 {object} domain.VehicleDTO
// @Failure 404 {object} domain.APIError
// @Router /vehicles/{id} [get]
func (h *VehicleHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "транспортний засіб")
	if !ok {
		return
	}

	vehicle, err := h.vehicleService.GetByID(r.Context(), id)
	if err != nil {
		h.handleVehicleError(w, err, "get vehicle")
		return
	}
	respondJSON(w, http.StatusOK, vehicle)
}

// Create godoc
// @Summary Create vehicle
// @Tags Vehicles
// @Accept json
// @Produce json
// @Param request body domain.VehicleRequest true "Vehicle"
// @Success 201 {object} domain.VehicleDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Duplicate VIN"
// @Router /vehicles [post]
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.VehicleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	vehicle, err := h.vehicleService.Create(r.Context(), &req)
	if err != nil {
		h.handleVehicleError(w, err, "create vehicle")
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/vehicles/%s", vehicle.ID))
	respondJSON(w, http.StatusCreated, vehicle)
}

// Update godoc
// @Summary Update vehicle
// @Tags Vehicles
// @Accept json
// @Produce json
// @Param id path string true "Vehicle ID" format(uuid)
// @Param request body domain.VehicleRequest true "Vehicle"
// @Success 200 {object} domain.VehicleDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /vehicles/{id} [put]
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "транспортний засіб")
	if !ok {
		return
	}
	var req domain.VehicleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	vehicle, err := h.vehicleService.Update(r.Context(), id, &req)
	if err != nil {
		h.handleVehicleError(w, err, "update vehicle")
		return
	}
	respondJSON(w, http.StatusOK, vehicle)
}

// Delete godoc
// @Summary Delete vehicle
// @Description Delete a vehicle that no contract or specification references
// @Tags Vehicles
// @Param id path string true "Vehicle ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /vehicles/{id} [delete]
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "транспортний засіб")
	if !ok {
		return
	}

	if err := h.vehicleService.Delete(r.Context(), id); err != nil {
		h.handleVehicleError(w, err, "delete vehicle")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVehicleError maps service errors to HTTP responses
func (h *VehicleHandler) handleVehicleError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrVehicleNotFound):
		respondWithError(w, http.StatusNotFound, "Транспортний засіб не знайдено")
	case errors.Is(err, service.ErrVehicleVinExists):
		respondWithError(w, http.StatusConflict, "Транспортний засіб з таким VIN вже існує")
	case errors.Is(err, service.ErrVehicleInUse):
		respondWithError(w, http.StatusConflict, "Транспортний засіб використовується у договорах")
	default:
		h.logger.Error("vehicle handler error", zap.String("operation", op), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Внутрішня помилка сервера")
	}
}
