package handler

import (
	"net/http"

	"github.com/straye-as/kosthorys-api/internal/service"
	"go.uber.org/zap"
)

// InventoryHandler exposes stock filled by materials contracts
type InventoryHandler struct {
	inventoryService *service.InventoryService
	logger           *zap.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *service.InventoryService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService, logger: logger}
}

// List godoc
// @Summary List inventory items
// @Tags Inventory
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by code or name"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.InventoryItemDTO}
// @Failure 500 {object} domain.APIError
// @Router /inventory [get]
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePage(r)
	result, err := h.inventoryService.List(r.Context(), page, pageSize, r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Error("failed to list inventory", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Не вдалося отримати залишки складу")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
