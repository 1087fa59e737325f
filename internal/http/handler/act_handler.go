package handler

import (
	"net/http"

	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/service"
	"go.uber.org/zap"
)

// ActHandler handles completion acts
type ActHandler struct {
	actService *service.ActService
	logger     *zap.Logger
}

// NewActHandler creates a new act handler
func NewActHandler(actService *service.ActService, logger *zap.Logger) *ActHandler {
	return &ActHandler{actService: actService, logger: logger}
}

// ListByContract godoc
// @Summary List acts of a contract
// @Tags Acts
// @Produce json
// @Param id path string true "Contract ID" format(uuid)
// @Success 200 {array} domain.ActDTO
// @Failure 404 {object} domain.APIError
// @Router /contracts/{id}/acts [get]
func (h *ActHandler) ListByContract(w http.ResponseWriter, r *http.Request) {
	contractID, ok := parseID(w, r, "id", "договір")
	if !ok {
		return
	}

	acts, err := h.actService.ListByContract(r.Context(), contractID)
	if err != nil {
		h.handleActError(w, err, "list acts")
		return
	}
	respondJSON(w, http.StatusOK, acts)
}

// Create godoc
// @Summary Create act
// @Description Create a completion act. PENDING acts reserve nothing; an ACTIVE act posts its
// @Description quantities against the specification lines immediately.
// @Tags Acts
// @Accept json
// @Produce json
// @Param id path string true "Contract ID" format(uuid)
// @Param request body domain.CreateActRequest true "Act data"
// @Success 201 {object} domain.ActDTO
// @Failure 400 {object} domain.APIError "Validation error or quantity over remaining"
// @Failure 404 {object} domain.APIError
// @Router /contracts/{id}/acts [post]
func (h *ActHandler) Create(w http.ResponseWriter, r *http.Request) {
	contractID, ok := parseID(w, r, "id", "договір")
	if !ok {
		return
	}
	var req domain.CreateActRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	act, err := h.actService.Create(r.Context(), contractID, &req)
	if err != nil {
		h.handleActError(w, err, "create act")
		return
	}
	respondJSON(w, http.StatusCreated, act)
}

// GetByID godoc
// @Summary Get act by ID
// @Tags Acts
// @Produce json
// @Param id path string true "Act ID" format(uuid)
// @Success 200 {object} domain.ActDTO
// @Failure 404 {object} domain.APIError
// @Router /acts/{id} [get]
func (h *ActHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "акт")
	if !ok {
		return
	}

	act, err := h.actService.GetByID(r.Context(), id)
	if err != nil {
		h.handleActError(w, err, "get act")
		return
	}
	respondJSON(w, http.StatusOK, act)
}

// UpdateStatus godoc
// @Summary Change act status
// @Description Moving to ACTIVE or PAID posts the act; moving back to PENDING reverses it
// @Tags Acts
// @Accept json
// @Produce json
// @Param id path string true "Act ID" format(uuid)
// @Param request body domain.UpdateActRequest true "Status change"
// @Success 200 {object} domain.ActDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /acts/{id} [patch]
func (h *ActHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "акт")
	if !ok {
		return
	}
	var req domain.UpdateActRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	act, err := h.actService.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		h.handleActError(w, err, "update act")
		return
	}
	respondJSON(w, http.StatusOK, act)
}

// Delete godoc
// @Summary Delete act
// @Description Delete an act, reversing its posting when it was active
// @Tags Acts
// @Param id path string true "Act ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Router /acts/{id} [delete]
func (h *ActHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "акт")
	if !ok {
		return
	}

	if err := h.actService.Delete(r.Context(), id); err != nil {
		h.handleActError(w, err, "delete act")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleActError maps service errors to HTTP responses
func (h *ActHandler) handleActError(w http.ResponseWriter, err error, op string) {
	if status, msg, ok := mapDocumentError(err); ok {
		respondWithError(w, status, msg)
		return
	}
	h.logger.Error("act handler error", zap.String("operation", op), zap.Error(err))
	respondWithError(w, http.StatusInternalServerError, "Внутрішня помилка сервера")
}
