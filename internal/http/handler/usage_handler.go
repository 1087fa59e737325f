package handler

import (
	"net/http"

	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/service"
	"go.uber.org/zap"
)

// UsageHandler handles usage postings against specification lines
type UsageHandler struct {
	usageService *service.UsageService
	logger       *zap.Logger
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(usageService *service.UsageService, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{usageService: usageService, logger: logger}
}

// List godoc
// @Summary Usage history of a specification line
// @Tags Specifications
// @Produce json
// @Param id path string true "Specification ID" format(uuid)
// @Success 200 {array} domain.UsageDTO
// @Failure 404 {object} domain.APIError
// @Router /specifications/{id}/usage [get]
func (h *UsageHandler) List(w http.ResponseWriter, r *http.Request) {
	specID, ok := parseID(w, r, "id", "специфікація")
	if !ok {
		return
	}

	usages, err := h.usageService.List(r.Context(), specID)
	if err != nil {
		h.handleUsageError(w, err, "list usage")
		return
	}
	respondJSON(w, http.StatusOK, usages)
}

// Post godoc
// @Summary Post usage
// @Description Consume quantity of a specification line. Fails when the quantity exceeds the remaining.
// @Tags Specifications
// @Accept json
// @Produce json
// @Param id path string true "Specification ID" format(uuid)
// @Param request body domain.CreateUsageRequest true "Usage"
// @Success 201 {object} domain.UsageDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /specifications/{id}/usage [post]
func (h *UsageHandler) Post(w http.ResponseWriter, r *http.Request) {
	specID, ok := parseID(w, r, "id", "специфікація")
	if !ok {
		return
	}
	var req domain.CreateUsageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	usage, err := h.usageService.Post(r.Context(), specID, &req)
	if err != nil {
		h.handleUsageError(w, err, "post usage")
		return
	}
	respondJSON(w, http.StatusCreated, usage)
}

// Delete godoc
// @Summary Reverse usage
// @Description Delete a usage record and return its quantity to the specification line
// @Tags Specifications
// @Param usageId path string true "Usage ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Router /specifications/usage/{usageId} [delete]
func (h *UsageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	usageID, ok := parseID(w, r, "usageId", "використання")
	if !ok {
		return
	}

	if err := h.usageService.Delete(r.Context(), usageID); err != nil {
		h.handleUsageError(w, err, "delete usage")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUsageError maps service errors to HTTP responses
func (h *UsageHandler) handleUsageError(w http.ResponseWriter, err error, op string) {
	if status, msg, ok := mapDocumentError(err); ok {
		respondWithError(w, status, msg)
		return
	}
	h.logger.Error("usage handler error", zap.String("operation", op), zap.Error(err))
	respondWithError(w, http.StatusInternalServerError, "Внутрішня помилка сервера")
}
