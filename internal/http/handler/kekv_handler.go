package handler

import (
	"errors"
	"net/http"

	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/service"
	"go.uber.org/zap"
)

// KekvHandler handles the KEKV dictionary
type KekvHandler struct {
	kekvService *service.KekvService
	logger      *zap.Logger
}

// NewKekvHandler creates a new KEKV handler
func NewKekvHandler(kekvService *service.KekvService, logger *zap.Logger) *KekvHandler {
	return &KekvHandler{kekvService: kekvService, logger: logger}
}

// List godoc
// @Summary List KEKV codes
// @Tags KEKV
// @Produce json
// @Success 200 {array} domain.KekvDTO
// @Failure 500 {object} domain.APIError
// @Router /kekv [get]
func (h *KekvHandler) List(w http.ResponseWriter, r *http.Request) {
	kekvs, err := h.kekvService.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list kekv", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Не вдалося отримати КЕКВ")
		return
	}
	respondJSON(w, http.StatusOK, kekvs)
}

// Create godoc
// @Summary Create KEKV code
// @Tags KEKV
// @Accept json
// @Produce json
// @Param request body domain.CreateKekvRequest true "KEKV"
// @Success 201 {object} domain.KekvDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /kekv [post]
func (h *KekvHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateKekvRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	kekv, err := h.kekvService.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrKekvCodeExists) {
			respondWithError(w, http.StatusConflict, "КЕКВ з таким кодом вже існує")
			return
		}
		h.logger.Error("failed to create kekv", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Не вдалося створити КЕКВ")
		return
	}
	respondJSON(w, http.StatusCreated, kekv)
}
