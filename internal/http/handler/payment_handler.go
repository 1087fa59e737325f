package handler

import (
	"net/http"

	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/service"
	"go.uber.org/zap"
)

// PaymentHandler handles payments against contracts
type PaymentHandler struct {
	paymentService *service.PaymentService
	logger         *zap.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, logger: logger}
}

// ListByContract godoc
// @Summary List payments of a contract
// @Tags Payments
// @Produce json
// @Param id path string true "Contract ID" format(uuid)
// @Success 200 {array} domain.PaymentDTO
// @Failure 404 {object} domain.APIError
// @Router /contracts/{id}/payments [get]
func (h *PaymentHandler) ListByContract(w http.ResponseWriter, r *http.Request) {
	contractID, ok := parseID(w, r, "id", "договір")
	if !ok {
		return
	}

	payments, err := h.paymentService.ListByContract(r.Context(), contractID)
	if err != nil {
		h.handlePaymentError(w, err, "list payments")
		return
	}
	respondJSON(w, http.StatusOK, payments)
}

// Create godoc
// @Summary Register payment
// @Description Register a payment. The total paid may not exceed the contract amount;
// @Description reaching it completes the contract.
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Contract ID" format(uuid)
// @Param request body domain.CreatePaymentRequest true "Payment"
// @Success 201 {object} domain.PaymentDTO
// @Failure 400 {object} domain.APIError "Validation error or overpayment"
// @Failure 404 {object} domain.APIError
// @Router /contracts/{id}/payments [post]
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	contractID, ok := parseID(w, r, "id", "договір")
	if !ok {
		return
	}
	var req domain.CreatePaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	payment, err := h.paymentService.Create(r.Context(), contractID, &req)
	if err != nil {
		h.handlePaymentError(w, err, "create payment")
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}

// Delete godoc
// @Summary Delete payment
// @Tags Payments
// @Param id path string true "Payment ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Router /payments/{id} [delete]
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "оплата")
	if !ok {
		return
	}

	if err := h.paymentService.Delete(r.Context(), id); err != nil {
		h.handlePaymentError(w, err, "delete payment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePaymentError maps service errors to HTTP responses
func (h *PaymentHandler) handlePaymentError(w http.ResponseWriter, err error, op string) {
	if status, msg, ok := mapDocumentError(err); ok {
		respondWithError(w, status, msg)
		return
	}
	h.logger.Error("payment handler error", zap.String("operation", op), zap.Error(err))
	respondWithError(w, http.StatusInternalServerError, "Внутрішня помилка сервера")
}
