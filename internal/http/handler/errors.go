package handler

import (
	"errors"
	"net/http"

	"github.com/straye-as/kosthorys-api/internal/service"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

// documentErrors are the service errors shared by contract, act, usage and
// payment endpoints. Order matters: the first match wins.
var documentErrors = []errorMapping{
	{service.ErrInsufficientAllocation, http.StatusBadRequest, "Недостатньо коштів за КЕКВ у кошторисі"},
	{service.ErrLimitExceeded, http.StatusBadRequest, "Перевищено ліміт прямих договорів за кодом ДК"},
	{service.ErrOverLimit, http.StatusBadRequest, "Кількість перевищує залишок за специфікацією"},
	{service.ErrOverpayment, http.StatusBadRequest, "Сума оплат перевищує суму договору"},
	{service.ErrActivationRequiresDetails, http.StatusBadRequest, "Для активації договору потрібні номер, дата початку та дата завершення"},
	{service.ErrActActivationRequirement, http.StatusBadRequest, "Для активації акту потрібні номер і дата"},
	{service.ErrSpecificationWrongContract, http.StatusBadRequest, "Специфікація належить іншому договору"},
	{service.ErrInvalidInput, http.StatusBadRequest, ""},
	{service.ErrAllocationNotFound, http.StatusNotFound, "КЕКВ не виділено в цьому кошторисі"},
	{service.ErrContractNotFound, http.StatusNotFound, "Договір не знайдено"},
	{service.ErrSpecificationNotFound, http.StatusNotFound, "Специфікацію не знайдено"},
	{service.ErrActNotFound, http.StatusNotFound, "Акт не знайдено"},
	{service.ErrUsageNotFound, http.StatusNotFound, "Запис використання не знайдено"},
	{service.ErrPaymentNotFound, http.StatusNotFound, "Оплату не знайдено"},
	{service.ErrKekvNotFound, http.StatusNotFound, "КЕКВ не знайдено"},
	{service.ErrBudgetNotFound, http.StatusNotFound, "Кошторис не знайдено"},
	{service.ErrContractHasDocuments, http.StatusConflict, "Договір має акти, використання або оплати"},
	{service.ErrContractNotEditable, http.StatusConflict, "Договір скасовано"},
	{service.ErrSpecificationConsumed, http.StatusConflict, "Специфікація вже використана"},
}

// mapDocumentError returns the response for a known service error
func mapDocumentError(err error) (int, string, bool) {
	for _, m := range documentErrors {
		if errors.Is(err, m.err) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return m.status, msg, true
		}
	}
	return 0, "", false
}
