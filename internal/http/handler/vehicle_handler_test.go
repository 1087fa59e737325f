package handler_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVehicleHandler_CRUD(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(http.MethodPost, "/vehicles", map[string]interface{}{
		"number": "АА1234ВВ",
		"brand":  "Renault",
		"model":  "Master",
		"vin":    " VF1MA000012345678 ",
		"year":   2019,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	vehicle := decode[domain.VehicleDTO](t, rr)
	assert.Equal(t, "VF1MA000012345678", vehicle.Vin)
	assert.Equal(t, "/api/v1/vehicles/"+vehicle.ID.String(), rr.Header().Get("Location"))

	rr = api.do(http.MethodPost, "/vehicles", map[string]interface{}{"vin": "VF1MA000012345678"})
	requireError(t, rr, http.StatusConflict, domain.ErrorTypeConflict)

	rr = api.do(http.MethodPost, "/vehicles", map[string]interface{}{"brand": "Renault", "year": 1900})
	apiErr := requireError(t, rr, http.StatusBadRequest, domain.ErrorTypeValidation)
	assert.Contains(t, apiErr.Errors, "vin")
	assert.Contains(t, apiErr.Errors, "year")

	rr = api.do(http.MethodPut, "/vehicles/"+vehicle.ID.String(), map[string]interface{}{
		"number":  "АА1234ВВ",
		"brand":   "Renault",
		"model":   "Master",
		"vin":     "VF1MA000012345678",
		"mileage": 154000,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 154000, decode[domain.VehicleDTO](t, rr).Mileage)

	rr = api.do(http.MethodGet, "/vehicles?search=renault", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, decode[domain.PaginatedResponse](t, rr).Total)

	rr = api.do(http.MethodGet, "/vehicles/"+uuid.NewString(), nil)
	requireError(t, rr, http.StatusNotFound, domain.ErrorTypeNotFound)

	rr = api.do(http.MethodDelete, "/vehicles/"+vehicle.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestVehicleHandler_LinkedByRepairContract(t *testing.T) {
	api := newTestAPI(t)
	budget := api.createBudget("2240", "10000")

	rr := api.do(http.MethodPost, "/contracts", map[string]interface{}{
		"budgetId":     budget.ID,
		"kekvId":       budget.Allocations[0].KekvID,
		"contractor":   "СТО Мотор",
		"dkCode":       "50110000-9",
		"contractType": "OPEN_BIDDING",
		"specifications": []map[string]interface{}{{
			"name": "Ремонт двигуна", "unit": "послуга", "quantity": "1", "price": "3000",
			"vehicleVin": "WDB9066331S123456", "vehicleBrand": "Mercedes",
		}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	contract := decode[domain.ContractDTO](t, rr)
	require.NotNil(t, contract.VehicleID)

	rr = api.do(http.MethodGet, "/vehicles/"+contract.VehicleID.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "WDB9066331S123456", decode[domain.VehicleDTO](t, rr).Vin)

	rr = api.do(http.MethodDelete, "/vehicles/"+contract.VehicleID.String(), nil)
	requireError(t, rr, http.StatusConflict, domain.ErrorTypeConflict)
}

func TestInventoryHandler_List(t *testing.T) {
	api := newTestAPI(t)
	budget := api.createBudget("2210", "10000")

	rr := api.do(http.MethodPost, "/contracts", map[string]interface{}{
		"budgetId":     budget.ID,
		"kekvId":       budget.Allocations[0].KekvID,
		"contractor":   "ТОВ Нафта",
		"dkCode":       "09130000-9",
		"contractType": "OPEN_BIDDING",
		"specifications": []map[string]interface{}{
			{"name": "Моторна олива 5W-40", "code": "OIL-540", "unit": "л", "quantity": "20", "price": "180", "section": "MATERIAL"},
			{"name": "Доставка", "unit": "послуга", "quantity": "1", "price": "400", "section": "SERVICE"},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = api.do(http.MethodGet, "/inventory", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	page := decode[struct {
		Data  []domain.InventoryItemDTO `json:"data"`
		Total int64                     `json:"total"`
	}](t, rr)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, "OIL-540", page.Data[0].Code)
	assert.True(t, page.Data[0].Quantity.Equal(testutil.D("20")))

	rr = api.do(http.MethodGet, "/inventory?search=нічого", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 0, decode[domain.PaginatedResponse](t, rr).Total)
}
