package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/straye-as/kosthorys-api/internal/domain"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"github.com/straye-as/kosthorys-api/internal/service"
	"github.com/straye-as/kosthorys-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractService_Create_ReservesAllocation(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	budget, kekv := testutil.CreateTestBudget(t, s.db, "2240", testutil.D("500000"))

	contract, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeOpenBidding, "50110000-9",
		line("Ремонт двигуна", "1", "100000")))
	require.NoError(t, err)

	assert.True(t, contract.Amount.Equal(testutil.D("100000")))
	assert.Equal(t, domain.ContractStatusPlanned, contract.Status)
	assert.True(t, testutil.AllocationAmount(t, s.db, budget.ID, kekv.ID).Equal(testutil.D("400000")))
	require.Len(t, contract.Specifications, 1)
	assert.True(t, contract.Specifications[0].Remaining.Equal(testutil.D("1")))

	t.Run("exceeding remaining allocation is rejected without side effects", func(t *testing.T) {
		_, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeOpenBidding, "50110000-9",
			line("Капітальний ремонт", "1", "450000")))
		assert.ErrorIs(t, err, service.ErrInsufficientAllocation)
		assert.True(t, testutil.AllocationAmount(t, s.db, budget.ID, kekv.ID).Equal(testutil.D("400000")))

		var count int64
		require.NoError(t, s.db.Model(&domain.Contract{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("exact remaining allocation is accepted", func(t *testing.T) {
		_, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeOpenBidding, "50110000-9",
			line("Залишок", "4", "100000")))
		require.NoError(t, err)
		assert.True(t, testutil.AllocationAmount(t, s.db, budget.ID, kekv.ID).IsZero())
	})
}

func TestContractService_Create_AmountFromLines(t *testing.T) {
	s := newServices(t)
	budget, kekv := testutil.CreateTestBudget(t, s.db, "2240", testutil.D("100000"))

	serviced := line("Заміна масла", "2", "150.50")
	serviced.ServiceCount = 3

	contract, err := s.contracts.Create(context.Background(), contractRequest(budget, kekv, domain.ContractTypeUrgent, "50110000-9",
		serviced, line("Фільтр", "4", "0.125")))
	require.NoError(t, err)

	// 2 x 150.50 x 3 + 4 x 0.125
	assert.Equal(t, "903.50", contract.Amount.StringFixed(2))
	amounts := make(map[string]string)
	for _, spec := range contract.Specifications {
		amounts[spec.Name] = spec.Amount.StringFixed(2)
		assert.Equal(t, domain.SectionService, spec.Section)
	}
	assert.Equal(t, map[string]string{"Заміна масла": "903.00", "Фільтр": "0.50"}, amounts)
}

func TestContractService_Create_RegistryNumbers(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	budget, kekv := testutil.CreateTestBudget(t, s.db, "2240", testutil.D("100000"))
	year := time.Now().Year()

	first, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "1", line("a", "1", "10")))
	require.NoError(t, err)
	second, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "1", line("b", "1", "10")))
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("КТ-%d-0001", year), first.RegistryNumber)
	assert.Equal(t, fmt.Sprintf("КТ-%d-0002", year), second.RegistryNumber)
}

func TestContractService_DirectCeiling(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	budget, kekv := testutil.CreateTestBudget(t, s.db, "2240", testutil.D("1000000"))
	const dk = "50110000-9"

	_, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeDirect, dk, line("a", "1", "80000")))
	require.NoError(t, err)

	_, err = s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeDirect, dk, line("b", "1", "25000")))
	assert.ErrorIs(t, err, service.ErrLimitExceeded)
	assert.True(t, testutil.AllocationAmount(t, s.db, budget.ID, kekv.ID).Equal(testutil.D("920000")))

	_, err = s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeDirect, dk, line("c", "1", "15000")))
	require.NoError(t, err)

	t.Run("other DK codes and contract types are independent", func(t *testing.T) {
		_, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeDirect, "09130000-9", line("d", "1", "90000")))
		require.NoError(t, err)
		_, err = s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeOpenBidding, dk, line("e", "1", "90000")))
		require.NoError(t, err)
	})

	t.Run("direct limit report", func(t *testing.T) {
		limit, err := s.contracts.DirectLimit(ctx, dk)
		require.NoError(t, err)
		assert.Equal(t, "95000.00", limit.Used.StringFixed(2))
		assert.Equal(t, "4999.99", limit.Available.StringFixed(2))
	})
}

func TestContractService_Update_StatusTransitions(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	budget, kekv := testutil.CreateTestBudget(t, s.db, "2240", testutil.D("500000"))

	contract, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeDirect, "50110000-9", line("a", "1", "60000")))
	require.NoError(t, err)

	t.Run("activation requires number and dates", func(t *testing.T) {
		active := domain.ContractStatusActive
		_, err := s.contracts.Update(ctx, contract.ID, &domain.UpdateContractRequest{Status: &active})
		assert.ErrorIs(t, err, service.ErrActivationRequiresDetails)

		number := "17/26"
		updated, err := s.contracts.Update(ctx, contract.ID, &domain.UpdateContractRequest{
			Status:    &active,
			Number:    &number,
			StartDate: date(2026, 1, 10),
			EndDate:   date(2026, 12, 31),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ContractStatusActive, updated.Status)
		assert.Equal(t, "2026-01-10", updated.StartDate)
	})

	t.Run("end date before start date is rejected", func(t *testing.T) {
		_, err := s.contracts.Update(ctx, contract.ID, &domain.UpdateContractRequest{EndDate: date(2025, 12, 31)})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("cancel releases and reopen reserves", func(t *testing.T) {
		cancelled := domain.ContractStatusCancelled
		_, err := s.contracts.Update(ctx, contract.ID, &domain.UpdateContractRequest{Status: &cancelled})
		require.NoError(t, err)
		assert.True(t, testutil.AllocationAmount(t, s.db, budget.ID, kekv.ID).Equal(testutil.D("500000")))

		// the freed direct amount can be used by another contract
		other, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeDirect, "50110000-9", line("b", "1", "50000")))
		require.NoError(t, err)

		planned := domain.ContractStatusPlanned
		_, err = s.contracts.Update(ctx, contract.ID, &domain.UpdateContractRequest{Status: &planned})
		assert.ErrorIs(t, err, service.ErrLimitExceeded)
		assert.True(t, testutil.AllocationAmount(t, s.db, budget.ID, kekv.ID).Equal(testutil.D("450000")))

		require.NoError(t, s.contracts.Delete(ctx, other.ID))
		_, err = s.contracts.Update(ctx, contract.ID, &domain.UpdateContractRequest{Status: &planned})
		require.NoError(t, err)
		assert.True(t, testutil.AllocationAmount(t, s.db, budget.ID, kekv.ID).Equal(testutil.D("440000")))
	})
}

func TestContractService_Delete(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	budget, kekv := testutil.CreateTestBudget(t, s.db, "2240", testutil.D("500000"))

	t.Run("restores allocation", func(t *testing.T) {
		contract, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "1", line("a", "2", "50000")))
		require.NoError(t, err)
		assert.True(t, testutil.AllocationAmount(t, s.db, budget.ID, kekv.ID).Equal(testutil.D("400000")))

		require.NoError(t, s.contracts.Delete(ctx, contract.ID))
		assert.True(t, testutil.AllocationAmount(t, s.db, budget.ID, kekv.ID).Equal(testutil.D("500000")))

		_, err = s.contracts.GetByID(ctx, contract.ID)
		assert.ErrorIs(t, err, service.ErrContractNotFound)

		var specs int64
		require.NoError(t, s.db.Model(&domain.Specification{}).Where("contract_id = ?", contract.ID).Count(&specs).Error)
		assert.Zero(t, specs)
	})

	t.Run("rejected when payments exist", func(t *testing.T) {
		contract, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "1", line("a", "1", "1000")))
		require.NoError(t, err)
		_, err = s.payments.Create(ctx, contract.ID, &domain.CreatePaymentRequest{Amount: testutil.D("100"), Date: date(2026, 3, 1)})
		require.NoError(t, err)

		err = s.contracts.Delete(ctx, contract.ID)
		assert.ErrorIs(t, err, service.ErrContractHasDocuments)
	})

	t.Run("missing contract", func(t *testing.T) {
		contract, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "1", line("a", "1", "1")))
		require.NoError(t, err)
		require.NoError(t, s.contracts.Delete(ctx, contract.ID))
		assert.ErrorIs(t, s.contracts.Delete(ctx, contract.ID), service.ErrContractNotFound)
	})
}

func TestContractService_Specifications(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	budget, kekv := testutil.CreateTestBudget(t, s.db, "2240", testutil.D("10000"))

	contract, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "1", line("a", "1", "1000")))
	require.NoError(t, err)

	updated, err := s.contracts.AddSpecifications(ctx, contract.ID, &domain.AddSpecificationsRequest{
		Specifications: []domain.SpecificationRequest{line("b", "2", "500")},
	})
	require.NoError(t, err)
	assert.Equal(t, "2000.00", updated.Amount.StringFixed(2))
	assert.True(t, testutil.AllocationAmount(t, s.db, budget.ID, kekv.ID).Equal(testutil.D("8000")))

	_, err = s.contracts.AddSpecifications(ctx, contract.ID, &domain.AddSpecificationsRequest{
		Specifications: []domain.SpecificationRequest{line("c", "1", "9000")},
	})
	assert.ErrorIs(t, err, service.ErrInsufficientAllocation)

	specs, err := s.contracts.ListSpecifications(ctx, contract.ID)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	t.Run("consumed line cannot be removed", func(t *testing.T) {
		_, err := s.usage.Post(ctx, specs[0].ID, &domain.CreateUsageRequest{QuantityUsed: testutil.D("1"), Date: date(2026, 2, 1)})
		require.NoError(t, err)
		assert.ErrorIs(t, s.contracts.DeleteSpecification(ctx, specs[0].ID), service.ErrSpecificationConsumed)
	})

	t.Run("unconsumed line releases its amount", func(t *testing.T) {
		require.NoError(t, s.contracts.DeleteSpecification(ctx, specs[1].ID))
		assert.True(t, testutil.AllocationAmount(t, s.db, budget.ID, kekv.ID).Equal(testutil.D("9000")))

		got, err := s.contracts.GetByID(ctx, contract.ID)
		require.NoError(t, err)
		assert.Equal(t, "1000.00", got.Amount.StringFixed(2))
	})

	t.Run("last line cannot be removed", func(t *testing.T) {
		other, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "1", line("x", "1", "10")))
		require.NoError(t, err)
		err = s.contracts.DeleteSpecification(ctx, other.Specifications[0].ID)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestContractService_VehicleRepair_LinksVehicles(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	budget, kekv := testutil.CreateTestBudget(t, s.db, domain.KekvCodeVehicleRepair, testutil.D("100000"))

	repair := line("Ремонт ходової", "1", "5000")
	repair.VehicleVin = "WV1ZZZ7HZ8H000001"
	repair.VehicleNumber = "AA1234BB"
	repair.VehicleBrand = "Volkswagen"

	contract, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "50110000-9", repair))
	require.NoError(t, err)
	require.NotNil(t, contract.VehicleID)
	require.NotNil(t, contract.Specifications[0].VehicleID)
	assert.Equal(t, *contract.VehicleID, *contract.Specifications[0].VehicleID)

	vehicle, err := s.vehicles.GetByID(ctx, *contract.VehicleID)
	require.NoError(t, err)
	assert.Equal(t, "AA1234BB", vehicle.Number)

	again, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "50110000-9", repair))
	require.NoError(t, err)
	assert.Equal(t, *contract.VehicleID, *again.VehicleID)

	list, err := s.vehicles.List(ctx, 1, 20, "", repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)

	assert.ErrorIs(t, s.vehicles.Delete(ctx, *contract.VehicleID), service.ErrVehicleInUse)
}

func TestContractService_Materials_FillInventory(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	budget, kekv := testutil.CreateTestBudget(t, s.db, domain.KekvCodeMaterials, testutil.D("100000"))

	paper := line("Папір А4", "10", "250")
	paper.Code = "P-A4"
	paper.Unit = "пачка"
	paper.Section = domain.SectionMaterial
	delivery := line("Доставка", "1", "300")

	_, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "30190000-7", paper, delivery))
	require.NoError(t, err)

	paper.Quantity = testutil.D("5")
	paper.Price = testutil.D("260")
	_, err = s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "30190000-7", paper))
	require.NoError(t, err)

	items, err := s.inventory.List(ctx, 1, 20, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), items.Total)

	dtos := items.Data.([]domain.InventoryItemDTO)
	assert.Equal(t, "P-A4", dtos[0].Code)
	assert.Equal(t, "15", dtos[0].Quantity.String())
	assert.Equal(t, "260.00", dtos[0].Price.StringFixed(2))
	assert.Equal(t, "пачка", dtos[0].Unit)
	assert.Equal(t, domain.SectionMaterial.Label(), dtos[0].Category)
}

func TestContractService_List(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	budget, kekv := testutil.CreateTestBudget(t, s.db, "2240", testutil.D("100000"))

	_, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeDirect, "A", line("a", "1", "100")))
	require.NoError(t, err)
	_, err = s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "B", line("b", "1", "200")))
	require.NoError(t, err)

	direct := domain.ContractTypeDirect
	page, err := s.contracts.List(ctx, 1, 20, &repository.ContractFilters{ContractType: &direct}, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	all, err := s.contracts.List(ctx, 1, 20, &repository.ContractFilters{BudgetID: &budget.ID}, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
	assert.Equal(t, 1, all.TotalPages)
}

func TestContractService_CancelledContractAcceptsNoDocuments(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	budget, kekv := testutil.CreateTestBudget(t, s.db, "2240", testutil.D("1000"))

	contract, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "1", line("a", "10", "100")))
	require.NoError(t, err)
	lines, err := s.contracts.ListSpecifications(ctx, contract.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	cancelled := domain.ContractStatusCancelled
	_, err = s.contracts.Update(ctx, contract.ID, &domain.UpdateContractRequest{Status: &cancelled})
	require.NoError(t, err)
	require.True(t, testutil.AllocationAmount(t, s.db, budget.ID, kekv.ID).Equal(testutil.D("1000")))

	_, err = s.payments.Create(ctx, contract.ID, &domain.CreatePaymentRequest{Amount: testutil.D("1000"), Date: date(2026, 4, 1)})
	assert.ErrorIs(t, err, service.ErrContractNotEditable)

	_, err = s.usage.Post(ctx, lines[0].ID, &domain.CreateUsageRequest{QuantityUsed: testutil.D("10"), Date: date(2026, 4, 1)})
	assert.ErrorIs(t, err, service.ErrContractNotEditable)

	_, err = s.acts.Create(ctx, contract.ID, &domain.CreateActRequest{
		Items: []domain.ActItemRequest{{SpecificationID: lines[0].ID, Quantity: testutil.D("1")}},
	})
	assert.ErrorIs(t, err, service.ErrContractNotEditable)

	reloaded := testutil.Reload[domain.Contract](t, s.db, contract.ID)
	assert.Equal(t, domain.ContractStatusCancelled, reloaded.Status)
	assert.True(t, reloaded.UsedAmount.IsZero())
	assert.True(t, testutil.Reload[domain.Specification](t, s.db, lines[0].ID).Remaining.Equal(testutil.D("10")))
	assert.True(t, testutil.AllocationAmount(t, s.db, budget.ID, kekv.ID).Equal(testutil.D("1000")))

	t.Run("freed allocation funds exactly one new contract", func(t *testing.T) {
		_, err := s.contracts.Create(ctx, contractRequest(budget, kekv, domain.ContractTypeUrgent, "1", line("b", "1", "1000")))
		require.NoError(t, err)

		draft := domain.ContractStatusDraft
		_, err = s.contracts.Update(ctx, contract.ID, &domain.UpdateContractRequest{Status: &draft})
		assert.ErrorIs(t, err, service.ErrInsufficientAllocation)
	})
}
