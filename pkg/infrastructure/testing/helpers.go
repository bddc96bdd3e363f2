package testing

import (
	"time"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
	"github.com/vsinha/lotalloc/pkg/infrastructure/repositories/memory"
)

func expiry(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func lot(id entities.LotID, product entities.ProductID, number string, available int64, exp *time.Time, warehouse string) *entities.StockLot {
	return &entities.StockLot{
		ProductID: product,
		CandidateLot: entities.CandidateLot{
			LotID:             id,
			LotNumber:         number,
			AvailableQuantity: entities.NewQuantity(available),
			ExpiryDate:        exp,
			Warehouse:         warehouse,
		},
	}
}

// BuildPharmacyTestData builds a scenario with one line per allocation status:
//   - line 1 (amoxicillin, 120) is unallocated and covered by three lots
//   - line 2 (amoxicillin, 40) holds a soft allocation
//   - line 3 (saline, 10) holds a hard allocation
//   - line 4 (saline, 25) is mixed and short of stock
func BuildPharmacyTestData() *memory.AllocationRepository {
	repo := memory.NewAllocationRepository()

	lots := []*entities.StockLot{
		lot(101, 1, "AMX-2501", 50, expiry(2025, 3, 31), "MAIN"),
		lot(102, 1, "AMX-2502", 60, expiry(2025, 6, 30), "MAIN"),
		lot(103, 1, "AMX-2503", 80, expiry(2025, 9, 30), "NORTH"),
		lot(201, 2, "SAL-0001", 8, nil, "MAIN"),
		lot(202, 2, "SAL-0002", 3, expiry(2026, 1, 31), "NORTH"),
	}
	if err := repo.LoadLots(lots); err != nil {
		panic(err)
	}

	lines := []*entities.OrderLine{
		{
			ID: 1, OrderID: 1001, ProductID: 1,
			RequiredQuantity: entities.NewQuantity(120), Unit: "BOX",
		},
		{
			ID: 2, OrderID: 1001, ProductID: 1,
			RequiredQuantity: entities.NewQuantity(40), Unit: "BOX",
			Allocations: []entities.Allocation{
				{ID: 9001, LotID: 101, Quantity: entities.NewQuantity(15), Type: entities.Soft},
			},
		},
		{
			ID: 3, OrderID: 1002, ProductID: 2,
			RequiredQuantity: entities.NewQuantity(10), Unit: "BAG",
			Allocations: []entities.Allocation{
				{ID: 9002, LotID: 201, Quantity: entities.NewQuantity(10), Type: entities.Hard},
			},
		},
		{
			ID: 4, OrderID: 1002, ProductID: 2,
			RequiredQuantity: entities.NewQuantity(25), Unit: "BAG",
			Allocations: []entities.Allocation{
				{ID: 9003, LotID: 201, Quantity: entities.NewQuantity(4), Type: entities.Hard},
				{ID: 9004, LotID: 202, Quantity: entities.NewQuantity(2), Type: entities.Soft},
			},
		},
	}
	if err := repo.LoadOrderLines(lines); err != nil {
		panic(err)
	}

	return repo
}
