package memory

import (
	"context"
	"testing"
	"time"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

func stockLot(id entities.LotID, product entities.ProductID, number string, available int64, expiry *time.Time) *entities.StockLot {
	return &entities.StockLot{
		ProductID: product,
		CandidateLot: entities.CandidateLot{
			LotID:             id,
			LotNumber:         number,
			AvailableQuantity: entities.NewQuantity(available),
			ExpiryDate:        expiry,
			Warehouse:         "WH1",
		},
	}
}

func date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func newTestRepository(t *testing.T, allocations ...entities.Allocation) *AllocationRepository {
	t.Helper()
	repo := NewAllocationRepository()

	lots := []*entities.StockLot{
		stockLot(1, 7, "LOT-LATE", 10, date(2025, 6, 1)),
		stockLot(2, 7, "LOT-EARLY", 5, date(2025, 3, 1)),
		stockLot(3, 7, "LOT-NOEXP", 8, nil),
		stockLot(4, 7, "LOT-EMPTY", 0, date(2025, 1, 1)),
		stockLot(5, 9, "OTHER", 20, nil),
	}
	if err := repo.LoadLots(lots); err != nil {
		t.Fatalf("Failed to load lots: %v", err)
	}

	line := &entities.OrderLine{
		ID:               1,
		OrderID:          100,
		ProductID:        7,
		RequiredQuantity: entities.NewQuantity(12),
		Unit:             "EA",
		Allocations:      allocations,
	}
	if err := repo.LoadOrderLines([]*entities.OrderLine{line}); err != nil {
		t.Fatalf("Failed to load order lines: %v", err)
	}
	return repo
}

func TestAllocationRepository_FetchCandidateLotsOrdersByExpiry(t *testing.T) {
	repo := newTestRepository(t)

	lots, err := repo.FetchCandidateLots(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("Failed to fetch candidates: %v", err)
	}

	expected := []string{"LOT-EARLY", "LOT-LATE", "LOT-NOEXP"}
	if len(lots) != len(expected) {
		t.Fatalf("Expected %d candidates, got %d", len(expected), len(lots))
	}
	for i, number := range expected {
		if lots[i].LotNumber != number {
			t.Errorf("Expected candidate %d to be %s, got %s", i, number, lots[i].LotNumber)
		}
	}
}

func TestAllocationRepository_FetchCandidateLotsHonorsCancellation(t *testing.T) {
	repo := newTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.FetchCandidateLots(ctx, 1, 7); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestAllocationRepository_CreateAllocationsReplacesSoftRows(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.CreateAllocations(ctx, 1, []entities.DraftEntry{
		{LotID: 1, Quantity: entities.NewQuantity(4)},
	})
	if err != nil {
		t.Fatalf("Failed to create allocations: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("Expected 1 id, got %v", first)
	}

	second, err := repo.CreateAllocations(ctx, 1, []entities.DraftEntry{
		{LotID: 1, Quantity: entities.NewQuantity(10)},
		{LotID: 2, Quantity: entities.NewQuantity(2)},
	})
	if err != nil {
		t.Fatalf("Failed to replace allocations: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("Expected 2 ids, got %v", second)
	}

	line, _ := repo.GetOrderLine(ctx, 1)
	if len(line.Allocations) != 2 {
		t.Fatalf("Expected previous soft row to be replaced, got %+v", line.Allocations)
	}
	lot, _ := repo.GetLot(1)
	if !lot.AvailableQuantity.IsZero() {
		t.Errorf("Expected lot 1 fully allocated, got %s", lot.AvailableQuantity)
	}
}

func TestAllocationRepository_CreateAllocationsOnlyAllocatesExcessOverHard(t *testing.T) {
	repo := newTestRepository(t, entities.Allocation{
		ID: 50, LotID: 2, Quantity: entities.NewQuantity(3), Type: entities.Hard,
	})
	ctx := context.Background()

	ids, err := repo.CreateAllocations(ctx, 1, []entities.DraftEntry{
		{LotID: 2, Quantity: entities.NewQuantity(5)},
	})
	if err != nil {
		t.Fatalf("Failed to create allocations: %v", err)
	}
	if len(ids) != 1 || ids[0] <= 50 {
		t.Fatalf("Expected one new id above 50, got %v", ids)
	}

	line, _ := repo.GetOrderLine(ctx, 1)
	if len(line.Allocations) != 2 {
		t.Fatalf("Expected hard row plus soft excess, got %+v", line.Allocations)
	}
	if !line.Allocations[1].Quantity.Equal(entities.NewQuantity(2)) {
		t.Errorf("Expected soft excess of 2, got %s", line.Allocations[1].Quantity)
	}
}

func TestAllocationRepository_CreateAllocationsIsAtomic(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.CreateAllocations(ctx, 1, []entities.DraftEntry{
		{LotID: 1, Quantity: entities.NewQuantity(2)},
		{LotID: 2, Quantity: entities.NewQuantity(6)},
	})
	if err == nil {
		t.Fatal("Expected insufficient quantity error")
	}

	lot, _ := repo.GetLot(1)
	if !lot.AvailableQuantity.Equal(entities.NewQuantity(10)) {
		t.Errorf("Expected lot 1 untouched, got %s", lot.AvailableQuantity)
	}

	if _, err := repo.CreateAllocations(ctx, 1, []entities.DraftEntry{{LotID: 5, Quantity: entities.NewQuantity(1)}}); err == nil {
		t.Error("Expected error for lot of another product")
	}
	if _, err := repo.CreateAllocations(ctx, 99, nil); err == nil {
		t.Error("Expected error for unknown order line")
	}
}

func TestAllocationRepository_ConfirmAndCancel(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	ids, err := repo.CreateAllocations(ctx, 1, []entities.DraftEntry{
		{LotID: 2, Quantity: entities.NewQuantity(5)},
		{LotID: 3, Quantity: entities.NewQuantity(4)},
	})
	if err != nil {
		t.Fatalf("Failed to create allocations: %v", err)
	}

	if err := repo.ConfirmAllocations(ctx, []entities.AllocationID{ids[0], 999}); err == nil {
		t.Error("Expected error when confirming unknown id")
	}
	if err := repo.ConfirmAllocations(ctx, ids[:1]); err != nil {
		t.Fatalf("Failed to confirm allocation: %v", err)
	}

	line, _ := repo.GetOrderLine(ctx, 1)
	if line.Allocations[0].Type != entities.Hard || line.Allocations[1].Type != entities.Soft {
		t.Errorf("Expected first allocation hard and second soft, got %+v", line.Allocations)
	}

	result, err := repo.CancelAllocations(ctx, 1, []entities.AllocationID{ids[0], ids[1], 999})
	if err != nil {
		t.Fatalf("Failed to cancel allocations: %v", err)
	}
	if result.Success || len(result.FailedIDs) != 1 || result.FailedIDs[0] != 999 {
		t.Errorf("Expected partial result failing 999, got %+v", result)
	}

	line, _ = repo.GetOrderLine(ctx, 1)
	if len(line.Allocations) != 0 {
		t.Errorf("Expected no allocations left, got %+v", line.Allocations)
	}
	lot, _ := repo.GetLot(3)
	if !lot.AvailableQuantity.Equal(entities.NewQuantity(8)) {
		t.Errorf("Expected lot 3 stock restored to 8, got %s", lot.AvailableQuantity)
	}
}

func TestAllocationRepository_GetOrderLineReturnsCopy(t *testing.T) {
	repo := newTestRepository(t, entities.Allocation{
		ID: 1, LotID: 1, Quantity: entities.NewQuantity(1), Type: entities.Soft,
	})
	ctx := context.Background()

	line, _ := repo.GetOrderLine(ctx, 1)
	line.Allocations[0].Quantity = entities.NewQuantity(99)

	again, _ := repo.GetOrderLine(ctx, 1)
	if !again.Allocations[0].Quantity.Equal(entities.NewQuantity(1)) {
		t.Errorf("Expected stored line unaffected, got %s", again.Allocations[0].Quantity)
	}

	if _, err := repo.GetOrderLine(ctx, 42); err == nil {
		t.Error("Expected error for unknown order line")
	}

	lines, _ := repo.GetAllOrderLines()
	if len(lines) != 1 {
		t.Errorf("Expected 1 order line, got %d", len(lines))
	}
}
