package services

import (
	"testing"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

func qty(v int64) entities.Quantity {
	return entities.NewQuantity(v)
}

func sampleAllocations() []entities.Allocation {
	return []entities.Allocation{
		{ID: 1, LotID: 1, Quantity: qty(10), Type: entities.Hard},
		{ID: 2, LotID: 2, Quantity: qty(5), Type: entities.Soft},
		{ID: 3, LotID: 3, Quantity: qty(3), Type: entities.Hard},
	}
}

func lots(available ...int64) []entities.CandidateLot {
	result := make([]entities.CandidateLot, 0, len(available))
	for i, avail := range available {
		result = append(result, entities.CandidateLot{
			LotID:             entities.LotID(i + 1),
			LotNumber:         "LOT",
			AvailableQuantity: qty(avail),
		})
	}
	return result
}

func assertDraft(t *testing.T, got Draft, want map[entities.LotID]int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %d draft entries, got %d (%v)", len(want), len(got), got)
	}
	for lotID, expected := range want {
		actual, ok := got[lotID]
		if !ok {
			t.Errorf("Expected lot %d in draft", lotID)
			continue
		}
		if !actual.Equal(qty(expected)) {
			t.Errorf("Expected lot %d quantity %d, got %s", lotID, expected, actual)
		}
	}
}

func TestSumByType(t *testing.T) {
	if got := SumByType(nil, entities.Hard); !got.IsZero() {
		t.Errorf("Expected 0 for nil allocations, got %s", got)
	}
	if got := SumByType([]entities.Allocation{}, entities.Hard); !got.IsZero() {
		t.Errorf("Expected 0 for empty allocations, got %s", got)
	}

	allocations := sampleAllocations()
	if got := SumByType(allocations, entities.Hard); !got.Equal(qty(13)) {
		t.Errorf("Expected hard total 13, got %s", got)
	}
	if got := SumByType(allocations, entities.Soft); !got.Equal(qty(5)) {
		t.Errorf("Expected soft total 5, got %s", got)
	}
}

func TestSumDraft(t *testing.T) {
	if got := SumDraft(Draft{1: qty(10), 2: qty(5)}); !got.Equal(qty(15)) {
		t.Errorf("Expected 15, got %s", got)
	}
	if got := SumDraft(Draft{}); !got.IsZero() {
		t.Errorf("Expected 0 for empty draft, got %s", got)
	}
}

func TestDraftFromAllocations_SumsDuplicateLots(t *testing.T) {
	draft := DraftFromAllocations([]entities.Allocation{
		{ID: 1, LotID: 1, Quantity: qty(4), Type: entities.Hard},
		{ID: 2, LotID: 1, Quantity: qty(6), Type: entities.Soft},
		{ID: 3, LotID: 2, Quantity: qty(1), Type: entities.Soft},
	})
	assertDraft(t, draft, map[entities.LotID]int64{1: 10, 2: 1})
}

func TestHasUnsavedChanges(t *testing.T) {
	tests := []struct {
		name      string
		draft     Draft
		persisted []entities.Allocation
		expected  bool
	}{
		{
			name:      "both_empty",
			draft:     Draft{},
			persisted: nil,
			expected:  false,
		},
		{
			name:      "totals_differ",
			draft:     Draft{1: qty(10)},
			persisted: []entities.Allocation{{LotID: 1, Quantity: qty(5), Type: entities.Soft}},
			expected:  true,
		},
		{
			name:      "equal_totals_redistributed",
			draft:     Draft{1: qty(10), 2: qty(0)},
			persisted: []entities.Allocation{{LotID: 2, Quantity: qty(10), Type: entities.Soft}},
			expected:  true,
		},
		{
			name:  "identical_mixed_types",
			draft: Draft{1: qty(10), 2: qty(5)},
			persisted: []entities.Allocation{
				{LotID: 1, Quantity: qty(10), Type: entities.Hard},
				{LotID: 2, Quantity: qty(5), Type: entities.Soft},
			},
			expected: false,
		},
		{
			name:      "zero_entries_against_nothing",
			draft:     Draft{1: qty(0), 2: qty(0)},
			persisted: nil,
			expected:  false,
		},
		{
			name:  "lot_only_on_persisted_side",
			draft: Draft{1: qty(10)},
			persisted: []entities.Allocation{
				{LotID: 1, Quantity: qty(6), Type: entities.Soft},
				{LotID: 3, Quantity: qty(4), Type: entities.Soft},
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasUnsavedChanges(tt.draft, tt.persisted); got != tt.expected {
				t.Errorf("HasUnsavedChanges() = %t, want %t", got, tt.expected)
			}
		})
	}
}

func TestAutoAllocate(t *testing.T) {
	tests := []struct {
		name     string
		target   int64
		expected map[entities.LotID]int64
	}{
		{"spills_into_second_lot", 12, map[entities.LotID]int64{1: 10, 2: 2}},
		{"stops_once_satisfied", 5, map[entities.LotID]int64{1: 5}},
		{"caps_at_total_availability", 20, map[entities.LotID]int64{1: 10, 2: 5}},
		{"zero_target", 0, map[entities.LotID]int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDraft(t, AutoAllocate(qty(tt.target), lots(10, 5)), tt.expected)
		})
	}
}

func TestAutoAllocate_SkipsEmptyLotsAndKeepsOrder(t *testing.T) {
	candidates := []entities.CandidateLot{
		{LotID: 9, LotNumber: "EMPTY", AvailableQuantity: qty(0)},
		{LotID: 4, LotNumber: "B", AvailableQuantity: qty(3)},
		{LotID: 2, LotNumber: "A", AvailableQuantity: qty(10)},
	}

	assertDraft(t, AutoAllocate(qty(5), candidates), map[entities.LotID]int64{4: 3, 2: 2})
}

func TestPlanAutoAllocation_ReportsShortfall(t *testing.T) {
	plan := PlanAutoAllocation(qty(20), lots(10, 5))
	if !plan.Allocated.Equal(qty(15)) {
		t.Errorf("Expected allocated 15, got %s", plan.Allocated)
	}
	if !plan.Shortfall.Equal(qty(5)) {
		t.Errorf("Expected shortfall 5, got %s", plan.Shortfall)
	}

	covered := PlanAutoAllocation(qty(12), lots(10, 5))
	if !covered.Shortfall.IsZero() {
		t.Errorf("Expected no shortfall, got %s", covered.Shortfall)
	}
}

func TestPlanAutoAllocation_FractionalQuantities(t *testing.T) {
	target, _ := entities.ParseQuantity("7.5")
	first, _ := entities.ParseQuantity("2.25")
	candidates := []entities.CandidateLot{
		{LotID: 1, LotNumber: "A", AvailableQuantity: first},
		{LotID: 2, LotNumber: "B", AvailableQuantity: qty(10)},
	}

	plan := PlanAutoAllocation(target, candidates)
	expectedSecond, _ := entities.ParseQuantity("5.25")
	if !plan.Draft[2].Equal(expectedSecond) {
		t.Errorf("Expected 5.25 from lot 2, got %s", plan.Draft[2])
	}
}
