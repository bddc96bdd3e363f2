package allocation

import (
	"testing"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

func TestDraftStore_SeedSumsDuplicateLots(t *testing.T) {
	store := NewDraftStore()
	store.Seed([]entities.Allocation{
		{ID: 1, LotID: 3, Quantity: qty(2), Type: entities.Soft},
		{ID: 2, LotID: 3, Quantity: qty(5), Type: entities.Hard},
		{ID: 3, LotID: 4, Quantity: qty(1), Type: entities.Soft},
	})

	got, ok := store.Get(3)
	if !ok || !got.Equal(qty(7)) {
		t.Errorf("Expected lot 3 seeded with 7, got %s (present=%v)", got, ok)
	}
	if !store.Total().Equal(qty(8)) {
		t.Errorf("Expected total 8, got %s", store.Total())
	}
}

func TestDraftStore_ZeroEntriesSurviveUntilPruned(t *testing.T) {
	store := NewDraftStore()
	store.Set(1, qty(3))
	store.Set(2, entities.ZeroQuantity)

	if store.Len() != 2 {
		t.Fatalf("Expected explicit zero entry to be kept, got %d entries", store.Len())
	}
	entries := store.PositiveEntries()
	if len(entries) != 1 || entries[0].LotID != 1 {
		t.Errorf("Expected only lot 1 to be submitted, got %+v", entries)
	}

	store.Prune()
	if store.Len() != 1 {
		t.Errorf("Expected 1 entry after prune, got %d", store.Len())
	}
}

func TestDraftStore_DraftIsACopy(t *testing.T) {
	store := NewDraftStore()
	store.Set(1, qty(3))

	copied := store.Draft()
	copied[1] = qty(99)
	copied[2] = qty(1)

	if got, _ := store.Get(1); !got.Equal(qty(3)) {
		t.Errorf("Expected store to be unaffected by copy mutation, got %s", got)
	}

	replacement := map[entities.LotID]entities.Quantity{5: qty(2)}
	store.Replace(replacement)
	replacement[5] = qty(50)
	if got, _ := store.Get(5); !got.Equal(qty(2)) {
		t.Errorf("Expected replace to copy its input, got %s", got)
	}
	if _, ok := store.Get(1); ok {
		t.Error("Expected replace to drop previous entries")
	}

	store.Clear()
	if store.Len() != 0 || !store.Total().IsZero() {
		t.Errorf("Expected empty draft after clear, got %d entries", store.Len())
	}
}

func TestDraftStore_PositiveEntriesOrderedByLot(t *testing.T) {
	store := NewDraftStore()
	store.Set(9, qty(1))
	store.Set(2, qty(1))
	store.Set(5, qty(-1))
	store.Set(4, qty(1))

	entries := store.PositiveEntries()
	expected := []entities.LotID{2, 4, 9}
	if len(entries) != len(expected) {
		t.Fatalf("Expected %d entries, got %d", len(expected), len(entries))
	}
	for i, lotID := range expected {
		if entries[i].LotID != lotID {
			t.Errorf("Expected entry %d to be lot %d, got %d", i, lotID, entries[i].LotID)
		}
	}
}
