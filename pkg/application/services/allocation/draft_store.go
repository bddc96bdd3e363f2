package allocation

import (
	"sort"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
	"github.com/vsinha/lotalloc/pkg/domain/services"
)

// DraftStore holds the unsaved lot quantities for the order line being edited.
// It is not safe for concurrent use; Session serializes access to it.
type DraftStore struct {
	draft services.Draft
}

// NewDraftStore creates an empty draft store
func NewDraftStore() *DraftStore {
	return &DraftStore{draft: make(services.Draft)}
}

// Seed replaces the draft with the persisted allocations, summing rows for the same lot
func (d *DraftStore) Seed(persisted []entities.Allocation) {
	d.draft = services.DraftFromAllocations(persisted)
}

// Set overwrites the quantity proposed for a lot. Quantities are not clamped
// against availability here.
func (d *DraftStore) Set(lotID entities.LotID, quantity entities.Quantity) {
	d.draft[lotID] = quantity
}

// Get returns the quantity proposed for a lot and whether an entry exists
func (d *DraftStore) Get(lotID entities.LotID) (entities.Quantity, bool) {
	qty, ok := d.draft[lotID]
	return qty, ok
}

// Clear empties the draft
func (d *DraftStore) Clear() {
	d.draft = make(services.Draft)
}

// Replace swaps in a whole new draft
func (d *DraftStore) Replace(draft services.Draft) {
	d.draft = make(services.Draft, len(draft))
	for lotID, qty := range draft {
		d.draft[lotID] = qty
	}
}

// Prune drops entries whose quantity is zero or negative
func (d *DraftStore) Prune() {
	for lotID, qty := range d.draft {
		if !qty.IsPositive() {
			delete(d.draft, lotID)
		}
	}
}

// Total is the sum of all proposed quantities
func (d *DraftStore) Total() entities.Quantity {
	return services.SumDraft(d.draft)
}

// Draft returns a copy of the current draft
func (d *DraftStore) Draft() services.Draft {
	out := make(services.Draft, len(d.draft))
	for lotID, qty := range d.draft {
		out[lotID] = qty
	}
	return out
}

// PositiveEntries returns the entries worth saving, ordered by lot id
func (d *DraftStore) PositiveEntries() []entities.DraftEntry {
	return positiveEntries(d.draft)
}

// Len is the number of entries, including zero ones
func (d *DraftStore) Len() int {
	return len(d.draft)
}

func positiveEntries(draft services.Draft) []entities.DraftEntry {
	entries := make([]entities.DraftEntry, 0, len(draft))
	for lotID, qty := range draft {
		if qty.IsPositive() {
			entries = append(entries, entities.DraftEntry{LotID: lotID, Quantity: qty})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LotID < entries[j].LotID
	})
	return entries
}
