package services

import (
	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

// Draft maps a lot to the quantity proposed for it. Zero entries are
// equivalent to absence.
type Draft map[entities.LotID]entities.Quantity

// AutoAllocationPlan is the outcome of a greedy distribution
type AutoAllocationPlan struct {
	Draft     Draft
	Allocated entities.Quantity
	Shortfall entities.Quantity
}

// SumByType sums the quantities of allocations of the given type
func SumByType(allocations []entities.Allocation, allocationType entities.AllocationType) entities.Quantity {
	total := entities.ZeroQuantity
	for _, alloc := range allocations {
		if alloc.Type == allocationType {
			total = total.Add(alloc.Quantity)
		}
	}
	return total
}

// SumAllocations sums allocation quantities regardless of type
func SumAllocations(allocations []entities.Allocation) entities.Quantity {
	total := entities.ZeroQuantity
	for _, alloc := range allocations {
		total = total.Add(alloc.Quantity)
	}
	return total
}

// SumDraft sums all proposed quantities
func SumDraft(draft Draft) entities.Quantity {
	total := entities.ZeroQuantity
	for _, qty := range draft {
		total = total.Add(qty)
	}
	return total
}

// DraftFromAllocations maps each allocation's lot to its quantity, summing
// rows that share a lot
func DraftFromAllocations(allocations []entities.Allocation) Draft {
	draft := make(Draft, len(allocations))
	for _, alloc := range allocations {
		if existing, ok := draft[alloc.LotID]; ok {
			draft[alloc.LotID] = existing.Add(alloc.Quantity)
			continue
		}
		draft[alloc.LotID] = alloc.Quantity
	}
	return draft
}

// HasUnsavedChanges reports whether the draft differs from the persisted allocations.
// Totals are compared first; equal non-zero totals are then compared lot by lot
// so that quantity moved between lots still counts as a change.
func HasUnsavedChanges(draft Draft, persisted []entities.Allocation) bool {
	draftTotal := SumDraft(draft)
	persistedTotal := SumAllocations(persisted)

	if !draftTotal.Equal(persistedTotal) {
		return true
	}
	if draftTotal.IsZero() {
		return false
	}

	persistedByLot := DraftFromAllocations(persisted)
	for lotID, qty := range draft {
		if !qty.Equal(quantityOrZero(persistedByLot, lotID)) {
			return true
		}
	}
	for lotID, qty := range persistedByLot {
		if !qty.Equal(quantityOrZero(draft, lotID)) {
			return true
		}
	}
	return false
}

// AutoAllocate distributes target across candidates greedily, in the order given.
// Lots that receive nothing are omitted. Insufficient supply is not an error:
// the result simply allocates everything available.
func AutoAllocate(target entities.Quantity, candidates []entities.CandidateLot) Draft {
	return PlanAutoAllocation(target, candidates).Draft
}

// PlanAutoAllocation is AutoAllocate that also reports the unmet remainder
func PlanAutoAllocation(target entities.Quantity, candidates []entities.CandidateLot) AutoAllocationPlan {
	draft := make(Draft)
	remaining := entities.NonNegative(target)

	for _, lot := range candidates {
		if !remaining.IsPositive() {
			break
		}

		take := entities.MinQuantity(remaining, lot.AvailableQuantity)
		if !take.IsPositive() {
			continue
		}

		draft[lot.LotID] = take
		remaining = remaining.Sub(take)
	}

	return AutoAllocationPlan{
		Draft:     draft,
		Allocated: SumDraft(draft),
		Shortfall: remaining,
	}
}

func quantityOrZero(draft Draft, lotID entities.LotID) entities.Quantity {
	if qty, ok := draft[lotID]; ok {
		return qty
	}
	return entities.ZeroQuantity
}
