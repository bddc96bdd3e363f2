package allocation

import (
	"github.com/vsinha/lotalloc/pkg/application/dto"
	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

// reconcileLine applies a commit result to the last known persisted allocations
// so the line stays coherent until the server copy is reloaded.
func reconcileLine(line entities.OrderLine, entries []entities.DraftEntry, result dto.CommitResult) entities.OrderLine {
	switch result.Operation {
	case dto.OperationSave:
		if result.Outcome == dto.OutcomeSucceeded {
			line.Allocations = applySaved(line.Allocations, entries, result.AllocationIDs)
		}
	case dto.OperationSaveAndConfirm:
		saved := result.Outcome == dto.OutcomeSucceeded || len(result.AllocationIDs) > 0
		if saved {
			line.Allocations = applySaved(line.Allocations, entries, result.AllocationIDs)
		}
		if result.Outcome == dto.OutcomeSucceeded {
			line.Allocations = applyConfirmed(line.Allocations, result.AllocationIDs)
		}
	case dto.OperationConfirm:
		if result.Outcome == dto.OutcomeSucceeded {
			line.Allocations = applyConfirmed(line.Allocations, result.AllocationIDs)
		}
	case dto.OperationCancelAll:
		if result.Outcome == dto.OutcomeSucceeded || result.Outcome == dto.OutcomePartialFailure {
			line.Allocations = applyCancelled(line.Allocations, result.AllocationIDs)
		}
	}
	return line
}

// applySaved keeps hard rows and replaces soft rows with the saved excess over
// the hard quantity on each lot. New ids are attached in order when the server
// returned one per created row.
func applySaved(
	allocations []entities.Allocation,
	entries []entities.DraftEntry,
	ids []entities.AllocationID,
) []entities.Allocation {
	hardByLot := make(map[entities.LotID]entities.Quantity)
	result := make([]entities.Allocation, 0, len(allocations)+len(entries))
	for _, alloc := range allocations {
		if alloc.Type != entities.Hard {
			continue
		}
		hardByLot[alloc.LotID] = quantityOnLot(hardByLot, alloc.LotID).Add(alloc.Quantity)
		result = append(result, alloc)
	}

	var soft []entities.Allocation
	for _, entry := range entries {
		excess := entry.Quantity.Sub(quantityOnLot(hardByLot, entry.LotID))
		if !excess.IsPositive() {
			continue
		}
		soft = append(soft, entities.Allocation{LotID: entry.LotID, Quantity: excess, Type: entities.Soft})
	}
	if len(soft) == len(ids) {
		for i := range soft {
			soft[i].ID = ids[i]
		}
	}

	return append(result, soft...)
}

func applyConfirmed(allocations []entities.Allocation, ids []entities.AllocationID) []entities.Allocation {
	confirmed := idSet(ids)
	result := make([]entities.Allocation, len(allocations))
	for i, alloc := range allocations {
		if _, ok := confirmed[alloc.ID]; ok && alloc.IsPersisted() {
			alloc.Type = entities.Hard
		}
		result[i] = alloc
	}
	return result
}

func applyCancelled(allocations []entities.Allocation, cancelledIDs []entities.AllocationID) []entities.Allocation {
	cancelled := idSet(cancelledIDs)
	result := make([]entities.Allocation, 0, len(allocations))
	for _, alloc := range allocations {
		if _, ok := cancelled[alloc.ID]; ok && alloc.IsPersisted() {
			continue
		}
		result = append(result, alloc)
	}
	return result
}

func quantityOnLot(byLot map[entities.LotID]entities.Quantity, lotID entities.LotID) entities.Quantity {
	if qty, ok := byLot[lotID]; ok {
		return qty
	}
	return entities.ZeroQuantity
}

func idSet(ids []entities.AllocationID) map[entities.AllocationID]struct{} {
	set := make(map[entities.AllocationID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
