package services

import "github.com/vsinha/lotalloc/pkg/domain/entities"

// ClassifyAllocation derives the status badge from persisted soft and hard totals.
// It depends on nothing else: not the draft, candidates or loading state.
func ClassifyAllocation(soft, hard entities.Quantity) entities.AllocationStatus {
	switch {
	case hard.IsPositive() && soft.IsPositive():
		return entities.MixedAllocated
	case hard.IsPositive():
		return entities.HardAllocated
	case soft.IsPositive():
		return entities.SoftAllocated
	default:
		return entities.Unallocated
	}
}

// ClassifyAllocations classifies a persisted allocation list
func ClassifyAllocations(allocations []entities.Allocation) entities.AllocationStatus {
	return ClassifyAllocation(
		SumByType(allocations, entities.Soft),
		SumByType(allocations, entities.Hard),
	)
}
