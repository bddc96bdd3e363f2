package repositories

import (
	"context"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

// AllocationGateway issues allocation writes against the order service
type AllocationGateway interface {
	// CreateAllocations replaces the line's tentative allocations with entries
	// and returns the ids of the soft allocations created
	CreateAllocations(
		ctx context.Context,
		orderLineID entities.OrderLineID,
		entries []entities.DraftEntry,
	) ([]entities.AllocationID, error)
	ConfirmAllocations(ctx context.Context, ids []entities.AllocationID) error
	CancelAllocations(
		ctx context.Context,
		orderLineID entities.OrderLineID,
		ids []entities.AllocationID,
	) (entities.CancelResult, error)
}
