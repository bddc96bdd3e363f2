package dto

import "github.com/vsinha/lotalloc/pkg/domain/entities"

// CreateAllocationsRequest is the body of a save request
type CreateAllocationsRequest struct {
	Allocations []entities.DraftEntry `json:"allocations"`
}

// CreateAllocationsResponse lists the ids of the soft allocations created
type CreateAllocationsResponse struct {
	AllocatedIDs []entities.AllocationID `json:"allocated_ids"`
}

// AllocationIDsRequest is the body of confirm and cancel requests
type AllocationIDsRequest struct {
	IDs []entities.AllocationID `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// CancelAllocationsResponse reports which ids could not be cancelled
type CancelAllocationsResponse struct {
	Success   bool                    `json:"success"`
	FailedIDs []entities.AllocationID `json:"failed_ids"`
}

// ToEntity converts the response to a CancelResult
func (r CancelAllocationsResponse) ToEntity() entities.CancelResult {
	return entities.CancelResult{Success: r.Success, FailedIDs: r.FailedIDs}
}
