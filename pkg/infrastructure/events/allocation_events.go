package events

import (
	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

const (
	CandidatesLoadedEvent      = "candidates.loaded"
	CandidatesFetchFailedEvent = "candidates.fetch_failed"

	DraftAutoAllocatedEvent = "draft.auto_allocated"

	AllocationsSavedEvent     = "allocations.saved"
	AllocationsConfirmedEvent = "allocations.confirmed"
	AllocationsCancelledEvent = "allocations.cancelled"
	CommitFailedEvent         = "allocations.commit_failed"
)

type CandidatesLoaded struct {
	SessionID   string               `json:"session_id"`
	OrderLineID entities.OrderLineID `json:"order_line_id"`
	LotCount    int                  `json:"lot_count"`
}

type CandidatesFetchFailed struct {
	SessionID   string               `json:"session_id"`
	OrderLineID entities.OrderLineID `json:"order_line_id"`
	Error       string               `json:"error"`
}

type DraftAutoAllocated struct {
	SessionID   string               `json:"session_id"`
	OrderLineID entities.OrderLineID `json:"order_line_id"`
	Allocated   entities.Quantity    `json:"allocated"`
	Shortfall   entities.Quantity    `json:"shortfall"`
}

type AllocationsSaved struct {
	OrderLineID   entities.OrderLineID    `json:"order_line_id"`
	Entries       []entities.DraftEntry   `json:"entries"`
	AllocationIDs []entities.AllocationID `json:"allocation_ids"`
}

type AllocationsConfirmed struct {
	OrderLineID   entities.OrderLineID    `json:"order_line_id"`
	AllocationIDs []entities.AllocationID `json:"allocation_ids"`
}

type AllocationsCancelled struct {
	OrderLineID   entities.OrderLineID    `json:"order_line_id"`
	AllocationIDs []entities.AllocationID `json:"allocation_ids"`
	FailedIDs     []entities.AllocationID `json:"failed_ids,omitempty"`
	Partial       bool                    `json:"partial"`
}

type CommitFailed struct {
	OrderLineID entities.OrderLineID `json:"order_line_id"`
	Operation   string               `json:"operation"`
	Error       string               `json:"error"`
}

func NewCandidatesLoadedEvent(sessionID string, lineID entities.OrderLineID, lotCount int) Event {
	return NewEvent(CandidatesLoadedEvent, lineID, CandidatesLoaded{
		SessionID:   sessionID,
		OrderLineID: lineID,
		LotCount:    lotCount,
	})
}

func NewCandidatesFetchFailedEvent(sessionID string, lineID entities.OrderLineID, err error) Event {
	return NewEvent(CandidatesFetchFailedEvent, lineID, CandidatesFetchFailed{
		SessionID:   sessionID,
		OrderLineID: lineID,
		Error:       err.Error(),
	})
}

func NewDraftAutoAllocatedEvent(
	sessionID string,
	lineID entities.OrderLineID,
	allocated, shortfall entities.Quantity,
) Event {
	return NewEvent(DraftAutoAllocatedEvent, lineID, DraftAutoAllocated{
		SessionID:   sessionID,
		OrderLineID: lineID,
		Allocated:   allocated,
		Shortfall:   shortfall,
	})
}

func NewAllocationsSavedEvent(
	lineID entities.OrderLineID,
	entries []entities.DraftEntry,
	ids []entities.AllocationID,
) Event {
	return NewEvent(AllocationsSavedEvent, lineID, AllocationsSaved{
		OrderLineID:   lineID,
		Entries:       entries,
		AllocationIDs: ids,
	})
}

func NewAllocationsConfirmedEvent(lineID entities.OrderLineID, ids []entities.AllocationID) Event {
	return NewEvent(AllocationsConfirmedEvent, lineID, AllocationsConfirmed{
		OrderLineID:   lineID,
		AllocationIDs: ids,
	})
}

func NewAllocationsCancelledEvent(
	lineID entities.OrderLineID,
	ids, failed []entities.AllocationID,
) Event {
	return NewEvent(AllocationsCancelledEvent, lineID, AllocationsCancelled{
		OrderLineID:   lineID,
		AllocationIDs: ids,
		FailedIDs:     failed,
		Partial:       len(failed) > 0,
	})
}

func NewCommitFailedEvent(lineID entities.OrderLineID, operation string, err error) Event {
	return NewEvent(CommitFailedEvent, lineID, CommitFailed{
		OrderLineID: lineID,
		Operation:   operation,
		Error:       err.Error(),
	})
}
