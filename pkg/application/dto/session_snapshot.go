package dto

import (
	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

// AllocationTotals are the quantities derived from the draft and the persisted allocations.
// HardAllocated is min(TotalDraft, HardAllocatedDB) and SoftAllocated is the draft
// excess over the hard baseline, so a draft that merely reproduces confirmed
// quantities is not counted twice.
type AllocationTotals struct {
	Required          entities.Quantity `json:"required"`
	HardAllocatedDB   entities.Quantity `json:"hard_allocated_db"`
	SoftAllocatedDB   entities.Quantity `json:"soft_allocated_db"`
	TotalDraft        entities.Quantity `json:"total_draft"`
	HardAllocated     entities.Quantity `json:"hard_allocated"`
	SoftAllocated     entities.Quantity `json:"soft_allocated"`
	Remaining         entities.Quantity `json:"remaining"`
	OverAllocated     bool              `json:"over_allocated"`
	HasUnsavedChanges bool              `json:"has_unsaved_changes"`
	Status            string            `json:"status"`
}

// SessionSnapshot is a copy of a session's visible state
type SessionSnapshot struct {
	SessionID           string
	State               string
	Line                *entities.OrderLine
	Candidates          []entities.CandidateLot
	Draft               map[entities.LotID]entities.Quantity
	Totals              AllocationTotals
	Status              entities.AllocationStatus
	IsLoadingCandidates bool
	IsSaving            bool
}
