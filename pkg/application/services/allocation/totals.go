package allocation

import (
	"github.com/vsinha/lotalloc/pkg/application/dto"
	"github.com/vsinha/lotalloc/pkg/domain/entities"
	"github.com/vsinha/lotalloc/pkg/domain/services"
)

// ComputeTotals derives the allocation summary for a line and its draft.
// A nil line yields zero totals.
func ComputeTotals(line *entities.OrderLine, draft services.Draft) dto.AllocationTotals {
	required := entities.ZeroQuantity
	var persisted []entities.Allocation
	if line != nil {
		required = line.RequiredQuantity
		persisted = line.Allocations
	}

	hardDB := services.SumByType(persisted, entities.Hard)
	softDB := services.SumByType(persisted, entities.Soft)
	totalDraft := services.SumDraft(draft)

	return dto.AllocationTotals{
		Required:          required,
		HardAllocatedDB:   hardDB,
		SoftAllocatedDB:   softDB,
		TotalDraft:        totalDraft,
		HardAllocated:     entities.MinQuantity(totalDraft, hardDB),
		SoftAllocated:     entities.NonNegative(totalDraft.Sub(hardDB)),
		Remaining:         entities.NonNegative(required.Sub(totalDraft)),
		OverAllocated:     totalDraft.GreaterThan(required),
		HasUnsavedChanges: services.HasUnsavedChanges(draft, persisted),
		Status:            services.ClassifyAllocation(softDB, hardDB).String(),
	}
}
