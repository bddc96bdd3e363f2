package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
	"github.com/vsinha/lotalloc/pkg/domain/repositories"
)

// AllocationRepository is an in-memory order service: it owns order lines,
// stock lots and the allocations between them
type AllocationRepository struct {
	mutex  sync.RWMutex
	lines  map[entities.OrderLineID]*entities.OrderLine
	lots   map[entities.LotID]*entities.StockLot
	nextID entities.AllocationID
}

// NewAllocationRepository creates a new in-memory allocation repository
func NewAllocationRepository() *AllocationRepository {
	return &AllocationRepository{
		lines: make(map[entities.OrderLineID]*entities.OrderLine),
		lots:  make(map[entities.LotID]*entities.StockLot),
	}
}

// Verify interface compliance
var (
	_ repositories.CandidateLotSource = (*AllocationRepository)(nil)
	_ repositories.AllocationGateway  = (*AllocationRepository)(nil)
	_ repositories.OrderLineSource    = (*AllocationRepository)(nil)
)

// LoadOrderLines loads order lines into the repository
func (r *AllocationRepository) LoadOrderLines(lines []*entities.OrderLine) error {
	for _, line := range lines {
		if err := r.SaveOrderLine(line); err != nil {
			return err
		}
	}
	return nil
}

// LoadLots loads stock lots into the repository
func (r *AllocationRepository) LoadLots(lots []*entities.StockLot) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, lot := range lots {
		if _, exists := r.lots[lot.LotID]; exists {
			return fmt.Errorf("duplicate lot id: %d", lot.LotID)
		}
		stored := *lot
		r.lots[lot.LotID] = &stored
	}
	return nil
}

// SaveOrderLine stores a copy of line, keeping allocation ids unique
func (r *AllocationRepository) SaveOrderLine(line *entities.OrderLine) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored := line.Clone()
	for _, alloc := range stored.Allocations {
		if alloc.ID > r.nextID {
			r.nextID = alloc.ID
		}
	}
	r.lines[line.ID] = &stored
	return nil
}

// GetOrderLine returns a copy of an order line
func (r *AllocationRepository) GetOrderLine(ctx context.Context, id entities.OrderLineID) (*entities.OrderLine, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	line, exists := r.lines[id]
	if !exists {
		return nil, fmt.Errorf("order line not found: %d", id)
	}
	clone := line.Clone()
	return &clone, nil
}

// GetAllOrderLines returns copies of all order lines ordered by id
func (r *AllocationRepository) GetAllOrderLines() ([]*entities.OrderLine, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	lines := make([]*entities.OrderLine, 0, len(r.lines))
	for _, line := range r.lines {
		clone := line.Clone()
		lines = append(lines, &clone)
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].ID < lines[j].ID
	})
	return lines, nil
}

// FetchCandidateLots returns the product's lots with free stock, soonest expiry first
func (r *AllocationRepository) FetchCandidateLots(
	ctx context.Context,
	orderLineID entities.OrderLineID,
	productID entities.ProductID,
) ([]entities.CandidateLot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var candidates []entities.CandidateLot
	for _, lot := range r.lots {
		if lot.ProductID == productID && lot.AvailableQuantity.IsPositive() {
			candidates = append(candidates, lot.CandidateLot)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ExpiresBefore(candidates[j])
	})
	return candidates, nil
}

// CreateAllocations releases the line's soft allocations and allocates each
// entry's excess over the line's hard quantity on that lot as a new soft
// allocation. Nothing changes when any lot lacks stock.
func (r *AllocationRepository) CreateAllocations(
	ctx context.Context,
	orderLineID entities.OrderLineID,
	entries []entities.DraftEntry,
) ([]entities.AllocationID, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	line, exists := r.lines[orderLineID]
	if !exists {
		return nil, fmt.Errorf("order line not found: %d", orderLineID)
	}

	available := make(map[entities.LotID]entities.Quantity)
	hardByLot := make(map[entities.LotID]entities.Quantity)
	var kept []entities.Allocation
	for _, alloc := range line.Allocations {
		if alloc.Type == entities.Hard {
			hardByLot[alloc.LotID] = quantityOf(hardByLot, alloc.LotID).Add(alloc.Quantity)
			kept = append(kept, alloc)
			continue
		}
		if lot, ok := r.lots[alloc.LotID]; ok {
			available[alloc.LotID] = r.availableOf(available, lot).Add(alloc.Quantity)
		}
	}

	var created []entities.Allocation
	for _, entry := range entries {
		lot, ok := r.lots[entry.LotID]
		if !ok {
			return nil, fmt.Errorf("lot not found: %d", entry.LotID)
		}
		if lot.ProductID != line.ProductID {
			return nil, fmt.Errorf("lot %d holds product %d, order line %d needs product %d",
				lot.LotID, lot.ProductID, line.ID, line.ProductID)
		}

		excess := entry.Quantity.Sub(quantityOf(hardByLot, entry.LotID))
		if !excess.IsPositive() {
			continue
		}
		free := r.availableOf(available, lot)
		if excess.GreaterThan(free) {
			return nil, fmt.Errorf("insufficient quantity on lot %s: requested %s, available %s",
				lot.LotNumber, excess, free)
		}
		available[lot.LotID] = free.Sub(excess)
		created = append(created, entities.Allocation{LotID: lot.LotID, Quantity: excess, Type: entities.Soft})
	}

	for lotID, qty := range available {
		r.lots[lotID].AvailableQuantity = qty
	}
	ids := make([]entities.AllocationID, len(created))
	for i := range created {
		r.nextID++
		created[i].ID = r.nextID
		ids[i] = r.nextID
	}
	line.Allocations = append(kept, created...)

	return ids, nil
}

// ConfirmAllocations promotes allocations to hard. Unknown ids fail the whole call.
func (r *AllocationRepository) ConfirmAllocations(ctx context.Context, ids []entities.AllocationID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	targets := make([]*entities.Allocation, 0, len(ids))
	for _, id := range ids {
		alloc := r.findAllocation(id)
		if alloc == nil {
			return fmt.Errorf("allocation not found: %d", id)
		}
		targets = append(targets, alloc)
	}
	for _, alloc := range targets {
		alloc.Type = entities.Hard
	}
	return nil
}

// CancelAllocations removes allocations from the line and returns their
// quantity to stock. Ids that do not belong to the line are reported as failed.
func (r *AllocationRepository) CancelAllocations(
	ctx context.Context,
	orderLineID entities.OrderLineID,
	ids []entities.AllocationID,
) (entities.CancelResult, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	line, exists := r.lines[orderLineID]
	if !exists {
		return entities.CancelResult{}, fmt.Errorf("order line not found: %d", orderLineID)
	}

	cancel := make(map[entities.AllocationID]struct{}, len(ids))
	for _, id := range ids {
		cancel[id] = struct{}{}
	}

	remaining := line.Allocations[:0]
	for _, alloc := range line.Allocations {
		if _, ok := cancel[alloc.ID]; !ok {
			remaining = append(remaining, alloc)
			continue
		}
		delete(cancel, alloc.ID)
		if lot, ok := r.lots[alloc.LotID]; ok {
			lot.AvailableQuantity = lot.AvailableQuantity.Add(alloc.Quantity)
		}
	}
	line.Allocations = remaining

	result := entities.CancelResult{Success: len(cancel) == 0}
	for _, id := range ids {
		if _, failed := cancel[id]; failed {
			result.FailedIDs = append(result.FailedIDs, id)
		}
	}
	return result, nil
}

// GetLot returns a copy of a stock lot
func (r *AllocationRepository) GetLot(id entities.LotID) (*entities.StockLot, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	lot, exists := r.lots[id]
	if !exists {
		return nil, fmt.Errorf("lot not found: %d", id)
	}
	clone := *lot
	return &clone, nil
}

func (r *AllocationRepository) findAllocation(id entities.AllocationID) *entities.Allocation {
	for _, line := range r.lines {
		for i := range line.Allocations {
			if line.Allocations[i].ID == id {
				return &line.Allocations[i]
			}
		}
	}
	return nil
}

func (r *AllocationRepository) availableOf(staged map[entities.LotID]entities.Quantity, lot *entities.StockLot) entities.Quantity {
	if qty, ok := staged[lot.LotID]; ok {
		return qty
	}
	return lot.AvailableQuantity
}

func quantityOf(byLot map[entities.LotID]entities.Quantity, lotID entities.LotID) entities.Quantity {
	if qty, ok := byLot[lotID]; ok {
		return qty
	}
	return entities.ZeroQuantity
}
