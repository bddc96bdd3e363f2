package entities

import "fmt"

// OrderLine is the demand side of an allocation: a product and quantity on
// an order, together with the allocations the server last reported for it.
type OrderLine struct {
	ID               OrderLineID
	OrderID          OrderID
	ProductID        ProductID
	RequiredQuantity Quantity
	Unit             string
	Allocations      []Allocation
}

// NewOrderLine creates a validated OrderLine
func NewOrderLine(
	id OrderLineID,
	orderID OrderID,
	productID ProductID,
	requiredQuantity Quantity,
	unit string,
	allocations []Allocation,
) (*OrderLine, error) {
	if id <= 0 {
		return nil, fmt.Errorf("order line id must be positive, got %d", id)
	}
	if productID <= 0 {
		return nil, fmt.Errorf("product id must be positive, got %d", productID)
	}
	if requiredQuantity.IsNegative() {
		return nil, fmt.Errorf("required quantity cannot be negative, got %s", requiredQuantity)
	}

	return &OrderLine{
		ID:               id,
		OrderID:          orderID,
		ProductID:        productID,
		RequiredQuantity: requiredQuantity,
		Unit:             unit,
		Allocations:      allocations,
	}, nil
}

// PersistedAllocationIDs returns the ids of allocations that have server identity,
// in the order they were reported
func (l OrderLine) PersistedAllocationIDs() []AllocationID {
	var ids []AllocationID
	for _, alloc := range l.Allocations {
		if alloc.IsPersisted() {
			ids = append(ids, alloc.ID)
		}
	}
	return ids
}

// Clone returns a copy of the line whose allocation slice can be mutated freely
func (l OrderLine) Clone() OrderLine {
	clone := l
	if l.Allocations != nil {
		clone.Allocations = make([]Allocation, len(l.Allocations))
		copy(clone.Allocations, l.Allocations)
	}
	return clone
}
