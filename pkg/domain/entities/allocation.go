package entities

import (
	"fmt"
	"strings"
)

// AllocationType represents how firmly a lot quantity is reserved for an order line
type AllocationType int

const (
	Soft AllocationType = iota
	Hard
)

// String method for AllocationType enum
func (t AllocationType) String() string {
	switch t {
	case Soft:
		return "soft"
	case Hard:
		return "hard"
	default:
		return "unknown"
	}
}

// ParseAllocationType parses the wire name of an allocation type
func ParseAllocationType(s string) (AllocationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "soft", "":
		return Soft, nil
	case "hard":
		return Hard, nil
	default:
		return Soft, fmt.Errorf("unknown allocation type %q", s)
	}
}

// Allocation is a reservation of lot quantity against an order line as last
// reported by the order service. ID is zero for rows the server has not
// assigned an identity to yet; such rows can be saved but never confirmed or
// cancelled by id.
type Allocation struct {
	ID       AllocationID
	LotID    LotID
	Quantity Quantity
	Type     AllocationType
}

// IsPersisted reports whether the allocation carries server identity
func (a Allocation) IsPersisted() bool {
	return a.ID > 0
}

// NewAllocation creates a validated Allocation
func NewAllocation(id AllocationID, lotID LotID, quantity Quantity, allocationType AllocationType) (*Allocation, error) {
	if id < 0 {
		return nil, fmt.Errorf("allocation id cannot be negative, got %d", id)
	}
	if lotID <= 0 {
		return nil, fmt.Errorf("lot id must be positive, got %d", lotID)
	}
	if quantity.IsNegative() {
		return nil, fmt.Errorf("quantity cannot be negative, got %s", quantity)
	}

	return &Allocation{
		ID:       id,
		LotID:    lotID,
		Quantity: quantity,
		Type:     allocationType,
	}, nil
}

// DraftEntry is one row of a save request: a proposed quantity for a lot.
// It has no identity until the server creates an allocation from it.
type DraftEntry struct {
	LotID    LotID    `json:"lot_id"`
	Quantity Quantity `json:"quantity"`
}

// CancelResult reports the outcome of a cancel-by-id request
type CancelResult struct {
	Success   bool
	FailedIDs []AllocationID
}
