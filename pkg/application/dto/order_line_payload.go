package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

// AllocationPayload is an allocation row as sent by the order service.
// Older endpoints send the quantity as "quantity" instead of "allocated_quantity".
type AllocationPayload struct {
	ID                int64            `json:"id,omitempty" validate:"gte=0"`
	LotID             int64            `json:"lot_id" validate:"required,gt=0"`
	AllocatedQuantity *decimal.Decimal `json:"allocated_quantity,omitempty"`
	Quantity          *decimal.Decimal `json:"quantity,omitempty"`
	AllocationType    string           `json:"allocation_type,omitempty" validate:"omitempty,oneof=soft hard SOFT HARD"`
}

// OrderLinePayload is an order line as sent by the order service. The required
// quantity may arrive as required_quantity, order_quantity or quantity, and the
// allocations as allocations or allocated_lots.
type OrderLinePayload struct {
	ID               int64               `json:"id" validate:"required,gt=0"`
	OrderID          int64               `json:"order_id" validate:"gte=0"`
	ProductID        int64               `json:"product_id" validate:"required,gt=0"`
	RequiredQuantity *decimal.Decimal    `json:"required_quantity,omitempty"`
	OrderQuantity    *decimal.Decimal    `json:"order_quantity,omitempty"`
	Quantity         *decimal.Decimal    `json:"quantity,omitempty"`
	Unit             string              `json:"unit,omitempty"`
	Allocations      []AllocationPayload `json:"allocations,omitempty" validate:"dive"`
	AllocatedLots    []AllocationPayload `json:"allocated_lots,omitempty" validate:"dive"`
}

// CandidateLotPayload is a candidate lot as sent by the order service
type CandidateLotPayload struct {
	LotID             int64           `json:"lot_id" validate:"required,gt=0"`
	LotNumber         string          `json:"lot_number" validate:"required"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	ExpiryDate        string          `json:"expiry_date,omitempty"`
	Warehouse         string          `json:"warehouse,omitempty"`
}

// ToEntity resolves the legacy aliases and builds a validated allocation
func (p AllocationPayload) ToEntity() (*entities.Allocation, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	quantity := entities.ZeroQuantity
	switch {
	case p.AllocatedQuantity != nil:
		quantity = *p.AllocatedQuantity
	case p.Quantity != nil:
		quantity = *p.Quantity
	}

	allocationType, err := entities.ParseAllocationType(p.AllocationType)
	if err != nil {
		return nil, err
	}

	return entities.NewAllocation(
		entities.AllocationID(p.ID),
		entities.LotID(p.LotID),
		quantity,
		allocationType,
	)
}

// ToEntity resolves the legacy aliases and builds a validated order line
func (p OrderLinePayload) ToEntity() (*entities.OrderLine, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	required := entities.ZeroQuantity
	switch {
	case p.RequiredQuantity != nil:
		required = *p.RequiredQuantity
	case p.OrderQuantity != nil:
		required = *p.OrderQuantity
	case p.Quantity != nil:
		required = *p.Quantity
	}

	rows := p.Allocations
	if rows == nil {
		rows = p.AllocatedLots
	}

	allocations := make([]entities.Allocation, 0, len(rows))
	for i, row := range rows {
		alloc, err := row.ToEntity()
		if err != nil {
			return nil, fmt.Errorf("allocation %d of order line %d: %w", i, p.ID, err)
		}
		allocations = append(allocations, *alloc)
	}

	return entities.NewOrderLine(
		entities.OrderLineID(p.ID),
		entities.OrderID(p.OrderID),
		entities.ProductID(p.ProductID),
		required,
		p.Unit,
		allocations,
	)
}

// NewOrderLinePayload renders an order line in the canonical wire shape
func NewOrderLinePayload(line entities.OrderLine) OrderLinePayload {
	required := line.RequiredQuantity
	payload := OrderLinePayload{
		ID:               int64(line.ID),
		OrderID:          int64(line.OrderID),
		ProductID:        int64(line.ProductID),
		RequiredQuantity: &required,
		Unit:             line.Unit,
		Allocations:      make([]AllocationPayload, 0, len(line.Allocations)),
	}
	for _, alloc := range line.Allocations {
		allocated := alloc.Quantity
		payload.Allocations = append(payload.Allocations, AllocationPayload{
			ID:                int64(alloc.ID),
			LotID:             int64(alloc.LotID),
			AllocatedQuantity: &allocated,
			AllocationType:    alloc.Type.String(),
		})
	}
	return payload
}

// ToEntity builds a validated candidate lot. Expiry dates are accepted as
// plain dates or RFC 3339 timestamps.
func (p CandidateLotPayload) ToEntity() (*entities.CandidateLot, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	var expiry *time.Time
	if strings.TrimSpace(p.ExpiryDate) != "" {
		parsed, err := ParseExpiryDate(p.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("lot %d: %w", p.LotID, err)
		}
		expiry = &parsed
	}

	return entities.NewCandidateLot(
		entities.LotID(p.LotID),
		p.LotNumber,
		p.AvailableQuantity,
		expiry,
		p.Warehouse,
	)
}

// NewCandidateLotPayload renders a candidate lot in the wire shape
func NewCandidateLotPayload(lot entities.CandidateLot) CandidateLotPayload {
	payload := CandidateLotPayload{
		LotID:             int64(lot.LotID),
		LotNumber:         lot.LotNumber,
		AvailableQuantity: lot.AvailableQuantity,
		Warehouse:         lot.Warehouse,
	}
	if lot.ExpiryDate != nil {
		payload.ExpiryDate = lot.ExpiryDate.Format(time.DateOnly)
	}
	return payload
}

// ParseExpiryDate parses a lot expiry date
func ParseExpiryDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse(time.DateOnly, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry date %q", value)
	}
	return parsed, nil
}
