package entities

import (
	"fmt"
	"time"
)

// CandidateLot is an inventory lot eligible to satisfy an order line.
// LotNumber, ExpiryDate and Warehouse are descriptive; sources use them to
// order candidates (soonest expiry first).
type CandidateLot struct {
	LotID             LotID
	LotNumber         string
	AvailableQuantity Quantity
	ExpiryDate        *time.Time
	Warehouse         string
}

// NewCandidateLot creates a validated CandidateLot
func NewCandidateLot(
	lotID LotID,
	lotNumber string,
	available Quantity,
	expiryDate *time.Time,
	warehouse string,
) (*CandidateLot, error) {
	if lotID <= 0 {
		return nil, fmt.Errorf("lot id must be positive, got %d", lotID)
	}
	if lotNumber == "" {
		return nil, fmt.Errorf("lot number cannot be empty")
	}
	if available.IsNegative() {
		return nil, fmt.Errorf("available quantity cannot be negative, got %s", available)
	}

	return &CandidateLot{
		LotID:             lotID,
		LotNumber:         lotNumber,
		AvailableQuantity: available,
		ExpiryDate:        expiryDate,
		Warehouse:         warehouse,
	}, nil
}

// ExpiresBefore orders lots by expiry date; lots without an expiry sort last
// and ties fall back to the lot number.
func (c CandidateLot) ExpiresBefore(other CandidateLot) bool {
	switch {
	case c.ExpiryDate == nil && other.ExpiryDate == nil:
		return c.LotNumber < other.LotNumber
	case c.ExpiryDate == nil:
		return false
	case other.ExpiryDate == nil:
		return true
	case c.ExpiryDate.Equal(*other.ExpiryDate):
		return c.LotNumber < other.LotNumber
	default:
		return c.ExpiryDate.Before(*other.ExpiryDate)
	}
}

// StockLot is a lot as held in stock, tagged with the product it contains
type StockLot struct {
	ProductID ProductID
	CandidateLot
}
