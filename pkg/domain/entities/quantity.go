package entities

import "github.com/shopspring/decimal"

// Quantity is an exact decimal quantity in the order line's unit of measure
type Quantity = decimal.Decimal

// OrderLineID identifies an order line on the order service
type OrderLineID int64

// OrderID identifies the order an order line belongs to
type OrderID int64

// ProductID identifies the product demanded by an order line
type ProductID int64

// LotID identifies an inventory lot
type LotID int64

// AllocationID is the server-assigned identity of a persisted allocation
type AllocationID int64

// ZeroQuantity is the additive identity for quantities
var ZeroQuantity = decimal.Zero

// NewQuantity builds a quantity from an integer
func NewQuantity(v int64) Quantity {
	return decimal.NewFromInt(v)
}

// ParseQuantity parses a decimal string such as "12.5"
func ParseQuantity(s string) (Quantity, error) {
	return decimal.NewFromString(s)
}

// MinQuantity returns the smaller of a and b
func MinQuantity(a, b Quantity) Quantity {
	if a.LessThan(b) {
		return a
	}
	return b
}

// NonNegative clamps q at zero
func NonNegative(q Quantity) Quantity {
	if q.IsNegative() {
		return ZeroQuantity
	}
	return q
}
