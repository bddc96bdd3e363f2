package repositories

import (
	"context"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

// CandidateLotSource provides the lots eligible to satisfy an order line.
// Lots are returned in allocation priority order (soonest expiry first).
type CandidateLotSource interface {
	FetchCandidateLots(
		ctx context.Context,
		orderLineID entities.OrderLineID,
		productID entities.ProductID,
	) ([]entities.CandidateLot, error)
}

// CandidateInvalidator is implemented by sources that cache candidates and
// must drop them once allocations for the line change. Implementations drop
// the entries of every line of the product, since lots are shared.
type CandidateInvalidator interface {
	InvalidateCandidates(
		ctx context.Context,
		orderLineID entities.OrderLineID,
		productID entities.ProductID,
	) error
}
