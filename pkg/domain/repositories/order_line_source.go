package repositories

import (
	"context"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

// OrderLineSource provides access to order lines owned by the order service
type OrderLineSource interface {
	GetOrderLine(ctx context.Context, id entities.OrderLineID) (*entities.OrderLine, error)
}
