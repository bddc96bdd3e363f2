package repositories

import (
	"context"
	"errors"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

// ErrLockNotObtained is returned by a CommitLocker when another holder owns the lock
var ErrLockNotObtained = errors.New("commit lock not obtained")

// CommitLocker serializes allocation commits for one order line across processes
type CommitLocker interface {
	// Obtain acquires the lock for the line and returns a function releasing it
	Obtain(ctx context.Context, orderLineID entities.OrderLineID) (func(context.Context) error, error)
}
