package allocation

import "errors"

var (
	ErrNoLineSelected   = errors.New("no order line selected")
	ErrStillLoading     = errors.New("candidate lots are still loading")
	ErrCommitInFlight   = errors.New("an allocation commit is already in progress")
	ErrNothingToConfirm = errors.New("order line has no persisted allocations to confirm")
	ErrNothingToCancel  = errors.New("order line has no persisted allocations to cancel")
	ErrCommitLocked     = errors.New("order line is locked by another commit")
)
