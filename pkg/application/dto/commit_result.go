package dto

import "github.com/vsinha/lotalloc/pkg/domain/entities"

// CommitOperation names one of the four allocation writes
type CommitOperation int

const (
	OperationSave CommitOperation = iota
	OperationSaveAndConfirm
	OperationConfirm
	OperationCancelAll
)

// String method for CommitOperation enum
func (o CommitOperation) String() string {
	switch o {
	case OperationSave:
		return "save"
	case OperationSaveAndConfirm:
		return "save_and_confirm"
	case OperationConfirm:
		return "confirm"
	case OperationCancelAll:
		return "cancel_all"
	default:
		return "unknown"
	}
}

// CommitOutcome classifies how a commit ended
type CommitOutcome int

const (
	OutcomeSucceeded CommitOutcome = iota
	// OutcomeNoOp means there was nothing to send to the server
	OutcomeNoOp
	// OutcomePartialFailure means the server rejected some of the ids
	OutcomePartialFailure
	OutcomeFailed
	// OutcomeRejected means the session refused to start the commit
	OutcomeRejected
)

// String method for CommitOutcome enum
func (o CommitOutcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeNoOp:
		return "no_op"
	case OutcomePartialFailure:
		return "partial_failure"
	case OutcomeFailed:
		return "failed"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// CommitResult is what every commit operation resolves to
type CommitResult struct {
	Operation     CommitOperation
	Outcome       CommitOutcome
	OrderLineID   entities.OrderLineID
	AllocationIDs []entities.AllocationID
	FailedIDs     []entities.AllocationID
	Message       string
	Err           error
}

// OK reports whether the server state now matches what was requested
func (r CommitResult) OK() bool {
	return r.Outcome == OutcomeSucceeded || r.Outcome == OutcomeNoOp
}
