package allocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/lotalloc/pkg/application/dto"
	"github.com/vsinha/lotalloc/pkg/domain/entities"
	"github.com/vsinha/lotalloc/pkg/domain/repositories"
	"github.com/vsinha/lotalloc/pkg/domain/services"
	"github.com/vsinha/lotalloc/pkg/infrastructure/events"
)

const tracerName = "github.com/vsinha/lotalloc/allocation"

// CommitService issues the four allocation writes against the order service.
// Every operation resolves to a CommitResult; none returns an error or panics.
type CommitService struct {
	gateway  repositories.AllocationGateway
	locker   repositories.CommitLocker
	notifier Notifier
	eventLog events.Log
	logger   *logrus.Entry
	tracer   trace.Tracer
}

// CommitOption configures a CommitService
type CommitOption func(*CommitService)

// WithCommitLocker serializes commits per order line through locker
func WithCommitLocker(locker repositories.CommitLocker) CommitOption {
	return func(s *CommitService) { s.locker = locker }
}

// WithCommitNotifier sends user-facing notices to notifier
func WithCommitNotifier(notifier Notifier) CommitOption {
	return func(s *CommitService) { s.notifier = notifier }
}

// WithCommitEvents records commit events in eventLog
func WithCommitEvents(eventLog events.Log) CommitOption {
	return func(s *CommitService) { s.eventLog = eventLog }
}

// WithCommitLogger sets the logger
func WithCommitLogger(logger *logrus.Entry) CommitOption {
	return func(s *CommitService) { s.logger = logger }
}

// NewCommitService creates a commit service writing through gateway
func NewCommitService(gateway repositories.AllocationGateway, opts ...CommitOption) *CommitService {
	s := &CommitService{
		gateway:  gateway,
		notifier: discardNotifier{},
		logger:   logrus.NewEntry(logrus.StandardLogger()),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("module", "allocation.commit")
	return s
}

// Save submits the draft's positive entries as a replace-style batch.
// The draft is never modified here.
func (s *CommitService) Save(ctx context.Context, line entities.OrderLine, draft services.Draft) dto.CommitResult {
	return s.run(ctx, dto.OperationSave, line.ID, func(ctx context.Context) dto.CommitResult {
		return s.save(ctx, line, draft)
	})
}

// SaveAndConfirm saves the draft and confirms the allocations the save created
func (s *CommitService) SaveAndConfirm(ctx context.Context, line entities.OrderLine, draft services.Draft) dto.CommitResult {
	return s.run(ctx, dto.OperationSaveAndConfirm, line.ID, func(ctx context.Context) dto.CommitResult {
		result := s.save(ctx, line, draft)
		result.Operation = dto.OperationSaveAndConfirm
		if !result.OK() {
			return result
		}
		if len(result.AllocationIDs) == 0 {
			result.Message = "no confirmable allocations"
			return result
		}

		if err := s.gateway.ConfirmAllocations(ctx, result.AllocationIDs); err != nil {
			result.Outcome = dto.OutcomeFailed
			result.Err = fmt.Errorf("confirm saved allocations: %w", err)
			result.Message = "allocations were saved but could not be confirmed"
			return result
		}

		s.appendEvent(events.NewAllocationsConfirmedEvent(line.ID, result.AllocationIDs))
		result.Message = fmt.Sprintf("saved and confirmed %d allocation(s)", len(result.AllocationIDs))
		return result
	})
}

// Confirm promotes the line's persisted allocations from soft to hard
func (s *CommitService) Confirm(ctx context.Context, line entities.OrderLine) dto.CommitResult {
	return s.run(ctx, dto.OperationConfirm, line.ID, func(ctx context.Context) dto.CommitResult {
		result := dto.CommitResult{Operation: dto.OperationConfirm, OrderLineID: line.ID}

		ids := line.PersistedAllocationIDs()
		if len(ids) == 0 {
			result.Outcome = dto.OutcomeNoOp
			result.Err = ErrNothingToConfirm
			result.Message = "there are no saved allocations to confirm"
			return result
		}

		if err := s.gateway.ConfirmAllocations(ctx, ids); err != nil {
			result.Outcome = dto.OutcomeFailed
			result.Err = fmt.Errorf("confirm allocations: %w", err)
			result.Message = "allocations could not be confirmed"
			return result
		}

		s.appendEvent(events.NewAllocationsConfirmedEvent(line.ID, ids))
		result.Outcome = dto.OutcomeSucceeded
		result.AllocationIDs = ids
		result.Message = fmt.Sprintf("confirmed %d allocation(s)", len(ids))
		return result
	})
}

// CancelAll cancels every persisted allocation of the line, soft or hard
func (s *CommitService) CancelAll(ctx context.Context, line entities.OrderLine) dto.CommitResult {
	return s.run(ctx, dto.OperationCancelAll, line.ID, func(ctx context.Context) dto.CommitResult {
		result := dto.CommitResult{Operation: dto.OperationCancelAll, OrderLineID: line.ID}

		ids := line.PersistedAllocationIDs()
		if len(ids) == 0 {
			result.Outcome = dto.OutcomeNoOp
			result.Err = ErrNothingToCancel
			result.Message = "there are no saved allocations to cancel"
			return result
		}

		cancelResult, err := s.gateway.CancelAllocations(ctx, line.ID, ids)
		if err != nil {
			result.Outcome = dto.OutcomeFailed
			result.Err = fmt.Errorf("cancel allocations: %w", err)
			result.Message = "allocations could not be cancelled"
			return result
		}

		result.AllocationIDs = withoutIDs(ids, cancelResult.FailedIDs)
		s.appendEvent(events.NewAllocationsCancelledEvent(line.ID, result.AllocationIDs, cancelResult.FailedIDs))

		if !cancelResult.Success {
			result.Outcome = dto.OutcomePartialFailure
			result.FailedIDs = cancelResult.FailedIDs
			result.Message = fmt.Sprintf("%d allocation(s) could not be cancelled", len(cancelResult.FailedIDs))
			return result
		}

		result.Outcome = dto.OutcomeSucceeded
		result.Message = fmt.Sprintf("cancelled %d allocation(s)", len(ids))
		return result
	})
}

func (s *CommitService) save(ctx context.Context, line entities.OrderLine, draft services.Draft) dto.CommitResult {
	result := dto.CommitResult{Operation: dto.OperationSave, OrderLineID: line.ID}
	entries := positiveEntries(draft)

	ids, err := s.gateway.CreateAllocations(ctx, line.ID, entries)
	if err != nil {
		result.Outcome = dto.OutcomeFailed
		result.Err = fmt.Errorf("create allocations: %w", err)
		result.Message = "allocations could not be saved"
		return result
	}

	s.appendEvent(events.NewAllocationsSavedEvent(line.ID, entries, ids))
	result.Outcome = dto.OutcomeSucceeded
	result.AllocationIDs = ids
	result.Message = fmt.Sprintf("saved %d allocation(s)", len(ids))
	return result
}

// run wraps an operation with the commit lock, a span, logging and the user notice
func (s *CommitService) run(
	ctx context.Context,
	op dto.CommitOperation,
	lineID entities.OrderLineID,
	fn func(context.Context) dto.CommitResult,
) dto.CommitResult {
	ctx, span := s.tracer.Start(ctx, "allocation."+op.String(), trace.WithAttributes(
		attribute.Int64("order_line.id", int64(lineID)),
	))
	defer span.End()

	logger := s.logger.WithFields(logrus.Fields{
		"funcName":      op.String(),
		"order_line_id": lineID,
	})

	result := s.withLock(ctx, op, lineID, fn)
	result.Operation = op
	result.OrderLineID = lineID

	span.SetAttributes(
		attribute.String("allocation.outcome", result.Outcome.String()),
		attribute.Int("allocation.ids", len(result.AllocationIDs)),
	)
	switch result.Outcome {
	case dto.OutcomeFailed:
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Message)
		logger.WithError(result.Err).Error(result.Message)
		s.appendEvent(events.NewCommitFailedEvent(lineID, op.String(), result.Err))
	case dto.OutcomePartialFailure:
		span.SetStatus(codes.Error, result.Message)
		logger.WithField("failed_ids", result.FailedIDs).Warn(result.Message)
	default:
		logger.WithField("allocation_ids", result.AllocationIDs).Info(result.Message)
	}

	s.notifier.Notify(noticeFor(result))
	return result
}

func (s *CommitService) withLock(
	ctx context.Context,
	op dto.CommitOperation,
	lineID entities.OrderLineID,
	fn func(context.Context) dto.CommitResult,
) dto.CommitResult {
	if s.locker == nil {
		return fn(ctx)
	}

	release, err := s.locker.Obtain(ctx, lineID)
	if err != nil {
		result := dto.CommitResult{Operation: op, OrderLineID: lineID, Outcome: dto.OutcomeFailed}
		if errors.Is(err, repositories.ErrLockNotObtained) {
			result.Err = ErrCommitLocked
			result.Message = "another allocation change for this line is in progress"
		} else {
			result.Err = fmt.Errorf("obtain commit lock: %w", err)
			result.Message = "allocations could not be locked for update"
		}
		return result
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WithField("order_line_id", lineID).WithError(err).Warn("failed to release commit lock")
		}
	}()

	return fn(ctx)
}

func (s *CommitService) appendEvent(event events.Event) {
	if s.eventLog == nil {
		return
	}
	if err := s.eventLog.Append(event); err != nil {
		s.logger.WithField("event_type", event.Type()).WithError(err).Warn("failed to append event")
	}
}

func noticeFor(result dto.CommitResult) Notice {
	notice := Notice{
		OrderLineID: result.OrderLineID,
		Message:     result.Message,
		Err:         result.Err,
	}
	switch result.Outcome {
	case dto.OutcomeFailed:
		notice.Level = NoticeError
	case dto.OutcomePartialFailure:
		notice.Level = NoticeWarning
	default:
		notice.Level = NoticeInfo
	}
	return notice
}

func withoutIDs(ids, exclude []entities.AllocationID) []entities.AllocationID {
	if len(exclude) == 0 {
		return ids
	}
	skip := make(map[entities.AllocationID]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	kept := make([]entities.AllocationID, 0, len(ids))
	for _, id := range ids {
		if _, ok := skip[id]; !ok {
			kept = append(kept, id)
		}
	}
	return kept
}
