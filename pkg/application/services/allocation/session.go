package allocation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/lotalloc/pkg/application/dto"
	"github.com/vsinha/lotalloc/pkg/domain/entities"
	"github.com/vsinha/lotalloc/pkg/domain/repositories"
	"github.com/vsinha/lotalloc/pkg/domain/services"
	"github.com/vsinha/lotalloc/pkg/infrastructure/events"
)

// SessionState is the lifecycle state of an allocation session
type SessionState int

const (
	StateIdle SessionState = iota
	StateLoading
	StateReady
	StateSaving
)

// String method for SessionState enum
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	default:
		return "unknown"
	}
}

// LoadOutcome reports how a candidate fetch ended
type LoadOutcome int

const (
	LoadReady LoadOutcome = iota
	LoadFailed
	// LoadSuperseded means a newer selection replaced this one before the fetch returned
	LoadSuperseded
	// LoadSkipped means there was no line to load candidates for
	LoadSkipped
)

// String method for LoadOutcome enum
func (o LoadOutcome) String() string {
	switch o {
	case LoadReady:
		return "ready"
	case LoadFailed:
		return "failed"
	case LoadSuperseded:
		return "superseded"
	case LoadSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Session tracks one user's allocation editing for the currently selected
// order line. All methods are safe for concurrent use. The internal lock is
// never held while talking to the server or the notifier.
type Session struct {
	mu          sync.Mutex
	id          string
	state       SessionState
	line        *entities.OrderLine
	candidates  []entities.CandidateLot
	draft       *DraftStore
	generation  uint64
	cancelFetch context.CancelFunc

	source   repositories.CandidateLotSource
	commits  *CommitService
	lines    repositories.OrderLineSource
	notifier Notifier
	eventLog events.Log
	logger   *logrus.Entry
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithOrderLineSource reloads the line from lines after a successful commit
func WithOrderLineSource(lines repositories.OrderLineSource) SessionOption {
	return func(s *Session) { s.lines = lines }
}

// WithNotifier sends user-facing notices to notifier
func WithNotifier(notifier Notifier) SessionOption {
	return func(s *Session) { s.notifier = notifier }
}

// WithEventLog records session events in eventLog
func WithEventLog(eventLog events.Log) SessionOption {
	return func(s *Session) { s.eventLog = eventLog }
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Entry) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession creates an idle session reading candidates from source and
// writing through commits
func NewSession(source repositories.CandidateLotSource, commits *CommitService, opts ...SessionOption) *Session {
	s := &Session{
		id:       uuid.NewString(),
		state:    StateIdle,
		draft:    NewDraftStore(),
		source:   source,
		commits:  commits,
		notifier: discardNotifier{},
		logger:   logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithFields(logrus.Fields{
		"module":     "allocation.session",
		"session_id": s.id,
	})
	return s
}

// ID returns the session identifier attached to its events
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SelectLine makes line the current selection, seeds the draft from its
// persisted allocations and fetches its candidate lots. A response that
// arrives after a newer selection is discarded and reported as LoadSuperseded.
func (s *Session) SelectLine(ctx context.Context, line entities.OrderLine) LoadOutcome {
	return s.selectLine(ctx, line, nil)
}

// Refresh reloads the current line when a line source is configured and
// selects it again, re-seeding the draft and re-fetching candidates
func (s *Session) Refresh(ctx context.Context) LoadOutcome {
	s.mu.Lock()
	if s.line == nil {
		s.mu.Unlock()
		return LoadSkipped
	}
	line := s.line.Clone()
	generation := s.generation
	s.mu.Unlock()

	if s.lines != nil {
		fresh, err := s.lines.GetOrderLine(ctx, line.ID)
		if err != nil {
			s.logger.WithField("order_line_id", line.ID).WithError(err).Warn("failed to reload order line")
		} else {
			line = fresh.Clone()
		}
	}
	return s.selectLine(ctx, line, &generation)
}

// Deselect drops the current selection and aborts any fetch in progress
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abortFetch()
	s.generation++
	s.line = nil
	s.candidates = nil
	s.draft.Clear()
	s.state = StateIdle
}

// selectLine starts a new selection. When expected is set the selection only
// proceeds if no other selection happened since that generation.
func (s *Session) selectLine(ctx context.Context, line entities.OrderLine, expected *uint64) LoadOutcome {
	s.mu.Lock()
	if expected != nil && *expected != s.generation {
		s.mu.Unlock()
		return LoadSuperseded
	}
	s.abortFetch()
	s.generation++
	generation := s.generation
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancelFetch = cancel

	selected := line.Clone()
	s.line = &selected
	s.candidates = nil
	s.draft.Seed(selected.Allocations)
	s.state = StateLoading
	s.mu.Unlock()

	logger := s.logger.WithField("order_line_id", line.ID)
	logger.Debug("fetching candidate lots")

	lots, err := s.source.FetchCandidateLots(fetchCtx, line.ID, line.ProductID)
	cancel()

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		logger.Debug("discarding candidate lots for a superseded selection")
		return LoadSuperseded
	}
	s.cancelFetch = nil
	s.state = StateReady
	if err != nil {
		s.candidates = nil
		s.mu.Unlock()

		logger.WithError(err).Error("failed to fetch candidate lots")
		s.appendEvent(events.NewCandidatesFetchFailedEvent(s.id, line.ID, err))
		s.notifier.Notify(Notice{
			Level:       NoticeError,
			OrderLineID: line.ID,
			Message:     "candidate lots could not be loaded",
			Err:         fmt.Errorf("fetch candidate lots: %w", err),
		})
		return LoadFailed
	}
	s.candidates = append([]entities.CandidateLot(nil), lots...)
	s.mu.Unlock()

	logger.WithField("lot_count", len(lots)).Info("candidate lots loaded")
	s.appendEvent(events.NewCandidatesLoadedEvent(s.id, line.ID, len(lots)))
	return LoadReady
}

// abortFetch cancels the in-flight fetch. Callers hold s.mu.
func (s *Session) abortFetch() {
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
}

// SetAllocation overwrites the draft quantity for a lot. It reports false when
// no line is selected.
func (s *Session) SetAllocation(lotID entities.LotID, quantity entities.Quantity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.line == nil {
		return false
	}
	s.draft.Set(lotID, quantity)
	return true
}

// Clear empties the draft. It reports false when no line is selected.
func (s *Session) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.line == nil {
		return false
	}
	s.draft.Clear()
	return true
}

// AutoAllocate replaces the draft with a greedy allocation over the candidate
// lots in their listed order. It does nothing and reports false when no line
// is selected or no candidates are loaded.
func (s *Session) AutoAllocate() (services.AutoAllocationPlan, bool) {
	s.mu.Lock()
	if s.line == nil || len(s.candidates) == 0 {
		s.mu.Unlock()
		return services.AutoAllocationPlan{}, false
	}
	lineID := s.line.ID
	plan := services.PlanAutoAllocation(s.line.RequiredQuantity, s.candidates)
	s.draft.Replace(plan.Draft)
	s.mu.Unlock()

	s.appendEvent(events.NewDraftAutoAllocatedEvent(s.id, lineID, plan.Allocated, plan.Shortfall))
	if plan.Shortfall.IsPositive() {
		s.notifier.Notify(Notice{
			Level:       NoticeWarning,
			OrderLineID: lineID,
			Message:     fmt.Sprintf("candidate lots cover only %s, short by %s", plan.Allocated, plan.Shortfall),
		})
	}
	return plan, true
}

// Totals derives the allocation summary for the current line and draft
func (s *Session) Totals() dto.AllocationTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeTotals(s.line, s.draft.Draft())
}

// Snapshot returns a copy of the session's visible state
func (s *Session) Snapshot() dto.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.draft.Draft()
	snapshot := dto.SessionSnapshot{
		SessionID:           s.id,
		State:               s.state.String(),
		Candidates:          append([]entities.CandidateLot(nil), s.candidates...),
		Draft:               draft,
		Totals:              ComputeTotals(s.line, draft),
		IsLoadingCandidates: s.state == StateLoading,
		IsSaving:            s.state == StateSaving,
	}
	if s.line != nil {
		line := s.line.Clone()
		snapshot.Line = &line
		snapshot.Status = services.ClassifyAllocations(line.Allocations)
	}
	return snapshot
}

// Save persists the draft as soft allocations
func (s *Session) Save(ctx context.Context) dto.CommitResult {
	return s.commit(ctx, dto.OperationSave)
}

// SaveAndConfirm persists the draft and confirms what was saved
func (s *Session) SaveAndConfirm(ctx context.Context) dto.CommitResult {
	return s.commit(ctx, dto.OperationSaveAndConfirm)
}

// Confirm promotes the line's persisted allocations to hard
func (s *Session) Confirm(ctx context.Context) dto.CommitResult {
	return s.commit(ctx, dto.OperationConfirm)
}

// CancelAll cancels every persisted allocation and empties the draft
func (s *Session) CancelAll(ctx context.Context) dto.CommitResult {
	return s.commit(ctx, dto.OperationCancelAll)
}

func (s *Session) commit(ctx context.Context, op dto.CommitOperation) dto.CommitResult {
	s.mu.Lock()
	if rejected, ok := s.guardCommit(op); !ok {
		s.mu.Unlock()
		s.logger.WithField("operation", op.String()).WithError(rejected.Err).Debug("commit rejected")
		return rejected
	}
	line := s.line.Clone()
	draft := s.draft.Draft()
	generation := s.generation
	s.state = StateSaving
	s.mu.Unlock()

	var result dto.CommitResult
	switch op {
	case dto.OperationSave:
		result = s.commits.Save(ctx, line, draft)
	case dto.OperationSaveAndConfirm:
		result = s.commits.SaveAndConfirm(ctx, line, draft)
	case dto.OperationConfirm:
		result = s.commits.Confirm(ctx, line)
	case dto.OperationCancelAll:
		result = s.commits.CancelAll(ctx, line)
	}

	s.afterCommit(ctx, generation, line, positiveEntries(draft), result)
	return result
}

// guardCommit refuses a commit that cannot start. Callers hold s.mu.
func (s *Session) guardCommit(op dto.CommitOperation) (dto.CommitResult, bool) {
	rejected := dto.CommitResult{Operation: op, Outcome: dto.OutcomeRejected}
	switch {
	case s.line == nil:
		rejected.Err = ErrNoLineSelected
	case s.state == StateSaving:
		rejected.Err = ErrCommitInFlight
	case s.state == StateLoading:
		rejected.Err = ErrStillLoading
	default:
		return dto.CommitResult{}, true
	}
	if s.line != nil {
		rejected.OrderLineID = s.line.ID
	}
	rejected.Message = rejected.Err.Error()
	return rejected, false
}

// afterCommit folds the result into the session. Nothing is applied when the
// user selected another line while the commit was running.
func (s *Session) afterCommit(
	ctx context.Context,
	generation uint64,
	line entities.OrderLine,
	entries []entities.DraftEntry,
	result dto.CommitResult,
) {
	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		s.logger.WithField("order_line_id", line.ID).Debug("selection changed during commit, skipping reconciliation")
		return
	}

	s.state = StateReady
	reconciled := reconcileLine(line, entries, result)
	s.line = &reconciled

	switch result.Operation {
	case dto.OperationCancelAll:
		s.draft.Clear()
	case dto.OperationSave, dto.OperationSaveAndConfirm:
		if result.Outcome == dto.OutcomeSucceeded || len(result.AllocationIDs) > 0 {
			s.draft.Prune()
		}
	}
	s.mu.Unlock()

	if result.Outcome == dto.OutcomeSucceeded || result.Outcome == dto.OutcomePartialFailure {
		s.reload(ctx, generation, reconciled)
	}
}

// reload drops cached candidates, fetches the line's server copy when a line
// source is configured and reselects it so the draft is reseeded
func (s *Session) reload(ctx context.Context, generation uint64, line entities.OrderLine) {
	logger := s.logger.WithField("order_line_id", line.ID)

	if invalidator, ok := s.source.(repositories.CandidateInvalidator); ok {
		if err := invalidator.InvalidateCandidates(ctx, line.ID, line.ProductID); err != nil {
			logger.WithError(err).Warn("failed to invalidate cached candidate lots")
		}
	}

	if s.lines != nil {
		fresh, err := s.lines.GetOrderLine(ctx, line.ID)
		if err != nil {
			logger.WithError(err).Warn("failed to reload order line, keeping reconciled copy")
		} else {
			line = fresh.Clone()
		}
	}

	s.selectLine(ctx, line, &generation)
}

func (s *Session) appendEvent(event events.Event) {
	if s.eventLog == nil {
		return
	}
	if err := s.eventLog.Append(event); err != nil {
		s.logger.WithField("event_type", event.Type()).WithError(err).Warn("failed to append event")
	}
}
