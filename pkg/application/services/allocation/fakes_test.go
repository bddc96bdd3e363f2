package allocation

import (
	"context"
	"sync"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

func qty(v int64) entities.Quantity {
	return entities.NewQuantity(v)
}

type fetchCall struct {
	lineID  entities.OrderLineID
	release chan struct{}
}

// fakeSource answers from lots per line. When block is set each fetch waits
// for its release channel or for its context to end. With ignoreCancel the
// fetch waits for release only and answers even after its context ended.
type fakeSource struct {
	mu           sync.Mutex
	lots         map[entities.OrderLineID][]entities.CandidateLot
	err          error
	block        bool
	ignoreCancel bool
	calls        chan fetchCall
	invalidated  []entities.OrderLineID
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		lots:  make(map[entities.OrderLineID][]entities.CandidateLot),
		calls: make(chan fetchCall, 16),
	}
}

func (f *fakeSource) FetchCandidateLots(
	ctx context.Context,
	lineID entities.OrderLineID,
	productID entities.ProductID,
) ([]entities.CandidateLot, error) {
	f.mu.Lock()
	block, ignoreCancel, err := f.block, f.ignoreCancel, f.err
	lots := f.lots[lineID]
	f.mu.Unlock()

	if block && ignoreCancel {
		call := fetchCall{lineID: lineID, release: make(chan struct{})}
		f.calls <- call
		<-call.release
	} else if block {
		call := fetchCall{lineID: lineID, release: make(chan struct{})}
		f.calls <- call
		select {
		case <-call.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (f *fakeSource) InvalidateCandidates(ctx context.Context, lineID entities.OrderLineID, productID entities.ProductID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, lineID)
	return nil
}

// fakeGateway records every call and answers with canned results
type fakeGateway struct {
	mu sync.Mutex

	createdIDs   []entities.AllocationID
	createErr    error
	confirmErr   error
	cancelResult *entities.CancelResult
	cancelErr    error

	created   [][]entities.DraftEntry
	confirmed [][]entities.AllocationID
	cancelled [][]entities.AllocationID

	createStarted chan struct{}
	createRelease chan struct{}
}

func (g *fakeGateway) CreateAllocations(
	ctx context.Context,
	lineID entities.OrderLineID,
	entries []entities.DraftEntry,
) ([]entities.AllocationID, error) {
	if g.createStarted != nil {
		g.createStarted <- struct{}{}
		<-g.createRelease
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, entries)
	if g.createErr != nil {
		return nil, g.createErr
	}
	return g.createdIDs, nil
}

func (g *fakeGateway) ConfirmAllocations(ctx context.Context, ids []entities.AllocationID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.confirmed = append(g.confirmed, ids)
	return g.confirmErr
}

func (g *fakeGateway) CancelAllocations(
	ctx context.Context,
	lineID entities.OrderLineID,
	ids []entities.AllocationID,
) (entities.CancelResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, ids)
	if g.cancelErr != nil {
		return entities.CancelResult{}, g.cancelErr
	}
	if g.cancelResult != nil {
		return *g.cancelResult, nil
	}
	return entities.CancelResult{Success: true}, nil
}

func (g *fakeGateway) calls() (created, confirmed, cancelled int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.created), len(g.confirmed), len(g.cancelled)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *recordingNotifier) Notify(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) levels() []NoticeLevel {
	n.mu.Lock()
	defer n.mu.Unlock()
	levels := make([]NoticeLevel, len(n.notices))
	for i, notice := range n.notices {
		levels[i] = notice.Level
	}
	return levels
}

func (n *recordingNotifier) last() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return Notice{}, false
	}
	return n.notices[len(n.notices)-1], true
}

type fakeLines struct {
	line *entities.OrderLine
	err  error
}

func (f *fakeLines) GetOrderLine(ctx context.Context, id entities.OrderLineID) (*entities.OrderLine, error) {
	if f.err != nil {
		return nil, f.err
	}
	line := f.line.Clone()
	return &line, nil
}

func sampleLine(id entities.OrderLineID, required int64, allocations ...entities.Allocation) entities.OrderLine {
	return entities.OrderLine{
		ID:               id,
		OrderID:          100,
		ProductID:        7,
		RequiredQuantity: qty(required),
		Unit:             "EA",
		Allocations:      allocations,
	}
}

func sampleLots() []entities.CandidateLot {
	return []entities.CandidateLot{
		{LotID: 1, LotNumber: "L-1", AvailableQuantity: qty(4)},
		{LotID: 2, LotNumber: "L-2", AvailableQuantity: qty(10)},
	}
}
