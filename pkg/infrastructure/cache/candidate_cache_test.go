package cache

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
	"github.com/vsinha/lotalloc/pkg/infrastructure/repositories/memory"
)

type countingSource struct {
	calls int
	lots  []entities.CandidateLot
	err   error
}

func (s *countingSource) FetchCandidateLots(
	ctx context.Context,
	orderLineID entities.OrderLineID,
	productID entities.ProductID,
) ([]entities.CandidateLot, error) {
	s.calls++
	return s.lots, s.err
}

func newTestCache(t *testing.T, source *countingSource) (*CandidateCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewCandidateCache(source, rdb, time.Minute, logrus.NewEntry(logger)), mr
}

func testLots() []entities.CandidateLot {
	expiry := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return []entities.CandidateLot{
		{LotID: 1, LotNumber: "A", AvailableQuantity: entities.NewQuantity(5), ExpiryDate: &expiry, Warehouse: "WH1"},
		{LotID: 2, LotNumber: "B", AvailableQuantity: entities.NewQuantity(3)},
	}
}

func TestCandidateCache_ServesSecondFetchFromRedis(t *testing.T) {
	source := &countingSource{lots: testLots()}
	cache, mr := newTestCache(t, source)
	ctx := context.Background()

	first, err := cache.FetchCandidateLots(ctx, 1, 7)
	require.NoError(t, err)
	second, err := cache.FetchCandidateLots(ctx, 1, 7)
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].LotNumber, second[0].LotNumber)
	assert.True(t, second[0].AvailableQuantity.Equal(entities.NewQuantity(5)))
	require.NotNil(t, second[0].ExpiryDate)
	assert.Nil(t, second[1].ExpiryDate)

	assert.True(t, mr.Exists(CandidateKey(1, 7)))
	assert.Equal(t, time.Minute, mr.TTL(CandidateKey(1, 7)))
}

func TestCandidateCache_InvalidateForcesRefetch(t *testing.T) {
	source := &countingSource{lots: testLots()}
	cache, mr := newTestCache(t, source)
	ctx := context.Background()

	_, err := cache.FetchCandidateLots(ctx, 1, 7)
	require.NoError(t, err)
	require.NoError(t, cache.InvalidateCandidates(ctx, 1, 7))
	assert.False(t, mr.Exists(CandidateKey(1, 7)))

	_, err = cache.FetchCandidateLots(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestCandidateCache_InvalidateDropsEveryLineOfTheProduct(t *testing.T) {
	source := &countingSource{lots: testLots()}
	cache, mr := newTestCache(t, source)
	ctx := context.Background()

	for _, lineID := range []entities.OrderLineID{1, 2, 3} {
		_, err := cache.FetchCandidateLots(ctx, lineID, 7)
		require.NoError(t, err)
	}
	_, err := cache.FetchCandidateLots(ctx, 4, 17)
	require.NoError(t, err)

	require.NoError(t, cache.InvalidateCandidates(ctx, 1, 7))

	assert.False(t, mr.Exists(CandidateKey(1, 7)))
	assert.False(t, mr.Exists(CandidateKey(2, 7)))
	assert.False(t, mr.Exists(CandidateKey(3, 7)))
	assert.True(t, mr.Exists(CandidateKey(4, 17)), "other products keep their entries")
}

func TestCandidateCache_CommitOnOneLineRefreshesSiblingLine(t *testing.T) {
	repo := memory.NewAllocationRepository()
	require.NoError(t, repo.LoadLots([]*entities.StockLot{{
		ProductID: 7,
		CandidateLot: entities.CandidateLot{
			LotID:             1,
			LotNumber:         "L1",
			AvailableQuantity: entities.NewQuantity(10),
		},
	}}))
	require.NoError(t, repo.LoadOrderLines([]*entities.OrderLine{
		{ID: 1, OrderID: 100, ProductID: 7, RequiredQuantity: entities.NewQuantity(10), Unit: "EA"},
		{ID: 2, OrderID: 100, ProductID: 7, RequiredQuantity: entities.NewQuantity(10), Unit: "EA"},
	}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cache := NewCandidateCache(repo, rdb, time.Minute, logrus.NewEntry(logger))
	ctx := context.Background()

	warm, err := cache.FetchCandidateLots(ctx, 2, 7)
	require.NoError(t, err)
	require.Len(t, warm, 1)

	_, err = repo.CreateAllocations(ctx, 1, []entities.DraftEntry{{LotID: 1, Quantity: entities.NewQuantity(10)}})
	require.NoError(t, err)
	require.NoError(t, cache.InvalidateCandidates(ctx, 1, 7))

	lots, err := cache.FetchCandidateLots(ctx, 2, 7)
	require.NoError(t, err)
	assert.Empty(t, lots, "line 2 must not see the stock line 1 consumed")

	lot, err := repo.GetLot(1)
	require.NoError(t, err)
	assert.True(t, lot.AvailableQuantity.IsZero())
}

func TestCandidateCache_ExpiredEntryIsRefetched(t *testing.T) {
	source := &countingSource{lots: testLots()}
	cache, mr := newTestCache(t, source)
	ctx := context.Background()

	_, _ = cache.FetchCandidateLots(ctx, 1, 7)
	mr.FastForward(2 * time.Minute)
	_, _ = cache.FetchCandidateLots(ctx, 1, 7)

	assert.Equal(t, 2, source.calls)
}

func TestCandidateCache_SourceErrorIsNotCached(t *testing.T) {
	source := &countingSource{err: errors.New("unavailable")}
	cache, mr := newTestCache(t, source)

	_, err := cache.FetchCandidateLots(context.Background(), 1, 7)
	assert.Error(t, err)
	assert.False(t, mr.Exists(CandidateKey(1, 7)))
}

func TestCandidateCache_FallsBackWhenRedisIsDown(t *testing.T) {
	source := &countingSource{lots: testLots()}
	cache, mr := newTestCache(t, source)
	mr.Close()

	lots, err := cache.FetchCandidateLots(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Len(t, lots, 2)
	assert.Equal(t, 1, source.calls)
}

func TestCandidateCache_CorruptEntryFallsBack(t *testing.T) {
	source := &countingSource{lots: testLots()}
	cache, mr := newTestCache(t, source)
	require.NoError(t, mr.Set(CandidateKey(1, 7), "not json"))

	lots, err := cache.FetchCandidateLots(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Len(t, lots, 2)
	assert.Equal(t, 1, source.calls)
}
