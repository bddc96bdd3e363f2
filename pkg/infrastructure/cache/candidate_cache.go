package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/lotalloc/pkg/application/dto"
	"github.com/vsinha/lotalloc/pkg/domain/entities"
	"github.com/vsinha/lotalloc/pkg/domain/repositories"
)

const (
	keyPrefix = "lotalloc:candidates"
	scanBatch = 100
)

// CandidateCache keeps candidate lots in Redis in front of another source.
// Redis errors are logged and the wrapped source is used instead.
type CandidateCache struct {
	source repositories.CandidateLotSource
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *logrus.Entry
}

// Verify interface compliance
var (
	_ repositories.CandidateLotSource   = (*CandidateCache)(nil)
	_ repositories.CandidateInvalidator = (*CandidateCache)(nil)
)

// NewCandidateCache wraps source with a Redis cache whose entries live for ttl
func NewCandidateCache(
	source repositories.CandidateLotSource,
	rdb redis.Cmdable,
	ttl time.Duration,
	logger *logrus.Entry,
) *CandidateCache {
	return &CandidateCache{
		source: source,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.WithField("module", "cache.candidates"),
	}
}

// CandidateKey is the Redis key holding the candidates of a line
func CandidateKey(orderLineID entities.OrderLineID, productID entities.ProductID) string {
	return fmt.Sprintf("%s:%d:%d", keyPrefix, orderLineID, productID)
}

func (c *CandidateCache) FetchCandidateLots(
	ctx context.Context,
	orderLineID entities.OrderLineID,
	productID entities.ProductID,
) ([]entities.CandidateLot, error) {
	key := CandidateKey(orderLineID, productID)
	logger := c.logger.WithField("key", key)

	lots, found, err := c.get(ctx, key)
	if err != nil {
		logger.WithError(err).Warn("failed to read cached candidate lots")
	}
	if found {
		return lots, nil
	}

	lots, err = c.source.FetchCandidateLots(ctx, orderLineID, productID)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, key, lots); err != nil {
		logger.WithError(err).Warn("failed to cache candidate lots")
	}
	return lots, nil
}

// InvalidateCandidates drops the cached candidates of every line of the
// product. Lot availability is shared across lines, so a commit on one line
// makes the other lines' entries stale too.
func (c *CandidateCache) InvalidateCandidates(
	ctx context.Context,
	orderLineID entities.OrderLineID,
	productID entities.ProductID,
) error {
	keys := []string{CandidateKey(orderLineID, productID)}
	iter := c.rdb.Scan(ctx, 0, productPattern(productID), scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan candidate lots: %w", err)
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate candidate lots: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"keys":       len(keys),
	}).Debug("invalidated cached candidate lots")
	return nil
}

func productPattern(productID entities.ProductID) string {
	return fmt.Sprintf("%s:*:%d", keyPrefix, productID)
}

func (c *CandidateCache) get(ctx context.Context, key string) ([]entities.CandidateLot, bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var payloads []dto.CandidateLotPayload
	if err := json.Unmarshal(val, &payloads); err != nil {
		return nil, false, fmt.Errorf("decode cached candidate lots: %w", err)
	}
	lots := make([]entities.CandidateLot, 0, len(payloads))
	for _, payload := range payloads {
		lot, err := payload.ToEntity()
		if err != nil {
			return nil, false, fmt.Errorf("decode cached candidate lots: %w", err)
		}
		lots = append(lots, *lot)
	}
	return lots, true, nil
}

func (c *CandidateCache) set(ctx context.Context, key string, lots []entities.CandidateLot) error {
	payloads := make([]dto.CandidateLotPayload, len(lots))
	for i, lot := range lots {
		payloads[i] = dto.NewCandidateLotPayload(lot)
	}
	data, err := json.Marshal(payloads)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}
