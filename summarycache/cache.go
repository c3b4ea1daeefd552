package summarycache

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/chatflow/types"
)

// Cache wraps a Store with single-flight semantics: at most one
// summarization is in flight per key, and concurrent callers for the
// same key await that result instead of issuing duplicate provider
// calls. This is the only mutable state the engine shares across
// invocations.
type Cache struct {
	store  Store
	group  singleflight.Group
	logger *zap.Logger
}

// New creates a cache over the given store. A nil store defaults to the
// in-memory backend.
func New(store Store, logger *zap.Logger) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:  store,
		logger: logger.With(zap.String("component", "summarycache")),
	}
}

// GetOrCompute returns the cached record for key, or runs compute
// exactly once (per in-flight key) and stores the result. The returned
// bool reports whether the record came from the cache.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (*Record, error)) (*Record, bool, error) {
	if rec, err := c.store.Get(ctx, key); err == nil {
		return rec, true, nil
	} else if !IsCacheMiss(err) {
		c.logger.Warn("cache lookup failed, computing", zap.Error(err))
	}

	hit := false
	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight lock: another goroutine may have
		// stored the record between our miss and this call.
		if rec, err := c.store.Get(ctx, key); err == nil {
			hit = true
			return rec, nil
		}

		rec, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		rec.Key = key
		if err := c.store.Put(ctx, rec); err != nil {
			c.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
		}
		return rec, nil
	})
	if err != nil {
		return nil, false, err
	}

	// A shared result means another caller's compute satisfied us: that
	// is a reuse, not a fresh provider call.
	return v.(*Record), hit || shared, nil
}

// InvalidateRange evicts every record whose message range overlaps the
// given sequence range. The conversation store calls this when messages
// are edited or deleted. Returns the number of evicted records.
func (c *Cache) InvalidateRange(ctx context.Context, r types.SeqRange) (int, error) {
	records, err := c.store.List(ctx)
	if err != nil {
		return 0, err
	}

	var keys []string
	for _, rec := range records {
		if rec.Range.Overlaps(r) {
			keys = append(keys, rec.Key)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := c.store.Delete(ctx, keys...); err != nil {
		return 0, err
	}

	c.logger.Debug("invalidated summary records",
		zap.Int("count", len(keys)),
		zap.Int64("first_seq", r.First),
		zap.Int64("last_seq", r.Last))
	return len(keys), nil
}

// Clear removes every cached record.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}
