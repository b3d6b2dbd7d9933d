package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// AnalysisCache
// ─────────────────────────────────────────────────────────────────────────────

const defaultAnalysisTTL = time.Hour

// AnalysisCache caches structured documents in Redis keyed by contract ID.
// Concurrent reads of the same contract are collapsed with singleflight so a
// stampede of requests after invalidation produces a single Redis round trip.
type AnalysisCache struct {
	client     *Client
	defaultTTL time.Duration
	log        logging.Logger
	group      singleflight.Group
}

var _ contract.AnalysisCache = (*AnalysisCache)(nil)

// CacheOption customizes an AnalysisCache.
type CacheOption func(*AnalysisCache)

// WithDefaultTTL overrides the TTL used when the caller passes zero.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *AnalysisCache) { c.defaultTTL = ttl }
}

// NewAnalysisCache builds an AnalysisCache on top of client.
func NewAnalysisCache(client *Client, log logging.Logger, opts ...CacheOption) *AnalysisCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &AnalysisCache{
		client:     client,
		defaultTTL: defaultAnalysisTTL,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetStructured fetches the cached structured document for id.  A miss is
// (nil, false, nil); only transport or decode failures return an error.
func (c *AnalysisCache) GetStructured(ctx context.Context, id uuid.UUID) (*contract.StructuredDocument, bool, error) {
	if c.client.isClosed() {
		return nil, false, ErrClientClosed
	}

	key := c.key(id)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		data, err := c.client.raw().Get(ctx, key).Bytes()
		if err != nil {
			if stderrors.Is(err, redis.Nil) {
				return nil, nil
			}
			return nil, errors.Wrap(err, errors.ErrCodeCacheError, "cache get failed")
		}
		doc := &contract.StructuredDocument{}
		if err := json.Unmarshal(data, doc); err != nil {
			// A corrupt entry is a miss; drop it so the next write repairs it.
			c.log.Warn("dropping corrupt cache entry", logging.String("key", key), logging.Err(err))
			c.client.raw().Del(ctx, key)
			return nil, nil
		}
		return doc, nil
	})
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	return v.(*contract.StructuredDocument), true, nil
}

// SetStructured stores doc under the contract's key with a jittered TTL.
func (c *AnalysisCache) SetStructured(ctx context.Context, id uuid.UUID, doc *contract.StructuredDocument, ttl time.Duration) error {
	if c.client.isClosed() {
		return ErrClientClosed
	}
	if doc == nil {
		return errors.New(errors.ErrCodeCacheError, "cannot cache nil document")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "marshal structured document")
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.raw().Set(ctx, c.key(id), data, jitterTTL(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache set failed")
	}
	return nil
}

// Invalidate removes the cached document for id.  Missing keys are fine.
func (c *AnalysisCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if c.client.isClosed() {
		return ErrClientClosed
	}
	if err := c.client.raw().Del(ctx, c.key(id)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache invalidate failed")
	}
	return nil
}

func (c *AnalysisCache) key(id uuid.UUID) string {
	return c.client.Key("analysis", id.String())
}

// jitterTTL spreads expirations by ±10% so entries written together do not
// expire together.
func jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	jitter := time.Duration(rand.Int63n(int64(ttl) / 5))
	return ttl - ttl/10 + jitter
}
