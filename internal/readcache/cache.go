package readcache

import (
	"context"
	"sync"
	"time"

	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/logger"
)

// DefaultTTL bounds how often the external store's full read runs.
const DefaultTTL = 30 * time.Second

// FetchFunc loads all validated transactions from the external store.
type FetchFunc func(ctx context.Context) ([]domain.Transaction, error)

// Cache is a TTL read-through cache over the store's full-read path. It is a
// single mutex-guarded cell: the entry is replaced wholesale, never mutated
// in place. Holding the lock across the fetch keeps concurrent callers from
// issuing duplicate reads.
type Cache struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	records   []domain.Transaction
	fetchedAt time.Time
	filled    bool
}

// New creates a cache with the given TTL, defaulting to DefaultTTL when the
// value is not positive.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl, now: time.Now}
}

// Get returns the cached records while the entry is fresh and refetches
// otherwise. A failed refetch falls back to the previous entry when one
// exists, even past expiry; the failure is logged, not returned. With
// nothing cached the fetch error propagates.
func (c *Cache) Get(ctx context.Context, fetch FetchFunc) ([]domain.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filled && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.records, nil
	}

	records, err := fetch(ctx)
	if err != nil {
		if c.filled {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Msg("Record refresh failed, serving stale entry")
			return c.records, nil
		}
		return nil, err
	}

	c.records = records
	c.fetchedAt = c.now()
	c.filled = true
	return c.records, nil
}

// Invalidate zeroes the timestamp so the next Get refetches. The entry data
// survives so a failed refetch can still serve it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
