package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is how long a computed result stays fresh.
const DefaultTTL = 300 * time.Second

// ComputeFunc produces the value for a cache miss. It must be idempotent
// with respect to its arguments: two concurrent misses for the same key may
// both run it, and the last store wins.
type ComputeFunc func(ctx context.Context) (any, error)

type entry struct {
	value      any
	insertedAt time.Time
}

// ResultCache is a process-wide TTL cache for expensive computed results.
// Every key is namespaced by tenant identity, so one tenant's dashboard can
// never render another tenant's numbers. It is an injected service, not a
// package global; tests build isolated instances.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]entry

	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time // test hook
}

// New creates a ResultCache. A non-positive ttl selects DefaultTTL.
func New(ttl time.Duration, logger *zap.Logger) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// key derives the cache key from tenant identity, function identity and
// arguments. The tenant identity is part of the hash input, not an
// implementation nicety: dropping it would leak data across tenants.
func key(tenantID, functionID string, args any) string {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		// Unmarshalable args still need a stable key for this call shape.
		argsJSON = []byte(fmt.Sprintf("%#v", args))
	}

	h := sha256.New()
	h.Write([]byte(tenantID))
	h.Write([]byte{0})
	h.Write([]byte(functionID))
	h.Write([]byte{0})
	h.Write(argsJSON)
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCompute returns the cached value for (tenantID, functionID, args),
// invoking compute on a miss or when the entry has outlived the TTL. Expiry
// is checked lazily on read; there is no background sweeper. Compute errors
// are returned without poisoning the cache.
func (c *ResultCache) GetOrCompute(ctx context.Context, tenantID, functionID string, args any, compute ComputeFunc) (any, error) {
	k := key(tenantID, functionID, args)

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()

	if ok && c.now().Sub(e.insertedAt) <= c.ttl {
		return e.value, nil
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[k] = entry{value: value, insertedAt: c.now()}
	c.mu.Unlock()

	c.logger.Debug("cached computed result",
		zap.String("functionID", functionID),
		zap.Bool("refresh", ok),
	)

	return value, nil
}

// ClearAll empties the entire cache, for every tenant. This is a global
// administrative operation, not a per-tenant one.
func (c *ResultCache) ClearAll() {
	c.mu.Lock()
	cleared := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.logger.Info("result cache cleared", zap.Int("entries", cleared))
}

// Len returns the number of resident entries, including stale ones that have
// not been read since expiring.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
