package datasource

import (
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendata-inc/vendata-engine/pkg/tenant"
)

// Key identifies a physical connection target. Two descriptors with the same
// key share one handle even when they belong to different tenants; the
// tenant identity is deliberately not part of the key. Credentials used to
// build the pool are whichever descriptor constructed it first — see the
// router tests that pin this behavior.
type Key struct {
	Host     string
	Database string
	Schema   string
}

// KeyFor derives the pool key from a tenant descriptor.
func KeyFor(d *tenant.Descriptor) Key {
	return Key{
		Host:     d.Host,
		Database: d.Database,
		Schema:   d.Schema,
	}
}

// Handle is a pooled connection bound to one physical target. Its pool is
// owned by the Router; nothing else may close or resize it.
type Handle struct {
	pool *pgxpool.Pool
	key  Key

	mu       sync.Mutex
	lastUsed time.Time
}

// NewHandle wraps an externally owned pool, such as the service's default
// pool. Handles created this way are not tracked by any Router; the owner
// stays responsible for closing the pool.
func NewHandle(pool *pgxpool.Pool, key Key) *Handle {
	return &Handle{pool: pool, key: key, lastUsed: time.Now()}
}

// Pool returns the underlying pgx pool.
func (h *Handle) Pool() *pgxpool.Pool {
	return h.pool
}

// Key returns the physical target this handle is bound to.
func (h *Handle) Key() Key {
	return h.key
}

func (h *Handle) touch(now time.Time) {
	h.mu.Lock()
	h.lastUsed = now
	h.mu.Unlock()
}

func (h *Handle) idleSince(now time.Time) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return now.Sub(h.lastUsed)
}

func (h *Handle) close() {
	if h.pool != nil {
		h.pool.Close()
	}
}
