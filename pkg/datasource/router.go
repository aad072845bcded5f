package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vendata-inc/vendata-engine/pkg/apperrors"
	"github.com/vendata-inc/vendata-engine/pkg/logging"
	"github.com/vendata-inc/vendata-engine/pkg/tenant"
)

const (
	DefaultTTLMinutes      = 5
	DefaultCleanupInterval = 1 * time.Minute
	DefaultPoolMaxConns    = 10
	DefaultPoolMinConns    = 1
)

// RouterConfig holds configuration for the connection router.
type RouterConfig struct {
	TTLMinutes   int
	PoolMaxConns int32
	PoolMinConns int32
}

// Router maps connection descriptors to reusable pooled handles. Handles are
// keyed by (host, database, schema) and live across requests until evicted
// by the idle TTL or the router is closed.
type Router struct {
	mu      sync.RWMutex
	handles map[Key]*Handle

	ttl          time.Duration
	poolMaxConns int32
	poolMinConns int32
	factory      PoolFactory
	stopped      bool
	stopChan     chan struct{}
	logger       *zap.Logger
}

// NewRouter creates a connection router. A nil factory selects
// PostgresPoolFactory. Starts a background cleanup goroutine that runs until
// Close() is called.
func NewRouter(cfg RouterConfig, factory PoolFactory, logger *zap.Logger) *Router {
	if cfg.TTLMinutes <= 0 {
		cfg.TTLMinutes = DefaultTTLMinutes
	}
	if cfg.PoolMaxConns <= 0 {
		cfg.PoolMaxConns = DefaultPoolMaxConns
	}
	if cfg.PoolMinConns <= 0 {
		cfg.PoolMinConns = DefaultPoolMinConns
	}
	if factory == nil {
		factory = PostgresPoolFactory
	}

	r := &Router{
		handles:      make(map[Key]*Handle),
		ttl:          time.Duration(cfg.TTLMinutes) * time.Minute,
		poolMaxConns: cfg.PoolMaxConns,
		poolMinConns: cfg.PoolMinConns,
		factory:      factory,
		stopChan:     make(chan struct{}),
		logger:       logger,
	}

	go r.cleanupExpiredHandles()
	return r
}

// Handle returns the pooled handle for the descriptor's physical target,
// creating it on first use. A cache hit performs no I/O. Construction
// failures (unreachable host, rejected credentials) surface as
// apperrors.ErrConnection; the router does not retry construction itself.
func (r *Router) Handle(ctx context.Context, desc *tenant.Descriptor) (*Handle, error) {
	key := KeyFor(desc)

	r.mu.RLock()
	if r.stopped {
		r.mu.RUnlock()
		return nil, apperrors.ErrRouterClosed
	}
	handle, exists := r.handles[key]
	r.mu.RUnlock()

	if exists {
		handle.touch(time.Now())
		return handle, nil
	}

	return r.createHandle(ctx, key, desc)
}

// createHandle constructs the pool outside the map lock, so a slow or
// unreachable host cannot stall routing for other targets. Two concurrent
// misses for the same key may both construct; the first insert wins and the
// loser's freshly built pool is closed before anything uses it.
func (r *Router) createHandle(ctx context.Context, key Key, desc *tenant.Descriptor) (*Handle, error) {
	poolCfg := PoolConfig{
		MaxConns:    r.poolMaxConns,
		MinConns:    r.poolMinConns,
		MaxIdleTime: r.ttl,
	}

	pool, err := r.factory(ctx, desc.ConnString(), poolCfg)
	if err != nil {
		r.logger.Error("failed to create connection pool",
			zap.String("host", key.Host),
			zap.String("database", key.Database),
			zap.String("schema", key.Schema),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, fmt.Errorf("%w: %s/%s: %s", apperrors.ErrConnection, key.Host, key.Database, logging.SanitizeError(err))
	}

	candidate := &Handle{
		pool:     pool,
		key:      key,
		lastUsed: time.Now(),
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		candidate.close()
		return nil, apperrors.ErrRouterClosed
	}
	if existing, ok := r.handles[key]; ok {
		r.mu.Unlock()
		candidate.close()
		existing.touch(time.Now())
		return existing, nil
	}
	r.handles[key] = candidate
	total := len(r.handles)
	r.mu.Unlock()

	r.logger.Info("created connection pool",
		zap.String("host", key.Host),
		zap.String("database", key.Database),
		zap.String("schema", key.Schema),
		zap.Int32("maxConns", poolCfg.MaxConns),
		zap.Int("totalHandles", total),
	)

	return candidate, nil
}

// cleanupExpiredHandles runs until stopChan is closed, evicting handles that
// have been idle longer than the TTL.
func (r *Router) cleanupExpiredHandles() {
	ticker := time.NewTicker(DefaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.performCleanup()
		case <-r.stopChan:
			return
		}
	}
}

func (r *Router) performCleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}

	now := time.Now()
	removed := 0
	for key, handle := range r.handles {
		if handle.idleSince(now) > r.ttl {
			handle.close()
			delete(r.handles, key)
			removed++
			r.logger.Debug("evicted idle connection pool",
				zap.String("host", key.Host),
				zap.String("database", key.Database),
				zap.String("schema", key.Schema),
			)
		}
	}

	if removed > 0 {
		r.logger.Info("cleaned up idle connection pools",
			zap.Int("removed", removed),
			zap.Int("remaining", len(r.handles)),
		)
	}
}

// Close stops the cleanup goroutine and closes every pooled handle. Safe to
// call more than once.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return nil
	}
	r.stopped = true
	close(r.stopChan)

	for _, handle := range r.handles {
		handle.close()
	}
	r.handles = make(map[Key]*Handle)
	r.logger.Info("connection router closed")
	return nil
}

// Stats returns a snapshot of the router state. Safe to call concurrently.
func (r *Router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	stats := RouterStats{
		TotalHandles:  len(r.handles),
		TTLMinutes:    int(r.ttl.Minutes()),
		HandlesByHost: make(map[string]int),
	}

	for key, handle := range r.handles {
		stats.HandlesByHost[key.Host]++
		idle := int(handle.idleSince(now).Seconds())
		if idle > stats.OldestIdleSeconds {
			stats.OldestIdleSeconds = idle
		}
	}

	return stats
}

// RouterStats describes the router's pooled handles.
type RouterStats struct {
	TotalHandles      int            `json:"total_handles"`
	TTLMinutes        int            `json:"ttl_minutes"`
	HandlesByHost     map[string]int `json:"handles_by_host"`
	OldestIdleSeconds int            `json:"oldest_idle_seconds"`
}
