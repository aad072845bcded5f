package datasource

import (
	"context"
	"sync/atomic"

	"github.com/vendata-inc/vendata-engine/pkg/tenant"
)

type contextKey string

const scopeKey contextKey = "tenantScope"

// Scope holds the active connection handle for one request. It is stored in
// the request context, never in a package variable, so concurrent requests
// cannot observe each other's handle.
type Scope struct {
	TenantID string

	handle   *Handle
	released atomic.Bool
}

// Handle returns the scope's handle, or nil once the scope is released.
func (s *Scope) Handle() *Handle {
	if s.released.Load() {
		return nil
	}
	return s.handle
}

// release marks the scope unusable. The pooled handle itself stays alive in
// the router; releasing only severs this request's reference to it.
func (s *Scope) release() {
	s.released.Store(true)
}

// WithScope stores a scope in the context.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// ScopeFrom retrieves the scope from the context. Returns nil and false if
// not present.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(scopeKey).(*Scope)
	return scope, ok
}

// ActiveHandle returns the handle bound to this request, or fallback when
// the request carries no tenant scope (or the scope was already released).
// Maintenance paths that run outside any request keep working through the
// fallback.
func ActiveHandle(ctx context.Context, fallback *Handle) *Handle {
	if scope, ok := ScopeFrom(ctx); ok {
		if h := scope.Handle(); h != nil {
			return h
		}
	}
	return fallback
}

// ActiveTenantID returns the tenant identity bound to this request, or the
// empty string for non-tenant-scoped work.
func ActiveTenantID(ctx context.Context) string {
	if scope, ok := ScopeFrom(ctx); ok {
		return scope.TenantID
	}
	return ""
}

// Binder creates request-scoped contexts bound to a routed handle.
type Binder struct {
	router *Router
}

// NewBinder creates a Binder over the given router.
func NewBinder(router *Router) *Binder {
	return &Binder{router: router}
}

// Bind routes the descriptor to a pooled handle and returns a context
// carrying the scope plus a release function. The caller must defer the
// release on every exit path.
func (b *Binder) Bind(ctx context.Context, desc *tenant.Descriptor) (context.Context, func(), error) {
	handle, err := b.router.Handle(ctx, desc)
	if err != nil {
		return nil, nil, err
	}

	scope := &Scope{
		TenantID: desc.TenantID,
		handle:   handle,
	}
	return WithScope(ctx, scope), scope.release, nil
}

// WithConnection runs fn with the descriptor's handle bound to the context,
// releasing the scope on every exit path including panics.
func (b *Binder) WithConnection(ctx context.Context, desc *tenant.Descriptor, fn func(ctx context.Context) error) error {
	boundCtx, release, err := b.Bind(ctx, desc)
	if err != nil {
		return err
	}
	defer release()
	return fn(boundCtx)
}
