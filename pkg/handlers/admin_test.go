package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vendata-inc/vendata-engine/pkg/cache"
	"github.com/vendata-inc/vendata-engine/pkg/datasource"
	"github.com/vendata-inc/vendata-engine/pkg/tenant"
)

func newAdminFixture(t *testing.T) (*AdminHandler, *cache.ResultCache, *datasource.Router) {
	t.Helper()
	resultCache := cache.New(cache.DefaultTTL, zaptest.NewLogger(t))
	factory := func(ctx context.Context, connString string, cfg datasource.PoolConfig) (*pgxpool.Pool, error) {
		return nil, nil
	}
	router := datasource.NewRouter(datasource.RouterConfig{TTLMinutes: 30}, factory, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = router.Close() })
	return NewAdminHandler(resultCache, router, zaptest.NewLogger(t)), resultCache, router
}

func TestAdminHandler_ClearCache(t *testing.T) {
	handler, resultCache, _ := newAdminFixture(t)

	for _, tenantID := range []string{"t1", "t2"} {
		_, err := resultCache.GetOrCompute(context.Background(), tenantID, "fn", nil, func(ctx context.Context) (any, error) {
			return "v", nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, 2, resultCache.Len())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/cache/clear", nil)
	rec := httptest.NewRecorder()
	handler.ClearCache(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, resultCache.Len(), "invalidation is global across tenants")

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Evicted int `json:"evicted"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Data.Evicted)
}

func TestAdminHandler_RouterStats(t *testing.T) {
	handler, _, router := newAdminFixture(t)

	_, err := router.Handle(context.Background(), &tenant.Descriptor{
		TenantID: "t1",
		Host:     "db.example.com",
		Port:     5432,
		Database: "erp",
		Schema:   "public",
		User:     "reader",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/router/stats", nil)
	rec := httptest.NewRecorder()
	handler.RouterStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                   `json:"success"`
		Data    datasource.RouterStats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Data.TotalHandles)
	assert.Equal(t, 1, body.Data.HandlesByHost["db.example.com"])
}

func TestAdminHandler_RegisterRoutes(t *testing.T) {
	handler, _, _ := newAdminFixture(t)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	// Cache clear is a write and only accepts POST.
	req := httptest.NewRequest(http.MethodGet, "/api/admin/cache/clear", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/cache/clear", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/router/stats", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
