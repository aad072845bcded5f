package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vendata-inc/vendata-engine/pkg/cache"
	"github.com/vendata-inc/vendata-engine/pkg/datasource"
)

// AdminHandler exposes operational endpoints for the result cache and the
// connection router.
type AdminHandler struct {
	cache  *cache.ResultCache
	router *datasource.Router
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(resultCache *cache.ResultCache, router *datasource.Router, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{cache: resultCache, router: router, logger: logger}
}

// RegisterRoutes registers the admin handler's routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/admin/cache/clear", h.ClearCache)
	mux.HandleFunc("GET /api/admin/router/stats", h.RouterStats)
}

// ClearCache handles POST /api/admin/cache/clear requests. Invalidation is
// global across tenants; per-tenant eviction is not supported.
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	evicted := h.cache.Len()
	h.cache.ClearAll()
	h.logger.Info("result cache cleared", zap.Int("evicted", evicted))

	if err := SuccessEnvelope(w, map[string]int{"evicted": evicted}); err != nil {
		h.logger.Error("Failed to encode cache clear response", zap.Error(err))
	}
}

// RouterStats handles GET /api/admin/router/stats requests.
func (h *AdminHandler) RouterStats(w http.ResponseWriter, r *http.Request) {
	if err := SuccessEnvelope(w, h.router.Stats()); err != nil {
		h.logger.Error("Failed to encode router stats response", zap.Error(err))
	}
}
