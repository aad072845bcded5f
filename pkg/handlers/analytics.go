package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vendata-inc/vendata-engine/pkg/services"
)

// AnalyticsHandler serves the product curve and customer churn reports.
type AnalyticsHandler struct {
	curves services.ProductCurveService
	churn  services.CustomerChurnService
	logger *zap.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(curves services.ProductCurveService, churn services.CustomerChurnService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{curves: curves, churn: churn, logger: logger}
}

// RegisterRoutes registers the analytics handler's routes on the given mux.
func (h *AnalyticsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/analytics/products/curve", h.ProductCurve)
	mux.HandleFunc("GET /api/analytics/customers/churn", h.CustomerChurn)
}

// ProductCurve handles GET /api/analytics/products/curve requests.
// Accepts an optional period_days query parameter (default 365).
func (h *AnalyticsHandler) ProductCurve(w http.ResponseWriter, r *http.Request) {
	periodDays := 365
	if raw := r.URL.Query().Get("period_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			if err := FailureEnvelope(w, http.StatusBadRequest, "period_days must be a positive integer"); err != nil {
				h.logger.Error("Failed to encode failure envelope", zap.Error(err))
			}
			return
		}
		periodDays = parsed
	}

	report, err := h.curves.ProductCurve(r.Context(), periodDays)
	if err != nil {
		h.logger.Error("Failed to build product curve", zap.Error(err))
		if err := FailureEnvelope(w, http.StatusInternalServerError, "failed to build product curve"); err != nil {
			h.logger.Error("Failed to encode failure envelope", zap.Error(err))
		}
		return
	}

	if err := SuccessEnvelope(w, report); err != nil {
		h.logger.Error("Failed to encode product curve response", zap.Error(err))
	}
}

// CustomerChurn handles GET /api/analytics/customers/churn requests.
func (h *AnalyticsHandler) CustomerChurn(w http.ResponseWriter, r *http.Request) {
	report, err := h.churn.ChurnOverview(r.Context())
	if err != nil {
		h.logger.Error("Failed to build churn overview", zap.Error(err))
		if err := FailureEnvelope(w, http.StatusInternalServerError, "failed to build churn overview"); err != nil {
			h.logger.Error("Failed to encode failure envelope", zap.Error(err))
		}
		return
	}

	if err := SuccessEnvelope(w, report); err != nil {
		h.logger.Error("Failed to encode churn response", zap.Error(err))
	}
}
