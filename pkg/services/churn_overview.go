package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vendata-inc/vendata-engine/pkg/analytics"
	"github.com/vendata-inc/vendata-engine/pkg/cache"
	"github.com/vendata-inc/vendata-engine/pkg/config"
	"github.com/vendata-inc/vendata-engine/pkg/datasource"
	"github.com/vendata-inc/vendata-engine/pkg/models"
	"github.com/vendata-inc/vendata-engine/pkg/query"
)

// CustomerChurnService scores customers' churn risk from their purchase
// cadence.
type CustomerChurnService interface {
	// ChurnOverview returns the churn-risk profile of every scorable
	// customer for the request's tenant. Results are cached per tenant.
	ChurnOverview(ctx context.Context) (*models.ChurnReport, error)
}

type customerChurnService struct {
	executor queryExecutor
	cache    *cache.ResultCache
	cfg      config.AnalyticsConfig
	logger   *zap.Logger
	now      func() time.Time // test hook
}

// NewCustomerChurnService creates a CustomerChurnService.
func NewCustomerChurnService(executor queryExecutor, resultCache *cache.ResultCache, cfg config.AnalyticsConfig, logger *zap.Logger) CustomerChurnService {
	return &customerChurnService{
		executor: executor,
		cache:    resultCache,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *customerChurnService) ChurnOverview(ctx context.Context) (*models.ChurnReport, error) {
	tenantID := datasource.ActiveTenantID(ctx)

	value, err := s.cache.GetOrCompute(ctx, tenantID, "churnOverview", nil, func(ctx context.Context) (any, error) {
		return s.computeOverview(ctx, tenantID), nil
	})
	if err != nil {
		return nil, err
	}

	report, ok := value.(*models.ChurnReport)
	if !ok {
		return nil, fmt.Errorf("unexpected cached type %T for churn overview", value)
	}
	return report, nil
}

func (s *customerChurnService) computeOverview(ctx context.Context, tenantID string) *models.ChurnReport {
	now := s.now()
	report := &models.ChurnReport{
		TenantID:    tenantID,
		FloorDays:   s.cfg.ChurnFloorDays,
		GeneratedAt: now,
		Customers:   []analytics.ChurnProfile{},
	}

	where, args, err := query.BuildWhere([]query.Filter{
		{Column: "o.status", Op: query.OpEq, Value: "completed"},
	}, 1)
	if err != nil {
		report.Partial = true
		return report
	}

	historySQL := fmt.Sprintf(
		"SELECT o.customer_id, o.ordered_at FROM orders o WHERE %s ORDER BY o.customer_id, o.ordered_at",
		where,
	)

	result := s.executor.Execute(ctx, historySQL, args...)
	if result.Failed() {
		s.logger.Warn("churn overview degraded to empty data",
			zap.String("tenantID", tenantID),
			zap.Error(result.Failure),
		)
		report.Partial = true
		return report
	}

	histories := make(map[string][]time.Time)
	order := make([]string, 0)
	for _, row := range result.Rows {
		customerID := asString(row["customer_id"])
		ts, ok := row["ordered_at"].(time.Time)
		if !ok {
			continue
		}
		if _, seen := histories[customerID]; !seen {
			order = append(order, customerID)
		}
		histories[customerID] = append(histories[customerID], ts)
	}

	scorer := analytics.NewScorerAt(s.now)
	floor := float64(s.cfg.ChurnFloorDays)

	for _, customerID := range order {
		profile, ok := scorer.Score(customerID, histories[customerID])
		if !ok {
			report.Excluded++
			continue
		}
		// The scorer is floor-agnostic; recently active customers are
		// excluded from flagging here, at the caller.
		if profile.DaysSinceLastPurchase < floor {
			report.Excluded++
			continue
		}
		report.Customers = append(report.Customers, profile)
	}

	return report
}
