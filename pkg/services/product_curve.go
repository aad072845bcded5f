package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/vendata-inc/vendata-engine/pkg/analytics"
	"github.com/vendata-inc/vendata-engine/pkg/cache"
	"github.com/vendata-inc/vendata-engine/pkg/config"
	"github.com/vendata-inc/vendata-engine/pkg/datasource"
	"github.com/vendata-inc/vendata-engine/pkg/models"
	"github.com/vendata-inc/vendata-engine/pkg/query"
)

// queryExecutor is the slice of the query executor the services need.
// Satisfied by *query.Executor; faked in tests.
type queryExecutor interface {
	Execute(ctx context.Context, sqlQuery string, params ...any) *query.Result
}

// productRevenueSQL aggregates revenue per product within the reporting
// period and carries the last sale date for the OFF-curve decision. Products
// with no completed sales at all still appear, with zero revenue.
const productRevenueSQL = `
SELECT p.product_id,
       p.name,
       COALESCE(SUM(CASE WHEN o.ordered_at >= $1 THEN oi.quantity * oi.unit_price END), 0) AS revenue,
       MAX(o.ordered_at) AS last_sale
FROM products p
LEFT JOIN order_items oi ON oi.product_id = p.product_id
LEFT JOIN orders o ON o.order_id = oi.order_id AND o.status = $2
GROUP BY p.product_id, p.name`

// ProductCurveService produces ABC/Pareto product classifications.
type ProductCurveService interface {
	// ProductCurve returns the classified product curve for the request's
	// tenant over the given reporting period. Results are cached per tenant.
	ProductCurve(ctx context.Context, periodDays int) (*models.ProductCurveReport, error)
}

type productCurveService struct {
	executor queryExecutor
	cache    *cache.ResultCache
	cfg      config.AnalyticsConfig
	logger   *zap.Logger
	now      func() time.Time // test hook
}

// NewProductCurveService creates a ProductCurveService.
func NewProductCurveService(executor queryExecutor, resultCache *cache.ResultCache, cfg config.AnalyticsConfig, logger *zap.Logger) ProductCurveService {
	return &productCurveService{
		executor: executor,
		cache:    resultCache,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *productCurveService) ProductCurve(ctx context.Context, periodDays int) (*models.ProductCurveReport, error) {
	if periodDays <= 0 {
		periodDays = 365
	}
	tenantID := datasource.ActiveTenantID(ctx)

	value, err := s.cache.GetOrCompute(ctx, tenantID, "productCurve", periodDays, func(ctx context.Context) (any, error) {
		return s.computeCurve(ctx, tenantID, periodDays), nil
	})
	if err != nil {
		return nil, err
	}

	report, ok := value.(*models.ProductCurveReport)
	if !ok {
		return nil, fmt.Errorf("unexpected cached type %T for product curve", value)
	}
	return report, nil
}

func (s *productCurveService) computeCurve(ctx context.Context, tenantID string, periodDays int) *models.ProductCurveReport {
	now := s.now()
	report := &models.ProductCurveReport{
		TenantID:     tenantID,
		PeriodDays:   periodDays,
		LookbackDays: s.cfg.LookbackDays,
		GeneratedAt:  now,
		Products:     []models.ProductClassification{},
	}

	periodStart := now.AddDate(0, 0, -periodDays)
	result := s.executor.Execute(ctx, productRevenueSQL, periodStart, "completed")
	if result.Failed() {
		// Degrade to an empty curve rather than a broken dashboard; the
		// partial marker is the caller's only signal.
		s.logger.Warn("product curve degraded to empty data",
			zap.String("tenantID", tenantID),
			zap.Error(result.Failure),
		)
		report.Partial = true
		return report
	}

	lookbackStart := now.AddDate(0, 0, -s.cfg.LookbackDays)
	entities := make([]analytics.Entity, 0, result.RowCount)
	lastSales := make(map[string]time.Time, result.RowCount)

	for _, row := range result.Rows {
		id := asString(row["product_id"])
		entities = append(entities, analytics.Entity{
			ID:          id,
			Name:        asString(row["name"]),
			MetricValue: asFloat(row["revenue"]),
		})
		if ts, ok := row["last_sale"].(time.Time); ok {
			lastSales[id] = ts
		}
	}

	active := func(e analytics.Entity) bool {
		last, ok := lastSales[e.ID]
		return ok && !last.Before(lookbackStart)
	}

	thresholds := analytics.Thresholds{A: s.cfg.CurveAThreshold, B: s.cfg.CurveBThreshold}
	for _, c := range analytics.Classify(entities, thresholds, active) {
		report.Products = append(report.Products, models.ProductClassification{
			ProductID:         c.EntityID,
			Name:              c.Name,
			Rank:              c.Rank,
			Revenue:           c.MetricValue,
			Curve:             string(c.Curve),
			PercentIndividual: round2(c.PercentIndividual),
			PercentCumulative: round2(c.PercentCumulative),
		})
	}

	return report
}

// round2 rounds to two decimals for display. The classification engine stays
// numerically exact; rounding happens only here at the edge.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case int:
		return float64(n)
	case pgtype.Numeric:
		// SUM() over money columns comes back as Postgres numeric; pgx
		// decodes it to this struct, not to float64.
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return 0
		}
		return f.Float64
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
