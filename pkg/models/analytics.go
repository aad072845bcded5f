package models

import (
	"time"

	"github.com/vendata-inc/vendata-engine/pkg/analytics"
)

// ProductClassification is one product's position on the ABC curve, with
// percentages rounded for display.
type ProductClassification struct {
	ProductID         string  `json:"product_id"`
	Name              string  `json:"name"`
	Rank              int     `json:"rank"`
	Revenue           float64 `json:"revenue"`
	Curve             string  `json:"curve"`
	PercentIndividual float64 `json:"percent_individual"`
	PercentCumulative float64 `json:"percent_cumulative"`
}

// ProductCurveReport is the ABC/Pareto classification of a tenant's products
// over a reporting period.
type ProductCurveReport struct {
	TenantID     string                  `json:"tenant_id,omitempty"`
	PeriodDays   int                     `json:"period_days"`
	LookbackDays int                     `json:"lookback_days"`
	GeneratedAt  time.Time               `json:"generated_at"`
	Partial      bool                    `json:"partial"`
	Products     []ProductClassification `json:"products"`
}

// ChurnReport is the churn-risk overview of a tenant's customers. Customers
// with fewer than two purchases, or inactive for less than the floor, are
// counted in Excluded rather than classified.
type ChurnReport struct {
	TenantID    string                   `json:"tenant_id,omitempty"`
	FloorDays   int                      `json:"floor_days"`
	GeneratedAt time.Time                `json:"generated_at"`
	Partial     bool                     `json:"partial"`
	Customers   []analytics.ChurnProfile `json:"customers"`
	Excluded    int                      `json:"excluded"`
}
