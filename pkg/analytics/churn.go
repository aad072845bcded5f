package analytics

import (
	"sort"
	"time"
)

// RiskLevel is the churn bucket a customer falls into.
type RiskLevel string

const (
	RiskBaixo RiskLevel = "Baixo"
	RiskMedio RiskLevel = "Medio"
	RiskAlto  RiskLevel = "Alto"
)

// ChurnProfile describes a customer's purchase cadence and churn risk.
type ChurnProfile struct {
	CustomerID            string    `json:"customer_id"`
	DaysSinceLastPurchase float64   `json:"days_since_last_purchase"`
	AvgPurchaseCycleDays  float64   `json:"avg_purchase_cycle_days"`
	RiskLevel             RiskLevel `json:"risk_level"`
}

// Scorer computes purchase-cycle-based churn risk. It is a pure function of
// the purchase history; absolute inactivity floors (e.g. ignore customers
// quiet for under 30 days) belong to the caller.
type Scorer struct {
	now func() time.Time // test hook
}

// NewScorer creates a Scorer that evaluates against the current time.
func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

// NewScorerAt creates a Scorer that evaluates against the supplied clock.
// Useful for reproducing a report as of a fixed date.
func NewScorerAt(now func() time.Time) *Scorer {
	return &Scorer{now: now}
}

// Score derives a churn profile from a customer's purchase dates. At least
// two purchases are required to establish a cycle; with fewer, the customer
// is excluded from scoring entirely (ok=false) rather than defaulted to low
// risk.
func (s *Scorer) Score(customerID string, purchases []time.Time) (ChurnProfile, bool) {
	if len(purchases) < 2 {
		return ChurnProfile{}, false
	}

	history := make([]time.Time, len(purchases))
	copy(history, purchases)
	sort.Slice(history, func(i, j int) bool { return history[i].Before(history[j]) })

	first := history[0]
	last := history[len(history)-1]

	avgCycleDays := last.Sub(first).Hours() / 24 / float64(len(history)-1)
	daysSinceLast := s.now().Sub(last).Hours() / 24

	profile := ChurnProfile{
		CustomerID:            customerID,
		DaysSinceLastPurchase: daysSinceLast,
		AvgPurchaseCycleDays:  avgCycleDays,
	}

	switch {
	case daysSinceLast > 2*avgCycleDays:
		profile.RiskLevel = RiskAlto
	case daysSinceLast > avgCycleDays:
		profile.RiskLevel = RiskMedio
	default:
		profile.RiskLevel = RiskBaixo
	}

	return profile, true
}
