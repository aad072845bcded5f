package analytics

import "sort"

// Curve is an ABC/Pareto bucket. OFF marks entities with no recent activity,
// regardless of their share.
type Curve string

const (
	CurveA   Curve = "A"
	CurveB   Curve = "B"
	CurveC   Curve = "C"
	CurveOff Curve = "OFF"
)

// Entity is one ranked item: a product, a customer, a sales rep.
type Entity struct {
	ID          string
	Name        string
	MetricValue float64
}

// Thresholds are cumulative-share cutoffs for curves A and B; everything
// past B is C. They must satisfy A <= B <= 1.
type Thresholds struct {
	A float64
	B float64
}

// DefaultThresholds is the classic 80/95 split.
func DefaultThresholds() Thresholds {
	return Thresholds{A: 0.80, B: 0.95}
}

// Classification is the curve assignment for one entity. Percentages are
// numerically exact; rounding for display belongs to the caller.
type Classification struct {
	EntityID          string  `json:"entity_id"`
	Name              string  `json:"name"`
	Rank              int     `json:"rank"`
	MetricValue       float64 `json:"metric_value"`
	CumulativeValue   float64 `json:"cumulative_value"`
	Curve             Curve   `json:"curve"`
	PercentIndividual float64 `json:"percent_individual"`
	PercentCumulative float64 `json:"percent_cumulative"`
}

// Classify ranks entities by metric value descending and assigns each a
// curve from its cumulative share. Ties keep their input order. The active
// predicate says whether an entity had any activity in the caller's lookback
// window; entities without activity are forced to OFF before share-based
// assignment runs (they still contribute to the running sums). A nil
// predicate treats every entity as active.
//
// An empty input yields an empty result. A zero metric total yields every
// entity OFF with zero percentages; no division happens in that case.
func Classify(entities []Entity, thresholds Thresholds, active func(Entity) bool) []Classification {
	ranked := make([]Entity, len(entities))
	copy(ranked, entities)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MetricValue > ranked[j].MetricValue
	})

	var total float64
	for _, e := range ranked {
		total += e.MetricValue
	}

	results := make([]Classification, 0, len(ranked))
	var cumulative float64

	for i, e := range ranked {
		cumulative += e.MetricValue

		c := Classification{
			EntityID:        e.ID,
			Name:            e.Name,
			Rank:            i + 1,
			MetricValue:     e.MetricValue,
			CumulativeValue: cumulative,
		}

		if total == 0 {
			c.Curve = CurveOff
			results = append(results, c)
			continue
		}

		share := cumulative / total
		c.PercentIndividual = e.MetricValue / total * 100
		c.PercentCumulative = share * 100

		switch {
		case active != nil && !active(e):
			c.Curve = CurveOff
		case share <= thresholds.A:
			c.Curve = CurveA
		case share <= thresholds.B:
			c.Curve = CurveB
		default:
			c.Curve = CurveC
		}

		results = append(results, c)
	}

	return results
}
