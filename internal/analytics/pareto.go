package analytics

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"retailpulse/pkg/contracts/domain"
)

// DefaultTopFraction is the leading share of items used for the 80/20 summary
const DefaultTopFraction = 0.2

var hundred = decimal.NewFromInt(100)

// Pareto computes the cumulative percentage curve over result, which must
// already be sorted descending. Empty input or a zero total fails with
// ErrDivisionByZero. The last point is exactly 100.
func Pareto(result domain.AggregationResult) (domain.ParetoCurve, error) {
	total := result.Total()
	if len(result.Rows) == 0 || total.IsZero() {
		return domain.ParetoCurve{}, fmt.Errorf("pareto over %d items: %w", len(result.Rows), ErrDivisionByZero)
	}

	curve := domain.ParetoCurve{
		Total:  total,
		Points: make([]domain.ParetoPoint, len(result.Rows)),
	}
	cumulative := decimal.Zero
	for i, row := range result.Rows {
		cumulative = cumulative.Add(row.Value)
		pct := cumulative.Div(total).Mul(hundred).InexactFloat64()
		curve.Points[i] = domain.ParetoPoint{
			Key:             row.Key,
			Value:           row.Value,
			CumulativeValue: cumulative,
			CumulativePct:   pct,
		}
	}
	curve.Points[len(curve.Points)-1].CumulativePct = 100
	return curve, nil
}

// TopShare sums the first ceil(fraction × n) items of a descending result and
// reports their share of the total. The cut is by item count, not by
// cumulative percentage.
func TopShare(result domain.AggregationResult, fraction float64) (domain.TopShareSummary, error) {
	total := result.Total()
	n := len(result.Rows)
	if n == 0 || total.IsZero() {
		return domain.TopShareSummary{}, fmt.Errorf("top share over %d items: %w", n, ErrDivisionByZero)
	}
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultTopFraction
	}

	top := int(math.Ceil(fraction*float64(n) - 1e-9))
	if top > n {
		top = n
	}
	topValue := decimal.Zero
	for _, row := range result.Rows[:top] {
		topValue = topValue.Add(row.Value)
	}

	return domain.TopShareSummary{
		Fraction: fraction,
		Items:    n,
		TopItems: top,
		TopValue: topValue,
		Total:    total,
		SharePct: topValue.Div(total).Mul(hundred).InexactFloat64(),
	}, nil
}
