package analytics

import (
	"fmt"

	"retailpulse/pkg/contracts/domain"
)

// Country tier sizes
const (
	TopTierSize    = 20
	BottomTierSize = 10
)

// CountryRevenue ranks countries by sale revenue and assigns tiers: the
// first TopTierSize are Top 20, the last BottomTierSize are Last 10. When
// the lists overlap the bottom tier wins, matching the order tiers are assigned.
func CountryRevenue(sales []domain.Transaction) []domain.CountryRevenue {
	ranked := Aggregate(sales, AggregateSpec{Key: ByCountry, Metric: domain.MetricRevenue})
	n := len(ranked.Rows)
	out := make([]domain.CountryRevenue, n)
	for i, row := range ranked.Rows {
		tier := domain.TierOthers
		if i < TopTierSize {
			tier = domain.TierTop20
		}
		if i >= n-BottomTierSize {
			tier = domain.TierLast10
		}
		out[i] = domain.CountryRevenue{
			Country: row.Key.Label,
			Revenue: row.Value,
			Rank:    i + 1,
			Tier:    tier,
		}
	}
	return out
}

// CancellationsByCountry counts distinct cancelled invoices per country, descending
func CancellationsByCountry(cancellations []domain.Transaction) domain.AggregationResult {
	return Aggregate(cancellations, AggregateSpec{
		Key:     ByCountry,
		Metric:  domain.MetricDistinctInvoices,
		Classes: []domain.TransactionClass{domain.ClassCancellation},
	})
}

// TopProductsByCountry returns the perCountry best-selling products of each
// country present in sales, in descending country revenue order. More than
// maxCountries countries fails with ErrCapacityExceeded.
func TopProductsByCountry(sales []domain.Transaction, perCountry, maxCountries int) ([]domain.CountryProducts, error) {
	countries := Aggregate(sales, AggregateSpec{Key: ByCountry, Metric: domain.MetricRevenue})
	if maxCountries > 0 && countries.Len() > maxCountries {
		return nil, fmt.Errorf("top products for %d countries (limit %d): %w",
			countries.Len(), maxCountries, ErrCapacityExceeded)
	}

	byCountry := make(map[string][]domain.Transaction, countries.Len())
	for _, tx := range sales {
		byCountry[tx.Country] = append(byCountry[tx.Country], tx)
	}

	out := make([]domain.CountryProducts, 0, countries.Len())
	for _, row := range countries.Rows {
		country := row.Key.Label
		products := Aggregate(byCountry[country], AggregateSpec{
			Key:    ByProduct,
			Metric: domain.MetricRevenue,
			Limit:  perCountry,
		})
		out = append(out, domain.CountryProducts{Country: country, Products: products.Rows})
	}
	return out, nil
}
