package analytics

import (
	"sort"
	"strings"
	"time"

	"retailpulse/pkg/contracts/domain"
)

// AllCountries selects every country when present in a country list
const AllCountries = "all"

// Filter selects transactions by date range and country. Zero dates leave
// that side of the range open; an empty country list selects all countries.
type Filter struct {
	Start     time.Time
	End       time.Time
	Countries []string
}

// SelectsAllCountries reports whether the filter keeps every country
func (f Filter) SelectsAllCountries() bool {
	if len(f.Countries) == 0 {
		return true
	}
	for _, c := range f.Countries {
		if strings.EqualFold(c, AllCountries) {
			return true
		}
	}
	return false
}

// Apply returns the transactions matching f. Start and End are whole days
// and both are inclusive.
func (f Filter) Apply(txs []domain.Transaction) []domain.Transaction {
	var start, endExclusive time.Time
	if !f.Start.IsZero() {
		start = truncateDay(f.Start)
	}
	if !f.End.IsZero() {
		endExclusive = truncateDay(f.End).AddDate(0, 0, 1)
	}

	allCountries := f.SelectsAllCountries()
	countries := make(map[string]struct{}, len(f.Countries))
	for _, c := range f.Countries {
		countries[c] = struct{}{}
	}

	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		ts := tx.InvoiceTimestamp
		if !start.IsZero() && ts.Before(start) {
			continue
		}
		if !endExclusive.IsZero() && !ts.Before(endExclusive) {
			continue
		}
		if !allCountries {
			if _, ok := countries[tx.Country]; !ok {
				continue
			}
		}
		out = append(out, tx)
	}
	return out
}

// AvailableCountries returns the sorted distinct countries in txs
func AvailableCountries(txs []domain.Transaction) []string {
	set := make(map[string]struct{})
	for _, tx := range txs {
		set[tx.Country] = struct{}{}
	}
	countries := make([]string, 0, len(set))
	for c := range set {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	return countries
}

// TimeBounds returns the earliest and latest timestamps in txs
func TimeBounds(txs []domain.Transaction) (first, last time.Time) {
	for i, tx := range txs {
		ts := tx.InvoiceTimestamp
		if i == 0 || ts.Before(first) {
			first = ts
		}
		if i == 0 || ts.After(last) {
			last = ts
		}
	}
	return first, last
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
