package services

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"retailpulse/internal/analytics"
	api "retailpulse/pkg/contracts/api/v1"
	"retailpulse/pkg/contracts/domain"
)

// DateLayout is the wire format of query dates
const DateLayout = "2006-01-02"

// Query selects the slice of the dataset an analysis covers. Zero values
// fall back to the configured defaults.
type Query struct {
	Start                 time.Time
	End                   time.Time
	Countries             []string
	Granularity           domain.Granularity
	TopProductsPerCountry int
	MaxCountryBreakdown   int
	TopFraction           float64
}

// NewQuery converts a validated request into a Query
func NewQuery(req api.AnalysisRequest) (Query, error) {
	var q Query
	var err error
	if req.Start != "" {
		if q.Start, err = time.Parse(DateLayout, req.Start); err != nil {
			return Query{}, fmt.Errorf("invalid start date: %w", err)
		}
	}
	if req.End != "" {
		if q.End, err = time.Parse(DateLayout, req.End); err != nil {
			return Query{}, fmt.Errorf("invalid end date: %w", err)
		}
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return Query{}, fmt.Errorf("end date %s is before start date %s", req.End, req.Start)
	}
	if req.Granularity != "" {
		if q.Granularity, err = analytics.ParseGranularity(req.Granularity); err != nil {
			return Query{}, err
		}
	}
	q.Countries = req.Countries
	return q, nil
}

// Filter returns the analytics filter of q
func (q Query) Filter() analytics.Filter {
	return analytics.Filter{Start: q.Start, End: q.End, Countries: q.Countries}
}

// canonicalCountries is the sorted, deduplicated country selection; nil means all
func (q Query) canonicalCountries() []string {
	if q.Filter().SelectsAllCountries() {
		return nil
	}
	seen := make(map[string]struct{}, len(q.Countries))
	out := make([]string, 0, len(q.Countries))
	for _, c := range q.Countries {
		c = strings.TrimSpace(c)
		if _, ok := seen[c]; ok || c == "" {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// cacheKey identifies the analysis of q over one loaded dataset, named by
// its content fingerprint and load generation, once defaults have been
// applied to q
func cacheKey(fingerprint string, generation uint64, cfg analytics.Config) string {
	countries := "*"
	if !cfg.Filter.SelectsAllCountries() {
		countries = strings.Join(cfg.Filter.Countries, "\x1f")
	}
	parts := []string{
		fingerprint,
		strconv.FormatUint(generation, 10),
		dateKey(cfg.Filter.Start),
		dateKey(cfg.Filter.End),
		countries,
		string(cfg.Granularity),
		strconv.Itoa(cfg.TopProductsPerCountry),
		strconv.Itoa(cfg.MaxCountryBreakdown),
		strconv.FormatFloat(cfg.TopFraction, 'g', -1, 64),
		strconv.Itoa(cfg.RFM.MinCustomers),
	}
	sum := blake2b.Sum256([]byte(strings.Join(parts, "\x1e")))
	return hex.EncodeToString(sum[:])
}

func dateKey(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(DateLayout)
}
