package analytics

import (
	"errors"
	"fmt"

	"retailpulse/pkg/contracts/domain"
)

// Default breakdown limits
const (
	DefaultTopProductsPerCountry = 10
	DefaultMaxCountryBreakdown   = 10
)

// Config parameterizes one analysis run
type Config struct {
	Filter                Filter
	Granularity           domain.Granularity
	TopProductsPerCountry int
	MaxCountryBreakdown   int
	TopFraction           float64
	RFM                   RFMPolicy
}

// DefaultConfig returns a run over all data at monthly granularity
func DefaultConfig() Config {
	return Config{
		Granularity:           domain.GranularityMonth,
		TopProductsPerCountry: DefaultTopProductsPerCountry,
		MaxCountryBreakdown:   DefaultMaxCountryBreakdown,
		TopFraction:           DefaultTopFraction,
		RFM:                   DefaultRFMPolicy(),
	}
}

// Prepared is a bound and cleaned batch ready for analysis
type Prepared struct {
	RawRows      int
	Transactions []domain.Transaction
	Rejections   domain.RejectionCounts
	Bounds       QuantityBounds
	RowErrors    []RowError
}

// Prepare binds a table and normalizes its rows. Only a schema problem is an error.
func Prepare(header []string, rows [][]string, opts NormalizeOptions) (Prepared, error) {
	bound, err := BindTable(header, rows)
	if err != nil {
		return Prepared{}, err
	}
	normalized := Normalize(bound.Rows, opts)
	normalized.Rejections.Unparseable = len(bound.RowErrors)
	return Prepared{
		RawRows:      len(rows),
		Transactions: normalized.Transactions,
		Rejections:   normalized.Rejections,
		Bounds:       normalized.Bounds,
		RowErrors:    bound.RowErrors,
	}, nil
}

// Analyze runs every view over txs. Statistical degeneracies are absorbed
// into empty results and listed in Warnings; only invalid configuration is
// returned as an error.
func Analyze(txs []domain.Transaction, cfg Config) (*domain.Analysis, error) {
	if cfg.Granularity == "" {
		cfg.Granularity = domain.GranularityMonth
	}
	if !cfg.Granularity.Valid() {
		return nil, fmt.Errorf("unknown granularity %q", cfg.Granularity)
	}
	if cfg.TopProductsPerCountry <= 0 {
		cfg.TopProductsPerCountry = DefaultTopProductsPerCountry
	}
	if cfg.MaxCountryBreakdown <= 0 {
		cfg.MaxCountryBreakdown = DefaultMaxCountryBreakdown
	}

	a := &domain.Analysis{
		Params: domain.AnalysisParams{
			Start:       cfg.Filter.Start,
			End:         cfg.Filter.End,
			Countries:   selectedCountries(cfg.Filter),
			Granularity: cfg.Granularity,
		},
	}
	warn := func(err error) {
		if err != nil {
			a.Warnings = append(a.Warnings, err.Error())
		}
	}

	filtered := cfg.Filter.Apply(txs)
	a.Transactions = len(filtered)
	if len(filtered) == 0 {
		warn(fmt.Errorf("no transactions match the filter: %w", ErrEmptyPopulation))
	}

	p := PartitionTransactions(filtered)
	a.Partition = p.Counts()

	kpis, err := ComputeKPIs(p)
	warn(err)
	a.KPIs = kpis
	a.ReturnRates = ComputeReturnRates(p)

	a.CountryRevenue = CountryRevenue(p.Sales)
	a.CancellationsByCountry = CancellationsByCountry(p.Cancellations)
	topProducts, err := TopProductsByCountry(p.Sales, cfg.TopProductsPerCountry, cfg.MaxCountryBreakdown)
	warn(err)
	a.TopProductsByCountry = topProducts

	a.Products = Aggregate(p.Sales, AggregateSpec{Key: ByProduct, Metric: domain.MetricRevenue})
	if curve, err := Pareto(a.Products); err != nil {
		warn(err)
	} else {
		a.Pareto = &curve
	}
	if share, err := TopShare(a.Products, cfg.TopFraction); err == nil {
		a.TopShare = &share
	}

	a.Months = MonthTable(p.Sales)
	a.Temporal = ComputeTemporalStats(a.Months)
	trend, err := Bucket(p.Sales, cfg.Granularity)
	if err != nil {
		return nil, err
	}
	a.Trend = trend
	a.Seasonality = ComputeSeasonality(p.Sales)

	rfm, err := ScoreRFM(p.Sales, cfg.RFM)
	if err != nil && !errors.Is(err, ErrInsufficientPopulation) {
		return nil, err
	}
	warn(err)
	a.RFM = rfm

	a.Report = BuildReport(a)
	return a, nil
}

func selectedCountries(f Filter) []string {
	if f.SelectsAllCountries() {
		return []string{AllCountries}
	}
	out := make([]string, len(f.Countries))
	copy(out, f.Countries)
	return out
}
