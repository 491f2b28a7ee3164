package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Metric identifies the value an aggregation computes per group
type Metric string

const (
	MetricRevenue           Metric = "revenue"
	MetricDistinctInvoices  Metric = "distinct_invoices"
	MetricDistinctCustomers Metric = "distinct_customers"
	MetricQuantity          Metric = "quantity"
)

// GroupKey is a possibly composite grouping key. Parts holds the raw
// dimension values; Label is what reports display.
type GroupKey struct {
	Parts []string `json:"parts"`
	Label string   `json:"label"`
}

// NewKey builds a single-dimension key whose label is the value itself
func NewKey(value string) GroupKey {
	return GroupKey{Parts: []string{value}, Label: value}
}

// ID returns a string that is unique per distinct Parts tuple
func (k GroupKey) ID() string {
	return strings.Join(k.Parts, "\x1f")
}

// AggregateRow is one (key, value) pair of an aggregation
type AggregateRow struct {
	Key   GroupKey        `json:"key"`
	Value decimal.Decimal `json:"value"`
}

// AggregationResult is an ordered sequence of grouped values
type AggregationResult struct {
	Metric Metric         `json:"metric"`
	Rows   []AggregateRow `json:"rows"`
}

// Len returns the number of groups
func (r AggregationResult) Len() int {
	return len(r.Rows)
}

// Total sums every group value
func (r AggregationResult) Total() decimal.Decimal {
	total := decimal.Zero
	for _, row := range r.Rows {
		total = total.Add(row.Value)
	}
	return total
}

// GroupStats carries revenue and distinct counts for one key
type GroupStats struct {
	Key       GroupKey        `json:"key"`
	Revenue   decimal.Decimal `json:"revenue"`
	Orders    int             `json:"orders"`
	Customers int             `json:"customers"`
	Quantity  int64           `json:"quantity"`
}

// ParetoPoint is one entry of a cumulative contribution curve
type ParetoPoint struct {
	Key             GroupKey        `json:"key"`
	Value           decimal.Decimal `json:"value"`
	CumulativeValue decimal.Decimal `json:"cumulative_value"`
	CumulativePct   float64         `json:"cumulative_pct"`
}

// ParetoCurve is the cumulative percentage curve over a sorted aggregation
type ParetoCurve struct {
	Total  decimal.Decimal `json:"total"`
	Points []ParetoPoint   `json:"points"`
}

// TopShareSummary reports the share of the total held by the leading items
type TopShareSummary struct {
	Fraction float64         `json:"fraction"`
	Items    int             `json:"items"`
	TopItems int             `json:"top_items"`
	TopValue decimal.Decimal `json:"top_value"`
	Total    decimal.Decimal `json:"total"`
	SharePct float64         `json:"share_pct"`
}

// Granularity is a calendar bucketing period
type Granularity string

const (
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// Valid reports whether g is a known granularity
func (g Granularity) Valid() bool {
	switch g {
	case GranularityWeek, GranularityMonth, GranularityQuarter, GranularityYear:
		return true
	}
	return false
}

// Bucket is a half-open calendar interval [Start, End)
type Bucket struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// BucketedSeries holds two series over an identical bucket sequence
type BucketedSeries struct {
	Granularity Granularity       `json:"granularity"`
	Buckets     []Bucket          `json:"buckets"`
	Revenue     []decimal.Decimal `json:"revenue"`
	Orders      []int             `json:"orders"`
}

// KPIs are the headline figures of a filtered batch. AverageBasket is nil
// when there are no orders.
type KPIs struct {
	TotalRevenue   decimal.Decimal  `json:"total_revenue"`
	Orders         int              `json:"orders"`
	Customers      int              `json:"customers"`
	AverageBasket  *decimal.Decimal `json:"average_basket"`
	Cancellations  int              `json:"cancellations"`
	CancelledUnits int64            `json:"cancelled_units"`
	CancelledValue decimal.Decimal  `json:"cancelled_value"`
	Returns        int              `json:"returns"`
	ReturnedUnits  int64            `json:"returned_units"`
	ReturnedValue  decimal.Decimal  `json:"returned_value"`
	Unclassified   int              `json:"unclassified"`
}

// ReturnRates are percentages; a nil rate means its denominator was zero
type ReturnRates struct {
	ByValuePct     *float64 `json:"by_value_pct"`
	ByOrdersPct    *float64 `json:"by_orders_pct"`
	ByCustomersPct *float64 `json:"by_customers_pct"`
}

// CountryTier groups countries by revenue rank
type CountryTier string

const (
	TierTop20  CountryTier = "top_20"
	TierLast10 CountryTier = "last_10"
	TierOthers CountryTier = "others"
)

// CountryRevenue is the revenue of one country with its rank tier
type CountryRevenue struct {
	Country string          `json:"country"`
	Revenue decimal.Decimal `json:"revenue"`
	Rank    int             `json:"rank"`
	Tier    CountryTier     `json:"tier"`
}

// CountryProducts lists the best-selling products of one country
type CountryProducts struct {
	Country  string         `json:"country"`
	Products []AggregateRow `json:"products"`
}

// MonthStat summarizes one calendar month
type MonthStat struct {
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Label     string          `json:"label"`
	Revenue   decimal.Decimal `json:"revenue"`
	Orders    int             `json:"orders"`
	Customers int             `json:"customers"`
}

// TemporalStats are derived from the month table
type TemporalStats struct {
	BestRevenueMonth   *MonthStat      `json:"best_revenue_month,omitempty"`
	BestOrdersMonth    *MonthStat      `json:"best_orders_month,omitempty"`
	MeanMonthlyRevenue decimal.Decimal `json:"mean_monthly_revenue"`
	MeanMonthlyOrders  float64         `json:"mean_monthly_orders"`
}

// SeasonalPoint is revenue for one position of a repeating cycle
type SeasonalPoint struct {
	Index   int             `json:"index"`
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Seasonality holds weekday and month-of-year revenue profiles
type Seasonality struct {
	ByWeekday []SeasonalPoint `json:"by_weekday"`
	ByMonth   []SeasonalPoint `json:"by_month"`
}

// PartitionCounts reports how many transactions landed in each class
type PartitionCounts struct {
	Sales         int `json:"sales"`
	Returns       int `json:"returns"`
	Cancellations int `json:"cancellations"`
	Unclassified  int `json:"unclassified"`
}
