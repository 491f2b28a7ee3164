package domain

import (
	"time"
)

// AnalysisParams echoes the filter and bucketing settings of a run
type AnalysisParams struct {
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Countries   []string    `json:"countries"`
	Granularity Granularity `json:"granularity"`
}

// Analysis is the full output of one pipeline run
type Analysis struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Params      AnalysisParams `json:"params"`

	Transactions int             `json:"transactions"`
	Partition    PartitionCounts `json:"partition"`

	KPIs        KPIs        `json:"kpis"`
	ReturnRates ReturnRates `json:"return_rates"`

	CountryRevenue         []CountryRevenue  `json:"country_revenue"`
	CancellationsByCountry AggregationResult `json:"cancellations_by_country"`
	TopProductsByCountry   []CountryProducts `json:"top_products_by_country,omitempty"`

	Products AggregationResult `json:"products"`
	Pareto   *ParetoCurve      `json:"pareto,omitempty"`
	TopShare *TopShareSummary  `json:"top_share,omitempty"`

	Months      []MonthStat    `json:"months"`
	Temporal    TemporalStats  `json:"temporal"`
	Trend       BucketedSeries `json:"trend"`
	Seasonality Seasonality    `json:"seasonality"`

	RFM    RFMResult `json:"rfm"`
	Report Report    `json:"report"`

	// Warnings records degenerate statistics that were absorbed into empty results
	Warnings []string `json:"warnings,omitempty"`
}

// Report is the narrative summary of an analysis
type Report struct {
	Period          string          `json:"period"`
	Countries       []string        `json:"countries"`
	TotalRevenue    string          `json:"total_revenue"`
	Orders          int             `json:"orders"`
	Customers       int             `json:"customers"`
	AverageBasket   string          `json:"average_basket"`
	Cancellations   int             `json:"cancellations"`
	TopProduct      *AggregateRow   `json:"top_product,omitempty"`
	TopCountry      *CountryRevenue `json:"top_country,omitempty"`
	BestMonth       *MonthStat      `json:"best_month,omitempty"`
	Segments        []SegmentCount  `json:"segments"`
	Recommendations []string        `json:"recommendations"`
}
