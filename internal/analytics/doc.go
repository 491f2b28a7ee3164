// Package analytics implements the retail transaction analytics pipeline.
//
// The pipeline turns raw line items into cleaned transactions and derives
// revenue KPIs, product concentration, geographic distribution, cancellation
// and return rates, calendar trends and RFM customer segments.
//
// # Stages
//
//  1. Normalization: schema binding, deduplication, cleaning and outlier removal
//  2. Filtering: date range and country selection
//  3. Classification: sale, return or cancellation
//  4. Aggregation: grouped revenue and distinct counts
//  5. Derived views: Pareto curve, time buckets, seasonality, RFM
//
// # Files
//
//   - schema.go: column normalization and table binding
//   - normalize.go: cleaning rules and the quantity outlier filter
//   - classify.go: transaction classes and partitioning
//   - filter.go: date range and country selection
//   - aggregate.go: grouping engine and key functions
//   - pareto.go: cumulative contribution curve
//   - timebucket.go: calendar bucketing
//   - rfm.go: recency, frequency and monetary segmentation
//   - kpi.go: headline figures and return rates
//   - geography.go: country views
//   - calendar.go: month table and seasonality
//   - report.go: narrative summary and recommendations
//   - pipeline.go: end-to-end orchestration
//
// Every function is pure. Inputs are never mutated and results never share
// backing arrays with inputs, so callers may run analyses concurrently.
package analytics
