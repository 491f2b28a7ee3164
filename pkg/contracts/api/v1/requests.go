// Package api contains API contract definitions for the analytics service.
// Version v1 represents the current stable API version.
package api

// DateRangeRequest represents an inclusive date range in requests
type DateRangeRequest struct {
	Start string `json:"start" query:"start" validate:"omitempty,datetime=2006-01-02"`
	End   string `json:"end" query:"end" validate:"omitempty,datetime=2006-01-02"`
}

// AnalysisRequest selects the transactions and trend granularity of an analysis.
// An empty country list or the single value "all" selects every country.
type AnalysisRequest struct {
	DateRangeRequest
	Countries   []string `json:"countries" query:"country" validate:"omitempty,max=100,dive,country"`
	Granularity string   `json:"granularity" query:"granularity" validate:"omitempty,oneof=W M Q Y w m q y week month quarter year weekly monthly quarterly yearly"`
}

// TopProductsRequest bounds the per-country product breakdown
type TopProductsRequest struct {
	AnalysisRequest
	Limit        int `json:"limit" query:"limit" validate:"omitempty,min=1,max=100"`
	MaxCountries int `json:"max_countries" query:"max_countries" validate:"omitempty,min=1,max=250"`
}

// ParetoRequest configures the concentration summary
type ParetoRequest struct {
	AnalysisRequest
	TopFraction float64 `json:"top_fraction" query:"top_fraction" validate:"omitempty,gt=0,lte=1"`
}

// ExportRequest selects an exported report format and view
type ExportRequest struct {
	AnalysisRequest
	Format string `json:"format" query:"format" validate:"omitempty,oneof=xlsx csv json"`
	View   string `json:"view" query:"view" validate:"omitempty,oneof=summary kpis countries products months trend seasonality rfm"`
}

// DatasetLoadRequest replaces the active dataset with a file on the server
type DatasetLoadRequest struct {
	Path        string `json:"path" validate:"required,datafile"`
	SkipOutlier bool   `json:"skip_outlier_filter"`
}

// CleanExportRequest writes the cleaned active dataset to the export directory
type CleanExportRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=csv tsv xlsx json parquet"`
}
