package api

import (
	"time"

	"retailpulse/pkg/contracts/domain"
)

// AnalysisMeta identifies the analysis run a view was taken from
type AnalysisMeta struct {
	RunID       string                `json:"run_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	Cached      bool                  `json:"cached"`
	Params      domain.AnalysisParams `json:"params"`
	Warnings    []string              `json:"warnings,omitempty"`
}

// ViewResponse wraps one analytics view. Meta is absent for views computed
// outside a full analysis run.
type ViewResponse struct {
	Meta *AnalysisMeta `json:"meta,omitempty"`
	Data interface{}   `json:"data"`
}

// KPIView is the headline dashboard
type KPIView struct {
	KPIs        domain.KPIs            `json:"kpis"`
	ReturnRates domain.ReturnRates     `json:"return_rates"`
	Partition   domain.PartitionCounts `json:"partition"`
}

// CancellationView breaks cancellations down by country
type CancellationView struct {
	Invoices  int                      `json:"invoices"`
	Units     int64                    `json:"units"`
	Value     string                   `json:"value"`
	ByCountry domain.AggregationResult `json:"by_country"`
}

// MonthsView lists months by revenue with summary statistics
type MonthsView struct {
	Months   []domain.MonthStat   `json:"months"`
	Temporal domain.TemporalStats `json:"temporal"`
}

// CleanExportResponse reports where the cleaned dataset was written
type CleanExportResponse struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

// ClientLogRequest is a log line forwarded by the dashboard
type ClientLogRequest struct {
	Level   string                 `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message string                 `json:"message" validate:"required,max=2000"`
	Source  string                 `json:"source,omitempty" validate:"max=200"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// FileListResponse lists files in the data or export directory
type FileListResponse struct {
	Files interface{} `json:"files"`
	Count int         `json:"count"`
}
