package http

import (
	"context"
	"io"

	"retailpulse/internal/files"
	"retailpulse/internal/services"
	"retailpulse/pkg/contracts/domain"
)

// AnalyticsService is what the analytics routes need from the service layer
type AnalyticsService interface {
	Analyze(ctx context.Context, q services.Query) (*services.AnalysisRun, error)
	Pareto(ctx context.Context, q services.Query) (*services.ParetoSummary, error)
	TopProductsByCountry(ctx context.Context, q services.Query) ([]domain.CountryProducts, error)
	WriteReport(ctx context.Context, w io.Writer, q services.Query, format, view string) (*services.AnalysisRun, error)
}

// DatasetService is what the dataset routes need from the service layer
type DatasetService interface {
	Summary(ctx context.Context) (domain.DatasetSummary, error)
	ResolveDataPath(path string) (string, error)
	LoadDataset(ctx context.Context, path string, opts services.LoadOptions) (domain.DatasetSummary, error)
	ExportCleanDataset(ctx context.Context, format string) (string, error)
	ListDataFiles(ctx context.Context) ([]files.FileInfo, error)
	ListExports(ctx context.Context) ([]files.FileInfo, error)
	ExportFile(name string) (files.FileInfo, error)
}

var (
	_ AnalyticsService = (*services.AnalyticsService)(nil)
	_ DatasetService   = (*services.AnalyticsService)(nil)
)
