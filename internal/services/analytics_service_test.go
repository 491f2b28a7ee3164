package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"retailpulse/internal/analytics"
	"retailpulse/internal/config"
	"retailpulse/internal/dataprocessing"
	"retailpulse/internal/files"
	"retailpulse/internal/shared/testutil"
	"retailpulse/pkg/contracts/events"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, msgType events.MessageType, data interface{}) {
	m.Called(ctx, msgType, data)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = dir
	cfg.Paths.ExportDir = filepath.Join(dir, "exports")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")
	cfg.OTel.Enabled = false
	return cfg
}

// loadedService returns a service with the retail fixture active
func loadedService(t *testing.T, opts ...Option) (*AnalyticsService, *config.Config) {
	t.Helper()
	cfg := testConfig(t)
	logger, _ := testutil.NewTestLogger(t)
	svc := NewAnalyticsService(cfg, logger, opts...)
	t.Cleanup(svc.Close)

	path := testutil.WriteRetailCSV(t, cfg.Paths.DataDir, "retail.csv")
	_, err := svc.LoadDataset(context.Background(), path, LoadOptions{SkipOutlierFilter: true})
	require.NoError(t, err)
	return svc, cfg
}

func TestLoadDataset(t *testing.T) {
	svc, cfg := loadedService(t)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Paths.DataDir, "retail.csv"), summary.Source)
	assert.Equal(t, "csv", summary.Format)
	assert.Equal(t, testutil.RetailRawRows, summary.RawRows)
	assert.Equal(t, testutil.RetailTransactions, summary.Transactions)
	assert.Equal(t, testutil.RetailRejected, summary.Rejections.Total())
	assert.Equal(t, 1, summary.Rejections.Duplicate)
	assert.Equal(t, 1, summary.Rejections.MissingCustomer)
	assert.Equal(t, 1, summary.Rejections.NonPositivePrice)
	assert.Equal(t, []string{"France", "Germany", "United Kingdom"}, summary.Countries)
	assert.Len(t, summary.Fingerprint, 64)
	assert.False(t, summary.LoadedAt.IsZero())
}

func TestLoadDataset_SameContentSameFingerprint(t *testing.T) {
	svc, cfg := loadedService(t)
	first, err := svc.Summary(context.Background())
	require.NoError(t, err)

	copyPath := testutil.WriteRetailCSV(t, cfg.Paths.DataDir, "copy.csv")
	second, err := svc.LoadDataset(context.Background(), copyPath, LoadOptions{SkipOutlierFilter: true})
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, copyPath, second.Source)
}

func TestLoadDataset_Errors(t *testing.T) {
	cfg := testConfig(t)
	svc := NewAnalyticsService(cfg, nil)
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.LoadDataset(ctx, filepath.Join(cfg.Paths.DataDir, "missing.csv"), LoadOptions{})
	assert.Error(t, err)

	noCountry := filepath.Join(cfg.Paths.DataDir, "no_country.csv")
	require.NoError(t, os.WriteFile(noCountry, []byte(
		"InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID\n"+
			"536365,85123A,WHITE HANGING HEART,6,2011-01-03 09:30:00,2.55,17850\n"), 0644))
	_, err = svc.LoadDataset(ctx, noCountry, LoadOptions{})
	var schemaErr *analytics.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Missing, "country")

	_, err = svc.Summary(ctx)
	assert.ErrorIs(t, err, ErrNoDataset)

	cfg.Data.MaxFileBytes = 16
	small := NewAnalyticsService(cfg, nil)
	defer small.Close()
	path := testutil.WriteRetailCSV(t, cfg.Paths.DataDir, "retail.csv")
	_, err = small.LoadDataset(ctx, path, LoadOptions{})
	assert.ErrorIs(t, err, dataprocessing.ErrFileTooLarge)
}

func TestResolveDataPath(t *testing.T) {
	cfg := testConfig(t)
	svc := NewAnalyticsService(cfg, nil)
	defer svc.Close()

	root, err := filepath.Abs(cfg.Paths.DataDir)
	require.NoError(t, err)

	got, err := svc.ResolveDataPath("batches/retail.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "batches", "retail.csv"), got)

	got, err = svc.ResolveDataPath(filepath.Join(root, "retail.csv"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "retail.csv"), got)

	for _, p := range []string{"../secret.csv", "batches/../../secret.csv", filepath.Join(filepath.Dir(root), "other.csv")} {
		_, err := svc.ResolveDataPath(p)
		assert.ErrorIs(t, err, ErrPathOutsideDataDir, p)
	}
}

func TestAnalyze(t *testing.T) {
	svc, _ := loadedService(t)
	ctx := context.Background()

	run, err := svc.Analyze(ctx, Query{})
	require.NoError(t, err)
	assert.False(t, run.Cached)

	a := run.Analysis
	assert.NotEmpty(t, a.RunID)
	assert.False(t, a.GeneratedAt.IsZero())
	assert.Equal(t, testutil.RetailTransactions, a.Transactions)
	assert.Equal(t, testutil.RetailSalesRevenue, a.KPIs.TotalRevenue.StringFixed(2))
	assert.Equal(t, testutil.RetailSaleOrders, a.KPIs.Orders)
	assert.Equal(t, testutil.RetailCustomers, a.KPIs.Customers)
	assert.Equal(t, 1, a.KPIs.Cancellations)

	require.Len(t, a.CountryRevenue, 3)
	assert.Equal(t, "United Kingdom", a.CountryRevenue[0].Country)
	assert.Equal(t, "46.10", a.CountryRevenue[0].Revenue.StringFixed(2))
	assert.Equal(t, "Germany", a.CountryRevenue[1].Country)
	assert.Equal(t, "France", a.CountryRevenue[2].Country)

	again, err := svc.Analyze(ctx, Query{})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, a.RunID, again.Analysis.RunID)

	stats, ok := svc.CacheStats()
	require.True(t, ok)
	assert.Equal(t, 1, stats.Entries)
	assert.EqualValues(t, 1, stats.Hits)
}

func TestAnalyze_FilterAndWarnings(t *testing.T) {
	svc, _ := loadedService(t)
	ctx := context.Background()

	france, err := svc.Analyze(ctx, Query{Countries: []string{"France"}})
	require.NoError(t, err)
	assert.Equal(t, "18.70", france.Analysis.KPIs.TotalRevenue.StringFixed(2))
	assert.Equal(t, 2, france.Analysis.KPIs.Orders)

	nowhere, err := svc.Analyze(ctx, Query{Countries: []string{"Narnia"}})
	require.NoError(t, err)
	assert.Zero(t, nowhere.Analysis.Transactions)
	assert.NotEmpty(t, nowhere.Analysis.Warnings)
}

func TestAnalyze_NoDataset(t *testing.T) {
	svc := NewAnalyticsService(testConfig(t), nil)
	defer svc.Close()

	_, err := svc.Analyze(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrNoDataset)
	_, err = svc.TopProductsByCountry(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrNoDataset)
	_, err = svc.ExportCleanDataset(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestAnalyze_CacheDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = false
	svc := NewAnalyticsService(cfg, nil)
	defer svc.Close()

	path := testutil.WriteRetailCSV(t, cfg.Paths.DataDir, "retail.csv")
	_, err := svc.LoadDataset(context.Background(), path, LoadOptions{SkipOutlierFilter: true})
	require.NoError(t, err)

	first, err := svc.Analyze(context.Background(), Query{})
	require.NoError(t, err)
	second, err := svc.Analyze(context.Background(), Query{})
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.NotEqual(t, first.Analysis.RunID, second.Analysis.RunID)

	_, ok := svc.CacheStats()
	assert.False(t, ok)
}

func TestLoadDataset_PurgesCache(t *testing.T) {
	svc, cfg := loadedService(t)
	ctx := context.Background()

	_, err := svc.Analyze(ctx, Query{})
	require.NoError(t, err)

	path := testutil.WriteRetailCSV(t, cfg.Paths.DataDir, "again.csv")
	_, err = svc.LoadDataset(ctx, path, LoadOptions{SkipOutlierFilter: true})
	require.NoError(t, err)

	stats, ok := svc.CacheStats()
	require.True(t, ok)
	assert.Equal(t, 0, stats.Entries)
}

func TestLoadDataset_ReloadIgnoresStaleResults(t *testing.T) {
	svc, _ := loadedService(t)
	ctx := context.Background()

	before, err := svc.Dataset()
	require.NoError(t, err)
	first, err := svc.Analyze(ctx, Query{})
	require.NoError(t, err)

	_, err = svc.LoadDataset(ctx, before.Summary.Source, LoadOptions{})
	require.NoError(t, err)
	after, err := svc.Dataset()
	require.NoError(t, err)
	assert.Equal(t, before.Summary.Fingerprint, after.Summary.Fingerprint)
	assert.Equal(t, before.Generation+1, after.Generation)

	// an analysis of the previous load finishing after the reload
	svc.cache.Set(cacheKey(before.Summary.Fingerprint, before.Generation, svc.analysisConfig(Query{})), first.Analysis)

	second, err := svc.Analyze(ctx, Query{})
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.NotEqual(t, first.Analysis.RunID, second.Analysis.RunID)
}

func TestAnalyticsService_PublishesEvents(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, events.MessageTypeDatasetLoaded, mock.AnythingOfType("events.DatasetLoaded")).Once()
	pub.On("Publish", mock.Anything, events.MessageTypeAnalysisComplete, mock.AnythingOfType("events.AnalysisCompleted")).Once()

	svc, _ := loadedService(t, WithPublisher(pub))
	_, err := svc.Analyze(context.Background(), Query{})
	require.NoError(t, err)
	_, err = svc.Analyze(context.Background(), Query{})
	require.NoError(t, err)

	pub.AssertExpectations(t)
	loaded := pub.Calls[0].Arguments.Get(2).(events.DatasetLoaded)
	assert.Equal(t, testutil.RetailTransactions, loaded.Transactions)
	assert.Equal(t, testutil.RetailRejected, loaded.Rejected)
	completed := pub.Calls[1].Arguments.Get(2).(events.AnalysisCompleted)
	assert.Equal(t, testutil.RetailSalesRevenue, completed.TotalRevenue)
	assert.Equal(t, "month", completed.Granularity)
}

func TestPareto(t *testing.T) {
	svc, _ := loadedService(t)
	ctx := context.Background()

	summary, err := svc.Pareto(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, testutil.RetailSalesRevenue, summary.Curve.Total.StringFixed(2))
	require.Len(t, summary.Curve.Points, 8)
	assert.InDelta(t, 100.0, summary.Curve.Points[7].CumulativePct, 1e-6)
	assert.Equal(t, 8, summary.TopShare.Items)
	assert.Equal(t, 2, summary.TopShare.TopItems)

	_, err = svc.Pareto(ctx, Query{Countries: []string{"Narnia"}})
	assert.ErrorIs(t, err, analytics.ErrDivisionByZero)
}

func TestTopProductsByCountry(t *testing.T) {
	svc, _ := loadedService(t)
	ctx := context.Background()

	breakdown, err := svc.TopProductsByCountry(ctx, Query{TopProductsPerCountry: 1})
	require.NoError(t, err)
	require.Len(t, breakdown, 3)
	assert.Equal(t, "United Kingdom", breakdown[0].Country)
	require.Len(t, breakdown[0].Products, 1)
	assert.Equal(t, "20.34", breakdown[0].Products[0].Value.StringFixed(2))

	_, err = svc.TopProductsByCountry(ctx, Query{MaxCountryBreakdown: 2})
	assert.ErrorIs(t, err, analytics.ErrCapacityExceeded)

	_, err = svc.TopProductsByCountry(ctx, Query{Countries: []string{"Narnia"}})
	assert.ErrorIs(t, err, analytics.ErrEmptyPopulation)
}

func TestExportCleanDataset(t *testing.T) {
	svc, cfg := loadedService(t)
	ctx := context.Background()

	path, err := svc.ExportCleanDataset(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "retail_clean.csv", filepath.Base(path))
	assert.True(t, strings.HasPrefix(path, cfg.Paths.ExportDir))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, testutil.RetailTransactions+1)

	jsonPath, err := svc.ExportCleanDataset(ctx, "json")
	require.NoError(t, err)
	assert.Equal(t, "retail_clean.json", filepath.Base(jsonPath))
	assert.FileExists(t, jsonPath)
}

func TestWriteReport(t *testing.T) {
	svc, _ := loadedService(t)

	var buf bytes.Buffer
	run, err := svc.WriteReport(context.Background(), &buf, Query{}, "csv", "countries")
	require.NoError(t, err)
	require.NotNil(t, run.Analysis)
	assert.Contains(t, buf.String(), "United Kingdom")

	buf.Reset()
	_, err = svc.WriteReport(context.Background(), &buf, Query{}, "pdf", "")
	assert.Error(t, err)
}

func TestDataAndExportFiles(t *testing.T) {
	svc, _ := loadedService(t)
	ctx := context.Background()

	available, err := svc.ListDataFiles(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "retail.csv", available[0].Name)
	assert.Equal(t, "csv", available[0].Format)

	exports, err := svc.ListExports(ctx)
	require.NoError(t, err)
	assert.Empty(t, exports)

	path, err := svc.ExportCleanDataset(ctx, "parquet")
	require.NoError(t, err)

	exports, err = svc.ListExports(ctx)
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, filepath.Base(path), exports[0].Name)

	info, err := svc.ExportFile("retail_clean.parquet")
	require.NoError(t, err)
	assert.Equal(t, path, info.Path)

	_, err = svc.ExportFile("../retail.csv")
	assert.ErrorIs(t, err, files.ErrOutsideRoot)
}
