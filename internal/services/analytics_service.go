package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"retailpulse/internal/analytics"
	"retailpulse/internal/config"
	"retailpulse/internal/dataprocessing"
	"retailpulse/internal/exporter"
	"retailpulse/internal/files"
	"retailpulse/internal/infrastructure"
	"retailpulse/pkg/contracts/domain"
	"retailpulse/pkg/contracts/events"
)

// EventPublisher pushes events to connected clients
type EventPublisher interface {
	Publish(ctx context.Context, msgType events.MessageType, data interface{})
}

// Dataset is the active cleaned batch
type Dataset struct {
	Summary      domain.DatasetSummary
	Bounds       analytics.QuantityBounds
	Transactions []domain.Transaction
	// Generation increases with every successful load, so reloading the
	// same file with other cleaning options yields a distinct dataset
	Generation uint64
}

// AnalysisRun is the outcome of one Analyze call
type AnalysisRun struct {
	Analysis *domain.Analysis
	Cached   bool
	Duration time.Duration
}

// LoadOptions overrides the configured cleaning policy for one load
type LoadOptions struct {
	SkipOutlierFilter bool
}

// Option configures an AnalyticsService
type Option func(*AnalyticsService)

// WithPublisher sends dataset and analysis events to p
func WithPublisher(p EventPublisher) Option {
	return func(s *AnalyticsService) { s.publisher = p }
}

// WithTelemetry records spans on tracer and instruments on metrics
func WithTelemetry(tracer trace.Tracer, metrics *infrastructure.AnalyticsMetrics) Option {
	return func(s *AnalyticsService) {
		if tracer != nil {
			s.tracer = tracer
		}
		s.metrics = metrics
	}
}

// AnalyticsService owns the active dataset and serves analyses over it.
// Concurrent identical requests share one computation and finished
// analyses are cached by dataset fingerprint and parameters.
type AnalyticsService struct {
	cfg         *config.Config
	loader      *dataprocessing.Loader
	exporter    *exporter.TransactionExporter
	dataFiles   *files.Discovery
	exportFiles *files.Discovery
	cache       *ResultCache
	group       singleflight.Group
	publisher   EventPublisher
	tracer      trace.Tracer
	metrics     *infrastructure.AnalyticsMetrics
	logger      *slog.Logger

	mu         sync.RWMutex
	dataset    *Dataset
	generation uint64
}

// NewAnalyticsService creates the service; no dataset is loaded yet
func NewAnalyticsService(cfg *config.Config, logger *slog.Logger, opts ...Option) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("service", "analytics"))

	s := &AnalyticsService{
		cfg:         cfg,
		loader:      dataprocessing.NewLoader(logger).WithMaxBytes(cfg.Data.MaxFileBytes),
		exporter:    exporter.NewTransactionExporter(cfg.Paths.ExportDir, logger),
		dataFiles:   files.NewDiscovery(cfg.Paths.DataDir, logger),
		exportFiles: files.NewDiscovery(cfg.Paths.ExportDir, logger),
		tracer:      otel.Tracer(infrastructure.MeterName),
		logger:      logger,
	}
	if cfg.Cache.Enabled && cfg.Cache.MaxEntries > 0 {
		s.cache = NewResultCache(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	}
	for _, opt := range opts {
		opt(s)
	}

	logger.Info("AnalyticsService initialized",
		slog.String("data_dir", cfg.Paths.DataDir),
		slog.String("export_dir", cfg.Paths.ExportDir),
		slog.Bool("cache_enabled", s.cache != nil))
	return s
}

// Close releases background resources
func (s *AnalyticsService) Close() {
	if s.cache != nil {
		s.cache.Stop()
	}
}

// ResolveDataPath maps a request path onto the data directory. Relative
// paths are joined to it and may not escape it; absolute paths must lie
// inside it too.
func (s *AnalyticsService) ResolveDataPath(path string) (string, error) {
	full, err := s.dataFiles.Resolve(path)
	if errors.Is(err, files.ErrOutsideRoot) {
		return "", fmt.Errorf("%w: %s is outside the data directory", ErrPathOutsideDataDir, path)
	}
	return full, err
}

// ListDataFiles lists the loadable files in the data directory, newest first
func (s *AnalyticsService) ListDataFiles(ctx context.Context) ([]files.FileInfo, error) {
	return s.dataFiles.FindDataFiles(ctx)
}

// ListExports lists the files in the export directory, newest first
func (s *AnalyticsService) ListExports(ctx context.Context) ([]files.FileInfo, error) {
	return s.exportFiles.FindFiles(ctx, nil)
}

// ExportFile describes one file in the export directory
func (s *AnalyticsService) ExportFile(name string) (files.FileInfo, error) {
	return s.exportFiles.Stat(name)
}

// LoadDataset reads, validates and cleans path, then makes it the active
// dataset. Cached analyses of the previous dataset are discarded.
func (s *AnalyticsService) LoadDataset(ctx context.Context, path string, opts LoadOptions) (domain.DatasetSummary, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.load", trace.WithAttributes(attribute.String("dataset.path", path)))
	defer span.End()
	start := time.Now()

	fingerprint, err := fingerprintFile(path)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return domain.DatasetSummary{}, err
	}

	table, err := s.loader.Load(ctx, path)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return domain.DatasetSummary{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.DatasetSummary{}, err
	}

	prepared, err := analytics.Prepare(table.Header, table.Rows, s.normalizeOptions(opts))
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "dataset rejected",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return domain.DatasetSummary{}, err
	}
	for i, rowErr := range prepared.RowErrors {
		if i == 5 {
			s.logger.DebugContext(ctx, "further unparseable rows omitted", slog.Int("total", len(prepared.RowErrors)))
			break
		}
		s.logger.DebugContext(ctx, "unparseable row", slog.String("error", rowErr.Error()))
	}

	first, last := analytics.TimeBounds(prepared.Transactions)
	ds := &Dataset{
		Summary: domain.DatasetSummary{
			Source:         path,
			Format:         string(table.Format),
			LoadedAt:       time.Now().UTC(),
			RawRows:        prepared.RawRows,
			Transactions:   len(prepared.Transactions),
			Rejections:     prepared.Rejections,
			Countries:      analytics.AvailableCountries(prepared.Transactions),
			FirstTimestamp: first,
			LastTimestamp:  last,
			Fingerprint:    fingerprint,
		},
		Bounds:       prepared.Bounds,
		Transactions: prepared.Transactions,
	}

	s.mu.Lock()
	s.generation++
	ds.Generation = s.generation
	s.dataset = ds
	s.mu.Unlock()
	if s.cache != nil {
		s.cache.Purge()
	}

	infrastructure.RecordDatasetMetrics(ctx, s.metrics, prepared.RawRows, prepared.Rejections)
	span.SetAttributes(
		attribute.Int("dataset.raw_rows", prepared.RawRows),
		attribute.Int("dataset.transactions", len(prepared.Transactions)),
		attribute.String("dataset.fingerprint", fingerprint),
	)
	s.logger.InfoContext(ctx, "dataset activated",
		slog.String("path", path),
		slog.String("fingerprint", fingerprint),
		slog.Int("raw_rows", prepared.RawRows),
		slog.Int("transactions", len(prepared.Transactions)),
		slog.Int("rejected", prepared.Rejections.Total()),
		slog.Float64("quantity_low", prepared.Bounds.Low),
		slog.Float64("quantity_high", prepared.Bounds.High),
		slog.Duration("duration", time.Since(start)))

	s.publish(ctx, events.MessageTypeDatasetLoaded, events.DatasetLoaded{
		Source:       path,
		Fingerprint:  fingerprint,
		RawRows:      prepared.RawRows,
		Transactions: len(prepared.Transactions),
		Rejected:     prepared.Rejections.Total(),
	})
	return ds.Summary, nil
}

// Dataset returns the active dataset or ErrNoDataset
func (s *AnalyticsService) Dataset() (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, ErrNoDataset
	}
	return s.dataset, nil
}

// Summary describes the active dataset
func (s *AnalyticsService) Summary(ctx context.Context) (domain.DatasetSummary, error) {
	ds, err := s.Dataset()
	if err != nil {
		return domain.DatasetSummary{}, err
	}
	return ds.Summary, nil
}

// Analyze runs every analytics view over the slice of the active dataset q selects
func (s *AnalyticsService) Analyze(ctx context.Context, q Query) (*AnalysisRun, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.analyze")
	defer span.End()
	start := time.Now()

	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	cfg := s.analysisConfig(q)
	key := cacheKey(ds.Summary.Fingerprint, ds.Generation, cfg)
	span.SetAttributes(
		attribute.String("analysis.granularity", string(cfg.Granularity)),
		attribute.StringSlice("analysis.countries", cfg.Filter.Countries),
	)

	if s.cache != nil {
		if a, ok := s.cache.Get(key); ok {
			run := &AnalysisRun{Analysis: a, Cached: true, Duration: time.Since(start)}
			infrastructure.RecordAnalysisMetrics(ctx, s.metrics, cfg.Granularity, run.Duration, true, len(a.Warnings), nil)
			span.SetAttributes(attribute.Bool("analysis.cached", true))
			return run, nil
		}
	}

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, err := analytics.Analyze(ds.Transactions, cfg)
		if err != nil {
			return nil, err
		}
		a.RunID = uuid.NewString()
		a.GeneratedAt = time.Now().UTC()
		if s.cache != nil {
			s.cache.Set(key, a)
		}
		return a, nil
	})
	duration := time.Since(start)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		infrastructure.RecordAnalysisMetrics(ctx, s.metrics, cfg.Granularity, duration, false, 0, err)
		s.logger.ErrorContext(ctx, "analysis failed",
			slog.String("fingerprint", ds.Summary.Fingerprint),
			slog.String("error", err.Error()))
		s.publish(ctx, events.MessageTypeAnalysisFailed, events.AnalysisFailed{
			Fingerprint: ds.Summary.Fingerprint,
			Error:       err.Error(),
		})
		return nil, err
	}

	a := v.(*domain.Analysis)
	run := &AnalysisRun{Analysis: a, Cached: shared, Duration: duration}
	infrastructure.RecordAnalysisMetrics(ctx, s.metrics, cfg.Granularity, duration, shared, len(a.Warnings), nil)
	span.SetAttributes(
		attribute.String("analysis.run_id", a.RunID),
		attribute.Int("analysis.transactions", a.Transactions),
		attribute.Int("analysis.warnings", len(a.Warnings)),
	)
	if shared {
		return run, nil
	}

	s.logger.InfoContext(ctx, "analysis completed",
		slog.String("run_id", a.RunID),
		slog.String("granularity", string(cfg.Granularity)),
		slog.Int("transactions", a.Transactions),
		slog.Int("warnings", len(a.Warnings)),
		slog.Duration("duration", duration))
	s.publish(ctx, events.MessageTypeAnalysisComplete, events.AnalysisCompleted{
		RunID:        a.RunID,
		Fingerprint:  ds.Summary.Fingerprint,
		Granularity:  string(cfg.Granularity),
		Countries:    a.Params.Countries,
		Transactions: a.Transactions,
		TotalRevenue: a.KPIs.TotalRevenue.StringFixed(2),
		Warnings:     a.Warnings,
		DurationMS:   duration.Milliseconds(),
		CompletedAt:  a.GeneratedAt,
	})
	return run, nil
}

// ParetoSummary is the product concentration curve with its top-share figure
type ParetoSummary struct {
	Curve    domain.ParetoCurve     `json:"curve"`
	TopShare domain.TopShareSummary `json:"top_share"`
}

// Pareto computes product revenue concentration. Unlike Analyze it fails
// with ErrDivisionByZero when the selection has no revenue.
func (s *AnalyticsService) Pareto(ctx context.Context, q Query) (*ParetoSummary, error) {
	run, err := s.Analyze(ctx, q)
	if err != nil {
		return nil, err
	}
	products := run.Analysis.Products
	curve, err := analytics.Pareto(products)
	if err != nil {
		return nil, err
	}
	share, err := analytics.TopShare(products, s.analysisConfig(q).TopFraction)
	if err != nil {
		return nil, err
	}
	return &ParetoSummary{Curve: curve, TopShare: share}, nil
}

// TopProductsByCountry ranks products within each selected country. Unlike
// Analyze it fails when the selection is empty or spans more countries than
// the breakdown limit.
func (s *AnalyticsService) TopProductsByCountry(ctx context.Context, q Query) ([]domain.CountryProducts, error) {
	_, span := s.tracer.Start(ctx, "analytics.top_products_by_country")
	defer span.End()

	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	cfg := s.analysisConfig(q)
	sales := analytics.PartitionTransactions(cfg.Filter.Apply(ds.Transactions)).Sales
	if len(sales) == 0 {
		return nil, fmt.Errorf("no sales match the filter: %w", analytics.ErrEmptyPopulation)
	}
	return analytics.TopProductsByCountry(sales, cfg.TopProductsPerCountry, cfg.MaxCountryBreakdown)
}

// ExportCleanDataset writes the active transactions to the export directory.
// An empty format reuses the source file's format.
func (s *AnalyticsService) ExportCleanDataset(ctx context.Context, format string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.export_clean")
	defer span.End()

	ds, err := s.Dataset()
	if err != nil {
		return "", err
	}

	var path string
	if format == "" {
		format = ds.Summary.Format
		path, err = s.exporter.Export(ctx, ds.Summary.Source, ds.Transactions)
	} else {
		name := exporter.CleanFileName(ds.Summary.Source)
		name = strings.TrimSuffix(name, filepath.Ext(name)) + "." + format
		path, err = s.exporter.ExportAs(ctx, name, dataprocessing.Format(format), ds.Transactions)
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return "", err
	}
	infrastructure.RecordExport(ctx, s.metrics, format)
	return path, nil
}

// WriteReport analyzes q and streams the report to w
func (s *AnalyticsService) WriteReport(ctx context.Context, w io.Writer, q Query, format, view string) (*AnalysisRun, error) {
	run, err := s.Analyze(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := exporter.WriteReport(w, run.Analysis, format, view); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	if format == "" {
		format = exporter.ReportXLSX
	}
	infrastructure.RecordExport(ctx, s.metrics, "report_"+format)
	return run, nil
}

// CacheStats reports the result cache state; ok is false when caching is off
func (s *AnalyticsService) CacheStats() (stats CacheStats, ok bool) {
	if s.cache == nil {
		return CacheStats{}, false
	}
	return s.cache.Stats(), true
}

func (s *AnalyticsService) normalizeOptions(opts LoadOptions) analytics.NormalizeOptions {
	return analytics.NormalizeOptions{
		CancellationPrefix: s.cfg.Data.CancellationPrefix,
		OutlierLow:         s.cfg.Data.OutlierLow,
		OutlierHigh:        s.cfg.Data.OutlierHigh,
		SkipOutlierFilter:  s.cfg.Data.SkipOutlierFilter || opts.SkipOutlierFilter,
	}
}

// analysisConfig applies configured defaults to q
func (s *AnalyticsService) analysisConfig(q Query) analytics.Config {
	cfg := analytics.DefaultConfig()
	ac := s.cfg.Analysis

	cfg.Filter = analytics.Filter{Start: q.Start, End: q.End, Countries: q.canonicalCountries()}
	cfg.Granularity = q.Granularity
	if cfg.Granularity == "" {
		if g, err := analytics.ParseGranularity(ac.DefaultGranularity); err == nil {
			cfg.Granularity = g
		}
	}
	cfg.TopProductsPerCountry = firstPositive(q.TopProductsPerCountry, ac.TopProductsPerCountry, cfg.TopProductsPerCountry)
	cfg.MaxCountryBreakdown = firstPositive(q.MaxCountryBreakdown, ac.MaxCountryBreakdown, cfg.MaxCountryBreakdown)
	switch {
	case q.TopFraction > 0:
		cfg.TopFraction = q.TopFraction
	case ac.TopFraction > 0:
		cfg.TopFraction = ac.TopFraction
	}
	if ac.RFMMinCustomers > 0 {
		cfg.RFM.MinCustomers = ac.RFMMinCustomers
	}
	return cfg
}

func (s *AnalyticsService) publish(ctx context.Context, msgType events.MessageType, data interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, msgType, data)
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// fingerprintFile hashes the file content with BLAKE2b-256
func fingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
