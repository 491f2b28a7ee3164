// Command analyze runs one analysis over a transaction file and prints the
// result as JSON. It can also write a report file and the cleaned dataset.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"retailpulse/internal/config"
	"retailpulse/internal/exporter"
	"retailpulse/internal/infrastructure"
	"retailpulse/internal/services"
	api "retailpulse/pkg/contracts/api/v1"
)

// countryList collects repeated -country flags; each value may also hold a comma separated list
type countryList []string

func (c *countryList) String() string { return strings.Join(*c, ",") }

func (c *countryList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*c = append(*c, part)
		}
	}
	return nil
}

type options struct {
	configPath   string
	input        string
	start        string
	end          string
	countries    countryList
	granularity  string
	out          string
	format       string
	view         string
	skipOutliers bool
	exportClean  string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var opts options
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (defaults to RETAIL_CONFIG or ./config.yaml)")
	fs.StringVar(&opts.input, "input", "", "transaction file: .csv, .txt, .xlsx, .json or .parquet (defaults to data.source_path)")
	fs.StringVar(&opts.start, "start", "", "first day included, YYYY-MM-DD")
	fs.StringVar(&opts.end, "end", "", "last day included, YYYY-MM-DD")
	fs.Var(&opts.countries, "country", "country to include; repeat or comma separate, empty or \"all\" selects every country")
	fs.StringVar(&opts.granularity, "granularity", "", "trend granularity: W, M, Q or Y")
	fs.StringVar(&opts.out, "out", "", "write the report to this file")
	fs.StringVar(&opts.format, "format", "", "report format: xlsx, csv or json (defaults to the -out extension)")
	fs.StringVar(&opts.view, "view", "", "single view for csv and json output: summary, kpis, countries, products, months, trend, seasonality or rfm")
	fs.BoolVar(&opts.skipOutliers, "skip-outlier-filter", false, "keep rows outside the quantity percentile band")
	fs.StringVar(&opts.exportClean, "export-clean", "", "also write the cleaned dataset in this format: csv, tsv, xlsx, json or parquet")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.out != "" && opts.format == "" {
		opts.format = strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.out)), ".")
	}
	switch opts.format {
	case "", exporter.ReportXLSX, exporter.ReportCSV, exporter.ReportJSON:
	default:
		return nil, fmt.Errorf("unsupported report format %q", opts.format)
	}
	return &opts, nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "analyze:", err)
		os.Exit(1)
	}
}

// run is main without process exits; logs go to stderr and the JSON result to stdout
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	var cfg *config.Config
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	// No result cache for a single run
	cfg.Cache.Enabled = false

	logger := infrastructure.NewLogger(cfg.Logging, stderr)
	svc := services.NewAnalyticsService(cfg, logger)
	defer svc.Close()

	input := opts.input
	if input == "" {
		input = cfg.Data.SourcePath
	}
	if input == "" {
		return errors.New("no input file: pass -input or set data.source_path")
	}

	summary, err := svc.LoadDataset(ctx, input, services.LoadOptions{
		SkipOutlierFilter: opts.skipOutliers || cfg.Data.SkipOutlierFilter,
	})
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "dataset loaded",
		slog.String("input", input),
		slog.Int("raw_rows", summary.RawRows),
		slog.Int("transactions", summary.Transactions),
		slog.Int("rejected", summary.Rejections.Total()))

	q, err := services.NewQuery(api.AnalysisRequest{
		DateRangeRequest: api.DateRangeRequest{Start: opts.start, End: opts.end},
		Countries:        opts.countries,
		Granularity:      opts.granularity,
	})
	if err != nil {
		return err
	}

	if opts.exportClean != "" {
		path, err := svc.ExportCleanDataset(ctx, opts.exportClean)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "cleaned dataset written", slog.String("path", path))
	}

	run, err := svc.Analyze(ctx, q)
	if err != nil {
		return err
	}
	for _, w := range run.Analysis.Warnings {
		logger.WarnContext(ctx, "analysis warning", slog.String("warning", w))
	}

	if opts.out != "" {
		if err := writeReportFile(opts.out, func(w io.Writer) error {
			return exporter.WriteReport(w, run.Analysis, opts.format, opts.view)
		}); err != nil {
			return err
		}
		logger.InfoContext(ctx, "report written",
			slog.String("path", opts.out),
			slog.String("format", opts.format))
	}

	return exporter.WriteReport(stdout, run.Analysis, exporter.ReportJSON, opts.view)
}

func writeReportFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
