package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Loader reads transaction tables from files
type Loader struct {
	logger   *slog.Logger
	maxBytes int64
}

// NewLoader creates a loader; a nil logger falls back to slog.Default
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "loader"))}
}

// WithMaxBytes rejects files larger than n bytes; zero disables the limit
func (l *Loader) WithMaxBytes(n int64) *Loader {
	l.maxBytes = n
	return l
}

// Load reads path with the reader matching its extension
func (l *Loader) Load(ctx context.Context, path string) (*Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if l.maxBytes > 0 && info.Size() > l.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, path, info.Size(), l.maxBytes)
	}

	start := time.Now()
	l.logger.InfoContext(ctx, "loading dataset",
		slog.String("path", path),
		slog.String("format", string(format)))

	var table *Table
	switch format {
	case FormatCSV:
		table, err = readDelimitedFile(path, ',')
	case FormatTSV:
		table, err = readDelimitedFile(path, '\t')
	case FormatExcel:
		table, err = l.readExcel(ctx, path)
	case FormatJSON:
		table, err = readJSONFile(path)
	case FormatParquet:
		table, err = readParquetFile(path)
	}
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to load dataset",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, err
	}

	table.Source = path
	table.Format = format
	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", path),
		slog.Int("columns", len(table.Header)),
		slog.Int("rows", table.Len()),
		slog.Duration("duration", time.Since(start)))
	return table, nil
}
