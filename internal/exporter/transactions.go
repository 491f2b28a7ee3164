package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"github.com/xuri/excelize/v2"

	"retailpulse/internal/dataprocessing"
	"retailpulse/pkg/contracts/domain"
)

// CleanSuffix is appended to the source file name of an exported batch
const CleanSuffix = "_clean"

const transactionsSheet = "Transactions"

// TransactionHeader is the column order of every tabular transaction export
var TransactionHeader = dataprocessing.ParquetHeader

// TransactionExporter writes cleaned transactions next to a configured export directory
type TransactionExporter struct {
	dir    string
	csv    *CSVWriter
	logger *slog.Logger
}

// NewTransactionExporter creates an exporter rooted at dir
func NewTransactionExporter(dir string, logger *slog.Logger) *TransactionExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionExporter{
		dir:    dir,
		csv:    NewCSVWriter(dir, logger),
		logger: logger,
	}
}

// CleanFileName derives the output name for a source file: "retail.xlsx" becomes "retail_clean.xlsx"
func CleanFileName(source string) string {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + CleanSuffix + ext
}

// Export saves txs in the same format as source and returns the written path
func (e *TransactionExporter) Export(ctx context.Context, source string, txs []domain.Transaction) (string, error) {
	format, err := dataprocessing.DetectFormat(source)
	if err != nil {
		return "", err
	}
	return e.ExportAs(ctx, CleanFileName(source), format, txs)
}

// ExportAs saves txs under name in the given format
func (e *TransactionExporter) ExportAs(ctx context.Context, name string, format dataprocessing.Format, txs []domain.Transaction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := e.csv.resolvePath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	start := time.Now()
	var err error
	switch format {
	case dataprocessing.FormatCSV:
		_, err = e.csv.WriteCSV(path, WriteOptions{Headers: TransactionHeader, Records: TransactionRecords(txs), BOMPrefix: true})
	case dataprocessing.FormatTSV:
		_, err = e.csv.WriteCSV(path, WriteOptions{Headers: TransactionHeader, Records: TransactionRecords(txs), Comma: '\t'})
	case dataprocessing.FormatExcel:
		err = writeTransactionsExcel(path, txs)
	case dataprocessing.FormatJSON:
		err = writeTransactionsJSON(path, txs)
	case dataprocessing.FormatParquet:
		err = writeTransactionsParquet(path, txs)
	default:
		err = fmt.Errorf("%w: %q", dataprocessing.ErrUnsupportedFormat, format)
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "transaction export failed",
			slog.String("path", path),
			slog.String("format", string(format)),
			slog.String("error", err.Error()))
		return "", err
	}

	e.logger.InfoContext(ctx, "transactions exported",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int("rows", len(txs)),
		slog.Duration("duration", time.Since(start)))
	return path, nil
}

// ToParquetRecord converts a transaction into its columnar form
func ToParquetRecord(tx domain.Transaction) dataprocessing.ParquetRecord {
	return dataprocessing.ParquetRecord{
		InvoiceID:        tx.InvoiceID,
		CustomerID:       tx.CustomerID,
		ProductCode:      tx.ProductCode,
		Description:      tx.Description,
		Quantity:         tx.Quantity,
		UnitPrice:        tx.UnitPrice.String(),
		InvoiceTimestamp: tx.InvoiceTimestamp.UTC().Format(time.RFC3339),
		Country:          tx.Country,
		Revenue:          formatMoney(tx.Revenue),
		IsCancellation:   tx.IsCancellation,
	}
}

// TransactionRecords renders txs as string rows in TransactionHeader order
func TransactionRecords(txs []domain.Transaction) [][]string {
	records := make([][]string, len(txs))
	for i, tx := range txs {
		records[i] = ToParquetRecord(tx).Cells()
	}
	return records
}

func writeTransactionsParquet(path string, txs []domain.Transaction) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(dataprocessing.ParquetRecord), 1)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, tx := range txs {
		rec := ToParquetRecord(tx)
		if err := pw.Write(&rec); err != nil {
			_ = pw.WriteStop()
			return fmt.Errorf("failed to write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

func writeTransactionsJSON(path string, txs []domain.Transaction) error {
	rows := make([]map[string]any, len(txs))
	for i, tx := range txs {
		rows[i] = map[string]any{
			"invoice_id":        tx.InvoiceID,
			"customer_id":       tx.CustomerID,
			"product_code":      tx.ProductCode,
			"description":       tx.Description,
			"quantity":          tx.Quantity,
			"unit_price":        tx.UnitPrice.String(),
			"invoice_timestamp": tx.InvoiceTimestamp.UTC().Format(time.RFC3339),
			"country":           tx.Country,
			"revenue":           formatMoney(tx.Revenue),
			"is_cancellation":   tx.IsCancellation,
		}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transactions: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write json file: %w", err)
	}
	return nil
}

func writeTransactionsExcel(path string, txs []domain.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(transactionsSheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}
	if err := sw.SetRow("A1", stringsToCells(TransactionHeader)); err != nil {
		return err
	}
	for i, tx := range txs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			tx.InvoiceID,
			tx.CustomerID,
			tx.ProductCode,
			tx.Description,
			tx.Quantity,
			tx.UnitPrice.InexactFloat64(),
			tx.InvoiceTimestamp.UTC().Format(timestampLayout),
			tx.Country,
			tx.Revenue.InexactFloat64(),
			tx.IsCancellation,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func stringsToCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
