package dataprocessing

import (
	"fmt"
	"strconv"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

// ParquetRecord is the columnar schema for transaction files. Decimals and
// timestamps are stored as text to keep them exact.
type ParquetRecord struct {
	InvoiceID        string `parquet:"name=invoice_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	CustomerID       string `parquet:"name=customer_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ProductCode      string `parquet:"name=product_code, type=BYTE_ARRAY, convertedtype=UTF8"`
	Description      string `parquet:"name=description, type=BYTE_ARRAY, convertedtype=UTF8"`
	Quantity         int64  `parquet:"name=quantity, type=INT64"`
	UnitPrice        string `parquet:"name=unit_price, type=BYTE_ARRAY, convertedtype=UTF8"`
	InvoiceTimestamp string `parquet:"name=invoice_timestamp, type=BYTE_ARRAY, convertedtype=UTF8"`
	Country          string `parquet:"name=country, type=BYTE_ARRAY, convertedtype=UTF8"`
	Revenue          string `parquet:"name=revenue, type=BYTE_ARRAY, convertedtype=UTF8"`
	IsCancellation   bool   `parquet:"name=is_cancellation, type=BOOLEAN"`
}

// ParquetHeader names the ParquetRecord columns in field order
var ParquetHeader = []string{
	"invoice_id", "customer_id", "product_code", "description", "quantity",
	"unit_price", "invoice_timestamp", "country", "revenue", "is_cancellation",
}

// Cells renders the record in ParquetHeader order
func (r ParquetRecord) Cells() []string {
	return []string{
		r.InvoiceID,
		r.CustomerID,
		r.ProductCode,
		r.Description,
		strconv.FormatInt(r.Quantity, 10),
		r.UnitPrice,
		r.InvoiceTimestamp,
		r.Country,
		r.Revenue,
		strconv.FormatBool(r.IsCancellation),
	}
}

func readParquetFile(path string) (*Table, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(ParquetRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet schema: %w", err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	if n == 0 {
		return nil, ErrEmptyFile
	}
	records := make([]ParquetRecord, n)
	if err := pr.Read(&records); err != nil {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}

	rows := make([][]string, n)
	for i, rec := range records {
		rows[i] = rec.Cells()
	}
	header := make([]string, len(ParquetHeader))
	copy(header, ParquetHeader)
	return &Table{Header: header, Rows: rows}, nil
}
