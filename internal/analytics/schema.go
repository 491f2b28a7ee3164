package analytics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailpulse/pkg/contracts/domain"
)

// Canonical column names
const (
	ColInvoiceID        = "invoice_id"
	ColCustomerID       = "customer_id"
	ColProductCode      = "product_code"
	ColDescription      = "description"
	ColQuantity         = "quantity"
	ColUnitPrice        = "unit_price"
	ColInvoiceTimestamp = "invoice_timestamp"
	ColCountry          = "country"
)

// RequiredColumns must be resolvable for a table to bind
var RequiredColumns = []string{
	ColInvoiceID,
	ColCustomerID,
	ColDescription,
	ColQuantity,
	ColUnitPrice,
	ColInvoiceTimestamp,
	ColCountry,
}

// columnAliases maps normalized source names onto canonical names
var columnAliases = map[string]string{
	"invoiceno":         ColInvoiceID,
	"invoice_no":        ColInvoiceID,
	"invoice":           ColInvoiceID,
	"invoice_id":        ColInvoiceID,
	"customerid":        ColCustomerID,
	"customer_id":       ColCustomerID,
	"customer":          ColCustomerID,
	"stockcode":         ColProductCode,
	"stock_code":        ColProductCode,
	"product_code":      ColProductCode,
	"sku":               ColProductCode,
	"description":       ColDescription,
	"product":           ColDescription,
	"product_name":      ColDescription,
	"quantity":          ColQuantity,
	"qty":               ColQuantity,
	"unitprice":         ColUnitPrice,
	"unit_price":        ColUnitPrice,
	"price":             ColUnitPrice,
	"invoicedate":       ColInvoiceTimestamp,
	"invoice_date":      ColInvoiceTimestamp,
	"invoice_timestamp": ColInvoiceTimestamp,
	"timestamp":         ColInvoiceTimestamp,
	"date":              ColInvoiceTimestamp,
	"country":           ColCountry,
}

// timestampLayouts are tried in order when parsing invoice timestamps.
// Slash dates are month first.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"1/2/2006",
}

// NormalizeColumnName trims, lower-cases and replaces spaces and hyphens with underscores
func NormalizeColumnName(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ReplaceAll(name, "-", "_")
}

// ResolveColumns maps canonical column names to their index in header.
// The first matching source column wins.
func ResolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	found := make([]string, 0, len(header))
	for i, raw := range header {
		name := NormalizeColumnName(raw)
		found = append(found, name)
		canonical, ok := columnAliases[name]
		if !ok {
			continue
		}
		if _, seen := index[canonical]; !seen {
			index[canonical] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &SchemaError{Missing: missing, Found: found}
	}
	return index, nil
}

// RowError describes a row that could not be bound
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d column %s: %v", e.Row, e.Column, e.Err)
}

// BindResult is the outcome of binding a table
type BindResult struct {
	Rows      []domain.RawRow
	RowErrors []RowError
}

// BindTable maps a header and string cells onto raw rows. A missing required
// column is a SchemaError; unparseable cells reject only their row.
func BindTable(header []string, rows [][]string) (BindResult, error) {
	index, err := ResolveColumns(header)
	if err != nil {
		return BindResult{}, err
	}

	result := BindResult{Rows: make([]domain.RawRow, 0, len(rows))}
	for i, cells := range rows {
		row, rowErr := bindRow(cells, index)
		if rowErr != nil {
			rowErr.Row = i + 1
			result.RowErrors = append(result.RowErrors, *rowErr)
			continue
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

func bindRow(cells []string, index map[string]int) (domain.RawRow, *RowError) {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	var row domain.RawRow
	row.InvoiceID = cell(ColInvoiceID)
	if row.InvoiceID == "" {
		return row, &RowError{Column: ColInvoiceID, Err: fmt.Errorf("empty invoice id")}
	}
	row.CustomerID = parseCustomerID(cell(ColCustomerID))
	row.Description = cell(ColDescription)
	row.ProductCode = cell(ColProductCode)
	if row.ProductCode == "" {
		row.ProductCode = row.Description
	}
	row.Country = cell(ColCountry)

	qty, err := ParseQuantity(cell(ColQuantity))
	if err != nil {
		return row, &RowError{Column: ColQuantity, Err: err}
	}
	row.Quantity = qty

	price, err := ParsePrice(cell(ColUnitPrice))
	if err != nil {
		return row, &RowError{Column: ColUnitPrice, Err: err}
	}
	row.UnitPrice = price

	ts, err := ParseTimestamp(cell(ColInvoiceTimestamp))
	if err != nil {
		return row, &RowError{Column: ColInvoiceTimestamp, Err: err}
	}
	row.InvoiceTimestamp = ts

	return row, nil
}

// parseCustomerID returns nil for absent identifiers. Float renderings such
// as "17850.0" are reduced to their integer form.
func parseCustomerID(s string) *string {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "<na>":
		return nil
	}
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.ParseInt(strings.TrimSuffix(s, ".0"), 10, 64); err == nil {
			s = strings.TrimSuffix(s, ".0")
		}
	}
	return &s
}

// ParseQuantity parses an integer quantity, accepting integral float text
func ParseQuantity(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	if q, err := strconv.ParseInt(s, 10, 64); err == nil {
		return q, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("non-integral quantity %q", s)
	}
	return int64(f), nil
}

// ParsePrice parses a decimal unit price. A lone comma is read as the decimal separator.
func ParsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty unit price")
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid unit price %q: %w", s, err)
	}
	return d, nil
}

// ParseTimestamp parses an invoice timestamp in UTC
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
