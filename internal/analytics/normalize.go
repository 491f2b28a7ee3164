package analytics

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"retailpulse/pkg/contracts/domain"
)

// Default cleaning policy
const (
	DefaultCancellationPrefix = "C"
	DefaultOutlierLow         = 0.01
	DefaultOutlierHigh        = 0.99
)

// NormalizeOptions controls the cleaning rules
type NormalizeOptions struct {
	CancellationPrefix string
	OutlierLow         float64
	OutlierHigh        float64
	// SkipOutlierFilter keeps every row regardless of quantity
	SkipOutlierFilter bool
}

// validOutlierBounds reports whether low and high select a non-empty
// quantile range. Zero values fall outside it.
func validOutlierBounds(low, high float64) bool {
	return low >= 0 && high <= 1 && low < high
}

// DefaultNormalizeOptions returns the standard cleaning policy
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		CancellationPrefix: DefaultCancellationPrefix,
		OutlierLow:         DefaultOutlierLow,
		OutlierHigh:        DefaultOutlierHigh,
	}
}

// QuantityBounds are the inclusive limits applied to non-cancellation quantities
type QuantityBounds struct {
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
	Applied bool    `json:"applied"`
}

// NormalizeResult is the cleaned batch plus what was dropped
type NormalizeResult struct {
	Transactions []domain.Transaction
	Rejections   domain.RejectionCounts
	Bounds       QuantityBounds
}

// Normalize cleans raw rows in a fixed order: dedup, required fields, price,
// derived fields, then the quantity outlier filter. Cancellations bypass the
// outlier filter and do not contribute to its quantiles. Outlier bounds that
// do not satisfy 0 <= low < high <= 1 fall back to the defaults.
func Normalize(raw []domain.RawRow, opts NormalizeOptions) NormalizeResult {
	if opts.CancellationPrefix == "" {
		opts.CancellationPrefix = DefaultCancellationPrefix
	}
	if !validOutlierBounds(opts.OutlierLow, opts.OutlierHigh) {
		opts.OutlierLow, opts.OutlierHigh = DefaultOutlierLow, DefaultOutlierHigh
	}

	var result NormalizeResult
	seen := make(map[string]struct{}, len(raw))
	cleaned := make([]domain.Transaction, 0, len(raw))

	for _, row := range raw {
		key := rowKey(row)
		if _, dup := seen[key]; dup {
			result.Rejections.Duplicate++
			continue
		}
		seen[key] = struct{}{}

		if row.CustomerID == nil || strings.TrimSpace(*row.CustomerID) == "" {
			result.Rejections.MissingCustomer++
			continue
		}
		if !row.UnitPrice.IsPositive() {
			result.Rejections.NonPositivePrice++
			continue
		}

		cleaned = append(cleaned, derive(row, opts.CancellationPrefix))
	}

	if opts.SkipOutlierFilter {
		result.Transactions = cleaned
		return result
	}

	result.Bounds = quantityBounds(cleaned, opts.OutlierLow, opts.OutlierHigh)
	if !result.Bounds.Applied {
		result.Transactions = cleaned
		return result
	}

	kept := make([]domain.Transaction, 0, len(cleaned))
	for _, tx := range cleaned {
		if !tx.IsCancellation {
			q := float64(tx.Quantity)
			if q < result.Bounds.Low || q > result.Bounds.High {
				result.Rejections.QuantityOutlier++
				continue
			}
		}
		kept = append(kept, tx)
	}
	result.Transactions = kept
	return result
}

// derive builds a transaction and its derived fields from a validated row
func derive(row domain.RawRow, prefix string) domain.Transaction {
	return domain.Transaction{
		InvoiceID:        row.InvoiceID,
		CustomerID:       *row.CustomerID,
		ProductCode:      row.ProductCode,
		Description:      row.Description,
		Quantity:         row.Quantity,
		UnitPrice:        row.UnitPrice,
		InvoiceTimestamp: row.InvoiceTimestamp,
		Country:          row.Country,
		Revenue:          row.UnitPrice.Mul(decimal.NewFromInt(row.Quantity)),
		IsCancellation:   strings.HasPrefix(row.InvoiceID, prefix),
	}
}

// quantityBounds computes the low/high quantiles over non-cancellation quantities
func quantityBounds(txs []domain.Transaction, low, high float64) QuantityBounds {
	quantities := make([]float64, 0, len(txs))
	for _, tx := range txs {
		if !tx.IsCancellation {
			quantities = append(quantities, float64(tx.Quantity))
		}
	}
	if len(quantities) == 0 {
		return QuantityBounds{}
	}
	sorted := sortedCopy(quantities)
	return QuantityBounds{
		Low:     Quantile(sorted, low),
		High:    Quantile(sorted, high),
		Applied: true,
	}
}

// rowKey identifies a raw row by every field value
func rowKey(row domain.RawRow) string {
	customer := "\x00"
	if row.CustomerID != nil {
		customer = *row.CustomerID
	}
	var b strings.Builder
	for _, part := range []string{
		row.InvoiceID,
		customer,
		row.ProductCode,
		row.Description,
		strconv.FormatInt(row.Quantity, 10),
		row.UnitPrice.String(),
		strconv.FormatInt(row.InvoiceTimestamp.UnixNano(), 10),
		row.Country,
	} {
		b.WriteString(part)
		b.WriteByte(0x1f)
	}
	return b.String()
}
