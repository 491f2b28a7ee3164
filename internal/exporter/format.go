package exporter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const timestampLayout = "2006-01-02 15:04:05"

// formatMoney formats a decimal amount with exactly 2 decimal places
func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// formatFloat formats a percentage or ratio with 2 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}

// formatOptionalPct renders nil as an empty cell
func formatOptionalPct(p *float64) string {
	if p == nil {
		return ""
	}
	return formatFloat(*p)
}
