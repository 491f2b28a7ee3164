package analytics

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailpulse/pkg/contracts/domain"
)

// day1 is a Saturday
var day1 = time.Date(2011, time.January, 1, 10, 0, 0, 0, time.UTC)

func onDay(d int) time.Time {
	return day1.AddDate(0, 0, d-1)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTx(invoice, customer, product, country string, qty int64, price string, ts time.Time) domain.Transaction {
	p := dec(price)
	return domain.Transaction{
		InvoiceID:        invoice,
		CustomerID:       customer,
		ProductCode:      product,
		Description:      product,
		Quantity:         qty,
		UnitPrice:        p,
		InvoiceTimestamp: ts,
		Country:          country,
		Revenue:          p.Mul(decimal.NewFromInt(qty)),
		IsCancellation:   strings.HasPrefix(invoice, "C"),
	}
}

func sale(invoice, customer, product string, revenue string, ts time.Time) domain.Transaction {
	return newTx(invoice, customer, product, "United Kingdom", 1, revenue, ts)
}

func strPtr(s string) *string {
	return &s
}

func rawRow(invoice string, customer *string, qty int64, price string) domain.RawRow {
	return domain.RawRow{
		InvoiceID:        invoice,
		CustomerID:       customer,
		ProductCode:      "85123A",
		Description:      "WHITE HANGING HEART T-LIGHT HOLDER",
		Quantity:         qty,
		UnitPrice:        dec(price),
		InvoiceTimestamp: day1,
		Country:          "United Kingdom",
	}
}
