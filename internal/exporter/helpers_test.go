package exporter

import (
	"time"

	"github.com/shopspring/decimal"

	"retailpulse/pkg/contracts/domain"
)

var day1 = time.Date(2011, 1, 3, 9, 30, 0, 0, time.UTC)

func tx(invoice, customer, product string, qty int64, price string, at time.Time) domain.Transaction {
	p := decimal.RequireFromString(price)
	return domain.Transaction{
		InvoiceID:        invoice,
		CustomerID:       customer,
		ProductCode:      "P-" + product,
		Description:      product,
		Quantity:         qty,
		UnitPrice:        p,
		InvoiceTimestamp: at,
		Country:          "France",
		Revenue:          p.Mul(decimal.NewFromInt(qty)),
		IsCancellation:   invoice[0] == 'C',
	}
}

func sampleTransactions() []domain.Transaction {
	return []domain.Transaction{
		tx("536365", "17850", "WHITE HANGING HEART", 6, "2.55", day1),
		tx("536366", "17850", "HAND WARMER", 2, "1.85", day1.Add(time.Hour)),
		tx("C536379", "14527", "DISCOUNT", -1, "27.50", day1.AddDate(0, 0, 1)),
	}
}
