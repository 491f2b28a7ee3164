package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is one line item as read from the source table, before any cleaning.
// CustomerID is nil when the source cell was empty.
type RawRow struct {
	InvoiceID        string          `json:"invoice_id"`
	CustomerID       *string         `json:"customer_id,omitempty"`
	ProductCode      string          `json:"product_code"`
	Description      string          `json:"description"`
	Quantity         int64           `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	InvoiceTimestamp time.Time       `json:"invoice_timestamp"`
	Country          string          `json:"country"`
}

// Transaction is a cleaned line item. Revenue and IsCancellation are derived
// once at normalization and never recomputed.
type Transaction struct {
	InvoiceID        string          `json:"invoice_id"`
	CustomerID       string          `json:"customer_id"`
	ProductCode      string          `json:"product_code"`
	Description      string          `json:"description"`
	Quantity         int64           `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	InvoiceTimestamp time.Time       `json:"invoice_timestamp"`
	Country          string          `json:"country"`
	Revenue          decimal.Decimal `json:"revenue"`
	IsCancellation   bool            `json:"is_cancellation"`
}

// TransactionClass is the mutually exclusive business category of a transaction
type TransactionClass string

const (
	ClassSale         TransactionClass = "sale"
	ClassReturn       TransactionClass = "return"
	ClassCancellation TransactionClass = "cancellation"
)

// AllClasses lists every class in reporting order
var AllClasses = []TransactionClass{ClassSale, ClassReturn, ClassCancellation}

// RejectionCounts breaks down why raw rows did not become transactions
type RejectionCounts struct {
	Unparseable      int `json:"unparseable"`
	Duplicate        int `json:"duplicate"`
	MissingCustomer  int `json:"missing_customer"`
	NonPositivePrice int `json:"non_positive_price"`
	QuantityOutlier  int `json:"quantity_outlier"`
}

// Total returns the number of rejected rows across all reasons
func (r RejectionCounts) Total() int {
	return r.Unparseable + r.Duplicate + r.MissingCustomer + r.NonPositivePrice + r.QuantityOutlier
}

// DatasetSummary describes a loaded and cleaned batch
type DatasetSummary struct {
	Source         string          `json:"source"`
	Format         string          `json:"format"`
	LoadedAt       time.Time       `json:"loaded_at"`
	RawRows        int             `json:"raw_rows"`
	Transactions   int             `json:"transactions"`
	Rejections     RejectionCounts `json:"rejections"`
	Countries      []string        `json:"countries"`
	FirstTimestamp time.Time       `json:"first_timestamp"`
	LastTimestamp  time.Time       `json:"last_timestamp"`
	Fingerprint    string          `json:"fingerprint"`
}
