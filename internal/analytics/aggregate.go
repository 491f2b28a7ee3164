package analytics

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"retailpulse/pkg/contracts/domain"
)

// KeyFunc extracts the grouping key of a transaction
type KeyFunc func(domain.Transaction) domain.GroupKey

// Order controls how aggregation rows are sorted
type Order int

const (
	// OrderDescending sorts by value, largest first
	OrderDescending Order = iota
	// OrderAscending sorts by value, smallest first
	OrderAscending
	// OrderFirstSeen keeps the order in which keys were first encountered
	OrderFirstSeen
)

// AggregateSpec describes one grouping
type AggregateSpec struct {
	Key    KeyFunc
	Metric domain.Metric
	// Classes restricts input to these classes; empty means every classified transaction
	Classes []domain.TransactionClass
	Order   Order
	// Limit truncates the sorted result when positive
	Limit int
}

// ByProduct groups by product description
func ByProduct(tx domain.Transaction) domain.GroupKey { return domain.NewKey(tx.Description) }

// ByProductCode groups by stock code
func ByProductCode(tx domain.Transaction) domain.GroupKey { return domain.NewKey(tx.ProductCode) }

// ByCountry groups by country
func ByCountry(tx domain.Transaction) domain.GroupKey { return domain.NewKey(tx.Country) }

// ByCustomer groups by customer
func ByCustomer(tx domain.Transaction) domain.GroupKey { return domain.NewKey(tx.CustomerID) }

// ByYearMonth groups by calendar month with a "January 2011" label
func ByYearMonth(tx domain.Transaction) domain.GroupKey {
	y, m, _ := tx.InvoiceTimestamp.Date()
	return domain.GroupKey{
		Parts: []string{strconv.Itoa(y), fmt.Sprintf("%02d", int(m))},
		Label: fmt.Sprintf("%s %d", m.String(), y),
	}
}

// Compose joins several key functions into one composite key
func Compose(keys ...KeyFunc) KeyFunc {
	return func(tx domain.Transaction) domain.GroupKey {
		var composite domain.GroupKey
		for i, key := range keys {
			k := key(tx)
			composite.Parts = append(composite.Parts, k.Parts...)
			if i > 0 {
				composite.Label += " / "
			}
			composite.Label += k.Label
		}
		return composite
	}
}

// accumulator collects every metric for one group
type accumulator struct {
	key       domain.GroupKey
	order     int
	revenue   decimal.Decimal
	quantity  int64
	invoices  map[string]struct{}
	customers map[string]struct{}
}

func newAccumulator(key domain.GroupKey, order int) *accumulator {
	return &accumulator{
		key:       key,
		order:     order,
		revenue:   decimal.Zero,
		invoices:  make(map[string]struct{}),
		customers: make(map[string]struct{}),
	}
}

func (a *accumulator) add(tx domain.Transaction) {
	a.revenue = a.revenue.Add(tx.Revenue)
	a.quantity += tx.Quantity
	a.invoices[tx.InvoiceID] = struct{}{}
	a.customers[tx.CustomerID] = struct{}{}
}

func (a *accumulator) value(metric domain.Metric) decimal.Decimal {
	switch metric {
	case domain.MetricDistinctInvoices:
		return decimal.NewFromInt(int64(len(a.invoices)))
	case domain.MetricDistinctCustomers:
		return decimal.NewFromInt(int64(len(a.customers)))
	case domain.MetricQuantity:
		return decimal.NewFromInt(a.quantity)
	default:
		return a.revenue
	}
}

// accumulate groups txs in a single pass, returning groups in first-seen order
func accumulate(txs []domain.Transaction, key KeyFunc, classes []domain.TransactionClass) []*accumulator {
	allowed := make(map[domain.TransactionClass]struct{}, len(classes))
	for _, c := range classes {
		allowed[c] = struct{}{}
	}

	index := make(map[string]*accumulator)
	var groups []*accumulator
	for _, tx := range txs {
		class, ok := Classify(tx)
		if !ok {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[class]; !ok {
				continue
			}
		}
		k := key(tx)
		id := k.ID()
		acc, exists := index[id]
		if !exists {
			acc = newAccumulator(k, len(groups))
			index[id] = acc
			groups = append(groups, acc)
		}
		acc.add(tx)
	}
	return groups
}

// Aggregate groups txs by spec.Key and computes spec.Metric per group.
// Equal values keep the order in which their keys were first encountered.
// Empty input yields an empty result.
func Aggregate(txs []domain.Transaction, spec AggregateSpec) domain.AggregationResult {
	metric := spec.Metric
	if metric == "" {
		metric = domain.MetricRevenue
	}
	result := domain.AggregationResult{Metric: metric, Rows: []domain.AggregateRow{}}
	if spec.Key == nil {
		return result
	}

	groups := accumulate(txs, spec.Key, spec.Classes)
	rows := make([]domain.AggregateRow, len(groups))
	for i, g := range groups {
		rows[i] = domain.AggregateRow{Key: g.key, Value: g.value(metric)}
	}

	switch spec.Order {
	case OrderDescending:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value.GreaterThan(rows[j].Value) })
	case OrderAscending:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value.LessThan(rows[j].Value) })
	}

	if spec.Limit > 0 && len(rows) > spec.Limit {
		rows = rows[:spec.Limit]
	}
	result.Rows = rows
	return result
}

// AggregateStats computes revenue, distinct invoices, distinct customers and
// quantity per key in one pass, in first-seen key order.
func AggregateStats(txs []domain.Transaction, key KeyFunc, classes ...domain.TransactionClass) []domain.GroupStats {
	groups := accumulate(txs, key, classes)
	stats := make([]domain.GroupStats, len(groups))
	for i, g := range groups {
		stats[i] = domain.GroupStats{
			Key:       g.key,
			Revenue:   g.revenue,
			Orders:    len(g.invoices),
			Customers: len(g.customers),
			Quantity:  g.quantity,
		}
	}
	return stats
}

// distinctInvoices counts distinct invoice ids in txs
func distinctInvoices(txs []domain.Transaction) int {
	set := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		set[tx.InvoiceID] = struct{}{}
	}
	return len(set)
}

// distinctCustomers counts distinct customer ids in txs
func distinctCustomers(txs []domain.Transaction) int {
	set := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		set[tx.CustomerID] = struct{}{}
	}
	return len(set)
}

// sumRevenue adds up revenue and quantity over txs
func sumRevenue(txs []domain.Transaction) (decimal.Decimal, int64) {
	total := decimal.Zero
	var qty int64
	for _, tx := range txs {
		total = total.Add(tx.Revenue)
		qty += tx.Quantity
	}
	return total, qty
}
