package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"retailpulse/pkg/contracts/domain"
)

// RFMPolicy holds the segmentation thresholds
type RFMPolicy struct {
	// MinCustomers is the smallest population that can be quartiled
	MinCustomers int
	ChampionsMin int
	LoyalMin     int
	PromisingMin int
	AtRiskMin    int
}

// DefaultRFMPolicy returns the standard score cutoffs
func DefaultRFMPolicy() RFMPolicy {
	return RFMPolicy{
		MinCustomers: 4,
		ChampionsMin: 10,
		LoyalMin:     8,
		PromisingMin: 6,
		AtRiskMin:    4,
	}
}

// SegmentFor maps a total score in [3,12] to a segment
func (p RFMPolicy) SegmentFor(total int) domain.Segment {
	switch {
	case total >= p.ChampionsMin:
		return domain.SegmentChampions
	case total >= p.LoyalMin:
		return domain.SegmentLoyalCustomers
	case total >= p.PromisingMin:
		return domain.SegmentPromisingCustomers
	case total >= p.AtRiskMin:
		return domain.SegmentAtRiskCustomers
	default:
		return domain.SegmentCustomersToWinBack
	}
}

type customerActivity struct {
	last     time.Time
	invoices map[string]struct{}
	monetary decimal.Decimal
}

// SnapshotDate is one day after the latest timestamp in txs
func SnapshotDate(txs []domain.Transaction) time.Time {
	_, last := TimeBounds(txs)
	if last.IsZero() {
		return last
	}
	return last.Add(24 * time.Hour)
}

// customerLess orders customer ids numerically when both are integers and
// lexically otherwise, so "9" sorts before "10".
func customerLess(a, b string) bool {
	x, errA := strconv.ParseInt(a, 10, 64)
	y, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if x != y {
			return x < y
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

// ScoreRFM profiles every customer of the sale population. Records are
// ordered by customer id, numeric ids by value, which is also the tie-break
// order for frequency ranking. With fewer than policy.MinCustomers customers every record is
// Unclassified and ErrInsufficientPopulation is returned alongside the result.
func ScoreRFM(sales []domain.Transaction, policy RFMPolicy) (domain.RFMResult, error) {
	if policy.MinCustomers <= 0 {
		policy = DefaultRFMPolicy()
	}

	snapshot := SnapshotDate(sales)
	activity := make(map[string]*customerActivity)
	for _, tx := range sales {
		a, ok := activity[tx.CustomerID]
		if !ok {
			a = &customerActivity{invoices: make(map[string]struct{}), monetary: decimal.Zero}
			activity[tx.CustomerID] = a
		}
		if tx.InvoiceTimestamp.After(a.last) {
			a.last = tx.InvoiceTimestamp
		}
		a.invoices[tx.InvoiceID] = struct{}{}
		a.monetary = a.monetary.Add(tx.Revenue)
	}

	ids := make([]string, 0, len(activity))
	for id := range activity {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return customerLess(ids[i], ids[j]) })

	result := domain.RFMResult{
		Snapshot: snapshot,
		Records:  make([]domain.RFMRecord, len(ids)),
	}
	for i, id := range ids {
		a := activity[id]
		result.Records[i] = domain.RFMRecord{
			CustomerID:  id,
			RecencyDays: int(snapshot.Sub(a.last) / (24 * time.Hour)),
			Frequency:   len(a.invoices),
			Monetary:    a.monetary,
			Segment:     domain.SegmentUnclassified,
		}
	}

	if len(ids) < policy.MinCustomers {
		result.Distribution = distribution(result.Records)
		return result, fmt.Errorf("rfm over %d customers (need %d): %w",
			len(ids), policy.MinCustomers, ErrInsufficientPopulation)
	}

	recency := make([]float64, len(ids))
	frequency := make([]float64, len(ids))
	monetary := make([]float64, len(ids))
	for i, r := range result.Records {
		recency[i] = float64(r.RecencyDays)
		frequency[i] = float64(r.Frequency)
		monetary[i] = r.Monetary.InexactFloat64()
	}
	frequency = OrdinalRank(frequency)

	rEdges := quartileEdges(recency)
	fEdges := quartileEdges(frequency)
	mEdges := quartileEdges(monetary)

	for i := range result.Records {
		r := &result.Records[i]
		r.RScore = 4 - quartileBin(recency[i], rEdges)
		r.FScore = quartileBin(frequency[i], fEdges) + 1
		r.MScore = quartileBin(monetary[i], mEdges) + 1
		r.Total = r.RScore + r.FScore + r.MScore
		r.Segment = policy.SegmentFor(r.Total)
	}
	result.Scored = true
	result.Distribution = distribution(result.Records)
	return result, nil
}

// distribution counts customers per segment in reporting order, omitting empty segments
func distribution(records []domain.RFMRecord) []domain.SegmentCount {
	counts := make(map[domain.Segment]int)
	for _, r := range records {
		counts[r.Segment]++
	}
	out := []domain.SegmentCount{}
	for _, s := range domain.SegmentOrder {
		if n := counts[s]; n > 0 {
			out = append(out, domain.SegmentCount{Segment: s, Customers: n})
		}
	}
	return out
}
