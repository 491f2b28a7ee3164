package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"retailpulse/pkg/contracts/domain"
)

// ParseGranularity accepts the long names and the W/M/Q/Y shorthands
func ParseGranularity(s string) (domain.Granularity, error) {
	switch s {
	case "week", "weekly", "W", "w":
		return domain.GranularityWeek, nil
	case "month", "monthly", "M", "m", "":
		return domain.GranularityMonth, nil
	case "quarter", "quarterly", "Q", "q":
		return domain.GranularityQuarter, nil
	case "year", "yearly", "Y", "y":
		return domain.GranularityYear, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// BucketStart returns the start of the calendar period containing t.
// Weeks run Monday to Sunday.
func BucketStart(t time.Time, g domain.Granularity) time.Time {
	day := truncateDay(t)
	switch g {
	case domain.GranularityWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case domain.GranularityQuarter:
		q := (int(day.Month()) - 1) / 3
		return time.Date(day.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, day.Location())
	case domain.GranularityYear:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
	default:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	}
}

// nextBucket returns the start of the period after the one starting at start
func nextBucket(start time.Time, g domain.Granularity) time.Time {
	switch g {
	case domain.GranularityWeek:
		return start.AddDate(0, 0, 7)
	case domain.GranularityQuarter:
		return start.AddDate(0, 3, 0)
	case domain.GranularityYear:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

// BucketLabel renders a period: weeks by their Sunday end date, then
// "2011-01", "2011-Q1" and "2011".
func BucketLabel(start time.Time, g domain.Granularity) string {
	switch g {
	case domain.GranularityWeek:
		return start.AddDate(0, 0, 6).Format("2006-01-02")
	case domain.GranularityQuarter:
		return fmt.Sprintf("%d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
	case domain.GranularityYear:
		return fmt.Sprintf("%d", start.Year())
	default:
		return start.Format("2006-01")
	}
}

// Bucket sums revenue and counts distinct invoices per calendar period.
// Periods between the first and last populated one are emitted with zero
// values, so both series always share the same bucket sequence.
func Bucket(txs []domain.Transaction, g domain.Granularity) (domain.BucketedSeries, error) {
	if !g.Valid() {
		return domain.BucketedSeries{}, fmt.Errorf("unknown granularity %q", g)
	}

	series := domain.BucketedSeries{
		Granularity: g,
		Buckets:     []domain.Bucket{},
		Revenue:     []decimal.Decimal{},
		Orders:      []int{},
	}
	if len(txs) == 0 {
		return series, nil
	}

	type cell struct {
		revenue  decimal.Decimal
		invoices map[string]struct{}
	}
	cells := make(map[int64]*cell)
	var first, last time.Time
	for i, tx := range txs {
		start := BucketStart(tx.InvoiceTimestamp, g)
		if i == 0 || start.Before(first) {
			first = start
		}
		if i == 0 || start.After(last) {
			last = start
		}
		c, ok := cells[start.Unix()]
		if !ok {
			c = &cell{revenue: decimal.Zero, invoices: make(map[string]struct{})}
			cells[start.Unix()] = c
		}
		c.revenue = c.revenue.Add(tx.Revenue)
		c.invoices[tx.InvoiceID] = struct{}{}
	}

	for start := first; !start.After(last); start = nextBucket(start, g) {
		end := nextBucket(start, g)
		series.Buckets = append(series.Buckets, domain.Bucket{
			Start: start,
			End:   end,
			Label: BucketLabel(start, g),
		})
		if c, ok := cells[start.Unix()]; ok {
			series.Revenue = append(series.Revenue, c.revenue)
			series.Orders = append(series.Orders, len(c.invoices))
		} else {
			series.Revenue = append(series.Revenue, decimal.Zero)
			series.Orders = append(series.Orders, 0)
		}
	}
	return series, nil
}
