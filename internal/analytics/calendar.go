package analytics

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"retailpulse/pkg/contracts/domain"
)

// MonthTable summarizes sales per calendar month, sorted by revenue
// descending with ties in chronological first-seen order.
func MonthTable(sales []domain.Transaction) []domain.MonthStat {
	stats := AggregateStats(sales, ByYearMonth, domain.ClassSale)
	months := make([]domain.MonthStat, len(stats))
	for i, s := range stats {
		year, _ := strconv.Atoi(s.Key.Parts[0])
		month, _ := strconv.Atoi(s.Key.Parts[1])
		months[i] = domain.MonthStat{
			Year:      year,
			Month:     month,
			Label:     s.Key.Label,
			Revenue:   s.Revenue,
			Orders:    s.Orders,
			Customers: s.Customers,
		}
	}
	sort.SliceStable(months, func(i, j int) bool {
		return months[i].Revenue.GreaterThan(months[j].Revenue)
	})
	return months
}

// ComputeTemporalStats derives the best months and monthly means from a
// revenue-sorted month table.
func ComputeTemporalStats(months []domain.MonthStat) domain.TemporalStats {
	stats := domain.TemporalStats{MeanMonthlyRevenue: decimal.Zero}
	if len(months) == 0 {
		return stats
	}

	best := months[0]
	stats.BestRevenueMonth = &best

	byOrders := months[0]
	revenue := decimal.Zero
	orders := 0
	for _, m := range months {
		if m.Orders > byOrders.Orders {
			byOrders = m
		}
		revenue = revenue.Add(m.Revenue)
		orders += m.Orders
	}
	stats.BestOrdersMonth = &byOrders
	stats.MeanMonthlyRevenue = revenue.Div(decimal.NewFromInt(int64(len(months))))
	stats.MeanMonthlyOrders = float64(orders) / float64(len(months))
	return stats
}

// weekdayOrder lists weekdays Monday first
var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// ComputeSeasonality sums sale revenue by weekday (always seven entries,
// Monday first) and by calendar month across years (months present only).
func ComputeSeasonality(sales []domain.Transaction) domain.Seasonality {
	var weekday [7]decimal.Decimal
	var month [12]decimal.Decimal
	var seenMonth [12]bool
	for i := range weekday {
		weekday[i] = decimal.Zero
	}
	for i := range month {
		month[i] = decimal.Zero
	}

	for _, tx := range sales {
		ts := tx.InvoiceTimestamp
		wd := (int(ts.Weekday()) + 6) % 7
		weekday[wd] = weekday[wd].Add(tx.Revenue)
		m := int(ts.Month()) - 1
		month[m] = month[m].Add(tx.Revenue)
		seenMonth[m] = true
	}

	s := domain.Seasonality{
		ByWeekday: make([]domain.SeasonalPoint, 0, 7),
		ByMonth:   []domain.SeasonalPoint{},
	}
	for i, wd := range weekdayOrder {
		s.ByWeekday = append(s.ByWeekday, domain.SeasonalPoint{
			Index:   i + 1,
			Label:   wd.String(),
			Revenue: weekday[i],
		})
	}
	for i := range month {
		if !seenMonth[i] {
			continue
		}
		s.ByMonth = append(s.ByMonth, domain.SeasonalPoint{
			Index:   i + 1,
			Label:   time.Month(i + 1).String(),
			Revenue: month[i],
		})
	}
	return s
}
