package analytics

import (
	"fmt"

	"retailpulse/pkg/contracts/domain"
)

const dateLayout = "2006-01-02"

// BuildReport condenses an analysis into its narrative summary
func BuildReport(a *domain.Analysis) domain.Report {
	report := domain.Report{
		Period:        describePeriod(a.Params),
		Countries:     a.Params.Countries,
		TotalRevenue:  a.KPIs.TotalRevenue.StringFixed(2),
		Orders:        a.KPIs.Orders,
		Customers:     a.KPIs.Customers,
		AverageBasket: "n/a",
		Cancellations: a.KPIs.Cancellations,
		Segments:      a.RFM.Distribution,
	}
	if a.KPIs.AverageBasket != nil {
		report.AverageBasket = a.KPIs.AverageBasket.StringFixed(2)
	}
	if len(a.Products.Rows) > 0 {
		top := a.Products.Rows[0]
		report.TopProduct = &top
	}
	if len(a.CountryRevenue) > 0 {
		top := a.CountryRevenue[0]
		report.TopCountry = &top
	}
	report.BestMonth = a.Temporal.BestRevenueMonth
	report.Recommendations = recommend(a, report)
	return report
}

func describePeriod(p domain.AnalysisParams) string {
	start, end := "start", "end"
	if !p.Start.IsZero() {
		start = p.Start.Format(dateLayout)
	}
	if !p.End.IsZero() {
		end = p.End.Format(dateLayout)
	}
	return start + " to " + end
}

func recommend(a *domain.Analysis, r domain.Report) []string {
	recs := []string{}
	if a.KPIs.Cancellations > 0 {
		recs = append(recs, fmt.Sprintf(
			"Reduce cancellations: %d cancelled orders worth %s; review their causes and the ordering process",
			a.KPIs.Cancellations, a.KPIs.CancelledValue.StringFixed(2)))
	}
	if r.TopProduct != nil {
		recs = append(recs, fmt.Sprintf(
			"Flagship product: %s; develop similar products and target marketing campaigns at it",
			r.TopProduct.Key.Label))
	}
	if r.BestMonth != nil {
		recs = append(recs, fmt.Sprintf(
			"Strong period: %s; prepare stock in advance and reinforce staffing",
			r.BestMonth.Label))
	}
	if a.TopShare != nil {
		recs = append(recs, fmt.Sprintf(
			"Focus on the top %d products, which generate %.1f%% of revenue",
			a.TopShare.TopItems, a.TopShare.SharePct))
	}
	if a.RFM.Scored {
		for _, c := range a.RFM.Distribution {
			if c.Segment == domain.SegmentAtRiskCustomers && c.Customers > 0 {
				recs = append(recs, fmt.Sprintf("Re-engage %d at-risk customers", c.Customers))
			}
		}
	}
	return recs
}
