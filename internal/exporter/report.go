package exporter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"retailpulse/pkg/contracts/domain"
)

// View names
const (
	ViewSummary     = "summary"
	ViewKPIs        = "kpis"
	ViewCountries   = "countries"
	ViewProducts    = "products"
	ViewMonths      = "months"
	ViewTrend       = "trend"
	ViewSeasonality = "seasonality"
	ViewRFM         = "rfm"
)

// ViewNames lists every report view in workbook order
var ViewNames = []string{
	ViewSummary, ViewKPIs, ViewCountries, ViewProducts,
	ViewMonths, ViewTrend, ViewSeasonality, ViewRFM,
}

// View is one table of an analysis report
type View struct {
	Name    string
	Title   string
	Headers []string
	Records [][]string
}

// ReportView renders a single named view of an analysis
func ReportView(a *domain.Analysis, name string) (View, error) {
	switch name {
	case ViewSummary:
		return summaryView(a), nil
	case ViewKPIs:
		return kpiView(a), nil
	case ViewCountries:
		return countryView(a), nil
	case ViewProducts:
		return productView(a), nil
	case ViewMonths:
		return monthView(a), nil
	case ViewTrend:
		return trendView(a), nil
	case ViewSeasonality:
		return seasonalityView(a), nil
	case ViewRFM:
		return rfmView(a), nil
	}
	return View{}, fmt.Errorf("unknown report view %q", name)
}

// ReportViews renders every view in ViewNames order
func ReportViews(a *domain.Analysis) []View {
	views := make([]View, 0, len(ViewNames))
	for _, name := range ViewNames {
		v, _ := ReportView(a, name)
		views = append(views, v)
	}
	return views
}

func summaryView(a *domain.Analysis) View {
	r := a.Report
	records := [][]string{
		{"Run", a.RunID},
		{"Generated", formatTime(a.GeneratedAt)},
		{"Period", r.Period},
		{"Countries", strings.Join(r.Countries, ", ")},
		{"Total revenue", r.TotalRevenue},
		{"Orders", strconv.Itoa(r.Orders)},
		{"Customers", strconv.Itoa(r.Customers)},
		{"Average basket", r.AverageBasket},
		{"Cancellations", strconv.Itoa(r.Cancellations)},
	}
	if r.TopProduct != nil {
		records = append(records, []string{"Top product", r.TopProduct.Key.Label + " (" + formatMoney(r.TopProduct.Value) + ")"})
	}
	if r.TopCountry != nil {
		records = append(records, []string{"Top country", r.TopCountry.Country + " (" + formatMoney(r.TopCountry.Revenue) + ")"})
	}
	if r.BestMonth != nil {
		records = append(records, []string{"Best month", r.BestMonth.Label + " (" + formatMoney(r.BestMonth.Revenue) + ")"})
	}
	for _, s := range r.Segments {
		records = append(records, []string{"Segment: " + string(s.Segment), strconv.Itoa(s.Customers)})
	}
	for i, rec := range r.Recommendations {
		records = append(records, []string{fmt.Sprintf("Recommendation %d", i+1), rec})
	}
	for _, w := range a.Warnings {
		records = append(records, []string{"Warning", w})
	}
	return View{Name: ViewSummary, Title: "Summary", Headers: []string{"Item", "Value"}, Records: records}
}

func kpiView(a *domain.Analysis) View {
	k := a.KPIs
	basket := ""
	if k.AverageBasket != nil {
		basket = formatMoney(*k.AverageBasket)
	}
	records := [][]string{
		{"total_revenue", formatMoney(k.TotalRevenue)},
		{"orders", strconv.Itoa(k.Orders)},
		{"customers", strconv.Itoa(k.Customers)},
		{"average_basket", basket},
		{"cancellations", strconv.Itoa(k.Cancellations)},
		{"cancelled_units", formatInt(k.CancelledUnits)},
		{"cancelled_value", formatMoney(k.CancelledValue)},
		{"returns", strconv.Itoa(k.Returns)},
		{"returned_units", formatInt(k.ReturnedUnits)},
		{"returned_value", formatMoney(k.ReturnedValue)},
		{"unclassified", strconv.Itoa(k.Unclassified)},
		{"return_rate_value_pct", formatOptionalPct(a.ReturnRates.ByValuePct)},
		{"return_rate_orders_pct", formatOptionalPct(a.ReturnRates.ByOrdersPct)},
		{"return_rate_customers_pct", formatOptionalPct(a.ReturnRates.ByCustomersPct)},
	}
	return View{Name: ViewKPIs, Title: "KPIs", Headers: []string{"Metric", "Value"}, Records: records}
}

func countryView(a *domain.Analysis) View {
	cancelled := make(map[string]string, len(a.CancellationsByCountry.Rows))
	for _, row := range a.CancellationsByCountry.Rows {
		cancelled[row.Key.Label] = row.Value.String()
	}
	records := make([][]string, len(a.CountryRevenue))
	for i, c := range a.CountryRevenue {
		records[i] = []string{
			strconv.Itoa(c.Rank),
			c.Country,
			formatMoney(c.Revenue),
			string(c.Tier),
			cancelled[c.Country],
		}
	}
	return View{
		Name:    ViewCountries,
		Title:   "Countries",
		Headers: []string{"Rank", "Country", "Revenue", "Tier", "Cancelled Invoices"},
		Records: records,
	}
}

func productView(a *domain.Analysis) View {
	records := make([][]string, len(a.Products.Rows))
	for i, row := range a.Products.Rows {
		records[i] = []string{strconv.Itoa(i + 1), row.Key.Label, formatMoney(row.Value), "", ""}
		if a.Pareto != nil && i < len(a.Pareto.Points) {
			p := a.Pareto.Points[i]
			records[i][3] = formatMoney(p.CumulativeValue)
			records[i][4] = formatFloat(p.CumulativePct)
		}
	}
	return View{
		Name:    ViewProducts,
		Title:   "Products",
		Headers: []string{"Rank", "Product", "Revenue", "Cumulative Revenue", "Cumulative %"},
		Records: records,
	}
}

func monthView(a *domain.Analysis) View {
	records := make([][]string, len(a.Months))
	for i, m := range a.Months {
		records[i] = []string{
			m.Label,
			formatMoney(m.Revenue),
			strconv.Itoa(m.Orders),
			strconv.Itoa(m.Customers),
		}
	}
	return View{
		Name:    ViewMonths,
		Title:   "Months",
		Headers: []string{"Month", "Revenue", "Orders", "Customers"},
		Records: records,
	}
}

func trendView(a *domain.Analysis) View {
	t := a.Trend
	records := make([][]string, len(t.Buckets))
	for i, b := range t.Buckets {
		records[i] = []string{
			b.Label,
			b.Start.Format("2006-01-02"),
			b.End.AddDate(0, 0, -1).Format("2006-01-02"),
			formatMoney(t.Revenue[i]),
			strconv.Itoa(t.Orders[i]),
		}
	}
	return View{
		Name:    ViewTrend,
		Title:   "Trend",
		Headers: []string{"Period", "Start", "End", "Revenue", "Orders"},
		Records: records,
	}
}

func seasonalityView(a *domain.Analysis) View {
	var records [][]string
	for _, p := range a.Seasonality.ByWeekday {
		records = append(records, []string{"weekday", p.Label, formatMoney(p.Revenue)})
	}
	for _, p := range a.Seasonality.ByMonth {
		records = append(records, []string{"month", p.Label, formatMoney(p.Revenue)})
	}
	return View{
		Name:    ViewSeasonality,
		Title:   "Seasonality",
		Headers: []string{"Cycle", "Period", "Revenue"},
		Records: records,
	}
}

func rfmView(a *domain.Analysis) View {
	records := make([][]string, len(a.RFM.Records))
	for i, r := range a.RFM.Records {
		records[i] = []string{
			r.CustomerID,
			strconv.Itoa(r.RecencyDays),
			strconv.Itoa(r.Frequency),
			formatMoney(r.Monetary),
			strconv.Itoa(r.RScore),
			strconv.Itoa(r.FScore),
			strconv.Itoa(r.MScore),
			strconv.Itoa(r.Total),
			string(r.Segment),
		}
	}
	return View{
		Name:    ViewRFM,
		Title:   "RFM",
		Headers: []string{"Customer", "Recency", "Frequency", "Monetary", "R", "F", "M", "Score", "Segment"},
		Records: records,
	}
}

// ReportWorkbook renders every view of a onto its own sheet
func ReportWorkbook(a *domain.Analysis) (*excelize.File, error) {
	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, v := range ReportViews(a) {
		if i == 0 {
			err = f.SetSheetName("Sheet1", v.Title)
		} else {
			_, err = f.NewSheet(v.Title)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", v.Title, err)
		}
		if err := writeSheet(f, v, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := addTrendChart(f, a); err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, v View, headerStyle int) error {
	if err := f.SetSheetRow(v.Title, "A1", &v.Headers); err != nil {
		return fmt.Errorf("failed to write %s header: %w", v.Title, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(v.Headers), 1)
	if err := f.SetCellStyle(v.Title, "A1", last, headerStyle); err != nil {
		return err
	}
	for i, rec := range v.Records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := make([]interface{}, len(rec))
		for j, value := range rec {
			row[j] = cellValue(value)
		}
		if err := f.SetSheetRow(v.Title, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", v.Title, i+2, err)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(v.Headers))
	return f.SetColWidth(v.Title, "A", lastCol, 18)
}

// cellValue stores numeric text as numbers so the workbook can be charted
func cellValue(s string) interface{} {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.Contains(s, ".") {
		return f
	}
	return s
}

func addTrendChart(f *excelize.File, a *domain.Analysis) error {
	n := len(a.Trend.Buckets)
	if n == 0 {
		return nil
	}
	sheet := "Trend"
	return f.AddChart(sheet, "G2", &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       sheet + "!$D$1",
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheet, n+1),
			Values:     fmt.Sprintf("%s!$D$2:$D$%d", sheet, n+1),
		}},
		Title: []excelize.RichTextRun{{Text: "Revenue by " + string(a.Trend.Granularity)}},
	})
}
