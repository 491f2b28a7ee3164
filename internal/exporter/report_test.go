package exporter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"retailpulse/internal/analytics"
	"retailpulse/pkg/contracts/domain"
)

func sampleAnalysis(t *testing.T) *domain.Analysis {
	t.Helper()
	a, err := analytics.Analyze(sampleTransactions(), analytics.DefaultConfig())
	require.NoError(t, err)
	a.RunID = "run-1"
	return a
}

func TestReportView_Unknown(t *testing.T) {
	_, err := ReportView(sampleAnalysis(t), "nope")
	assert.Error(t, err)
}

func TestReportViews_Shapes(t *testing.T) {
	a := sampleAnalysis(t)
	views := ReportViews(a)
	require.Len(t, views, len(ViewNames))

	for i, v := range views {
		assert.Equal(t, ViewNames[i], v.Name)
		for _, rec := range v.Records {
			assert.Len(t, rec, len(v.Headers), "view %s", v.Name)
		}
	}

	products, err := ReportView(a, ViewProducts)
	require.NoError(t, err)
	require.Len(t, products.Records, 2)
	assert.Equal(t, []string{"1", "WHITE HANGING HEART", "15.30", "15.30", "80.53"}, products.Records[0])
	assert.Equal(t, "100.00", products.Records[1][4])

	countries, err := ReportView(a, ViewCountries)
	require.NoError(t, err)
	require.Len(t, countries.Records, 1)
	assert.Equal(t, []string{"1", "France", "19.00", "last_10", "1"}, countries.Records[0])

	summary, err := ReportView(a, ViewSummary)
	require.NoError(t, err)
	assert.Contains(t, summary.Records, []string{"Run", "run-1"})
}

func TestReportWorkbook(t *testing.T) {
	f, err := ReportWorkbook(sampleAnalysis(t))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Summary", "KPIs", "Countries", "Products", "Months", "Trend", "Seasonality", "RFM"}, wb.GetSheetList())

	rows, err := wb.GetRows("Months")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Month", "Revenue", "Orders", "Customers"}, rows[0])
	assert.Equal(t, "January 2011", rows[1][0])
	assert.Equal(t, "2", rows[1][2])
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, int64(42), cellValue("42"))
	assert.Equal(t, 15.3, cellValue("15.30"))
	assert.Equal(t, "2011-01", cellValue("2011-01"))
	assert.Equal(t, "", cellValue(""))
}
