package exporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReportFileName(t *testing.T) {
	a := sampleAnalysis(t)
	assert.Equal(t, "retail_report_all.xlsx", ReportFileName(a, "", ""))
	assert.Equal(t, "retail_report_all.xlsx", ReportFileName(a, ReportXLSX, ViewRFM))
	assert.Equal(t, "retail_countries_all.csv", ReportFileName(a, ReportCSV, ViewCountries))

	a.Params.Start = time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "retail_report_2011-01-01_open.json", ReportFileName(a, ReportJSON, ""))
}

func TestWriteReport_CSVView(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleAnalysis(t), ReportCSV, ViewProducts))

	out := strings.TrimPrefix(buf.String(), "\ufeff")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Rank,Product,Revenue,Cumulative Revenue,Cumulative %", lines[0])
	assert.Equal(t, "1,WHITE HANGING HEART,15.30,15.30,80.53", lines[1])
}

func TestWriteReport_JSON(t *testing.T) {
	a := sampleAnalysis(t)

	var full bytes.Buffer
	require.NoError(t, WriteReport(&full, a, ReportJSON, ""))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(full.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])

	var view bytes.Buffer
	require.NoError(t, WriteReport(&view, a, ReportJSON, ViewCountries))
	var rows []map[string]string
	require.NoError(t, json.Unmarshal(view.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "France", rows[0]["country"])
	assert.Equal(t, "19.00", rows[0]["revenue"])
}

func TestWriteReport_Workbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleAnalysis(t), ReportXLSX, ""))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Countries")
}

func TestWriteReport_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteReport(&buf, sampleAnalysis(t), "pdf", ""))
	assert.Error(t, WriteReport(&buf, sampleAnalysis(t), ReportCSV, "nope"))
}
