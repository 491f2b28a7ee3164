package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"retailpulse/pkg/contracts/domain"
)

// Report formats
const (
	ReportXLSX = "xlsx"
	ReportCSV  = "csv"
	ReportJSON = "json"
)

// ReportContentType returns the media type of a report format
func ReportContentType(format string) string {
	switch format {
	case ReportCSV:
		return "text/csv; charset=utf-8"
	case ReportJSON:
		return "application/json"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// ReportFileName names a downloaded report, e.g. "retail_report_2011-01-01_2011-12-31.xlsx"
// or "retail_countries_all.csv" when no date range was selected.
func ReportFileName(a *domain.Analysis, format, view string) string {
	if format == "" {
		format = ReportXLSX
	}
	subject := "report"
	if view != "" && format != ReportXLSX {
		subject = view
	}
	period := "all"
	if !a.Params.Start.IsZero() || !a.Params.End.IsZero() {
		period = dateOrOpen(a.Params.Start) + "_" + dateOrOpen(a.Params.End)
	}
	return fmt.Sprintf("retail_%s_%s.%s", subject, period, format)
}

func dateOrOpen(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.Format("2006-01-02")
}

// WriteReport renders a as a workbook, a CSV view or JSON. A workbook always
// carries every view; CSV defaults to the summary view; JSON without a view
// encodes the full analysis.
func WriteReport(w io.Writer, a *domain.Analysis, format, view string) error {
	switch format {
	case "", ReportXLSX:
		f, err := ReportWorkbook(a)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := f.Write(w); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		return nil

	case ReportCSV:
		if view == "" {
			view = ViewSummary
		}
		v, err := ReportView(a, view)
		if err != nil {
			return err
		}
		return WriteCSVTo(w, WriteOptions{Headers: v.Headers, Records: v.Records, BOMPrefix: true})

	case ReportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if view == "" {
			return enc.Encode(a)
		}
		v, err := ReportView(a, view)
		if err != nil {
			return err
		}
		return enc.Encode(viewRows(v))
	}
	return fmt.Errorf("unsupported report format %q", format)
}

// viewRows turns a view into objects keyed by snake_cased headers
func viewRows(v View) []map[string]string {
	keys := make([]string, len(v.Headers))
	for i, h := range v.Headers {
		keys[i] = strings.ReplaceAll(strings.ToLower(h), " ", "_")
	}
	rows := make([]map[string]string, len(v.Records))
	for i, rec := range v.Records {
		row := make(map[string]string, len(keys))
		for j, value := range rec {
			if j < len(keys) {
				row[keys[j]] = value
			}
		}
		rows[i] = row
	}
	return rows
}
