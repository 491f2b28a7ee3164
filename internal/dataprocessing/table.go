package dataprocessing

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a source file format
type Format string

const (
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatExcel   Format = "xlsx"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// DetectFormat maps a file extension onto a format
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".txt", ".tsv":
		return FormatTSV, nil
	case ".xlsx", ".xls", ".xlsm":
		return FormatExcel, nil
	case ".json":
		return FormatJSON, nil
	case ".parquet":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Table is a rectangular set of string cells with a header row
type Table struct {
	Source string
	Format Format
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// dropBlankRows removes rows whose cells are all empty
func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
