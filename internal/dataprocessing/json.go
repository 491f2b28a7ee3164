package dataprocessing

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// readJSONFile reads an array of flat objects. The header is the sorted
// union of keys; missing and null values read as empty cells.
func readJSONFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode json records: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	keys := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			keys[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(keys))
	for k := range keys {
		header = append(header, k)
	}
	sort.Strings(header)

	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(header))
		for j, k := range header {
			row[j] = jsonCell(rec[k])
		}
		rows[i] = row
	}
	return &Table{Header: header, Rows: rows}, nil
}

func jsonCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
