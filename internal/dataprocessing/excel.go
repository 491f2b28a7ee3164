package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"retailpulse/internal/analytics"
)

// readExcel returns the first worksheet whose first non-empty row resolves
// to the transaction schema
func (l *Loader) readExcel(ctx context.Context, path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			l.logger.WarnContext(ctx, "skipping unreadable sheet",
				slog.String("sheet", sheet),
				slog.String("error", err.Error()))
			continue
		}
		rows = dropBlankRows(rows)
		if len(rows) == 0 {
			continue
		}
		if _, err := analytics.ResolveColumns(rows[0]); err != nil {
			l.logger.DebugContext(ctx, "sheet has no transaction header",
				slog.String("sheet", sheet),
				slog.String("error", err.Error()))
			continue
		}

		l.logger.InfoContext(ctx, "found transaction data in sheet",
			slog.String("sheet", sheet),
			slog.Int("total_rows", len(rows)))
		return &Table{Header: rows[0], Rows: rows[1:]}, nil
	}
	return nil, ErrNoDataSheet
}
