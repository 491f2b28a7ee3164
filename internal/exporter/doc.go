// Package exporter writes cleaned transactions and analysis results to disk.
//
// CSVWriter is the low-level CSV writer with UTF-8 BOM support for Excel.
// TransactionExporter saves a cleaned batch in the same format family as its
// source (CSV, tab-separated text, XLSX, JSON or Parquet). The report
// functions render an analysis as tabular views and as a multi-sheet XLSX
// workbook.
//
// Example usage:
//
//	exp := exporter.NewTransactionExporter("exports", logger)
//	path, err := exp.Export(ctx, "online_retail.xlsx", txs)
//
//	f, err := exporter.ReportWorkbook(analysis)
//	err = f.SaveAs("report.xlsx")
package exporter
