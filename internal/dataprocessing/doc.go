// Package dataprocessing loads raw retail transaction tables from disk.
//
// A loader picks a reader by file extension and always produces a Table: a
// header row plus string cells. Typing, cleaning and validation happen later
// in the analytics package, so every format goes through the same rules.
//
// # Supported formats
//
//   - .csv: comma separated, optional UTF-8 BOM
//   - .txt, .tsv: tab separated
//   - .xlsx, .xls: first sheet whose header resolves to the transaction schema
//   - .json: an array of flat objects
//   - .parquet: files written with the ParquetRecord schema
//
// # Usage
//
//	loader := dataprocessing.NewLoader(logger)
//	table, err := loader.Load(ctx, "data/online_retail.xlsx")
//	if err != nil {
//	    return err
//	}
//	prepared, err := analytics.Prepare(table.Header, table.Rows, analytics.DefaultNormalizeOptions())
package dataprocessing
