// Package files discovers and resolves files below a root directory.
//
// The analytics service keeps one Discovery over the data directory, where
// loadable transaction files live, and one over the export directory, where
// cleaned datasets are written. Resolve confines request paths to the root;
// FindDataFiles lists the files the dataset loader understands.
//
// Example usage:
//
//	data := files.NewDiscovery("data", logger)
//	available, err := data.FindDataFiles(ctx)
//	path, err := data.Resolve("2011/online_retail.xlsx")
package files
