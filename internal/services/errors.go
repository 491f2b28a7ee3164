package services

import "errors"

// Analytics service errors
var (
	// ErrNoDataset is returned by every query before a dataset is loaded
	ErrNoDataset = errors.New("no dataset loaded")

	// ErrPathOutsideDataDir rejects dataset paths that escape the data directory
	ErrPathOutsideDataDir = errors.New("path outside data directory")
)
