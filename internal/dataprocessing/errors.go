package dataprocessing

import "errors"

var (
	// ErrUnsupportedFormat is returned for file extensions without a reader
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyFile is returned when a file has no header row
	ErrEmptyFile = errors.New("file contains no data")
	// ErrNoDataSheet is returned when no worksheet carries a transaction header
	ErrNoDataSheet = errors.New("no worksheet with a transaction header")
	// ErrFileTooLarge is returned when a file exceeds the loader's size limit
	ErrFileTooLarge = errors.New("file too large")
)
