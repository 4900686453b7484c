package saver

import (
	"fmt"
	"strings"

	"dollar-bars/internal/model"
)

// BarSink receives bars (file, memory, stats...).
// The pipeline calls Write with every batch of closed bars, in stream order, and Close once
// the stream ended and the final partial bar (if any) was written.
type BarSink interface {
	Write(bars []model.Bar) error
	Close() error
}

// Formats supported by NewBarSink.
const (
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatParquet = "parquet"
)

// NormalizeFormat lower-cases and validates format.
func NormalizeFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	switch f {
	case FormatCSV, FormatJSON, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported SAVE_FORMAT %q (use: csv, parquet, json)", format)
	}
}

// Extension returns the file extension written by format.
func Extension(format string) string {
	if f, err := NormalizeFormat(format); err == nil && f == FormatJSON {
		return "jsonl"
	}
	return strings.ToLower(strings.TrimSpace(format))
}

// NewBarSink creates a file sink by format (csv, parquet, json) at path.
func NewBarSink(format, path string) (BarSink, error) {
	f, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatCSV:
		return NewCSVSink(path)
	case FormatJSON:
		return NewJSONSink(path)
	default:
		return NewParquetSink(path)
	}
}

// Factory opens a sink at path. It lets callers pick the format once and open many files.
type Factory func(path string) (BarSink, error)

// NewFactory validates format and returns a Factory for it.
func NewFactory(format string) (Factory, string, error) {
	f, err := NormalizeFormat(format)
	if err != nil {
		return nil, "", err
	}
	return func(path string) (BarSink, error) { return NewBarSink(f, path) }, Extension(f), nil
}
