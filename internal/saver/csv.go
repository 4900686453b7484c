package saver

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"dollar-bars/internal/model"
)

// CSVSink lưu bars dưới dạng CSV. The header is written with the first batch.
type CSVSink struct {
	f           *os.File
	wroteHeader bool
}

func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &CSVSink{f: f}, nil
}

func (s *CSVSink) Write(bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	rows := make([]BarRow, len(bars))
	for i, b := range bars {
		rows[i] = NewBarRow(b)
	}
	if s.wroteHeader {
		return gocsv.MarshalWithoutHeaders(&rows, s.f)
	}
	s.wroteHeader = true
	return gocsv.Marshal(&rows, s.f)
}

// Close writes a header-only file when no bar was written, then closes it.
func (s *CSVSink) Close() error {
	if !s.wroteHeader {
		if err := gocsv.Marshal(&[]BarRow{}, s.f); err != nil {
			s.f.Close()
			return fmt.Errorf("write header: %w", err)
		}
	}
	return s.f.Close()
}
