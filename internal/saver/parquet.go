package saver

import (
	"os"

	"github.com/parquet-go/parquet-go"

	"dollar-bars/internal/model"
)

// ParquetSink lưu bars dưới dạng Parquet, streaming row groups through a GenericWriter.
type ParquetSink struct {
	f *os.File
	w *parquet.GenericWriter[BarParquetRow]
}

func NewParquetSink(path string) (*ParquetSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &ParquetSink{f: f, w: parquet.NewGenericWriter[BarParquetRow](f)}, nil
}

func (s *ParquetSink) Write(bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	rows := make([]BarParquetRow, len(bars))
	for i, b := range bars {
		rows[i] = NewBarParquetRow(b)
	}
	_, err := s.w.Write(rows)
	return err
}

func (s *ParquetSink) Close() error {
	if err := s.w.Close(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
