package saver

import (
	"bufio"
	"encoding/json"
	"os"

	"dollar-bars/internal/model"
)

// JSONSink lưu bars dưới dạng JSON Lines, one object per bar, so files can be appended in batches.
type JSONSink struct {
	f   *os.File
	w   *bufio.Writer
	enc *json.Encoder
}

func NewJSONSink(path string) (*JSONSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	return &JSONSink{f: f, w: w, enc: json.NewEncoder(w)}, nil
}

func (s *JSONSink) Write(bars []model.Bar) error {
	for _, b := range bars {
		if err := s.enc.Encode(NewBarRow(b)); err != nil {
			return err
		}
	}
	return nil
}

func (s *JSONSink) Close() error {
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
