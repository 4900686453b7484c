package saver

import (
	"errors"

	"dollar-bars/internal/model"
)

var errSinkClosed = errors.New("saver: write after close")

// MemorySink keeps bars in memory, for handing bars to an in-process consumer.
type MemorySink struct {
	Bars   []model.Bar
	Closed bool
}

func (s *MemorySink) Write(bars []model.Bar) error {
	if s.Closed {
		return errSinkClosed
	}
	s.Bars = append(s.Bars, bars...)
	return nil
}

func (s *MemorySink) Close() error {
	s.Closed = true
	return nil
}
