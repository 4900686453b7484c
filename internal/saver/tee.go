package saver

import (
	"errors"

	"dollar-bars/internal/model"
)

type teeSink []BarSink

// Tee writes every batch to all sinks in order. Close closes all of them and joins the errors.
func Tee(sinks ...BarSink) BarSink {
	return teeSink(sinks)
}

func (t teeSink) Write(bars []model.Bar) error {
	for _, s := range t {
		if err := s.Write(bars); err != nil {
			return err
		}
	}
	return nil
}

func (t teeSink) Close() error {
	var errs []error
	for _, s := range t {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
