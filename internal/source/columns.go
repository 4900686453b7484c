package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"dollar-bars/internal/model"
)

// Default tick column names.
const (
	ColSymbol    = "symbol"
	ColTimestamp = "timestamp"
	ColPrice     = "price"
	ColVolume    = "volume"
)

// ErrMixedSymbols is returned when a file stream holds more than one symbol.
var ErrMixedSymbols = errors.New("source: mixed symbols in one stream")

// Columns names the tick columns of a file. Empty fields keep the default names.
type Columns struct {
	Symbol    string
	Timestamp string
	Price     string
	Volume    string
}

func (c Columns) withDefaults() Columns {
	def := func(v, d string) string {
		if v = strings.TrimSpace(v); v == "" {
			return d
		}
		return v
	}
	return Columns{
		Symbol:    def(c.Symbol, ColSymbol),
		Timestamp: def(c.Timestamp, ColTimestamp),
		Price:     def(c.Price, ColPrice),
		Volume:    def(c.Volume, ColVolume),
	}
}

func (c Columns) isDefault() bool {
	return c.withDefaults() == Columns{Symbol: ColSymbol, Timestamp: ColTimestamp, Price: ColPrice, Volume: ColVolume}
}

// renameHeader rewrites a CSV header line so the mapped columns carry the default names.
// Unmapped columns that collide with a default name are prefixed with "_".
func (c Columns) renameHeader(line string) (string, error) {
	fields, err := csv.NewReader(strings.NewReader(line)).Read()
	if err != nil {
		return "", fmt.Errorf("read header: %w", err)
	}
	c = c.withDefaults()
	to := map[string]string{c.Symbol: ColSymbol, c.Timestamp: ColTimestamp, c.Price: ColPrice, c.Volume: ColVolume}
	found := map[string]bool{}
	for i, f := range fields {
		name := strings.TrimSpace(f)
		if canon, ok := to[name]; ok {
			fields[i] = canon
			found[canon] = true
			continue
		}
		switch name {
		case ColSymbol, ColTimestamp, ColPrice, ColVolume:
			fields[i] = "_" + name
		}
	}
	for canon, name := range map[string]string{ColTimestamp: c.Timestamp, ColPrice: c.Price, ColVolume: c.Volume} {
		if !found[canon] {
			return "", fmt.Errorf("column %q not found in header", name)
		}
	}
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(fields); err != nil {
		return "", err
	}
	w.Flush()
	return b.String(), w.Error()
}

// Option configures file sources.
type Option func(*options)

type options struct {
	columns Columns
}

// WithColumns maps custom column names onto symbol, timestamp, price and volume.
func WithColumns(c Columns) Option {
	return func(o *options) { o.columns = c }
}

func applyOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	o.columns = o.columns.withDefaults()
	return o
}

// singleSymbol rejects a tick whose symbol differs from the first symbol seen. Ticks without
// a symbol are not checked.
type singleSymbol struct {
	TickSource
	symbol string
}

// SingleSymbol wraps src so that a stream mixing symbols fails with ErrMixedSymbols instead
// of being merged into one bar series.
func SingleSymbol(src TickSource) TickSource {
	return &singleSymbol{TickSource: src}
}

func (s *singleSymbol) Next(ctx context.Context) ([]model.Tick, error) {
	ticks, err := s.TickSource.Next(ctx)
	if err != nil {
		return ticks, err
	}
	for i, t := range ticks {
		if t.Symbol == "" {
			continue
		}
		if s.symbol == "" {
			s.symbol = t.Symbol
			continue
		}
		if t.Symbol != s.symbol {
			return nil, fmt.Errorf("%w: %s: tick %d has %q after %q", ErrMixedSymbols, s.Name(), i, t.Symbol, s.symbol)
		}
	}
	return ticks, nil
}
