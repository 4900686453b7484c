package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Closure tells how a bar was closed.
type Closure string

const (
	// ClosedByThreshold marks a bar whose dollar value crossed the configured threshold.
	ClosedByThreshold Closure = "threshold"
	// ClosedByFlush marks the partial bar emitted when the tick stream ended.
	ClosedByFlush Closure = "flush"
)

// Bar represents one dollar bar.
// Dùng chung cho aggregator, saver và barstats. Bars are values: once emitted they are never mutated.
type Bar struct {
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	Volume      decimal.Decimal
	DollarValue decimal.Decimal
	TickCount   int
	StartTS     time.Time
	EndTS       time.Time
	Closure     Closure
}

// Partial reports whether the bar was flushed at stream end rather than closed by the threshold.
func (b Bar) Partial() bool {
	return b.Closure == ClosedByFlush
}

// VWAP returns DollarValue / Volume, or zero when the bar has no volume.
func (b Bar) VWAP() decimal.Decimal {
	if b.Volume.IsZero() {
		return decimal.Zero
	}
	return b.DollarValue.Div(b.Volume)
}
