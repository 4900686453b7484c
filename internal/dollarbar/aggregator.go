// Package dollarbar turns an ordered tick stream into dollar bars.
//
// An Aggregator keeps one open accumulator. Each tick is folded into it and the
// bar closes as soon as its cumulative dollar value reaches the threshold and it
// holds at least MinTicks ticks. A tick is never split between two bars: the
// bar that crosses the threshold takes the whole tick, so DollarValue of a
// closed bar is >= Threshold rather than equal to it.
//
// The accumulator survives across ProcessBatch calls, so bar boundaries do not
// depend on how the input is chunked. An Aggregator is not safe for concurrent
// use.
package dollarbar

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dollar-bars/internal/model"
)

// accumulator is the in-progress bar. tickCount == 0 means empty.
type accumulator struct {
	open, high, low, close decimal.Decimal
	volume                 decimal.Decimal
	dollarValue            decimal.Decimal
	tickCount              int
	startTS, endTS         time.Time
}

func (a *accumulator) empty() bool { return a.tickCount == 0 }

func (a *accumulator) add(t model.Tick) {
	if a.empty() {
		a.open, a.high, a.low = t.Price, t.Price, t.Price
		a.volume, a.dollarValue = decimal.Zero, decimal.Zero
		a.startTS = t.Timestamp
	}
	a.high = decimal.Max(a.high, t.Price)
	a.low = decimal.Min(a.low, t.Price)
	a.close = t.Price
	a.endTS = t.Timestamp
	a.volume = a.volume.Add(t.Volume)
	a.dollarValue = a.dollarValue.Add(t.DollarValue())
	a.tickCount++
}

func (a *accumulator) bar(c model.Closure) model.Bar {
	return model.Bar{
		Open:        a.open,
		High:        a.high,
		Low:         a.low,
		Close:       a.close,
		Volume:      a.volume,
		DollarValue: a.dollarValue,
		TickCount:   a.tickCount,
		StartTS:     a.startTS,
		EndTS:       a.endTS,
		Closure:     c,
	}
}

// Aggregator accumulates ticks into dollar bars.
type Aggregator struct {
	cfg      Config
	acc      accumulator
	lastSeen time.Time
	seen     bool
}

// New validates cfg and returns an aggregator in the empty state.
func New(cfg Config) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{cfg: cfg}, nil
}

// Config returns the configuration the aggregator was built with.
func (a *Aggregator) Config() Config { return a.cfg }

// Process folds t into the open bar. When the bar closes it is returned with ok == true
// and the accumulator is reset. A rejected tick leaves the state untouched.
func (a *Aggregator) Process(t model.Tick) (bar model.Bar, ok bool, err error) {
	if a.seen && t.Timestamp.Before(a.lastSeen) {
		return model.Bar{}, false, &OutOfOrderTickError{Last: a.lastSeen, Got: t.Timestamp}
	}
	if !t.Price.IsPositive() {
		return model.Bar{}, false, fmt.Errorf("%w: price must be positive, got %s at %s", ErrInvalidTick, t.Price, t.Timestamp.Format(time.RFC3339Nano))
	}
	if t.Volume.IsNegative() {
		return model.Bar{}, false, fmt.Errorf("%w: volume must not be negative, got %s at %s", ErrInvalidTick, t.Volume, t.Timestamp.Format(time.RFC3339Nano))
	}

	a.lastSeen, a.seen = t.Timestamp, true
	a.acc.add(t)

	if a.acc.dollarValue.GreaterThanOrEqual(a.cfg.Threshold) && a.acc.tickCount >= a.cfg.MinTicks {
		bar = a.acc.bar(model.ClosedByThreshold)
		a.acc = accumulator{}
		return bar, true, nil
	}
	return model.Bar{}, false, nil
}

// ProcessBatch runs Process over ticks and collects the closed bars. The open bar is kept
// for the next call. On error it returns the bars closed before the failing tick; ticks
// before it remain applied.
func (a *Aggregator) ProcessBatch(ticks []model.Tick) ([]model.Bar, error) {
	var bars []model.Bar
	for i, t := range ticks {
		bar, ok, err := a.Process(t)
		if err != nil {
			return bars, fmt.Errorf("tick %d of batch: %w", i, err)
		}
		if ok {
			bars = append(bars, bar)
		}
	}
	return bars, nil
}

// Flush emits the open bar as a partial bar (Closure == model.ClosedByFlush) regardless of
// threshold and min ticks. It is a no-op when nothing is open.
func (a *Aggregator) Flush() (model.Bar, bool) {
	if a.acc.empty() {
		return model.Bar{}, false
	}
	bar := a.acc.bar(model.ClosedByFlush)
	a.acc = accumulator{}
	return bar, true
}

// Pending returns a copy of the open bar without closing it.
func (a *Aggregator) Pending() (model.Bar, bool) {
	if a.acc.empty() {
		return model.Bar{}, false
	}
	return a.acc.bar(""), true
}
