package dollarbar

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Checkpoint is a serializable copy of an aggregator's state. Decimals marshal as JSON strings.
type Checkpoint struct {
	Threshold decimal.Decimal `json:"threshold"`
	MinTicks  int             `json:"min_ticks"`
	LastSeen  *time.Time      `json:"last_seen,omitempty"`
	Open      *OpenBar        `json:"open,omitempty"`
}

// OpenBar is the accumulator part of a Checkpoint.
type OpenBar struct {
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Close       decimal.Decimal `json:"close"`
	Volume      decimal.Decimal `json:"volume"`
	DollarValue decimal.Decimal `json:"dollar_value"`
	TickCount   int             `json:"tick_count"`
	StartTS     time.Time       `json:"start_ts"`
	EndTS       time.Time       `json:"end_ts"`
}

// Snapshot captures the current state. The aggregator is not modified.
func (a *Aggregator) Snapshot() Checkpoint {
	cp := Checkpoint{Threshold: a.cfg.Threshold, MinTicks: a.cfg.MinTicks}
	if a.seen {
		ts := a.lastSeen
		cp.LastSeen = &ts
	}
	if !a.acc.empty() {
		cp.Open = &OpenBar{
			Open:        a.acc.open,
			High:        a.acc.high,
			Low:         a.acc.low,
			Close:       a.acc.close,
			Volume:      a.acc.volume,
			DollarValue: a.acc.dollarValue,
			TickCount:   a.acc.tickCount,
			StartTS:     a.acc.startTS,
			EndTS:       a.acc.endTS,
		}
	}
	return cp
}

// Restore builds an aggregator that continues from cp. cfg must equal the config cp was taken with.
func Restore(cfg Config, cp Checkpoint) (*Aggregator, error) {
	a, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if !cp.Threshold.Equal(cfg.Threshold) || cp.MinTicks != cfg.MinTicks {
		return nil, fmt.Errorf("%w: checkpoint threshold=%s min_ticks=%d, config threshold=%s min_ticks=%d",
			ErrCheckpointMismatch, cp.Threshold, cp.MinTicks, cfg.Threshold, cfg.MinTicks)
	}
	if cp.LastSeen != nil {
		a.lastSeen, a.seen = *cp.LastSeen, true
	}
	if o := cp.Open; o != nil && o.TickCount > 0 {
		if !a.seen {
			return nil, fmt.Errorf("%w: open bar without last seen timestamp", ErrCheckpointMismatch)
		}
		a.acc = accumulator{
			open:        o.Open,
			high:        o.High,
			low:         o.Low,
			close:       o.Close,
			volume:      o.Volume,
			dollarValue: o.DollarValue,
			tickCount:   o.TickCount,
			startTS:     o.StartTS,
			endTS:       o.EndTS,
		}
	}
	return a, nil
}
