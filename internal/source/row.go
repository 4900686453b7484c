package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dollar-bars/internal/model"
)

// TickRow is the Parquet layout of a tick file.
type TickRow struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp"` // Unix nanoseconds
	Price     float64 `parquet:"price"`
	Volume    float64 `parquet:"volume"`
}

// Tick converts the row. Floats go through decimal.NewFromFloat, which keeps the shortest
// decimal that round-trips, so the same file always yields the same decimals.
func (r TickRow) Tick() (model.Tick, error) {
	if math.IsNaN(r.Price) || math.IsInf(r.Price, 0) || math.IsNaN(r.Volume) || math.IsInf(r.Volume, 0) {
		return model.Tick{}, fmt.Errorf("non-finite price %v or volume %v at %d", r.Price, r.Volume, r.Timestamp)
	}
	return model.Tick{
		Symbol:    r.Symbol,
		Timestamp: time.Unix(0, r.Timestamp).UTC(),
		Price:     decimal.NewFromFloat(r.Price),
		Volume:    decimal.NewFromFloat(r.Volume),
	}, nil
}

// TickCSVRow is the CSV layout: header symbol,timestamp,price,volume.
// Price and volume are parsed as decimals directly, without a float step.
type TickCSVRow struct {
	Symbol    string          `csv:"symbol,omitempty"`
	Timestamp CSVTime         `csv:"timestamp"`
	Price     decimal.Decimal `csv:"price"`
	Volume    decimal.Decimal `csv:"volume"`
}

func (r TickCSVRow) Tick() model.Tick {
	return model.Tick{
		Symbol:    r.Symbol,
		Timestamp: time.Time(r.Timestamp),
		Price:     r.Price,
		Volume:    r.Volume,
	}
}

// CSVTime accepts RFC 3339 timestamps or integer Unix epochs. The epoch unit follows the
// digit count: up to 10 seconds, 11-13 milliseconds, 14-16 microseconds, longer nanoseconds.
type CSVTime time.Time

func (t *CSVTime) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*t = CSVTime(epochTime(n, len(strings.TrimPrefix(s, "-"))))
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	*t = CSVTime(ts)
	return nil
}

func (t CSVTime) MarshalCSV() (string, error) {
	return time.Time(t).Format(time.RFC3339Nano), nil
}

func epochTime(n int64, digits int) time.Time {
	switch {
	case digits <= 10:
		return time.Unix(n, 0).UTC()
	case digits <= 13:
		return time.UnixMilli(n).UTC()
	case digits <= 16:
		return time.UnixMicro(n).UTC()
	default:
		return time.Unix(0, n).UTC()
	}
}
