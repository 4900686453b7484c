package saver

import (
	"time"

	"dollar-bars/internal/model"
)

// BarRow is the text layout used by the CSV and JSON sinks. Decimals keep their exact string form.
type BarRow struct {
	StartTS     string `json:"start_ts" csv:"start_ts"`
	EndTS       string `json:"end_ts" csv:"end_ts"`
	Open        string `json:"open" csv:"open"`
	High        string `json:"high" csv:"high"`
	Low         string `json:"low" csv:"low"`
	Close       string `json:"close" csv:"close"`
	Volume      string `json:"volume" csv:"volume"`
	DollarValue string `json:"dollar_value" csv:"dollar_value"`
	VWAP        string `json:"vwap" csv:"vwap"`
	TickCount   int    `json:"tick_count" csv:"tick_count"`
	Closure     string `json:"closure" csv:"closure"`
}

// NewBarRow converts a bar for text output.
func NewBarRow(b model.Bar) BarRow {
	return BarRow{
		StartTS:     b.StartTS.UTC().Format(time.RFC3339Nano),
		EndTS:       b.EndTS.UTC().Format(time.RFC3339Nano),
		Open:        b.Open.String(),
		High:        b.High.String(),
		Low:         b.Low.String(),
		Close:       b.Close.String(),
		Volume:      b.Volume.String(),
		DollarValue: b.DollarValue.String(),
		VWAP:        b.VWAP().StringFixed(8),
		TickCount:   b.TickCount,
		Closure:     string(b.Closure),
	}
}

// BarParquetRow is the Parquet layout. Prices are stored as float64 like other bar
// files; the exact dollar value is kept alongside as a string.
type BarParquetRow struct {
	StartTS          int64   `parquet:"start_ts"` // Unix nanoseconds
	EndTS            int64   `parquet:"end_ts"`
	Open             float64 `parquet:"o"`
	High             float64 `parquet:"h"`
	Low              float64 `parquet:"l"`
	Close            float64 `parquet:"c"`
	Volume           float64 `parquet:"v"`
	DollarValue      float64 `parquet:"dv"`
	DollarValueExact string  `parquet:"dv_exact"`
	VWAP             float64 `parquet:"vw"`
	TickCount        int64   `parquet:"n"`
	Closure          string  `parquet:"closure"`
}

// NewBarParquetRow converts a bar for Parquet output.
func NewBarParquetRow(b model.Bar) BarParquetRow {
	return BarParquetRow{
		StartTS:          b.StartTS.UnixNano(),
		EndTS:            b.EndTS.UnixNano(),
		Open:             b.Open.InexactFloat64(),
		High:             b.High.InexactFloat64(),
		Low:              b.Low.InexactFloat64(),
		Close:            b.Close.InexactFloat64(),
		Volume:           b.Volume.InexactFloat64(),
		DollarValue:      b.DollarValue.InexactFloat64(),
		DollarValueExact: b.DollarValue.String(),
		VWAP:             b.VWAP().InexactFloat64(),
		TickCount:        int64(b.TickCount),
		Closure:          string(b.Closure),
	}
}
