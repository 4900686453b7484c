// Package barstats summarizes emitted dollar bars: size dispersion, ticks per bar and bar duration.
package barstats

import (
	"fmt"
	"io"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"dollar-bars/internal/model"
)

// Collector records bars as they stream past. It satisfies saver.BarSink so it can be teed
// next to a file sink. Only three floats are kept per bar.
type Collector struct {
	dollarValues []float64
	tickCounts   []float64
	durations    []float64
	total        decimal.Decimal
	volume       decimal.Decimal
	ticks        int
	partial      int
}

func (c *Collector) Write(bars []model.Bar) error {
	for _, b := range bars {
		c.dollarValues = append(c.dollarValues, b.DollarValue.InexactFloat64())
		c.tickCounts = append(c.tickCounts, float64(b.TickCount))
		c.durations = append(c.durations, b.EndTS.Sub(b.StartTS).Seconds())
		c.total = c.total.Add(b.DollarValue)
		c.volume = c.volume.Add(b.Volume)
		c.ticks += b.TickCount
		if b.Partial() {
			c.partial++
		}
	}
	return nil
}

func (c *Collector) Close() error { return nil }

// Summary is the statistics of one bar stream.
type Summary struct {
	Name             string
	Bars             int
	Partial          int
	Ticks            int
	TotalDollarValue decimal.Decimal
	TotalVolume      decimal.Decimal
	MeanDollarValue  float64
	MedianDollar     float64
	StdDevDollar     float64
	MinDollar        float64
	MaxDollar        float64
	P95Dollar        float64
	MeanTicks        float64
	MeanDurationSec  float64
}

// CV is the coefficient of variation of bar dollar value. Dollar bars with a well-chosen
// threshold keep it small.
func (s Summary) CV() float64 {
	if s.MeanDollarValue == 0 {
		return 0
	}
	return s.StdDevDollar / s.MeanDollarValue
}

// Summary computes the statistics. An empty collector yields a zero summary.
func (c *Collector) Summary(name string) (Summary, error) {
	s := Summary{
		Name:             name,
		Bars:             len(c.dollarValues),
		Partial:          c.partial,
		Ticks:            c.ticks,
		TotalDollarValue: c.total,
		TotalVolume:      c.volume,
	}
	if s.Bars == 0 {
		return s, nil
	}
	dv := stats.Float64Data(c.dollarValues)
	var err error
	if s.MeanDollarValue, err = stats.Mean(dv); err != nil {
		return s, fmt.Errorf("mean: %w", err)
	}
	if s.MedianDollar, err = stats.Median(dv); err != nil {
		return s, fmt.Errorf("median: %w", err)
	}
	if s.StdDevDollar, err = stats.StandardDeviation(dv); err != nil {
		return s, fmt.Errorf("standard deviation: %w", err)
	}
	if s.MinDollar, err = stats.Min(dv); err != nil {
		return s, fmt.Errorf("min: %w", err)
	}
	if s.MaxDollar, err = stats.Max(dv); err != nil {
		return s, fmt.Errorf("max: %w", err)
	}
	if s.P95Dollar, err = stats.PercentileNearestRank(dv, 95); err != nil {
		return s, fmt.Errorf("percentile: %w", err)
	}
	if s.MeanTicks, err = stats.Mean(c.tickCounts); err != nil {
		return s, fmt.Errorf("mean ticks: %w", err)
	}
	if s.MeanDurationSec, err = stats.Mean(c.durations); err != nil {
		return s, fmt.Errorf("mean duration: %w", err)
	}
	return s, nil
}

// Render prints summaries as a table, one row per stream.
func Render(w io.Writer, summaries []Summary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"stream", "bars", "partial", "ticks", "total $", "mean $", "median $", "std $", "cv", "p95 $", "ticks/bar", "sec/bar"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, s := range summaries {
		table.Append([]string{
			s.Name,
			fmt.Sprintf("%d", s.Bars),
			fmt.Sprintf("%d", s.Partial),
			fmt.Sprintf("%d", s.Ticks),
			s.TotalDollarValue.StringFixed(2),
			fmt.Sprintf("%.2f", s.MeanDollarValue),
			fmt.Sprintf("%.2f", s.MedianDollar),
			fmt.Sprintf("%.2f", s.StdDevDollar),
			fmt.Sprintf("%.4f", s.CV()),
			fmt.Sprintf("%.2f", s.P95Dollar),
			fmt.Sprintf("%.1f", s.MeanTicks),
			fmt.Sprintf("%.1f", s.MeanDurationSec),
		})
	}
	table.Render()
}
