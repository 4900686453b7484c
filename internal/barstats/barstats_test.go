package barstats

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dollar-bars/internal/model"
)

func bar(dv int64, ticks int, dur time.Duration, c model.Closure) model.Bar {
	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	return model.Bar{
		Volume:      decimal.NewFromInt(dv / 10),
		DollarValue: decimal.NewFromInt(dv),
		TickCount:   ticks,
		StartTS:     start,
		EndTS:       start.Add(dur),
		Closure:     c,
	}
}

func TestSummary(t *testing.T) {
	c := &Collector{}
	require.NoError(t, c.Write([]model.Bar{
		bar(1000, 2, 10*time.Second, model.ClosedByThreshold),
		bar(1200, 4, 20*time.Second, model.ClosedByThreshold),
	}))
	require.NoError(t, c.Write([]model.Bar{bar(200, 3, 30*time.Second, model.ClosedByFlush)}))

	s, err := c.Summary("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Bars)
	assert.Equal(t, 1, s.Partial)
	assert.Equal(t, 9, s.Ticks)
	assert.Equal(t, "2400", s.TotalDollarValue.String())
	assert.Equal(t, "240", s.TotalVolume.String())
	assert.InDelta(t, 800, s.MeanDollarValue, 1e-9)
	assert.InDelta(t, 1000, s.MedianDollar, 1e-9)
	assert.InDelta(t, 200, s.MinDollar, 1e-9)
	assert.InDelta(t, 1200, s.MaxDollar, 1e-9)
	assert.InDelta(t, 3, s.MeanTicks, 1e-9)
	assert.InDelta(t, 20, s.MeanDurationSec, 1e-9)
	assert.Greater(t, s.CV(), 0.0)
}

func TestSummaryOfEmptyCollector(t *testing.T) {
	s, err := (&Collector{}).Summary("none")
	require.NoError(t, err)
	assert.Zero(t, s.Bars)
	assert.Zero(t, s.CV())
}

func TestRender(t *testing.T) {
	c := &Collector{}
	require.NoError(t, c.Write([]model.Bar{bar(1000, 2, time.Second, model.ClosedByThreshold)}))
	s, err := c.Summary("BTC")
	require.NoError(t, err)

	var buf bytes.Buffer
	Render(&buf, []Summary{s})
	out := buf.String()
	assert.Contains(t, out, "BTC")
	assert.Contains(t, out, "1000.00")
}
