package polygon

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIter struct {
	trades []models.Trade
	pos    int
	err    error
}

func (f *fakeIter) Next() bool {
	if f.pos >= len(f.trades) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeIter) Item() models.Trade { return f.trades[f.pos-1] }
func (f *fakeIter) Err() error         { return f.err }

var t0 = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

func trades(n int) []models.Trade {
	out := make([]models.Trade, n)
	for i := range out {
		out[i] = models.Trade{
			ID:           "t",
			Price:        170.25,
			Size:         100,
			SipTimestamp: models.Nanos(t0.Add(time.Duration(i) * time.Millisecond)),
		}
	}
	return out
}

func TestTradeSourceChunksAndConverts(t *testing.T) {
	var gotParams *models.ListTradesParams
	it := &fakeIter{trades: trades(5)}
	s := NewTradeSourceWith(func(_ context.Context, p *models.ListTradesParams) TradeIter {
		gotParams = p
		return it
	}, "AAPL", t0, t0.Add(time.Hour), 2)

	var sizes []int
	for {
		chunk, err := s.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(chunk))
		for _, tk := range chunk {
			assert.Equal(t, "AAPL", tk.Symbol)
			assert.Equal(t, "17025", tk.DollarValue().String())
		}
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)

	require.NotNil(t, gotParams)
	assert.Equal(t, "AAPL", gotParams.Ticker)
	require.NotNil(t, gotParams.Order)
	assert.Equal(t, models.Asc, *gotParams.Order)
	require.NotNil(t, gotParams.TimestampGTE)
	assert.True(t, time.Time(*gotParams.TimestampGTE).Equal(t0))
	require.NotNil(t, gotParams.TimestampLT)
	assert.True(t, time.Time(*gotParams.TimestampLT).Equal(t0.Add(time.Hour)))
}

func TestTradeSourceSurfacesIteratorError(t *testing.T) {
	boom := errors.New("429 too many requests")
	s := NewTradeSourceWith(func(context.Context, *models.ListTradesParams) TradeIter {
		return &fakeIter{trades: trades(1), err: boom}
	}, "MSFT", t0, t0.Add(time.Minute), 10)

	_, err := s.Next(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = s.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestNewClientNeedsKey(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
	c, err := NewClient("key")
	require.NoError(t, err)
	assert.NotNil(t, c)
}
