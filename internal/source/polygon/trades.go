// Package polygon is a TickSource over the Polygon trades REST API.
package polygon

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/shopspring/decimal"

	"dollar-bars/internal/model"
)

// Max results per page accepted by /v3/trades
const maxLimit = 50000

// TradeIter is the part of the client iterator the source needs.
type TradeIter interface {
	Next() bool
	Item() models.Trade
	Err() error
}

// ListTradesFunc opens a trade iterator. The default wraps (*polygon.Client).ListTrades.
type ListTradesFunc func(ctx context.Context, params *models.ListTradesParams) TradeIter

// TradeSource streams trades of one ticker in [From, To) in ascending SIP timestamp order.
// Paging (next_url) is handled by the client iterator.
type TradeSource struct {
	Ticker    string
	From, To  time.Time
	chunkSize int
	list      ListTradesFunc
	iter      TradeIter
	done      bool
}

// NewClient creates the REST client shared by every TradeSource of a run.
func NewClient(apiKey string) (*polygon.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("POLYGON_API_KEY not set")
	}
	return polygon.New(apiKey), nil
}

// ClientLister adapts client.ListTrades to ListTradesFunc.
func ClientLister(client *polygon.Client) ListTradesFunc {
	return func(ctx context.Context, p *models.ListTradesParams) TradeIter {
		return client.ListTrades(ctx, p)
	}
}

// NewTradeSource builds a source backed by client.
func NewTradeSource(client *polygon.Client, ticker string, from, to time.Time, chunkSize int) *TradeSource {
	return NewTradeSourceWith(ClientLister(client), ticker, from, to, chunkSize)
}

// NewTradeSourceWith builds a source over a custom iterator constructor.
func NewTradeSourceWith(list ListTradesFunc, ticker string, from, to time.Time, chunkSize int) *TradeSource {
	if chunkSize <= 0 {
		chunkSize = maxLimit
	}
	return &TradeSource{Ticker: ticker, From: from.UTC(), To: to.UTC(), chunkSize: chunkSize, list: list}
}

func (s *TradeSource) Name() string { return s.Ticker }

func (s *TradeSource) params() *models.ListTradesParams {
	return models.ListTradesParams{Ticker: s.Ticker}.
		WithTimestamp(models.GTE, models.Nanos(s.From)).
		WithTimestamp(models.LT, models.Nanos(s.To)).
		WithSort(models.Timestamp).
		WithOrder(models.Asc).
		WithLimit(maxLimit)
}

func (s *TradeSource) Next(ctx context.Context) ([]model.Tick, error) {
	if s.done {
		return nil, io.EOF
	}
	if s.iter == nil {
		s.iter = s.list(ctx, s.params())
	}
	ticks := make([]model.Tick, 0, s.chunkSize)
	for len(ticks) < s.chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.iter.Next() {
			s.done = true
			if err := s.iter.Err(); err != nil {
				return nil, fmt.Errorf("list trades %s: %w", s.Ticker, err)
			}
			break
		}
		tk, err := tradeToTick(s.Ticker, s.iter.Item())
		if err != nil {
			return nil, err
		}
		ticks = append(ticks, tk)
	}
	if len(ticks) == 0 {
		return nil, io.EOF
	}
	return ticks, nil
}

func (s *TradeSource) Close() error { return nil }

func tradeToTick(ticker string, tr models.Trade) (model.Tick, error) {
	if math.IsNaN(tr.Price) || math.IsInf(tr.Price, 0) || math.IsNaN(tr.Size) || math.IsInf(tr.Size, 0) {
		return model.Tick{}, fmt.Errorf("trade %s of %s: non-finite price %v or size %v", tr.ID, ticker, tr.Price, tr.Size)
	}
	return model.Tick{
		Symbol:    ticker,
		Timestamp: time.Time(tr.SipTimestamp).UTC(),
		Price:     decimal.NewFromFloat(tr.Price),
		Volume:    decimal.NewFromFloat(tr.Size),
	}, nil
}
