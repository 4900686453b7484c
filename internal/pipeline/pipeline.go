// Package pipeline drives TickSource -> Aggregator -> BarSink, for one stream or for many
// disjoint partitions in parallel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"dollar-bars/internal/dollarbar"
	"dollar-bars/internal/model"
	"dollar-bars/internal/saver"
	"dollar-bars/internal/source"
)

// Options tune a single-stream run.
type Options struct {
	Logger *slog.Logger
	// KeepOpen skips the final flush so the open bar can be checkpointed and continued later.
	KeepOpen bool
}

// Result describes one finished stream.
type Result struct {
	Source  string
	Chunks  int
	Ticks   int
	Bars    int
	Partial bool // a flushed partial bar was written
	Pending bool // an open bar was left in the aggregator (KeepOpen)
}

// Run pulls chunks from src until io.EOF, writes closed bars to sink after every chunk and,
// unless KeepOpen is set, flushes the open bar at the end. Run owns sink and closes it;
// closing is the end-of-stream signal. The context is checked between chunks only.
func Run(ctx context.Context, src source.TickSource, agg *dollarbar.Aggregator, sink saver.BarSink, opts Options) (res Result, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	res.Source = src.Name()
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("%s: close sink: %w", res.Source, cerr))
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ticks, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("%s: read ticks: %w", res.Source, err)
		}
		bars, perr := agg.ProcessBatch(ticks)
		// bars closed before a rejected tick are complete; keep them
		if werr := sink.Write(bars); werr != nil {
			return res, fmt.Errorf("%s: write bars: %w", res.Source, werr)
		}
		res.Bars += len(bars)
		if perr != nil {
			return res, fmt.Errorf("%s: chunk %d: %w", res.Source, res.Chunks+1, perr)
		}
		res.Chunks++
		res.Ticks += len(ticks)
		logger.Debug("chunk processed", "source", res.Source, "chunk", res.Chunks, "ticks", len(ticks), "bars", len(bars))
	}

	if opts.KeepOpen {
		_, res.Pending = agg.Pending()
	} else if bar, ok := agg.Flush(); ok {
		if err := sink.Write([]model.Bar{bar}); err != nil {
			return res, fmt.Errorf("%s: write partial bar: %w", res.Source, err)
		}
		res.Bars++
		res.Partial = true
	}
	logger.Info("stream done", "source", res.Source, "ticks", res.Ticks, "bars", res.Bars, "partial", res.Partial, "pending", res.Pending)
	return res, nil
}
