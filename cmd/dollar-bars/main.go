package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dollar-bars/internal/app"
	"dollar-bars/internal/slogx"
)

func init() {
	slog.SetDefault(slogx.NewDefault("info"))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dollar-bars",
		Short:         "Aggregate ordered trade ticks into dollar bars",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := root.PersistentFlags()
	f.String("threshold", "", "dollar value that closes a bar (env BAR_THRESHOLD)")
	f.Int("min-ticks", 1, "minimum ticks per bar (env BAR_MIN_TICKS)")
	f.Int("chunk-size", 100000, "ticks read per chunk (env CHUNK_SIZE)")
	f.Int("workers", 4, "parallel partitions (env WORKERS)")
	f.String("format", "", "output format: csv, json, parquet (env SAVE_FORMAT)")
	f.String("log-level", "", "debug | info | warn | error (env LOG_LEVEL)")
	f.String("symbol-col", "", "symbol column name in tick files (env TICK_SYMBOL_COL)")
	f.String("timestamp-col", "", "timestamp column name in tick files (env TICK_TIMESTAMP_COL)")
	f.String("price-col", "", "price column name in tick files (env TICK_PRICE_COL)")
	f.String("volume-col", "", "volume column name in tick files (env TICK_VOLUME_COL)")

	root.AddCommand(newBuildCmd(), newBatchCmd(), newFetchCmd())
	return root
}

// overrides collects the global flags the user actually set.
func overrides(cmd *cobra.Command) app.Overrides {
	f := cmd.Flags()
	var o app.Overrides
	o.Threshold, _ = f.GetString("threshold")
	o.Format, _ = f.GetString("format")
	o.LogLevel, _ = f.GetString("log-level")
	o.Columns.Symbol, _ = f.GetString("symbol-col")
	o.Columns.Timestamp, _ = f.GetString("timestamp-col")
	o.Columns.Price, _ = f.GetString("price-col")
	o.Columns.Volume, _ = f.GetString("volume-col")
	intFlag := func(name string) *int {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetInt(name)
		return &v
	}
	o.MinTicks = intFlag("min-ticks")
	o.ChunkSize = intFlag("chunk-size")
	o.Workers = intFlag("workers")
	return o
}

// withApp builds the App and a signal-aware context, then runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, err := InitializeApp(overrides(cmd))
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	ctx, stop := app.SignalContext(cmd.Context())
	defer stop()
	return fn(ctx, a)
}

func newBuildCmd() *cobra.Command {
	var req app.BuildRequest
	cmd := &cobra.Command{
		Use:   "build --in FILE [--in FILE...] [--out FILE] [--checkpoint FILE [--final]]",
		Short: "Aggregate tick files, in order, into one bar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Inputs = append(req.Inputs, args...)
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.RunBuild(ctx, req, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringSliceVar(&req.Inputs, "in", nil, "tick files (.parquet, .csv) forming one time-ordered stream")
	cmd.Flags().StringVar(&req.Out, "out", "", "bar file (default DATA_DIR/bars/{first input}.{ext})")
	cmd.Flags().StringVar(&req.Checkpoint, "checkpoint", "", "restore the open bar from FILE and save it back instead of flushing")
	cmd.Flags().BoolVar(&req.Final, "final", false, "with --checkpoint: flush the last bar and remove FILE")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "batch --in DIR [--out DIR]",
		Short: "Aggregate every tick file of a directory as its own partition, in parallel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.RunBatch(ctx, in, out, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "directory of tick files")
	cmd.Flags().StringVar(&out, "out", "", "output directory (default DATA_DIR/bars)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func newFetchCmd() *cobra.Command {
	var req app.FetchRequest
	var from, to string
	cmd := &cobra.Command{
		Use:   "fetch (--ticker T... | --tickers-file FILE) --from YYYY-MM-DD --to YYYY-MM-DD",
		Short: "Fetch trades from Polygon and aggregate each ticker into dollar bars",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.From, err = time.Parse("2006-01-02", from); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if req.To, err = time.Parse("2006-01-02", to); err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.RunFetch(ctx, req, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringSliceVar(&req.Tickers, "ticker", nil, "ticker symbols")
	cmd.Flags().StringVar(&req.TickersFile, "tickers-file", "", "ticker list (.txt one per line, or .json array)")
	cmd.Flags().StringVar(&from, "from", "", "first day, inclusive (UTC)")
	cmd.Flags().StringVar(&to, "to", "", "last day, exclusive (UTC)")
	cmd.Flags().StringVar(&req.OutDir, "out", "", "output directory (default DATA_DIR/bars)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
