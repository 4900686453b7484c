package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dollar-bars/internal/pipeline"
	"dollar-bars/internal/saver"
	"dollar-bars/internal/source"
	"dollar-bars/internal/source/polygon"
)

const dateLayout = "2006-01-02"

// sinkAt opens a bar file at path, creating its directory.
func (a *App) sinkAt(path string) func() (saver.BarSink, error) {
	return func() (saver.BarSink, error) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		return a.Output.Open(path)
	}
}

// FileJobs makes one partition per tick file in inDir. Output goes to outDir/{stem}.{ext}.
func (a *App) FileJobs(inDir, outDir string) ([]pipeline.Job, error) {
	paths, err := source.ListTickFiles(inDir)
	if err != nil {
		return nil, err
	}
	chunk, opts := a.Config.ChunkSize, a.Config.SourceOptions()
	jobs := make([]pipeline.Job, len(paths))
	for i, p := range paths {
		p := p
		stem := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		jobs[i] = pipeline.Job{
			Name: filepath.Base(p),
			Open: func(context.Context) (source.TickSource, error) { return source.Open(p, chunk, opts...) },
			Sink: a.sinkAt(filepath.Join(outDir, stem+"."+a.Output.Ext)),
		}
	}
	return jobs, nil
}

// TickerJobs makes one partition per ticker, reading trades in [from, to) from Polygon.
// Output goes to outDir/{Ticker}/{ticker}_{from}_to_{to}.{ext}.
func (a *App) TickerJobs(list polygon.ListTradesFunc, tickers []string, from, to time.Time, outDir string) []pipeline.Job {
	chunk := a.Config.ChunkSize
	jobs := make([]pipeline.Job, len(tickers))
	for i, t := range tickers {
		t := t
		name := fmt.Sprintf("%s_%s_to_%s.%s", strings.ToLower(t), from.Format(dateLayout), to.Format(dateLayout), a.Output.Ext)
		jobs[i] = pipeline.Job{
			Name: t,
			Open: func(context.Context) (source.TickSource, error) {
				return polygon.NewTradeSourceWith(list, t, from, to, chunk), nil
			},
			Sink: a.sinkAt(filepath.Join(outDir, t, name)),
		}
	}
	return jobs
}

// RunBatch processes every tick file of inDir as an independent partition.
func (a *App) RunBatch(ctx context.Context, inDir, outDir string, w io.Writer) error {
	if outDir == "" {
		outDir = a.Config.BarsDir()
	}
	jobs, err := a.FileJobs(inDir, outDir)
	if err != nil {
		return err
	}
	a.Logger.Info("batch", "in", inDir, "out", outDir, "files", len(jobs), "format", a.Config.SaveFormat)
	return a.runPartitions(ctx, jobs, outDir, w)
}

// FetchRequest selects the trades to fetch.
type FetchRequest struct {
	Tickers     []string
	TickersFile string
	From, To    time.Time
	OutDir      string
}

// RunFetch pulls trades from Polygon and turns every ticker into its own bar file.
func (a *App) RunFetch(ctx context.Context, req FetchRequest, w io.Writer) error {
	client, err := polygon.NewClient(a.Config.PolygonAPIKey)
	if err != nil {
		return err
	}
	return a.runFetch(ctx, polygon.ClientLister(client), req, w)
}

func (a *App) runFetch(ctx context.Context, list polygon.ListTradesFunc, req FetchRequest, w io.Writer) error {
	tickers := req.Tickers
	if req.TickersFile != "" {
		fromFile, err := source.LoadTickersFromFile(req.TickersFile)
		if err != nil {
			return err
		}
		tickers = append(tickers, fromFile...)
	}
	tickers = source.NormalizeTickers(tickers)
	if len(tickers) == 0 {
		return fmt.Errorf("no tickers: use --ticker or --tickers-file")
	}
	if !req.From.Before(req.To) {
		return fmt.Errorf("empty range: from %s must be before to %s", req.From.Format(dateLayout), req.To.Format(dateLayout))
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = a.Config.BarsDir()
	}
	a.Logger.Info("fetch", "tickers", len(tickers), "from", req.From.Format(dateLayout), "to", req.To.Format(dateLayout), "out", outDir)
	return a.runPartitions(ctx, a.TickerJobs(list, tickers, req.From, req.To, outDir), outDir, w)
}
