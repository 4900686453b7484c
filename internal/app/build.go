package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dollar-bars/internal/barstats"
	"dollar-bars/internal/dollarbar"
	"dollar-bars/internal/pipeline"
	"dollar-bars/internal/saver"
	"dollar-bars/internal/source"
)

// BuildRequest describes one ordered stream made of one or more tick files.
type BuildRequest struct {
	Inputs []string
	Out    string
	// Checkpoint, when set, is restored before the run and rewritten after it. The open bar
	// is kept in the checkpoint instead of being flushed.
	Checkpoint string
	// Final flushes the open bar at the end of a checkpointed run and removes the checkpoint,
	// closing the series.
	Final bool
}

// RunBuild aggregates req.Inputs, in the given order, into one bar file.
func (a *App) RunBuild(ctx context.Context, req BuildRequest, w io.Writer) error {
	if len(req.Inputs) == 0 {
		return fmt.Errorf("no input files")
	}
	out := req.Out
	if out == "" {
		first := filepath.Base(req.Inputs[0])
		out = filepath.Join(a.Config.BarsDir(), strings.TrimSuffix(first, filepath.Ext(first))+"."+a.Output.Ext)
	}

	agg, restored, err := a.aggregatorFor(req.Checkpoint)
	if err != nil {
		return err
	}
	if restored {
		a.Logger.Info("checkpoint restored", "path", req.Checkpoint)
	}

	src, err := source.OpenAll(req.Inputs, a.Config.ChunkSize, a.Config.SourceOptions()...)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	sink, err := a.Output.Open(out)
	if err != nil {
		return err
	}
	collector := &barstats.Collector{}
	res, err := pipeline.Run(ctx, src, agg, saver.Tee(sink, collector), pipeline.Options{
		Logger:   a.Logger,
		KeepOpen: req.Checkpoint != "" && !req.Final,
	})
	if err != nil {
		// checkpoint left at the previous run
		return err
	}
	switch {
	case req.Checkpoint == "":
	case req.Final:
		if err := os.Remove(req.Checkpoint); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove checkpoint: %w", err)
		}
		a.Logger.Info("checkpoint closed", "path", req.Checkpoint)
	default:
		if err := pipeline.SaveCheckpoint(req.Checkpoint, agg.Snapshot()); err != nil {
			return err
		}
	}

	summary, err := collector.Summary(res.Source)
	if err != nil {
		return err
	}
	barstats.Render(w, []barstats.Summary{summary})
	a.Logger.Info("wrote bars", "path", out, "bars", res.Bars, "pending", res.Pending)
	return nil
}

func (a *App) aggregatorFor(checkpoint string) (*dollarbar.Aggregator, bool, error) {
	if checkpoint == "" {
		agg, err := dollarbar.New(a.Bars)
		return agg, false, err
	}
	return pipeline.ResumeAggregator(a.Bars, checkpoint)
}
