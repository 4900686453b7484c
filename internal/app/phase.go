package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dollar-bars/internal/barstats"
	"dollar-bars/internal/pipeline"
)

const heartbeatInterval = 30 * time.Second

// SignalContext is cancelled on SIGINT or SIGTERM. Running partitions stop between chunks.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// runPartitions runs jobs in parallel, writes the run report into reportDir and prints the
// statistics of the partitions that succeeded.
func (a *App) runPartitions(ctx context.Context, jobs []pipeline.Job, reportDir string, w io.Writer) error {
	if len(jobs) == 0 {
		return fmt.Errorf("nothing to do: no partitions")
	}
	a.Logger.Info("parallel mode", "partitions", len(jobs), "workers", a.Config.Workers,
		"threshold", a.Bars.Threshold.String(), "min_ticks", a.Bars.MinTicks)

	results := pipeline.RunParallel(ctx, jobs, pipeline.ParallelOptions{
		Workers:   a.Config.Workers,
		Config:    a.Bars,
		LogLevel:  a.Config.LogLevel,
		Heartbeat: heartbeatInterval,
	})

	runID, err := pipeline.WriteRunReport(reportDir, results)
	if err != nil {
		a.Logger.Error("write run report", "error", err)
	}

	var summaries []barstats.Summary
	failed := 0
	for _, r := range results {
		if r.Ok {
			summaries = append(summaries, r.Stats)
		} else {
			failed++
		}
	}
	if len(summaries) > 0 {
		barstats.Render(w, summaries)
	}
	if failed > 0 {
		return fmt.Errorf("run %s: %d of %d partitions failed: %s", runID, failed, len(results), pipeline.FailedReasons(results))
	}
	a.Logger.Info("done", "run_id", runID, "partitions", len(results))
	return nil
}
