package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"dollar-bars/internal/barstats"
	"dollar-bars/internal/dollarbar"
	"dollar-bars/internal/saver"
	"dollar-bars/internal/slogx"
	"dollar-bars/internal/source"
)

// Job is one partition: a disjoint, time-ordered tick stream with its own output.
type Job struct {
	Name string
	Open func(ctx context.Context) (source.TickSource, error)
	Sink func() (saver.BarSink, error)
}

// JobResult is sent by workers for fan-in
type JobResult struct {
	Index  int
	Ok     bool
	Name   string
	Reason string
	Result Result
	Stats  barstats.Summary
}

// ParallelOptions configure RunParallel.
type ParallelOptions struct {
	Workers   int
	Config    dollarbar.Config
	LogLevel  string
	LogOutput io.Writer     // default os.Stderr
	Heartbeat time.Duration // 0 disables the heartbeat
}

// RunParallel runs every job with its own aggregator on a pool of workers. A single stream is
// never split: parallelism is across jobs only. Results are returned in job order, so
// concatenating outputs in that order keeps time order when jobs are consecutive ranges.
// A failed job is reported in its JobResult and does not stop the others.
func RunParallel(ctx context.Context, jobs []Job, opts ParallelOptions) []JobResult {
	if err := opts.Config.Validate(); err != nil {
		out := make([]JobResult, len(jobs))
		for i, j := range jobs {
			out[i] = JobResult{Index: i, Name: j.Name, Reason: err.Error()}
		}
		return out
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	output := opts.LogOutput
	if output == nil {
		output = os.Stderr
	}

	logs := make(chan string, 2048)
	logger := slogx.NewChanLogger(logs, opts.LogLevel)
	errs := make(chan errorEntry, 64)
	var logWg sync.WaitGroup
	logWg.Add(1)
	go func() {
		defer logWg.Done()
		runLogWriter(output, logs)
	}()
	var errWg sync.WaitGroup
	errWg.Add(1)
	go func() {
		defer errWg.Done()
		runErrorHandler(errs, logger)
	}()
	defer func() {
		close(errs)
		errWg.Wait()
		close(logs)
		logWg.Wait()
	}()

	hbCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type indexedJob struct {
		i int
		Job
	}
	pending := make(chan indexedJob, len(jobs))
	for i, j := range jobs {
		pending <- indexedJob{i, j}
	}
	close(pending)

	out := make([]JobResult, len(jobs))
	seen := make([]bool, len(jobs))
	results := make(chan JobResult, len(jobs))
	var p progress
	var resWg sync.WaitGroup
	resWg.Add(1)
	go func() {
		defer resWg.Done()
		for r := range results {
			out[r.Index] = r
			seen[r.Index] = true
			p.record(r)
		}
	}()

	var hbWg sync.WaitGroup
	if opts.Heartbeat > 0 {
		hbWg.Add(1)
		go func() {
			defer hbWg.Done()
			runHeartbeat(hbCtx, opts.Heartbeat, len(jobs), &p, logger)
		}()
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-pending:
					if !ok {
						return
					}
					logger.Info("partition start", "partition", job.Name)
					r := runJob(ctx, job.Job, opts.Config, logger)
					r.Index = job.i
					if !r.Ok {
						logger.Error("partition fail", "partition", job.Name, "reason", r.Reason)
						select {
						case errs <- errorEntry{Partition: job.Name, Reason: r.Reason}:
						default:
						}
					} else {
						logger.Info("partition ok", "partition", job.Name, "ticks", r.Result.Ticks, "bars", r.Result.Bars)
					}
					results <- r
				}
			}
		}()
	}
	wg.Wait()
	close(results)
	resWg.Wait()
	cancel()
	hbWg.Wait()

	// jobs never picked up because of cancellation
	for i := range out {
		if !seen[i] {
			out[i] = JobResult{Index: i, Name: jobs[i].Name, Reason: fmt.Sprintf("not run: %v", context.Cause(ctx))}
		}
	}

	success, failed, ticks, bars := p.snapshot()
	logger.Info("summary", "partitions", len(jobs), "success", success, "failed", failed, "ticks", ticks, "bars", bars)
	return out
}

func runJob(ctx context.Context, job Job, cfg dollarbar.Config, logger *slog.Logger) JobResult {
	fail := func(err error) JobResult {
		return JobResult{Name: job.Name, Reason: err.Error()}
	}
	agg, err := dollarbar.New(cfg)
	if err != nil {
		return fail(err)
	}
	src, err := job.Open(ctx)
	if err != nil {
		return fail(fmt.Errorf("open source: %w", err))
	}
	defer src.Close()
	sink, err := job.Sink()
	if err != nil {
		return fail(fmt.Errorf("open sink: %w", err))
	}
	collector := &barstats.Collector{}
	res, err := Run(ctx, src, agg, saver.Tee(sink, collector), Options{Logger: logger.With("partition", job.Name)})
	if err != nil {
		return JobResult{Name: job.Name, Reason: err.Error(), Result: res}
	}
	summary, err := collector.Summary(job.Name)
	if err != nil {
		logger.Warn("stats unavailable", "partition", job.Name, "error", err)
	}
	return JobResult{Ok: true, Name: job.Name, Result: res, Stats: summary}
}
