package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

func runLogWriter(w io.Writer, lines <-chan string) {
	for s := range lines {
		fmt.Fprintln(w, s)
	}
}

type errorEntry struct {
	Partition string
	Reason    string
}

func runErrorHandler(errors <-chan errorEntry, logger *slog.Logger) {
	for e := range errors {
		logger.Error("partition error", "partition", e.Partition, "error", e.Reason)
	}
}

// progress is shared between the result collector and the heartbeat.
type progress struct {
	mu              sync.Mutex
	success, failed int
	ticks, bars     int
}

func (p *progress) record(r JobResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.Ok {
		p.success++
	} else {
		p.failed++
	}
	p.ticks += r.Result.Ticks
	p.bars += r.Result.Bars
}

func (p *progress) snapshot() (success, failed, ticks, bars int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.success, p.failed, p.ticks, p.bars
}

func runHeartbeat(ctx context.Context, interval time.Duration, totalJobs int, p *progress, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, f, ticks, bars := p.snapshot()
			logger.Info("heartbeat", "done", s+f, "total", totalJobs, "success", s, "failed", f, "ticks", ticks, "bars", bars)
		}
	}
}
