package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	successReportFile = ".lastrun.success.json"
	failedReportFile  = ".lastrun.failed.json"
)

type successEntry struct {
	RunID     string `json:"run_id"`
	Partition string `json:"partition"`
	Ticks     int    `json:"ticks"`
	Bars      int    `json:"bars"`
	Partial   bool   `json:"partial"`
}

type failedEntry struct {
	RunID     string `json:"run_id"`
	Partition string `json:"partition"`
	Reason    string `json:"reason"`
}

// WriteRunReport writes .lastrun.success.json and .lastrun.failed.json into dir, tagged with a
// fresh run ID. A report file is removed when its list is empty, so stale failures from an
// earlier run do not linger.
func WriteRunReport(dir string, results []JobResult) (string, error) {
	runID := uuid.NewString()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return runID, err
	}
	var ok []successEntry
	var failed []failedEntry
	for _, r := range results {
		if r.Ok {
			ok = append(ok, successEntry{RunID: runID, Partition: r.Name, Ticks: r.Result.Ticks, Bars: r.Result.Bars, Partial: r.Result.Partial})
		} else {
			failed = append(failed, failedEntry{RunID: runID, Partition: r.Name, Reason: r.Reason})
		}
	}
	if err := writeReportFile(filepath.Join(dir, successReportFile), ok, len(ok)); err != nil {
		return runID, err
	}
	if err := writeReportFile(filepath.Join(dir, failedReportFile), failed, len(failed)); err != nil {
		return runID, err
	}
	slog.Info("report written", "run_id", runID, "dir", dir, "success", len(ok), "failed", len(failed), "at", time.Now().UTC().Format(time.RFC3339))
	return runID, nil
}

func writeReportFile(path string, v any, n int) error {
	if n == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// FailedReasons joins failure reasons for a one-line log, truncating long lists.
func FailedReasons(results []JobResult) string {
	var failed []JobResult
	for _, r := range results {
		if !r.Ok {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return ""
	}
	var b strings.Builder
	for i, f := range failed {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Reason)
		if i >= 4 && len(failed) > 6 {
			b.WriteString(fmt.Sprintf(" (+%d more)", len(failed)-5))
			break
		}
	}
	return b.String()
}
