package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"dollar-bars/internal/dollarbar"
)

// LoadCheckpoint reads a checkpoint file. ok is false when the file does not exist yet.
func LoadCheckpoint(path string) (cp dollarbar.Checkpoint, ok bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cp, false, nil
	}
	if err != nil {
		return cp, false, fmt.Errorf("read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return cp, false, fmt.Errorf("parse checkpoint %s: %w", path, err)
	}
	return cp, true, nil
}

// SaveCheckpoint writes cp next to path and renames it into place, so a crash never leaves
// a half-written checkpoint.
func SaveCheckpoint(path string, cp dollarbar.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	slog.Debug("checkpoint saved", "path", path, "open", cp.Open != nil)
	return nil
}

// ResumeAggregator restores the aggregator from the checkpoint at path, or creates a fresh one
// when there is no checkpoint yet.
func ResumeAggregator(cfg dollarbar.Config, path string) (*dollarbar.Aggregator, bool, error) {
	cp, ok, err := LoadCheckpoint(path)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		agg, err := dollarbar.New(cfg)
		return agg, false, err
	}
	agg, err := dollarbar.Restore(cfg, cp)
	if err != nil {
		return nil, false, fmt.Errorf("restore %s: %w", path, err)
	}
	return agg, true, nil
}
