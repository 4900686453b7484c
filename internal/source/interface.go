// Package source delivers time-ordered ticks in bounded chunks.
package source

import (
	"context"

	"dollar-bars/internal/model"
)

// DefaultChunkSize is used when a source is opened with a non-positive chunk size.
const DefaultChunkSize = 100000

// TickSource is the abstraction the pipeline reads ticks from.
// Next returns the next chunk in timestamp order and io.EOF once the source is exhausted.
// Implementations are responsible for their own resource cleanup in Close.
type TickSource interface {
	Name() string
	Next(ctx context.Context) ([]model.Tick, error)
	Close() error
}

func chunkSizeOrDefault(n int) int {
	if n <= 0 {
		return DefaultChunkSize
	}
	return n
}
