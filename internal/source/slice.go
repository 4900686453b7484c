package source

import (
	"context"
	"io"
	"strings"

	"dollar-bars/internal/model"
)

// SliceSource serves an in-memory tick slice in fixed-size chunks.
type SliceSource struct {
	name      string
	ticks     []model.Tick
	chunkSize int
	pos       int
}

// NewSliceSource returns a source over ticks. The slice is not copied.
func NewSliceSource(name string, ticks []model.Tick, chunkSize int) *SliceSource {
	return &SliceSource{name: name, ticks: ticks, chunkSize: chunkSizeOrDefault(chunkSize)}
}

func (s *SliceSource) Name() string { return s.name }

func (s *SliceSource) Next(ctx context.Context) ([]model.Tick, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.ticks) {
		return nil, io.EOF
	}
	end := s.pos + s.chunkSize
	if end > len(s.ticks) {
		end = len(s.ticks)
	}
	chunk := s.ticks[s.pos:end]
	s.pos = end
	return chunk, nil
}

func (s *SliceSource) Close() error { return nil }

// MultiSource reads several sources one after another as a single stream,
// e.g. one file per trading day. Each source is closed once it is exhausted.
type MultiSource struct {
	sources []TickSource
	cur     int
}

// NewMultiSource concatenates sources in the given order.
func NewMultiSource(sources ...TickSource) *MultiSource {
	return &MultiSource{sources: sources}
}

func (m *MultiSource) Name() string {
	names := make([]string, len(m.sources))
	for i, s := range m.sources {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

func (m *MultiSource) Next(ctx context.Context) ([]model.Tick, error) {
	for m.cur < len(m.sources) {
		ticks, err := m.sources[m.cur].Next(ctx)
		if err == io.EOF {
			if cerr := m.sources[m.cur].Close(); cerr != nil {
				return nil, cerr
			}
			m.cur++
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(ticks) == 0 {
			continue
		}
		return ticks, nil
	}
	return nil, io.EOF
}

// Close closes the sources that have not been exhausted yet.
func (m *MultiSource) Close() error {
	var first error
	for ; m.cur < len(m.sources); m.cur++ {
		if err := m.sources[m.cur].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
