package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"dollar-bars/internal/model"
)

// CSVSource streams a CSV tick file through gocsv. Rows are decoded by a background
// goroutine into a bounded channel, so the file is never loaded whole.
type CSVSource struct {
	path      string
	f         *os.File
	rows      chan TickCSVRow
	errc      chan error
	chunkSize int
	done      bool
}

// OpenCSV opens a CSV file with a symbol,timestamp,price,volume header (symbol optional).
// WithColumns maps other header names onto those.
func OpenCSV(path string, chunkSize int, opts ...Option) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", path, err)
	}
	var in io.Reader = f
	if o := applyOptions(opts); !o.columns.isDefault() {
		br := bufio.NewReader(f)
		header, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			f.Close()
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		renamed, err := o.columns.renameHeader(header)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		in = io.MultiReader(strings.NewReader(renamed), br)
	}
	size := chunkSizeOrDefault(chunkSize)
	s := &CSVSource{
		path:      path,
		f:         f,
		rows:      make(chan TickCSVRow, size),
		errc:      make(chan error, 1),
		chunkSize: size,
	}
	go func() {
		// UnmarshalToChan closes rows when it returns.
		s.errc <- gocsv.UnmarshalToChan(in, s.rows)
	}()
	return s, nil
}

func (s *CSVSource) Name() string { return filepath.Base(s.path) }

func (s *CSVSource) Next(ctx context.Context) ([]model.Tick, error) {
	if s.done {
		return nil, io.EOF
	}
	ticks := make([]model.Tick, 0, s.chunkSize)
	for len(ticks) < s.chunkSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case row, ok := <-s.rows:
			if !ok {
				s.done = true
				if err := <-s.errc; err != nil {
					return nil, fmt.Errorf("parse %s: %w", s.path, err)
				}
				if len(ticks) == 0 {
					return nil, io.EOF
				}
				return ticks, nil
			}
			ticks = append(ticks, row.Tick())
		}
	}
	return ticks, nil
}

// Close stops the decoder and releases the file.
func (s *CSVSource) Close() error {
	err := s.f.Close()
	if !s.done {
		// the decoder fails on the closed file and closes rows; drain so it can exit
		for range s.rows {
		}
		<-s.errc
		s.done = true
	}
	return err
}
