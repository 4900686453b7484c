package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/parquet-go/parquet-go"

	"dollar-bars/internal/model"
)

// ParquetSource reads a tick file chunk by chunk; only one chunk of rows is held in memory.
type ParquetSource struct {
	path string
	f    *os.File
	r    tickRowReader
	buf  []TickRow
	done bool
}

type tickRowReader interface {
	Read(rows []TickRow) (int, error)
	Close() error
}

// OpenParquet opens a Parquet file whose rows follow TickRow. WithColumns reads the same
// fields from other column names.
func OpenParquet(path string, chunkSize int, opts ...Option) (*ParquetSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", path, err)
	}
	s := &ParquetSource{path: path, f: f, buf: make([]TickRow, chunkSizeOrDefault(chunkSize))}
	if o := applyOptions(opts); !o.columns.isDefault() {
		if s.r, err = openMapped(f, o.columns); err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return s, nil
	}
	s.r = parquet.NewGenericReader[TickRow](f)
	return s, nil
}

var tickRowType = reflect.TypeOf(TickRow{})

// mappedReader decodes rows into a struct type that differs from TickRow only in its parquet
// tags, then converts them to TickRow.
type mappedReader struct {
	r   *parquet.Reader
	typ reflect.Type
}

func openMapped(f *os.File, c Columns) (*mappedReader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	file, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, err
	}
	for _, name := range []string{c.Timestamp, c.Price, c.Volume} {
		if _, ok := file.Schema().Lookup(name); !ok {
			return nil, fmt.Errorf("column %q not found", name)
		}
	}
	tags := map[string]string{"Symbol": c.Symbol, "Timestamp": c.Timestamp, "Price": c.Price, "Volume": c.Volume}
	fields := make([]reflect.StructField, tickRowType.NumField())
	for i := range fields {
		sf := tickRowType.Field(i)
		fields[i] = reflect.StructField{Name: sf.Name, Type: sf.Type, Tag: reflect.StructTag(`parquet:"` + tags[sf.Name] + `"`)}
	}
	return &mappedReader{r: parquet.NewReader(file), typ: reflect.StructOf(fields)}, nil
}

func (m *mappedReader) Read(rows []TickRow) (int, error) {
	for i := range rows {
		v := reflect.New(m.typ)
		if err := m.r.Read(v.Interface()); err != nil {
			return i, err
		}
		rows[i] = v.Elem().Convert(tickRowType).Interface().(TickRow)
	}
	return len(rows), nil
}

func (m *mappedReader) Close() error { return m.r.Close() }

func (s *ParquetSource) Name() string { return filepath.Base(s.path) }

func (s *ParquetSource) Next(ctx context.Context) ([]model.Tick, error) {
	for !s.done {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := s.r.Read(s.buf)
		if errors.Is(err, io.EOF) {
			s.done = true
		} else if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.path, err)
		}
		if n == 0 {
			continue
		}
		ticks := make([]model.Tick, n)
		for i := range ticks {
			tk, err := s.buf[i].Tick()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", s.path, err)
			}
			ticks[i] = tk
		}
		return ticks, nil
	}
	return nil, io.EOF
}

func (s *ParquetSource) Close() error {
	rerr := s.r.Close()
	ferr := s.f.Close()
	if rerr != nil {
		return rerr
	}
	return ferr
}
