package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Open creates a file source by extension (.parquet or .csv). A file must hold a single
// symbol; a second symbol fails the stream with ErrMixedSymbols.
func Open(path string, chunkSize int, opts ...Option) (TickSource, error) {
	src, err := openFile(path, chunkSize, opts)
	if err != nil {
		return nil, err
	}
	return SingleSymbol(src), nil
}

func openFile(path string, chunkSize int, opts []Option) (TickSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return OpenParquet(path, chunkSize, opts...)
	case ".csv":
		return OpenCSV(path, chunkSize, opts...)
	default:
		return nil, fmt.Errorf("unsupported tick file extension %q (use .parquet or .csv)", filepath.Ext(path))
	}
}

// OpenAll opens paths in order as one stream, which must also hold a single symbol.
// Sources opened before a failure are closed.
func OpenAll(paths []string, chunkSize int, opts ...Option) (TickSource, error) {
	if len(paths) == 1 {
		return Open(paths[0], chunkSize, opts...)
	}
	sources := make([]TickSource, 0, len(paths))
	for _, p := range paths {
		s, err := openFile(p, chunkSize, opts)
		if err != nil {
			NewMultiSource(sources...).Close()
			return nil, err
		}
		sources = append(sources, s)
	}
	return SingleSymbol(NewMultiSource(sources...)), nil
}

// ListTickFiles returns the .parquet and .csv files directly under dir, sorted by name.
func ListTickFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".parquet", ".csv":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
