package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"vacancy-stats/models"
	"vacancy-stats/utils"
)

// ChunkWriter splits vacancy rows into one CSV file per publication year.
// Every chunk starts with the same header as the source file.
type ChunkWriter struct {
	dir    string
	header []string
	files  map[string]*os.File
	csv    map[string]*csv.Writer
}

// NewChunkWriter creates dir if needed and prepares a writer that keeps
// columns in header order.
func NewChunkWriter(dir string, header []string) (*ChunkWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("chunks: create dir: %w", err)
	}
	return &ChunkWriter{
		dir:    dir,
		header: header,
		files:  make(map[string]*os.File),
		csv:    make(map[string]*csv.Writer),
	}, nil
}

// ChunkFileName is the file name used for a year's chunk.
func ChunkFileName(year string) string {
	return fmt.Sprintf("vacancies_by_%s.csv", year)
}

// Write appends rec to the chunk of its publication year.
func (w *ChunkWriter) Write(rec models.RawVacancy) error {
	published := rec[models.FieldPublishedAt]
	if len(published) < 4 {
		return fmt.Errorf("chunks: bad %s %q", models.FieldPublishedAt, published)
	}
	year := published[:4]

	cw, ok := w.csv[year]
	if !ok {
		path := filepath.Join(w.dir, ChunkFileName(year))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("chunks: create %q: %w", path, err)
		}
		cw = csv.NewWriter(f)
		if err := cw.Write(w.header); err != nil {
			_ = f.Close()
			return fmt.Errorf("chunks: write header: %w", err)
		}
		w.files[year] = f
		w.csv[year] = cw
	}

	row := make([]string, len(w.header))
	for i, name := range w.header {
		row[i] = rec[name]
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("chunks: write row: %w", err)
	}
	return nil
}

// Years returns the years that received at least one row, sorted.
func (w *ChunkWriter) Years() []string {
	years := make([]string, 0, len(w.files))
	for y := range w.files {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}

// Close flushes and closes every chunk file, returning the first error.
func (w *ChunkWriter) Close() error {
	var firstErr error
	for year, cw := range w.csv {
		cw.Flush()
		if err := cw.Error(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("chunks: flush %s: %w", year, err)
		}
		if err := w.files[year].Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("chunks: close %s: %w", year, err)
		}
	}
	return firstErr
}

// SplitByYear copies every row of reader into per-year chunks under dir
// and returns the years written. Rows without a usable publication date
// are logged and skipped.
func SplitByYear(reader *CSVReader, dir string, logger *utils.Logger) ([]string, error) {
	var w *ChunkWriter
	written := 0
	for rec := range reader.Records() {
		if w == nil {
			var err error
			if w, err = NewChunkWriter(dir, reader.Header()); err != nil {
				return nil, err
			}
		}
		if err := w.Write(rec); err != nil {
			logger.Warn("[chunks] Skipping %q: %v", rec[models.FieldName], err)
			continue
		}
		written++
	}
	if w == nil {
		return nil, reader.Err()
	}

	closeErr := w.Close()
	if err := reader.Err(); err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}
	logger.Info("[chunks] Wrote %d rows into %d chunks in %s", written, len(w.Years()), dir)
	return w.Years(), nil
}
