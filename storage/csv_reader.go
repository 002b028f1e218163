package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"vacancy-stats/models"
	"vacancy-stats/utils"
)

// ErrEmptyHeader is returned when a CSV file has no header row.
var ErrEmptyHeader = errors.New("csv: empty header")

const utf8BOM = "\ufeff"

// CSVReader streams vacancy rows from a CSV file whose first row is the
// header. By default rows with an empty cell or with a different number of
// cells than the header are skipped.
type CSVReader struct {
	path       string
	logger     *utils.Logger
	allowEmpty bool

	header  []string
	skipped int
	err     error
}

// NewCSVReader creates a reader for path. The file is opened lazily by
// Records, once per call.
func NewCSVReader(path string, logger *utils.Logger) *CSVReader {
	return &CSVReader{path: path, logger: logger}
}

// AllowEmptyFields keeps rows that have empty cells; rows of the wrong
// width are still skipped.
func (r *CSVReader) AllowEmptyFields() *CSVReader {
	r.allowEmpty = true
	return r
}

// Records returns a single-use sequence over the file's rows. Reading
// stops at the first I/O or parse error, which is then reported by Err.
func (r *CSVReader) Records() iter.Seq[models.RawVacancy] {
	return func(yield func(models.RawVacancy) bool) {
		r.err = nil
		r.skipped = 0

		f, err := os.Open(r.path)
		if err != nil {
			r.err = fmt.Errorf("csv: open %q: %w", r.path, err)
			return
		}
		defer f.Close()

		if err := r.stream(f, yield); err != nil {
			r.err = fmt.Errorf("csv: read %q: %w", r.path, err)
		}
		if r.skipped > 0 {
			r.logger.Debug("[csv] Skipped %d incomplete rows in %s", r.skipped, r.path)
		}
	}
}

func (r *CSVReader) stream(src io.Reader, yield func(models.RawVacancy) bool) error {
	cr := csv.NewReader(bufio.NewReaderSize(src, 64*1024))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return ErrEmptyHeader
	}
	if err != nil {
		return err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	r.header = slices.Clone(header)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(row) != len(header) || (!r.allowEmpty && slices.Contains(row, "")) {
			r.skipped++
			continue
		}

		rec := make(models.RawVacancy, len(header))
		for i, name := range header {
			rec[name] = row[i]
		}
		if !yield(rec) {
			return nil
		}
	}
}

// Header returns the column names of the last Records pass.
func (r *CSVReader) Header() []string { return slices.Clone(r.header) }

// Skipped returns how many rows the last Records pass dropped.
func (r *CSVReader) Skipped() int { return r.skipped }

// Err returns the error that ended the last Records pass, if any.
func (r *CSVReader) Err() error { return r.err }

// ReadRateHistory loads a table written by CSVWriter.WriteRateHistory.
// Empty cells are months without a published rate.
func ReadRateHistory(path string) (*models.RateHistory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read %q: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyHeader
	}

	h := &models.RateHistory{Codes: slices.Clone(rows[0][1:])}
	for _, row := range rows[1:] {
		m := models.MonthlyRates{Month: row[0], Rates: make(map[string]decimal.Decimal, len(h.Codes))}
		for i, code := range h.Codes {
			if row[i+1] == "" {
				continue
			}
			r, err := decimal.NewFromString(row[i+1])
			if err != nil {
				return nil, fmt.Errorf("csv: rate %s/%s: %w", row[0], code, err)
			}
			m.Rates[code] = r
		}
		h.Months = append(h.Months, m)
	}
	return h, nil
}
