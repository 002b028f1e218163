package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"vacancy-stats/models"
)

// CSVWriter writes tables to a CSV file. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	return &CSVWriter{path: path, file: f, writer: csv.NewWriter(f)}, nil
}

// Path returns the file being written.
func (c *CSVWriter) Path() string { return c.path }

// WriteStatistics writes the yearly table followed directly by the area
// table.
func (c *CSVWriter) WriteStatistics(stats *models.Statistics) error {
	rows := [][]string{{
		"year", "salary", "salary_" + stats.VacancyName, "count", "count_" + stats.VacancyName,
	}}
	for _, yv := range stats.SalaryByYear {
		count, _ := models.ValueFor(stats.CountByYear, yv.Year)
		fSalary, _ := models.ValueFor(stats.FilteredSalaryByYear, yv.Year)
		fCount, _ := models.ValueFor(stats.FilteredCountByYear, yv.Year)
		rows = append(rows, []string{
			strconv.Itoa(yv.Year), strconv.Itoa(yv.Value), strconv.Itoa(fSalary),
			strconv.Itoa(count), strconv.Itoa(fCount),
		})
	}

	rows = append(rows, []string{"area", "salary", "", "area", "share"})
	for i := 0; i < max(len(stats.TopSalaryByArea), len(stats.TopShareByArea)); i++ {
		row := make([]string, 5)
		if i < len(stats.TopSalaryByArea) {
			row[0] = stats.TopSalaryByArea[i].Area
			row[1] = strconv.Itoa(stats.TopSalaryByArea[i].Salary)
		}
		if i < len(stats.TopShareByArea) {
			row[3] = stats.TopShareByArea[i].Area
			row[4] = stats.TopShareByArea[i].Share.String()
		}
		rows = append(rows, row)
	}

	return c.WriteRows(rows)
}

// WriteRateHistory writes one row per month with a column per currency.
// Missing rates are left empty.
func (c *CSVWriter) WriteRateHistory(h *models.RateHistory) error {
	rows := [][]string{append([]string{"date"}, h.Codes...)}
	for _, m := range h.Months {
		row := []string{m.Month}
		for _, code := range h.Codes {
			if r, ok := m.Rates[code]; ok {
				row = append(row, r.String())
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return c.WriteRows(rows)
}

// WriteConverted writes one row per vacancy. Vacancies without a ruble
// salary get an empty salary cell.
func (c *CSVWriter) WriteConverted(vacancies []models.ConvertedVacancy) error {
	rows := make([][]string, 0, len(vacancies)+1)
	rows = append(rows, []string{
		models.FieldName, "salary", models.FieldArea, models.FieldPublishedAt,
	})
	for _, v := range vacancies {
		salary := ""
		if v.Salary.Valid {
			salary = v.Salary.Decimal.String()
		}
		rows = append(rows, []string{v.Title, salary, v.Area, v.PublishedAt.Format("2006-01-02")})
	}
	return c.WriteRows(rows)
}

// WriteRows appends rows and flushes.
func (c *CSVWriter) WriteRows(rows [][]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, row := range rows {
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}
