// Package report renders a statistics bundle to spreadsheet and PDF files.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"vacancy-stats/models"
)

const (
	YearSheet = "Статистика по годам"
	AreaSheet = "Статистика по городам"

	// percentFormat is the built-in "0.00%" number format.
	percentFormat = 10
)

// ExcelWriter writes a two-sheet workbook: the yearly tables and the two
// area rankings side by side.
type ExcelWriter struct {
	path string
}

// NewExcelWriter creates a writer for path. The file is written on
// WriteStatistics.
func NewExcelWriter(path string) *ExcelWriter {
	return &ExcelWriter{path: path}
}

// Path returns the output file path.
func (w *ExcelWriter) Path() string { return w.path }

// WriteStatistics builds the workbook and saves it, replacing any
// existing file.
func (w *ExcelWriter) WriteStatistics(stats *models.Statistics) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", YearSheet); err != nil {
		return fmt.Errorf("excel: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(AreaSheet); err != nil {
		return fmt.Errorf("excel: create sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := writeYearSheet(f, styles, stats); err != nil {
		return fmt.Errorf("excel: year sheet: %w", err)
	}
	if err := writeAreaSheet(f, styles, stats); err != nil {
		return fmt.Errorf("excel: area sheet: %w", err)
	}

	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("excel: create dir: %w", err)
		}
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("excel: save %q: %w", w.path, err)
	}
	return nil
}

type styles struct {
	header  int
	cell    int
	percent int
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	var s styles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{Border: border, Font: &excelize.Font{Bold: true}}); err != nil {
		return s, fmt.Errorf("excel: header style: %w", err)
	}
	if s.cell, err = f.NewStyle(&excelize.Style{Border: border}); err != nil {
		return s, fmt.Errorf("excel: cell style: %w", err)
	}
	if s.percent, err = f.NewStyle(&excelize.Style{Border: border, NumFmt: percentFormat}); err != nil {
		return s, fmt.Errorf("excel: percent style: %w", err)
	}
	return s, nil
}

func writeYearSheet(f *excelize.File, st styles, stats *models.Statistics) error {
	header := []any{
		"Год",
		"Средняя зарплата",
		"Средняя зарплата - " + stats.VacancyName,
		"Количество вакансий",
		"Количество вакансий - " + stats.VacancyName,
	}
	rows := [][]any{header}
	for _, yv := range stats.SalaryByYear {
		count, _ := models.ValueFor(stats.CountByYear, yv.Year)
		fSalary, _ := models.ValueFor(stats.FilteredSalaryByYear, yv.Year)
		fCount, _ := models.ValueFor(stats.FilteredCountByYear, yv.Year)
		rows = append(rows, []any{yv.Year, yv.Value, fSalary, count, fCount})
	}

	if err := setRows(f, YearSheet, rows); err != nil {
		return err
	}
	if err := styleRange(f, YearSheet, 1, 1, len(header), 1, st.header); err != nil {
		return err
	}
	if len(rows) > 1 {
		if err := styleRange(f, YearSheet, 1, 2, len(header), len(rows), st.cell); err != nil {
			return err
		}
	}
	return fitColumns(f, YearSheet, rows)
}

func writeAreaSheet(f *excelize.File, st styles, stats *models.Statistics) error {
	rows := [][]any{{"Город", "Уровень зарплат", "", "Город", "Доля вакансий"}}
	n := max(len(stats.TopSalaryByArea), len(stats.TopShareByArea))
	for i := range n {
		row := []any{"", "", "", "", ""}
		if i < len(stats.TopSalaryByArea) {
			row[0] = stats.TopSalaryByArea[i].Area
			row[1] = stats.TopSalaryByArea[i].Salary
		}
		if i < len(stats.TopShareByArea) {
			row[3] = stats.TopShareByArea[i].Area
			row[4] = stats.TopShareByArea[i].Share.InexactFloat64()
		}
		rows = append(rows, row)
	}

	if err := setRows(f, AreaSheet, rows); err != nil {
		return err
	}

	// Column C is a spacer and stays unstyled.
	for _, col := range []int{1, 2, 4, 5} {
		if err := styleRange(f, AreaSheet, col, 1, col, 1, st.header); err != nil {
			return err
		}
		if len(rows) == 1 {
			continue
		}
		style := st.cell
		if col == 5 {
			style = st.percent
		}
		if err := styleRange(f, AreaSheet, col, 2, col, len(rows), style); err != nil {
			return err
		}
	}
	return fitColumns(f, AreaSheet, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func styleRange(f *excelize.File, sheet string, col1, row1, col2, row2, style int) error {
	from, err := excelize.CoordinatesToCellName(col1, row1)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(col2, row2)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, from, to, style)
}

// fitColumns sets each column to its longest cell text plus two.
func fitColumns(f *excelize.File, sheet string, rows [][]any) error {
	var widths []int
	for _, row := range rows {
		for i, v := range row {
			n := utf8.RuneCountInString(fmt.Sprint(v))
			if i >= len(widths) {
				widths = append(widths, n)
			} else if n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(w+2)); err != nil {
			return err
		}
	}
	return nil
}
