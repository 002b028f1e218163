package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacancy-stats/models"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVWriterWriteStatistics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "stats.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	stats := &models.Statistics{
		VacancyName:          "IT",
		SalaryByYear:         []models.YearValue{{Year: 2020, Value: 3141}, {Year: 2021, Value: 500}},
		CountByYear:          []models.YearValue{{Year: 2020, Value: 2}, {Year: 2021, Value: 1}},
		FilteredSalaryByYear: []models.YearValue{{Year: 2020, Value: 3141}},
		FilteredCountByYear:  []models.YearValue{{Year: 2020, Value: 2}},
		TopSalaryByArea:      []models.AreaSalary{{Area: "Romania", Salary: 3141}},
		TopShareByArea: []models.AreaShare{
			{Area: "Romania", Share: decimal.RequireFromString("0.6667")},
			{Area: "Other", Share: decimal.RequireFromString("0.3333")},
		},
	}
	require.NoError(t, w.WriteStatistics(stats))
	require.NoError(t, w.Close())

	rows := readAll(t, path)
	assert.Equal(t, []string{"year", "salary", "salary_IT", "count", "count_IT"}, rows[0])
	assert.Equal(t, []string{"2020", "3141", "3141", "2", "2"}, rows[1])
	assert.Equal(t, []string{"2021", "500", "0", "1", "0"}, rows[2])
	assert.Equal(t, []string{"area", "salary", "", "area", "share"}, rows[3])
	assert.Equal(t, []string{"Romania", "3141", "", "Romania", "0.6667"}, rows[4])
	assert.Equal(t, []string{"", "", "", "Other", "0.3333"}, rows[5])
}

func TestCSVWriterWriteRateHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)

	h := &models.RateHistory{
		Codes: []string{"USD", "EUR"},
		Months: []models.MonthlyRates{
			{Month: "2003-01", Rates: map[string]decimal.Decimal{"USD": decimal.RequireFromString("31.8")}},
		},
	}
	require.NoError(t, w.WriteRateHistory(h))
	require.NoError(t, w.Close())

	rows := readAll(t, path)
	assert.Equal(t, [][]string{{"date", "USD", "EUR"}, {"2003-01", "31.8", ""}}, rows)

	back, err := ReadRateHistory(path)
	require.NoError(t, err)
	assert.Equal(t, h.Codes, back.Codes)
	rate, ok := back.Lookup("2003-01", "USD")
	require.True(t, ok)
	assert.Equal(t, "31.8", rate.String())
	_, ok = back.Lookup("2003-01", "EUR")
	assert.False(t, ok)
}

func TestReadRateHistoryRejectsBadRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,USD\n2003-01,abc\n"), 0o644))

	_, err := ReadRateHistory(path)
	assert.Error(t, err)
}

func TestCSVWriterWriteConverted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "converted.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)

	day := time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, w.WriteConverted([]models.ConvertedVacancy{
		{Title: "a", Salary: decimal.NewNullDecimal(decimal.NewFromInt(111439)), Area: "Moscow", PublishedAt: day},
		{Title: "b", Area: "Kazan", PublishedAt: day},
	}))
	require.NoError(t, w.Close())

	assert.Equal(t, [][]string{
		{"name", "salary", "area_name", "published_at"},
		{"a", "111439", "Moscow", "2022-01-10"},
		{"b", "", "Kazan", "2022-01-10"},
	}, readAll(t, path))
}
