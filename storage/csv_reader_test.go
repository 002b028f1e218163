package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacancy-stats/models"
	"vacancy-stats/utils"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vacancies.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleCSV = "\ufeffname,salary_from,salary_to,salary_currency,area_name,published_at\n" +
	"IT,200.00,240.00,GEL,Romania,2020-09-20T10:00:00+0300\n" +
	"Broken,100,,RUR,Moscow,2020-01-01T10:00:00+0300\n" +
	"Short,100,200\n" +
	"\"Clerk, senior\",500,500,RUR,Other,2021-05-05T10:00:00+0300\n"

func collect(r *CSVReader) []models.RawVacancy {
	var out []models.RawVacancy
	for rec := range r.Records() {
		out = append(out, rec)
	}
	return out
}

func TestCSVReaderSkipsIncompleteRows(t *testing.T) {
	r := NewCSVReader(writeFile(t, sampleCSV), utils.Discard())

	rows := collect(r)
	require.NoError(t, r.Err())
	require.Len(t, rows, 2)
	assert.Equal(t, 2, r.Skipped())

	assert.Equal(t, "IT", rows[0][models.FieldName])
	assert.Equal(t, "GEL", rows[0][models.FieldCurrency])
	assert.Equal(t, "Clerk, senior", rows[1][models.FieldName])
	assert.Equal(t, "name", r.Header()[0])
}

func TestCSVReaderAllowEmptyFields(t *testing.T) {
	r := NewCSVReader(writeFile(t, sampleCSV), utils.Discard()).AllowEmptyFields()

	rows := collect(r)
	require.NoError(t, r.Err())
	require.Len(t, rows, 3)
	assert.Equal(t, "", rows[1][models.FieldSalaryTo])
	assert.Equal(t, 1, r.Skipped())
}

func TestCSVReaderIsRestartable(t *testing.T) {
	r := NewCSVReader(writeFile(t, sampleCSV), utils.Discard())
	assert.Len(t, collect(r), 2)
	assert.Len(t, collect(r), 2)
}

func TestCSVReaderStopsEarly(t *testing.T) {
	r := NewCSVReader(writeFile(t, sampleCSV), utils.Discard())
	n := 0
	for range r.Records() {
		n++
		break
	}
	assert.Equal(t, 1, n)
	assert.NoError(t, r.Err())
}

func TestCSVReaderErrors(t *testing.T) {
	missing := NewCSVReader(filepath.Join(t.TempDir(), "nope.csv"), utils.Discard())
	assert.Empty(t, collect(missing))
	assert.ErrorIs(t, missing.Err(), os.ErrNotExist)

	empty := NewCSVReader(writeFile(t, ""), utils.Discard())
	assert.Empty(t, collect(empty))
	assert.ErrorIs(t, empty.Err(), ErrEmptyHeader)
}
