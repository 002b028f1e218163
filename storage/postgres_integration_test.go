//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"vacancy-stats/models"
	"vacancy-stats/utils"
)

func newPostgresWriter(t *testing.T) *PostgresWriter {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("vacancies_db"),
		tcpostgres.WithUsername("vacancies"),
		tcpostgres.WithPassword("vacancies"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pw, err := NewPostgresWriter(ctx, dsn, &utils.RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		Logger:      utils.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pw.Close() })
	return pw
}

func vacancy(title, area string, salary int64, day time.Time) models.ConvertedVacancy {
	return models.ConvertedVacancy{
		Title:       title,
		Salary:      decimal.NewNullDecimal(decimal.NewFromInt(salary)),
		Area:        area,
		PublishedAt: day,
	}
}

// rankingFixture has eleven eligible areas. "Rich" holds exactly 1% of the
// rows and the highest salary but is eleventh by share.
func rankingFixture() []models.ConvertedVacancy {
	day := time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC)
	var rows []models.ConvertedVacancy
	for range 18 {
		rows = append(rows, vacancy("Data Analyst", "A0", 1000, day))
	}
	for i := 1; i <= 9; i++ {
		for range 9 {
			rows = append(rows, vacancy("Clerk", fmt.Sprintf("A%d", i), int64(1000*(i+1)), day))
		}
	}
	rows = append(rows, vacancy("Clerk", "Rich", 1_000_000, day))
	return rows
}

func TestPostgresQueryStatistics(t *testing.T) {
	pw := newPostgresWriter(t)
	ctx := context.Background()

	require.NoError(t, pw.Write(ctx, rankingFixture()))

	stats, err := pw.QueryStatistics(ctx, "analyst")
	require.NoError(t, err)

	assert.Equal(t, 100, stats.Total)
	assert.Equal(t, []models.YearValue{{Year: 2022, Value: 15040}}, stats.SalaryByYear)
	assert.Equal(t, []models.YearValue{{Year: 2022, Value: 100}}, stats.CountByYear)
	assert.Equal(t, []models.YearValue{{Year: 2022, Value: 1000}}, stats.FilteredSalaryByYear)
	assert.Equal(t, []models.YearValue{{Year: 2022, Value: 18}}, stats.FilteredCountByYear)

	require.Len(t, stats.TopShareByArea, 10)
	assert.Equal(t, "A0", stats.TopShareByArea[0].Area)
	assert.True(t, decimal.RequireFromString("0.18").Equal(stats.TopShareByArea[0].Share))
	for i, s := range stats.TopShareByArea[1:] {
		assert.Equal(t, fmt.Sprintf("A%d", i+1), s.Area, "ties keep insertion order")
	}

	require.Len(t, stats.TopSalaryByArea, 10)
	assert.Equal(t, models.AreaSalary{Area: "A9", Salary: 10000}, stats.TopSalaryByArea[0])
	assert.Equal(t, models.AreaSalary{Area: "A0", Salary: 1000}, stats.TopSalaryByArea[9])
	for _, s := range stats.TopSalaryByArea {
		assert.NotEqual(t, "Rich", s.Area, "salary ranking is limited to the share top ten")
	}
}

func TestPostgresQueryStatisticsWithoutMatches(t *testing.T) {
	pw := newPostgresWriter(t)
	ctx := context.Background()

	require.NoError(t, pw.Write(ctx, rankingFixture()))

	stats, err := pw.QueryStatistics(ctx, "Designer")
	require.NoError(t, err)
	assert.Equal(t, []models.YearValue{{Year: 2022, Value: 0}}, stats.FilteredSalaryByYear)
	assert.Equal(t, []models.YearValue{{Year: 2022, Value: 0}}, stats.FilteredCountByYear)
}

func TestPostgresRateHistoryRoundTrip(t *testing.T) {
	pw := newPostgresWriter(t)
	ctx := context.Background()

	h := &models.RateHistory{
		Codes: []string{"USD", "EUR"},
		Months: []models.MonthlyRates{
			{Month: "2003-01", Rates: map[string]decimal.Decimal{
				"USD": decimal.RequireFromString("31.8231"),
				"EUR": decimal.RequireFromString("33.4727"),
			}},
			{Month: "2003-02", Rates: map[string]decimal.Decimal{
				"USD": decimal.RequireFromString("31.5673"),
			}},
		},
	}
	require.NoError(t, pw.WriteRates(ctx, h))
	require.NoError(t, pw.WriteRates(ctx, h), "rewriting rates is an upsert")

	back, err := pw.FetchRateHistory(ctx)
	require.NoError(t, err)
	require.Len(t, back.Months, 2)

	usd, ok := back.Lookup("2003-02", "USD")
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("31.5673").Equal(usd))
	_, ok = back.Lookup("2003-02", "EUR")
	assert.False(t, ok)
}
