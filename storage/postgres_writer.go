package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"vacancy-stats/models"
	"vacancy-stats/utils"
)

// PostgresWriter persists converted vacancies and the monthly rate history
// and runs the SQL rendition of the statistics.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it with
// retry, runs schema migrations and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS vacancies (
			id           SERIAL PRIMARY KEY,
			name         TEXT          NOT NULL,
			salary       NUMERIC(14,0),
			area_name    TEXT          NOT NULL,
			published_at DATE          NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_vacancies_area ON vacancies(area_name);
		CREATE INDEX IF NOT EXISTS idx_vacancies_published ON vacancies(published_at);

		CREATE TABLE IF NOT EXISTS currency_value (
			month VARCHAR(7)     NOT NULL,
			code  VARCHAR(3)     NOT NULL,
			rate  NUMERIC(18,6)  NOT NULL,
			PRIMARY KEY (month, code)
		);
	`)
	return err
}

// Write replaces the vacancies table with the given rows.
func (pw *PostgresWriter) Write(ctx context.Context, vacancies []models.ConvertedVacancy) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vacancies"); err != nil {
		return fmt.Errorf("postgres: clear vacancies: %w", err)
	}

	const batchSize = 500
	for i := 0; i < len(vacancies); i += batchSize {
		end := min(i+batchSize, len(vacancies))
		if err := insertVacancies(ctx, tx, vacancies[i:end]); err != nil {
			return fmt.Errorf("postgres: insert vacancies: %w", err)
		}
	}

	return tx.Commit()
}

func insertVacancies(ctx context.Context, tx *sql.Tx, batch []models.ConvertedVacancy) error {
	const cols = 4
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*cols)

	for idx, v := range batch {
		base := idx * cols
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4))
		valueArgs = append(valueArgs, v.Title, v.Salary, v.Area, v.PublishedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO vacancies (name, salary, area_name, published_at)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

// WriteRates upserts every known monthly rate.
func (pw *PostgresWriter) WriteRates(ctx context.Context, h *models.RateHistory) error {
	stmt, err := pw.db.PrepareContext(ctx, `
		INSERT INTO currency_value (month, code, rate) VALUES ($1, $2, $3)
		ON CONFLICT (month, code) DO UPDATE SET rate = EXCLUDED.rate
	`)
	if err != nil {
		return fmt.Errorf("postgres: prepare rates: %w", err)
	}
	defer stmt.Close()

	for _, m := range h.Months {
		for _, code := range h.Codes {
			rate, ok := m.Rates[code]
			if !ok {
				continue
			}
			if _, err := stmt.ExecContext(ctx, m.Month, code, rate); err != nil {
				return fmt.Errorf("postgres: write rate %s/%s: %w", m.Month, code, err)
			}
		}
	}
	return nil
}

// FetchRateHistory loads the monthly rates stored by WriteRates.
func (pw *PostgresWriter) FetchRateHistory(ctx context.Context) (*models.RateHistory, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT month, code, rate FROM currency_value ORDER BY month, code
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch rates: %w", err)
	}
	defer rows.Close()

	h := &models.RateHistory{}
	seenCodes := make(map[string]struct{})
	for rows.Next() {
		var month, code string
		var rate decimal.Decimal
		if err := rows.Scan(&month, &code, &rate); err != nil {
			return nil, fmt.Errorf("postgres: scan rate: %w", err)
		}
		if n := len(h.Months); n == 0 || h.Months[n-1].Month != month {
			h.Months = append(h.Months, models.MonthlyRates{Month: month, Rates: map[string]decimal.Decimal{}})
		}
		h.Months[len(h.Months)-1].Rates[code] = rate
		if _, ok := seenCodes[code]; !ok {
			seenCodes[code] = struct{}{}
			h.Codes = append(h.Codes, code)
		}
	}
	return h, rows.Err()
}

// QueryStatistics computes the statistics bundle in SQL over the stored
// vacancies. Averages are floored like the in-memory engine; ties are
// broken by first insertion.
func (pw *PostgresWriter) QueryStatistics(ctx context.Context, vacancyName string) (*models.Statistics, error) {
	stats := &models.Statistics{VacancyName: vacancyName}

	if err := pw.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vacancies`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("postgres: count vacancies: %w", err)
	}
	if stats.Total == 0 {
		return stats, nil
	}

	var err error
	stats.SalaryByYear, stats.CountByYear, err = pw.yearly(ctx, "")
	if err != nil {
		return nil, err
	}
	stats.FilteredSalaryByYear, stats.FilteredCountByYear, err = pw.yearly(ctx, vacancyName)
	if err != nil {
		return nil, err
	}
	if len(stats.FilteredCountByYear) == 0 {
		for _, yv := range stats.CountByYear {
			stats.FilteredSalaryByYear = append(stats.FilteredSalaryByYear, models.YearValue{Year: yv.Year})
			stats.FilteredCountByYear = append(stats.FilteredCountByYear, models.YearValue{Year: yv.Year})
		}
	}

	stats.TopShareByArea, err = pw.topShare(ctx, stats.Total)
	if err != nil {
		return nil, err
	}
	stats.TopSalaryByArea, err = pw.topSalary(ctx, stats.TopShareByArea)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (pw *PostgresWriter) yearly(ctx context.Context, vacancyName string) ([]models.YearValue, []models.YearValue, error) {
	query := `
		SELECT EXTRACT(YEAR FROM published_at)::int AS year,
		       COALESCE(FLOOR(AVG(salary)), 0)::bigint,
		       COUNT(*)
		FROM vacancies
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' ESCAPE '\'
		GROUP BY year
		ORDER BY year
	`
	rows, err := pw.db.QueryContext(ctx, query, escapeLike(vacancyName))
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: yearly statistics: %w", err)
	}
	defer rows.Close()

	var salaries, counts []models.YearValue
	for rows.Next() {
		var year, salary, count int
		if err := rows.Scan(&year, &salary, &count); err != nil {
			return nil, nil, fmt.Errorf("postgres: scan yearly: %w", err)
		}
		salaries = append(salaries, models.YearValue{Year: year, Value: salary})
		counts = append(counts, models.YearValue{Year: year, Value: count})
	}
	return salaries, counts, rows.Err()
}

func (pw *PostgresWriter) topShare(ctx context.Context, total int) ([]models.AreaShare, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT area_name, ROUND(COUNT(*)::numeric / $1, 4) AS share
		FROM vacancies
		GROUP BY area_name
		HAVING ROUND(COUNT(*)::numeric / $1, 4) >= 0.01
		ORDER BY share DESC, MIN(id)
		LIMIT 10
	`, total)
	if err != nil {
		return nil, fmt.Errorf("postgres: area shares: %w", err)
	}
	defer rows.Close()

	var out []models.AreaShare
	for rows.Next() {
		var s models.AreaShare
		if err := rows.Scan(&s.Area, &s.Share); err != nil {
			return nil, fmt.Errorf("postgres: scan share: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (pw *PostgresWriter) topSalary(ctx context.Context, shares []models.AreaShare) ([]models.AreaSalary, error) {
	areas := make([]string, len(shares))
	for i, s := range shares {
		areas[i] = s.Area
	}

	rows, err := pw.db.QueryContext(ctx, `
		SELECT area_name, COALESCE(FLOOR(AVG(salary)), 0)::bigint AS average
		FROM vacancies
		WHERE area_name = ANY($1)
		GROUP BY area_name
		ORDER BY average DESC, MIN(id)
		LIMIT 10
	`, pq.Array(areas))
	if err != nil {
		return nil, fmt.Errorf("postgres: area salaries: %w", err)
	}
	defer rows.Close()

	var out []models.AreaSalary
	for rows.Next() {
		var s models.AreaSalary
		if err := rows.Scan(&s.Area, &s.Salary); err != nil {
			return nil, fmt.Errorf("postgres: scan salary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Close closes the connection pool.
func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
