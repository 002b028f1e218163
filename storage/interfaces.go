package storage

import (
	"context"

	"vacancy-stats/models"
)

// StatisticsWriter is satisfied by every sink a statistics bundle can be
// rendered to: CSV here, spreadsheet and PDF in package report.
type StatisticsWriter interface {
	WriteStatistics(stats *models.Statistics) error
}

// VacancyWriter persists converted vacancies.
type VacancyWriter interface {
	Write(ctx context.Context, vacancies []models.ConvertedVacancy) error
	Close() error
}

// RateHistoryWriter persists monthly exchange rates.
type RateHistoryWriter interface {
	WriteRates(ctx context.Context, h *models.RateHistory) error
}

var (
	_ StatisticsWriter  = (*CSVWriter)(nil)
	_ VacancyWriter     = (*PostgresWriter)(nil)
	_ RateHistoryWriter = (*PostgresWriter)(nil)
)
