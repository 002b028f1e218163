package services

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"vacancy-stats/currency"
	"vacancy-stats/models"
	"vacancy-stats/utils"
)

// StatisticsService runs normalization, aggregation and ranking over one
// stream of raw vacancies.
type StatisticsService struct {
	rates  currency.Table
	logger *utils.Logger
}

// NewStatisticsService creates a StatisticsService using the given rate table.
func NewStatisticsService(rates currency.Table, logger *utils.Logger) *StatisticsService {
	return &StatisticsService{rates: rates, logger: logger}
}

// Generate consumes records once and returns the statistics for postings
// overall and for titles containing vacancyName.
func (s *StatisticsService) Generate(records iter.Seq[models.RawVacancy], vacancyName string) *models.Statistics {
	agg := NewAggregator(NewNormalizer(s.rates), vacancyName, s.logger)
	for raw := range records {
		agg.AddRaw(raw)
	}

	stats := Build(agg)
	stats.VacancyName = vacancyName

	s.logger.Info("[statistics] Aggregated %d vacancies (%d rejected) over %d years and %d areas",
		agg.Total(), agg.Rejected(), len(stats.SalaryByYear), agg.SalaryByArea().Len())
	return stats
}

// Build assembles the statistics from a finished aggregation.
func Build(agg *Aggregator) *models.Statistics {
	filtered, filteredCounts := agg.FilteredSalaryByYear()
	topSalary, topShare := RankAreas(agg.SalaryByArea(), agg.Total())

	return &models.Statistics{
		Total:                agg.Total(),
		Rejected:             agg.Rejected(),
		SalaryByYear:         YearlyAverages(agg.SalaryByYear()),
		CountByYear:          YearlyCounts(agg.SalaryByYear()),
		FilteredSalaryByYear: YearlyAverages(filtered),
		FilteredCountByYear:  CountTable(filteredCounts),
		TopSalaryByArea:      topSalary,
		TopShareByArea:       topShare,
	}
}

// Print writes a human readable summary of stats to w.
func (s *StatisticsService) Print(w io.Writer, stats *models.Statistics) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  VACANCY STATISTICS: %s\033[0m\n", stats.VacancyName)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  By year\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  %-6s %12s %12s %8s %8s\n", "Year", "Salary", "Selected", "Count", "Selected")
	for _, yv := range stats.SalaryByYear {
		count, _ := models.ValueFor(stats.CountByYear, yv.Year)
		fSalary, _ := models.ValueFor(stats.FilteredSalaryByYear, yv.Year)
		fCount, _ := models.ValueFor(stats.FilteredCountByYear, yv.Year)
		fmt.Fprintf(w, "  %-6d %12d %12d %8d %8d\n", yv.Year, yv.Value, fSalary, count, fCount)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Salary by area (descending)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(stats.TopSalaryByArea) == 0 {
		fmt.Fprintf(w, "  No area data\n")
	}
	for i, a := range stats.TopSalaryByArea {
		fmt.Fprintf(w, "  \033[1m%2d.\033[0m %-36s %10d\n", i+1, truncate(a.Area, 34), a.Salary)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Share of vacancies by area (descending)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for i, a := range stats.TopShareByArea {
		pct := a.Share.Shift(2).StringFixed(2)
		fmt.Fprintf(w, "  \033[1m%2d.\033[0m %-36s %9s%%\n", i+1, truncate(a.Area, 34), pct)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
