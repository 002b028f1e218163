package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"vacancy-stats/currency"
	"vacancy-stats/models"
	"vacancy-stats/storage"
	"vacancy-stats/utils"
)

// ChunkAnalyzer summarizes a directory of per-year CSV chunks in parallel.
// Every file is read by exactly one worker into its own result slot; the
// slots are merged on the calling goroutine once all workers are done.
type ChunkAnalyzer struct {
	rates          currency.Table
	maxConcurrency int
	logger         *utils.Logger
}

// NewChunkAnalyzer creates a ChunkAnalyzer running at most maxConcurrency
// files at once.
func NewChunkAnalyzer(rates currency.Table, maxConcurrency int, logger *utils.Logger) *ChunkAnalyzer {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &ChunkAnalyzer{rates: rates, maxConcurrency: maxConcurrency, logger: logger}
}

// AnalyzeDir analyzes every *.csv file in dir.
func (a *ChunkAnalyzer) AnalyzeDir(ctx context.Context, dir, vacancyName string) (*models.YearlyTables, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("chunks: list %q: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("chunks: no csv files in %q: %w", dir, os.ErrNotExist)
	}
	sort.Strings(files)

	summaries, err := a.AnalyzeFiles(ctx, files, vacancyName)
	if err != nil {
		return nil, err
	}
	return MergeChunks(summaries), nil
}

// AnalyzeFiles summarizes files concurrently. The first failing file
// cancels the rest.
func (a *ChunkAnalyzer) AnalyzeFiles(ctx context.Context, files []string, vacancyName string) ([]models.ChunkSummary, error) {
	summaries := make([]models.ChunkSummary, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrency)

	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := a.analyzeFile(file, vacancyName)
			if err != nil {
				return err
			}
			summaries[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.logger.Info("[chunks] Analyzed %d chunk files", len(files))
	return summaries, nil
}

func (a *ChunkAnalyzer) analyzeFile(file, vacancyName string) (models.ChunkSummary, error) {
	reader := storage.NewCSVReader(file, a.logger)
	agg := NewAggregator(NewNormalizer(a.rates), vacancyName, a.logger)
	for rec := range reader.Records() {
		agg.AddRaw(rec)
	}
	if err := reader.Err(); err != nil {
		return models.ChunkSummary{}, fmt.Errorf("chunks: %w", err)
	}

	summary := models.ChunkSummary{File: filepath.Base(file)}
	matched := agg.MatchedByYear()
	for _, year := range agg.SalaryByYear().Keys() {
		all, _ := agg.SalaryByYear().Get(year)
		ys := models.YearSums{
			Year:  year,
			Sum:   decimal.Sum(decimal.Zero, all...),
			Count: len(all),
		}
		if m, ok := matched.Get(year); ok {
			ys.FilteredSum = decimal.Sum(decimal.Zero, m...)
			ys.FilteredCount = len(m)
		}
		summary.Years = append(summary.Years, ys)
	}
	a.logger.Debug("[chunks] %s: %d vacancies", summary.File, agg.Total())
	return summary, nil
}

// MergeChunks reduces chunk summaries to yearly tables ascending by year.
// Averages are floored. Years without matching titles get a zero filtered
// salary and count.
func MergeChunks(summaries []models.ChunkSummary) *models.YearlyTables {
	byYear := make(map[int]models.YearSums)
	for _, s := range summaries {
		for _, ys := range s.Years {
			cur := byYear[ys.Year]
			cur.Year = ys.Year
			cur.Sum = cur.Sum.Add(ys.Sum)
			cur.Count += ys.Count
			cur.FilteredSum = cur.FilteredSum.Add(ys.FilteredSum)
			cur.FilteredCount += ys.FilteredCount
			byYear[ys.Year] = cur
		}
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	t := &models.YearlyTables{}
	for _, y := range years {
		ys := byYear[y]
		t.SalaryByYear = append(t.SalaryByYear, models.YearValue{Year: y, Value: floorDiv(ys.Sum, ys.Count)})
		t.CountByYear = append(t.CountByYear, models.YearValue{Year: y, Value: ys.Count})
		t.FilteredSalaryByYear = append(t.FilteredSalaryByYear, models.YearValue{Year: y, Value: floorDiv(ys.FilteredSum, ys.FilteredCount)})
		t.FilteredCountByYear = append(t.FilteredCountByYear, models.YearValue{Year: y, Value: ys.FilteredCount})
	}
	return t
}

func floorDiv(sum decimal.Decimal, count int) int {
	if count == 0 {
		return 0
	}
	return floorQuo(sum, count)
}
