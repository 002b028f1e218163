package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vacancy-stats/config"
	"vacancy-stats/currency"
	"vacancy-stats/models"
	"vacancy-stats/report"
	"vacancy-stats/scraper/cbr"
	"vacancy-stats/services"
	"vacancy-stats/storage"
	"vacancy-stats/utils"
)

const usage = `usage: vacancy-stats [command]

commands:
  stats    statistics for a vacancy CSV (default)
  split    split a vacancy CSV into one file per year
  chunks   statistics by year over a directory of chunk files
  rates    download monthly central bank rates for a vacancy CSV
  convert  price every vacancy in rubles using the monthly rates
  sql      statistics computed by PostgreSQL over converted vacancies
`

type app struct {
	cfg    *config.Config
	logger *utils.Logger
	prompt *utils.Prompter
}

func main() {
	cfg := config.Load()
	logger := utils.NewLogger(utils.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	command := "stats"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, logger: logger, prompt: utils.NewPrompter(os.Stdin, os.Stdout)}

	var err error
	switch command {
	case "stats":
		err = a.runStats(ctx)
	case "split":
		err = a.runSplit()
	case "chunks":
		err = a.runChunks(ctx)
	case "rates":
		err = a.runRates(ctx)
	case "convert":
		err = a.runConvert(ctx)
	case "sql":
		err = a.runSQL(ctx)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("%s failed: %v", command, err)
		os.Exit(1)
	}
}

func (a *app) inputPath() (string, error) {
	return a.prompt.Ask("Введите название файла", a.cfg.CSVInputPath)
}

func (a *app) vacancyName() (string, error) {
	return a.prompt.Ask("Введите название профессии", a.cfg.VacancyName)
}

func (a *app) runStats(ctx context.Context) error {
	path, err := a.inputPath()
	if err != nil {
		return err
	}
	name, err := a.vacancyName()
	if err != nil {
		return err
	}

	a.logger.Info("=== Vacancy statistics: %s ===", path)
	a.logger.Debug("Rate table %s: %v", currency.Default.Version, currency.Default.Codes())

	reader := storage.NewCSVReader(path, a.logger)
	svc := services.NewStatisticsService(currency.Default, a.logger)
	stats := svc.Generate(reader.Records(), name)

	if err := reader.Err(); err != nil {
		if errors.Is(err, storage.ErrEmptyHeader) {
			fmt.Println("Пустой файл")
			return nil
		}
		return err
	}
	if stats.Total == 0 {
		fmt.Println("Нет данных")
		return nil
	}

	svc.Print(os.Stdout, stats)
	a.writeReports(ctx, stats)
	return nil
}

// reportSink is a statistics writer backed by a file.
type reportSink interface {
	storage.StatisticsWriter
	Path() string
}

// writeReports renders stats to every configured sink. A failing sink is
// logged and does not stop the others.
func (a *app) writeReports(ctx context.Context, stats *models.Statistics) {
	csvWriter, err := storage.NewCSVWriter(a.cfg.StatsCSVPath)
	if err != nil {
		a.logger.Error("Failed to create CSV writer: %v", err)
	} else {
		defer csvWriter.Close()
	}

	var sinks []reportSink
	if csvWriter != nil {
		sinks = append(sinks, csvWriter)
	}
	sinks = append(sinks, report.NewExcelWriter(a.cfg.ReportXLSXPath))
	if a.cfg.PDFEnabled {
		sinks = append(sinks, report.NewPDFWriter(a.cfg.ReportPDFPath, a.cfg.ChromeBin, a.logger))
	}

	for _, s := range sinks {
		if ctx.Err() != nil {
			return
		}
		if err := s.WriteStatistics(stats); err != nil {
			a.logger.Error("Report %s failed: %v", s.Path(), err)
			continue
		}
		a.logger.Info("Report saved to %s", s.Path())
	}
}

func (a *app) runSplit() error {
	path, err := a.inputPath()
	if err != nil {
		return err
	}

	reader := storage.NewCSVReader(path, a.logger).AllowEmptyFields()
	years, err := storage.SplitByYear(reader, a.cfg.ChunksDir, a.logger)
	if err != nil {
		return err
	}
	fmt.Printf("  Done. %d chunk files → %s (%v)\n", len(years), a.cfg.ChunksDir, years)
	return nil
}

func (a *app) runChunks(ctx context.Context) error {
	name, err := a.vacancyName()
	if err != nil {
		return err
	}

	start := time.Now()
	analyzer := services.NewChunkAnalyzer(currency.Default, a.cfg.MaxConcurrency, a.logger)
	tables, err := analyzer.AnalyzeDir(ctx, a.cfg.ChunksDir, name)
	if err != nil {
		return err
	}
	a.logger.Info("[chunks] Finished in %s", time.Since(start).Round(time.Millisecond))

	stats := &models.Statistics{
		VacancyName:          name,
		SalaryByYear:         tables.SalaryByYear,
		CountByYear:          tables.CountByYear,
		FilteredSalaryByYear: tables.FilteredSalaryByYear,
		FilteredCountByYear:  tables.FilteredCountByYear,
	}
	services.NewStatisticsService(currency.Default, a.logger).Print(os.Stdout, stats)
	return nil
}

func (a *app) runRates(ctx context.Context) error {
	path, err := a.inputPath()
	if err != nil {
		return err
	}

	client := cbr.New(cbr.Options{
		BaseURL:        a.cfg.CBRBaseURL,
		MaxConcurrency: a.cfg.MaxConcurrency,
		RateLimitMs:    a.cfg.RateLimitMs,
		MaxRetries:     a.cfg.MaxRetries,
	}, a.logger)

	reader := storage.NewCSVReader(path, a.logger).AllowEmptyFields()
	history, err := services.NewRateService(client, a.logger).Build(ctx, reader.Records(), a.cfg.RateMinCount)
	if err != nil {
		return err
	}
	if err := reader.Err(); err != nil {
		return err
	}

	csvWriter, err := storage.NewCSVWriter(a.cfg.RatesCSVPath)
	if err != nil {
		return err
	}
	defer csvWriter.Close()
	if err := csvWriter.WriteRateHistory(history); err != nil {
		return err
	}
	a.logger.Info("Rates for %d months saved to %s", len(history.Months), a.cfg.RatesCSVPath)

	if !a.cfg.PostgresEnabled {
		return nil
	}
	pg, err := a.openPostgres(ctx)
	if err != nil {
		return err
	}
	defer pg.Close()
	return pg.WriteRates(ctx, history)
}

func (a *app) runConvert(ctx context.Context) error {
	path, err := a.inputPath()
	if err != nil {
		return err
	}

	var pg *storage.PostgresWriter
	if a.cfg.PostgresEnabled {
		if pg, err = a.openPostgres(ctx); err != nil {
			return err
		}
		defer pg.Close()
	}

	history, err := a.loadRateHistory(ctx, pg)
	if err != nil {
		return err
	}

	reader := storage.NewCSVReader(path, a.logger).AllowEmptyFields()
	converted := services.NewConverter(history, a.logger).ConvertAll(reader.Records())
	if err := reader.Err(); err != nil {
		return err
	}

	csvWriter, err := storage.NewCSVWriter(a.cfg.ConvertedCSVPath)
	if err != nil {
		return err
	}
	defer csvWriter.Close()
	if err := csvWriter.WriteConverted(converted); err != nil {
		return err
	}
	a.logger.Info("Converted vacancies saved to %s", a.cfg.ConvertedCSVPath)

	if pg == nil {
		return nil
	}
	var sink storage.VacancyWriter = pg
	if err := sink.Write(ctx, converted); err != nil {
		return err
	}
	a.logger.Info("Converted vacancies stored in PostgreSQL (table: vacancies)")
	return nil
}

// loadRateHistory prefers the rates stored in PostgreSQL and falls back
// to the rates CSV.
func (a *app) loadRateHistory(ctx context.Context, pg *storage.PostgresWriter) (*models.RateHistory, error) {
	if pg != nil {
		h, err := pg.FetchRateHistory(ctx)
		if err == nil && len(h.Months) > 0 {
			return h, nil
		}
		if err != nil {
			a.logger.Warn("Failed to fetch rates from DB, using %s: %v", a.cfg.RatesCSVPath, err)
		}
	}
	return storage.ReadRateHistory(a.cfg.RatesCSVPath)
}

func (a *app) runSQL(ctx context.Context) error {
	if !a.cfg.PostgresEnabled {
		return errors.New("sql: POSTGRES_ENABLED is false")
	}
	name, err := a.vacancyName()
	if err != nil {
		return err
	}

	pg, err := a.openPostgres(ctx)
	if err != nil {
		return err
	}
	defer pg.Close()

	stats, err := pg.QueryStatistics(ctx, name)
	if err != nil {
		return err
	}
	if stats.Total == 0 {
		fmt.Println("Нет данных")
		return nil
	}
	services.NewStatisticsService(currency.Default, a.logger).Print(os.Stdout, stats)
	return nil
}

func (a *app) openPostgres(ctx context.Context) (*storage.PostgresWriter, error) {
	pg, err := storage.NewPostgresWriter(ctx, a.cfg.DSN(), &utils.RetryConfig{
		MaxAttempts: a.cfg.MaxRetries,
		BaseDelay:   time.Second,
		Logger:      a.logger,
	})
	if err != nil {
		a.logger.Error("Make sure PostgreSQL is running: docker compose up -d")
		return nil, err
	}
	return pg, nil
}
