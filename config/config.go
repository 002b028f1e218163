package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Config holds all application configuration loaded from environment variables.
type Config struct {
	CSVInputPath string
	VacancyName  string

	ChunksDir        string `validate:"required"`
	StatsCSVPath     string `validate:"required"`
	ReportXLSXPath   string `validate:"required"`
	ReportPDFPath    string `validate:"required_if=PDFEnabled true"`
	RatesCSVPath     string `validate:"required"`
	ConvertedCSVPath string `validate:"required"`

	CBRBaseURL   string `validate:"required,url"`
	RateMinCount int    `validate:"min=0"`

	PostgresEnabled  bool
	PostgresHost     string `validate:"required_if=PostgresEnabled true"`
	PostgresPort     string `validate:"required_if=PostgresEnabled true"`
	PostgresUser     string `validate:"required_if=PostgresEnabled true"`
	PostgresPassword string
	PostgresDB       string `validate:"required_if=PostgresEnabled true"`
	PostgresSSLMode  string `validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`

	MaxConcurrency int `validate:"min=1,max=64"`
	RateLimitMs    int `validate:"min=0"`
	MaxRetries     int `validate:"min=1"`

	PDFEnabled bool
	ChromeBin  string
	LogLevel   string `validate:"oneof=debug info warn error"`
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		CSVInputPath: getEnv("CSV_INPUT_PATH", ""),
		VacancyName:  getEnv("VACANCY_NAME", ""),

		ChunksDir:        getEnv("CHUNKS_DIR", "./output/chunks"),
		StatsCSVPath:     getEnv("STATS_CSV_PATH", "./output/statistics.csv"),
		ReportXLSXPath:   getEnv("REPORT_XLSX_PATH", "./output/report.xlsx"),
		ReportPDFPath:    getEnv("REPORT_PDF_PATH", "./output/report.pdf"),
		RatesCSVPath:     getEnv("RATES_CSV_PATH", "./output/currency_rates.csv"),
		ConvertedCSVPath: getEnv("CONVERTED_CSV_PATH", "./output/converted_vacancies.csv"),

		CBRBaseURL:   getEnv("CBR_BASE_URL", "https://www.cbr.ru/scripts/XML_daily.asp"),
		RateMinCount: getEnvInt("RATE_MIN_COUNT", 5000),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "vacancies"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "vacancies123"),
		PostgresDB:       getEnv("POSTGRES_DB", "vacancies_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 200),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		PDFEnabled: getEnvBool("PDF_ENABLED", false),
		ChromeBin:  getEnv("CHROME_BIN", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
