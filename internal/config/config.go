package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every externally supplied knob of the pipeline and dashboard.
// Values come from environment variables (optionally loaded from a .env file);
// nothing here is hard-coded business logic.
type Config struct {
	// Directories
	InputDir  string // directory of statement PDFs
	OutputDir string // directory for all produced artifacts

	// Parsing
	StatementYear int // year applied to statement lines with short dates ("01 Dec")

	// Narrative analysis (Gemini)
	GeminiModel          string
	NarrativeEnabled     bool // derived: a Gemini API key is present
	NarrativeConcurrency int
	NarrativeTimeout     time.Duration
	NarrativeRetries     int
	NarrativeRatePerSec  float64
	NarrativeMaxBytes    int // payload cap; longer page text is truncated

	// Anomaly detection
	Contamination float64 // expected fraction of outliers
	MinFitSize    int     // below this many transactions, scoring is skipped

	// Forecasting
	ForecastHorizon int // days ahead
	MinForecastDays int // minimum observed days required to fit

	// Dashboard
	ListenAddr string

	// Optional cloud export
	GCSBucket       string
	BigQueryProject string
	BigQueryDataset string
	BigQueryTable   string
	CredentialsFile string
}

// Load builds a Config from the environment. A .env file in the working
// directory is honored when present but is not required.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		InputDir:  getEnv("BANKPIPE_INPUT_DIR", "bankstatements"),
		OutputDir: getEnv("BANKPIPE_OUTPUT_DIR", "extracted_texts"),

		StatementYear: getEnvInt("BANKPIPE_STATEMENT_YEAR", time.Now().Year()),

		GeminiModel:          getEnv("BANKPIPE_GEMINI_MODEL", "gemini-2.5-flash"),
		NarrativeEnabled:     os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "",
		NarrativeConcurrency: getEnvInt("BANKPIPE_NARRATIVE_CONCURRENCY", 4),
		NarrativeTimeout:     getEnvDuration("BANKPIPE_NARRATIVE_TIMEOUT", 60*time.Second),
		NarrativeRetries:     getEnvInt("BANKPIPE_NARRATIVE_RETRIES", 3),
		NarrativeRatePerSec:  getEnvFloat("BANKPIPE_NARRATIVE_RATE", 1.0),
		NarrativeMaxBytes:    getEnvInt("BANKPIPE_NARRATIVE_MAX_BYTES", 30_000),

		Contamination: getEnvFloat("BANKPIPE_CONTAMINATION", 0.05),
		MinFitSize:    getEnvInt("BANKPIPE_MIN_FIT_SIZE", 10),

		ForecastHorizon: getEnvInt("BANKPIPE_FORECAST_HORIZON", 30),
		MinForecastDays: getEnvInt("BANKPIPE_MIN_FORECAST_DAYS", 10),

		ListenAddr: getEnv("BANKPIPE_LISTEN_ADDR", ":8080"),

		GCSBucket:       getEnv("BANKPIPE_GCS_BUCKET", ""),
		BigQueryProject: getEnv("BANKPIPE_BQ_PROJECT", ""),
		BigQueryDataset: getEnv("BANKPIPE_BQ_DATASET", ""),
		BigQueryTable:   getEnv("BANKPIPE_BQ_TABLE", "transactions"),
		CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
	}
}

// Validate checks the configuration and returns an error listing every
// problem found. Validation failures are fatal: the driver aborts before
// running any stage.
func (c *Config) Validate() error {
	var problems []string

	if c.InputDir == "" {
		problems = append(problems, "input directory must not be empty")
	} else if info, err := os.Stat(c.InputDir); err != nil {
		problems = append(problems, fmt.Sprintf("input directory %q does not exist", c.InputDir))
	} else if !info.IsDir() {
		problems = append(problems, fmt.Sprintf("input path %q is not a directory", c.InputDir))
	}

	if c.OutputDir == "" {
		problems = append(problems, "output directory must not be empty")
	}

	if c.Contamination <= 0 || c.Contamination >= 1 {
		problems = append(problems, fmt.Sprintf("contamination %g: must be in (0, 1)", c.Contamination))
	}
	if c.MinFitSize < 2 {
		problems = append(problems, fmt.Sprintf("min fit size %d: must be at least 2", c.MinFitSize))
	}

	if c.ForecastHorizon < 1 {
		problems = append(problems, fmt.Sprintf("forecast horizon %d: must be at least 1 day", c.ForecastHorizon))
	}
	if c.MinForecastDays < 2 {
		problems = append(problems, fmt.Sprintf("min forecast days %d: must be at least 2", c.MinForecastDays))
	}

	if c.NarrativeConcurrency < 1 {
		problems = append(problems, fmt.Sprintf("narrative concurrency %d: must be at least 1", c.NarrativeConcurrency))
	}
	if c.NarrativeMaxBytes < 1 {
		problems = append(problems, fmt.Sprintf("narrative max bytes %d: must be positive", c.NarrativeMaxBytes))
	}

	if c.StatementYear < 1900 || c.StatementYear > 2200 {
		problems = append(problems, fmt.Sprintf("statement year %d: out of range", c.StatementYear))
	}

	// BigQuery export needs both project and dataset; bucket alone is fine.
	if (c.BigQueryProject == "") != (c.BigQueryDataset == "") {
		problems = append(problems, "BigQuery export requires both BANKPIPE_BQ_PROJECT and BANKPIPE_BQ_DATASET")
	}
	if c.CredentialsFile != "" {
		if _, err := os.Stat(c.CredentialsFile); err != nil {
			problems = append(problems, fmt.Sprintf("credentials file %q does not exist", c.CredentialsFile))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ExportToGCS reports whether artifact upload to GCS is configured.
func (c *Config) ExportToGCS() bool { return c.GCSBucket != "" }

// ExportToBigQuery reports whether transaction export to BigQuery is configured.
func (c *Config) ExportToBigQuery() bool {
	return c.BigQueryProject != "" && c.BigQueryDataset != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
