package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"bankpipe/internal/config"
	"bankpipe/internal/logger"
	"bankpipe/internal/narrative"
	"bankpipe/internal/pipeline"
	"bankpipe/internal/report"
)

func main() {
	log := logger.New()

	cfg := config.Load()
	inputDir := flag.String("input", cfg.InputDir, "directory of statement PDFs")
	outputDir := flag.String("output", cfg.OutputDir, "directory for produced artifacts")
	flag.Parse()
	cfg.InputDir = *inputDir
	cfg.OutputDir = *outputDir

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration invalid")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("Cannot create output directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	var analyzer narrative.Analyzer
	if cfg.NarrativeEnabled {
		a, err := narrative.NewGeminiAnalyzer(ctx, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot create Gemini client")
		}
		analyzer = a
	} else {
		log.Warn().Msg("No Gemini API key configured - narrative analysis disabled")
	}

	state := pipeline.NewRunState(cfg, log)
	log.Info().
		Str("run_id", state.RunID).
		Str("input", cfg.InputDir).
		Str("output", cfg.OutputDir).
		Msg("Starting statement run")

	runErr := pipeline.NewStatementPipeline(analyzer).Execute(ctx, state)

	// The summary is written even when a stage failed, so the failure is
	// visible to the dashboard and to later inspection.
	if _, err := report.WriteSummary(&state.Summary, cfg.OutputDir); err != nil {
		log.Error().Err(err).Msg("Cannot write run summary")
	}

	if runErr != nil {
		log.Fatal().Err(runErr).Str("run_id", state.RunID).Msg("Run failed")
	}
	if state.Empty {
		log.Warn().Str("input", cfg.InputDir).Msg("No statements found - nothing to do")
		return
	}

	log.Info().
		Str("run_id", state.RunID).
		Int("statements", state.Summary.Statements).
		Int("transactions", state.Summary.Transactions).
		Int("forecast_days", state.Summary.ForecastDays).
		Msg("Run completed")
}
