package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"bankpipe/internal/config"
	"bankpipe/internal/extract"
	"bankpipe/internal/logger"
)

// Standalone text extraction, for inspecting what the parser will see
// without running the full pipeline.
func main() {
	log := logger.New()

	cfg := config.Load()
	inputDir := flag.String("input", cfg.InputDir, "directory of statement PDFs")
	outputDir := flag.String("output", cfg.OutputDir, "directory for page text artifacts")
	concurrency := flag.Int("concurrency", 4, "statements extracted in parallel")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := extract.New(*outputDir, *concurrency, log).Run(ctx, *inputDir)
	if errors.Is(err, extract.ErrNoStatements) {
		log.Warn().Str("input", *inputDir).Msg("No statements found")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	log.Info().
		Int("statements", len(result.Statements)).
		Int("pages", len(result.Pages)).
		Int("failures", len(result.Failures)).
		Msg("Extraction completed")
}
