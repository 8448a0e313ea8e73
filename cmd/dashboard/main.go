package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bankpipe/internal/config"
	"bankpipe/internal/dashboard"
	"bankpipe/internal/logger"
)

func main() {
	log := logger.New()

	cfg := config.Load()
	dataDir := flag.String("data", cfg.OutputDir, "directory of pipeline artifacts")
	addr := flag.String("addr", cfg.ListenAddr, "listen address")
	flag.Parse()

	if info, err := os.Stat(*dataDir); err != nil || !info.IsDir() {
		log.Fatal().Str("data", *dataDir).Msg("Artifact directory does not exist - run the pipeline first")
	}

	srv := dashboard.NewServer(*dataDir, log)
	if err := srv.Reload(); err != nil {
		// Serve anyway: POST /api/reload can pick the data up once a run
		// has finished.
		log.Warn().Err(err).Msg("Could not load artifacts, starting with empty data")
	}

	server := &http.Server{
		Addr:         *addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", *addr).Str("data", *dataDir).Msg("Starting dashboard")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down dashboard...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Dashboard exited")
}
