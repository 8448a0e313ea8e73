package dashboard

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"bankpipe/internal/forecast"
	"bankpipe/internal/ledger"
	"bankpipe/internal/report"
	"bankpipe/web"
)

// Server serves the run artifacts as a small JSON API plus the embedded
// front end. It holds everything in memory and reloads from the artifact
// directory on demand, so a new pipeline run shows up after POST /api/reload.
type Server struct {
	dir string
	log zerolog.Logger

	mu       sync.RWMutex
	txs      []ledger.Transaction
	forecast []forecast.Point
	summary  *report.Summary
}

// NewServer creates a server reading artifacts from dir. Call Reload before
// serving to pick up the current run.
func NewServer(dir string, log zerolog.Logger) *Server {
	return &Server{dir: dir, log: log}
}

// Reload re-reads the artifact files. Missing files are tolerated: a run
// with no transactions or a skipped forecast simply yields empty data.
func (s *Server) Reload() error {
	txs, err := loadOptional(filepath.Join(s.dir, report.TransactionsFile), report.LoadTransactionsCSV)
	if err != nil {
		return err
	}
	points, err := loadOptional(filepath.Join(s.dir, report.ForecastFile), report.LoadForecastCSV)
	if err != nil {
		return err
	}

	var summary *report.Summary
	summaryPath := filepath.Join(s.dir, report.SummaryFile)
	if _, statErr := os.Stat(summaryPath); statErr == nil {
		summary, err = report.LoadSummary(summaryPath)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.txs = txs
	s.forecast = points
	s.summary = summary
	s.mu.Unlock()

	s.log.Info().
		Int("transactions", len(txs)).
		Int("forecast_points", len(points)).
		Msg("Dashboard data loaded")
	return nil
}

func loadOptional[T any](path string, load func(string) ([]T, error)) ([]T, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return load(path)
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/reload", s.handleReload)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		// The subtree is embedded at build time; a failure here is a
		// packaging bug, not a runtime condition.
		panic(err)
	}
	mux.Handle("GET /", http.FileServer(http.FS(static)))
	return mux
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := FilterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.RLock()
	txs := filter.Apply(s.txs)
	s.mu.RUnlock()

	writeJSON(w, map[string]any{
		"count":        len(txs),
		"transactions": txs,
	})
}

// CategoryStat is one row of the per-category rollup.
type CategoryStat struct {
	Category ledger.Category `json:"category"`
	Count    int             `json:"count"`
	Total    float64         `json:"total"`
}

// SummaryResponse aggregates the currently filtered transactions.
type SummaryResponse struct {
	Count      int            `json:"count"`
	Anomalies  int            `json:"anomalies"`
	Inflow     float64        `json:"inflow"`
	Outflow    float64        `json:"outflow"`
	Net        float64        `json:"net"`
	Categories []CategoryStat `json:"categories"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := FilterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.RLock()
	txs := filter.Apply(s.txs)
	s.mu.RUnlock()

	writeJSON(w, Summarize(txs))
}

// Summarize computes the dashboard's headline numbers over a transaction
// list. Category rows follow the fixed category order.
func Summarize(txs []ledger.Transaction) SummaryResponse {
	resp := SummaryResponse{Count: len(txs)}
	counts := make(map[ledger.Category]int)
	totals := make(map[ledger.Category]float64)

	for i := range txs {
		amount := txs[i].AmountFloat()
		if amount >= 0 {
			resp.Inflow += amount
		} else {
			resp.Outflow += -amount
		}
		resp.Net += amount
		if txs[i].Anomalous {
			resp.Anomalies++
		}
		counts[txs[i].Category]++
		totals[txs[i].Category] += amount
	}

	for _, cat := range ledger.Categories() {
		if counts[cat] == 0 {
			continue
		}
		resp.Categories = append(resp.Categories, CategoryStat{
			Category: cat,
			Count:    counts[cat],
			Total:    totals[cat],
		})
	}
	return resp
}

func (s *Server) handleForecast(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	points := s.forecast
	s.mu.RUnlock()

	writeJSON(w, map[string]any{
		"days":   len(points),
		"points": points,
	})
}

// StatusResponse surfaces the last run's health so the front end can show
// degraded-state banners.
type StatusResponse struct {
	RunID            string               `json:"run_id,omitempty"`
	Message          string               `json:"message,omitempty"`
	NarrativeSkipped bool                 `json:"narrative_skipped"`
	ForecastSkipped  bool                 `json:"forecast_skipped"`
	AnomalyApplied   bool                 `json:"anomaly_applied"`
	Stages           []report.StageReport `json:"stages,omitempty"`
	Warnings         []string             `json:"warnings,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	summary := s.summary
	s.mu.RUnlock()

	if summary == nil {
		writeJSON(w, StatusResponse{Message: "no run summary found"})
		return
	}

	resp := StatusResponse{
		RunID:           summary.RunID,
		Message:         summary.Message,
		ForecastSkipped: summary.ForecastSkipped(),
		AnomalyApplied:  summary.Anomaly.Applied,
		Stages:          summary.Stages,
		Warnings:        summary.Warnings,
	}
	for _, stage := range summary.Stages {
		if stage.Name == "narrative" && stage.Status == report.StageSkipped {
			resp.NarrativeSkipped = true
		}
	}
	writeJSON(w, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, _ *http.Request) {
	if err := s.Reload(); err != nil {
		s.log.Error().Err(err).Msg("Reload failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
