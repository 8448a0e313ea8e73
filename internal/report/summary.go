package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bankpipe/internal/anomaly"
	"bankpipe/internal/extract"
	"bankpipe/internal/ledger"
)

// StageStatus tells the reader what happened to one pipeline stage.
type StageStatus string

const (
	StageOK       StageStatus = "ok"
	StageSkipped  StageStatus = "skipped"
	StageDegraded StageStatus = "degraded"
	StageFailed   StageStatus = "failed"
)

// StageReport is one line of the run's stage ledger.
type StageReport struct {
	Name   string      `json:"name"`
	Status StageStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// Summary is the run's machine-readable report. The dashboard reads it to
// show degraded-state banners; operators read it to see what the run did.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Message    string    `json:"message,omitempty"` // e.g. "no statements found"

	Statements          int               `json:"statements"`
	PagesExtracted      int               `json:"pages_extracted"`
	ExtractionFailures  []extract.Failure `json:"extraction_failures,omitempty"`
	NarrativesWritten   int               `json:"narratives_written"`
	NarrativesFailed    int               `json:"narratives_failed"`
	NarrativesTruncated int               `json:"narratives_truncated"`
	Transactions        int               `json:"transactions"`

	Anomaly      anomaly.Result `json:"anomaly"`
	ForecastDays int            `json:"forecast_days"`

	Monthly   []ledger.MonthlyFlow      `json:"monthly_summary,omitempty"`
	Recurring []ledger.RecurringPayment `json:"recurring_payments,omitempty"`

	// ExistingLoan marks loan-category activity in the statement; the
	// recommendation line summarizes how consistently monthly net flow
	// stayed positive.
	ExistingLoan   bool   `json:"existing_loan"`
	Recommendation string `json:"recommendation,omitempty"`

	Stages   []StageReport `json:"stages"`
	Warnings []string      `json:"warnings,omitempty"`
}

// AddStage appends a stage report.
func (s *Summary) AddStage(name string, status StageStatus, detail string) {
	s.Stages = append(s.Stages, StageReport{Name: name, Status: status, Detail: detail})
}

// AddWarning records a non-fatal problem.
func (s *Summary) AddWarning(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// ForecastSkipped reports whether the forecast stage degraded.
func (s *Summary) ForecastSkipped() bool {
	for _, stage := range s.Stages {
		if stage.Name == "forecast" && stage.Status != StageOK {
			return true
		}
	}
	return false
}

// WriteSummary persists the summary as JSON in the output directory.
func WriteSummary(s *Summary, dir string) (string, error) {
	path := filepath.Join(dir, SummaryFile)
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("report: write %q: %w", path, err)
	}
	return path, nil
}

// LoadSummary reads a run summary back from disk.
func LoadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: open %q: %w", path, err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("report: parse summary: %w", err)
	}
	return &s, nil
}
