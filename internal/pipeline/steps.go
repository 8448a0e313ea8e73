package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"bankpipe/internal/anomaly"
	"bankpipe/internal/export"
	"bankpipe/internal/extract"
	"bankpipe/internal/forecast"
	"bankpipe/internal/ledger"
	"bankpipe/internal/narrative"
	"bankpipe/internal/report"
)

// extractConcurrency bounds how many PDFs are read at once. Extraction is
// CPU- and disk-bound, so a small fixed fan-out is enough.
const extractConcurrency = 4

// ExtractStep reads every statement PDF and writes one text artifact per
// page. An empty input directory is not an error: the step marks the run
// empty and the remaining stages no-op.
type ExtractStep struct{}

func (ExtractStep) Name() string { return "extract" }

func (s *ExtractStep) Execute(ctx context.Context, state *RunState) error {
	extractor := extract.New(state.Config.OutputDir, extractConcurrency, state.Log)

	result, err := extractor.Run(ctx, state.Config.InputDir)
	if errors.Is(err, extract.ErrNoStatements) {
		state.Empty = true
		state.Summary.Message = "no statements found"
		state.Summary.AddStage(s.Name(), report.StageSkipped, "input directory holds no PDFs")
		return nil
	}
	if err != nil {
		return err
	}

	state.Extraction = result
	state.Summary.Statements = len(result.Statements)
	state.Summary.PagesExtracted = len(result.Pages)
	state.Summary.ExtractionFailures = result.Failures
	for _, p := range result.Pages {
		state.Artifacts = append(state.Artifacts, p.Path)
	}

	for _, f := range result.Failures {
		state.Summary.AddWarning("statement %s skipped: %s", f.File, f.Reason)
	}
	skippedPages := 0
	for _, st := range result.Statements {
		for _, page := range st.SkippedPages {
			state.Summary.AddWarning("statement %s: page %d has no readable content", st.Stem, page)
			skippedPages++
		}
	}

	switch {
	case len(result.Failures) > 0:
		state.Summary.AddStage(s.Name(), report.StageDegraded,
			fmt.Sprintf("%d of %d statements unreadable", len(result.Failures), len(result.Failures)+len(result.Statements)))
	case skippedPages > 0:
		state.Summary.AddStage(s.Name(), report.StageDegraded,
			fmt.Sprintf("%d pages without readable content", skippedPages))
	default:
		state.Summary.AddStage(s.Name(), report.StageOK, "")
	}
	return nil
}

// NarrativeStep asks the language model for a narrative of every extracted
// page. The step is optional: without an API key it records itself as
// skipped, and individual page failures degrade rather than abort.
type NarrativeStep struct {
	Analyzer narrative.Analyzer
}

func (NarrativeStep) Name() string { return "narrative" }

func (s *NarrativeStep) Execute(ctx context.Context, state *RunState) error {
	if state.Empty {
		state.Summary.AddStage(s.Name(), report.StageSkipped, "no input")
		return nil
	}
	if s.Analyzer == nil {
		state.Summary.AddStage(s.Name(), report.StageSkipped, "narrative analysis disabled: no API key configured")
		return nil
	}

	cfg := state.Config
	runner := narrative.NewRunner(s.Analyzer, narrative.RunnerOptions{
		OutputDir:   cfg.OutputDir,
		MaxBytes:    cfg.NarrativeMaxBytes,
		Concurrency: cfg.NarrativeConcurrency,
		Timeout:     cfg.NarrativeTimeout,
		Retries:     cfg.NarrativeRetries,
		RatePerSec:  cfg.NarrativeRatePerSec,
	}, state.Log)

	narratives, err := runner.Run(ctx, state.Extraction.Pages)
	if err != nil {
		return err
	}
	state.Narratives = narratives

	var written, failed, truncated int
	for _, n := range narratives {
		switch {
		case n.Failed:
			failed++
			state.Summary.AddWarning("narrative for %s page %d failed: %s", n.Statement, n.Page, n.Error)
		default:
			written++
			if n.Path != "" {
				state.Artifacts = append(state.Artifacts, n.Path)
			}
		}
		if n.Truncated {
			truncated++
		}
	}
	state.Summary.NarrativesWritten = written
	state.Summary.NarrativesFailed = failed
	state.Summary.NarrativesTruncated = truncated

	if failed > 0 {
		state.Summary.AddStage(s.Name(), report.StageDegraded,
			fmt.Sprintf("%d of %d pages failed analysis", failed, len(narratives)))
	} else {
		state.Summary.AddStage(s.Name(), report.StageOK, "")
	}
	return nil
}

// ParseStep turns extracted page text into categorized transactions.
type ParseStep struct{}

func (ParseStep) Name() string { return "parse" }

func (s *ParseStep) Execute(_ context.Context, state *RunState) error {
	if state.Empty {
		state.Summary.AddStage(s.Name(), report.StageSkipped, "no input")
		return nil
	}

	parser := ledger.NewParser(state.Config.StatementYear)
	for _, page := range state.Extraction.Pages {
		state.Transactions = append(state.Transactions,
			parser.Parse(page.Statement, page.Page, page.Text)...)
	}
	state.Summary.Transactions = len(state.Transactions)

	if len(state.Transactions) == 0 {
		state.Summary.AddWarning("no transaction lines matched in %d extracted pages", len(state.Extraction.Pages))
		state.Summary.AddStage(s.Name(), report.StageDegraded, "no transactions parsed")
		return nil
	}
	state.Log.Info().Int("transactions", len(state.Transactions)).Msg("Parsed transactions")
	state.Summary.AddStage(s.Name(), report.StageOK, "")
	return nil
}

// AnomalyStep scores every transaction amount and flags the outliers. With
// too few transactions, scoring is skipped and every row keeps neutral
// defaults.
type AnomalyStep struct {
	// Detector overrides the default robust detector, for tests.
	Detector anomaly.Detector
}

func (AnomalyStep) Name() string { return "anomaly" }

func (s *AnomalyStep) Execute(_ context.Context, state *RunState) error {
	if state.Empty || len(state.Transactions) == 0 {
		state.Summary.AddStage(s.Name(), report.StageSkipped, "no transactions")
		return nil
	}

	detector := s.Detector
	if detector == nil {
		detector = anomaly.RobustDetector{}
	}

	cfg := state.Config
	result := anomaly.Annotate(state.Transactions, detector, cfg.Contamination, cfg.MinFitSize)
	state.Summary.Anomaly = result

	if !result.Applied {
		state.Summary.AddStage(s.Name(), report.StageDegraded,
			fmt.Sprintf("%d transactions is below the minimum of %d, scoring skipped", len(state.Transactions), cfg.MinFitSize))
		return nil
	}
	state.Log.Info().Int("flagged", result.Flagged).Msg("Anomaly scoring applied")
	state.Summary.AddStage(s.Name(), report.StageOK, "")
	return nil
}

// ForecastStep fits the daily net cash-flow series and projects it forward.
// Too little history degrades the stage instead of failing the run.
type ForecastStep struct{}

func (ForecastStep) Name() string { return "forecast" }

func (s *ForecastStep) Execute(_ context.Context, state *RunState) error {
	if state.Empty || len(state.Transactions) == 0 {
		state.Summary.AddStage(s.Name(), report.StageSkipped, "no transactions")
		return nil
	}

	cfg := state.Config
	state.History = forecast.DailySeries(state.Transactions)

	model := forecast.HoltLinear{MinPoints: cfg.MinForecastDays}
	predicted, err := model.Forecast(state.History, cfg.ForecastHorizon)
	if errors.Is(err, forecast.ErrTooFewPoints) {
		state.Summary.AddWarning("forecast skipped: %v", err)
		state.Summary.AddStage(s.Name(), report.StageDegraded,
			fmt.Sprintf("only %d observed days, %d required", len(state.History), cfg.MinForecastDays))
		return nil
	}
	if err != nil {
		return err
	}

	state.Forecast = predicted
	state.Summary.ForecastDays = len(predicted)
	state.Summary.AddStage(s.Name(), report.StageOK, "")
	return nil
}

// ReportStep writes the run's file artifacts: the transaction CSV, the
// forecast CSV, the cash-flow chart and the XLSX workbook. On an empty run
// there is nothing to write beyond the summary, which the driver persists
// after the pipeline finishes.
type ReportStep struct{}

func (ReportStep) Name() string { return "report" }

func (s *ReportStep) Execute(_ context.Context, state *RunState) error {
	if state.Empty {
		state.Summary.AddStage(s.Name(), report.StageSkipped, "no input")
		return nil
	}

	dir := state.Config.OutputDir
	state.Summary.Monthly = ledger.MonthlySummary(state.Transactions)
	state.Summary.Recurring = ledger.DetectRecurring(state.Transactions)
	state.Summary.ExistingLoan = ledger.HasLoanActivity(state.Transactions)
	state.Summary.Recommendation = ledger.Recommend(state.Summary.Monthly)

	path, err := report.WriteTransactionsCSV(state.Transactions, dir)
	if err != nil {
		return err
	}
	state.Artifacts = append(state.Artifacts, path)

	path, err = report.WriteWorkbook(state.Transactions, state.Summary.Monthly, dir)
	if err != nil {
		return err
	}
	state.Artifacts = append(state.Artifacts, path)

	if len(state.Forecast) > 0 {
		path, err = report.WriteForecastCSV(state.Forecast, dir)
		if err != nil {
			return err
		}
		state.Artifacts = append(state.Artifacts, path)

		chartPath := filepath.Join(dir, report.ChartFile)
		if err := forecast.RenderChart(state.History, state.Forecast, chartPath); err != nil {
			return err
		}
		state.Artifacts = append(state.Artifacts, chartPath)
	}

	state.Summary.AddStage(s.Name(), report.StageOK, "")
	return nil
}

// ExportStep mirrors the run's artifacts to GCS and streams the transaction
// table into BigQuery when either destination is configured. Export problems
// never fail the run: the artifacts already exist on disk.
type ExportStep struct {
	// Uploader and Exporter override the configured destinations, for tests.
	Uploader interface {
		UploadAll(ctx context.Context, runID string, paths []string) error
	}
	Exporter interface {
		Export(ctx context.Context, runID string, txs []ledger.Transaction) error
	}
}

func (ExportStep) Name() string { return "export" }

func (s *ExportStep) Execute(ctx context.Context, state *RunState) error {
	cfg := state.Config
	if state.Empty || (!cfg.ExportToGCS() && !cfg.ExportToBigQuery() && s.Uploader == nil && s.Exporter == nil) {
		state.Summary.AddStage(s.Name(), report.StageSkipped, "no export destination configured")
		return nil
	}

	uploader := s.Uploader
	if uploader == nil && cfg.ExportToGCS() {
		uploader = export.NewGCSUploader(cfg.GCSBucket, cfg.CredentialsFile)
	}
	exporter := s.Exporter
	if exporter == nil && cfg.ExportToBigQuery() {
		exporter = export.NewBigQueryExporter(cfg.BigQueryProject, cfg.BigQueryDataset, cfg.BigQueryTable, cfg.CredentialsFile)
	}

	degraded := false
	if uploader != nil {
		if err := uploader.UploadAll(ctx, state.RunID, state.Artifacts); err != nil {
			state.Summary.AddWarning("artifact upload failed: %v", err)
			degraded = true
		} else {
			state.Log.Info().Int("artifacts", len(state.Artifacts)).Msg("Artifacts uploaded")
		}
	}
	if exporter != nil {
		if err := exporter.Export(ctx, state.RunID, state.Transactions); err != nil {
			state.Summary.AddWarning("BigQuery export failed: %v", err)
			degraded = true
		} else {
			state.Log.Info().Int("rows", len(state.Transactions)).Msg("Transactions exported")
		}
	}

	if degraded {
		state.Summary.AddStage(s.Name(), report.StageDegraded, "one or more export destinations failed")
		return nil
	}
	state.Summary.AddStage(s.Name(), report.StageOK, "")
	return nil
}
