package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bankpipe/internal/config"
	"bankpipe/internal/extract"
	"bankpipe/internal/forecast"
	"bankpipe/internal/ledger"
	"bankpipe/internal/logger"
	"bankpipe/internal/narrative"
	"bankpipe/internal/report"
)

// RunState holds the shared state across all pipeline steps. Each step
// reads what earlier steps produced and fills in its own output; no step
// mutates another step's output.
type RunState struct {
	RunID  string
	Config *config.Config
	Log    zerolog.Logger

	// Empty is set when the input directory holds no statements. Later
	// stages no-op and the run finishes with an explanatory summary
	// instead of an error.
	Empty bool

	Extraction   *extract.Result
	Narratives   []narrative.Narrative
	Transactions []ledger.Transaction
	History      []forecast.Point
	Forecast     []forecast.Point

	// Artifacts lists every file written by the run, for the export step.
	Artifacts []string

	Summary report.Summary
}

// NewRunState creates the state for a fresh run.
func NewRunState(cfg *config.Config, log zerolog.Logger) *RunState {
	runID := uuid.NewString()
	return &RunState{
		RunID:  runID,
		Config: cfg,
		Log:    log,
		Summary: report.Summary{
			RunID:     runID,
			StartedAt: time.Now(),
		},
	}
}

// Step is a single stage of the run.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *RunState) error
}

// Pipeline executes a sequence of steps in order. A step error halts the
// remaining steps; the returned error names the stage that failed.
type Pipeline struct {
	steps []Step
}

// New creates a pipeline with the given steps.
func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially against the state. FinishedAt is
// stamped whether the run succeeds or halts on a failed stage, so the
// persisted summary always carries a complete time range.
func (p *Pipeline) Execute(ctx context.Context, state *RunState) error {
	defer func() { state.Summary.FinishedAt = time.Now() }()
	for _, step := range p.steps {
		log := logger.ForStage(state.Log, step.Name())
		log.Info().Msg("Stage started")
		if err := step.Execute(ctx, state); err != nil {
			log.Error().Err(err).Msg("Stage failed")
			state.Summary.AddStage(step.Name(), report.StageFailed, err.Error())
			return fmt.Errorf("stage %s: %w", step.Name(), err)
		}
		log.Info().Msg("Stage finished")
	}
	return nil
}

// NewStatementPipeline builds the standard run: extract, narratives,
// parse/categorize, anomaly scoring, forecast, report, optional cloud
// export. analyzer may be nil, in which case the narrative stage records
// itself as skipped.
func NewStatementPipeline(analyzer narrative.Analyzer) *Pipeline {
	return New(
		&ExtractStep{},
		&NarrativeStep{Analyzer: analyzer},
		&ParseStep{},
		&AnomalyStep{},
		&ForecastStep{},
		&ReportStep{},
		&ExportStep{},
	)
}
