package narrative

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"bankpipe/internal/extract"
)

// Analyzer is the narrow capability boundary around the hosted language
// model: text in, narrative out. Tests substitute a deterministic stub.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (string, error)
}

// Narrative is the model-generated summary of one statement page. A page
// whose analysis failed after all retries is kept with Failed set so the run
// summary can report it; it is never mutated afterwards.
type Narrative struct {
	Statement string `json:"statement"`
	Page      int    `json:"page"`
	Body      string `json:"body,omitempty"`
	Truncated bool   `json:"truncated,omitempty"` // page text exceeded the payload cap
	Failed    bool   `json:"failed,omitempty"`
	Error     string `json:"error,omitempty"`
	Path      string `json:"path,omitempty"` // artifact location when Body was written
}

// Runner drives the analyzer over a batch of pages: bounded concurrency,
// a shared rate limit, a per-call timeout and bounded exponential-backoff
// retries. Failures degrade to a marked Narrative; they never abort the run.
type Runner struct {
	analyzer    Analyzer
	outputDir   string
	maxBytes    int
	concurrency int
	timeout     time.Duration
	retries     int
	limiter     *rate.Limiter
	log         zerolog.Logger
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	OutputDir   string
	MaxBytes    int
	Concurrency int
	Timeout     time.Duration
	Retries     int
	RatePerSec  float64
}

// NewRunner creates a runner around an analyzer.
func NewRunner(analyzer Analyzer, opts RunnerOptions, log zerolog.Logger) *Runner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 1
	}
	return &Runner{
		analyzer:    analyzer,
		outputDir:   opts.OutputDir,
		maxBytes:    opts.MaxBytes,
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
		retries:     opts.Retries,
		limiter:     rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
		log:         log,
	}
}

// Run analyzes every page and returns one Narrative per page, in input
// order. The only error returned is context cancellation.
func (r *Runner) Run(ctx context.Context, pages []extract.PageText) ([]Narrative, error) {
	results := make([]Narrative, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.analyzePage(gctx, page)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("narrative: %w", err)
	}
	return results, nil
}

func (r *Runner) analyzePage(ctx context.Context, page extract.PageText) Narrative {
	n := Narrative{Statement: page.Statement, Page: page.Page}

	text := page.Text
	if r.maxBytes > 0 && len(text) > r.maxBytes {
		// Cutting mid-rune would send an invalid byte sequence to the API.
		cut := r.maxBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
		n.Truncated = true
	}

	body, err := r.analyzeWithRetry(ctx, text)
	if err != nil {
		r.log.Warn().Err(err).
			Str("statement", page.Statement).
			Int("page", page.Page).
			Msg("Narrative analysis failed, page skipped")
		n.Failed = true
		n.Error = err.Error()
		return n
	}
	n.Body = body

	if r.outputDir != "" {
		artifact := filepath.Join(r.outputDir, FileName(page.Statement, page.Page))
		if err := os.WriteFile(artifact, []byte(body), 0o644); err != nil {
			n.Failed = true
			n.Error = fmt.Sprintf("writing narrative artifact: %v", err)
			return n
		}
		n.Path = artifact
	}
	return n
}

func (r *Runner) analyzeWithRetry(ctx context.Context, text string) (string, error) {
	var body string

	op := func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		callCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		out, err := r.analyzer.Analyze(callCtx, text)
		if err != nil {
			return err
		}
		body = out
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(r.retries)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return body, nil
}

// FileName returns the narrative artifact name for (statement stem, page).
func FileName(stem string, page int) string {
	return fmt.Sprintf("%s_page_%d.narrative.txt", stem, page)
}
