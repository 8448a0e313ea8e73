package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dslipak/pdf"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrNoStatements is returned when the input directory contains no PDF files.
var ErrNoStatements = errors.New("no statements found")

// Statement is one input PDF. For a fully readable PDF one text artifact
// exists per page, so len(pages) == PageCount; pages the reader reports but
// cannot surface are listed in SkippedPages so the shortfall is never silent.
type Statement struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Stem         string `json:"stem"` // filename without extension; used in artifact names
	PageCount    int    `json:"page_count"`
	SkippedPages []int  `json:"skipped_pages,omitempty"`
}

// PageText is the plain text extracted from one page of one statement,
// persisted as a .txt artifact.
type PageText struct {
	Statement string `json:"statement"` // statement stem
	Page      int    `json:"page"`      // 1-based
	Path      string `json:"path"`      // artifact location
	Text      string `json:"-"`
}

// Failure records one statement that could not be read. Failures are
// reported, not fatal: a corrupt PDF never aborts extraction of the others.
type Failure struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Result is the extractor's output for one run.
type Result struct {
	Statements []Statement `json:"statements"`
	Pages      []PageText  `json:"pages"`
	Failures   []Failure   `json:"failures"`
}

// pageSource is the per-statement reading surface. The production
// implementation wraps the pdf reader; tests substitute a deterministic one.
type pageSource interface {
	pageCount() int
	// pageText returns the plain text of page n (1-based). ok is false when
	// the reader reports the page but cannot surface its content.
	pageText(n int) (text string, ok bool, err error)
}

type pdfSource struct {
	reader *pdf.Reader
}

func (s pdfSource) pageCount() int { return s.reader.NumPage() }

func (s pdfSource) pageText(n int) (string, bool, error) {
	page := s.reader.Page(n)
	if page.V.IsNull() {
		return "", false, nil
	}
	text, err := page.GetPlainText(nil)
	return text, true, err
}

func openPDF(path string) (pageSource, error) {
	reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return pdfSource{reader: reader}, nil
}

// Extractor reads every PDF in a directory and writes one text artifact per
// page. Statements are processed concurrently; the result ordering is
// deterministic (statement stem, then page number) regardless.
type Extractor struct {
	outputDir   string
	concurrency int
	log         zerolog.Logger
	open        func(path string) (pageSource, error)
}

// New creates an extractor writing page artifacts into outputDir.
func New(outputDir string, concurrency int, log zerolog.Logger) *Extractor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Extractor{outputDir: outputDir, concurrency: concurrency, log: log, open: openPDF}
}

// Run extracts every PDF found in inputDir. It returns ErrNoStatements when
// the directory holds no PDFs; unreadable individual files are recorded as
// Failures and skipped.
func (e *Extractor) Run(ctx context.Context, inputDir string) (*Result, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("extract: reading input dir %q: %w", inputDir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(inputDir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, ErrNoStatements
	}
	sort.Strings(paths)

	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("extract: creating output dir %q: %w", e.outputDir, err)
	}

	type outcome struct {
		statement Statement
		pages     []PageText
		failure   *Failure
	}
	outcomes := make([]outcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			statement, pages, err := e.extractStatement(path)
			if err != nil {
				e.log.Warn().Err(err).Str("file", filepath.Base(path)).
					Msg("Skipping unreadable statement")
				outcomes[i] = outcome{failure: &Failure{
					File:   filepath.Base(path),
					Reason: err.Error(),
				}}
				return nil
			}
			e.log.Info().Str("file", filepath.Base(path)).
				Int("pages", statement.PageCount).
				Msg("Extracted statement")
			outcomes[i] = outcome{statement: statement, pages: pages}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	// paths are sorted, so appending in slot order keeps statements ordered
	// by stem and pages ordered within each statement.
	result := &Result{}
	for _, o := range outcomes {
		if o.failure != nil {
			result.Failures = append(result.Failures, *o.failure)
			continue
		}
		result.Statements = append(result.Statements, o.statement)
		result.Pages = append(result.Pages, o.pages...)
	}
	return result, nil
}

// extractStatement pulls per-page plain text out of one PDF and writes the
// page artifacts. The pdf library panics on some malformed files, so the
// whole read is wrapped in a recover that converts the panic into a Failure.
func (e *Extractor) extractStatement(path string) (statement Statement, pages []PageText, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	source, err := e.open(path)
	if err != nil {
		return Statement{}, nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	statement = Statement{
		ID:        uuid.NewString(),
		Path:      path,
		Stem:      stem,
		PageCount: source.pageCount(),
	}

	for n := 1; n <= statement.PageCount; n++ {
		text, ok, err := source.pageText(n)
		if err != nil {
			return Statement{}, nil, fmt.Errorf("page %d: %w", n, err)
		}
		if !ok {
			e.log.Warn().Str("file", filepath.Base(path)).Int("page", n).
				Msg("Page has no readable content, skipped")
			statement.SkippedPages = append(statement.SkippedPages, n)
			continue
		}

		artifact := filepath.Join(e.outputDir, PageFileName(stem, n))
		if err := os.WriteFile(artifact, []byte(text), 0o644); err != nil {
			return Statement{}, nil, fmt.Errorf("writing page %d artifact: %w", n, err)
		}
		pages = append(pages, PageText{
			Statement: stem,
			Page:      n,
			Path:      artifact,
			Text:      text,
		})
	}

	return statement, pages, nil
}

// PageFileName returns the artifact name for (statement stem, page number).
func PageFileName(stem string, page int) string {
	return fmt.Sprintf("%s_page_%d.txt", stem, page)
}
