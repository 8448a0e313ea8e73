package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"bankpipe/internal/forecast"
	"bankpipe/internal/ledger"
)

// Artifact file names within the output directory.
const (
	TransactionsFile = "transactions.csv"
	ForecastFile     = "forecast.csv"
	ChartFile        = "forecast_cash_flow.png"
	WorkbookFile     = "report.xlsx"
	SummaryFile      = "run_summary.json"
)

// WriteTransactionsCSV writes the final transaction table.
func WriteTransactionsCSV(txs []ledger.Transaction, dir string) (string, error) {
	path := filepath.Join(dir, TransactionsFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: create %q: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&txs, f); err != nil {
		return "", fmt.Errorf("report: write transactions csv: %w", err)
	}
	return path, nil
}

// LoadTransactionsCSV reads a transaction table back from disk. The
// dashboard uses this; it never writes.
func LoadTransactionsCSV(path string) ([]ledger.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("report: open %q: %w", path, err)
	}
	defer f.Close()

	var txs []ledger.Transaction
	if err := gocsv.UnmarshalFile(f, &txs); err != nil {
		return nil, fmt.Errorf("report: read transactions csv: %w", err)
	}
	return txs, nil
}

// WriteForecastCSV writes the forecast points, one row per future date.
func WriteForecastCSV(points []forecast.Point, dir string) (string, error) {
	path := filepath.Join(dir, ForecastFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: create %q: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&points, f); err != nil {
		return "", fmt.Errorf("report: write forecast csv: %w", err)
	}
	return path, nil
}

// LoadForecastCSV reads forecast points back from disk.
func LoadForecastCSV(path string) ([]forecast.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("report: open %q: %w", path, err)
	}
	defer f.Close()

	var points []forecast.Point
	if err := gocsv.UnmarshalFile(f, &points); err != nil {
		return nil, fmt.Errorf("report: read forecast csv: %w", err)
	}
	return points, nil
}
