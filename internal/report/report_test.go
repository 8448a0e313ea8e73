package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"bankpipe/internal/forecast"
	"bankpipe/internal/ledger"
)

func sampleTxs() []ledger.Transaction {
	return []ledger.Transaction{
		{
			ID:          "t1",
			Date:        civil.Date{Year: 2024, Month: 1, Day: 2},
			Description: "Payroll ACME",
			Amount:      decimal.NewFromInt(2000),
			Category:    ledger.CategoryPayroll,
		},
		{
			ID:           "t2",
			Date:         civil.Date{Year: 2024, Month: 1, Day: 3},
			Description:  "Wire Out",
			Amount:       decimal.NewFromInt(-15000),
			Category:     ledger.CategoryExpense,
			AnomalyScore: 12.5,
			Anomalous:    true,
		},
	}
}

func TestTransactionsCSV_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	txs := sampleTxs()

	path, err := WriteTransactionsCSV(txs, dir)
	if err != nil {
		t.Fatalf("WriteTransactionsCSV() error = %v", err)
	}

	loaded, err := LoadTransactionsCSV(path)
	if err != nil {
		t.Fatalf("LoadTransactionsCSV() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d transactions, want 2", len(loaded))
	}

	if loaded[1].Date != txs[1].Date {
		t.Errorf("date = %v, want %v", loaded[1].Date, txs[1].Date)
	}
	if !loaded[1].Amount.Equal(txs[1].Amount) {
		t.Errorf("amount = %s, want %s", loaded[1].Amount, txs[1].Amount)
	}
	if loaded[1].Category != ledger.CategoryExpense {
		t.Errorf("category = %s, want Expense", loaded[1].Category)
	}
	if !loaded[1].Anomalous || loaded[1].AnomalyScore != 12.5 {
		t.Errorf("anomaly fields lost: %+v", loaded[1])
	}
}

func TestForecastCSV_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	points := []forecast.Point{
		{Date: civil.Date{Year: 2024, Month: 2, Day: 1}, Amount: 12.5},
		{Date: civil.Date{Year: 2024, Month: 2, Day: 2}, Amount: -3},
	}

	path, err := WriteForecastCSV(points, dir)
	if err != nil {
		t.Fatalf("WriteForecastCSV() error = %v", err)
	}
	loaded, err := LoadForecastCSV(path)
	if err != nil {
		t.Fatalf("LoadForecastCSV() error = %v", err)
	}
	if len(loaded) != 2 || loaded[0] != points[0] || loaded[1] != points[1] {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestWriteWorkbook(t *testing.T) {
	dir := t.TempDir()
	txs := sampleTxs()
	monthly := ledger.MonthlySummary(txs)

	path, err := WriteWorkbook(txs, monthly, dir)
	if err != nil {
		t.Fatalf("WriteWorkbook() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("workbook unreadable: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"Transactions", "Categories", "Monthly"} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Errorf("sheet %s missing (idx=%d, err=%v)", sheet, idx, err)
		}
	}

	rows, err := f.GetRows("Transactions")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 { // header + 2 transactions
		t.Errorf("Transactions sheet has %d rows, want 3", len(rows))
	}
}

func TestSummary_RoundTripAndStages(t *testing.T) {
	dir := t.TempDir()

	s := &Summary{
		RunID:     "run-1",
		StartedAt: time.Now().UTC().Truncate(time.Second),
		Message:   "no statements found",
	}
	s.AddStage("extract", StageOK, "")
	s.AddStage("forecast", StageSkipped, "too few observations")
	s.AddWarning("statement %s unreadable", "x.pdf")

	if !s.ForecastSkipped() {
		t.Error("ForecastSkipped() = false, want true")
	}

	path, err := WriteSummary(s, dir)
	if err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}
	if filepath.Base(path) != SummaryFile {
		t.Errorf("summary written to %q", path)
	}

	loaded, err := LoadSummary(path)
	if err != nil {
		t.Fatalf("LoadSummary() error = %v", err)
	}
	if loaded.Message != "no statements found" {
		t.Errorf("message = %q", loaded.Message)
	}
	if len(loaded.Stages) != 2 || loaded.Stages[1].Status != StageSkipped {
		t.Errorf("stages lost: %+v", loaded.Stages)
	}
	if len(loaded.Warnings) != 1 || !strings.Contains(loaded.Warnings[0], "x.pdf") {
		t.Errorf("warnings lost: %v", loaded.Warnings)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "no statements found") {
		t.Error("summary JSON does not state the empty-input message")
	}
}
