package report

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"bankpipe/internal/ledger"
)

// WriteWorkbook builds the XLSX report: the full transaction table, a
// per-category rollup and the monthly cash-flow summary.
func WriteWorkbook(txs []ledger.Transaction, monthly []ledger.MonthlyFlow, dir string) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeTransactionsSheet(f, txs); err != nil {
		return "", err
	}
	if err := writeCategoriesSheet(f, txs); err != nil {
		return "", err
	}
	if err := writeMonthlySheet(f, monthly); err != nil {
		return "", err
	}

	// Drop the default sheet and land on the transaction table.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("report: delete default sheet: %w", err)
	}
	idx, err := f.GetSheetIndex("Transactions")
	if err != nil {
		return "", fmt.Errorf("report: sheet index: %w", err)
	}
	f.SetActiveSheet(idx)

	path := filepath.Join(dir, WorkbookFile)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("report: save workbook: %w", err)
	}
	return path, nil
}

func writeTransactionsSheet(f *excelize.File, txs []ledger.Transaction) error {
	const sheet = "Transactions"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("report: new sheet %s: %w", sheet, err)
	}

	headers := []string{"Date", "Description", "Amount", "Category", "Anomaly Score", "Anomalous", "Statement", "Page"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("report: header %s: %w", h, err)
		}
	}

	for row, tx := range txs {
		values := []any{
			tx.Date.String(),
			tx.Description,
			tx.Amount.InexactFloat64(),
			string(tx.Category),
			tx.AnomalyScore,
			tx.Anomalous,
			tx.Statement,
			tx.Page,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("report: row %d: %w", row+2, err)
			}
		}
	}
	return nil
}

func writeCategoriesSheet(f *excelize.File, txs []ledger.Transaction) error {
	const sheet = "Categories"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("report: new sheet %s: %w", sheet, err)
	}

	counts := make(map[ledger.Category]int)
	sums := make(map[ledger.Category]float64)
	for i := range txs {
		counts[txs[i].Category]++
		sums[txs[i].Category] += txs[i].AmountFloat()
	}

	for col, h := range []string{"Category", "Count", "Total Amount"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("report: header %s: %w", h, err)
		}
	}

	row := 2
	for _, cat := range ledger.Categories() {
		if counts[cat] == 0 {
			continue
		}
		values := []any{string(cat), counts[cat], sums[cat]}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("report: category row %d: %w", row, err)
			}
		}
		row++
	}
	return nil
}

func writeMonthlySheet(f *excelize.File, monthly []ledger.MonthlyFlow) error {
	const sheet = "Monthly"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("report: new sheet %s: %w", sheet, err)
	}

	for col, h := range []string{"Month", "Inflow", "Outflow", "Net"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("report: header %s: %w", h, err)
		}
	}

	for row, m := range monthly {
		values := []any{
			m.Month,
			m.Inflow.InexactFloat64(),
			m.Outflow.InexactFloat64(),
			m.Net.InexactFloat64(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("report: monthly row %d: %w", row+2, err)
			}
		}
	}
	return nil
}
