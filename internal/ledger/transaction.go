package ledger

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Category is one of the fixed set of transaction categories. Every parsed
// transaction carries exactly one; unmatched descriptions fall back to
// CategoryUncategorized so categorization is total.
type Category string

const (
	CategoryDeposit       Category = "Deposit"
	CategoryExpense       Category = "Expense"
	CategoryTransfer      Category = "Transfer"
	CategoryFees          Category = "Fees"
	CategoryPayroll       Category = "Payroll"
	CategoryLoan          Category = "Loan"
	CategoryUncategorized Category = "Uncategorized"
)

// Categories lists the full closed set, in display order.
func Categories() []Category {
	return []Category{
		CategoryDeposit,
		CategoryExpense,
		CategoryTransfer,
		CategoryFees,
		CategoryPayroll,
		CategoryLoan,
		CategoryUncategorized,
	}
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Transaction is a single parsed statement line item. It is created by the
// parser and only touched once more, by the anomaly pass that fills
// AnomalyScore and Anomalous.
type Transaction struct {
	ID          string          `csv:"id" json:"id"`
	Date        civil.Date      `csv:"date" json:"date"`
	Description string          `csv:"description" json:"description"`
	Amount      decimal.Decimal `csv:"amount" json:"amount"`
	Category    Category        `csv:"category" json:"category"`

	AnomalyScore float64 `csv:"anomaly_score" json:"anomaly_score"`
	Anomalous    bool    `csv:"anomalous" json:"anomalous"`

	// Provenance: which statement page the line came from.
	Statement string `csv:"statement" json:"statement"`
	Page      int    `csv:"page" json:"page"`
}

// AmountFloat returns the amount as a float64 for the statistical passes
// (anomaly scoring, daily aggregation). The decimal value stays authoritative
// for every artifact we write.
func (t *Transaction) AmountFloat() float64 {
	return t.Amount.InexactFloat64()
}
