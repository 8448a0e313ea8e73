package ledger

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func tx(date civil.Date, desc string, amount int64, cat Category) Transaction {
	return Transaction{Date: date, Description: desc, Amount: decimal.NewFromInt(amount), Category: cat}
}

func TestMonthlySummary(t *testing.T) {
	txs := []Transaction{
		tx(civil.Date{Year: 2024, Month: 1, Day: 5}, "Payroll", 2000, CategoryPayroll),
		tx(civil.Date{Year: 2024, Month: 1, Day: 7}, "Rent", -900, CategoryExpense),
		tx(civil.Date{Year: 2024, Month: 2, Day: 5}, "Payroll", 2000, CategoryPayroll),
	}

	months := MonthlySummary(txs)
	if len(months) != 2 {
		t.Fatalf("MonthlySummary() returned %d months, want 2", len(months))
	}

	jan := months[0]
	if jan.Month != "2024-01" {
		t.Errorf("first month = %s, want 2024-01 (sorted)", jan.Month)
	}
	if !jan.Inflow.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("jan inflow = %s, want 2000", jan.Inflow)
	}
	if !jan.Outflow.Equal(decimal.NewFromInt(900)) {
		t.Errorf("jan outflow = %s, want 900", jan.Outflow)
	}
	if !jan.Net.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("jan net = %s, want 1100", jan.Net)
	}
}

func TestDetectRecurring(t *testing.T) {
	txs := []Transaction{
		tx(civil.Date{Year: 2024, Month: 1, Day: 1}, "Rent", -900, CategoryExpense),
		tx(civil.Date{Year: 2024, Month: 2, Day: 1}, "Rent", -900, CategoryExpense),
		tx(civil.Date{Year: 2024, Month: 3, Day: 1}, "Rent", -900, CategoryExpense),
		tx(civil.Date{Year: 2024, Month: 1, Day: 9}, "One-off Purchase", -50, CategoryExpense),
		// Same month twice is not recurring.
		tx(civil.Date{Year: 2024, Month: 1, Day: 3}, "Coffee", -4, CategoryExpense),
		tx(civil.Date{Year: 2024, Month: 1, Day: 21}, "Coffee", -4, CategoryExpense),
	}

	recurring := DetectRecurring(txs)
	if len(recurring) != 1 {
		t.Fatalf("DetectRecurring() returned %d entries, want 1: %+v", len(recurring), recurring)
	}
	if recurring[0].Description != "Rent" || recurring[0].Months != 3 {
		t.Errorf("got %+v, want Rent across 3 months", recurring[0])
	}
}

func TestDetectRecurring_Empty(t *testing.T) {
	if got := DetectRecurring(nil); len(got) != 0 {
		t.Errorf("DetectRecurring(nil) = %v, want empty", got)
	}
}

func TestHasLoanActivity(t *testing.T) {
	withLoan := []Transaction{
		tx(civil.Date{Year: 2024, Month: 1, Day: 5}, "Payroll", 2000, CategoryPayroll),
		tx(civil.Date{Year: 2024, Month: 1, Day: 15}, "Loan Repayment", -400, CategoryLoan),
	}
	if !HasLoanActivity(withLoan) {
		t.Error("HasLoanActivity() = false with a loan-category transaction present")
	}
	if HasLoanActivity(withLoan[:1]) {
		t.Error("HasLoanActivity() = true without loan-category transactions")
	}
	if HasLoanActivity(nil) {
		t.Error("HasLoanActivity(nil) = true")
	}
}

func TestRecommend(t *testing.T) {
	month := func(net int64) MonthlyFlow {
		return MonthlyFlow{Net: decimal.NewFromInt(net)}
	}

	tests := []struct {
		name    string
		monthly []MonthlyFlow
		want    string
	}{
		{
			name:    "all months positive",
			monthly: []MonthlyFlow{month(100), month(200), month(50)},
			want:    RecommendGoodCandidate,
		},
		{
			// 3 of 4 = 75% > 70%.
			name:    "three of four positive",
			monthly: []MonthlyFlow{month(100), month(200), month(-40), month(50)},
			want:    RecommendGoodCandidate,
		},
		{
			// 7 of 10 = 70% exactly: the bar is strictly more than 70%.
			name:    "exactly seventy percent",
			monthly: []MonthlyFlow{month(1), month(1), month(1), month(1), month(1), month(1), month(1), month(-1), month(-1), month(-1)},
			want:    RecommendFurtherReview,
		},
		{
			name:    "mostly negative",
			monthly: []MonthlyFlow{month(-100), month(-200), month(50)},
			want:    RecommendFurtherReview,
		},
		{
			name:    "zero net is not positive",
			monthly: []MonthlyFlow{month(0), month(0), month(0)},
			want:    RecommendFurtherReview,
		},
		{
			name:    "no observed months",
			monthly: nil,
			want:    RecommendFurtherReview,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Recommend(tt.monthly); got != tt.want {
				t.Errorf("Recommend() = %q, want %q", got, tt.want)
			}
		})
	}
}
