package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizer_KeywordMatching(t *testing.T) {
	c := NewCategorizer(DefaultKeywordRules())

	tests := []struct {
		description string
		want        Category
	}{
		{"ACME PAYROLL NOV", CategoryPayroll},
		{"Direct Deposit - Employer", CategoryDeposit},
		{"Standing Order to Savings", CategoryTransfer},
		{"Monthly Account Fee", CategoryFees},
		{"Mortgage Repayment", CategoryLoan},
		{"Card Purchase Tesco", CategoryExpense},
		{"cash withdrawal atm", CategoryExpense},
		{"Totally Unrelated Line", CategoryUncategorized},
		{"", CategoryUncategorized},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Categorize(tt.description), "description %q", tt.description)
	}
}

func TestCategorizer_FirstTableRowWinsTies(t *testing.T) {
	// "salary payment" matches both "salary" (Payroll) and "payment"
	// (Expense); the earlier table row must win.
	c := NewCategorizer(DefaultKeywordRules())
	assert.Equal(t, CategoryPayroll, c.Categorize("Salary Payment October"))

	// Reversing the table order flips the winner.
	reversed := NewCategorizer([]KeywordRule{
		{"payment", CategoryExpense},
		{"salary", CategoryPayroll},
	})
	assert.Equal(t, CategoryExpense, reversed.Categorize("Salary Payment October"))
}

func TestCategorizer_CaseInsensitive(t *testing.T) {
	c := NewCategorizer(DefaultKeywordRules())
	assert.Equal(t, c.Categorize("PAYROLL"), c.Categorize("payroll"))
}

func TestCategorizer_DuplicateKeyword(t *testing.T) {
	// The same keyword appearing twice keeps the earlier row's category.
	c := NewCategorizer([]KeywordRule{
		{"fee", CategoryFees},
		{"fee", CategoryExpense},
	})
	assert.Equal(t, CategoryFees, c.Categorize("overdraft fee"))
}

func TestCategorizer_EmptyTable(t *testing.T) {
	c := NewCategorizer(nil)
	assert.Equal(t, CategoryUncategorized, c.Categorize("anything"))
}

func TestCategoryForTransaction_SignConvention(t *testing.T) {
	c := NewCategorizer(DefaultKeywordRules())

	deposit := &Transaction{Description: "Cash Deposit", Amount: decimal.NewFromInt(100)}
	require.Equal(t, CategoryDeposit, c.categoryForTransaction(deposit))

	// A negative amount contradicts the Deposit convention; the
	// transaction is demoted instead of violating the invariant.
	negDeposit := &Transaction{Description: "Cash Deposit", Amount: decimal.NewFromInt(-100)}
	assert.Equal(t, CategoryUncategorized, c.categoryForTransaction(negDeposit))

	negPayroll := &Transaction{Description: "Payroll Reversal", Amount: decimal.NewFromInt(-500)}
	assert.Equal(t, CategoryUncategorized, c.categoryForTransaction(negPayroll))

	// Expenses carry no non-negativity convention.
	expense := &Transaction{Description: "Card Purchase", Amount: decimal.NewFromInt(-20)}
	assert.Equal(t, CategoryExpense, c.categoryForTransaction(expense))
}
