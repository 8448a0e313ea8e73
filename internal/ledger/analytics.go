package ledger

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// MonthlyFlow summarizes inflow and outflow for one calendar month.
type MonthlyFlow struct {
	Month   string          `json:"month"` // YYYY-MM
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"` // absolute value of debits
	Net     decimal.Decimal `json:"net"`
}

// RecurringPayment is a description/category pair seen in more than one
// distinct month, a cheap proxy for subscriptions, rent and loan payments.
type RecurringPayment struct {
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Months      int      `json:"months"`
}

// MonthlySummary aggregates signed amounts into per-month inflow/outflow
// totals, sorted by month.
func MonthlySummary(txs []Transaction) []MonthlyFlow {
	byMonth := make(map[string]*MonthlyFlow)
	for i := range txs {
		key := monthKey(txs[i].Date)
		flow, ok := byMonth[key]
		if !ok {
			flow = &MonthlyFlow{Month: key}
			byMonth[key] = flow
		}
		if txs[i].Amount.IsNegative() {
			flow.Outflow = flow.Outflow.Add(txs[i].Amount.Abs())
		} else {
			flow.Inflow = flow.Inflow.Add(txs[i].Amount)
		}
		flow.Net = flow.Net.Add(txs[i].Amount)
	}

	months := make([]MonthlyFlow, 0, len(byMonth))
	for _, flow := range byMonth {
		months = append(months, *flow)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months
}

// DetectRecurring finds description/category pairs that occur in more than
// one distinct month, sorted by month count (descending) then description.
func DetectRecurring(txs []Transaction) []RecurringPayment {
	type pair struct {
		description string
		category    Category
	}

	seen := make(map[pair]map[string]bool)
	for i := range txs {
		p := pair{description: txs[i].Description, category: txs[i].Category}
		if seen[p] == nil {
			seen[p] = make(map[string]bool)
		}
		seen[p][monthKey(txs[i].Date)] = true
	}

	var recurring []RecurringPayment
	for p, months := range seen {
		if len(months) > 1 {
			recurring = append(recurring, RecurringPayment{
				Description: p.description,
				Category:    p.category,
				Months:      len(months),
			})
		}
	}
	sort.Slice(recurring, func(i, j int) bool {
		if recurring[i].Months != recurring[j].Months {
			return recurring[i].Months > recurring[j].Months
		}
		return recurring[i].Description < recurring[j].Description
	})
	return recurring
}

// Lending recommendation lines for the run report.
const (
	RecommendGoodCandidate = "Likely a good candidate for a business loan."
	RecommendFurtherReview = "Further review needed (cash flow not consistently positive)."
)

// HasLoanActivity reports whether any transaction was categorized as a loan
// payment, the marker for a potential existing credit obligation.
func HasLoanActivity(txs []Transaction) bool {
	for i := range txs {
		if txs[i].Category == CategoryLoan {
			return true
		}
	}
	return false
}

// Recommend derives the headline lending recommendation from the monthly
// summary: net flow positive in more than 70% of observed months counts as
// consistently positive cash flow. No observed months means no basis for a
// positive call.
func Recommend(monthly []MonthlyFlow) string {
	if len(monthly) == 0 {
		return RecommendFurtherReview
	}
	positive := 0
	for _, m := range monthly {
		if m.Net.IsPositive() {
			positive++
		}
	}
	if float64(positive)/float64(len(monthly)) > 0.7 {
		return RecommendGoodCandidate
	}
	return RecommendFurtherReview
}

func monthKey(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}
