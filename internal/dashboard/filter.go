package dashboard

import (
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/civil"

	"bankpipe/internal/ledger"
)

// AnomalyFilter selects transactions by their anomaly flag.
type AnomalyFilter string

const (
	AnomalyAll    AnomalyFilter = "all"
	AnomalyOnly   AnomalyFilter = "only"
	AnomalyNormal AnomalyFilter = "normal"
)

// Filter narrows a transaction list. Filters compose as set intersection,
// so applying them in any order yields the same result. Zero dates mean
// unbounded; both bounds are inclusive.
type Filter struct {
	Categories []ledger.Category
	From       civil.Date
	To         civil.Date
	Anomaly    AnomalyFilter
}

// FilterFromQuery parses the dashboard's query parameters:
// categories=Deposit,Expense  from=2024-01-01  to=2024-03-31  anomaly=only.
func FilterFromQuery(q url.Values) (Filter, error) {
	f := Filter{Anomaly: AnomalyAll}

	if raw := q.Get("categories"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			c := ledger.Category(strings.TrimSpace(part))
			if !c.Valid() {
				return Filter{}, fmt.Errorf("unknown category %q", part)
			}
			f.Categories = append(f.Categories, c)
		}
	}

	if raw := q.Get("from"); raw != "" {
		d, err := civil.ParseDate(raw)
		if err != nil {
			return Filter{}, fmt.Errorf("bad from date %q: %w", raw, err)
		}
		f.From = d
	}
	if raw := q.Get("to"); raw != "" {
		d, err := civil.ParseDate(raw)
		if err != nil {
			return Filter{}, fmt.Errorf("bad to date %q: %w", raw, err)
		}
		f.To = d
	}

	if raw := q.Get("anomaly"); raw != "" {
		switch AnomalyFilter(raw) {
		case AnomalyAll, AnomalyOnly, AnomalyNormal:
			f.Anomaly = AnomalyFilter(raw)
		default:
			return Filter{}, fmt.Errorf("bad anomaly filter %q", raw)
		}
	}
	return f, nil
}

// Apply returns the transactions matching every clause of the filter,
// preserving input order. The input slice is never mutated.
func (f Filter) Apply(txs []ledger.Transaction) []ledger.Transaction {
	out := make([]ledger.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func (f Filter) matches(tx ledger.Transaction) bool {
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if tx.Category == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.From.IsValid() && tx.Date.Before(f.From) {
		return false
	}
	if f.To.IsValid() && tx.Date.After(f.To) {
		return false
	}

	switch f.Anomaly {
	case AnomalyOnly:
		return tx.Anomalous
	case AnomalyNormal:
		return !tx.Anomalous
	}
	return true
}
