package forecast

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"bankpipe/internal/ledger"
)

// Point is one daily cash-flow value, observed or predicted.
type Point struct {
	Date   civil.Date `csv:"date" json:"date"`
	Amount float64    `csv:"amount" json:"amount"`
}

// DailySeries aggregates signed transaction amounts into one total per
// calendar date, in date order. Days between the first and last transaction
// with no activity are filled with zero: the smoothing model requires a
// complete, evenly spaced index.
func DailySeries(txs []ledger.Transaction) []Point {
	if len(txs) == 0 {
		return nil
	}

	totals := make(map[civil.Date]decimal.Decimal)
	for i := range txs {
		totals[txs[i].Date] = totals[txs[i].Date].Add(txs[i].Amount)
	}

	dates := make([]civil.Date, 0, len(totals))
	for d := range totals {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	first, last := dates[0], dates[len(dates)-1]
	var series []Point
	for d := first; !d.After(last); d = d.AddDays(1) {
		series = append(series, Point{Date: d, Amount: totals[d].InexactFloat64()})
	}
	return series
}
