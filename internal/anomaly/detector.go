package anomaly

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"bankpipe/internal/ledger"
)

// Detector is the capability boundary around the outlier model: amounts in,
// one continuous score per amount out. Higher means more extreme.
type Detector interface {
	Scores(amounts []float64) []float64
}

// RobustDetector scores each amount by its distance from the population
// median in MAD (median absolute deviation) units, the standard robust
// z-score. On 1-D amounts this yields the same extremeness ordering as a
// tree-based outlier model while staying deterministic across runs.
type RobustDetector struct{}

// Scores returns |x - median| / MAD for every amount. When the MAD is zero
// (more than half the amounts identical) the standard deviation is used
// instead; if that is also zero every score is zero.
func (RobustDetector) Scores(amounts []float64) []float64 {
	scores := make([]float64, len(amounts))
	if len(amounts) == 0 {
		return scores
	}

	median := quantile(amounts, 0.5)

	deviations := make([]float64, len(amounts))
	for i, x := range amounts {
		deviations[i] = math.Abs(x - median)
	}
	scale := quantile(deviations, 0.5)
	if scale == 0 {
		scale = stat.StdDev(amounts, nil)
	}
	if scale == 0 {
		return scores
	}

	for i, d := range deviations {
		scores[i] = d / scale
	}
	return scores
}

// Result describes what the anomaly pass did, for the run summary and the
// dashboard's degraded-state banner.
type Result struct {
	Applied       bool    `json:"applied"` // false: too few transactions, neutral defaults used
	Contamination float64 `json:"contamination"`
	Flagged       int     `json:"flagged"`
	MinFitSize    int     `json:"min_fit_size"`
}

// Annotate attaches an anomaly score and flag to every transaction. The
// flag marks the ceil(contamination*n) highest-scoring transactions, the
// contamination-parameter convention of the underlying model family.
//
// Below minFit transactions the model cannot be fit meaningfully: every
// transaction gets the neutral score 0 and flag false, and Applied is false
// so the degradation is explicit in the output.
func Annotate(txs []ledger.Transaction, d Detector, contamination float64, minFit int) Result {
	result := Result{Contamination: contamination, MinFitSize: minFit}

	if len(txs) < minFit {
		for i := range txs {
			txs[i].AnomalyScore = 0
			txs[i].Anomalous = false
		}
		return result
	}

	amounts := make([]float64, len(txs))
	for i := range txs {
		amounts[i] = txs[i].AmountFloat()
	}
	scores := d.Scores(amounts)

	for i := range txs {
		txs[i].AnomalyScore = scores[i]
		txs[i].Anomalous = false
	}

	k := int(math.Ceil(contamination * float64(len(txs))))
	if k > len(txs) {
		k = len(txs)
	}

	// Rank by score descending, index ascending for determinism.
	order := make([]int, len(txs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	for _, idx := range order[:k] {
		if scores[idx] <= 0 {
			break // uniform population; nothing is an outlier
		}
		txs[idx].Anomalous = true
		result.Flagged++
	}

	result.Applied = true
	return result
}

func quantile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}
