package forecast

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrTooFewPoints is returned when the aggregated series is too short to
// fit the model meaningfully. The driver degrades the run instead of
// crashing; the dashboard reports the forecast as skipped.
var ErrTooFewPoints = errors.New("too few observations to fit forecast model")

// Model is the capability boundary around the smoothing model: an observed
// daily series in, a fixed-horizon forecast out.
type Model interface {
	Forecast(series []Point, horizon int) ([]Point, error)
}

// HoltLinear is double (level + additive trend) exponential smoothing, the
// trend-only configuration the cash-flow series calls for. Smoothing
// constants are chosen by grid search over the one-step-ahead squared
// errors.
type HoltLinear struct {
	// MinPoints is the minimum number of observations required to fit.
	// Values below 2 are treated as 2, the structural minimum for a trend.
	MinPoints int
}

// Forecast fits the smoothing model and projects horizon days past the end
// of the series. Output dates are strictly consecutive calendar days and the
// output length always equals horizon.
func (m HoltLinear) Forecast(series []Point, horizon int) ([]Point, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("forecast: horizon %d: must be at least 1", horizon)
	}
	minPoints := m.MinPoints
	if minPoints < 2 {
		minPoints = 2
	}
	if len(series) < minPoints {
		return nil, fmt.Errorf("forecast: %d observations, need at least %d: %w",
			len(series), minPoints, ErrTooFewPoints)
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Amount
	}

	alpha, beta := optimize(values)
	level, trend := fit(values, alpha, beta)

	out := make([]Point, horizon)
	last := series[len(series)-1].Date
	for h := 1; h <= horizon; h++ {
		out[h-1] = Point{
			Date:   last.AddDays(h),
			Amount: level + float64(h)*trend,
		}
	}
	return out, nil
}

// fit runs the smoothing recursion and returns the final level and trend.
func fit(values []float64, alpha, beta float64) (level, trend float64) {
	level = values[0]
	trend = values[1] - values[0]
	for _, y := range values[1:] {
		prevLevel := level
		level = alpha*y + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}
	return level, trend
}

// sse computes the sum of squared one-step-ahead forecast errors.
func sse(values []float64, alpha, beta float64) float64 {
	level := values[0]
	trend := values[1] - values[0]
	sqErrs := make([]float64, 0, len(values)-1)
	for _, y := range values[1:] {
		predicted := level + trend
		e := y - predicted
		sqErrs = append(sqErrs, e*e)
		prevLevel := level
		level = alpha*y + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}
	return floats.Sum(sqErrs)
}

// optimize grid-searches the smoothing constants over (0,1).
func optimize(values []float64) (bestAlpha, bestBeta float64) {
	bestAlpha, bestBeta = 0.5, 0.1
	best := sse(values, bestAlpha, bestBeta)
	for alpha := 0.05; alpha < 1; alpha += 0.05 {
		for beta := 0.05; beta < 1; beta += 0.05 {
			if s := sse(values, alpha, beta); s < best {
				best, bestAlpha, bestBeta = s, alpha, beta
			}
		}
	}
	return bestAlpha, bestBeta
}
