package forecast

import (
	"fmt"
	"os"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderChart writes a PNG plotting the historical daily cash flow and the
// forecast continuation (dashed).
func RenderChart(history, predicted []Point, path string) error {
	if len(history) == 0 {
		return fmt.Errorf("chart: empty history series")
	}

	graph := chart.Chart{
		Title: "Cash Flow Forecast",
		XAxis: chart.XAxis{Name: "Date"},
		YAxis: chart.YAxis{Name: "Daily Net Amount"},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Historical Cash Flow",
				XValues: dates(history),
				YValues: amounts(history),
			},
			chart.TimeSeries{
				Name: "Forecasted Cash Flow",
				Style: chart.Style{
					StrokeColor:     drawing.ColorRed,
					StrokeDashArray: []float64{5.0, 5.0},
				},
				XValues: dates(predicted),
				YValues: amounts(predicted),
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("chart: create %q: %w", path, err)
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("chart: render: %w", err)
	}
	return nil
}

func dates(points []Point) []time.Time {
	out := make([]time.Time, len(points))
	for i, p := range points {
		out[i] = p.Date.In(time.UTC)
	}
	return out
}

func amounts(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Amount
	}
	return out
}
