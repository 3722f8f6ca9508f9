package charts

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cambra/puertos-china/internal/analysis"
)

// RankingPlot draws the ranking as horizontal bars, largest at the top.
func RankingPlot(r analysis.Ranking) (*plot.Plot, error) {
	p := newPlot(r.Title)
	p.X.Label.Text = "total_gs"
	p.X.Tick.Marker = amountTicks{}

	if len(r.Bars) == 0 {
		emptyAxes(p)
		return p, nil
	}

	n := len(r.Bars)
	values := make(plotter.Values, n)
	labels := make([]string, n)
	for i, b := range r.Bars {
		values[n-1-i] = b.Value
		labels[n-1-i] = b.Label
	}

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)

	p.Add(plotter.NewGrid())
	p.Add(bars)
	p.NominalY(labels...)
	p.X.Min = 0
	return p, nil
}
