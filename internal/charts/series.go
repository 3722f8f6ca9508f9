package charts

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cambra/puertos-china/internal/analysis"
)

// SeriesPlot draws the monthly series as a line over time.
func SeriesPlot(s analysis.Series) (*plot.Plot, error) {
	p := newPlot(s.Title)
	p.X.Label.Text = "fecha"
	p.Y.Label.Text = s.Column
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Y.Tick.Marker = amountTicks{}
	p.Add(plotter.NewGrid())

	if len(s.Points) == 0 {
		emptyAxes(p)
		return p, nil
	}

	points := make(plotter.XYs, len(s.Points))
	for i, pt := range s.Points {
		points[i].X = float64(pt.Date.Unix())
		points[i].Y = pt.Value
	}

	line, err := plotter.NewLine(points)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{R: 0, G: 100, B: 0, A: 255}
	line.Width = vg.Points(2)
	p.Add(line)

	if len(points) == 1 {
		p.X.Min = points[0].X - 86400*15
		p.X.Max = points[0].X + 86400*15
	}
	return p, nil
}
