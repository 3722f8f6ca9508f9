// Package charts renders the dashboard figures with gonum/plot.
package charts

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/cambra/puertos-china/internal/analysis"
)

// Figure names, as used in URLs and report file names.
const (
	FigureSeries  = "serie"
	FigureRanking = "ranking"
	FigureTreemap = "treemap"
)

type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case SVG, PNG:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported chart format %q", s)
}

func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Size is a figure's canvas size.
type Size struct {
	Width  vg.Length
	Height vg.Length
}

var defaultSizes = map[string]Size{
	FigureSeries:  {Width: 10 * vg.Inch, Height: 4 * vg.Inch},
	FigureRanking: {Width: 10 * vg.Inch, Height: 7 * vg.Inch},
	FigureTreemap: {Width: 10 * vg.Inch, Height: 6 * vg.Inch},
}

var barColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}

// Build creates the named figure for a computed view.
func Build(name string, v analysis.View) (*plot.Plot, error) {
	switch name {
	case FigureSeries:
		return SeriesPlot(v.Series)
	case FigureRanking:
		return RankingPlot(v.Ranking)
	case FigureTreemap:
		return TreemapPlot(v.Treemap), nil
	}
	return nil, fmt.Errorf("unknown figure %q", name)
}

// Render builds and encodes the named figure at its default size, scaled
// by scale (1 when zero).
func Render(name string, v analysis.View, format Format, scale float64) ([]byte, error) {
	size, ok := defaultSizes[name]
	if !ok {
		return nil, fmt.Errorf("unknown figure %q", name)
	}
	p, err := Build(name, v)
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		scale = 1
	}
	return Encode(p, vg.Length(scale)*size.Width, vg.Length(scale)*size.Height, format)
}

func Encode(p *plot.Plot, w, h vg.Length, format Format) ([]byte, error) {
	wt, err := p.WriterTo(w, h, string(format))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	return p
}

// emptyAxes pins the ranges of a plot with no data.
func emptyAxes(p *plot.Plot) {
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
}

// amountTicks labels the default ticks with thousands separators.
type amountTicks struct{}

func (amountTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = analysis.FormatAmount(ticks[i].Value)
		}
	}
	return ticks
}
