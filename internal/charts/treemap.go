package charts

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/cambra/puertos-china/internal/analysis"
)

// Rect is an axis-aligned rectangle in plot units, X/Y at the lower left.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Area() float64 { return r.W * r.H }

// Squarify lays out values inside r so that each rectangle's area is
// proportional to its value and aspect ratios stay close to one (Bruls,
// Huizing and van Wijk). values should be positive and sorted descending.
// The result has one rectangle per value, in input order.
func Squarify(values []float64, r Rect) []Rect {
	rects := make([]Rect, len(values))
	total := 0.0
	for _, v := range values {
		total += v
	}
	if total <= 0 || r.Area() <= 0 {
		return rects
	}

	scale := r.Area() / total
	areas := make([]float64, len(values))
	for i, v := range values {
		areas[i] = v * scale
	}

	free := r
	for i := 0; i < len(areas); {
		side := math.Min(free.W, free.H)
		j := i + 1
		for j < len(areas) && worstRatio(areas[i:j+1], side) <= worstRatio(areas[i:j], side) {
			j++
		}

		rowArea := 0.0
		for _, a := range areas[i:j] {
			rowArea += a
		}
		if free.W >= free.H {
			w := rowArea / free.H
			y := free.Y
			for k := i; k < j; k++ {
				h := areas[k] / w
				rects[k] = Rect{X: free.X, Y: y, W: w, H: h}
				y += h
			}
			free.X += w
			free.W -= w
		} else {
			h := rowArea / free.W
			x := free.X
			for k := i; k < j; k++ {
				w := areas[k] / h
				rects[k] = Rect{X: x, Y: free.Y, W: w, H: h}
				x += w
			}
			free.Y += h
			free.H -= h
		}
		i = j
	}
	return rects
}

// worstRatio is the largest aspect ratio in a row laid along side.
func worstRatio(row []float64, side float64) float64 {
	sum, hi, lo := 0.0, 0.0, math.Inf(1)
	for _, a := range row {
		sum += a
		hi = math.Max(hi, a)
		lo = math.Min(lo, a)
	}
	if sum == 0 || lo == 0 {
		return math.Inf(1)
	}
	s2 := side * side
	return math.Max(s2*hi/(sum*sum), (sum*sum)/(s2*lo))
}

// Cell is one laid-out treemap rectangle.
type Cell struct {
	Rect
	Label string
	Value float64
	Port  string
	Leaf  bool
	Color color.Color
}

const (
	treemapPad    = 0.004
	treemapHeader = 0.045
)

// Layout places the ports in the unit square and each port's merchandise
// inside it, below a header band that carries the port name. Parents come
// before their leaves.
func Layout(t analysis.Treemap) []Cell {
	values := make([]float64, len(t.Groups))
	for i, g := range t.Groups {
		values[i] = g.Value
	}

	var cells []Cell
	for i, r := range Squarify(values, Rect{W: 1, H: 1}) {
		g := t.Groups[i]
		base := plotutil.Color(i)
		cells = append(cells, Cell{Rect: r, Label: g.Port, Value: g.Value, Port: g.Port, Color: base})

		header := math.Min(treemapHeader, r.H*0.25)
		inner := Rect{
			X: r.X + treemapPad,
			Y: r.Y + treemapPad,
			W: r.W - 2*treemapPad,
			H: r.H - 2*treemapPad - header,
		}
		if inner.W <= 0 || inner.H <= 0 {
			continue
		}

		leafValues := make([]float64, len(g.Items))
		for k, it := range g.Items {
			leafValues[k] = it.Value
		}
		for k, lr := range Squarify(leafValues, inner) {
			cells = append(cells, Cell{
				Rect:  lr,
				Label: g.Items[k].Label,
				Value: g.Items[k].Value,
				Port:  g.Port,
				Leaf:  true,
				Color: lighten(base, 0.35),
			})
		}
	}
	return cells
}

// TreemapPlot draws the port treemap; an empty treemap is a titled blank.
func TreemapPlot(t analysis.Treemap) *plot.Plot {
	p := newPlot(t.Title)
	p.HideAxes()
	emptyAxes(p)
	if !t.Empty() {
		p.Add(&treemapPlotter{cells: Layout(t)})
	}
	return p
}

type treemapPlotter struct {
	cells []Cell
}

// Plot implements plot.Plotter.
func (tp *treemapPlotter) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)

	sty := plt.Title.TextStyle
	sty.Font.Size = vg.Points(8)
	sty.Color = color.White
	sty.XAlign = draw.XLeft
	sty.YAlign = draw.YTop

	border := draw.LineStyle{Color: color.White, Width: vg.Points(1)}

	for _, cell := range tp.cells {
		x0, x1 := trX(cell.X), trX(cell.X+cell.W)
		y0, y1 := trY(cell.Y), trY(cell.Y+cell.H)
		corners := []vg.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}

		c.FillPolygon(cell.Color, corners)
		c.StrokeLines(border, append(corners, corners[0]))

		label := cell.Label
		if cell.Leaf {
			label += " " + analysis.FormatAmount(cell.Value)
		}
		pad := vg.Points(2)
		if sty.Width(label)+2*pad > x1-x0 || sty.Height(label)+2*pad > y1-y0 {
			continue
		}
		c.FillText(sty, vg.Point{X: x0 + pad, Y: y1 - pad}, label)
	}
}

func lighten(c color.Color, f float64) color.Color {
	r, g, b, a := c.RGBA()
	mix := func(v uint32) uint8 {
		x := float64(v>>8) + (255-float64(v>>8))*f
		return uint8(math.Round(x))
	}
	return color.NRGBA{R: mix(r), G: mix(g), B: mix(b), A: uint8(a >> 8)}
}
