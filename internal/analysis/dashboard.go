// Package analysis implements the dashboard computation: it filters the
// three import tables by the user's controls and aggregates them into KPIs,
// a time series, a merchandise ranking, a port treemap and a detail table.
//
// The computation is a pure function of the loaded tables and the filter,
// so a Dashboard is safe for concurrent use.
package analysis

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cambra/puertos-china/internal/dataset"
)

const (
	DefaultRankingLimit = 20
	DefaultDetailLimit  = 50

	RankingTitle = "Top mercaderías (por valor Gs)"
	TreemapTitle = "Composición de mercaderías por puerto (valor Gs)"
	NoDataTitle  = "Sin datos"
)

// DetailColumns are the columns of the detail table, in order.
var DetailColumns = []string{"mercaderia", "kilo_neto", "total_gs", "flete_usd", "seguro_usd"}

var tracer = otel.Tracer("github.com/cambra/puertos-china/internal/analysis")

type KPI struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

type SeriesPoint struct {
	Date  time.Time `json:"fecha"`
	Value float64   `json:"value"`
}

type Series struct {
	Title  string        `json:"title"`
	Column string        `json:"column"`
	Points []SeriesPoint `json:"points"`
}

type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Ranking struct {
	Title string `json:"title"`
	Bars  []Bar  `json:"bars"`
}

// PortGroup is one top-level treemap rectangle and its merchandise leaves.
type PortGroup struct {
	Port  string  `json:"aduana"`
	Value float64 `json:"value"`
	Items []Bar   `json:"items"`
}

type Treemap struct {
	Title  string      `json:"title"`
	Groups []PortGroup `json:"groups"`
}

// Empty reports whether the treemap has nothing to lay out.
func (t Treemap) Empty() bool {
	return len(t.Groups) == 0
}

// View is everything the dashboard shows for one filter.
type View struct {
	Filter  Filter                  `json:"filter"`
	KPIs    []KPI                   `json:"kpis"`
	Series  Series                  `json:"series"`
	Ranking Ranking                 `json:"ranking"`
	Treemap Treemap                 `json:"treemap"`
	Detail  []dataset.RankingRecord `json:"detail"`
}

// Options feed the dashboard controls.
type Options struct {
	Merchandise []string `json:"mercaderias"`
	Ports       []string `json:"puertos"`
	MinYear     int      `json:"anio_min"`
	MaxYear     int      `json:"anio_max"`
	Years       []int    `json:"anios"`
}

type Dashboard struct {
	tables       *dataset.Tables
	rankingLimit int
	detailLimit  int
	options      Options
}

type Option func(*Dashboard)

func WithRankingLimit(n int) Option {
	return func(d *Dashboard) {
		if n > 0 {
			d.rankingLimit = n
		}
	}
}

func WithDetailLimit(n int) Option {
	return func(d *Dashboard) {
		if n > 0 {
			d.detailLimit = n
		}
	}
}

func New(tables *dataset.Tables, opts ...Option) *Dashboard {
	d := &Dashboard{
		tables:       tables,
		rankingLimit: DefaultRankingLimit,
		detailLimit:  DefaultDetailLimit,
	}
	for _, opt := range opts {
		opt(d)
	}

	lo, hi := tables.YearBounds()
	d.options = Options{
		Merchandise: tables.MerchandiseNames(),
		Ports:       tables.PortNames(),
		MinYear:     lo,
		MaxYear:     hi,
		Years:       tables.Years(),
	}
	return d
}

func (d *Dashboard) Options() Options {
	return d.options
}

// TableRows reports the loaded row count of each source table.
func (d *Dashboard) TableRows() map[string]int {
	return map[string]int{
		"series":  len(d.tables.Series),
		"ranking": len(d.tables.Ranking),
		"ports":   len(d.tables.Ports),
	}
}

// Normalize fills defaults into f: dataset bounds for zero years, ordered
// bounds, and a known tab.
func (d *Dashboard) Normalize(f Filter) Filter {
	if f.FromYear == 0 {
		f.FromYear = d.options.MinYear
	}
	if f.ToYear == 0 {
		f.ToYear = d.options.MaxYear
	}
	if f.FromYear > f.ToYear {
		f.FromYear, f.ToYear = f.ToYear, f.FromYear
	}
	f.Tab = f.Tab.Normalize()
	return f
}

// Compute filters and aggregates the tables for f.
//
// The year range applies to the series only; the merchandise selection
// applies to the ranking and the port breakdown; the port selection applies
// to the port breakdown only. KPIs are totals of the filtered ranking.
func (d *Dashboard) Compute(ctx context.Context, f Filter) View {
	f = d.Normalize(f)
	_, span := tracer.Start(ctx, "dashboard.compute", trace.WithAttributes(
		attribute.String("tab", string(f.Tab)),
		attribute.Int("merchandise.selected", len(f.Merchandise)),
		attribute.Int("ports.selected", len(f.Ports)),
		attribute.Int("year.from", f.FromYear),
		attribute.Int("year.to", f.ToYear),
	))
	defer span.End()

	merchandise := newStringSet(f.Merchandise)
	ports := newStringSet(f.Ports)

	var ranking []dataset.RankingRecord
	for _, r := range d.tables.Ranking {
		if merchandise.allows(r.Merchandise) {
			ranking = append(ranking, r)
		}
	}
	var breakdown []dataset.PortRecord
	for _, r := range d.tables.Ports {
		if merchandise.allows(r.Merchandise) && ports.allows(r.Port) {
			breakdown = append(breakdown, r)
		}
	}

	sorted := sortByValue(ranking)
	view := View{
		Filter:  f,
		KPIs:    kpis(ranking),
		Series:  d.series(f),
		Ranking: Ranking{Title: RankingTitle, Bars: bars(sorted, d.rankingLimit)},
		Treemap: treemap(breakdown),
		Detail:  head(sorted, d.detailLimit),
	}

	span.SetAttributes(
		attribute.Int("ranking.rows", len(ranking)),
		attribute.Int("ports.rows", len(breakdown)),
		attribute.Int("series.points", len(view.Series.Points)),
	)
	return view
}

func (d *Dashboard) series(f Filter) Series {
	type month struct{ year, month int }
	totals := make(map[month]*dataset.Measures)
	for _, r := range d.tables.Series {
		if r.Year < f.FromYear || r.Year > f.ToYear {
			continue
		}
		k := month{r.Year, r.Month}
		if totals[k] == nil {
			totals[k] = &dataset.Measures{}
		}
		totals[k].Add(r.Measures)
	}

	points := make([]SeriesPoint, 0, len(totals))
	for k, m := range totals {
		points = append(points, SeriesPoint{
			Date:  time.Date(k.year, time.Month(k.month), 1, 0, 0, 0, 0, time.UTC),
			Value: f.Tab.Measure(*m),
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return Series{Title: f.Tab.Title(), Column: f.Tab.Column(), Points: points}
}

func kpis(ranking []dataset.RankingRecord) []KPI {
	var total dataset.Measures
	for _, r := range ranking {
		total.Add(r.Measures)
	}
	return []KPI{
		{ID: "kpi-kilo", Label: "Volumen total (Kg Neto)", Value: total.NetKilos, Display: FormatAmount(total.NetKilos)},
		{ID: "kpi-total", Label: "Valor total (Gs)", Value: total.ValueGs, Display: FormatAmount(total.ValueGs)},
		{ID: "kpi-flete", Label: "Flete total (USD)", Value: total.FreightUSD, Display: FormatAmount(total.FreightUSD)},
		{ID: "kpi-seguro", Label: "Seguro total (USD)", Value: total.InsuranceUSD, Display: FormatAmount(total.InsuranceUSD)},
	}
}

// sortByValue returns a copy of rows ordered by value descending. Ties keep
// table order.
func sortByValue(rows []dataset.RankingRecord) []dataset.RankingRecord {
	out := make([]dataset.RankingRecord, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ValueGs > out[j].ValueGs
	})
	return out
}

func head(rows []dataset.RankingRecord, n int) []dataset.RankingRecord {
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

func bars(rows []dataset.RankingRecord, n int) []Bar {
	rows = head(rows, n)
	out := make([]Bar, 0, len(rows))
	for _, r := range rows {
		out = append(out, Bar{Label: r.Merchandise, Value: r.ValueGs})
	}
	return out
}

// treemap groups rows by port, then merchandise. Rows missing either name
// are left out, as they are from the option lists.
func treemap(rows []dataset.PortRecord) Treemap {
	leaves := make(map[string]map[string]float64)
	for _, r := range rows {
		if r.Port == "" || r.Merchandise == "" {
			continue
		}
		if leaves[r.Port] == nil {
			leaves[r.Port] = make(map[string]float64)
		}
		leaves[r.Port][r.Merchandise] += r.ValueGs
	}

	groups := []PortGroup{}
	for port, items := range leaves {
		g := PortGroup{Port: port}
		for name, v := range items {
			if v <= 0 {
				continue
			}
			g.Items = append(g.Items, Bar{Label: name, Value: v})
			g.Value += v
		}
		if len(g.Items) == 0 {
			continue
		}
		sort.Slice(g.Items, func(i, j int) bool {
			if g.Items[i].Value != g.Items[j].Value {
				return g.Items[i].Value > g.Items[j].Value
			}
			return g.Items[i].Label < g.Items[j].Label
		})
		groups = append(groups, g)
	}
	if len(leaves) == 0 {
		return Treemap{Title: NoDataTitle, Groups: groups}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Value != groups[j].Value {
			return groups[i].Value > groups[j].Value
		}
		return groups[i].Port < groups[j].Port
	})

	return Treemap{Title: TreemapTitle, Groups: groups}
}

// FormatAmount renders v with thousands separators and no decimals.
func FormatAmount(v float64) string {
	return message.NewPrinter(language.English).Sprintf("%.0f", v)
}
