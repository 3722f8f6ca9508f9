package server

import (
	"html/template"

	"github.com/cambra/puertos-china/internal/analysis"
	"github.com/cambra/puertos-china/internal/charts"
)

var templateFuncs = template.FuncMap{
	"amount": analysis.FormatAmount,
}

type choice struct {
	Value    string
	Selected bool
}

type yearChoice struct {
	Year     int
	Selected bool
}

type tabChoice struct {
	Value  analysis.Tab
	Label  string
	Active bool
}

type pageData struct {
	Title       string
	Logo        string
	View        analysis.View
	Merchandise []choice
	Ports       []choice
	FromYears   []yearChoice
	ToYears     []yearChoice
	Tabs        []tabChoice
	Charts      map[string]string
	ExportURL   string
	APIURL      string
}

func (s *Server) page(v analysis.View) pageData {
	opts := s.dash.Options()
	query := encodeFilter(v.Filter)
	suffix := ""
	if query != "" {
		suffix = "?" + query
	}

	data := pageData{
		Title:       s.cfg.Dashboard.Title,
		Logo:        s.cfg.Dashboard.Logo,
		View:        v,
		Merchandise: choices(opts.Merchandise, v.Filter.Merchandise),
		Ports:       choices(opts.Ports, v.Filter.Ports),
		Charts: map[string]string{
			charts.FigureSeries:  "/charts/" + charts.FigureSeries + ".svg" + suffix,
			charts.FigureRanking: "/charts/" + charts.FigureRanking + ".svg" + suffix,
			charts.FigureTreemap: "/charts/" + charts.FigureTreemap + ".svg" + suffix,
		},
		ExportURL: "/export.xlsx" + suffix,
		APIURL:    "/api/dashboard" + suffix,
	}
	for _, y := range opts.Years {
		data.FromYears = append(data.FromYears, yearChoice{Year: y, Selected: y == v.Filter.FromYear})
		data.ToYears = append(data.ToYears, yearChoice{Year: y, Selected: y == v.Filter.ToYear})
	}
	for _, t := range analysis.Tabs() {
		data.Tabs = append(data.Tabs, tabChoice{Value: t, Label: t.Label(), Active: t == v.Filter.Tab})
	}
	return data
}

func choices(all, selected []string) []choice {
	picked := make(map[string]bool, len(selected))
	for _, s := range selected {
		picked[s] = true
	}
	out := make([]choice, 0, len(all))
	for _, v := range all {
		out = append(out, choice{Value: v, Selected: picked[v]})
	}
	return out
}
