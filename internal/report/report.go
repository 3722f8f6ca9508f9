// Package report exports a computed dashboard view as an Excel workbook and,
// for batch runs, as a directory holding the workbook, a markdown summary and
// the chart images.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cambra/puertos-china/internal/analysis"
	"github.com/cambra/puertos-china/internal/charts"
)

const (
	sheetKPI     = "KPI"
	sheetSeries  = "Serie"
	sheetRanking = "Ranking"
	sheetPorts   = "Puertos"
	sheetDetail  = "Detalle"

	WorkbookName = "dashboard.xlsx"
)

// Workbook builds the export of v. The caller closes the file.
func Workbook(v analysis.View) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetKPI); err != nil {
		return nil, err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		return nil, err
	}

	w := &writer{f: f, header: header, amount: amount}

	w.table(sheetKPI, []string{"Indicador", "Valor"}, len(v.KPIs), func(i int) []interface{} {
		return []interface{}{v.KPIs[i].Label, v.KPIs[i].Value}
	})
	w.filterSummary(v.Filter, len(v.KPIs)+3)

	w.table(sheetSeries, []string{"fecha", v.Series.Column}, len(v.Series.Points), func(i int) []interface{} {
		pt := v.Series.Points[i]
		return []interface{}{pt.Date.Format("2006-01"), pt.Value}
	})

	w.table(sheetRanking, []string{"Rank", "mercaderia", "total_gs"}, len(v.Ranking.Bars), func(i int) []interface{} {
		return []interface{}{i + 1, v.Ranking.Bars[i].Label, v.Ranking.Bars[i].Value}
	})

	var leaves [][]interface{}
	for _, g := range v.Treemap.Groups {
		for _, it := range g.Items {
			leaves = append(leaves, []interface{}{g.Port, it.Label, it.Value})
		}
	}
	w.table(sheetPorts, []string{"aduana", "mercaderia", "total_gs"}, len(leaves), func(i int) []interface{} {
		return leaves[i]
	})

	w.table(sheetDetail, analysis.DetailColumns, len(v.Detail), func(i int) []interface{} {
		r := v.Detail[i]
		return []interface{}{r.Merchandise, r.NetKilos, r.ValueGs, r.FreightUSD, r.InsuranceUSD}
	})

	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// writer keeps the first error across the many cell writes of a workbook.
type writer struct {
	f      *excelize.File
	header int
	amount int
	err    error
}

func (w *writer) table(sheet string, headers []string, n int, row func(int) []interface{}) {
	if w.err != nil {
		return
	}
	idx, err := w.f.GetSheetIndex(sheet)
	if err != nil {
		w.err = err
		return
	}
	if idx < 0 {
		if _, err := w.f.NewSheet(sheet); err != nil {
			w.err = err
			return
		}
	}

	cells := make([]interface{}, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	w.setRow(sheet, 1, cells)
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	w.check(w.f.SetCellStyle(sheet, "A1", last, w.header))
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	w.check(w.f.SetColWidth(sheet, "A", lastCol, 20))

	for i := 0; i < n; i++ {
		w.setRow(sheet, i+2, row(i))
	}
	if n > 0 {
		from, _ := excelize.CoordinatesToCellName(2, 2)
		to, _ := excelize.CoordinatesToCellName(len(headers), n+1)
		w.check(w.f.SetCellStyle(sheet, from, to, w.amount))
	}
}

func (w *writer) filterSummary(f analysis.Filter, startRow int) {
	rows := [][]interface{}{
		{"Filtro", ""},
		{"Mercaderías", joinOrAll(f.Merchandise)},
		{"Puertos", joinOrAll(f.Ports)},
		{"Período", fmt.Sprintf("%d-%d", f.FromYear, f.ToYear)},
		{"Serie", f.Tab.Label()},
	}
	for i, r := range rows {
		w.setRow(sheetKPI, startRow+i, r)
	}
}

func (w *writer) setRow(sheet string, row int, values []interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		w.err = err
		return
	}
	w.check(w.f.SetSheetRow(sheet, cell, &values))
}

func (w *writer) check(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func joinOrAll(values []string) string {
	if len(values) == 0 {
		return "Todas"
	}
	return strings.Join(values, ", ")
}

// Write exports v into dir: the workbook, the markdown summary and one PNG
// per figure. It returns the paths written.
func Write(dir string, v analysis.View, scale float64) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	f, err := Workbook(v)
	if err != nil {
		return nil, fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	var written []string
	book := filepath.Join(dir, WorkbookName)
	if err := f.SaveAs(book); err != nil {
		return nil, fmt.Errorf("save workbook: %w", err)
	}
	written = append(written, book)

	summary := filepath.Join(dir, SummaryName)
	if err := os.WriteFile(summary, []byte(Summary(v)), 0o644); err != nil {
		return written, fmt.Errorf("write %s: %w", summary, err)
	}
	written = append(written, summary)

	for _, name := range []string{charts.FigureSeries, charts.FigureRanking, charts.FigureTreemap} {
		img, err := charts.Render(name, v, charts.PNG, scale)
		if err != nil {
			return written, fmt.Errorf("render %s: %w", name, err)
		}
		path := filepath.Join(dir, name+".png")
		if err := os.WriteFile(path, img, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
