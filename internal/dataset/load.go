package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

// Paths locates the three source files. The loader is picked from the file
// extension: .parquet, .csv or .xlsx.
type Paths struct {
	Series  string
	Ranking string
	Ports   string
}

var (
	seriesColumns  = []string{"anio", "mes", "kilo_neto", "total_gs", "flete_usd", "seguro_usd"}
	rankingColumns = []string{"mercaderia", "kilo_neto", "total_gs", "flete_usd", "seguro_usd"}
	portColumns    = []string{"aduana", "mercaderia", "total_gs"}
)

// Load reads the three tables concurrently.
func Load(ctx context.Context, p Paths) (*Tables, error) {
	var t Tables
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := loadSeries(p.Series)
		if err != nil {
			return fmt.Errorf("load series %s: %w", p.Series, err)
		}
		t.Series = rows
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := loadRanking(p.Ranking)
		if err != nil {
			return fmt.Errorf("load ranking %s: %w", p.Ranking, err)
		}
		t.Ranking = rows
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := loadPorts(p.Ports)
		if err != nil {
			return fmt.Errorf("load ports %s: %w", p.Ports, err)
		}
		t.Ports = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &t, nil
}

type parquetMonthly struct {
	Year         int64   `parquet:"anio,optional"`
	Month        int64   `parquet:"mes,optional"`
	NetKilos     float64 `parquet:"kilo_neto,optional"`
	ValueGs      float64 `parquet:"total_gs,optional"`
	FreightUSD   float64 `parquet:"flete_usd,optional"`
	InsuranceUSD float64 `parquet:"seguro_usd,optional"`
}

type parquetRanking struct {
	Merchandise  string  `parquet:"mercaderia,optional"`
	NetKilos     float64 `parquet:"kilo_neto,optional"`
	ValueGs      float64 `parquet:"total_gs,optional"`
	FreightUSD   float64 `parquet:"flete_usd,optional"`
	InsuranceUSD float64 `parquet:"seguro_usd,optional"`
}

type parquetPort struct {
	Port         string  `parquet:"aduana,optional"`
	Merchandise  string  `parquet:"mercaderia,optional"`
	NetKilos     float64 `parquet:"kilo_neto,optional"`
	ValueGs      float64 `parquet:"total_gs,optional"`
	FreightUSD   float64 `parquet:"flete_usd,optional"`
	InsuranceUSD float64 `parquet:"seguro_usd,optional"`
}

func loadSeries(path string) ([]MonthlyRecord, error) {
	if isParquet(path) {
		rows, err := parquet.ReadFile[parquetMonthly](path)
		if err != nil {
			return nil, err
		}
		out := make([]MonthlyRecord, 0, len(rows))
		for _, r := range rows {
			if r.Year <= 0 || !validMonth(int(r.Month)) {
				continue
			}
			out = append(out, MonthlyRecord{
				Year:     int(r.Year),
				Month:    int(r.Month),
				Measures: Measures{r.NetKilos, r.ValueGs, r.FreightUSD, r.InsuranceUSD},
			})
		}
		return out, nil
	}

	tab, err := readTabular(path, seriesColumns)
	if err != nil {
		return nil, err
	}
	var out []MonthlyRecord
	for _, row := range tab.rows {
		year, err := tab.intValue(row, "anio")
		if err != nil {
			continue
		}
		month, err := tab.intValue(row, "mes")
		if err != nil || !validMonth(month) {
			continue
		}
		out = append(out, MonthlyRecord{Year: year, Month: month, Measures: tab.measures(row)})
	}
	return out, nil
}

func validMonth(m int) bool {
	return m >= 1 && m <= 12
}

func loadRanking(path string) ([]RankingRecord, error) {
	if isParquet(path) {
		rows, err := parquet.ReadFile[parquetRanking](path)
		if err != nil {
			return nil, err
		}
		out := make([]RankingRecord, 0, len(rows))
		for _, r := range rows {
			out = append(out, RankingRecord{
				Merchandise: strings.TrimSpace(r.Merchandise),
				Measures:    Measures{r.NetKilos, r.ValueGs, r.FreightUSD, r.InsuranceUSD},
			})
		}
		return out, nil
	}

	tab, err := readTabular(path, rankingColumns)
	if err != nil {
		return nil, err
	}
	out := make([]RankingRecord, 0, len(tab.rows))
	for _, row := range tab.rows {
		out = append(out, RankingRecord{
			Merchandise: tab.get(row, "mercaderia"),
			Measures:    tab.measures(row),
		})
	}
	return out, nil
}

func loadPorts(path string) ([]PortRecord, error) {
	if isParquet(path) {
		rows, err := parquet.ReadFile[parquetPort](path)
		if err != nil {
			return nil, err
		}
		out := make([]PortRecord, 0, len(rows))
		for _, r := range rows {
			out = append(out, PortRecord{
				Port:        strings.TrimSpace(r.Port),
				Merchandise: strings.TrimSpace(r.Merchandise),
				Measures:    Measures{r.NetKilos, r.ValueGs, r.FreightUSD, r.InsuranceUSD},
			})
		}
		return out, nil
	}

	tab, err := readTabular(path, portColumns)
	if err != nil {
		return nil, err
	}
	out := make([]PortRecord, 0, len(tab.rows))
	for _, row := range tab.rows {
		out = append(out, PortRecord{
			Port:        tab.get(row, "aduana"),
			Merchandise: tab.get(row, "mercaderia"),
			Measures:    tab.measures(row),
		})
	}
	return out, nil
}

func isParquet(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".parquet")
}

// tabular is a header-indexed view over string cells read from CSV or XLSX.
type tabular struct {
	index map[string]int
	rows  [][]string
}

func readTabular(path string, required []string) (*tabular, error) {
	var records [][]string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		reader := csv.NewReader(file)
		reader.FieldsPerRecord = -1
		records, err = reader.ReadAll()
		if err != nil {
			return nil, err
		}
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		records, err = f.GetRows(sheets[0])
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	tab := &tabular{index: make(map[string]int), rows: records[1:]}
	for i, h := range records[0] {
		h = strings.TrimPrefix(h, "\ufeff")
		tab.index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := tab.index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}
	return tab, nil
}

func (t *tabular) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// floatValue reads a numeric cell; blanks and unparsable cells count as zero.
func (t *tabular) floatValue(row []string, col string) float64 {
	v, err := strconv.ParseFloat(t.get(row, col), 64)
	if err != nil {
		return 0
	}
	return v
}

func (t *tabular) intValue(row []string, col string) (int, error) {
	v, err := strconv.ParseFloat(t.get(row, col), 64)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func (t *tabular) measures(row []string) Measures {
	return Measures{
		NetKilos:     t.floatValue(row, "kilo_neto"),
		ValueGs:      t.floatValue(row, "total_gs"),
		FreightUSD:   t.floatValue(row, "flete_usd"),
		InsuranceUSD: t.floatValue(row, "seguro_usd"),
	}
}
