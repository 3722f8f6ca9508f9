// Package dataset holds the three pre-computed import tables the dashboard
// reads at startup: the monthly series, the merchandise ranking and the
// merchandise-by-port breakdown.
package dataset

import (
	"sort"
	"time"
)

// Measures are the four quantities every table carries.
type Measures struct {
	NetKilos     float64 `json:"kilo_neto"`
	ValueGs      float64 `json:"total_gs"`
	FreightUSD   float64 `json:"flete_usd"`
	InsuranceUSD float64 `json:"seguro_usd"`
}

func (m *Measures) Add(o Measures) {
	m.NetKilos += o.NetKilos
	m.ValueGs += o.ValueGs
	m.FreightUSD += o.FreightUSD
	m.InsuranceUSD += o.InsuranceUSD
}

type MonthlyRecord struct {
	Year  int `json:"anio"`
	Month int `json:"mes"`
	Measures
}

// Date is the first day of the record's month.
func (r MonthlyRecord) Date() time.Time {
	return time.Date(r.Year, time.Month(r.Month), 1, 0, 0, 0, 0, time.UTC)
}

type RankingRecord struct {
	Merchandise string `json:"mercaderia"`
	Measures
}

type PortRecord struct {
	Port        string `json:"aduana"`
	Merchandise string `json:"mercaderia"`
	Measures
}

// Tables is immutable once loaded.
type Tables struct {
	Series  []MonthlyRecord
	Ranking []RankingRecord
	Ports   []PortRecord
}

// MerchandiseNames returns the sorted distinct merchandise names of the ranking.
func (t *Tables) MerchandiseNames() []string {
	names := make([]string, 0, len(t.Ranking))
	for _, r := range t.Ranking {
		names = append(names, r.Merchandise)
	}
	return uniqueSorted(names)
}

// PortNames returns the sorted distinct customs ports of the breakdown.
func (t *Tables) PortNames() []string {
	names := make([]string, 0, len(t.Ports))
	for _, r := range t.Ports {
		names = append(names, r.Port)
	}
	return uniqueSorted(names)
}

// YearBounds reports the first and last year of the series, or zeros when
// the series is empty.
func (t *Tables) YearBounds() (int, int) {
	if len(t.Series) == 0 {
		return 0, 0
	}
	lo, hi := t.Series[0].Year, t.Series[0].Year
	for _, r := range t.Series[1:] {
		if r.Year < lo {
			lo = r.Year
		}
		if r.Year > hi {
			hi = r.Year
		}
	}
	return lo, hi
}

func (t *Tables) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, r := range t.Series {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	sort.Ints(years)
	return years
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
