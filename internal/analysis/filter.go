package analysis

import (
	"github.com/cambra/puertos-china/internal/dataset"
)

// Tab selects the measure plotted by the time series.
type Tab string

const (
	TabNetKilos  Tab = "kilo"
	TabValue     Tab = "valor"
	TabFreight   Tab = "flete"
	TabInsurance Tab = "seguro"
)

var tabLabels = map[Tab]string{
	TabNetKilos:  "Volumen (Kg Neto)",
	TabValue:     "Valor (Gs)",
	TabFreight:   "Flete (USD)",
	TabInsurance: "Seguro (USD)",
}

// Tabs lists the tabs in display order.
func Tabs() []Tab {
	return []Tab{TabNetKilos, TabValue, TabFreight, TabInsurance}
}

// Normalize maps an empty tab to the default and any unknown tab to
// insurance, the fallback branch of the measure switch.
func (t Tab) Normalize() Tab {
	switch t {
	case "":
		return TabNetKilos
	case TabNetKilos, TabValue, TabFreight, TabInsurance:
		return t
	default:
		return TabInsurance
	}
}

func (t Tab) Label() string {
	return tabLabels[t.Normalize()]
}

func (t Tab) Title() string {
	return "Evolución de " + t.Label()
}

// Column is the source column plotted for the tab.
func (t Tab) Column() string {
	switch t.Normalize() {
	case TabNetKilos:
		return "kilo_neto"
	case TabValue:
		return "total_gs"
	case TabFreight:
		return "flete_usd"
	default:
		return "seguro_usd"
	}
}

func (t Tab) Measure(m dataset.Measures) float64 {
	switch t.Normalize() {
	case TabNetKilos:
		return m.NetKilos
	case TabValue:
		return m.ValueGs
	case TabFreight:
		return m.FreightUSD
	default:
		return m.InsuranceUSD
	}
}

// Filter is the state of the dashboard controls. Empty selections mean
// "everything"; zero years mean the dataset bound.
type Filter struct {
	Merchandise []string `json:"mercaderia"`
	Ports       []string `json:"puerto"`
	FromYear    int      `json:"desde"`
	ToYear      int      `json:"hasta"`
	Tab         Tab      `json:"tab"`
}

type stringSet map[string]struct{}

func newStringSet(values []string) stringSet {
	if len(values) == 0 {
		return nil
	}
	s := make(stringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// allows reports membership; a nil set allows everything.
func (s stringSet) allows(v string) bool {
	if s == nil {
		return true
	}
	_, ok := s[v]
	return ok
}
