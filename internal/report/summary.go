package report

import (
	"fmt"
	"strings"

	"github.com/cambra/puertos-china/internal/analysis"
)

// SummaryName is the markdown summary written next to the workbook.
const SummaryName = "resumen.md"

// Summary renders v as a markdown report: the KPIs, the active filter, the
// ranking and the value imported through each port.
func Summary(v analysis.View) string {
	var b strings.Builder

	b.WriteString("# Importaciones desde China por puerto\n\n")
	b.WriteString("## Indicadores\n\n")
	for _, k := range v.KPIs {
		fmt.Fprintf(&b, "- **%s**: %s\n", k.Label, k.Display)
	}

	b.WriteString("\n## Filtro\n\n")
	fmt.Fprintf(&b, "- **Mercaderías**: %s\n", joinOrAll(v.Filter.Merchandise))
	fmt.Fprintf(&b, "- **Puertos**: %s\n", joinOrAll(v.Filter.Ports))
	fmt.Fprintf(&b, "- **Período**: %d-%d\n", v.Filter.FromYear, v.Filter.ToYear)
	fmt.Fprintf(&b, "- **Serie**: %s\n", v.Filter.Tab.Label())

	fmt.Fprintf(&b, "\n## %s\n\n", v.Ranking.Title)
	if len(v.Ranking.Bars) == 0 {
		b.WriteString("Sin datos\n")
	} else {
		b.WriteString("| Rank | Mercadería | Valor (Gs) |\n")
		b.WriteString("|------|------------|------------|\n")
		for i, bar := range v.Ranking.Bars {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, escapeCell(bar.Label), analysis.FormatAmount(bar.Value))
		}
	}

	fmt.Fprintf(&b, "\n## %s\n\n", v.Treemap.Title)
	if v.Treemap.Empty() {
		b.WriteString("Sin datos\n")
		return b.String()
	}
	b.WriteString("| Puerto | Valor (Gs) | Mercaderías | Principal |\n")
	b.WriteString("|--------|------------|-------------|-----------|\n")
	for _, g := range v.Treemap.Groups {
		top := ""
		if len(g.Items) > 0 {
			top = g.Items[0].Label
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %s |\n",
			escapeCell(g.Port), analysis.FormatAmount(g.Value), len(g.Items), escapeCell(top))
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
