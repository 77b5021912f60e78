package dashboard

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/finlens/internal/analysis"
	"github.com/KaramelBytes/finlens/internal/dataset"
)

// Markdown renders the dashboard as a plain-text report.
func (d *Dashboard) Markdown() string {
	var b strings.Builder
	b.WriteString("[" + strings.ToUpper(Title) + "]\n")
	b.WriteString(fmt.Sprintf("Snapshot: %s\n\n", d.SnapshotID))

	b.WriteString("[FILTROS APLICADOS]\n")
	b.WriteString(fmt.Sprintf("Industria: %s\n", d.Filters.Industry))
	b.WriteString(fmt.Sprintf("País: %s\n", d.Filters.Country))
	b.WriteString(fmt.Sprintf("Tamaño de Empresa: %s\n\n", d.Filters.CompanySize))

	writeRanking(&b, d.TopRevenue)
	writeRanking(&b, d.TopEquity)

	for _, s := range d.Bars {
		b.WriteString(fmt.Sprintf("[%s]\n", strings.ToUpper(s.Title)))
		if len(s.Bars) == 0 {
			b.WriteString("(sin datos)\n\n")
			continue
		}
		for _, bar := range s.Bars {
			b.WriteString(fmt.Sprintf("- %s (%s): %s\n", bar.Label, bar.Category, dataset.FormatNumber(float64(bar.Value), 2)))
		}
		b.WriteString("\n")
	}

	for _, p := range d.Pies {
		b.WriteString(fmt.Sprintf("[%s]\n", strings.ToUpper(p.Title)))
		if len(p.Slices) == 0 {
			b.WriteString("(sin datos)\n\n")
			continue
		}
		total := analysis.Total(p.Slices)
		for _, s := range p.Slices {
			b.WriteString(fmt.Sprintf("- %s: %s (%s)\n", s.Key, dataset.FormatNumber(float64(s.Sum), 2), percent(float64(s.Sum), total)))
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("Número de empresas mostradas: %d\n", d.Count))
	return b.String()
}

func writeRanking(b *strings.Builder, r Ranking) {
	b.WriteString(fmt.Sprintf("[%s]\n", strings.ToUpper(r.Title)))
	if len(r.Rows) == 0 {
		b.WriteString("(sin datos)\n\n")
		return
	}
	b.WriteString(fmt.Sprintf("| Company_ID | %s | Industry | Country |\n", r.Column))
	b.WriteString("|---|---:|---|---|\n")
	for _, row := range r.Rows {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", row.CompanyID, dataset.FormatNumber(float64(row.Value), 2), row.Industry, row.Country))
	}
	b.WriteString("\n")
}

func percent(v, total float64) string {
	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", v*100/total)
}
