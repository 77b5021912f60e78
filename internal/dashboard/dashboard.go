package dashboard

import (
	"strings"
	"time"

	"github.com/KaramelBytes/finlens/internal/analysis"
	"github.com/KaramelBytes/finlens/internal/dataset"
)

const (
	Title = "Análisis de Indicadores Financieros"
	// TopN is the size of the ranking tables.
	TopN = 3
)

// FilterLabels summarises the applied filters for display.
type FilterLabels struct {
	Industry    string `json:"industry"`
	Country     string `json:"country"`
	CompanySize string `json:"size"`
}

// RankRow is one line of a ranking table.
type RankRow struct {
	CompanyID string         `json:"Company_ID"`
	Value     dataset.Number `json:"value"`
	Industry  string         `json:"Industry"`
	Country   string         `json:"Country"`
}

// Ranking is a titled top-N table over one column.
type Ranking struct {
	Title  string         `json:"title"`
	Column dataset.Column `json:"column"`
	Rows   []RankRow      `json:"rows"`
}

// Bar is one company in a bar series. Category is the company size and
// ColorIndex its position among sizes in first-seen order.
type Bar struct {
	Label      string         `json:"label"`
	Value      dataset.Number `json:"value"`
	Category   string         `json:"category"`
	ColorIndex int            `json:"color_index"`
}

// BarSeries holds every filtered company sorted descending by Column.
type BarSeries struct {
	Title  string         `json:"title"`
	Column dataset.Column `json:"column"`
	Bars   []Bar          `json:"bars"`
}

// Pie is a column summed by a dimension.
type Pie struct {
	Title   string              `json:"title"`
	Column  dataset.Column      `json:"column"`
	GroupBy dataset.Column      `json:"group_by"`
	Slices  []analysis.GroupSum `json:"slices"`
}

// Dashboard is the composed page for one filter selection.
type Dashboard struct {
	SnapshotID  string              `json:"snapshot_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Predicates  analysis.Predicates `json:"predicates"`
	Filters     FilterLabels        `json:"filters"`
	Count       int                 `json:"count"`
	TopRevenue  Ranking             `json:"top_revenue"`
	TopEquity   Ranking             `json:"top_equity"`
	Bars        []BarSeries         `json:"bars"`
	Pies        []Pie               `json:"pies"`
}

var barTitles = []struct {
	col   dataset.Column
	title string
}{
	{dataset.ColCurrentRatio, "Ratio de liquidez"},
	{dataset.ColDebtToEquity, "Ratio deuda a patrimonio"},
	{dataset.ColCoverageRatio, "Cobertura de Gastos Financieros"},
}

var pieTitles = []struct {
	col   dataset.Column
	title string
}{
	{dataset.ColEquityMillions, "Porcentaje de Equity por Industria"},
	{dataset.ColTotalRevenueMillions, "Porcentaje de Ingresos Totales por Industria"},
}

// Build filters ds and composes every dashboard section from the view.
func Build(ds *dataset.Dataset, p analysis.Predicates) (*Dashboard, error) {
	view := analysis.Filter(ds, p)
	d := &Dashboard{
		SnapshotID:  ds.ID(),
		GeneratedAt: time.Now().UTC(),
		Predicates:  p,
		Filters:     Labels(p),
		Count:       view.Len(),
	}
	var err error
	if d.TopRevenue, err = BuildRanking(view, dataset.ColTotalRevenueMillions, "Top 3 empresas por ingresos totales (Millones USD)", TopN); err != nil {
		return nil, err
	}
	if d.TopEquity, err = BuildRanking(view, dataset.ColEquityMillions, "Top 3 empresas por patrimonio (Millones USD)", TopN); err != nil {
		return nil, err
	}
	for _, b := range barTitles {
		s, err := BuildBars(view, b.col)
		if err != nil {
			return nil, err
		}
		s.Title = b.title
		d.Bars = append(d.Bars, s)
	}
	for _, pt := range pieTitles {
		pie, err := BuildPie(view, pt.col, dataset.ColIndustry)
		if err != nil {
			return nil, err
		}
		pie.Title = pt.title
		d.Pies = append(d.Pies, pie)
	}
	return d, nil
}

// Labels renders applied filters, using "Todas"/"Todos" for unconstrained dimensions.
func Labels(p analysis.Predicates) FilterLabels {
	label := func(vals []string, all string) string {
		if len(vals) == 0 {
			return all
		}
		return strings.Join(vals, ", ")
	}
	return FilterLabels{
		Industry:    label(p.Industry, "Todas"),
		Country:     label(p.Country, "Todos"),
		CompanySize: label(p.CompanySize, "Todos"),
	}
}

// BuildRanking returns the top n rows of view by col.
func BuildRanking(view *dataset.Dataset, col dataset.Column, title string, n int) (Ranking, error) {
	top, err := analysis.TopN(view, col, n)
	if err != nil {
		return Ranking{}, err
	}
	r := Ranking{Title: title, Column: col, Rows: make([]RankRow, 0, len(top))}
	for _, c := range top {
		v, _ := c.Value(col)
		r.Rows = append(r.Rows, RankRow{CompanyID: c.ID, Value: dataset.Number(v), Industry: c.Industry, Country: c.Country})
	}
	return r, nil
}

// BuildBars returns one bar per company in view, sorted descending by col.
func BuildBars(view *dataset.Dataset, col dataset.Column) (BarSeries, error) {
	sorted, err := analysis.SortDesc(view, col)
	if err != nil {
		return BarSeries{}, err
	}
	// colors follow first appearance in bar order
	colorOf := make(map[string]int)
	s := BarSeries{Title: string(col), Column: col, Bars: make([]Bar, 0, len(sorted))}
	for _, c := range sorted {
		idx, ok := colorOf[c.Size]
		if !ok {
			idx = len(colorOf)
			colorOf[c.Size] = idx
		}
		v, _ := c.Value(col)
		s.Bars = append(s.Bars, Bar{Label: c.ID, Value: dataset.Number(v), Category: c.Size, ColorIndex: idx})
	}
	return s, nil
}

// BuildPie sums col over view grouped by groupBy.
func BuildPie(view *dataset.Dataset, col, groupBy dataset.Column) (Pie, error) {
	groups, err := analysis.SumBy(view, groupBy, col)
	if err != nil {
		return Pie{}, err
	}
	return Pie{Title: string(col), Column: col, GroupBy: groupBy, Slices: groups}, nil
}
