package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/finlens/internal/dashboard"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to chart")

// Palette is the fixed series palette; indexes wrap around.
var Palette = []string{
	"#853174", "#ffa000", "#9451bb", "#2E3718", "#ff7043",
	"#ffab00", "#ff1744", "#a1887f", "#ff3d00", "#ff6d00",
}

// Color returns the palette color for index i.
func Color(i int) drawing.Color {
	if i < 0 {
		i = -i
	}
	return drawing.ColorFromHex(strings.TrimPrefix(Palette[i%len(Palette)], "#"))
}

// BarItem is one bar.
type BarItem struct {
	Label      string
	Value      float64
	ColorIndex int
}

// Slice is one pie wedge.
type Slice struct {
	Label string
	Value float64
}

// Options sets chart title and size. Zero sizes pick defaults.
type Options struct {
	Title  string
	Width  int
	Height int
}

// Bar writes a PNG bar chart. Non-finite values are skipped and counted.
func Bar(w io.Writer, bars []BarItem, opts Options) (skipped int, err error) {
	values := make([]gochart.Value, 0, len(bars))
	lo, hi := 0.0, 0.0
	for _, b := range bars {
		if math.IsNaN(b.Value) || math.IsInf(b.Value, 0) {
			skipped++
			continue
		}
		lo, hi = math.Min(lo, b.Value), math.Max(hi, b.Value)
		c := Color(b.ColorIndex)
		values = append(values, gochart.Value{
			Label: b.Label,
			Value: b.Value,
			Style: gochart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1},
		})
	}
	if len(values) == 0 {
		return skipped, ErrNoData
	}
	if hi == lo {
		hi = lo + 1
	}
	width := opts.Width
	if width <= 0 {
		width = max(640, 40*len(values)+120)
	}
	height := opts.Height
	if height <= 0 {
		height = 480
	}
	bc := gochart.BarChart{
		Title:      opts.Title,
		Width:      width,
		Height:     height,
		BarWidth:   24,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      gochart.Style{TextRotationDegrees: 90},
		YAxis:      gochart.YAxis{Range: &gochart.ContinuousRange{Min: lo, Max: hi}},
		Bars:       values,
	}
	if err := bc.Render(gochart.PNG, w); err != nil {
		return skipped, fmt.Errorf("render bar chart: %w", err)
	}
	return skipped, nil
}

// Pie writes a PNG pie chart. Only positive finite slices are drawn.
func Pie(w io.Writer, slices []Slice, opts Options) error {
	values := make([]gochart.Value, 0, len(slices))
	for i, s := range slices {
		if s.Value <= 0 || math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			continue
		}
		c := Color(i)
		values = append(values, gochart.Value{
			Label: s.Label,
			Value: s.Value,
			Style: gochart.Style{FillColor: c, StrokeColor: drawing.ColorWhite, StrokeWidth: 1},
		})
	}
	if len(values) == 0 {
		return ErrNoData
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 512
	}
	if height <= 0 {
		height = 512
	}
	pc := gochart.PieChart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		Values: values,
	}
	if err := pc.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}

// RenderBarSeries draws a dashboard bar series.
func RenderBarSeries(w io.Writer, s dashboard.BarSeries) (int, error) {
	items := make([]BarItem, len(s.Bars))
	for i, b := range s.Bars {
		items[i] = BarItem{Label: b.Label, Value: float64(b.Value), ColorIndex: b.ColorIndex}
	}
	return Bar(w, items, Options{Title: s.Title})
}

// RenderPie draws a dashboard pie.
func RenderPie(w io.Writer, p dashboard.Pie) error {
	items := make([]Slice, len(p.Slices))
	for i, g := range p.Slices {
		items[i] = Slice{Label: g.Key, Value: float64(g.Sum)}
	}
	return Pie(w, items, Options{Title: p.Title})
}
