// Package chart renders classified results as scatter charts of packing
// density against small-particle percentage, one series per ratio pair.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/packing.report/internal/results"
)

// ErrNoGroups is returned when there is nothing to plot.
var ErrNoGroups = errors.New("no result groups to plot")

const (
	Title      = "Packing Density"
	XAxisLabel = "Small Particles (%)"
	YAxisLabel = "Packing Density"
)

// palette is cycled by group index.
var palette = []color.RGBA{
	{R: 0xff, G: 0x80, B: 0x00, A: 0xff}, // orange
	{R: 0xff, G: 0x2d, B: 0x55, A: 0xff}, // pink
	{R: 0x80, G: 0x00, B: 0x80, A: 0xff}, // purple
	{R: 0x00, G: 0x7a, B: 0xff, A: 0xff}, // blue
	{R: 0xff, G: 0xcc, B: 0x00, A: 0xff}, // yellow
	{R: 0x00, G: 0xc0, B: 0x00, A: 0xff}, // green
}

// Color returns the series colour for the i-th group.
func Color(i int) color.RGBA {
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}

// Hex renders c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// points returns the group as (small %, density) pairs.
func points(g results.Group) plotter.XYs {
	pts := make(plotter.XYs, len(g.Results))
	for i, r := range g.Results {
		pts[i] = plotter.XY{X: r.SmallPercentage, Y: r.PackingDensity}
	}
	return pts
}

// NewPlot builds the gonum plot for groups.
func NewPlot(groups []results.Group) (*plot.Plot, error) {
	if len(groups) == 0 {
		return nil, ErrNoGroups
	}

	p := plot.New()
	p.Title.Text = Title
	p.X.Label.Text = XAxisLabel
	p.Y.Label.Text = YAxisLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, g := range groups {
		if len(g.Results) == 0 {
			continue
		}
		s, err := plotter.NewScatter(points(g))
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", g.Label, err)
		}
		s.GlyphStyle.Color = Color(i)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(4)
		p.Add(s)
		p.Legend.Add(g.Label, s)
	}
	return p, nil
}

// WritePNG renders groups as a PNG of the given size in inches.
func WritePNG(w io.Writer, groups []results.Group, width, height float64) error {
	p, err := NewPlot(groups)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// NewScatter builds the interactive echarts scatter for groups. An empty
// slice yields a chart with no series.
func NewScatter(groups []results.Group, subtitle string) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: Title, Theme: "dark", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: Title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithXAxisOpts(opts.XAxis{Name: XAxisLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: YAxisLabel, NameLocation: "middle", NameGap: 40}),
	)

	for i, g := range groups {
		data := make([]opts.ScatterData, 0, len(g.Results))
		for _, r := range g.Results {
			data = append(data, opts.ScatterData{
				Name:  r.Detail(),
				Value: []interface{}{r.SmallPercentage, r.PackingDensity},
			})
		}
		scatter.AddSeries(g.Label, data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: Hex(Color(i))}),
		)
	}
	return scatter
}

// WriteHTML renders groups as a standalone echarts page.
func WriteHTML(w io.Writer, groups []results.Group, subtitle string) error {
	if err := NewScatter(groups, subtitle).Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
