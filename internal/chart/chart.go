// Package chart renders benchmark series and run summaries as static images.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/benchgraph/internal/series"
	"github.com/leapstack-labs/benchgraph/internal/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// Image formats accepted by Save.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
	FormatPDF = "pdf"
)

// Defaults for Options.
const (
	DefaultFormat = FormatPNG
	DefaultWidth  = 8.0
	DefaultHeight = 6.0
	DefaultXLabel = "Build"
	DefaultYLabel = "Seconds"
)

// SummaryName is the base name of the aggregate summary image.
const SummaryName = "summary"

// ErrNoSeries is returned when a summary has nothing to draw.
var ErrNoSeries = errors.New("no series to chart")

var (
	thresholdColor = color.RGBA{R: 255, A: 255}
	passColor      = color.RGBA{R: 100, G: 200, B: 100, A: 255}
	failColor      = color.RGBA{R: 220, G: 53, B: 69, A: 255}
	referenceColor = color.Gray{Y: 128}
)

// Options control how charts are drawn.
type Options struct {
	Metrics []string
	Format  string
	// Width and Height are in inches.
	Width  float64
	Height float64
	XLabel string
	YLabel string
}

func (o Options) withDefaults() Options {
	if len(o.Metrics) == 0 {
		o.Metrics = series.DefaultMetrics
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.XLabel == "" {
		o.XLabel = DefaultXLabel
	}
	if o.YLabel == "" {
		o.YLabel = DefaultYLabel
	}
	return o
}

// FileName returns the image file name for a chart.
func (o Options) FileName(name string) string {
	return name + "." + o.withDefaults().Format
}

// RenderSeries draws one line per metric of t across its builds, plus the
// regression threshold from st, and saves the chart to path.
func RenderSeries(t *series.Table, st stats.Stats, opts Options, path string) error {
	opts = opts.withDefaults()
	if t.Len() == 0 {
		return fmt.Errorf("%s: %w", t.Name, series.ErrEmptySeries)
	}

	p := plot.New()
	p.Title.Text = t.Name
	p.Title.TextStyle.Font.Size = vg.Points(18)
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.Add(plotter.NewGrid())

	colors, err := lineColors(len(opts.Metrics))
	if err != nil {
		return err
	}

	for i, m := range opts.Metrics {
		values := t.Column(m)
		if values == nil {
			return fmt.Errorf("%s: %w: %s", t.Name, series.ErrMissingColumn, m)
		}
		pts := buildPoints(values)
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to plot %s of %s: %w", m, t.Name, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(2.5)
		p.Add(line)
		p.Legend.Add(m, line)
	}

	// no history, no threshold
	if st.Status != stats.StatusUnknown {
		last := float64(t.Len() - 1)
		th, err := plotter.NewLine(plotter.XYs{{X: 0, Y: st.Threshold}, {X: last, Y: st.Threshold}})
		if err != nil {
			return fmt.Errorf("failed to plot threshold of %s: %w", t.Name, err)
		}
		th.Color = thresholdColor
		th.Width = vg.Points(1)
		p.Add(th)
		p.Legend.Add("threshold", th)
	}

	p.Legend.Top = true
	p.X.Min = -0.5
	p.X.Max = float64(t.Len()) - 0.5
	p.X.Tick.Marker = tagTicks(t.Tags)
	rotateTickLabels(&p.X)

	return save(p, opts, path)
}

// RenderSummary draws the aggregate summary: each series' last value as a
// percentage of its threshold, coloured by status, against a 100 % line.
func RenderSummary(sum *stats.Summary, opts Options, path string) error {
	opts = opts.withDefaults()
	n := len(sum.Series)
	if n == 0 {
		return ErrNoSeries
	}

	p := plot.New()
	p.Title.Text = "Regression summary"
	p.Title.TextStyle.Font.Size = vg.Points(18)
	p.Y.Label.Text = "Last value (% of threshold)"

	pass := make(plotter.Values, n)
	fail := make(plotter.Values, n)
	names := make([]string, n)
	for i, s := range sum.Series {
		names[i] = s.Name
		if s.Status == stats.StatusFail {
			fail[i] = s.Ratio()
		} else {
			pass[i] = s.Ratio()
		}
	}

	width := vg.Length(opts.Width) * vg.Inch * 0.6 / vg.Length(n)
	if limit := vg.Points(40); width > limit {
		width = limit
	}

	passBars, err := plotter.NewBarChart(pass, width)
	if err != nil {
		return fmt.Errorf("failed to plot summary: %w", err)
	}
	passBars.Color = passColor
	passBars.LineStyle.Width = 0

	failBars, err := plotter.NewBarChart(fail, width)
	if err != nil {
		return fmt.Errorf("failed to plot summary: %w", err)
	}
	failBars.Color = failColor
	failBars.LineStyle.Width = 0

	ref, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: 100}, {X: float64(n) - 0.5, Y: 100}})
	if err != nil {
		return fmt.Errorf("failed to plot summary: %w", err)
	}
	ref.Color = referenceColor
	ref.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(plotter.NewGrid(), passBars, failBars, ref)
	p.Legend.Add(string(stats.StatusPass), passBars)
	p.Legend.Add(string(stats.StatusFail), failBars)
	p.Legend.Add("threshold", ref)
	p.Legend.Top = true

	p.NominalX(names...)
	p.Y.Min = 0
	rotateTickLabels(&p.X)

	return save(p, opts, path)
}

// buildPoints places values at their build positions, leaving out gaps.
func buildPoints(values []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i), Y: v})
	}
	return pts
}

// tagTicks labels every build position with its tag.
func tagTicks(tags []string) plot.ConstantTicks {
	ticks := make([]plot.Tick, len(tags))
	for i, tag := range tags {
		ticks[i] = plot.Tick{Value: float64(i), Label: tag}
	}
	return plot.ConstantTicks(ticks)
}

func rotateTickLabels(axis *plot.Axis) {
	axis.Tick.Label.Rotation = math.Pi / 6
	axis.Tick.Label.XAlign = text.XRight
	axis.Tick.Label.YAlign = text.YCenter
}

// lineColors picks n colours from a qualitative palette, cycling when the
// palette runs out.
func lineColors(n int) ([]color.Color, error) {
	size := min(max(n, 3), 12)
	palette, err := brewer.GetPalette(brewer.TypeQualitative, "Paired", size)
	if err != nil {
		return nil, fmt.Errorf("failed to load palette: %w", err)
	}
	colors := palette.Colors()
	out := make([]color.Color, n)
	for i := range out {
		out[i] = colors[i%len(colors)]
	}
	return out, nil
}

func save(p *plot.Plot, opts Options, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create chart directory: %w", err)
		}
	}
	if err := p.Save(vg.Length(opts.Width)*vg.Inch, vg.Length(opts.Height)*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save chart %s: %w", path, err)
	}
	return nil
}
