package chart

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/benchgraph/internal/series"
	"github.com/leapstack-labs/benchgraph/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func sampleTable() *series.Table {
	return &series.Table{
		Name: "bench_insert",
		Tags: []string{"v1.0", "v1.1", "v1.2-3-gabc"},
		Columns: map[string][]float64{
			series.MetricMin: {1.0, 1.1, 1.2},
			series.MetricMax: {2.0, 2.1, 2.9},
			series.MetricMed: {1.5, 1.6, 2.0},
			series.MetricAvg: {1.5, 1.55, 2.1},
		},
	}
}

func TestRenderSeries_PNG(t *testing.T) {
	table := sampleTable()
	st, err := stats.Analyze(table, series.MetricAvg, stats.DefaultSigma)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "bench_insert.png")
	require.NoError(t, RenderSeries(table, st, Options{}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic), "expected a PNG file")
}

func TestRenderSeries_SVGContainsLabels(t *testing.T) {
	table := sampleTable()
	st, err := stats.Analyze(table, series.MetricAvg, stats.DefaultSigma)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bench_insert.svg")
	opts := Options{Format: FormatSVG, YLabel: "Milliseconds"}
	require.NoError(t, RenderSeries(table, st, opts, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	svg := string(data)
	for _, want := range []string{"bench_insert", "Build", "Milliseconds", "v1.2-3-gabc", "threshold", "avg"} {
		assert.Contains(t, svg, want)
	}
}

func TestRenderSeries_SinglePointHasNoThreshold(t *testing.T) {
	table := &series.Table{
		Name:    "fresh",
		Tags:    []string{"v1"},
		Columns: map[string][]float64{series.MetricAvg: {1}},
	}
	st, err := stats.Analyze(table, series.MetricAvg, stats.DefaultSigma)
	require.NoError(t, err)
	require.Equal(t, stats.StatusUnknown, st.Status)

	path := filepath.Join(t.TempDir(), "fresh.svg")
	opts := Options{Format: FormatSVG, Metrics: []string{series.MetricAvg}}
	require.NoError(t, RenderSeries(table, st, opts, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "threshold")
}

func TestRenderSeries_SkipsGaps(t *testing.T) {
	table := sampleTable()
	table.Columns[series.MetricMax] = []float64{math.NaN(), 2.1, math.NaN()}
	table.Columns[series.MetricMin] = []float64{math.NaN(), math.NaN(), math.NaN()}
	st, err := stats.Analyze(table, series.MetricAvg, stats.DefaultSigma)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bench_insert.png")
	require.NoError(t, RenderSeries(table, st, Options{}, path))
	assert.FileExists(t, path)
}

func TestBuildPoints(t *testing.T) {
	pts := buildPoints([]float64{1, math.NaN(), 3})
	require.Len(t, pts, 2)
	assert.Equal(t, 0.0, pts[0].X)
	assert.Equal(t, 2.0, pts[1].X)
	assert.Equal(t, 3.0, pts[1].Y)

	assert.Empty(t, buildPoints([]float64{math.NaN()}))
}

func TestRenderSeries_MissingMetric(t *testing.T) {
	table := &series.Table{
		Name:    "partial",
		Tags:    []string{"a", "b"},
		Columns: map[string][]float64{series.MetricAvg: {1, 2}},
	}

	err := RenderSeries(table, stats.Stats{Status: stats.StatusUnknown}, Options{}, filepath.Join(t.TempDir(), "p.png"))
	require.Error(t, err)
	assert.ErrorIs(t, err, series.ErrMissingColumn)
}

func TestRenderSummary(t *testing.T) {
	sum := stats.Summarize([]stats.Stats{
		{Name: "fast", Status: stats.StatusPass, Last: 1, Threshold: 2},
		{Name: "slow", Status: stats.StatusFail, Last: 3, Threshold: 2},
		{Name: "new", Status: stats.StatusUnknown, Last: 1},
	})

	path := filepath.Join(t.TempDir(), "summary.svg")
	require.NoError(t, RenderSummary(sum, Options{Format: FormatSVG}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	svg := string(data)
	for _, want := range []string{"Regression summary", "fast", "slow", "new", "pass", "fail"} {
		assert.Contains(t, svg, want)
	}
}

func TestRenderSummary_Empty(t *testing.T) {
	err := RenderSummary(stats.Summarize(nil), Options{}, filepath.Join(t.TempDir(), "s.png"))
	assert.ErrorIs(t, err, ErrNoSeries)
}

func TestOptions_FileName(t *testing.T) {
	assert.Equal(t, "bench.png", Options{}.FileName("bench"))
	assert.Equal(t, "summary.svg", Options{Format: FormatSVG}.FileName(SummaryName))
}

func TestLineColors(t *testing.T) {
	for _, n := range []int{1, 4, 12, 15} {
		colors, err := lineColors(n)
		require.NoError(t, err)
		assert.Len(t, colors, n)
	}
}
