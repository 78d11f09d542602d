// Package engine runs the report pipeline.
// It reads series tables, computes their thresholds, renders one chart per
// table plus the summary chart, and writes the HTML report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/leapstack-labs/benchgraph/internal/chart"
	"github.com/leapstack-labs/benchgraph/internal/report"
	"github.com/leapstack-labs/benchgraph/internal/series"
	"github.com/leapstack-labs/benchgraph/internal/stats"
)

var (
	// ErrNoInputs is returned when a run is given no tables.
	ErrNoInputs = errors.New("no input tables")
	// ErrReservedName is returned for a table whose chart would overwrite the summary image.
	ErrReservedName = errors.New("series name \"" + chart.SummaryName + "\" is reserved for the summary chart")
)

// Engine turns series tables into charts and a report.
type Engine struct {
	// Structured logger
	logger *slog.Logger

	outputDir       string
	metrics         []string
	thresholdMetric string
	sigma           float64
	chartOpts       chart.Options
	reportTitle     string
	reportFile      string
	writeJSON       bool
	onTable         func(index, total int, path string)
	now             func() time.Time
}

// Config holds engine configuration.
type Config struct {
	// OutputDir receives the charts and the report
	OutputDir string
	// Metrics are the columns drawn on each series chart
	Metrics []string
	// ThresholdMetric is the column tested for regressions (default avg)
	ThresholdMetric string
	// Sigma is the number of standard deviations in the threshold
	Sigma float64
	// Chart controls image format, size and labels
	Chart chart.Options
	// ReportTitle is the HTML page title
	ReportTitle string
	// ReportFile is the HTML file name inside OutputDir
	ReportFile string
	// WriteJSON also writes summary.json next to the report
	WriteJSON bool
	// OnTable is called before each table is processed (optional)
	OnTable func(index, total int, path string)
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Result describes the files produced by a run.
type Result struct {
	Summary      *stats.Summary
	Images       []string
	SummaryImage string
	ReportPath   string
	JSONPath     string
}

// New creates an engine from cfg, filling in defaults.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}

	metrics := cfg.Metrics
	if len(metrics) == 0 {
		metrics = series.DefaultMetrics
	}
	thresholdMetric := cfg.ThresholdMetric
	if thresholdMetric == "" {
		thresholdMetric = series.MetricAvg
	}
	sigma := cfg.Sigma
	if sigma == 0 {
		sigma = stats.DefaultSigma
	}
	if sigma < 0 {
		return nil, fmt.Errorf("sigma must be positive, got %g", sigma)
	}

	chartOpts := cfg.Chart
	chartOpts.Metrics = metrics

	logger.Debug("initializing engine",
		"output_dir", cfg.OutputDir,
		"metrics", metrics,
		"threshold_metric", thresholdMetric,
		"sigma", sigma)

	return &Engine{
		logger:          logger,
		outputDir:       cfg.OutputDir,
		metrics:         metrics,
		thresholdMetric: thresholdMetric,
		sigma:           sigma,
		chartOpts:       chartOpts,
		reportTitle:     cfg.ReportTitle,
		reportFile:      cfg.ReportFile,
		writeJSON:       cfg.WriteJSON,
		onTable:         cfg.OnTable,
		now:             time.Now,
	}, nil
}

// columns returns the metrics to read from each table.
func (e *Engine) columns() []string {
	if slices.Contains(e.metrics, e.thresholdMetric) {
		return e.metrics
	}
	return append(slices.Clone(e.metrics), e.thresholdMetric)
}

// Load reads and analyzes every table in order.
func (e *Engine) Load(ctx context.Context, files []string) ([]*series.Table, []stats.Stats, error) {
	if len(files) == 0 {
		return nil, nil, ErrNoInputs
	}

	tables := make([]*series.Table, 0, len(files))
	all := make([]stats.Stats, 0, len(files))
	seen := make(map[string]string, len(files))
	cols := e.columns()

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if e.onTable != nil {
			e.onTable(i+1, len(files), path)
		}

		t, err := series.ReadFile(path, cols)
		if err != nil {
			return nil, nil, err
		}
		if t.Name == chart.SummaryName {
			return nil, nil, fmt.Errorf("%w: %s", ErrReservedName, path)
		}
		if prev, dup := seen[t.Name]; dup {
			return nil, nil, fmt.Errorf("duplicate series name %q: %s and %s", t.Name, prev, path)
		}
		seen[t.Name] = path

		st, err := stats.Analyze(t, e.thresholdMetric, e.sigma)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		e.logger.Debug("analyzed series",
			"series", st.Name,
			"points", st.Points,
			"last", st.Last,
			"threshold", st.Threshold,
			"status", st.Status)

		tables = append(tables, t)
		all = append(all, st)
	}

	return tables, all, nil
}

// Check computes the summary without rendering anything.
func (e *Engine) Check(ctx context.Context, files []string) (*stats.Summary, error) {
	_, all, err := e.Load(ctx, files)
	if err != nil {
		return nil, err
	}
	return stats.Summarize(all), nil
}

// Generate runs the full pipeline over files.
func (e *Engine) Generate(ctx context.Context, files []string) (*Result, error) {
	e.logger.Info("starting report", "tables", len(files), "output_dir", e.outputDir)

	tables, all, err := e.Load(ctx, files)
	if err != nil {
		return nil, err
	}

	res := &Result{Summary: stats.Summarize(all)}
	sections := make([]report.Section, 0, len(tables))

	for i, t := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.chartOpts.FileName(t.Name)
		path := filepath.Join(e.outputDir, name)
		e.logger.Info("generating graph",
			"index", i+1,
			"total", len(tables),
			"file", t.Path,
			"image", path)

		if err := chart.RenderSeries(t, all[i], e.chartOpts, path); err != nil {
			return nil, err
		}
		res.Images = append(res.Images, path)
		sections = append(sections, report.Section{Image: name, Stats: all[i]})
	}

	summaryName := e.chartOpts.FileName(chart.SummaryName)
	res.SummaryImage = filepath.Join(e.outputDir, summaryName)
	if err := chart.RenderSummary(res.Summary, e.chartOpts, res.SummaryImage); err != nil {
		return nil, err
	}

	page := report.Page{
		Title:        e.reportTitle,
		GeneratedAt:  e.now(),
		Summary:      res.Summary,
		SummaryImage: summaryName,
		Sections:     sections,
	}
	res.ReportPath, err = report.Write(ctx, e.outputDir, e.reportFile, page)
	if err != nil {
		return nil, err
	}

	if e.writeJSON {
		res.JSONPath = filepath.Join(e.outputDir, report.JSONFileName)
		if err := report.WriteJSON(res.JSONPath, res.Summary); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", res.JSONPath, err)
		}
	}

	e.logger.Info("report completed",
		"report", res.ReportPath,
		"pass", res.Summary.Pass,
		"fail", res.Summary.Fail,
		"unknown", res.Summary.Unknown)

	return res, nil
}
