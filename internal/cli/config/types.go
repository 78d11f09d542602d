// Package config provides configuration management for the benchgraph CLI.
//
// Values are layered from built-in defaults, an optional benchgraph.yaml,
// BENCHGRAPH_ environment variables and explicitly set command-line flags,
// in increasing order of precedence.
package config

// Config holds all CLI configuration options.
type Config struct {
	InputDir     string          `koanf:"input_dir" yaml:"input_dir" validate:"required"`
	OutputDir    string          `koanf:"output_dir" yaml:"output_dir" validate:"required"`
	Suffix       string          `koanf:"suffix" yaml:"suffix" validate:"required"`
	Order        string          `koanf:"order" yaml:"order" validate:"oneof=name mtime"`
	Metrics      []string        `koanf:"metrics" yaml:"metrics" validate:"min=1,dive,oneof=min max med avg"`
	Verbose      bool            `koanf:"verbose" yaml:"-"`
	LogLevel     string          `koanf:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	OutputFormat string          `koanf:"output" yaml:"output" validate:"oneof=auto text markdown json"`
	Threshold    ThresholdConfig `koanf:"threshold" yaml:"threshold"`
	Chart        ChartConfig     `koanf:"chart" yaml:"chart"`
	Report       ReportConfig    `koanf:"report" yaml:"report"`
	Collect      CollectConfig   `koanf:"collect" yaml:"collect"`
}

// ThresholdConfig controls regression detection.
type ThresholdConfig struct {
	Metric           string  `koanf:"metric" yaml:"metric" validate:"oneof=min max med avg"`
	Sigma            float64 `koanf:"sigma" yaml:"sigma" validate:"gt=0"`
	FailOnRegression bool    `koanf:"fail_on_regression" yaml:"fail_on_regression"`
}

// ChartConfig controls image rendering. Sizes are in inches.
type ChartConfig struct {
	Format string  `koanf:"format" yaml:"format" validate:"oneof=png svg pdf"`
	Width  float64 `koanf:"width" yaml:"width" validate:"gt=0"`
	Height float64 `koanf:"height" yaml:"height" validate:"gt=0"`
	XLabel string  `koanf:"x_label" yaml:"x_label"`
	YLabel string  `koanf:"y_label" yaml:"y_label"`
}

// ReportConfig controls the HTML page.
type ReportConfig struct {
	Title     string `koanf:"title" yaml:"title"`
	File      string `koanf:"file" yaml:"file" validate:"required,excludesall=/\\"`
	WriteJSON bool   `koanf:"write_json" yaml:"write_json"`
}

// CollectConfig controls conversion of raw per-build files.
type CollectConfig struct {
	// RawDir defaults to ~/.benchgraph/benchmarks/<machine-id> when empty
	RawDir   string `koanf:"raw_dir" yaml:"raw_dir,omitempty"`
	RepoDir  string `koanf:"repo_dir" yaml:"repo_dir,omitempty"`
	Describe bool   `koanf:"describe" yaml:"describe"`
}

// Default configuration values.
const (
	DefaultInputDir  = "bench-hist-results"
	DefaultOutputDir = "bench-hist-results"
	DefaultSuffix    = ".csv"
	DefaultOrder     = "name"
	DefaultLogLevel  = "warn"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultMetric    = "avg"
	DefaultSigma     = 2.0
	DefaultFormat    = "png"
	DefaultWidth     = 8.0
	DefaultHeight    = 6.0
	DefaultXLabel    = "Build"
	DefaultYLabel    = "Seconds"
	DefaultTitle     = "Benchmark Performance Metrics"
	DefaultReport    = "report.html"
)

// DefaultMetrics are the columns drawn on each chart.
var DefaultMetrics = []string{"min", "max", "med", "avg"}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		InputDir:     DefaultInputDir,
		OutputDir:    DefaultOutputDir,
		Suffix:       DefaultSuffix,
		Order:        DefaultOrder,
		Metrics:      append([]string(nil), DefaultMetrics...),
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
		Threshold: ThresholdConfig{
			Metric: DefaultMetric,
			Sigma:  DefaultSigma,
		},
		Chart: ChartConfig{
			Format: DefaultFormat,
			Width:  DefaultWidth,
			Height: DefaultHeight,
			XLabel: DefaultXLabel,
			YLabel: DefaultYLabel,
		},
		Report: ReportConfig{
			Title: DefaultTitle,
			File:  DefaultReport,
		},
		Collect: CollectConfig{
			Describe: true,
		},
	}
}
