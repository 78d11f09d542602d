package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/benchgraph/internal/chart"
	"github.com/leapstack-labs/benchgraph/internal/cli/config"
	"github.com/leapstack-labs/benchgraph/internal/cli/output"
	"github.com/leapstack-labs/benchgraph/internal/engine"
	"github.com/leapstack-labs/benchgraph/internal/series"
	"github.com/leapstack-labs/benchgraph/internal/stats"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded config.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration, or the defaults when none was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg := config.Defaults()
	return &cfg
}

// newEngine builds an engine from the configuration.
func newEngine(cmdCtx *CommandContext, onTable func(index, total int, path string)) (*engine.Engine, error) {
	cfg := cmdCtx.Cfg
	return engine.New(engine.Config{
		OutputDir:       cfg.OutputDir,
		Metrics:         cfg.Metrics,
		ThresholdMetric: cfg.Threshold.Metric,
		Sigma:           cfg.Threshold.Sigma,
		Chart: chart.Options{
			Format: cfg.Chart.Format,
			Width:  cfg.Chart.Width,
			Height: cfg.Chart.Height,
			XLabel: cfg.Chart.XLabel,
			YLabel: cfg.Chart.YLabel,
		},
		ReportTitle: cfg.Report.Title,
		ReportFile:  cfg.Report.File,
		WriteJSON:   cfg.Report.WriteJSON,
		OnTable:     onTable,
		Logger:      cmdCtx.Logger,
	})
}

// resolveInputs expands args into series tables, or lists input_dir when args is empty.
func resolveInputs(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return series.Expand(args, cfg.Suffix)
	}
	if err := cfg.ValidateInputDir(); err != nil {
		return nil, err
	}
	files, err := series.Discover(cfg.InputDir, cfg.Suffix, series.Order(cfg.Order))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found in %s: %w", cfg.Suffix, cfg.InputDir, engine.ErrNoInputs)
	}
	return files, nil
}

// addThresholdFlags registers the regression detection flags.
func addThresholdFlags(flags *pflag.FlagSet) {
	flags.String("metric", "", "Column tested for regressions (min|max|med|avg)")
	flags.Float64("sigma", 0, "Standard deviations above the mean before a value regresses")
	flags.StringSlice("metrics", nil, "Columns to read and draw (default min,max,med,avg)")
	flags.String("order", "", "Order of tables found in input_dir (name|mtime)")
	flags.String("suffix", "", "Extension of series tables (default .csv)")
}

// addChartFlags registers the image and report flags.
func addChartFlags(flags *pflag.FlagSet) {
	flags.String("format", "", "Image format (png|svg|pdf)")
	flags.Float64("width", 0, "Image width in inches")
	flags.Float64("height", 0, "Image height in inches")
	flags.String("x-label", "", "X axis label")
	flags.String("y-label", "", "Y axis label")
	flags.String("title", "", "Report page title")
	flags.String("report-file", "", "Report file name inside the output directory")
	flags.Bool("json", false, "Also write summary.json next to the report")
}

// registerCompletions adds value completion for enumerated flags.
func registerCompletions(cmd *cobra.Command) {
	complete := func(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		}
	}
	metrics := []string{series.MetricMin, series.MetricMax, series.MetricMed, series.MetricAvg}
	if cmd.Flags().Lookup("metric") != nil {
		_ = cmd.RegisterFlagCompletionFunc("metric", complete(metrics...))
		_ = cmd.RegisterFlagCompletionFunc("metrics", complete(metrics...))
		_ = cmd.RegisterFlagCompletionFunc("order", complete(string(series.OrderName), string(series.OrderModTime)))
	}
	if cmd.Flags().Lookup("format") != nil {
		_ = cmd.RegisterFlagCompletionFunc("format", complete(chart.FormatPNG, chart.FormatSVG, chart.FormatPDF))
	}
}

// seriesInfos converts a summary for JSON and table output.
func seriesInfos(sum *stats.Summary) []output.SeriesInfo {
	infos := make([]output.SeriesInfo, len(sum.Series))
	for i, s := range sum.Series {
		infos[i] = output.SeriesInfo{
			Name:      s.Name,
			Status:    string(s.Status),
			Metric:    s.Metric,
			Points:    s.Points,
			Last:      s.Last,
			Threshold: s.Threshold,
			Percent:   s.Ratio(),
		}
	}
	return infos
}

func summaryCounts(sum *stats.Summary) output.Summary {
	return output.Summary{
		Total:   len(sum.Series),
		Pass:    sum.Pass,
		Fail:    sum.Fail,
		Unknown: sum.Unknown,
	}
}

// seriesDetail is the one-line description shown next to a series.
func seriesDetail(s stats.Stats) string {
	if s.Status == stats.StatusUnknown {
		return fmt.Sprintf("%d point(s), no history", s.Points)
	}
	return fmt.Sprintf("last %.4g, threshold %.4g (%.0f%%)", s.Last, s.Threshold, s.Ratio())
}
