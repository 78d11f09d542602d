package commands

import (
	"fmt"

	"github.com/leapstack-labs/benchgraph/internal/cli/output"
	"github.com/leapstack-labs/benchgraph/internal/engine"
	"github.com/leapstack-labs/benchgraph/internal/stats"
	"github.com/spf13/cobra"
)

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [files or directories...]",
		Short: "Render charts and the HTML report for benchmark series",
		Long: `Render one chart per benchmark series, an aggregate summary chart and
report.html into the output directory.

Each series is a CSV table with a tag column and min, max, med and avg
columns, one row per build. The last row is compared against a threshold of
mean + sigma standard deviations of the earlier rows; a value above the
threshold is reported as a regression.

Without arguments every table in input_dir is used.`,
		Example: `  # Report on every table in the configured input directory
  benchgraph report

  # Report on selected tables as SVG
  benchgraph report results/bench_insert.csv results/bench_query.csv --format svg

  # Tighter threshold, written to a site directory
  benchgraph report --sigma 1.5 --output-dir site`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args)
		},
	}

	addThresholdFlags(cmd.Flags())
	addChartFlags(cmd.Flags())
	registerCompletions(cmd)

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)

	files, err := resolveInputs(cmdCtx.Cfg, args)
	if err != nil {
		return err
	}

	res, err := generateReport(cmd, cmdCtx, files)
	if err != nil {
		return err
	}

	if cmdCtx.Renderer.EffectiveMode() == output.ModeJSON {
		return cmdCtx.Renderer.JSON(reportOutput(res))
	}
	printReport(cmdCtx.Renderer, res)
	return nil
}

// generateReport runs the engine over files, reporting progress on stderr.
func generateReport(cmd *cobra.Command, cmdCtx *CommandContext, files []string) (*engine.Result, error) {
	r := cmdCtx.Renderer
	eng, err := newEngine(cmdCtx, func(index, total int, path string) {
		r.Progress("generating graph %d/%d (%s)", index, total, path)
	})
	if err != nil {
		return nil, err
	}

	res, err := eng.Generate(cmd.Context(), files)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}
	return res, nil
}

func reportOutput(res *engine.Result) *output.ReportOutput {
	return &output.ReportOutput{
		Report:       res.ReportPath,
		SummaryImage: res.SummaryImage,
		Images:       res.Images,
		JSON:         res.JSONPath,
		Summary:      summaryCounts(res.Summary),
		Series:       seriesInfos(res.Summary),
	}
}

func printReport(r *output.Renderer, res *engine.Result) {
	sum := res.Summary

	r.Header(1, fmt.Sprintf("Benchmark report (%d series)", len(sum.Series)))
	for _, s := range sum.Series {
		r.StatusLine(s.Name, string(s.Status), seriesDetail(s))
	}
	r.Println("")
	r.KeyValue("Report", res.ReportPath)
	r.KeyValue("Summary image", res.SummaryImage)
	if res.JSONPath != "" {
		r.KeyValue("Summary JSON", res.JSONPath)
	}
	r.Println("")

	if sum.HasRegressions() {
		r.Error(regressionMessage(sum))
		return
	}
	r.Success(fmt.Sprintf("%d passed, %d without history", sum.Pass, sum.Unknown))
}

func regressionMessage(sum *stats.Summary) string {
	failures := sum.Failures()
	worst := failures[0]
	return fmt.Sprintf("%d of %d series regressed (worst: %s at %.0f%% of threshold)",
		len(failures), len(sum.Series), worst.Name, worst.Ratio())
}
