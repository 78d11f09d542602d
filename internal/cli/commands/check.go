package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/benchgraph/internal/cli/output"
	"github.com/leapstack-labs/benchgraph/internal/stats"
	"github.com/spf13/cobra"
)

// ErrRegressions is returned by check --fail-on-regression when any series fails.
var ErrRegressions = errors.New("benchmark regressions detected")

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [files or directories...]",
		Short: "Check benchmark series for regressions without rendering",
		Long: `Compute the regression threshold of every series and print the verdicts.

No images or HTML are written. With --fail-on-regression the command exits
non-zero when any series exceeds its threshold, which makes it suitable as a
CI gate.`,
		Example: `  # Print verdicts for the configured input directory
  benchgraph check

  # Fail a CI job on regressions, with machine-readable output
  benchgraph check --fail-on-regression -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
	}

	addThresholdFlags(cmd.Flags())
	cmd.Flags().Bool("fail-on-regression", false, "Exit non-zero when any series regresses")
	registerCompletions(cmd)

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	files, err := resolveInputs(cmdCtx.Cfg, args)
	if err != nil {
		return err
	}

	eng, err := newEngine(cmdCtx, nil)
	if err != nil {
		return err
	}
	sum, err := eng.Check(cmd.Context(), files)
	if err != nil {
		return fmt.Errorf("failed to check series: %w", err)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(output.CheckOutput{
			Summary: summaryCounts(sum),
			Series:  seriesInfos(sum),
		}); err != nil {
			return err
		}
	default:
		printCheck(r, sum)
	}

	if cmdCtx.Cfg.Threshold.FailOnRegression && sum.HasRegressions() {
		return fmt.Errorf("%d series over threshold: %w", sum.Fail, ErrRegressions)
	}
	return nil
}

func printCheck(r *output.Renderer, sum *stats.Summary) {
	r.Header(1, fmt.Sprintf("Regression check (%d series)", len(sum.Series)))

	rows := make([][]string, 0, len(sum.Series))
	for _, s := range sum.Series {
		threshold, percent := "-", "-"
		if s.Status != stats.StatusUnknown {
			threshold = strconv.FormatFloat(s.Threshold, 'g', 6, 64)
			percent = fmt.Sprintf("%.0f%%", s.Ratio())
		}
		rows = append(rows, []string{
			s.Name,
			string(s.Status),
			strconv.Itoa(s.Points),
			strconv.FormatFloat(s.Last, 'g', 6, 64),
			threshold,
			percent,
		})
	}
	r.Table([]string{"Series", "Status", "Points", "Last", "Threshold", "% of threshold"}, rows)
	r.Println("")

	if sum.HasRegressions() {
		r.Error(regressionMessage(sum))
		return
	}
	r.Success(fmt.Sprintf("No regressions: %d passed, %d without history", sum.Pass, sum.Unknown))
}
