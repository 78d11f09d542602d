package commands

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/benchgraph/internal/cli/output"
	"github.com/leapstack-labs/benchgraph/internal/collect"
	"github.com/leapstack-labs/benchgraph/internal/series"
	"github.com/spf13/cobra"
)

// NewCollectCommand creates the collect command.
func NewCollectCommand() *cobra.Command {
	var html bool

	cmd := &cobra.Command{
		Use:   "collect [raw-dir]",
		Short: "Build per-benchmark series tables from per-build result files",
		Long: `Read per-build result files named <timestamp>_<sha>.csv and write one
series table per benchmark function into input_dir.

Raw files are processed in name order, so the timestamp prefix orders the
builds. Each build's sha is turned into a tag with git describe (run in
--repo-dir) unless --describe=false is given. Existing series tables are
rewritten on every run.

The raw directory defaults to ~/.benchgraph/benchmarks/<machine-id>.`,
		Example: `  # Collect from the default raw directory
  benchgraph collect

  # Collect and immediately render the report
  benchgraph collect ./raw --html

  # Resolve tags from a specific checkout
  benchgraph collect ./raw --repo-dir ~/src/project`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd, args, html)
		},
	}

	cmd.Flags().BoolVar(&html, "html", false, "Also render the report from the collected tables")
	cmd.Flags().String("raw-dir", "", "Directory of per-build result files")
	cmd.Flags().String("repo-dir", "", "Repository used to describe build shas")
	cmd.Flags().Bool("describe", true, "Resolve build tags with git describe")
	addThresholdFlags(cmd.Flags())
	addChartFlags(cmd.Flags())
	registerCompletions(cmd)

	return cmd
}

func runCollect(cmd *cobra.Command, args []string, html bool) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	rawDir, err := rawDirectory(cfg.Collect.RawDir, args)
	if err != nil {
		return err
	}

	rawFiles, err := series.Discover(rawDir, cfg.Suffix, series.OrderName)
	if err != nil {
		return err
	}
	cmdCtx.Logger.Info("collecting raw results", "raw_dir", rawDir, "files", len(rawFiles))

	var resolver collect.TagResolver
	if cfg.Collect.Describe {
		resolver = &collect.GitDescriber{Dir: cfg.Collect.RepoDir, Logger: cmdCtx.Logger}
	}
	c, err := collect.New(collect.Config{
		OutputDir: cfg.InputDir,
		Resolver:  resolver,
		Logger:    cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	res, err := c.Collect(cmd.Context(), rawFiles)
	if err != nil {
		return fmt.Errorf("failed to collect %s: %w", rawDir, err)
	}
	for _, skipped := range res.Skipped {
		r.Warning("skipping empty file: " + skipped)
	}

	out := &output.CollectOutput{
		RawDir:  rawDir,
		Builds:  res.Builds,
		Rows:    res.Rows,
		Tables:  res.Tables,
		Skipped: res.Skipped,
	}

	if html && len(res.Tables) > 0 {
		files, err := series.Discover(cfg.InputDir, cfg.Suffix, series.Order(cfg.Order))
		if err != nil {
			return err
		}
		report, err := generateReport(cmd, cmdCtx, files)
		if err != nil {
			return err
		}
		out.Report = reportOutput(report)
		if r.EffectiveMode() != output.ModeJSON {
			printCollect(r, out)
			printReport(r, report)
			return nil
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	printCollect(r, out)
	return nil
}

// rawDirectory picks the argument, then the configured directory, then the per-machine default.
func rawDirectory(configured string, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if configured != "" {
		return configured, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return collect.DefaultRawDir(home), nil
}

func printCollect(r *output.Renderer, out *output.CollectOutput) {
	r.Header(1, fmt.Sprintf("Collected %d builds", out.Builds))
	for _, table := range out.Tables {
		r.StatusLine(table, "success", "")
	}
	r.Println("")
	r.KeyValue("Raw directory", out.RawDir)
	r.KeyValue("Rows", fmt.Sprintf("%d", out.Rows))
	r.Println("")
	if len(out.Tables) == 0 {
		r.Warning("No benchmark rows found in " + out.RawDir)
		return
	}
	r.Success(fmt.Sprintf("Wrote %d series tables", len(out.Tables)))
	r.Println("")
}
