package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/benchgraph/internal/cli/config"
	"github.com/leapstack-labs/benchgraph/internal/cli/output"
	"github.com/leapstack-labs/benchgraph/internal/cli/testutil"
	"github.com/leapstack-labs/benchgraph/internal/engine"
	"github.com/leapstack-labs/benchgraph/internal/stats"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs cmd under a minimal root that loads config the way the CLI does.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	root := &cobra.Command{
		Use:           "benchgraph",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			_, err := config.LoadConfig("", c.Flags())
			return err
		},
	}
	root.PersistentFlags().String("input-dir", "", "")
	root.PersistentFlags().String("output-dir", "", "")
	root.PersistentFlags().StringP("output", "o", "", "")
	root.AddCommand(cmd)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(append([]string{cmd.Name()}, args...))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewReportCommand(), "report [files or directories...]", []string{"sigma", "metric", "metrics", "format", "width", "title", "json"}},
		{NewCheckCommand(), "check [files or directories...]", []string{"sigma", "metric", "fail-on-regression"}},
		{NewCollectCommand(), "collect [raw-dir]", []string{"html", "raw-dir", "repo-dir", "describe", "format"}},
		{NewInitCommand(), "init [directory]", []string{"force", "example"}},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestReportCommand(t *testing.T) {
	project := testutil.SetupTestProject(t)
	t.Chdir(project)
	outDir := filepath.Join(project, "site")

	stdout, stderr, err := execute(t, NewReportCommand(),
		"--input-dir", testutil.SeriesDir, "--output-dir", outDir, "--json")
	require.NoError(t, err)

	for _, name := range []string{"bench_insert.png", "bench_query.png", "bench_new.png", "summary.png", "report.html", "summary.json"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}

	testutil.AssertNoANSI(t, stdout)
	testutil.AssertValidMarkdown(t, stdout)
	assert.Contains(t, stdout, "# Benchmark report (3 series)")
	assert.Contains(t, stdout, "bench_query")
	assert.Contains(t, stdout, filepath.Join(outDir, "report.html"))

	assert.Contains(t, stderr, "generating graph 1/3")
	assert.Contains(t, stderr, "1 of 3 series regressed (worst: bench_query")
}

func TestReportCommand_JSON(t *testing.T) {
	project := testutil.SetupTestProject(t)
	t.Chdir(project)
	seriesDir := filepath.Join(project, testutil.SeriesDir)

	stdout, _, err := execute(t, NewReportCommand(),
		filepath.Join(seriesDir, "bench_insert.csv"), filepath.Join(seriesDir, "bench_query.csv"),
		"--output-dir", "out", "--format", "svg", "-o", "json")
	require.NoError(t, err)

	var got output.ReportOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, 2, got.Summary.Total)
	assert.Equal(t, 1, got.Summary.Fail)
	assert.Len(t, got.Images, 2)
	assert.True(t, strings.HasSuffix(got.SummaryImage, "summary.svg"))
	assert.Empty(t, got.JSON)
	require.Len(t, got.Series, 2)
	assert.Equal(t, "bench_insert", got.Series[0].Name)
	assert.Equal(t, "pass", got.Series[0].Status)
}

func TestReportCommand_MissingInputDir(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := execute(t, NewReportCommand(), "--input-dir", "nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input directory does not exist")
}

func TestReportCommand_EmptyInputDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, _, err := execute(t, NewReportCommand(), "--input-dir", dir)
	assert.ErrorIs(t, err, engine.ErrNoInputs)
}

func TestCheckCommand(t *testing.T) {
	project := testutil.SetupTestProject(t)
	t.Chdir(project)

	t.Run("reports without failing", func(t *testing.T) {
		stdout, _, err := execute(t, NewCheckCommand(), "--input-dir", testutil.SeriesDir)
		require.NoError(t, err)

		assert.Contains(t, stdout, "# Regression check (3 series)")
		assert.Contains(t, stdout, "| bench_query | fail |")
		assert.Contains(t, stdout, "| bench_new | unknown | 1 |")
		assert.NoFileExists(t, filepath.Join(project, testutil.SeriesDir, "report.html"))
	})

	t.Run("fail on regression", func(t *testing.T) {
		_, _, err := execute(t, NewCheckCommand(), "--input-dir", testutil.SeriesDir, "--fail-on-regression")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRegressions)
		assert.Contains(t, err.Error(), "1 series over threshold")
	})

	t.Run("passing series with fail on regression", func(t *testing.T) {
		_, _, err := execute(t, NewCheckCommand(),
			filepath.Join(testutil.SeriesDir, "bench_insert.csv"), "--fail-on-regression", "--sigma", "1")
		require.NoError(t, err)
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute(t, NewCheckCommand(), "--input-dir", testutil.SeriesDir, "-o", "json")
		require.NoError(t, err)

		var got output.CheckOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		assert.Equal(t, output.Summary{Total: 3, Pass: 1, Fail: 1, Unknown: 1}, got.Summary)
	})
}

func TestCollectCommand(t *testing.T) {
	rawDir := testutil.SetupRawResults(t)
	project := t.TempDir()
	t.Chdir(project)

	stdout, _, err := execute(t, NewCollectCommand(), rawDir,
		"--input-dir", "series", "--output-dir", "site", "--describe=false", "--html")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(project, "series", "bench_query.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"sha,tag,min,max,med,avg\n"+
			"aaa111,aaa111,2,3,2.5,2.5\n"+
			"bbb222,bbb222,2,3,2.6,2.6\n"+
			"ccc333,ccc333,4,6,5,5\n",
		string(data))

	assert.FileExists(t, filepath.Join(project, "site", "report.html"))
	assert.FileExists(t, filepath.Join(project, "site", "bench_insert.png"))
	assert.Contains(t, stdout, "# Collected 3 builds")
	assert.Contains(t, stdout, "# Benchmark report (2 series)")
}

func TestCollectCommand_MissingRawColumn(t *testing.T) {
	rawDir := t.TempDir()
	for name, content := range map[string]string{
		"1700000000_aaa.csv": "name,min,median,avg,stddev\nbench_insert,1,1,1,0.1\n",
		"1700000100_bbb.csv": "name,min,median,avg,stddev\nbench_insert,1,1.1,1.1,0.1\n",
		"1700000200_ccc.csv": "name,min,median,avg,stddev\nbench_insert,1,1.05,1.05,0.1\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(rawDir, name), []byte(content), 0600))
	}
	project := t.TempDir()
	t.Chdir(project)

	_, _, err := execute(t, NewCollectCommand(), rawDir,
		"--input-dir", "series", "--output-dir", "site", "--describe=false", "--html")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(project, "series", "bench_insert.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "aaa,aaa,1,,1,1\n")

	assert.FileExists(t, filepath.Join(project, "site", "bench_insert.png"))
	assert.FileExists(t, filepath.Join(project, "site", "report.html"))
}

func TestCollectCommand_JSON(t *testing.T) {
	rawDir := testutil.SetupRawResults(t)
	t.Chdir(t.TempDir())

	stdout, _, err := execute(t, NewCollectCommand(), "--raw-dir", rawDir, "--describe=false", "-o", "json")
	require.NoError(t, err)

	var got output.CollectOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, rawDir, got.RawDir)
	assert.Equal(t, 3, got.Builds)
	assert.Equal(t, 6, got.Rows)
	assert.Len(t, got.Tables, 2)
	assert.Nil(t, got.Report)
}

func TestRawDirectory(t *testing.T) {
	dir, err := rawDirectory("configured", []string{"arg"})
	require.NoError(t, err)
	assert.Equal(t, "arg", dir)

	dir, err = rawDirectory("configured", nil)
	require.NoError(t, err)
	assert.Equal(t, "configured", dir)

	t.Setenv("HOME", "/home/bench")
	dir, err = rawDirectory("", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dir, filepath.Join("/home/bench", ".benchgraph", "benchmarks")))
}

func TestPrintCheck_Text(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeText, true)
	sum := stats.Summarize([]stats.Stats{
		{Name: "bench_insert", Status: stats.StatusPass, Points: 4, Last: 1, Threshold: 2},
	})

	printCheck(tr.Renderer, sum)

	assert.Contains(t, tr.Output(), "Regression check (1 series)")
	assert.Contains(t, tr.Output(), "bench_insert")
	assert.Contains(t, tr.Output(), "50%")
	assert.Contains(t, tr.Output(), "No regressions")
	assert.Empty(t, tr.ErrorOutput())
}

func TestPrintCheck_RegressionIsAnError(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeMarkdown, false)
	sum := stats.Summarize([]stats.Stats{
		{Name: "bench_query", Status: stats.StatusFail, Points: 4, Last: 3, Threshold: 2},
	})

	printCheck(tr.Renderer, sum)

	assert.NotContains(t, tr.Output(), "No regressions")
	assert.Contains(t, tr.ErrorOutput(), output.IconError+" 1 of 1 series regressed (worst: bench_query at 150% of threshold)")
}

func TestSeriesDetail(t *testing.T) {
	assert.Equal(t, "1 point(s), no history", seriesDetail(stats.Stats{Status: stats.StatusUnknown, Points: 1}))
	assert.Equal(t, "last 3, threshold 2 (150%)",
		seriesDetail(stats.Stats{Status: stats.StatusFail, Last: 3, Threshold: 2}))
}
