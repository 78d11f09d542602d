// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/benchgraph/internal/cli/output"
)

// SeriesDir is the input directory created by SetupTestProject.
const SeriesDir = "series"

// SetupTestProject creates a temporary project with three series tables:
// bench_insert passes, bench_query regresses and bench_new has no history.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	seriesDir := filepath.Join(tmpDir, SeriesDir)
	if err := os.MkdirAll(seriesDir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", seriesDir, err)
	}

	tables := map[string]string{
		"bench_insert.csv": `sha,tag,min,max,med,avg
a1,v1.0,1.0,1.4,1.2,1.2
b2,v1.1,1.1,1.5,1.3,1.3
c3,v1.2,0.9,1.3,1.1,1.1
d4,v1.3,1.0,1.4,1.2,1.2
`,
		"bench_query.csv": `sha,tag,min,max,med,avg
a1,v1.0,2.0,2.2,2.1,2.1
b2,v1.1,2.0,2.2,2.1,2.1
c3,v1.2,2.0,2.2,2.1,2.1
d4,v1.3,4.0,4.4,4.2,4.2
`,
		"bench_new.csv": `sha,tag,min,max,med,avg
d4,v1.3,0.5,0.7,0.6,0.6
`,
	}
	for name, content := range tables {
		if err := os.WriteFile(filepath.Join(seriesDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	return tmpDir
}

// SetupRawResults creates per-build raw result files in a temporary directory.
func SetupRawResults(t *testing.T) string {
	t.Helper()

	rawDir := t.TempDir()
	builds := map[string]string{
		"1700000000_aaa111.csv": "name,min,max,median,avg,stddev\nbench_insert,1,2,1.5,1.5,0.1\nbench_query,2,3,2.5,2.5,0.1\n",
		"1700000100_bbb222.csv": "name,min,max,median,avg,stddev\nbench_insert,1,2,1.4,1.4,0.1\nbench_query,2,3,2.6,2.6,0.1\n",
		"1700000200_ccc333.csv": "name,min,max,median,avg,stddev\nbench_insert,1,2,1.6,1.6,0.1\nbench_query,4,6,5,5,0.1\n",
	}
	for name, content := range builds {
		if err := os.WriteFile(filepath.Join(rawDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return rawDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and basic structure.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	// Check for balanced code fences
	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	// Check that headers have content
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
