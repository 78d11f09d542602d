package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// SeriesHeader is the header written by WriteSeries.
const SeriesHeader = "sha,tag,min,max,med,avg"

// WriteSeries writes a series table named name.csv into dir.
// Each value becomes one row whose min, max, med and avg are all that value,
// tagged v1, v2, ... in order.
func WriteSeries(t testing.TB, dir, name string, values ...float64) string {
	t.Helper()

	var sb strings.Builder
	sb.WriteString(SeriesHeader)
	sb.WriteString("\n")
	for i, v := range values {
		fmt.Fprintf(&sb, "sha%d,v%d,%g,%g,%g,%g\n", i+1, i+1, v, v, v, v)
	}
	return WriteFile(t, dir, name+".csv", sb.String())
}

// WriteFile writes content to dir/name, creating dir if needed.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
