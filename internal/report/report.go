// Package report assembles the static HTML summary page for a run.
//
// The page lists the aggregate summary first (image plus a table of every
// series and its verdict), then one section per series chart. Images are
// referenced by file name, so the page must live in the same directory as
// the charts.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/benchgraph/internal/stats"
)

// Defaults for the generated page.
const (
	DefaultTitle    = "Benchmark Performance Metrics"
	DefaultFileName = "report.html"
	JSONFileName    = "summary.json"
)

// Page is everything the report template needs.
type Page struct {
	Title        string
	GeneratedAt  time.Time
	Summary      *stats.Summary
	SummaryImage string
	Sections     []Section
}

// Section is one series chart on the page.
type Section struct {
	Image string
	Stats stats.Stats
}

// Render writes the page as HTML into a byte slice.
func Render(ctx context.Context, page Page) ([]byte, error) {
	if page.Title == "" {
		page.Title = DefaultTitle
	}
	var buf bytes.Buffer
	if err := Document(page).Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders page into dir/fileName and returns the written path.
func Write(ctx context.Context, dir, fileName string, page Page) (string, error) {
	if fileName == "" {
		fileName = DefaultFileName
	}
	html, err := Render(ctx, page)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, html, 0644); err != nil { //nolint:gosec // G306: report is meant to be shared
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriteJSON writes any data structure to a JSON file.
func WriteJSON(path string, data any) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is from trusted source
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
