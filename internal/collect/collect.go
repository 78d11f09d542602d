// Package collect converts per-build raw benchmark files into series tables.
//
// Each raw file holds one build's results, one benchmark function per row.
// Collect pivots them so every function gets its own table with one row per
// build, which is the input the report pipeline expects.
package collect

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// ErrBadFileName is returned for raw files not named timestamp_sha.csv.
var ErrBadFileName = errors.New("expected raw file name of the form timestamp_sha.csv")

// minRowCells is the shortest row treated as a result; shorter rows end the file.
const minRowCells = 5

// OutputHeader is the header of every written series table.
var OutputHeader = []string{"sha", "tag", "min", "max", "med", "avg"}

// rawColumns maps output columns to the header names accepted in raw files.
var rawColumns = []struct {
	name    string
	aliases []string
}{
	{"min", []string{"min"}},
	{"max", []string{"max"}},
	{"med", []string{"median", "med"}},
	{"avg", []string{"avg", "average"}},
}

// Build identifies one raw result file.
type Build struct {
	Timestamp string
	SHA       string
}

// ParseBuildName extracts the build timestamp and sha from a raw file path.
func ParseBuildName(path string) (Build, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(base, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Build{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrBadFileName)
	}
	return Build{Timestamp: parts[0], SHA: parts[1]}, nil
}

// Row is one function's result for one build.
type Row struct {
	SHA      string
	Tag      string
	Min      string
	Max      string
	Med      string
	Avg      string
	function string
}

func (r Row) record() []string {
	return []string{r.SHA, r.Tag, r.Min, r.Max, r.Med, r.Avg}
}

// Collector reads raw build files and writes series tables.
type Collector struct {
	// Structured logger
	logger *slog.Logger

	outputDir string
	resolver  TagResolver
}

// Config holds collector configuration.
type Config struct {
	// OutputDir receives one table per benchmark function
	OutputDir string
	// Resolver turns build shas into tags (optional, keeps the sha if nil)
	Resolver TagResolver
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Result describes a collect run.
type Result struct {
	Builds  int
	Rows    int
	Skipped []string
	Tables  []string
}

// New creates a collector.
func New(cfg Config) (*Collector, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = ResolverFunc(func(_ context.Context, sha string) string { return sha })
	}
	return &Collector{
		logger:    logger,
		outputDir: cfg.OutputDir,
		resolver:  resolver,
	}, nil
}

// Collect reads files in order and rewrites one table per function.
func (c *Collector) Collect(ctx context.Context, files []string) (*Result, error) {
	res := &Result{}
	byFunction := make(map[string][]Row)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		build, err := ParseBuildName(path)
		if err != nil {
			return nil, err
		}
		tag := c.resolver.Resolve(ctx, build.SHA)
		c.logger.Debug("reading build", "file", path, "sha", build.SHA, "tag", tag)

		rows, err := readBuild(path, build, tag)
		if errors.Is(err, io.EOF) {
			c.logger.Warn("skipping empty file", "file", path)
			res.Skipped = append(res.Skipped, path)
			continue
		}
		if err != nil {
			return nil, err
		}

		res.Builds++
		res.Rows += len(rows)
		for _, r := range rows {
			byFunction[r.function] = append(byFunction[r.function], r)
		}
	}

	functions := make([]string, 0, len(byFunction))
	for fn := range byFunction {
		functions = append(functions, fn)
	}
	sort.Strings(functions)

	if len(functions) > 0 {
		if err := os.MkdirAll(c.outputDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	for _, fn := range functions {
		path := filepath.Join(c.outputDir, TableFileName(fn))
		if err := writeTable(path, byFunction[fn]); err != nil {
			return nil, err
		}
		res.Tables = append(res.Tables, path)
	}

	c.logger.Info("collect completed",
		"builds", res.Builds,
		"rows", res.Rows,
		"tables", len(res.Tables),
		"skipped", len(res.Skipped))

	return res, nil
}

// TableFileName returns the series table file name for a benchmark function.
func TableFileName(function string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", string(os.PathSeparator), "_").Replace(function)
	return name + ".csv"
}

// readBuild returns io.EOF for a file without a header.
func readBuild(path string, build Build, tag string) ([]Row, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the raw directory listing
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%s: failed to read header: %w", path, err)
	}
	idx := columnIndex(header)

	var rows []Row
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(record) < minRowCells {
			break
		}
		rows = append(rows, Row{
			SHA:      build.SHA,
			Tag:      tag,
			Min:      field(record, idx["min"]),
			Max:      field(record, idx["max"]),
			Med:      field(record, idx["med"]),
			Avg:      field(record, idx["avg"]),
			function: strings.TrimSpace(record[0]),
		})
	}
	return rows, nil
}

// columnIndex maps output column names to raw header positions, -1 when absent.
func columnIndex(header []string) map[string]int {
	fold := cases.Fold()
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := fold.String(strings.TrimSpace(h))
		if _, ok := positions[key]; !ok {
			positions[key] = i
		}
	}

	idx := make(map[string]int, len(rawColumns))
	for _, col := range rawColumns {
		idx[col.name] = -1
		for _, alias := range col.aliases {
			if pos, ok := positions[alias]; ok {
				idx[col.name] = pos
				break
			}
		}
	}
	return idx
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func writeTable(path string, rows []Row) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is built from the output directory
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(OutputHeader); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for _, r := range rows {
		if err := w.Write(r.record()); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
