// Package series reads benchmark result tables.
//
// A table is a flat CSV file with one row per build. It carries a tag column
// (the build label shown on the x axis) and one numeric column per metric.
// Tables are named after their file, so bench_insert.csv becomes the series
// "bench_insert".
package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Metric column names.
const (
	MetricMin = "min"
	MetricMax = "max"
	MetricMed = "med"
	MetricAvg = "avg"
)

// TagColumn is the header of the build label column.
const TagColumn = "tag"

// DefaultMetrics is the metric set plotted for every table.
var DefaultMetrics = []string{MetricMin, MetricMax, MetricMed, MetricAvg}

// headerAliases maps alternative header spellings to metric names.
var headerAliases = map[string]string{
	"median":  MetricMed,
	"average": MetricAvg,
}

var (
	// ErrEmptySeries is returned for a table without data rows.
	ErrEmptySeries = errors.New("series has no data rows")
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing column")
	// ErrMissingValue is returned when a value needed for analysis is blank.
	ErrMissingValue = errors.New("empty value")
)

// Table is one series: a sequence of builds with their metric values.
// A blank cell is kept as a gap and stored as NaN.
type Table struct {
	Name    string
	Path    string
	Tags    []string
	Columns map[string][]float64
	// Lines holds the source line of each build, for error messages.
	Lines []int
}

// Len returns the number of builds in the table.
func (t *Table) Len() int {
	return len(t.Tags)
}

// Column returns the values for a metric, or nil if the table lacks it.
func (t *Table) Column(metric string) []float64 {
	return t.Columns[metric]
}

// Last returns the most recent value of a metric.
func (t *Table) Last(metric string) (float64, bool) {
	col := t.Columns[metric]
	if len(col) == 0 {
		return 0, false
	}
	return col[len(col)-1], true
}

// Gap returns the source line of the first blank value of a metric.
func (t *Table) Gap(metric string) (int, bool) {
	for i, v := range t.Columns[metric] {
		if math.IsNaN(v) {
			return t.lineOf(i), true
		}
	}
	return 0, false
}

func (t *Table) lineOf(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// NameFromPath derives a series name from a file path.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReadFile parses the table stored at path.
func ReadFile(path string, metrics []string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is supplied by the caller
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	t, err := Parse(NameFromPath(path), f, metrics)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Path = path
	return t, nil
}

// Parse reads a table from r. Only the tag column and the requested metrics
// are kept; other columns (sha, notes) are ignored.
func Parse(name string, r io.Reader, metrics []string) (*Table, error) {
	if len(metrics) == 0 {
		metrics = DefaultMetrics
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptySeries
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := headerIndex(header)

	tagIdx, ok := index[TagColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, TagColumn)
	}
	metricIdx := make(map[string]int, len(metrics))
	for _, m := range metrics {
		idx, ok := index[m]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, m)
		}
		metricIdx[m] = idx
	}

	t := &Table{
		Name:    name,
		Columns: make(map[string][]float64, len(metrics)),
	}

	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line++

		if isBlank(record) {
			continue
		}

		tag, err := cell(record, tagIdx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, TagColumn, err)
		}
		t.Tags = append(t.Tags, tag)
		t.Lines = append(t.Lines, line)

		for _, m := range metrics {
			v, err := value(record, metricIdx[m])
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, m, err)
			}
			t.Columns[m] = append(t.Columns[m], v)
		}
	}

	if t.Len() == 0 {
		return nil, ErrEmptySeries
	}
	return t, nil
}

// headerIndex maps normalised header names to column positions. Empty
// header cells, left behind by writers that end each line with a comma, are
// skipped. The first occurrence of a name wins.
func headerIndex(header []string) map[string]int {
	fold := cases.Fold()
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := fold.String(strings.TrimSpace(h))
		if key == "" {
			continue
		}
		if alias, ok := headerAliases[key]; ok {
			key = alias
		}
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	return index
}

func cell(record []string, idx int) (string, error) {
	if idx >= len(record) {
		return "", errors.New("row too short")
	}
	v := strings.TrimSpace(record[idx])
	if v == "" {
		return "", ErrMissingValue
	}
	return v, nil
}

// value parses a metric cell. A blank cell is a gap (NaN); NaN and infinite
// literals are rejected so a gap is never confused with data.
func value(record []string, idx int) (float64, error) {
	raw, err := cell(record, idx)
	if errors.Is(err, ErrMissingValue) {
		return math.NaN(), nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
