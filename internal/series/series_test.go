package series

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("vertical format with trailing commas", func(t *testing.T) {
		input := "sha,tag,min,max,med,avg,\n" +
			"abc123,v1.0,1.0,3.0,2.0,2.1,\n" +
			"def456,v1.1,1.5,3.5,2.5,2.4,\n"

		table, err := Parse("bench_insert", strings.NewReader(input), nil)
		require.NoError(t, err)

		assert.Equal(t, "bench_insert", table.Name)
		assert.Equal(t, []string{"v1.0", "v1.1"}, table.Tags)
		assert.Equal(t, []float64{1.0, 1.5}, table.Column(MetricMin))
		assert.Equal(t, []float64{3.0, 3.5}, table.Column(MetricMax))
		assert.Equal(t, []float64{2.0, 2.5}, table.Column(MetricMed))
		assert.Equal(t, []float64{2.1, 2.4}, table.Column(MetricAvg))
		assert.Equal(t, 2, table.Len())
	})

	t.Run("mixed case headers and median alias", func(t *testing.T) {
		input := "Tag, MIN, Max, Median, Avg\nb1,1,2,3,4\n"

		table, err := Parse("x", strings.NewReader(input), nil)
		require.NoError(t, err)
		assert.Equal(t, []float64{3}, table.Column(MetricMed))
		assert.Equal(t, []float64{4}, table.Column(MetricAvg))
	})

	t.Run("subset of metrics", func(t *testing.T) {
		input := "tag,avg\nb1,0.5\nb2,0.7\n"

		table, err := Parse("x", strings.NewReader(input), []string{MetricAvg})
		require.NoError(t, err)
		assert.Equal(t, []float64{0.5, 0.7}, table.Column(MetricAvg))
		assert.Nil(t, table.Column(MetricMin))
	})

	t.Run("blank lines are skipped", func(t *testing.T) {
		input := "tag,min,max,med,avg\nb1,1,2,3,4\n,,,,\nb2,1,2,3,5\n"

		table, err := Parse("x", strings.NewReader(input), nil)
		require.NoError(t, err)
		assert.Equal(t, 2, table.Len())
	})
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantIs    error
		errSubstr string
	}{
		{
			name:   "empty input",
			input:  "",
			wantIs: ErrEmptySeries,
		},
		{
			name:   "header only",
			input:  "tag,min,max,med,avg\n",
			wantIs: ErrEmptySeries,
		},
		{
			name:      "missing tag column",
			input:     "sha,min,max,med,avg\na,1,2,3,4\n",
			wantIs:    ErrMissingColumn,
			errSubstr: "tag",
		},
		{
			name:      "missing metric column",
			input:     "tag,min,max,avg\na,1,2,4\n",
			wantIs:    ErrMissingColumn,
			errSubstr: "med",
		},
		{
			name:      "nan literal",
			input:     "tag,min,max,med,avg\na,1,2,3,4\nb,1,2,3,NaN\n",
			errSubstr: `line 3: avg: invalid number "NaN"`,
		},
		{
			name:      "inf literal",
			input:     "tag,min,max,med,avg\na,1,+Inf,3,4\n",
			errSubstr: `line 2: max: invalid number "+Inf"`,
		},
		{
			name:      "negative inf literal",
			input:     "tag,min,max,med,avg\na,-inf,2,3,4\n",
			errSubstr: `invalid number "-inf"`,
		},
		{
			name:      "non-numeric cell",
			input:     "tag,min,max,med,avg\na,1,2,3,fast\n",
			errSubstr: `invalid number "fast"`,
		},
		{
			name:      "short row",
			input:     "tag,min,max,med,avg\na,1,2\n",
			errSubstr: "row too short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("x", strings.NewReader(tt.input), nil)
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.errSubstr != "" {
				assert.Contains(t, err.Error(), tt.errSubstr)
			}
		})
	}
}

func TestParse_BlankCellIsGap(t *testing.T) {
	input := "sha,tag,min,max,med,avg\n" +
		"aaa,v1,1,,1.5,1.5\n" +
		"bbb,v2,1,3,2,2\n" +
		"\n" +
		"ccc,v3,1, ,2.5,2.5\n"

	table, err := Parse("bench", strings.NewReader(input), nil)
	require.NoError(t, err)

	require.Len(t, table.Column(MetricMax), 3)
	assert.True(t, math.IsNaN(table.Column(MetricMax)[0]))
	assert.Equal(t, 3.0, table.Column(MetricMax)[1])
	assert.True(t, math.IsNaN(table.Column(MetricMax)[2]))
	assert.Equal(t, []int{2, 3, 5}, table.Lines)

	line, ok := table.Gap(MetricMax)
	assert.True(t, ok)
	assert.Equal(t, 2, line)

	_, ok = table.Gap(MetricAvg)
	assert.False(t, ok)
}

func TestTable_Last(t *testing.T) {
	table := &Table{
		Tags:    []string{"a", "b"},
		Columns: map[string][]float64{MetricAvg: {1, 2}},
	}

	v, ok := table.Last(MetricAvg)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, ok = table.Last(MetricMin)
	assert.False(t, ok)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench_query.csv")
	require.NoError(t, os.WriteFile(path, []byte("tag,min,max,med,avg\nb1,1,2,3,4\n"), 0600))

	table, err := ReadFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "bench_query", table.Name)
	assert.Equal(t, path, table.Path)

	_, err = ReadFile(filepath.Join(dir, "missing.csv"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}

func TestReadFile_ErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("tag,min,max,med,avg\n"), 0600))

	_, err := ReadFile(path, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptySeries)
	assert.Contains(t, err.Error(), "empty.csv")
}

func TestNameFromPath(t *testing.T) {
	assert.Equal(t, "bench", NameFromPath("/tmp/out/bench.csv"))
	assert.Equal(t, "a.b", NameFromPath("a.b.csv"))
	assert.Equal(t, "noext", NameFromPath("noext"))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	names := []string{"c.csv", "a.csv", "b.csv", "notes.txt"}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0750))

	t.Run("by name", func(t *testing.T) {
		got, err := Discover(dir, DefaultSuffix, OrderName)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "a.csv"),
			filepath.Join(dir, "b.csv"),
			filepath.Join(dir, "c.csv"),
		}, got)
	})

	t.Run("by modification time", func(t *testing.T) {
		base := time.Now().Add(-time.Hour)
		order := []string{"c.csv", "a.csv", "b.csv"}
		for i, n := range order {
			ts := base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, os.Chtimes(filepath.Join(dir, n), ts, ts))
		}

		got, err := Discover(dir, DefaultSuffix, OrderModTime)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "c.csv"),
			filepath.Join(dir, "a.csv"),
			filepath.Join(dir, "b.csv"),
		}, got)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := Discover(dir, DefaultSuffix, Order("size"))
		require.Error(t, err)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := Discover(filepath.Join(dir, "nope"), DefaultSuffix, OrderName)
		require.Error(t, err)
	})
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("x"), 0600))
	single := filepath.Join(t.TempDir(), "single.csv")
	require.NoError(t, os.WriteFile(single, []byte("x"), 0600))

	got, err := Expand([]string{single, dir}, DefaultSuffix)
	require.NoError(t, err)
	assert.Equal(t, []string{
		single,
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "b.csv"),
	}, got)

	_, err = Expand([]string{filepath.Join(dir, "missing")}, DefaultSuffix)
	require.Error(t, err)
}
