package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/benchgraph/internal/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string) // setup before running
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			args:      []string{},
			wantErr:   false,
			wantFiles: []string{"benchgraph.yaml"},
		},
		{
			name: "init existing config without force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "benchgraph.yaml"), []byte("existing"), 0600)
			},
			args:    []string{},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "benchgraph.yaml"), []byte("existing"), 0600)
			},
			args:      []string{"--force"},
			wantErr:   false,
			wantFiles: []string{"benchgraph.yaml"},
		},
		{
			name:    "init with example",
			args:    []string{"--example"},
			wantErr: false,
			wantFiles: []string{
				"benchgraph.yaml",
				".gitignore",
				"bench-hist-results/bench_insert.csv",
				"bench-hist-results/bench_query.csv",
				"bench-hist-results/bench_sort.csv",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create temp directory and change to it
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)

			// Run setup if provided
			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				assert.FileExists(t, filepath.Join(tmpDir, f))
			}
			assert.Contains(t, buf.String(), "benchgraph initialized!")
		})
	}
}

func TestInitCommand_TargetDirectory(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"perf"})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join("perf", "benchgraph.yaml"))
}

func TestInitCommand_ConfigLoads(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--example"})
	require.NoError(t, cmd.Execute())

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	defaults := config.Defaults()
	assert.Equal(t, filepath.Join(dir, defaults.InputDir), cfg.InputDir)
	assert.Equal(t, defaults.Metrics, cfg.Metrics)
	assert.Equal(t, defaults.Threshold, cfg.Threshold)
	assert.Equal(t, defaults.Chart, cfg.Chart)
	assert.Equal(t, defaults.Report, cfg.Report)

	// the example tables are in the configured input directory
	files, err := resolveInputs(cfg, nil)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestDefaultConfigYAML(t *testing.T) {
	data, err := defaultConfigYAML()
	require.NoError(t, err)

	assert.Contains(t, string(data), "# benchgraph configuration")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "bench-hist-results", decoded["input_dir"])
	assert.NotContains(t, decoded, "verbose")

	threshold, ok := decoded["threshold"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 2.0, threshold["sigma"], 1e-12)
}
