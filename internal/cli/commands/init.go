package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/benchgraph/internal/cli/config"
	"github.com/leapstack-labs/benchgraph/internal/cli/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configHeader is written above the generated configuration.
const configHeader = `# benchgraph configuration
# Values can be overridden with BENCHGRAPH_ environment variables
# (BENCHGRAPH_THRESHOLD__SIGMA=3) or command-line flags (--sigma 3).
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a benchgraph configuration",
		Long: `Write a benchgraph.yaml with the default settings.

Use --example to also create a bench-hist-results/ directory with sample
series tables, so 'benchgraph report' can be tried straight away.`,
		Example: `  # Initialize in current directory
  benchgraph init

  # Initialize with sample data
  benchgraph init --example

  # Initialize in a new directory
  benchgraph init perf --example

  # Force overwrite existing config
  benchgraph init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			// Create renderer
			cfg := getConfig()
			mode := output.Mode(cfg.OutputFormat)
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

			return runInit(r, dir, force, example)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create sample series tables")

	return cmd
}

func runInit(r *output.Renderer, dir string, force, example bool) error {
	// Create directory if specified and doesn't exist
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if config already exists
	configPath := filepath.Join(dir, config.ConfigFileNames[0])
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileNames[0])
	}

	data, err := defaultConfigYAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	r.StatusLine(config.ConfigFileNames[0], "success", "")

	if example {
		if err := copyTemplate("example", dir, force); err != nil {
			return fmt.Errorf("failed to initialize example data: %w", err)
		}
		files, _ := listTemplateFiles("example")
		for _, f := range files {
			r.StatusLine(f, "success", "")
		}
	}

	r.Println("")
	r.Success("benchgraph initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Muted("  benchgraph collect   Build series tables from per-build results")
	r.Muted("  benchgraph report    Render charts and report.html")
	r.Muted("  benchgraph check     Print regression verdicts")

	return nil
}

// defaultConfigYAML renders the default configuration as YAML.
func defaultConfigYAML() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(config.Defaults()); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}
