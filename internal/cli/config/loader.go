package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
// This key is shared with root.go via both using the same type.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// EnvPrefix is the prefix of environment variables read into the config.
// A double underscore separates nested keys: BENCHGRAPH_THRESHOLD__SIGMA.
const EnvPrefix = "BENCHGRAPH_"

// ConfigFileNames are searched, in order, when no --config is given.
var ConfigFileNames = []string{"benchgraph.yaml", "benchgraph.yml"}

// flagKeys bridges short flag names to nested config keys.
var flagKeys = map[string]string{
	"metric":             "threshold.metric",
	"sigma":              "threshold.sigma",
	"fail_on_regression": "threshold.fail_on_regression",
	"format":             "chart.format",
	"width":              "chart.width",
	"height":             "chart.height",
	"x_label":            "chart.x_label",
	"y_label":            "chart.y_label",
	"title":              "report.title",
	"report_file":        "report.file",
	"json":               "report.write_json",
	"raw_dir":            "collect.raw_dir",
	"repo_dir":           "collect.repo_dir",
	"describe":           "collect.describe",
}

// ignoredFlags are command-line only and never stored in the config.
var ignoredFlags = map[string]bool{
	"config": true,
	"help":   true,
	"html":   true,
}

// pathKeys hold paths resolved against the config file's directory.
var pathKeys = []string{"input_dir", "output_dir", "collect.raw_dir", "collect.repo_dir"}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// configIn returns the config file inside dir, if any.
func configIn(dir string) string {
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigFile finds the config file to use.
// Priority: explicit path > benchgraph.yaml/.yml in CWD or the nearest parent.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// defaultValues flattens Defaults into koanf keys.
func defaultValues() map[string]interface{} {
	d := Defaults()
	return map[string]interface{}{
		"input_dir":                    d.InputDir,
		"output_dir":                   d.OutputDir,
		"suffix":                       d.Suffix,
		"order":                        d.Order,
		"metrics":                      d.Metrics,
		"verbose":                      false,
		"log_level":                    d.LogLevel,
		"output":                       d.OutputFormat,
		"threshold.metric":             d.Threshold.Metric,
		"threshold.sigma":              d.Threshold.Sigma,
		"threshold.fail_on_regression": false,
		"chart.format":                 d.Chart.Format,
		"chart.width":                  d.Chart.Width,
		"chart.height":                 d.Chart.Height,
		"chart.x_label":                d.Chart.XLabel,
		"chart.y_label":                d.Chart.YLabel,
		"report.title":                 d.Report.Title,
		"report.file":                  d.Report.File,
		"report.write_json":            false,
		"collect.raw_dir":              "",
		"collect.repo_dir":             "",
		"collect.describe":             d.Collect.Describe,
	}
}

// envKey transforms BENCHGRAPH_THRESHOLD__SIGMA -> threshold.sigma.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// flagKey transforms a flag name to its config key, or "" to skip it.
func flagKey(name string) string {
	if ignoredFlags[name] {
		return ""
	}
	// Transform kebab-case to snake_case for config keys
	key := strings.ReplaceAll(name, "-", "_")
	if mapped, ok := flagKeys[key]; ok {
		return mapped
	}
	return key
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaultValues(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// Paths from the file are relative to the file; flags and env are relative to CWD.
	if configFileUsed != "" {
		base := filepath.Dir(configFileUsed)
		for _, key := range pathKeys {
			if p := k.String(key); p != "" && !filepath.IsAbs(p) {
				if err := k.Set(key, filepath.Join(base, p)); err != nil {
					return nil, fmt.Errorf("failed to resolve %s: %w", key, err)
				}
			}
		}
	}

	// 3. Load environment variables (BENCHGRAPH_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key := flagKey(f.Name)
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			// BENCHGRAPH_METRICS=min,avg decodes into a slice
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// normalize trims and lowercases enumerated values.
func (c *Config) normalize() {
	for i, m := range c.Metrics {
		c.Metrics[i] = strings.ToLower(strings.TrimSpace(m))
	}
	if c.Verbose {
		c.LogLevel = "debug"
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.OutputFormat = strings.ToLower(c.OutputFormat)
	c.Threshold.Metric = strings.ToLower(c.Threshold.Metric)
	c.Chart.Format = strings.ToLower(strings.TrimPrefix(c.Chart.Format, "."))
	if c.Suffix != "" && !strings.HasPrefix(c.Suffix, ".") {
		c.Suffix = "." + c.Suffix
	}
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// NewLogger creates the CLI logger writing text records to w.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
