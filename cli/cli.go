package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ExtractConfig tunes the structured extractor.
type ExtractConfig struct {
	MaxDepth       int
	SampleSize     int
	MaxProsePrefix int
}

// MatchConfig tunes the patch matcher thresholds.
type MatchConfig struct {
	MinAnchorLength int
	LineSimilarity  float64
	FuzzyCoverage   float64
	AnchorMargin    int
	AnchorThreshold float64
}

// Config holds all the command-line flag and config file values.
type Config struct {
	File        string
	LookupDirs  []string
	DryRun      bool
	Format      string
	NoTUI       bool
	Undo        bool
	Redo        bool
	ConfigFile  string
	LogLevel    string
	LogFormat   string
	MetricsAddr string
	Extract     ExtractConfig
	Match       MatchConfig
}

var formats = []string{"text", "json", "yaml"}

// ParseFlags parses os.Args.
func ParseFlags() (*Config, error) {
	return Parse(os.Args[1:], os.Stderr)
}

// Parse defines and parses command-line flags using pflag, then layers a
// .recon.yaml config file and RECON_* environment variables underneath
// them with viper.
func Parse(args []string, usageOut io.Writer) (*Config, error) {
	fs := pflag.NewFlagSet("recon", pflag.ContinueOnError)
	fs.SetOutput(usageOut)

	fs.StringP("file", "f", "", "Read the model response from a file ('-' for stdin). Defaults to piped stdin, then the clipboard.")
	fs.StringSliceP("dir", "d", nil, "Lookup directories for edited files. The first one is the workspace root.")
	fs.BoolP("dry-run", "n", false, "Show a diff of every planned change without writing.")
	fs.StringP("format", "F", "text", "Report format: text, json or yaml.")
	fs.Bool("no-tui", false, "Disable the spinner and interactive summary.")
	fs.String("config", "", "Config file (default .recon.yaml in the workspace or home directory).")
	fs.String("log-level", "warn", "Log level: debug, info, warn or error.")
	fs.String("log-format", "text", "Log format: text or json.")
	fs.String("metrics-addr", "", "Serve Prometheus metrics on this address while running, e.g. :9090.")

	// Mutually exclusive history group
	fs.BoolP("undo", "u", false, "Undo the last operation.")
	fs.BoolP("redo", "r", false, "Redo the last undone operation.")

	fs.Usage = func() {
		fmt.Fprintln(usageOut, "Usage: recon [flags]")
		fmt.Fprintln(usageOut, "\nReconcile a model response into file edits and apply them.")
		fmt.Fprintln(usageOut, "\nExample: claude -p \"$TASK\" --output-format json | recon -n")
		fmt.Fprintln(usageOut, "\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		File:        v.GetString("file"),
		LookupDirs:  v.GetStringSlice("dir"),
		DryRun:      v.GetBool("dry-run"),
		Format:      strings.ToLower(v.GetString("format")),
		NoTUI:       v.GetBool("no-tui"),
		Undo:        v.GetBool("undo"),
		Redo:        v.GetBool("redo"),
		ConfigFile:  v.ConfigFileUsed(),
		LogLevel:    v.GetString("log-level"),
		LogFormat:   v.GetString("log-format"),
		MetricsAddr: v.GetString("metrics-addr"),
		Extract: ExtractConfig{
			MaxDepth:       v.GetInt("extract.max-depth"),
			SampleSize:     v.GetInt("extract.sample-size"),
			MaxProsePrefix: v.GetInt("extract.max-prose-prefix"),
		},
		Match: MatchConfig{
			MinAnchorLength: v.GetInt("match.min-anchor-length"),
			LineSimilarity:  v.GetFloat64("match.line-similarity"),
			FuzzyCoverage:   v.GetFloat64("match.fuzzy-coverage"),
			AnchorMargin:    v.GetInt("match.anchor-margin"),
			AnchorThreshold: v.GetFloat64("match.anchor-threshold"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("extract.max-depth", 5)
	v.SetDefault("extract.sample-size", 500)
	v.SetDefault("extract.max-prose-prefix", 500)
	v.SetDefault("match.min-anchor-length", 10)
	v.SetDefault("match.line-similarity", 0.8)
	v.SetDefault("match.fuzzy-coverage", 0.7)
	v.SetDefault("match.anchor-margin", 5)
	v.SetDefault("match.anchor-threshold", 0.5)
}

func readConfigFile(v *viper.Viper) error {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(".recon")
	v.SetConfigType("yaml")
	if dirs := v.GetStringSlice("dir"); len(dirs) > 0 {
		v.AddConfigPath(dirs[0])
	}
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Validate checks flag combinations.
func (c *Config) Validate() error {
	if c.Undo && c.Redo {
		return errors.New("--undo and --redo are mutually exclusive")
	}
	for _, f := range formats {
		if c.Format == f {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q, want one of %s", c.Format, strings.Join(formats, ", "))
}
