package recon

import (
	"context"
	"fmt"

	"github.com/sokinpui/recon/cli"
	"github.com/sokinpui/recon/internal/logging"
	"github.com/sokinpui/recon/model"
)

// Config for using recon as a library.
type Config struct {
	// Dir is the workspace root. Defaults to the working directory.
	Dir string
	// DryRun computes previews without writing.
	DryRun bool
	// Refetch, when set, is asked once for a new response after extraction
	// fails.
	Refetch Refetcher
	Logger  logging.Logger
}

// Reconcile extracts the file edits from response and applies them to the
// workspace in config.Dir.
func Reconcile(ctx context.Context, response any, config Config) (model.Summary, error) {
	cliCfg := &cli.Config{DryRun: config.DryRun}
	if config.Dir != "" {
		cliCfg.LookupDirs = []string{config.Dir}
	}

	opts := []Option{WithLogger(config.Logger)}
	if config.Refetch != nil {
		opts = append(opts, WithRefetcher(config.Refetch))
	}
	app, err := New(cliCfg, opts...)
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to initialize recon app: %w", err)
	}
	return app.Reconcile(ctx, response)
}
