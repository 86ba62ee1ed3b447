package recon

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/sokinpui/recon/cli"
	"github.com/sokinpui/recon/internal/extract"
	"github.com/sokinpui/recon/internal/logging"
	"github.com/sokinpui/recon/internal/metrics"
	"github.com/sokinpui/recon/internal/patcher"
	"github.com/sokinpui/recon/internal/source"
	"github.com/sokinpui/recon/internal/state"
	"github.com/sokinpui/recon/internal/workspace"
	"github.com/sokinpui/recon/model"
)

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// Refetcher asks the model again after extraction failed. It owns its own
// timeout policy through ctx; any error it returns is reported as the
// original extraction failure.
type Refetcher func(ctx context.Context, failure *extract.Error) (any, error)

// App orchestrates the entire application logic.
type App struct {
	cfg              *cli.Config
	stateManager     *state.Manager
	pathResolver     *workspace.PathResolver
	sourceProvider   *source.Provider
	extractor        *extract.Extractor
	planner          *workspace.Planner
	logger           logging.Logger
	sink             metrics.Sink
	refetch          Refetcher
	progressCallback ProgressUpdate
}

// Option customizes an App.
type Option func(*App)

// WithLogger sets the logger shared by every component.
func WithLogger(logger logging.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithSink sets the metrics sink.
func WithSink(sink metrics.Sink) Option {
	return func(a *App) { a.sink = sink }
}

// WithRefetcher enables one retry through the model after extraction
// fails.
func WithRefetcher(r Refetcher) Option {
	return func(a *App) { a.refetch = r }
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error { return e.Err }

// StackTrace returns the stack captured at the panic.
func (e *DetailedError) StackTrace() []byte { return e.Stack }

// New creates a new App instance.
func New(cfg *cli.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = &cli.Config{}
	}
	a := &App{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrNop(a.logger)
	a.sink = metrics.OrNop(a.sink)

	pathResolver, err := workspace.NewPathResolver(cfg.LookupDirs)
	if err != nil {
		return nil, err
	}
	stateManager, err := state.New(pathResolver.Root())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}

	matcher := patcher.New(patcher.Options{
		MinAnchorLength: cfg.Match.MinAnchorLength,
		LineSimilarity:  cfg.Match.LineSimilarity,
		FuzzyCoverage:   cfg.Match.FuzzyCoverage,
		AnchorMargin:    cfg.Match.AnchorMargin,
		AnchorThreshold: cfg.Match.AnchorThreshold,
		Logger:          a.logger,
		Sink:            a.sink,
	})

	a.stateManager = stateManager
	a.pathResolver = pathResolver
	a.sourceProvider = source.New(cfg.File, a.logger)
	a.extractor = extract.New(extract.Options{
		MaxDepth:       cfg.Extract.MaxDepth,
		SampleSize:     cfg.Extract.SampleSize,
		MaxProsePrefix: cfg.Extract.MaxProsePrefix,
		Logger:         a.logger,
		Sink:           a.sink,
	})
	a.planner = workspace.NewPlanner(pathResolver, matcher, a.logger)
	return a, nil
}

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// Execute executes the main application logic based on parsed flags.
func (a *App) Execute(ctx context.Context) (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Undo:
		return a.undoLastOperation()
	case a.cfg.Redo:
		return a.redoLastOperation()
	default:
		return a.processSource(ctx)
	}
}

func (a *App) processSource(ctx context.Context) (model.Summary, error) {
	content, kind, err := a.sourceProvider.Read()
	if err != nil {
		return model.Summary{}, err
	}
	if content == "" {
		return model.Summary{Message: "Source is empty. Nothing to process."}, nil
	}
	a.logger.Debug("recon: read %d bytes from %s", len(content), kind)
	return a.Reconcile(ctx, content)
}

// Reconcile extracts the file edits from response, plans them against the
// workspace and writes them. Nothing is written unless every edit can be
// applied.
func (a *App) Reconcile(ctx context.Context, response any) (model.Summary, error) {
	outcome, err := a.extract(ctx, response)
	if err != nil {
		return model.Summary{}, err
	}
	result := outcome.Result

	plan, err := a.planner.Build(result)
	if err != nil {
		summary := model.Summary{Message: "No files were written.", Strategy: outcome.Strategy}
		var planErr *workspace.PlanError
		if errors.As(err, &planErr) {
			summary.Failed = planErr.Paths()
		}
		return summary, err
	}
	if len(plan.Changes) == 0 {
		return model.Summary{Message: result.Summary, Strategy: outcome.Strategy}, nil
	}

	writer := workspace.NewWriter(a.logger, a.cfg.DryRun)
	if a.progressCallback != nil {
		a.progressCallback(0, len(plan.Changes))
		writer.OnProgress(func(done, total int) { a.progressCallback(done, total) })
	}
	summary, err := writer.Write(plan)
	if err != nil {
		return model.Summary{}, err
	}
	summary.Message = result.Summary
	summary.Strategy = outcome.Strategy

	if !a.cfg.DryRun {
		if err := a.stateManager.Write(snapshots(plan), result.Summary); err != nil {
			a.logger.Warn("recon: could not record history: %v", err)
		}
	}
	return summary, nil
}

func (a *App) extract(ctx context.Context, response any) (*extract.Outcome, error) {
	outcome, err := a.extractor.Extract(response)
	if err == nil || a.refetch == nil {
		return outcome, err
	}

	failure, _ := extract.AsError(err)
	a.logger.Info("recon: extraction failed, asking the model again")
	retry, rerr := a.refetch(ctx, failure)
	if rerr != nil {
		a.logger.Warn("recon: refetch failed: %v", rerr)
		return nil, err
	}
	return a.extractor.Extract(retry)
}

func snapshots(plan *workspace.Plan) []state.Snapshot {
	out := make([]state.Snapshot, 0, len(plan.Changes))
	for _, c := range plan.Changes {
		out = append(out, state.Snapshot{Path: c.Path, Before: c.Before, After: c.After})
	}
	return out
}

// undoLastOperation handles the undo logic.
func (a *App) undoLastOperation() (model.Summary, error) {
	entry, err := a.stateManager.Undo()
	if err != nil {
		return model.Summary{}, err
	}
	if entry == nil {
		return model.Summary{Message: "No operation to undo."}, nil
	}
	return a.restore(entry.BeforeContents(), "Undid last operation.")
}

// redoLastOperation handles the redo logic.
func (a *App) redoLastOperation() (model.Summary, error) {
	entry, err := a.stateManager.Redo()
	if err != nil {
		return model.Summary{}, err
	}
	if entry == nil {
		return model.Summary{Message: "No operation to redo."}, nil
	}
	return a.restore(entry.AfterContents(), "Redid last undone operation.")
}

func (a *App) restore(files map[string]*string, message string) (model.Summary, error) {
	if a.progressCallback != nil {
		a.progressCallback(0, len(files))
	}
	restored, failed := workspace.NewWriter(a.logger, false).Restore(files)
	if a.progressCallback != nil {
		a.progressCallback(len(files), len(files))
	}
	summary := model.Summary{
		Modified: restored,
		Failed:   failed,
		Message:  message,
	}
	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

// relativizeSummaryPaths converts absolute file paths in a summary to be
// relative to the workspace root for cleaner display.
func (a *App) relativizeSummaryPaths(summary *model.Summary) {
	makeRelative := func(paths []string) []string {
		out := make([]string, len(paths))
		for i, p := range paths {
			out[i] = a.pathResolver.Rel(p)
		}
		return out
	}
	summary.Modified = makeRelative(summary.Modified)
	summary.Failed = makeRelative(summary.Failed)
}
