package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sokinpui/recon/internal/logging"
	"github.com/sokinpui/recon/internal/patcher"
	"github.com/sokinpui/recon/model"
)

// Action is what a planned change does to the file on disk.
type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
)

// Change is the fully computed outcome of the edits for one file.
type Change struct {
	// Path is absolute; Rel is the path as the edit named it.
	Path   string
	Rel    string
	Action Action
	// Before is the current content, nil when the file does not exist.
	Before *string
	// After is the planned content, nil for deletions.
	After   *string
	Matches []model.MatchResult
}

// Plan is the set of changes computed before anything is written.
type Plan struct {
	Changes []*Change
	// Dirs are the directories that must be created, sorted.
	Dirs []string
}

// EditError names the file an edit could not be planned for.
type EditError struct {
	Path string
	Err  error
}

func (e *EditError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e *EditError) Unwrap() error { return e.Err }

// PlanError collects every edit that failed. A plan with failures is never
// written.
type PlanError struct {
	Failed []*EditError
}

func (e *PlanError) Error() string {
	msgs := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d edit(s) could not be applied: %s", len(e.Failed), strings.Join(msgs, "; "))
}

func (e *PlanError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f
	}
	return errs
}

// Paths returns the failed paths.
func (e *PlanError) Paths() []string {
	paths := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		paths[i] = f.Path
	}
	return paths
}

// Planner turns a reconciliation result into a Plan.
type Planner struct {
	resolver *PathResolver
	matcher  *patcher.Matcher
	logger   logging.Logger
}

// NewPlanner creates a Planner. A nil matcher uses default thresholds.
func NewPlanner(resolver *PathResolver, matcher *patcher.Matcher, logger logging.Logger) *Planner {
	if matcher == nil {
		matcher = patcher.New(patcher.Options{Logger: logger})
	}
	return &Planner{resolver: resolver, matcher: matcher, logger: logging.OrNop(logger)}
}

// Build computes the new content of every file named by result. Edits on
// the same path apply in order, each on top of the previous one. If any
// edit fails the returned error is a *PlanError and the plan must not be
// written.
func (p *Planner) Build(result model.ReconciliationResult) (*Plan, error) {
	plan := &Plan{}
	byPath := make(map[string]*Change)
	var failed []*EditError

	for _, edit := range result.Files {
		if err := edit.Validate(); err != nil {
			failed = append(failed, &EditError{Path: edit.Path, Err: err})
			continue
		}
		path, err := p.resolver.Resolve(edit.Path)
		if err != nil {
			failed = append(failed, &EditError{Path: edit.Path, Err: err})
			continue
		}

		change, ok := byPath[path]
		if !ok {
			change, err = p.load(path, edit.Path)
			if err != nil {
				failed = append(failed, &EditError{Path: edit.Path, Err: err})
				continue
			}
			byPath[path] = change
			plan.Changes = append(plan.Changes, change)
		}

		if err := p.apply(change, edit); err != nil {
			failed = append(failed, &EditError{Path: edit.Path, Err: err})
		}
	}

	if len(failed) > 0 {
		return nil, &PlanError{Failed: failed}
	}

	plan.Changes = pruneNoops(plan.Changes)
	plan.Dirs = p.missingDirs(plan.Changes)
	return plan, nil
}

func (p *Planner) load(path, rel string) (*Change, error) {
	change := &Change{Path: path, Rel: rel}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		before := string(data)
		change.Before = &before
		change.After = &before
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read: %w", err)
	}
	return change, nil
}

func (p *Planner) apply(change *Change, edit model.FileEdit) error {
	switch edit.Operation {
	case model.OperationCreate, model.OperationUpdate:
		content := *edit.Content
		change.After = &content

	case model.OperationDelete:
		if change.After == nil {
			p.logger.Warn("workspace: %s does not exist, nothing to delete", edit.Path)
		}
		change.After = nil

	case model.OperationPatch:
		if change.After == nil {
			return fmt.Errorf("patch target: %w", os.ErrNotExist)
		}
		out, matches, err := p.matcher.Apply(*change.After, edit.Patches)
		if err != nil {
			return err
		}
		for _, m := range matches {
			p.logger.Debug("workspace: %s patched via %s (%.2f)", edit.Path, m.Strategy, m.Similarity)
		}
		change.After = &out
		change.Matches = append(change.Matches, matches...)
	}

	switch {
	case change.After == nil:
		change.Action = ActionDelete
	case change.Before == nil:
		change.Action = ActionCreate
	default:
		change.Action = ActionModify
	}
	return nil
}

// pruneNoops drops changes that leave the file as it is.
func pruneNoops(changes []*Change) []*Change {
	out := changes[:0]
	for _, c := range changes {
		if c.Before == nil && c.After == nil {
			continue
		}
		if c.Before != nil && c.After != nil && *c.Before == *c.After {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (p *Planner) missingDirs(changes []*Change) []string {
	seen := make(map[string]struct{})
	for _, c := range changes {
		if c.Action != ActionCreate {
			continue
		}
		dir := filepath.Dir(c.Path)
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			seen[dir] = struct{}{}
		}
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}
