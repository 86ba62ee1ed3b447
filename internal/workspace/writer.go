package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sokinpui/recon/internal/logging"
	"github.com/sokinpui/recon/model"
)

// Writer applies a Plan to disk.
type Writer struct {
	logger   logging.Logger
	dryRun   bool
	progress func(done, total int)
}

// NewWriter creates a Writer. In dry-run mode nothing is written and the
// summary carries a diff preview per change instead.
func NewWriter(logger logging.Logger, dryRun bool) *Writer {
	return &Writer{logger: logging.OrNop(logger), dryRun: dryRun}
}

// OnProgress registers a callback invoked after each file is written.
func (w *Writer) OnProgress(fn func(done, total int)) {
	w.progress = fn
}

// Write applies every change in plan. Writes are atomic per file; if one
// fails, files already written are restored and the error is returned.
func (w *Writer) Write(plan *Plan) (model.Summary, error) {
	var summary model.Summary
	if w.dryRun {
		for _, c := range plan.Changes {
			summary.Previews = append(summary.Previews, PreviewChange(c).Text)
			addToSummary(&summary, c)
		}
		return summary, nil
	}

	for _, dir := range plan.Dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return model.Summary{}, fmt.Errorf("create directory %s: %w", dir, err)
		}
		w.logger.Debug("workspace: created directory %s", dir)
	}

	var done []*Change
	for _, c := range plan.Changes {
		if err := w.writeChange(c); err != nil {
			w.rollback(done)
			return model.Summary{}, fmt.Errorf("%s: %w", c.Rel, err)
		}
		done = append(done, c)
		addToSummary(&summary, c)
		if w.progress != nil {
			w.progress(len(done), len(plan.Changes))
		}
	}
	return summary, nil
}

func (w *Writer) writeChange(c *Change) error {
	if c.After == nil {
		if err := os.Remove(c.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		w.logger.Info("workspace: deleted %s", c.Rel)
		return nil
	}
	if err := WriteFileAtomic(c.Path, []byte(*c.After)); err != nil {
		return err
	}
	w.logger.Info("workspace: %s %s", c.Action, c.Rel)
	return nil
}

func (w *Writer) rollback(done []*Change) {
	for i := len(done) - 1; i >= 0; i-- {
		c := done[i]
		if err := restore(c.Path, c.Before); err != nil {
			w.logger.Error("workspace: could not restore %s: %v", c.Rel, err)
		}
	}
}

// Restore puts each file back to the given content. A nil content removes
// the file. It returns the paths restored and the paths that failed.
func (w *Writer) Restore(files map[string]*string) (restored, failed []string) {
	for path, content := range files {
		if err := restore(path, content); err != nil {
			w.logger.Error("workspace: restore %s: %v", path, err)
			failed = append(failed, path)
			continue
		}
		restored = append(restored, path)
	}
	sort.Strings(restored)
	sort.Strings(failed)
	return restored, failed
}

func restore(path string, content *string) error {
	if content == nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return WriteFileAtomic(path, []byte(*content))
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place, keeping the existing file mode.
func WriteFileAtomic(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".recon-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func addToSummary(s *model.Summary, c *Change) {
	switch c.Action {
	case ActionCreate:
		s.Created = append(s.Created, c.Rel)
	case ActionModify:
		s.Modified = append(s.Modified, c.Rel)
	case ActionDelete:
		s.Deleted = append(s.Deleted, c.Rel)
	}
}
