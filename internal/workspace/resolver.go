package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot rejects edit paths that would land outside every lookup
// directory.
var ErrOutsideRoot = errors.New("path escapes workspace root")

// PathResolver finds absolute paths for files named by edits.
type PathResolver struct {
	lookupDirs []string
}

// NewPathResolver creates a PathResolver. The first lookup directory is
// where new files are created; it defaults to the working directory.
func NewPathResolver(lookupDirs []string) (*PathResolver, error) {
	if len(lookupDirs) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
		return &PathResolver{lookupDirs: []string{wd}}, nil
	}

	absDirs := make([]string, 0, len(lookupDirs))
	for _, dir := range lookupDirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid lookup directory %q: %w", dir, err)
		}
		absDirs = append(absDirs, abs)
	}
	return &PathResolver{lookupDirs: absDirs}, nil
}

// Root is the directory new files are created in.
func (r *PathResolver) Root() string {
	return r.lookupDirs[0]
}

// Resolve finds an absolute path, assuming a new file in the root if it
// doesn't exist yet.
func (r *PathResolver) Resolve(relativePath string) (string, error) {
	if existing := r.ResolveExisting(relativePath); existing != "" {
		return existing, nil
	}
	return r.within(r.Root(), relativePath)
}

// ResolveExisting finds an absolute path only if the file exists.
func (r *PathResolver) ResolveExisting(relativePath string) string {
	for _, dir := range r.lookupDirs {
		absPath, err := r.within(dir, relativePath)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			return absPath
		}
	}
	return ""
}

// Rel returns path relative to the root for display, or path itself.
func (r *PathResolver) Rel(path string) string {
	rel, err := filepath.Rel(r.Root(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func (r *PathResolver) within(dir, relativePath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relativePath))
	if filepath.IsAbs(clean) {
		if rel, err := filepath.Rel(dir, clean); err == nil && !escapes(rel) {
			return clean, nil
		}
		return "", fmt.Errorf("%s: %w", relativePath, ErrOutsideRoot)
	}
	if escapes(clean) {
		return "", fmt.Errorf("%s: %w", relativePath, ErrOutsideRoot)
	}
	return filepath.Join(dir, clean), nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
