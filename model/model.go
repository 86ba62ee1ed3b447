package model

import (
	"errors"
	"fmt"
	"strings"
)

// Operation is the kind of change a FileEdit describes.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	OperationPatch  Operation = "patch"
)

var operationAliases = map[string]Operation{
	"create":         OperationCreate,
	"new":            OperationCreate,
	"update":         OperationUpdate,
	"modify":         OperationUpdate,
	"edit":           OperationUpdate,
	"write":          OperationUpdate,
	"replace":        OperationUpdate,
	"delete":         OperationDelete,
	"remove":         OperationDelete,
	"patch":          OperationPatch,
	"search_replace": OperationPatch,
}

// ParseOperation maps a model-supplied operation name onto an Operation.
// Matching is case-insensitive and tolerates a few common synonyms.
func ParseOperation(s string) (Operation, bool) {
	op, ok := operationAliases[strings.ToLower(strings.TrimSpace(s))]
	return op, ok
}

// Patch is a localized search/replace edit within a file.
type Patch struct {
	Search  string `json:"search" yaml:"search"`
	Replace string `json:"replace" yaml:"replace"`
}

// FileEdit is one file-level change.
type FileEdit struct {
	Path      string    `json:"path" yaml:"path"`
	Operation Operation `json:"operation" yaml:"operation"`
	Content   *string   `json:"content,omitempty" yaml:"content,omitempty"`
	Patches   []Patch   `json:"patches,omitempty" yaml:"patches,omitempty"`
}

var (
	ErrMissingPath    = errors.New("file edit has no path")
	ErrMissingContent = errors.New("file edit requires content")
	ErrMissingPatches = errors.New("patch edit requires at least one patch")
	ErrBadOperation   = errors.New("unknown file operation")
)

// Validate checks the structural invariants of a FileEdit.
func (e FileEdit) Validate() error {
	if strings.TrimSpace(e.Path) == "" {
		return ErrMissingPath
	}
	switch e.Operation {
	case OperationCreate, OperationUpdate:
		if e.Content == nil {
			return fmt.Errorf("%s %s: %w", e.Operation, e.Path, ErrMissingContent)
		}
	case OperationPatch:
		if len(e.Patches) == 0 {
			return fmt.Errorf("%s: %w", e.Path, ErrMissingPatches)
		}
	case OperationDelete:
	default:
		return fmt.Errorf("%s: %w %q", e.Path, ErrBadOperation, e.Operation)
	}
	return nil
}

// ReconciliationResult is the accepted output of extraction. An empty Files
// list with a summary means no changes were needed.
type ReconciliationResult struct {
	Files   []FileEdit `json:"files" yaml:"files"`
	Summary string     `json:"summary" yaml:"summary"`
}

// MatchStrategy names the patch matching strategy that located a span.
type MatchStrategy string

const (
	MatchExact              MatchStrategy = "exact"
	MatchFuzzyWhitespace    MatchStrategy = "fuzzy_whitespace"
	MatchAnchoredAggressive MatchStrategy = "anchored_aggressive"
)

// MatchResult locates the span of a file that a patch replaces.
type MatchResult struct {
	// MatchedStart and MatchedEnd are 0-based, inclusive line indices.
	MatchedStart int           `json:"matched_start"`
	MatchedEnd   int           `json:"matched_end"`
	Strategy     MatchStrategy `json:"strategy"`
	Similarity   float64       `json:"similarity"`
	// Start and End are the byte offsets of the replaced span, End exclusive.
	Start int `json:"start"`
	End   int `json:"end"`
}

// Summary holds the results of an operation for display.
type Summary struct {
	Created  []string `json:"created,omitempty" yaml:"created,omitempty"`
	Modified []string `json:"modified,omitempty" yaml:"modified,omitempty"`
	Deleted  []string `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	Failed   []string `json:"failed,omitempty" yaml:"failed,omitempty"`
	Previews []string `json:"previews,omitempty" yaml:"previews,omitempty"`
	Message  string   `json:"message,omitempty" yaml:"message,omitempty"`
	// Strategy is the extraction strategy that produced the edits.
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
}
