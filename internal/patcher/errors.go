package patcher

import (
	"errors"
	"fmt"
)

var (
	// ErrPatchNotFound is matched by every MatchError.
	ErrPatchNotFound = errors.New("patch not found")
	// ErrEmptySearch rejects a patch before any strategy runs.
	ErrEmptySearch = errors.New("patch has empty search text")
)

// MatchKind distinguishes a clean miss from a rejected best guess.
type MatchKind int

const (
	NotFound MatchKind = iota
	LowConfidence
)

func (k MatchKind) String() string {
	switch k {
	case LowConfidence:
		return "low confidence"
	default:
		return "not found"
	}
}

// MatchError reports that no strategy located the patch.
type MatchError struct {
	Kind MatchKind
	// BestScore is the best anchored window score, set for LowConfidence.
	BestScore float64
}

func (e *MatchError) Error() string {
	if e.Kind == LowConfidence {
		return fmt.Sprintf("%v: best candidate scored %.2f", ErrPatchNotFound, e.BestScore)
	}
	return ErrPatchNotFound.Error()
}

func (e *MatchError) Is(target error) bool {
	return target == ErrPatchNotFound
}

// PatchError names the patch of a sequence that could not be applied.
type PatchError struct {
	Index int
	Err   error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("patch %d: %v", e.Index, e.Err)
}

func (e *PatchError) Unwrap() error { return e.Err }
