package extract

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an extraction failure.
type Kind string

const (
	KindMalformedEnvelope Kind = "malformed_envelope"
	KindExtractionFailed  Kind = "extraction_failed"
)

var (
	// ErrMalformedEnvelope matches failures caused by nesting deeper than
	// the configured envelope depth.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrExtractionFailed matches failures where no strategy produced edits.
	ErrExtractionFailed = errors.New("extraction failed")
)

// Error is the typed failure returned by Extract. Callers surface Sample
// for diagnosis and use Attempted to see which strategies ran.
type Error struct {
	Kind      Kind
	Attempted []string
	Sample    string
	// Err is the underlying cause when one exists, e.g. a failed refetch.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindMalformedEnvelope:
		b.WriteString("malformed envelope: nesting exceeds depth limit")
	default:
		b.WriteString("extraction failed: no strategy recovered file edits")
	}
	if len(e.Attempted) > 0 {
		fmt.Fprintf(&b, " (tried %s)", strings.Join(e.Attempted, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrMalformedEnvelope:
		return e.Kind == KindMalformedEnvelope
	case ErrExtractionFailed:
		return e.Kind == KindExtractionFailed
	}
	return false
}

// AsError returns the *Error inside err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
