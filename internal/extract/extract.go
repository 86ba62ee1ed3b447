// Package extract recovers structured file edits from free-form model
// output. The response may be plain JSON, fenced JSON, JSON escaped once per
// envelope hop, JSON buried in prose, or nested inside agent runtime
// envelopes. Strategies are tried in a fixed order and the first one that
// yields a files/summary object wins.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sokinpui/recon/internal/jsonx"
	"github.com/sokinpui/recon/internal/logging"
	"github.com/sokinpui/recon/internal/metrics"
	"github.com/sokinpui/recon/model"
)

const (
	DefaultMaxDepth       = 5
	DefaultSampleSize     = 500
	DefaultMaxProsePrefix = 500
)

// Options tunes an Extractor. Zero values select the defaults.
type Options struct {
	// MaxDepth bounds envelope nesting.
	MaxDepth int
	// SampleSize bounds the input sample carried by failures.
	SampleSize int
	// MaxProsePrefix is the longest lead-in the prose strategy strips.
	MaxProsePrefix int
	Logger         logging.Logger
	Sink           metrics.Sink
}

// Outcome is a successful extraction.
type Outcome struct {
	Result model.ReconciliationResult
	// Strategy is the strategy that produced Result.
	Strategy string
	// Attempted lists the strategies tried, in order, including the winner.
	Attempted []string
	// Field names the payload field the result came from, if any.
	Field string
}

// Extractor turns model responses into reconciliation results. It holds
// only immutable configuration and is safe for concurrent use.
type Extractor struct {
	opts   Options
	logger logging.Logger
	sink   metrics.Sink
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = DefaultSampleSize
	}
	if opts.MaxProsePrefix <= 0 {
		opts.MaxProsePrefix = DefaultMaxProsePrefix
	}
	return &Extractor{
		opts:   opts,
		logger: logging.OrNop(opts.Logger),
		sink:   metrics.OrNop(opts.Sink),
	}
}

// Extract runs the default extractor over response.
func Extract(response any) (*Outcome, error) {
	return New(Options{}).Extract(response)
}

// Extract converts response into a reconciliation result. The response may
// be a string, a byte slice, a decoded JSON object, or any value that
// marshals to one. Failures are always returned as *Error.
func (e *Extractor) Extract(response any) (*Outcome, error) {
	value := normalizeInput(response)
	run := &run{extractor: e}

	result, err := run.value(value, 0)
	if err != nil {
		kind := KindExtractionFailed
		if errors.Is(err, ErrMalformedEnvelope) {
			kind = KindMalformedEnvelope
		}
		extractErr := &Error{Kind: kind, Attempted: run.attempted, Sample: e.sample(value)}
		e.logger.Warn("extract: %v", extractErr)
		e.sink.ObserveExtraction("", false)
		return nil, extractErr
	}

	e.logger.Debug("extract: %s produced %d file edit(s)", result.strategy, len(result.result.Files))
	e.sink.ObserveExtraction(result.strategy, true)
	return &Outcome{
		Result:    *result.result,
		Strategy:  result.strategy,
		Attempted: run.attempted,
		Field:     result.field,
	}, nil
}

// run carries the per-call attempt log. A fresh run is created for every
// Extract call, so no state survives between calls.
type run struct {
	extractor *Extractor
	attempted []string
}

type found struct {
	result   *model.ReconciliationResult
	strategy string
	field    string
}

func (r *run) attempt(name string) {
	for _, a := range r.attempted {
		if a == name {
			return
		}
	}
	r.attempted = append(r.attempted, name)
}

func (r *run) value(v any, depth int) (*found, error) {
	if depth > r.extractor.opts.MaxDepth {
		r.attempt(StrategyEnvelope)
		return nil, ErrMalformedEnvelope
	}

	switch s := decodeShape(v).(type) {
	case targetShape:
		r.attempt(StrategyDirect)
		result, err := toResult(s.object)
		if err != nil {
			r.extractor.logger.Debug("extract: files object rejected: %v", err)
			return nil, ErrExtractionFailed
		}
		strategy := StrategyDirect
		if depth > 0 {
			strategy = StrategyEnvelope
		}
		return &found{result: result, strategy: strategy}, nil

	case wrappedShape:
		r.attempt(StrategyEnvelope)
		out, err := r.value(s.payload, depth+1)
		if err != nil {
			return nil, err
		}
		if out.strategy == StrategyDirect {
			out.strategy = StrategyEnvelope
		}
		return out, nil

	case fieldsShape:
		r.attempt(StrategyEnvelope)
		var malformed error
		for _, f := range s.fields {
			out, err := r.value(f.value, depth+1)
			if err == nil {
				if out.field == "" {
					out.field = f.name
				}
				return out, nil
			}
			if errors.Is(err, ErrMalformedEnvelope) {
				malformed = err
			}
		}
		if malformed != nil {
			return nil, malformed
		}
		return nil, ErrExtractionFailed

	case textShape:
		return r.text(s.text, depth)
	}
	return nil, ErrExtractionFailed
}

// text handles a string payload. A string that is itself an encoded
// envelope or an encoded string is decoded and routed back through value.
func (r *run) text(text string, depth int) (*found, error) {
	if decoded, ok := parseJSON(text); ok {
		switch d := decoded.(type) {
		case map[string]any:
			if _, unknown := decodeShape(d).(unknownShape); !unknown {
				out, err := r.value(d, depth)
				if err == nil || errors.Is(err, ErrMalformedEnvelope) {
					return out, err
				}
			}
		case string:
			if d != text {
				out, err := r.value(d, depth)
				if err == nil || errors.Is(err, ErrMalformedEnvelope) {
					return out, err
				}
			}
		}
	}

	for _, s := range textStrategies {
		r.attempt(s.name)
		if result, ok := r.extractor.try(s, text); ok {
			return &found{result: result, strategy: s.name}, nil
		}
	}
	return nil, ErrExtractionFailed
}

// try runs one strategy, treating a panic inside it as "no match".
func (e *Extractor) try(s textStrategy, text string) (result *model.ReconciliationResult, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn("extract: strategy %s panicked: %v", s.name, rec)
			result, ok = nil, false
		}
	}()
	return s.apply(e, text)
}

func (e *Extractor) sample(v any) string {
	var text string
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		text = val
	default:
		// Marshal fails on cyclic values; print only the type then, since
		// fmt would recurse through the cycle.
		if data, err := jsonx.Marshal(val); err == nil {
			text = string(data)
		} else {
			text = fmt.Sprintf("<%T>", val)
		}
	}
	return truncateRunes(strings.TrimSpace(text), e.opts.SampleSize)
}

// normalizeInput reduces a response to a string, a decoded JSON value, or
// nil.
func normalizeInput(response any) any {
	switch v := response.(type) {
	case nil:
		return nil
	case string:
		return v
	case []byte:
		return string(v)
	case map[string]any, []any:
		return v
	case fmt.Stringer:
		return v.String()
	}

	data, err := jsonx.Marshal(response)
	if err != nil {
		return fmt.Sprintf("<%T>", response)
	}
	var decoded any
	if err := jsonx.Unmarshal(data, &decoded); err != nil {
		return string(data)
	}
	return decoded
}
