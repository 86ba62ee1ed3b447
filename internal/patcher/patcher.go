// Package patcher locates search/replace patches in file text that may have
// drifted from what the model saw. Strategies run from strict to loose:
// exact substring, whitespace-normalized lines, then a window anchored on a
// declared identifier. A patch no strategy accepts is rejected, never
// guessed.
package patcher

import (
	"strings"

	"github.com/sokinpui/recon/internal/logging"
	"github.com/sokinpui/recon/internal/metrics"
	"github.com/sokinpui/recon/model"
)

const (
	DefaultMinAnchorLength     = 10
	DefaultMinSimilarityLength = 20
	DefaultLineSimilarity      = 0.8
	DefaultFuzzyCoverage       = 0.7
	DefaultAnchorMargin        = 5
	DefaultAnchorThreshold     = 0.5
)

// Options holds the matcher thresholds. Zero values select the defaults.
type Options struct {
	// MinAnchorLength is the shortest normalized first line the fuzzy
	// strategy will anchor on. It also bounds the reverse anchor test: a
	// file line contained in the first search line only anchors when it is
	// at least this long, so short lines such as "}" never do.
	MinAnchorLength int
	// MinSimilarityLength: lines must be longer than this before the fuzzy
	// strategy compares them by similarity.
	MinSimilarityLength int
	LineSimilarity      float64
	// FuzzyCoverage is the share of search lines a fuzzy window must match.
	FuzzyCoverage   float64
	AnchorMargin    int
	AnchorThreshold float64
	Logger          logging.Logger
	Sink            metrics.Sink
}

// Matcher finds patches in file text. It is safe for concurrent use.
type Matcher struct {
	opts   Options
	logger logging.Logger
	sink   metrics.Sink
}

// New creates a Matcher.
func New(opts Options) *Matcher {
	if opts.MinAnchorLength <= 0 {
		opts.MinAnchorLength = DefaultMinAnchorLength
	}
	if opts.MinSimilarityLength <= 0 {
		opts.MinSimilarityLength = DefaultMinSimilarityLength
	}
	if opts.LineSimilarity <= 0 {
		opts.LineSimilarity = DefaultLineSimilarity
	}
	if opts.FuzzyCoverage <= 0 {
		opts.FuzzyCoverage = DefaultFuzzyCoverage
	}
	if opts.AnchorMargin <= 0 {
		opts.AnchorMargin = DefaultAnchorMargin
	}
	if opts.AnchorThreshold <= 0 {
		opts.AnchorThreshold = DefaultAnchorThreshold
	}
	return &Matcher{
		opts:   opts,
		logger: logging.OrNop(opts.Logger),
		sink:   metrics.OrNop(opts.Sink),
	}
}

var defaultMatcher = New(Options{})

// Match locates patch in fileText with the default thresholds.
func Match(fileText string, patch model.Patch) (*model.MatchResult, error) {
	return defaultMatcher.Match(fileText, patch)
}

// Match locates patch in fileText. A miss is returned as *MatchError.
func (m *Matcher) Match(fileText string, patch model.Patch) (*model.MatchResult, error) {
	if strings.TrimSpace(patch.Search) == "" {
		return nil, ErrEmptySearch
	}

	if res, ok := m.exact(fileText, patch.Search); ok {
		return m.accept(res), nil
	}

	lines := splitLines(fileText)
	if res, ok := m.fuzzyWhitespace(lines, patch.Search); ok {
		return m.accept(res), nil
	}

	res, best, anchored := m.anchoredAggressive(lines, patch.Search)
	if res != nil {
		return m.accept(res), nil
	}

	err := &MatchError{Kind: NotFound}
	if anchored {
		err = &MatchError{Kind: LowConfidence, BestScore: best}
		m.logger.Info("patcher: rejected low confidence match, best score %.3f", best)
	} else {
		m.logger.Debug("patcher: no strategy located search text")
	}
	m.sink.ObserveMatch("", false, best)
	return nil, err
}

func (m *Matcher) accept(res *model.MatchResult) *model.MatchResult {
	m.logger.Debug("patcher: %s matched lines %d-%d (similarity %.3f)",
		res.Strategy, res.MatchedStart+1, res.MatchedEnd+1, res.Similarity)
	m.sink.ObserveMatch(string(res.Strategy), true, res.Similarity)
	return res
}

// exact accepts the lowest-offset verbatim occurrence of search.
func (m *Matcher) exact(fileText, search string) (*model.MatchResult, bool) {
	idx := strings.Index(fileText, search)
	if idx < 0 {
		return nil, false
	}
	if n := strings.Count(fileText, search); n > 1 {
		m.logger.Debug("patcher: search text occurs %d times, using the first", n)
	}

	end := idx + len(search)
	startLine := strings.Count(fileText[:idx], "\n")
	endLine := startLine + strings.Count(strings.TrimSuffix(search, "\n"), "\n")
	return &model.MatchResult{
		MatchedStart: startLine,
		MatchedEnd:   endLine,
		Strategy:     model.MatchExact,
		Similarity:   1,
		Start:        idx,
		End:          end,
	}, true
}
