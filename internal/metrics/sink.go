package metrics

import "sync"

// Sink receives per-call reconciliation outcomes. Implementations must be
// safe for concurrent use; the extractor and matcher hold no counters of
// their own.
type Sink interface {
	// ObserveExtraction records which extraction strategy succeeded. On
	// failure strategy is empty and ok is false.
	ObserveExtraction(strategy string, ok bool)
	// ObserveMatch records the patch matching strategy and score.
	ObserveMatch(strategy string, ok bool, similarity float64)
}

type nopSink struct{}

func (nopSink) ObserveExtraction(string, bool)     {}
func (nopSink) ObserveMatch(string, bool, float64) {}

// Nop returns a sink that drops every observation.
func Nop() Sink { return nopSink{} }

// OrNop returns sink when non-nil, otherwise a no-op sink.
func OrNop(sink Sink) Sink {
	if sink == nil {
		return Nop()
	}
	return sink
}

// Tally is an in-memory Sink, handy for tests and one-shot CLI runs.
type Tally struct {
	mu          sync.Mutex
	extractions map[string]int
	matches     map[string]int
	failures    int
	misses      int
}

// NewTally creates an empty Tally.
func NewTally() *Tally {
	return &Tally{
		extractions: make(map[string]int),
		matches:     make(map[string]int),
	}
}

func (t *Tally) ObserveExtraction(strategy string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !ok {
		t.failures++
		return
	}
	t.extractions[strategy]++
}

func (t *Tally) ObserveMatch(strategy string, ok bool, _ float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !ok {
		t.misses++
		return
	}
	t.matches[strategy]++
}

// Extractions returns how often each extraction strategy succeeded.
func (t *Tally) Extractions() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.extractions))
	for k, v := range t.extractions {
		out[k] = v
	}
	return out
}

// Matches returns how often each match strategy located a patch.
func (t *Tally) Matches() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.matches))
	for k, v := range t.matches {
		out[k] = v
	}
	return out
}

// Failures returns the number of failed extractions and unmatched patches.
func (t *Tally) Failures() (extractions, matches int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures, t.misses
}
