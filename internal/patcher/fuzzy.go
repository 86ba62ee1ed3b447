package patcher

import (
	"strings"

	"github.com/sokinpui/recon/model"
)

// fuzzyWhitespace locates search by comparing whitespace-normalized lines.
// Blank file lines are filtered out first and mapped back to their original
// indices afterwards, so blank-line drift does not break a window.
func (m *Matcher) fuzzyWhitespace(lines []line, search string) (*model.MatchResult, bool) {
	var block []string
	for _, s := range searchLines(search) {
		if n := normalizeLine(s); n != "" {
			block = append(block, n)
		}
	}
	if len(block) == 0 || len(block[0]) < m.opts.MinAnchorLength {
		return nil, false
	}

	var filtered []string
	var original []int
	for i, l := range lines {
		if n := normalizeLine(l.text); n != "" {
			filtered = append(filtered, n)
			original = append(original, i)
		}
	}

	first := block[0]
	for f, candidate := range filtered {
		if !strings.Contains(candidate, first) &&
			!(len(candidate) >= m.opts.MinAnchorLength && strings.Contains(first, candidate)) {
			continue
		}

		matched, last := 0, f
		for k := 0; k < len(block) && f+k < len(filtered); k++ {
			if m.linesMatch(filtered[f+k], block[k]) {
				matched++
			}
			last = f + k
		}

		coverage := float64(matched) / float64(len(block))
		if coverage < m.opts.FuzzyCoverage {
			continue
		}
		start, end := original[f], original[last]
		return &model.MatchResult{
			MatchedStart: start,
			MatchedEnd:   end,
			Strategy:     model.MatchFuzzyWhitespace,
			Similarity:   coverage,
			Start:        lines[start].start,
			End:          lines[end].end,
		}, true
	}
	return nil, false
}

// linesMatch compares two normalized lines.
func (m *Matcher) linesMatch(a, b string) bool {
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	if len(a) > m.opts.MinSimilarityLength && len(b) > m.opts.MinSimilarityLength {
		return Similarity(a, b) > m.opts.LineSimilarity
	}
	return false
}
