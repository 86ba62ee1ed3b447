package patcher

import (
	"regexp"
	"strings"

	"github.com/sokinpui/recon/model"
)

var declarationKeywords = []string{
	"function", "func", "class", "const", "let", "var", "def", "interface",
	"type", "struct", "enum", "public", "private", "protected", "static",
	"export", "async",
}

var (
	keywordSet = func() map[string]struct{} {
		set := make(map[string]struct{}, len(declarationKeywords))
		for _, k := range declarationKeywords {
			set[k] = struct{}{}
		}
		return set
	}()
	// declarationRegex captures the name after a run of declaration
	// keywords. A Go method receiver between func and the name is skipped.
	declarationRegex = regexp.MustCompile(`\b(?:` + keywordAlt + `)(?:\s+(?:` + keywordAlt + `))*\s+(?:\([^)]*\)\s*)?([A-Za-z_$][\w$]*)`)
)

var keywordAlt = strings.Join(declarationKeywords, "|")

// declarationName returns the first declared identifier in search and the
// index of the search line it sits on.
func declarationName(lines []string) (string, int, bool) {
	for i, l := range lines {
		for _, m := range declarationRegex.FindAllStringSubmatch(l, -1) {
			if _, isKeyword := keywordSet[m[1]]; !isKeyword {
				return m[1], i, true
			}
		}
	}
	return "", 0, false
}

// anchoredAggressive scores windows around each occurrence of the
// declared identifier. It also returns the best score seen and whether any
// candidate window existed.
func (m *Matcher) anchoredAggressive(lines []line, search string) (res *model.MatchResult, best float64, anchored bool) {
	sLines := searchLines(search)
	target := normalizeBlock(sLines)
	texts := lineTexts(lines)

	name, offset, ok := declarationName(sLines)
	if !ok {
		return m.boundaryMatch(lines, sLines, target)
	}

	nameRegex := regexp.MustCompile(`(?:^|[^\w$])` + regexp.QuoteMeta(name) + `(?:[^\w$]|$)`)
	size := len(sLines)
	for i, l := range lines {
		if !nameRegex.MatchString(l.text) {
			continue
		}
		aligned := i - offset
		lo := max(aligned-m.opts.AnchorMargin, 0)
		hi := min(aligned+size-1+m.opts.AnchorMargin, len(lines)-1)
		window := min(size, hi-lo+1)
		if window <= 0 {
			continue
		}

		localBest, localStart := -1.0, lo
		for s := lo; s+window-1 <= hi; s++ {
			score := Similarity(normalizeBlock(texts[s:s+window]), target)
			if score > localBest {
				localBest, localStart = score, s
			}
		}
		anchored = true
		best = max(best, localBest)
		if localBest > m.opts.AnchorThreshold {
			end := localStart + window - 1
			return &model.MatchResult{
				MatchedStart: localStart,
				MatchedEnd:   end,
				Strategy:     model.MatchAnchoredAggressive,
				Similarity:   localBest,
				Start:        lines[localStart].start,
				End:          lines[end].end,
			}, localBest, true
		}
	}
	return nil, best, anchored
}

// boundaryMatch accepts a window whose first and last lines match the
// search's first and last lines at exactly the search's span.
func (m *Matcher) boundaryMatch(lines []line, sLines []string, target string) (*model.MatchResult, float64, bool) {
	first := normalizeLine(sLines[0])
	last := normalizeLine(sLines[len(sLines)-1])
	span := len(sLines) - 1
	texts := lineTexts(lines)

	for i := 0; i+span < len(lines); i++ {
		if Similarity(normalizeLine(lines[i].text), first) <= m.opts.LineSimilarity {
			continue
		}
		if Similarity(normalizeLine(lines[i+span].text), last) <= m.opts.LineSimilarity {
			continue
		}
		end := i + span
		return &model.MatchResult{
			MatchedStart: i,
			MatchedEnd:   end,
			Strategy:     model.MatchAnchoredAggressive,
			Similarity:   Similarity(normalizeBlock(texts[i:end+1]), target),
			Start:        lines[i].start,
			End:          lines[end].end,
		}, 0, false
	}
	return nil, 0, false
}
