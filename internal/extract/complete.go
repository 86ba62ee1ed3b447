package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minSentenceLength = 20
	maxSummaryLength  = 500
)

// completionPhrases mark a response saying the work needs no edits.
var completionPhrases = []string{
	"already implemented",
	"already been implemented",
	"already complete",
	"already exists",
	"no changes needed",
	"no changes are needed",
	"no changes required",
	"no changes are required",
	"nothing to change",
	"phase is complete",
}

var sentenceRegex = regexp.MustCompile(`[^.!?\n]+[.!?]*`)

func isCompletionNotice(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range completionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// completionSummary picks the first sentence longer than 20 characters,
// falling back to the whole text, truncated to 500 characters.
func completionSummary(text string) string {
	summary := strings.TrimSpace(text)
	for _, s := range sentenceRegex.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) > minSentenceLength {
			summary = s
			break
		}
	}
	return truncateRunes(summary, maxSummaryLength)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
