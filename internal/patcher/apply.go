package patcher

import (
	"strings"

	"github.com/sokinpui/recon/model"
)

// Apply applies patches in order with the default thresholds.
func Apply(fileText string, patches []model.Patch) (string, []model.MatchResult, error) {
	return defaultMatcher.Apply(fileText, patches)
}

// Apply applies patches in order, each against the result of the one
// before. If any patch cannot be located the original text is returned
// unchanged along with a *PatchError.
func (m *Matcher) Apply(fileText string, patches []model.Patch) (string, []model.MatchResult, error) {
	current := fileText
	results := make([]model.MatchResult, 0, len(patches))
	for i, p := range patches {
		res, err := m.Match(current, p)
		if err != nil {
			return fileText, nil, &PatchError{Index: i, Err: err}
		}
		current = Splice(current, *res, p)
		results = append(results, *res)
	}
	return current, results, nil
}

// Splice replaces the matched span of fileText with the patch's
// replacement. Everything outside [res.Start, res.End) is kept byte for
// byte.
func Splice(fileText string, res model.MatchResult, patch model.Patch) string {
	replace := patch.Replace
	end := res.End
	if res.Strategy != model.MatchExact {
		// Line strategies match whole lines without their line break. An
		// empty replacement removes the lines, break included.
		replace = strings.TrimRight(replace, "\r\n")
		if replace == "" {
			end += lineBreakLen(fileText[end:])
		}
	}
	return fileText[:res.Start] + replace + fileText[end:]
}

func lineBreakLen(s string) int {
	switch {
	case strings.HasPrefix(s, "\r\n"):
		return 2
	case strings.HasPrefix(s, "\n"):
		return 1
	}
	return 0
}
