package patcher

import "strings"

// line is one line of file text with its byte span. end excludes the
// newline and any carriage return before it.
type line struct {
	text       string
	start, end int
}

func splitLines(text string) []line {
	var lines []line
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, newLine(text, start, i))
			start = i + 1
		}
	}
	return append(lines, newLine(text, start, len(text)))
}

func newLine(text string, start, end int) line {
	if end > start && text[end-1] == '\r' {
		end--
	}
	return line{text: text[start:end], start: start, end: end}
}

// searchLines splits search text into lines, ignoring the line breaks
// that lead or trail it.
func searchLines(search string) []string {
	search = strings.Trim(search, "\r\n")
	parts := strings.Split(search, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

// normalizeLine trims a line and collapses internal whitespace runs to a
// single space.
func normalizeLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func normalizeBlock(lines []string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = normalizeLine(l)
	}
	return strings.Join(out, "\n")
}

func lineTexts(lines []line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return out
}
