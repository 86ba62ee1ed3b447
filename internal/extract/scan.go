package extract

import (
	"fmt"
	"strings"
)

const (
	filesKey = `"files"`
	// maxKeyOccurrences bounds how many "files" tokens the balanced scan
	// tries before giving up.
	maxKeyOccurrences = 8
)

// scanState is the string/escape state machine shared by the balanced
// scan and control-character sanitization. A quote toggles the in-string
// flag unless it is escaped; a backslash arms a one-shot escape.
type scanState struct {
	inString bool
	escaped  bool
}

// step advances the state over c and reports whether c was consumed as an
// escape target (and so carries no structural meaning).
func (s *scanState) step(c byte) (escapedByte bool) {
	if s.escaped {
		s.escaped = false
		return true
	}
	switch c {
	case '\\':
		s.escaped = true
	case '"':
		s.inString = !s.inString
	}
	return false
}

// matchBrace returns the index of the brace closing the one at open,
// ignoring braces inside strings.
func matchBrace(text string, open int) (int, bool) {
	if open < 0 || open >= len(text) || text[open] != '{' {
		return 0, false
	}
	var st scanState
	depth := 0
	for i := open; i < len(text); i++ {
		c := text[i]
		if st.step(c) || st.inString || c == '"' {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// keyEnclosure is one files key found outside a string, with the offsets
// of the braces open around it, innermost first.
type keyEnclosure struct {
	pos  int
	open []int
}

// keyEnclosures walks text once, tracking open braces with the string
// state machine, so braces inside string values never count.
func keyEnclosures(text string) []keyEnclosure {
	var (
		out   []keyEnclosure
		stack []int
		st    scanState
	)
	for i := 0; i < len(text) && len(out) < maxKeyOccurrences; i++ {
		c := text[i]
		inString := st.inString
		if st.step(c) || inString {
			continue
		}
		switch c {
		case '{':
			stack = append(stack, i)
		case '}':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case '"':
			if len(stack) > 0 && isFilesKey(text, i) {
				open := make([]int, len(stack))
				for j := range stack {
					open[j] = stack[len(stack)-1-j]
				}
				out = append(out, keyEnclosure{pos: i, open: open})
			}
		}
	}
	return out
}

// isFilesKey reports whether the quote at i starts the files key of an
// object member.
func isFilesKey(text string, i int) bool {
	if !strings.HasPrefix(text[i:], filesKey) {
		return false
	}
	rest := strings.TrimLeft(text[i+len(filesKey):], " \t\r\n")
	return strings.HasPrefix(rest, ":")
}

// balancedSpans returns the brace-balanced objects enclosing each
// occurrence of the files key, innermost first. Objects found by the
// structural walk come first. A backward walk over every brace before each
// key follows, for prose whose stray quotes throw the structural walk off.
func balancedSpans(text string) []string {
	var spans []string
	seen := make(map[string]struct{})
	add := func(open, keyPos int) {
		end, ok := matchBrace(text, open)
		if !ok || end < keyPos {
			return
		}
		span := text[open : end+1]
		if _, dup := seen[span]; dup {
			return
		}
		seen[span] = struct{}{}
		spans = append(spans, span)
	}

	for _, key := range keyEnclosures(text) {
		for _, open := range key.open {
			add(open, key.pos)
		}
	}

	offset := 0
	for n := 0; n < maxKeyOccurrences; n++ {
		idx := strings.Index(text[offset:], filesKey)
		if idx < 0 {
			break
		}
		keyPos := offset + idx
		offset = keyPos + len(filesKey)

		for limit := keyPos; ; {
			open := strings.LastIndexByte(text[:limit], '{')
			if open < 0 {
				break
			}
			limit = open
			add(open, keyPos)
		}
	}
	return spans
}

// sanitizeControlChars escapes raw control characters that appear inside
// JSON strings. Bytes outside strings are left alone. It reports whether
// anything changed.
func sanitizeControlChars(text string) (string, bool) {
	var b strings.Builder
	b.Grow(len(text) + 16)
	var st scanState
	changed := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if st.inString && c < 0x20 {
			esc := escapeControl(c)
			if st.escaped {
				// The backslash is already written: "\<LF>" becomes "\n".
				st.escaped = false
				esc = esc[1:]
			}
			b.WriteString(esc)
			changed = true
			continue
		}
		st.step(c)
		b.WriteByte(c)
	}
	return b.String(), changed
}

func escapeControl(c byte) string {
	switch c {
	case '\n':
		return `\n`
	case '\t':
		return `\t`
	case '\r':
		return `\r`
	}
	return fmt.Sprintf(`\u%04x`, c)
}

var unescaper = strings.NewReplacer(
	`\\`, `\`,
	`\"`, `"`,
	`\n`, "\n",
	`\t`, "\t",
	`\r`, "\r",
)

// unescapeOnce removes one level of string escaping, as added by each
// stringification hop an envelope puts its payload through.
func unescapeOnce(text string) string {
	text = strings.TrimSpace(text)
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	return unescaper.Replace(text)
}
