package parser

import (
	"regexp"
	"strings"
)

// fenceRegex is the fallback for fences the markdown parser does not treat
// as code blocks, such as "```json{...}```" written on a single line.
var fenceRegex = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)[ \\t]*\\n?(.*?)```")

// FencedBlocks returns every fenced block in text, markdown code blocks
// first and regex-only matches after them, without duplicates.
func FencedBlocks(text string) []CodeBlock {
	if !strings.Contains(text, "```") {
		return nil
	}

	blocks, err := ExtractCodeBlocks([]byte(text))
	if err != nil {
		blocks = nil
	}

	seen := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		seen[strings.TrimSpace(b.Content)] = struct{}{}
	}

	for _, m := range fenceRegex.FindAllStringSubmatch(text, -1) {
		content := m[2]
		key := strings.TrimSpace(content)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		blocks = append(blocks, CodeBlock{Lang: strings.ToLower(m[1]), Content: content})
	}
	return blocks
}

// IsJSONLang reports whether a fence language tag may hold JSON.
func IsJSONLang(lang string) bool {
	switch lang {
	case "", "json", "jsonc", "json5", "javascript", "js":
		return true
	}
	return false
}
