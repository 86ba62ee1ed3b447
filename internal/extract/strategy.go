package extract

import (
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/sokinpui/recon/internal/parser"
	"github.com/sokinpui/recon/model"
)

// Strategy names, in the order they are tried.
const (
	StrategyEnvelope        = "envelope"
	StrategyDirect          = "direct"
	StrategyFencedBlock     = "fenced_block"
	StrategyProsePrefix     = "prose_prefix"
	StrategyBalancedScan    = "balanced_scan"
	StrategySanitize        = "sanitize_control"
	StrategyUnescape        = "progressive_unescape"
	StrategyJSONRepair      = "json_repair"
	StrategyAlreadyComplete = "already_complete"
)

const maxUnescapeRounds = 3

// textStrategy turns response text into a result, or reports no match.
// Implementations are pure: same text, same answer.
type textStrategy struct {
	name  string
	apply func(e *Extractor, text string) (*model.ReconciliationResult, bool)
}

var textStrategies = []textStrategy{
	{name: StrategyDirect, apply: (*Extractor).direct},
	{name: StrategyFencedBlock, apply: (*Extractor).fencedBlock},
	{name: StrategyProsePrefix, apply: (*Extractor).prosePrefix},
	{name: StrategyBalancedScan, apply: (*Extractor).balancedScan},
	{name: StrategySanitize, apply: (*Extractor).sanitizeControl},
	{name: StrategyUnescape, apply: (*Extractor).progressiveUnescape},
	{name: StrategyJSONRepair, apply: (*Extractor).jsonRepair},
	{name: StrategyAlreadyComplete, apply: (*Extractor).alreadyComplete},
}

// Strategies returns the strategy names in priority order.
func Strategies() []string {
	names := []string{StrategyEnvelope}
	for _, s := range textStrategies {
		names = append(names, s.name)
	}
	return names
}

// firstResult parses each candidate in order and returns the first one
// with the target shape.
func firstResult(candidates ...string) (*model.ReconciliationResult, bool) {
	for _, c := range candidates {
		if r, ok := parseResult(c); ok {
			return r, true
		}
	}
	return nil, false
}

func (e *Extractor) direct(text string) (*model.ReconciliationResult, bool) {
	return firstResult(text)
}

// fencedCandidates returns fenced blocks that mention both keys.
func fencedCandidates(text string) []string {
	var out []string
	for _, block := range parser.FencedBlocks(text) {
		if !parser.IsJSONLang(block.Lang) {
			continue
		}
		if strings.Contains(block.Content, "files") && strings.Contains(block.Content, "summary") {
			out = append(out, block.Content)
		}
	}
	return out
}

func (e *Extractor) fencedBlock(text string) (*model.ReconciliationResult, bool) {
	return firstResult(fencedCandidates(text)...)
}

var leadInRegex = regexp.MustCompile(`(?i)^\s*(?:here(?:'s|\s+is|\s+are)|i(?:'ll|'ve|\s+will|\s+have|\s+generated)|sure|certainly|okay|ok|alright|great|below\s+(?:is|are)|the\s+following|let\s+me)\b`)

// proseRemainder strips a conversational lead-in of bounded length and
// returns the text from the first brace on.
func (e *Extractor) proseRemainder(text string) (string, bool) {
	if !leadInRegex.MatchString(text) {
		return "", false
	}
	idx := strings.IndexByte(text, '{')
	if idx < 0 || idx > e.opts.MaxProsePrefix {
		return "", false
	}
	return text[idx:], true
}

func (e *Extractor) prosePrefix(text string) (*model.ReconciliationResult, bool) {
	rest, ok := e.proseRemainder(text)
	if !ok {
		return nil, false
	}
	candidates := []string{rest}
	if end := strings.LastIndexByte(rest, '}'); end >= 0 && end < len(rest)-1 {
		candidates = append(candidates, rest[:end+1])
	}
	return firstResult(candidates...)
}

func (e *Extractor) balancedScan(text string) (*model.ReconciliationResult, bool) {
	return firstResult(balancedSpans(text)...)
}

// structuralCandidates gathers every span the earlier strategies looked at.
func (e *Extractor) structuralCandidates(text string) []string {
	candidates := []string{strings.TrimSpace(text)}
	candidates = append(candidates, fencedCandidates(text)...)
	if rest, ok := e.proseRemainder(text); ok {
		candidates = append(candidates, rest)
	}
	return append(candidates, balancedSpans(text)...)
}

func sanitizedResult(candidates []string) (*model.ReconciliationResult, bool) {
	for _, c := range candidates {
		clean, changed := sanitizeControlChars(c)
		if !changed {
			continue
		}
		if r, ok := parseResult(clean); ok {
			return r, true
		}
		if r, ok := firstResult(balancedSpans(clean)...); ok {
			return r, true
		}
	}
	return nil, false
}

func (e *Extractor) sanitizeControl(text string) (*model.ReconciliationResult, bool) {
	return sanitizedResult(e.structuralCandidates(text))
}

func (e *Extractor) progressiveUnescape(text string) (*model.ReconciliationResult, bool) {
	current := text
	for round := 0; round < maxUnescapeRounds; round++ {
		next := unescapeOnce(current)
		if next == current {
			return nil, false
		}
		current = next

		candidates := e.structuralCandidates(current)
		if r, ok := firstResult(candidates...); ok {
			return r, true
		}
		if r, ok := sanitizedResult(candidates); ok {
			return r, true
		}
	}
	return nil, false
}

func (e *Extractor) jsonRepair(text string) (*model.ReconciliationResult, bool) {
	if !strings.Contains(text, filesKey) {
		return nil, false
	}

	var bases []string
	bases = append(bases, balancedSpans(text)...)
	// Truncated objects never balance; repair from each brace left open
	// around the key.
	for _, key := range keyEnclosures(text) {
		for _, open := range key.open {
			bases = append(bases, text[open:])
		}
	}
	if idx := strings.Index(text, filesKey); idx >= 0 {
		if open := strings.LastIndexByte(text[:idx], '{'); open >= 0 {
			bases = append(bases, text[open:])
		}
	}

	for _, base := range bases {
		clean, _ := sanitizeControlChars(base)
		repaired, err := jsonrepair.JSONRepair(clean)
		if err != nil {
			continue
		}
		if r, ok := parseResult(repaired); ok {
			return r, true
		}
	}
	return nil, false
}

func (e *Extractor) alreadyComplete(text string) (*model.ReconciliationResult, bool) {
	if strings.Contains(text, filesKey) || !isCompletionNotice(text) {
		return nil, false
	}
	return &model.ReconciliationResult{
		Files:   []model.FileEdit{},
		Summary: completionSummary(text),
	}, true
}
