package patcher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/recon/internal/metrics"
	"github.com/sokinpui/recon/model"
)

func TestMatchExact(t *testing.T) {
	file := "a := 1\nb := 2\nc := 3\nb := 2\n"

	res, err := Match(file, model.Patch{Search: "b := 2\n", Replace: "b := 20\n"})
	require.NoError(t, err)
	assert.Equal(t, model.MatchExact, res.Strategy)
	assert.Equal(t, 1.0, res.Similarity)
	assert.Equal(t, 1, res.MatchedStart)
	assert.Equal(t, 1, res.MatchedEnd)
	assert.Equal(t, 7, res.Start, "first occurrence wins")
	assert.Equal(t, 14, res.End)
}

func TestMatchEmptySearch(t *testing.T) {
	for _, search := range []string{"", "  \n\t"} {
		_, err := Match("anything", model.Patch{Search: search, Replace: "x"})
		assert.ErrorIs(t, err, ErrEmptySearch)
	}
}

func TestMatchFuzzyWhitespaceCRLF(t *testing.T) {
	block := "function foo() {\n  return 1;\n}"
	file := "// header\n" + block + "\n// footer\n"
	patch := model.Patch{
		Search:  "function foo() {\r\n  return 1;\r\n}",
		Replace: "function foo() {\n  return 2;\n}",
	}

	res, err := Match(file, patch)
	require.NoError(t, err)
	assert.Equal(t, model.MatchFuzzyWhitespace, res.Strategy)
	assert.Equal(t, 1, res.MatchedStart)
	assert.Equal(t, 3, res.MatchedEnd)

	out, results, err := Apply(file, []model.Patch{patch})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "// header\nfunction foo() {\n  return 2;\n}\n// footer\n", out)
}

func TestMatchFuzzyWhitespaceExactFile(t *testing.T) {
	file := "function foo() {\n  return 1;\n}"
	patch := model.Patch{Search: "function foo() {\r\n  return 1;\r\n}", Replace: "function foo() {\n  return 3;\n}"}

	out, _, err := Apply(file, []model.Patch{patch})
	require.NoError(t, err)
	assert.Equal(t, "function foo() {\n  return 3;\n}", out)
}

func TestMatchFuzzyWhitespaceIndentAndBlankLines(t *testing.T) {
	file := "package main\n\nfunc main() {\n\tfmt.Println(\"hello world\")\n\n\treturn\n}\n"
	search := "func main() {\n    fmt.Println(\"hello world\")\n    return\n}"

	res, err := Match(file, model.Patch{Search: search, Replace: "func main() {}"})
	require.NoError(t, err)
	assert.Equal(t, model.MatchFuzzyWhitespace, res.Strategy)
	assert.Equal(t, 2, res.MatchedStart)
	assert.Equal(t, 6, res.MatchedEnd)
	assert.Equal(t, 1.0, res.Similarity)

	out, _, err := Apply(file, []model.Patch{{Search: search, Replace: "func main() {}\n"}})
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nfunc main() {}\n", out)
}

func TestMatchFuzzyWhitespacePartialCoverage(t *testing.T) {
	file := "func handler(w http.ResponseWriter) {\n" +
		"\tw.WriteHeader(http.StatusOK)\n" +
		"\tw.Write([]byte(\"ok\"))\n" +
		"\tlog.Println(\"served request\")\n" +
		"}\n"
	search := "func handler(w http.ResponseWriter) {\n" +
		"  w.WriteHeader(http.StatusOK)\n" +
		"  w.Write([]byte(\"ok\"))\n" +
		"  metrics.Inc(\"requests_total_counter\")\n" +
		"}"

	res, err := Match(file, model.Patch{Search: search, Replace: "x"})
	require.NoError(t, err)
	assert.Equal(t, model.MatchFuzzyWhitespace, res.Strategy)
	assert.InDelta(t, 0.8, res.Similarity, 1e-9)
	assert.Equal(t, 0, res.MatchedStart)
	assert.Equal(t, 4, res.MatchedEnd)
}

func TestMatchFuzzySkipsShortFirstLine(t *testing.T) {
	m := New(Options{})
	_, ok := m.fuzzyWhitespace(splitLines("}\n  x = 1\n"), "}\n x  = 1")
	assert.False(t, ok)
}

func TestMatchAnchoredAggressive(t *testing.T) {
	file := "const a = 1;\n" +
		"\n" +
		"export function greet(name) {\n" +
		"  const msg = \"Hello, \" + name;\n" +
		"  console.log(msg);\n" +
		"  return msg;\n" +
		"}\n" +
		"\n" +
		"greet(\"bob\");\n"
	search := "function greet(person) {\n" +
		"  const message = \"Hello, \" + person;\n" +
		"  console.log(message);\n" +
		"  return message;\n" +
		"}"
	replace := "function greet(person) {\n  return \"Hi \" + person;\n}"

	res, err := Match(file, model.Patch{Search: search, Replace: replace})
	require.NoError(t, err)
	assert.Equal(t, model.MatchAnchoredAggressive, res.Strategy)
	assert.Equal(t, 2, res.MatchedStart)
	assert.Equal(t, 6, res.MatchedEnd)
	assert.Greater(t, res.Similarity, DefaultAnchorThreshold)

	out, _, err := Apply(file, []model.Patch{{Search: search, Replace: replace}})
	require.NoError(t, err)
	assert.Equal(t, "const a = 1;\n\n"+replace+"\n\ngreet(\"bob\");\n", out)
}

func TestMatchLowConfidence(t *testing.T) {
	file := "// compute is used elsewhere\nlet total = compute;\n"
	search := "function compute(values, weights) {\n" +
		"  const acc = values.reduce((s, v, i) => s + v * weights[i], 0);\n" +
		"  return acc / weights.length;\n" +
		"}"

	_, err := Match(file, model.Patch{Search: search, Replace: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPatchNotFound)

	var matchErr *MatchError
	require.True(t, errors.As(err, &matchErr))
	assert.Equal(t, LowConfidence, matchErr.Kind)
	assert.Greater(t, matchErr.BestScore, 0.0)
	assert.LessOrEqual(t, matchErr.BestScore, DefaultAnchorThreshold)
}

func TestMatchBoundaryLines(t *testing.T) {
	file := "start of the block here\nmiddle one\nmiddle two\nend of the block here\n"
	search := "start of the block here!\nsomething else\nentirely different\nend of the block here."

	res, err := Match(file, model.Patch{Search: search, Replace: "x"})
	require.NoError(t, err)
	assert.Equal(t, model.MatchAnchoredAggressive, res.Strategy)
	assert.Equal(t, 0, res.MatchedStart)
	assert.Equal(t, 3, res.MatchedEnd)
}

func TestMatchNotFoundLeavesFileUnmodified(t *testing.T) {
	file := "package main\n\nfunc main() {}\n"
	patches := []model.Patch{
		{Search: "func main() {}", Replace: "func main() { run() }"},
		{Search: "completely unrelated text here\nnothing alike at all", Replace: "x"},
	}

	out, results, err := Apply(file, patches)
	require.Error(t, err)
	assert.Equal(t, file, out)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, ErrPatchNotFound)

	var patchErr *PatchError
	require.True(t, errors.As(err, &patchErr))
	assert.Equal(t, 1, patchErr.Index)

	var matchErr *MatchError
	require.True(t, errors.As(err, &matchErr))
	assert.Equal(t, NotFound, matchErr.Kind)
}

func TestApplySequential(t *testing.T) {
	file := "one\ntwo\nthree\n"
	out, results, err := Apply(file, []model.Patch{
		{Search: "two", Replace: "2"},
		{Search: "one\n2", Replace: "1\n2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1\n2\nthree\n", out)
	assert.Len(t, results, 2)
}

func TestApplyDeletionRemovesWholeLines(t *testing.T) {
	greet := "const a = 1;\n" +
		"\n" +
		"export function greet(name) {\n" +
		"  const msg = \"Hello, \" + name;\n" +
		"  console.log(msg);\n" +
		"  return msg;\n" +
		"}\n" +
		"\n" +
		"greet(\"bob\");\n"

	tests := []struct {
		name     string
		file     string
		patch    model.Patch
		strategy model.MatchStrategy
		want     string
	}{
		{
			name:     "exact",
			file:     "a\nfunction foo() {\n  return 1;\n}\nb\n",
			patch:    model.Patch{Search: "function foo() {\n  return 1;\n}\n"},
			strategy: model.MatchExact,
			want:     "a\nb\n",
		},
		{
			name:     "fuzzy",
			file:     "a\nfunction foo() {\n  return 1;\n}\nb\n",
			patch:    model.Patch{Search: "function foo() {\r\n  return 1;\r\n}"},
			strategy: model.MatchFuzzyWhitespace,
			want:     "a\nb\n",
		},
		{
			name:     "fuzzy newline-only replacement",
			file:     "a\nfunction foo() {\n  return 1;\n}\nb\n",
			patch:    model.Patch{Search: "function foo() {\r\n  return 1;\r\n}", Replace: "\n"},
			strategy: model.MatchFuzzyWhitespace,
			want:     "a\nb\n",
		},
		{
			name:     "fuzzy in a CRLF file",
			file:     "a\r\nfunction foo() {\r\n  return 1;\r\n}\r\nb\r\n",
			patch:    model.Patch{Search: "function foo() {\n  return 1;\n}"},
			strategy: model.MatchFuzzyWhitespace,
			want:     "a\r\nb\r\n",
		},
		{
			name:     "last line without a break",
			file:     "a\nfunction foo() {\n  return 1;\n}",
			patch:    model.Patch{Search: "function foo() {\r\n  return 1;\r\n}"},
			strategy: model.MatchFuzzyWhitespace,
			want:     "a\n",
		},
		{
			name: "anchored",
			file: greet,
			patch: model.Patch{Search: "function greet(person) {\n" +
				"  const message = \"Hello, \" + person;\n" +
				"  console.log(message);\n" +
				"  return message;\n" +
				"}"},
			strategy: model.MatchAnchoredAggressive,
			want:     "const a = 1;\n\n\ngreet(\"bob\");\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, results, err := Apply(tt.file, []model.Patch{tt.patch})
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, tt.strategy, results[0].Strategy)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestMatchReportsToSink(t *testing.T) {
	tally := metrics.NewTally()
	m := New(Options{Sink: tally})

	_, err := m.Match("alpha beta", model.Patch{Search: "beta", Replace: "gamma"})
	require.NoError(t, err)
	_, err = m.Match("alpha beta", model.Patch{Search: "nothing like it at all", Replace: "x"})
	require.Error(t, err)

	assert.Equal(t, 1, tally.Matches()[string(model.MatchExact)])
	_, misses := tally.Failures()
	assert.Equal(t, 1, misses)
}

func TestDeclarationName(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"export async function loadUser(id) {", "loadUser"},
		{"func (s *Server) Serve(ctx context.Context) error {", "Serve"},
		{"public static void main(String[] args) {", "void"},
		{"type Config struct {", "Config"},
		{"class Widget extends Base {", "Widget"},
		{"def handle(self):", "handle"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			name, idx, ok := declarationName([]string{"// leading", tt.line})
			require.True(t, ok)
			assert.Equal(t, tt.want, name)
			assert.Equal(t, 1, idx)
		})
	}

	_, _, ok := declarationName([]string{"x = y + 1", "return x"})
	assert.False(t, ok)
}
