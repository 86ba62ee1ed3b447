package patcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"héllo", "hello", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b), "%q/%q", tt.a, tt.b)
		assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a), "%q/%q", tt.b, tt.a)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abc", ""))
	assert.InDelta(t, 4.0/7.0, Similarity("kitten", "sitting"), 1e-9)

	samples := []string{"", "a", "return x;", "  return  x ;", "func main() {}", "日本語テキスト"}
	for _, a := range samples {
		assert.Equal(t, 1.0, Similarity(a, a), "%q", a)
		for _, b := range samples {
			ab, ba := Similarity(a, b), Similarity(b, a)
			assert.Equal(t, ab, ba, "%q/%q", a, b)
			assert.GreaterOrEqual(t, ab, 0.0)
			assert.LessOrEqual(t, ab, 1.0)
		}
	}
}
