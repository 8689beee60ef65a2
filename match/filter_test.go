package match

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/ontomap/errors"
)

// mapLemmatizer lowercases tokens and applies a fixed lemma table
type mapLemmatizer struct {
	lemmas map[string]string
	fail   map[string]bool
}

func (l *mapLemmatizer) Lemma(_ context.Context, token, _ string) (string, error) {
	if l.fail[token] {
		return "", errors.New("lemmatizer down")
	}
	if lemma, ok := l.lemmas[strings.ToLower(token)]; ok {
		return lemma, nil
	}
	return strings.ToLower(token), nil
}

func newTestFilter(t *testing.T, lem Lemmatizer) *Filter {
	t.Helper()
	f, err := NewFilter(lem, []string{"en", "es"}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return f
}

func TestLoadStopwords(t *testing.T) {
	en, err := LoadStopwords("en")
	require.NoError(t, err)
	for _, w := range []string{"and", "The", "be", "of", "#", ","} {
		assert.True(t, en.Contains(w), w)
	}
	assert.False(t, en.Contains("capital"))
	assert.False(t, en.Contains("# characters"), "comment lines are skipped")

	es, err := LoadStopwords("es")
	require.NoError(t, err)
	assert.True(t, es.Contains("de"))
	assert.False(t, es.Contains("capital"))

	_, err = LoadStopwords("fr")
	assert.True(t, errors.Is(err, errors.ErrUnsupportedLanguage))
}

func TestFilterApply(t *testing.T) {
	words := Words{
		Texts:  []string{"Paris", "is", "and", "2019", "capital", "It", "France"},
		Chunks: []int{0, 5, 6},
	}
	lem := &mapLemmatizer{lemmas: map[string]string{"is": "be"}, fail: map[string]bool{}}
	f := newTestFilter(t, lem)
	ctx := context.Background()

	tests := []struct {
		name  string
		nodes []int
		lang  string
		ok    bool
	}{
		{"valid relation", []int{0, 4, 6}, "en", true},
		{"copula lemmatizes to stopword", []int{0, 1, 6}, "en", false},
		{"conjunction relation", []int{0, 2, 6}, "en", false},
		{"numeric relation", []int{0, 3, 6}, "en", false},
		{"stopword head", []int{5, 4, 6}, "en", false},
		{"tail out of range", []int{0, 4, 9}, "en", false},
		{"no relation tokens", []int{0, 6}, "en", false},
		{"unknown language", []int{0, 4, 6}, "fr", false},
		{"spanish", []int{0, 4, 6}, "es", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			triplet, ok := f.Apply(ctx, Path{Nodes: tt.nodes, Confidence: 0.5}, words, tt.lang)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, Triplet{Head: "Paris", Tail: "France", Relations: []string{"capital"}, Confidence: 0.5}, triplet)
			}
		})
	}
}

func TestFilterLemmatizerFailure(t *testing.T) {
	words := Words{Texts: []string{"Paris", "capital", "France"}, Chunks: []int{0, 2}}
	lem := &mapLemmatizer{fail: map[string]bool{"capital": true}}
	f := newTestFilter(t, lem)

	_, ok := f.Apply(context.Background(), Path{Nodes: []int{0, 1, 2}}, words, "en")
	assert.False(t, ok)
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, isNumeric("2019"))
	assert.True(t, isNumeric("٣"))
	assert.False(t, isNumeric("3rd"))
	assert.False(t, isNumeric(""))
}
