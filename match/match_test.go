package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/ontomap/errors"
)

type fixedParser struct {
	doc Doc
	err error
}

func (p *fixedParser) Parse(context.Context, string, string) (Doc, error) { return p.doc, p.err }

// expandingEncoder turns a word-level matrix into sub-token attention: words
// listed in split get two sub-tokens, two identical heads, and boundary
// tokens on both ends. Compression recovers the word matrix exactly.
type expandingEncoder struct {
	words [][]float64
	split map[int]bool
	calls int
}

func (e *expandingEncoder) Encode(_ context.Context, words []string) (Encoding, error) {
	e.calls++
	var ids []int
	for w := range words {
		ids = append(ids, w)
		if e.split[w] {
			ids = append(ids, w)
		}
	}
	n := len(ids) + 2
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			switch {
			case i == 0 || j == 0 || i == n-1 || j == n-1:
				m[i][j] = 0.99
			default:
				m[i][j] = e.words[ids[i-1]][ids[j-1]]
			}
		}
	}
	return Encoding{Attentions: [][][][]float64{{m, m}}, WordIDs: ids}, nil
}

func parisScenario() (*fixedParser, *expandingEncoder) {
	parser := &fixedParser{doc: Doc{
		Tokens: []string{"Paris", "is", "the", "capital", "of", "France"},
		Chunks: []Span{{Start: 0, End: 1, Text: "Paris"}, {Start: 5, End: 6, Text: "France"}},
	}}

	a := uniform(6, 0.05)
	a[0][1], a[1][5] = 0.2, 0.3
	a[0][2], a[2][5] = 0.1, 0.1
	a[0][3], a[3][5] = 0.25, 0.4
	a[0][4], a[4][5] = 0.15, 0.2
	return parser, &expandingEncoder{words: a, split: map[int]bool{0: true, 3: true}}
}

func newTestMatcher(t *testing.T, parser Parser, encoder Encoder) *Matcher {
	t.Helper()
	lem := &mapLemmatizer{lemmas: map[string]string{"is": "be"}}
	filter, err := NewFilter(lem, []string{"en"}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	cfg := Config{
		Layer:         LayerOptions{LayerIndex: 0, AvgHeads: true, Trim: true},
		MinPathLength: DefaultMinPathLength,
		Workers:       2,
	}
	return NewMatcher(parser, encoder, filter, cfg, zaptest.NewLogger(t).Sugar())
}

func TestMatchParisCapitalOfFrance(t *testing.T) {
	parser, encoder := parisScenario()
	m := newTestMatcher(t, parser, encoder)

	triplets, err := m.Match(context.Background(), "Paris is the capital of France", "en")
	require.NoError(t, err)

	require.Len(t, triplets, 1)
	assert.Equal(t, "Paris", triplets[0].Head)
	assert.Equal(t, "France", triplets[0].Tail)
	assert.Equal(t, []string{"capital"}, triplets[0].Relations)
	assert.InDelta(t, 0.25+0.4, triplets[0].Confidence, 1e-12)
}

func TestMatchGraphCompressesToWords(t *testing.T) {
	parser, encoder := parisScenario()
	m := newTestMatcher(t, parser, encoder)

	g, words, err := m.Graph(context.Background(), "Paris is the capital of France", "en")
	require.NoError(t, err)
	assert.Equal(t, 6, g.Size())
	assert.Len(t, words.Texts, 6)
	assert.InDelta(t, 0.4, g.Successors(3)[1].Weight, 1e-12, "edge 3->5")
}

func TestMatchSingleChunk(t *testing.T) {
	parser := &fixedParser{doc: Doc{
		Tokens: []string{"Paris", "sleeps"},
		Chunks: []Span{{Start: 0, End: 1, Text: "Paris"}},
	}}
	encoder := &expandingEncoder{words: uniform(2, 0.5)}
	m := newTestMatcher(t, parser, encoder)

	triplets, err := m.Match(context.Background(), "Paris sleeps", "en")
	require.NoError(t, err)
	assert.Empty(t, triplets)
}

func TestMatchParserFailure(t *testing.T) {
	parser := &fixedParser{err: errors.New("connection refused")}
	encoder := &expandingEncoder{}
	m := newTestMatcher(t, parser, encoder)

	_, err := m.Match(context.Background(), "Paris is the capital of France", "en")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrServiceUnavailable))
	assert.Zero(t, encoder.calls)
}

func TestMatchEncoderWordMapMismatch(t *testing.T) {
	parser, _ := parisScenario()
	bad := &badEncoder{}
	m := newTestMatcher(t, parser, bad)

	_, err := m.Match(context.Background(), "Paris is the capital of France", "en")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

type badEncoder struct{}

func (badEncoder) Encode(context.Context, []string) (Encoding, error) {
	m := uniform(5, 0.1)
	return Encoding{Attentions: [][][][]float64{{m}}, WordIDs: []int{0, 1}}, nil
}
