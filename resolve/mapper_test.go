package resolve

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/match"
	"github.com/teranos/ontomap/ontology"
)

func parisFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.labels.labels["paris"] = []ontology.Label{{URI: ids + "City", Label: "City"}}
	f.labels.labels["france"] = []ontology.Label{{URI: ids + "Country", Label: "Country"}}
	f.score("paris", "city", 0.6)
	f.score("france", "country", 0.7)
	return f
}

func TestMapper_ParisIsTheCapitalOfFrance(t *testing.T) {
	f := parisFixture(t)
	m := NewMapper(f.deps)

	res, err := m.Map(context.Background(), match.Triplet{
		Head: "Paris", Tail: "France", Relations: []string{"capital"}, Confidence: 0.8,
	}, "en")
	require.NoError(t, err)

	assert.Equal(t, ids+"City", res.HeadClass)
	assert.Equal(t, ids+"Country", res.TailClass)
	assert.True(t, strings.Contains(res.Head, "#City_"))
	assert.True(t, strings.Contains(res.Tail, "#Country_"))
	assert.Equal(t, ids+"capital", res.Property)
	assert.Equal(t, "object", res.Kind)
	assert.Equal(t, PropertyMatched, res.Outcome)
	assert.True(t, f.hasTriple(kg.T(res.Head, ids+"capital", kg.IRI(res.Tail))))

	assert.Equal(t, []IndexContent{
		{ID: res.Head, Content: "Paris"},
		{ID: res.Tail, Content: "France"},
		{ID: ids + "capital", Content: "capital"},
	}, res.Index)

	t.Run("second sentence reuses both instances", func(t *testing.T) {
		again, err := m.Map(context.Background(), match.Triplet{
			Head: "Paris", Tail: "France", Relations: []string{"capital"},
		}, "en")
		require.NoError(t, err)
		assert.Equal(t, res.Head, again.Head)
		assert.Equal(t, res.Tail, again.Tail)
		assert.Equal(t, PropertyCached, again.Outcome)
		assert.Equal(t, 2, f.labels.Calls())
	})
}

func TestMapper_LiteralTail(t *testing.T) {
	f := parisFixture(t)
	m := NewMapper(f.deps)

	res, err := m.Map(context.Background(), match.Triplet{
		Head: "Paris", Tail: "2100000", Relations: []string{"population"},
	}, "en")
	require.NoError(t, err)
	assert.Empty(t, res.Tail)
	assert.Equal(t, "2100000", res.Literal)
	assert.Equal(t, "datatype", res.Kind)
	assert.Equal(t, ids+"population", res.Property)
	assert.Len(t, res.Index, 2)
}

func TestMapper_Rejected(t *testing.T) {
	f := parisFixture(t)
	m := NewMapper(f.deps)

	_, err := m.Map(context.Background(), match.Triplet{Head: "Paris", Tail: "FR", Relations: []string{"capital"}}, "en")
	assert.True(t, errors.Is(err, errors.ErrRejected))
	assert.Zero(t, f.labels.Calls())
}

func TestMapper_HeadWithoutClass(t *testing.T) {
	f := newFixture(t)
	m := NewMapper(f.deps)

	_, err := m.Map(context.Background(), match.Triplet{Head: "Something", Tail: "Else", Relations: []string{"relates"}}, "en")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoClass))
	assert.Zero(t, f.graph.Len())
}

func TestMapper_TranslatesRelation(t *testing.T) {
	f := parisFixture(t)
	f.deps.Translator = &fakeTranslator{words: map[string]string{"capital": "capital", "frontera": "border"}}
	m := NewMapper(f.deps)

	res, err := m.Map(context.Background(), match.Triplet{
		Head: "Paris", Tail: "France", Relations: []string{"frontera"},
	}, "es")
	require.NoError(t, err)
	assert.Equal(t, "https://w3id.org/idsa/core/border", res.Property)
	assert.Equal(t, PropertyMinted, res.Outcome)

	t.Run("failure keeps the original text", func(t *testing.T) {
		f.deps.Translator = &fakeTranslator{err: errBoom}
		m := NewMapper(f.deps)
		res, err := m.Map(context.Background(), match.Triplet{
			Head: "Paris", Tail: "France", Relations: []string{"vecino"},
		}, "es")
		require.NoError(t, err)
		assert.Equal(t, "https://w3id.org/idsa/core/vecino", res.Property)
	})
}

func TestMapper_ValidatesTranslatedRelation(t *testing.T) {
	f := parisFixture(t)
	f.deps.Translator = &fakeTranslator{words: map[string]string{"capital de": "Capital of", "de": "o"}}
	m := NewMapper(f.deps)

	for _, relation := range []string{"capital de", "de"} {
		_, err := m.Map(context.Background(), match.Triplet{
			Head: "Paris", Tail: "France", Relations: []string{relation},
		}, "es")
		assert.True(t, errors.Is(err, errors.ErrRejected), "relation %q: %v", relation, err)
	}
	assert.Zero(t, f.labels.Calls())
	assert.Zero(t, f.graph.Len())
}
