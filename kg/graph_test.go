package kg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ex = "http://example.org/onto#"

func TestGraphAdd(t *testing.T) {
	g := NewGraph()

	assert.True(t, g.Add(T(ex+"paris", RDFType, IRI(ex+"City"))))
	assert.False(t, g.Add(T(ex+"paris", RDFType, IRI(ex+"City"))), "duplicate")
	assert.False(t, g.Add(T("", RDFType, IRI(ex+"City"))), "malformed")
	assert.Equal(t, 1, g.Len())
	assert.True(t, g.Has(T(ex+"paris", RDFType, IRI(ex+"City"))))
}

func TestGraphLookups(t *testing.T) {
	g := NewGraph()
	added := g.AddAll([]Triple{
		T(ex+"paris", RDFType, IRI(ex+"City")),
		T(ex+"paris", DCTermsTitle, Literal("Paris")),
		T(ex+"paris", DCTermsTitle, LangLiteral("París", "es")),
		T(ex+"lyon", RDFType, IRI(ex+"City")),
		T(ex+"france", RDFType, IRI(ex+"Country")),
		T(ex+"paris", ex+"capitalOf", IRI(ex+"france")),
	})
	require.Equal(t, 6, added)

	subjects := g.Subjects(IRI(RDFType), IRI(ex+"City"))
	require.Len(t, subjects, 2)
	assert.Equal(t, ex+"paris", subjects[0].Value)
	assert.Equal(t, ex+"lyon", subjects[1].Value)

	titles := g.Objects(IRI(ex+"paris"), IRI(DCTermsTitle))
	require.Len(t, titles, 2)
	assert.Equal(t, "Paris", titles[0].Value)

	po := g.PredicateObjects(IRI(ex + "paris"))
	require.Len(t, po, 4)
	assert.Equal(t, RDFType, po[0].Predicate.Value, "insertion order")

	typed := g.SubjectsWithPredicate(IRI(RDFType))
	assert.Len(t, typed, 3)
}

func TestGraphInstancesOf(t *testing.T) {
	g := NewGraph()
	g.AddAll([]Triple{
		T(ex+"paris", RDFType, IRI(ex+"City")),
		T(ex+"paris", DCTermsTitle, Literal("Paris")),
		T(ex+"lyon", RDFType, IRI(ex+"City")),
		T(ex+"lyon", DCTermsTitle, IRI(ex+"notALiteral")),
	})

	instances := g.InstancesOf(ex + "City")
	require.Len(t, instances, 2)
	assert.Equal(t, Instance{URI: ex + "paris", Titles: []string{"Paris"}}, instances[0])
	assert.Equal(t, ex+"lyon", instances[1].URI)
	assert.Empty(t, instances[1].Titles)
	assert.Empty(t, g.InstancesOf(ex+"Country"))
}

func TestGraphMerge(t *testing.T) {
	a := NewGraph()
	a.Add(T(ex+"a", RDFType, IRI(ex+"C")))
	b := NewGraph()
	b.Add(T(ex+"a", RDFType, IRI(ex+"C")))
	b.Add(T(ex+"b", RDFType, IRI(ex+"C")))

	assert.Equal(t, 1, a.Merge(b))
	assert.Equal(t, 2, a.Len())
}
