package metadata

import (
	"bytes"
	"context"
	_ "embed"

	"github.com/teranos/ontomap/am"
	"github.com/teranos/ontomap/cache"
	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/ontology"
	"github.com/teranos/ontomap/resolve"
)

//go:embed dcat.ttl
var dcatVocabulary []byte

// queryKeyPrefix keeps metadata queries apart from sentence text in the
// prediction cache
const queryKeyPrefix = "metadata:"

func queryKey(query string) string { return queryKeyPrefix + query }

// Strategy picks the class of a metadata record and the properties its keys
// may map to.
type Strategy interface {
	Name() string
	Class(ctx context.Context, query string) (string, error)
	Properties(classURI string, kind ontology.PropertyKind) []cache.ClassProperty
}

// DefaultStrategy maps records onto the main ontology. The class is the one
// most similar to the query.
type DefaultStrategy struct {
	ontology *ontology.Ontology
	matcher  ontology.Matcher
	caches   *cache.Registry
}

// NewDefaultStrategy creates the ontology-backed strategy
func NewDefaultStrategy(o *ontology.Ontology, m ontology.Matcher, caches *cache.Registry) *DefaultStrategy {
	return &DefaultStrategy{ontology: o, matcher: m, caches: caches}
}

func (s *DefaultStrategy) Name() string { return am.StrategyDefault }

// Class resolves query through the prediction cache, then by similarity
func (s *DefaultStrategy) Class(ctx context.Context, query string) (string, error) {
	if b, ok := s.caches.Predictions.Get(queryKey(query)); ok {
		return b.ClassURI, nil
	}
	c, _, err := s.ontology.MostSimilarClass(ctx, s.matcher, query)
	if err != nil {
		return "", errors.Wrapf(err, "class for %q", query)
	}
	if c.URI == "" {
		return "", errors.Wrapf(errors.ErrNoClass, "class for %q", query)
	}
	b, _ := s.caches.Predictions.SetIfAbsent(queryKey(query), cache.ClassBinding{ClassURI: c.URI, OntologyURI: s.ontology.URI})
	return b.ClassURI, nil
}

func (s *DefaultStrategy) Properties(classURI string, kind ontology.PropertyKind) []cache.ClassProperty {
	return resolve.ClassProperties(s.caches, s.ontology, classURI, kind)
}

// DCATStrategy maps every record to dcat:Dataset with properties drawn from
// the DCAT and DCTERMS vocabularies.
type DCATStrategy struct {
	vocabulary *ontology.Ontology
}

// NewDCATStrategy loads the embedded DCAT vocabulary
func NewDCATStrategy() (*DCATStrategy, error) {
	triples, err := kg.Decode(bytes.NewReader(dcatVocabulary), kg.FormatTurtle)
	if err != nil {
		return nil, errors.Wrap(err, "decode dcat vocabulary")
	}
	g := kg.NewGraph()
	g.AddAll(triples)
	return &DCATStrategy{vocabulary: ontology.New(kg.NamespaceDCAT, g)}, nil
}

func (s *DCATStrategy) Name() string { return am.StrategyDCAT }

func (s *DCATStrategy) Class(context.Context, string) (string, error) {
	return kg.DCATDataset, nil
}

func (s *DCATStrategy) Properties(classURI string, kind ontology.PropertyKind) []cache.ClassProperty {
	var out []cache.ClassProperty
	for _, p := range s.vocabulary.PropertiesOf(classURI, kind) {
		out = append(out, cache.ClassProperty{URI: p.URI, Label: p.Name, Range: p.Range})
	}
	return out
}

// NewStrategy returns the strategy named by mapping.strategy
func NewStrategy(name string, main *ontology.Ontology, m ontology.Matcher, caches *cache.Registry) (Strategy, error) {
	switch name {
	case "", am.StrategyDefault:
		return NewDefaultStrategy(main, m, caches), nil
	case am.StrategyDCAT:
		return NewDCATStrategy()
	default:
		return nil, errors.NewInvalidInputError("unknown mapping strategy %q", name)
	}
}
