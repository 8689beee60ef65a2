package resolve

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/ontomap/cache"
	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/logger"
	"github.com/teranos/ontomap/ontology"
)

// Outcome says how a property was chosen
type Outcome string

const (
	PropertyCached  Outcome = "cached"
	PropertyMatched Outcome = "matched"
	PropertyMinted  Outcome = "minted"
)

// Assertion is a property chosen for a relation and the triple written with it
type Assertion struct {
	Property string
	Kind     ontology.PropertyKind
	Outcome  Outcome
	Score    float64
	Triple   kg.Triple
}

// PropertyResolver picks or mints the property for a relation and writes the
// resulting triple.
type PropertyResolver struct {
	d      Deps
	logger *zap.SugaredLogger
}

// NewPropertyResolver creates a property resolver
func NewPropertyResolver(d Deps) *PropertyResolver {
	d = d.withDefaults()
	return &PropertyResolver{d: d, logger: d.Logger.Named("property")}
}

// Object links two instances. Either side must belong to the main ontology;
// a minted property goes to the main side, the head when both are.
func (r *PropertyResolver) Object(ctx context.Context, relation string, head, tail Resolution, headURI, tailURI string) (Assertion, error) {
	main := r.d.Ontologies.Main
	if head.Ontology != main && tail.Ontology != main {
		return Assertion{}, errors.Wrapf(errors.ErrForeignOntology, "%s -> %s", head.Class, tail.Class)
	}

	populating := head.Ontology
	if populating != main {
		populating = tail.Ontology
	}

	a, err := r.choose(ctx, ontology.Object, relation, head, populating, tail.Class)
	if err != nil {
		return Assertion{}, err
	}
	a.Triple = kg.T(headURI, a.Property, kg.IRI(tailURI))
	r.d.Graph.Add(a.Triple)
	return a, nil
}

// Datatype attaches a literal to an instance. The head must belong to the
// main ontology. Minted properties take the literal's inferred XSD type as
// range, and the literal is written with that datatype.
func (r *PropertyResolver) Datatype(ctx context.Context, relation string, head Resolution, headURI, literal string) (Assertion, error) {
	if head.Ontology != r.d.Ontologies.Main {
		return Assertion{}, errors.Wrapf(errors.ErrForeignOntology, "%s", head.Class)
	}

	datatype := kg.InferDatatype(literal)
	a, err := r.choose(ctx, ontology.Datatype, relation, head, head.Ontology, datatype)
	if err != nil {
		return Assertion{}, err
	}
	a.Triple = kg.T(headURI, a.Property, kg.TypedLiteral(literal, datatype))
	r.d.Graph.Add(a.Triple)
	return a, nil
}

func (r *PropertyResolver) choose(ctx context.Context, kind ontology.PropertyKind, relation string, head Resolution, populating *ontology.Ontology, rng string) (Assertion, error) {
	relation = strings.TrimSpace(relation)
	if relation == "" {
		return Assertion{}, errors.Wrap(errors.ErrNoProperty, "empty relation")
	}

	key := kind.String() + ":" + relation
	if m, ok := r.d.Caches.Properties.Get(key); ok {
		r.d.Observer.ObserveResolution(StepProperty, string(PropertyCached))
		return Assertion{Property: m.URI, Kind: kind, Outcome: PropertyCached, Score: m.Score}, nil
	}

	props := ClassProperties(r.d.Caches, head.Ontology, head.Class, kind)
	if len(props) > 0 {
		names := make([]string, len(props))
		for i, p := range props {
			names[i] = p.Label
		}
		idx, score, err := r.d.Scorer.BestMatch(ctx, relation, names)
		if err != nil {
			return Assertion{}, err
		}
		if idx >= 0 && score > r.d.Tuning.Load().PropertySimilarity {
			m, _ := r.d.Caches.Properties.SetIfAbsent(key, cache.PropertyMatch{URI: props[idx].URI, Score: score})
			r.d.Observer.ObserveResolution(StepProperty, string(PropertyMatched))
			r.logger.Debugw("Matched property",
				logger.FieldRelation, relation,
				logger.FieldProperty, m.URI,
				logger.FieldScore, score)
			return Assertion{Property: m.URI, Kind: kind, Outcome: PropertyMatched, Score: m.Score}, nil
		}
	}

	uri := populating.PropertyURI(relation)
	r.d.Graph.AddAll(populating.AddProperty(uri, kind, head.Class, rng))
	r.d.Caches.AppendClassProperty(kind == ontology.Object, head.Class, cache.ClassProperty{
		URI:   uri,
		Label: ontology.NormalizeLabel(uri),
		Range: rng,
	})
	r.d.Observer.ObserveResolution(StepProperty, string(PropertyMinted))
	r.logger.Infow("Minted property",
		logger.FieldRelation, relation,
		logger.FieldProperty, uri,
		logger.FieldOntology, populating.URI,
		"kind", kind.String())
	return Assertion{Property: uri, Kind: kind, Outcome: PropertyMinted}, nil
}

// ClassProperties returns the cached datatype or object properties of a
// class, loading them from o on first use.
func ClassProperties(caches *cache.Registry, o *ontology.Ontology, classURI string, kind ontology.PropertyKind) []cache.ClassProperty {
	store := caches.DatatypeProps
	if kind == ontology.Object {
		store = caches.ObjectProps
	}
	props, _ := store.GetOrCreate(classURI, func() ([]cache.ClassProperty, error) {
		var out []cache.ClassProperty
		for _, p := range o.PropertiesOf(classURI, kind) {
			out = append(out, cache.ClassProperty{URI: p.URI, Label: p.Name, Range: p.Range})
		}
		return out, nil
	})
	return props
}
