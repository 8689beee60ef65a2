package cache

import (
	"fmt"
	"hash/fnv"
)

// ClassBinding is the outcome of class resolution for a text span
type ClassBinding struct {
	ClassURI    string
	OntologyURI string
}

// PropertyMatch is a property chosen for a relation text
type PropertyMatch struct {
	URI   string
	Score float64
}

// ClassProperty is a property known to apply to a class
type ClassProperty struct {
	URI   string
	Label string
	Range string
}

// Registry groups the caches shared by the resolvers
type Registry struct {
	Predictions       *Store[ClassBinding] // text or NER label -> class
	Properties        *Store[PropertyMatch]
	TitleURIs         *Store[string] // title -> instance URI
	EntityPredictions *Store[string] // text -> NER type
	ClassColors       *Store[string] // class URI -> "#rrggbb"
	DatatypeProps     *Store[[]ClassProperty]
	ObjectProps       *Store[[]ClassProperty]
	MetadataKeys      *Store[PropertyMatch] // metadata key -> property
}

// NewRegistry creates empty caches
func NewRegistry() *Registry {
	return &Registry{
		Predictions:       NewStore[ClassBinding]("prediction"),
		Properties:        NewStore[PropertyMatch]("property"),
		TitleURIs:         NewStore[string]("title_uri"),
		EntityPredictions: NewStore[string]("entity_prediction"),
		ClassColors:       NewStore[string]("class_color"),
		DatatypeProps:     NewStore[[]ClassProperty]("datatype_props"),
		ObjectProps:       NewStore[[]ClassProperty]("object_props"),
		MetadataKeys:      NewStore[PropertyMatch]("metadata_key"),
	}
}

// StoreStats is a snapshot of one store for reporting
type StoreStats struct {
	Name   string
	Size   int
	Hits   int64
	Misses int64
}

// Stats reports every store in a fixed order
func (r *Registry) Stats() []StoreStats {
	return []StoreStats{
		statsOf(r.Predictions),
		statsOf(r.Properties),
		statsOf(r.TitleURIs),
		statsOf(r.EntityPredictions),
		statsOf(r.ClassColors),
		statsOf(r.DatatypeProps),
		statsOf(r.ObjectProps),
		statsOf(r.MetadataKeys),
	}
}

func statsOf[V any](s *Store[V]) StoreStats {
	hits, misses := s.Stats()
	return StoreStats{Name: s.Name(), Size: s.Len(), Hits: hits, Misses: misses}
}

// AppendClassProperty records p under class in the datatype or object cache,
// skipping URIs already present.
func (r *Registry) AppendClassProperty(object bool, class string, p ClassProperty) {
	store := r.DatatypeProps
	if object {
		store = r.ObjectProps
	}
	store.Update(class, func(current []ClassProperty, _ bool) []ClassProperty {
		for _, existing := range current {
			if existing.URI == p.URI {
				return current
			}
		}
		next := make([]ClassProperty, len(current), len(current)+1)
		copy(next, current)
		return append(next, p)
	})
}

// ColorFor returns a stable display colour for a class URI
func (r *Registry) ColorFor(classURI string) string {
	color, _ := r.ClassColors.GetOrCreate(classURI, func() (string, error) {
		return classColor(classURI), nil
	})
	return color
}

// classColor hashes the URI into a mid-brightness RGB triple so labels stay
// readable on dark and light terminals.
func classColor(uri string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(uri))
	sum := h.Sum32()
	r := 64 + (sum>>16)&0xff%160
	g := 64 + (sum>>8)&0xff%160
	b := 64 + sum&0xff%160
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
