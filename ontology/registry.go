package ontology

import (
	"sort"
	"strings"

	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/kg"
)

// Source locates an ontology file
type Source struct {
	URI    string
	Path   string
	Format kg.Format
}

// Registry holds the main ontology being populated and secondary ontologies
// keyed by the NER type they cover.
type Registry struct {
	Main      *Ontology
	secondary map[string]*Ontology
}

// NewRegistry wraps already loaded ontologies. Secondary keys are
// case-insensitive.
func NewRegistry(main *Ontology, secondary map[string]*Ontology) *Registry {
	r := &Registry{Main: main, secondary: make(map[string]*Ontology, len(secondary))}
	for k, o := range secondary {
		r.secondary[strings.ToLower(k)] = o
	}
	return r
}

// LoadRegistry loads the main ontology and every secondary one
func LoadRegistry(main Source, secondary map[string]Source) (*Registry, error) {
	m, err := Load(main.URI, main.Path, main.Format)
	if err != nil {
		return nil, err
	}

	loaded := make(map[string]*Ontology, len(secondary))
	for nerType, src := range secondary {
		o, err := Load(src.URI, src.Path, src.Format)
		if err != nil {
			return nil, errors.Wrapf(err, "secondary ontology for %s", nerType)
		}
		loaded[nerType] = o
	}
	return NewRegistry(m, loaded), nil
}

// Secondary returns the ontology registered for a NER type
func (r *Registry) Secondary(nerType string) (*Ontology, bool) {
	o, ok := r.secondary[strings.ToLower(nerType)]
	return o, ok
}

// ByURI returns the loaded ontology with the given URI
func (r *Registry) ByURI(uri string) (*Ontology, bool) {
	for _, o := range r.All() {
		if o.URI == uri {
			return o, true
		}
	}
	return nil, false
}

// All returns the main ontology followed by secondary ones in key order
func (r *Registry) All() []*Ontology {
	keys := make([]string, 0, len(r.secondary))
	for k := range r.secondary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []*Ontology{r.Main}
	for _, k := range keys {
		out = append(out, r.secondary[k])
	}
	return out
}
