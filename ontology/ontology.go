// Package ontology indexes the classes and properties of a loaded ontology
// and answers the lookups the map stage needs: most similar class, the
// properties of a class, and minting of new properties and instance URIs.
package ontology

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/kg"
)

// PropertyKind separates datatype from object properties
type PropertyKind uint8

const (
	Datatype PropertyKind = iota
	Object
)

func (k PropertyKind) String() string {
	if k == Object {
		return "object"
	}
	return "datatype"
}

// TypeIRI returns the OWL class of the kind
func (k PropertyKind) TypeIRI() string {
	if k == Object {
		return kg.OWLObjectProperty
	}
	return kg.OWLDatatypeProperty
}

// Class is an ontology class
type Class struct {
	URI  string
	Name string // normalized label used for similarity
}

// Property is a datatype or object property
type Property struct {
	URI     string
	Name    string
	Kind    PropertyKind
	Domains []string
	Range   string
}

// Instance is a node typed with a class, with its title literals
type Instance = kg.Instance

// Label is a searchable text for a class or property
type Label struct {
	URI   string
	Label string
	Lang  string
	Kind  string // "class" or "property"
}

// Matcher picks the candidate most similar to a query. See semantic.Scorer.
type Matcher interface {
	BestMatch(ctx context.Context, query string, candidates []string) (int, float64, error)
}

// Ontology is an in-memory view of one ontology graph. Properties minted at
// runtime are added to it so later sentences can match them.
type Ontology struct {
	URI string

	mu         sync.RWMutex
	graph      *kg.Graph
	classes    []Class
	classIndex map[string]int
	properties map[string]*Property
	propOrder  []string
}

// Load reads an ontology file
func Load(uri, path string, format kg.Format) (*Ontology, error) {
	g, err := kg.ReadFile(path, format)
	if err != nil {
		return nil, errors.Wrapf(err, "load ontology %s", uri)
	}
	return New(uri, g), nil
}

// New indexes g as the ontology identified by uri
func New(uri string, g *kg.Graph) *Ontology {
	o := &Ontology{
		URI:        uri,
		graph:      g,
		classIndex: make(map[string]int),
		properties: make(map[string]*Property),
	}
	o.indexClasses()
	o.indexProperties()
	return o
}

func (o *Ontology) indexClasses() {
	var uris []string
	seen := make(map[string]bool)
	add := func(t kg.Term) {
		if !t.IsIRI() || seen[t.Value] {
			return
		}
		seen[t.Value] = true
		uris = append(uris, t.Value)
	}

	for _, c := range []string{kg.OWLClass, kg.RDFSClass} {
		for _, s := range o.graph.Subjects(kg.IRI(kg.RDFType), kg.IRI(c)) {
			add(s)
		}
	}
	// classes only referenced through subclassing, domains and ranges
	for _, t := range o.graph.Triples() {
		switch t.Predicate.Value {
		case kg.RDFSSubClassOf:
			add(t.Subject)
			add(t.Object)
		case kg.RDFSDomain:
			add(t.Object)
		case kg.RDFSRange:
			if !strings.HasPrefix(t.Object.Value, kg.NamespaceXSD) && !strings.HasPrefix(t.Object.Value, kg.NamespaceRDFS) {
				add(t.Object)
			}
		}
	}

	sort.Strings(uris)
	for _, u := range uris {
		o.appendClassLocked(u)
	}
}

func (o *Ontology) appendClassLocked(uri string) {
	if _, ok := o.classIndex[uri]; ok {
		return
	}
	o.classIndex[uri] = len(o.classes)
	o.classes = append(o.classes, Class{URI: uri, Name: NormalizeLabel(uri)})
}

func (o *Ontology) indexProperties() {
	for _, kind := range []PropertyKind{Datatype, Object} {
		for _, s := range o.graph.Subjects(kg.IRI(kg.RDFType), kg.IRI(kind.TypeIRI())) {
			if !s.IsIRI() {
				continue
			}
			p := &Property{URI: s.Value, Name: NormalizeLabel(s.Value), Kind: kind}
			for _, d := range o.graph.Objects(s, kg.IRI(kg.RDFSDomain)) {
				if d.IsIRI() {
					p.Domains = append(p.Domains, d.Value)
				}
			}
			if r := o.graph.Objects(s, kg.IRI(kg.RDFSRange)); len(r) > 0 {
				p.Range = r[0].Value
			}
			o.putPropertyLocked(p)
		}
	}
}

func (o *Ontology) putPropertyLocked(p *Property) {
	if _, ok := o.properties[p.URI]; !ok {
		o.propOrder = append(o.propOrder, p.URI)
	}
	o.properties[p.URI] = p
}

// Owns reports whether uri lives in this ontology's namespace
func (o *Ontology) Owns(uri string) bool {
	return uri != "" && strings.HasPrefix(uri, strings.TrimRight(o.URI, "/#"))
}

// Classes returns every known class sorted by URI
func (o *Ontology) Classes() []Class {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Class, len(o.classes))
	copy(out, o.classes)
	return out
}

// HasClass reports whether uri is a known class
func (o *Ontology) HasClass(uri string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.classIndex[uri]
	return ok
}

// Property returns the property with the given URI
func (o *Ontology) Property(uri string) (Property, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.properties[uri]
	if !ok {
		return Property{}, false
	}
	return *p, true
}

// PropertiesOf returns the properties of kind whose domain includes class
func (o *Ontology) PropertiesOf(classURI string, kind PropertyKind) []Property {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var out []Property
	for _, uri := range o.propOrder {
		p := o.properties[uri]
		if p.Kind != kind {
			continue
		}
		for _, d := range p.Domains {
			if d == classURI {
				out = append(out, *p)
				break
			}
		}
	}
	return out
}

// MostSimilarClass returns the class whose normalized name best matches
// query. Classes whose name contains the query are preferred as candidates;
// when none does, every class is a candidate. When two classes share a
// name, the one in this ontology's namespace wins.
func (o *Ontology) MostSimilarClass(ctx context.Context, m Matcher, query string) (Class, float64, error) {
	classes := o.Classes()
	q := strings.ToLower(strings.TrimSpace(query))

	var candidates []Class
	for _, c := range classes {
		if q != "" && strings.Contains(strings.ToLower(kg.LocalName(c.URI)), q) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		candidates = classes
	}

	var names []string
	byName := make(map[string]int)
	var picked []Class
	for _, c := range candidates {
		if c.Name == "" {
			continue
		}
		if i, ok := byName[c.Name]; ok {
			if o.Owns(c.URI) {
				picked[i] = c
			}
			continue
		}
		byName[c.Name] = len(picked)
		picked = append(picked, c)
		names = append(names, c.Name)
	}
	if len(names) == 0 {
		return Class{}, 0, nil
	}

	idx, score, err := m.BestMatch(ctx, query, names)
	if err != nil || idx < 0 {
		return Class{}, 0, err
	}
	return picked[idx], score, nil
}

// AddProperty records a new property in the ontology and returns the triples
// that declare it.
func (o *Ontology) AddProperty(uri string, kind PropertyKind, domain, rng string) []kg.Triple {
	triples := []kg.Triple{
		kg.T(uri, kg.RDFType, kg.IRI(kind.TypeIRI())),
		kg.T(uri, kg.RDFSDomain, kg.IRI(domain)),
		kg.T(uri, kg.RDFSRange, kg.IRI(rng)),
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.graph.AddAll(triples)

	p, ok := o.properties[uri]
	if !ok {
		p = &Property{URI: uri, Name: NormalizeLabel(uri), Kind: kind, Range: rng}
	}
	hasDomain := false
	for _, d := range p.Domains {
		hasDomain = hasDomain || d == domain
	}
	if !hasDomain {
		p.Domains = append(p.Domains, domain)
	}
	o.putPropertyLocked(p)
	if kind == Object {
		o.appendClassLocked(rng)
	}
	o.appendClassLocked(domain)
	return triples
}

// PropertyURI builds the URI of a property minted from relation text
func (o *Ontology) PropertyURI(relation string) string {
	return strings.TrimRight(o.URI, "/") + "/" + iriSegment(relation)
}

// NewInstanceURI mints {ontology}#{Class_Name}_{uuid}
func (o *Ontology) NewInstanceURI(classURI string) string {
	return strings.TrimRight(o.URI, "/#") + "#" + iriSegment(kg.LocalName(classURI)) + "_" + uuid.NewString()
}

// iriSegment joins whitespace runs with '_' and percent-encodes characters
// an IRI may not carry
func iriSegment(s string) string {
	s = strings.Join(strings.Fields(s), "_")
	var b strings.Builder
	for _, r := range s {
		if r < 0x20 || r == 0x7f || strings.ContainsRune("<>\"{}|^`\\", r) {
			fmt.Fprintf(&b, "%%%02X", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Labels lists searchable labels: rdfs:label literals plus the normalized
// local name of every class and property.
func (o *Ontology) Labels() []Label {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var out []Label
	add := func(uri, kind string) {
		out = append(out, Label{URI: uri, Label: NormalizeLabel(uri), Kind: kind})
		for _, l := range o.graph.Objects(kg.IRI(uri), kg.IRI(kg.RDFSLabel)) {
			if l.IsLiteral() && l.Value != "" {
				out = append(out, Label{URI: uri, Label: l.Value, Lang: l.Lang, Kind: kind})
			}
		}
	}
	for _, c := range o.classes {
		add(c.URI, "class")
	}
	for _, uri := range o.propOrder {
		add(uri, "property")
	}
	return out
}
