package kg

import (
	"sort"
	"sync"
)

// Graph is an in-memory RDF graph. Triples keep insertion order, which makes
// serialization and "first match" lookups deterministic. Two indexes serve
// the lookups the map stage needs:
//   - SP: subject -> predicate -> triple positions (facts about a node)
//   - PO: predicate -> object -> triple positions (nodes with property=value)
type Graph struct {
	mu sync.RWMutex

	triples []Triple
	seen    map[string]struct{}
	sp      map[string]map[string][]int
	po      map[string]map[string][]int
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		seen: make(map[string]struct{}),
		sp:   make(map[string]map[string][]int),
		po:   make(map[string]map[string][]int),
	}
}

// Add inserts t. Returns false when t is malformed or already present.
func (g *Graph) Add(t Triple) bool {
	if !t.Valid() {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addLocked(t)
}

// AddAll inserts every triple under one lock and returns how many were new
func (g *Graph) AddAll(triples []Triple) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	added := 0
	for _, t := range triples {
		if t.Valid() && g.addLocked(t) {
			added++
		}
	}
	return added
}

func (g *Graph) addLocked(t Triple) bool {
	key := t.Key()
	if _, ok := g.seen[key]; ok {
		return false
	}
	g.seen[key] = struct{}{}

	pos := len(g.triples)
	g.triples = append(g.triples, t)

	s, p, o := t.Subject.Key(), t.Predicate.Key(), t.Object.Key()
	if g.sp[s] == nil {
		g.sp[s] = make(map[string][]int)
	}
	g.sp[s][p] = append(g.sp[s][p], pos)
	if g.po[p] == nil {
		g.po[p] = make(map[string][]int)
	}
	g.po[p][o] = append(g.po[p][o], pos)
	return true
}

// Merge adds every triple of other into g
func (g *Graph) Merge(other *Graph) int {
	return g.AddAll(other.Triples())
}

// Has reports whether t is in the graph
func (g *Graph) Has(t Triple) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.seen[t.Key()]
	return ok
}

// Len returns the number of triples
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.triples)
}

// Triples returns a copy of all triples in insertion order
func (g *Graph) Triples() []Triple {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

// Objects returns the objects of (subject, predicate, ?)
func (g *Graph) Objects(subject, predicate Term) []Term {
	g.mu.RLock()
	defer g.mu.RUnlock()

	positions := g.sp[subject.Key()][predicate.Key()]
	out := make([]Term, 0, len(positions))
	for _, pos := range positions {
		out = append(out, g.triples[pos].Object)
	}
	return out
}

// Subjects returns the subjects of (?, predicate, object)
func (g *Graph) Subjects(predicate, object Term) []Term {
	g.mu.RLock()
	defer g.mu.RUnlock()

	positions := g.po[predicate.Key()][object.Key()]
	out := make([]Term, 0, len(positions))
	for _, pos := range positions {
		out = append(out, g.triples[pos].Subject)
	}
	return out
}

// SubjectsWithPredicate returns distinct subjects having any value for predicate
func (g *Graph) SubjectsWithPredicate(predicate Term) []Term {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Term
	seen := make(map[string]struct{})
	for _, positions := range g.po[predicate.Key()] {
		for _, pos := range positions {
			s := g.triples[pos].Subject
			if _, ok := seen[s.Key()]; ok {
				continue
			}
			seen[s.Key()] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// PredicateObjects returns all (predicate, object) pairs for subject, in insertion order
func (g *Graph) PredicateObjects(subject Term) []Triple {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var positions []int
	for _, ps := range g.sp[subject.Key()] {
		positions = append(positions, ps...)
	}
	sort.Ints(positions)

	out := make([]Triple, 0, len(positions))
	for _, pos := range positions {
		out = append(out, g.triples[pos])
	}
	return out
}

// Instance is a node typed with a class, with its title literals
type Instance struct {
	URI    string
	Titles []string
}

// InstancesOf returns nodes typed classURI with their dcterms:title values, in
// the order they were first typed.
func (g *Graph) InstancesOf(classURI string) []Instance {
	subjects := g.Subjects(IRI(RDFType), IRI(classURI))
	out := make([]Instance, 0, len(subjects))
	for _, s := range subjects {
		inst := Instance{URI: s.Value}
		for _, o := range g.Objects(s, IRI(DCTermsTitle)) {
			if o.IsLiteral() {
				inst.Titles = append(inst.Titles, o.Value)
			}
		}
		out = append(out, inst)
	}
	return out
}
