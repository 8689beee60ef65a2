package resolve

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/ontomap/cache"
	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/ontology"
)

const (
	ids  = "https://w3id.org/idsa/core/"
	foaf = "http://xmlns.com/foaf/0.1/"
)

const mainTurtle = `@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
@prefix ids: <https://w3id.org/idsa/core/> .

ids:City a owl:Class .
ids:Country a owl:Class .
ids:Location a owl:Class .

ids:capital a owl:ObjectProperty ;
    rdfs:domain ids:City ;
    rdfs:range ids:Country .

ids:population a owl:DatatypeProperty ;
    rdfs:domain ids:City ;
    rdfs:range xsd:integer .
`

const foafTurtle = `@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix foaf: <http://xmlns.com/foaf/0.1/> .

foaf:Person a owl:Class .
foaf:Organization a owl:Class .
`

func loadOntology(t *testing.T, uri, turtle string) *ontology.Ontology {
	t.Helper()
	triples, err := kg.Decode(strings.NewReader(turtle), kg.FormatTurtle)
	require.NoError(t, err)
	g := kg.NewGraph()
	g.AddAll(triples)
	return ontology.New(uri, g)
}

// fakeScorer returns configured pair scores, 1 for equal texts and 0 otherwise
type fakeScorer struct {
	scores map[[2]string]float64
	err    error
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (f *fakeScorer) Similarity(_ context.Context, a, b string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	a, b = norm(a), norm(b)
	if a == b {
		return 1, nil
	}
	if v, ok := f.scores[[2]string{a, b}]; ok {
		return v, nil
	}
	return f.scores[[2]string{b, a}], nil
}

func (f *fakeScorer) BestMatch(ctx context.Context, query string, candidates []string) (int, float64, error) {
	best, bestScore := -1, 0.0
	for i, c := range candidates {
		s, err := f.Similarity(ctx, query, c)
		if err != nil {
			return -1, 0, err
		}
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore, nil
}

// countingIndex serves labels per query and counts searches
type countingIndex struct {
	mu     sync.Mutex
	labels map[string][]ontology.Label
	calls  int
	err    error
}

func (c *countingIndex) Search(_ context.Context, query, _ string) ([]ontology.Label, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.labels[norm(query)], nil
}

func (c *countingIndex) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeNER struct {
	entities map[string][]Entity
	err      error
	calls    int
}

func (f *fakeNER) Predict(_ context.Context, sentence string) ([]Entity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.entities[sentence], nil
}

// countingSource serves stored instances and counts lookups
type countingSource struct {
	mu        sync.Mutex
	instances map[string][]ontology.Instance
	calls     int
	err       error
}

func (c *countingSource) InstancesOfClass(_ context.Context, classURI string) ([]ontology.Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.instances[classURI], nil
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) ObserveResolution(step, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, step+":"+outcome)
}

func (r *recordingObserver) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeTranslator struct {
	words map[string]string
	err   error
}

func (f *fakeTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.words[text], nil
}

var errBoom = errors.New("connection refused")

type fixture struct {
	deps     Deps
	main     *ontology.Ontology
	people   *ontology.Ontology
	scorer   *fakeScorer
	labels   *countingIndex
	ner      *fakeNER
	source   *countingSource
	observer *recordingObserver
	graph    *kg.WritableGraph
	caches   *cache.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()

	f := &fixture{
		main:     loadOntology(t, ids, mainTurtle),
		people:   loadOntology(t, foaf, foafTurtle),
		scorer:   &fakeScorer{scores: map[[2]string]float64{}},
		labels:   &countingIndex{labels: map[string][]ontology.Label{}},
		ner:      &fakeNER{entities: map[string][]Entity{}},
		source:   &countingSource{instances: map[string][]ontology.Instance{}},
		observer: &recordingObserver{},
		caches:   cache.NewRegistry(),
	}
	f.graph = kg.NewWritableGraph(kg.DrainConfig{OutputDir: t.TempDir()}, nil, log)

	f.deps = Deps{
		Ontologies: ontology.NewRegistry(f.main, map[string]*ontology.Ontology{"PER": f.people}),
		Caches:     f.caches,
		Graph:      f.graph,
		Scorer:     f.scorer,
		NER:        f.ner,
		Labels:     f.labels,
		Instances:  f.source,
		Observer:   f.observer,
		Tuning:     NewTuning(DefaultThresholds()),
		Logger:     log,
	}
	return f
}

func (f *fixture) score(a, b string, v float64) {
	f.scorer.scores[[2]string{norm(a), norm(b)}] = v
}

func (f *fixture) hasTriple(t kg.Triple) bool {
	for _, got := range f.graph.Snapshot() {
		if got.Key() == t.Key() {
			return true
		}
	}
	return false
}

func cacheBinding(class, onto string) cache.ClassBinding {
	return cache.ClassBinding{ClassURI: class, OntologyURI: onto}
}
