package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/ontomap/cache"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/match"
	"github.com/teranos/ontomap/ontology"
	"github.com/teranos/ontomap/resolve"
)

const ids = "https://w3id.org/idsa/core/"

const mainTurtle = `@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix ids: <https://w3id.org/idsa/core/> .

ids:City a owl:Class .
ids:Country a owl:Class .

ids:capital a owl:ObjectProperty ;
    rdfs:domain ids:City ;
    rdfs:range ids:Country .
`

const parisSentence = "Paris is the capital of France"

var parisTriplet = match.Triplet{Head: "Paris", Tail: "France", Relations: []string{"capital"}, Confidence: 0.9}

// exactScorer scores 1 for equal texts after lower-casing and 0 otherwise
type exactScorer struct{}

func (exactScorer) Similarity(_ context.Context, a, b string) (float64, error) {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return 1, nil
	}
	return 0, nil
}

func (s exactScorer) BestMatch(ctx context.Context, query string, candidates []string) (int, float64, error) {
	for i, c := range candidates {
		if v, _ := s.Similarity(ctx, query, c); v == 1 {
			return i, 1, nil
		}
	}
	return -1, 0, nil
}

// labelIndex maps lower-cased queries to labels whose text equals the query
type labelIndex map[string]string

func (l labelIndex) Search(_ context.Context, query, _ string) ([]ontology.Label, error) {
	uri, ok := l[strings.ToLower(query)]
	if !ok {
		return nil, nil
	}
	return []ontology.Label{{URI: uri, Label: query}}, nil
}

type scriptedMatcher struct {
	mu       sync.Mutex
	triplets map[string][]match.Triplet
	errs     map[string]error
	seen     []string
}

func (s *scriptedMatcher) Match(_ context.Context, sentence, _ string) ([]match.Triplet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, sentence)
	if err := s.errs[sentence]; err != nil {
		return nil, err
	}
	return s.triplets[sentence], nil
}

// fixedDetector reports a language per sentence; unknown sentences are English
type fixedDetector map[string]string

func (f fixedDetector) Detect(text string) (string, bool) {
	lang, ok := f[text]
	if !ok {
		return "en", true
	}
	return lang, lang == "en" || lang == "es"
}

type stubNER struct {
	entities []resolve.Entity
	err      error
}

func (s *stubNER) Predict(context.Context, string) ([]resolve.Entity, error) {
	return s.entities, s.err
}

type countingRecorder struct {
	mu        sync.Mutex
	sentences map[string]int
	triplets  map[string]int
	drains    int
	drainErrs int
}

func newRecorder() *countingRecorder {
	return &countingRecorder{sentences: map[string]int{}, triplets: map[string]int{}}
}

func (c *countingRecorder) ObserveSentence(lang, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sentences[outcome]++
}

func (c *countingRecorder) ObserveTriplet(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triplets[outcome]++
}

func (c *countingRecorder) ObserveDrain(_ int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drains++
	if err != nil {
		c.drainErrs++
	}
}

type fixture struct {
	main     *ontology.Ontology
	caches   *cache.Registry
	graph    *kg.WritableGraph
	matcher  *scriptedMatcher
	recorder *countingRecorder
	outDir   string
	deps     Deps
	resolve  resolve.Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()

	triples, err := kg.Decode(strings.NewReader(mainTurtle), kg.FormatTurtle)
	require.NoError(t, err)
	g := kg.NewGraph()
	g.AddAll(triples)

	f := &fixture{
		main:     ontology.New(ids, g),
		caches:   cache.NewRegistry(),
		matcher:  &scriptedMatcher{triplets: map[string][]match.Triplet{}, errs: map[string]error{}},
		recorder: newRecorder(),
		outDir:   t.TempDir(),
	}
	f.graph = kg.NewWritableGraph(kg.DrainConfig{OutputDir: f.outDir}, nil, log)
	tuning := resolve.NewTuning(resolve.DefaultThresholds())

	f.resolve = resolve.Deps{
		Ontologies: ontology.NewRegistry(f.main, nil),
		Caches:     f.caches,
		Graph:      f.graph,
		Scorer:     exactScorer{},
		Labels:     labelIndex{"paris": ids + "City", "france": ids + "Country", "madrid": ids + "City", "spain": ids + "Country"},
		Tuning:     tuning,
		Logger:     log,
	}
	f.deps = Deps{
		Matcher:  f.matcher,
		Mapper:   resolve.NewMapper(f.resolve),
		Detector: fixedDetector{},
		Graph:    f.graph,
		Tuning:   tuning,
		Recorder: f.recorder,
		Logger:   log,
	}
	return f
}
