package metadata

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/ontomap/cache"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/ontology"
	"github.com/teranos/ontomap/resolve"
)

const ids = "https://w3id.org/idsa/core/"

const mainTurtle = `@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
@prefix ids: <https://w3id.org/idsa/core/> .

ids:DataResource a owl:Class .
ids:Publisher a owl:Class .

ids:keyword a owl:DatatypeProperty ;
    rdfs:domain ids:DataResource ;
    rdfs:range xsd:string .

ids:created a owl:DatatypeProperty ;
    rdfs:domain ids:DataResource ;
    rdfs:range xsd:date .

ids:publisher a owl:ObjectProperty ;
    rdfs:domain ids:DataResource ;
    rdfs:range ids:Publisher .

ids:legalName a owl:DatatypeProperty ;
    rdfs:domain ids:Publisher ;
    rdfs:range xsd:string .
`

// pairScorer scores configured pairs, 1 for equal texts and 0 otherwise
type pairScorer struct {
	mu     sync.Mutex
	scores map[[2]string]float64
	err    error
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (p *pairScorer) set(a, b string, v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scores[[2]string{lower(a), lower(b)}] = v
}

func (p *pairScorer) Similarity(_ context.Context, a, b string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	a, b = lower(a), lower(b)
	if a == b {
		return 1, nil
	}
	if v, ok := p.scores[[2]string{a, b}]; ok {
		return v, nil
	}
	return p.scores[[2]string{b, a}], nil
}

func (p *pairScorer) BestMatch(ctx context.Context, query string, candidates []string) (int, float64, error) {
	best, bestScore := -1, 0.0
	for i, c := range candidates {
		s, err := p.Similarity(ctx, query, c)
		if err != nil {
			return -1, 0, err
		}
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore, nil
}

type stubLinker struct {
	nodes []string
	err   error
	texts []string
}

func (s *stubLinker) LinkDescription(_ context.Context, text string) ([]string, error) {
	s.texts = append(s.texts, text)
	return s.nodes, s.err
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingObserver) ObserveResolution(step, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[step+":"+outcome]++
}

func (c *countingObserver) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

type fixture struct {
	main     *ontology.Ontology
	scorer   *pairScorer
	caches   *cache.Registry
	graph    *kg.WritableGraph
	observer *countingObserver
	deps     Deps
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
		scorer:   &pairScorer{scores: map[[2]string]float64{}},
		caches:   cache.NewRegistry(),
		observer: &countingObserver{counts: map[string]int{}},
	}
	f.graph = kg.NewWritableGraph(kg.DrainConfig{OutputDir: t.TempDir()}, nil, log)
	f.deps = Deps{
		Strategy: NewDefaultStrategy(f.main, f.scorer, f.caches),
		Main:     f.main,
		Caches:   f.caches,
		Graph:    f.graph,
		Scorer:   f.scorer,
		Observer: f.observer,
		Tuning:   resolve.NewTuning(resolve.DefaultThresholds()),
		TitleKey: "name",
		Logger:   log,
	}
	return f
}

func (f *fixture) objects(subject, predicate string) []kg.Term {
	var out []kg.Term
	for _, t := range f.graph.Snapshot() {
		if t.Subject.Value == subject && t.Predicate.Value == predicate {
			out = append(out, t.Object)
		}
	}
	return out
}
