// Package resolve is the map stage: it grounds the head, tail and relation of
// a candidate triplet in the loaded ontologies and writes the result into the
// writable graph.
//
// Resolution misses are reported as errors.ErrNoClass, errors.ErrNoProperty,
// errors.ErrForeignOntology and errors.ErrRejected. Anything else returned by
// a resolver is a collaborator failure.
package resolve

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/teranos/ontomap/cache"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/ontology"
)

// Entity is a named entity found by the NER model
type Entity struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"` // PER, LOC, ORG, MISC
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// EntityRecognizer runs named entity recognition
type EntityRecognizer interface {
	Predict(ctx context.Context, sentence string) ([]Entity, error)
}

// LabelIndex searches class labels
type LabelIndex interface {
	Search(ctx context.Context, query, lang string) ([]ontology.Label, error)
}

// InstanceSource lists the stored instances of a class
type InstanceSource interface {
	InstancesOfClass(ctx context.Context, classURI string) ([]ontology.Instance, error)
}

// Scorer compares texts semantically. See semantic.Scorer.
type Scorer interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
	BestMatch(ctx context.Context, query string, candidates []string) (int, float64, error)
}

// Translator renders text in another language
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Observer is told the outcome of every resolution step
type Observer interface {
	ObserveResolution(step, outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveResolution(string, string) {}

// Thresholds are the similarity cut-offs of the map stage. A score must be
// strictly greater than its threshold to be accepted.
type Thresholds struct {
	ClassAccept        float64 // label index candidate
	ClassSimilarity    float64 // ontology class and cached NER text
	PropertySimilarity float64
	ContentSimilarity  float64 // instance title
	EntityReuse        float64
}

// DefaultThresholds returns the stock cut-offs
func DefaultThresholds() Thresholds {
	return Thresholds{
		ClassAccept:        0.4,
		ClassSimilarity:    0.75,
		PropertySimilarity: 0.75,
		ContentSimilarity:  0.95,
		EntityReuse:        0.2,
	}
}

// Tuning holds thresholds that can be swapped while the pipeline runs
type Tuning struct {
	v atomic.Pointer[Thresholds]
}

// NewTuning creates a Tuning holding t
func NewTuning(t Thresholds) *Tuning {
	tu := &Tuning{}
	tu.Store(t)
	return tu
}

// Load returns the current thresholds
func (t *Tuning) Load() Thresholds { return *t.v.Load() }

// Store replaces the thresholds
func (t *Tuning) Store(th Thresholds) { t.v.Store(&th) }

// Deps are the collaborators shared by the resolvers. Labels, Instances,
// Translator and Observer are optional.
type Deps struct {
	Ontologies *ontology.Registry
	Caches     *cache.Registry
	Graph      *kg.WritableGraph
	Scorer     Scorer
	NER        EntityRecognizer
	Labels     LabelIndex
	Instances  InstanceSource
	Translator Translator
	Observer   Observer
	Tuning     *Tuning
	Logger     *zap.SugaredLogger
}

func (d Deps) withDefaults() Deps {
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Tuning == nil {
		d.Tuning = NewTuning(DefaultThresholds())
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	return d
}

// Resolution is a class bound to the ontology that declares it
type Resolution struct {
	Class    string
	Ontology *ontology.Ontology
}

// Resolution step names reported to the Observer
const (
	StepClass    = "class"
	StepInstance = "instance"
	StepProperty = "property"
)
