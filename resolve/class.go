package resolve

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/ontomap/cache"
	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/internal/util"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/logger"
	"github.com/teranos/ontomap/ontology"
)

// Class resolution outcomes
const (
	ClassFromCache     = "cache"
	ClassFromIndex     = "index"
	ClassFromOntology  = "ontology"
	ClassFromSecondary = "secondary"
	ClassMiss          = "miss"
)

// nerKeyPrefix separates NER-label keys from text keys in the prediction cache
const nerKeyPrefix = "ner:"

// ClassResolver maps a text span to an ontology class
type ClassResolver struct {
	d      Deps
	logger *zap.SugaredLogger
}

// NewClassResolver creates a class resolver
func NewClassResolver(d Deps) *ClassResolver {
	d = d.withDefaults()
	return &ClassResolver{d: d, logger: d.Logger.Named("class")}
}

// Resolve returns the class of text. Lookups run in order: the prediction
// cache, the label index, then the class most similar to the NER type of the
// text in the main ontology and in the secondary ontology for that type. An
// accepted class is cached under text and is never replaced.
func (r *ClassResolver) Resolve(ctx context.Context, text, lang string) (Resolution, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Resolution{}, errors.Wrap(errors.ErrNoClass, "empty text")
	}

	if b, ok := r.d.Caches.Predictions.Get(text); ok {
		r.d.Observer.ObserveResolution(StepClass, ClassFromCache)
		return r.bind(b)
	}

	if r.d.Labels != nil {
		b, ok, err := r.fromIndex(ctx, text, lang)
		if err != nil {
			r.logger.Warnw("Label index lookup failed",
				logger.FieldHead, text,
				logger.FieldError, err)
		}
		if ok {
			stored, _ := r.d.Caches.Predictions.SetIfAbsent(text, b)
			r.d.Observer.ObserveResolution(StepClass, ClassFromIndex)
			return r.bind(stored)
		}
	}

	b, outcome, err := r.fromOntologies(ctx, text)
	if err != nil {
		if errors.Is(err, errors.ErrNoClass) {
			r.d.Observer.ObserveResolution(StepClass, ClassMiss)
		}
		return Resolution{}, err
	}
	stored, _ := r.d.Caches.Predictions.SetIfAbsent(text, b)
	r.d.Observer.ObserveResolution(StepClass, outcome)
	return r.bind(stored)
}

func (r *ClassResolver) bind(b cache.ClassBinding) (Resolution, error) {
	o, ok := r.d.Ontologies.ByURI(b.OntologyURI)
	if !ok {
		return Resolution{}, errors.NewNotFoundError("ontology %s for class %s", b.OntologyURI, b.ClassURI)
	}
	return Resolution{Class: b.ClassURI, Ontology: o}, nil
}

// owner returns the loaded ontology declaring classURI, defaulting to main
func (r *ClassResolver) owner(classURI string) *ontology.Ontology {
	for _, o := range r.d.Ontologies.All() {
		if o.HasClass(classURI) {
			return o
		}
	}
	for _, o := range r.d.Ontologies.All() {
		if o.Owns(classURI) {
			return o
		}
	}
	return r.d.Ontologies.Main
}

func (r *ClassResolver) fromIndex(ctx context.Context, text, lang string) (cache.ClassBinding, bool, error) {
	labels, err := r.d.Labels.Search(ctx, text, lang)
	if err != nil || len(labels) == 0 {
		return cache.ClassBinding{}, false, err
	}

	candidates := make([]string, len(labels))
	for i, l := range labels {
		candidates[i] = ontology.NormalizeLabel(l.Label)
	}
	idx, score, err := r.d.Scorer.BestMatch(ctx, ontology.NormalizeLabel(text), candidates)
	if err != nil {
		return cache.ClassBinding{}, false, err
	}

	r.logger.Debugw("Label index candidate",
		logger.FieldHead, text,
		logger.FieldScore, score,
		"index", idx)
	if idx < 0 || score <= r.d.Tuning.Load().ClassAccept {
		return cache.ClassBinding{}, false, nil
	}

	uri := labels[idx].URI
	return cache.ClassBinding{ClassURI: uri, OntologyURI: r.owner(uri).URI}, true, nil
}

func (r *ClassResolver) fromOntologies(ctx context.Context, text string) (cache.ClassBinding, string, error) {
	nerType, err := r.EntityType(ctx, text)
	if err != nil {
		return cache.ClassBinding{}, "", err
	}
	if nerType == "" {
		return cache.ClassBinding{}, "", errors.Wrapf(errors.ErrNoClass, "no entity type for %q", text)
	}

	b, ok, err := r.classForType(ctx, nerType, r.d.Ontologies.Main)
	if err != nil {
		return cache.ClassBinding{}, "", err
	}
	if ok {
		return b, ClassFromOntology, nil
	}

	secondary, ok := r.d.Ontologies.Secondary(nerType)
	if !ok {
		return cache.ClassBinding{}, "", errors.Wrapf(errors.ErrNoClass, "%q (%s): no ontology for entity type", text, nerType)
	}
	b, ok, err = r.classForType(ctx, nerType, secondary)
	if err != nil {
		return cache.ClassBinding{}, "", err
	}
	if !ok {
		return cache.ClassBinding{}, "", errors.Wrapf(errors.ErrNoClass, "%q (%s)", text, nerType)
	}
	return b, ClassFromSecondary, nil
}

// classForType finds the class of o most similar to a NER type. The answer is
// cached per type, so a type bound in a secondary ontology stays bound there.
func (r *ClassResolver) classForType(ctx context.Context, nerType string, o *ontology.Ontology) (cache.ClassBinding, bool, error) {
	key := nerKeyPrefix + strings.ToUpper(nerType)
	if b, ok := r.d.Caches.Predictions.Get(key); ok {
		return b, true, nil
	}

	c, score, err := o.MostSimilarClass(ctx, r.d.Scorer, nerType)
	if err != nil {
		return cache.ClassBinding{}, false, errors.Wrapf(err, "similar class for %s", nerType)
	}
	if c.URI == "" || score <= r.d.Tuning.Load().ClassSimilarity {
		return cache.ClassBinding{}, false, nil
	}

	r.logger.Debugw("Class for entity type",
		logger.FieldNERType, nerType,
		logger.FieldClass, c.URI,
		logger.FieldOntology, o.URI,
		logger.FieldScore, score)
	b, _ := r.d.Caches.Predictions.SetIfAbsent(key, cache.ClassBinding{ClassURI: c.URI, OntologyURI: o.URI})
	return b, true, nil
}

// EntityType returns the NER type of text. A cached prediction is used first;
// then the prediction of the most similar cached text; then the NER model.
func (r *ClassResolver) EntityType(ctx context.Context, text string) (string, error) {
	if t, ok := r.d.Caches.EntityPredictions.Get(text); ok {
		return t, nil
	}

	if t, similar := r.reusePrediction(ctx, text); t != "" {
		r.d.Caches.EntityPredictions.SetIfAbsent(text, t)
		r.linkAlternativeTitle(text, similar)
		return t, nil
	}

	if r.d.NER == nil {
		return "", nil
	}
	entities, err := r.d.NER.Predict(ctx, text)
	if err != nil {
		return "", errors.Wrapf(err, "ner prediction for %q", text)
	}
	r.RecordEntities(entities)

	for _, e := range entities {
		if strings.EqualFold(strings.TrimSpace(e.Text), text) && e.Type != "" {
			r.d.Caches.EntityPredictions.SetIfAbsent(text, e.Type)
			return e.Type, nil
		}
	}
	if len(entities) > 0 && entities[0].Type != "" {
		r.d.Caches.EntityPredictions.SetIfAbsent(text, entities[0].Type)
		return entities[0].Type, nil
	}
	return "", nil
}

// RecordEntities caches the NER types of a sentence's entities
func (r *ClassResolver) RecordEntities(entities []Entity) {
	for _, e := range entities {
		if t := strings.TrimSpace(e.Text); t != "" && e.Type != "" {
			r.d.Caches.EntityPredictions.SetIfAbsent(t, e.Type)
		}
	}
}

// reusePrediction looks for a cached text close to text: similarity above
// ClassSimilarity or containment in either direction, then the best score
// above EntityReuse. Returns its type and the similar text.
func (r *ClassResolver) reusePrediction(ctx context.Context, text string) (string, string) {
	th := r.d.Tuning.Load()
	query := ontology.NormalizeLabel(text)
	if query == "" {
		return "", ""
	}

	var bestType, bestText string
	best := 0.0
	for _, e := range r.d.Caches.EntityPredictions.Entries() {
		content := ontology.NormalizeLabel(e.Key)
		if content == "" {
			continue
		}
		score, err := r.d.Scorer.Similarity(ctx, query, content)
		if err != nil {
			r.logger.Debugw("Similarity failed",
				"candidate", e.Key,
				logger.FieldError, err)
			continue
		}
		if score <= th.ClassSimilarity && !util.ContainsEither(query, content) {
			continue
		}
		if score > best && score > th.EntityReuse {
			best, bestType, bestText = score, e.Value, e.Key
		}
	}
	return bestType, bestText
}

// linkAlternativeTitle records text as another title of the instance already
// minted for similar.
func (r *ClassResolver) linkAlternativeTitle(text, similar string) {
	if similar == "" || r.d.Graph == nil {
		return
	}
	uri, ok := r.d.Caches.TitleURIs.Get(similar)
	if !ok {
		return
	}
	r.d.Graph.Add(kg.T(uri, kg.DCTermsAlternative, kg.Literal(text)))
	r.d.Caches.TitleURIs.SetIfAbsent(text, uri)
	r.logger.Infow("Linked alternative title",
		logger.FieldInstance, uri,
		"title", text,
		"similar", similar)
}
