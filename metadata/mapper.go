// Package metadata maps JSON metadata records, such as dataset descriptions,
// onto ontology instances. Each key becomes a datatype or object property of
// the record's instance; nested objects become instances of the property
// range and are linked to their parent.
package metadata

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/ontomap/cache"
	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/logger"
	"github.com/teranos/ontomap/ontology"
	"github.com/teranos/ontomap/resolve"
)

// Observer steps and outcomes
const (
	StepRecord   = "metadata_record"
	StepProperty = "metadata_property"

	OutcomeExisting = "existing"
	OutcomeMinted   = "minted"
	OutcomeCached   = "cached"
	OutcomeMatched  = "matched"
	OutcomeInvented = "invented"
	OutcomeSkipped  = "skipped"
)

// NodeFinder looks up a stored node of a class by a property value
type NodeFinder interface {
	FindNodeByPropertyLike(ctx context.Context, classURI, propertyURI, value string) (string, bool, error)
}

// DescriptionLinker extracts nodes from free-text descriptions
type DescriptionLinker interface {
	LinkDescription(ctx context.Context, text string) ([]string, error)
}

// Deps are the collaborators of a Mapper
type Deps struct {
	Strategy Strategy
	Main     *ontology.Ontology // mints instance and invented property URIs
	Caches   *cache.Registry
	Graph    *kg.WritableGraph
	Scorer   resolve.Scorer
	Finder   NodeFinder        // optional
	Linker   DescriptionLinker // optional
	Observer resolve.Observer  // optional
	Tuning   *resolve.Tuning
	TitleKey string
	Logger   *zap.SugaredLogger
}

// Mapper maps metadata records to instances
type Mapper struct {
	d      Deps
	logger *zap.SugaredLogger
}

// NewMapper creates a metadata mapper
func NewMapper(d Deps) *Mapper {
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if d.Tuning == nil {
		d.Tuning = resolve.NewTuning(resolve.DefaultThresholds())
	}
	if d.TitleKey == "" {
		d.TitleKey = "name"
	}
	return &Mapper{d: d, logger: d.Logger.Named("metadata")}
}

// MapMetadata maps every record to an instance of the class chosen for
// classQuery and returns the URIs of the instances created or updated,
// without duplicates. A record that fails is logged and skipped; the
// failures are returned joined.
func (m *Mapper) MapMetadata(ctx context.Context, records []Record, classQuery string) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	class, err := m.d.Strategy.Class(ctx, classQuery)
	if err != nil {
		return nil, err
	}
	m.logger.Infow("Mapping metadata",
		logger.FieldClass, class,
		logger.FieldCount, len(records),
		"strategy", m.d.Strategy.Name())

	var (
		out  []string
		seen = make(map[string]bool)
		errs []error
	)
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		_, uris, err := m.mapRecord(ctx, rec, class)
		if err != nil {
			m.logger.Warnw("Metadata record skipped",
				"record", i,
				logger.FieldError, err)
			errs = append(errs, errors.Wrapf(err, "record %d", i))
			continue
		}
		for _, u := range uris {
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}

	return out, errors.Join(errs...)
}

// mapRecord finds or mints the instance for rec and writes its properties.
// It returns the instance URI and every URI touched, the instance first.
func (m *Mapper) mapRecord(ctx context.Context, rec Record, class string) (string, []string, error) {
	uri, title, err := m.findExisting(ctx, class, rec)
	if err != nil {
		return "", nil, err
	}
	if uri != "" {
		m.observe(StepRecord, OutcomeExisting)
		m.logger.Debugw("Metadata record matches existing node",
			logger.FieldInstance, uri,
			logger.FieldClass, class)
	} else {
		uri = m.d.Main.NewInstanceURI(class)
		m.d.Graph.Add(kg.T(uri, kg.RDFType, kg.IRI(class)))
		if title != "" {
			m.d.Graph.Add(kg.T(uri, kg.DCTermsTitle, kg.Literal(title)))
		}
		m.observe(StepRecord, OutcomeMinted)
	}

	uris := []string{uri}
	for _, key := range rec.Keys() {
		for _, item := range rec[key].Elements() {
			touched, err := m.mapValue(ctx, uri, class, key, item)
			if err != nil {
				return uri, uris, err
			}
			uris = append(uris, touched...)
		}
	}
	return uri, uris, nil
}

func (m *Mapper) mapValue(ctx context.Context, subject, class, key string, item Value) ([]string, error) {
	if item.Kind == Object {
		p, ok, err := m.property(ctx, class, key, ontology.Object)
		if err != nil {
			return nil, err
		}
		if !ok || p.Range == "" {
			m.observe(StepProperty, OutcomeSkipped)
			m.logger.Warnw("No object property for metadata key",
				logger.FieldProperty, key,
				logger.FieldClass, class)
			return nil, nil
		}
		child, uris, err := m.mapRecord(ctx, item.Fields, p.Range)
		if err != nil {
			return nil, errors.Wrapf(err, "key %q", key)
		}
		m.d.Graph.Add(kg.T(subject, p.URI, kg.IRI(child)))
		return uris, nil
	}

	p, ok, err := m.property(ctx, class, key, ontology.Datatype)
	if err != nil {
		return nil, err
	}
	if !ok {
		p = cache.ClassProperty{URI: m.d.Main.PropertyURI(localKey(key))}
		m.d.Caches.MetadataKeys.SetIfAbsent(metadataKey(ontology.Datatype, class, key), cache.PropertyMatch{URI: p.URI, Score: 1})
		m.observe(StepProperty, OutcomeInvented)
		m.logger.Infow("Invented datatype property for metadata key",
			logger.FieldProperty, p.URI,
			logger.FieldClass, class)
	}
	m.d.Graph.Add(kg.T(subject, p.URI, kg.TypedLiteral(item.Text, item.Datatype)))

	if m.d.Linker != nil && strings.Contains(strings.ToLower(localKey(key)), "description") {
		m.linkDescription(ctx, subject, item.Text)
	}
	return nil, nil
}

// property picks the property of class for key: cached choice, exact local
// name, then the most similar label above the property threshold.
func (m *Mapper) property(ctx context.Context, class, key string, kind ontology.PropertyKind) (cache.ClassProperty, bool, error) {
	props := m.d.Strategy.Properties(class, kind)
	cacheKey := metadataKey(kind, class, key)

	if hit, ok := m.d.Caches.MetadataKeys.Get(cacheKey); ok {
		if p, found := byURI(props, hit.URI); found {
			m.observe(StepProperty, OutcomeCached)
			return p, true, nil
		}
		if kind == ontology.Datatype {
			m.observe(StepProperty, OutcomeCached)
			return cache.ClassProperty{URI: hit.URI}, true, nil
		}
	}
	if len(props) == 0 {
		return cache.ClassProperty{}, false, nil
	}

	query := ontology.NormalizeLabel(localKey(key))
	labels := make([]string, len(props))
	for i, p := range props {
		labels[i] = ontology.NormalizeLabel(p.URI)
		if labels[i] == query {
			m.d.Caches.MetadataKeys.SetIfAbsent(cacheKey, cache.PropertyMatch{URI: p.URI, Score: 1})
			m.observe(StepProperty, OutcomeMatched)
			return p, true, nil
		}
	}

	idx, score, err := m.d.Scorer.BestMatch(ctx, query, labels)
	if err != nil {
		return cache.ClassProperty{}, false, errors.Wrapf(err, "property for key %q", key)
	}
	if idx < 0 || score <= m.d.Tuning.Load().PropertySimilarity {
		return cache.ClassProperty{}, false, nil
	}
	m.d.Caches.MetadataKeys.SetIfAbsent(cacheKey, cache.PropertyMatch{URI: props[idx].URI, Score: score})
	m.observe(StepProperty, OutcomeMatched)
	m.logger.Debugw("Metadata key matched",
		logger.FieldProperty, props[idx].URI,
		logger.FieldScore, score)
	return props[idx], true, nil
}

// findExisting looks for a node of class titled like rec: first in the graph
// database, then among the buffered instances. It also returns the title
// used, so a minted node can carry it.
func (m *Mapper) findExisting(ctx context.Context, class string, rec Record) (string, string, error) {
	titles, err := m.titles(ctx, rec)
	if err != nil || len(titles) == 0 {
		return "", "", err
	}

	if m.d.Finder != nil {
		for _, title := range titles {
			uri, ok, err := m.d.Finder.FindNodeByPropertyLike(ctx, class, kg.DCTermsTitle, title)
			if err != nil {
				return "", "", errors.WrapUnavailable(err, "node lookup")
			}
			if ok {
				return uri, title, nil
			}
		}
	}

	threshold := m.d.Tuning.Load().PropertySimilarity
	for _, inst := range m.d.Graph.InstancesOf(class) {
		if len(inst.Titles) == 0 {
			continue
		}
		for _, title := range titles {
			idx, score, err := m.d.Scorer.BestMatch(ctx, title, inst.Titles)
			if err != nil {
				return "", "", errors.Wrapf(err, "compare title %q", title)
			}
			if idx >= 0 && score > threshold {
				return inst.URI, title, nil
			}
		}
	}
	return "", titles[0], nil
}

// titles returns the values of the first key that names the record title:
// the configured title key or a key similar to it.
func (m *Mapper) titles(ctx context.Context, rec Record) ([]string, error) {
	want := ontology.NormalizeLabel(m.d.TitleKey)
	threshold := m.d.Tuning.Load().PropertySimilarity
	for _, key := range rec.Keys() {
		texts := nonEmpty(rec[key].Texts())
		if len(texts) == 0 {
			continue
		}
		local := ontology.NormalizeLabel(localKey(key))
		if local == want {
			return texts, nil
		}
		score, err := m.d.Scorer.Similarity(ctx, local, want)
		if err != nil {
			return nil, errors.Wrapf(err, "compare key %q", key)
		}
		if score > threshold {
			return texts, nil
		}
	}
	return nil, nil
}

func (m *Mapper) linkDescription(ctx context.Context, subject, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	nodes, err := m.d.Linker.LinkDescription(ctx, text)
	if err != nil {
		m.logger.Warnw("Description linking failed",
			logger.FieldInstance, subject,
			logger.FieldError, err)
		return
	}
	seen := make(map[string]bool)
	for _, n := range nodes {
		if n == "" || n == subject || seen[n] {
			continue
		}
		seen[n] = true
		m.d.Graph.Add(kg.T(subject, kg.DCTermsDescription, kg.IRI(n)))
	}
}

func (m *Mapper) observe(step, outcome string) {
	if m.d.Observer != nil {
		m.d.Observer.ObserveResolution(step, outcome)
	}
}

func metadataKey(kind ontology.PropertyKind, class, key string) string {
	return fmt.Sprintf("%s:%s:%s", kind, class, key)
}

// localKey strips a namespace such as "dct:" or a full IRI from a key
func localKey(key string) string {
	if strings.Contains(key, "://") {
		return kg.LocalName(key)
	}
	if i := strings.LastIndex(key, ":"); i >= 0 {
		return key[i+1:]
	}
	return key
}

func byURI(props []cache.ClassProperty, uri string) (cache.ClassProperty, bool) {
	for _, p := range props {
		if p.URI == uri {
			return p, true
		}
	}
	return cache.ClassProperty{}, false
}

func nonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
