package resolve

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/logger"
	"github.com/teranos/ontomap/match"
)

// IndexContent is a search-index document for a mapped node
type IndexContent struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Result is a triplet grounded in the ontology
type Result struct {
	Triplet   match.Triplet  `json:"triplet"`
	Head      string         `json:"head"`
	HeadClass string         `json:"head_class"`
	Tail      string         `json:"tail,omitempty"` // empty when the tail is a literal
	TailClass string         `json:"tail_class,omitempty"`
	Literal   string         `json:"literal,omitempty"`
	Property  string         `json:"property"`
	Kind      string         `json:"kind"`
	Outcome   Outcome        `json:"outcome"`
	Index     []IndexContent `json:"index"`
}

// Mapper runs the whole map stage for one triplet
type Mapper struct {
	classes    *ClassResolver
	instances  *InstanceResolver
	properties *PropertyResolver
	translator Translator
	logger     *zap.SugaredLogger
}

// NewMapper wires the three resolvers over shared dependencies
func NewMapper(d Deps) *Mapper {
	d = d.withDefaults()
	return &Mapper{
		classes:    NewClassResolver(d),
		instances:  NewInstanceResolver(d),
		properties: NewPropertyResolver(d),
		translator: d.Translator,
		logger:     d.Logger.Named("map"),
	}
}

// Classes returns the class resolver
func (m *Mapper) Classes() *ClassResolver { return m.classes }

// Instances returns the instance resolver
func (m *Mapper) Instances() *InstanceResolver { return m.instances }

// Map grounds t. The relation is translated to English before validation.
// The head must resolve to a class. A tail with a class
// becomes an instance linked by an object property; a tail without one stays
// a literal under a datatype property.
func (m *Mapper) Map(ctx context.Context, t match.Triplet, lang string) (Result, error) {
	if len(t.Relations) > 0 {
		t.Relations = append([]string(nil), t.Relations...)
		t.Relations[0] = m.relationText(ctx, t.Relations[0], lang)
	}
	v, err := Validate(t)
	if err != nil {
		return Result{Triplet: v}, err
	}
	res := Result{Triplet: v}
	relation := v.Relations[0]

	head, err := m.classes.Resolve(ctx, v.Head, lang)
	if err != nil {
		return res, errors.Wrapf(err, "head %q", v.Head)
	}
	res.HeadClass = head.Class
	if res.Head, err = m.instances.Resolve(ctx, v.Head, head); err != nil {
		return res, errors.Wrapf(err, "head %q", v.Head)
	}

	var a Assertion
	tail, err := m.classes.Resolve(ctx, v.Tail, lang)
	switch {
	case err == nil:
		res.TailClass = tail.Class
		if res.Tail, err = m.instances.Resolve(ctx, v.Tail, tail); err != nil {
			return res, errors.Wrapf(err, "tail %q", v.Tail)
		}
		a, err = m.properties.Object(ctx, relation, head, tail, res.Head, res.Tail)
	case errors.Is(err, errors.ErrNoClass):
		res.Literal = v.Tail
		a, err = m.properties.Datatype(ctx, relation, head, res.Head, v.Tail)
	default:
		return res, errors.Wrapf(err, "tail %q", v.Tail)
	}
	if err != nil {
		return res, errors.Wrapf(err, "relation %q", relation)
	}

	res.Property = a.Property
	res.Kind = a.Kind.String()
	res.Outcome = a.Outcome
	res.Index = append(res.Index, IndexContent{ID: res.Head, Content: v.Head})
	if res.Tail != "" {
		res.Index = append(res.Index, IndexContent{ID: res.Tail, Content: v.Tail})
	}
	res.Index = append(res.Index, IndexContent{ID: a.Property, Content: relation})

	m.logger.Infow("Mapped triplet",
		logger.FieldHead, res.Head,
		logger.FieldProperty, res.Property,
		logger.FieldTail, firstNonEmpty(res.Tail, res.Literal),
		logger.FieldOutcome, string(res.Outcome))
	return res, nil
}

// relationText translates a non-English relation to English. Translation
// failures keep the original text.
func (m *Mapper) relationText(ctx context.Context, relation, lang string) string {
	if m.translator == nil || lang == "" || strings.EqualFold(lang, "en") {
		return relation
	}
	translated, err := m.translator.Translate(ctx, relation, lang, "en")
	if err != nil {
		m.logger.Warnw("Relation translation failed",
			logger.FieldRelation, relation,
			logger.FieldLanguage, lang,
			logger.FieldError, err)
		return relation
	}
	if translated = strings.TrimSpace(translated); translated == "" {
		return relation
	}
	return translated
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
