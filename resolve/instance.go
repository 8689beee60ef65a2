package resolve

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/logger"
	"github.com/teranos/ontomap/ontology"
)

// Instance resolution outcomes
const (
	InstanceFromCache = "cache"
	InstanceExisting  = "existing"
	InstanceMinted    = "minted"
)

// InstanceResolver finds or mints the instance a text names
type InstanceResolver struct {
	d      Deps
	logger *zap.SugaredLogger
}

// NewInstanceResolver creates an instance resolver
func NewInstanceResolver(d Deps) *InstanceResolver {
	d = d.withDefaults()
	return &InstanceResolver{d: d, logger: d.Logger.Named("instance")}
}

// Resolve returns the instance URI for text in class res. Titles already seen
// reuse their URI. Otherwise the stored and buffered instances of the class
// are searched for a title scoring above ContentSimilarity, and a new
// instance is minted when none does. Concurrent calls for one title share a
// single lookup.
func (r *InstanceResolver) Resolve(ctx context.Context, text string, res Resolution) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewInvalidInputError("empty instance title")
	}

	outcome := InstanceFromCache
	uri, err := r.d.Caches.TitleURIs.GetOrCreate(text, func() (string, error) {
		uri, found, err := r.find(ctx, text, res.Class)
		if err != nil {
			return "", err
		}
		if found {
			outcome = InstanceExisting
			return uri, nil
		}
		outcome = InstanceMinted
		return r.mint(text, res), nil
	})
	if err != nil {
		return "", err
	}
	r.d.Observer.ObserveResolution(StepInstance, outcome)
	return uri, nil
}

// Candidates returns the instances of classURI from the graph database and
// the writable graph, deduplicated by URI with stored instances first.
func (r *InstanceResolver) Candidates(ctx context.Context, classURI string) ([]ontology.Instance, error) {
	var stored []ontology.Instance
	if r.d.Instances != nil {
		var err error
		stored, err = r.d.Instances.InstancesOfClass(ctx, classURI)
		if err != nil {
			return nil, errors.WrapUnavailable(err, "instances of "+classURI)
		}
	}

	var buffered []ontology.Instance
	if r.d.Graph != nil {
		buffered = r.d.Graph.InstancesOf(classURI)
	}

	seen := make(map[string]int, len(stored)+len(buffered))
	out := make([]ontology.Instance, 0, len(stored)+len(buffered))
	for _, list := range [][]ontology.Instance{stored, buffered} {
		for _, inst := range list {
			if i, ok := seen[inst.URI]; ok {
				out[i].Titles = append(out[i].Titles, inst.Titles...)
				continue
			}
			seen[inst.URI] = len(out)
			out = append(out, ontology.Instance{URI: inst.URI, Titles: append([]string(nil), inst.Titles...)})
		}
	}
	return out, nil
}

func (r *InstanceResolver) find(ctx context.Context, text, classURI string) (string, bool, error) {
	candidates, err := r.Candidates(ctx, classURI)
	if err != nil {
		return "", false, err
	}

	threshold := r.d.Tuning.Load().ContentSimilarity
	for _, inst := range candidates {
		for _, title := range inst.Titles {
			score, err := r.d.Scorer.Similarity(ctx, text, title)
			if err != nil {
				return "", false, err
			}
			if score > threshold {
				r.logger.Debugw("Reusing instance",
					logger.FieldInstance, inst.URI,
					"title", title,
					logger.FieldScore, score)
				return inst.URI, true, nil
			}
		}
	}
	return "", false, nil
}

func (r *InstanceResolver) mint(text string, res Resolution) string {
	uri := res.Ontology.NewInstanceURI(res.Class)
	r.d.Graph.AddAll([]kg.Triple{
		kg.T(uri, kg.RDFType, kg.IRI(res.Class)),
		kg.T(uri, kg.DCTermsTitle, kg.Literal(text)),
	})
	r.logger.Infow("Minted instance",
		logger.FieldInstance, uri,
		logger.FieldClass, res.Class,
		"title", text)
	return uri
}
