// Package semantic scores text similarity with sentence embeddings.
package semantic

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/ontomap/cache"
	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/internal/util"
)

// Embedder turns a text into a sentence embedding
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Scorer compares texts by cosine similarity of their embeddings. Embeddings
// are cached per text for the lifetime of the scorer.
type Scorer struct {
	embedder Embedder
	vectors  *cache.Store[[]float32]
	logger   *zap.SugaredLogger
}

// NewScorer creates a scorer backed by embedder
func NewScorer(embedder Embedder, logger *zap.SugaredLogger) *Scorer {
	return &Scorer{
		embedder: embedder,
		vectors:  cache.NewStore[[]float32]("embedding"),
		logger:   logger.Named("semantic"),
	}
}

// Embed returns the (cached) embedding of text
func (s *Scorer) Embed(ctx context.Context, text string) ([]float32, error) {
	key := strings.TrimSpace(text)
	if key == "" {
		return nil, errors.NewInvalidInputError("cannot embed empty text")
	}
	return s.vectors.GetOrCreate(key, func() ([]float32, error) {
		v, err := s.embedder.Embed(ctx, key)
		if err != nil {
			return nil, errors.WrapUnavailable(err, "embed")
		}
		return v, nil
	})
}

// Similarity returns the cosine similarity of a and b
func (s *Scorer) Similarity(ctx context.Context, a, b string) (float64, error) {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) && strings.TrimSpace(a) != "" {
		return 1, nil
	}
	va, err := s.Embed(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := s.Embed(ctx, b)
	if err != nil {
		return 0, err
	}
	return util.CosineSimilarity(va, vb), nil
}

// BestMatch returns the index and score of the candidate most similar to
// query. A candidate must score strictly above the running best, which starts
// at 0, so the result is -1 when nothing scores above 0. Empty candidates are
// skipped.
func (s *Scorer) BestMatch(ctx context.Context, query string, candidates []string) (int, float64, error) {
	best, bestScore := -1, 0.0
	if len(candidates) == 0 {
		return best, bestScore, nil
	}

	vq, err := s.Embed(ctx, query)
	if err != nil {
		return best, bestScore, err
	}

	for i, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		vc, err := s.Embed(ctx, c)
		if err != nil {
			return -1, 0, err
		}
		if score := util.CosineSimilarity(vq, vc); score > bestScore {
			best, bestScore = i, score
		}
	}

	s.logger.Debugw("Best match",
		"query", query,
		"candidates", len(candidates),
		"index", best,
		"score", bestScore)
	return best, bestScore, nil
}

// CacheSize returns the number of cached embeddings
func (s *Scorer) CacheSize() int { return s.vectors.Len() }
