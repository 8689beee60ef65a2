package match

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/logger"
)

// Config tunes graph construction and search
type Config struct {
	Layer         LayerOptions
	MinPathLength int
	Workers       int
}

// Matcher extracts candidate triplets from one sentence
type Matcher struct {
	parser   Parser
	encoder  Encoder
	filter   *Filter
	searcher *Searcher
	layer    LayerOptions
	logger   *zap.SugaredLogger
}

// NewMatcher wires the match stage
func NewMatcher(parser Parser, encoder Encoder, filter *Filter, cfg Config, log *zap.SugaredLogger) *Matcher {
	log = log.Named("match")
	return &Matcher{
		parser:   parser,
		encoder:  encoder,
		filter:   filter,
		searcher: NewSearcher(cfg.Workers, cfg.MinPathLength, log),
		layer:    cfg.Layer,
		logger:   log,
	}
}

// Graph builds the word-level attention graph of a sentence
func (m *Matcher) Graph(ctx context.Context, sentence, lang string) (*Graph, Words, error) {
	doc, err := m.parser.Parse(ctx, sentence, lang)
	if err != nil {
		return nil, Words{}, errors.WrapUnavailable(err, "parse")
	}
	words := BuildWords(doc)
	if len(words.Texts) == 0 {
		return nil, words, nil
	}

	enc, err := m.encoder.Encode(ctx, words.Texts)
	if err != nil {
		return nil, words, errors.WrapUnavailable(err, "encode")
	}
	att, err := SelectLayer(enc.Attentions, m.layer)
	if err != nil {
		return nil, words, err
	}
	merged, err := Compress(att, enc.WordIDs)
	if err != nil {
		return nil, words, err
	}
	if len(merged) != len(words.Texts) {
		return nil, words, errors.NewInvalidInputError("compressed to %d words, sentence has %d", len(merged), len(words.Texts))
	}
	return BuildGraph(merged), words, nil
}

// Match returns the triplets of one sentence that survive filtering, in
// descending confidence order.
func (m *Matcher) Match(ctx context.Context, sentence, lang string) ([]Triplet, error) {
	start := time.Now()
	log := logger.FromContext(ctx, m.logger)

	g, words, err := m.Graph(ctx, sentence, lang)
	if err != nil {
		return nil, err
	}
	pairs := words.Pairs()
	if g == nil || len(pairs) == 0 {
		log.Debugw("No chunk pairs", logger.FieldSentence, sentence)
		return nil, nil
	}

	paths, err := m.searcher.Search(ctx, g, pairs, words.Blacklist())
	if err != nil {
		return nil, err
	}

	var triplets []Triplet
	for _, p := range paths {
		if t, ok := m.filter.Apply(ctx, p, words, lang); ok {
			triplets = append(triplets, t)
		}
	}

	log.Debugw("Matched sentence",
		logger.FieldSentence, sentence,
		logger.FieldLanguage, lang,
		"paths", len(paths),
		logger.FieldCount, len(triplets),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return triplets, nil
}
