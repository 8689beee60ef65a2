// Package pipeline drives text through the match and map stages and decides
// when the writable graph is drained.
//
// Text is cut into sentences and each sentence runs on its own: language
// detection, NER, candidate matching, then mapping of every candidate. A
// sentence or triplet that fails is logged and skipped; the rest of the text
// still goes through.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/ontomap/am"
	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/kg"
	"github.com/teranos/ontomap/logger"
	"github.com/teranos/ontomap/match"
	"github.com/teranos/ontomap/metadata"
	"github.com/teranos/ontomap/resolve"
)

// Sentence outcomes
const (
	SentenceProcessed   = "processed"
	SentenceUnsupported = "unsupported_language"
	SentenceFailed      = "failed"
)

// Triplet outcomes besides the property outcomes of resolve
const (
	TripletMiss   = "miss"
	TripletFailed = "failed"
)

// TripletMatcher extracts candidate triplets from a sentence. See match.Matcher.
type TripletMatcher interface {
	Match(ctx context.Context, sentence, lang string) ([]match.Triplet, error)
}

// Recorder is told what the pipeline did
type Recorder interface {
	ObserveSentence(lang, outcome string)
	ObserveTriplet(outcome string)
	ObserveDrain(triples int, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSentence(string, string) {}
func (nopRecorder) ObserveTriplet(string)          {}
func (nopRecorder) ObserveDrain(int, error)        {}

// Deps are the stages and stores a Pipeline drives
type Deps struct {
	Matcher    TripletMatcher
	Mapper     *resolve.Mapper
	NER        resolve.EntityRecognizer // optional
	Detector   LanguageDetector
	Graph      *kg.WritableGraph
	Tuning     *resolve.Tuning
	Recorder   Recorder // optional
	DrainEvery int      // sentences between drains, 0 disables
	Logger     *zap.SugaredLogger
}

// Pipeline extracts and grounds triplets. Sentences are processed one at a
// time so each sees the caches left by the previous one.
type Pipeline struct {
	d        Deps
	metadata *metadata.Mapper

	mu         sync.Mutex // serializes sentences and guards the drain counter
	drainEvery int
	pending    int

	logger *zap.SugaredLogger
}

// New creates a pipeline
func New(d Deps) *Pipeline {
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	if d.Detector == nil {
		d.Detector = NewDetector()
	}
	if d.Tuning == nil {
		d.Tuning = resolve.NewTuning(resolve.DefaultThresholds())
	}
	return &Pipeline{d: d, drainEvery: d.DrainEvery, logger: d.Logger.Named("pipeline")}
}

// SetMetadataMapper attaches the mapper used by MapMetadata
func (p *Pipeline) SetMetadataMapper(m *metadata.Mapper) { p.metadata = m }

// ExtractTriplets runs text through the match and map stages and returns the
// triplets grounded in the ontology. Only cancellation of ctx is returned as
// an error; sentence and triplet failures are logged and skipped.
func (p *Pipeline) ExtractTriplets(ctx context.Context, text string) ([]resolve.Result, error) {
	ctx = logger.WithRequestID(ctx, uuid.NewString())
	log := logger.FromContext(ctx, p.logger)
	start := time.Now()

	sentences := SplitSentences(text)
	var results []resolve.Result
	for _, sentence := range sentences {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, p.sentence(ctx, sentence)...)
		p.sentenceDone(ctx)
	}

	log.Infow("Extracted triplets",
		"sentences", len(sentences),
		logger.FieldCount, len(results),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return results, nil
}

func (p *Pipeline) sentence(ctx context.Context, sentence string) []resolve.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	log := logger.FromContext(ctx, p.logger)

	lang, ok := p.d.Detector.Detect(sentence)
	if !ok {
		p.d.Recorder.ObserveSentence(lang, SentenceUnsupported)
		log.Warnw("Sentence skipped",
			logger.FieldSentence, sentence,
			logger.FieldLanguage, lang,
			logger.FieldError, errors.ErrUnsupportedLanguage)
		return nil
	}

	if p.d.NER != nil {
		entities, err := p.d.NER.Predict(ctx, sentence)
		if err != nil {
			log.Warnw("NER prediction failed",
				logger.FieldSentence, sentence,
				logger.FieldError, err)
		} else {
			p.d.Mapper.Classes().RecordEntities(entities)
		}
	}

	triplets, err := p.d.Matcher.Match(ctx, sentence, lang)
	if err != nil {
		p.d.Recorder.ObserveSentence(lang, SentenceFailed)
		log.Warnw("Match failed",
			logger.FieldSentence, sentence,
			logger.FieldLanguage, lang,
			logger.FieldError, err)
		return nil
	}
	p.d.Recorder.ObserveSentence(lang, SentenceProcessed)

	var results []resolve.Result
	for _, t := range triplets {
		if ctx.Err() != nil {
			break
		}
		res, err := p.d.Mapper.Map(ctx, t, lang)
		switch {
		case err == nil:
			p.d.Recorder.ObserveTriplet(string(res.Outcome))
			results = append(results, res)
		case errors.IsResolutionMiss(err):
			p.d.Recorder.ObserveTriplet(TripletMiss)
			log.Debugw("Triplet not mapped",
				logger.FieldHead, t.Head,
				logger.FieldTail, t.Tail,
				logger.FieldError, err)
		default:
			p.d.Recorder.ObserveTriplet(TripletFailed)
			log.Warnw("Triplet mapping failed",
				logger.FieldHead, t.Head,
				logger.FieldTail, t.Tail,
				logger.FieldError, err)
		}
	}
	return results
}

// sentenceDone counts a processed sentence and drains every drain_every
// sentences.
func (p *Pipeline) sentenceDone(ctx context.Context) {
	p.mu.Lock()
	p.pending++
	due := p.drainEvery > 0 && p.pending >= p.drainEvery
	p.mu.Unlock()

	if due {
		if _, err := p.Drain(ctx); err != nil {
			logger.FromContext(ctx, p.logger).Errorw("Scheduled drain failed", logger.FieldError, err)
		}
	}
}

// Drain flushes the writable graph: batch file, canonical merge, import. On
// failure the buffered triples are kept for the next drain.
func (p *Pipeline) Drain(ctx context.Context) (kg.DrainResult, error) {
	p.mu.Lock()
	p.pending = 0
	p.mu.Unlock()

	res, err := p.d.Graph.Drain(ctx)
	p.d.Recorder.ObserveDrain(res.Triples, err)
	return res, err
}

// MapMetadata maps metadata records onto instances of the class chosen for
// classQuery and returns the URIs of the nodes created or updated.
func (p *Pipeline) MapMetadata(ctx context.Context, records []metadata.Record, classQuery string) ([]string, error) {
	if p.metadata == nil {
		return nil, errors.New("metadata mapping is not configured")
	}
	ctx = logger.WithRequestID(ctx, uuid.NewString())
	return p.metadata.MapMetadata(ctx, records, classQuery)
}

// LinkDescription extracts triplets from a metadata description and returns
// the nodes they mention.
func (p *Pipeline) LinkDescription(ctx context.Context, text string) ([]string, error) {
	results, err := p.ExtractTriplets(ctx, text)
	var nodes []string
	for _, r := range results {
		nodes = append(nodes, r.Head)
		if r.Tail != "" {
			nodes = append(nodes, r.Tail)
		}
	}
	return nodes, err
}

// Reconfigure applies reloaded pipeline settings. Thresholds and the drain
// interval change live; match settings need a restart.
func (p *Pipeline) Reconfigure(cfg *am.Config) {
	p.d.Tuning.Store(Thresholds(cfg.Pipeline))

	p.mu.Lock()
	p.drainEvery = cfg.Pipeline.DrainEvery
	p.mu.Unlock()

	p.logger.Infow("Pipeline reconfigured",
		"class_accept", cfg.Pipeline.ClassAccept,
		"property_similarity", cfg.Pipeline.PropertySimilarity,
		"drain_every", cfg.Pipeline.DrainEvery)
}

// Tuning returns the live thresholds
func (p *Pipeline) Tuning() *resolve.Tuning { return p.d.Tuning }

// Thresholds converts pipeline settings into resolver thresholds
func Thresholds(c am.PipelineConfig) resolve.Thresholds {
	return resolve.Thresholds{
		ClassAccept:        c.ClassAccept,
		ClassSimilarity:    c.ClassSimilarity,
		PropertySimilarity: c.PropertySimilarity,
		ContentSimilarity:  c.ContentSimilarity,
		EntityReuse:        c.EntityReuse,
	}
}
