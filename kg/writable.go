package kg

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/ontomap/errors"
)

// Importer loads a serialized graph file into the graph database
type Importer interface {
	ImportFile(ctx context.Context, location string, format Format) error
}

// DrainConfig locates drain outputs
type DrainConfig struct {
	OutputDir     string // per-batch files
	CanonicalPath string // extended ontology every batch is merged into
	ImportBaseURL string // when set, the importer is given BaseURL/filename instead of a path
	Prefixes      map[string]string
}

// DrainResult describes a completed drain
type DrainResult struct {
	File     string
	Location string
	Triples  int
}

// WritableGraph buffers triples asserted by the map stage. Additions and
// drains take separate locks so a slow merge/import never blocks population;
// a triple added while a drain is running lands in the next batch.
type WritableGraph struct {
	addMu   sync.Mutex // guards graph pointer swaps and additions
	drainMu sync.Mutex // one drain at a time

	graph    *Graph
	cfg      DrainConfig
	importer Importer
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// NewWritableGraph creates an empty writable graph
func NewWritableGraph(cfg DrainConfig, importer Importer, logger *zap.SugaredLogger) *WritableGraph {
	if cfg.Prefixes == nil {
		cfg.Prefixes = DefaultPrefixes
	}
	return &WritableGraph{
		graph:    NewGraph(),
		cfg:      cfg,
		importer: importer,
		logger:   logger.Named("kg"),
		now:      time.Now,
	}
}

// Add asserts a triple. Malformed triples are logged and dropped; population
// never aborts the pipeline.
func (w *WritableGraph) Add(t Triple) {
	w.addMu.Lock()
	defer w.addMu.Unlock()

	if !t.Valid() {
		w.logger.Warnw("Dropping malformed triple", "triple", t.Key())
		return
	}
	w.graph.Add(t)
}

// AddAll asserts several triples under one acquisition of the add lock
func (w *WritableGraph) AddAll(triples []Triple) {
	w.addMu.Lock()
	defer w.addMu.Unlock()

	for _, t := range triples {
		if !t.Valid() {
			w.logger.Warnw("Dropping malformed triple", "triple", t.Key())
			continue
		}
		w.graph.Add(t)
	}
}

// current returns the live buffer
func (w *WritableGraph) current() *Graph {
	w.addMu.Lock()
	defer w.addMu.Unlock()
	return w.graph
}

// Len returns the number of buffered triples
func (w *WritableGraph) Len() int {
	return w.current().Len()
}

// Snapshot returns a copy of the buffered triples
func (w *WritableGraph) Snapshot() []Triple {
	return w.current().Triples()
}

// InstancesOf returns buffered instances of classURI
func (w *WritableGraph) InstancesOf(classURI string) []Instance {
	return w.current().InstancesOf(classURI)
}

// Drain takes the buffered triples, writes them to a batch file, merges them
// into the canonical ontology file and asks the importer to load the batch.
// On failure the taken triples go back into the buffer for the next attempt.
func (w *WritableGraph) Drain(ctx context.Context) (DrainResult, error) {
	w.drainMu.Lock()
	defer w.drainMu.Unlock()

	w.addMu.Lock()
	batch := w.graph
	w.graph = NewGraph()
	w.addMu.Unlock()

	if batch.Len() == 0 {
		return DrainResult{}, nil
	}

	result, err := w.flush(ctx, batch)
	if err != nil {
		w.addMu.Lock()
		restored := w.graph.Len()
		batch.Merge(w.graph)
		w.graph = batch
		w.addMu.Unlock()

		w.logger.Errorw("Drain failed, batch kept for retry",
			"triples", batch.Len(),
			"added_during_drain", restored,
			"error", err)
		return DrainResult{}, err
	}

	w.logger.Infow("Drained writable graph",
		"file", result.File,
		"location", result.Location,
		"triples", result.Triples)
	return result, nil
}

func (w *WritableGraph) flush(ctx context.Context, batch *Graph) (DrainResult, error) {
	name := fmt.Sprintf("ontology_updated_%s.ttl", w.now().UTC().Format("20060102T150405.000000000"))
	file := filepath.Join(w.cfg.OutputDir, name)

	if err := WriteFile(file, batch, FormatTurtle, w.cfg.Prefixes); err != nil {
		return DrainResult{}, errors.Wrap(err, "serialize batch")
	}

	if w.cfg.CanonicalPath != "" {
		if err := MergeIntoFile(w.cfg.CanonicalPath, batch, w.cfg.Prefixes); err != nil {
			return DrainResult{}, errors.Wrap(err, "merge with canonical ontology")
		}
	}

	location := file
	if w.cfg.ImportBaseURL != "" {
		location = w.cfg.ImportBaseURL + "/" + name
	}
	if w.importer != nil {
		if err := w.importer.ImportFile(ctx, location, FormatTurtle); err != nil {
			return DrainResult{}, errors.Wrapf(err, "import %s", location)
		}
	}

	return DrainResult{File: file, Location: location, Triples: batch.Len()}, nil
}

// MergeIntoFile unions batch with the graph stored at path (if any) and
// rewrites path as Turtle.
func MergeIntoFile(path string, batch *Graph, prefixes map[string]string) error {
	merged := NewGraph()
	existing, err := ReadFile(path, FormatForPath(path))
	switch {
	case err == nil:
		merged.Merge(existing)
	case isNotExist(err):
	default:
		return err
	}
	merged.Merge(batch)
	return WriteFile(path, merged, FormatForPath(path), prefixes)
}
