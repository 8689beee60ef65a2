package kg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/ontomap/errors"
)

type recordingImporter struct {
	mu        sync.Mutex
	locations []string
	err       error
	onImport  func()
}

func (r *recordingImporter) ImportFile(_ context.Context, location string, _ Format) error {
	if r.onImport != nil {
		r.onImport()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations = append(r.locations, location)
	return r.err
}

func newTestWritable(t *testing.T, importer Importer) (*WritableGraph, DrainConfig) {
	t.Helper()
	dir := t.TempDir()
	cfg := DrainConfig{
		OutputDir:     filepath.Join(dir, "out"),
		CanonicalPath: filepath.Join(dir, "ontology.ttl"),
	}
	w := NewWritableGraph(cfg, importer, zaptest.NewLogger(t).Sugar())
	w.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return w, cfg
}

func TestWritableGraphDrain(t *testing.T) {
	importer := &recordingImporter{}
	w, cfg := newTestWritable(t, importer)

	w.Add(T(ex+"paris", RDFType, IRI(ex+"City")))
	w.AddAll([]Triple{
		T(ex+"paris", DCTermsTitle, Literal("Paris")),
		T("", RDFType, IRI(ex+"City")),
	})
	require.Equal(t, 2, w.Len(), "malformed triple dropped")

	result, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Triples)
	assert.True(t, strings.HasPrefix(filepath.Base(result.File), "ontology_updated_"))
	assert.Equal(t, result.File, result.Location)
	assert.Equal(t, []string{result.File}, importer.locations)
	assert.Zero(t, w.Len())

	batch, err := ReadFile(result.File, FormatTurtle)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Len())

	canonical, err := ReadFile(cfg.CanonicalPath, FormatTurtle)
	require.NoError(t, err)
	assert.Equal(t, 2, canonical.Len())
}

func TestWritableGraphDrainMergesCanonical(t *testing.T) {
	w, cfg := newTestWritable(t, nil)

	existing := NewGraph()
	existing.Add(T(ex+"City", RDFType, IRI(OWLClass)))
	require.NoError(t, WriteFile(cfg.CanonicalPath, existing, FormatTurtle, DefaultPrefixes))

	w.Add(T(ex+"paris", RDFType, IRI(ex+"City")))
	_, err := w.Drain(context.Background())
	require.NoError(t, err)

	canonical, err := ReadFile(cfg.CanonicalPath, FormatTurtle)
	require.NoError(t, err)
	assert.True(t, canonical.Has(T(ex+"City", RDFType, IRI(OWLClass))))
	assert.True(t, canonical.Has(T(ex+"paris", RDFType, IRI(ex+"City"))))
}

func TestWritableGraphDrainEmpty(t *testing.T) {
	importer := &recordingImporter{}
	w, cfg := newTestWritable(t, importer)

	result, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DrainResult{}, result)
	assert.Empty(t, importer.locations)

	_, err = os.Stat(cfg.OutputDir)
	assert.True(t, os.IsNotExist(err))
}

func TestWritableGraphDrainFailureKeepsBatch(t *testing.T) {
	importer := &recordingImporter{err: errors.New("triple store down")}
	w, _ := newTestWritable(t, importer)

	first := T(ex+"paris", RDFType, IRI(ex+"City"))
	late := T(ex+"lyon", RDFType, IRI(ex+"City"))
	importer.onImport = func() { w.Add(late) }

	w.Add(first)
	_, err := w.Drain(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "triple store down")

	snapshot := w.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, first, snapshot[0], "failed batch goes back in front")
	assert.Equal(t, late, snapshot[1])

	importer.err = nil
	importer.onImport = nil
	result, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Triples)
}

func TestWritableGraphImportBaseURL(t *testing.T) {
	importer := &recordingImporter{}
	w, _ := newTestWritable(t, importer)
	w.cfg.ImportBaseURL = "http://files.local/ontologies"

	w.Add(T(ex+"paris", RDFType, IRI(ex+"City")))
	result, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://files.local/ontologies/"+filepath.Base(result.File), result.Location)
}

func TestWritableGraphConcurrentAdds(t *testing.T) {
	w, _ := newTestWritable(t, &recordingImporter{})

	var wg sync.WaitGroup
	drained := 0
	var drainedMu sync.Mutex
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				w.Add(T(ex+"node", ex+"p", TypedLiteral(strings.Repeat("x", i+1)+string(rune('a'+j%26))+string(rune('a'+j/26)), "")))
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for k := 0; k < 5; k++ {
			result, err := w.Drain(context.Background())
			assert.NoError(t, err)
			drainedMu.Lock()
			drained += result.Triples
			drainedMu.Unlock()
		}
	}()
	wg.Wait()

	assert.Equal(t, 400, drained+w.Len(), "no triple lost between buffer and drains")
}

func TestWritableGraphDropsUnserializableIRI(t *testing.T) {
	importer := &recordingImporter{}
	w, _ := newTestWritable(t, importer)

	w.Add(T(ex+"ds1", ex+"price|eur", TypedLiteral("12", XSDInteger)))
	w.Add(T(ex+"ds1", ex+"price", TypedLiteral("12", XSDInteger)))
	require.Equal(t, 1, w.Len())

	result, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Triples)
	assert.Len(t, importer.locations, 1)

	batch, err := ReadFile(result.File, FormatTurtle)
	require.NoError(t, err)
	assert.True(t, batch.Has(T(ex+"ds1", ex+"price", TypedLiteral("12", XSDInteger))))
}
