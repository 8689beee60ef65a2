package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ontomap/cache"
	"github.com/teranos/ontomap/errors"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.ObserveSentence("en", "processed")
	r.ObserveSentence("", "unsupported_language")
	r.ObserveTriplet("matched")
	r.ObserveTriplet("matched")
	r.ObserveResolution("class", "index")
	r.ObserveCall("/v1/ner", 20*time.Millisecond, nil)
	r.ObserveCall("/v1/ner", time.Second, errors.New("503"))
	r.ObserveDrain(12, nil)
	r.ObserveDrain(4, errors.New("disk full"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.sentences.WithLabelValues("en", "processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sentences.WithLabelValues("unknown", "unsupported_language")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.triplets.WithLabelValues("matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolutions.WithLabelValues("class", "index")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.serviceCalls.WithLabelValues("/v1/ner", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.serviceCalls.WithLabelValues("/v1/ner", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.drains.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.drains.WithLabelValues("false")))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.drainedTriples))
}

func TestRecorder_CacheCollector(t *testing.T) {
	caches := cache.NewRegistry()
	caches.TitleURIs.Set("Paris", "urn:paris")
	caches.TitleURIs.Get("Paris")
	caches.TitleURIs.Get("Lyon")

	r := New()
	require.NoError(t, r.WatchCaches(caches))
	n, err := testutil.GatherAndCount(r.Registry(), "ontomap_cache_entries")
	require.NoError(t, err)
	assert.Equal(t, len(caches.Stats()), n)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `ontomap_cache_entries{cache="title_uri"} 1`)
	assert.Contains(t, string(body), `ontomap_cache_lookups_total{cache="title_uri",result="hit"} 1`)
	assert.Contains(t, string(body), `ontomap_cache_lookups_total{cache="title_uri",result="miss"} 1`)
}

func TestRecorder_Healthz(t *testing.T) {
	srv := httptest.NewServer(New().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
