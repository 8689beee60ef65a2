// Package metrics exports pipeline counters to Prometheus.
//
// A Recorder satisfies the observer interfaces of the pipeline, resolve and
// services packages, so one value instruments the whole system.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/teranos/ontomap/cache"
	"github.com/teranos/ontomap/errors"
)

const namespace = "ontomap"

// Recorder holds the pipeline metrics in its own registry
type Recorder struct {
	registry *prom.Registry

	sentences      *prom.CounterVec
	triplets       *prom.CounterVec
	resolutions    *prom.CounterVec
	serviceCalls   *prom.CounterVec
	serviceSeconds *prom.HistogramVec
	drains         *prom.CounterVec
	drainedTriples prom.Counter
}

// New creates a recorder with an empty registry
func New() *Recorder {
	r := &Recorder{
		registry: prom.NewRegistry(),
		sentences: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sentences_total",
			Help:      "Sentences seen, by detected language and outcome",
		}, []string{"lang", "outcome"}),
		triplets: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "triplets_total",
			Help:      "Candidate triplets, by map outcome",
		}, []string{"outcome"}),
		resolutions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Class, instance and property resolutions, by step and outcome",
		}, []string{"step", "outcome"}),
		serviceCalls: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "service_calls_total",
			Help:      "Model service calls",
		}, []string{"endpoint", "success"}),
		serviceSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "service_call_seconds",
			Help:      "Model service call duration in seconds",
			Buckets:   prom.DefBuckets,
		}, []string{"endpoint", "success"}),
		drains: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "drains_total",
			Help:      "Writable graph drains",
		}, []string{"success"}),
		drainedTriples: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "drained_triples_total",
			Help:      "Triples written by successful drains",
		}),
	}

	r.registry.MustRegister(r.sentences, r.triplets, r.resolutions,
		r.serviceCalls, r.serviceSeconds, r.drains, r.drainedTriples)
	return r
}

// WatchCaches exports the sizes and hit counts of caches, read at scrape time.
func (r *Recorder) WatchCaches(caches *cache.Registry) error {
	return r.registry.Register(newCacheCollector(caches))
}

// ObserveSentence counts a sentence
func (r *Recorder) ObserveSentence(lang, outcome string) {
	if lang == "" {
		lang = "unknown"
	}
	r.sentences.WithLabelValues(lang, outcome).Inc()
}

// ObserveTriplet counts a mapped or dropped triplet
func (r *Recorder) ObserveTriplet(outcome string) {
	r.triplets.WithLabelValues(outcome).Inc()
}

// ObserveResolution counts one resolution step
func (r *Recorder) ObserveResolution(step, outcome string) {
	r.resolutions.WithLabelValues(step, outcome).Inc()
}

// ObserveCall records a model service call
func (r *Recorder) ObserveCall(endpoint string, elapsed time.Duration, err error) {
	success := strconv.FormatBool(err == nil)
	r.serviceCalls.WithLabelValues(endpoint, success).Inc()
	r.serviceSeconds.WithLabelValues(endpoint, success).Observe(elapsed.Seconds())
}

// ObserveDrain records a drain
func (r *Recorder) ObserveDrain(triples int, err error) {
	r.drains.WithLabelValues(strconv.FormatBool(err == nil)).Inc()
	if err == nil {
		r.drainedTriples.Add(float64(triples))
	}
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prom.Registry { return r.registry }

// Handler serves /metrics and /healthz
func (r *Recorder) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve exposes Handler on addr until ctx is done
func (r *Recorder) Serve(ctx context.Context, addr string, log *zap.SugaredLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Metrics endpoint listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "metrics server on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// cacheCollector reads cache statistics at scrape time
type cacheCollector struct {
	caches  *cache.Registry
	entries *prom.Desc
	lookups *prom.Desc
}

func newCacheCollector(caches *cache.Registry) *cacheCollector {
	return &cacheCollector{
		caches: caches,
		entries: prom.NewDesc(prom.BuildFQName(namespace, "cache", "entries"),
			"Entries per resolver cache", []string{"cache"}, nil),
		lookups: prom.NewDesc(prom.BuildFQName(namespace, "cache", "lookups_total"),
			"Cache lookups by result", []string{"cache", "result"}, nil),
	}
}

func (c *cacheCollector) Describe(ch chan<- *prom.Desc) {
	ch <- c.entries
	ch <- c.lookups
}

func (c *cacheCollector) Collect(ch chan<- prom.Metric) {
	for _, s := range c.caches.Stats() {
		ch <- prom.MustNewConstMetric(c.entries, prom.GaugeValue, float64(s.Size), s.Name)
		ch <- prom.MustNewConstMetric(c.lookups, prom.CounterValue, float64(s.Hits), s.Name, "hit")
		ch <- prom.MustNewConstMetric(c.lookups, prom.CounterValue, float64(s.Misses), s.Name, "miss")
	}
}
