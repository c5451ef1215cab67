package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/hazyhaar/recruitmatch/pkg/kit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the service metrics and the private registry they live in.
// A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	resolutions      *prometheus.CounterVec
	scores           *prometheus.CounterVec
	duplicateLookups prometheus.Counter
	duplicateResults prometheus.Histogram
	corpusEntities   prometheus.Gauge
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry it
// registers on a fresh private registry, so several managers can coexist.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "recruitmatch",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.resolutions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolutions_total",
		Help:      "Institution name resolutions by cascade stage (none when unresolved)",
	}, []string{"corpus", "stage"})

	m.scores = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scores_total",
		Help:      "Scored candidate matches by confidence level",
	}, []string{"level"})

	m.duplicateLookups = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_lookups_total",
		Help:      "Duplicate lookups run against the record store",
	})

	m.duplicateResults = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_results",
		Help:      "Number of likely duplicates returned per lookup",
		Buckets:   []float64{0, 1, 2, 3, 5, 10, 25, 50},
	})

	m.corpusEntities = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "corpus_entities",
		Help:      "Canonical entities loaded across all corpora",
	})

	m.requests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "endpoint_requests_total",
		Help:      "Endpoint calls by endpoint, transport and outcome",
	}, []string{"endpoint", "transport", "outcome"})

	m.requestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "endpoint_duration_milliseconds",
		Help:      "Endpoint latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "transport"})
}

// Registry returns the registry metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordResolution counts one resolution. An empty stage counts as "none".
func (m *Manager) RecordResolution(corpus, stage string) {
	if m == nil {
		return
	}
	if stage == "" {
		stage = "none"
	}
	m.resolutions.WithLabelValues(corpus, stage).Inc()
}

// RecordScore counts one scored match by its confidence level key.
func (m *Manager) RecordScore(level string) {
	if m == nil {
		return
	}
	m.scores.WithLabelValues(level).Inc()
}

// RecordDuplicateLookup counts one duplicate lookup returning n matches.
func (m *Manager) RecordDuplicateLookup(n int) {
	if m == nil {
		return
	}
	m.duplicateLookups.Inc()
	m.duplicateResults.Observe(float64(n))
}

// UpdateCorpusEntities sets the loaded entity gauge.
func (m *Manager) UpdateCorpusEntities(n int) {
	if m == nil {
		return
	}
	m.corpusEntities.Set(float64(n))
}

// Middleware records call counts and latency for the named endpoint.
func (m *Manager) Middleware(name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		if m == nil {
			return next
		}
		return func(ctx context.Context, request any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, request)
			transport := kit.GetTransport(ctx)
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			m.requests.WithLabelValues(name, transport, outcome).Inc()
			m.requestDuration.WithLabelValues(name, transport).Observe(float64(time.Since(start).Microseconds()) / 1000)
			return resp, err
		}
	}
}
