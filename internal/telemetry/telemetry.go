package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Path labels for the outcome of one request.
const (
	PathKnowledge = "knowledge"
	PathFallback  = "fallback"
	PathNotReady  = "not_ready"
	PathError     = "error"
)

// Telemetry collects pipeline metrics on a private prometheus registry. A nil
// *Telemetry is a valid no-op, which keeps tests free of metric plumbing.
type Telemetry struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	requestTime   *prometheus.HistogramVec
	stageTime     *prometheus.HistogramVec
	lookupMisses  *prometheus.CounterVec
	streamedChunk prometheus.Counter
}

func New() *Telemetry {
	t := &Telemetry{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mathtutor_requests_total",
			Help: "Questions handled, by topic and outcome path",
		}, []string{"topic", "path"}),
		requestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mathtutor_request_duration_seconds",
			Help:    "End-to-end question handling latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		stageTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mathtutor_stage_duration_seconds",
			Help:    "Latency of individual pipeline stages",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		lookupMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mathtutor_lookup_misses_total",
			Help: "Recommendation lookups that failed or returned no match",
		}, []string{"stage", "reason"}),
		streamedChunk: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mathtutor_stream_chunks_total",
			Help: "Answer chunks forwarded over SSE",
		}),
	}
	t.registry.MustRegister(t.requests, t.requestTime, t.stageTime, t.lookupMisses, t.streamedChunk)
	return t
}

// Handler serves the registry for the /metrics route.
func (t *Telemetry) Handler() http.Handler {
	if t == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

func (t *Telemetry) ObserveRequest(topic, path string, d time.Duration) {
	if t == nil {
		return
	}
	t.requests.WithLabelValues(topic, path).Inc()
	t.requestTime.WithLabelValues(topic).Observe(d.Seconds())
}

func (t *Telemetry) ObserveStage(stage string, d time.Duration) {
	if t == nil {
		return
	}
	t.stageTime.WithLabelValues(stage).Observe(d.Seconds())
}

func (t *Telemetry) RecordLookupMiss(stage, reason string) {
	if t == nil {
		return
	}
	t.lookupMisses.WithLabelValues(stage, reason).Inc()
}

func (t *Telemetry) RecordStreamChunk() {
	if t == nil {
		return
	}
	t.streamedChunk.Inc()
}
