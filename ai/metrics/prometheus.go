// Package metrics provides Prometheus metrics export for the chat pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports pipeline metrics in Prometheus format.
type Exporter struct {
	registry *prometheus.Registry

	chatRequests        *prometheus.CounterVec
	chatLatency         prometheus.Histogram
	guardrailRejections prometheus.Counter
	retrievalLatency    prometheus.Histogram
	retrievalFailures   prometheus.Counter
}

// NewExporter creates a new metrics exporter with its own registry.
func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()

	e := &Exporter{
		registry: registry,
		chatRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "medvani",
				Subsystem: "chat",
				Name:      "requests_total",
				Help:      "Chat requests by outcome",
			},
			[]string{"outcome"}, // ok, rejected, degraded
		),
		chatLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "medvani",
				Subsystem: "chat",
				Name:      "latency_seconds",
				Help:      "End-to-end chat turn latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		guardrailRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "medvani",
				Subsystem: "chat",
				Name:      "guardrail_rejections_total",
				Help:      "Requests rejected by the safety guardrail",
			},
		),
		retrievalLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "medvani",
				Subsystem: "retrieval",
				Name:      "latency_seconds",
				Help:      "Vector retrieval latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
		),
		retrievalFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "medvani",
				Subsystem: "retrieval",
				Name:      "failures_total",
				Help:      "Vector retrieval failures degraded to empty grounding",
			},
		),
	}

	registry.MustRegister(
		e.chatRequests,
		e.chatLatency,
		e.guardrailRejections,
		e.retrievalLatency,
		e.retrievalFailures,
	)
	return e
}

// ObserveChat records one finished chat turn.
func (e *Exporter) ObserveChat(outcome string, duration time.Duration) {
	e.chatRequests.WithLabelValues(outcome).Inc()
	e.chatLatency.Observe(duration.Seconds())
}

// ObserveGuardrailRejection records one guardrail hit.
func (e *Exporter) ObserveGuardrailRejection() {
	e.guardrailRejections.Inc()
}

// ObserveRetrieval records one retrieval attempt.
func (e *Exporter) ObserveRetrieval(duration time.Duration, failed bool) {
	e.retrievalLatency.Observe(duration.Seconds())
	if failed {
		e.retrievalFailures.Inc()
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
