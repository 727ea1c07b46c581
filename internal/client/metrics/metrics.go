// Package metrics collects Prometheus metrics for the client's backend
// traffic and the status transitions it drives.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the gateway and the controllers report into.
type Recorder interface {
	// RecordRequest records one backend call. statusCode is 0 when the
	// request never produced a response.
	RecordRequest(op string, statusCode int, d time.Duration)
	RecordStatusChange(to string, ok bool)
	RecordStaleResponse()
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	statusChanges *prometheus.CounterVec
	stale         prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civicdesk_backend_requests_total",
			Help: "Backend API calls by operation and HTTP status code (0 = transport failure).",
		}, []string{"op", "status_code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "civicdesk_backend_request_seconds",
			Help:    "Backend API call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civicdesk_status_changes_total",
			Help: "Issue status changes by target status and outcome.",
		}, []string{"to", "outcome"}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "civicdesk_stale_responses_total",
			Help: "List fetch responses discarded because a newer fetch superseded them.",
		}),
	}

	reg.MustRegister(c.requests, c.latency, c.statusChanges, c.stale)
	return c
}

func (c *Collector) RecordRequest(op string, statusCode int, d time.Duration) {
	c.requests.WithLabelValues(op, strconv.Itoa(statusCode)).Inc()
	c.latency.WithLabelValues(op).Observe(d.Seconds())
}

func (c *Collector) RecordStatusChange(to string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	c.statusChanges.WithLabelValues(to, outcome).Inc()
}

func (c *Collector) RecordStaleResponse() {
	c.stale.Inc()
}

// Nop is a Recorder that records nothing.
type Nop struct{}

func (Nop) RecordRequest(string, int, time.Duration) {}
func (Nop) RecordStatusChange(string, bool)          {}
func (Nop) RecordStaleResponse()                     {}

// Handler serves the gathered metrics on /metrics.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
