// Package metrics exposes the companion process's Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	authOps       *prometheus.CounterVec
	gateDecisions *prometheus.CounterVec
	apiRequests   *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
	sseClients    prometheus.Gauge
	tokensPurged  prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contesthub_auth_operations_total",
			Help: "Session operations by outcome.",
		}, []string{"operation", "outcome"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contesthub_gate_decisions_total",
			Help: "Route admission decisions.",
		}, []string{"gate", "decision"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contesthub_api_requests_total",
			Help: "Backend API requests by result category.",
		}, []string{"method", "category"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contesthub_api_request_duration_seconds",
			Help:    "Backend API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "contesthub_sse_clients",
			Help: "Connected session event streams.",
		}),
		tokensPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contesthub_refresh_tokens_purged_total",
			Help: "Expired refresh tokens removed by the cleanup loop.",
		}),
	}

	reg.MustRegister(
		c.authOps,
		c.gateDecisions,
		c.apiRequests,
		c.apiLatency,
		c.sseClients,
		c.tokensPurged,
	)

	return c
}

func (c *Collector) ObserveAuth(operation, outcome string) {
	c.authOps.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) ObserveGate(gate, decision string) {
	c.gateDecisions.WithLabelValues(gate, decision).Inc()
}

func (c *Collector) ObserveRequest(method, category string, duration time.Duration) {
	c.apiRequests.WithLabelValues(method, category).Inc()
	c.apiLatency.WithLabelValues(method).Observe(duration.Seconds())
}

func (c *Collector) SSEClientConnected() {
	c.sseClients.Inc()
}

func (c *Collector) SSEClientDisconnected() {
	c.sseClients.Dec()
}

func (c *Collector) TokensPurged(n int64) {
	c.tokensPurged.Add(float64(n))
}

// Handler serves the gathered metrics in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
