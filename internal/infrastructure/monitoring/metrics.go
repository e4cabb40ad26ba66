// Package monitoring exposes Prometheus metrics for the capsule engine.
package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	compileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capsule_compile_total",
		Help: "Total compile attempts by outcome",
	}, []string{"status"})

	compileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "capsule_compile_duration_seconds",
		Help:    "Compile pipeline duration",
		Buckets: prometheus.DefBuckets,
	})

	sessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capsule_session_transitions_total",
		Help: "Session state transitions by surface and resulting status",
	}, []string{"surface", "status"})

	slotsInUse = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "capsule_slots_in_use",
		Help: "Concurrency slots currently held per surface",
	}, []string{"surface"})

	budgetTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capsule_budget_timeouts_total",
		Help: "Boot and run budget expirations by surface",
	}, []string{"surface", "kind"})

	bridgeMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capsule_bridge_messages_total",
		Help: "Bridge envelopes by type and direction",
	}, []string{"type", "direction"})

	bridgeDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capsule_bridge_dropped_total",
		Help: "Inbound bridge messages dropped by origin or source checks",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capsule_http_requests_total",
		Help: "HTTP requests by method, path, and status",
	}, []string{"method", "path", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "capsule_http_request_duration_seconds",
		Help:    "HTTP request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// RecordCompile records one compile attempt.
func RecordCompile(ok bool, elapsed time.Duration) {
	status := "ok"
	if !ok {
		status = "rejected"
	}
	compileTotal.WithLabelValues(status).Inc()
	compileDuration.Observe(elapsed.Seconds())
}

// RecordSessionTransition records a session entering a status.
func RecordSessionTransition(surface, status string) {
	sessionTransitions.WithLabelValues(surface, status).Inc()
}

// SetSlotsInUse updates the slot gauge for a surface.
func SetSlotsInUse(surface string, n int) {
	slotsInUse.WithLabelValues(surface).Set(float64(n))
}

// RecordBudgetTimeout records a boot or run budget expiration.
func RecordBudgetTimeout(surface, kind string) {
	budgetTimeouts.WithLabelValues(surface, kind).Inc()
}

// RecordBridgeMessage records one bridge envelope.
func RecordBridgeMessage(msgType, direction string) {
	bridgeMessages.WithLabelValues(msgType, direction).Inc()
}

// RecordBridgeDropped records an inbound message dropped by security checks.
func RecordBridgeDropped() {
	bridgeDropped.Inc()
}

// Middleware instruments HTTP requests.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus scrape handler wrapped for gin.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Snapshot returns a JSON-friendly view of all registered metric families,
// summed across label sets. Used by the stats endpoint for quick inspection
// without a Prometheus server.
func Snapshot() map[string]float64 {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return map[string]float64{}
	}

	out := make(map[string]float64, len(families))
	for _, family := range families {
		var total float64
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				total += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				total += metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				total += float64(metric.GetHistogram().GetSampleCount())
			}
		}
		out[family.GetName()] = total
	}
	return out
}
