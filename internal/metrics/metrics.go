package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the Taskveil server.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Assistant chat metrics.
	ChatTurnsTotal    *prometheus.CounterVec
	ChatTurnDuration  prometheus.Histogram
	ModelCallDuration prometheus.Histogram
	ActiveChatTurns   prometheus.Gauge

	// Snapshot cache metrics.
	SnapshotCacheHitsTotal   prometheus.Counter
	SnapshotCacheMissesTotal prometheus.Counter

	// Security policy metrics.
	PolicyRejectionsTotal *prometheus.CounterVec

	// Rate limiting metrics.
	RateLimitRejectionsTotal *prometheus.CounterVec

	// Audit collector metrics.
	CollectorFlushesTotal *prometheus.CounterVec
	CollectorTurnsTotal   prometheus.Counter

	// Auth metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskveil_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskveil_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		ChatTurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskveil_chat_turns_total",
			Help: "Total number of assistant chat turns by outcome.",
		}, []string{"outcome"}),

		ChatTurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskveil_chat_turn_duration_seconds",
			Help:    "End-to-end chat turn duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),

		ModelCallDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskveil_model_call_duration_seconds",
			Help:    "Model provider call duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),

		ActiveChatTurns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskveil_active_chat_turns",
			Help: "Number of chat turns currently in flight.",
		}),

		SnapshotCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskveil_snapshot_cache_hits_total",
			Help: "Total number of context snapshot cache hits.",
		}),

		SnapshotCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskveil_snapshot_cache_misses_total",
			Help: "Total number of context snapshot cache misses.",
		}),

		PolicyRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskveil_policy_rejections_total",
			Help: "Total number of messages or answers rejected by the security policy.",
		}, []string{"direction"}),

		RateLimitRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskveil_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}, []string{"scope"}),

		CollectorFlushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskveil_collector_flushes_total",
			Help: "Total number of audit collector flushes.",
		}, []string{"status"}),

		CollectorTurnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskveil_collector_turns_total",
			Help: "Total number of audit turn records collected.",
		}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskveil_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"auth_type"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskveil_auth_successes_total",
			Help: "Total number of successful authentications.",
		}, []string{"auth_type"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskveil_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ChatTurnsTotal,
		m.ChatTurnDuration,
		m.ModelCallDuration,
		m.ActiveChatTurns,
		m.SnapshotCacheHitsTotal,
		m.SnapshotCacheMissesTotal,
		m.PolicyRejectionsTotal,
		m.RateLimitRejectionsTotal,
		m.CollectorFlushesTotal,
		m.CollectorTurnsTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// IncHTTPRequest increments the request counter for one served request.
func (m *Metrics) IncHTTPRequest(method, pathPattern string, statusCode int) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, fmt.Sprintf("%d", statusCode)).Inc()
}

// ObserveHTTPDuration records one request's duration.
func (m *Metrics) ObserveHTTPDuration(method, pathPattern string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(seconds)
}

// IncChatTurn increments the chat turn counter for the given outcome.
func (m *Metrics) IncChatTurn(outcome string) {
	m.ChatTurnsTotal.WithLabelValues(outcome).Inc()
}

// IncCacheHit increments the snapshot cache hit counter.
func (m *Metrics) IncCacheHit() {
	m.SnapshotCacheHitsTotal.Inc()
}

// IncCacheMiss increments the snapshot cache miss counter.
func (m *Metrics) IncCacheMiss() {
	m.SnapshotCacheMissesTotal.Inc()
}

// IncPolicyRejection increments the policy rejection counter. direction is
// "input" or "output".
func (m *Metrics) IncPolicyRejection(direction string) {
	m.PolicyRejectionsTotal.WithLabelValues(direction).Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection(scope string) {
	m.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
}

// IncAuthFailure increments the auth failure counter for the given auth type.
func (m *Metrics) IncAuthFailure(authType string) {
	m.AuthFailuresTotal.WithLabelValues(authType).Inc()
}

// IncAuthSuccess increments the auth success counter for the given auth type.
func (m *Metrics) IncAuthSuccess(authType string) {
	m.AuthSuccessesTotal.WithLabelValues(authType).Inc()
}
