// Package metrics exposes Prometheus instruments for the role gate, the audit
// pipeline, and the HTTP server. All recording methods are nil-safe so callers
// can run without metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eelab/labdesk/internal/domain/gate"
	obserrors "github.com/eelab/labdesk/internal/observability/errors"
)

const namespace = "labdesk"

// Metrics owns a private registry so tests and multiple servers never collide.
type Metrics struct {
	registry          *prometheus.Registry
	gateDecisions     *prometheus.CounterVec
	gateNotifications *prometheus.CounterVec
	sessionErrors     *prometheus.CounterVec
	auditWritten      prometheus.Counter
	auditDropped      prometheus.Counter
	auditFailed       prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New builds and registers all instruments, including Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Role gate evaluations by policy and resulting state.",
		}, []string{"policy", "state"}),
		gateNotifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_notifications_total",
			Help:      "Denial notices emitted on gate state transitions.",
		}, []string{"policy", "state"}),
		sessionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_lookup_errors_total",
			Help:      "Session lookups that failed for a reason other than a missing session.",
		}, []string{"class"}),
		auditWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_written_total",
			Help:      "Access events persisted.",
		}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_dropped_total",
			Help:      "Access events dropped because the audit queue was full.",
		}),
		auditFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failed_total",
			Help:      "Access events that could not be persisted.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.gateDecisions,
		m.gateNotifications,
		m.sessionErrors,
		m.auditWritten,
		m.auditDropped,
		m.auditFailed,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GateDecision records one gate evaluation; notified marks a transition notice.
func (m *Metrics) GateDecision(policy string, state gate.State, notified bool) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(policy, state.String()).Inc()
	if notified {
		m.gateNotifications.WithLabelValues(policy, state.String()).Inc()
	}
}

// SessionError records a failed session lookup, labelled by error class.
func (m *Metrics) SessionError(err error) {
	if m == nil || err == nil {
		return
	}
	m.sessionErrors.WithLabelValues(obserrors.Classify(err)).Inc()
}

func (m *Metrics) AuditWritten() {
	if m != nil {
		m.auditWritten.Inc()
	}
}

func (m *Metrics) AuditDropped() {
	if m != nil {
		m.auditDropped.Inc()
	}
}

func (m *Metrics) AuditFailed() {
	if m != nil {
		m.auditFailed.Inc()
	}
}

// Middleware counts requests and observes latency. Requests are labelled with
// the ServeMux pattern that matched, never the raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
