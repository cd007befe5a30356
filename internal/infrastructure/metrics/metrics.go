// Package metrics holds the Prometheus collectors for the auth core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "toolshed"

// Login outcomes.
const (
	LoginSuccess   = "success"
	LoginInvalid   = "invalid_credentials"
	LoginThrottled = "throttled"
	LoginError     = "error"
)

// Metrics groups every collector the service exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sessionsCreated     prometheus.Counter
	sessionsValidated   prometheus.Counter
	sessionsRenewed     prometheus.Counter
	sessionsExpired     prometheus.Counter
	sessionsInvalidated prometheus.Counter
	logins              *prometheus.CounterVec
	oauthLogins         *prometheus.CounterVec
	registrations       prometheus.Counter
	requestDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Sessions created",
		}),
		sessionsValidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "validated_total",
			Help:      "Session validations that resolved to a live session",
		}),
		sessionsRenewed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "renewed_total",
			Help:      "Sessions whose expiry was pushed forward",
		}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "expired_total",
			Help:      "Expired sessions deleted on validation",
		}),
		sessionsInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "invalidated_total",
			Help:      "Explicit session invalidations",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Password login attempts by result",
		}, []string{"result"}),
		oauthLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "oauth_logins_total",
			Help:      "Provider login callbacks by provider and result",
		}, []string{"provider", "result"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "registrations_total",
			Help:      "Accounts created with a password",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsCreated,
		m.sessionsValidated,
		m.sessionsRenewed,
		m.sessionsExpired,
		m.sessionsInvalidated,
		m.logins,
		m.oauthLogins,
		m.registrations,
		m.requestDuration,
	)

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SessionCreated() {
	if m != nil {
		m.sessionsCreated.Inc()
	}
}

func (m *Metrics) SessionValidated() {
	if m != nil {
		m.sessionsValidated.Inc()
	}
}

func (m *Metrics) SessionRenewed() {
	if m != nil {
		m.sessionsRenewed.Inc()
	}
}

func (m *Metrics) SessionExpired() {
	if m != nil {
		m.sessionsExpired.Inc()
	}
}

func (m *Metrics) SessionInvalidated() {
	if m != nil {
		m.sessionsInvalidated.Inc()
	}
}

func (m *Metrics) Login(result string) {
	if m != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) OAuthLogin(provider, result string) {
	if m != nil {
		m.oauthLogins.WithLabelValues(provider, result).Inc()
	}
}

func (m *Metrics) Registration() {
	if m != nil {
		m.registrations.Inc()
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m != nil {
		m.requestDuration.WithLabelValues(method, route, status).Observe(seconds)
	}
}
