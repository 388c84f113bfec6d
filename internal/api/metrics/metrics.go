// Package metrics defines the custom Prometheus metrics of the identity API.
// It is the single source of truth for metric names, labels and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coupon_admin"

// Auth groups the authentication counters. Build it once per registry.
type Auth struct {
	// LoginsTotal counts login attempts.
	// Labels:
	//   - method: "password" or "windows"
	//   - result: "success" or "failure"
	LoginsTotal *prometheus.CounterVec

	// RegistrationsTotal counts signups by result: success, conflict, invalid or error.
	RegistrationsTotal *prometheus.CounterVec

	// TokenRejectionsTotal counts bearer tokens refused by the auth middleware.
	TokenRejectionsTotal prometheus.Counter

	// AuditDroppedTotal counts audit events dropped on a full dispatcher shard.
	AuditDroppedTotal prometheus.Counter
}

// NewAuth registers the auth metrics with reg.
func NewAuth(reg prometheus.Registerer) *Auth {
	f := promauto.With(reg)
	return &Auth{
		LoginsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Total number of login attempts, by method and result.",
			},
			[]string{"method", "result"},
		),
		RegistrationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "Total number of self-service signups, by result.",
			},
			[]string{"result"},
		),
		TokenRejectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_rejections_total",
			Help:      "Total number of bearer tokens rejected by the API.",
		}),
		AuditDroppedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_dropped_total",
			Help:      "Total number of auth audit events dropped because the queue was full.",
		}),
	}
}

// Login records one login attempt.
func (a *Auth) Login(method string, ok bool) {
	if a == nil {
		return
	}
	a.LoginsTotal.WithLabelValues(method, result(ok)).Inc()
}

// Registration records one signup outcome.
func (a *Auth) Registration(outcome string) {
	if a == nil {
		return
	}
	a.RegistrationsTotal.WithLabelValues(outcome).Inc()
}

// TokenRejected records one refused bearer token.
func (a *Auth) TokenRejected() {
	if a == nil {
		return
	}
	a.TokenRejectionsTotal.Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
