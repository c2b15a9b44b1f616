package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the onboarding flow.
type Metrics struct {
	RegistrationsTotal   prometheus.Counter
	VerificationsTotal   prometheus.Counter
	ProvisionedTotal     prometheus.Counter
	StepFailuresTotal    *prometheus.CounterVec
	ResendThrottledTotal prometheus.Counter
}

// New registers the onboarding collectors with the default registry.
func New() *Metrics {
	return &Metrics{
		RegistrationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboarding_registrations_total",
			Help: "Total number of successfully registered accounts",
		}),
		VerificationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboarding_verifications_total",
			Help: "Total number of accounts that passed code verification",
		}),
		ProvisionedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboarding_provisioned_total",
			Help: "Total number of accounts that completed the full onboarding flow",
		}),
		StepFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_step_failures_total",
			Help: "Total number of failed onboarding operations by step and failure code",
		}, []string{"step", "code"}),
		ResendThrottledTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboarding_resend_throttled_total",
			Help: "Total number of resend requests rejected by the rate limiter",
		}),
	}
}

// RecordFailure counts a failed operation for the given step.
func (m *Metrics) RecordFailure(step, code string) {
	if m == nil {
		return
	}
	m.StepFailuresTotal.WithLabelValues(step, code).Inc()
}

// RecordRegistration counts a successful registration.
func (m *Metrics) RecordRegistration() {
	if m == nil {
		return
	}
	m.RegistrationsTotal.Inc()
}

// RecordVerification counts a successful verification.
func (m *Metrics) RecordVerification() {
	if m == nil {
		return
	}
	m.VerificationsTotal.Inc()
}

// RecordProvisioned counts a completed onboarding flow.
func (m *Metrics) RecordProvisioned() {
	if m == nil {
		return
	}
	m.ProvisionedTotal.Inc()
}

// RecordResendThrottled counts a rate-limited resend request.
func (m *Metrics) RecordResendThrottled() {
	if m == nil {
		return
	}
	m.ResendThrottledTotal.Inc()
}
