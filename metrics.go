package compose

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "compose"

// Resolution outcomes recorded by compose_resolutions_total.
const (
	OutcomeResolved      = "resolved"
	OutcomeNotRegistered = "not_registered"
	OutcomeAmbiguous     = "ambiguous"
	OutcomeCyclic        = "cyclic"
	OutcomeMisconfigured = "misconfigured"
	OutcomeDisposed      = "disposed"
	OutcomeCanceled      = "canceled"
	OutcomeFailed        = "failed"
)

// Metrics holds the Prometheus collectors of a context tree. A nil *Metrics
// records nothing.
type Metrics struct {
	resolutions      *prometheus.CounterVec
	constructions    *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	scopes           prometheus.Gauge
	disposalFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "resolutions_total",
				Help:      "Count of Resolve calls by outcome.",
			},
			[]string{"outcome"},
		),
		constructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "constructions_total",
				Help:      "Count of constructed service values by lifetime.",
			},
			[]string{"lifetime"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "construction_duration_seconds",
				Help:      "Time spent constructing service values, dependencies included.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"lifetime"},
		),
		scopes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "scopes_active",
			Help:      "Number of composition contexts not yet disposed.",
		}),
		disposalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "disposal_failures_total",
			Help:      "Count of values whose release failed.",
		}),
	}
	if reg != nil {
		for _, c := range m.Collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Collectors returns the collectors in a fixed order: resolutions,
// constructions, construction duration, active scopes, disposal failures.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.resolutions, m.constructions, m.duration, m.scopes, m.disposalFailures}
}

func (m *Metrics) resolved(err error) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcomeOf(err)).Inc()
}

func (m *Metrics) constructed(l Lifetime, took time.Duration, err error) {
	if m == nil || err != nil {
		return
	}
	m.constructions.WithLabelValues(l.String()).Inc()
	m.duration.WithLabelValues(l.String()).Observe(took.Seconds())
}

func (m *Metrics) scopeOpened() {
	if m != nil {
		m.scopes.Inc()
	}
}

func (m *Metrics) scopeClosed() {
	if m != nil {
		m.scopes.Dec()
	}
}

func (m *Metrics) disposalFailed() {
	if m != nil {
		m.disposalFailures.Inc()
	}
}

func outcomeOf(err error) string {
	var (
		notRegistered *NoServiceRegisteredError
		ambiguous     *AmbiguousServiceError
		cyclic        *CyclicDependencyError
		misconfigured *ConfigurationError
	)
	switch {
	case err == nil:
		return OutcomeResolved
	case errors.Is(err, ErrContainerDisposed):
		return OutcomeDisposed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	case errors.As(err, &cyclic):
		return OutcomeCyclic
	case errors.As(err, &ambiguous):
		return OutcomeAmbiguous
	case errors.As(err, &notRegistered):
		return OutcomeNotRegistered
	case errors.As(err, &misconfigured):
		return OutcomeMisconfigured
	}
	return OutcomeFailed
}
