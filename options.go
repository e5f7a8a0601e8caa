package compose

import (
	"reflect"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const tracerName = "github.com/centraunit/compose"

// options are fixed at Build time and shared by every context of the tree.
type options struct {
	ambiguity  AmbiguityStrategy
	validate   bool
	logger     *zap.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	candidates []reflect.Type
	filter     TypeFilter
	registrars []Registrar
}

// Option configures Build.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		ambiguity: UseLast,
		logger:    zap.NewNop(),
		tracer:    noop.NewTracerProvider().Tracer(tracerName),
	}
}

// WithAmbiguityStrategy sets how ties at the lowest override priority are settled.
func WithAmbiguityStrategy(s AmbiguityStrategy) Option {
	return func(o *options) { o.ambiguity = s }
}

// WithValidation checks every constructor dependency of the catalog at Build
// time, so missing, ambiguous and cyclic wiring fails at startup.
func WithValidation() Option {
	return func(o *options) { o.validate = true }
}

// WithLogger sets the logger of the context tree.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records resolution and construction metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracerProvider records one span per construction.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithConventions runs registrars against the discovered candidate types
// before the catalog is frozen.
func WithConventions(candidates []reflect.Type, registrars ...Registrar) Option {
	return func(o *options) {
		o.candidates = append(o.candidates, candidates...)
		o.registrars = append(o.registrars, registrars...)
	}
}

// WithTypeFilter selects which candidate types reach the registrars.
func WithTypeFilter(f TypeFilter) Option {
	return func(o *options) { o.filter = f }
}
