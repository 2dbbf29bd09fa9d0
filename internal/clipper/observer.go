package clipper

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for resolver and save operations.
type Observer interface {
	ObserveResolve(hit bool, duration time.Duration, err error)
	ObserveGeneration(duration time.Duration, sizeBytes int64, err error)
	ObserveSave(duration time.Duration, sizeBytes int64, err error)
}

// PrometheusObserver exports resolver metrics to Prometheus.
type PrometheusObserver struct {
	duration *prometheus.HistogramVec
	results  *prometheus.CounterVec
	bytes    *prometheus.CounterVec
}

// NewPrometheusObserver registers the clipper metrics on reg. A nil reg
// means the default registerer. Registering twice reuses the existing
// collectors.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "clipper"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Latency of resolve, generate and save operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Count of operations by outcome.",
	}, []string{"operation", "result"})
	bytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "written_bytes_total",
		Help:      "Bytes written to backends by generated derivatives and saved originals.",
	}, []string{"operation"})

	observer := &PrometheusObserver{}
	var err error
	if observer.duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if observer.results, err = register(reg, results); err != nil {
		return nil, err
	}
	if observer.bytes, err = register(reg, bytes); err != nil {
		return nil, err
	}
	return observer, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("register clipper metric: %w", err)
	}
	return collector, nil
}

// ObserveResolve records one resolve call.
func (o *PrometheusObserver) ObserveResolve(hit bool, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues("resolve").Observe(duration.Seconds())
	switch {
	case err != nil:
		o.results.WithLabelValues("resolve", "error").Inc()
	case hit:
		o.results.WithLabelValues("resolve", "hit").Inc()
	default:
		o.results.WithLabelValues("resolve", "miss").Inc()
	}
}

func (o *PrometheusObserver) ObserveGeneration(duration time.Duration, sizeBytes int64, err error) {
	o.observeWrite("generate", duration, sizeBytes, err)
}

func (o *PrometheusObserver) ObserveSave(duration time.Duration, sizeBytes int64, err error) {
	o.observeWrite("save", duration, sizeBytes, err)
}

func (o *PrometheusObserver) observeWrite(op string, duration time.Duration, sizeBytes int64, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		o.results.WithLabelValues(op, "error").Inc()
		return
	}
	o.results.WithLabelValues(op, "ok").Inc()
	o.bytes.WithLabelValues(op).Add(float64(sizeBytes))
}

type nopObserver struct{}

func (nopObserver) ObserveResolve(bool, time.Duration, error) {}

func (nopObserver) ObserveGeneration(time.Duration, int64, error) {}

func (nopObserver) ObserveSave(time.Duration, int64, error) {}
