package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/rcpsp/core/metrics"
)

// PromSink records pipeline events in Prometheus metrics.
type PromSink struct {
	models      *prometheus.CounterVec
	buildTime   prometheus.Histogram
	variables   *prometheus.GaugeVec
	constraints *prometheus.GaugeVec
	solves      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	makespan    *prometheus.GaugeVec
	batchFailed prometheus.Gauge
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry("", prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(namespace string, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "rcpsp"
	}
	s := &PromSink{
		models: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "models_built_total",
			Help:      "Number of constrained models built",
		}, []string{"encoding"}),
		buildTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_build_seconds",
			Help:      "Time spent propagating bounds and encoding an instance",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		variables: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_variables",
			Help:      "Variables in the last model built for an instance",
		}, []string{"instance"}),
		constraints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_constraints",
			Help:      "Constraints in the last model built for an instance",
		}, []string{"instance"}),
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Solver round trips by outcome",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_latency_seconds",
			Help:      "Wall time of solver round trips",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
		makespan: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "makespan",
			Help:      "Makespan of the last decoded schedule of an instance",
		}, []string{"instance", "feasible"}),
		batchFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_failed_jobs",
			Help:      "Failed jobs of the last batch run",
		}),
	}
	var err error
	if s.models, err = register(reg, s.models); err != nil {
		return nil, err
	}
	if s.buildTime, err = register(reg, s.buildTime); err != nil {
		return nil, err
	}
	if s.variables, err = register(reg, s.variables); err != nil {
		return nil, err
	}
	if s.constraints, err = register(reg, s.constraints); err != nil {
		return nil, err
	}
	if s.solves, err = register(reg, s.solves); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, s.latency); err != nil {
		return nil, err
	}
	if s.makespan, err = register(reg, s.makespan); err != nil {
		return nil, err
	}
	if s.batchFailed, err = register(reg, s.batchFailed); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordModel counts the model and records its size.
func (s *PromSink) RecordModel(ev coremetrics.ModelEvent) error {
	s.models.WithLabelValues(ev.Encoding).Inc()
	s.buildTime.Observe(ev.BuildTime.Seconds())
	s.variables.WithLabelValues(ev.Instance).Set(float64(ev.Variables))
	s.constraints.WithLabelValues(ev.Instance).Set(float64(ev.Constraints))
	return nil
}

// RecordSolve counts the round trip and keeps the decoded makespan.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	outcome := ev.Outcome()
	s.solves.WithLabelValues(outcome).Inc()
	s.latency.WithLabelValues(outcome).Observe(ev.Latency.Seconds())
	if ev.Err == nil && ev.Decoded {
		feasible := "false"
		if ev.Feasible {
			feasible = "true"
		}
		s.makespan.WithLabelValues(ev.Instance, feasible).Set(float64(ev.Makespan))
	}
	return nil
}

// RecordBatch sets the failed jobs gauge.
func (s *PromSink) RecordBatch(ev coremetrics.BatchEvent) error {
	s.batchFailed.Set(float64(ev.Failed))
	return nil
}
