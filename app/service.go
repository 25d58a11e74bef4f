package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/rcpsp/config"
	"github.com/kilianp07/rcpsp/core/metrics"
	"github.com/kilianp07/rcpsp/core/solver"
	"github.com/kilianp07/rcpsp/infra/logger"
	inframetrics "github.com/kilianp07/rcpsp/infra/metrics"
	"github.com/kilianp07/rcpsp/infra/runlog"
	"github.com/kilianp07/rcpsp/internal/eventbus"
)

// Service owns a Runner together with the resources built from the
// configuration: solver gateway, metrics sink, run log and event bus.
type Service struct {
	*Runner
	Bus *eventbus.Bus[RunEvent]

	cfg   *config.Config
	sink  metrics.Sink
	store runlog.Store
	log   logger.Logger
}

// New creates a Service from the configuration. Modules are resolved by
// type name, so the packages providing them must be linked in. Extra options
// are applied after the configured ones.
func New(cfg *config.Config, extra ...Option) (*Service, error) {
	logg := logger.New("runner")

	gw, err := solver.New(cfg.Solver)
	if err != nil {
		return nil, fmt.Errorf("solver gateway: %w", err)
	}
	opts, err := cfg.Encoding.Options()
	if err != nil {
		return nil, err
	}
	sink, err := metrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		_ = metrics.Close(sink)
		return nil, fmt.Errorf("run log: %w", err)
	}

	bus := eventbus.New[RunEvent]()
	all := []Option{
		WithEncoding(opts),
		WithTolerance(cfg.Encoding.Tolerance),
		WithRelaxation(cfg.Encoding.RelaxMaxVars),
		WithWorkers(cfg.Batch.Workers),
		WithEnergyResult(cfg.Batch.Result == config.ResultEnergy),
		WithSink(sink),
		WithStore(store),
		WithLogger(logg),
		WithBus(bus),
	}
	r := NewRunner(gw, append(all, extra...)...)
	return &Service{Runner: r, Bus: bus, cfg: cfg, sink: sink, store: store, log: logg}, nil
}

// ServeMetrics exposes Prometheus metrics until ctx is cancelled when an
// address is configured.
func (s *Service) ServeMetrics(ctx context.Context) {
	addr := s.cfg.Metrics.PrometheusAddr
	if addr == "" {
		return
	}
	go func() {
		if err := inframetrics.StartPromServer(ctx, addr); err != nil {
			s.log.Errorf("prom server: %v", err)
		}
	}()
}

// Store returns the run log.
func (s *Service) Store() runlog.Store { return s.store }

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.Bus.Close()
	if d := s.Bus.Dropped(); d > 0 {
		s.log.Warnf("%d progress events dropped", d)
	}
	return errors.Join(metrics.Close(s.sink), s.store.Close())
}
