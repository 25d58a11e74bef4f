package metrics

import (
	"errors"
	"time"
)

// ModelEvent describes a constrained model built for an instance.
type ModelEvent struct {
	Instance    string
	Encoding    string
	Tasks       int
	Variables   int
	Constraints int
	Horizon     int
	BuildTime   time.Duration
	Time        time.Time
}

// SolveEvent describes one solver round trip and its interpretation.
type SolveEvent struct {
	Instance   string
	TimeLimit  time.Duration
	Latency    time.Duration
	Makespan   int
	Decoded    bool
	Energy     float64
	Feasible   bool
	Violations int
	// Err is set when the solve or decode stage failed; the result fields
	// are then meaningless.
	Err  error
	Time time.Time
}

// Outcome classifies the event as "error", "feasible" or "infeasible".
func (e SolveEvent) Outcome() string {
	switch {
	case e.Err != nil:
		return "error"
	case e.Feasible:
		return "feasible"
	default:
		return "infeasible"
	}
}

// Sink records pipeline events for observability purposes.
type Sink interface {
	RecordModel(ev ModelEvent) error
	RecordSolve(ev SolveEvent) error
}

// BatchEvent summarises a finished batch run.
type BatchEvent struct {
	Jobs     int
	Failed   int
	Feasible int
	Duration time.Duration
	Time     time.Time
}

// BatchRecorder is implemented by sinks able to record batch summaries.
type BatchRecorder interface {
	RecordBatch(ev BatchEvent) error
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordModel(ModelEvent) error { return nil }
func (NopSink) RecordSolve(SolveEvent) error { return nil }
func (NopSink) RecordBatch(BatchEvent) error { return nil }

// MultiSink fans events out to several sinks. Every sink sees every event;
// errors are joined.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordModel forwards model events.
func (m *MultiSink) RecordModel(ev ModelEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordModel(ev))
	}
	return errors.Join(errs...)
}

// RecordSolve forwards solve events.
func (m *MultiSink) RecordSolve(ev SolveEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordSolve(ev))
	}
	return errors.Join(errs...)
}

// RecordBatch forwards batch summaries to the sinks that support them.
func (m *MultiSink) RecordBatch(ev BatchEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if br, ok := s.(BatchRecorder); ok {
			errs = append(errs, br.RecordBatch(ev))
		}
	}
	return errors.Join(errs...)
}

// Close closes the sinks that hold resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Close releases s when it holds resources.
func Close(s Sink) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
