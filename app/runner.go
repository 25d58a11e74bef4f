// Package app wires the scheduling pipeline: read an instance, propagate its
// bounds, encode it, submit it to a solver and interpret the answer.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kilianp07/rcpsp/core/bounds"
	"github.com/kilianp07/rcpsp/core/cqm"
	"github.com/kilianp07/rcpsp/core/decode"
	"github.com/kilianp07/rcpsp/core/logger"
	"github.com/kilianp07/rcpsp/core/metrics"
	"github.com/kilianp07/rcpsp/core/model"
	"github.com/kilianp07/rcpsp/core/monitoring"
	"github.com/kilianp07/rcpsp/core/solver"
	"github.com/kilianp07/rcpsp/infra/runlog"
	"github.com/kilianp07/rcpsp/internal/eventbus"
	"github.com/kilianp07/rcpsp/pkg/rcp"
)

// Job is one instance file solved under one time limit.
type Job struct {
	Path      string
	TimeLimit time.Duration
	// Horizon overrides the instance horizon when positive.
	Horizon int
}

// Jobs returns the cartesian product of instances and limits, instance
// major.
func Jobs(instances []string, limits []time.Duration) []Job {
	if len(limits) == 0 {
		limits = []time.Duration{0}
	}
	jobs := make([]Job, 0, len(instances)*len(limits))
	for _, p := range instances {
		for _, l := range limits {
			jobs = append(jobs, Job{Path: p, TimeLimit: l})
		}
	}
	return jobs
}

// Report describes a completed run.
type Report struct {
	Instance     string        `json:"instance"`
	Path         string        `json:"path"`
	TimeLimit    time.Duration `json:"time_limit"`
	Tasks        int           `json:"tasks"`
	Resources    int           `json:"resources"`
	Horizon      int           `json:"horizon"`
	CriticalPath int           `json:"critical_path"`
	Encoding     string        `json:"encoding"`
	Stats        cqm.Stats     `json:"stats"`
	BuildTime    time.Duration `json:"build_time"`
	Latency      time.Duration `json:"latency"`
	// RelaxBound is the LP relaxation of the objective, when computed.
	RelaxBound *float64      `json:"relax_bound,omitempty"`
	Result     decode.Result `json:"result"`
	// Bounded is the propagated instance, nil when the run failed before it.
	Bounded *model.Bounded `json:"-"`
}

// Runner executes jobs against a solver gateway.
type Runner struct {
	gw        solver.Gateway
	opts      cqm.Options
	tol       float64
	relaxMax  int
	workers   int
	useEnergy bool

	sink  metrics.Sink
	store runlog.Store
	log   logger.Logger
	bus   *eventbus.Bus[RunEvent]
}

// Option customises a Runner.
type Option func(*Runner)

// WithSink records model and solve events to s.
func WithSink(s metrics.Sink) Option { return func(r *Runner) { r.sink = s } }

// WithStore appends a run log record per job to s.
func WithStore(s runlog.Store) Option { return func(r *Runner) { r.store = s } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(r *Runner) { r.log = l } }

// WithBus publishes progress events to b.
func WithBus(b *eventbus.Bus[RunEvent]) Option { return func(r *Runner) { r.bus = b } }

// WithEncoding sets the encoder options.
func WithEncoding(o cqm.Options) Option { return func(r *Runner) { r.opts = o } }

// WithTolerance sets the feasibility tolerance used when decoding.
func WithTolerance(tol float64) Option { return func(r *Runner) { r.tol = tol } }

// WithRelaxation computes the LP relaxation bound for models up to maxVars
// variables.
func WithRelaxation(maxVars int) Option { return func(r *Runner) { r.relaxMax = maxVars } }

// WithWorkers runs up to n batch jobs concurrently.
func WithWorkers(n int) Option { return func(r *Runner) { r.workers = n } }

// WithEnergyResult makes the batch result column the best energy instead of
// the makespan.
func WithEnergyResult(on bool) Option { return func(r *Runner) { r.useEnergy = on } }

// WithGatewayMiddleware wraps the gateway, for instance to keep a copy of
// every answer.
func WithGatewayMiddleware(mw func(solver.Gateway) solver.Gateway) Option {
	return func(r *Runner) { r.gw = mw(r.gw) }
}

// NewRunner creates a Runner around gw.
func NewRunner(gw solver.Gateway, opts ...Option) *Runner {
	r := &Runner{
		gw:      gw,
		tol:     decode.DefaultTolerance,
		workers: 1,
		sink:    metrics.NopSink{},
		store:   runlog.NopStore{},
		log:     logger.NopLogger{},
	}
	for _, o := range opts {
		o(r)
	}
	if r.workers < 1 {
		r.workers = 1
	}
	return r
}

// Prepare reads, propagates and encodes the instance at path.
func (r *Runner) Prepare(path string) (*cqm.Encoded, error) {
	return r.prepare(path, 0)
}

func (r *Runner) prepare(path string, horizon int) (*cqm.Encoded, error) {
	inst, err := rcp.ReadFile(path)
	if err != nil {
		return nil, &StageError{Stage: StageRead, Instance: filepath.Base(path), Err: err}
	}
	if horizon > 0 {
		inst.MaxLength = horizon
	}
	r.emit(RunEvent{Stage: StageRead, Instance: inst.Name})

	b, err := bounds.Propagate(inst)
	if err != nil {
		return nil, &StageError{Stage: StagePropagate, Instance: inst.Name, Err: err}
	}
	r.log.Debugw("bounds propagated", map[string]any{
		"instance":      b.Name,
		"horizon":       b.Horizon,
		"critical_path": b.CriticalPathLength(),
	})
	r.emit(RunEvent{Stage: StagePropagate, Instance: inst.Name})

	enc, err := cqm.Encode(b, r.opts)
	if err != nil {
		return nil, &StageError{Stage: StageEncode, Instance: inst.Name, Err: err}
	}
	r.emit(RunEvent{Stage: StageEncode, Instance: inst.Name})
	return enc, nil
}

// Run solves a single job. Every outcome, failures included, is recorded to
// the metrics sink and the run log.
func (r *Runner) Run(ctx context.Context, job Job) (Report, error) {
	rep := Report{Instance: filepath.Base(job.Path), Path: job.Path, TimeLimit: job.TimeLimit}
	err := r.run(ctx, job, &rep)
	r.record(ctx, rep, err)
	if err != nil {
		tags := map[string]string{"instance": rep.Instance}
		var se *StageError
		if errors.As(err, &se) {
			tags["stage"] = se.Stage
		}
		monitoring.CaptureException(err, tags)
		r.emit(RunEvent{Stage: StageFailed, Instance: rep.Instance, Limit: job.TimeLimit, Err: err})
		return rep, err
	}
	r.emit(RunEvent{Stage: StageDone, Instance: rep.Instance, Limit: job.TimeLimit, Report: &rep})
	return rep, nil
}

func (r *Runner) run(ctx context.Context, job Job, rep *Report) error {
	start := time.Now()
	enc, err := r.prepare(job.Path, job.Horizon)
	if err != nil {
		return err
	}
	rep.BuildTime = time.Since(start)
	b := enc.Bounded()
	rep.Bounded = b
	rep.Instance = b.Name
	rep.Tasks = len(b.Tasks)
	rep.Resources = b.NumResources()
	rep.Horizon = b.Horizon
	rep.CriticalPath = b.CriticalPathLength()
	rep.Encoding = enc.Encoding().String()
	rep.Stats = enc.Stats()

	if err := r.sink.RecordModel(metrics.ModelEvent{
		Instance:    rep.Instance,
		Encoding:    rep.Encoding,
		Tasks:       rep.Tasks,
		Variables:   rep.Stats.Variables,
		Constraints: rep.Stats.Constraints,
		Horizon:     rep.Horizon,
		BuildTime:   rep.BuildTime,
		Time:        time.Now(),
	}); err != nil {
		r.log.Warnf("record model %s: %v", rep.Instance, err)
	}

	if r.relaxMax > 0 {
		bound, err := cqm.Relax(enc.Model(), r.relaxMax)
		switch {
		case errors.Is(err, cqm.ErrTooLarge):
			r.log.Debugf("relaxation skipped for %s: %v", rep.Instance, err)
		case err != nil:
			r.log.Warnf("relaxation of %s: %v", rep.Instance, err)
		default:
			rep.RelaxBound = &bound
		}
	}

	solveStart := time.Now()
	ss, err := r.gw.Solve(ctx, solver.Request{
		Model:     enc.Model(),
		TimeLimit: job.TimeLimit,
		Label:     solver.Label(rep.Instance, job.TimeLimit),
	})
	rep.Latency = time.Since(solveStart)
	if err != nil {
		return &StageError{Stage: StageSolve, Instance: rep.Instance, Err: err}
	}
	r.emit(RunEvent{Stage: StageSolve, Instance: rep.Instance, Limit: job.TimeLimit})

	res, err := decode.Interpret(enc, ss, r.tol)
	if err != nil {
		return &StageError{Stage: StageDecode, Instance: rep.Instance, Err: err}
	}
	rep.Result = res
	r.log.Infof("%s limit=%s: %s", rep.Instance, job.TimeLimit, res)
	// Energy mode reports the sample energy, which needs no makespan.
	if !res.Decoded && !r.useEnergy {
		return &StageError{Stage: StageDecode, Instance: rep.Instance,
			Err: fmt.Errorf("%w: tasks %v", ErrMakespanUndecoded, res.Undecoded)}
	}
	return nil
}

func (r *Runner) record(ctx context.Context, rep Report, runErr error) {
	rec := runlog.Record{
		Instance:    rep.Instance,
		Tasks:       rep.Tasks,
		Resources:   rep.Resources,
		Horizon:     rep.Horizon,
		Encoding:    rep.Encoding,
		TimeLimit:   rep.TimeLimit,
		Variables:   rep.Stats.Variables,
		Constraints: rep.Stats.Constraints,
		Latency:     rep.Latency,
		Makespan:    rep.Result.Makespan,
		Decoded:     rep.Result.Decoded,
		Energy:      rep.Result.Energy,
		Feasible:    rep.Result.Feasible,
	}
	for _, v := range rep.Result.Violations {
		rec.Violations = append(rec.Violations, v.Label)
	}
	var se *StageError
	if errors.As(runErr, &se) {
		rec.Stage = se.Stage
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := r.store.Append(ctx, rec); err != nil {
		r.log.Warnf("run log append %s: %v", rep.Instance, err)
	}

	// Failures before the solve stage never reached the solver.
	if se != nil && se.Stage != StageSolve && se.Stage != StageDecode {
		return
	}
	if err := r.sink.RecordSolve(metrics.SolveEvent{
		Instance:   rep.Instance,
		TimeLimit:  rep.TimeLimit,
		Latency:    rep.Latency,
		Makespan:   rep.Result.Makespan,
		Decoded:    rep.Result.Decoded,
		Energy:     rep.Result.Energy,
		Feasible:   rep.Result.Feasible,
		Violations: len(rep.Result.Violations),
		Err:        runErr,
		Time:       time.Now(),
	}); err != nil {
		r.log.Warnf("record solve %s: %v", rep.Instance, err)
	}
}

func (r *Runner) emit(ev RunEvent) {
	if r.bus == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	r.bus.Publish(ev)
}
