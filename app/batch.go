package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/rcpsp/core/metrics"
	"github.com/kilianp07/rcpsp/core/monitoring"
	"github.com/kilianp07/rcpsp/pkg/export"
)

// JobFailure pairs a failed job with its error.
type JobFailure struct {
	Job Job
	Err error
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Jobs      int
	Succeeded int
	Failed    int
	Skipped   int
	Feasible  int
	Duration  time.Duration
	Failures  []JobFailure

	// Makespan statistics over decoded results.
	MeanMakespan float64
	StdMakespan  float64
	MinMakespan  float64
	MaxMakespan  float64
	// MeanLatency is the average solver latency of successful jobs.
	MeanLatency time.Duration
}

func (s BatchSummary) String() string {
	out := fmt.Sprintf("%d jobs: %d ok, %d failed, %d skipped, %d feasible in %s",
		s.Jobs, s.Succeeded, s.Failed, s.Skipped, s.Feasible, s.Duration.Round(time.Millisecond))
	if s.Succeeded > 0 {
		out += fmt.Sprintf("; makespan mean=%.2f sd=%.2f min=%g max=%g",
			s.MeanMakespan, s.StdMakespan, s.MinMakespan, s.MaxMakespan)
	}
	return out
}

// RunBatch runs every job and appends one row per successful job to rows.
// A failed or panicking job is logged and counted; the remaining jobs still run and rows
// already written are left untouched. Jobs not started before ctx is done
// are counted as skipped.
func (r *Runner) RunBatch(ctx context.Context, jobs []Job, rows *export.StatsWriter) BatchSummary {
	start := time.Now()
	var (
		mu        sync.Mutex
		sum       = BatchSummary{Jobs: len(jobs)}
		makespans []float64
		latency   time.Duration
	)

	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			defer func() {
				if v := recover(); v != nil {
					monitoring.CapturePanic(v)
					r.fail(&mu, &sum, job, fmt.Errorf("job panicked: %v", v))
				}
			}()
			if ctx.Err() != nil {
				mu.Lock()
				sum.Skipped++
				mu.Unlock()
				return nil
			}
			rep, err := r.Run(ctx, job)
			if err == nil {
				err = r.writeRow(rows, rep)
			}
			if err != nil {
				r.fail(&mu, &sum, job, err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			sum.Succeeded++
			latency += rep.Latency
			if rep.Result.Feasible {
				sum.Feasible++
			}
			if rep.Result.Decoded {
				makespans = append(makespans, float64(rep.Result.Makespan))
			}
			return nil
		})
	}
	_ = g.Wait()

	sum.Duration = time.Since(start)
	if len(makespans) > 0 {
		sum.MeanMakespan, sum.StdMakespan = stat.MeanStdDev(makespans, nil)
		sum.MinMakespan = floats.Min(makespans)
		sum.MaxMakespan = floats.Max(makespans)
	}
	if sum.Succeeded > 0 {
		sum.MeanLatency = latency / time.Duration(sum.Succeeded)
	}

	if br, ok := r.sink.(metrics.BatchRecorder); ok {
		if err := br.RecordBatch(metrics.BatchEvent{
			Jobs:     sum.Jobs,
			Failed:   sum.Failed,
			Feasible: sum.Feasible,
			Duration: sum.Duration,
			Time:     time.Now(),
		}); err != nil {
			r.log.Warnf("record batch: %v", err)
		}
	}
	r.log.Infof("batch finished: %s", sum)
	return sum
}

func (r *Runner) fail(mu *sync.Mutex, sum *BatchSummary, job Job, err error) {
	r.log.Errorf("job %s limit=%s: %v", job.Path, limitString(job.TimeLimit), err)
	mu.Lock()
	defer mu.Unlock()
	sum.Failed++
	sum.Failures = append(sum.Failures, JobFailure{Job: job, Err: err})
}

func (r *Runner) writeRow(rows *export.StatsWriter, rep Report) error {
	if rows == nil {
		return nil
	}
	row := export.StatsRow{
		Instance:     rep.Instance,
		NumTasks:     rep.Tasks,
		NumResources: rep.Resources,
		MaxLength:    rep.Horizon,
		Limit:        rep.TimeLimit,
		Feasible:     rep.Result.Feasible,
	}
	if r.useEnergy {
		row.Result = rep.Result.Energy
	} else {
		row.Result = float64(rep.Result.Makespan)
	}
	return rows.Write(row)
}
