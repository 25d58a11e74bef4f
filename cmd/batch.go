package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rcpsp/app"
	"github.com/kilianp07/rcpsp/config"
	"github.com/kilianp07/rcpsp/internal/eventbus"
	"github.com/kilianp07/rcpsp/pkg/export"
)

// eventsPerJob bounds the progress events one job publishes: read, propagate,
// encode, solve and done or failed.
const eventsPerJob = 5

var batchFlags struct {
	manifest string
	limits   []int
	stats    string
	workers  int
	result   string
	quiet    bool
}

var batchCmd = &cobra.Command{
	Use:   "batch [instance.rcp...]",
	Short: "Solve every instance under every time limit and write a statistics CSV",
	RunE:  runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVarP(&batchFlags.manifest, "manifest", "m", "", "YAML file listing instances and limits")
	f.IntSliceVar(&batchFlags.limits, "limits", nil, "time limits in seconds (0 keeps the solver default)")
	f.StringVarP(&batchFlags.stats, "stats", "o", "", "statistics CSV file")
	f.IntVarP(&batchFlags.workers, "workers", "w", 0, "instances solved concurrently")
	f.StringVar(&batchFlags.result, "result", "", "result column: makespan or energy")
	f.BoolVarP(&batchFlags.quiet, "quiet", "q", false, "do not print per-job progress")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bc := cfg.Batch
	if batchFlags.manifest != "" {
		m, err := config.ReadManifest(batchFlags.manifest)
		if err != nil {
			return err
		}
		m.Apply(&bc)
	}
	if len(args) > 0 {
		bc.Instances = args
	}
	if len(batchFlags.limits) > 0 {
		bc.Limits = batchFlags.limits
	}
	if batchFlags.stats != "" {
		bc.StatsFile = batchFlags.stats
	}
	if batchFlags.workers > 0 {
		bc.Workers = batchFlags.workers
	}
	if batchFlags.result != "" {
		bc.Result = batchFlags.result
	}
	if err := bc.Validate(); err != nil {
		return err
	}
	if len(bc.Instances) == 0 {
		return fmt.Errorf("no instances: pass files, a manifest or batch.instances")
	}
	cfg.Batch = bc

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer closeService(svc)
	svc.ServeMetrics(ctx)

	f, err := os.Create(bc.StatsFile)
	if err != nil {
		return err
	}
	defer f.Close()
	rows := export.NewStatsWriter(f)
	if err := rows.WriteHeader(); err != nil {
		return err
	}

	jobs := app.Jobs(bc.Instances, bc.LimitDurations())
	var wg sync.WaitGroup
	if !batchFlags.quiet {
		events := svc.Bus.SubscribeBuffered(len(jobs)*eventsPerJob + eventbus.DefaultBuffer)
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.PrintProgress(cmd.ErrOrStderr(), events)
		}()
		defer func() {
			svc.Bus.Unsubscribe(events)
			wg.Wait()
		}()
	}

	sum := svc.RunBatch(ctx, jobs, rows)
	fmt.Fprintln(cmd.OutOrStdout(), sum)
	fmt.Fprintf(cmd.OutOrStdout(), "statistics written to %s (%d rows)\n", bc.StatsFile, rows.Rows())
	return nil
}
