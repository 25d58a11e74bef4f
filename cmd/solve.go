package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rcpsp/app"
	"github.com/kilianp07/rcpsp/core/decode"
	"github.com/kilianp07/rcpsp/infra/solver/replay"
	"github.com/kilianp07/rcpsp/pkg/chart"
)

var solveFlags struct {
	limit         time.Duration
	horizon       int
	saveSampleSet string
	chart         string
	json          bool
}

var solveCmd = &cobra.Command{
	Use:   "solve <instance.rcp>",
	Short: "Solve a single instance and print its makespan",
	Args:  cobra.ExactArgs(1),
	RunE:  runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.DurationVarP(&solveFlags.limit, "limit", "l", 0, "solver time limit (0 keeps the solver default)")
	f.IntVar(&solveFlags.horizon, "horizon", 0, "override the instance horizon")
	f.StringVar(&solveFlags.saveSampleSet, "save-sampleset", "", "write the solver answer to this file for later replay")
	f.StringVar(&solveFlags.chart, "chart", "", "write the resource profile of the decoded schedule as HTML")
	f.BoolVar(&solveFlags.json, "json", false, "print the report as JSON")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var extra []app.Option
	if solveFlags.saveSampleSet != "" {
		extra = append(extra, app.WithGatewayMiddleware(replay.Recorder(solveFlags.saveSampleSet)))
	}
	svc, err := app.New(cfg, extra...)
	if err != nil {
		return err
	}
	defer closeService(svc)
	svc.ServeMetrics(ctx)

	rep, runErr := svc.Run(ctx, app.Job{Path: args[0], TimeLimit: solveFlags.limit, Horizon: solveFlags.horizon})
	// The report of an undecoded sample is printed before failing.
	if runErr != nil && !errors.Is(runErr, app.ErrMakespanUndecoded) {
		return runErr
	}

	out := cmd.OutOrStdout()
	if solveFlags.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		printReport(out, rep)
	}

	if solveFlags.chart != "" && rep.Result.Decoded {
		f, err := os.Create(solveFlags.chart)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := chart.RenderProfile(f, rep.Bounded, rep.Result.Starts); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
	}
	return runErr
}

func printReport(w io.Writer, rep app.Report) {
	fmt.Fprintf(w, "instance:    %s\n", rep.Instance)
	fmt.Fprintf(w, "tasks:       %d (resources %d)\n", rep.Tasks, rep.Resources)
	fmt.Fprintf(w, "horizon:     %d (critical path %d)\n", rep.Horizon, rep.CriticalPath)
	fmt.Fprintf(w, "model:       %s, %d variables, %d constraints, built in %s\n",
		rep.Encoding, rep.Stats.Variables, rep.Stats.Constraints, rep.BuildTime.Round(time.Microsecond))
	if rep.RelaxBound != nil {
		fmt.Fprintf(w, "lp bound:    %g\n", *rep.RelaxBound)
	}
	fmt.Fprintf(w, "solve time:  %s\n", rep.Latency.Round(time.Millisecond))
	fmt.Fprintf(w, "result:      %s\n", rep.Result)

	if len(rep.Result.Undecoded) > 0 {
		fmt.Fprintf(w, "undecoded:   %v\n", rep.Result.Undecoded)
	}
	for _, v := range rep.Result.Violations {
		fmt.Fprintf(w, "violation:   %s (%g)\n", v.Label, v.Amount)
	}
	if !rep.Result.Decoded || len(rep.Result.Undecoded) > 0 {
		return
	}
	fmt.Fprintln(w, "schedule:")
	for _, n := range decode.SortedStarts(rep.Result.Starts) {
		fmt.Fprintf(w, "  task %d starts at %d\n", n, rep.Result.Starts[n])
	}
	if err := decode.VerifySchedule(rep.Bounded, rep.Result.Starts); err != nil {
		fmt.Fprintf(w, "check:       %v\n", err)
	} else {
		fmt.Fprintln(w, "check:       precedence and capacity respected")
	}
}
