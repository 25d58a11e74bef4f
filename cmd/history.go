package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rcpsp/infra/runlog"
	"github.com/kilianp07/rcpsp/pkg/export"
)

var historyFlags struct {
	instance string
	since    time.Duration
	feasible bool
	limit    int
	format   string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs from the run log",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.instance, "instance", "", "only runs of this instance")
	f.DurationVar(&historyFlags.since, "since", 0, "only runs newer than this age")
	f.BoolVar(&historyFlags.feasible, "feasible", false, "only feasible runs")
	f.IntVarP(&historyFlags.limit, "limit", "n", 0, "keep the most recent n runs")
	f.StringVarP(&historyFlags.format, "format", "f", "table", "output format: table, csv or json")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if cfg.RunLog.Type == "none" {
		return fmt.Errorf("run log disabled: set runlog.type in the configuration")
	}
	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		return err
	}
	defer store.Close()

	q := runlog.Query{
		Instance:     historyFlags.instance,
		FeasibleOnly: historyFlags.feasible,
		Limit:        historyFlags.limit,
	}
	if historyFlags.since > 0 {
		q.Start = time.Now().Add(-historyFlags.since)
	}
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch historyFlags.format {
	case "table":
		return printHistory(w, recs)
	case "csv":
		return export.WriteCSV(w, statsRows(recs))
	case "json":
		return export.WriteJSON(w, statsRows(recs))
	default:
		return fmt.Errorf("unknown format %q", historyFlags.format)
	}
}

// statsRows converts successful runs to statistics rows.
func statsRows(recs []runlog.Record) []export.StatsRow {
	rows := make([]export.StatsRow, 0, len(recs))
	for _, r := range recs {
		if r.Failed() || !r.Decoded {
			continue
		}
		rows = append(rows, export.StatsRow{
			Instance:     r.Instance,
			NumTasks:     r.Tasks,
			NumResources: r.Resources,
			MaxLength:    r.Horizon,
			Result:       float64(r.Makespan),
			Limit:        r.TimeLimit,
			Feasible:     r.Feasible,
		})
	}
	return rows
}

func printHistory(w io.Writer, recs []runlog.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tINSTANCE\tLIMIT\tMAKESPAN\tFEASIBLE\tENERGY\tSTATUS")
	for _, r := range recs {
		makespan := "?"
		if r.Decoded {
			makespan = fmt.Sprint(r.Makespan)
		}
		status := "ok"
		if r.Failed() {
			status = fmt.Sprintf("%s: %s", r.Stage, r.Error)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%g\t%s\n",
			r.Timestamp.Local().Format(time.DateTime), r.Instance, r.TimeLimit, makespan, r.Feasible, r.Energy, status)
	}
	return tw.Flush()
}
