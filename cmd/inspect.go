package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rcpsp/app"
	"github.com/kilianp07/rcpsp/app/plugins"
	"github.com/kilianp07/rcpsp/core/cqm"
)

var inspectFlags struct {
	relax int
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <instance.rcp>",
	Short: "Print an instance summary and the size of its model without solving",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the registered solver gateways and metrics sinks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		avail := plugins.Available()
		kinds := make([]string, 0, len(avail))
		for k := range avail {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", k, avail[k])
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().IntVar(&inspectFlags.relax, "relax", 0, "compute the LP relaxation bound for models up to this many variables")
	rootCmd.AddCommand(inspectCmd, modulesCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	opts, err := cfg.Encoding.Options()
	if err != nil {
		return err
	}
	enc, err := app.NewRunner(nil, app.WithEncoding(opts)).Prepare(args[0])
	if err != nil {
		return err
	}
	b := enc.Bounded()
	term := b.Terminal()
	st := enc.Stats()

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "instance:       %s\n", b.Name)
	fmt.Fprintf(w, "tasks:          %d\n", len(b.Tasks))
	fmt.Fprintf(w, "resources:      %d, capacities %v\n", b.NumResources(), b.ResourceCaps)
	fmt.Fprintf(w, "horizon:        %d\n", b.Horizon)
	fmt.Fprintf(w, "critical path:  %d\n", b.CriticalPathLength())
	tw := b.Window(term.Number)
	fmt.Fprintf(w, "terminal task:  %d, start in [%d, %d]\n", term.Number, tw.Lower, tw.Upper)
	fmt.Fprintf(w, "encoding:       %s\n", enc.Encoding())
	fmt.Fprintf(w, "variables:      %d (%d binary, %d integer)\n", st.Variables, st.Binaries, st.Integers)
	fmt.Fprintf(w, "constraints:    %d (one-hot %d, linking %d, precedence %d, resource %d)\n",
		st.Constraints, st.OneHot, st.Linking, st.Precedence, st.Resource)

	if inspectFlags.relax > 0 {
		bound, err := cqm.Relax(enc.Model(), inspectFlags.relax)
		switch {
		case errors.Is(err, cqm.ErrTooLarge):
			fmt.Fprintf(w, "lp bound:       skipped, %v\n", err)
		case err != nil:
			return fmt.Errorf("relaxation: %w", err)
		default:
			fmt.Fprintf(w, "lp bound:       %g\n", bound)
		}
	}
	return nil
}
