// Package plugins links the built-in solver gateways and metrics sinks into
// the binary. Each module registers itself with its registry from init.
package plugins

import (
	"github.com/kilianp07/rcpsp/core/metrics"
	"github.com/kilianp07/rcpsp/core/solver"

	_ "github.com/kilianp07/rcpsp/infra/metrics"
	_ "github.com/kilianp07/rcpsp/infra/mqtt"
	_ "github.com/kilianp07/rcpsp/infra/solver/httpgw"
	_ "github.com/kilianp07/rcpsp/infra/solver/replay"
)

// Available lists the registered module types by kind.
func Available() map[string][]string {
	return map[string][]string{
		"solver":  solver.Names(),
		"metrics": metrics.SinkNames(),
	}
}
