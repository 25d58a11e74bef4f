package cmd

import (
	"errors"

	"github.com/kilianp07/rcpsp/app"
	"github.com/kilianp07/rcpsp/core/bounds"
	"github.com/kilianp07/rcpsp/core/model"
	"github.com/kilianp07/rcpsp/core/solver"
	"github.com/kilianp07/rcpsp/pkg/rcp"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitMalformed  = 2
	ExitInfeasible = 3
	ExitGateway    = 4
)

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		pe *rcp.ParseError
		ve *model.ValidationError
		we *model.InfeasibleWindowError
		ge *solver.GatewayError
		se *app.StageError
	)
	switch {
	case errors.As(err, &pe), errors.As(err, &ve):
		return ExitMalformed
	case errors.As(err, &we), errors.Is(err, bounds.ErrCyclicPrecedence):
		return ExitInfeasible
	case errors.As(err, &ge):
		return ExitGateway
	case errors.As(err, &se) && se.Stage == app.StageSolve:
		return ExitGateway
	default:
		return ExitFailure
	}
}
