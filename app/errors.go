package app

import (
	"errors"
	"fmt"
)

// Pipeline stages, in execution order.
const (
	StageRead      = "read"
	StagePropagate = "propagate"
	StageEncode    = "encode"
	StageSolve     = "solve"
	StageDecode    = "decode"
)

// ErrMakespanUndecoded reports a sample whose terminal task has no start,
// so no makespan can be read from it.
var ErrMakespanUndecoded = errors.New("makespan not decoded")

// StageError is a pipeline failure tagged with the stage and instance it
// occurred in. The underlying error stays reachable through errors.Is/As.
type StageError struct {
	Stage    string
	Instance string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Instance, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
