package model

import "fmt"

// ValidationError reports a malformed instance.
type ValidationError struct {
	Instance string
	Task     int // 0 when the error is not tied to a task
	Msg      string
}

func (e *ValidationError) Error() string {
	if e.Task > 0 {
		return fmt.Sprintf("instance %s: task %d: %s", e.Instance, e.Task, e.Msg)
	}
	return fmt.Sprintf("instance %s: %s", e.Instance, e.Msg)
}

// InfeasibleWindowError is returned when propagation left a task without any
// admissible start time. It usually means the horizon is shorter than the
// critical path.
type InfeasibleWindowError struct {
	Task  int
	Lower int
	Upper int
}

func (e *InfeasibleWindowError) Error() string {
	return fmt.Sprintf("task %d has empty start window [%d, %d]", e.Task, e.Lower, e.Upper)
}
