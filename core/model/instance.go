// Package model holds the in-memory representation of resource-constrained
// project scheduling instances.
//
// An Instance is the raw value produced by a reader. The bounds package turns
// it into a Bounded value carrying a start window per task; both are treated as
// read-only once built.
package model

import "fmt"

// Instance is a resource-constrained project scheduling problem.
type Instance struct {
	Name         string
	ResourceCaps []int
	Tasks        []Task
	// MaxLength is the scheduling horizon. Zero means unset, in which case
	// the sum of all task lengths is used.
	MaxLength int
}

// NumResources returns the number of resource types.
func (in Instance) NumResources() int { return len(in.ResourceCaps) }

// TotalLength returns the sum of all task lengths, a trivially safe horizon.
func (in Instance) TotalLength() int {
	total := 0
	for _, t := range in.Tasks {
		total += t.Length
	}
	return total
}

// Task returns the task with the given number.
func (in Instance) Task(number int) (Task, bool) {
	if number < 1 || number > len(in.Tasks) {
		return Task{}, false
	}
	return in.Tasks[number-1], true
}

// Clone returns a deep copy of the instance.
func (in Instance) Clone() Instance {
	cp := in
	cp.ResourceCaps = append([]int(nil), in.ResourceCaps...)
	cp.Tasks = make([]Task, len(in.Tasks))
	for i, t := range in.Tasks {
		cp.Tasks[i] = t.clone()
	}
	return cp
}

// Validate checks the structural invariants of the instance. It does not
// look for precedence cycles; the bounds package reports those.
func (in Instance) Validate() error {
	if len(in.Tasks) == 0 {
		return &ValidationError{Instance: in.Name, Msg: "instance has no tasks"}
	}
	if in.MaxLength < 0 {
		return &ValidationError{Instance: in.Name, Msg: fmt.Sprintf("negative horizon %d", in.MaxLength)}
	}
	for r, c := range in.ResourceCaps {
		if c < 0 {
			return &ValidationError{Instance: in.Name, Msg: fmt.Sprintf("resource %d has negative capacity %d", r, c)}
		}
	}
	n := len(in.Tasks)
	for i, t := range in.Tasks {
		if t.Number != i+1 {
			return &ValidationError{Instance: in.Name, Task: t.Number, Msg: fmt.Sprintf("expected task number %d", i+1)}
		}
		if t.Length <= 0 {
			return &ValidationError{Instance: in.Name, Task: t.Number, Msg: fmt.Sprintf("non-positive length %d", t.Length)}
		}
		if len(t.ResourceCosts) != len(in.ResourceCaps) {
			return &ValidationError{Instance: in.Name, Task: t.Number,
				Msg: fmt.Sprintf("%d resource costs for %d resources", len(t.ResourceCosts), len(in.ResourceCaps))}
		}
		for r, c := range t.ResourceCosts {
			if c < 0 {
				return &ValidationError{Instance: in.Name, Task: t.Number, Msg: fmt.Sprintf("negative cost %d for resource %d", c, r)}
			}
		}
		for _, s := range t.Successors {
			if s < 1 || s > n {
				return &ValidationError{Instance: in.Name, Task: t.Number, Msg: fmt.Sprintf("successor %d out of range 1..%d", s, n)}
			}
		}
	}
	return nil
}

// String summarises the instance the way the command line prints it.
func (in Instance) String() string {
	return fmt.Sprintf("PSP instance %s: %d tasks, %d resources, max length %d",
		in.Name, len(in.Tasks), len(in.ResourceCaps), in.MaxLength)
}
