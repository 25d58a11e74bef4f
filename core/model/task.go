package model

// Task is a single activity of a project scheduling instance.
type Task struct {
	Number        int   // 1-based identifier, dense over the instance
	Length        int   // duration in time units, strictly positive
	ResourceCosts []int // demand per resource type while the task runs
	Successors    []int // tasks that may only start once this one is finished
}

// Cost returns the demand of the task for resource r, or 0 when r is out of range.
func (t Task) Cost(r int) int {
	if r < 0 || r >= len(t.ResourceCosts) {
		return 0
	}
	return t.ResourceCosts[r]
}

func (t Task) clone() Task {
	cp := t
	cp.ResourceCosts = append([]int(nil), t.ResourceCosts...)
	cp.Successors = append([]int(nil), t.Successors...)
	return cp
}

// Window is an inclusive range of admissible start times.
type Window struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// Size returns the number of start times in the window.
func (w Window) Size() int {
	if w.Upper < w.Lower {
		return 0
	}
	return w.Upper - w.Lower + 1
}

// Empty reports whether no start time is admissible.
func (w Window) Empty() bool { return w.Upper < w.Lower }

// Contains reports whether t lies inside the window.
func (w Window) Contains(t int) bool { return t >= w.Lower && t <= w.Upper }
