package model

// Bounded is an instance whose start windows have been computed. It is built
// by bounds.Propagate and never modified afterwards.
type Bounded struct {
	Instance
	Horizon int
	Windows []Window // indexed by task position, i.e. Number-1
}

// Window returns the start window of the given task.
func (b *Bounded) Window(number int) Window {
	return b.Windows[number-1]
}

// Terminal returns the last task in numbering order, assumed to be the sink
// of the project.
func (b *Bounded) Terminal() Task {
	return b.Tasks[len(b.Tasks)-1]
}

// ExecutionWindow returns the inclusive range of timestamps during which the
// task may be running, i.e. [lower, upper+length-1].
func (b *Bounded) ExecutionWindow(number int) Window {
	w := b.Window(number)
	t := b.Tasks[number-1]
	return Window{Lower: w.Lower, Upper: w.Upper + t.Length - 1}
}

// CriticalPathLength is the earliest possible project end given precedence only.
func (b *Bounded) CriticalPathLength() int {
	end := 0
	for i, t := range b.Tasks {
		if e := b.Windows[i].Lower + t.Length; e > end {
			end = e
		}
	}
	return end
}

// CheckWindows returns an InfeasibleWindowError for the first task whose
// window is empty.
func (b *Bounded) CheckWindows() error {
	for i, w := range b.Windows {
		if w.Empty() {
			return &InfeasibleWindowError{Task: b.Tasks[i].Number, Lower: w.Lower, Upper: w.Upper}
		}
	}
	return nil
}
