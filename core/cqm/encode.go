package cqm

import (
	"fmt"

	"github.com/kilianp07/rcpsp/core/model"
)

// Encoding selects how task start times are represented.
type Encoding int

const (
	// EncodingBinary uses one-hot binaries only; start times are weighted
	// sums of the binaries.
	EncodingBinary Encoding = iota
	// EncodingLinked adds an integer start variable per task, tied to the
	// binaries by an equality constraint.
	EncodingLinked
)

func (e Encoding) String() string {
	if e == EncodingLinked {
		return "linked"
	}
	return "binary"
}

// ParseEncoding maps a configuration value to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "binary":
		return EncodingBinary, nil
	case "linked":
		return EncodingLinked, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q", s)
	}
}

// Weights are the soft-constraint penalties per constraint family. Zero
// weights produce hard constraints.
type Weights struct {
	OneHot     float64 `json:"one_hot"`
	Precedence float64 `json:"precedence"`
	Resource   float64 `json:"resource"`
}

// ReferenceWeights favours one-hot over precedence over resource capacity.
func ReferenceWeights() Weights {
	return Weights{OneHot: 10, Precedence: 2, Resource: 1}
}

// Options configure Encode.
type Options struct {
	Encoding Encoding
	Weights  Weights
}

// Stats counts what an encoding produced.
type Stats struct {
	Variables   int `json:"variables"`
	Binaries    int `json:"binaries"`
	Integers    int `json:"integers"`
	Constraints int `json:"constraints"`
	OneHot      int `json:"one_hot"`
	Linking     int `json:"linking"`
	Precedence  int `json:"precedence"`
	Resource    int `json:"resource"`
}

// Encoded is a finalized scheduling model together with the bounded
// instance it was built from.
type Encoded struct {
	model    *Model
	bounded  *model.Bounded
	encoding Encoding
	stats    Stats
}

// BinaryLabel names the binary that is hot when task n starts at t.
func BinaryLabel(n, t int) string { return fmt.Sprintf("task_%d_time_%d", n, t) }

// StartLabel names the integer start variable of task n in the linked encoding.
func StartLabel(n int) string { return fmt.Sprintf("t%d", n) }

func oneHotLabel(n int) string { return fmt.Sprintf("task %d one-hot", n) }

// Encode turns a bounded instance into a constrained model. It fails with
// *model.InfeasibleWindowError before emitting anything if a task has no
// admissible start time.
func Encode(b *model.Bounded, opts Options) (*Encoded, error) {
	if err := b.CheckWindows(); err != nil {
		return nil, err
	}
	e := &Encoded{bounded: b, encoding: opts.Encoding}
	bld := NewBuilder()

	for _, task := range b.Tasks {
		w := b.Window(task.Number)
		oneHot := NewLinearExpr()
		for t := w.Lower; t <= w.Upper; t++ {
			if err := bld.AddBinary(BinaryLabel(task.Number, t)); err != nil {
				return nil, err
			}
			oneHot.AddTerm(BinaryLabel(task.Number, t), 1)
			e.stats.Binaries++
		}
		if err := bld.AddConstraint(Constraint{
			Label:  oneHotLabel(task.Number),
			Expr:   *oneHot,
			Sense:  EQ,
			RHS:    1,
			Weight: opts.Weights.OneHot,
		}); err != nil {
			return nil, err
		}
		e.stats.OneHot++

		if opts.Encoding != EncodingLinked {
			continue
		}
		if err := bld.AddInteger(StartLabel(task.Number), int64(w.Lower), int64(w.Upper)); err != nil {
			return nil, err
		}
		e.stats.Integers++
		link := e.weightedStart(task.Number)
		link.AddTerm(StartLabel(task.Number), -1)
		if err := bld.AddConstraint(Constraint{
			Label: fmt.Sprintf("task %d binary value", task.Number),
			Expr:  link,
			Sense: EQ,
			RHS:   0,
		}); err != nil {
			return nil, err
		}
		e.stats.Linking++
	}

	for _, task := range b.Tasks {
		for _, s := range task.Successors {
			diff := NewLinearExpr().AddExpr(e.StartExpr(s), 1).AddExpr(e.StartExpr(task.Number), -1)
			if err := bld.AddConstraint(Constraint{
				Label:  fmt.Sprintf("%d precedes %d", task.Number, s),
				Expr:   *diff,
				Sense:  GE,
				RHS:    int64(task.Length),
				Weight: opts.Weights.Precedence,
			}); err != nil {
				return nil, err
			}
			e.stats.Precedence++
		}
	}

	for r, capacity := range b.ResourceCaps {
		for ts := 0; ts <= b.Horizon; ts++ {
			usage := e.ResourceUsage(r, ts)
			if usage.Len() == 0 {
				continue
			}
			if err := bld.AddConstraint(Constraint{
				Label:  fmt.Sprintf("resource %d constraint for timestamp %d", r, ts),
				Expr:   usage,
				Sense:  LE,
				RHS:    int64(capacity),
				Weight: opts.Weights.Resource,
			}); err != nil {
				return nil, err
			}
			e.stats.Resource++
		}
	}

	if err := bld.SetObjective(e.StartExpr(b.Terminal().Number)); err != nil {
		return nil, err
	}
	m, err := bld.Model()
	if err != nil {
		return nil, err
	}
	e.model = m
	e.stats.Variables = m.NumVariables()
	e.stats.Constraints = m.NumConstraints()
	return e, nil
}

// Model returns the finalized constrained model.
func (e *Encoded) Model() *Model { return e.model }

// Bounded returns the instance the model was built from.
func (e *Encoded) Bounded() *model.Bounded { return e.bounded }

// Encoding returns the start-time representation in use.
func (e *Encoded) Encoding() Encoding { return e.encoding }

// Stats returns size counters of the model.
func (e *Encoded) Stats() Stats { return e.stats }

// StartExpr is the start time of task n: its integer variable in the linked
// encoding, the weighted sum of its binaries otherwise.
func (e *Encoded) StartExpr(n int) LinearExpr {
	if e.encoding == EncodingLinked {
		return *NewLinearExpr().AddTerm(StartLabel(n), 1)
	}
	return e.weightedStart(n)
}

func (e *Encoded) weightedStart(n int) LinearExpr {
	w := e.bounded.Window(n)
	expr := NewLinearExpr()
	for t := w.Lower; t <= w.Upper; t++ {
		expr.AddTerm(BinaryLabel(n, t), int64(t))
	}
	return *expr
}

// ResourceUsage returns the expression for the amount of resource r in use
// at timestamp ts. A task started at t occupies [t, t+length-1], so its
// binaries for t in [max(lb, ts-length+1), min(ub, ts)] contribute its cost.
// Tasks with zero demand for r are left out.
func (e *Encoded) ResourceUsage(r, ts int) LinearExpr {
	expr := NewLinearExpr()
	for _, task := range e.bounded.Tasks {
		c := task.Cost(r)
		if c == 0 || !e.bounded.ExecutionWindow(task.Number).Contains(ts) {
			continue
		}
		w := e.bounded.Window(task.Number)
		from := max(w.Lower, ts-task.Length+1)
		to := min(w.Upper, ts)
		for t := from; t <= to; t++ {
			expr.AddTerm(BinaryLabel(task.Number, t), int64(c))
		}
	}
	return *expr
}

// Assignment encodes a schedule, given as start time per task number, into
// a full variable assignment of the model.
func (e *Encoded) Assignment(starts map[int]int) (Sample, error) {
	s := make(Sample, e.model.NumVariables())
	for _, task := range e.bounded.Tasks {
		start, ok := starts[task.Number]
		if !ok {
			return nil, fmt.Errorf("no start time for task %d", task.Number)
		}
		w := e.bounded.Window(task.Number)
		if !w.Contains(start) {
			return nil, fmt.Errorf("task %d: start %d outside window [%d, %d]", task.Number, start, w.Lower, w.Upper)
		}
		for t := w.Lower; t <= w.Upper; t++ {
			s[BinaryLabel(task.Number, t)] = 0
		}
		s[BinaryLabel(task.Number, start)] = 1
		if e.encoding == EncodingLinked {
			s[StartLabel(task.Number)] = float64(start)
		}
	}
	return s, nil
}
