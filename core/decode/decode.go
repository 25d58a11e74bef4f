package decode

import (
	"fmt"
	"math"
	"sort"

	"github.com/kilianp07/rcpsp/core/cqm"
	"github.com/kilianp07/rcpsp/core/solver"
)

// DefaultTolerance is the slack allowed when checking constraints of a
// solver sample.
const DefaultTolerance = 1e-6

// Result is the interpretation of the best candidate of a sampleset.
type Result struct {
	// Makespan is the start time of the terminal task. Only meaningful when
	// Decoded is true.
	Makespan   int             `json:"makespan"`
	Decoded    bool            `json:"decoded"`
	Starts     map[int]int     `json:"starts"`
	Undecoded  []int           `json:"undecoded,omitempty"`
	Feasible   bool            `json:"feasible"`
	Violations []cqm.Violation `json:"violations,omitempty"`
	Energy     float64         `json:"energy"`
}

// Interpret decodes the lowest-energy candidate of ss against enc. An
// infeasible candidate is reported through Result.Feasible, not as an error.
func Interpret(enc *cqm.Encoded, ss solver.SampleSet, tol float64) (Result, error) {
	best, err := ss.First()
	if err != nil {
		return Result{}, err
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}
	res := Result{
		Starts: make(map[int]int),
		Energy: best.Energy,
	}
	b := enc.Bounded()
	for _, task := range b.Tasks {
		start, ok := startOf(enc, best.Sample, task.Number, tol)
		if !ok {
			res.Undecoded = append(res.Undecoded, task.Number)
			continue
		}
		res.Starts[task.Number] = start
	}
	if start, ok := res.Starts[b.Terminal().Number]; ok {
		res.Makespan = start
		res.Decoded = true
	}
	m := enc.Model()
	res.Feasible = m.CheckFeasible(best.Sample, tol)
	if !res.Feasible {
		res.Violations = m.Violations(best.Sample, tol)
	}
	return res, nil
}

// startOf reads the start time of task n from s. In the linked encoding the
// integer variable is authoritative; otherwise exactly one binary of the
// task's window must be hot.
func startOf(enc *cqm.Encoded, s cqm.Sample, n int, tol float64) (int, bool) {
	if enc.Encoding() == cqm.EncodingLinked {
		v, ok := s[cqm.StartLabel(n)]
		if !ok || math.Abs(v-math.Round(v)) > tol {
			return 0, false
		}
		return int(math.Round(v)), true
	}
	w := enc.Bounded().Window(n)
	found, start := 0, 0
	for t := w.Lower; t <= w.Upper; t++ {
		if math.Abs(s[cqm.BinaryLabel(n, t)]-1) <= tol {
			found++
			start = t
		}
	}
	return start, found == 1
}

// SortedStarts returns the task numbers of starts in ascending order.
func SortedStarts(starts map[int]int) []int {
	keys := make([]int, 0, len(starts))
	for n := range starts {
		keys = append(keys, n)
	}
	sort.Ints(keys)
	return keys
}

func (r Result) String() string {
	if !r.Decoded {
		return fmt.Sprintf("makespan=? feasible=%t energy=%g", r.Feasible, r.Energy)
	}
	return fmt.Sprintf("makespan=%d feasible=%t energy=%g", r.Makespan, r.Feasible, r.Energy)
}
