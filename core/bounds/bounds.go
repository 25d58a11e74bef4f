package bounds

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/kilianp07/rcpsp/core/model"
)

// ErrCyclicPrecedence is returned when the successor relation is not a DAG.
var ErrCyclicPrecedence = errors.New("precedence graph has a cycle")

// Propagate computes the start window of every task and returns a new
// Bounded value. The input instance is not modified.
//
// Windows may come out empty when the horizon is shorter than the critical
// path; that is not an error here, it is reported by the model builder.
func Propagate(inst model.Instance) (*model.Bounded, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	order, err := TopoOrder(inst)
	if err != nil {
		return nil, err
	}

	in := inst.Clone()
	horizon := in.MaxLength
	if horizon == 0 {
		horizon = in.TotalLength()
	}
	in.MaxLength = horizon

	lower := make([]int, len(in.Tasks))
	for _, n := range order {
		t := in.Tasks[n-1]
		for _, s := range t.Successors {
			if end := lower[n-1] + t.Length; end > lower[s-1] {
				lower[s-1] = end
			}
		}
	}

	upper := make([]int, len(in.Tasks))
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		t := in.Tasks[n-1]
		ub := horizon - t.Length
		for _, s := range t.Successors {
			if v := upper[s-1] - t.Length; v < ub {
				ub = v
			}
		}
		upper[n-1] = ub
	}

	windows := make([]model.Window, len(in.Tasks))
	for i := range windows {
		windows[i] = model.Window{Lower: lower[i], Upper: upper[i]}
	}
	return &model.Bounded{Instance: in, Horizon: horizon, Windows: windows}, nil
}

// TopoOrder returns task numbers in a topological order of the successor
// relation. Node iteration is sorted by task number so the order is
// deterministic for a given instance.
func TopoOrder(inst model.Instance) ([]int, error) {
	g := simple.NewDirectedGraph()
	for _, t := range inst.Tasks {
		g.AddNode(simple.Node(t.Number))
	}
	for _, t := range inst.Tasks {
		for _, s := range t.Successors {
			if s == t.Number {
				return nil, fmt.Errorf("%w: task %d succeeds itself", ErrCyclicPrecedence, t.Number)
			}
			g.SetEdge(g.NewEdge(simple.Node(t.Number), simple.Node(s)))
		}
	}

	sorted, err := topo.SortStabilized(g, byID)
	if err != nil {
		var un topo.Unorderable
		if errors.As(err, &un) {
			return nil, fmt.Errorf("%w: tasks %v", ErrCyclicPrecedence, cycleMembers(un))
		}
		return nil, err
	}
	order := make([]int, len(sorted))
	for i, n := range sorted {
		order[i] = int(n.ID())
	}
	return order, nil
}

func byID(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}

func cycleMembers(un topo.Unorderable) []int {
	var ids []int
	for _, comp := range un {
		for _, n := range comp {
			ids = append(ids, int(n.ID()))
		}
	}
	sort.Ints(ids)
	return ids
}
