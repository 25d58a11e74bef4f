package bounds

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rcpsp/core/model"
)

func chainInstance() model.Instance {
	return model.Instance{
		Name:         "chain",
		ResourceCaps: []int{5},
		Tasks: []model.Task{
			{Number: 1, Length: 2, ResourceCosts: []int{2}, Successors: []int{2}},
			{Number: 2, Length: 3, ResourceCosts: []int{2}, Successors: []int{3}},
			{Number: 3, Length: 1, ResourceCosts: []int{1}},
		},
	}
}

// A -> {B, C} -> D with a slack branch.
func diamondInstance() model.Instance {
	return model.Instance{
		Name:         "diamond",
		ResourceCaps: []int{4, 2},
		Tasks: []model.Task{
			{Number: 1, Length: 2, ResourceCosts: []int{1, 0}, Successors: []int{2, 3}},
			{Number: 2, Length: 5, ResourceCosts: []int{2, 1}, Successors: []int{4}},
			{Number: 3, Length: 1, ResourceCosts: []int{3, 1}, Successors: []int{4}},
			{Number: 4, Length: 2, ResourceCosts: []int{1, 1}},
		},
	}
}

func TestPropagate_ChainScenario(t *testing.T) {
	b, err := Propagate(chainInstance())
	require.NoError(t, err)

	assert.Equal(t, 6, b.Horizon)
	assert.Equal(t, 6, b.MaxLength)
	assert.Equal(t, []model.Window{{Lower: 0, Upper: 0}, {Lower: 2, Upper: 2}, {Lower: 5, Upper: 5}}, b.Windows)
	assert.Equal(t, 6, b.CriticalPathLength())
}

func TestPropagate_DoesNotMutateInput(t *testing.T) {
	in := chainInstance()
	_, err := Propagate(in)
	require.NoError(t, err)
	assert.Equal(t, 0, in.MaxLength)
}

func TestPropagate_HorizonDefault(t *testing.T) {
	in := diamondInstance()
	b, err := Propagate(in)
	require.NoError(t, err)
	assert.Equal(t, in.TotalLength(), b.Horizon)
}

func TestPropagate_ExplicitHorizon(t *testing.T) {
	in := diamondInstance()
	in.MaxLength = 20
	b, err := Propagate(in)
	require.NoError(t, err)
	assert.Equal(t, 20, b.Horizon)
	assert.Equal(t, model.Window{Lower: 7, Upper: 18}, b.Window(4))
}

func TestPropagate_Monotonicity(t *testing.T) {
	for _, in := range []model.Instance{chainInstance(), diamondInstance()} {
		b, err := Propagate(in)
		require.NoError(t, err)
		for _, task := range b.Tasks {
			w := b.Window(task.Number)
			assert.LessOrEqual(t, w.Lower, w.Upper, "task %d window", task.Number)
			for _, s := range task.Successors {
				sw := b.Window(s)
				assert.GreaterOrEqual(t, sw.Lower, w.Lower+task.Length)
				assert.LessOrEqual(t, w.Upper, sw.Upper-task.Length)
			}
		}
	}
}

func TestPropagate_Diamond(t *testing.T) {
	b, err := Propagate(diamondInstance())
	require.NoError(t, err)
	// horizon 10, critical path 1 -> 2 -> 4 = 9
	assert.Equal(t, 10, b.Horizon)
	assert.Equal(t, model.Window{Lower: 0, Upper: 1}, b.Window(1))
	assert.Equal(t, model.Window{Lower: 2, Upper: 3}, b.Window(2))
	assert.Equal(t, model.Window{Lower: 2, Upper: 7}, b.Window(3))
	assert.Equal(t, model.Window{Lower: 7, Upper: 8}, b.Window(4))
}

func TestPropagate_NonTopologicalNumbering(t *testing.T) {
	// 2 must precede 1
	in := model.Instance{
		Name:         "reversed",
		ResourceCaps: []int{1},
		Tasks: []model.Task{
			{Number: 1, Length: 2, ResourceCosts: []int{1}},
			{Number: 2, Length: 3, ResourceCosts: []int{1}, Successors: []int{1}},
		},
	}
	b, err := Propagate(in)
	require.NoError(t, err)
	assert.Equal(t, model.Window{Lower: 3, Upper: 3}, b.Window(1))
	assert.Equal(t, model.Window{Lower: 0, Upper: 0}, b.Window(2))
}

func TestPropagate_ShortHorizonLeavesEmptyWindow(t *testing.T) {
	in := chainInstance()
	in.MaxLength = 4
	b, err := Propagate(in)
	require.NoError(t, err)
	var werr *model.InfeasibleWindowError
	require.ErrorAs(t, b.CheckWindows(), &werr)
}

func TestPropagate_Cycle(t *testing.T) {
	in := chainInstance()
	in.Tasks[2].Successors = []int{1}
	_, err := Propagate(in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCyclicPrecedence))
	assert.Contains(t, err.Error(), "[1 2 3]")
}

func TestPropagate_SelfLoop(t *testing.T) {
	in := chainInstance()
	in.Tasks[1].Successors = []int{2}
	_, err := Propagate(in)
	assert.ErrorIs(t, err, ErrCyclicPrecedence)
}

func TestPropagate_InvalidInstance(t *testing.T) {
	in := chainInstance()
	in.Tasks[0].Successors = []int{9}
	_, err := Propagate(in)
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTopoOrder_Chain(t *testing.T) {
	order, err := TopoOrder(chainInstance())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order)
}
