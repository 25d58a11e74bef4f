// Package fixtures provides small scheduling instances shared by tests.
//
// Chain is the three-task chain 1 -> 2 -> 3 with lengths 2, 3, 1 on a single
// resource of capacity 5. Its horizon defaults to 6 and every window is a
// single start time, so the only schedule is {1:0, 2:2, 3:5}.
//
// Diamond is 1 -> {2, 3} -> 4 on two resources. Task 3 cannot overlap task 2
// on resource 0, so the best schedule is Diamond{Optimal} with makespan 8.
package fixtures

import "github.com/kilianp07/rcpsp/core/model"

// ChainRCP is Chain in the .rcp text format.
const ChainRCP = `
3 1
5
2 2 1 2
3 2 1 3
1 1 0
`

// Chain returns a fresh copy of the chain instance.
func Chain() model.Instance {
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

// ChainSchedule is the only feasible schedule of Chain.
func ChainSchedule() map[int]int { return map[int]int{1: 0, 2: 2, 3: 5} }

// Diamond returns a fresh copy of the diamond instance.
func Diamond() model.Instance {
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

// DiamondOptimal is a feasible schedule of Diamond with makespan 8.
func DiamondOptimal() map[int]int { return map[int]int{1: 0, 2: 3, 3: 2, 4: 8} }

// DiamondOverloaded respects precedence but puts 5 units on resource 0 at
// timestamp 2.
func DiamondOverloaded() map[int]int { return map[int]int{1: 0, 2: 2, 3: 2, 4: 7} }
