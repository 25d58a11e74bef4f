// Package bounds computes per-task start windows from the precedence graph
// and the scheduling horizon.
//
// The forward pass sets each task's earliest start to the latest finish of
// its predecessors. The backward pass sets each task's latest start so that
// every successor can still fit before the horizon. Both passes walk an
// explicit topological order, so the numbering of the instance does not have
// to be topological itself.
package bounds
