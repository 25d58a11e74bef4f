package decode

import (
	"errors"
	"fmt"

	"github.com/kilianp07/rcpsp/core/model"
)

// ResourceProfile returns usage[r][ts] for every resource and every
// timestamp in [0, horizon]. Tasks without a start are ignored and
// occupancy past the horizon is dropped.
func ResourceProfile(b *model.Bounded, starts map[int]int) [][]int {
	usage := make([][]int, b.NumResources())
	for r := range usage {
		usage[r] = make([]int, b.Horizon+1)
	}
	for _, task := range b.Tasks {
		start, ok := starts[task.Number]
		if !ok {
			continue
		}
		for ts := max(start, 0); ts < start+task.Length && ts <= b.Horizon; ts++ {
			for r := range usage {
				usage[r][ts] += task.Cost(r)
			}
		}
	}
	return usage
}

// VerifySchedule checks a schedule against the instance directly, without
// going through the constrained model. All problems found are joined.
func VerifySchedule(b *model.Bounded, starts map[int]int) error {
	var errs []error
	for _, task := range b.Tasks {
		start, ok := starts[task.Number]
		if !ok {
			errs = append(errs, fmt.Errorf("task %d has no start time", task.Number))
			continue
		}
		if start < 0 {
			errs = append(errs, fmt.Errorf("task %d starts before 0", task.Number))
		}
		for _, s := range task.Successors {
			next, ok := starts[s]
			if ok && next < start+task.Length {
				errs = append(errs, fmt.Errorf("task %d starts at %d before predecessor %d ends at %d",
					s, next, task.Number, start+task.Length))
			}
		}
	}
	for r, row := range ResourceProfile(b, starts) {
		for ts, used := range row {
			if used > b.ResourceCaps[r] {
				errs = append(errs, fmt.Errorf("resource %d over capacity at %d: %d > %d",
					r, ts, used, b.ResourceCaps[r]))
			}
		}
	}
	return errors.Join(errs...)
}
