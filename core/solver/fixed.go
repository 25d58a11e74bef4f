package solver

import (
	"context"
	"sync"
)

// Fixed is a deterministic Gateway that answers every request with the same
// sampleset or error. It records the requests it received.
type Fixed struct {
	Set SampleSet
	Err error

	mu       sync.Mutex
	requests []Request
}

// Solve returns the configured answer unless ctx is already done.
func (f *Fixed) Solve(ctx context.Context, req Request) (SampleSet, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return SampleSet{}, err
	}
	if f.Err != nil {
		return SampleSet{}, f.Err
	}
	return f.Set, nil
}

// Requests returns the requests received so far.
func (f *Fixed) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}
