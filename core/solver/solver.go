package solver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/rcpsp/core/cqm"
)

// ErrEmptySampleSet is returned when a solver answered without candidates.
var ErrEmptySampleSet = errors.New("sampleset has no candidates")

// Request is a single solve call.
type Request struct {
	Model *cqm.Model
	// TimeLimit is a soft budget for the solver. Zero leaves the solver
	// default in place.
	TimeLimit time.Duration
	Label     string
}

// Candidate is one assignment returned by a solver.
type Candidate struct {
	Sample         cqm.Sample `json:"sample"`
	Energy         float64    `json:"energy"`
	NumOccurrences int        `json:"num_occurrences"`
}

// SampleSet is the ordered answer of a solver.
type SampleSet struct {
	Candidates []Candidate     `json:"samples"`
	Info       map[string]any `json:"info,omitempty"`
}

// NewSampleSet orders candidates by ascending energy, keeping the solver's
// order among equal energies.
func NewSampleSet(cands []Candidate, info map[string]any) SampleSet {
	cp := append([]Candidate(nil), cands...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Energy < cp[j].Energy })
	return SampleSet{Candidates: cp, Info: info}
}

// First returns the best candidate.
func (s SampleSet) First() (Candidate, error) {
	if len(s.Candidates) == 0 {
		return Candidate{}, ErrEmptySampleSet
	}
	return s.Candidates[0], nil
}

// Len returns the number of candidates.
func (s SampleSet) Len() int { return len(s.Candidates) }

// Gateway submits models to a solver.
type Gateway interface {
	Solve(ctx context.Context, req Request) (SampleSet, error)
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, req Request) (SampleSet, error)

// Solve calls f.
func (f GatewayFunc) Solve(ctx context.Context, req Request) (SampleSet, error) { return f(ctx, req) }

// GatewayError is a non-success answer of a remote solver service.
type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("solver gateway returned status %d: %s", e.Status, e.Body)
}

// Label builds the problem label submitted alongside a model.
func Label(instance string, limit time.Duration) string {
	if limit <= 0 {
		return fmt.Sprintf("PSP name=%s", instance)
	}
	return fmt.Sprintf("PSP name=%s, limit=%s", instance, limit)
}
