package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordSink struct {
	models, solves int
	err            error
	closed         bool
}

func (r *recordSink) RecordModel(ModelEvent) error { r.models++; return r.err }
func (r *recordSink) RecordSolve(SolveEvent) error { r.solves++; return r.err }
func (r *recordSink) Close() error                 { r.closed = true; return nil }

type batchSink struct {
	recordSink
	batches int
}

func (b *batchSink) RecordBatch(BatchEvent) error { b.batches++; return nil }

func TestMultiSink_ForwardsToAll(t *testing.T) {
	failing := &recordSink{err: errors.New("down")}
	ok := &batchSink{}
	m := NewMultiSink(failing, ok)

	assert.ErrorContains(t, m.RecordModel(ModelEvent{}), "down")
	assert.ErrorContains(t, m.RecordSolve(SolveEvent{}), "down")
	assert.NoError(t, m.RecordBatch(BatchEvent{}))
	assert.NoError(t, m.Close())

	assert.Equal(t, 1, failing.models)
	assert.Equal(t, 1, ok.models)
	assert.Equal(t, 1, ok.solves)
	assert.Equal(t, 1, ok.batches)
	assert.True(t, failing.closed)
	assert.True(t, ok.closed)
}

func TestSolveEvent_Outcome(t *testing.T) {
	assert.Equal(t, "error", SolveEvent{Err: errors.New("x"), Feasible: true}.Outcome())
	assert.Equal(t, "feasible", SolveEvent{Feasible: true}.Outcome())
	assert.Equal(t, "infeasible", SolveEvent{}.Outcome())
}
