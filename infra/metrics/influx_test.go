package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/rcpsp/core/metrics"
)

type lineRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(b)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordModel(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	require.NoError(t, sink.RecordModel(coremetrics.ModelEvent{
		Instance: "pat31.rcp", Encoding: "binary", Tasks: 22, Variables: 300,
		Constraints: 420, Horizon: 160, BuildTime: 1500 * time.Microsecond, Time: now,
	}))
	p := write.NewPointWithMeasurement("model_built").
		AddTag("instance", "pat31.rcp").
		AddTag("encoding", "binary").
		AddField("tasks", 22).
		AddField("variables", 300).
		AddField("constraints", 420).
		AddField("horizon", 160).
		AddField("build_ms", 1.5).
		SetTime(now)
	assert.Equal(t, []string{line(p)}, rec.bodies)
}

func TestInfluxSink_RecordSolve(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	require.NoError(t, sink.RecordSolve(coremetrics.SolveEvent{
		Instance: "pat31.rcp", TimeLimit: 50 * time.Second, Latency: 2 * time.Second,
		Makespan: 48, Decoded: true, Energy: 48, Feasible: true, Time: now,
	}))
	require.NoError(t, sink.RecordSolve(coremetrics.SolveEvent{
		Instance: "pat31.rcp", Latency: time.Second, Err: errors.New("unauthorized"), Time: now,
	}))

	ok := write.NewPointWithMeasurement("solve_result").
		AddTag("instance", "pat31.rcp").
		AddTag("outcome", "feasible").
		AddTag("limit_s", "50").
		AddField("latency_ms", 2000.0).
		AddField("energy", 48.0).
		AddField("violations", 0).
		AddField("makespan", 48).
		SetTime(now)
	failed := write.NewPointWithMeasurement("solve_result").
		AddTag("instance", "pat31.rcp").
		AddTag("outcome", "error").
		AddTag("limit_s", "0").
		AddField("latency_ms", 1000.0).
		AddField("error", "unauthorized").
		SetTime(now)
	assert.Equal(t, []string{line(ok), line(failed)}, rec.bodies)
}

func TestInfluxSink_RecordBatch(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	require.NoError(t, sink.RecordBatch(coremetrics.BatchEvent{Jobs: 10, Failed: 1, Feasible: 8, Duration: 90 * time.Second, Time: now}))
	assert.Equal(t, []string{fmt.Sprintf("batch_summary jobs=10i,failed=1i,feasible=8i,duration_s=90 %d", now.UnixNano())}, rec.bodies)
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	assert.IsType(t, coremetrics.NopSink{}, sink)
	assert.True(t, called)
}

func TestNewInfluxSinkWithFallback_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"influxdb","message":"ready for queries and writes","status":"pass","checks":[]}`)
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	s, ok := sink.(*InfluxSink)
	require.True(t, ok)
	assert.NoError(t, s.Close())
}
