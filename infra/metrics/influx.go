package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/rcpsp/core/metrics"
	"github.com/kilianp07/rcpsp/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket receiving pipeline events.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes pipeline events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordModel writes a model_built point.
func (s *InfluxSink) RecordModel(ev coremetrics.ModelEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("model_built").
		AddTag("instance", ev.Instance).
		AddTag("encoding", ev.Encoding).
		AddField("tasks", ev.Tasks).
		AddField("variables", ev.Variables).
		AddField("constraints", ev.Constraints).
		AddField("horizon", ev.Horizon).
		AddField("build_ms", round3(ev.BuildTime.Seconds()*1000)).
		SetTime(eventTime(ev.Time))
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSolve writes a solve_result point. Failed solves carry the error
// text instead of the result fields.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("solve_result").
		AddTag("instance", ev.Instance).
		AddTag("outcome", ev.Outcome()).
		AddTag("limit_s", strconv.FormatFloat(ev.TimeLimit.Seconds(), 'f', -1, 64)).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000))
	if ev.Err != nil {
		p = p.AddField("error", ev.Err.Error())
	} else {
		p = p.AddField("energy", round3(ev.Energy)).
			AddField("violations", ev.Violations)
		if ev.Decoded {
			p = p.AddField("makespan", ev.Makespan)
		}
	}
	p = p.SetTime(eventTime(ev.Time))
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBatch writes a batch_summary point.
func (s *InfluxSink) RecordBatch(ev coremetrics.BatchEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("batch_summary").
		AddField("jobs", ev.Jobs).
		AddField("failed", ev.Failed).
		AddField("feasible", ev.Feasible).
		AddField("duration_s", round3(ev.Duration.Seconds())).
		SetTime(eventTime(ev.Time))
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func eventTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
