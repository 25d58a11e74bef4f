package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kilianp07/rcpsp/core/factory"
	coremetrics "github.com/kilianp07/rcpsp/core/metrics"
	"github.com/kilianp07/rcpsp/infra/logger"
)

func init() {
	_ = coremetrics.RegisterSink("mqtt", func(conf map[string]any) (coremetrics.Sink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewResultPublisher(c)
	})
}

// ResultPublisher is a metrics sink publishing every event as a JSON
// message. Topics are <prefix>/<instance>/model, <prefix>/<instance>/solve
// and <prefix>/batch.
type ResultPublisher struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewResultPublisher connects to the broker.
func NewResultPublisher(cfg Config) (*ResultPublisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.New("mqtt-publisher")
	cli, err := connect(cfg, log)
	if err != nil {
		return nil, err
	}
	return &ResultPublisher{
		cli:        cli,
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}, nil
}

type modelMessage struct {
	Instance    string  `json:"instance"`
	Encoding    string  `json:"encoding"`
	Tasks       int     `json:"tasks"`
	Variables   int     `json:"variables"`
	Constraints int     `json:"constraints"`
	Horizon     int     `json:"horizon"`
	BuildMS     float64 `json:"build_ms"`
	Timestamp   int64   `json:"timestamp"`
}

type solveMessage struct {
	Instance   string   `json:"instance"`
	LimitS     *float64 `json:"time_limit_s"`
	LatencyMS  float64  `json:"latency_ms"`
	Outcome    string   `json:"outcome"`
	Makespan   *int     `json:"makespan"`
	Energy     float64  `json:"energy"`
	Feasible   bool     `json:"feasible"`
	Violations int      `json:"violations"`
	Error      string   `json:"error,omitempty"`
	Timestamp  int64    `json:"timestamp"`
}

type batchMessage struct {
	Jobs      int     `json:"jobs"`
	Failed    int     `json:"failed"`
	Feasible  int     `json:"feasible"`
	DurationS float64 `json:"duration_s"`
	Timestamp int64   `json:"timestamp"`
}

// RecordModel publishes the model size.
func (p *ResultPublisher) RecordModel(ev coremetrics.ModelEvent) error {
	return p.publish(p.topic(ev.Instance, "model"), modelMessage{
		Instance:    ev.Instance,
		Encoding:    ev.Encoding,
		Tasks:       ev.Tasks,
		Variables:   ev.Variables,
		Constraints: ev.Constraints,
		Horizon:     ev.Horizon,
		BuildMS:     float64(ev.BuildTime.Microseconds()) / 1000,
		Timestamp:   millis(ev.Time),
	})
}

// RecordSolve publishes the decoded result of a solve.
func (p *ResultPublisher) RecordSolve(ev coremetrics.SolveEvent) error {
	msg := solveMessage{
		Instance:   ev.Instance,
		LatencyMS:  float64(ev.Latency.Microseconds()) / 1000,
		Outcome:    ev.Outcome(),
		Energy:     ev.Energy,
		Feasible:   ev.Feasible,
		Violations: ev.Violations,
		Timestamp:  millis(ev.Time),
	}
	if ev.TimeLimit > 0 {
		s := ev.TimeLimit.Seconds()
		msg.LimitS = &s
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	} else if ev.Decoded {
		m := ev.Makespan
		msg.Makespan = &m
	}
	return p.publish(p.topic(ev.Instance, "solve"), msg)
}

// RecordBatch publishes the batch summary.
func (p *ResultPublisher) RecordBatch(ev coremetrics.BatchEvent) error {
	return p.publish(p.prefix+"/batch", batchMessage{
		Jobs:      ev.Jobs,
		Failed:    ev.Failed,
		Feasible:  ev.Feasible,
		DurationS: ev.Duration.Seconds(),
		Timestamp: millis(ev.Time),
	})
}

// Close disconnects from the broker.
func (p *ResultPublisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}

func (p *ResultPublisher) topic(instance, kind string) string {
	return p.prefix + "/" + topicSegment(instance) + "/" + kind
}

func (p *ResultPublisher) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(p.backoff * time.Duration(1<<(attempt-1)))
		}
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			p.log.Debugf("published %s", topic)
			return nil
		}
		p.log.Errorf("publish %s attempt %d failed: %v", topic, attempt+1, publishErr)
	}
	return publishErr
}

// topicSegment keeps instance names from splitting the topic or acting as
// wildcards.
func topicSegment(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UnixMilli()
}
