// Package httpgw submits models to a remote solver service over HTTP.
//
// The service receives POST <endpoint>/solve with a JSON body
// {"label", "time_limit", "model"} where time_limit is in seconds (omitted
// for the solver default) and answers with a sampleset
// {"samples": [{"sample", "energy", "num_occurrences"}], "info"}.
package httpgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/rcpsp/auth"
	"github.com/kilianp07/rcpsp/core/cqm"
	"github.com/kilianp07/rcpsp/core/factory"
	"github.com/kilianp07/rcpsp/core/solver"
	"github.com/kilianp07/rcpsp/infra/logger"
)

func init() {
	_ = solver.Register("http", func(conf map[string]any) (solver.Gateway, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c)
	})
}

// Config locates the solver service.
type Config struct {
	Endpoint string    `json:"endpoint"`
	Auth     auth.Conf `json:"auth"`
	// TimeoutSlack is added to the time limit to bound the whole HTTP
	// exchange.
	TimeoutSlack time.Duration `json:"timeout_slack"`
	// DefaultTimeout bounds requests sent without a time limit.
	DefaultTimeout time.Duration `json:"default_timeout"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.TimeoutSlack <= 0 {
		c.TimeoutSlack = 30 * time.Second
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 10 * time.Minute
	}
}

// Validate reports missing mandatory settings.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("httpgw: endpoint is required")
	}
	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return fmt.Errorf("httpgw: endpoint %q is not an http(s) URL", c.Endpoint)
	}
	return c.Auth.Validate()
}

// Gateway is a solver.Gateway backed by an HTTP service. Requests are never
// retried.
type Gateway struct {
	cfg    Config
	url    string
	auth   auth.Authenticator
	client *http.Client
	log    logger.Logger
}

// New validates cfg and returns a Gateway.
func New(cfg Config) (*Gateway, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a, err := auth.New(cfg.Auth)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		cfg:    cfg,
		url:    strings.TrimSuffix(cfg.Endpoint, "/") + "/solve",
		auth:   a,
		client: &http.Client{},
		log:    logger.New("solver-http"),
	}, nil
}

type solveRequest struct {
	Label     string     `json:"label"`
	TimeLimit *float64   `json:"time_limit,omitempty"`
	Model     *cqm.Model `json:"model"`
}

// Solve posts the model and decodes the answer. The exchange is bounded by
// the time limit plus the configured slack.
func (g *Gateway) Solve(ctx context.Context, req solver.Request) (solver.SampleSet, error) {
	if req.Model == nil {
		return solver.SampleSet{}, fmt.Errorf("httpgw: request has no model")
	}
	body := solveRequest{Label: req.Label, Model: req.Model}
	timeout := g.cfg.DefaultTimeout
	if req.TimeLimit > 0 {
		s := req.TimeLimit.Seconds()
		body.TimeLimit = &s
		timeout = req.TimeLimit + g.cfg.TimeoutSlack
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return solver.SampleSet{}, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return solver.SampleSet{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if g.auth != nil {
		if err := g.auth.SetAuthHeader(httpReq); err != nil {
			return solver.SampleSet{}, fmt.Errorf("failed to set auth header: %w", err)
		}
	}

	g.log.Debugw("submitting model", map[string]any{
		"label":       req.Label,
		"variables":   req.Model.NumVariables(),
		"constraints": req.Model.NumConstraints(),
		"bytes":       len(payload),
	})
	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return solver.SampleSet{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return solver.SampleSet{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return solver.SampleSet{}, &solver.GatewayError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	var ss solver.SampleSet
	if err := json.Unmarshal(data, &ss); err != nil {
		return solver.SampleSet{}, fmt.Errorf("failed to decode response: %w", err)
	}
	g.log.Infof("solver answered %q with %d samples in %s", req.Label, ss.Len(), time.Since(start).Round(time.Millisecond))
	return solver.NewSampleSet(ss.Candidates, ss.Info), nil
}
