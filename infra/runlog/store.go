// Package runlog keeps a history of pipeline runs so earlier results can be
// listed and compared without re-solving.
package runlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record captures one (instance, limit) run and its outcome.
type Record struct {
	ID          string        `json:"id"`
	Timestamp   time.Time     `json:"timestamp"`
	Instance    string        `json:"instance"`
	Tasks       int           `json:"tasks"`
	Resources   int           `json:"resources"`
	Horizon     int           `json:"horizon"`
	Encoding    string        `json:"encoding"`
	TimeLimit   time.Duration `json:"time_limit"`
	Variables   int           `json:"variables"`
	Constraints int           `json:"constraints"`
	Latency     time.Duration `json:"latency"`
	Makespan    int           `json:"makespan"`
	Decoded     bool          `json:"decoded"`
	Energy      float64       `json:"energy"`
	Feasible    bool          `json:"feasible"`
	Violations  []string      `json:"violations,omitempty"`
	// Stage and Error are set when the run failed.
	Stage string `json:"stage,omitempty"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether the run ended with an error.
func (r Record) Failed() bool { return r.Error != "" }

// Query defines filters for retrieving records. Zero values match all.
type Query struct {
	Start        time.Time
	End          time.Time
	Instance     string
	FeasibleOnly bool
	// Limit keeps only the most recent records when positive.
	Limit int
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Instance != "" && r.Instance != q.Instance {
		return false
	}
	if q.FeasibleOnly && (!r.Feasible || r.Failed()) {
		return false
	}
	return true
}

func (q Query) trim(res []Record) []Record {
	if q.Limit > 0 && len(res) > q.Limit {
		return res[len(res)-q.Limit:]
	}
	return res
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// prepare assigns an ID and timestamp to records missing them.
func prepare(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	return rec
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error            { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                    { return nil }

// Config selects and configures the history backend.
type Config struct {
	// Type is "jsonl", "rotating", "sqlite" or "none".
	Type       string `json:"type"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Type == "" {
		c.Type = "none"
	}
	if c.Path == "" {
		switch c.Type {
		case "sqlite":
			c.Path = "runs.db"
		case "jsonl", "rotating":
			c.Path = "runs.jsonl"
		}
	}
	if c.Type == "rotating" {
		if c.MaxSizeMB <= 0 {
			c.MaxSizeMB = 10
		}
		if c.MaxBackups <= 0 {
			c.MaxBackups = 5
		}
	}
}

// Validate checks the backend type.
func (c Config) Validate() error {
	switch c.Type {
	case "none", "jsonl", "rotating", "sqlite":
		return nil
	default:
		return fmt.Errorf("runlog: unknown type %q", c.Type)
	}
}

// Open creates the store described by cfg.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return NopStore{}, nil
	}
}
