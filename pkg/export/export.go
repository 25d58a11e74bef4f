// Package export writes batch statistics in CSV and JSON form.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"time"
)

// Header is the column layout of the statistics CSV.
var Header = []string{"instance", "num_of_tasks", "num_of_resources", "max_length", "result", "limit", "feasible"}

// StatsRow is one solved (instance, limit) pair.
type StatsRow struct {
	Instance     string        `json:"instance"`
	NumTasks     int           `json:"num_of_tasks"`
	NumResources int           `json:"num_of_resources"`
	MaxLength    int           `json:"max_length"`
	Result       float64       `json:"result"`
	Limit        time.Duration `json:"-"`
	Feasible     bool          `json:"feasible"`
}

// LimitSeconds is the limit column value; empty when no limit was set.
func (r StatsRow) LimitSeconds() string {
	if r.Limit <= 0 {
		return ""
	}
	return strconv.FormatFloat(r.Limit.Seconds(), 'f', -1, 64)
}

func (r StatsRow) record() []string {
	return []string{
		r.Instance,
		strconv.Itoa(r.NumTasks),
		strconv.Itoa(r.NumResources),
		strconv.Itoa(r.MaxLength),
		strconv.FormatFloat(r.Result, 'f', -1, 64),
		r.LimitSeconds(),
		strconv.FormatBool(r.Feasible),
	}
}

// MarshalJSON adds the limit in seconds, or null when unset.
func (r StatsRow) MarshalJSON() ([]byte, error) {
	type alias StatsRow
	var limit *float64
	if r.Limit > 0 {
		s := r.Limit.Seconds()
		limit = &s
	}
	return json.Marshal(struct {
		alias
		Limit *float64 `json:"limit"`
	}{alias(r), limit})
}

// StatsWriter streams rows to a CSV destination. Each row is flushed as
// soon as it is written so earlier rows survive a later failure. It is safe
// for concurrent use.
type StatsWriter struct {
	mu     sync.Mutex
	cw     *csv.Writer
	header bool
	rows   int
}

// NewStatsWriter returns a writer that emits the header before the first row.
func NewStatsWriter(w io.Writer) *StatsWriter {
	return &StatsWriter{cw: csv.NewWriter(w)}
}

// WriteHeader writes the header if it has not been written yet.
func (s *StatsWriter) WriteHeader() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeHeader()
}

func (s *StatsWriter) writeHeader() error {
	if s.header {
		return nil
	}
	if err := s.cw.Write(Header); err != nil {
		return err
	}
	s.header = true
	s.cw.Flush()
	return s.cw.Error()
}

// Write appends one row and flushes it.
func (s *StatsWriter) Write(r StatsRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeHeader(); err != nil {
		return err
	}
	if err := s.cw.Write(r.record()); err != nil {
		return err
	}
	s.cw.Flush()
	if err := s.cw.Error(); err != nil {
		return err
	}
	s.rows++
	return nil
}

// Rows returns the number of rows written.
func (s *StatsWriter) Rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// WriteCSV writes the header and all rows to w.
func WriteCSV(w io.Writer, rows []StatsRow) error {
	sw := NewStatsWriter(w)
	if err := sw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range rows {
		if err := sw.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes rows to w as a JSON array.
func WriteJSON(w io.Writer, rows []StatsRow) error {
	if rows == nil {
		rows = []StatsRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
