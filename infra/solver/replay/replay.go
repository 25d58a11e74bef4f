// Package replay answers solve requests from a sampleset stored on disk, so
// earlier solver answers can be decoded again without contacting a solver.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kilianp07/rcpsp/core/factory"
	"github.com/kilianp07/rcpsp/core/solver"
)

func init() {
	_ = solver.Register("replay", func(conf map[string]any) (solver.Gateway, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c)
	})
}

// Config points at the stored sampleset.
type Config struct {
	Path string `json:"path"`
}

// Gateway replays a stored sampleset for every request.
type Gateway struct {
	path string
}

// New returns a Gateway reading cfg.Path. The file is read on each Solve.
func New(cfg Config) (*Gateway, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("replay: path is required")
	}
	return &Gateway{path: cfg.Path}, nil
}

// Solve ignores the model and returns the stored sampleset.
func (g *Gateway) Solve(ctx context.Context, _ solver.Request) (solver.SampleSet, error) {
	if err := ctx.Err(); err != nil {
		return solver.SampleSet{}, err
	}
	return Load(g.path)
}

// Load reads a sampleset written by Save or returned by a solver service.
func Load(path string) (solver.SampleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return solver.SampleSet{}, err
	}
	var ss solver.SampleSet
	if err := json.Unmarshal(data, &ss); err != nil {
		return solver.SampleSet{}, fmt.Errorf("replay %s: %w", path, err)
	}
	return solver.NewSampleSet(ss.Candidates, ss.Info), nil
}

// Save writes ss to path in the format Load reads.
func Save(path string, ss solver.SampleSet) error {
	data, err := json.MarshalIndent(ss, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Recorder saves every successful answer of the wrapped gateway to path.
func Recorder(path string) func(solver.Gateway) solver.Gateway {
	return func(next solver.Gateway) solver.Gateway {
		return solver.GatewayFunc(func(ctx context.Context, req solver.Request) (solver.SampleSet, error) {
			ss, err := next.Solve(ctx, req)
			if err != nil {
				return ss, err
			}
			if err := Save(path, ss); err != nil {
				return ss, fmt.Errorf("save sampleset: %w", err)
			}
			return ss, nil
		})
	}
}
