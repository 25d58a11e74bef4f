package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Result column values of the statistics file.
const (
	ResultMakespan = "makespan"
	ResultEnergy   = "energy"
)

// BatchConfig drives the batch command.
type BatchConfig struct {
	Instances []string `json:"instances"`
	// Limits are solver time limits in seconds; 0 leaves the solver default.
	Limits    []int  `json:"limits"`
	Result    string `json:"result"`
	Workers   int    `json:"workers"`
	StatsFile string `json:"stats_file"`
}

// SetDefaults fills unset fields.
func (c *BatchConfig) SetDefaults() {
	if len(c.Limits) == 0 {
		c.Limits = []int{0}
	}
	if c.Result == "" {
		c.Result = ResultMakespan
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.StatsFile == "" {
		c.StatsFile = "stats.csv"
	}
}

// Validate checks the result column and limits.
func (c BatchConfig) Validate() error {
	if c.Result != ResultMakespan && c.Result != ResultEnergy {
		return fmt.Errorf("batch: result must be %q or %q, got %q", ResultMakespan, ResultEnergy, c.Result)
	}
	for _, l := range c.Limits {
		if l < 0 {
			return fmt.Errorf("batch: negative limit %d", l)
		}
	}
	return nil
}

// LimitDurations returns Limits as durations.
func (c BatchConfig) LimitDurations() []time.Duration {
	out := make([]time.Duration, len(c.Limits))
	for i, l := range c.Limits {
		out[i] = time.Duration(l) * time.Second
	}
	return out
}

// Manifest lists the instances and limits of a batch run in its own file,
// so runs can be versioned independently from the configuration.
type Manifest struct {
	Instances []string `yaml:"instances"`
	Limits    []int    `yaml:"limits"`
	Result    string   `yaml:"result"`
}

// ReadManifest parses a YAML manifest.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	if len(m.Instances) == 0 {
		return Manifest{}, fmt.Errorf("manifest %s: no instances", path)
	}
	return m, nil
}

// Apply overrides the batch section with the manifest's non-empty fields.
func (m Manifest) Apply(c *BatchConfig) {
	c.Instances = m.Instances
	if len(m.Limits) > 0 {
		c.Limits = m.Limits
	}
	if m.Result != "" {
		c.Result = m.Result
	}
}
