package config

import (
	"fmt"

	"github.com/kilianp07/rcpsp/core/cqm"
	"github.com/kilianp07/rcpsp/core/decode"
)

// EncodingConfig controls how instances become constrained models.
type EncodingConfig struct {
	// Type is "binary" (default) or "linked".
	Type string `json:"type"`
	// Weights makes constraint families soft. All zero keeps them hard.
	Weights cqm.Weights `json:"weights"`
	// ReferenceWeights selects the 10/2/1 weighting and overrides Weights.
	ReferenceWeights bool `json:"reference_weights"`
	// Tolerance is the feasibility slack when checking solver samples.
	Tolerance float64 `json:"tolerance"`
	// RelaxMaxVars bounds the model size for which the LP relaxation bound
	// is computed; 0 disables it.
	RelaxMaxVars int `json:"relax_max_vars"`
}

// SetDefaults fills unset fields.
func (c *EncodingConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = cqm.EncodingBinary.String()
	}
	if c.Tolerance <= 0 {
		c.Tolerance = decode.DefaultTolerance
	}
}

// Validate checks the encoding name and weights.
func (c EncodingConfig) Validate() error {
	if _, err := cqm.ParseEncoding(c.Type); err != nil {
		return err
	}
	if c.Weights.OneHot < 0 || c.Weights.Precedence < 0 || c.Weights.Resource < 0 {
		return fmt.Errorf("encoding: negative constraint weight")
	}
	if c.RelaxMaxVars < 0 {
		return fmt.Errorf("encoding: negative relax_max_vars")
	}
	return nil
}

// Options converts the section to encoder options.
func (c EncodingConfig) Options() (cqm.Options, error) {
	enc, err := cqm.ParseEncoding(c.Type)
	if err != nil {
		return cqm.Options{}, err
	}
	w := c.Weights
	if c.ReferenceWeights {
		w = cqm.ReferenceWeights()
	}
	return cqm.Options{Encoding: enc, Weights: w}, nil
}
