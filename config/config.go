package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/rcpsp/core/factory"
	"github.com/kilianp07/rcpsp/core/metrics"
	"github.com/kilianp07/rcpsp/infra/logger"
	"github.com/kilianp07/rcpsp/infra/monitoring"
	"github.com/kilianp07/rcpsp/infra/runlog"
)

// EnvPrefix marks environment variables overriding the file. Nested keys
// are separated by a double underscore: K_SOLVER__CONF__AUTH__TOKEN sets
// solver.conf.auth.token.
const EnvPrefix = "K_"

type Config struct {
	Solver   factory.ModuleConfig `json:"solver"`
	Encoding EncodingConfig       `json:"encoding"`
	Batch    BatchConfig          `json:"batch"`
	Metrics  metrics.Config       `json:"metrics"`
	RunLog   runlog.Config        `json:"runlog"`
	Log      logger.Config        `json:"log"`
	Sentry   monitoring.Config    `json:"sentry"`
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	if c.Solver.Type == "" {
		c.Solver.Type = "http"
	}
	c.Encoding.SetDefaults()
	c.Batch.SetDefaults()
	c.RunLog.SetDefaults()
	c.Log.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Encoding.Validate(); err != nil {
		return err
	}
	if err := c.Batch.Validate(); err != nil {
		return err
	}
	return c.RunLog.Validate()
}

// Load reads the configuration file at path, applies K_ environment
// overrides, defaults and validation. An empty path loads the environment
// only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
