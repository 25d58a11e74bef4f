package logger

import corelogger "github.com/kilianp07/rcpsp/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards everything.
type NopLogger = corelogger.NopLogger

// Config selects the level and output format of the process logger.
type Config struct {
	// Level is a zerolog level name; empty means info.
	Level string `json:"level"`
	// Format is "json" or "console". Empty follows APP_ENV: console when
	// APP_ENV=dev, json otherwise.
	Format string `json:"format"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// New returns a Logger for the given component using the process-wide
// configuration installed by Setup.
func New(component string) Logger {
	return NewZerologLogger(component)
}
