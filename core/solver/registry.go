package solver

import "github.com/kilianp07/rcpsp/core/factory"

var registry = factory.NewRegistry[Gateway]()

// Register adds a gateway factory identified by name.
func Register(name string, f factory.Factory[Gateway]) error {
	return registry.Register(name, f)
}

// New creates the gateway described by cfg.
func New(cfg factory.ModuleConfig) (Gateway, error) {
	return registry.Create(cfg)
}

// Names lists the registered gateway types.
func Names() []string { return registry.Names() }
