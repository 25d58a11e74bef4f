// Package factory is a small generic registry that instantiates modules from
// configuration. A module is described by a type name and a map of raw
// settings; the registered factory decodes the settings into its own typed
// struct.
//
//	reg := factory.NewRegistry[solver.Gateway]()
//	reg.Register("replay", func(conf map[string]any) (solver.Gateway, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return replay.New(c.Path)
//	})
//	g, err := reg.Create(factory.ModuleConfig{Type: "replay", Conf: map[string]any{"path": "run.json"}})
package factory
