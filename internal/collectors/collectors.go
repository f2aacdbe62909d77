// Package collectors ships the built-in plugins. Each one samples the
// local host through gopsutil; all calls are context-aware so a cycle
// cancels cleanly with the scheduler.
package collectors

import (
	"github.com/perchlab/perch/internal/plugin"
)

// Register installs every built-in builder into the registry.
func Register(r *plugin.Registry) error {
	builders := map[string]plugin.Builder{
		"disk":    Disk,
		"memory":  Memory,
		"loadavg": LoadAvg,
		"netio":   NetIO,
	}
	for name, b := range builders {
		if err := r.Register(name, b); err != nil {
			return err
		}
	}
	return nil
}

func props(name, description string, opts plugin.Options) plugin.Properties {
	p := plugin.Properties{
		Name:        name,
		Description: description,
		Every:       opts.Every,
	}
	if opts.Priority != nil {
		p.Priority = *opts.Priority
	}
	return p
}
