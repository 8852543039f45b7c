// Package plugins holds the plugins that ship with minipack.
package plugins

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/chenwangji/minipack/pkg/hooks"
)

// Announce logs its message when a compilation starts.
type Announce struct {
	Log     logr.Logger
	Message string
}

func (p *Announce) Apply(r *hooks.Registry) {
	r.Tap(hooks.Run, "announce", func() {
		p.Log.Info(p.Message)
	})
}

// Timing logs the time spent from run to emit and from run to done.
type Timing struct {
	Log logr.Logger
	// Now defaults to time.Now.
	Now func() time.Time

	start time.Time
}

func (p *Timing) Apply(r *hooks.Registry) {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	r.Tap(hooks.Run, "timing", func() { p.start = now() })
	r.Tap(hooks.Emit, "timing", func() {
		p.Log.V(1).Info("compiled", "elapsed", now().Sub(p.start).String())
	})
	r.Tap(hooks.Done, "timing", func() {
		p.Log.Info("build finished", "elapsed", now().Sub(p.start).String())
	})
}

// Factory builds a plugin from its configured options.
type Factory func(log logr.Logger, opts map[string]string) (hooks.Plugin, error)

var registry = map[string]Factory{
	"announce": func(log logr.Logger, opts map[string]string) (hooks.Plugin, error) {
		msg := opts["message"]
		if msg == "" {
			msg = "compilation started"
		}
		return &Announce{Log: log.WithName("announce"), Message: msg}, nil
	},
	"timing": func(log logr.Logger, _ map[string]string) (hooks.Plugin, error) {
		return &Timing{Log: log.WithName("timing")}, nil
	},
}

// New returns the built-in plugin called name.
func New(name string, log logr.Logger, opts map[string]string) (hooks.Plugin, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown plugin %q (available: %v)", name, Names())
	}
	return f(log, opts)
}

// Names lists the built-in plugins.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
