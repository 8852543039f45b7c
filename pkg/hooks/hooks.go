// Package hooks provides the named, synchronous extension points of a
// compilation.
package hooks

import (
	"fmt"
	"sync"
)

// Event names a point in the compiler lifecycle.
type Event string

const (
	// Run fires before the entries are resolved.
	Run Event = "run"
	// Emit fires after the assets are rendered and before they are written.
	Emit Event = "emit"
	// Done fires after the assets are written.
	Done Event = "done"
)

// Events lists the lifecycle events in firing order.
var Events = []Event{Run, Emit, Done}

// Plugin registers callbacks on a registry.
type Plugin interface {
	Apply(r *Registry)
}

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc func(r *Registry)

func (f PluginFunc) Apply(r *Registry) { f(r) }

// Tap is a callback registered under a name.
type Tap struct {
	Name string
	Fn   func()
}

// Registry holds the ordered callbacks of every event.
type Registry struct {
	mu   sync.Mutex
	taps map[Event][]Tap
}

func NewRegistry() *Registry {
	return &Registry{taps: map[Event][]Tap{}}
}

// Tap registers fn under event. Callbacks run in registration order.
func (r *Registry) Tap(event Event, name string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taps == nil {
		r.taps = map[Event][]Tap{}
	}
	r.taps[event] = append(r.taps[event], Tap{Name: name, Fn: fn})
}

// Call runs every callback of event. A panicking callback is reported as an
// error naming the tap; later callbacks do not run.
func (r *Registry) Call(event Event) error {
	for _, t := range r.Taps(event) {
		if err := call(event, t); err != nil {
			return err
		}
	}
	return nil
}

func call(event Event, t Tap) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s hook %q panicked: %v", event, t.Name, p)
		}
	}()
	t.Fn()
	return nil
}

// Taps returns a copy of the callbacks registered under event.
func (r *Registry) Taps(event Event) []Tap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Tap(nil), r.taps[event]...)
}

// Apply lets each plugin register its callbacks.
func (r *Registry) Apply(plugins ...Plugin) {
	for _, p := range plugins {
		p.Apply(r)
	}
}
