package loader

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

// CommandPrefix marks a loader name as a shell command line.
const CommandPrefix = "exec:"

// Registry maps loader names from a configuration to transforms.
//
// A name is, in order of precedence: a registered transform (json and raw
// are built in), "exec:" followed by a command line, or a path to a
// JavaScript loader script relative to Base.
type Registry struct {
	FS   afero.Fs
	Base string

	mu      sync.Mutex
	named   map[string]Transform
	scripts map[string]*Script
}

// NewRegistry returns a registry holding the built-in loaders.
func NewRegistry(fs afero.Fs, base string) *Registry {
	r := &Registry{FS: fs, Base: base}
	r.Register("json", JSON)
	r.Register("raw", Raw)
	return r
}

// Register adds or replaces a named transform.
func (r *Registry) Register(name string, t Transform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.named == nil {
		r.named = map[string]Transform{}
	}
	r.named[name] = t
}

// Names lists the registered transforms.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.named))
	for n := range r.named {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the transform for name. Scripts are shared between rules
// that name the same file.
func (r *Registry) Lookup(name string) (Transform, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty loader name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.named[name]; ok {
		return t, nil
	}
	if strings.HasPrefix(name, CommandPrefix) {
		c, err := NewCommand(strings.TrimPrefix(name, CommandPrefix))
		if err != nil {
			return nil, err
		}
		c.Dir = r.Base
		return c, nil
	}
	p, err := homedir.Expand(name)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.Base, p)
	}
	p = filepath.ToSlash(filepath.Clean(p))
	if s, ok := r.scripts[p]; ok {
		return s, nil
	}
	if r.scripts == nil {
		r.scripts = map[string]*Script{}
	}
	s := NewScript(r.FS, p)
	r.scripts[p] = s
	return s, nil
}
