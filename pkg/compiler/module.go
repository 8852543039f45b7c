package compiler

// Module is one source file in the dependency graph.
type Module struct {
	// ID is the root-relative path written as ./path. It is the only
	// deduplication key.
	ID   string
	Path string
	// Dependencies lists, in discovery order, the ids this module required
	// that were not yet part of the graph when it was traversed.
	Dependencies []string
	// Requires lists every distinct id this module requires.
	Requires []string
	// Owners lists the entries whose chunk contains this module. It only
	// grows.
	Owners []string
	// Source is the module text after loaders ran and requires were
	// rewritten.
	Source string
}

// HasOwner reports whether entry owns the module.
func (m *Module) HasOwner(entry string) bool {
	return contains(m.Owners, entry)
}

func (m *Module) addOwner(entry string) bool {
	if m.HasOwner(entry) {
		return false
	}
	m.Owners = append(m.Owners, entry)
	return true
}

// BuildContext holds the state of one compilation: the global module set and
// the built entry modules. An entry module enters the global set only once
// a module outside its own build requires it.
//
// A BuildContext is not safe for concurrent use. Building modules in parallel
// would need a lock around the check-then-insert in Build.
type BuildContext struct {
	modules    map[string]*Module
	order      []*Module
	entries    []*Module
	inProgress map[string]bool
}

func NewBuildContext() *BuildContext {
	return &BuildContext{
		modules:    map[string]*Module{},
		inProgress: map[string]bool{},
	}
}

// Lookup returns the module with the given id from the global set.
func (c *BuildContext) Lookup(id string) (*Module, bool) {
	m, ok := c.modules[id]
	return m, ok
}

// Modules returns the global set in insertion order.
func (c *BuildContext) Modules() []*Module {
	return c.order
}

// Entries returns the entry modules in build order.
func (c *BuildContext) Entries() []*Module {
	return c.entries
}

func (c *BuildContext) add(m *Module) {
	if _, ok := c.modules[m.ID]; ok {
		return
	}
	c.modules[m.ID] = m
	c.order = append(c.order, m)
}

// shared returns the module with the given id. A finished entry module
// that another module requires joins the global set here, so that the chunks
// of other entries register it too.
func (c *BuildContext) shared(id string) *Module {
	if m, ok := c.modules[id]; ok {
		return m
	}
	for _, e := range c.entries {
		if e.ID == id {
			c.add(e)
			return e
		}
	}
	return nil
}

// own adds entry to the owners of id and of every module it transitively
// requires, so that the entry's chunk holds everything the module needs.
func (c *BuildContext) own(id, entry string) {
	seen := map[string]bool{}
	stack := []string{id}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		m := c.shared(id)
		if m == nil {
			continue
		}
		m.addOwner(entry)
		stack = append(stack, m.Requires...)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	if contains(list, s) {
		return list
	}
	return append(list, s)
}
