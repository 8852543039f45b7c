package linker

import (
	"github.com/chenwangji/minipack/pkg/compiler"
)

// BuildChunk assembles the chunk of one entry: every module whose owners
// contain name, in the order the modules were added to the graph. The entry
// module itself is left out of Modules even when another entry requires it.
func BuildChunk(name string, entry *compiler.Module, modules []*compiler.Module) *Chunk {
	c := &Chunk{Name: name, EntryModule: entry}
	for _, m := range modules {
		if m.HasOwner(name) && m.ID != entry.ID {
			c.Modules = append(c.Modules, m)
		}
	}
	return c
}
