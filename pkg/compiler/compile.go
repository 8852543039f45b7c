// Package compiler builds the dependency graph of a set of entries.
//
// Each module is read, passed through the loader pipeline, parsed, and has
// its require calls resolved and rewritten to canonical ids before its newly
// discovered dependencies are built depth-first. Modules are shared between
// entries: a module reached from a second entry is not built again, the entry
// is added to its owners instead.
package compiler

import (
	"context"
	"fmt"
	"path"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/chenwangji/minipack/pkg/builderr"
	"github.com/chenwangji/minipack/pkg/loader"
	"github.com/chenwangji/minipack/pkg/resolve"
	"github.com/chenwangji/minipack/pkg/syntax"
)

// CyclePolicy decides what a require of a module still under construction
// does.
type CyclePolicy string

const (
	// CycleLazy records the edge and leaves it to the runtime module cache,
	// which hands out the partially initialized exports.
	CycleLazy CyclePolicy = "lazy"
	// CycleError fails the build.
	CycleError CyclePolicy = "error"
)

// ParseCyclePolicy accepts "", "lazy" and "error".
func ParseCyclePolicy(s string) (CyclePolicy, error) {
	switch CyclePolicy(s) {
	case "", CycleLazy:
		return CycleLazy, nil
	case CycleError:
		return CycleError, nil
	}
	return "", fmt.Errorf("unknown cycle policy %q (want %q or %q)", s, CycleLazy, CycleError)
}

type Options struct {
	// Root is the absolute project directory ids are relative to.
	Root       string
	Extensions []string
	Pipeline   *loader.Pipeline
	FS         afero.Fs
	Cycles     CyclePolicy
	Log        logr.Logger
}

type Builder struct {
	opts     Options
	resolver *resolve.Resolver
}

func NewBuilder(opts Options) *Builder {
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.Cycles == "" {
		opts.Cycles = CycleLazy
	}
	if opts.Log.GetSink() == nil {
		opts.Log = logr.Discard()
	}
	opts.Root = resolve.ToSlash(opts.Root)
	return &Builder{
		opts:     opts,
		resolver: &resolve.Resolver{FS: opts.FS, Extensions: opts.Extensions},
	}
}

// BuildEntry builds the graph below entry and records the entry module in
// the context. A file that is already part of the graph is reused, so every
// id maps to a single Module.
func (b *Builder) BuildEntry(ctx context.Context, bc *BuildContext, entry resolve.Entry) (*Module, error) {
	id := resolve.ModuleID(b.opts.Root, resolve.ToSlash(entry.Path))
	if m := bc.shared(id); m != nil {
		// already built as a module of an earlier entry
		bc.own(id, entry.Name)
		bc.entries = append(bc.entries, m)
		return m, nil
	}
	m, err := b.Build(ctx, bc, entry.Name, entry.Path)
	if err != nil {
		return nil, err
	}
	bc.entries = append(bc.entries, m)
	return m, nil
}

// Build builds the module at modulePath on behalf of entryName, then every
// dependency it discovered. The returned module is not added to the global
// set; that is left to the caller.
func (b *Builder) Build(ctx context.Context, bc *BuildContext, entryName, modulePath string) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	modulePath = resolve.ToSlash(modulePath)
	id := resolve.ModuleID(b.opts.Root, modulePath)
	log := b.opts.Log.WithValues("entry", entryName, "module", id)

	bc.inProgress[id] = true
	defer delete(bc.inProgress, id)

	raw, err := afero.ReadFile(b.opts.FS, modulePath)
	if err != nil {
		return nil, builderr.IO(modulePath, errors.Wrap(err, "read module"))
	}
	source, err := b.opts.Pipeline.Apply(modulePath, string(raw))
	if err != nil {
		return nil, builderr.Transform(id, err)
	}
	if err := syntax.Check(source); err != nil {
		return nil, builderr.Parse(id, err)
	}
	prog, err := syntax.Parse(source)
	if err != nil {
		return nil, builderr.Parse(id, err)
	}

	m := &Module{ID: id, Path: modulePath, Owners: []string{entryName}}
	dir := path.Dir(modulePath)
	paths := map[string]string{}
	for _, req := range findRequires(prog) {
		if !req.ok {
			return nil, builderr.Resolve(id, req.argText(), ErrUnsupportedRequire)
		}
		target, err := b.resolver.Resolve(dir, req.spec)
		if err != nil {
			return nil, builderr.Resolve(id, req.spec, err)
		}
		depID := resolve.ModuleID(b.opts.Root, target)
		paths[depID] = target
		req.rewrite(depID)
		m.Requires = appendUnique(m.Requires, depID)

		switch {
		case bc.inProgress[depID]:
			if b.opts.Cycles == CycleError {
				return nil, builderr.Cycle(id, req.spec)
			}
			log.V(1).Info("circular require", "target", depID)
		case bc.shared(depID) != nil:
			bc.own(depID, entryName)
		default:
			m.Dependencies = appendUnique(m.Dependencies, depID)
		}
	}
	m.Source = syntax.Print(prog)
	log.V(1).Info("built module", "requires", len(m.Requires), "new", len(m.Dependencies))

	for _, depID := range m.Dependencies {
		if _, ok := bc.modules[depID]; ok {
			// built meanwhile through a sibling
			bc.own(depID, entryName)
			continue
		}
		dep, err := b.Build(ctx, bc, entryName, paths[depID])
		if err != nil {
			return nil, err
		}
		bc.add(dep)
	}
	return m, nil
}
