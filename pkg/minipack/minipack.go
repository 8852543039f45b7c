// Package minipack runs a whole compilation: it builds the dependency graph
// of every entry, assembles one chunk per entry, renders the bundles and
// writes them to the output directory, firing the lifecycle hooks along the
// way.
package minipack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"

	"github.com/chenwangji/minipack/pkg/builderr"
	"github.com/chenwangji/minipack/pkg/compiler"
	"github.com/chenwangji/minipack/pkg/hooks"
	"github.com/chenwangji/minipack/pkg/linker"
	"github.com/chenwangji/minipack/pkg/loader"
	"github.com/chenwangji/minipack/pkg/resolve"
)

// DefaultEntryName names the entry of a configuration that gives a single
// path.
const DefaultEntryName = "main"

const (
	DefaultOutputPath = "dist"
	DefaultFilename   = linker.NamePlaceholder + ".js"
)

// ErrAssetConflict is wrapped by the error Run returns when two chunks render
// to the same file name.
var ErrAssetConflict = errors.New("asset name conflict")

// DefaultExtensions are probed when none are configured.
var DefaultExtensions = []string{".js"}

type Options struct {
	// Root is the directory entries and module ids are relative to. It
	// defaults to the working directory.
	Root    string
	Entries []resolve.Entry
	// OutputPath is relative to Root unless absolute.
	OutputPath string
	// Filename is the asset name template, see linker.AssetName.
	Filename   string
	Extensions []string
	Pipeline   *loader.Pipeline
	Plugins    []hooks.Plugin
	Cycles     compiler.CyclePolicy
	FS         afero.Fs
	Log        logr.Logger
	// SkipWrite renders the assets without writing them.
	SkipWrite bool
}

// Compiler runs compilations for one set of options.
type Compiler struct {
	Hooks *hooks.Registry

	opts    Options
	builder *compiler.Builder
}

// New validates opts, fills in defaults and applies the plugins.
func New(opts Options) (*Compiler, error) {
	if len(opts.Entries) == 0 {
		return nil, fmt.Errorf("no entry configured")
	}
	seen := map[string]bool{}
	for _, e := range opts.Entries {
		if e.Name == "" {
			return nil, fmt.Errorf("entry %q has no name", e.Path)
		}
		if e.Path == "" {
			return nil, fmt.Errorf("entry %q has no path", e.Name)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate entry %q", e.Name)
		}
		seen[e.Name] = true
	}
	if opts.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		opts.Root = wd
	}
	opts.Root = resolve.ToSlash(opts.Root)
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath
	}
	opts.OutputPath = resolve.Abs(opts.Root, opts.OutputPath)
	if opts.Filename == "" {
		opts.Filename = DefaultFilename
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.Log.GetSink() == nil {
		opts.Log = logr.Discard()
	}
	if opts.Pipeline != nil && opts.Pipeline.Root == "" {
		opts.Pipeline.Root = opts.Root
	}

	c := &Compiler{
		Hooks: hooks.NewRegistry(),
		opts:  opts,
		builder: compiler.NewBuilder(compiler.Options{
			Root:       opts.Root,
			Extensions: opts.Extensions,
			Pipeline:   opts.Pipeline,
			FS:         opts.FS,
			Cycles:     opts.Cycles,
			Log:        opts.Log.WithName("compiler"),
		}),
	}
	c.Hooks.Apply(opts.Plugins...)
	return c, nil
}

// Options returns the options after defaults were applied.
func (c *Compiler) Options() Options {
	return c.opts
}

// Run compiles every entry and writes one asset per entry. The first error
// aborts the run; assets written before a write failure stay on disk.
func (c *Compiler) Run(ctx context.Context) (*Result, error) {
	log := c.opts.Log
	if err := c.Hooks.Call(hooks.Run); err != nil {
		return nil, err
	}

	bc := compiler.NewBuildContext()
	res := &Result{bc: bc}
	for _, e := range resolve.Entries(c.opts.Root, c.opts.Entries) {
		log.V(1).Info("building entry", "entry", e.Name, "path", e.Path)
		m, err := c.builder.BuildEntry(ctx, bc, e)
		if err != nil {
			return nil, err
		}
		res.Chunks = append(res.Chunks, linker.BuildChunk(e.Name, m, bc.Modules()))
	}
	res.Entries = bc.Entries()
	res.Modules = bc.Modules()

	res.Assets = linker.Link(c.opts.Filename, res.Chunks)
	names := map[string]string{}
	for i, a := range res.Assets {
		if other, ok := names[a.Name]; ok {
			return nil, builderr.IO(c.OutputFile(a.Name), fmt.Errorf("%w: chunks %q and %q both emit %s; use %s in the filename",
				ErrAssetConflict, other, res.Chunks[i].Name, a.Name, linker.NamePlaceholder))
		}
		names[a.Name] = res.Chunks[i].Name
	}
	if err := c.Hooks.Call(hooks.Emit); err != nil {
		return nil, err
	}

	if !c.opts.SkipWrite {
		files, err := linker.Emit(c.opts.FS, c.opts.OutputPath, res.Assets, log.WithName("emit"))
		if err != nil {
			return nil, err
		}
		res.Files = files
	}
	log.V(1).Info("compilation finished", "entries", len(res.Entries), "modules", len(res.Modules), "files", len(res.Files))

	if err := c.Hooks.Call(hooks.Done); err != nil {
		return nil, err
	}
	return res, nil
}

// OutputFile returns the path an asset is written to.
func (c *Compiler) OutputFile(name string) string {
	return path.Join(c.opts.OutputPath, name)
}
