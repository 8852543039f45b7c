// Package linker turns the module graph into bundles. It groups the built
// modules into one chunk per entry, renders each chunk into a self-contained
// script and writes the scripts to the output directory.
//
// Architecture:
// - A chunk holds the entry module plus every module the entry owns.
// - A bundle is a registry of module functions keyed by id, a require
//   function with a module cache, and a call that starts the entry.
package linker

import (
	"strings"

	digest "github.com/opencontainers/go-digest"

	"github.com/chenwangji/minipack/pkg/compiler"
)

// Placeholders recognized in the output filename template.
const (
	NamePlaceholder        = "[name]"
	ContentHashPlaceholder = "[contenthash]"
)

// contentHashLen is the number of hex digits [contenthash] expands to.
const contentHashLen = 8

type Chunk struct {
	Name        string
	EntryModule *compiler.Module
	// Modules holds the other modules owned by Name, in graph insertion order.
	Modules []*compiler.Module
}

// Asset is a rendered bundle.
type Asset struct {
	Name   string
	Source string
}

// AssetName expands the filename template for a chunk whose bundle text is
// source.
func AssetName(template, chunk, source string) string {
	name := strings.ReplaceAll(template, NamePlaceholder, chunk)
	if strings.Contains(name, ContentHashPlaceholder) {
		hash := digest.FromString(source).Encoded()[:contentHashLen]
		name = strings.ReplaceAll(name, ContentHashPlaceholder, hash)
	}
	return name
}

// Link renders every chunk into an asset named after template.
func Link(template string, chunks []*Chunk) []Asset {
	assets := make([]Asset, 0, len(chunks))
	for _, c := range chunks {
		src := Render(c)
		assets = append(assets, Asset{Name: AssetName(template, c.Name, src), Source: src})
	}
	return assets
}
