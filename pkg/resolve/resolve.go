// Package resolve turns entry paths and require specifiers into absolute,
// slash-separated file paths and canonical module ids.
package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/afero"
)

// ErrNotFound is returned when no candidate file exists for a specifier.
var ErrNotFound = errors.New("no such module")

// Entry is a named root of the dependency graph.
type Entry struct {
	Name string
	Path string
}

// EntriesFromMap orders a name->path map by name.
func EntriesFromMap(m map[string]string) []Entry {
	entries := make([]Entry, 0, len(m))
	for name, p := range m {
		entries = append(entries, Entry{Name: name, Path: p})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// ToSlash normalizes separators to '/' and cleans the path. Backslashes are
// treated as separators on every platform.
func ToSlash(p string) string {
	return path.Clean(strings.ReplaceAll(filepath.ToSlash(p), "\\", "/"))
}

// Entries makes every entry path absolute against root. Absolute paths pass
// through; nothing is checked for existence here.
func Entries(root string, entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{Name: e.Name, Path: Abs(root, e.Path)})
	}
	return out
}

// Abs makes p absolute against root and normalizes it.
func Abs(root, p string) string {
	p = ToSlash(p)
	if isAbs(p) {
		return p
	}
	return path.Join(ToSlash(root), p)
}

// ModuleID returns the canonical id of abs: its path relative to root,
// always written as ./relative/path.
func ModuleID(root, abs string) string {
	rel, err := filepath.Rel(filepath.FromSlash(root), filepath.FromSlash(abs))
	if err != nil {
		// different volumes; the absolute path is still unique
		rel = abs
	}
	return "./" + filepath.ToSlash(rel)
}

// IsRelative reports whether spec is a relative or absolute path specifier
// rather than a package name.
func IsRelative(spec string) bool {
	return spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/")
}

// Resolver probes a filesystem for the file a specifier refers to.
type Resolver struct {
	FS         afero.Fs
	Extensions []string
}

// Resolve implements a basic node resolution algorithm. Relative specifiers
// are joined to dir and probed as given, then with each extension in order,
// then as a directory. Package names are looked up in node_modules
// directories from dir upwards.
func (r *Resolver) Resolve(dir, spec string) (string, error) {
	if IsRelative(spec) {
		return r.resolvePath(path.Join(dir, spec))
	}
	for d := dir; ; d = path.Dir(d) {
		if path.Base(d) != "node_modules" {
			if p, err := r.resolvePath(path.Join(d, "node_modules", spec)); err == nil {
				return p, nil
			} else if !errors.Is(err, ErrNotFound) {
				return "", err
			}
		}
		if d == "/" || d == "." || path.Dir(d) == d {
			break
		}
	}
	return "", ErrNotFound
}

func (r *Resolver) resolvePath(target string) (string, error) {
	if p, ok, err := TryExtensions(r.FS, target, r.Extensions); err != nil || ok {
		return p, err
	}
	st, err := r.FS.Stat(target)
	if err != nil || !st.IsDir() {
		return "", ErrNotFound
	}
	main, err := r.packageMain(target)
	if err != nil {
		return "", err
	}
	if main != "" {
		if p, ok, err := TryExtensions(r.FS, path.Join(target, main), r.Extensions); err != nil || ok {
			return p, err
		}
		if p, ok, err := TryExtensions(r.FS, path.Join(target, main, "index"), r.Extensions); err != nil || ok {
			return p, err
		}
	}
	if p, ok, err := TryExtensions(r.FS, path.Join(target, "index"), r.Extensions); err != nil || ok {
		return p, err
	}
	return "", ErrNotFound
}

func (r *Resolver) packageMain(dir string) (string, error) {
	data, err := afero.ReadFile(r.FS, path.Join(dir, "package.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	m := struct {
		Main string `json:"main"`
	}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("%s: %w", path.Join(dir, "package.json"), err)
	}
	return m.Main, nil
}

// TryExtensions checks target as given and then target+ext for each
// extension in order. The first regular file wins.
func TryExtensions(fs afero.Fs, target string, extensions []string) (string, bool, error) {
	candidates := append([]string{""}, extensions...)
	for _, ext := range candidates {
		p := target + ext
		st, err := fs.Stat(p)
		if err != nil {
			if os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) {
				continue
			}
			return "", false, err
		}
		if st.Mode().IsRegular() {
			return p, true, nil
		}
	}
	return "", false, nil
}

func isAbs(p string) bool {
	return path.IsAbs(p) || filepath.IsAbs(filepath.FromSlash(p))
}
