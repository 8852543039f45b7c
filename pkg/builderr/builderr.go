// Package builderr classifies the failures that abort a compilation run.
//
// Every error surfaced by the compiler pipeline is an *Error carrying one of
// the Kind values below, so callers can tell a bad specifier from a broken
// loader or an unwritable output directory without matching on strings.
package builderr

import (
	"errors"
	"fmt"
)

// Kind names the stage of the pipeline that failed.
type Kind string

const (
	// KindResolve means a require specifier did not match any file.
	KindResolve Kind = "resolve"
	// KindTransform means a loader could not be loaded or returned an error.
	KindTransform Kind = "transform"
	// KindParse means the transformed source is not valid syntax.
	KindParse Kind = "parse"
	// KindIO means a read or write against the filesystem failed.
	KindIO Kind = "io"
	// KindCycle means a require reached a module that is still being built
	// and the run was configured to reject cycles.
	KindCycle Kind = "cycle"
)

// Error is a classified compilation failure.
type Error struct {
	Kind Kind
	// Module is the canonical id of the module being built, if known.
	Module string
	// Specifier is the raw require argument for resolution and cycle errors.
	Specifier string
	// Path is the filesystem path involved for I/O errors.
	Path string
	Err  error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindResolve:
		msg = fmt.Sprintf("cannot resolve %q in %s", e.Specifier, e.Module)
	case KindCycle:
		msg = fmt.Sprintf("circular require of %q in %s", e.Specifier, e.Module)
	case KindTransform:
		msg = fmt.Sprintf("loader failed for %s", e.Module)
	case KindParse:
		msg = fmt.Sprintf("parse %s", e.Module)
	case KindIO:
		if e.Path != "" {
			msg = fmt.Sprintf("io %s", e.Path)
		} else {
			msg = "io"
		}
	default:
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Resolve reports a specifier that could not be matched to a file.
func Resolve(module, specifier string, err error) *Error {
	return &Error{Kind: KindResolve, Module: module, Specifier: specifier, Err: err}
}

// Cycle reports a require that closes a dependency cycle.
func Cycle(module, specifier string) *Error {
	return &Error{Kind: KindCycle, Module: module, Specifier: specifier}
}

// Transform reports a loader failure while processing module.
func Transform(module string, err error) *Error {
	return &Error{Kind: KindTransform, Module: module, Err: err}
}

// Parse reports a syntax error in module.
func Parse(module string, err error) *Error {
	return &Error{Kind: KindParse, Module: module, Err: err}
}

// IO reports a filesystem failure on path.
func IO(path string, err error) *Error {
	return &Error{Kind: KindIO, Path: path, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
