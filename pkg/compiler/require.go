package compiler

import (
	"errors"
	"strings"

	"github.com/chenwangji/minipack/pkg/syntax"
)

// RuntimeRequire is the function rewritten require calls invoke inside a
// bundle.
const RuntimeRequire = "__minipack_require__"

// ErrUnsupportedRequire is the cause of a resolve error for a require whose
// argument is not a plain string.
var ErrUnsupportedRequire = errors.New("require argument must be a string literal")

// requireCall is a require(...) found in a module, before rewriting.
type requireCall struct {
	call *syntax.CallExpr
	// spec is the unquoted argument, empty when ok is false.
	spec string
	ok   bool
}

// findRequires collects the calls to the bare identifier require in source
// order. Calls such as a.require(x) and declarations named require are not
// imports.
func findRequires(prog *syntax.Program) []requireCall {
	var calls []requireCall
	syntax.Inspect(prog, func(n syntax.Node) bool {
		call, ok := n.(*syntax.CallExpr)
		if !ok || call.Member || call.Name() != "require" {
			return true
		}
		spec, ok := call.StringArg()
		calls = append(calls, requireCall{call: call, spec: spec, ok: ok})
		return true
	})
	return calls
}

// rewrite points the call at the bundle runtime with the canonical id.
func (r requireCall) rewrite(id string) {
	r.call.ReplaceCallee(RuntimeRequire)
	r.call.ReplaceArgs(syntax.NewString(id))
}

// argText returns the argument list as written, for error messages.
func (r requireCall) argText() string {
	text := strings.TrimSpace(syntax.Print(r.call.Args))
	text = strings.TrimSuffix(strings.TrimPrefix(text, "("), ")")
	return strings.TrimSpace(text)
}
