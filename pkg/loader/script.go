package loader

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Script is a loader written in JavaScript. The file assigns a function to
// module.exports; the function receives the source and returns the new
// source:
//
//	module.exports = function (source) {
//	  return source.replace('foo', 'bar')
//	}
//
// The script is loaded on first use, so a missing or broken loader fails the
// build that needs it.
type Script struct {
	fs   afero.Fs
	path string

	vm *goja.Runtime
	fn goja.Callable
}

// NewScript returns a loader backed by the script at path.
func NewScript(fs afero.Fs, path string) *Script {
	return &Script{fs: fs, path: path}
}

func (s *Script) String() string { return s.path }

func (s *Script) load() error {
	if s.fn != nil {
		return nil
	}
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return errors.Wrapf(err, "load loader %s", s.path)
	}
	vm := goja.New()
	module := vm.NewObject()
	exports := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return err
	}
	wrapper, err := vm.RunScript(s.path, "(function (module, exports) {\n"+string(data)+"\n})")
	if err != nil {
		return errors.Wrapf(err, "load loader %s", s.path)
	}
	init, ok := goja.AssertFunction(wrapper)
	if !ok {
		return fmt.Errorf("load loader %s: wrapper is not a function", s.path)
	}
	if _, err := init(goja.Undefined(), module, exports); err != nil {
		return errors.Wrapf(err, "load loader %s", s.path)
	}
	fn, ok := goja.AssertFunction(module.Get("exports"))
	if !ok {
		return fmt.Errorf("load loader %s: module.exports is not a function", s.path)
	}
	s.vm = vm
	s.fn = fn
	return nil
}

// Transform calls the exported function with source.
func (s *Script) Transform(source string) (string, error) {
	if err := s.load(); err != nil {
		return "", err
	}
	out, err := s.fn(goja.Undefined(), s.vm.ToValue(source))
	if err != nil {
		return "", err
	}
	if goja.IsUndefined(out) || goja.IsNull(out) {
		return "", fmt.Errorf("loader %s returned %s", s.path, out)
	}
	return out.String(), nil
}
