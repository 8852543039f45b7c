package minipack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/chenwangji/minipack/pkg/builderr"
	"github.com/chenwangji/minipack/pkg/graph"
	"github.com/chenwangji/minipack/pkg/hooks"
	"github.com/chenwangji/minipack/pkg/loader"
	"github.com/chenwangji/minipack/pkg/resolve"
)

var exampleFiles = map[string]string{
	"/proj/src/entry1.js":  "const depModule = require('./module');\nresult = 'entry1 ' + depModule;\n",
	"/proj/src/entry2.js":  "const depModule = require('./module');\nresult = 'entry2 ' + depModule;\n",
	"/proj/src/module.js":  "const name = 'module';\nmodule.exports = name + require('./shared').suffix;\n",
	"/proj/src/shared.ts":  "exports.suffix = '!';\n",
	"/proj/loaders/tag.js": "module.exports = function (source) { return source + '\\n// tagged' }\n",
}

func newFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, data := range files {
		if err := afero.WriteFile(fs, name, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func exampleOptions(fs afero.Fs) Options {
	return Options{
		Root: "/proj",
		Entries: []resolve.Entry{
			{Name: "main", Path: "./src/entry1.js"},
			{Name: "second", Path: "./src/entry2.js"},
		},
		OutputPath: "build",
		Extensions: []string{".js", ".ts"},
		FS:         fs,
	}
}

func runBundle(t *testing.T, src string) string {
	t.Helper()
	vm := goja.New()
	if _, err := vm.RunString(src); err != nil {
		t.Fatalf("run bundle: %v", err)
	}
	return vm.Get("result").String()
}

func TestRun(t *testing.T) {
	fs := newFS(t, exampleFiles)
	c, err := New(exampleOptions(fs))
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"main.js", "second.js"}, res.Files); diff != "" {
		t.Errorf("files (-want +got):\n%s", diff)
	}
	want := map[string]string{"main.js": "entry1 module!", "second.js": "entry2 module!"}
	for name, out := range want {
		data, err := afero.ReadFile(fs, "/proj/build/"+name)
		if err != nil {
			t.Fatal(err)
		}
		if got := runBundle(t, string(data)); got != out {
			t.Errorf("%s printed %q, want %q", name, got, out)
		}
		if src, ok := res.Asset(name); !ok || src != string(data) {
			t.Errorf("%s: result asset differs from the written file", name)
		}
	}

	var modules []string
	for _, m := range res.Modules {
		modules = append(modules, m.ID+" "+strings.Join(m.Owners, ","))
	}
	if diff := cmp.Diff([]string{"./src/shared.ts main,second", "./src/module.js main,second"}, modules); diff != "" {
		t.Errorf("modules (-want +got):\n%s", diff)
	}
	if len(res.Entries) != 2 || len(res.Chunks) != 2 {
		t.Fatalf("entries=%d chunks=%d", len(res.Entries), len(res.Chunks))
	}
	if c.OutputFile("main.js") != "/proj/build/main.js" {
		t.Errorf("output file = %q", c.OutputFile("main.js"))
	}
}

func TestRunHooks(t *testing.T) {
	fs := newFS(t, exampleFiles)
	var events []string
	written := func() bool {
		ok, _ := afero.Exists(fs, "/proj/build/main.js")
		return ok
	}
	plugin := hooks.PluginFunc(func(r *hooks.Registry) {
		for _, e := range hooks.Events {
			e := e
			r.Tap(e, "recorder", func() {
				events = append(events, string(e)+map[bool]string{true: "+", false: "-"}[written()])
			})
		}
	})
	opts := exampleOptions(fs)
	opts.Plugins = []hooks.Plugin{plugin}
	c, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"run-", "emit-", "done+"}, events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestRunLoaders(t *testing.T) {
	fs := newFS(t, exampleFiles)
	reg := loader.NewRegistry(fs, "/proj")
	tag, err := reg.Lookup("./loaders/tag.js")
	if err != nil {
		t.Fatal(err)
	}
	rule, err := loader.NewRule(`module\.js$`, nil, tag)
	if err != nil {
		t.Fatal(err)
	}
	opts := exampleOptions(fs)
	opts.Pipeline = &loader.Pipeline{Rules: []loader.Rule{rule}}
	opts.SkipWrite = true
	c, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Files) != 0 {
		t.Errorf("files = %v, want none with SkipWrite", res.Files)
	}
	if ok, _ := afero.DirExists(fs, "/proj/build"); ok {
		t.Error("output directory created with SkipWrite")
	}
	src, _ := res.Asset("main.js")
	if !strings.Contains(src, "// tagged\n}") {
		t.Errorf("loader output missing from bundle:\n%s", src)
	}
}

func TestRunMissingFileWritesNothing(t *testing.T) {
	files := map[string]string{}
	for k, v := range exampleFiles {
		files[k] = v
	}
	files["/proj/src/entry2.js"] = "require('./x')"
	fs := newFS(t, files)
	c, err := New(exampleOptions(fs))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Run(context.Background())
	var be *builderr.Error
	if !errors.As(err, &be) || be.Kind != builderr.KindResolve {
		t.Fatalf("expected resolve error, got %v", err)
	}
	if be.Specifier != "./x" || be.Module != "./src/entry2.js" {
		t.Errorf("error = %v", be)
	}
	if ok, _ := afero.Exists(fs, "/proj/build/main.js"); ok {
		t.Error("an asset was written before the error")
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		entries []resolve.Entry
		want    string
	}{
		{"none", nil, "no entry"},
		{"unnamed", []resolve.Entry{{Path: "a.js"}}, "has no name"},
		{"no path", []resolve.Entry{{Name: "main"}}, "has no path"},
		{"duplicate", []resolve.Entry{{Name: "a", Path: "a.js"}, {Name: "a", Path: "b.js"}}, "duplicate entry"},
	}
	for _, tt := range tests {
		_, err := New(Options{Root: "/proj", Entries: tt.entries})
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: got %v, want %q", tt.name, err, tt.want)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	c, err := New(Options{Root: "/proj/", Entries: []resolve.Entry{{Name: "main", Path: "a.js"}}})
	if err != nil {
		t.Fatal(err)
	}
	opts := c.Options()
	if opts.OutputPath != "/proj/dist" || opts.Filename != "[name].js" || len(opts.Extensions) != 1 {
		t.Errorf("options = %+v", opts)
	}
}

func TestRunConflictingAssetNames(t *testing.T) {
	opts := exampleOptions(newFS(t, exampleFiles))
	opts.Filename = "bundle.js"
	c, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Run(context.Background())
	if !builderr.Is(err, builderr.KindIO) || !errors.Is(err, ErrAssetConflict) {
		t.Fatalf("expected asset conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), `chunks "main" and "second" both emit bundle.js`) {
		t.Errorf("message = %q", err.Error())
	}
}

func TestWriteStats(t *testing.T) {
	c, err := New(exampleOptions(newFS(t, exampleFiles)))
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := res.WriteStats(&buf, "json"); err != nil {
		t.Fatal(err)
	}
	var s Stats
	if err := json.Unmarshal(buf.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if len(s.Entries) != 2 || len(s.Modules) != 2 || len(s.Chunks) != 2 {
		t.Fatalf("stats = %+v", s)
	}
	if diff := cmp.Diff([]string{"./src/shared.ts", "./src/module.js"}, s.Chunks[1].Modules); diff != "" {
		t.Errorf("second chunk modules (-want +got):\n%s", diff)
	}
	if s.Chunks[0].Asset != "main.js" || s.Modules[1].Requires[0] != "./src/shared.ts" {
		t.Errorf("stats = %+v", s)
	}

	buf.Reset()
	if err := res.WriteStats(&buf, "yaml"); err != nil {
		t.Fatal(err)
	}
	var fromYAML Stats
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(s, fromYAML); diff != "" {
		t.Errorf("yaml stats differ from json (-json +yaml):\n%s", diff)
	}

	if err := res.WriteStats(&buf, "toml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDependencyOrder(t *testing.T) {
	c, err := New(exampleOptions(newFS(t, exampleFiles)))
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	order, err := res.DependencyOrder(context.Background(), 1, logr.Discard())
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, n := range order {
		got = append(got, n.ID)
	}
	want := []string{"./src/shared.ts", "./src/module.js", "./src/entry1.js", "./src/entry2.js"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
	if order[2].Digest == order[3].Digest {
		t.Error("entries with different sources share a digest")
	}
}

func TestRunEntryRequiredByEntry(t *testing.T) {
	fs := newFS(t, map[string]string{
		"/proj/a.js": "exports.name = 'a';\nrequire('./b');\nresult = 'main';\n",
		"/proj/b.js": "exports.a = require('./a').name;\n",
		"/proj/s.js": "result = require('./b').a;\n",
	})
	c, err := New(Options{
		Root:      "/proj",
		Entries:   []resolve.Entry{{Name: "main", Path: "a.js"}, {Name: "second", Path: "s.js"}},
		FS:        fs,
		SkipWrite: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]string{"main.js": "main", "second.js": "a"} {
		src, ok := res.Asset(name)
		if !ok {
			t.Fatalf("%s not rendered", name)
		}
		if got := runBundle(t, src); got != want {
			t.Errorf("%s result = %q, want %q", name, got, want)
		}
	}

	order, err := res.DependencyOrder(context.Background(), 1, logr.Discard())
	var ue *UnsolvedError
	if !errors.As(err, &ue) {
		t.Fatalf("expected unsolved error, got %v", err)
	}
	if diff := cmp.Diff([]string{"./a.js", "./b.js", "./s.js"}, ue.IDs); diff != "" {
		t.Errorf("unsolved (-want +got):\n%s", diff)
	}
	if len(order) != 0 {
		t.Errorf("order = %+v", order)
	}
}

func TestDependencyOrderCycle(t *testing.T) {
	fs := newFS(t, map[string]string{
		"/proj/a.js": "require('./b')",
		"/proj/b.js": "require('./a'); require('./c')",
		"/proj/c.js": "",
	})
	c, err := New(Options{Root: "/proj", Entries: []resolve.Entry{{Name: "main", Path: "a.js"}}, FS: fs, SkipWrite: true})
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	order, err := res.DependencyOrder(context.Background(), 2, logr.Discard())
	var ue *UnsolvedError
	if !errors.As(err, &ue) || !errors.Is(err, graph.ErrUnsolvable) {
		t.Fatalf("expected unsolved error, got %v", err)
	}
	if diff := cmp.Diff([]string{"./a.js", "./b.js"}, ue.IDs); diff != "" {
		t.Errorf("unsolved (-want +got):\n%s", diff)
	}
	if len(order) != 1 || order[0].ID != "./c.js" {
		t.Errorf("order = %+v", order)
	}
}
