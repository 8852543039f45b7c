package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/chenwangji/minipack/pkg/builderr"
	"github.com/chenwangji/minipack/pkg/minipack"
)

func disableColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

// writeProject lays out files under a temporary directory and returns it.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Version:") || !strings.Contains(out, "GoVersion:") {
		t.Fatalf("expected version header, got: %q", out)
	}

	out, _, err = execute(t, "version", "--short")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Contains(out, ":") || strings.TrimSpace(out) == "" {
		t.Fatalf("expected bare version, got: %q", out)
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"nil", nil, nil},
		{"plain", errors.New("boom"), []string{"Error: boom\n"}},
		{
			"resolve",
			fmt.Errorf("build: %w", builderr.Resolve("./a.js", "./b", errors.New("not found"))),
			[]string{"Error: build:", "Hint: check the path and resolve.extensions"},
		},
		{"parse", builderr.Parse("./a.css", errors.New("unexpected {")), []string{"Hint: fix the syntax error, or add a module.rules entry"}},
		{"cycle", builderr.Cycle("./a.js", "./b"), []string{"Hint: set cycles: lazy"}},
		{
			"asset conflict",
			builderr.IO("/out/bundle.js", fmt.Errorf("%w: chunks \"main\" and \"second\" both emit bundle.js", minipack.ErrAssetConflict)),
			[]string{"Error: io /out/bundle.js: asset name conflict", "Hint: put [name] or [contenthash] in output.filename"},
		},
		{"canceled", context.Canceled, []string{"Hint: the build was interrupted"}},
		{"unsolved", &minipack.UnsolvedError{IDs: []string{"./a.js"}}, []string{"circular requires between ./a.js", "Hint: run with cycles: lazy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handleError(&buf, tt.err)
			if tt.want == nil {
				if buf.Len() != 0 {
					t.Fatalf("expected no output, got %q", buf.String())
				}
				return
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output %q does not contain %q", buf.String(), want)
				}
			}
		})
	}
}

func TestEnvironmentOverridesFlags(t *testing.T) {
	disableColor(t)
	dir := writeProject(t, map[string]string{
		"minipack.yaml": "entry: ./src/index.js\n",
		"src/index.js":  "result = 1;\n",
	})
	t.Setenv("MINIPACK_CONFIG", filepath.Join(dir, "minipack.yaml"))
	t.Setenv("MINIPACK_OUTPUT_PATH", "from-env")

	if _, _, err := execute(t, "build"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "from-env", "main.js")); err != nil {
		t.Fatalf("expected bundle in the env output path: %v", err)
	}
}
