package builderr

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{Resolve("./src/a.js", "./missing", os.ErrNotExist), `cannot resolve "./missing" in ./src/a.js`},
		{Cycle("./src/b.js", "./a"), `circular require of "./a" in ./src/b.js`},
		{Transform("./src/a.js", fmt.Errorf("boom")), "loader failed for ./src/a.js: boom"},
		{Parse("./src/a.js", fmt.Errorf("1:3: unexpected )")), "parse ./src/a.js: 1:3: unexpected )"},
		{IO("/out/main.js", os.ErrPermission), "io /out/main.js"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); !strings.HasPrefix(got, tt.want) {
			t.Errorf("Error() = %q, want prefix %q", got, tt.want)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("build main: %w", Resolve("./main.js", "./x", nil))
	kind, ok := KindOf(err)
	if !ok || kind != KindResolve {
		t.Fatalf("KindOf = %q, %v", kind, ok)
	}
	if !Is(err, KindResolve) || Is(err, KindIO) {
		t.Fatalf("Is mismatch for %v", err)
	}
	if _, ok := KindOf(fmt.Errorf("plain")); ok {
		t.Fatalf("plain error should not classify")
	}
}

func TestUnwrap(t *testing.T) {
	err := IO("/tmp/x", os.ErrNotExist)
	if !os.IsNotExist(err.Unwrap()) {
		t.Fatalf("expected wrapped not-exist, got %v", err.Unwrap())
	}
}
