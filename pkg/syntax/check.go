package syntax

import (
	"errors"
	"fmt"
	"strings"

	jsparser "github.com/dop251/goja/parser"
)

// checkPrefix opens the function a module body runs in. It stays on the
// first line so that error lines match the module source.
const checkPrefix = "(function (module, exports, require) {"

// Check reports the first grammar error in src, read as the body of a
// CommonJS module function. Parse only balances brackets; Check rejects
// everything else an engine would refuse to load, such as
// `module.exports = ;`. Positions are 1:1 relative to src.
func Check(src string) error {
	if strings.HasPrefix(src, "#!") {
		src = "//" + src[2:]
	}
	_, err := jsparser.ParseFile(nil, "", checkPrefix+src+"\n})", 0)
	if err == nil {
		return nil
	}
	var list jsparser.ErrorList
	if !errors.As(err, &list) || len(list) == 0 {
		return err
	}
	first := list[0]
	line, col := first.Position.Line, first.Position.Column
	if line == 1 {
		col -= len(checkPrefix)
		if col < 1 {
			col = 1
		}
	}
	return fmt.Errorf("%d:%d: %s", line, col, first.Message)
}
