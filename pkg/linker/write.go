package linker

import (
	"path"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/chenwangji/minipack/pkg/builderr"
	"github.com/chenwangji/minipack/pkg/compiler"
)

// Render returns the bundle text of c. The entry module is registered first
// and required at the end.
func Render(c *Chunk) string {
	var b strings.Builder
	b.WriteString(header)
	writeModule(&b, c.EntryModule)
	for _, m := range c.Modules {
		if m.ID == c.EntryModule.ID {
			continue
		}
		writeModule(&b, m)
	}
	b.WriteString(runtime)
	b.WriteString(compiler.RuntimeRequire + "(" + strconv.Quote(c.EntryModule.ID) + ");\n")
	b.WriteString(footer)
	return b.String()
}

func writeModule(b *strings.Builder, m *compiler.Module) {
	b.WriteString(strconv.Quote(m.ID))
	b.WriteString(": function(module, exports, " + compiler.RuntimeRequire + ") {\n")
	b.WriteString(m.Source)
	b.WriteString("\n},\n")
}

// Emit writes assets into dir, creating it if needed, and returns the
// written file names in order. Files written before a failure are left in
// place.
func Emit(fs afero.Fs, dir string, assets []Asset, log logr.Logger) ([]string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, builderr.IO(dir, errors.Wrap(err, "create output directory"))
	}
	files := make([]string, 0, len(assets))
	for _, a := range assets {
		p := path.Join(dir, a.Name)
		if d := path.Dir(p); d != dir {
			if err := fs.MkdirAll(d, 0o755); err != nil {
				return files, builderr.IO(d, errors.Wrap(err, "create output directory"))
			}
		}
		if err := afero.WriteFile(fs, p, []byte(a.Source), 0o644); err != nil {
			return files, builderr.IO(p, errors.Wrap(err, "write asset"))
		}
		log.V(1).Info("wrote asset", "file", p, "bytes", len(a.Source))
		files = append(files, a.Name)
	}
	return files, nil
}
