package minipack

import (
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/chenwangji/minipack/pkg/compiler"
	"github.com/chenwangji/minipack/pkg/linker"
)

// Result is the outcome of a successful run.
type Result struct {
	// Entries holds the entry modules in declaration order.
	Entries []*compiler.Module
	// Modules holds the shared module set in insertion order.
	Modules []*compiler.Module
	Chunks  []*linker.Chunk
	// Files lists the written asset names, empty when writing was skipped.
	Files  []string
	Assets []linker.Asset

	bc *compiler.BuildContext
}

// Asset returns the bundle text of the asset called name.
func (r *Result) Asset(name string) (string, bool) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a.Source, true
		}
	}
	return "", false
}

// Stats is the serializable summary of a run.
type Stats struct {
	Entries []compiler.Object `json:"entries"`
	Modules []compiler.Object `json:"modules"`
	Chunks  []ChunkStats      `json:"chunks"`
	Files   []string          `json:"files"`
}

type ChunkStats struct {
	Name    string   `json:"name"`
	Entry   string   `json:"entry"`
	Modules []string `json:"modules"`
	Asset   string   `json:"asset"`
	Size    int      `json:"size"`
}

// Stats summarizes the result.
func (r *Result) Stats() Stats {
	s := Stats{Files: append([]string{}, r.Files...)}
	for _, o := range r.bc.Objects() {
		if o.Entry {
			s.Entries = append(s.Entries, o)
		} else {
			s.Modules = append(s.Modules, o)
		}
	}
	for i, c := range r.Chunks {
		cs := ChunkStats{Name: c.Name, Entry: c.EntryModule.ID, Modules: []string{}}
		for _, m := range c.Modules {
			cs.Modules = append(cs.Modules, m.ID)
		}
		if i < len(r.Assets) {
			cs.Asset = r.Assets[i].Name
			cs.Size = len(r.Assets[i].Source)
		}
		s.Chunks = append(s.Chunks, cs)
	}
	return s
}

// WriteStats encodes the stats to w as "json" or "yaml".
func (r *Result) WriteStats(w io.Writer, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "", "json":
		data, err = json.MarshalIndent(r.Stats(), "", "  ")
		data = append(data, '\n')
	case "yaml", "yml":
		data, err = yaml.Marshal(r.Stats())
	default:
		return fmt.Errorf("unknown stats format %q (want json or yaml)", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
