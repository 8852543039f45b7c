package compiler

import (
	digest "github.com/opencontainers/go-digest"
)

// Object is the stats record of a built module.
type Object struct {
	ID       string        `json:"id"`
	Path     string        `json:"path"`
	Digest   digest.Digest `json:"digest"`
	Size     int           `json:"size"`
	Owners   []string      `json:"owners"`
	Requires []string      `json:"requires,omitempty"`
	Entry    bool          `json:"entry,omitempty"`
}

// NewObject summarizes m. The digest covers the rewritten source.
func NewObject(m *Module) Object {
	return Object{
		ID:       m.ID,
		Path:     m.Path,
		Digest:   digest.FromString(m.Source),
		Size:     len(m.Source),
		Owners:   append([]string(nil), m.Owners...),
		Requires: append([]string(nil), m.Requires...),
	}
}

// Objects returns the stats records of every entry module followed by the
// global module set.
func (c *BuildContext) Objects() []Object {
	objs := make([]Object, 0, len(c.entries)+len(c.order))
	for _, m := range c.entries {
		o := NewObject(m)
		o.Entry = true
		objs = append(objs, o)
	}
	for _, m := range c.order {
		objs = append(objs, NewObject(m))
	}
	return objs
}
