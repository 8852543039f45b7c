// Package config loads minipack.yaml and turns it into compiler options.
//
// A configuration looks like:
//
//	entry:
//	  main: ./src/entry1.js
//	  second: ./src/entry2.js
//	context: .
//	output:
//	  path: ./build
//	  filename: "[name].js"
//	resolve:
//	  extensions: [".js", ".ts"]
//	module:
//	  rules:
//	    - test: \.js$
//	      exclude: [node_modules]
//	      use: [./loaders/loader-1.js, ./loaders/loader-2.js]
//	plugins:
//	  - timing
//	  - name: announce
//	    options: {message: Plugin A}
//	cycles: lazy
//
// Relative paths in entry, output.path and loader names are resolved against
// context; a relative context is resolved against the directory of the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-logr/logr"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/chenwangji/minipack/pkg/compiler"
	"github.com/chenwangji/minipack/pkg/hooks"
	"github.com/chenwangji/minipack/pkg/loader"
	"github.com/chenwangji/minipack/pkg/minipack"
	"github.com/chenwangji/minipack/pkg/plugins"
	"github.com/chenwangji/minipack/pkg/resolve"
)

// DefaultFile is looked up in the working directory when no file is named.
const DefaultFile = "minipack.yaml"

type Config struct {
	Entry   Entries        `yaml:"entry"`
	Context string         `yaml:"context,omitempty"`
	Output  OutputConfig   `yaml:"output,omitempty"`
	Resolve ResolveConfig  `yaml:"resolve,omitempty"`
	Module  ModuleConfig   `yaml:"module,omitempty"`
	Plugins []PluginConfig `yaml:"plugins,omitempty"`
	Cycles  string         `yaml:"cycles,omitempty"`

	// dir is the directory of the file the config was loaded from.
	dir string
}

type OutputConfig struct {
	Path     string `yaml:"path,omitempty"`
	Filename string `yaml:"filename,omitempty"`
}

type ResolveConfig struct {
	Extensions []string `yaml:"extensions,omitempty"`
}

type ModuleConfig struct {
	Rules []RuleConfig `yaml:"rules,omitempty"`
}

// RuleConfig names its transforms with either Loader or Use.
type RuleConfig struct {
	Test    string   `yaml:"test"`
	Loader  string   `yaml:"loader,omitempty"`
	Use     []string `yaml:"use,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// Loaders returns the loader names of the rule in declaration order.
func (r RuleConfig) Loaders() []string {
	if r.Loader != "" {
		return []string{r.Loader}
	}
	return r.Use
}

// PluginConfig is written as a bare name or as a mapping with options.
type PluginConfig struct {
	Name    string            `yaml:"name"`
	Options map[string]string `yaml:"options,omitempty"`
}

func (p *PluginConfig) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		p.Name = n.Value
		return nil
	}
	type plain PluginConfig
	return n.Decode((*plain)(p))
}

// Entries keeps the entries in the order the file lists them. A single path
// is named main.
type Entries []resolve.Entry

func (e *Entries) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*e = Entries{{Name: minipack.DefaultEntryName, Path: n.Value}}
		return nil
	case yaml.MappingNode:
		out := make(Entries, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: entry %q must be a path", v.Line, k.Value)
			}
			out = append(out, resolve.Entry{Name: k.Value, Path: v.Value})
		}
		*e = out
		return nil
	}
	return fmt.Errorf("line %d: entry must be a path or a mapping of names to paths", n.Line)
}

func (e Entries) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, entry := range e {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: entry.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: entry.Path},
		)
	}
	return n, nil
}

// Parse decodes a configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration file at path. A leading ~ is expanded.
func Load(path string) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(expanded)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, err
	}
	cfg.dir = filepath.Dir(abs)
	return cfg, nil
}

// Set overrides a single setting by its dotted key, as in
// output.path=./dist.
func (c *Config) Set(key, value string) error {
	switch key {
	case "entry":
		c.Entry = Entries{{Name: minipack.DefaultEntryName, Path: value}}
	case "context":
		c.Context = value
	case "output.path":
		c.Output.Path = value
	case "output.filename":
		c.Output.Filename = value
	case "resolve.extensions":
		c.Resolve.Extensions = splitList(value)
	case "cycles":
		c.Cycles = value
	default:
		if name := strings.TrimPrefix(key, "entry."); name != key && name != "" {
			c.setEntry(name, value)
			return nil
		}
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func (c *Config) setEntry(name, path string) {
	for i := range c.Entry {
		if c.Entry[i].Name == name {
			c.Entry[i].Path = path
			return
		}
	}
	c.Entry = append(c.Entry, resolve.Entry{Name: name, Path: path})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate fills in defaults, makes paths absolute and checks every setting.
func (c *Config) Validate() error {
	if len(c.Entry) == 0 {
		return fmt.Errorf("entry is required")
	}
	ctxDir, err := c.absolute(c.Context, "")
	if err != nil {
		return errors.Wrap(err, "context")
	}
	c.Context = ctxDir

	if c.Output.Path == "" {
		c.Output.Path = minipack.DefaultOutputPath
	}
	if c.Output.Path, err = c.absolute(c.Output.Path, c.Context); err != nil {
		return errors.Wrap(err, "output.path")
	}
	if c.Output.Filename == "" {
		c.Output.Filename = minipack.DefaultFilename
	}
	if strings.ContainsAny(c.Output.Filename, `\`) || filepath.IsAbs(c.Output.Filename) {
		return fmt.Errorf("output.filename %q must be a relative slash-separated name", c.Output.Filename)
	}

	if len(c.Resolve.Extensions) == 0 {
		c.Resolve.Extensions = append([]string(nil), minipack.DefaultExtensions...)
	}
	for i, ext := range c.Resolve.Extensions {
		if ext == "" {
			return fmt.Errorf("resolve.extensions[%d] is empty", i)
		}
		if !strings.HasPrefix(ext, ".") {
			c.Resolve.Extensions[i] = "." + ext
		}
	}

	for i, e := range c.Entry {
		if e.Name == "" || e.Path == "" {
			return fmt.Errorf("entry %d needs a name and a path", i)
		}
		p, err := homedir.Expand(e.Path)
		if err != nil {
			return err
		}
		c.Entry[i].Path = resolve.Abs(c.Context, p)
	}

	for i, r := range c.Module.Rules {
		if _, err := regexp.Compile(r.Test); err != nil {
			return fmt.Errorf("module.rules[%d].test: %w", i, err)
		}
		if r.Loader != "" && len(r.Use) > 0 {
			return fmt.Errorf("module.rules[%d]: set either loader or use, not both", i)
		}
		if len(r.Loaders()) == 0 {
			return fmt.Errorf("module.rules[%d]: no loader configured", i)
		}
	}

	if _, err := compiler.ParseCyclePolicy(c.Cycles); err != nil {
		return errors.Wrap(err, "cycles")
	}
	return nil
}

// absolute expands ~ and resolves p against base, the config file directory
// or the working directory.
func (c *Config) absolute(p, base string) (string, error) {
	p, err := homedir.Expand(p)
	if err != nil {
		return "", err
	}
	if base == "" {
		base = c.dir
	}
	if base == "" {
		if base, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return resolve.Abs(base, p), nil
}

// Options builds the compiler options of a validated configuration. Loader
// names are looked up in reg, plugins among the built-in ones.
func (c *Config) Options(fs afero.Fs, reg *loader.Registry, log logr.Logger) (minipack.Options, error) {
	pipeline := &loader.Pipeline{Root: c.Context}
	for i, r := range c.Module.Rules {
		var use []loader.Transform
		for _, name := range r.Loaders() {
			t, err := reg.Lookup(name)
			if err != nil {
				return minipack.Options{}, fmt.Errorf("module.rules[%d]: %w", i, err)
			}
			use = append(use, t)
		}
		rule, err := loader.NewRule(r.Test, r.Exclude, use...)
		if err != nil {
			return minipack.Options{}, fmt.Errorf("module.rules[%d]: %w", i, err)
		}
		pipeline.Rules = append(pipeline.Rules, rule)
	}

	var ps []hooks.Plugin
	for _, pc := range c.Plugins {
		p, err := plugins.New(pc.Name, log, pc.Options)
		if err != nil {
			return minipack.Options{}, err
		}
		ps = append(ps, p)
	}

	cycles, err := compiler.ParseCyclePolicy(c.Cycles)
	if err != nil {
		return minipack.Options{}, err
	}
	return minipack.Options{
		Root:       c.Context,
		Entries:    append([]resolve.Entry(nil), c.Entry...),
		OutputPath: c.Output.Path,
		Filename:   c.Output.Filename,
		Extensions: c.Resolve.Extensions,
		Pipeline:   pipeline,
		Plugins:    ps,
		Cycles:     cycles,
		FS:         fs,
		Log:        log,
	}, nil
}
