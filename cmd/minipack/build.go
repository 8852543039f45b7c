// File: cmd/minipack/build.go
// Brief: CLI command wiring and implementation for 'build'.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/chenwangji/minipack/internal/config"
	"github.com/chenwangji/minipack/pkg/loader"
	"github.com/chenwangji/minipack/pkg/minipack"
)

var (
	summaryAsset = color.New(color.FgGreen, color.Bold).SprintFunc()
	summaryMuted = color.New(color.Faint).SprintFunc()
	summaryWarn  = color.New(color.FgYellow).SprintFunc()
)

// compileOptions are the flags shared by every command that compiles.
type compileOptions struct {
	context    string
	entries    []string
	outputPath string
	filename   string
	extensions []string
	cycles     string
	noColor    bool
}

func (o *compileOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.context, "context", "", "Directory entries and module ids are relative to")
	fs.StringArrayVar(&o.entries, "entry", nil, "Entry as name=path or a single path (repeatable; replaces the configured entries)")
	fs.StringVarP(&o.outputPath, "output-path", "o", "", "Directory the bundles are written to")
	fs.StringVar(&o.filename, "filename", "", "Bundle name template, supports [name] and [contenthash]")
	fs.StringSliceVar(&o.extensions, "extensions", nil, "Extensions tried in order for extensionless requires")
	fs.StringVar(&o.cycles, "cycles", "", "Circular require handling: lazy or error")
	fs.BoolVar(&o.noColor, "no-color", false, "Disable colored output")
}

// loadConfig reads the configuration file, applies the flags and then the
// positional key=value overrides, and validates the result.
func (o *compileOptions) loadConfig(g *globalOptions, args []string) (*config.Config, error) {
	cfg, err := readConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if len(o.entries) > 0 {
		cfg.Entry = nil
		for _, e := range o.entries {
			if name, path, ok := strings.Cut(e, "="); ok {
				err = cfg.Set("entry."+name, path)
			} else {
				err = cfg.Set("entry", e)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	for key, value := range map[string]string{
		"context":         o.context,
		"output.path":     o.outputPath,
		"output.filename": o.filename,
		"cycles":          o.cycles,
	} {
		if value == "" {
			continue
		}
		if err := cfg.Set(key, value); err != nil {
			return nil, err
		}
	}
	if len(o.extensions) > 0 {
		cfg.Resolve.Extensions = append([]string(nil), o.extensions...)
	}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q: expected key=value", arg)
		}
		if err := cfg.Set(key, value); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.DefaultFile); err == nil {
		return config.Load(config.DefaultFile)
	}
	return &config.Config{}, nil
}

// newCompiler builds a compiler from the configuration and flags.
func (o *compileOptions) newCompiler(cmd *cobra.Command, g *globalOptions, args []string, skipWrite bool) (*minipack.Compiler, error) {
	if o.noColor || !isTerminalWriter(cmd.OutOrStdout()) {
		color.NoColor = true
	}
	log, err := g.logger(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := o.loadConfig(g, args)
	if err != nil {
		return nil, err
	}
	fs := afero.NewOsFs()
	opts, err := cfg.Options(fs, loader.NewRegistry(fs, cfg.Context), log)
	if err != nil {
		return nil, err
	}
	opts.SkipWrite = skipWrite
	return minipack.New(opts)
}

type buildOptions struct {
	compileOptions
	stats       string
	statsFormat string
	dryRun      bool
}

func newBuildCommand(g *globalOptions) *cobra.Command {
	opts := &buildOptions{statsFormat: "json"}
	cmd := &cobra.Command{
		Use:   "build [key=value...]",
		Short: "Bundle every entry into the output directory",
		Long: `Build follows the require() calls of every entry, applies the configured loaders and writes one bundle per entry.

Positional key=value arguments override single settings of the configuration file, e.g. output.path=./out or entry.admin=./src/admin.js.`,
		Example: `  minipack build
  minipack build --entry main=./src/index.js -o build
  minipack build cycles=error --stats -`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.newCompiler(cmd, g, args, opts.dryRun)
			if err != nil {
				return err
			}
			res, err := c.Run(cmd.Context())
			if err != nil {
				return err
			}
			if opts.stats != "" {
				if err := opts.writeStats(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if opts.stats == "-" {
					return nil
				}
			}
			printSummary(cmd.OutOrStdout(), c, res, opts.dryRun)
			return nil
		},
	}
	opts.addFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.stats, "stats", "", "Write build stats to this file (- for stdout)")
	cmd.Flags().StringVar(&opts.statsFormat, "stats-format", opts.statsFormat, "Stats format: json or yaml")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Render the bundles without writing them")
	return cmd
}

func (o *buildOptions) writeStats(stdout io.Writer, res *minipack.Result) error {
	if o.stats == "-" {
		return res.WriteStats(stdout, o.statsFormat)
	}
	f, err := os.Create(o.stats)
	if err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	if err := res.WriteStats(f, o.statsFormat); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func isTerminalWriter(w io.Writer) bool {
	type fdProvider interface {
		Fd() uintptr
	}
	if v, ok := w.(fdProvider); ok {
		return term.IsTerminal(int(v.Fd()))
	}
	return false
}

func printSummary(w io.Writer, c *minipack.Compiler, res *minipack.Result, dryRun bool) {
	stats := res.Stats()
	for _, chunk := range stats.Chunks {
		target := c.OutputFile(chunk.Asset)
		if dryRun {
			target = summaryWarn("not written")
		}
		fmt.Fprintf(w, "%s  %s  %s\n",
			summaryAsset(chunk.Asset),
			summaryMuted(fmt.Sprintf("%d B, %d modules", chunk.Size, len(chunk.Modules)+1)),
			target,
		)
	}
	fmt.Fprintf(w, "%d entries, %d shared modules\n", len(stats.Entries), len(stats.Modules))
}
