// File: cmd/minipack/graph.go
// Brief: CLI command wiring and implementation for 'graph'.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/chenwangji/minipack/pkg/minipack"
)

type graphOptions struct {
	compileOptions
	output      string
	concurrency int
	failOnCycle bool
}

// graphEntry is the serialized form of a minipack.Node.
type graphEntry struct {
	ID       string   `json:"id"`
	Requires []string `json:"requires"`
	Digest   string   `json:"digest"`
}

func newGraphCommand(g *globalOptions) *cobra.Command {
	opts := &graphOptions{output: "text", concurrency: 4}
	cmd := &cobra.Command{
		Use:   "graph [key=value...]",
		Short: "List modules in dependency order with their tree digests",
		Long: `Graph compiles every entry without writing and lists each module after the modules it requires.

The digest of a module covers its source and everything below it, so it changes whenever a module it depends on changes. Modules on a circular require are reported separately.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unknown output %q (want text, json or yaml)", opts.output)
			}
			c, err := opts.newCompiler(cmd, g, args, true)
			if err != nil {
				return err
			}
			res, err := c.Run(cmd.Context())
			if err != nil {
				return err
			}
			log, err := g.logger(cmd)
			if err != nil {
				return err
			}
			order, err := res.DependencyOrder(cmd.Context(), opts.concurrency, log.WithName("graph"))
			var unsolved *minipack.UnsolvedError
			if err != nil && !errors.As(err, &unsolved) {
				return err
			}
			if werr := writeGraph(cmd.OutOrStdout(), opts.output, order); werr != nil {
				return werr
			}
			if unsolved != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s circular requires between %s\n", summaryWarn("Warning:"), strings.Join(unsolved.IDs, ", "))
				if opts.failOnCycle {
					return unsolved
				}
			}
			return nil
		},
	}
	opts.addFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.output, "output", opts.output, "Output format: text, json or yaml")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", opts.concurrency, "Number of modules digested in parallel")
	cmd.Flags().BoolVar(&opts.failOnCycle, "fail-on-cycle", false, "Exit with an error when requires form a cycle")
	return cmd
}

func writeGraph(w io.Writer, format string, order []minipack.Node) error {
	entries := make([]graphEntry, 0, len(order))
	for _, n := range order {
		requires := append([]string{}, n.Requires...)
		entries = append(entries, graphEntry{ID: n.ID, Requires: requires, Digest: n.Digest.String()})
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	for _, e := range entries {
		short := strings.TrimPrefix(e.Digest, "sha256:")
		if len(short) > 12 {
			short = short[:12]
		}
		fmt.Fprintf(w, "%s  %s", summaryMuted(short), e.ID)
		if len(e.Requires) > 0 {
			fmt.Fprintf(w, " -> %s", strings.Join(e.Requires, ", "))
		}
		fmt.Fprintln(w)
	}
	return nil
}
