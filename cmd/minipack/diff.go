// File: cmd/minipack/diff.go
// Brief: CLI command wiring and implementation for 'diff'.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	diffAdded   = color.New(color.FgGreen).SprintFunc()
	diffRemoved = color.New(color.FgRed).SprintFunc()
	diffHeader  = color.New(color.Bold).SprintFunc()
)

// errAssetsDiffer is returned by diff --exit-code when a bundle would change.
type errAssetsDiffer struct{ n int }

func (e errAssetsDiffer) Error() string {
	return fmt.Sprintf("%d bundle(s) differ from the output directory", e.n)
}

func newDiffCommand(g *globalOptions) *cobra.Command {
	opts := &compileOptions{}
	var exitCode bool
	cmd := &cobra.Command{
		Use:           "diff [key=value...]",
		Short:         "Show how a build would change the bundles on disk",
		Long:          "Diff compiles every entry without writing and prints a unified diff against the bundles currently in the output directory.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.newCompiler(cmd, g, args, true)
			if err != nil {
				return err
			}
			res, err := c.Run(cmd.Context())
			if err != nil {
				return err
			}
			fs := c.Options().FS
			changed := 0
			for _, a := range res.Assets {
				target := c.OutputFile(a.Name)
				before, err := readExisting(fs, target)
				if err != nil {
					return err
				}
				if before == a.Source {
					continue
				}
				changed++
				from := target
				if _, statErr := fs.Stat(target); os.IsNotExist(statErr) {
					from = "/dev/null"
				}
				writeDiff(cmd.OutOrStdout(), renderUnifiedDiff(before, a.Source, from, target))
			}
			if changed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes.")
				return nil
			}
			if exitCode {
				return errAssetsDiffer{n: changed}
			}
			return nil
		},
	}
	opts.addFlags(cmd.Flags())
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Fail when any bundle would change")
	return cmd
}

func readExisting(fs afero.Fs, path string) (string, error) {
	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func renderUnifiedDiff(before, after, fromFile, toFile string) string {
	before = strings.TrimRight(before, "\n")
	after = strings.TrimRight(after, "\n")
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before + "\n"),
		B:        difflib.SplitLines(after + "\n"),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  3,
	}
	if before == "" {
		ud.A = nil
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return ""
	}
	return text
}

func writeDiff(w io.Writer, text string) {
	for _, line := range strings.SplitAfter(text, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"), strings.HasPrefix(line, "@@"):
			io.WriteString(w, diffHeader(line))
		case strings.HasPrefix(line, "+"):
			io.WriteString(w, diffAdded(line))
		case strings.HasPrefix(line, "-"):
			io.WriteString(w, diffRemoved(line))
		default:
			io.WriteString(w, line)
		}
	}
}
