// File: cmd/minipack/main.go
// Brief: Root command, environment binding and error reporting.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/chenwangji/minipack/internal/config"
	"github.com/chenwangji/minipack/internal/logging"
	"github.com/chenwangji/minipack/internal/version"
	"github.com/chenwangji/minipack/pkg/builderr"
	"github.com/chenwangji/minipack/pkg/graph"
	"github.com/chenwangji/minipack/pkg/minipack"
)

const envPrefix = "MINIPACK"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(os.Stderr, err)
	if err != nil {
		os.Exit(1)
	}
}

// globalOptions holds the persistent flags of the root command.
type globalOptions struct {
	configPath string
	logLevel   string
}

func (g *globalOptions) logger(cmd *cobra.Command) (logr.Logger, error) {
	return logging.New(g.logLevel, cmd.ErrOrStderr())
}

func newRootCommand() *cobra.Command {
	g := &globalOptions{logLevel: "info"}
	cmd := &cobra.Command{
		Use:           "minipack",
		Short:         "Bundle CommonJS modules into one script per entry",
		Long:          "minipack follows the require() graph of each entry, rewrites every require to a module id and writes one self-contained bundle per entry.",
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to the configuration file (default ./"+config.DefaultFile+" when present)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", g.logLevel, "Log level (debug, info, warn, error)")

	buildCmd := newBuildCommand(g)
	diffCmd := newDiffCommand(g)
	graphCmd := newGraphCommand(g)
	cmd.AddCommand(
		buildCmd,
		diffCmd,
		graphCmd,
		newVersionCommand(),
	)
	cmd.Example = `  # Build with ./minipack.yaml
  minipack build

  # Override settings for one run
  minipack build output.path=./out cycles=error

  # Show what a rebuild would change
  minipack diff`
	bindViper(cmd, buildCmd, diffCmd, graphCmd)
	return cmd
}

// bindViper fills flags the user did not set from MINIPACK_* environment
// variables, e.g. MINIPACK_OUTPUT_PATH for --output-path.
func bindViper(commands ...*cobra.Command) {
	if len(commands) == 0 {
		return
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cobra.OnInitialize(func() {
		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				cobra.CheckErr(err)
			}
			if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
				cobra.CheckErr(err)
			}
		}
		for _, cmd := range commands {
			flagSets := []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()}
			for _, fs := range flagSets {
				fs.VisitAll(func(f *pflag.Flag) {
					if f.Changed {
						return
					}
					if !v.IsSet(f.Name) {
						return
					}
					val := fmt.Sprintf("%v", v.Get(f.Name))
					if val != "" && val != f.DefValue {
						_ = f.Value.Set(val)
					}
				})
			}
		}
	})
}

func handleError(w io.Writer, err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	if hint := errorHint(err); hint != "" {
		message = fmt.Sprintf("%s\nHint: %s", message, hint)
	}
	fmt.Fprintf(w, "Error: %s\n", message)
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "the build was interrupted; nothing after the last written asset was emitted."
	case errors.Is(err, graph.ErrUnsolvable):
		return "run with cycles: lazy to keep the cycle, or break it by moving the shared code into its own module."
	case errors.Is(err, minipack.ErrAssetConflict):
		return "put [name] or [contenthash] in output.filename so every entry gets its own file."
	}
	kind, ok := builderr.KindOf(err)
	if !ok {
		return ""
	}
	switch kind {
	case builderr.KindResolve:
		return "check the path and resolve.extensions; require() only accepts string literals."
	case builderr.KindTransform:
		return "loader scripts must assign a function returning the new source to module.exports."
	case builderr.KindParse:
		return "fix the syntax error, or add a module.rules entry with a loader that turns this file into JavaScript."
	case builderr.KindIO:
		return "check that the file exists and output.path is writable."
	case builderr.KindCycle:
		return "set cycles: lazy to let the runtime module cache resolve circular requires."
	}
	return ""
}
