// Package main implements the axes CLI — the outer adapter around the
// core engine (internal/identity, internal/context, internal/layer,
// internal/script/{ast,compile,jit}, internal/args, internal/exec).
//
// # File Index
//
//   - main.go     - entry point, rootCmd, global flags, exit codes
//   - run.go      - default invocation: resolve context, load config,
//                    specialize, resolve arguments, execute
//   - project.go  - init, register, rename, link, unregister, delete
//   - alias.go    - alias set / alias rm
//   - list.go     - list
//   - open.go     - open (options.open_with handlers)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/obs"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "axes <context> <script> [args...]",
	Short: "axes runs per-project scripts from a hierarchy of inherited configuration layers",
	Long: `axes resolves a project by name, alias, or navigation token, loads its
configuration merged with every ancestor's, and runs one of its scripts:

    axes <context> <script> [args...]

Project lifecycle (init, register, rename, link, unregister, delete, alias)
is managed through the subcommands below.`,
	// The run path owns its own argument grammar end to end (§4.7): once
	// past the context and script name, everything is the script's own
	// parameter contract, not a cobra flag set. Subcommands below parse
	// flags normally; only the bare root invocation disables it.
	DisableFlagParsing: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return obs.Init(verbose || os.Getenv("AXES_VERBOSE") != "")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		obs.Sync()
	},
	RunE: runScript,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		initCmd,
		registerCmd,
		renameCmd,
		linkCmd,
		unregisterCmd,
		deleteCmd,
		aliasCmd,
		listCmd,
		openCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an engine error to the process exit status (§6): 130 on
// cancellation, 1 on any other engine error. The subprocess's own exit
// code (when a user command fails) is not mirrored here — §4.8 treats a
// NonZeroExit as just another task failure, not a code to propagate.
func exitCode(err error) int {
	if axerr.Is(err, axerr.Interrupted) {
		return 130
	}
	return 1
}
