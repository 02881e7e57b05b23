package main

import (
	stdctx "context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/script/ast"
)

// openCmd runs a project's options.open_with handler directly; the bare
// invocation `axes <context>` (no script name) falls back to the same
// path with an empty handler name, meaning "the default handler".
var openCmd = &cobra.Command{
	Use:   "open <context> [handler]",
	Short: "run a project's open_with handler (default if none named)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		handler := ""
		if len(args) == 2 {
			handler = args[1]
		}
		return openProject(args[0], handler)
	},
}

func openProject(contextText, handlerName string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	result, err := resolve(store, contextText)
	if err != nil {
		return err
	}
	entry, err := store.Lookup(result.UUID)
	if err != nil {
		return err
	}

	loader, err := newLoader(store)
	if err != nil {
		return err
	}
	view, err := loader.Load(result.UUID)
	if err != nil {
		return err
	}

	task, ok := view.OpenWith(handlerName)
	if !ok {
		label := handlerName
		if label == "" {
			label = "default"
		}
		return axerr.New(axerr.BrokenReference, fmt.Sprintf("project %q has no open_with handler named %q", result.QualifiedName, label))
	}

	exportEnv(view.Env())

	ctx, cancel := signal.NotifyContext(stdctx.Background(), os.Interrupt)
	defer cancel()

	platform := ast.CurrentPlatform(runtime.GOOS)
	meta := metaResolver{path: entry.Path, name: result.QualifiedName, uuid: result.UUID.String(), version: view.Version()}
	scripts := scriptLookup{view: view, platform: platform, resolver: meta}

	return runTask(ctx, task, platform, meta, scripts, nil)
}
