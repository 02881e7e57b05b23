package main

import (
	stdctx "context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/axesdev/axes/internal/args"
	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/exec"
	"github.com/axesdev/axes/internal/script/ast"
	"github.com/axesdev/axes/internal/script/jit"
)

// runScript implements the default invocation `axes <context> <script>
// [args...]`: resolve_context -> load_merged_view -> resolve_script_task
// -> specialize -> resolve_args -> execute, bracketed by the project's
// at_start/at_exit hooks (§4.8, §9: at_exit does not run if at_start
// fails).
//
// With no script name given, the context is opened with its
// options.open_with.default handler instead (see open.go).
func runScript(cmd *cobra.Command, argv []string) error {
	if len(argv) == 0 {
		return cmd.Help()
	}
	if len(argv) == 1 {
		return openProject(argv[0], "")
	}
	return runScriptNamed(argv[0], argv[1], argv[2:])
}

func runScriptNamed(contextText, scriptName string, passthrough []string) error {
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

	task, ok := view.ScriptTask(scriptName)
	if !ok {
		return axerr.New(axerr.BrokenReference, fmt.Sprintf("project %q has no script named %q", result.QualifiedName, scriptName))
	}

	exportEnv(view.Env())

	ctx, cancel := signal.NotifyContext(stdctx.Background(), os.Interrupt)
	defer cancel()

	platform := ast.CurrentPlatform(runtime.GOOS)
	meta := metaResolver{path: entry.Path, name: result.QualifiedName, uuid: result.UUID.String(), version: view.Version()}
	scripts := scriptLookup{view: view, platform: platform, resolver: meta}

	if hook, ok := view.AtStart(); ok {
		if err := runHook(ctx, hook, platform, meta, scripts); err != nil {
			return err
		}
	}

	scriptErr := runTask(ctx, task, platform, meta, scripts, passthrough)

	if hook, ok := view.AtExit(); ok {
		if err := runHook(ctx, hook, platform, meta, scripts); err != nil && scriptErr == nil {
			return err
		}
	}
	return scriptErr
}

// runTask specializes task for platform, resolves argv against its
// parameter contract, and executes it.
func runTask(ctx stdctx.Context, task ast.Task, platform ast.Platform, meta metaResolver, scripts scriptLookup, argv []string) error {
	lines, err := jit.Specialize(task, platform, scripts.view, meta)
	if err != nil {
		return err
	}
	resolution, err := args.Resolve(lines, argv)
	if err != nil {
		return err
	}
	return exec.Run(ctx, lines, exec.Options{
		Context: &exec.Context{Path: meta.path, Name: meta.name, UUID: meta.uuid, Version: meta.version, Args: resolution},
		Scripts: scripts,
	})
}

// runHook specializes and runs an at_start/at_exit hook with no CLI
// argv of its own: a hook's parameter contract, if it declares one, is
// only ever satisfiable by defaults.
func runHook(ctx stdctx.Context, hook ast.Task, platform ast.Platform, meta metaResolver, scripts scriptLookup) error {
	return runTask(ctx, hook, platform, meta, scripts, nil)
}

// exportEnv sets the merged configuration's env vars in the current
// process's environment. The CLI exits after one invocation, so
// subprocesses spawned via os/exec's default nil Cmd.Env (inherit
// parent environment) pick these up without internal/exec needing its
// own environment-plumbing.
func exportEnv(env map[string]string) {
	for k, v := range env {
		os.Setenv(k, v)
	}
}
