package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axesdev/axes/internal/identity"
)

// captureStdout redirects os.Stdout for the duration of fn and returns
// everything written to it. internal/exec defaults to os.Stdout when no
// writer is configured (see Options.normalized), so this is the
// simplest way to observe what a real script run printed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	fn()
	os.Stdout = orig
	w.Close()
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "axes.yaml"), []byte(content), 0o644))
}

func TestRunScriptNamed_BasicResolveAndRun(t *testing.T) {
	t.Setenv("AXES_CONFIG_DIR", t.TempDir())
	t.Setenv("AXES_CACHE_DIR", t.TempDir())

	store, err := openStore()
	require.NoError(t, err)

	appDir := t.TempDir()
	writeConfigFile(t, appDir, `scripts:
  build: "echo hello"
`)
	_, err = store.CreateProject("app", identity.Root, appDir)
	require.NoError(t, err)

	out := captureStdout(t, func() {
		err = runScriptNamed("app", "build", nil)
	})
	require.NoError(t, err)
	require.Contains(t, out, "hello")
}

func TestRunScriptNamed_InheritanceWithOverride(t *testing.T) {
	t.Setenv("AXES_CONFIG_DIR", t.TempDir())
	t.Setenv("AXES_CACHE_DIR", t.TempDir())

	store, err := openStore()
	require.NoError(t, err)

	// The root project has no path of its own (§3), so "root config"
	// here is the parent layer a level down: app declares the default,
	// child overrides it, mirroring the scenario's root/child shape.
	appDir := t.TempDir()
	writeConfigFile(t, appDir, `vars:
  greeting: hi
scripts:
  greet: "echo <vars::greeting>"
`)
	appID, err := store.CreateProject("app", identity.Root, appDir)
	require.NoError(t, err)

	childDir := t.TempDir()
	writeConfigFile(t, childDir, `vars:
  greeting: hello
`)
	_, err = store.CreateProject("child", appID, childDir)
	require.NoError(t, err)

	out := captureStdout(t, func() {
		err = runScriptNamed("app/child", "greet", nil)
	})
	require.NoError(t, err)
	require.Contains(t, out, "hello")
	require.NotContains(t, out, "hi\n")
}

func TestRunScriptNamed_MissingRequiredParameterFailsFast(t *testing.T) {
	t.Setenv("AXES_CONFIG_DIR", t.TempDir())
	t.Setenv("AXES_CACHE_DIR", t.TempDir())

	store, err := openStore()
	require.NoError(t, err)

	appDir := t.TempDir()
	writeConfigFile(t, appDir, `scripts:
  deploy: "kubectl apply -f <params::0(required)>"
`)
	_, err = store.CreateProject("app", identity.Root, appDir)
	require.NoError(t, err)

	err = runScriptNamed("app", "deploy", nil)
	require.Error(t, err)
}

func TestOpenProject_RunsDefaultHandler(t *testing.T) {
	t.Setenv("AXES_CONFIG_DIR", t.TempDir())
	t.Setenv("AXES_CACHE_DIR", t.TempDir())

	store, err := openStore()
	require.NoError(t, err)

	appDir := t.TempDir()
	writeConfigFile(t, appDir, `options:
  open_with:
    default: "echo opened"
`)
	_, err = store.CreateProject("app", identity.Root, appDir)
	require.NoError(t, err)

	out := captureStdout(t, func() {
		err = openProject("app", "")
	})
	require.NoError(t, err)
	require.Contains(t, out, "opened")
}
