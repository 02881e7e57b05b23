package layer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axesdev/axes/internal/identity"
)

func newTestStore(t *testing.T) *identity.Store {
	t.Helper()
	s, err := identity.Open(filepath.Join(t.TempDir(), "index.bin"))
	require.NoError(t, err)
	return s
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "axes.yaml"), []byte(content), 0o644))
}

func TestLoad_MergesAncestryWithChildOverride(t *testing.T) {
	store := newTestStore(t)
	root := identity.Root
	writeConfig(t, t.TempDir(), "")

	appDir := t.TempDir()
	writeConfig(t, appDir, `
vars:
  greeting: hi
scripts:
  greet: "echo <vars::greeting>"
`)
	appID, err := store.CreateProject("app", root, appDir)
	require.NoError(t, err)

	childDir := t.TempDir()
	writeConfig(t, childDir, `
vars:
  greeting: hello
`)
	childID, err := store.CreateProject("child", appID, childDir)
	require.NoError(t, err)

	loader := New(store, filepath.Join(t.TempDir(), "cache"))
	view, err := loader.Load(childID)
	require.NoError(t, err)

	task, ok := view.ScriptTask("greet")
	require.True(t, ok)
	require.NotEmpty(t, task)

	cv, ok := view.VarValue("greeting")
	require.True(t, ok)
	require.Equal(t, "hello", cv.Default[0].Template[0].Literal)
}

func TestLoad_CachesCompiledLayerAcrossLoads(t *testing.T) {
	store := newTestStore(t)
	appDir := t.TempDir()
	writeConfig(t, appDir, `scripts: {build: "echo hello"}`)
	appID, err := store.CreateProject("app", identity.Root, appDir)
	require.NoError(t, err)

	cacheDir := filepath.Join(t.TempDir(), "cache")
	loader := New(store, cacheDir)

	_, err = loader.Load(appID)
	require.NoError(t, err)

	entry, err := store.Lookup(appID)
	require.NoError(t, err)
	require.NotEmpty(t, entry.ConfigHash)

	cached, err := readCache(cacheDir, appID, entry.ConfigHash)
	require.NoError(t, err)
	require.NotNil(t, cached)
	_, ok := cached.Scripts["build"]
	require.True(t, ok)
}

func TestLoad_MissingConfigFileContributesEmptyLayer(t *testing.T) {
	store := newTestStore(t)
	appDir := t.TempDir()
	appID, err := store.CreateProject("app", identity.Root, appDir)
	require.NoError(t, err)

	loader := New(store, filepath.Join(t.TempDir(), "cache"))
	view, err := loader.Load(appID)
	require.NoError(t, err)
	_, ok := view.ScriptTask("anything")
	require.False(t, ok)
}
