package context

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/identity"
)

func newStore(t *testing.T) *identity.Store {
	t.Helper()
	s, err := identity.Open(filepath.Join(t.TempDir(), "index.bin"))
	require.NoError(t, err)
	return s
}

func TestResolve_ByAlias(t *testing.T) {
	s := newStore(t)
	id, err := s.CreateProject("app", identity.Root, "/work/app")
	require.NoError(t, err)
	require.NoError(t, s.SetAlias("myapp", id))

	res, err := Resolve(Input{Text: "myapp!", Store: s, Cwd: "/elsewhere"})
	require.NoError(t, err)
	require.Equal(t, id, res.UUID)
}

func TestResolve_ByNamedChildOfRoot(t *testing.T) {
	s := newStore(t)
	id, err := s.CreateProject("app", identity.Root, "/work/app")
	require.NoError(t, err)

	res, err := Resolve(Input{Text: "app", Store: s, Cwd: "/elsewhere"})
	require.NoError(t, err)
	require.Equal(t, id, res.UUID)
	require.Equal(t, "app", res.QualifiedName)
}

func TestResolve_DottedPathTraversal(t *testing.T) {
	s := newStore(t)
	app, err := s.CreateProject("app", identity.Root, "/work/app")
	require.NoError(t, err)
	sub, err := s.CreateProject("api", app, "/work/app/api")
	require.NoError(t, err)

	res, err := Resolve(Input{Text: "app/api", Store: s, Cwd: "/elsewhere"})
	require.NoError(t, err)
	require.Equal(t, sub, res.UUID)
	require.Equal(t, "app.api", res.QualifiedName)
}

func TestResolve_UnderscoreMatchesExactCwd(t *testing.T) {
	s := newStore(t)
	id, err := s.CreateProject("app", identity.Root, "/work/app")
	require.NoError(t, err)

	res, err := Resolve(Input{Text: "_", Store: s, Cwd: "/work/app"})
	require.NoError(t, err)
	require.Equal(t, id, res.UUID)

	_, err = Resolve(Input{Text: "_", Store: s, Cwd: "/work/other"})
	require.Error(t, err)
}

func TestResolve_DotWalksUpToNearestAncestor(t *testing.T) {
	s := newStore(t)
	id, err := s.CreateProject("app", identity.Root, "/work/app")
	require.NoError(t, err)

	res, err := Resolve(Input{Text: ".", Store: s, Cwd: "/work/app/src/deep"})
	require.NoError(t, err)
	require.Equal(t, id, res.UUID)
}

func TestResolve_DotDotReturnsParent(t *testing.T) {
	s := newStore(t)
	app, err := s.CreateProject("app", identity.Root, "/work/app")
	require.NoError(t, err)
	_, err = s.CreateProject("api", app, "/work/app/api")
	require.NoError(t, err)

	res, err := Resolve(Input{Text: "..", Store: s, Cwd: "/work/app/api"})
	require.NoError(t, err)
	require.Equal(t, app, res.UUID)
}

func TestResolve_StarWithoutLastUsedIsAmbiguous(t *testing.T) {
	s := newStore(t)
	_, err := s.CreateProject("app", identity.Root, "/work/app")
	require.NoError(t, err)

	_, err = Resolve(Input{Text: "*", Store: s, Cwd: "/work/app"})
	require.Error(t, err)
	require.True(t, axerr.Is(err, axerr.AmbiguousContext))
}

func TestResolve_DoubleStarUsesGlobalLastUsed(t *testing.T) {
	s := newStore(t)
	id, err := s.CreateProject("app", identity.Root, "/work/app")
	require.NoError(t, err)
	require.NoError(t, s.RefreshLastUsed(id))

	res, err := Resolve(Input{Text: "**", Store: s, Cwd: "/elsewhere"})
	require.NoError(t, err)
	require.Equal(t, id, res.UUID)
}

func TestResolve_SessionOverridesDotAndUnderscore(t *testing.T) {
	s := newStore(t)
	id, err := s.CreateProject("app", identity.Root, "/work/app")
	require.NoError(t, err)

	res, err := Resolve(Input{Text: ".", Store: s, Cwd: "/totally/unrelated", Session: id, HasSession: true})
	require.NoError(t, err)
	require.Equal(t, id, res.UUID)

	res, err = Resolve(Input{Text: "_", Store: s, Cwd: "/totally/unrelated", Session: id, HasSession: true})
	require.NoError(t, err)
	require.Equal(t, id, res.UUID)
}

func TestResolve_GlobalAliasResolvesRoot(t *testing.T) {
	s := newStore(t)
	res, err := Resolve(Input{Text: "g!", Store: s, Cwd: "/elsewhere"})
	require.NoError(t, err)
	require.Equal(t, identity.Root, res.UUID)
}

func TestResolve_UpdatesLastUsedChild(t *testing.T) {
	s := newStore(t)
	id, err := s.CreateProject("app", identity.Root, "/work/app")
	require.NoError(t, err)

	_, err = Resolve(Input{Text: "app", Store: s, Cwd: "/elsewhere"})
	require.NoError(t, err)

	child, ok := s.LastUsedChild(identity.Root)
	require.True(t, ok)
	require.Equal(t, id, child)
}
