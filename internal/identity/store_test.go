package identity

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/axesdev/axes/internal/axerr"
)

func TestOpen_FreshStoreHasRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	s, err := Open(path)
	require.NoError(t, err)

	e, err := s.Lookup(Root)
	require.NoError(t, err)
	require.False(t, e.HasParent)
}

func TestCreateProject_ThenReopenRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	s, err := Open(path)
	require.NoError(t, err)

	id, err := s.CreateProject("app", Root, "/work/app")
	require.NoError(t, err)

	reopened, err := Open(path)
	require.NoError(t, err)

	e, err := reopened.Lookup(id)
	require.NoError(t, err)
	require.Equal(t, "app", e.Name)
	require.Equal(t, "/work/app", e.Path)
	require.True(t, e.HasParent)
	require.Equal(t, Root, e.Parent)
}

func TestCreateProject_DuplicateSiblingNameFails(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.bin"))
	require.NoError(t, err)

	_, err = s.CreateProject("app", Root, "/work/app")
	require.NoError(t, err)

	_, err = s.CreateProject("app", Root, "/work/app2")
	require.Error(t, err)
}

func TestValidateName_RejectsReservedTokens(t *testing.T) {
	for _, bad := range []string{".", "..", "*", "**", "_", "g!", "", "a/b", "a b"} {
		require.Error(t, ValidateName(bad), "expected %q to be rejected", bad)
	}
	require.NoError(t, ValidateName("app"))
}

func TestRename_FailsOnSiblingCollision(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.bin"))
	require.NoError(t, err)

	a, err := s.CreateProject("a", Root, "/work/a")
	require.NoError(t, err)
	_, err = s.CreateProject("b", Root, "/work/b")
	require.NoError(t, err)

	require.Error(t, s.Rename(a, "b"))
	require.NoError(t, s.Rename(a, "c"))

	e, err := s.Lookup(a)
	require.NoError(t, err)
	require.Equal(t, "c", e.Name)
}

func TestLink_RejectsCycle(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.bin"))
	require.NoError(t, err)

	parent, err := s.CreateProject("parent", Root, "/work/parent")
	require.NoError(t, err)
	child, err := s.CreateProject("child", parent, "/work/parent/child")
	require.NoError(t, err)

	err = s.Link(parent, child)
	require.Error(t, err)
	require.True(t, axerr.Is(err, axerr.CycleDetected))
}

func TestUnregister_ReparentsChildrenToRoot(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.bin"))
	require.NoError(t, err)

	parent, err := s.CreateProject("parent", Root, "/work/parent")
	require.NoError(t, err)
	child, err := s.CreateProject("child", parent, "/work/parent/child")
	require.NoError(t, err)

	require.NoError(t, s.Unregister(parent, false, Root))

	e, err := s.Lookup(child)
	require.NoError(t, err)
	require.Equal(t, Root, e.Parent)

	_, err = s.Lookup(parent)
	require.Error(t, err)
}

func TestUnregister_RecursiveRemovesDescendants(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.bin"))
	require.NoError(t, err)

	parent, err := s.CreateProject("parent", Root, "/work/parent")
	require.NoError(t, err)
	child, err := s.CreateProject("child", parent, "/work/parent/child")
	require.NoError(t, err)

	require.NoError(t, s.Unregister(parent, true, uuid.Nil))

	_, err = s.Lookup(child)
	require.Error(t, err)
}

func TestAliases_ManyToOne(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.bin"))
	require.NoError(t, err)

	id, err := s.CreateProject("app", Root, "/work/app")
	require.NoError(t, err)

	require.NoError(t, s.SetAlias("a", id))
	require.NoError(t, s.SetAlias("b", id))

	got, ok := s.ResolveAlias("a")
	require.True(t, ok)
	require.Equal(t, id, got)

	require.NoError(t, s.RemoveAlias("a"))
	_, ok = s.ResolveAlias("a")
	require.False(t, ok)
}

func TestRefreshLastUsed_UpdatesGlobalAndPerParent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.bin"))
	require.NoError(t, err)

	id, err := s.CreateProject("app", Root, "/work/app")
	require.NoError(t, err)

	require.NoError(t, s.RefreshLastUsed(id))

	last, ok := s.LastUsed()
	require.True(t, ok)
	require.Equal(t, id, last)

	child, ok := s.LastUsedChild(Root)
	require.True(t, ok)
	require.Equal(t, id, child)
}
