package identity

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/obs"
)

var log = obs.Named("identity")

// onDisk is the gob-serializable shape of the store file. Store itself
// is not serialized directly so the in-memory type can carry a mutex.
type onDisk struct {
	Entries        map[uuid.UUID]Entry
	Aliases        map[string]uuid.UUID
	LastUsed       uuid.UUID
	HasLastUsed    bool
	LastUsedChild  map[uuid.UUID]uuid.UUID
}

// Store is the engine's global project catalog. All mutation goes
// through Store's methods; callers never touch the backing file
// directly. A Store is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
	data onDisk
}

// Open loads the store from path, creating an empty store (containing
// only the root project) if the file does not yet exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path, data: freshData()}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, axerr.Wrap(axerr.IOError, "read identity store", err)
	}

	var d onDisk
	if decErr := gob.NewDecoder(bytes.NewReader(b)).Decode(&d); decErr != nil {
		return nil, axerr.Wrap(axerr.IndexCorrupt, "decode identity store", decErr)
	}
	if err := validate(d); err != nil {
		return nil, err
	}
	s.data = d
	return s, nil
}

func freshData() onDisk {
	return onDisk{
		Entries: map[uuid.UUID]Entry{
			Root: {UUID: Root, Name: "", HasParent: false, Path: ""},
		},
		Aliases:       map[string]uuid.UUID{},
		LastUsedChild: map[uuid.UUID]uuid.UUID{},
	}
}

// validate checks the store invariants from §4.1: every parent exists,
// no cycles, every non-root path non-empty, root present.
func validate(d onDisk) error {
	if _, ok := d.Entries[Root]; !ok {
		return axerr.New(axerr.IndexCorrupt, "identity store missing root project")
	}
	for id, e := range d.Entries {
		if id != Root && e.Path == "" {
			return axerr.New(axerr.IndexCorrupt, fmt.Sprintf("project %s has empty path", id))
		}
		if e.HasParent {
			if _, ok := d.Entries[e.Parent]; !ok {
				return axerr.New(axerr.IndexCorrupt, fmt.Sprintf("project %s references missing parent %s", id, e.Parent))
			}
		} else if id != Root {
			return axerr.New(axerr.IndexCorrupt, fmt.Sprintf("project %s has no parent but is not root", id))
		}
	}
	seen := map[uuid.UUID]bool{}
	for id := range d.Entries {
		cur := id
		steps := 0
		for {
			seen[cur] = true
			e := d.Entries[cur]
			if cur == Root || !e.HasParent {
				break
			}
			cur = e.Parent
			steps++
			if steps > len(d.Entries)+1 {
				return axerr.New(axerr.CycleDetected, fmt.Sprintf("cycle detected reaching root from %s", id))
			}
		}
	}
	return nil
}

// saveAtomic writes the store to a sibling temp file and renames it into
// place, so a crash mid-write never corrupts the previous version.
func (s *Store) saveAtomic() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return axerr.Wrap(axerr.IOError, "create identity store dir", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s.data); err != nil {
		return axerr.Wrap(axerr.IOError, "encode identity store", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".index-*.tmp")
	if err != nil {
		return axerr.Wrap(axerr.IOError, "create identity store temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return axerr.Wrap(axerr.IOError, "write identity store temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return axerr.Wrap(axerr.IOError, "close identity store temp file", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return axerr.Wrap(axerr.IOError, "rename identity store into place", err)
	}
	return nil
}

// Lookup returns the entry for id.
func (s *Store) Lookup(id uuid.UUID) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.Entries[id]
	if !ok {
		return Entry{}, axerr.New(axerr.ProjectNotFound, fmt.Sprintf("no project with id %s", id))
	}
	return e, nil
}

// List returns every entry in the store. Order is unspecified; callers
// that need a presentation order (the out-of-scope tree printer) sort
// it themselves.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.data.Entries))
	for _, e := range s.data.Entries {
		out = append(out, e)
	}
	return out
}

// FindByPath returns the UUID of the project whose stored path equals
// path exactly, if any.
func (s *Store) FindByPath(path string) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.data.Entries {
		if e.Path == path {
			return id, true
		}
	}
	return uuid.Nil, false
}

// CreateProject registers a new project under parent, generating a
// fresh UUID. Fails NameConflict if parent already has a child named
// name.
func (s *Store) CreateProject(name string, parent uuid.UUID, path string) (uuid.UUID, error) {
	if err := ValidateName(name); err != nil {
		return uuid.Nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Entries[parent]; !ok {
		return uuid.Nil, axerr.New(axerr.ProjectNotFound, fmt.Sprintf("parent %s does not exist", parent))
	}
	if s.childNamedLocked(parent, name, uuid.Nil) {
		return uuid.Nil, axerr.New(axerr.NameConflict, fmt.Sprintf("parent already has a child named %q", name))
	}

	id := uuid.New()
	s.data.Entries[id] = Entry{UUID: id, Name: name, Parent: parent, HasParent: true, Path: path}
	if err := s.saveAtomic(); err != nil {
		delete(s.data.Entries, id)
		return uuid.Nil, err
	}
	log.Debugw("created project", "id", id, "name", name, "parent", parent)
	return id, nil
}

// childNamedLocked reports whether parent already has a child named
// name, other than ignore. Caller must hold s.mu.
func (s *Store) childNamedLocked(parent uuid.UUID, name string, ignore uuid.UUID) bool {
	for id, e := range s.data.Entries {
		if id == ignore {
			continue
		}
		if e.HasParent && e.Parent == parent && e.Name == name {
			return true
		}
	}
	return false
}

// ResolveAlias returns the UUID the alias (without its trailing "!")
// maps to, if registered.
func (s *Store) ResolveAlias(name string) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.data.Aliases[name]
	return id, ok
}

// SetAlias registers name (without "!") as an alias for id. Many aliases
// may point at the same project.
func (s *Store) SetAlias(name string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.Entries[id]; !ok {
		return axerr.New(axerr.ProjectNotFound, fmt.Sprintf("no project with id %s", id))
	}
	s.data.Aliases[name] = id
	return s.saveAtomic()
}

// RemoveAlias unregisters an alias.
func (s *Store) RemoveAlias(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.Aliases[name]; !ok {
		return axerr.New(axerr.AliasNotFound, fmt.Sprintf("no alias %q", name))
	}
	delete(s.data.Aliases, name)
	return s.saveAtomic()
}

// Rename changes id's simple name. Fails NameConflict if a sibling
// already has newName.
func (s *Store) Rename(id uuid.UUID, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data.Entries[id]
	if !ok {
		return axerr.New(axerr.ProjectNotFound, fmt.Sprintf("no project with id %s", id))
	}
	if !e.HasParent {
		return axerr.New(axerr.NameConflict, "cannot rename the root project")
	}
	if s.childNamedLocked(e.Parent, newName, id) {
		return axerr.New(axerr.NameConflict, fmt.Sprintf("sibling already named %q", newName))
	}
	e.Name = newName
	s.data.Entries[id] = e
	return s.saveAtomic()
}

// Link re-parents id under newParent. Fails CycleDetected if newParent
// is id or a descendant of id; fails NameConflict on a sibling-name
// collision under newParent.
func (s *Store) Link(id, newParent uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data.Entries[id]
	if !ok {
		return axerr.New(axerr.ProjectNotFound, fmt.Sprintf("no project with id %s", id))
	}
	if !e.HasParent {
		return axerr.New(axerr.NameConflict, "cannot re-parent the root project")
	}
	if _, ok := s.data.Entries[newParent]; !ok {
		return axerr.New(axerr.ProjectNotFound, fmt.Sprintf("no project with id %s", newParent))
	}
	if s.isDescendantLocked(newParent, id) || newParent == id {
		return axerr.New(axerr.CycleDetected, fmt.Sprintf("linking %s under %s would create a cycle", id, newParent))
	}
	if s.childNamedLocked(newParent, e.Name, id) {
		return axerr.New(axerr.NameConflict, fmt.Sprintf("target parent already has a child named %q", e.Name))
	}
	e.Parent = newParent
	s.data.Entries[id] = e
	return s.saveAtomic()
}

// isDescendantLocked reports whether candidate is id or a descendant of
// id. Caller must hold s.mu.
func (s *Store) isDescendantLocked(candidate, id uuid.UUID) bool {
	cur := candidate
	for {
		if cur == id {
			return true
		}
		e, ok := s.data.Entries[cur]
		if !ok || !e.HasParent {
			return false
		}
		cur = e.Parent
	}
}

// Unregister removes id from the store without touching its directory.
// Direct children are re-parented to reparentTo (Root if the zero
// value) unless recursive is set, in which case descendants are removed
// too.
func (s *Store) Unregister(id uuid.UUID, recursive bool, reparentTo uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Entries[id]; !ok {
		return axerr.New(axerr.ProjectNotFound, fmt.Sprintf("no project with id %s", id))
	}
	if id == Root {
		return axerr.New(axerr.NameConflict, "cannot unregister the root project")
	}

	if recursive {
		s.removeSubtreeLocked(id)
	} else {
		for cid, e := range s.data.Entries {
			if e.HasParent && e.Parent == id {
				e.Parent = reparentTo
				s.data.Entries[cid] = e
			}
		}
		delete(s.data.Entries, id)
	}

	for alias, aid := range s.data.Aliases {
		if aid == id {
			delete(s.data.Aliases, alias)
		}
	}
	if s.data.HasLastUsed && s.data.LastUsed == id {
		s.data.HasLastUsed = false
	}
	delete(s.data.LastUsedChild, id)

	return s.saveAtomic()
}

func (s *Store) removeSubtreeLocked(id uuid.UUID) {
	var children []uuid.UUID
	for cid, e := range s.data.Entries {
		if e.HasParent && e.Parent == id {
			children = append(children, cid)
		}
	}
	for _, cid := range children {
		s.removeSubtreeLocked(cid)
	}
	delete(s.data.Entries, id)
}

// DeleteDirectoryAndUnregister removes id's private directory from disk
// and then unregisters it from the store (non-recursive: children are
// re-parented to Root).
func (s *Store) DeleteDirectoryAndUnregister(id uuid.UUID) error {
	e, err := s.Lookup(id)
	if err != nil {
		return err
	}
	if e.Path != "" {
		if err := os.RemoveAll(e.Path); err != nil {
			return axerr.Wrap(axerr.IOError, "delete project directory", err)
		}
	}
	return s.Unregister(id, false, Root)
}

// RefreshLastUsed records id as the globally last-used project and, if
// it has a parent, as that parent's last-used child. It is the
// mutation the context resolver performs on every successful resolve.
func (s *Store) RefreshLastUsed(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data.Entries[id]
	if !ok {
		return axerr.New(axerr.ProjectNotFound, fmt.Sprintf("no project with id %s", id))
	}
	s.data.LastUsed = id
	s.data.HasLastUsed = true
	if e.HasParent {
		s.data.LastUsedChild[e.Parent] = id
	}
	return s.saveAtomic()
}

// LastUsed returns the store's global last-used project, for the `**`
// navigation primitive.
func (s *Store) LastUsed() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LastUsed, s.data.HasLastUsed
}

// LastUsedChild returns parent's last-used child, for the `*`
// navigation primitive.
func (s *Store) LastUsedChild(parent uuid.UUID) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.data.LastUsedChild[parent]
	return id, ok
}

// SetConfigHash records the content hash of id's last-compiled
// configuration file. The config loader calls it after each compile;
// it locates cache entries by the file's current hash, not by this
// stored value.
func (s *Store) SetConfigHash(id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.Entries[id]
	if !ok {
		return axerr.New(axerr.ProjectNotFound, fmt.Sprintf("no project with id %s", id))
	}
	e.ConfigHash = hash
	s.data.Entries[id] = e
	return s.saveAtomic()
}
