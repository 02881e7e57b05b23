// Package context implements C3: resolving a textual context (names,
// navigation tokens, aliases) into a project UUID. It reads only
// identity data — no configuration file is ever touched here.
package context

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/identity"
	"github.com/axesdev/axes/internal/obs"
)

var log = obs.Named("context")

// SessionEnvVar is the environment variable naming the active session
// project, recognized so relative contexts resolve against it rather
// than the filesystem working directory.
const SessionEnvVar = "AXES_SESSION"

// globalAlias is the reserved built-in token that always names the root
// project, independent of the store's alias map.
const globalAlias = "g!"

// Input bundles everything the resolver needs to turn text into a
// project UUID.
type Input struct {
	Text  string
	Store *identity.Store
	// Cwd is the filesystem working directory, used for "." and "_"
	// when no session is active. Defaults to os.Getwd() if empty.
	Cwd string
	// Session is the active session project, if any (read from
	// SessionEnvVar by the caller).
	Session    uuid.UUID
	HasSession bool
}

// Result is what Resolve returns on success.
type Result struct {
	UUID          uuid.UUID
	QualifiedName string
}

// Resolve turns in.Text into a project UUID, applying the resolution
// order from §4.3, and (on success) refreshes last_used bookkeeping.
func Resolve(in Input) (Result, error) {
	if in.HasSession {
		if _, err := in.Store.Lookup(in.Session); err != nil {
			return Result{}, axerr.New(axerr.SessionInvalid, "active session project no longer exists")
		}
	}

	cwd := in.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Result{}, axerr.Wrap(axerr.IOError, "determine working directory", err)
		}
		cwd = wd
	}

	text := in.Text
	var segments []string
	if text == "" {
		segments = []string{"_"}
	} else {
		segments = strings.Split(text, "/")
	}

	head, err := resolveFirstSegment(in, segments[0], cwd)
	if err != nil {
		return Result{}, err
	}

	for _, seg := range segments[1:] {
		head, err = resolveRelativeSegment(in.Store, head, seg)
		if err != nil {
			return Result{}, err
		}
	}

	qualified, err := qualifiedName(in.Store, head)
	if err != nil {
		return Result{}, err
	}

	if err := in.Store.RefreshLastUsed(head); err != nil {
		return Result{}, err
	}

	log.Debugw("resolved context", "text", in.Text, "uuid", head, "qualified", qualified)
	return Result{UUID: head, QualifiedName: qualified}, nil
}

// resolveFirstSegment applies the §4.3 resolution order to the leading
// segment of the context text: alias, navigation primitive, or the name
// of a direct child of root. The root project has no name and is not
// matched by name here; "g!" is the token that resolves to it.
func resolveFirstSegment(in Input, seg, cwd string) (uuid.UUID, error) {
	if seg == globalAlias {
		return identity.Root, nil
	}
	if isAliasForm(seg) {
		name := strings.TrimSuffix(seg, "!")
		id, ok := in.Store.ResolveAlias(name)
		if !ok {
			return uuid.Nil, axerr.New(axerr.AliasNotFound, "no alias named "+name)
		}
		return id, nil
	}

	base := baselineHead(in, cwd)

	switch seg {
	case ".":
		if in.HasSession {
			return in.Session, nil
		}
		return nearestAncestorProject(in.Store, cwd)
	case "_":
		if in.HasSession {
			return in.Session, nil
		}
		id, ok := in.Store.FindByPath(cwd)
		if !ok {
			return uuid.Nil, axerr.New(axerr.ProjectNotFound, "no project registered at "+cwd)
		}
		return id, nil
	case "..":
		return parentOf(in.Store, base)
	case "*":
		return lastUsedChildOf(in.Store, base)
	case "**":
		id, ok := in.Store.LastUsed()
		if !ok {
			return uuid.Nil, axerr.New(axerr.ProjectNotFound, "no project has been used yet")
		}
		return id, nil
	default:
		return childNamed(in.Store, identity.Root, seg)
	}
}

// resolveRelativeSegment applies a later "/"-separated segment against
// the current resolution head.
func resolveRelativeSegment(store *identity.Store, head uuid.UUID, seg string) (uuid.UUID, error) {
	switch seg {
	case "..":
		return parentOf(store, head)
	case "*":
		return lastUsedChildOf(store, head)
	case "**":
		id, ok := store.LastUsed()
		if !ok {
			return uuid.Nil, axerr.New(axerr.ProjectNotFound, "no project has been used yet")
		}
		return id, nil
	case ".", "_":
		// A bare "." or "_" only has meaning as the leading segment; in
		// a later position it is just a literal (unusual) child name.
		return childNamed(store, head, seg)
	default:
		return childNamed(store, head, seg)
	}
}

func isAliasForm(seg string) bool {
	return strings.HasSuffix(seg, "!") && seg != "!" && seg != globalAlias
}

// baselineHead is the anchor "current head" that a leading ".." or "*"
// navigates from: the session project when one is active, else the
// project registered exactly at cwd, else root. Unlike ".", it does not
// walk up to the nearest registered ancestor.
func baselineHead(in Input, cwd string) uuid.UUID {
	if in.HasSession {
		return in.Session
	}
	if id, ok := in.Store.FindByPath(cwd); ok {
		return id
	}
	return identity.Root
}

func nearestAncestorProject(store *identity.Store, cwd string) (uuid.UUID, error) {
	dir := cwd
	for {
		if id, ok := store.FindByPath(dir); ok {
			return id, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return uuid.Nil, axerr.New(axerr.ProjectNotFound, "no registered ancestor of "+cwd)
		}
		dir = parent
	}
}

func parentOf(store *identity.Store, id uuid.UUID) (uuid.UUID, error) {
	e, err := store.Lookup(id)
	if err != nil {
		return uuid.Nil, err
	}
	if !e.HasParent {
		return uuid.Nil, axerr.New(axerr.ProjectNotFound, "root has no parent")
	}
	return e.Parent, nil
}

func lastUsedChildOf(store *identity.Store, parent uuid.UUID) (uuid.UUID, error) {
	id, ok := store.LastUsedChild(parent)
	if !ok {
		return uuid.Nil, axerr.New(axerr.AmbiguousContext, "no last-used child to disambiguate '*'")
	}
	return id, nil
}

func childNamed(store *identity.Store, parent uuid.UUID, name string) (uuid.UUID, error) {
	for _, e := range store.List() {
		if e.HasParent && e.Parent == parent && e.Name == name {
			return e.UUID, nil
		}
	}
	return uuid.Nil, axerr.New(axerr.ProjectNotFound, "no child named "+name)
}

// qualifiedName builds the dotted name chain from root to id.
func qualifiedName(store *identity.Store, id uuid.UUID) (string, error) {
	var parts []string
	cur := id
	for {
		e, err := store.Lookup(cur)
		if err != nil {
			return "", err
		}
		if !e.HasParent {
			break
		}
		parts = append([]string{e.Name}, parts...)
		cur = e.Parent
	}
	return strings.Join(parts, "."), nil
}
