// Package identity implements the global project catalog (C1: the
// identity store) and the per-project local reference sidecar file
// (C2), per the engine's data model.
package identity

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Root is the well-known zero-UUID identifying the root project.
var Root = uuid.Nil

// reserved holds the project-name tokens that are never valid simple
// names because they are also navigation primitives or sentinels.
var reserved = map[string]bool{
	".": true, "..": true, "*": true, "**": true, "_": true, "g!": true,
}

// ValidateName reports whether name is usable as a project's simple
// name: no path separators, no whitespace, and not one of the reserved
// navigation/sentinel tokens.
func ValidateName(name string) error {
	if name == "" {
		return errInvalidName(name, "must not be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return errInvalidName(name, "must not contain a path separator")
	}
	if strings.ContainsFunc(name, unicode.IsSpace) {
		return errInvalidName(name, "must not contain whitespace")
	}
	if reserved[name] {
		return errInvalidName(name, "is a reserved navigation token")
	}
	return nil
}

// Entry is one project's identity metadata as held by the store.
type Entry struct {
	UUID     uuid.UUID
	Name     string
	Parent   uuid.UUID
	HasParent bool // false only for Root
	Path     string

	// ConfigHash is the content hash of the project's last-compiled
	// configuration file, recorded by the config loader (C4) after a
	// compile. The loader finds cache entries by hashing the file, not
	// by reading this field.
	ConfigHash string
}

// LocalRef is the contents of a project's local reference sidecar file
// (C2): enough to re-identify the project if the global store is lost.
type LocalRef struct {
	SelfUUID   uuid.UUID
	ParentUUID uuid.UUID
	Name       string
}
