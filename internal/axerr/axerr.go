// Package axerr defines the closed set of error kinds the engine can
// raise, per the core's error handling design. Callers distinguish kinds
// with KindOf(err) or Is(err, kind), never by inspecting message text.
package axerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the engine's well-known failure modes.
type Kind string

const (
	IndexCorrupt      Kind = "IndexCorrupt"
	ProjectNotFound    Kind = "ProjectNotFound"
	NameConflict       Kind = "NameConflict"
	CycleDetected      Kind = "CycleDetected"
	PathUnknown        Kind = "PathUnknown"
	AliasNotFound      Kind = "AliasNotFound"
	AmbiguousContext   Kind = "AmbiguousContext"
	SessionInvalid     Kind = "SessionInvalid"
	ConfigParseError   Kind = "ConfigParseError"
	MalformedToken     Kind = "MalformedToken"
	LayerDecodeFailed  Kind = "LayerDecodeFailed"
	IOError            Kind = "IOError"
	BrokenReference    Kind = "BrokenReference"
	MissingRequired    Kind = "MissingRequired"
	AliasConflict      Kind = "AliasConflict"
	UnexpectedArguments Kind = "UnexpectedArguments"
	SubprocessSpawnFailed Kind = "SubprocessSpawnFailed"
	NonZeroExit        Kind = "NonZeroExit"
	Interrupted        Kind = "Interrupted"
)

// Error is the engine's structured error type. It carries enough
// context for an outer adapter to render a useful message without
// re-parsing strings.
type Error struct {
	Kind Kind
	Msg  string

	Script  string // script name, for compile/reference errors
	Line    int    // 1-based line within the script, 0 if unknown
	Token   string // offending token literal, for token errors
	Command string // offending command string, for subprocess errors

	Wrapped error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	if e.Script != "" {
		msg += fmt.Sprintf(" (script %q", e.Script)
		if e.Line > 0 {
			msg += fmt.Sprintf(", line %d", e.Line)
		}
		msg += ")"
	}
	if e.Token != "" {
		msg += fmt.Sprintf(" [token %q]", e.Token)
	}
	if e.Command != "" {
		msg += fmt.Sprintf(" [command %q]", e.Command)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New builds an Error of the given kind with a plain message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Wrapped: cause}
}

// WithScript annotates the error with script/line context and returns it
// (for fluent construction at the call site).
func (e *Error) WithScript(name string, line int) *Error {
	e.Script = name
	e.Line = line
	return e
}

// WithToken annotates the error with the offending token literal.
func (e *Error) WithToken(tok string) *Error {
	e.Token = tok
	return e
}

// WithCommand annotates the error with the offending command string.
func (e *Error) WithCommand(cmd string) *Error {
	e.Command = cmd
	return e
}

// KindOf extracts the Kind carried by err, walking the unwrap chain.
// Returns ("", false) if err does not carry a recognized Kind.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
