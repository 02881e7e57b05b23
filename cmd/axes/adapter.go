package main

import (
	"fmt"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/layer"
	"github.com/axesdev/axes/internal/script/ast"
	"github.com/axesdev/axes/internal/script/jit"
)

// metaResolver supplies the per-project metadata tokens (<path>, <name>,
// <uuid>, <version>) a task's variables and command lines may reference.
// It satisfies jit.Resolver for specialization; Lookup/Generic are never
// invoked there (internal/script/jit's renderMetadataOnly renders a
// parameter token inside a variable's value as empty without calling
// them). Parameter values for command lines are looked up by
// internal/exec from the args.Resolution, not through this type.
type metaResolver struct {
	path, name, uuid, version string
}

func (m metaResolver) Path() string    { return m.path }
func (m metaResolver) Name() string    { return m.name }
func (m metaResolver) UUID() string    { return m.uuid }
func (m metaResolver) Version() string { return m.version }

func (m metaResolver) Lookup(tok string) (string, error) {
	return "", fmt.Errorf("axes: parameter token %q cannot appear in a variable's value", tok)
}

func (m metaResolver) Generic() string { return "" }

// scriptLookup bridges the merged config view and the specializer so
// internal/exec can resolve a <run::X> reference without needing to know
// about layers or specialization itself.
type scriptLookup struct {
	view     *layer.View
	platform ast.Platform
	resolver jit.Resolver
}

func (s scriptLookup) SpecializeScript(name string) ([]ast.CommandLine, error) {
	task, ok := s.view.ScriptTask(name)
	if !ok {
		return nil, axerr.New(axerr.BrokenReference, fmt.Sprintf("<run::%s> references an unknown script", name))
	}
	return jit.Specialize(task, s.platform, s.view, s.resolver)
}
