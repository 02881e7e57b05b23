// Package jit implements C6: immediately before execution, picks the
// per-OS branch of each PlatformExecution and splices in <vars::X> and
// <scripts::X> references, producing a flat PlatformSpecializedTask.
package jit

import (
	"fmt"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/script/ast"
)

// View is the subset of the config loader's merged view the specializer
// needs: lookups for variables and scripts by name.
type View interface {
	ScriptTask(name string) (ast.Task, bool)
	VarValue(name string) (ast.CompiledValue, bool)
}

// Resolver supplies the metadata tokens (Path/Name/Uuid/Version) that
// <vars::X> inlining renders, since a variable's template may itself
// reference <path>/<name>/etc. The CLI adapter (cmd/axes) supplies the
// implementation. Lookup and Generic are part of the interface, but the
// specializer never calls them: parameter tokens inside a variable
// render as empty.
type Resolver interface {
	Path() string
	Name() string
	UUID() string
	Version() string
	Lookup(originalToken string) (string, error)
	Generic() string
}

// Specialize picks platform p's branch for every PlatformExecution in
// task and splices all <vars::X>/<scripts::X> references, returning a
// flat list of CommandLine whose templates contain only Parameter,
// GenericParams, Path, Name, Uuid, Version, Color, Run, and Literal
// nodes.
func Specialize(task ast.Task, p ast.Platform, view View, res Resolver) ([]ast.CommandLine, error) {
	stack := map[string]bool{}
	return specializeTask(task, p, view, res, stack)
}

func specializeTask(task ast.Task, p ast.Platform, view View, res Resolver, stack map[string]bool) ([]ast.CommandLine, error) {
	var out []ast.CommandLine
	for _, pe := range task {
		branch := pe.Branch(p)
		for _, cl := range branch {
			spliced, err := spliceLine(cl, p, view, res, stack)
			if err != nil {
				return nil, err
			}
			out = append(out, spliced...)
		}
	}
	return out, nil
}

// spliceLine expands a single CommandLine's template, replacing any
// <scripts::X> component with the (recursively specialized) command
// lines of X, and any <vars::X> component with a rendered Literal. A
// CommandLine with no Script/Var reference is returned unchanged as a
// one-element slice; the prefixes of the original line apply only to
// its own position, never to spliced-in lines.
func spliceLine(cl ast.CommandLine, p ast.Platform, view View, res Resolver, stack map[string]bool) ([]ast.CommandLine, error) {
	hasScriptRef := false
	for _, c := range cl.Template {
		if c.Kind == ast.CScript {
			hasScriptRef = true
			break
		}
	}
	if !hasScriptRef {
		tmpl, err := inlineVars(cl.Template, p, view, res, stack)
		if err != nil {
			return nil, err
		}
		return []ast.CommandLine{{Prefixes: cl.Prefixes, Template: tmpl}}, nil
	}

	// A template containing a <scripts::X> reference is required (per
	// §4.6) to splice X's command lines in at that position; since a
	// spliced script contributes zero or more whole lines rather than a
	// string, such a reference must be the entirety of the line's
	// template (it cannot sit inline alongside literal text).
	if len(cl.Template) != 1 {
		return nil, axerr.New(axerr.BrokenReference, "a <scripts::X> reference must be the entire command line, not mixed with other tokens")
	}
	ref := cl.Template[0]
	return spliceScript(ref.ScriptName, p, view, res, stack)
}

func spliceScript(name string, p ast.Platform, view View, res Resolver, stack map[string]bool) ([]ast.CommandLine, error) {
	if stack[name] {
		return nil, axerr.New(axerr.CycleDetected, fmt.Sprintf("script %q references itself through <scripts::...>", name))
	}
	task, ok := view.ScriptTask(name)
	if !ok {
		return nil, axerr.New(axerr.BrokenReference, fmt.Sprintf("unknown script %q referenced via <scripts::...>", name))
	}
	stack[name] = true
	defer delete(stack, name)
	return specializeTask(task, p, view, res, stack)
}

// inlineVars walks tmpl replacing every <vars::X> component with a
// Literal carrying its rendered value; <run::X> script references
// inside a Run spec are left untouched for the executor to resolve
// (running a subcommand is an execute-time effect, not a compile-time
// splice).
func inlineVars(tmpl ast.Template, p ast.Platform, view View, res Resolver, stack map[string]bool) (ast.Template, error) {
	out := make(ast.Template, 0, len(tmpl))
	for _, c := range tmpl {
		if c.Kind != ast.CVar {
			out = append(out, c)
			continue
		}
		rendered, err := renderVar(c.VarName, p, view, res, stack)
		if err != nil {
			return nil, err
		}
		out = append(out, ast.TemplateComponent{Kind: ast.CLiteral, Literal: rendered})
	}
	return out, nil
}

func renderVar(name string, p ast.Platform, view View, res Resolver, stack map[string]bool) (string, error) {
	key := "vars::" + name
	if stack[key] {
		return "", axerr.New(axerr.CycleDetected, fmt.Sprintf("variable %q references itself", name))
	}
	cv, ok := view.VarValue(name)
	if !ok {
		return "", axerr.New(axerr.BrokenReference, fmt.Sprintf("unknown variable %q referenced via <vars::...>", name))
	}
	branch := ast.PlatformExecution(cv).Branch(p)
	if len(branch) == 0 {
		return "", nil
	}

	stack[key] = true
	defer delete(stack, key)

	tmpl, err := inlineVars(branch[0].Template, p, view, res, stack)
	if err != nil {
		return "", err
	}
	return renderMetadataOnly(tmpl, res)
}

// renderMetadataOnly renders a fully-inlined template (no remaining
// Var/Script references) to a string using only metadata tokens and
// literals — the subset of rendering a variable's value can legally
// contain. Parameter/GenericParams/Run are rendered as empty since a
// variable body is not itself an executable command line; if a user
// writes one of those inside a variable it simply contributes nothing,
// which keeps this function total rather than introducing a new error
// kind the spec does not define.
func renderMetadataOnly(tmpl ast.Template, res Resolver) (string, error) {
	var out []byte
	for _, c := range tmpl {
		switch c.Kind {
		case ast.CLiteral:
			out = append(out, c.Literal...)
		case ast.CPath:
			out = append(out, res.Path()...)
		case ast.CName:
			out = append(out, res.Name()...)
		case ast.CUUID:
			out = append(out, res.UUID()...)
		case ast.CVersion:
			out = append(out, res.Version()...)
		case ast.CColor:
			out = append(out, ast.ANSIColor(c.Color)...)
		}
	}
	return string(out), nil
}
