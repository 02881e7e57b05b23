package jit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/script/ast"
)

type fakeView struct {
	scripts map[string]ast.Task
	vars    map[string]ast.CompiledValue
}

func (v fakeView) ScriptTask(name string) (ast.Task, bool) { t, ok := v.scripts[name]; return t, ok }
func (v fakeView) VarValue(name string) (ast.CompiledValue, bool) {
	c, ok := v.vars[name]
	return c, ok
}

type fakeResolver struct {
	path, name, uuid, version string
}

func (r fakeResolver) Path() string    { return r.path }
func (r fakeResolver) Name() string    { return r.name }
func (r fakeResolver) UUID() string    { return r.uuid }
func (r fakeResolver) Version() string { return r.version }
func (r fakeResolver) Lookup(string) (string, error) { return "", nil }
func (r fakeResolver) Generic() string { return "" }

func lineTask(lit string) ast.Task {
	return ast.Task{{Default: []ast.CommandLine{{Template: ast.Template{{Kind: ast.CLiteral, Literal: lit}}}}}}
}

func TestSpecialize_UsesDefaultWhenNoPlatformBranch(t *testing.T) {
	task := lineTask("echo hello")
	out, err := Specialize(task, ast.Windows, fakeView{}, fakeResolver{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "echo hello", out[0].Template[0].Literal)
}

func TestSpecialize_PicksMatchingOSBranch(t *testing.T) {
	task := ast.Task{{
		Windows: []ast.CommandLine{{Template: ast.Template{{Kind: ast.CLiteral, Literal: "start http://x"}}}},
		Linux:   []ast.CommandLine{{Template: ast.Template{{Kind: ast.CLiteral, Literal: "xdg-open http://x"}}}},
		MacOS:   []ast.CommandLine{{Template: ast.Template{{Kind: ast.CLiteral, Literal: "open http://x"}}}},
	}}
	out, err := Specialize(task, ast.Linux, fakeView{}, fakeResolver{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "xdg-open http://x", out[0].Template[0].Literal)
}

func TestSpecialize_EmptyWhenNoBranchAndNoDefault(t *testing.T) {
	task := ast.Task{{Windows: []ast.CommandLine{{Template: ast.Template{{Kind: ast.CLiteral, Literal: "x"}}}}}}
	out, err := Specialize(task, ast.Linux, fakeView{}, fakeResolver{})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestSpecialize_InlinesVar(t *testing.T) {
	view := fakeView{vars: map[string]ast.CompiledValue{
		"greeting": {Default: []ast.CommandLine{{Template: ast.Template{{Kind: ast.CLiteral, Literal: "hello"}}}}},
	}}
	task := ast.Task{{Default: []ast.CommandLine{{Template: ast.Template{
		{Kind: ast.CLiteral, Literal: "echo "},
		{Kind: ast.CVar, VarName: "greeting"},
	}}}}}
	out, err := Specialize(task, ast.Linux, view, fakeResolver{})
	require.NoError(t, err)
	require.Len(t, out[0].Template, 2)
	require.Equal(t, "hello", out[0].Template[1].Literal)
}

func TestSpecialize_BrokenVarReferenceFails(t *testing.T) {
	task := ast.Task{{Default: []ast.CommandLine{{Template: ast.Template{{Kind: ast.CVar, VarName: "missing"}}}}}}
	_, err := Specialize(task, ast.Linux, fakeView{}, fakeResolver{})
	require.True(t, axerr.Is(err, axerr.BrokenReference))
}

func TestSpecialize_SplicesScriptReference(t *testing.T) {
	view := fakeView{scripts: map[string]ast.Task{
		"helper": lineTask("echo from-helper"),
	}}
	task := ast.Task{{Default: []ast.CommandLine{{Template: ast.Template{{Kind: ast.CScript, ScriptName: "helper"}}}}}}
	out, err := Specialize(task, ast.Linux, view, fakeResolver{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "echo from-helper", out[0].Template[0].Literal)
}

func TestSpecialize_SelfReferencingScriptCycleFails(t *testing.T) {
	view := fakeView{scripts: map[string]ast.Task{}}
	selfTask := ast.Task{{Default: []ast.CommandLine{{Template: ast.Template{{Kind: ast.CScript, ScriptName: "self"}}}}}}
	view.scripts["self"] = selfTask

	_, err := Specialize(view.scripts["self"], ast.Linux, view, fakeResolver{})
	require.True(t, axerr.Is(err, axerr.CycleDetected))
}

func TestSpecialize_BrokenScriptReferenceFails(t *testing.T) {
	task := ast.Task{{Default: []ast.CommandLine{{Template: ast.Template{{Kind: ast.CScript, ScriptName: "missing"}}}}}}
	_, err := Specialize(task, ast.Linux, fakeView{}, fakeResolver{})
	require.True(t, axerr.Is(err, axerr.BrokenReference))
}

func TestSpecialize_PrefixesStayWithOwnLine(t *testing.T) {
	view := fakeView{scripts: map[string]ast.Task{
		"helper": {{Default: []ast.CommandLine{{
			Prefixes: ast.Prefixes{IgnoreErrors: true},
			Template: ast.Template{{Kind: ast.CLiteral, Literal: "echo helper"}},
		}}}},
	}}
	callSite := ast.Task{{Default: []ast.CommandLine{{
		Prefixes: ast.Prefixes{Silent: true},
		Template: ast.Template{{Kind: ast.CScript, ScriptName: "helper"}},
	}}}}
	out, err := Specialize(callSite, ast.Linux, view, fakeResolver{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, out[0].Prefixes.IgnoreErrors)
	require.False(t, out[0].Prefixes.Silent)
}
