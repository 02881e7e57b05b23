package layer

import "github.com/axesdev/axes/internal/script/ast"

// View is the merged, memoized result of combining a project's
// ancestry chain of CompiledLayers (§4.4). It satisfies jit.View
// directly, so a loaded View can be handed straight to the specializer.
type View struct {
	env         map[string]string
	vars        map[string]ast.CompiledValue
	scripts     map[string]ast.Task
	openWith    map[string]ast.Task
	atStart     ast.Task
	hasAtStart  bool
	atExit      ast.Task
	hasAtExit   bool
	description string
	version     string
}

// Merge combines layers, ordered root-first to target-last, applying
// §4.4's rules: env/vars/scripts/open_with extend with child keys
// overriding parent keys; description/version are child-or-parent;
// at_start/at_exit are replaced wholesale by the nearest descendant
// that sets them, never composed.
func Merge(layers []*ast.CompiledLayer) *View {
	v := &View{
		env:      map[string]string{},
		vars:     map[string]ast.CompiledValue{},
		scripts:  map[string]ast.Task{},
		openWith: map[string]ast.Task{},
	}
	for _, l := range layers {
		if l == nil {
			continue
		}
		for k, val := range l.Env {
			v.env[k] = val
		}
		for k, val := range l.Vars {
			v.vars[k] = val
		}
		for k, val := range l.Scripts {
			v.scripts[k] = val
		}
		for k, val := range l.OpenWith {
			v.openWith[k] = val
		}
		if l.Description != "" {
			v.description = l.Description
		}
		if l.Version != "" {
			v.version = l.Version
		}
		if l.HasAtStart {
			v.atStart = l.AtStart
			v.hasAtStart = true
		}
		if l.HasAtExit {
			v.atExit = l.AtExit
			v.hasAtExit = true
		}
	}
	return v
}

// Env returns the merged environment map. Callers must treat it as
// read-only; it is shared, not copied, since a View is immutable once
// built.
func (v *View) Env() map[string]string { return v.env }

func (v *View) Description() string { return v.description }
func (v *View) Version() string     { return v.version }

func (v *View) AtStart() (ast.Task, bool) { return v.atStart, v.hasAtStart }
func (v *View) AtExit() (ast.Task, bool)  { return v.atExit, v.hasAtExit }

// ScriptTask implements jit.View.
func (v *View) ScriptTask(name string) (ast.Task, bool) {
	t, ok := v.scripts[name]
	return t, ok
}

// VarValue implements jit.View.
func (v *View) VarValue(name string) (ast.CompiledValue, bool) {
	cv, ok := v.vars[name]
	return cv, ok
}

// OpenWith returns the handler task registered for name, or the
// default handler (stored under the empty string key) when name is
// empty.
func (v *View) OpenWith(name string) (ast.Task, bool) {
	t, ok := v.openWith[name]
	return t, ok
}
