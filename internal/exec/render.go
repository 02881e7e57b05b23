// Package exec implements C8: rendering a specialized, argument-bound
// task to concrete shell command strings and running them with the
// sequential/parallel/silent/ignore-error/echo semantics of §4.6, plus
// cross-platform process spawn and cooperative cancellation.
package exec

import (
	"context"
	"fmt"
	"strings"

	"github.com/axesdev/axes/internal/args"
	"github.com/axesdev/axes/internal/script/ast"
)

// Context carries the per-invocation metadata tokens and the bound
// argument resolution a rendered command line may reference.
type Context struct {
	Path    string
	Name    string
	UUID    string
	Version string
	Args    *args.Resolution
}

// ScriptLookup resolves a <run::X> reference to the already-specialized
// command lines of script X, so the executor can run them and capture
// their combined output. Supplied by the caller (the config loader plus
// specializer wired together) since C8 has no notion of a merged view
// on its own.
type ScriptLookup interface {
	SpecializeScript(name string) ([]ast.CommandLine, error)
}

// renderTemplate renders tmpl to its final string body. runCmd executes
// a literal <run('...')> command and returns its trimmed stdout; runRef
// does the same for a <run::X> script reference.
func renderTemplate(
	ctx context.Context,
	tmpl ast.Template,
	rc *Context,
	runCmd func(ctx context.Context, literal string) (string, error),
	runRef func(ctx context.Context, name string) (string, error),
) (string, error) {
	var b strings.Builder
	for _, c := range tmpl {
		switch c.Kind {
		case ast.CLiteral:
			b.WriteString(c.Literal)
		case ast.CPath:
			b.WriteString(rc.Path)
		case ast.CName:
			b.WriteString(rc.Name)
		case ast.CUUID:
			b.WriteString(rc.UUID)
		case ast.CVersion:
			b.WriteString(rc.Version)
		case ast.CColor:
			b.WriteString(ast.ANSIColor(c.Color))
		case ast.CParameter:
			v, err := rc.Args.Lookup(c.Param.OriginalToken)
			if err != nil {
				return "", err
			}
			b.WriteString(v)
		case ast.CGenericParams:
			b.WriteString(rc.Args.Generic())
		case ast.CRun:
			var out string
			var err error
			if c.Run.IsScriptRef {
				out, err = runRef(ctx, c.Run.ScriptName)
			} else {
				out, err = runCmd(ctx, c.Run.Literal)
			}
			if err != nil {
				return "", err
			}
			b.WriteString(out)
		default:
			return "", fmt.Errorf("exec: template still contains an unresolved %v component after specialization", c.Kind)
		}
	}
	return b.String(), nil
}

// renderLine renders a single CommandLine's body, appending the
// passthrough argv string when the line carries the `$` prefix (§4.7:
// appended at the end, separated by one space only when the rendered
// body is non-empty).
func renderLine(
	ctx context.Context,
	cl ast.CommandLine,
	rc *Context,
	runCmd func(ctx context.Context, literal string) (string, error),
	runRef func(ctx context.Context, name string) (string, error),
) (string, error) {
	body, err := renderTemplate(ctx, cl.Template, rc, runCmd, runRef)
	if err != nil {
		return "", err
	}
	if cl.Prefixes.PassthroughArgs {
		if pt := rc.Args.Generic(); pt != "" {
			if body != "" {
				body += " "
			}
			body += pt
		}
	}
	return body, nil
}
