package compile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/script/ast"
)

// compileValue compiles one `vars` entry. A Value never carries
// command-line prefixes (ignore-errors, parallel, ...) since it is never
// executed on its own — it inlines into a string at flatten time — so
// its lines are tokenized directly without the §4.5 prefix scan.
func compileValue(name string, node *yaml.Node) (ast.CompiledValue, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		tmpl, err := tokenize(name, node.Value)
		if err != nil {
			return ast.CompiledValue{}, err
		}
		return ast.CompiledValue{Default: []ast.CommandLine{{Template: tmpl}}}, nil

	case yaml.MappingNode:
		pairs, err := mappingPairs(node)
		if err != nil {
			return ast.CompiledValue{}, err
		}
		var cv ast.CompiledValue
		for _, p := range pairs {
			key := p.key.Value
			if !tableValueKeys[key] {
				return ast.CompiledValue{}, axerr.New(axerr.ConfigParseError, fmt.Sprintf("unknown var table key %q", key)).WithScript(name, 0)
			}
			if key == "desc" {
				continue
			}
			if p.val.Kind != yaml.ScalarNode {
				return ast.CompiledValue{}, axerr.New(axerr.ConfigParseError, "variable platform overrides must be strings").WithScript(name, 0)
			}
			tmpl, err := tokenize(name, p.val.Value)
			if err != nil {
				return ast.CompiledValue{}, err
			}
			line := ast.CommandLine{Template: tmpl}
			switch key {
			case "windows":
				cv.Windows = []ast.CommandLine{line}
			case "macos":
				cv.MacOS = []ast.CommandLine{line}
			case "linux":
				cv.Linux = []ast.CommandLine{line}
			case "default":
				cv.Default = []ast.CommandLine{line}
			}
		}
		return cv, nil

	default:
		return ast.CompiledValue{}, axerr.New(axerr.ConfigParseError, "variable must be a string or a per-platform table").WithScript(name, 0)
	}
}
