package compile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/script/ast"
)

// compileScript compiles one `scripts` (or hook) entry's flexible node
// into a single-block Task. No later stage builds multi-block Tasks: at
// flatten time <scripts::X> references are spliced in as a flat list of
// command lines (see internal/script/jit).
func compileScript(name string, node *yaml.Node) (ast.Task, error) {
	pe, err := compileScriptShape(name, node)
	if err != nil {
		return nil, err
	}
	return ast.Task{pe}, nil
}

func compileScriptShape(name string, node *yaml.Node) (ast.PlatformExecution, error) {
	var pe ast.PlatformExecution

	switch node.Kind {
	case yaml.ScalarNode:
		line, err := compileCommandLine(name, node.Value)
		if err != nil {
			return pe, err
		}
		pe.Default = []ast.CommandLine{line}
		return pe, nil

	case yaml.SequenceNode:
		lines, err := compileLineSequence(name, node)
		if err != nil {
			return pe, err
		}
		pe.Default = lines
		return pe, nil

	case yaml.MappingNode:
		pairs, err := mappingPairs(node)
		if err != nil {
			return pe, err
		}
		var defaultSet bool
		for _, p := range pairs {
			key := p.key.Value
			if !tableScriptKeys[key] {
				return pe, axerr.New(axerr.ConfigParseError, fmt.Sprintf("unknown script table key %q", key)).WithScript(name, 0)
			}
			switch key {
			case "desc":
				// Documentation only; not retained in the compiled AST.
			case "run":
				lines, err := compileLines(name, p.val)
				if err != nil {
					return pe, err
				}
				if !defaultSet {
					pe.Default = lines
				}
			case "default":
				lines, err := compileLines(name, p.val)
				if err != nil {
					return pe, err
				}
				pe.Default = lines
				defaultSet = true
			case "windows":
				lines, err := compileLines(name, p.val)
				if err != nil {
					return pe, err
				}
				pe.Windows = lines
			case "macos":
				lines, err := compileLines(name, p.val)
				if err != nil {
					return pe, err
				}
				pe.MacOS = lines
			case "linux":
				lines, err := compileLines(name, p.val)
				if err != nil {
					return pe, err
				}
				pe.Linux = lines
			}
		}
		return pe, nil

	default:
		return pe, axerr.New(axerr.ConfigParseError, "script must be a string, sequence, or table").WithScript(name, 0)
	}
}

// compileLines accepts either a scalar (single line) or sequence
// (multiple lines) node and compiles each into an ast.CommandLine.
func compileLines(scriptName string, node *yaml.Node) ([]ast.CommandLine, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		line, err := compileCommandLine(scriptName, node.Value)
		if err != nil {
			return nil, err
		}
		return []ast.CommandLine{line}, nil
	case yaml.SequenceNode:
		return compileLineSequence(scriptName, node)
	default:
		return nil, axerr.New(axerr.ConfigParseError, "expected a string or sequence of strings").WithScript(scriptName, 0)
	}
}

func compileLineSequence(scriptName string, node *yaml.Node) ([]ast.CommandLine, error) {
	lines := make([]ast.CommandLine, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, axerr.New(axerr.ConfigParseError, "sequence entries must be strings").WithScript(scriptName, 0)
		}
		line, err := compileCommandLine(scriptName, item.Value)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}
