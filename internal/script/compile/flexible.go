// Package compile implements C5: the AOT compiler that turns a
// project's flexible user-authored configuration file into the
// canonical, platform-aware ast.CompiledLayer.
package compile

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/axesdev/axes/internal/axerr"
)

var topLevelKeys = map[string]bool{
	"version": true, "description": true, "env": true,
	"vars": true, "scripts": true, "options": true,
}

var optionsKeys = map[string]bool{
	"at_start": true, "at_exit": true, "open_with": true,
}

var tableScriptKeys = map[string]bool{
	"desc": true, "run": true, "windows": true, "macos": true, "linux": true, "default": true,
}

var tableValueKeys = map[string]bool{
	"windows": true, "macos": true, "linux": true, "default": true, "desc": true,
}

// rawConfig is the decoded shape of a configuration file before
// compilation: scalar metadata plus yaml.Node trees for every field
// whose shape is flexible (string / sequence / table).
type rawConfig struct {
	Version     string
	Description string
	Env         map[string]string
	Vars        map[string]*yaml.Node
	Scripts     map[string]*yaml.Node
	AtStart     *yaml.Node
	AtExit      *yaml.Node
	OpenWith    map[string]*yaml.Node
}

// parseRawConfig decodes the configuration file's top-level shape,
// rejecting unknown keys at every level per §6 ("Unknown keys should be
// rejected during parse").
func parseRawConfig(src []byte) (*rawConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, axerr.Wrap(axerr.ConfigParseError, "parse configuration YAML", err)
	}
	if len(doc.Content) == 0 {
		return &rawConfig{Env: map[string]string{}, Vars: map[string]*yaml.Node{}, Scripts: map[string]*yaml.Node{}, OpenWith: map[string]*yaml.Node{}}, nil
	}
	root := doc.Content[0]
	if root.Kind == 0 {
		return &rawConfig{Env: map[string]string{}, Vars: map[string]*yaml.Node{}, Scripts: map[string]*yaml.Node{}, OpenWith: map[string]*yaml.Node{}}, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, axerr.New(axerr.ConfigParseError, "configuration file must be a mapping at the top level")
	}

	cfg := &rawConfig{Env: map[string]string{}, Vars: map[string]*yaml.Node{}, Scripts: map[string]*yaml.Node{}, OpenWith: map[string]*yaml.Node{}}

	pairs, err := mappingPairs(root)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		key := p.key.Value
		if !topLevelKeys[key] {
			return nil, axerr.New(axerr.ConfigParseError, fmt.Sprintf("unknown top-level key %q", key))
		}
		switch key {
		case "version":
			if err := p.val.Decode(&cfg.Version); err != nil {
				return nil, axerr.Wrap(axerr.ConfigParseError, "decode version", err)
			}
		case "description":
			if err := p.val.Decode(&cfg.Description); err != nil {
				return nil, axerr.Wrap(axerr.ConfigParseError, "decode description", err)
			}
		case "env":
			if err := p.val.Decode(&cfg.Env); err != nil {
				return nil, axerr.Wrap(axerr.ConfigParseError, "decode env", err)
			}
		case "vars":
			m, err := nodeMap(p.val)
			if err != nil {
				return nil, err
			}
			cfg.Vars = m
		case "scripts":
			m, err := nodeMap(p.val)
			if err != nil {
				return nil, err
			}
			cfg.Scripts = m
		case "options":
			if err := parseOptions(p.val, cfg); err != nil {
				return nil, err
			}
		}
	}
	return cfg, nil
}

func parseOptions(n *yaml.Node, cfg *rawConfig) error {
	if n.Kind != yaml.MappingNode {
		return axerr.New(axerr.ConfigParseError, "options must be a mapping")
	}
	pairs, err := mappingPairs(n)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if !optionsKeys[p.key.Value] {
			return axerr.New(axerr.ConfigParseError, fmt.Sprintf("unknown options key %q", p.key.Value))
		}
		switch p.key.Value {
		case "at_start":
			cfg.AtStart = p.val
		case "at_exit":
			cfg.AtExit = p.val
		case "open_with":
			m, err := nodeMap(p.val)
			if err != nil {
				return err
			}
			cfg.OpenWith = m
		}
	}
	return nil
}

type kv struct {
	key *yaml.Node
	val *yaml.Node
}

// mappingPairs returns the key/value node pairs of a mapping node,
// failing ConfigParseError on a duplicate key.
func mappingPairs(n *yaml.Node) ([]kv, error) {
	if n.Kind != yaml.MappingNode {
		return nil, axerr.New(axerr.ConfigParseError, "expected a mapping")
	}
	seen := map[string]bool{}
	out := make([]kv, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		v := n.Content[i+1]
		if seen[k.Value] {
			return nil, axerr.New(axerr.ConfigParseError, fmt.Sprintf("duplicate key %q", k.Value))
		}
		seen[k.Value] = true
		out = append(out, kv{key: k, val: v})
	}
	return out, nil
}

// nodeMap decodes a mapping node into name -> node, preserving each
// value's original Node for later flexible-shape decoding.
func nodeMap(n *yaml.Node) (map[string]*yaml.Node, error) {
	pairs, err := mappingPairs(n)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*yaml.Node, len(pairs))
	for _, p := range pairs {
		out[p.key.Value] = p.val
	}
	return out, nil
}

// sortedKeys returns m's keys in sorted order, used anywhere iteration
// order must be deterministic (compile determinism, §8).
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
