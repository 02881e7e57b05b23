package compile

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/axesdev/axes/internal/script/ast"
)

// ContentHash returns the content-address of a configuration file's raw
// bytes, used both as the compiled-layer cache key and as the stored
// per-project config_hash.
func ContentHash(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// Compile parses and compiles a project's configuration file source
// into an ast.CompiledLayer. It performs no merging and no reference
// resolution — those are the config loader's (C4) and specializer's
// (C6) jobs respectively.
func Compile(src []byte) (*ast.CompiledLayer, error) {
	raw, err := parseRawConfig(src)
	if err != nil {
		return nil, err
	}

	layer := &ast.CompiledLayer{
		Version:     raw.Version,
		Description: raw.Description,
		Env:         map[string]string{},
		Vars:        map[string]ast.CompiledValue{},
		Scripts:     map[string]ast.Task{},
		OpenWith:    map[string]ast.Task{},
		ConfigHash:  ContentHash(src),
	}

	for k, v := range raw.Env {
		layer.Env[k] = v
	}

	for _, name := range sortedKeys(raw.Vars) {
		cv, err := compileValue(name, raw.Vars[name])
		if err != nil {
			return nil, err
		}
		layer.Vars[name] = cv
	}

	for _, name := range sortedKeys(raw.Scripts) {
		task, err := compileScript(name, raw.Scripts[name])
		if err != nil {
			return nil, err
		}
		layer.Scripts[name] = task
	}

	if raw.AtStart != nil {
		task, err := compileScript("at_start", raw.AtStart)
		if err != nil {
			return nil, err
		}
		layer.AtStart = task
		layer.HasAtStart = true
	}
	if raw.AtExit != nil {
		task, err := compileScript("at_exit", raw.AtExit)
		if err != nil {
			return nil, err
		}
		layer.AtExit = task
		layer.HasAtExit = true
	}
	for _, name := range sortedKeys(raw.OpenWith) {
		task, err := compileScript("open_with."+name, raw.OpenWith[name])
		if err != nil {
			return nil, err
		}
		if name == "default" {
			layer.OpenWith[""] = task
		} else {
			layer.OpenWith[name] = task
		}
	}

	return layer, nil
}
