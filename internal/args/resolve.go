package args

import (
	"fmt"
	"strings"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/script/ast"
)

// Resolution is the bound result of matching a process's CLI argv
// against a task's parameter Contract: a value for every declared
// parameter plus, when the contract declares a bare <params> token, the
// ordered leftover arguments the task executor renders as <params>.
type Resolution struct {
	values     map[string]string
	tokenToKey map[string]string
	generic    []string
}

// Lookup returns the resolved value for a parameter identified by its
// original token text (ast.ParameterDef.OriginalToken). Every token the
// task executor encounters while rendering a Parameter component comes
// from the same contract this Resolution was built against, so an
// unknown token here means the executor and resolver disagree about
// which task they're rendering — an invariant violation, not a
// user-facing failure mode.
func (r *Resolution) Lookup(originalToken string) (string, error) {
	key, ok := r.tokenToKey[originalToken]
	if !ok {
		return "", fmt.Errorf("args: parameter token %q is not part of the resolved contract", originalToken)
	}
	v, ok := r.values[key]
	if !ok {
		return "", fmt.Errorf("args: parameter token %q resolved to no value", originalToken)
	}
	return v, nil
}

// Generic renders the leftover arguments captured by a bare <params>
// token as a single space-joined string.
func (r *Resolution) Generic() string {
	return strings.Join(r.generic, " ")
}

// Passthrough returns the leftover arguments as a slice, for callers
// (the passthrough-args command-line prefix) that need to forward them
// to a child process without going through shell re-joining.
func (r *Resolution) Passthrough() []string {
	out := make([]string, len(r.generic))
	copy(out, r.generic)
	return out
}

type suppliedVia struct {
	byName  bool
	byAlias bool
	rawName string
	value   string
}

// Resolve runs all five phases of §4.7 against argv: collect the
// contract from lines, classify argv into flag and positional tokens,
// validate (alias conflicts, missing required parameters), bind values
// (CLI input, falling back to declared defaults, applying map/literal
// modifiers), and route anything left over either into the generic
// <params> bucket or, if the contract declares no such token, into an
// UnexpectedArguments failure.
func Resolve(lines []ast.CommandLine, argv []string) (*Resolution, error) {
	contract := CollectContract(lines)

	named := map[string]*suppliedVia{}
	positional := map[int]string{}
	var positionalRaw []string
	var leftover []string

	allPositional := false
	for i := 0; i < len(argv); i++ {
		tok := argv[i]

		if !allPositional && tok == "--" {
			allPositional = true
			continue
		}

		if !allPositional && strings.HasPrefix(tok, "--") && len(tok) > 2 {
			name, value, hasValue := splitFlag(tok[2:])
			entry, ok := contract.byKey[namedKey(name)]
			if !ok {
				leftover = append(leftover, tok)
				continue
			}
			if !hasValue {
				if i+1 < len(argv) && !looksLikeFlag(argv[i+1]) {
					value = argv[i+1]
					i++
				}
			}
			recordNamed(named, entry, "--"+name, value, false)
			continue
		}

		if !allPositional && looksLikeFlag(tok) {
			aliasRaw, value, hasValue := splitFlag(tok)
			entry := findByAlias(contract, aliasRaw)
			if entry == nil {
				leftover = append(leftover, tok)
				continue
			}
			if !hasValue {
				if i+1 < len(argv) && !looksLikeFlag(argv[i+1]) {
					value = argv[i+1]
					i++
				}
			}
			recordNamed(named, entry, aliasRaw, value, true)
			continue
		}

		positionalRaw = append(positionalRaw, tok)
	}

	for idx, v := range positionalRaw {
		matched := false
		for _, e := range contract.entries {
			if e.def.Kind == ast.Positional && e.def.Index == idx {
				positional[idx] = v
				matched = true
				break
			}
		}
		if !matched {
			leftover = append(leftover, v)
		}
	}

	// Phase 3: validate.
	for _, e := range contract.entries {
		if e.def.Kind == ast.Named {
			if v, ok := named[e.canonicalKey]; ok && v.byName && v.byAlias {
				return nil, axerr.New(axerr.AliasConflict, fmt.Sprintf("parameter %q supplied both by name and by alias", e.def.Name))
			}
		}
	}
	for _, e := range contract.entries {
		if !e.def.Required {
			continue
		}
		if e.def.HasDefault {
			continue
		}
		satisfied := false
		switch e.def.Kind {
		case ast.Positional:
			_, satisfied = positional[e.def.Index]
		case ast.Named:
			_, satisfied = named[e.canonicalKey]
		}
		if !satisfied {
			return nil, axerr.New(axerr.MissingRequired, fmt.Sprintf("missing required parameter %q", paramLabel(e.def)))
		}
	}

	// Phase 4: bind.
	values := map[string]string{}
	for _, e := range contract.entries {
		var v string
		switch e.def.Kind {
		case ast.Positional:
			if got, ok := positional[e.def.Index]; ok {
				v = got
			} else if e.def.HasDefault {
				v = e.def.Default
			}
		case ast.Named:
			if got, ok := named[e.canonicalKey]; ok {
				v = got.value
			} else if e.def.HasDefault {
				v = e.def.Default
			}
		}
		if e.def.Map != "" {
			v = e.def.Map + v
		}
		if e.def.Literal {
			v = `"` + v + `"`
		}
		values[e.canonicalKey] = v
	}

	// Phase 5: leftovers.
	if len(leftover) > 0 && !contract.hasGeneric {
		return nil, axerr.New(axerr.UnexpectedArguments, fmt.Sprintf("unexpected arguments: %s", strings.Join(leftover, " ")))
	}

	return &Resolution{
		values:     values,
		tokenToKey: contract.tokenToKey,
		generic:    leftover,
	}, nil
}

func paramLabel(p ast.ParameterDef) string {
	if p.Kind == ast.Named {
		return p.Name
	}
	return fmt.Sprintf("positional #%d", p.Index)
}

func recordNamed(named map[string]*suppliedVia, e *contractEntry, rawName, value string, byAlias bool) {
	v, ok := named[e.canonicalKey]
	if !ok {
		v = &suppliedVia{}
		named[e.canonicalKey] = v
	}
	v.value = value
	v.rawName = rawName
	if byAlias {
		v.byAlias = true
	} else {
		v.byName = true
	}
}

// splitFlag splits a flag token's text (without its leading dashes, for
// the long form, or with them, for the alias form) on its first `=`.
func splitFlag(s string) (name, value string, hasValue bool) {
	if idx := strings.IndexByte(s, '='); idx >= 0 {
		return s[:idx], s[idx+1:], true
	}
	return s, "", false
}

// looksLikeFlag reports whether tok should be classified as a flag
// rather than a positional or flag-value argument: a dash-prefixed
// token that isn't exactly "-" and doesn't look like a negative number.
func looksLikeFlag(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	if tok[1] >= '0' && tok[1] <= '9' {
		return false
	}
	return true
}

func findByAlias(c *Contract, alias string) *contractEntry {
	for _, e := range c.entries {
		if e.def.Kind == ast.Named && e.def.Alias != "" && e.def.Alias == alias {
			return e
		}
	}
	return nil
}
