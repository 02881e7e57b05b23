// Package args implements C7: collecting the parameter contract a
// specialized task declares via <params::...> tokens, classifying and
// binding a process's CLI arguments against that contract, and handing
// the task executor a Resolution it can consult while rendering each
// command line.
package args

import (
	"strconv"

	"github.com/axesdev/axes/internal/script/ast"
)

// contractEntry is one canonical parameter slot collected from the
// specialized task's templates. Duplicate definitions of the same
// positional index or named flag collapse onto the first-seen entry —
// later occurrences still resolve to the same value (per §4.7, phase 1).
type contractEntry struct {
	def          ast.ParameterDef
	canonicalKey string
	hasGeneric   bool
}

func canonicalKeyFor(p ast.ParameterDef) string {
	if p.Kind == ast.Positional {
		return positionalKey(p.Index)
	}
	return namedKey(p.Name)
}

func positionalKey(i int) string   { return "P:" + strconv.Itoa(i) }
func namedKey(name string) string { return "N:" + name }

// Contract is the set of parameter slots a specialized task's templates
// declare, plus whether any template carries a bare <params> token.
type Contract struct {
	entries    []*contractEntry
	byKey      map[string]*contractEntry
	tokenToKey map[string]string // original_token -> canonical key
	hasGeneric bool
}

// CollectContract walks every CommandLine's Template in lines and
// gathers the parameter contract (§4.7 phase 1): one canonical entry per
// positional index or named flag, first occurrence wins, plus whether
// any template contains the generic <params> placeholder.
func CollectContract(lines []ast.CommandLine) *Contract {
	c := &Contract{
		byKey:      map[string]*contractEntry{},
		tokenToKey: map[string]string{},
	}
	for _, cl := range lines {
		for _, comp := range cl.Template {
			switch comp.Kind {
			case ast.CParameter:
				c.addParam(comp.Param)
			case ast.CGenericParams:
				c.hasGeneric = true
			}
		}
	}
	return c
}

func (c *Contract) addParam(p ast.ParameterDef) {
	if p.IsGeneric {
		c.hasGeneric = true
		return
	}
	key := canonicalKeyFor(p)
	if _, ok := c.byKey[key]; !ok {
		e := &contractEntry{def: p, canonicalKey: key}
		c.byKey[key] = e
		c.entries = append(c.entries, e)
	}
	c.tokenToKey[p.OriginalToken] = key
}
