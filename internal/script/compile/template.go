package compile

import (
	"strconv"
	"strings"

	"github.com/axesdev/axes/internal/axerr"
	"github.com/axesdev/axes/internal/script/ast"
)

// compileCommandLine parses one raw command-line string into an
// ast.CommandLine: a leading prefix-character run (§4.5) followed by a
// tokenized template.
func compileCommandLine(scriptName string, line string) (ast.CommandLine, error) {
	prefixes, rest, err := parsePrefixes(scriptName, line)
	if err != nil {
		return ast.CommandLine{}, err
	}
	tmpl, err := tokenize(scriptName, rest)
	if err != nil {
		return ast.CommandLine{}, err
	}
	return ast.CommandLine{Prefixes: prefixes, Template: tmpl}, nil
}

// parsePrefixes scans the leading byte run for prefix characters in any
// order, stopping at the first non-prefix character or the explicit
// terminator "|" (which is consumed).
func parsePrefixes(scriptName, line string) (ast.Prefixes, string, error) {
	var p ast.Prefixes
	i := 0
	for i < len(line) {
		c := line[i]
		switch c {
		case '-':
			p.IgnoreErrors = true
		case '>':
			p.Parallel = true
		case '@':
			p.Silent = true
		case '#':
			p.Echo = true
		case '$':
			p.PassthroughArgs = true
		case '|':
			i++
			return p, line[i:], nil
		default:
			return p, line[i:], nil
		}
		i++
	}
	return p, line[i:], nil
}

// tokenize walks body recognizing the closed <...> grammar of §4.5.
// Anything outside a <...> span is a Literal. "\<" escapes a literal
// "<".
func tokenize(scriptName, body string) (ast.Template, error) {
	var tmpl ast.Template
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			tmpl = append(tmpl, ast.TemplateComponent{Kind: ast.CLiteral, Literal: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(body) {
		switch {
		case body[i] == '\\' && i+1 < len(body) && body[i+1] == '<':
			lit.WriteByte('<')
			i += 2
		case body[i] == '<':
			end := strings.IndexByte(body[i:], '>')
			if end < 0 {
				return nil, axerr.New(axerr.MalformedToken, "unterminated token").WithScript(scriptName, 0).WithToken(body[i:])
			}
			raw := body[i : i+end+1]
			flush()
			comp, err := parseToken(scriptName, raw, i)
			if err != nil {
				return nil, err
			}
			tmpl = append(tmpl, comp)
			i += end + 1
		default:
			lit.WriteByte(body[i])
			i++
		}
	}
	flush()
	return tmpl, nil
}

// parseToken parses one <...> token (inner without the angle brackets)
// against the closed vocabulary of §4.5.
func parseToken(scriptName, raw string, offset int) (ast.TemplateComponent, error) {
	inner := raw[1 : len(raw)-1]

	switch inner {
	case "path":
		return ast.TemplateComponent{Kind: ast.CPath}, nil
	case "name":
		return ast.TemplateComponent{Kind: ast.CName}, nil
	case "uuid":
		return ast.TemplateComponent{Kind: ast.CUUID}, nil
	case "version":
		return ast.TemplateComponent{Kind: ast.CVersion}, nil
	case "params":
		return ast.TemplateComponent{Kind: ast.CGenericParams}, nil
	}

	if strings.HasPrefix(inner, "#") {
		return ast.TemplateComponent{Kind: ast.CColor, Color: inner[1:]}, nil
	}
	if strings.HasPrefix(inner, "vars::") {
		return ast.TemplateComponent{Kind: ast.CVar, VarName: strings.TrimPrefix(inner, "vars::")}, nil
	}
	if strings.HasPrefix(inner, "scripts::") {
		return ast.TemplateComponent{Kind: ast.CScript, ScriptName: strings.TrimPrefix(inner, "scripts::")}, nil
	}
	if strings.HasPrefix(inner, "run(") && strings.HasSuffix(inner, ")") {
		lit, ok := parseQuotedArg(inner[len("run(") : len(inner)-1])
		if !ok {
			return ast.TemplateComponent{}, malformed(scriptName, raw, offset)
		}
		return ast.TemplateComponent{Kind: ast.CRun, Run: ast.RunSpec{Literal: lit}}, nil
	}
	if strings.HasPrefix(inner, "run::") {
		return ast.TemplateComponent{Kind: ast.CRun, Run: ast.RunSpec{IsScriptRef: true, ScriptName: strings.TrimPrefix(inner, "run::")}}, nil
	}
	if strings.HasPrefix(inner, "params::") {
		def, err := parseParam(scriptName, raw, offset, strings.TrimPrefix(inner, "params::"))
		if err != nil {
			return ast.TemplateComponent{}, err
		}
		return ast.TemplateComponent{Kind: ast.CParameter, Param: def}, nil
	}

	return ast.TemplateComponent{}, malformed(scriptName, raw, offset)
}

func malformed(scriptName, raw string, offset int) error {
	return axerr.New(axerr.MalformedToken, "unrecognized token at byte offset "+strconv.Itoa(offset)).WithScript(scriptName, 0).WithToken(raw)
}

// parseQuotedArg extracts the single-quoted argument of run('...').
func parseQuotedArg(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// parseParam parses the body after "params::" — an index or name,
// optionally followed by a parenthesized, comma-separated modifier list.
func parseParam(scriptName, raw string, offset int, rest string) (ast.ParameterDef, error) {
	def := ast.ParameterDef{OriginalToken: raw}

	head := rest
	var modBody string
	hasMods := false
	if idx := strings.IndexByte(rest, '('); idx >= 0 {
		if !strings.HasSuffix(rest, ")") {
			return ast.ParameterDef{}, malformed(scriptName, raw, offset)
		}
		head = rest[:idx]
		modBody = rest[idx+1 : len(rest)-1]
		hasMods = true
	}

	head = strings.TrimSpace(head)
	if idx, err := strconv.Atoi(head); err == nil {
		def.Kind = ast.Positional
		def.Index = idx
	} else {
		def.Kind = ast.Named
		def.Name = head
	}

	if hasMods {
		if err := applyModifiers(scriptName, raw, offset, &def, modBody); err != nil {
			return ast.ParameterDef{}, err
		}
	}
	return def, nil
}

func applyModifiers(scriptName, raw string, offset int, def *ast.ParameterDef, body string) error {
	for _, part := range splitTopLevelCommas(body) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch {
		case part == "required":
			def.Required = true
		case part == "literal":
			def.Literal = true
		case strings.HasPrefix(part, "default="):
			v, ok := parseQuotedArg(strings.TrimPrefix(part, "default="))
			if !ok {
				return malformed(scriptName, raw, offset)
			}
			def.HasDefault = true
			def.Default = v
		case strings.HasPrefix(part, "alias="):
			v, ok := parseQuotedArg(strings.TrimPrefix(part, "alias="))
			if !ok {
				return malformed(scriptName, raw, offset)
			}
			def.Alias = v
		case strings.HasPrefix(part, "map="):
			v, ok := parseQuotedArg(strings.TrimPrefix(part, "map="))
			if !ok {
				return malformed(scriptName, raw, offset)
			}
			def.Map = v
		default:
			return malformed(scriptName, raw, offset)
		}
	}
	return nil
}

func splitTopLevelCommas(s string) []string {
	var out []string
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
