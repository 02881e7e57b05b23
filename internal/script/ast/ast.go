// Package ast defines the universal, platform-aware intermediate
// representation that C5 compiles user syntax into and C6 specializes:
// CompiledLayer, Task, PlatformExecution, CommandLine, Template and its
// components. Every type here is gob-serializable so a CompiledLayer can
// be written to the on-disk compiled-layer cache.
package ast

// Platform identifies one of the three OS branches a PlatformExecution
// may carry, or the platform-agnostic default.
type Platform string

const (
	Windows Platform = "windows"
	MacOS   Platform = "macos"
	Linux   Platform = "linux"
	Default Platform = "default"
)

// ANSIColor renders a <#code> color token to its ANSI escape sequence.
func ANSIColor(code string) string {
	return "\x1b[" + code + "m"
}

// CurrentPlatform maps a Go GOOS value to the Platform the compiler and
// specializer use.
func CurrentPlatform(goos string) Platform {
	switch goos {
	case "windows":
		return Windows
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Default
	}
}

// Prefixes are the per-command-line flags parsed from the leading
// prefix-character run (§4.5).
type Prefixes struct {
	IgnoreErrors    bool
	Parallel        bool
	Silent          bool
	Echo            bool
	PassthroughArgs bool
}

// CommandLine is one rendered line of shell text: its prefixes plus the
// token stream that produces its body.
type CommandLine struct {
	Prefixes Prefixes
	Template Template
}

// Template is an ordered token stream.
type Template []TemplateComponent

// ComponentKind discriminates the TemplateComponent union.
type ComponentKind int

const (
	CLiteral ComponentKind = iota
	CPath
	CName
	CUUID
	CVersion
	CColor
	CVar
	CScript
	CRun
	CParameter
	CGenericParams
)

// TemplateComponent is one token of a Template. Only the field matching
// Kind is meaningful; this is a tagged union rather than an interface so
// the whole thing round-trips through gob without registration.
type TemplateComponent struct {
	Kind ComponentKind

	Literal string // CLiteral
	Color   string // CColor: ANSI code

	VarName    string // CVar
	ScriptName string // CScript

	Run RunSpec // CRun

	Param ParameterDef // CParameter
}

// RunSpec is the payload of a <run(...)> token: either a literal command
// string or a reference to another script, never both.
type RunSpec struct {
	Literal      string
	IsScriptRef  bool
	ScriptName   string
}

// ParamKind discriminates a ParameterDef between positional and named
// forms.
type ParamKind int

const (
	Positional ParamKind = iota
	Named
)

// ParameterDef describes one <params::...> placeholder.
type ParameterDef struct {
	OriginalToken string // the raw token text, for error messages

	Kind ParamKind

	Index int    // valid when Kind == Positional
	Name  string // valid when Kind == Named
	Alias string // valid when Kind == Named, may be empty

	Required bool
	HasDefault bool
	Default    string

	Map     string // literal prefix, concatenated with no inserted space
	Literal bool   // wrap resolved value in double quotes

	IsGeneric bool // true only for the bare <params> placeholder
}

// PlatformExecution holds the per-OS command-line branches compiled from
// a single Script value. A Script with no platform table populates only
// Default.
type PlatformExecution struct {
	Windows []CommandLine
	MacOS   []CommandLine
	Linux   []CommandLine
	Default []CommandLine
}

// Branch returns the branch for p, falling back to Default when p's own
// branch is not populated, and nil when neither is.
func (pe PlatformExecution) Branch(p Platform) []CommandLine {
	var b []CommandLine
	switch p {
	case Windows:
		b = pe.Windows
	case MacOS:
		b = pe.MacOS
	case Linux:
		b = pe.Linux
	}
	if len(b) == 0 {
		return pe.Default
	}
	return b
}

// Task is the compiled AST of a script: an ordered list of
// platform-tagged command-line groups.
type Task []PlatformExecution

// CompiledValue is the compiled form of a `vars` entry: identical shape
// to a single-command Task, since a variable inlines to a rendered
// string the same way a script splices to command lines.
type CompiledValue PlatformExecution

// CompiledLayer is the result of compiling one project's configuration
// file.
type CompiledLayer struct {
	Version     string
	Description string

	Env   map[string]string
	Vars  map[string]CompiledValue
	Scripts map[string]Task

	AtStart    Task
	HasAtStart bool
	AtExit     Task
	HasAtExit  bool

	// OpenWith maps handler name -> Task; the fallback handler (the
	// config file's `open_with.default`) is stored under the empty
	// string key.
	OpenWith map[string]Task

	// ConfigHash is the content hash of the source configuration file
	// this layer was compiled from (content-addressed cache key).
	ConfigHash string

	// DependencyFingerprint is a slot for the hashes of the ancestor
	// layers this layer was combined with. Nothing fills it in: Compile
	// works on one file at a time and the config loader does not set it
	// when merging, so it is always empty.
	DependencyFingerprint []string
}
