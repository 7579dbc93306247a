// Package resolve turns the user's root arguments into the ordered,
// deduplicated list of candidate files every later stage consumes.
//
// Each argument is classified once: an existing file is taken literally, an
// existing directory is walked recursively, anything else with glob
// metacharacters is expanded, and the remainder warns. Explicit always beats
// implicit: a literal path inside an ignored directory is still included,
// while walks prune ignored directory names and wildcards never produce
// hidden ones. Nothing in this package is fatal; every anomaly becomes a
// Warning and resolution continues with the remaining arguments.
package resolve

import (
	"os"
	"strings"

	"github.com/standardbeagle/pf/pkg/pathutil"
)

// TypeFilter selects which discovered files survive resolution.
type TypeFilter int

const (
	// TypePython keeps only recognized source extensions (.py, .pyw).
	TypePython TypeFilter = iota
	// TypeAll keeps every file.
	TypeAll
)

// Candidate is one resolved file.
type Candidate struct {
	Display string // path exactly as supplied or discovered
	Key     string // spelling-insensitive identity (pathutil.Canonical)
	Python  bool   // recognized source extension
}

// WarningKind classifies a resolution anomaly.
type WarningKind int

const (
	// WarnFileNotFound reports a literal argument that does not exist.
	WarnFileNotFound WarningKind = iota
	// WarnGlobNoFiles reports a glob that matched nothing.
	WarnGlobNoFiles
)

// Warning is a recoverable resolution anomaly. Warnings are deduplicated by
// value, so one unproductive argument warns exactly once per run.
type Warning struct {
	Kind WarningKind
	Arg  string
}

// Message renders the warning body. The caller owns the "Warning: " prefix
// and the output stream.
func (w Warning) Message() string {
	switch w.Kind {
	case WarnFileNotFound:
		return "file not found: " + w.Arg
	case WarnGlobNoFiles:
		return "glob matched no files: " + w.Arg
	}
	return ""
}

// Options adjust resolution behavior.
type Options struct {
	Type        TypeFilter
	ExtraIgnore []string // directory basenames pruned in addition to the defaults
	Gitignore   bool     // honor the walked root's .gitignore
}

// Resolution is the resolver's complete output.
type Resolution struct {
	Files    []Candidate
	Warnings []Warning
}

// defaultIgnores are directory basenames pruned from walks and wildcard
// expansion at any depth. Exact segment match only: verify_venv or env2 are
// not ignored.
var defaultIgnores = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	".eggs":         {},
	"site-packages": {},
}

// PythonFile reports whether path carries a recognized source extension.
func PythonFile(path string) bool {
	return strings.HasSuffix(path, ".py") || strings.HasSuffix(path, ".pyw")
}

// Roots resolves the argument list in order. See the package comment for the
// classification rules.
func Roots(args []string, opts Options) Resolution {
	r := &resolver{
		opts:    opts,
		ignores: make(map[string]struct{}, len(defaultIgnores)+len(opts.ExtraIgnore)),
		seen:    make(map[string]struct{}),
		warned:  make(map[Warning]struct{}),
	}
	for name := range defaultIgnores {
		r.ignores[name] = struct{}{}
	}
	for _, name := range opts.ExtraIgnore {
		r.ignores[name] = struct{}{}
	}

	for _, arg := range args {
		r.resolveArg(arg)
	}
	return Resolution{Files: r.files, Warnings: r.warnings}
}

type resolver struct {
	opts    Options
	ignores map[string]struct{}
	seen    map[string]struct{} // canonical keys already emitted
	warned  map[Warning]struct{}

	files    []Candidate
	warnings []Warning
}

func (r *resolver) resolveArg(arg string) {
	// Existence beats glob syntax: a file literally named "x[1].py" is a
	// literal path, not a pattern.
	if fi, err := os.Stat(arg); err == nil {
		if fi.IsDir() {
			r.walk(arg)
		} else {
			r.addFile(arg)
		}
		return
	}
	if hasMeta(arg) {
		r.glob(arg)
		return
	}
	r.warn(Warning{Kind: WarnFileNotFound, Arg: arg})
}

// addFile records one candidate, applying the type filter and collapsing
// duplicate spellings of the same file. First occurrence wins.
func (r *resolver) addFile(display string) {
	python := PythonFile(display)
	if r.opts.Type == TypePython && !python {
		return
	}
	key := pathutil.Canonical(display)
	if _, dup := r.seen[key]; dup {
		return
	}
	r.seen[key] = struct{}{}
	r.files = append(r.files, Candidate{Display: display, Key: key, Python: python})
}

func (r *resolver) warn(w Warning) {
	if _, dup := r.warned[w]; dup {
		return
	}
	r.warned[w] = struct{}{}
	r.warnings = append(r.warnings, w)
}

func (r *resolver) ignored(name string) bool {
	_, ok := r.ignores[name]
	return ok
}

// hasMeta reports whether the argument contains glob syntax. The backslash
// counts because it escapes metacharacters inside patterns.
func hasMeta(arg string) bool {
	return strings.ContainsAny(arg, `*?[{\`)
}

// hidden reports whether a path segment starts with a dot. "." and ".."
// are path structure, not hidden names.
func hidden(seg string) bool {
	return strings.HasPrefix(seg, ".") && seg != "." && seg != ".."
}
