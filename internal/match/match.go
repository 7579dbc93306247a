// Package match evaluates one immutable criterion against the definitions
// extracted from a file. The criterion also knows which literal substring
// must appear in any file that can match, which powers both the parse fast
// path and the external prefilter.
package match

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/standardbeagle/pf/internal/pyscan"
)

// Mode selects how a criterion relates targets to definitions.
type Mode int

const (
	// ModeExact matches the bare or qualified name exactly.
	ModeExact Mode = iota
	// ModeRegex full-matches a pattern against bare or qualified names.
	ModeRegex
	// ModeAnchor matches a pattern against body lines and reports the
	// innermost enclosing definition.
	ModeAnchor
	// ModeList selects every definition.
	ModeList
)

// Criterion is the immutable matching input for a run.
type Criterion struct {
	Mode   Mode
	Target string // name, pattern source, or "" for list-all

	re         *regexp.Regexp
	literal    string
	hasLiteral bool
}

// Exact builds a criterion matching a bare or Class.name target.
func Exact(target string) *Criterion {
	c := &Criterion{Mode: ModeExact, Target: target}
	c.literal = lastComponent(target)
	c.hasLiteral = true
	return c
}

// Regex builds a full-match criterion over bare and qualified names.
func Regex(pattern string) (*Criterion, error) {
	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return nil, err
	}
	c := &Criterion{Mode: ModeRegex, Target: pattern, re: re}
	// A dotted literal is required in the qualified name, not in the file
	// text, so only dot-free literals are usable for skipping.
	if lit, ok := requiredLiteral(pattern); ok && !strings.ContainsRune(lit, '.') {
		c.literal, c.hasLiteral = lit, true
	}
	return c, nil
}

// Anchor builds a content-anchor criterion over body lines.
func Anchor(pattern string) (*Criterion, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c := &Criterion{Mode: ModeAnchor, Target: pattern, re: re}
	// Anchors match raw line text, so any required literal is usable.
	if lit, ok := requiredLiteral(pattern); ok {
		c.literal, c.hasLiteral = lit, true
	}
	return c, nil
}

// ListAll builds the criterion selecting every definition.
func ListAll() *Criterion {
	return &Criterion{Mode: ModeList}
}

// RequiredLiteral returns a substring that must occur in the raw text of
// any file containing a match, when one can be proven.
func (c *Criterion) RequiredLiteral() (string, bool) {
	return c.literal, c.hasLiteral
}

// CanSkip reports whether a file provably contains no match, so it does not
// need to be parsed at all. Files skipped here never surface parse errors.
func (c *Criterion) CanSkip(content []byte) bool {
	if !c.hasLiteral {
		return false
	}
	return !bytes.Contains(content, []byte(c.literal))
}

// Evaluate selects the matching definitions in declaration order. lines are
// the file's physical lines, used by anchor criteria.
func (c *Criterion) Evaluate(defs []pyscan.Definition, lines []string) []pyscan.Definition {
	switch c.Mode {
	case ModeList:
		return defs
	case ModeExact:
		var out []pyscan.Definition
		for _, d := range defs {
			if d.Name == c.Target || d.Qualified == c.Target {
				out = append(out, d)
			}
		}
		return out
	case ModeRegex:
		var out []pyscan.Definition
		for _, d := range defs {
			if c.re.MatchString(d.Name) || c.re.MatchString(d.Qualified) {
				out = append(out, d)
			}
		}
		return out
	case ModeAnchor:
		seen := make(map[int]bool)
		var out []pyscan.Definition
		for i, line := range lines {
			if !c.re.MatchString(line) {
				continue
			}
			hit := pyscan.InnermostAt(defs, i+1)
			if hit == nil || seen[hit.Line] {
				continue
			}
			seen[hit.Line] = true
			out = append(out, *hit)
		}
		sortByLine(out)
		return out
	}
	return nil
}

// lastComponent returns the part of a dotted target after the final dot,
// which is the piece guaranteed to appear verbatim after the def keyword.
func lastComponent(target string) string {
	if i := strings.LastIndexByte(target, '.'); i >= 0 {
		return target[i+1:]
	}
	return target
}

// sortByLine orders anchor results by declaration line. Anchor hits arrive
// in body-line order, which can report a later-declared inner def before an
// earlier outer one.
func sortByLine(defs []pyscan.Definition) {
	sort.Slice(defs, func(i, j int) bool { return defs[i].Line < defs[j].Line })
}
