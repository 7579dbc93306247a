// Package pyscan locates function and method definitions in Python source
// without a full parser. It works on physical lines: logical lines are
// reassembled from bracket depth, backslash continuations, and triple-quoted
// strings, and block extents are derived from indentation alone. That is
// sufficient to find a definition's declaration line and the inclusive line
// range of its body, which is all the rest of the pipeline needs.
package pyscan

import (
	"bytes"
	"strings"
)

// Definition is one located def/async def. Line and EndLine are 1-based and
// inclusive; the range starts at the def line itself (decorators are
// associated with the definition but excluded from the range).
type Definition struct {
	Name      string // bare name
	Qualified string // Class.name when directly inside a class, else the bare name
	Line      int
	EndLine   int
	Async     bool
}

// ContainsLine reports whether the 1-based line falls inside the body range.
func (d *Definition) ContainsLine(line int) bool {
	return line >= d.Line && line <= d.EndLine
}

// InnermostAt returns the innermost definition whose range contains the
// 1-based line. Ranges nest, so the latest-starting container is innermost.
func InnermostAt(defs []Definition, line int) *Definition {
	var best *Definition
	for i := range defs {
		d := &defs[i]
		if d.ContainsLine(line) && (best == nil || d.Line > best.Line) {
			best = d
		}
	}
	return best
}

// SplitLines splits source into physical lines without their trailing
// newline. Render and scan share this so line numbers always agree. A UTF-8
// BOM is dropped.
func SplitLines(src []byte) []string {
	src = bytes.TrimPrefix(src, []byte{0xEF, 0xBB, 0xBF})
	if len(src) == 0 {
		return nil
	}
	raw := strings.Split(string(src), "\n")
	if raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}
	return raw
}

// tab stops every 8 columns, matching how CPython counts indentation
// when tabs and spaces mix.
const tabWidth = 8

func indentWidth(line string) int {
	col := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ':
			col++
		case '\t':
			col = (col/tabWidth + 1) * tabWidth
		default:
			return col
		}
	}
	return col
}

// lineKind classifies a physical line at a logical-line boundary.
type lineKind int

const (
	kindBlank lineKind = iota
	kindComment
	kindCode
)

func classifyLine(line string) lineKind {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ', '\t', '\r':
			continue
		case '#':
			return kindComment
		default:
			return kindCode
		}
	}
	return kindBlank
}
