// Package render produces pf's stdout. Every byte written here is part of
// the tool's contract: headers, source lines, and separators must come out
// identical no matter which engines participated in finding the match.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/standardbeagle/pf/internal/pyscan"
)

// Header formats the label line for one match.
func Header(display string, d pyscan.Definition) string {
	return fmt.Sprintf("==> %s:%s (line %d) <==", display, d.Qualified, d.Line)
}

// Block writes one match: the header, the exact source text from the
// declaration line through the last body line, and a blank separator.
// The line slice is the file's physical lines; the definition's range is
// trusted because the scanner derived it from the same slice.
func Block(w io.Writer, display string, d pyscan.Definition, lines []string) error {
	if _, err := fmt.Fprintln(w, Header(display, d)); err != nil {
		return err
	}
	for _, line := range lines[d.Line-1 : d.EndLine] {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// RawMatches writes every line containing the literal, labeled with its
// position. Reports whether anything was written.
func RawMatches(w io.Writer, display string, lines []string, literal string) (bool, error) {
	found := false
	for i, line := range lines {
		if !strings.Contains(line, literal) {
			continue
		}
		if _, err := fmt.Fprintf(w, "==> %s:%d: %s\n", display, i+1, line); err != nil {
			return found, err
		}
		found = true
	}
	return found, nil
}

// RawSlice writes lines first..last (1-based, inclusive) verbatim. Bounds
// outside the file are clamped rather than rejected. Reports whether
// anything was written.
func RawSlice(w io.Writer, lines []string, first, last int) (bool, error) {
	if first < 1 {
		first = 1
	}
	if last > len(lines) {
		last = len(lines)
	}
	if first > last {
		return false, nil
	}
	for _, line := range lines[first-1 : last] {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return false, err
		}
	}
	return true, nil
}
