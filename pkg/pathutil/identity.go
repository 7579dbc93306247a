// Package pathutil separates the two path representations used throughout pf.
//
// Output paths must read exactly as the user supplied or discovery produced
// them ("./src/app.py" stays "./src/app.py"), because they are part of the
// printed contract. Identity comparisons (deduplication, cross-engine
// intersection) must instead be spelling-insensitive, or "./a.py" and "a.py"
// would print twice. This package provides both representations and nothing
// else; callers pick the right one at each boundary.
package pathutil

import (
	"path/filepath"
	"strings"
)

// Canonical returns the identity key for a path: absolute and cleaned.
// Two spellings of the same file always canonicalize equal. Falls back to
// the cleaned input if the working directory is unavailable.
//
// Examples:
//   - Canonical("./src/a.py") and Canonical("src/a.py") → same key
//   - Canonical("/abs/./a.py") → "/abs/a.py"
func Canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Join extends a user-supplied root with a discovered child, preserving the
// root's spelling. filepath.Join is deliberately not used here: it cleans
// the result, turning "./src" into "src" and breaking the output contract.
//
// Examples:
//   - Join(".", "app.py") → "./app.py"
//   - Join("src/", "app.py") → "src/app.py"
//   - Join("./lib", "deep/mod.py") → "./lib/deep/mod.py"
func Join(root, child string) string {
	if root == "" {
		return child
	}
	if strings.HasSuffix(root, string(filepath.Separator)) {
		return root + child
	}
	return root + string(filepath.Separator) + child
}
