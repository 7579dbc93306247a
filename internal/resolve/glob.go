package resolve

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// glob expands a pattern argument. Wildcards never produce hidden names and
// never reach through ignored directories; both are reachable only when the
// pattern spells the segment out literally (".venv/*.py" works, "**/*.py"
// stays out of .venv). A pattern whose wildcards found nothing warns; a
// pattern that matched entries which were later filtered does not, because
// the glob itself worked.
func (r *resolver) glob(arg string) {
	matches, err := doublestar.FilepathGlob(arg)
	if err != nil {
		matches = nil // bad patterns match nothing
	}

	literal := literalSegments(arg)

	// Matches whose hidden segments were produced by a wildcard do not
	// count as matches at all, mirroring shell glob behavior.
	visible := matches[:0]
	for _, m := range matches {
		if wildcardHidden(m, literal) {
			continue
		}
		visible = append(visible, m)
	}
	if len(visible) == 0 {
		r.warn(Warning{Kind: WarnGlobNoFiles, Arg: arg})
		return
	}

	for _, m := range visible {
		if r.underIgnored(m, literal) {
			continue
		}
		fi, err := os.Stat(m)
		if err != nil {
			continue
		}
		if fi.IsDir() {
			// Directory matches walk like directory roots, except an
			// ignored name only a wildcard reached stays pruned.
			if name := filepath.Base(m); r.ignored(name) && !named(literal, name) {
				continue
			}
			r.walk(m)
			continue
		}
		r.addFile(m)
	}
}

// literalSegments collects the pattern segments spelled without glob
// syntax. These are the names the user asked for explicitly.
func literalSegments(pattern string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, seg := range strings.Split(pattern, "/") {
		if seg != "" && !hasMeta(seg) {
			out[seg] = struct{}{}
		}
	}
	return out
}

func wildcardHidden(match string, literal map[string]struct{}) bool {
	for _, seg := range splitPath(match) {
		if hidden(seg) && !named(literal, seg) {
			return true
		}
	}
	return false
}

// underIgnored reports whether an interior segment of the match is an
// ignored directory the pattern never named. The final segment is checked
// by the caller, which knows whether it is a file or a directory.
func (r *resolver) underIgnored(match string, literal map[string]struct{}) bool {
	segs := splitPath(match)
	for _, seg := range segs[:len(segs)-1] {
		if r.ignored(seg) && !named(literal, seg) {
			return true
		}
	}
	return false
}

func named(literal map[string]struct{}, seg string) bool {
	_, ok := literal[seg]
	return ok
}

func splitPath(path string) []string {
	return strings.Split(path, string(filepath.Separator))
}
