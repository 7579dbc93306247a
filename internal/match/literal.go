package match

import (
	"regexp/syntax"
)

// requiredLiteral derives a substring that every string matched by the
// pattern must contain. Used to rule files in or out before parsing: if a
// file's bytes lack the literal, no match is possible there. Returns false
// when no such literal can be proven (alternations with different arms,
// case-folded text, pure classes), in which case callers must process every
// file.
func requiredLiteral(pattern string) (string, bool) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return "", false
	}
	lit := guaranteed(re.Simplify())
	if lit == "" {
		return "", false
	}
	return lit, true
}

// guaranteed returns the longest literal every match of re must contain,
// or "" when none is provable.
func guaranteed(re *syntax.Regexp) string {
	switch re.Op {
	case syntax.OpLiteral:
		if re.Flags&syntax.FoldCase != 0 {
			// Case-insensitive text has no single byte form.
			return ""
		}
		return string(re.Rune)

	case syntax.OpConcat:
		// Every part is required; take the longest contribution.
		best := ""
		for _, sub := range re.Sub {
			if lit := guaranteed(sub); len(lit) > len(best) {
				best = lit
			}
		}
		return best

	case syntax.OpCapture:
		return guaranteed(re.Sub[0])

	case syntax.OpPlus:
		// At least one occurrence, so its literal is still required.
		return guaranteed(re.Sub[0])

	case syntax.OpRepeat:
		if re.Min >= 1 {
			return guaranteed(re.Sub[0])
		}
		return ""

	case syntax.OpAlternate:
		// Only a literal shared by every branch is guaranteed.
		common := guaranteed(re.Sub[0])
		if common == "" {
			return ""
		}
		for _, sub := range re.Sub[1:] {
			if guaranteed(sub) != common {
				return ""
			}
		}
		return common

	default:
		// Stars, quests, classes, anchors, empty matches: nothing is
		// guaranteed to appear.
		return ""
	}
}
