// Package suggest ranks near-miss definition names for a target that
// matched nothing. Suggestions are diagnostics only; they never change
// match output or exit codes.
package suggest

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"
)

const (
	// threshold is the minimum similarity worth showing. Below this the
	// suggestion reads as noise, not help.
	threshold = 0.75
	// stemBoost rewards names sharing a stemmed snake_case segment with
	// the target ("fetch_users" suggests for "fetching_user").
	stemBoost = 0.1
	// maxResults keeps the diagnostic to one readable line.
	maxResults = 3
)

type scored struct {
	name  string
	score float64
}

// Closest returns up to three candidate names similar to target, best
// first. Ties break alphabetically so output is stable across runs.
func Closest(target string, names []string) []string {
	targetStems := stemSegments(target)
	seen := make(map[string]struct{}, len(names))

	var matches []scored
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if name == target {
			continue
		}

		similarity, err := edlib.StringsSimilarity(target, name, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		score := float64(similarity)
		if sharesStem(targetStems, stemSegments(name)) {
			score += stemBoost
		}
		if score < threshold {
			continue
		}
		matches = append(matches, scored{name: name, score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].name < matches[j].name
	})
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.name)
	}
	return out
}

// stemSegments stems each underscore- or dot-separated piece of a name.
func stemSegments(name string) map[string]struct{} {
	out := make(map[string]struct{})
	segs := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '_' || r == '.'
	})
	for _, seg := range segs {
		out[porter2.Stem(seg)] = struct{}{}
	}
	return out
}

func sharesStem(a, b map[string]struct{}) bool {
	for stem := range a {
		if _, ok := b[stem]; ok {
			return true
		}
	}
	return false
}
