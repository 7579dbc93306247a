// Package prefilter narrows the candidate list before any file is parsed.
//
// The contract is strict: narrowing must never change what the run prints.
// The external engine only ever excludes files that provably lack the
// criterion's required literal, and every degraded condition (engine
// missing, disabled, failing, or answering out of contract) falls back to
// the full candidate list. Subset order always follows resolver order, so
// downstream output is byte-identical with and without the engine.
package prefilter

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	pferrors "github.com/standardbeagle/pf/internal/errors"
	"github.com/standardbeagle/pf/internal/resolve"
)

// Narrower reduces the candidate list to the files that can still match.
type Narrower interface {
	Narrow(ctx context.Context, literal string, files []resolve.Candidate) ([]resolve.Candidate, Report)
}

// Report describes what the narrowing attempt did.
type Report struct {
	// Used is true when the engine ran and answered (exit 0 or 1),
	// whether or not the answer reduced the list.
	Used bool
	// Err is set when the engine failed and the full list was returned.
	Err *pferrors.PrefilterError
}

// Passthrough narrows nothing. It stands in whenever the external engine is
// unavailable, disabled, or ineligible for the criterion.
type Passthrough struct{}

// Narrow returns the input unchanged.
func (Passthrough) Narrow(_ context.Context, _ string, files []resolve.Candidate) ([]resolve.Candidate, Report) {
	return files, Report{}
}

// Ripgrep asks rg which candidate files contain the required literal.
type Ripgrep struct {
	Path string // resolved binary location
}

// Choose picks the engine for this run. Callers gate on what only they know
// (type filter, whether the criterion has a literal); Choose gates on the
// environment.
func Choose(haveLiteral, disabled bool) Narrower {
	if disabled || !haveLiteral {
		return Passthrough{}
	}
	path, err := exec.LookPath("rg")
	if err != nil {
		return Passthrough{}
	}
	return &Ripgrep{Path: path}
}

// Argument lists stay under this many bytes per invocation.
const maxBatchBytes = 128 << 10

// Narrow runs rg over the candidates and intersects its answer with the
// list, preserving resolver order.
func (r *Ripgrep) Narrow(ctx context.Context, literal string, files []resolve.Candidate) ([]resolve.Candidate, Report) {
	if len(files) == 0 {
		// rg with no file arguments searches the working directory.
		return files, Report{}
	}

	hits := make(map[string]struct{})
	for _, batch := range batchDisplays(files, maxBatchBytes) {
		a := r.run(ctx, literal, batch)
		if a.err != nil {
			return files, Report{Err: a.err}
		}
		if !a.answered {
			return files, Report{}
		}
		if !a.usable {
			return files, Report{Used: true}
		}
		for _, p := range a.hits {
			hits[p] = struct{}{}
		}
	}

	subset := make([]resolve.Candidate, 0, len(hits))
	for _, f := range files {
		if _, hit := hits[f.Display]; hit {
			subset = append(subset, f)
		}
	}
	return subset, Report{Used: true}
}

// answer is one batch's outcome.
type answer struct {
	hits     []string
	answered bool // rg exited 0 or 1
	usable   bool // the answer can narrow the set
	err      *pferrors.PrefilterError
}

func (r *Ripgrep) run(ctx context.Context, literal string, paths []string) answer {
	args := make([]string, 0, len(paths)+5)
	args = append(args, "--files-with-matches", "--fixed-strings", "--null", "--", literal)
	args = append(args, paths...)

	cmd := exec.CommandContext(ctx, r.Path, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Could not run at all. Fall back silently, as if the
			// binary had never been found.
			return answer{}
		}
		if exitErr.ExitCode() == 1 {
			// No matches in this batch.
			return answer{answered: true, usable: true}
		}
		ferr := pferrors.NewPrefilterError(exitErr.ExitCode(), oneLine(string(exitErr.Stderr)))
		return answer{answered: true, err: ferr}
	}

	hits := parseNullSeparated(out)
	if len(hits) == 0 {
		// Exit 0 promises at least one matching file. An empty answer
		// is out of contract and cannot be trusted to narrow.
		return answer{answered: true}
	}
	return answer{hits: hits, answered: true, usable: true}
}

// batchDisplays splits the candidate paths into argv-sized groups.
func batchDisplays(files []resolve.Candidate, max int) [][]string {
	var out [][]string
	var cur []string
	size := 0
	for _, f := range files {
		n := len(f.Display) + 1
		if len(cur) > 0 && size+n > max {
			out = append(out, cur)
			cur = nil
			size = 0
		}
		cur = append(cur, f.Display)
		size += n
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// parseNullSeparated splits rg --null output: each path is terminated by a
// NUL byte, which keeps paths with unusual characters intact.
func parseNullSeparated(out []byte) []string {
	var paths []string
	for _, p := range strings.Split(string(out), "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// oneLine collapses the engine's stderr into a single diagnostic line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
