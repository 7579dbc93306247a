package runner

import (
	"context"
	"io"
	"os"

	"github.com/standardbeagle/pf/internal/pyscan"
	"github.com/standardbeagle/pf/internal/render"
	"github.com/standardbeagle/pf/internal/resolve"
)

// LineRange is an inclusive 1-based slice request.
type LineRange struct {
	First, Last int
}

// RawRequest is the --type all variant of a run: plain text over raw file
// content, no structural extraction, no prefilter.
type RawRequest struct {
	Literal string     // text located verbatim; unused in range mode
	Range   *LineRange // when set, slice lines instead of searching
	Roots   []string
	Resolve resolve.Options
}

// RunRaw searches or slices raw file content. Files print in resolver
// order; a file that cannot be read is skipped.
func RunRaw(ctx context.Context, req RawRequest, stdout, stderr io.Writer) Result {
	var result Result
	res := resolve.Roots(req.Roots, req.Resolve)
	for _, w := range res.Warnings {
		emitWarning(stderr, &result, w.Message())
	}

	for _, f := range res.Files {
		if ctx.Err() != nil {
			result.ExitCode = 1
			return result
		}
		content, err := os.ReadFile(f.Display)
		if err != nil {
			continue
		}
		lines := pyscan.SplitLines(content)

		var found bool
		if req.Range != nil {
			found, _ = render.RawSlice(stdout, lines, req.Range.First, req.Range.Last)
		} else {
			found, _ = render.RawMatches(stdout, f.Display, lines, req.Literal)
		}
		if found {
			result.Matches++
		}
	}

	if result.Matches == 0 {
		result.ExitCode = 1
	}
	return result
}
