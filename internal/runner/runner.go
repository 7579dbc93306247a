// Package runner drives one complete pf run, from root resolution through
// parallel file scanning to output in canonical order.
//
// This is the only place exit codes and warning emission are decided. Lower
// layers hand back structured outcomes; the runner turns them into bytes on
// stdout/stderr and a single exit code. Output order is always resolver
// order regardless of which worker finished first, so runs are reproducible
// and engine-independent.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	pferrors "github.com/standardbeagle/pf/internal/errors"
	"github.com/standardbeagle/pf/internal/logging"
	"github.com/standardbeagle/pf/internal/match"
	"github.com/standardbeagle/pf/internal/prefilter"
	"github.com/standardbeagle/pf/internal/pyscan"
	"github.com/standardbeagle/pf/internal/render"
	"github.com/standardbeagle/pf/internal/resolve"
	"github.com/standardbeagle/pf/internal/suggest"
)

// Request carries everything one run needs. The zero value of the optional
// fields means "default behavior".
type Request struct {
	Criterion *match.Criterion
	Roots     []string
	Resolve   resolve.Options

	Jobs      int  // parallel scan workers; <=0 means GOMAXPROCS-ish default
	DisableRG bool // force passthrough narrowing
	DebugRG   bool // confirm engine use on stderr (diagnostic only)
	Suggest   bool // offer near-miss names when nothing matches

	Log *slog.Logger
}

// Result summarizes a finished run.
type Result struct {
	Matches  int
	Warnings []string // warning bodies in emission order, without the prefix
	Fatal    *pferrors.ParseError
	ExitCode int
}

// Run executes the structural pipeline and writes all user-visible output.
// Match blocks go to stdout; warnings and diagnostics go to stderr, never
// interleaved into match output.
func Run(ctx context.Context, req Request, stdout, stderr io.Writer) Result {
	log := req.Log
	if log == nil {
		log = logging.Nop()
	}

	var result Result
	res := resolve.Roots(req.Roots, req.Resolve)
	for _, w := range res.Warnings {
		emitWarning(stderr, &result, w.Message())
	}
	log.Debug("roots resolved", "files", len(res.Files), "warnings", len(res.Warnings))

	lit, haveLit := req.Criterion.RequiredLiteral()
	narrower := prefilter.Choose(haveLit, req.DisableRG)
	if req.Suggest {
		// Suggestions rank against every definition name in scope, so
		// narrowing away non-matching files would starve them.
		narrower = prefilter.Passthrough{}
	}
	subset, report := narrower.Narrow(ctx, lit, res.Files)
	if report.Err != nil {
		emitWarning(stderr, &result, report.Err.Error()+"; falling back to full scan.")
	}
	if req.DebugRG && report.Used {
		fmt.Fprintln(stderr, "DEBUG: RG USED")
	}
	log.Debug("candidates narrowed", "from", len(res.Files), "to", len(subset))

	outcomes := make([]fileOutcome, len(subset))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(req.Jobs))
	for i, f := range subset {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			processFile(req, f, &outcomes[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		result.ExitCode = 1
		return result
	}

	// Reassemble in resolver order. Every file is emitted before the exit
	// decision, so a parse failure never suppresses other files' matches.
	var names []string
	for i := range outcomes {
		o := &outcomes[i]
		if o.parseErr != nil {
			fmt.Fprintln(stderr, o.parseErr.Diagnostic())
			if result.Fatal == nil {
				result.Fatal = o.parseErr
			}
		}
		if o.matches > 0 {
			stdout.Write(o.rendered.Bytes())
			result.Matches += o.matches
		}
		names = append(names, o.names...)
	}

	switch {
	case result.Fatal != nil:
		result.ExitCode = 2
	case result.Matches == 0:
		result.ExitCode = 1
	default:
		result.ExitCode = 0
	}

	if result.ExitCode == 1 && req.Suggest && req.Criterion.Mode == match.ModeExact {
		if near := suggest.Closest(req.Criterion.Target, names); len(near) > 0 {
			fmt.Fprintf(stderr, "pf: no definition named '%s' found; closest: %s\n",
				req.Criterion.Target, strings.Join(near, ", "))
		}
	}
	return result
}

type fileOutcome struct {
	rendered bytes.Buffer
	matches  int
	parseErr *pferrors.ParseError
	names    []string // definition names, collected only for suggestions
}

func processFile(req Request, f resolve.Candidate, out *fileOutcome) {
	content, err := os.ReadFile(f.Display)
	if err != nil {
		// Resolved but unreadable now; races with deletion are not fatal.
		return
	}

	skippable := req.Criterion.CanSkip(content)
	if skippable && !req.Suggest {
		return
	}

	defs, err := pyscan.Scan(f.Display, content)
	if err != nil {
		if skippable {
			// This file was never required; its syntax is not our
			// problem.
			return
		}
		if pe, ok := pferrors.AsParseError(err); ok {
			out.parseErr = pe
		}
		return
	}

	if req.Suggest {
		for _, d := range defs {
			out.names = append(out.names, d.Name)
			if d.Qualified != d.Name {
				out.names = append(out.names, d.Qualified)
			}
		}
	}

	lines := pyscan.SplitLines(content)
	matched := req.Criterion.Evaluate(defs, lines)
	for _, d := range matched {
		_ = render.Block(&out.rendered, f.Display, d, lines)
	}
	out.matches = len(matched)
}

func emitWarning(stderr io.Writer, result *Result, body string) {
	fmt.Fprintln(stderr, "Warning: "+body)
	result.Warnings = append(result.Warnings, body)
}

func workerCount(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU()
}
