package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/pf/internal/config"
	pferrors "github.com/standardbeagle/pf/internal/errors"
	"github.com/standardbeagle/pf/internal/logging"
	"github.com/standardbeagle/pf/internal/match"
	"github.com/standardbeagle/pf/internal/mcp"
	"github.com/standardbeagle/pf/internal/resolve"
	"github.com/standardbeagle/pf/internal/runner"
	"github.com/standardbeagle/pf/internal/version"
	"github.com/standardbeagle/pf/internal/watch"
)

const appHelpTemplate = `Usage: {{.HelpName}} [flags] <target> <root>...
   {{.HelpName}} --list [flags] <root>...
   {{.HelpName}} --at <pattern> [flags] <root>...
   {{.HelpName}} mcp | version

{{.Usage}}

Arguments:
   <target>  definition name (bare or Class.method), a name regex with
             --regex, or a search literal with --type all
   <root>    file, directory, or glob pattern; at least one is required

Options:{{range .VisibleFlags}}
   {{.}}{{end}}

Commands:{{range .VisibleCommands}}
   {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}
`

// rangePattern recognizes the N-M positional that switches a raw search
// into slice mode.
var rangePattern = regexp.MustCompile(`^([0-9]+)-([0-9]+)$`)

func main() {
	os.Exit(runApp(os.Args, os.Stdout, os.Stderr))
}

// runApp runs one CLI invocation against the given streams and returns the
// process exit code. Keeping it in-process lets tests drive the real app.
func runApp(args []string, stdout, stderr io.Writer) int {
	exitCode := 0

	app := &cli.App{
		Name:                   "pf",
		Usage:                  "locate Python function and method definitions and print their source",
		Version:                version.Version,
		HideHelpCommand:        true,
		UseShortOptionHandling: true,
		CustomAppHelpTemplate:  appHelpTemplate,
		Writer:                 stdout,
		ErrWriter:              stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "enumerate every definition instead of matching a target",
			},
			&cli.BoolFlag{
				Name:    "regex",
				Aliases: []string{"e"},
				Usage:   "treat <target> as a regular expression over definition names",
			},
			&cli.StringFlag{
				Name:  "at",
				Usage: "print the definitions enclosing lines that match `PATTERN`",
			},
			&cli.StringFlag{
				Name:        "type",
				Aliases:     []string{"t"},
				Usage:       "candidate file types: py or all",
				DefaultText: "py",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Usage:   "parallel scan workers (0 = one per CPU)",
			},
			&cli.BoolFlag{
				Name:  "gitignore",
				Usage: "honor .gitignore rules when walking directories",
			},
			&cli.BoolFlag{
				Name:  "suggest",
				Usage: "print near-miss definition names when nothing matches",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "stay resident and re-run when watched files change",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "explicit config `FILE` (.pf.kdl or pyproject.toml)",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable styled output (headers are plain text today)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "serve find_function and list_functions over MCP stdio",
				Action: mcpAction,
			},
			{
				Name:  "version",
				Usage: "print version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, version.FullInfo())
					return nil
				},
			},
		},
		OnUsageError: func(c *cli.Context, err error, isSubcommand bool) error {
			return pferrors.NewUsageError("%v", err)
		},
		Action: func(c *cli.Context) error {
			code, err := searchAction(c, stdout, stderr)
			if err != nil {
				return err
			}
			exitCode = code
			return nil
		},
	}

	if err := app.Run(args); err != nil {
		fmt.Fprintln(stderr, "pf: "+err.Error())
		return 2
	}
	return exitCode
}

// searchAction is the default action: parse positionals, assemble the
// effective settings, and dispatch to the structural or raw pipeline.
func searchAction(c *cli.Context, stdout, stderr io.Writer) (int, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return 0, err
	}

	list := c.Bool("list")
	useRegex := c.Bool("regex")
	atPattern := c.String("at")
	if c.IsSet("at") && atPattern == "" {
		return 0, pferrors.NewUsageError("--at requires a non-empty pattern")
	}
	switch {
	case list && (useRegex || atPattern != ""):
		return 0, pferrors.NewUsageError("--list cannot be combined with --regex or --at")
	case useRegex && atPattern != "":
		return 0, pferrors.NewUsageError("--regex cannot be combined with --at")
	}

	typ := cfg.Type
	if c.IsSet("type") {
		typ = c.String("type")
	}
	switch typ {
	case "", "py":
		typ = "py"
	case "all":
	default:
		return 0, pferrors.NewUsageError("invalid --type %q (expected py or all)", typ)
	}

	jobs := cfg.Jobs
	if c.IsSet("jobs") {
		jobs = c.Int("jobs")
		if jobs < 0 {
			return 0, pferrors.NewUsageError("--jobs must be zero or positive")
		}
	}
	if c.IsSet("gitignore") {
		cfg.Gitignore = c.Bool("gitignore")
	}
	if c.IsSet("suggest") {
		cfg.Suggest = c.Bool("suggest")
	}

	args := c.Args().Slice()
	var target string
	roots := args
	// --list and --at consume no target; every positional is a root.
	if !list && atPattern == "" {
		if len(args) == 0 {
			return 0, pferrors.NewUsageError("missing <target> argument")
		}
		target, roots = args[0], args[1:]
	}
	if len(roots) == 0 {
		return 0, pferrors.NewUsageError("at least one <root> argument is required")
	}

	opts := resolve.Options{
		Type:        resolve.TypePython,
		ExtraIgnore: cfg.IgnoreDirs,
		Gitignore:   cfg.Gitignore,
	}

	if typ == "all" {
		if c.Bool("watch") {
			return 0, pferrors.NewUsageError("--watch cannot be combined with --type all")
		}
		if list || useRegex || atPattern != "" {
			return 0, pferrors.NewUsageError("--list, --regex, and --at require --type py")
		}
		opts.Type = resolve.TypeAll
		req := runner.RawRequest{Literal: target, Roots: roots, Resolve: opts}
		if rng, rest, ok := splitRange(roots); ok {
			req.Range, req.Roots = rng, rest
		}
		if len(req.Roots) == 0 {
			return 0, pferrors.NewUsageError("at least one <root> argument is required")
		}
		res := runner.RunRaw(context.Background(), req, stdout, stderr)
		return res.ExitCode, nil
	}

	criterion, err := buildCriterion(list, useRegex, atPattern, target)
	if err != nil {
		return 0, err
	}

	req := runner.Request{
		Criterion: criterion,
		Roots:     roots,
		Resolve:   opts,
		Jobs:      jobs,
		DisableRG: cfg.DisableRG,
		DebugRG:   os.Getenv("PF_TEST_RG_USED") == "1",
		Suggest:   cfg.Suggest,
		Log:       logging.Default("cli"),
	}

	if c.Bool("watch") {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		sess := &watch.Session{Request: req, Stdout: stdout, Stderr: stderr}
		code, err := sess.Run(ctx)
		if err != nil {
			fmt.Fprintln(stderr, "pf: "+err.Error())
		}
		return code, nil
	}

	res := runner.Run(context.Background(), req, stdout, stderr)
	return res.ExitCode, nil
}

func mcpAction(c *cli.Context) error {
	if c.Bool("watch") {
		return pferrors.NewUsageError("--watch cannot be combined with the mcp command")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcp.NewServer(mcp.Options{
		Jobs:      cfg.Jobs,
		DisableRG: cfg.DisableRG,
		Resolve: resolve.Options{
			Type:        resolve.TypePython,
			ExtraIgnore: cfg.IgnoreDirs,
			Gitignore:   cfg.Gitignore,
		},
		Log: logging.Default("mcp"),
	})
	return srv.Start(ctx)
}

// loadConfig resolves the pre-flag settings: explicit --config beats
// discovery from the working directory, then process env is applied.
func loadConfig(c *cli.Context) (*config.Config, error) {
	config.LoadDotenv()

	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		wd, werr := os.Getwd()
		if werr != nil {
			return nil, fmt.Errorf("resolve working directory: %w", werr)
		}
		cfg, err = config.Discover(wd)
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func buildCriterion(list, useRegex bool, atPattern, target string) (*match.Criterion, error) {
	switch {
	case list:
		return match.ListAll(), nil
	case atPattern != "":
		criterion, err := match.Anchor(atPattern)
		if err != nil {
			return nil, pferrors.NewUsageError("invalid --at pattern: %v", err)
		}
		return criterion, nil
	case useRegex:
		criterion, err := match.Regex(target)
		if err != nil {
			return nil, pferrors.NewUsageError("invalid --regex target: %v", err)
		}
		return criterion, nil
	default:
		return match.Exact(target), nil
	}
}

// splitRange recognizes an N-M first root as a slice request. The remaining
// positionals are the roots; the target is not consulted in range mode.
func splitRange(roots []string) (*runner.LineRange, []string, bool) {
	m := rangePattern.FindStringSubmatch(roots[0])
	if m == nil {
		return nil, nil, false
	}
	first, err1 := strconv.Atoi(m[1])
	last, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return nil, nil, false
	}
	return &runner.LineRange{First: first, Last: last}, roots[1:], true
}
