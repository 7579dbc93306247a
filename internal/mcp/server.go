// Package mcp exposes the pf search pipeline over the Model Context
// Protocol so agents and editors can locate Python definitions without
// shelling out to the CLI. Tool output embeds the exact text the CLI
// would print for the same arguments.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/pf/internal/logging"
	"github.com/standardbeagle/pf/internal/match"
	"github.com/standardbeagle/pf/internal/resolve"
	"github.com/standardbeagle/pf/internal/runner"
	"github.com/standardbeagle/pf/internal/version"
)

// Options carries the run settings shared by every tool call. They come
// from the same config chain the CLI uses, so a server started in a
// project directory honors that project's .pf.kdl.
type Options struct {
	Jobs      int
	DisableRG bool
	Resolve   resolve.Options
	Log       *slog.Logger
}

// Server wraps an MCP stdio server with the pf search tools registered.
type Server struct {
	server *mcp.Server
	opts   Options
}

// NewServer builds the server and registers its tools.
func NewServer(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = logging.Default("mcp")
	}
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "pf",
			Version: version.Version,
		}, nil),
		opts: opts,
	}
	s.registerTools()
	return s
}

// Start serves MCP over stdio until the context is canceled or the
// client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.opts.Log.Info("starting MCP server", "version", version.Version)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name: "find_function",
		Description: "Locate Python function or method definitions by name and " +
			"return their exact source blocks, formatted the same way the pf CLI prints them.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "Definition name, bare (process) or dotted (Worker.process)",
				},
				"roots": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Files, directories, or glob patterns to search",
				},
				"regex": {
					Type:        "boolean",
					Description: "Treat name as a regular expression over definition names",
				},
				"at": {
					Type:        "string",
					Description: "Content anchor: return the definitions enclosing each line matching this regex (name is ignored)",
				},
			},
			Required: []string{"roots"},
		},
	}, s.handleFindFunction)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_functions",
		Description: "Enumerate every function and method definition under the given roots.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"roots": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Files, directories, or glob patterns to search",
				},
			},
			Required: []string{"roots"},
		},
	}, s.handleListFunctions)
}

// FindFunctionParams are the arguments accepted by find_function.
type FindFunctionParams struct {
	Name  string   `json:"name"`
	Roots []string `json:"roots"`
	Regex bool     `json:"regex,omitempty"`
	At    string   `json:"at,omitempty"`
}

// ListFunctionsParams are the arguments accepted by list_functions.
type ListFunctionsParams struct {
	Roots []string `json:"roots"`
}

// searchResponse is the JSON payload embedded in every successful tool
// result. Output holds the byte-for-byte CLI stdout.
type searchResponse struct {
	Output   string   `json:"output"`
	Matches  int      `json:"matches"`
	ExitCode int      `json:"exit_code"`
	Warnings []string `json:"warnings"`
	Error    string   `json:"error,omitempty"`
}

func (s *Server) handleFindFunction(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params FindFunctionParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("invalid parameters: " + err.Error()), nil
	}
	if len(params.Roots) == 0 {
		return errorResult("roots is required and must not be empty"), nil
	}

	var (
		criterion *match.Criterion
		err       error
	)
	switch {
	case params.At != "":
		criterion, err = match.Anchor(params.At)
	case params.Regex:
		if params.Name == "" {
			return errorResult("name is required"), nil
		}
		criterion, err = match.Regex(params.Name)
	default:
		if params.Name == "" {
			return errorResult("name is required"), nil
		}
		criterion = match.Exact(params.Name)
	}
	if err != nil {
		return errorResult(err.Error()), nil
	}

	return s.run(ctx, criterion, params.Roots)
}

func (s *Server) handleListFunctions(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ListFunctionsParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("invalid parameters: " + err.Error()), nil
	}
	if len(params.Roots) == 0 {
		return errorResult("roots is required and must not be empty"), nil
	}
	return s.run(ctx, match.ListAll(), params.Roots)
}

// run executes one search and packages the outcome. Warnings that the
// CLI prints on stderr travel in the warnings field instead; a parse
// failure marks the whole result as an error so callers notice it.
func (s *Server) run(ctx context.Context, criterion *match.Criterion, roots []string) (*mcp.CallToolResult, error) {
	var stdout, stderr bytes.Buffer
	res := runner.Run(ctx, runner.Request{
		Criterion: criterion,
		Roots:     roots,
		Resolve:   s.opts.Resolve,
		Jobs:      s.opts.Jobs,
		DisableRG: s.opts.DisableRG,
		Log:       s.opts.Log,
	}, &stdout, &stderr)

	resp := searchResponse{
		Output:   stdout.String(),
		Matches:  res.Matches,
		ExitCode: res.ExitCode,
		Warnings: append([]string{}, res.Warnings...),
	}
	if res.Fatal != nil {
		resp.Error = res.Fatal.Diagnostic()
	}

	result, err := jsonResult(resp)
	if err != nil {
		return nil, err
	}
	if res.Fatal != nil {
		result.IsError = true
	}
	return result, nil
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, errors.New("marshal response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// errorResult reports a tool-level failure inside the result so the
// caller sees what to fix.
func errorResult(msg string) *mcp.CallToolResult {
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
	result.IsError = true
	return result
}
