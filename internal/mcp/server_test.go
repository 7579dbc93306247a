package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/pf/internal/match"
	"github.com/standardbeagle/pf/internal/runner"
)

const fixtureSource = `def hello():
    return "hi"


class Worker:
    def process(self):
        return 1
`

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestServer() *Server {
	return NewServer(Options{DisableRG: true})
}

type toolHandler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, fn toolHandler, args string) *mcp.CallToolResult {
	t.Helper()
	res, err := fn(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: []byte(args)},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func decode(t *testing.T, res *mcp.CallToolResult) searchResponse {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	var resp searchResponse
	require.NoError(t, json.Unmarshal([]byte(text.Text), &resp))
	return resp
}

// cliStdout produces the stdout the CLI would print for the same search.
func cliStdout(t *testing.T, criterion *match.Criterion, roots []string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	runner.Run(context.Background(), runner.Request{
		Criterion: criterion,
		Roots:     roots,
		DisableRG: true,
	}, &stdout, &stderr)
	return stdout.String()
}

func TestFindFunctionMatchesCLIOutput(t *testing.T) {
	dir := t.TempDir()
	app := writeFixture(t, dir, "app.py", fixtureSource)
	s := newTestServer()

	res := call(t, s.handleFindFunction, fmt.Sprintf(`{"name":"hello","roots":[%q]}`, app))
	require.False(t, res.IsError)
	resp := decode(t, res)

	assert.Equal(t, cliStdout(t, match.Exact("hello"), []string{app}), resp.Output)
	assert.Contains(t, resp.Output, "==> "+app+":hello (line 1) <==")
	assert.Equal(t, 1, resp.Matches)
	assert.Equal(t, 0, resp.ExitCode)
	assert.Empty(t, resp.Warnings)
	assert.Empty(t, resp.Error)
}

func TestFindFunctionQualifiedName(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "app.py", fixtureSource)
	s := newTestServer()

	res := call(t, s.handleFindFunction, fmt.Sprintf(`{"name":"Worker.process","roots":[%q]}`, dir))
	require.False(t, res.IsError)
	resp := decode(t, res)

	assert.Equal(t, cliStdout(t, match.Exact("Worker.process"), []string{dir}), resp.Output)
	assert.Contains(t, resp.Output, "Worker.process")
	assert.Equal(t, 1, resp.Matches)
}

func TestFindFunctionRegex(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "app.py", fixtureSource)
	s := newTestServer()

	res := call(t, s.handleFindFunction, fmt.Sprintf(`{"name":"pro.*","regex":true,"roots":[%q]}`, dir))
	require.False(t, res.IsError)
	resp := decode(t, res)

	criterion, err := match.Regex("pro.*")
	require.NoError(t, err)
	assert.Equal(t, cliStdout(t, criterion, []string{dir}), resp.Output)
	assert.Equal(t, 1, resp.Matches)
}

func TestFindFunctionAnchorIgnoresName(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "app.py", fixtureSource)
	s := newTestServer()

	res := call(t, s.handleFindFunction,
		fmt.Sprintf(`{"name":"no_such_name","at":"return","roots":[%q]}`, dir))
	require.False(t, res.IsError)
	resp := decode(t, res)

	criterion, err := match.Anchor("return")
	require.NoError(t, err)
	assert.Equal(t, cliStdout(t, criterion, []string{dir}), resp.Output)
	assert.Equal(t, 2, resp.Matches)
}

func TestListFunctions(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "app.py", fixtureSource)
	s := newTestServer()

	res := call(t, s.handleListFunctions, fmt.Sprintf(`{"roots":[%q]}`, dir))
	require.False(t, res.IsError)
	resp := decode(t, res)

	assert.Equal(t, cliStdout(t, match.ListAll(), []string{dir}), resp.Output)
	assert.Equal(t, 2, resp.Matches)
	assert.Equal(t, 0, resp.ExitCode)
}

func TestFindFunctionCarriesWarnings(t *testing.T) {
	dir := t.TempDir()
	app := writeFixture(t, dir, "app.py", fixtureSource)
	missing := filepath.Join(dir, "nope.py")
	s := newTestServer()

	res := call(t, s.handleFindFunction,
		fmt.Sprintf(`{"name":"hello","roots":[%q,%q]}`, app, missing))
	require.False(t, res.IsError)
	resp := decode(t, res)

	assert.Contains(t, resp.Warnings, "file not found: "+missing)
	assert.Equal(t, 1, resp.Matches)
	assert.Equal(t, 0, resp.ExitCode)
}

func TestFindFunctionParseFailure(t *testing.T) {
	dir := t.TempDir()
	bad := writeFixture(t, dir, "bad.py", "def broken():\n    s = '''\n")
	s := newTestServer()

	res := call(t, s.handleFindFunction, fmt.Sprintf(`{"name":"broken","roots":[%q]}`, bad))
	assert.True(t, res.IsError)
	resp := decode(t, res)

	assert.Equal(t, 2, resp.ExitCode)
	assert.Contains(t, resp.Error, "Error parsing "+bad)
}

func TestFindFunctionRequiresRoots(t *testing.T) {
	s := newTestServer()
	for _, args := range []string{`{"name":"hello"}`, `{"name":"hello","roots":[]}`} {
		res := call(t, s.handleFindFunction, args)
		assert.True(t, res.IsError)
		text, ok := res.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "roots")
	}
}

func TestFindFunctionRequiresName(t *testing.T) {
	s := newTestServer()
	res := call(t, s.handleFindFunction, `{"roots":["src"]}`)
	assert.True(t, res.IsError)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "name is required")
}

func TestFindFunctionRejectsBadRegex(t *testing.T) {
	s := newTestServer()
	res := call(t, s.handleFindFunction, `{"name":"[","regex":true,"roots":["src"]}`)
	assert.True(t, res.IsError)
}

func TestFindFunctionRejectsMalformedParams(t *testing.T) {
	s := newTestServer()
	res := call(t, s.handleFindFunction, `{"name":42,"roots":["src"]}`)
	assert.True(t, res.IsError)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "invalid parameters")
}

func TestListFunctionsRequiresRoots(t *testing.T) {
	s := newTestServer()
	res := call(t, s.handleListFunctions, `{}`)
	assert.True(t, res.IsError)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "roots")
}
