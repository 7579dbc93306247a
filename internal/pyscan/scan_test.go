package pyscan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pferrors "github.com/standardbeagle/pf/internal/errors"
	"github.com/standardbeagle/pf/internal/pyscan"
)

func scanOne(t *testing.T, src string) []pyscan.Definition {
	t.Helper()
	defs, err := pyscan.Scan("test.py", []byte(src))
	require.NoError(t, err)
	return defs
}

func TestScanSimpleFunction(t *testing.T) {
	defs := scanOne(t, "def hello():\n    print(\"Hello\")\n\ndef world():\n    print(\"World\")\n")

	require.Len(t, defs, 2)
	assert.Equal(t, "hello", defs[0].Name)
	assert.Equal(t, "hello", defs[0].Qualified)
	assert.Equal(t, 1, defs[0].Line)
	assert.Equal(t, 2, defs[0].EndLine)
	assert.False(t, defs[0].Async)

	assert.Equal(t, "world", defs[1].Name)
	assert.Equal(t, 4, defs[1].Line)
	assert.Equal(t, 5, defs[1].EndLine)
}

func TestScanAsyncDef(t *testing.T) {
	defs := scanOne(t, "async def fetch(url):\n    return await get(url)\n")

	require.Len(t, defs, 1)
	assert.Equal(t, "fetch", defs[0].Name)
	assert.True(t, defs[0].Async)
	assert.Equal(t, 1, defs[0].Line)
	assert.Equal(t, 2, defs[0].EndLine)
}

func TestScanMethodQualification(t *testing.T) {
	src := `class MyClass:
    def method(self):
        return 1

def method():
    return 2
`
	defs := scanOne(t, src)

	require.Len(t, defs, 2)
	assert.Equal(t, "MyClass.method", defs[0].Qualified)
	assert.Equal(t, "method", defs[0].Name)
	assert.Equal(t, 2, defs[0].Line)
	assert.Equal(t, 3, defs[0].EndLine)

	assert.Equal(t, "method", defs[1].Qualified)
	assert.Equal(t, 5, defs[1].Line)
	assert.Equal(t, 6, defs[1].EndLine)
}

func TestScanNestedDefStaysBare(t *testing.T) {
	src := `def outer():
    def inner():
        return 1
    return inner
`
	defs := scanOne(t, src)

	require.Len(t, defs, 2)
	assert.Equal(t, "outer", defs[0].Qualified)
	assert.Equal(t, 4, defs[0].EndLine)
	assert.Equal(t, "inner", defs[1].Qualified, "defs nested in defs do not get dotted names")
	assert.Equal(t, 3, defs[1].EndLine)
}

func TestScanNestedClassSingleLevel(t *testing.T) {
	src := `class Outer:
    class Inner:
        def m(self):
            pass
    def om(self):
        pass
`
	defs := scanOne(t, src)

	require.Len(t, defs, 2)
	assert.Equal(t, "Inner.m", defs[0].Qualified, "qualification uses only the nearest class")
	assert.Equal(t, "Outer.om", defs[1].Qualified)
}

func TestScanMethodInsideDefInsideClass(t *testing.T) {
	src := `class C:
    def m(self):
        def helper():
            pass
        return helper
`
	defs := scanOne(t, src)

	require.Len(t, defs, 2)
	assert.Equal(t, "C.m", defs[0].Qualified)
	assert.Equal(t, "helper", defs[1].Qualified, "nearest enclosing scope is a def, so no dotting")
}

func TestScanDecoratorExcluded(t *testing.T) {
	src := `@decorator
@other(arg)
def decorated():
    return 1
`
	defs := scanOne(t, src)

	require.Len(t, defs, 1)
	assert.Equal(t, 3, defs[0].Line, "block starts at the def line, not the decorator")
	assert.Equal(t, 4, defs[0].EndLine)
}

func TestScanMultiLineHeader(t *testing.T) {
	src := `def long_sig(
    a,
    b,
):
    return a + b

def after():
    pass
`
	defs := scanOne(t, src)

	require.Len(t, defs, 2)
	assert.Equal(t, 1, defs[0].Line)
	assert.Equal(t, 5, defs[0].EndLine, "header continuation lines belong to the block")
	assert.Equal(t, 7, defs[1].Line)
}

func TestScanOneLinerSuite(t *testing.T) {
	src := "def tiny(): return 42\ndef after(): pass\n"
	defs := scanOne(t, src)

	require.Len(t, defs, 2)
	assert.Equal(t, 1, defs[0].Line)
	assert.Equal(t, 1, defs[0].EndLine)
	assert.Equal(t, 2, defs[1].Line)
	assert.Equal(t, 2, defs[1].EndLine)
}

func TestScanInteriorBlankAndCommentLines(t *testing.T) {
	src := `def spaced():
    a = 1

    # interior comment
    b = 2


def next_fn():
    pass
`
	defs := scanOne(t, src)

	require.Len(t, defs, 2)
	assert.Equal(t, 1, defs[0].Line)
	assert.Equal(t, 5, defs[0].EndLine, "interior blanks stay, trailing blanks are trimmed")
}

func TestScanTrailingIndentedComment(t *testing.T) {
	src := `def fn():
    a = 1
    # still part of the body

def other():
    pass
`
	defs := scanOne(t, src)

	require.Len(t, defs, 2)
	assert.Equal(t, 3, defs[0].EndLine)
}

func TestScanColumnZeroCommentDoesNotTerminate(t *testing.T) {
	src := `def fn():
    a = 1
# module comment between body lines
    b = 2
`
	defs := scanOne(t, src)

	require.Len(t, defs, 1)
	assert.Equal(t, 4, defs[0].EndLine, "a dedented comment does not end the block")
}

func TestScanDefInsideStringIgnored(t *testing.T) {
	src := `doc = """
def fake():
    pass
"""

def real():
    pass
`
	defs := scanOne(t, src)

	require.Len(t, defs, 1)
	assert.Equal(t, "real", defs[0].Name)
	assert.Equal(t, 6, defs[0].Line)
}

func TestScanStringsWithHashAndColon(t *testing.T) {
	src := `def tricky():
    s = "# not a comment: honest"
    d = {"k": 1}
    return s
`
	defs := scanOne(t, src)

	require.Len(t, defs, 1)
	assert.Equal(t, 4, defs[0].EndLine)
}

func TestScanTabIndentation(t *testing.T) {
	defs := scanOne(t, "def tabbed():\n\treturn 1\n\tpass\n")

	require.Len(t, defs, 1)
	assert.Equal(t, 3, defs[0].EndLine)
}

func TestScanBackslashContinuation(t *testing.T) {
	src := "def cont():\n    total = 1 + \\\n        2\n    return total\n"
	defs := scanOne(t, src)

	require.Len(t, defs, 1)
	assert.Equal(t, 4, defs[0].EndLine)
}

func TestScanConditionalDefStaysBare(t *testing.T) {
	src := `if True:
    def guarded():
        pass
`
	defs := scanOne(t, src)

	require.Len(t, defs, 1)
	assert.Equal(t, "guarded", defs[0].Qualified)
	assert.Equal(t, 3, defs[0].EndLine)
}

func TestScanClassDeclarationNotReturned(t *testing.T) {
	src := `class OnlyClass:
    x = 1
`
	defs := scanOne(t, src)
	assert.Empty(t, defs, "classes themselves are not definitions")
}

func TestScanParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		line int
	}{
		{"unterminated triple string", "def f():\n    s = \"\"\"open\n", 2},
		{"unclosed bracket", "def broken(:\n    pass\n", 1},
		{"missing colon", "def broken(x)\n    pass\n", 1},
		{"missing parameter list", "def broken:\n    pass\n", 1},
		{"unmatched closing bracket", "def broken):\n    pass\n", 1},
		{"empty suite at eof", "def broken():\n", 1},
		{"comment-only suite", "def broken():\n    # nothing here\n", 1},
		{"empty class suite", "class Empty:\ndef after(): pass\n", 1},
		{"continuation at eof", "x = 1 + \\\n", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pyscan.Scan("bad.py", []byte(tc.src))
			require.Error(t, err)

			pe, ok := pferrors.AsParseError(err)
			require.True(t, ok, "expected a *errors.ParseError, got %T", err)
			assert.Equal(t, "bad.py", pe.Path)
			assert.Equal(t, tc.line, pe.Line)
		})
	}
}

func TestScanValidTrickyInputs(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want int // number of definitions
	}{
		{"empty file", "", 0},
		{"comments only", "# a\n# b\n", 0},
		{"dict literal colons", "m = {\n    'a': 1,\n    'b': 2,\n}\n", 0},
		{"lambda is not a def", "f = lambda x: x + 1\n", 0},
		{"def substring identifier", "definitely = 1\n", 0},
		{"async without def", "async with open('f') as f:\n    pass\n", 0},
		{"triple string closes same line", "s = \"\"\"one line\"\"\"\ndef f(): pass\n", 1},
		{"escaped quotes in string", "s = \"say \\\"hi\\\"\"\ndef f(): pass\n", 1},
		{"nested brackets", "x = [(1, {2: (3,)})]\ndef f(): pass\n", 1},
		{"crlf line endings", "def f():\r\n    pass\r\n", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defs, err := pyscan.Scan("ok.py", []byte(tc.src))
			require.NoError(t, err)
			assert.Len(t, defs, tc.want)
		})
	}
}

func TestScanDeclarationOrder(t *testing.T) {
	src := `def b():
    pass

class A:
    def a(self):
        pass

def c():
    pass
`
	defs := scanOne(t, src)

	require.Len(t, defs, 3)
	assert.Equal(t, []string{"b", "A.a", "c"}, []string{defs[0].Qualified, defs[1].Qualified, defs[2].Qualified})
}

func TestInnermostAt(t *testing.T) {
	src := `def outer():
    x = 1
    def inner():
        y = 2
    return inner
`
	defs := scanOne(t, src)
	require.Len(t, defs, 2)

	hit := pyscan.InnermostAt(defs, 4)
	require.NotNil(t, hit)
	assert.Equal(t, "inner", hit.Name)

	hit = pyscan.InnermostAt(defs, 5)
	require.NotNil(t, hit)
	assert.Equal(t, "outer", hit.Name)

	assert.Nil(t, pyscan.InnermostAt(defs, 99))
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, pyscan.SplitLines(nil))
	assert.Equal(t, []string{"a", "b"}, pyscan.SplitLines([]byte("a\nb\n")))
	assert.Equal(t, []string{"a", "b"}, pyscan.SplitLines([]byte("a\nb")))
	assert.Equal(t, []string{"a\r", "b\r"}, pyscan.SplitLines([]byte("a\r\nb\r\n")))
	assert.Equal(t, []string{"x = 1"}, pyscan.SplitLines([]byte("\xEF\xBB\xBFx = 1\n")))
}
