package pyscan

import (
	"strings"
	"unicode"
	"unicode/utf8"

	pferrors "github.com/standardbeagle/pf/internal/errors"
)

// scanState is the lexical state carried across physical lines.
type scanState struct {
	inTriple    bool
	tripleQuote byte
	tripleLine  int  // 1-based line where the open triple-quoted string began
	depth       int  // bracket nesting
	cont        bool // line ended with a backslash continuation
}

// open reports whether the current logical line still needs more physical
// lines to complete.
func (st *scanState) open() bool {
	return st.inTriple || st.depth > 0 || st.cont
}

// lineFacts is what one physical line contributes to its logical line.
type lineFacts struct {
	code        string // text with any trailing comment removed
	lastColon   int    // offset in code of the last depth-0 colon outside strings, -1 if none
	strayCloser bool   // a closing bracket appeared at depth 0
}

// scanLine advances the lexical state across one physical line and reports
// the line's code-visible features. lineno is 1-based and only used to stamp
// where an open triple-quoted string began.
func scanLine(line string, lineno int, st *scanState) lineFacts {
	line = strings.TrimSuffix(line, "\r")
	facts := lineFacts{lastColon: -1}
	st.cont = false

	commentAt := -1
	i := 0
	for i < len(line) {
		c := line[i]

		if st.inTriple {
			switch {
			case c == '\\':
				i += 2
			case c == st.tripleQuote && i+2 < len(line) && line[i+1] == c && line[i+2] == c:
				st.inTriple = false
				i += 3
			default:
				i++
			}
			continue
		}

		switch c {
		case '#':
			commentAt = i
			i = len(line)
		case '"', '\'':
			if i+2 < len(line) && line[i+1] == c && line[i+2] == c {
				st.inTriple = true
				st.tripleQuote = c
				st.tripleLine = lineno
				i += 3
				continue
			}
			// Short string: consume to the closing quote on this line.
			// Python does not let these span lines; if the close is
			// missing we fall off the end and resume, which is lenient
			// but keeps block detection working.
			j := i + 1
			for j < len(line) {
				if line[j] == '\\' {
					j += 2
					continue
				}
				if line[j] == c {
					break
				}
				j++
			}
			i = j + 1
		case '(', '[', '{':
			st.depth++
			i++
		case ')', ']', '}':
			if st.depth == 0 {
				facts.strayCloser = true
			} else {
				st.depth--
			}
			i++
		case ':':
			if st.depth == 0 {
				facts.lastColon = i
			}
			i++
		default:
			i++
		}
	}

	if commentAt >= 0 {
		facts.code = line[:commentAt]
	} else {
		facts.code = line
	}

	if !st.inTriple && strings.HasSuffix(facts.code, `\`) {
		st.cont = true
	}

	return facts
}

// frame is one open class or def scope on the nesting stack.
type frame struct {
	isClass    bool
	name       string
	indent     int
	headerLine int // 1-based, for diagnostics
	def        *Definition
	sawBody    bool
}

// declKind identifies what a logical code line declares, if anything.
type declKind int

const (
	declNone declKind = iota
	declDef
	declAsyncDef
	declClass
)

// Scan extracts every definition from src in declaration order. The returned
// error, if any, is a *errors.ParseError describing why the file's block
// structure could not be established.
func Scan(path string, src []byte) ([]Definition, error) {
	lines := SplitLines(src)

	var (
		defs  []*Definition
		stack []frame
		st    scanState
	)

	// Close every frame whose indentation is at or beyond col. A frame
	// closing without ever seeing a statement in its suite is a structural
	// error.
	closeFrames := func(col int) error {
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.indent < col {
				return nil
			}
			if !top.sawBody {
				return pferrors.NewParseError(path, top.headerLine, "expected an indented block")
			}
			stack = stack[:len(stack)-1]
		}
		return nil
	}

	for i := 0; i < len(lines); {
		switch classifyLine(lines[i]) {
		case kindBlank:
			// Blank lines neither extend nor close a block.
			i++
			continue
		case kindComment:
			// Comment-only lines are part of any block indented past
			// them but never terminate one, and never count as a suite.
			col := indentWidth(lines[i])
			for j := range stack {
				if stack[j].def != nil && stack[j].indent < col {
					stack[j].def.EndLine = i + 1
				}
			}
			i++
			continue
		}

		// A logical code line starts here.
		start := i
		startLine := start + 1
		col := indentWidth(lines[i])

		colonLine, colonOff := -1, -1
		inline := false
		for {
			facts := scanLine(lines[i], i+1, &st)
			if facts.strayCloser {
				return nil, pferrors.NewParseError(path, i+1, "unmatched closing bracket")
			}
			switch {
			case facts.lastColon >= 0:
				colonLine, colonOff = i, facts.lastColon
				inline = nonBlankCode(facts.code[facts.lastColon+1:])
			case colonLine >= 0:
				// Continuation text past the suite colon.
				inline = inline || nonBlankCode(facts.code)
			}
			i++
			if !st.open() || i >= len(lines) {
				break
			}
		}
		if st.open() {
			switch {
			case st.inTriple:
				return nil, pferrors.NewParseError(path, st.tripleLine, "unterminated triple-quoted string")
			case st.depth > 0:
				return nil, pferrors.NewParseError(path, startLine, "unclosed bracket at end of file")
			default:
				return nil, pferrors.NewParseError(path, len(lines), "line continuation at end of file")
			}
		}
		end := i - 1 // last physical line of this logical line

		if err := closeFrames(col); err != nil {
			return nil, err
		}
		for j := range stack {
			stack[j].sawBody = true
			if stack[j].def != nil {
				stack[j].def.EndLine = end + 1
			}
		}

		kind, name, nameEnd, async := parseDeclaration(lines[start])
		if kind == declNone {
			continue
		}

		// def and class headers must end in a real suite colon.
		if colonLine < 0 {
			return nil, pferrors.NewParseError(path, startLine, "malformed "+declWord(kind)+" statement: missing colon")
		}
		if kind != declClass && !paramsFollowName(lines, start, nameEnd, colonLine, colonOff) {
			return nil, pferrors.NewParseError(path, startLine, "malformed def statement: missing parameter list")
		}

		qualified := name
		if len(stack) > 0 && stack[len(stack)-1].isClass {
			qualified = stack[len(stack)-1].name + "." + name
		}

		if kind == declClass {
			if !inline {
				stack = append(stack, frame{isClass: true, name: name, indent: col, headerLine: startLine})
			}
			continue
		}

		d := &Definition{
			Name:      name,
			Qualified: qualified,
			Line:      startLine,
			EndLine:   end + 1,
			Async:     async,
		}
		defs = append(defs, d)
		if !inline {
			stack = append(stack, frame{
				name:       name,
				indent:     col,
				headerLine: startLine,
				def:        d,
			})
		}
	}

	if err := closeFrames(0); err != nil {
		return nil, err
	}

	out := make([]Definition, len(defs))
	for i, d := range defs {
		out[i] = *d
	}
	return out, nil
}

// nonBlankCode reports whether a post-colon code fragment contains anything
// besides whitespace and a continuation backslash.
func nonBlankCode(code string) bool {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimRight(code, " \t"), `\`)) != ""
}

// parseDeclaration inspects the first physical line of a logical code line
// for a def/async def/class keyword. nameEnd is the byte offset just past
// the declared name, for validating the parameter list that must follow.
func parseDeclaration(line string) (kind declKind, name string, nameEnd int, async bool) {
	s := strings.TrimSuffix(line, "\r")
	p := 0
	for p < len(s) && (s[p] == ' ' || s[p] == '\t') {
		p++
	}

	if q, ok := keywordAt(s, p, "async"); ok {
		if q2, ok2 := keywordAt(s, q, "def"); ok2 {
			if n := identAt(s[q2:]); n != "" {
				return declAsyncDef, n, q2 + len(n), true
			}
		}
		return declNone, "", 0, false
	}
	if q, ok := keywordAt(s, p, "def"); ok {
		if n := identAt(s[q:]); n != "" {
			return declDef, n, q + len(n), false
		}
		return declNone, "", 0, false
	}
	if q, ok := keywordAt(s, p, "class"); ok {
		if n := identAt(s[q:]); n != "" {
			return declClass, n, q + len(n), false
		}
	}
	return declNone, "", 0, false
}

// keywordAt matches word at offset p followed by whitespace and returns the
// offset past the separating spaces.
func keywordAt(s string, p int, word string) (int, bool) {
	if !strings.HasPrefix(s[p:], word) {
		return 0, false
	}
	q := p + len(word)
	if q >= len(s) || (s[q] != ' ' && s[q] != '\t') {
		return 0, false
	}
	for q < len(s) && (s[q] == ' ' || s[q] == '\t') {
		q++
	}
	return q, true
}

// identAt reads a leading Python identifier, or "" when s does not start
// with one.
func identAt(s string) string {
	end := 0
	for end < len(s) {
		r, size := utf8.DecodeRuneInString(s[end:])
		if end == 0 {
			if r != '_' && !unicode.IsLetter(r) {
				return ""
			}
		} else if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		end += size
	}
	return s[:end]
}

func declWord(kind declKind) string {
	if kind == declClass {
		return "class"
	}
	return "def"
}

// paramsFollowName verifies that a parameter list opens between a def's name
// and its suite colon. Python 3.12 type-parameter brackets are accepted too.
func paramsFollowName(lines []string, start, nameEnd, colonLine, colonOff int) bool {
	for l := start; l <= colonLine; l++ {
		text := strings.TrimSuffix(lines[l], "\r")
		from := 0
		if l == start {
			from = nameEnd
		}
		limit := len(text)
		if l == colonLine && colonOff < limit {
			limit = colonOff
		}
		for p := from; p < limit; p++ {
			switch text[p] {
			case ' ', '\t', '\\':
				continue
			case '(', '[':
				return true
			default:
				return false
			}
		}
	}
	return false
}
