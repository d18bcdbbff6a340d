package luart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/gopher-lua/parse"
)

// SyntaxError is a chunk that does not parse. Line and Col are 1-based and
// zero when unknown.
type SyntaxError struct {
	Chunk string
	Line  int
	Col   int
	Msg   string
	Src   string
	// Incomplete is set when the error sits at the end of the input, which
	// usually means more lines are coming.
	Incomplete bool
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("SYNTAX ERROR in %s: %s", e.Chunk, e.Msg)
	}
	return snippet(e.Src, "SYNTAX ERROR", e.Chunk, e.Line, e.Col, e.Msg)
}

// RuntimeError is a Lua error raised while a chunk ran.
type RuntimeError struct {
	Chunk string
	Msg   string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error in %s: %s", e.Chunk, e.Msg)
}

func newSyntaxError(err error, name, src string) *SyntaxError {
	se := &SyntaxError{Chunk: name, Msg: strings.TrimSpace(err.Error()), Src: src}
	var pe *parse.Error
	if errors.As(err, &pe) {
		se.Msg = strings.TrimSpace(pe.Message)
		if pe.Token != "" {
			se.Msg += fmt.Sprintf(" near '%s'", pe.Token)
		}
		if pe.Pos.Line > 0 {
			se.Line, se.Col = pe.Pos.Line, pe.Pos.Column
		}
	}
	se.Incomplete = strings.Contains(err.Error(), "EOF") ||
		strings.Contains(se.Msg, "unterminated") ||
		atEnd(src, se.Line, se.Col)
	return se
}

// atEnd reports whether line:col is at or past the last non-blank character
// of src.
func atEnd(src string, line, col int) bool {
	trimmed := strings.TrimRight(src, " \t\r\n")
	if trimmed == "" {
		return true
	}
	lines := strings.Split(trimmed, "\n")
	switch {
	case line == 0:
		return false
	case line > len(lines):
		return true
	case line < len(lines):
		return false
	}
	return col >= len(lines[len(lines)-1])-1
}

// snippet renders a header plus the offending line, one line of context on
// each side and a caret under the column. Coordinates are clamped to src.
func snippet(src, header, name string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	line = min(max(line, 1), len(lines))
	col = max(col, 1)

	var b strings.Builder
	fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", header, name, line, col, msg)
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
