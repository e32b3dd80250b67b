// errors.go — user-facing error wrapping and caret-snippet rendering.
//
// WrapErrorWithSource turns the core's positional errors (*LexError,
// *ParseError, *EvalError) into readable snippets with a caret pointing at
// the offending column:
//
//	parse error at 3:1: expected ';'
//
//	   2 |     var x = 1
//	   3 | }
//	     | ^
//
// A parse error points at the token where parsing failed, here the '}'
// after the unterminated declaration.
//
// The snippet includes up to one line of context before and after the
// error. Diagnostics from the checker render the same way through
// RenderDiagnostic. Output is plain text, suitable for logs and
// terminals; errors of any other type pass through unchanged.
package devin

import (
	"fmt"
	"strings"
)

// WrapErrorWithSource returns an error augmented with a caret-annotated
// snippet of the provided source. It recognizes the core's error types and
// leaves other errors untouched.
func WrapErrorWithSource(err error, src string) error {
	switch e := err.(type) {
	case *LexError:
		return fmt.Errorf("%s", snippet(src, "lexical error", e.Offset, e.Msg))
	case *ParseError:
		return fmt.Errorf("%s", snippet(src, "parse error", e.Offset,
			"expected "+strings.Join(e.Expected, " or ")))
	case *EvalError:
		return fmt.Errorf("%s", snippet(src, fmt.Sprintf("runtime error (%s)", e.Kind), e.Span.Start, e.Msg))
	default:
		return err
	}
}

// RenderDiagnostic renders a checker diagnostic with the same caret
// snippet format.
func RenderDiagnostic(d Diagnostic, src string) string {
	header := "error " + d.Kind.String()
	if d.Kind.Warning() {
		header = "warning " + d.Kind.String()
	}
	return snippet(src, header, d.Span.Start, d.Msg)
}

// snippet builds a caret-annotated excerpt around a byte offset. Line and
// column are clamped to the source bounds so rendering never fails.
func snippet(src, header string, offset int, msg string) string {
	pos := PositionAt(src, offset)
	lines := strings.Split(src, "\n")
	if len(lines) == 0 {
		lines = []string{""}
	}
	line, col := pos.Line, pos.Col
	if line > len(lines) {
		line = len(lines)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	caretPad := col - 1
	if caretPad < 0 {
		caretPad = 0
	}
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", caretPad))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
