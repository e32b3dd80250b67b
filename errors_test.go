// errors_test.go
package devin

import (
	"strings"
	"testing"
)

func Test_WrapErrorWithSource_ParseError(t *testing.T) {
	src := "def main() {\n    var x = 1\n}\n"
	_, err := Parse(src)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	wrapped := WrapErrorWithSource(err, src)
	msg := wrapped.Error()
	if !strings.Contains(msg, "parse error at 3:1") {
		t.Fatalf("missing position header:\n%s", msg)
	}
	if !strings.Contains(msg, "';'") {
		t.Fatalf("missing expected set:\n%s", msg)
	}
	if !strings.Contains(msg, "| ^") && !strings.Contains(msg, "|  ^") && !strings.Contains(msg, "^") {
		t.Fatalf("missing caret:\n%s", msg)
	}
	if !strings.Contains(msg, "   2 |     var x = 1") {
		t.Fatalf("missing context line:\n%s", msg)
	}
}

func Test_WrapErrorWithSource_EvalError(t *testing.T) {
	src := "def main() {\n    assert 1 == 2;\n}\n"
	prog := mustParse(t, src)
	if diags := Check(prog); len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	err := Evaluate(prog, NewState())
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	msg := WrapErrorWithSource(err, src).Error()
	if !strings.Contains(msg, "runtime error (AssertionFailure) at 2:12") {
		t.Fatalf("missing header:\n%s", msg)
	}
}

func Test_WrapErrorWithSource_PassThrough(t *testing.T) {
	src := "var x = 1;"
	lexErr := &LexError{Offset: 0, Msg: "boom"}
	if got := WrapErrorWithSource(lexErr, src); got == error(lexErr) {
		t.Fatal("lex errors must be wrapped")
	}
	foreign := errPassThrough{}
	if got := WrapErrorWithSource(foreign, src); got != error(foreign) {
		t.Fatal("foreign errors must pass through unchanged")
	}
}

type errPassThrough struct{}

func (errPassThrough) Error() string { return "foreign" }

func Test_RenderDiagnostic(t *testing.T) {
	src := "def main() {\n    var x = y;\n}\n"
	prog := mustParse(t, src)
	diags := Check(prog)
	if len(diags) != 1 {
		t.Fatalf("want one diagnostic, got %v", diags)
	}
	out := RenderDiagnostic(diags[0], src)
	if !strings.Contains(out, "error UnknownVariable at 2:13") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "unknown variable: y") {
		t.Fatalf("missing message:\n%s", out)
	}
}
