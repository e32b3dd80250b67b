// eval_test.go
package devin

import (
	"math/big"
	"strings"
	"testing"
)

// --- helpers ---------------------------------------------------------------

func runProgram(t *testing.T, src string) error {
	t.Helper()
	prog := mustParse(t, src)
	diags := Check(prog)
	if HasErrors(diags) {
		t.Fatalf("unexpected diagnostics: %v\nsource:\n%s", diags, src)
	}
	return Evaluate(prog, NewState())
}

func mustRun(t *testing.T, src string) {
	t.Helper()
	if err := runProgram(t, src); err != nil {
		t.Fatalf("runtime error: %v\nsource:\n%s", err, src)
	}
}

func mustFailRun(t *testing.T, src string, kind EvalErrorKind) *EvalError {
	t.Helper()
	err := runProgram(t, src)
	if err == nil {
		t.Fatalf("expected runtime error %v, got success\nsource:\n%s", kind, src)
	}
	ee, ok := err.(*EvalError)
	if !ok {
		t.Fatalf("expected *EvalError, got %v", err)
	}
	if ee.Kind != kind {
		t.Fatalf("expected %v, got %v (%s)", kind, ee.Kind, ee.Msg)
	}
	return ee
}

// --- end-to-end scenarios --------------------------------------------------

func Test_Eval_Arithmetic(t *testing.T) {
	mustRun(t, "def main() { var x = 1; var y = 2; var z = 2*y + x; assert z == 5; }")
}

func Test_Eval_VarBindingClonesArrays(t *testing.T) {
	mustRun(t, "def main() { var a1 = [4,-2,1,0]; var a2 = a1; a1[1] = 7; assert a1 == [4,7,1,0]; assert a2 == [4,-2,1,0]; }")
}

func Test_Eval_ArrayRepetition(t *testing.T) {
	mustRun(t, "def main() { var a=[1,2]; assert a*5 == [1,2,1,2,1,2,1,2,1,2]; assert a*0 == []; assert a*(-2) == []; }")
}

func Test_Eval_ForwardReference(t *testing.T) {
	mustRun(t, "def main() { assert factorial(6) == 720; } def factorial(n) { if n==0 { return 1; } return n*factorial(n-1); }")
}

func Test_Eval_RefParameter(t *testing.T) {
	mustRun(t, "def main() { var a=[9,7,2,5]; update(a, 1, -42); assert a == [9,-42,2,5]; } def update(ref a, i, v) { a[i] = v; }")
}

func Test_Eval_MutualRecursion(t *testing.T) {
	mustRun(t, "def main() { assert isOdd(69); assert isEven(420); } def isEven(n) { if n==0 return true; else return isOdd(n-1); } def isOdd(n) { if n==0 return false; else return isEven(n-1); }")
}

// --- aliasing properties ---------------------------------------------------

func Test_Eval_RefScalarAliasing(t *testing.T) {
	mustRun(t, `
def bump(ref n) { n += 1; }
def main() { var x = 1; bump(x); assert x == 2; }
`)
}

func Test_Eval_ByValueScalarDoesNotPropagate(t *testing.T) {
	mustRun(t, `
def bump(n) { n += 1; }
def main() { var x = 1; bump(x); assert x == 1; }
`)
}

func Test_Eval_ByValueArraySharesContent(t *testing.T) {
	// A by-value array parameter copies only the aid, so mutations inside
	// the array propagate.
	mustRun(t, `
def poke(a) { a[0] = 99; }
def main() { var xs = [1, 2]; poke(xs); assert xs == [99, 2]; }
`)
}

func Test_Eval_RefArrayElement(t *testing.T) {
	// A ref argument may be an array element slot.
	mustRun(t, `
def clear(ref n) { n = 0; }
def main() { var xs = [5, 6]; clear(xs[1]); assert xs == [5, 0]; }
`)
}

func Test_Eval_NestedFunctionsSeeEnclosingLocals(t *testing.T) {
	mustRun(t, `
def main() {
	var total = 0;
	def add(n) { total += n; }
	add(2);
	add(3);
	assert total == 5;
}
`)
}

// --- control flow ----------------------------------------------------------

func Test_Eval_WhileLoop(t *testing.T) {
	mustRun(t, "def main() { var i = 0; var sum = 0; while i < 5 { sum += i; i += 1; } assert sum == 10; }")
}

func Test_Eval_DoWhileRunsAtLeastOnce(t *testing.T) {
	mustRun(t, "def main() { var n = 0; do n += 1; while false; assert n == 1; }")
}

func Test_Eval_ReturnUnwindsLoops(t *testing.T) {
	mustRun(t, `
def find(xs, want): Int { var i = 0; while i < len xs { if xs[i] == want { return i; } i += 1; } return -1; }
def main() { assert find([4, 5, 6], 6) == 2; assert find([4, 5, 6], 9) == -1; }
`)
}

func Test_Eval_LogicalOperatorsEvaluateBothSides(t *testing.T) {
	mustRun(t, `
def side(ref c, v: Bool): Bool { c += 1; return v; }
def main() {
	var n = 0;
	var r = side(n, false) and side(n, true);
	assert not r;
	assert n == 2;
	assert (side(n, true) xor side(n, false));
	assert n == 4;
}
`)
}

// --- arithmetic ------------------------------------------------------------

func Test_Eval_ExactRationals(t *testing.T) {
	mustRun(t, "def main() { assert 1.0/3.0 + 1.0/3.0 + 1.0/3.0 == 1.0; }")
	mustRun(t, "def main() { assert 0.1 + 0.2 == 0.3; }")
}

func Test_Eval_UnboundedIntegers(t *testing.T) {
	mustRun(t, `
def pow(base, n): Int { var r = 1; var i = 0; while i < n { r *= base; i += 1; } return r; }
def main() { assert pow(2, 100) == pow(2, 50) * pow(2, 50); assert pow(2, 100) > pow(2, 99); }
`)
}

func Test_Eval_TruncatedRemainder(t *testing.T) {
	// The remainder takes the sign of the dividend.
	mustRun(t, `
def main() {
	assert 7 % 3 == 1;
	assert -7 % 3 == -1;
	assert 7 % -3 == 1;
	assert -7 % -3 == -1;
	assert -7 / 2 == -3;
}
`)
}

func Test_Eval_ArrayEquality(t *testing.T) {
	mustRun(t, `
def main() {
	assert [1, 2, 3] == [1, 2, 3];
	var a = [1, 2, 3];
	var b = [1, 2, 3];
	assert a == b;
	a[0] = 9;
	assert a != b;
	assert [[1], [2]] == [[1], [2]];
}
`)
}

// --- runtime errors --------------------------------------------------------

func Test_Eval_NoMain(t *testing.T) {
	mustFailRun(t, "var x = 1;", NoMain)
	// main must take no arguments.
	mustFailRun(t, "def main(n: Int) { }", NoMain)
}

func Test_Eval_IndexOutOfBounds(t *testing.T) {
	mustFailRun(t, "def main() { var a = [1, 2]; var x = a[2]; }", IndexOutOfBounds)
	mustFailRun(t, "def main() { var a = [1, 2]; a[-1] = 0; }", IndexOutOfBounds)
}

func Test_Eval_DivisionByZero(t *testing.T) {
	mustFailRun(t, "def main() { var x = 1 / 0; }", DivisionByZero)
	mustFailRun(t, "def main() { var x = 1 % 0; }", DivisionByZero)
	mustFailRun(t, "def main() { var x = 1.0 / 0.0; }", DivisionByZero)
}

func Test_Eval_AssertionFailure(t *testing.T) {
	src := "def main() { var x = 2; assert x == 3; }"
	ee := mustFailRun(t, src, AssertionFailure)
	if !strings.Contains(ee.Msg, "x == 3") {
		t.Fatalf("assertion message should quote the expression, got %q", ee.Msg)
	}
	if src[ee.Span.Start:ee.Span.End] != "x == 3" {
		t.Fatalf("span should cover the predicate, got %q", src[ee.Span.Start:ee.Span.End])
	}
}

func Test_Eval_RefExpectsLValue(t *testing.T) {
	mustFailRun(t, "def f(ref n) { n = 0; } def main() { f(1 + 2); }", RefExpectsLValue)
}

func Test_Eval_StackOverflow(t *testing.T) {
	src := "def loop(n): Int { return loop(n + 1); } def main() { loop(0); }"
	prog := mustParse(t, src)
	if diags := Check(prog); HasErrors(diags) {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	st := NewState()
	st.MaxDepth = 100
	err := Evaluate(prog, st)
	ee, ok := err.(*EvalError)
	if !ok || ee.Kind != StackOverflow {
		t.Fatalf("expected StackOverflow, got %v", err)
	}
}

func Test_Eval_ErrorsCarrySpans(t *testing.T) {
	src := "def main() { var a = [1]; var x = a[5]; }"
	ee := mustFailRun(t, src, IndexOutOfBounds)
	if src[ee.Span.Start:ee.Span.End] != "a[5]" {
		t.Fatalf("span should cover the access, got %q", src[ee.Span.Start:ee.Span.End])
	}
}

// --- state API -------------------------------------------------------------

func Test_Eval_DeclarationsAndLookup(t *testing.T) {
	prog := mustParse(t, "var x = 6; var y = x * 7;")
	if diags := Check(prog); HasErrors(diags) {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	st := NewState()
	if err := EvalDeclarations(prog, st); err != nil {
		t.Fatalf("EvalDeclarations: %v", err)
	}
	v, ok := st.Lookup("y")
	if !ok || v.Tag != VTInt || v.Int.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("y should be 42, got %v", st.Display(v))
	}
	if _, ok := st.Lookup("z"); ok {
		t.Fatal("z should not be bound")
	}
}

func Test_Eval_DisplayValues(t *testing.T) {
	prog := mustParse(t, "var a = [1, 2]; var r = 1.0/4.0; var t = 1.0/3.0;")
	if diags := Check(prog); HasErrors(diags) {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	st := NewState()
	if err := EvalDeclarations(prog, st); err != nil {
		t.Fatalf("EvalDeclarations: %v", err)
	}
	a, _ := st.Lookup("a")
	if got := st.Display(a); got != "[1, 2]" {
		t.Fatalf("array display mismatch: %q", got)
	}
	r, _ := st.Lookup("r")
	if got := st.Display(r); got != "0.25" {
		t.Fatalf("rational display mismatch: %q", got)
	}
	tv, _ := st.Lookup("t")
	if got := st.Display(tv); got != "0.(3)" {
		t.Fatalf("repeating display mismatch: %q", got)
	}
}
