// parser_test.go
package devin

import (
	"strings"
	"testing"
)

// --- helpers ---------------------------------------------------------------

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v\nsource:\n%s", err, src)
	}
	return prog
}

func mustFailParse(t *testing.T, src string) *ParseError {
	t.Helper()
	_, err := Parse(src)
	if err == nil {
		t.Fatalf("expected parse error, got nil\nsource:\n%s", src)
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	return pe
}

// firstStmt digs out the first statement of the first function's block
// body.
func firstStmt(t *testing.T, src string) Statement {
	t.Helper()
	prog := mustParse(t, src)
	fd, ok := prog.Decls[0].(*FuncDecl)
	if !ok {
		t.Fatalf("first declaration is not a function: %T", prog.Decls[0])
	}
	body, ok := fd.Body.(*BlockStmt)
	if !ok || len(body.Items) == 0 {
		t.Fatalf("function body is not a non-empty block")
	}
	return body.Items[0]
}

func exprOf(t *testing.T, src string) Expression {
	t.Helper()
	s, ok := firstStmt(t, "def f() { "+src+"; }").(*ExprStmt)
	if !ok {
		t.Fatalf("not an expression statement")
	}
	return s.X
}

// --- declarations ----------------------------------------------------------

func Test_Parser_VarDecl(t *testing.T) {
	prog := mustParse(t, "var x = 1;")
	vd, ok := prog.Decls[0].(*VarDecl)
	if !ok {
		t.Fatalf("want *VarDecl, got %T", prog.Decls[0])
	}
	if vd.Name.Name != "x" || vd.Annot != nil {
		t.Fatalf("unexpected declaration: %s", vd)
	}
}

func Test_Parser_VarDeclWithAnnotation(t *testing.T) {
	prog := mustParse(t, "var xs: [Int] = [1, 2];")
	vd := prog.Decls[0].(*VarDecl)
	at, ok := vd.Annot.(*ArrayTypeExpr)
	if !ok {
		t.Fatalf("want array type annotation, got %T", vd.Annot)
	}
	if named, ok := at.Elem.(*NamedTypeExpr); !ok || named.Name != "Int" {
		t.Fatalf("want [Int], got %s", vd.Annot)
	}
}

func Test_Parser_FuncDecl(t *testing.T) {
	prog := mustParse(t, "def update(ref a, i: Int, v) { a[i] = v; }")
	fd := prog.Decls[0].(*FuncDecl)
	if len(fd.Params) != 3 {
		t.Fatalf("want 3 parameters, got %d", len(fd.Params))
	}
	if !fd.Params[0].Ref || fd.Params[1].Ref {
		t.Fatalf("ref flags wrong: %s", fd)
	}
	if fd.Params[1].Annot == nil || fd.Params[2].Annot != nil {
		t.Fatalf("annotations wrong: %s", fd)
	}
}

func Test_Parser_NonBlockBodies(t *testing.T) {
	prog := mustParse(t, "def isEven(n) { if n == 0 return true; else return isOdd(n - 1); }")
	fd := prog.Decls[0].(*FuncDecl)
	ifs, ok := fd.Body.(*BlockStmt).Items[0].(*IfStmt)
	if !ok {
		t.Fatalf("want *IfStmt, got %T", fd.Body.(*BlockStmt).Items[0])
	}
	if _, ok := ifs.Then.(*ReturnStmt); !ok {
		t.Fatalf("then branch should be a bare return, got %T", ifs.Then)
	}
	if ifs.Else == nil {
		t.Fatal("else branch missing")
	}
}

func Test_Parser_ElseBindsToNearestIf(t *testing.T) {
	s := firstStmt(t, "def f() { if a if b return; else return; }")
	outer := s.(*IfStmt)
	if outer.Else != nil {
		t.Fatal("else bound to the outer if")
	}
	inner := outer.Then.(*IfStmt)
	if inner.Else == nil {
		t.Fatal("else missing from the inner if")
	}
}

// --- statements ------------------------------------------------------------

func Test_Parser_WhileAndDoWhile(t *testing.T) {
	if _, ok := firstStmt(t, "def f() { while x < 10 x += 1; }").(*WhileStmt); !ok {
		t.Fatal("while did not parse")
	}
	if _, ok := firstStmt(t, "def f() { do x += 1; while x < 10; }").(*DoWhileStmt); !ok {
		t.Fatal("do-while did not parse")
	}
}

func Test_Parser_NestedDeclarations(t *testing.T) {
	s := firstStmt(t, "def f() { def g() { return; } }")
	ds, ok := s.(*DeclStmt)
	if !ok {
		t.Fatalf("want *DeclStmt, got %T", s)
	}
	if _, ok := ds.Decl.(*FuncDecl); !ok {
		t.Fatalf("want nested *FuncDecl, got %T", ds.Decl)
	}
}

// --- expression precedence -------------------------------------------------

func Test_Parser_Precedence(t *testing.T) {
	cases := map[string]string{
		"2*y + x":          "2 * y + x",
		"a == b and c < d": "a == b and c < d",
		"1 + 2 * 3":        "1 + 2 * 3",
		"len a[0]":         "len a[0]",
		"-a[1]":            "-a[1]",
		"(1 + 2) * 3":      "(1 + 2) * 3",
	}
	for src, want := range cases {
		if got := exprOf(t, src).String(); got != want {
			t.Fatalf("render mismatch for %q: got %q", src, got)
		}
	}
}

func Test_Parser_PrecedenceShape(t *testing.T) {
	// 1 + 2 * 3 must parse as 1 + (2 * 3).
	b := exprOf(t, "1 + 2 * 3").(*BinaryExpr)
	if b.Op != OpAdd {
		t.Fatalf("want top-level +, got %v", b.Op)
	}
	if inner, ok := b.Right.(*BinaryExpr); !ok || inner.Op != OpMul {
		t.Fatalf("want * on the right, got %s", b.Right)
	}
}

func Test_Parser_IndexingIsLeftAssociative(t *testing.T) {
	ix := exprOf(t, "m[0][1]").(*IndexExpr)
	if _, ok := ix.Base.(*IndexExpr); !ok {
		t.Fatalf("want nested index on the base, got %T", ix.Base)
	}
}

func Test_Parser_AssignmentForms(t *testing.T) {
	for src, op := range map[string]AssignOp{
		"x = 1":     AsnSet,
		"x += 1":    AsnAdd,
		"x -= 1":    AsnSub,
		"x *= 2":    AsnMul,
		"x /= 2":    AsnDiv,
		"x %= 2":    AsnRem,
		"a[0] = 1":  AsnSet,
		"a[0] += 1": AsnAdd,
	} {
		as, ok := exprOf(t, src).(*AssignExpr)
		if !ok {
			t.Fatalf("%q did not parse as assignment", src)
		}
		if as.Op != op {
			t.Fatalf("%q: want op %v, got %v", src, op, as.Op)
		}
	}
}

func Test_Parser_CallVsVariable(t *testing.T) {
	if _, ok := exprOf(t, "f(1, 2)").(*CallExpr); !ok {
		t.Fatal("call did not parse")
	}
	if _, ok := exprOf(t, "f").(*VarExpr); !ok {
		t.Fatal("bare identifier did not parse as a variable")
	}
}

func Test_Parser_ArrayLiterals(t *testing.T) {
	arr := exprOf(t, "[4, -2, 1, 0]").(*ArrayLit)
	if len(arr.Elems) != 4 {
		t.Fatalf("want 4 elements, got %d", len(arr.Elems))
	}
	if _, ok := arr.Elems[1].(*UnaryExpr); !ok {
		t.Fatalf("want unary minus element, got %T", arr.Elems[1])
	}
	empty := exprOf(t, "[]").(*ArrayLit)
	if len(empty.Elems) != 0 {
		t.Fatal("empty array literal has elements")
	}
}

// --- spans -----------------------------------------------------------------

func Test_Parser_SpansNest(t *testing.T) {
	src := "def main() { var z = 2*y + x; }"
	prog := mustParse(t, src)
	var walk func(parent Span, n Node)
	walk = func(parent Span, n Node) {
		sp := n.Span()
		if sp.Start < parent.Start || sp.End > parent.End {
			t.Fatalf("span %v of %s escapes parent %v", sp, n, parent)
		}
	}
	fd := prog.Decls[0].(*FuncDecl)
	walk(prog.Span(), fd)
	walk(fd.Span(), fd.Body)
	body := fd.Body.(*BlockStmt)
	walk(body.Span(), body.Items[0])
	vd := body.Items[0].(*DeclStmt).Decl.(*VarDecl)
	walk(vd.Span(), vd.Init)
}

// --- error reporting -------------------------------------------------------

func Test_Parser_ExpectedSetAtTopLevel(t *testing.T) {
	pe := mustFailParse(t, "while x {}")
	// Top level allows only declarations; both alternatives report.
	joined := strings.Join(pe.Expected, " ")
	if !strings.Contains(joined, "'var'") || !strings.Contains(joined, "'def'") {
		t.Fatalf("expected set should merge both alternatives, got %v", pe.Expected)
	}
}

func Test_Parser_DeepestFailureWins(t *testing.T) {
	pe := mustFailParse(t, "def f() { var x = ; }")
	if pe.Expected[0] != "expression" {
		t.Fatalf("want the deep failure, got %v", pe.Expected)
	}
	if pe.Offset != 18 {
		t.Fatalf("want failure at byte 18, got %d", pe.Offset)
	}
}

func Test_Parser_MissingSemicolon(t *testing.T) {
	pe := mustFailParse(t, "var x = 1")
	joined := strings.Join(pe.Expected, " ")
	if !strings.Contains(joined, "';'") {
		t.Fatalf("want ';' in expected set, got %v", pe.Expected)
	}
}

func Test_Parser_InteractiveIncomplete(t *testing.T) {
	_, err := ParseInteractive("def main() { var x = 1;")
	if !IsIncomplete(err) {
		t.Fatalf("want incomplete parse, got %v", err)
	}
	// The same failure in batch mode is an ordinary parse error.
	_, err = Parse("def main() { var x = 1;")
	if err == nil || IsIncomplete(err) {
		t.Fatalf("batch mode must not report incomplete, got %v", err)
	}
}

// --- round trip ------------------------------------------------------------

func Test_Parser_RoundTrip(t *testing.T) {
	sources := []string{
		"def main() { var x = 1; var y = 2; var z = 2*y + x; assert z == 5; }",
		"var xs: [Int] = [1, 2, 3];",
		"def f(ref a, i: Int): Int { while i < len a { i += 1; } return i; }",
		"def g() { do { g(); } while false; }",
		"def h(n) { if n == 0 return 1; else return n * h(n - 1); }",
		"var r = 1.0; var s = 0.125; var u = -2.5;",
	}
	for _, src := range sources {
		once := mustParse(t, src).String()
		twice := mustParse(t, once).String()
		if once != twice {
			t.Fatalf("round trip mismatch:\nsource: %s\nonce:   %s\ntwice:  %s", src, once, twice)
		}
	}
}
