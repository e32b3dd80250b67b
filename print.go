// print.go — canonical source rendering for Devin AST nodes.
//
// Every node renders a source-equivalent string: reparsing the rendered
// form of a valid program yields the same tree (modulo spans and the
// whitespace/comments the renderer normalizes away). AssertionFailure
// messages use these renderings to quote the failed predicate.
package devin

import "strings"

func (p *Program) String() string {
	parts := make([]string, len(p.Decls))
	for i, d := range p.Decls {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n\n")
}

// ───────────────────────────── declarations ─────────────────────────────

func (id *Ident) String() string { return id.Name }

func (d *VarDecl) String() string {
	var b strings.Builder
	b.WriteString("var ")
	b.WriteString(d.Name.Name)
	if d.Annot != nil {
		b.WriteString(": ")
		b.WriteString(d.Annot.String())
	}
	b.WriteString(" = ")
	b.WriteString(d.Init.String())
	b.WriteByte(';')
	return b.String()
}

func (p *Param) String() string {
	var b strings.Builder
	if p.Ref {
		b.WriteString("ref ")
	}
	b.WriteString(p.Name.Name)
	if p.Annot != nil {
		b.WriteString(": ")
		b.WriteString(p.Annot.String())
	}
	return b.String()
}

func (d *FuncDecl) String() string {
	var b strings.Builder
	b.WriteString("def ")
	b.WriteString(d.Name.Name)
	b.WriteByte('(')
	for i, p := range d.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	if d.Result != nil {
		b.WriteString(": ")
		b.WriteString(d.Result.String())
	}
	b.WriteByte(' ')
	b.WriteString(d.Body.String())
	return b.String()
}

func (t *NamedTypeExpr) String() string { return t.Name }
func (t *ArrayTypeExpr) String() string { return "[" + t.Elem.String() + "]" }

// ───────────────────────────── statements ───────────────────────────────

func (s *ExprStmt) String() string { return s.X.String() + ";" }

func (s *IfStmt) String() string {
	out := "if " + s.Cond.String() + " " + s.Then.String()
	if s.Else != nil {
		out += " else " + s.Else.String()
	}
	return out
}

func (s *WhileStmt) String() string {
	return "while " + s.Cond.String() + " " + s.Body.String()
}

func (s *DoWhileStmt) String() string {
	return "do " + s.Body.String() + " while " + s.Cond.String() + ";"
}

func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return;"
	}
	return "return " + s.Value.String() + ";"
}

func (s *AssertStmt) String() string { return "assert " + s.Cond.String() + ";" }

func (s *BlockStmt) String() string {
	if len(s.Items) == 0 {
		return "{ }"
	}
	parts := make([]string, len(s.Items))
	for i, item := range s.Items {
		parts[i] = item.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

func (s *DeclStmt) String() string { return s.Decl.String() }

// ───────────────────────────── expressions ──────────────────────────────

func (e *IntLit) String() string { return e.Value.String() }

func (e *RatLit) String() string {
	// RatLit values come from digits '.' digits source, so the exact
	// decimal form terminates; keep the '.' so the literal reparses as a
	// rational.
	out := formatRat(e.Value)
	if !strings.ContainsRune(out, '.') {
		out += ".0"
	}
	return out
}

func (e *BoolLit) String() string {
	if e.Value {
		return "true"
	}
	return "false"
}

func (e *VarExpr) String() string { return e.Name }

func (e *ArrayLit) String() string {
	parts := make([]string, len(e.Elems))
	for i, el := range e.Elems {
		parts[i] = el.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (e *CallExpr) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return e.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (op UnaryOp) String() string {
	switch op {
	case UnaryPlus:
		return "+"
	case UnaryMinus:
		return "-"
	case UnaryNot:
		return "not"
	case UnaryLen:
		return "len"
	}
	return "?"
}

func (e *UnaryExpr) String() string {
	switch e.Op {
	case UnaryNot, UnaryLen:
		return e.Op.String() + " " + e.Operand.String()
	}
	return e.Op.String() + e.Operand.String()
}

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpRem:
		return "%"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	}
	return "?"
}

func (e *BinaryExpr) String() string {
	return e.Left.String() + " " + e.Op.String() + " " + e.Right.String()
}

func (op AssignOp) String() string {
	switch op {
	case AsnSet:
		return "="
	case AsnAdd:
		return "+="
	case AsnSub:
		return "-="
	case AsnMul:
		return "*="
	case AsnDiv:
		return "/="
	case AsnRem:
		return "%="
	}
	return "?"
}

func (e *AssignExpr) String() string {
	return e.Target.String() + " " + e.Op.String() + " " + e.Value.String()
}

func (e *IndexExpr) String() string {
	return e.Base.String() + "[" + e.Index.String() + "]"
}

func (e *ParenExpr) String() string { return "(" + e.Inner.String() + ")" }
