// ast.go — the Devin syntax tree.
//
// A program is an ordered list of declarations. Every node carries its
// source span; every expression additionally carries a type field that the
// checker populates in place (nil until Check runs, ErrType when the node
// or something it depends on failed to type). Canonical source rendering for all
// nodes lives in print.go.
//
// Spans strictly nest: a child node's span is contained within its
// parent's. The parser enforces this mechanically by building parent spans
// as the union of the covered tokens.
package devin

import "math/big"

// Node is implemented by every syntactic element.
type Node interface {
	// Span returns the node's half-open byte range in the source.
	Span() Span
	// String renders a canonical source-equivalent form of the node.
	String() string
}

// Program is an ordered list of top-level declarations.
type Program struct {
	Decls []Declaration

	span Span
}

func (p *Program) Span() Span { return p.span }

// ───────────────────────────── declarations ─────────────────────────────

// Declaration is either a variable or a function declaration.
type Declaration interface {
	Node
	decl()
}

// Ident is an identifier occurrence. The checker populates T with the
// identifier's resolved type (ErrType when its type or initializer failed
// to type).
type Ident struct {
	Name string
	T    Type

	span Span
}

func (id *Ident) Span() Span { return id.span }

// VarDecl is `var name (: type)? = init;`.
type VarDecl struct {
	Name  *Ident
	Annot TypeExpr // nil when unannotated
	Init  Expression

	span Span
}

// Param is a single function parameter, optionally by-reference and
// optionally annotated.
type Param struct {
	Ref   bool
	Name  *Ident
	Annot TypeExpr // nil when unannotated

	span Span
}

func (p *Param) Span() Span { return p.span }

// FuncDecl is `def name(params) (: type)? body`.
type FuncDecl struct {
	Name   *Ident
	Params []*Param
	Result TypeExpr // nil when unannotated (an Unknown placeholder)
	Body   Statement

	// Sig is the declared signature, derived by the checker's first pass.
	Sig FuncType

	span Span
}

func (d *VarDecl) Span() Span  { return d.span }
func (d *FuncDecl) Span() Span { return d.span }

func (*VarDecl) decl()  {}
func (*FuncDecl) decl() {}

// ───────────────────────────── type syntax ──────────────────────────────

// TypeExpr is a written type annotation. The checker resolves each one to
// a Type and stores it in T.
type TypeExpr interface {
	Node
	typeExpr()
	// Resolved returns the checker-resolved type (nil before Check).
	Resolved() Type
}

// NamedTypeExpr is a type written as a bare identifier, e.g. `Int`.
type NamedTypeExpr struct {
	Name string
	T    Type

	span Span
}

// ArrayTypeExpr is a type written as `[elem]`.
type ArrayTypeExpr struct {
	Elem TypeExpr
	T    Type

	span Span
}

func (t *NamedTypeExpr) Span() Span { return t.span }
func (t *ArrayTypeExpr) Span() Span { return t.span }

func (*NamedTypeExpr) typeExpr() {}
func (*ArrayTypeExpr) typeExpr() {}

func (t *NamedTypeExpr) Resolved() Type { return t.T }
func (t *ArrayTypeExpr) Resolved() Type { return t.T }

// ───────────────────────────── statements ───────────────────────────────

// Statement is any executable statement form.
type Statement interface {
	Node
	stmt()
}

// ExprStmt is `expr;`.
type ExprStmt struct {
	X Expression

	span Span
}

// IfStmt is `if cond then` with an optional `else`; Else is nil when the
// branch is absent.
type IfStmt struct {
	Cond Expression
	Then Statement
	Else Statement // nil when absent

	span Span
}

// WhileStmt is `while cond body` (pre-tested).
type WhileStmt struct {
	Cond Expression
	Body Statement

	span Span
}

// DoWhileStmt is `do body while cond;` (post-tested, body runs at least
// once).
type DoWhileStmt struct {
	Body Statement
	Cond Expression

	span Span
}

// ReturnStmt is `return (value)?;`.
type ReturnStmt struct {
	Value Expression // nil for a bare return

	span Span
}

// AssertStmt is `assert cond;`.
type AssertStmt struct {
	Cond Expression

	span Span
}

// BlockStmt is `{ ... }`; items are statements, with declarations wrapped
// in DeclStmt.
type BlockStmt struct {
	Items []Statement

	span Span
}

// DeclStmt wraps a declaration occurring in statement position.
type DeclStmt struct {
	Decl Declaration

	span Span
}

func (s *ExprStmt) Span() Span    { return s.span }
func (s *IfStmt) Span() Span      { return s.span }
func (s *WhileStmt) Span() Span   { return s.span }
func (s *DoWhileStmt) Span() Span { return s.span }
func (s *ReturnStmt) Span() Span  { return s.span }
func (s *AssertStmt) Span() Span  { return s.span }
func (s *BlockStmt) Span() Span   { return s.span }
func (s *DeclStmt) Span() Span    { return s.span }

func (*ExprStmt) stmt()    {}
func (*IfStmt) stmt()      {}
func (*WhileStmt) stmt()   {}
func (*DoWhileStmt) stmt() {}
func (*ReturnStmt) stmt()  {}
func (*AssertStmt) stmt()  {}
func (*BlockStmt) stmt()   {}
func (*DeclStmt) stmt()    {}

// ───────────────────────────── expressions ──────────────────────────────

// Expression is any value-producing form. Type returns the checker-assigned
// type (nil before Check).
type Expression interface {
	Node
	Type() Type
	expr()
}

// IntLit is an integer literal; the value is unbounded.
type IntLit struct {
	Value *big.Int
	T     Type

	span Span
}

// RatLit is a rational literal written as digits '.' digits; the value is
// exact.
type RatLit struct {
	Value *big.Rat
	T     Type

	span Span
}

// BoolLit is `true` or `false`.
type BoolLit struct {
	Value bool
	T     Type

	span Span
}

// VarExpr is a bare variable reference.
type VarExpr struct {
	Name string
	T    Type

	span Span
}

// ArrayLit is `[e1, e2, ...]`.
type ArrayLit struct {
	Elems []Expression
	T     Type

	span Span
}

// CallExpr is `name(args)`.
type CallExpr struct {
	Name     string
	NameSpan Span
	Args     []Expression
	T        Type

	span Span
}

// UnaryOp enumerates the unary operators.
type UnaryOp int

const (
	UnaryPlus UnaryOp = iota
	UnaryMinus
	UnaryNot
	UnaryLen
)

// UnaryExpr is a unary operator applied to an operand.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expression
	T       Type

	span Span
}

// BinaryOp enumerates the binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpXor
)

// BinaryExpr is `left op right`.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
	T     Type

	span Span
}

// AssignOp enumerates the assignment operators.
type AssignOp int

const (
	AsnSet AssignOp = iota // "="
	AsnAdd                 // "+="
	AsnSub                 // "-="
	AsnMul                 // "*="
	AsnDiv                 // "/="
	AsnRem                 // "%="
)

// AssignExpr is `target op value`. The parser accepts any expression as
// target; l-value validity is checked at type-check time.
type AssignExpr struct {
	Op     AssignOp
	Target Expression
	Value  Expression
	T      Type

	span Span
}

// IndexExpr is `base[index]`.
type IndexExpr struct {
	Base  Expression
	Index Expression
	T     Type

	span Span
}

// ParenExpr is `(inner)`.
type ParenExpr struct {
	Inner Expression
	T     Type

	span Span
}

func (e *IntLit) Span() Span     { return e.span }
func (e *RatLit) Span() Span     { return e.span }
func (e *BoolLit) Span() Span    { return e.span }
func (e *VarExpr) Span() Span    { return e.span }
func (e *ArrayLit) Span() Span   { return e.span }
func (e *CallExpr) Span() Span   { return e.span }
func (e *UnaryExpr) Span() Span  { return e.span }
func (e *BinaryExpr) Span() Span { return e.span }
func (e *AssignExpr) Span() Span { return e.span }
func (e *IndexExpr) Span() Span  { return e.span }
func (e *ParenExpr) Span() Span  { return e.span }

func (e *IntLit) Type() Type     { return e.T }
func (e *RatLit) Type() Type     { return e.T }
func (e *BoolLit) Type() Type    { return e.T }
func (e *VarExpr) Type() Type    { return e.T }
func (e *ArrayLit) Type() Type   { return e.T }
func (e *CallExpr) Type() Type   { return e.T }
func (e *UnaryExpr) Type() Type  { return e.T }
func (e *BinaryExpr) Type() Type { return e.T }
func (e *AssignExpr) Type() Type { return e.T }
func (e *IndexExpr) Type() Type  { return e.T }
func (e *ParenExpr) Type() Type  { return e.T }

func (*IntLit) expr()     {}
func (*RatLit) expr()     {}
func (*BoolLit) expr()    {}
func (*VarExpr) expr()    {}
func (*ArrayLit) expr()   {}
func (*CallExpr) expr()   {}
func (*UnaryExpr) expr()  {}
func (*BinaryExpr) expr() {}
func (*AssignExpr) expr() {}
func (*IndexExpr) expr()  {}
func (*ParenExpr) expr()  {}

// lvalueRoot unwraps parentheses and index chains down to the base
// expression; the result is a *VarExpr for a valid l-value.
func lvalueRoot(e Expression) Expression {
	for {
		switch x := e.(type) {
		case *ParenExpr:
			e = x.Inner
		case *IndexExpr:
			e = x.Base
		default:
			return e
		}
	}
}

// isLValue reports whether e denotes a storage slot: a bare variable or a
// chain of array accesses rooted at one.
func isLValue(e Expression) bool {
	_, ok := lvalueRoot(e).(*VarExpr)
	return ok
}
