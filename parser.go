// parser.go — recursive-descent parser for Devin producing the AST.
//
// OVERVIEW
// --------
// The parser consumes the token stream produced by the lexer (see lexer.go)
// and builds the typed-field-bearing AST defined in ast.go. Expressions are
// parsed by a sequence of left-folding precedence layers, lowest binding
// first:
//
//	logical (and/or/xor) → equality → relational → additive →
//	multiplicative → indexing/assignment → primary
//
// Unary operators live in the primary layer and bind an operand at the
// indexing level, so `-a[0]` negates the element and `len a[0]` measures
// the inner array.
//
// ERROR MODEL
// -----------
// The parser is non-recovering. A failed sub-parse produces a failure
// record carrying the byte position, the expected-set, and whether the
// branch was committed (fatal). Alternation follows a fixed rule: take the
// first success; propagate a fatal failure immediately; otherwise merge
// failures by position, preferring the deeper one and unioning expected
// sets on ties. The outermost entry point converts the surviving failure
// into a *ParseError.
//
// Interactive mode (for the REPL) marks failures at end of input as
// incomplete instead, so hosts can prompt for continuation lines.
//
// SPANS
// -----
// Every node's span is [firstToken.StartByte, lastToken.EndByte). Child
// spans therefore nest strictly within their parents'.
package devin

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/exp/slices"
)

// Parse parses a complete Devin source string and returns its AST.
// The error, when non-nil, is a *LexError or *ParseError.
func Parse(src string) (*Program, error) {
	return parse(src, false)
}

// ParseInteractive parses in REPL-friendly mode: unterminated constructs
// at end of input produce a *ParseError with Incomplete set, which hosts
// detect via IsIncomplete to read continuation lines.
func ParseInteractive(src string) (*Program, error) {
	return parse(src, true)
}

// ParseError reports a parse failure: the byte offset of the deepest
// failure point and the set of token descriptions expected there.
type ParseError struct {
	Offset     int
	Expected   []string
	Incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at byte %d: expected %s", e.Offset, strings.Join(e.Expected, " or "))
}

// IsIncomplete reports whether err is a *ParseError produced by
// ParseInteractive at end of input.
func IsIncomplete(err error) bool {
	pe, ok := err.(*ParseError)
	return ok && pe.Incomplete
}

func parse(src string, interactive bool) (*Program, error) {
	lex := NewLexer(src)
	toks, err := lex.Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, src: src, interactive: interactive}
	prog, f := p.program()
	if f != nil {
		return nil, p.failureError(f)
	}
	return prog, nil
}

////////////////////////////////////////////////////////////////////////////////
///////////////////////////// PRIVATE IMPLEMENTATION ///////////////////////////
////////////////////////////////////////////////////////////////////////////////

type parser struct {
	toks        []Token
	i           int
	src         string
	interactive bool
}

// parseFailure records a failed sub-parse: position, expected-set, and
// whether the failing branch had committed (consumed input past its
// dispatch token).
type parseFailure struct {
	at       int
	expected []string
	fatal    bool
	atEOF    bool
}

// mergeFailure implements the alternation rule: prefer the failure with
// the larger position; on a tie, union the expected sets.
func mergeFailure(a, b *parseFailure) *parseFailure {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.at > a.at {
		return b
	}
	if a.at > b.at {
		return a
	}
	merged := &parseFailure{at: a.at, fatal: a.fatal || b.fatal, atEOF: a.atEOF || b.atEOF}
	merged.expected = append(merged.expected, a.expected...)
	for _, e := range b.expected {
		if !slices.Contains(merged.expected, e) {
			merged.expected = append(merged.expected, e)
		}
	}
	return merged
}

// alternate tries each branch in order: first success wins, a fatal
// failure propagates immediately, and surviving failures merge by
// position.
func alternate[T any](p *parser, alts ...func() (T, *parseFailure)) (T, *parseFailure) {
	var zero T
	var failure *parseFailure
	for _, alt := range alts {
		save := p.i
		v, f := alt()
		if f == nil {
			return v, nil
		}
		if f.fatal {
			return zero, f
		}
		p.i = save
		failure = mergeFailure(failure, f)
	}
	return zero, failure
}

func (p *parser) failureError(f *parseFailure) error {
	return &ParseError{
		Offset:     f.at,
		Expected:   f.expected,
		Incomplete: p.interactive && f.atEOF,
	}
}

// ─────────────────────────── token basics & helpers ─────────────────────────

func (p *parser) atEnd() bool { return p.peek().Type == EOF }

func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}

func (p *parser) prev() Token { return p.toks[p.i-1] }

func (p *parser) at(tt TokenType) bool { return p.peek().Type == tt }

func (p *parser) match(tt ...TokenType) bool {
	for _, t := range tt {
		if p.peek().Type == t {
			p.i++
			return true
		}
	}
	return false
}

// fail produces a non-fatal failure at the current token.
func (p *parser) fail(expected ...string) *parseFailure {
	return &parseFailure{
		at:       p.peek().StartByte,
		expected: expected,
		atEOF:    p.atEnd(),
	}
}

// need consumes a token of the given type or produces a fatal (committed)
// failure.
func (p *parser) need(tt TokenType, expected string) (Token, *parseFailure) {
	if p.match(tt) {
		return p.prev(), nil
	}
	f := p.fail(expected)
	f.fatal = true
	return Token{}, f
}

func (p *parser) spanFrom(startTok int) Span {
	if startTok >= p.i || startTok >= len(p.toks) {
		return Span{Start: p.peek().StartByte, End: p.peek().StartByte}
	}
	return Span{Start: p.toks[startTok].StartByte, End: p.prev().EndByte}
}

// ───────────────────────── program / declarations ──────────────────────────

func (p *parser) program() (*Program, *parseFailure) {
	prog := &Program{span: Span{Start: 0, End: len(p.src)}}
	for !p.atEnd() {
		d, f := p.declaration()
		if f != nil {
			return nil, f
		}
		prog.Decls = append(prog.Decls, d)
	}
	return prog, nil
}

func (p *parser) declaration() (Declaration, *parseFailure) {
	return alternate(p,
		func() (Declaration, *parseFailure) { return p.varDecl() },
		func() (Declaration, *parseFailure) { return p.funcDecl() },
	)
}

func (p *parser) varDecl() (*VarDecl, *parseFailure) {
	start := p.i
	if !p.match(VAR) {
		return nil, p.fail("'var'")
	}
	name, f := p.ident()
	if f != nil {
		return nil, f
	}
	var annot TypeExpr
	if p.match(COLON) {
		annot, f = p.typeExpr()
		if f != nil {
			return nil, f
		}
	}
	if _, f := p.need(ASSIGN, "'='"); f != nil {
		return nil, f
	}
	init, f := p.expression()
	if f != nil {
		return nil, f
	}
	if _, f := p.need(SEMICOLON, "';'"); f != nil {
		return nil, f
	}
	return &VarDecl{Name: name, Annot: annot, Init: init, span: p.spanFrom(start)}, nil
}

func (p *parser) funcDecl() (*FuncDecl, *parseFailure) {
	start := p.i
	if !p.match(DEF) {
		return nil, p.fail("'def'")
	}
	name, f := p.ident()
	if f != nil {
		return nil, f
	}
	if _, f := p.need(LPAREN, "'('"); f != nil {
		return nil, f
	}
	var params []*Param
	if !p.at(RPAREN) {
		for {
			param, f := p.param()
			if f != nil {
				return nil, f
			}
			params = append(params, param)
			if !p.match(COMMA) {
				break
			}
		}
	}
	if _, f := p.need(RPAREN, "')'"); f != nil {
		return nil, f
	}
	var result TypeExpr
	if p.match(COLON) {
		result, f = p.typeExpr()
		if f != nil {
			return nil, f
		}
	}
	body, f := p.statement()
	if f != nil {
		return nil, f
	}
	return &FuncDecl{Name: name, Params: params, Result: result, Body: body, span: p.spanFrom(start)}, nil
}

func (p *parser) param() (*Param, *parseFailure) {
	start := p.i
	ref := p.match(REF)
	name, f := p.ident()
	if f != nil {
		f.fatal = true
		return nil, f
	}
	var annot TypeExpr
	if p.match(COLON) {
		annot, f = p.typeExpr()
		if f != nil {
			return nil, f
		}
	}
	return &Param{Ref: ref, Name: name, Annot: annot, span: p.spanFrom(start)}, nil
}

func (p *parser) ident() (*Ident, *parseFailure) {
	tok, f := p.need(IDENT, "identifier")
	if f != nil {
		return nil, f
	}
	return &Ident{Name: tok.Lexeme, span: tok.Span()}, nil
}

// ───────────────────────────── type syntax ──────────────────────────────

func (p *parser) typeExpr() (TypeExpr, *parseFailure) {
	start := p.i
	if p.match(IDENT) {
		return &NamedTypeExpr{Name: p.prev().Lexeme, span: p.prev().Span()}, nil
	}
	if p.match(LBRACKET) {
		elem, f := p.typeExpr()
		if f != nil {
			return nil, f
		}
		if _, f := p.need(RBRACKET, "']'"); f != nil {
			return nil, f
		}
		return &ArrayTypeExpr{Elem: elem, span: p.spanFrom(start)}, nil
	}
	f := p.fail("type name", "'['")
	f.fatal = true
	return nil, f
}

// ───────────────────────────── statements ───────────────────────────────

func (p *parser) statement() (Statement, *parseFailure) {
	switch p.peek().Type {
	case LBRACE:
		return p.blockStmt()
	case IF:
		return p.ifStmt()
	case WHILE:
		return p.whileStmt()
	case DO:
		return p.doWhileStmt()
	case RETURN:
		return p.returnStmt()
	case ASSERT:
		return p.assertStmt()
	case VAR, DEF:
		start := p.i
		d, f := p.declaration()
		if f != nil {
			return nil, f
		}
		return &DeclStmt{Decl: d, span: p.spanFrom(start)}, nil
	}
	return p.exprStmt()
}

func (p *parser) blockStmt() (*BlockStmt, *parseFailure) {
	start := p.i
	if _, f := p.need(LBRACE, "'{'"); f != nil {
		return nil, f
	}
	var items []Statement
	for !p.at(RBRACE) && !p.atEnd() {
		s, f := p.statement()
		if f != nil {
			return nil, f
		}
		items = append(items, s)
	}
	if _, f := p.need(RBRACE, "'}'"); f != nil {
		return nil, f
	}
	return &BlockStmt{Items: items, span: p.spanFrom(start)}, nil
}

func (p *parser) ifStmt() (*IfStmt, *parseFailure) {
	start := p.i
	if _, f := p.need(IF, "'if'"); f != nil {
		return nil, f
	}
	cond, f := p.expression()
	if f != nil {
		return nil, f
	}
	then, f := p.statement()
	if f != nil {
		return nil, f
	}
	// `else` attaches to the nearest open `if`.
	var els Statement
	if p.match(ELSE) {
		els, f = p.statement()
		if f != nil {
			return nil, f
		}
	}
	return &IfStmt{Cond: cond, Then: then, Else: els, span: p.spanFrom(start)}, nil
}

func (p *parser) whileStmt() (*WhileStmt, *parseFailure) {
	start := p.i
	if _, f := p.need(WHILE, "'while'"); f != nil {
		return nil, f
	}
	cond, f := p.expression()
	if f != nil {
		return nil, f
	}
	body, f := p.statement()
	if f != nil {
		return nil, f
	}
	return &WhileStmt{Cond: cond, Body: body, span: p.spanFrom(start)}, nil
}

func (p *parser) doWhileStmt() (*DoWhileStmt, *parseFailure) {
	start := p.i
	if _, f := p.need(DO, "'do'"); f != nil {
		return nil, f
	}
	body, f := p.statement()
	if f != nil {
		return nil, f
	}
	if _, f := p.need(WHILE, "'while'"); f != nil {
		return nil, f
	}
	cond, f := p.expression()
	if f != nil {
		return nil, f
	}
	if _, f := p.need(SEMICOLON, "';'"); f != nil {
		return nil, f
	}
	return &DoWhileStmt{Body: body, Cond: cond, span: p.spanFrom(start)}, nil
}

func (p *parser) returnStmt() (*ReturnStmt, *parseFailure) {
	start := p.i
	if _, f := p.need(RETURN, "'return'"); f != nil {
		return nil, f
	}
	if p.match(SEMICOLON) {
		return &ReturnStmt{span: p.spanFrom(start)}, nil
	}
	value, f := p.expression()
	if f != nil {
		return nil, f
	}
	if _, f := p.need(SEMICOLON, "';'"); f != nil {
		return nil, f
	}
	return &ReturnStmt{Value: value, span: p.spanFrom(start)}, nil
}

func (p *parser) assertStmt() (*AssertStmt, *parseFailure) {
	start := p.i
	if _, f := p.need(ASSERT, "'assert'"); f != nil {
		return nil, f
	}
	cond, f := p.expression()
	if f != nil {
		return nil, f
	}
	if _, f := p.need(SEMICOLON, "';'"); f != nil {
		return nil, f
	}
	return &AssertStmt{Cond: cond, span: p.spanFrom(start)}, nil
}

func (p *parser) exprStmt() (*ExprStmt, *parseFailure) {
	start := p.i
	x, f := p.expression()
	if f != nil {
		return nil, f
	}
	if _, f := p.need(SEMICOLON, "';'"); f != nil {
		return nil, f
	}
	return &ExprStmt{X: x, span: p.spanFrom(start)}, nil
}

// ─────────────────────────── expression layers ──────────────────────────
//
// One left-folding layer per precedence level, lowest first.

func (p *parser) expression() (Expression, *parseFailure) {
	return p.logical()
}

func (p *parser) logical() (Expression, *parseFailure) {
	start := p.i
	left, f := p.equality()
	if f != nil {
		return nil, f
	}
	for {
		var op BinaryOp
		switch p.peek().Type {
		case AND:
			op = OpAnd
		case OR:
			op = OpOr
		case XOR:
			op = OpXor
		default:
			return left, nil
		}
		p.i++
		right, f := p.equality()
		if f != nil {
			return nil, f
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, span: p.spanFrom(start)}
	}
}

func (p *parser) equality() (Expression, *parseFailure) {
	start := p.i
	left, f := p.relational()
	if f != nil {
		return nil, f
	}
	for {
		var op BinaryOp
		switch p.peek().Type {
		case EQ:
			op = OpEq
		case NEQ:
			op = OpNe
		default:
			return left, nil
		}
		p.i++
		right, f := p.relational()
		if f != nil {
			return nil, f
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, span: p.spanFrom(start)}
	}
}

func (p *parser) relational() (Expression, *parseFailure) {
	start := p.i
	left, f := p.additive()
	if f != nil {
		return nil, f
	}
	for {
		var op BinaryOp
		switch p.peek().Type {
		case LESS:
			op = OpLt
		case LESS_EQ:
			op = OpLe
		case GREATER:
			op = OpGt
		case GREATER_EQ:
			op = OpGe
		default:
			return left, nil
		}
		p.i++
		right, f := p.additive()
		if f != nil {
			return nil, f
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, span: p.spanFrom(start)}
	}
}

func (p *parser) additive() (Expression, *parseFailure) {
	start := p.i
	left, f := p.multiplicative()
	if f != nil {
		return nil, f
	}
	for {
		var op BinaryOp
		switch p.peek().Type {
		case PLUS:
			op = OpAdd
		case MINUS:
			op = OpSub
		default:
			return left, nil
		}
		p.i++
		right, f := p.multiplicative()
		if f != nil {
			return nil, f
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, span: p.spanFrom(start)}
	}
}

func (p *parser) multiplicative() (Expression, *parseFailure) {
	start := p.i
	left, f := p.indexAssign()
	if f != nil {
		return nil, f
	}
	for {
		var op BinaryOp
		switch p.peek().Type {
		case STAR:
			op = OpMul
		case SLASH:
			op = OpDiv
		case PERCENT:
			op = OpRem
		default:
			return left, nil
		}
		p.i++
		right, f := p.indexAssign()
		if f != nil {
			return nil, f
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, span: p.spanFrom(start)}
	}
}

// indexAssign parses postfix indexing (left-associative) and a trailing
// optional assignment. The parser accepts any expression as an assignment
// target; l-value validity is checked at type-check time.
func (p *parser) indexAssign() (Expression, *parseFailure) {
	start := p.i
	e, f := p.primary()
	if f != nil {
		return nil, f
	}
	for p.match(LBRACKET) {
		idx, f := p.expression()
		if f != nil {
			return nil, f
		}
		if _, f := p.need(RBRACKET, "']'"); f != nil {
			return nil, f
		}
		e = &IndexExpr{Base: e, Index: idx, span: p.spanFrom(start)}
	}
	var op AssignOp
	switch p.peek().Type {
	case ASSIGN:
		op = AsnSet
	case PLUS_ASSIGN:
		op = AsnAdd
	case MINUS_ASSIGN:
		op = AsnSub
	case STAR_ASSIGN:
		op = AsnMul
	case SLASH_ASSIGN:
		op = AsnDiv
	case PERCENT_ASSIGN:
		op = AsnRem
	default:
		return e, nil
	}
	p.i++
	value, f := p.expression()
	if f != nil {
		return nil, f
	}
	return &AssignExpr{Op: op, Target: e, Value: value, span: p.spanFrom(start)}, nil
}

func (p *parser) primary() (Expression, *parseFailure) {
	start := p.i
	tok := p.peek()

	switch tok.Type {
	case INTEGER:
		p.i++
		return &IntLit{Value: tok.Literal.(*big.Int), span: tok.Span()}, nil

	case RATIONAL:
		p.i++
		return &RatLit{Value: tok.Literal.(*big.Rat), span: tok.Span()}, nil

	case TRUE, FALSE:
		p.i++
		return &BoolLit{Value: tok.Type == TRUE, span: tok.Span()}, nil

	case LBRACKET:
		p.i++
		var elems []Expression
		if !p.at(RBRACKET) {
			for {
				el, f := p.expression()
				if f != nil {
					return nil, f
				}
				elems = append(elems, el)
				if !p.match(COMMA) {
					break
				}
			}
		}
		if _, f := p.need(RBRACKET, "']'"); f != nil {
			return nil, f
		}
		return &ArrayLit{Elems: elems, span: p.spanFrom(start)}, nil

	case PLUS, MINUS, NOT, LEN:
		p.i++
		var op UnaryOp
		switch tok.Type {
		case PLUS:
			op = UnaryPlus
		case MINUS:
			op = UnaryMinus
		case NOT:
			op = UnaryNot
		case LEN:
			op = UnaryLen
		}
		operand, f := p.indexAssign()
		if f != nil {
			return nil, f
		}
		return &UnaryExpr{Op: op, Operand: operand, span: p.spanFrom(start)}, nil

	case IDENT:
		p.i++
		if p.match(LPAREN) {
			var args []Expression
			if !p.at(RPAREN) {
				for {
					a, f := p.expression()
					if f != nil {
						return nil, f
					}
					args = append(args, a)
					if !p.match(COMMA) {
						break
					}
				}
			}
			if _, f := p.need(RPAREN, "')'"); f != nil {
				return nil, f
			}
			return &CallExpr{Name: tok.Lexeme, NameSpan: tok.Span(), Args: args, span: p.spanFrom(start)}, nil
		}
		return &VarExpr{Name: tok.Lexeme, span: tok.Span()}, nil

	case LPAREN:
		p.i++
		inner, f := p.expression()
		if f != nil {
			return nil, f
		}
		if _, f := p.need(RPAREN, "')'"); f != nil {
			return nil, f
		}
		return &ParenExpr{Inner: inner, span: p.spanFrom(start)}, nil
	}

	return nil, p.fail("expression")
}
