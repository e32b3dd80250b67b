// checker.go — the two-pass static type checker.
//
// OVERVIEW
// --------
// Check walks each declaration list twice. Pass 1 resolves every function
// declaration's annotations, derives its signature, and installs it in the
// current function scope — forward references and mutual recursion work
// because siblings are visible before any body is checked. Pass 2 then
// checks declarations in order: variable initializers against their
// annotations, function bodies against their declared return types.
//
// Blocks get the same two-pass treatment for their own declaration lists,
// so nested sibling functions may also refer to each other. Entering a
// function body pushes a fresh function scope; nested declarations do not
// leak out.
//
// ERROR DISCIPLINE
// ----------------
// Diagnostics accumulate and never abort checking. A node that fails to
// type gets the Error type, which is compatible with everything, so one
// mistake is reported exactly once: any sub-expression of type Error
// propagates Error upward without further diagnostics.
package devin

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Check type-checks prog in place, populating the type fields of every
// identifier and expression, and returns the accumulated diagnostics.
func Check(prog *Program) []Diagnostic {
	c := &checker{
		named: map[string]Type{
			"Unit":  Unit,
			"Bool":  Bool,
			"Int":   Int,
			"Float": Float,
		},
	}
	c.pushVarScope()
	c.pushFuncScope()
	c.declareFunctions(prog.Decls)
	for _, d := range prog.Decls {
		c.checkDecl(d)
	}
	c.popFuncScope()
	c.popVarScope()
	return c.diags
}

////////////////////////////////////////////////////////////////////////////////
///////////////////////////// PRIVATE IMPLEMENTATION ///////////////////////////
////////////////////////////////////////////////////////////////////////////////

// overload is one entry in a name's overload set. decl is nil for the
// placeholder overloads recorded after an UnknownFunction diagnostic.
type overload struct {
	params []Type
	result Type
	decl   *FuncDecl
}

type checker struct {
	varScopes  []map[string]Type
	funcScopes []map[string][]*overload
	named      map[string]Type // recognized nullary types
	diags      []Diagnostic
}

func (c *checker) pushVarScope()  { c.varScopes = append(c.varScopes, map[string]Type{}) }
func (c *checker) popVarScope()   { c.varScopes = c.varScopes[:len(c.varScopes)-1] }
func (c *checker) pushFuncScope() { c.funcScopes = append(c.funcScopes, map[string][]*overload{}) }
func (c *checker) popFuncScope()  { c.funcScopes = c.funcScopes[:len(c.funcScopes)-1] }

func (c *checker) bindVar(name string, t Type) {
	c.varScopes[len(c.varScopes)-1][name] = t
}

func (c *checker) lookupVar(name string) (Type, bool) {
	for i := len(c.varScopes) - 1; i >= 0; i-- {
		if t, ok := c.varScopes[i][name]; ok {
			return t, true
		}
	}
	return nil, false
}

func (c *checker) report(kind DiagKind, span Span, format string, args ...interface{}) {
	c.diags = append(c.diags, Diagnostic{Kind: kind, Span: span, Msg: fmt.Sprintf(format, args...)})
}

// ───────────────────────────── type resolution ──────────────────────────

// resolveTypeExpr resolves a written type to a Type, emitting UnknownType
// for unrecognized names. Resolution is idempotent: pass 2 reuses what
// pass 1 stored.
func (c *checker) resolveTypeExpr(te TypeExpr) Type {
	if te == nil {
		return nil
	}
	if t := te.Resolved(); t != nil {
		return t
	}
	switch x := te.(type) {
	case *NamedTypeExpr:
		if t, ok := c.named[x.Name]; ok {
			x.T = t
		} else {
			c.report(DiagUnknownType, x.Span(), "unknown type: %s", x.Name)
			x.T = UnknownType{Name: x.Name}
		}
		return x.T
	case *ArrayTypeExpr:
		x.T = ArrayType{Elem: c.resolveTypeExpr(x.Elem)}
		return x.T
	}
	return ErrType
}

// ───────────────────────────── pass 1 ───────────────────────────────────

// declareFunctions installs the signature of every function declaration in
// decls into the current function scope. Duplicate detection compares
// parameter types pointwise against existing overloads at this scope level.
func (c *checker) declareFunctions(decls []Declaration) {
	for _, d := range decls {
		fd, ok := d.(*FuncDecl)
		if !ok {
			continue
		}
		params := make([]Type, len(fd.Params))
		for i, p := range fd.Params {
			if p.Annot != nil {
				params[i] = c.resolveTypeExpr(p.Annot)
			} else {
				params[i] = UnknownType{}
			}
		}
		// An absent return annotation is an Unknown placeholder, like an
		// unannotated parameter, so untyped functions may return values.
		result := c.resolveTypeExpr(fd.Result)
		if result == nil {
			result = UnknownType{}
		}
		fd.Sig = FuncType{Params: params, Result: result}

		scope := c.funcScopes[len(c.funcScopes)-1]
		for _, existing := range scope[fd.Name.Name] {
			if compatibleAll(existing.params, params) {
				c.report(DiagFunctionRedefinition, fd.Name.Span(),
					"function %s is already defined with a compatible signature", fd.Name.Name)
			}
		}
		scope[fd.Name.Name] = append(scope[fd.Name.Name], &overload{params: params, result: result, decl: fd})
	}
}

// declareFunctionsInBlock adapts declareFunctions to a statement list.
func (c *checker) declareFunctionsInBlock(items []Statement) {
	var decls []Declaration
	for _, item := range items {
		if ds, ok := item.(*DeclStmt); ok {
			decls = append(decls, ds.Decl)
		}
	}
	c.declareFunctions(decls)
}

// ───────────────────────────── pass 2 ───────────────────────────────────

func (c *checker) checkDecl(d Declaration) {
	switch x := d.(type) {
	case *VarDecl:
		valueType := c.checkExpr(x.Init)
		bound := valueType
		if x.Annot != nil {
			annot := c.resolveTypeExpr(x.Annot)
			if !Compatible(annot, valueType) {
				c.report(DiagInvalidType, x.Init.Span(),
					"cannot initialize %s variable with %s value", annot, valueType)
			}
			bound = annot
		}
		x.Name.T = bound
		c.bindVar(x.Name.Name, bound)

	case *FuncDecl:
		c.checkFuncDecl(x)
	}
}

func (c *checker) checkFuncDecl(fd *FuncDecl) {
	// A declaration in bare statement position (e.g. as an if body) was
	// never seen by pass 1; derive its signature now.
	if len(fd.Sig.Params) != len(fd.Params) || fd.Sig.Result == nil {
		params := make([]Type, len(fd.Params))
		for i, p := range fd.Params {
			if p.Annot != nil {
				params[i] = c.resolveTypeExpr(p.Annot)
			} else {
				params[i] = UnknownType{}
			}
		}
		result := c.resolveTypeExpr(fd.Result)
		if result == nil {
			result = UnknownType{}
		}
		fd.Sig = FuncType{Params: params, Result: result}
	}
	fd.Name.T = fd.Sig

	c.pushVarScope()
	for i, p := range fd.Params {
		p.Name.T = fd.Sig.Params[i]
		c.bindVar(p.Name.Name, fd.Sig.Params[i])
	}
	c.pushFuncScope()

	c.checkStmt(fd.Body, fd.Sig.Result)

	c.popFuncScope()
	c.popVarScope()

	if !Compatible(fd.Sig.Result, Unit) && !alwaysReturns(fd.Body) {
		c.report(DiagMissingReturnPath, fd.Name.Span(),
			"function %s does not return on every path", fd.Name.Name)
	}
}

// alwaysReturns is the syntactic "always returns" analysis: a return
// always returns, an if-else returns iff both branches do, a block
// returns iff any element returns. Other forms do not.
func alwaysReturns(s Statement) bool {
	switch x := s.(type) {
	case *ReturnStmt:
		return true
	case *IfStmt:
		return x.Else != nil && alwaysReturns(x.Then) && alwaysReturns(x.Else)
	case *BlockStmt:
		for _, item := range x.Items {
			if alwaysReturns(item) {
				return true
			}
		}
	}
	return false
}

// ───────────────────────────── statements ───────────────────────────────

// checkStmt checks s against the enclosing function's expected return
// type.
func (c *checker) checkStmt(s Statement, expected Type) {
	switch x := s.(type) {
	case *ExprStmt:
		c.checkExpr(x.X)
		if pureExpr(x.X) {
			c.report(DiagNoSideEffects, x.Span(), "expression has no effect")
		}

	case *IfStmt:
		c.checkPredicate(x.Cond)
		c.inScope(func() { c.checkStmt(x.Then, expected) })
		if x.Else != nil {
			c.inScope(func() { c.checkStmt(x.Else, expected) })
		}

	case *WhileStmt:
		c.checkPredicate(x.Cond)
		c.inScope(func() { c.checkStmt(x.Body, expected) })

	case *DoWhileStmt:
		c.inScope(func() { c.checkStmt(x.Body, expected) })
		c.checkPredicate(x.Cond)

	case *ReturnStmt:
		if x.Value == nil {
			if !Compatible(expected, Unit) {
				c.report(DiagMissingReturnValue, x.Span(),
					"return without a value in a function returning %s", expected)
			}
			return
		}
		t := c.checkExpr(x.Value)
		if !Compatible(t, expected) {
			c.report(DiagInvalidReturnType, x.Value.Span(),
				"cannot return %s from a function returning %s", t, expected)
		}

	case *AssertStmt:
		c.checkPredicate(x.Cond)

	case *BlockStmt:
		c.pushVarScope()
		c.pushFuncScope()
		c.declareFunctionsInBlock(x.Items)
		for _, item := range x.Items {
			c.checkStmt(item, expected)
		}
		c.popFuncScope()
		c.popVarScope()

	case *DeclStmt:
		c.checkDecl(x.Decl)
	}
}

func (c *checker) inScope(body func()) {
	c.pushVarScope()
	c.pushFuncScope()
	body()
	c.popFuncScope()
	c.popVarScope()
}

func (c *checker) checkPredicate(cond Expression) {
	t := c.checkExpr(cond)
	if IsError(t) {
		return
	}
	if !Compatible(t, Bool) {
		c.report(DiagInvalidType, cond.Span(), "predicate must be Bool, got %s", t)
	}
}

// pureExpr reports whether an expression can have no effect: it contains
// no call and no assignment.
func pureExpr(e Expression) bool {
	switch x := e.(type) {
	case *CallExpr, *AssignExpr:
		return false
	case *ArrayLit:
		for _, el := range x.Elems {
			if !pureExpr(el) {
				return false
			}
		}
	case *UnaryExpr:
		return pureExpr(x.Operand)
	case *BinaryExpr:
		return pureExpr(x.Left) && pureExpr(x.Right)
	case *IndexExpr:
		return pureExpr(x.Base) && pureExpr(x.Index)
	case *ParenExpr:
		return pureExpr(x.Inner)
	}
	return true
}

// ───────────────────────────── expressions ──────────────────────────────

func isUnknown(t Type) bool {
	_, ok := t.(UnknownType)
	return ok
}

func isArith(t Type) bool {
	switch t.(type) {
	case IntType, FloatType:
		return true
	}
	return false
}

var arithBinaryOps = []BinaryOp{OpAdd, OpSub, OpMul, OpDiv, OpRem}
var relationalOps = []BinaryOp{OpLt, OpLe, OpGt, OpGe}
var logicalOps = []BinaryOp{OpAnd, OpOr, OpXor}

// checkExpr synthesizes e's type bottom-up, stores it on the node, and
// returns it.
func (c *checker) checkExpr(e Expression) Type {
	t := c.exprType(e)
	setExprType(e, t)
	return t
}

func setExprType(e Expression, t Type) {
	switch x := e.(type) {
	case *IntLit:
		x.T = t
	case *RatLit:
		x.T = t
	case *BoolLit:
		x.T = t
	case *VarExpr:
		x.T = t
	case *ArrayLit:
		x.T = t
	case *CallExpr:
		x.T = t
	case *UnaryExpr:
		x.T = t
	case *BinaryExpr:
		x.T = t
	case *AssignExpr:
		x.T = t
	case *IndexExpr:
		x.T = t
	case *ParenExpr:
		x.T = t
	}
}

func (c *checker) exprType(e Expression) Type {
	switch x := e.(type) {
	case *IntLit:
		return Int
	case *RatLit:
		return Float
	case *BoolLit:
		return Bool

	case *VarExpr:
		if t, ok := c.lookupVar(x.Name); ok {
			return t
		}
		c.report(DiagUnknownVariable, x.Span(), "unknown variable: %s", x.Name)
		// Record the miss so it is reported once.
		c.bindVar(x.Name, ErrType)
		return ErrType

	case *ArrayLit:
		return c.arrayLitType(x)

	case *CallExpr:
		return c.callType(x)

	case *UnaryExpr:
		return c.unaryType(x)

	case *BinaryExpr:
		return c.binaryType(x)

	case *AssignExpr:
		return c.assignType(x)

	case *IndexExpr:
		return c.indexType(x)

	case *ParenExpr:
		return c.checkExpr(x.Inner)
	}
	return ErrType
}

func (c *checker) arrayLitType(x *ArrayLit) Type {
	var unified Type = UnknownType{}
	tainted := false
	for _, el := range x.Elems {
		t := c.checkExpr(el)
		if IsError(t) {
			tainted = true
			continue
		}
		if isUnknown(unified) {
			unified = t
			continue
		}
		if !Compatible(unified, t) {
			c.report(DiagInvalidType, el.Span(),
				"array element type %s is incompatible with %s", t, unified)
			tainted = true
		}
	}
	if tainted {
		return ErrType
	}
	return ArrayType{Elem: unified}
}

func (c *checker) callType(x *CallExpr) Type {
	argTypes := make([]Type, len(x.Args))
	tainted := false
	for i, a := range x.Args {
		argTypes[i] = c.checkExpr(a)
		if IsError(argTypes[i]) {
			tainted = true
		}
	}
	if tainted {
		return ErrType
	}

	for i := len(c.funcScopes) - 1; i >= 0; i-- {
		for _, ov := range c.funcScopes[i][x.Name] {
			if compatibleAll(ov.params, argTypes) {
				return ov.result
			}
		}
	}

	shown := make([]string, len(argTypes))
	for i, t := range argTypes {
		shown[i] = t.String()
	}
	c.report(DiagUnknownFunction, x.NameSpan,
		"unknown function: %s(%s)", x.Name, strings.Join(shown, ", "))
	// Record a placeholder overload so identical calls are not
	// re-diagnosed.
	scope := c.funcScopes[len(c.funcScopes)-1]
	scope[x.Name] = append(scope[x.Name], &overload{params: argTypes, result: ErrType})
	return ErrType
}

func (c *checker) unaryType(x *UnaryExpr) Type {
	t := c.checkExpr(x.Operand)
	if IsError(t) {
		return ErrType
	}
	if isUnknown(t) {
		if x.Op == UnaryNot {
			return Bool
		}
		if x.Op == UnaryLen {
			return Int
		}
		return UnknownType{}
	}
	switch x.Op {
	case UnaryPlus, UnaryMinus:
		if isArith(t) {
			return t
		}
	case UnaryNot:
		if Compatible(t, Bool) {
			return Bool
		}
	case UnaryLen:
		if _, ok := t.(ArrayType); ok {
			return Int
		}
	}
	c.report(DiagInvalidUnary, x.Span(), "operator %s is not defined for %s", x.Op, t)
	return ErrType
}

func (c *checker) binaryType(x *BinaryExpr) Type {
	lt := c.checkExpr(x.Left)
	rt := c.checkExpr(x.Right)
	if IsError(lt) || IsError(rt) {
		return ErrType
	}

	switch {
	case slices.Contains(arithBinaryOps, x.Op):
		// Array repetition: Array T * Int (either operand order).
		if x.Op == OpMul {
			if at, ok := lt.(ArrayType); ok && Compatible(rt, Int) {
				return at
			}
			if at, ok := rt.(ArrayType); ok && Compatible(lt, Int) {
				return at
			}
		}
		if isUnknown(lt) || isUnknown(rt) {
			return UnknownType{}
		}
		if isArith(lt) && Compatible(lt, rt) {
			return lt
		}

	case x.Op == OpEq || x.Op == OpNe:
		if Compatible(lt, rt) {
			return Bool
		}

	case slices.Contains(relationalOps, x.Op):
		if isUnknown(lt) || isUnknown(rt) {
			return Bool
		}
		if isArith(lt) && Compatible(lt, rt) {
			return Bool
		}

	case slices.Contains(logicalOps, x.Op):
		if Compatible(lt, Bool) && Compatible(rt, Bool) {
			return Bool
		}
	}

	c.report(DiagInvalidBinary, x.Span(),
		"operator %s is not defined for %s and %s", x.Op, lt, rt)
	return ErrType
}

func (c *checker) assignType(x *AssignExpr) Type {
	if !isLValue(x.Target) {
		c.checkExpr(x.Target)
		c.checkExpr(x.Value)
		c.report(DiagInvalidAssign, x.Target.Span(), "assignment target is not an l-value")
		return ErrType
	}
	targetType := c.checkExpr(x.Target)
	valueType := c.checkExpr(x.Value)
	if IsError(targetType) || IsError(valueType) {
		return ErrType
	}
	if !Compatible(targetType, valueType) {
		c.report(DiagInvalidAssign, x.Span(),
			"cannot assign %s to %s target", valueType, targetType)
		return ErrType
	}
	if x.Op != AsnSet {
		arith := isArith(targetType) || isUnknown(targetType)
		if !arith {
			c.report(DiagInvalidAssign, x.Span(),
				"operator %s requires an arithmetic target, got %s", x.Op, targetType)
			return ErrType
		}
	}
	return valueType
}

func (c *checker) indexType(x *IndexExpr) Type {
	baseType := c.checkExpr(x.Base)
	idxType := c.checkExpr(x.Index)
	if IsError(baseType) || IsError(idxType) {
		return ErrType
	}
	if !Compatible(idxType, Int) {
		c.report(DiagInvalidType, x.Index.Span(), "index must be Int, got %s", idxType)
		return ErrType
	}
	if isUnknown(baseType) {
		return UnknownType{}
	}
	at, ok := baseType.(ArrayType)
	if !ok {
		c.report(DiagInvalidType, x.Base.Span(), "cannot index %s", baseType)
		return ErrType
	}
	return at.Elem
}
