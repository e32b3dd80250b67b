// eval.go — the tree-walking evaluator.
//
// OVERVIEW
// --------
// Evaluate runs a checked program against a State: top-level variable
// declarations update the global scope, function declarations register in
// the global function table, and then a zero-argument `main` is invoked.
// Execution is single-threaded, strict, and left-to-right; `and`/`or`
// evaluate both operands.
//
// Statements produce a stmtResult: continuing, or returning a value. A
// returning result propagates outward until the enclosing call frame
// unwinds it.
//
// ERROR DISCIPLINE
// ----------------
// Runtime failures are raised internally by panicking with a private
// signal wrapping an *EvalError and are recovered at the public
// boundaries, following the engine discipline of keeping the recursive
// walk free of error plumbing. Every failure carries the span of the
// offending node. Failures are fatal: no partial continuation.
package devin

import "fmt"

// EvalErrorKind enumerates the runtime failure causes.
type EvalErrorKind int

const (
	IndexOutOfBounds EvalErrorKind = iota
	DivisionByZero
	AssertionFailure
	RefExpectsLValue
	NoMain
	MissingReturnValue // internal; defends against checker bugs
	StackOverflow
)

func (k EvalErrorKind) String() string {
	switch k {
	case IndexOutOfBounds:
		return "IndexOutOfBounds"
	case DivisionByZero:
		return "DivisionByZero"
	case AssertionFailure:
		return "AssertionFailure"
	case RefExpectsLValue:
		return "RefExpectsLValue"
	case NoMain:
		return "NoMain"
	case MissingReturnValue:
		return "MissingReturnValue"
	case StackOverflow:
		return "StackOverflow"
	}
	return "Unknown"
}

// EvalError is a fatal runtime failure located at a source span.
type EvalError struct {
	Kind EvalErrorKind
	Span Span
	Msg  string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("runtime error (%s): %s", e.Kind, e.Msg)
}

// Evaluate runs a checked program: installs its declarations into st,
// then invokes a zero-argument function named main. The error, when
// non-nil, is an *EvalError.
func Evaluate(prog *Program, st *State) (err error) {
	defer recoverEvalError(&err)
	ev := &evaluator{st: st}
	ev.installDecls(prog.Decls)
	ev.runMain(prog)
	return nil
}

// EvalDeclarations installs a program's declarations into st without
// invoking main. Hosts (the REPL) use this to build up session state.
func EvalDeclarations(prog *Program, st *State) (err error) {
	defer recoverEvalError(&err)
	ev := &evaluator{st: st}
	ev.installDecls(prog.Decls)
	return nil
}

////////////////////////////////////////////////////////////////////////////////
///////////////////////////// PRIVATE IMPLEMENTATION ///////////////////////////
////////////////////////////////////////////////////////////////////////////////

// evalSignal carries an *EvalError up the recursive walk.
type evalSignal struct {
	err *EvalError
}

func recoverEvalError(err *error) {
	if r := recover(); r != nil {
		sig, ok := r.(evalSignal)
		if !ok {
			panic(r)
		}
		*err = sig.err
	}
}

type evaluator struct {
	st *State
}

func (ev *evaluator) fail(kind EvalErrorKind, span Span, format string, args ...interface{}) {
	panic(evalSignal{err: &EvalError{Kind: kind, Span: span, Msg: fmt.Sprintf(format, args...)}})
}

// stmtResult is the outcome of executing one statement.
type stmtResult struct {
	returning bool
	value     Value
}

var continuing = stmtResult{}

func returning(v Value) stmtResult { return stmtResult{returning: true, value: v} }

// ─────────────────────────── top level ──────────────────────────────────

// installDecls runs a declaration list in the current frame: function
// declarations register first (mirroring the checker's pass 1, so
// forward references work), then the list executes in order with
// function declarations as no-ops.
func (ev *evaluator) installDecls(decls []Declaration) {
	for _, d := range decls {
		if fd, ok := d.(*FuncDecl); ok {
			ev.registerFunc(fd)
		}
	}
	for _, d := range decls {
		if vd, ok := d.(*VarDecl); ok {
			ev.runVarDecl(vd)
		}
	}
}

func (ev *evaluator) registerFunc(fd *FuncDecl) {
	params := make([]paramSpec, len(fd.Params))
	for i, p := range fd.Params {
		params[i] = paramSpec{name: p.Name.Name, ref: p.Ref, typ: fd.Sig.Params[i]}
	}
	fid := ev.st.registerFunc(&funcRec{
		name:   fd.Name.Name,
		params: params,
		result: fd.Sig.Result,
		body:   fd.Body,
	})
	ev.st.env.current().bindFunc(fd.Name.Name, fid)
}

// runVarDecl binds a fresh cell. Binding with var clones array structure;
// sharing is reserved for parameter passing.
func (ev *evaluator) runVarDecl(vd *VarDecl) {
	v := ev.st.deepCopy(ev.evalExpr(vd.Init))
	cell := ev.st.heap.newCell(v)
	ev.st.env.current().bind(vd.Name.Name, slot{kind: slotCell, cell: cell})
}

func (ev *evaluator) runMain(prog *Program) {
	for _, fid := range ev.st.env.lookupFuncs("main") {
		if len(ev.st.funcs[fid].params) == 0 {
			ev.callFunc(fid, nil, prog.Span())
			return
		}
	}
	ev.fail(NoMain, prog.Span(), "no function main() to run")
}

// ─────────────────────────── statements ─────────────────────────────────

func (ev *evaluator) execStmt(s Statement) stmtResult {
	switch x := s.(type) {
	case *ExprStmt:
		ev.evalExpr(x.X)
		return continuing

	case *IfStmt:
		if ev.evalPredicate(x.Cond) {
			return ev.inScope(x.Then)
		}
		if x.Else != nil {
			return ev.inScope(x.Else)
		}
		return continuing

	case *WhileStmt:
		for ev.evalPredicate(x.Cond) {
			if r := ev.inScope(x.Body); r.returning {
				return r
			}
		}
		return continuing

	case *DoWhileStmt:
		for {
			if r := ev.inScope(x.Body); r.returning {
				return r
			}
			if !ev.evalPredicate(x.Cond) {
				return continuing
			}
		}

	case *ReturnStmt:
		if x.Value == nil {
			return returning(UnitV)
		}
		return returning(ev.evalExpr(x.Value))

	case *AssertStmt:
		if !ev.evalPredicate(x.Cond) {
			ev.fail(AssertionFailure, x.Cond.Span(), "assertion failed: %s", x.Cond)
		}
		return continuing

	case *BlockStmt:
		f := ev.st.env.current()
		f.pushScope()
		defer f.popScope()
		for _, item := range x.Items {
			if ds, ok := item.(*DeclStmt); ok {
				if fd, ok := ds.Decl.(*FuncDecl); ok {
					ev.registerFunc(fd)
				}
			}
		}
		for _, item := range x.Items {
			if r := ev.execStmt(item); r.returning {
				return r
			}
		}
		return continuing

	case *DeclStmt:
		switch d := x.Decl.(type) {
		case *VarDecl:
			ev.runVarDecl(d)
		case *FuncDecl:
			// Registered at block entry; a bare declaration body
			// registers here instead.
			if !ev.funcVisible(d.Name.Name) {
				ev.registerFunc(d)
			}
		}
		return continuing
	}
	return continuing
}

// funcVisible reports whether any overload of name is bound in the
// innermost scope of the current frame.
func (ev *evaluator) funcVisible(name string) bool {
	f := ev.st.env.current()
	_, ok := f.funcs[len(f.funcs)-1][name]
	return ok
}

// inScope runs a statement body in a fresh block scope of the current
// frame.
func (ev *evaluator) inScope(s Statement) stmtResult {
	f := ev.st.env.current()
	f.pushScope()
	defer f.popScope()
	return ev.execStmt(s)
}

func (ev *evaluator) evalPredicate(cond Expression) bool {
	v := ev.evalExpr(cond)
	return v.Tag == VTBool && v.Bool
}

// ─────────────────────────────── calls ──────────────────────────────────

// argResult is an evaluated call argument: its value, plus the slot it
// resolves to when the argument expression is an l-value.
type argResult struct {
	value   Value
	slot    slot
	hasSlot bool
}

// evalCall evaluates arguments left to right, selects the overload whose
// parameter types are compatible with the argument value types, and
// invokes it. Because the checker proved a matching overload exists for
// well-typed programs, absence here is an internal error.
func (ev *evaluator) evalCall(x *CallExpr) Value {
	args := make([]argResult, len(x.Args))
	argTypes := make([]Type, len(x.Args))
	for i, a := range x.Args {
		if isLValue(a) {
			s := ev.evalSlot(a)
			args[i] = argResult{value: ev.st.heap.load(s), slot: s, hasSlot: true}
		} else {
			args[i] = argResult{value: ev.evalExpr(a)}
		}
		argTypes[i] = ev.st.typeOfValue(args[i].value)
	}

	for _, fid := range ev.st.env.lookupFuncs(x.Name) {
		rec := ev.st.funcs[fid]
		params := make([]Type, len(rec.params))
		for i, p := range rec.params {
			params[i] = p.typ
		}
		if !compatibleAll(params, argTypes) {
			continue
		}
		return ev.invoke(fid, x, args)
	}
	panic(fmt.Sprintf("internal: no overload of %s matches a checked call", x.Name))
}

func (ev *evaluator) invoke(fid int, x *CallExpr, args []argResult) Value {
	rec := ev.st.funcs[fid]
	f := newFrame()
	for i, p := range rec.params {
		if p.ref {
			if !args[i].hasSlot {
				ev.fail(RefExpectsLValue, x.Args[i].Span(),
					"ref parameter %s requires an l-value argument", p.name)
			}
			f.bind(p.name, args[i].slot)
			continue
		}
		cell := ev.st.heap.newCell(args[i].value)
		f.bind(p.name, slot{kind: slotCell, cell: cell})
	}
	return ev.runFrame(fid, f, x.Span())
}

// callFunc invokes fid with pre-evaluated by-value arguments (used for
// main).
func (ev *evaluator) callFunc(fid int, values []Value, at Span) Value {
	f := newFrame()
	rec := ev.st.funcs[fid]
	for i, p := range rec.params {
		cell := ev.st.heap.newCell(values[i])
		f.bind(p.name, slot{kind: slotCell, cell: cell})
	}
	return ev.runFrame(fid, f, at)
}

func (ev *evaluator) runFrame(fid int, f *frame, at Span) Value {
	st := ev.st
	if st.depth >= st.MaxDepth {
		ev.fail(StackOverflow, at, "call depth exceeds %d", st.MaxDepth)
	}
	st.depth++
	st.env.pushFrame(f)
	defer func() {
		st.env.popFrame()
		st.depth--
	}()

	rec := st.funcs[fid]
	r := ev.execStmt(rec.body)
	if r.returning {
		return r.value
	}
	if !Compatible(rec.result, Unit) {
		ev.fail(MissingReturnValue, at, "function %s fell through without returning a value", rec.name)
	}
	return UnitV
}
