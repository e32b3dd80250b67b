// value.go — the runtime value model shared by the evaluator.
//
// Values are a small tagged sum. Arrays and functions are addressed by
// opaque small-integer ids (aid/fid) into the heap and function table, so
// copying a Value copies at most an id: arrays are shared by reference,
// scalars by value.
//
// Storage is cell-based: a variable binding maps a name to a slot — either
// a heap cell or an array element position. A `ref` parameter aliases the
// caller's slot; a by-value parameter gets a fresh cell holding a copy of
// the argument value. The heap is a flat arena; cells die with their scope
// and array records are conservatively kept for the whole execution (the
// data model cannot form cycles, so no collector is needed).
package devin

import (
	"math/big"
	"strings"
)

// ValueTag enumerates the runtime kinds a Value may hold.
type ValueTag int

const (
	VTUnit  ValueTag = iota // no payload
	VTBool                  // bool
	VTInt                   // *big.Int (unbounded)
	VTFloat                 // *big.Rat (exact rational, normalized)
	VTArray                 // aid into the heap
	VTFunc                  // fid into the function table
)

// Value is the universal runtime carrier.
//
// The tag determines which field is meaningful. Arithmetic never mutates a
// held *big.Int/*big.Rat in place; operators always allocate results, so
// sharing the pointers across copies is safe.
type Value struct {
	Tag  ValueTag
	Bool bool
	Int  *big.Int
	Rat  *big.Rat
	ID   int // aid for VTArray, fid for VTFunc
}

// UnitV is the unit value.
var UnitV = Value{Tag: VTUnit}

func BoolV(b bool) Value      { return Value{Tag: VTBool, Bool: b} }
func IntV(n *big.Int) Value   { return Value{Tag: VTInt, Int: n} }
func FloatV(r *big.Rat) Value { return Value{Tag: VTFloat, Rat: r} }
func ArrayV(aid int) Value    { return Value{Tag: VTArray, ID: aid} }
func FuncV(fid int) Value     { return Value{Tag: VTFunc, ID: fid} }

// ─────────────────────────────── heap ───────────────────────────────────

// arrayRec is one heap-resident array: its element type and its elements.
type arrayRec struct {
	elem  Type
	elems []Value
}

// Heap is the flat arena of cells and array records.
type Heap struct {
	cells  []Value
	arrays []*arrayRec
}

func (h *Heap) newCell(v Value) int {
	h.cells = append(h.cells, v)
	return len(h.cells) - 1
}

func (h *Heap) newArray(elem Type, elems []Value) int {
	h.arrays = append(h.arrays, &arrayRec{elem: elem, elems: elems})
	return len(h.arrays) - 1
}

func (h *Heap) array(aid int) *arrayRec { return h.arrays[aid] }

// ─────────────────────────────── slots ──────────────────────────────────

type slotKind int

const (
	slotCell slotKind = iota
	slotElem
)

// slot identifies a storage location: a heap cell or an array element.
// Element slots are created only after a bounds check.
type slot struct {
	kind slotKind
	cell int // slotCell
	aid  int // slotElem
	idx  int // slotElem
}

func (h *Heap) load(s slot) Value {
	if s.kind == slotCell {
		return h.cells[s.cell]
	}
	return h.arrays[s.aid].elems[s.idx]
}

func (h *Heap) store(s slot, v Value) {
	if s.kind == slotCell {
		h.cells[s.cell] = v
		return
	}
	h.arrays[s.aid].elems[s.idx] = v
}

// ─────────────────────────── environment ────────────────────────────────

// frame is one call frame: a stack of variable scopes (name → slot) and a
// parallel stack of function scopes (name → overload fids).
type frame struct {
	scopes []map[string]slot
	funcs  []map[string][]int
}

func newFrame() *frame {
	return &frame{
		scopes: []map[string]slot{{}},
		funcs:  []map[string][]int{{}},
	}
}

func (f *frame) pushScope() {
	f.scopes = append(f.scopes, map[string]slot{})
	f.funcs = append(f.funcs, map[string][]int{})
}

func (f *frame) popScope() {
	f.scopes = f.scopes[:len(f.scopes)-1]
	f.funcs = f.funcs[:len(f.funcs)-1]
}

func (f *frame) bind(name string, s slot) {
	f.scopes[len(f.scopes)-1][name] = s
}

func (f *frame) bindFunc(name string, fid int) {
	top := f.funcs[len(f.funcs)-1]
	top[name] = append(top[name], fid)
}

// Env is the evaluator's variable environment: a stack of frames. Name
// lookups search every frame, newest first and innermost scope first
// within each frame, down to the global frame (see visible).
type Env struct {
	frames []*frame
}

func (e *Env) current() *frame { return e.frames[len(e.frames)-1] }
func (e *Env) global() *frame  { return e.frames[0] }

func (e *Env) pushFrame(f *frame) { e.frames = append(e.frames, f) }
func (e *Env) popFrame()          { e.frames = e.frames[:len(e.frames)-1] }

func (e *Env) lookup(name string) (slot, bool) {
	for _, f := range e.visible() {
		for i := len(f.scopes) - 1; i >= 0; i-- {
			if s, ok := f.scopes[i][name]; ok {
				return s, true
			}
		}
	}
	return slot{}, false
}

func (e *Env) lookupFuncs(name string) []int {
	var fids []int
	for _, f := range e.visible() {
		for i := len(f.funcs) - 1; i >= 0; i-- {
			fids = append(fids, f.funcs[i][name]...)
		}
	}
	return fids
}

// visible returns the frames searched by lookups: newest first, down to
// the global frame. Nested functions are only callable while their
// enclosing frame is live, so walking the stack is what lets their bodies
// reach the enclosing locals the checker resolved them against.
func (e *Env) visible() []*frame {
	out := make([]*frame, 0, len(e.frames))
	for i := len(e.frames) - 1; i >= 0; i-- {
		out = append(out, e.frames[i])
	}
	return out
}

// ─────────────────────────── function table ─────────────────────────────

// paramSpec is one runtime parameter: name, ref flag, declared type.
type paramSpec struct {
	name string
	ref  bool
	typ  Type
}

// funcRec is one function table entry. Entries live for the whole program.
type funcRec struct {
	name   string
	params []paramSpec
	result Type
	body   Statement
}

// ─────────────────────────────── state ──────────────────────────────────

// State is the evaluator's runtime state: environment, heap, and function
// table. Build one with NewState and pass it to Evaluate.
type State struct {
	heap  *Heap
	env   *Env
	funcs []*funcRec

	// MaxDepth bounds call nesting; exceeding it surfaces StackOverflow.
	MaxDepth int

	depth int
}

// DefaultMaxDepth is the call-depth limit used by NewState.
const DefaultMaxDepth = 10000

// NewState returns the predefined initial state. The core language
// defines no built-ins, so the state starts with an empty global frame.
func NewState() *State {
	return &State{
		heap:     &Heap{},
		env:      &Env{frames: []*frame{newFrame()}},
		MaxDepth: DefaultMaxDepth,
	}
}

func (st *State) registerFunc(rec *funcRec) int {
	st.funcs = append(st.funcs, rec)
	return len(st.funcs) - 1
}

// Lookup retrieves a global binding's current value, for hosts (REPLs).
func (st *State) Lookup(name string) (Value, bool) {
	g := st.env.global()
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if s, ok := g.scopes[i][name]; ok {
			return st.heap.load(s), true
		}
	}
	return Value{}, false
}

// typeOfValue reports the dynamic type of v, consulting the heap and
// function table for aggregate kinds.
func (st *State) typeOfValue(v Value) Type {
	switch v.Tag {
	case VTUnit:
		return Unit
	case VTBool:
		return Bool
	case VTInt:
		return Int
	case VTFloat:
		return Float
	case VTArray:
		return ArrayType{Elem: st.heap.array(v.ID).elem}
	case VTFunc:
		rec := st.funcs[v.ID]
		params := make([]Type, len(rec.params))
		for i, p := range rec.params {
			params[i] = p.typ
		}
		return FuncType{Params: params, Result: rec.result}
	}
	return ErrType
}

// deepCopy clones v; arrays are cloned structurally, recursively. Used by
// `var` bindings, which copy the entire array structure (see DESIGN.md on
// the aliasing choice).
func (st *State) deepCopy(v Value) Value {
	if v.Tag != VTArray {
		return v
	}
	rec := st.heap.array(v.ID)
	elems := make([]Value, len(rec.elems))
	for i, el := range rec.elems {
		elems[i] = st.deepCopy(el)
	}
	return ArrayV(st.heap.newArray(rec.elem, elems))
}

// Display renders v the way the REPL shows values.
func (st *State) Display(v Value) string {
	switch v.Tag {
	case VTUnit:
		return "()"
	case VTBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case VTInt:
		return v.Int.String()
	case VTFloat:
		return formatRat(v.Rat)
	case VTArray:
		rec := st.heap.array(v.ID)
		parts := make([]string, len(rec.elems))
		for i, el := range rec.elems {
			parts[i] = st.Display(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case VTFunc:
		return "<function " + st.funcs[v.ID].name + ">"
	}
	return "<unknown>"
}
