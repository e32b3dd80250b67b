// types.go — the static type lattice and structural compatibility.
//
// Types form a small tagged sum: Unit, Bool, Int, Float, Array T,
// Function [T1..Tn] R, Unknown (an unresolved user-written type id), and
// Error (bottom, introduced by type errors to suppress cascading
// diagnostics).
//
// Compatibility (Compatible) is the relation used everywhere types are
// matched: annotation checking, overload selection, operand validation.
// It is reflexive, propagates structurally into Array and Function, and
// Error/Unknown absorb any partner so a single mistake is reported once.
package devin

import "strings"

// Type is the interface implemented by all static types.
type Type interface {
	// String renders the type the way it is written in source.
	String() string

	typ()
}

// UnitType is the type of statements-as-expressions; it has no values.
type UnitType struct{}

// BoolType is the two-valued boolean type.
type BoolType struct{}

// IntType is the unbounded integer type.
type IntType struct{}

// FloatType is the exact rational type.
type FloatType struct{}

// ArrayType is an ordered sequence with element type Elem.
type ArrayType struct {
	Elem Type
}

// FuncType is a function signature: parameter types and a result type.
type FuncType struct {
	Params []Type
	Result Type
}

// UnknownType stands for an unresolved user-written type id, or for an
// omitted annotation (Name == ""). It compares compatible with anything.
type UnknownType struct {
	Name string
}

// ErrorType is the bottom type produced by type errors. It compares
// compatible with anything so error-tainted expressions do not cascade.
type ErrorType struct{}

// Canonical singletons for the nullary types.
var (
	Unit    Type = UnitType{}
	Bool    Type = BoolType{}
	Int     Type = IntType{}
	Float   Type = FloatType{}
	ErrType Type = ErrorType{}
)

func (UnitType) typ()    {}
func (BoolType) typ()    {}
func (IntType) typ()     {}
func (FloatType) typ()   {}
func (ArrayType) typ()   {}
func (FuncType) typ()    {}
func (UnknownType) typ() {}
func (ErrorType) typ()   {}

func (UnitType) String() string  { return "Unit" }
func (BoolType) String() string  { return "Bool" }
func (IntType) String() string   { return "Int" }
func (FloatType) String() string { return "Float" }

func (t ArrayType) String() string { return "[" + t.Elem.String() + "]" }

func (t FuncType) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range t.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString("): ")
	b.WriteString(t.Result.String())
	return b.String()
}

func (t UnknownType) String() string {
	if t.Name == "" {
		return "?"
	}
	return t.Name
}

func (ErrorType) String() string { return "<error>" }

// IsError reports whether t is the Error type.
func IsError(t Type) bool {
	_, ok := t.(ErrorType)
	return ok
}

// Compatible reports whether a and b are structurally compatible.
// Error and Unknown absorb any partner; Array and Function compare
// structurally; the nullary types compare by identity.
func Compatible(a, b Type) bool {
	if _, ok := a.(ErrorType); ok {
		return true
	}
	if _, ok := b.(ErrorType); ok {
		return true
	}
	if _, ok := a.(UnknownType); ok {
		return true
	}
	if _, ok := b.(UnknownType); ok {
		return true
	}

	switch at := a.(type) {
	case UnitType:
		_, ok := b.(UnitType)
		return ok
	case BoolType:
		_, ok := b.(BoolType)
		return ok
	case IntType:
		_, ok := b.(IntType)
		return ok
	case FloatType:
		_, ok := b.(FloatType)
		return ok
	case ArrayType:
		bt, ok := b.(ArrayType)
		return ok && Compatible(at.Elem, bt.Elem)
	case FuncType:
		bt, ok := b.(FuncType)
		if !ok || len(at.Params) != len(bt.Params) {
			return false
		}
		for i := range at.Params {
			if !Compatible(at.Params[i], bt.Params[i]) {
				return false
			}
		}
		return Compatible(at.Result, bt.Result)
	}
	return false
}

// compatibleAll lifts Compatible pointwise over two type lists of equal
// length. Used for overload selection and redefinition detection.
func compatibleAll(as, bs []Type) bool {
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !Compatible(as[i], bs[i]) {
			return false
		}
	}
	return true
}
