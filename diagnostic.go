// diagnostic.go — type-checker diagnostic records.
//
// Diagnostics accumulate during checking and never abort it; the checker's
// Error type keeps the AST well-formed instead. Hosts decide what to do
// with the list (the CLI skips evaluation when it holds an error, see
// HasErrors; warnings alone do not stop it).
package devin

import "fmt"

// DiagKind tags a diagnostic with its cause.
type DiagKind int

const (
	DiagUnknownType DiagKind = iota
	DiagUnknownVariable
	DiagUnknownFunction
	DiagFunctionRedefinition
	DiagInvalidUnary
	DiagInvalidBinary
	DiagInvalidAssign
	DiagInvalidType
	DiagInvalidReturnType
	DiagMissingReturnValue
	DiagMissingReturnPath
	DiagNoSideEffects
)

func (k DiagKind) String() string {
	switch k {
	case DiagUnknownType:
		return "UnknownType"
	case DiagUnknownVariable:
		return "UnknownVariable"
	case DiagUnknownFunction:
		return "UnknownFunction"
	case DiagFunctionRedefinition:
		return "FunctionRedefinition"
	case DiagInvalidUnary:
		return "InvalidUnary"
	case DiagInvalidBinary:
		return "InvalidBinary"
	case DiagInvalidAssign:
		return "InvalidAssign"
	case DiagInvalidType:
		return "InvalidType"
	case DiagInvalidReturnType:
		return "InvalidReturnType"
	case DiagMissingReturnValue:
		return "MissingReturnValue"
	case DiagMissingReturnPath:
		return "MissingReturnPath"
	case DiagNoSideEffects:
		return "NoSideEffects"
	}
	return "Unknown"
}

// Warning reports whether the diagnostic kind is advisory rather than an
// error. NoSideEffects is the only warning.
func (k DiagKind) Warning() bool { return k == DiagNoSideEffects }

// Diagnostic is a single checker finding: kind, primary span, and a
// human-readable description.
type Diagnostic struct {
	Kind DiagKind
	Span Span
	Msg  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Msg)
}

// HasErrors reports whether diags contains at least one non-warning
// diagnostic. Evaluation is skipped when it does.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if !d.Kind.Warning() {
			return true
		}
	}
	return false
}
