package luavm

import "fmt"

// RuntimeErrorKind classifies a runtime fault raised during VM
// execution, as opposed to a static LexError/ParseError/CompileError
// or a pre-execution LoadError (spec.md §7).
type RuntimeErrorKind string

// Runtime error kinds.
const (
	NilIndex        RuntimeErrorKind = "attempt to index a nil value"
	NilCall         RuntimeErrorKind = "attempt to call a nil value"
	TypeMismatch    RuntimeErrorKind = "type mismatch"
	DivideByZero    RuntimeErrorKind = "attempt to perform 'n//0'"
	ExplicitError   RuntimeErrorKind = "error"
	AssertionFailed RuntimeErrorKind = "assertion failed"
	StackOverflow   RuntimeErrorKind = "stack overflow"
)

// RuntimeError reports a fault raised while executing bytecode. Value
// holds the Lua value the script raised (for error()/assert()), which
// for most internal faults is just a string describing Kind.
type RuntimeError struct {
	Kind  RuntimeErrorKind
	Value Value
}

func (e *RuntimeError) Error() string {
	if s, ok := e.Value.(stringValue); ok {
		return string(s)
	}
	if e.Value != nil {
		return ToString(e.Value)
	}
	return string(e.Kind)
}

func runtimeErrorf(kind RuntimeErrorKind, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Value: stringValue(fmt.Sprintf(format, args...))}
}
