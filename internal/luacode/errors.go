package luacode

import "fmt"

// CompileErrorKind classifies a semantic problem the compiler detects
// statically, as opposed to a grammar violation (ParseError) or a
// lexical one (LexError).
type CompileErrorKind string

// Compile error kinds.
const (
	BreakOutsideLoop   CompileErrorKind = "break outside loop"
	GotoOutOfScope     CompileErrorKind = "goto into scope of local"
	UndefinedLabel     CompileErrorKind = "no visible label"
	DuplicateLabel     CompileErrorKind = "duplicate label in same block"
	TooManyRegisters   CompileErrorKind = "too many registers"
	ZeroForStep        CompileErrorKind = "'for' step is zero"
	TooManyConstants   CompileErrorKind = "too many constants"
	TooManyFields      CompileErrorKind = "too many table constructor fields before a multi-value tail"
)

// CompileError reports a semantic error found while lowering an AST to
// bytecode.
type CompileError struct {
	Line   int
	Column int
	Kind   CompileErrorKind
	Detail string
}

func (e *CompileError) Error() string {
	pos := positionString(e.Line, e.Column)
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", pos, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", pos, e.Kind, e.Detail)
}

// LoadErrorKind classifies why a .luabc byte stream could not be
// loaded, or why a decoded [Prototype] fails its structural invariants.
type LoadErrorKind string

// Load error kinds.
const (
	BadMagic         LoadErrorKind = "bad magic"
	BadVersion       LoadErrorKind = "unsupported version"
	Truncated        LoadErrorKind = "truncated bytecode"
	BadConstantTag   LoadErrorKind = "invalid constant tag"
	BadConstantIndex LoadErrorKind = "constant index out of range"
	BadRegister      LoadErrorKind = "register index out of range"
	InvalidOpcode    LoadErrorKind = "invalid opcode"
	BadJumpTarget    LoadErrorKind = "jump target out of range"
)

// LoadError reports why a bytecode artifact failed to load, before any
// execution began.
type LoadError struct {
	Kind   LoadErrorKind
	Detail string
}

func (e *LoadError) Error() string {
	if e.Detail == "" {
		return "luabc: " + string(e.Kind)
	}
	return fmt.Sprintf("luabc: %s: %s", e.Kind, e.Detail)
}

func positionString(line, col int) string {
	if line <= 0 {
		return "?"
	}
	if col <= 0 {
		return fmt.Sprintf("%d", line)
	}
	return fmt.Sprintf("%d:%d", line, col)
}
