package luacode

import "github.com/google/uuid"

// Prototype is a compiled function: its instruction stream, constant
// pool, and nested function prototypes, plus the register-allocation
// metadata the VM needs to set up a call frame.
type Prototype struct {
	// NumParams is the number of fixed (named) parameters.
	NumParams uint8
	IsVararg  bool
	// FrameSize is one more than the highest register index ever
	// allocated in this function, i.e. the number of stack slots its
	// frame needs.
	FrameSize uint8

	Constants []Value
	Code      []Instruction
	Functions []*Prototype

	// Source is the chunk name this prototype (or, for a nested
	// function, its ultimate ancestor) was compiled from. Debug-only.
	Source string
	// Line is the source line the function keyword or chunk started
	// on. Zero for the implicit top-level chunk.
	Line int

	// BuildID identifies a single compilation of a root prototype. It
	// is zero on nested function prototypes; only the root carries
	// one, set once by Compile. Purely informational: two bytecode
	// artifacts compiled from identical source at different times get
	// distinct BuildIDs, which .luabc files persist, but it plays no
	// part in program semantics.
	BuildID uuid.UUID
}

// IsMainChunk reports whether p is the implicit top-level function of
// a compiled source file, as opposed to a nested function literal.
func (p *Prototype) IsMainChunk() bool {
	return p.Line == 0
}

// CheckRegisterSafety checks p and, recursively, its nested prototypes:
// the A operand of every ABC instruction (other than a RETURN of no
// values, which reads no register) is below FrameSize, the constant
// index of every LOADK, GETGLOBAL and SETGLOBAL is within Constants,
// and the prototype index of every CLOSURE is within Functions. B and C
// operands, the A operand of ABx instructions, and jump targets are not
// checked. It is intended for use by tests.
func (p *Prototype) CheckRegisterSafety() error {
	for pc, instr := range p.Code {
		op := instr.OpCode()
		if !op.IsValid() {
			return &LoadError{Kind: InvalidOpcode, Detail: "at pc " + formatInt(int64(pc))}
		}
		switch op.Mode() {
		case ModeABC:
			if op == OpReturn && instr.ArgB() == 0 {
				break
			}
			if err := p.checkRegister(instr.ArgA()); err != nil {
				return err
			}
			switch op {
			case OpGetTable, OpSetTable:
				// B/C may be RK-tagged; neither is checked.
			default:
			}
		case ModeABx:
			switch op {
			case OpLoadK, OpGetGlobal, OpSetGlobal:
				if int(instr.ArgBx()) >= len(p.Constants) {
					return &LoadError{Kind: BadConstantIndex}
				}
			case OpClosure:
				if int(instr.ArgBx()) >= len(p.Functions) {
					return &LoadError{Kind: BadConstantIndex}
				}
			}
		}
		_ = pc
	}
	for _, child := range p.Functions {
		if err := child.CheckRegisterSafety(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Prototype) checkRegister(r uint8) error {
	if r >= p.FrameSize {
		return &LoadError{Kind: BadRegister}
	}
	return nil
}
