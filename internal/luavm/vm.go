package luavm

import (
	"context"
	"io"
	"os"

	"zombiezen.com/go/log"

	"lua53vm.dev/lua/internal/luacode"
)

// AllResults, passed as nret to [VM.Call], asks for every value the
// callee returns rather than a fixed, padded/truncated count.
const AllResults = -1

// maxDepth bounds Lua-to-Lua call nesting (spec.md §7's
// "implementation-defined bound >= 200 frames").
const maxDepth = 200

// VM executes compiled Lua prototypes. It is single-threaded and not
// safe for concurrent use, per spec.md §5.
type VM struct {
	Globals *Table
	Stdout  io.Writer

	// Debug enables --debug call tracing via zombiezen.com/go/log,
	// mirroring the teacher's initLogging pattern. Purely observational.
	Debug bool

	depth int
}

// New returns a VM with a fresh global environment and the base
// library installed, writing print() output to stdout.
func New(stdout io.Writer) *VM {
	vm := &VM{Globals: NewTable(), Stdout: stdout}
	registerBaseLibrary(vm)
	return vm
}

// Run executes proto as the top-level chunk, passing args as its
// varargs (the Lua convention for script command-line arguments), and
// returns whatever it returns.
func (vm *VM) Run(proto *luacode.Prototype, args []Value) ([]Value, error) {
	return vm.Call(&Function{Proto: proto}, args, AllResults)
}

// Call invokes fn with args, adjusting the result count to nret
// (AllResults for every value the callee produced).
func (vm *VM) Call(fn Value, args []Value, nret int) ([]Value, error) {
	var results []Value
	var err error
	switch f := fn.(type) {
	case *Function:
		vm.depth++
		if vm.depth > maxDepth {
			vm.depth--
			return nil, &RuntimeError{Kind: StackOverflow}
		}
		if vm.Debug {
			log.Debugf(context.Background(), "luavm: call %s (depth %d)", f.Proto.Source, vm.depth)
		}
		results, err = vm.execute(f.Proto, args)
		if vm.Debug && err == nil {
			log.Debugf(context.Background(), "luavm: return %s (depth %d)", f.Proto.Source, vm.depth)
		}
		vm.depth--
	case *GoFunction:
		results, err = f.Fn(vm, args)
	case nil:
		return nil, &RuntimeError{Kind: NilCall}
	default:
		return nil, &RuntimeError{Kind: NilCall, Value: stringValue("attempt to call a " + TypeOf(fn).String() + " value")}
	}
	if err != nil {
		return nil, err
	}
	if nret < 0 {
		return results, nil
	}
	adjusted := make([]Value, nret)
	copy(adjusted, results)
	return adjusted, nil
}

// execute runs one activation of proto's bytecode to completion,
// returning the values its RETURN produced.
func (vm *VM) execute(proto *luacode.Prototype, args []Value) ([]Value, error) {
	regs := make([]Value, proto.FrameSize)
	for i := 0; i < int(proto.NumParams) && i < len(args); i++ {
		regs[i] = args[i]
	}
	var varargs []Value
	if proto.IsVararg && len(args) > int(proto.NumParams) {
		varargs = append(varargs, args[proto.NumParams:]...)
	}

	// top tracks the register one past the last value produced by the
	// most recent CALL or VARARG — the dynamic analogue of FrameSize,
	// since that's a whole-body high-water mark and can't stand in for
	// how many values are live *right now* at a multi-value tail
	// position. Only CALL/VARARG update it, and only a CALL/RETURN
	// consuming an AllSentinel count, or a SETLIST, reads it, matching
	// how the compiler only ever chains these back to back.
	top := len(regs)

	pc := 0
	for {
		if pc < 0 || pc >= len(proto.Code) {
			return nil, nil
		}
		instr := proto.Code[pc]
		op := instr.OpCode()
		pc++

		switch op {
		case luacode.OpLoadNil:
			regs[instr.ArgA()] = nil
		case luacode.OpLoadBool:
			regs[instr.ArgA()] = booleanValue(instr.ArgC() != 0)
		case luacode.OpLoadK:
			regs[instr.ArgA()] = importConstant(proto.Constants[instr.ArgBx()])
		case luacode.OpLoadI:
			regs[instr.ArgA()] = integerValue(int16(instr.ArgBx()))
		case luacode.OpGetGlobal:
			name, _ := proto.Constants[instr.ArgBx()].IsString()
			regs[instr.ArgA()] = vm.Globals.Get(stringValue(name))
		case luacode.OpSetGlobal:
			name, _ := proto.Constants[instr.ArgBx()].IsString()
			vm.Globals.Set(stringValue(name), regs[instr.ArgA()])
		case luacode.OpMove:
			regs[instr.ArgA()] = regs[instr.ArgB()]

		case luacode.OpAdd, luacode.OpSub, luacode.OpMul, luacode.OpDiv,
			luacode.OpFDiv, luacode.OpMod, luacode.OpPow,
			luacode.OpBAnd, luacode.OpBOr, luacode.OpBXor,
			luacode.OpSHL, luacode.OpSHR:
			result, err := arith(op, regs[instr.ArgB()], regs[instr.ArgC()])
			if err != nil {
				return nil, err
			}
			regs[instr.ArgA()] = result
		case luacode.OpUnm:
			result, err := arith(luacode.OpSub, integerValue(0), regs[instr.ArgB()])
			if err != nil {
				return nil, err
			}
			regs[instr.ArgA()] = result
		case luacode.OpBNot:
			i, ok := asBitwiseInt(regs[instr.ArgB()])
			if !ok {
				return nil, runtimeErrorf(TypeMismatch, "attempt to perform bitwise operation on a %s value", TypeOf(regs[instr.ArgB()]))
			}
			regs[instr.ArgA()] = integerValue(^i)
		case luacode.OpNot:
			regs[instr.ArgA()] = booleanValue(!Truthy(regs[instr.ArgB()]))
		case luacode.OpLen:
			result, err := length(regs[instr.ArgB()])
			if err != nil {
				return nil, err
			}
			regs[instr.ArgA()] = result

		case luacode.OpConcat:
			result, err := concat(regs[instr.ArgB()], regs[instr.ArgC()])
			if err != nil {
				return nil, err
			}
			regs[instr.ArgA()] = result

		case luacode.OpEq:
			regs[instr.ArgA()] = booleanValue(Equal(regs[instr.ArgB()], regs[instr.ArgC()]))
		case luacode.OpLT:
			result, ok := Less(regs[instr.ArgB()], regs[instr.ArgC()])
			if !ok {
				return nil, runtimeErrorf(TypeMismatch, "attempt to compare %s with %s", TypeOf(regs[instr.ArgB()]), TypeOf(regs[instr.ArgC()]))
			}
			regs[instr.ArgA()] = booleanValue(result)
		case luacode.OpLE:
			result, ok := LessEqual(regs[instr.ArgB()], regs[instr.ArgC()])
			if !ok {
				return nil, runtimeErrorf(TypeMismatch, "attempt to compare %s with %s", TypeOf(regs[instr.ArgB()]), TypeOf(regs[instr.ArgC()]))
			}
			regs[instr.ArgA()] = booleanValue(result)

		case luacode.OpJmp:
			pc += int(instr.ArgJ())
		case luacode.OpJmpF:
			if !Truthy(regs[instr.ArgA()]) {
				pc += int(instr.ArgJ())
			}
		case luacode.OpJmpT:
			if Truthy(regs[instr.ArgA()]) {
				pc += int(instr.ArgJ())
			}

		case luacode.OpNewTable:
			regs[instr.ArgA()] = NewTable()
		case luacode.OpGetTable:
			t, ok := regs[instr.ArgB()].(*Table)
			if !ok {
				return nil, runtimeErrorf(NilIndex, "attempt to index a %s value", TypeOf(regs[instr.ArgB()]))
			}
			key := rkValue(regs, proto, instr.ArgC())
			regs[instr.ArgA()] = t.Get(key)
		case luacode.OpSetTable:
			t, ok := regs[instr.ArgA()].(*Table)
			if !ok {
				return nil, runtimeErrorf(NilIndex, "attempt to index a %s value", TypeOf(regs[instr.ArgA()]))
			}
			key := rkValue(regs, proto, instr.ArgB())
			if key == nil {
				return nil, runtimeErrorf(TypeMismatch, "table index is nil")
			}
			if f, ok := key.(floatValue); ok && isNaN(float64(f)) {
				return nil, runtimeErrorf(TypeMismatch, "table index is NaN")
			}
			t.Set(key, regs[instr.ArgC()])

		case luacode.OpSetList:
			t, ok := regs[instr.ArgA()].(*Table)
			if !ok {
				return nil, runtimeErrorf(NilIndex, "attempt to index a %s value", TypeOf(regs[instr.ArgA()]))
			}
			start := instr.ArgB()
			arrayIndex := int64(instr.ArgC())
			count := top - int(start)
			for i := 0; i < count; i++ {
				t.Set(integerValue(arrayIndex+int64(i)), regs[int(start)+i])
			}

		case luacode.OpCall:
			rf := instr.ArgA()
			nargs := int(instr.ArgB())
			nret := int(instr.ArgC())
			if instr.ArgB() == luacode.AllSentinel {
				nargs = top - int(rf) - 1
			}
			args := make([]Value, nargs)
			copy(args, regs[int(rf)+1:int(rf)+1+nargs])
			wantAll := instr.ArgC() == luacode.AllSentinel
			want := nret
			if wantAll {
				want = AllResults
			}
			results, err := vm.Call(regs[rf], args, want)
			if err != nil {
				return nil, err
			}
			needed := int(rf) + len(results)
			if needed > len(regs) {
				grown := make([]Value, needed)
				copy(grown, regs)
				regs = grown
			}
			copy(regs[rf:], results)
			top = int(rf) + len(results)

		case luacode.OpReturn:
			rbase := instr.ArgA()
			count := int(instr.ArgB())
			if instr.ArgB() == luacode.AllSentinel {
				count = top - int(rbase)
			}
			out := make([]Value, count)
			copy(out, regs[rbase:])
			return out, nil

		case luacode.OpClosure:
			regs[instr.ArgA()] = &Function{Proto: proto.Functions[instr.ArgBx()]}

		case luacode.OpVararg:
			dst := instr.ArgA()
			count := int(instr.ArgB())
			if instr.ArgB() == luacode.AllSentinel {
				count = len(varargs)
				needed := int(dst) + count
				if needed > len(regs) {
					grown := make([]Value, needed)
					copy(grown, regs)
					regs = grown
				}
			}
			for i := 0; i < count; i++ {
				if i < len(varargs) {
					regs[int(dst)+i] = varargs[i]
				} else {
					regs[int(dst)+i] = nil
				}
			}
			top = int(dst) + count

		case luacode.OpForPrep:
			base := instr.ArgA()
			if err := forCheck(regs, base); err != nil {
				return nil, err
			}
			start, _ := asFloat(regs[base])
			step, _ := asFloat(regs[base+2])
			stop, _ := asFloat(regs[base+1])
			if !forContinues(start, stop, step) {
				pc += int(instr.ArgJ())
			} else {
				regs[base+3] = regs[base]
			}

		case luacode.OpForLoop:
			base := instr.ArgA()
			next, err := arith(luacode.OpAdd, regs[base], regs[base+2])
			if err != nil {
				return nil, err
			}
			regs[base] = next
			start, _ := asFloat(next)
			stop, _ := asFloat(regs[base+1])
			step, _ := asFloat(regs[base+2])
			if forContinues(start, stop, step) {
				regs[base+3] = next
				pc += int(instr.ArgJ())
			}

		default:
			return nil, runtimeErrorf(TypeMismatch, "unimplemented opcode %s", op)
		}
	}
}

func rkValue(regs []Value, proto *luacode.Prototype, operand uint8) Value {
	if luacode.IsConstRK(operand) {
		return importConstant(proto.Constants[luacode.RKIndex(operand)])
	}
	return regs[operand]
}

func forCheck(regs []Value, base uint8) error {
	if _, ok := asFloat(regs[base]); !ok {
		return runtimeErrorf(TypeMismatch, "'for' initial value must be a number")
	}
	if _, ok := asFloat(regs[base+1]); !ok {
		return runtimeErrorf(TypeMismatch, "'for' limit must be a number")
	}
	step, ok := asFloat(regs[base+2])
	if !ok {
		return runtimeErrorf(TypeMismatch, "'for' step must be a number")
	}
	if step == 0 {
		return &RuntimeError{Kind: DivideByZero, Value: stringValue("'for' step is zero")}
	}
	return nil
}

func forContinues(i, limit, step float64) bool {
	if step > 0 {
		return i <= limit
	}
	return i >= limit
}

func isNaN(f float64) bool { return f != f }

// RunFile runs a prototype already loaded by the caller in a fresh VM
// whose print output goes to os.Stdout.
func RunFile(proto *luacode.Prototype, args []Value) ([]Value, error) {
	vm := New(os.Stdout)
	return vm.Run(proto, args)
}
