package luacode

import (
	"github.com/google/uuid"

	"lua53vm.dev/lua/internal/luaast"
	"lua53vm.dev/lua/internal/lualex"
)

// Compile lowers a parsed chunk into a root [Prototype]. The chunk's
// implicit top level is compiled as a vararg function with no
// parameters, matching the Lua convention that a script receives its
// command-line arguments as "...".
func Compile(chunk *luaast.Chunk) (*Prototype, error) {
	fs := newFuncState(nil, chunk.Name)
	fs.proto.IsVararg = true
	fs.openBlock(false)
	if err := compileBlock(fs, chunk.Body); err != nil {
		return nil, err
	}
	fs.emit(ABCInstruction(OpReturn, 0, 0, 0))
	if err := fs.closeBlock(); err != nil {
		return nil, err
	}
	fs.proto.BuildID = uuid.New()
	return fs.proto, nil
}

func compileBlock(fs *funcState, b luaast.Block) error {
	for _, stmt := range b.Statements {
		if err := compileStmt(fs, stmt); err != nil {
			return err
		}
	}
	return nil
}

func compileStmt(fs *funcState, stmt luaast.Statement) error {
	mark := fs.top()
	defer fs.freeTo(mark)

	switch s := stmt.(type) {
	case *luaast.LocalStmt:
		return compileLocalStmt(fs, s)
	case *luaast.AssignStmt:
		return compileAssignStmt(fs, s)
	case *luaast.CallStmt:
		_, err := compileCallExpr(fs, s.Call, fs.top(), 0)
		return err
	case *luaast.IfStmt:
		return compileIfStmt(fs, s)
	case *luaast.WhileStmt:
		return compileWhileStmt(fs, s)
	case *luaast.RepeatStmt:
		return compileRepeatStmt(fs, s)
	case *luaast.NumericForStmt:
		return compileNumericForStmt(fs, s)
	case *luaast.GenericForStmt:
		return compileGenericForStmt(fs, s)
	case *luaast.DoStmt:
		fs.openBlock(false)
		if err := compileBlock(fs, s.Body); err != nil {
			return err
		}
		return fs.closeBlock()
	case *luaast.ReturnStmt:
		return compileReturnStmt(fs, s)
	case *luaast.BreakStmt:
		return compileBreakStmt(fs, s)
	case *luaast.LabelStmt:
		return compileLabelStmt(fs, s)
	case *luaast.GotoStmt:
		return compileGotoStmt(fs, s)
	case *luaast.FunctionStmt:
		return compileFunctionStmt(fs, s)
	case *luaast.LocalFunctionStmt:
		return compileLocalFunctionStmt(fs, s)
	default:
		return &CompileError{Line: stmt.Pos().Line, Column: stmt.Pos().Column, Kind: "unsupported statement"}
	}
}

// --- local / assignment ---

func compileLocalStmt(fs *funcState, s *luaast.LocalStmt) error {
	base := fs.top()
	if err := compileExprListTo(fs, s.Exprs, base, len(s.Names)); err != nil {
		return err
	}
	fs.freeTo(base)
	for _, name := range s.Names {
		if _, err := fs.addLocal(name); err != nil {
			return err
		}
	}
	return nil
}

func compileAssignStmt(fs *funcState, s *luaast.AssignStmt) error {
	base := fs.top()
	if err := compileExprListTo(fs, s.Rhs, base, len(s.Lhs)); err != nil {
		return err
	}
	for i, lhs := range s.Lhs {
		if err := storeTo(fs, lhs, base+uint8(i)); err != nil {
			return err
		}
	}
	fs.freeTo(base)
	return nil
}

func storeTo(fs *funcState, target luaast.Expression, src uint8) error {
	switch e := target.(type) {
	case *luaast.NameExpr:
		if reg, ok := fs.resolveLocal(e.Name); ok {
			if reg != src {
				fs.emit(ABCInstruction(OpMove, reg, src, 0))
			}
			return nil
		}
		k, err := fs.constant(StringValue(e.Name))
		if err != nil {
			return err
		}
		fs.emit(ABxInstruction(OpSetGlobal, src, int32(k)))
		return nil
	case *luaast.IndexExpr:
		mark := fs.top()
		objReg, err := compileExprToAnyReg(fs, e.Obj)
		if err != nil {
			return err
		}
		keyRK, err := compileExprToRK(fs, e.Key)
		if err != nil {
			return err
		}
		fs.emit(ABCInstruction(OpSetTable, objReg, keyRK, src))
		fs.freeTo(mark)
		return nil
	default:
		return &CompileError{Line: target.Pos().Line, Column: target.Pos().Column, Kind: "cannot assign"}
	}
}

// compileExprListTo compiles exprs, a comma-separated expression list,
// into `want` consecutive registers starting at base (want < 0 means
// "as many as available", used only for a return list whose last
// expression is a call or "..."). Adjustment
// follows Lua's rule: all but the last expression are truncated to one
// value; the last is expanded/truncated to fill out `want`, or (if
// want < 0) left to expand dynamically via a sentinel count.
func compileExprListTo(fs *funcState, exprs []luaast.Expression, base uint8, want int) error {
	if len(exprs) == 0 {
		if want > 0 {
			fs.reserve(want)
			for i := 0; i < want; i++ {
				fs.emit(ABCInstruction(OpLoadNil, base+uint8(i), 0, 0))
			}
		}
		return nil
	}
	for i, e := range exprs[:len(exprs)-1] {
		reg := base + uint8(i)
		fs.reserve(1)
		if err := compileExprInto(fs, e, reg); err != nil {
			return err
		}
	}
	last := exprs[len(exprs)-1]
	lastReg := base + uint8(len(exprs)-1)
	remaining := want - (len(exprs) - 1)
	if want < 0 {
		remaining = -1
	}
	if luaast.IsMultiValue(last) && remaining != 1 {
		return compileMultiExpr(fs, last, lastReg, remaining)
	}
	fs.reserve(1)
	if err := compileExprInto(fs, last, lastReg); err != nil {
		return err
	}
	if remaining > 1 {
		fs.reserve(remaining - 1)
		for i := 1; i < remaining; i++ {
			fs.emit(ABCInstruction(OpLoadNil, lastReg+uint8(i), 0, 0))
		}
	}
	return nil
}

// compileMultiExpr compiles a call or "..." expression that sits in
// multi-value position, requesting want results (want < 0 for "all
// available", encoded with the sentinel). dst must equal fs.top().
func compileMultiExpr(fs *funcState, e luaast.Expression, dst uint8, want int) error {
	switch ex := e.(type) {
	case *luaast.CallExpr:
		_, err := compileCallExpr(fs, ex, dst, want)
		return err
	case *luaast.VarargExpr:
		n := AllSentinel
		if want >= 0 {
			n = want
			fs.reserve(want)
		} else {
			// Keep dst itself inside FrameSize; the VM grows the frame
			// for any further values at run time.
			fs.reserve(1)
		}
		fs.emit(ABCInstruction(OpVararg, dst, uint8(n), 0))
		return nil
	default:
		panic("compileMultiExpr on non-multi expression")
	}
}

// --- if / while / repeat ---

func compileIfStmt(fs *funcState, s *luaast.IfStmt) error {
	var endJumps []int
	for _, clause := range s.Clauses {
		mark := fs.top()
		cond, err := compileExprToAnyReg(fs, clause.Cond)
		if err != nil {
			return err
		}
		jf := fs.emit(RJInstruction(OpJmpF, cond, 0))
		fs.freeTo(mark)
		fs.openBlock(false)
		if err := compileBlock(fs, clause.Body); err != nil {
			return err
		}
		if err := fs.closeBlock(); err != nil {
			return err
		}
		endJumps = append(endJumps, fs.emit(JInstruction(OpJmp, 0)))
		fs.patchJump(jf, len(fs.proto.Code))
	}
	if s.HasElse {
		fs.openBlock(false)
		if err := compileBlock(fs, s.Else); err != nil {
			return err
		}
		if err := fs.closeBlock(); err != nil {
			return err
		}
	}
	end := len(fs.proto.Code)
	for _, pc := range endJumps {
		fs.patchJump(pc, end)
	}
	return nil
}

func compileWhileStmt(fs *funcState, s *luaast.WhileStmt) error {
	top := len(fs.proto.Code)
	mark := fs.top()
	cond, err := compileExprToAnyReg(fs, s.Cond)
	if err != nil {
		return err
	}
	jf := fs.emit(RJInstruction(OpJmpF, cond, 0))
	fs.freeTo(mark)
	fs.openBlock(true)
	if err := compileBlock(fs, s.Body); err != nil {
		return err
	}
	fs.emit(JInstruction(OpJmp, 0))
	fs.patchJump(len(fs.proto.Code)-1, top)
	if err := fs.closeBlock(); err != nil {
		return err
	}
	fs.patchJump(jf, len(fs.proto.Code))
	return nil
}

func compileRepeatStmt(fs *funcState, s *luaast.RepeatStmt) error {
	top := len(fs.proto.Code)
	fs.openBlock(true)
	if err := compileBlock(fs, s.Body); err != nil {
		return err
	}
	mark := fs.top()
	cond, err := compileExprToAnyReg(fs, s.Cond)
	if err != nil {
		return err
	}
	fs.emit(RJInstruction(OpJmpF, cond, int32(top-(len(fs.proto.Code)+1))))
	fs.freeTo(mark)
	return fs.closeBlock()
}

func compileBreakStmt(fs *funcState, s *luaast.BreakStmt) error {
	for b := fs.blocks; b != nil; b = b.parent {
		if b.isLoop {
			pc := fs.emit(JInstruction(OpJmp, 0))
			b.breaks = append(b.breaks, pc)
			return nil
		}
	}
	return &CompileError{Line: s.Position.Line, Column: s.Position.Column, Kind: BreakOutsideLoop}
}

func compileLabelStmt(fs *funcState, s *luaast.LabelStmt) error {
	b := fs.blocks
	for _, l := range b.labels {
		if l.name == s.Name {
			return &CompileError{Line: s.Position.Line, Column: s.Position.Column, Kind: DuplicateLabel, Detail: s.Name}
		}
	}
	pc := len(fs.proto.Code)
	nLocal := len(fs.locals)
	var remaining []gotoRef
	for _, g := range b.gotos {
		if g.name != s.Name {
			remaining = append(remaining, g)
			continue
		}
		if g.nLocal < nLocal {
			return &CompileError{Line: g.line, Kind: GotoOutOfScope, Detail: s.Name}
		}
		fs.patchJump(g.pc, pc)
	}
	b.gotos = remaining
	b.labels = append(b.labels, labelDef{name: s.Name, pc: pc, nLocal: nLocal})
	return nil
}

func compileGotoStmt(fs *funcState, s *luaast.GotoStmt) error {
	if l, ok := fs.findLabel(s.Name); ok {
		fs.emit(JInstruction(OpJmp, int32(l.pc-(len(fs.proto.Code)+1))))
		return nil
	}
	pc := fs.emit(JInstruction(OpJmp, 0))
	fs.blocks.gotos = append(fs.blocks.gotos, gotoRef{name: s.Name, pc: pc, nLocal: len(fs.locals), line: s.Position.Line})
	return nil
}

// --- for loops ---

func compileNumericForStmt(fs *funcState, s *luaast.NumericForStmt) error {
	base, err := fs.reserve(4)
	if err != nil {
		return err
	}
	if err := compileExprInto(fs, s.Start, base); err != nil {
		return err
	}
	if err := compileExprInto(fs, s.Stop, base+1); err != nil {
		return err
	}
	if s.Step != nil {
		if n, ok := s.Step.(*luaast.NumberExpr); ok && ((n.IsInt && n.Int == 0) || (!n.IsInt && n.Float == 0)) {
			return &CompileError{Line: n.Position.Line, Column: n.Position.Column, Kind: ZeroForStep}
		}
		if err := compileExprInto(fs, s.Step, base+2); err != nil {
			return err
		}
	} else {
		fs.emit(ABxInstruction(OpLoadI, base+2, 1))
	}
	prep := fs.emit(RJInstruction(OpForPrep, base, 0))
	fs.openBlock(true)
	fs.bindLocal(s.Name, base+3)
	if err := compileBlock(fs, s.Body); err != nil {
		return err
	}
	loopPC := fs.emit(RJInstruction(OpForLoop, base, 0))
	fs.patchJump(loopPC, prep+1)
	fs.patchJump(prep, len(fs.proto.Code))
	return fs.closeBlock()
}

// compileGenericForStmt lowers `for names in exprs do body end`. The
// iterator/state/control triple lives in three permanent registers
// for the loop's duration; each iteration copies them into a scratch
// area to perform the CALL (since CALL overwrites starting at its
// function register) and copies the results into the loop variables'
// own permanent registers, then the control slot is refreshed from
// the first result for the next iteration.
func compileGenericForStmt(fs *funcState, s *luaast.GenericForStmt) error {
	base, err := fs.reserve(3)
	if err != nil {
		return err
	}
	if err := compileExprListTo(fs, s.Exprs, base, 3); err != nil {
		return err
	}
	fs.openBlock(true)
	varBase, err := fs.reserve(len(s.Names))
	if err != nil {
		return err
	}

	top := len(fs.proto.Code)
	scratch, err := fs.reserve(3)
	if err != nil {
		return err
	}
	fs.emit(ABCInstruction(OpMove, scratch, base, 0))
	fs.emit(ABCInstruction(OpMove, scratch+1, base+1, 0))
	fs.emit(ABCInstruction(OpMove, scratch+2, base+2, 0))
	fs.emit(ABCInstruction(OpCall, scratch, 2, uint8(len(s.Names))))
	for i := range s.Names {
		fs.emit(ABCInstruction(OpMove, varBase+uint8(i), scratch+uint8(i), 0))
	}
	fs.freeTo(varBase + uint8(len(s.Names)))
	jf := fs.emit(RJInstruction(OpJmpF, varBase, 0))
	fs.emit(ABCInstruction(OpMove, base+2, varBase, 0))

	for i, name := range s.Names {
		fs.bindLocal(name, varBase+uint8(i))
	}
	if err := compileBlock(fs, s.Body); err != nil {
		return err
	}
	fs.emit(JInstruction(OpJmp, int32(top-(len(fs.proto.Code)+1))))
	end := len(fs.proto.Code)
	fs.patchJump(jf, end)
	return fs.closeBlock()
}

// --- return ---

func compileReturnStmt(fs *funcState, s *luaast.ReturnStmt) error {
	base := fs.top()
	if len(s.Exprs) == 0 {
		fs.emit(ABCInstruction(OpReturn, base, 0, 0))
		return nil
	}
	last := s.Exprs[len(s.Exprs)-1]
	if luaast.IsMultiValue(last) {
		if err := compileExprListTo(fs, s.Exprs, base, -1); err != nil {
			return err
		}
		fs.emit(ABCInstruction(OpReturn, base, AllSentinel, 0))
		return nil
	}
	if err := compileExprListTo(fs, s.Exprs, base, len(s.Exprs)); err != nil {
		return err
	}
	fs.emit(ABCInstruction(OpReturn, base, uint8(len(s.Exprs)), 0))
	return nil
}

// --- function statements ---

func compileFunctionStmt(fs *funcState, s *luaast.FunctionStmt) error {
	protoIdx, err := compileFunctionBody(fs, s.Body)
	if err != nil {
		return err
	}
	mark := fs.top()
	reg, err := fs.reserve(1)
	if err != nil {
		return err
	}
	fs.emit(ABxInstruction(OpClosure, reg, int32(protoIdx)))
	if err := storeTo(fs, s.Target, reg); err != nil {
		return err
	}
	fs.freeTo(mark)
	return nil
}

func compileLocalFunctionStmt(fs *funcState, s *luaast.LocalFunctionStmt) error {
	reg, err := fs.addLocal(s.Name)
	if err != nil {
		return err
	}
	protoIdx, err := compileFunctionBody(fs, s.Body)
	if err != nil {
		return err
	}
	fs.emit(ABxInstruction(OpClosure, reg, int32(protoIdx)))
	return nil
}

func compileFunctionBody(parent *funcState, body *luaast.FunctionBody) (int, error) {
	fs := newFuncState(parent, parent.source)
	fs.proto.IsVararg = body.IsVararg
	fs.proto.NumParams = uint8(len(body.Params))
	fs.proto.Line = body.Position.Line
	fs.openBlock(false)
	for _, p := range body.Params {
		if _, err := fs.addLocal(p); err != nil {
			return 0, err
		}
	}
	if err := compileBlock(fs, body.Body); err != nil {
		return 0, err
	}
	fs.emit(ABCInstruction(OpReturn, 0, 0, 0))
	if err := fs.closeBlock(); err != nil {
		return 0, err
	}
	parent.proto.Functions = append(parent.proto.Functions, fs.proto)
	return len(parent.proto.Functions) - 1, nil
}

// --- expressions ---

// compileExprInto compiles e so that its single value ends up in reg.
// reg must already be reserved by the caller.
func compileExprInto(fs *funcState, e luaast.Expression, reg uint8) error {
	switch ex := e.(type) {
	case *luaast.NilExpr:
		fs.emit(ABCInstruction(OpLoadNil, reg, 0, 0))
	case *luaast.TrueExpr:
		fs.emit(ABCInstruction(OpLoadBool, reg, 0, 1))
	case *luaast.FalseExpr:
		fs.emit(ABCInstruction(OpLoadBool, reg, 0, 0))
	case *luaast.NumberExpr:
		return compileNumberInto(fs, ex, reg)
	case *luaast.StringExpr:
		k, err := fs.constant(StringValue(ex.Value))
		if err != nil {
			return err
		}
		fs.emit(ABxInstruction(OpLoadK, reg, int32(k)))
	case *luaast.VarargExpr:
		fs.emit(ABCInstruction(OpVararg, reg, 1, 0))
	case *luaast.NameExpr:
		if src, ok := fs.resolveLocal(ex.Name); ok {
			if src != reg {
				fs.emit(ABCInstruction(OpMove, reg, src, 0))
			}
			return nil
		}
		k, err := fs.constant(StringValue(ex.Name))
		if err != nil {
			return err
		}
		fs.emit(ABxInstruction(OpGetGlobal, reg, int32(k)))
	case *luaast.IndexExpr:
		return compileIndexInto(fs, ex, reg)
	case *luaast.CallExpr:
		_, err := compileCallExpr(fs, ex, reg, 1)
		return err
	case *luaast.FunctionExpr:
		protoIdx, err := compileFunctionBody(fs, ex.Body)
		if err != nil {
			return err
		}
		fs.emit(ABxInstruction(OpClosure, reg, int32(protoIdx)))
	case *luaast.BinaryExpr:
		return compileBinaryInto(fs, ex, reg)
	case *luaast.UnaryExpr:
		return compileUnaryInto(fs, ex, reg)
	case *luaast.TableExpr:
		return compileTableInto(fs, ex, reg)
	default:
		if u, ok := e.(unwrapper); ok {
			return compileExprInto(fs, u.Unwrap(), reg)
		}
		return &CompileError{Line: e.Pos().Line, Column: e.Pos().Column, Kind: "unsupported expression"}
	}
	return nil
}

// unwrapper is implemented by luaast's parenthesized-expression node,
// whose concrete type is unexported; this lets the compiler see
// through "(expr)" to compile the inner expression directly, since
// parens only affect multi-value truncation (already reflected by
// luaast.IsMultiValue), never code generation.
type unwrapper interface {
	Unwrap() luaast.Expression
}

func compileNumberInto(fs *funcState, n *luaast.NumberExpr, reg uint8) error {
	if n.IsInt && n.Int >= minSJ && n.Int <= maxSJ {
		fs.emit(ABxInstruction(OpLoadI, reg, int32(n.Int)))
		return nil
	}
	var v Value
	if n.IsInt {
		v = IntegerValue(n.Int)
	} else {
		v = FloatValue(n.Float)
	}
	k, err := fs.constant(v)
	if err != nil {
		return err
	}
	fs.emit(ABxInstruction(OpLoadK, reg, int32(k)))
	return nil
}

func compileIndexInto(fs *funcState, ex *luaast.IndexExpr, reg uint8) error {
	mark := fs.top()
	objReg, err := compileExprToAnyReg(fs, ex.Obj)
	if err != nil {
		return err
	}
	keyRK, err := compileExprToRK(fs, ex.Key)
	if err != nil {
		return err
	}
	fs.emit(ABCInstruction(OpGetTable, reg, objReg, keyRK))
	fs.freeTo(mark)
	if reg < mark {
		// reg was below the temporaries we just freed (already a live
		// local/target register): nothing further needed, GETTABLE
		// already wrote there directly.
	}
	return nil
}

// compileExprToAnyReg returns a register holding e's value: the local's
// own register when e names a local, otherwise a fresh temporary
// (allocated above the current top) that e is compiled into. Used when the
// caller only needs to read the value once, such as a binary
// operand.
func compileExprToAnyReg(fs *funcState, e luaast.Expression) (uint8, error) {
	if name, ok := e.(*luaast.NameExpr); ok {
		if reg, ok := fs.resolveLocal(name.Name); ok {
			return reg, nil
		}
	}
	reg, err := fs.reserve(1)
	if err != nil {
		return 0, err
	}
	if err := compileExprInto(fs, e, reg); err != nil {
		return 0, err
	}
	return reg, nil
}

// compileExprToRK compiles e, preferring to encode it as a constant-pool
// RK operand (for GETTABLE/SETTABLE keys) when it is a literal.
func compileExprToRK(fs *funcState, e luaast.Expression) (uint8, error) {
	switch ex := e.(type) {
	case *luaast.StringExpr:
		k, err := fs.constant(StringValue(ex.Value))
		if err != nil {
			return 0, err
		}
		if k <= maxRK {
			return ConstRK(k), nil
		}
	case *luaast.NumberExpr:
		var v Value
		if ex.IsInt {
			v = IntegerValue(ex.Int)
		} else {
			v = FloatValue(ex.Float)
		}
		k, err := fs.constant(v)
		if err != nil {
			return 0, err
		}
		if k <= maxRK {
			return ConstRK(k), nil
		}
	}
	reg, err := compileExprToAnyReg(fs, e)
	if err != nil {
		return 0, err
	}
	return RegisterRK(reg), nil
}

var binaryOps = map[lualex.TokenKind]OpCode{
	lualex.AddToken:    OpAdd,
	lualex.SubToken:    OpSub,
	lualex.MulToken:    OpMul,
	lualex.DivToken:    OpDiv,
	lualex.IntDivToken: OpFDiv,
	lualex.ModToken:    OpMod,
	lualex.PowToken:    OpPow,
	lualex.BitAndToken: OpBAnd,
	lualex.BitOrToken:  OpBOr,
	lualex.BitXorToken: OpBXor,
	lualex.LShiftToken: OpSHL,
	lualex.RShiftToken: OpSHR,
	lualex.ConcatToken: OpConcat,
	lualex.EqualToken:  OpEq,
	lualex.LessToken:   OpLT,
	lualex.LessEqualToken: OpLE,
}

func compileBinaryInto(fs *funcState, ex *luaast.BinaryExpr, reg uint8) error {
	switch ex.Op {
	case lualex.AndToken:
		if err := compileExprInto(fs, ex.Left, reg); err != nil {
			return err
		}
		jf := fs.emit(RJInstruction(OpJmpF, reg, 0))
		if err := compileExprInto(fs, ex.Right, reg); err != nil {
			return err
		}
		fs.patchJump(jf, len(fs.proto.Code))
		return nil
	case lualex.OrToken:
		if err := compileExprInto(fs, ex.Left, reg); err != nil {
			return err
		}
		jt := fs.emit(RJInstruction(OpJmpT, reg, 0))
		if err := compileExprInto(fs, ex.Right, reg); err != nil {
			return err
		}
		fs.patchJump(jt, len(fs.proto.Code))
		return nil
	case lualex.NotEqualToken, lualex.GreaterToken, lualex.GreaterEqualToken:
		return compileNegatedComparison(fs, ex, reg)
	}

	op, ok := binaryOps[ex.Op]
	if !ok {
		return &CompileError{Line: ex.Position.Line, Column: ex.Position.Column, Kind: "unsupported operator"}
	}
	mark := fs.top()
	left, err := compileExprToAnyReg(fs, ex.Left)
	if err != nil {
		return err
	}
	right, err := compileExprToAnyReg(fs, ex.Right)
	if err != nil {
		return err
	}
	fs.emit(ABCInstruction(op, reg, left, right))
	fs.freeTo(mark)
	return nil
}

// compileNegatedComparison lowers `a ~= b` as EQ followed by NOT, and
// `a > b` and `a >= b` as LT and LE with the operands swapped, since
// the instruction set only provides EQ/LT/LE.
func compileNegatedComparison(fs *funcState, ex *luaast.BinaryExpr, reg uint8) error {
	var op OpCode
	left, right := ex.Left, ex.Right
	switch ex.Op {
	case lualex.NotEqualToken:
		op = OpEq
	case lualex.GreaterToken:
		op = OpLT
		left, right = right, left
	case lualex.GreaterEqualToken:
		op = OpLE
		left, right = right, left
	}
	mark := fs.top()
	l, err := compileExprToAnyReg(fs, left)
	if err != nil {
		return err
	}
	r, err := compileExprToAnyReg(fs, right)
	if err != nil {
		return err
	}
	fs.emit(ABCInstruction(op, reg, l, r))
	if ex.Op == lualex.NotEqualToken {
		fs.emit(ABCInstruction(OpNot, reg, reg, 0))
	}
	fs.freeTo(mark)
	return nil
}

func compileUnaryInto(fs *funcState, ex *luaast.UnaryExpr, reg uint8) error {
	var op OpCode
	switch ex.Op {
	case lualex.SubToken:
		op = OpUnm
	case lualex.NotToken:
		op = OpNot
	case lualex.LenToken:
		op = OpLen
	case lualex.BitXorToken:
		op = OpBNot
	default:
		return &CompileError{Line: ex.Position.Line, Kind: "unsupported unary operator"}
	}
	mark := fs.top()
	src, err := compileExprToAnyReg(fs, ex.Operand)
	if err != nil {
		return err
	}
	fs.emit(ABCInstruction(op, reg, src, 0))
	fs.freeTo(mark)
	return nil
}

func compileTableInto(fs *funcState, ex *luaast.TableExpr, reg uint8) error {
	fs.emit(ABCInstruction(OpNewTable, reg, 0, 0))
	arrayIndex := int64(1)
	for i, field := range ex.Fields {
		mark := fs.top()
		isLast := i == len(ex.Fields)-1
		if field.Key == nil && isLast && luaast.IsMultiValue(field.Value) {
			// The trailing positional field of a table constructor is a
			// multi-value-adjustment context, same as an argument list or
			// return list: a call or "..." here expands to every value it
			// produces, not just its first. The count isn't known until
			// the call/vararg actually runs, so SETLIST reads the VM's
			// live register top at runtime instead of emitting one
			// SETTABLE per value.
			if arrayIndex > maxArgC {
				return &CompileError{Line: field.Value.Pos().Line, Column: field.Value.Pos().Column, Kind: TooManyFields}
			}
			if err := compileMultiExpr(fs, field.Value, mark, -1); err != nil {
				return err
			}
			fs.emit(ABCInstruction(OpSetList, reg, mark, uint8(arrayIndex)))
			fs.freeTo(mark)
			continue
		}
		if field.Key == nil {
			valReg, err := compileExprToAnyReg(fs, field.Value)
			if err != nil {
				return err
			}
			k, err := fs.constant(IntegerValue(arrayIndex))
			if err != nil {
				return err
			}
			if k > maxRK {
				return &CompileError{Kind: TooManyConstants}
			}
			fs.emit(ABCInstruction(OpSetTable, reg, ConstRK(k), valReg))
			arrayIndex++
		} else {
			keyRK, err := compileExprToRK(fs, field.Key)
			if err != nil {
				return err
			}
			valReg, err := compileExprToAnyReg(fs, field.Value)
			if err != nil {
				return err
			}
			fs.emit(ABCInstruction(OpSetTable, reg, keyRK, valReg))
		}
		fs.freeTo(mark)
	}
	return nil
}

// compileCallExpr compiles a call/method-call expression. The callee
// and its arguments are always staged starting at the current top
// (call semantics require them contiguous), regardless of where dst
// points; CALL's results land at that staging base per the
// instruction set's convention (rf..rf+nret-1), and are moved down to
// dst afterward if dst isn't already the staging base. nret < 0 asks
// for every available result (the sentinel), used only where the
// caller can consume a dynamic count (a return list, the trailing
// argument of an enclosing call, or the trailing field of a table
// constructor).
func compileCallExpr(fs *funcState, ex *luaast.CallExpr, dst uint8, nret int) (uint8, error) {
	base := fs.top()
	fnReg := base
	if _, err := fs.reserve(1); err != nil {
		return 0, err
	}

	nargs := len(ex.Args)
	if ex.Method != "" {
		if err := compileExprInto(fs, ex.Fn, fnReg); err != nil {
			return 0, err
		}
		selfReg, err := fs.reserve(1)
		if err != nil {
			return 0, err
		}
		k, err := fs.constant(StringValue(ex.Method))
		if err != nil {
			return 0, err
		}
		fs.emit(ABCInstruction(OpMove, selfReg, fnReg, 0))
		fs.emit(ABCInstruction(OpGetTable, fnReg, selfReg, ConstRK(k)))
		nargs++
	} else {
		if err := compileExprInto(fs, ex.Fn, fnReg); err != nil {
			return 0, err
		}
	}

	argNargs := 0
	if len(ex.Args) > 0 {
		last := ex.Args[len(ex.Args)-1]
		for _, a := range ex.Args[:len(ex.Args)-1] {
			r, err := fs.reserve(1)
			if err != nil {
				return 0, err
			}
			if err := compileExprInto(fs, a, r); err != nil {
				return 0, err
			}
		}
		if luaast.IsMultiValue(last) {
			if err := compileMultiExpr(fs, last, fs.top(), -1); err != nil {
				return 0, err
			}
			argNargs = AllSentinel
		} else {
			r, err := fs.reserve(1)
			if err != nil {
				return 0, err
			}
			if err := compileExprInto(fs, last, r); err != nil {
				return 0, err
			}
			argNargs = nargs
		}
	}
	if ex.Method != "" && argNargs != AllSentinel {
		argNargs = nargs
	}

	n := AllSentinel
	if nret >= 0 {
		n = nret
	}
	fs.emit(ABCInstruction(OpCall, fnReg, uint8(argNargs), uint8(n)))

	if nret > 0 && fnReg != dst {
		for i := 0; i < nret; i++ {
			fs.emit(ABCInstruction(OpMove, dst+uint8(i), fnReg+uint8(i), 0))
		}
	}

	finalTop := base
	if dst >= base && nret > 0 {
		finalTop = dst + uint8(nret)
	}
	fs.freeTo(finalTop)
	if finalTop > fs.proto.FrameSize {
		fs.proto.FrameSize = finalTop
	}
	return dst, nil
}
