// Package luaast defines the abstract syntax tree produced by parsing Lua
// 5.3 source and the recursive-descent parser that builds it.
package luaast

import "lua53vm.dev/lua/internal/lualex"

// Node is implemented by every AST node.
type Node interface {
	Pos() lualex.Position
}

// Statement is implemented by every statement node.
type Statement interface {
	Node
	stmtNode()
}

// Expression is implemented by every expression node.
type Expression interface {
	Node
	exprNode()
}

// Block is a sequence of statements, such as a function body or the
// arms of an if/while/for.
type Block struct {
	Statements []Statement
}

// Chunk is the root of a parsed source file: an implicit top-level
// vararg function body.
type Chunk struct {
	Body Block
	Name string
}

// --- Statements ---

// AssignStmt is `lhs1, lhs2, ... = rhs1, rhs2, ...`.
type AssignStmt struct {
	Lhs      []Expression
	Rhs      []Expression
	Position lualex.Position
}

// LocalStmt is `local name1, name2, ... = expr1, expr2, ...`.
// Exprs may be shorter than Names (or empty) when initializers are omitted.
type LocalStmt struct {
	Names    []string
	Exprs    []Expression
	Position lualex.Position
}

// CallStmt is an expression statement consisting of a function or
// method call used for its side effects.
type CallStmt struct {
	Call     *CallExpr
	Position lualex.Position
}

// IfClause is one `if`/`elseif` arm.
type IfClause struct {
	Cond Expression
	Body Block
}

// IfStmt is an if/elseif-chain/else statement.
type IfStmt struct {
	Clauses  []IfClause
	Else     Block
	HasElse  bool
	Position lualex.Position
}

// WhileStmt is `while cond do body end`.
type WhileStmt struct {
	Cond     Expression
	Body     Block
	Position lualex.Position
}

// RepeatStmt is `repeat body until cond`.
// cond may reference locals declared in body.
type RepeatStmt struct {
	Body     Block
	Cond     Expression
	Position lualex.Position
}

// NumericForStmt is `for name = start, stop[, step] do body end`.
// Step is nil when omitted (defaults to 1 during lowering).
type NumericForStmt struct {
	Name     string
	Start    Expression
	Stop     Expression
	Step     Expression
	Body     Block
	Position lualex.Position
}

// GenericForStmt is `for name1, name2, ... in exprlist do body end`.
type GenericForStmt struct {
	Names    []string
	Exprs    []Expression
	Body     Block
	Position lualex.Position
}

// FunctionBody is the parameter list, vararg flag, and body shared by
// function statements, local function statements, and function
// expressions.
type FunctionBody struct {
	Params   []string
	IsVararg bool
	Body     Block
	Position lualex.Position
}

// FunctionStmt is `function name.field...[:method](...) ... end` or the
// plain `function name(...) ... end` form (`local function` is a
// LocalFunctionStmt).
// Target is a NameExpr or a chain of IndexExprs; when IsMethod is true,
// the body implicitly receives "self" as its first parameter.
type FunctionStmt struct {
	Target   Expression
	IsMethod bool
	Body     *FunctionBody
	Position lualex.Position
}

// LocalFunctionStmt is `local function name(...) ... end`.
// The local is declared before the body is compiled, so recursive calls
// to name resolve to the same local.
type LocalFunctionStmt struct {
	Name     string
	Body     *FunctionBody
	Position lualex.Position
}

// ReturnStmt is `return expr1, expr2, ...`. Exprs is nil for a bare return.
type ReturnStmt struct {
	Exprs    []Expression
	Position lualex.Position
}

// BreakStmt is `break`.
type BreakStmt struct {
	Position lualex.Position
}

// DoStmt is `do body end`.
type DoStmt struct {
	Body     Block
	Position lualex.Position
}

// LabelStmt is `::name::`.
type LabelStmt struct {
	Name     string
	Position lualex.Position
}

// GotoStmt is `goto name`.
type GotoStmt struct {
	Name     string
	Position lualex.Position
}

func (s *AssignStmt) Pos() lualex.Position        { return s.Position }
func (s *LocalStmt) Pos() lualex.Position         { return s.Position }
func (s *CallStmt) Pos() lualex.Position          { return s.Position }
func (s *IfStmt) Pos() lualex.Position             { return s.Position }
func (s *WhileStmt) Pos() lualex.Position          { return s.Position }
func (s *RepeatStmt) Pos() lualex.Position         { return s.Position }
func (s *NumericForStmt) Pos() lualex.Position     { return s.Position }
func (s *GenericForStmt) Pos() lualex.Position     { return s.Position }
func (s *FunctionStmt) Pos() lualex.Position       { return s.Position }
func (s *LocalFunctionStmt) Pos() lualex.Position  { return s.Position }
func (s *ReturnStmt) Pos() lualex.Position         { return s.Position }
func (s *BreakStmt) Pos() lualex.Position          { return s.Position }
func (s *DoStmt) Pos() lualex.Position             { return s.Position }
func (s *LabelStmt) Pos() lualex.Position          { return s.Position }
func (s *GotoStmt) Pos() lualex.Position           { return s.Position }

func (*AssignStmt) stmtNode()        {}
func (*LocalStmt) stmtNode()         {}
func (*CallStmt) stmtNode()          {}
func (*IfStmt) stmtNode()            {}
func (*WhileStmt) stmtNode()         {}
func (*RepeatStmt) stmtNode()        {}
func (*NumericForStmt) stmtNode()    {}
func (*GenericForStmt) stmtNode()    {}
func (*FunctionStmt) stmtNode()      {}
func (*LocalFunctionStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()        {}
func (*BreakStmt) stmtNode()         {}
func (*DoStmt) stmtNode()            {}
func (*LabelStmt) stmtNode()         {}
func (*GotoStmt) stmtNode()          {}

// --- Expressions ---

// NilExpr is the `nil` literal.
type NilExpr struct{ Position lualex.Position }

// TrueExpr is the `true` literal.
type TrueExpr struct{ Position lualex.Position }

// FalseExpr is the `false` literal.
type FalseExpr struct{ Position lualex.Position }

// VarargExpr is the `...` expression.
type VarargExpr struct{ Position lualex.Position }

// NumberExpr is a numeral literal, decoded at parse time.
type NumberExpr struct {
	IsInt    bool
	Int      int64
	Float    float64
	Position lualex.Position
}

// StringExpr is a short or long string literal.
type StringExpr struct {
	Value    string
	Position lualex.Position
}

// NameExpr is a bare identifier reference.
type NameExpr struct {
	Name     string
	Position lualex.Position
}

// IndexExpr is `obj.key` or `obj[key]`.
type IndexExpr struct {
	Obj      Expression
	Key      Expression
	Position lualex.Position
}

// CallExpr is `fn(args...)` or, when Method is non-empty, `fn:Method(args...)`.
type CallExpr struct {
	Fn       Expression
	Method   string
	Args     []Expression
	Position lualex.Position
}

// FunctionExpr is a `function(...) ... end` expression. The compiled
// body resolves names only against its own parameters and locals and
// the globals; it cannot capture an enclosing function's locals (there
// are no upvalues).
type FunctionExpr struct {
	Body     *FunctionBody
	Position lualex.Position
}

// BinaryExpr is a binary operator application.
// Op is one of lualex's operator token kinds
// (AddToken, SubToken, ..., AndToken, OrToken, ConcatToken, comparisons, ...).
type BinaryExpr struct {
	Op       lualex.TokenKind
	Left     Expression
	Right    Expression
	Position lualex.Position
}

// UnaryExpr is a unary operator application: `not`, `-`, `#`, or `~`.
type UnaryExpr struct {
	Op       lualex.TokenKind
	Operand  Expression
	Position lualex.Position
}

// TableField is one element of a table constructor.
// Key is nil for an array-part entry (implicit next integer index);
// otherwise it is the key expression (a StringExpr for `name = value`
// fields, or any expression for `[key] = value` fields).
type TableField struct {
	Key   Expression
	Value Expression
}

// TableExpr is a table constructor `{ ... }`.
type TableExpr struct {
	Fields   []TableField
	Position lualex.Position
}

func (e *NilExpr) Pos() lualex.Position      { return e.Position }
func (e *TrueExpr) Pos() lualex.Position     { return e.Position }
func (e *FalseExpr) Pos() lualex.Position    { return e.Position }
func (e *VarargExpr) Pos() lualex.Position   { return e.Position }
func (e *NumberExpr) Pos() lualex.Position   { return e.Position }
func (e *StringExpr) Pos() lualex.Position   { return e.Position }
func (e *NameExpr) Pos() lualex.Position     { return e.Position }
func (e *IndexExpr) Pos() lualex.Position    { return e.Position }
func (e *CallExpr) Pos() lualex.Position     { return e.Position }
func (e *FunctionExpr) Pos() lualex.Position { return e.Position }
func (e *BinaryExpr) Pos() lualex.Position   { return e.Position }
func (e *UnaryExpr) Pos() lualex.Position    { return e.Position }
func (e *TableExpr) Pos() lualex.Position    { return e.Position }

func (*NilExpr) exprNode()      {}
func (*TrueExpr) exprNode()     {}
func (*FalseExpr) exprNode()    {}
func (*VarargExpr) exprNode()   {}
func (*NumberExpr) exprNode()   {}
func (*StringExpr) exprNode()   {}
func (*NameExpr) exprNode()     {}
func (*IndexExpr) exprNode()    {}
func (*CallExpr) exprNode()     {}
func (*FunctionExpr) exprNode() {}
func (*BinaryExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*TableExpr) exprNode()    {}

// IsMultiValue reports whether e is a call or `...` expression, which
// expand to all of their results in a multi-value context (the last
// element of an assignment RHS, argument list, return list, or table
// constructor).
func IsMultiValue(e Expression) bool {
	switch e.(type) {
	case *CallExpr, *VarargExpr:
		return true
	default:
		return false
	}
}
