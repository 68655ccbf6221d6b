package luaast

import (
	"fmt"
	"io"
	"strings"

	"lua53vm.dev/lua/internal/lualex"
)

// ErrorKind identifies the class of syntax failure in a ParseError.
type ErrorKind string

// Parse error kinds.
const (
	UnexpectedToken ErrorKind = "unexpected token"
	MismatchedPair  ErrorKind = "mismatched pair"
	BadNumeral      ErrorKind = "bad numeral"
	TooManyLocals   ErrorKind = "too many locals"
)

// ParseError reports a grammar violation at a source position.
type ParseError struct {
	Position lualex.Position
	Kind     ErrorKind
	Detail   string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v: %s", e.Position, e.Kind)
	}
	return fmt.Sprintf("%v: %s: %s", e.Position, e.Kind, e.Detail)
}

// depthLimit bounds recursive-descent recursion so that pathological
// input (deeply nested parentheses, etc.) fails cleanly instead of
// overflowing the Go call stack.
const depthLimit = 200

// Parse reads Lua source from r and returns the parsed chunk.
func Parse(name string, r io.Reader) (*Chunk, error) {
	br, ok := r.(io.ByteScanner)
	if !ok {
		br = &byteScannerReader{r: r}
	}
	p := &parser{ls: lualex.NewScanner(br)}
	p.advance()
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if !p.atEOF() {
		return nil, p.errorf(UnexpectedToken, "expected <eof>, found %v", p.curr)
	}
	if p.err != nil && p.err != io.EOF {
		return nil, p.err
	}
	return &Chunk{Body: body, Name: name}, nil
}

type parser struct {
	ls   *lualex.Scanner
	curr lualex.Token
	next lualex.Token
	haveNext bool
	err  error
	depth int
}

func (p *parser) atEOF() bool {
	return p.curr.Kind == lualex.ErrorToken
}

func (p *parser) advance() {
	if p.haveNext {
		p.curr = p.next
		p.haveNext = false
		return
	}
	if p.err == nil {
		p.curr, p.err = p.ls.Scan()
	} else {
		p.curr = lualex.Token{Kind: lualex.ErrorToken}
	}
}

func (p *parser) peek() lualex.Token {
	if !p.haveNext {
		if p.err == nil {
			p.next, p.err = p.ls.Scan()
		} else {
			p.next = lualex.Token{Kind: lualex.ErrorToken}
		}
		p.haveNext = true
	}
	return p.next
}

func (p *parser) errorf(kind ErrorKind, format string, args ...any) error {
	if p.err != nil && p.err != io.EOF {
		if _, ok := p.err.(*lualex.LexError); ok {
			return p.err
		}
	}
	return &ParseError{Position: p.curr.Position, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kind lualex.TokenKind) (lualex.Token, error) {
	if p.curr.Kind != kind {
		return lualex.Token{}, p.errorf(UnexpectedToken, "expected %v, found %v", kind, p.curr)
	}
	tok := p.curr
	p.advance()
	return tok, nil
}

func (p *parser) checkMatch(open lualex.TokenKind, close lualex.TokenKind, openPos lualex.Position) error {
	if p.curr.Kind == close {
		p.advance()
		return nil
	}
	if openPos.Line == p.curr.Position.Line {
		return p.errorf(MismatchedPair, "expected %v, found %v", close, p.curr)
	}
	return p.errorf(MismatchedPair, "expected %v (to close %v at line %d), found %v",
		close, open, openPos.Line, p.curr)
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > depthLimit {
		return p.errorf(UnexpectedToken, "too deeply nested")
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

// --- Blocks and statements ---

var blockFollow = map[lualex.TokenKind]bool{
	lualex.ErrorToken:  true,
	lualex.EndToken:    true,
	lualex.ElseToken:   true,
	lualex.ElseifToken: true,
	lualex.UntilToken:  true,
}

func (p *parser) block() (Block, error) {
	if err := p.enter(); err != nil {
		return Block{}, err
	}
	defer p.leave()

	var b Block
	for !blockFollow[p.curr.Kind] {
		if p.curr.Kind == lualex.ReturnToken {
			stmt, err := p.returnStatement()
			if err != nil {
				return Block{}, err
			}
			b.Statements = append(b.Statements, stmt)
			break
		}
		stmt, err := p.statement()
		if err != nil {
			return Block{}, err
		}
		if stmt != nil {
			b.Statements = append(b.Statements, stmt)
		}
	}
	return b, nil
}

func (p *parser) statement() (Statement, error) {
	pos := p.curr.Position
	switch p.curr.Kind {
	case lualex.SemiToken:
		p.advance()
		return nil, nil
	case lualex.IfToken:
		return p.ifStatement()
	case lualex.WhileToken:
		return p.whileStatement()
	case lualex.DoToken:
		p.advance()
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		if err := p.checkMatch(lualex.DoToken, lualex.EndToken, pos); err != nil {
			return nil, err
		}
		return &DoStmt{Body: body, Position: pos}, nil
	case lualex.ForToken:
		return p.forStatement()
	case lualex.RepeatToken:
		return p.repeatStatement()
	case lualex.FunctionToken:
		return p.functionStatement()
	case lualex.LocalToken:
		p.advance()
		if p.curr.Kind == lualex.FunctionToken {
			return p.localFunctionStatement(pos)
		}
		return p.localStatement(pos)
	case lualex.LabelToken:
		return p.labelStatement()
	case lualex.BreakToken:
		p.advance()
		return &BreakStmt{Position: pos}, nil
	case lualex.GotoToken:
		p.advance()
		name, err := p.expect(lualex.IdentifierToken)
		if err != nil {
			return nil, err
		}
		return &GotoStmt{Name: name.Value, Position: pos}, nil
	default:
		return p.exprStatement()
	}
}

func (p *parser) ifStatement() (Statement, error) {
	pos := p.curr.Position
	stmt := &IfStmt{Position: pos}
	for {
		p.advance() // consume 'if' or 'elseif'
		cond, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lualex.ThenToken); err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		stmt.Clauses = append(stmt.Clauses, IfClause{Cond: cond, Body: body})
		if p.curr.Kind != lualex.ElseifToken {
			break
		}
	}
	if p.curr.Kind == lualex.ElseToken {
		p.advance()
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		stmt.Else = body
		stmt.HasElse = true
	}
	if err := p.checkMatch(lualex.IfToken, lualex.EndToken, pos); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) whileStatement() (Statement, error) {
	pos := p.curr.Position
	p.advance()
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lualex.DoToken); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if err := p.checkMatch(lualex.WhileToken, lualex.EndToken, pos); err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body, Position: pos}, nil
}

func (p *parser) repeatStatement() (Statement, error) {
	pos := p.curr.Position
	p.advance()
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if err := p.checkMatch(lualex.RepeatToken, lualex.UntilToken, pos); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &RepeatStmt{Body: body, Cond: cond, Position: pos}, nil
}

func (p *parser) forStatement() (Statement, error) {
	pos := p.curr.Position
	p.advance()
	firstName, err := p.expect(lualex.IdentifierToken)
	if err != nil {
		return nil, err
	}
	switch p.curr.Kind {
	case lualex.AssignToken:
		return p.numericForStatement(pos, firstName.Value)
	case lualex.CommaToken, lualex.InToken:
		return p.genericForStatement(pos, firstName.Value)
	default:
		return nil, p.errorf(UnexpectedToken, "expected '=' or 'in', found %v", p.curr)
	}
}

func (p *parser) numericForStatement(pos lualex.Position, name string) (Statement, error) {
	p.advance() // consume '='
	start, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lualex.CommaToken); err != nil {
		return nil, err
	}
	stop, err := p.expression()
	if err != nil {
		return nil, err
	}
	var step Expression
	if p.curr.Kind == lualex.CommaToken {
		p.advance()
		step, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lualex.DoToken); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if err := p.checkMatch(lualex.ForToken, lualex.EndToken, pos); err != nil {
		return nil, err
	}
	return &NumericForStmt{Name: name, Start: start, Stop: stop, Step: step, Body: body, Position: pos}, nil
}

func (p *parser) genericForStatement(pos lualex.Position, firstName string) (Statement, error) {
	names := []string{firstName}
	for p.curr.Kind == lualex.CommaToken {
		p.advance()
		n, err := p.expect(lualex.IdentifierToken)
		if err != nil {
			return nil, err
		}
		names = append(names, n.Value)
	}
	if _, err := p.expect(lualex.InToken); err != nil {
		return nil, err
	}
	exprs, err := p.expressionList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lualex.DoToken); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if err := p.checkMatch(lualex.ForToken, lualex.EndToken, pos); err != nil {
		return nil, err
	}
	return &GenericForStmt{Names: names, Exprs: exprs, Body: body, Position: pos}, nil
}

func (p *parser) functionStatement() (Statement, error) {
	pos := p.curr.Position
	p.advance()
	nameTok, err := p.expect(lualex.IdentifierToken)
	if err != nil {
		return nil, err
	}
	var target Expression = &NameExpr{Name: nameTok.Value, Position: nameTok.Position}
	for p.curr.Kind == lualex.DotToken {
		p.advance()
		field, err := p.expect(lualex.IdentifierToken)
		if err != nil {
			return nil, err
		}
		target = &IndexExpr{
			Obj:      target,
			Key:      &StringExpr{Value: field.Value, Position: field.Position},
			Position: field.Position,
		}
	}
	isMethod := false
	if p.curr.Kind == lualex.ColonToken {
		p.advance()
		field, err := p.expect(lualex.IdentifierToken)
		if err != nil {
			return nil, err
		}
		target = &IndexExpr{
			Obj:      target,
			Key:      &StringExpr{Value: field.Value, Position: field.Position},
			Position: field.Position,
		}
		isMethod = true
	}
	body, err := p.functionBody(isMethod, pos)
	if err != nil {
		return nil, err
	}
	return &FunctionStmt{Target: target, IsMethod: isMethod, Body: body, Position: pos}, nil
}

func (p *parser) localFunctionStatement(pos lualex.Position) (Statement, error) {
	p.advance() // consume 'function'
	nameTok, err := p.expect(lualex.IdentifierToken)
	if err != nil {
		return nil, err
	}
	body, err := p.functionBody(false, pos)
	if err != nil {
		return nil, err
	}
	return &LocalFunctionStmt{Name: nameTok.Value, Body: body, Position: pos}, nil
}

func (p *parser) localStatement(pos lualex.Position) (Statement, error) {
	var names []string
	for {
		n, err := p.expect(lualex.IdentifierToken)
		if err != nil {
			return nil, err
		}
		names = append(names, n.Value)
		// Lua 5.4 attributes ("<const>"/"<close>") are accepted and
		// ignored here; 5.3 has no such syntax, so this is simply
		// never triggered, kept for forward compatibility with source
		// written against newer Lua.
		if p.curr.Kind == lualex.LessToken {
			p.advance()
			if _, err := p.expect(lualex.IdentifierToken); err != nil {
				return nil, err
			}
			if _, err := p.expect(lualex.GreaterToken); err != nil {
				return nil, err
			}
		}
		if p.curr.Kind != lualex.CommaToken {
			break
		}
		p.advance()
	}
	var exprs []Expression
	if p.curr.Kind == lualex.AssignToken {
		p.advance()
		var err error
		exprs, err = p.expressionList()
		if err != nil {
			return nil, err
		}
	}
	return &LocalStmt{Names: names, Exprs: exprs, Position: pos}, nil
}

func (p *parser) labelStatement() (Statement, error) {
	pos := p.curr.Position
	p.advance()
	name, err := p.expect(lualex.IdentifierToken)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lualex.LabelToken); err != nil {
		return nil, err
	}
	return &LabelStmt{Name: name.Value, Position: pos}, nil
}

func (p *parser) returnStatement() (Statement, error) {
	pos := p.curr.Position
	p.advance()
	var exprs []Expression
	if !blockFollow[p.curr.Kind] && p.curr.Kind != lualex.SemiToken {
		var err error
		exprs, err = p.expressionList()
		if err != nil {
			return nil, err
		}
	}
	if p.curr.Kind == lualex.SemiToken {
		p.advance()
	}
	return &ReturnStmt{Exprs: exprs, Position: pos}, nil
}

func (p *parser) exprStatement() (Statement, error) {
	pos := p.curr.Position
	first, err := p.suffixedExpr()
	if err != nil {
		return nil, err
	}
	if p.curr.Kind != lualex.AssignToken && p.curr.Kind != lualex.CommaToken {
		call, ok := first.(*CallExpr)
		if !ok {
			return nil, p.errorf(UnexpectedToken, "syntax error near %v", p.curr)
		}
		return &CallStmt{Call: call, Position: pos}, nil
	}
	lhs := []Expression{first}
	for p.curr.Kind == lualex.CommaToken {
		p.advance()
		e, err := p.suffixedExpr()
		if err != nil {
			return nil, err
		}
		lhs = append(lhs, e)
	}
	for _, e := range lhs {
		if !isAssignable(e) {
			return nil, p.errorf(UnexpectedToken, "cannot assign to this expression")
		}
	}
	if _, err := p.expect(lualex.AssignToken); err != nil {
		return nil, err
	}
	rhs, err := p.expressionList()
	if err != nil {
		return nil, err
	}
	return &AssignStmt{Lhs: lhs, Rhs: rhs, Position: pos}, nil
}

func isAssignable(e Expression) bool {
	switch e.(type) {
	case *NameExpr, *IndexExpr:
		return true
	default:
		return false
	}
}

// --- Function bodies ---

func (p *parser) functionBody(isMethod bool, pos lualex.Position) (*FunctionBody, error) {
	if _, err := p.expect(lualex.LParenToken); err != nil {
		return nil, err
	}
	fb := &FunctionBody{Position: pos}
	if isMethod {
		fb.Params = append(fb.Params, "self")
	}
	if p.curr.Kind != lualex.RParenToken {
		for {
			switch p.curr.Kind {
			case lualex.IdentifierToken:
				fb.Params = append(fb.Params, p.curr.Value)
				p.advance()
			case lualex.VarargToken:
				fb.IsVararg = true
				p.advance()
			default:
				return nil, p.errorf(UnexpectedToken, "expected parameter name, found %v", p.curr)
			}
			if fb.IsVararg || p.curr.Kind != lualex.CommaToken {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(lualex.RParenToken); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if err := p.checkMatch(lualex.FunctionToken, lualex.EndToken, pos); err != nil {
		return nil, err
	}
	fb.Body = body
	return fb, nil
}

// --- Expressions ---

func (p *parser) expressionList() ([]Expression, error) {
	first, err := p.expression()
	if err != nil {
		return nil, err
	}
	exprs := []Expression{first}
	for p.curr.Kind == lualex.CommaToken {
		p.advance()
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

// operatorPrecedence gives the left/right binding power of each binary
// operator token. Right < left encodes right-associativity (".." and "^").
var operatorPrecedence = map[lualex.TokenKind][2]int{
	lualex.OrToken:           {1, 1},
	lualex.AndToken:          {2, 2},
	lualex.LessToken:         {3, 3},
	lualex.GreaterToken:      {3, 3},
	lualex.LessEqualToken:    {3, 3},
	lualex.GreaterEqualToken: {3, 3},
	lualex.NotEqualToken:     {3, 3},
	lualex.EqualToken:        {3, 3},
	lualex.BitOrToken:        {4, 4},
	lualex.BitXorToken:       {5, 5},
	lualex.BitAndToken:       {6, 6},
	lualex.LShiftToken:       {7, 7},
	lualex.RShiftToken:       {7, 7},
	lualex.ConcatToken:       {9, 8},
	lualex.AddToken:          {10, 10},
	lualex.SubToken:          {10, 10},
	lualex.MulToken:          {11, 11},
	lualex.DivToken:          {11, 11},
	lualex.IntDivToken:       {11, 11},
	lualex.ModToken:          {11, 11},
	lualex.PowToken:          {14, 13},
}

const unaryPrecedence = 12

func isUnaryOp(k lualex.TokenKind) bool {
	switch k {
	case lualex.NotToken, lualex.SubToken, lualex.LenToken, lualex.BitXorToken:
		return true
	default:
		return false
	}
}

// expression parses a full expression (precedence 0).
func (p *parser) expression() (Expression, error) {
	return p.subExpression(0)
}

// subExpression implements operator-precedence climbing, matching the
// grammar's 12-level exp0..exp11 encoding: unary operators bind tighter
// than every binary operator except '^', and '..'/'^' are right
// associative.
func (p *parser) subExpression(limit int) (Expression, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	var left Expression
	if isUnaryOp(p.curr.Kind) {
		op := p.curr.Kind
		pos := p.curr.Position
		p.advance()
		operand, err := p.subExpression(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		left = &UnaryExpr{Op: op, Operand: operand, Position: pos}
	} else {
		var err error
		left, err = p.simpleExpr()
		if err != nil {
			return nil, err
		}
	}

	for {
		prec, ok := operatorPrecedence[p.curr.Kind]
		if !ok || prec[0] <= limit {
			break
		}
		op := p.curr.Kind
		pos := p.curr.Position
		p.advance()
		right, err := p.subExpression(prec[1])
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, Position: pos}
	}
	return left, nil
}

func (p *parser) simpleExpr() (Expression, error) {
	pos := p.curr.Position
	switch p.curr.Kind {
	case lualex.NumeralToken:
		n, err := parseNumeral(p.curr.Value, pos)
		if err != nil {
			return nil, err
		}
		p.advance()
		return n, nil
	case lualex.StringToken:
		s := &StringExpr{Value: p.curr.Value, Position: pos}
		p.advance()
		return s, nil
	case lualex.NilToken:
		p.advance()
		return &NilExpr{Position: pos}, nil
	case lualex.TrueToken:
		p.advance()
		return &TrueExpr{Position: pos}, nil
	case lualex.FalseToken:
		p.advance()
		return &FalseExpr{Position: pos}, nil
	case lualex.VarargToken:
		p.advance()
		return &VarargExpr{Position: pos}, nil
	case lualex.LBraceToken:
		return p.tableConstructor()
	case lualex.FunctionToken:
		p.advance()
		body, err := p.functionBody(false, pos)
		if err != nil {
			return nil, err
		}
		return &FunctionExpr{Body: body, Position: pos}, nil
	default:
		return p.suffixedExpr()
	}
}

func parseNumeral(text string, pos lualex.Position) (Expression, error) {
	if !strings.ContainsAny(text, ".eEpP") || strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		if i, err := lualex.ParseInt(text); err == nil {
			return &NumberExpr{IsInt: true, Int: i, Position: pos}, nil
		}
	}
	f, err := lualex.ParseNumber(text)
	if err != nil {
		return nil, &ParseError{Position: pos, Kind: BadNumeral, Detail: text}
	}
	return &NumberExpr{Float: f, Position: pos}, nil
}

// primaryExpr parses a NAME or a parenthesized expression, the roots
// from which suffixedExpr builds index/call chains. A parenthesized
// expression is truncated to exactly one value, expressed here by
// wrapping it so that IsMultiValue never reports true for it even if
// the inner expression was a call or "...".
func (p *parser) primaryExpr() (Expression, error) {
	pos := p.curr.Position
	switch p.curr.Kind {
	case lualex.IdentifierToken:
		name := p.curr.Value
		p.advance()
		return &NameExpr{Name: name, Position: pos}, nil
	case lualex.LParenToken:
		p.advance()
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.checkMatch(lualex.LParenToken, lualex.RParenToken, pos); err != nil {
			return nil, err
		}
		return &parenExpr{Expression: e, Position: pos}, nil
	default:
		return nil, p.errorf(UnexpectedToken, "unexpected symbol near %v", p.curr)
	}
}

// parenExpr wraps a parenthesized expression so truncation to a single
// value is visible structurally (IsMultiValue always returns false for it).
type parenExpr struct {
	Expression
	Position lualex.Position
}

func (e *parenExpr) Pos() lualex.Position { return e.Position }

// Unwrap returns the parenthesized expression, letting callers outside
// this package see through the wrapper when they need the underlying
// expression (the compiler unwraps it to compile the inner expression).
func (e *parenExpr) Unwrap() Expression { return e.Expression }

func (p *parser) suffixedExpr() (Expression, error) {
	e, err := p.primaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		pos := p.curr.Position
		switch p.curr.Kind {
		case lualex.DotToken:
			p.advance()
			field, err := p.expect(lualex.IdentifierToken)
			if err != nil {
				return nil, err
			}
			e = &IndexExpr{Obj: e, Key: &StringExpr{Value: field.Value, Position: field.Position}, Position: pos}
		case lualex.LBracketToken:
			p.advance()
			key, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err := p.checkMatch(lualex.LBracketToken, lualex.RBracketToken, pos); err != nil {
				return nil, err
			}
			e = &IndexExpr{Obj: e, Key: key, Position: pos}
		case lualex.ColonToken:
			p.advance()
			method, err := p.expect(lualex.IdentifierToken)
			if err != nil {
				return nil, err
			}
			args, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			e = &CallExpr{Fn: e, Method: method.Value, Args: args, Position: pos}
		case lualex.LParenToken, lualex.StringToken, lualex.LBraceToken:
			args, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			e = &CallExpr{Fn: e, Args: args, Position: pos}
		default:
			return e, nil
		}
	}
}

func (p *parser) callArgs() ([]Expression, error) {
	switch p.curr.Kind {
	case lualex.StringToken:
		s := &StringExpr{Value: p.curr.Value, Position: p.curr.Position}
		p.advance()
		return []Expression{s}, nil
	case lualex.LBraceToken:
		t, err := p.tableConstructor()
		if err != nil {
			return nil, err
		}
		return []Expression{t}, nil
	case lualex.LParenToken:
		pos := p.curr.Position
		p.advance()
		if p.curr.Kind == lualex.RParenToken {
			p.advance()
			return nil, nil
		}
		args, err := p.expressionList()
		if err != nil {
			return nil, err
		}
		if err := p.checkMatch(lualex.LParenToken, lualex.RParenToken, pos); err != nil {
			return nil, err
		}
		return args, nil
	default:
		return nil, p.errorf(UnexpectedToken, "function arguments expected, found %v", p.curr)
	}
}

func (p *parser) tableConstructor() (Expression, error) {
	pos := p.curr.Position
	p.advance() // consume '{'
	t := &TableExpr{Position: pos}
	for p.curr.Kind != lualex.RBraceToken {
		field, err := p.tableField()
		if err != nil {
			return nil, err
		}
		t.Fields = append(t.Fields, field)
		if p.curr.Kind != lualex.CommaToken && p.curr.Kind != lualex.SemiToken {
			break
		}
		p.advance()
	}
	if err := p.checkMatch(lualex.LBraceToken, lualex.RBraceToken, pos); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *parser) tableField() (TableField, error) {
	switch {
	case p.curr.Kind == lualex.LBracketToken:
		p.advance()
		key, err := p.expression()
		if err != nil {
			return TableField{}, err
		}
		if _, err := p.expect(lualex.RBracketToken); err != nil {
			return TableField{}, err
		}
		if _, err := p.expect(lualex.AssignToken); err != nil {
			return TableField{}, err
		}
		value, err := p.expression()
		if err != nil {
			return TableField{}, err
		}
		return TableField{Key: key, Value: value}, nil
	case p.curr.Kind == lualex.IdentifierToken && p.peek().Kind == lualex.AssignToken:
		key := &StringExpr{Value: p.curr.Value, Position: p.curr.Position}
		p.advance()
		p.advance()
		value, err := p.expression()
		if err != nil {
			return TableField{}, err
		}
		return TableField{Key: key, Value: value}, nil
	default:
		value, err := p.expression()
		if err != nil {
			return TableField{}, err
		}
		return TableField{Value: value}, nil
	}
}

// byteScannerReader adapts an io.Reader lacking UnreadByte to
// io.ByteScanner by buffering a single byte of pushback.
type byteScannerReader struct {
	r        io.Reader
	buf      [1]byte
	buffered bool
	unread   bool
}

func (b *byteScannerReader) ReadByte() (byte, error) {
	if b.unread {
		b.unread = false
		return b.buf[0], nil
	}
	n, err := b.r.Read(b.buf[:])
	if n == 0 {
		if err == nil {
			err = io.ErrNoProgress
		}
		return 0, err
	}
	return b.buf[0], nil
}

func (b *byteScannerReader) UnreadByte() error {
	if b.unread {
		return fmt.Errorf("lua: UnreadByte called twice")
	}
	b.unread = true
	return nil
}
