package luaast

import (
	"strings"
	"testing"
)

func mustParse(tb testing.TB, source string) *Chunk {
	tb.Helper()
	chunk, err := Parse(tb.Name(), strings.NewReader(source))
	if err != nil {
		tb.Fatalf("Parse(%q) error: %v", source, err)
	}
	return chunk
}

func TestParseLocalAssignment(t *testing.T) {
	chunk := mustParse(t, "local a, b = 1, 2")
	if len(chunk.Body.Statements) != 1 {
		t.Fatalf("got %d statements; want 1", len(chunk.Body.Statements))
	}
	local, ok := chunk.Body.Statements[0].(*LocalStmt)
	if !ok {
		t.Fatalf("statement type = %T; want *LocalStmt", chunk.Body.Statements[0])
	}
	if got, want := local.Names, []string{"a", "b"}; len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Names = %v; want %v", got, want)
	}
	if len(local.Exprs) != 2 {
		t.Fatalf("got %d initializers; want 2", len(local.Exprs))
	}
}

func TestParseNumericForDefaultsStepToOne(t *testing.T) {
	chunk := mustParse(t, "for i = 1, 10 do end")
	forStmt, ok := chunk.Body.Statements[0].(*NumericForStmt)
	if !ok {
		t.Fatalf("statement type = %T; want *NumericForStmt", chunk.Body.Statements[0])
	}
	if forStmt.Step != nil {
		t.Errorf("Step = %#v; want nil (caller defaults to 1)", forStmt.Step)
	}
}

func TestParseMethodCallDesugarsImplicitSelf(t *testing.T) {
	chunk := mustParse(t, "obj:name(1, 2)")
	call, ok := chunk.Body.Statements[0].(*CallStmt)
	if !ok {
		t.Fatalf("statement type = %T; want *CallStmt", chunk.Body.Statements[0])
	}
	if call.Call.Method != "name" {
		t.Errorf("Method = %q; want %q", call.Call.Method, "name")
	}
	if _, ok := call.Call.Fn.(*NameExpr); !ok {
		t.Errorf("Fn = %T; want *NameExpr (the receiver, passed as implicit first argument)", call.Call.Fn)
	}
	if len(call.Call.Args) != 2 {
		t.Errorf("got %d explicit args; want 2 (self is implicit, not counted here)", len(call.Call.Args))
	}
}

func TestParseBinaryOperatorPrecedence(t *testing.T) {
	// 1 + 2 * 3 should parse as 1 + (2 * 3): the outermost node is '+'.
	chunk := mustParse(t, "return 1 + 2 * 3")
	ret, ok := chunk.Body.Statements[0].(*ReturnStmt)
	if !ok {
		t.Fatalf("statement type = %T; want *ReturnStmt", chunk.Body.Statements[0])
	}
	bin, ok := ret.Exprs[0].(*BinaryExpr)
	if !ok {
		t.Fatalf("expr type = %T; want *BinaryExpr", ret.Exprs[0])
	}
	if _, ok := bin.Right.(*BinaryExpr); !ok {
		t.Errorf("Right = %T; want *BinaryExpr (2 * 3 binds tighter than +)", bin.Right)
	}
}

func TestParseLongAndOrChainIsLeftAssociative(t *testing.T) {
	chunk := mustParse(t, "return a and b and c")
	ret := chunk.Body.Statements[0].(*ReturnStmt)
	outer, ok := ret.Exprs[0].(*BinaryExpr)
	if !ok {
		t.Fatalf("expr type = %T; want *BinaryExpr", ret.Exprs[0])
	}
	if _, ok := outer.Left.(*BinaryExpr); !ok {
		t.Errorf("Left = %T; want *BinaryExpr (a and b grouped first)", outer.Left)
	}
	if _, ok := outer.Right.(*NameExpr); !ok {
		t.Errorf("Right = %T; want *NameExpr (c)", outer.Right)
	}
}

func TestParseRejectsBadNumeral(t *testing.T) {
	_, err := Parse(t.Name(), strings.NewReader("local x = 0xG"))
	if err == nil {
		t.Fatal("Parse succeeded; want an error for a malformed numeral")
	}
}

func TestParseParenthesesUnwrapToInnerExpression(t *testing.T) {
	chunk := mustParse(t, "return (1 + 2)")
	ret := chunk.Body.Statements[0].(*ReturnStmt)
	u, ok := ret.Exprs[0].(unwrapper)
	if !ok {
		t.Fatalf("expr type = %T; want something implementing Unwrap()", ret.Exprs[0])
	}
	if _, ok := u.Unwrap().(*BinaryExpr); !ok {
		t.Errorf("Unwrap() = %T; want *BinaryExpr", u.Unwrap())
	}
}

type unwrapper interface {
	Unwrap() Expression
}
