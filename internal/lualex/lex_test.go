package lualex

import (
	"strings"
	"testing"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	s := NewScanner(strings.NewReader(src))
	var toks []Token
	for {
		tok, err := s.Scan()
		if err != nil {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "local x = foo")
	want := []TokenKind{LocalToken, IdentifierToken, AssignToken, IdentifierToken}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestScanNumerals(t *testing.T) {
	tests := []string{"0", "42", "3.14", "0x1A", "0x1p4", ".5", "1e10", "1E-10"}
	for _, src := range tests {
		toks := scanAll(t, src)
		if len(toks) != 1 || toks[0].Kind != NumeralToken {
			t.Errorf("scan(%q) = %v, want single NumeralToken", src, toks)
			continue
		}
		if toks[0].Value != src {
			t.Errorf("scan(%q) value = %q", src, toks[0].Value)
		}
	}
}

func TestScanShortString(t *testing.T) {
	toks := scanAll(t, `"hello\nworld"`)
	if len(toks) != 1 || toks[0].Kind != StringToken {
		t.Fatalf("got %v", toks)
	}
	if toks[0].Value != "hello\nworld" {
		t.Errorf("value = %q", toks[0].Value)
	}
}

func TestScanLongString(t *testing.T) {
	toks := scanAll(t, "[==[abc]]def]==]")
	if len(toks) != 1 || toks[0].Kind != StringToken {
		t.Fatalf("got %v", toks)
	}
	if toks[0].Value != "abc]]def" {
		t.Errorf("value = %q", toks[0].Value)
	}
}

func TestScanLongBracketNotClosed(t *testing.T) {
	// "[==" with no matching second '[' should yield LBracketToken then
	// re-synthesized '=' tokens.
	toks := scanAll(t, "[==")
	want := []TokenKind{LBracketToken, EqualToken}
	if len(toks) != len(want) {
		t.Fatalf("got %v, want kinds %v", toks, want)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestScanComments(t *testing.T) {
	toks := scanAll(t, "x -- line comment\ny --[[ block\ncomment ]] z")
	want := []TokenKind{IdentifierToken, IdentifierToken, IdentifierToken}
	if len(toks) != len(want) {
		t.Fatalf("got %v", toks)
	}
}

func TestScanOperators(t *testing.T) {
	toks := scanAll(t, "== ~= <= >= // .. ... :: <<")
	want := []TokenKind{EqualToken, NotEqualToken, LessEqualToken, GreaterEqualToken,
		IntDivToken, ConcatToken, VarargToken, LabelToken, LShiftToken}
	if len(toks) != len(want) {
		t.Fatalf("got %v", toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	s := NewScanner(strings.NewReader(`"abc`))
	_, err := s.Scan()
	if err == nil {
		t.Fatal("expected error")
	}
	var lexErr *LexError
	if !asLexError(err, &lexErr) {
		t.Fatalf("error = %v, want *LexError", err)
	}
	if lexErr.Kind != UnterminatedString {
		t.Errorf("kind = %v, want %v", lexErr.Kind, UnterminatedString)
	}
}

func asLexError(err error, target **LexError) bool {
	if le, ok := err.(*LexError); ok {
		*target = le
		return true
	}
	return false
}

func TestParseIntAndNumber(t *testing.T) {
	i, err := ParseInt("0x2A")
	if err != nil || i != 42 {
		t.Errorf("ParseInt(0x2A) = %d, %v", i, err)
	}
	f, err := ParseNumber("3.5")
	if err != nil || f != 3.5 {
		t.Errorf("ParseNumber(3.5) = %v, %v", f, err)
	}
}
