package luacli

import (
	"strings"
	"testing"

	"lua53vm.dev/lua/internal/lualex"
)

func TestDiagnosticFormatsLexError(t *testing.T) {
	err := &lualex.LexError{
		Position: lualex.Position{Line: 3, Column: 7},
		Kind:     lualex.UnterminatedString,
	}
	got := Diagnostic("script.lua", err)
	want := "error: unterminated string at script.lua:3:7"
	if got != want {
		t.Errorf("Diagnostic(...) = %q; want %q", got, want)
	}
}

func TestDiagnosticFallsBackForPositionlessErrors(t *testing.T) {
	got := Diagnostic("script.lua", errPlain("disk is full"))
	if !strings.HasPrefix(got, "error: ") || !strings.Contains(got, "disk is full") {
		t.Errorf("Diagnostic(...) = %q; want it to start with \"error: \" and mention the message", got)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
