package luacode

import (
	"strings"
	"testing"

	"lua53vm.dev/lua/internal/luaast"
)

func mustCompile(tb testing.TB, source string) *Prototype {
	tb.Helper()
	chunk, err := luaast.Parse(tb.Name(), strings.NewReader(source))
	if err != nil {
		tb.Fatalf("parse(%q): %v", source, err)
	}
	proto, err := Compile(chunk)
	if err != nil {
		tb.Fatalf("compile(%q): %v", source, err)
	}
	return proto
}

// A representative sample of programs exercising most of the compiler's
// lowering paths (arithmetic, control flow, calls, tables, closures),
// each checked for the register-safety invariant §8 requires of every
// emitted prototype.
var registerSafetySamples = []string{
	`return 1 + 2 * 3`,
	`local a, b = 1, 2; return a + b`,
	`function f(a, b) return a + b end return f(1, 2)`,
	`local t = {} for i = 1, 10 do t[i] = i * i end`,
	`local function fact(n) if n <= 1 then return 1 end return n * fact(n - 1) end return fact(5)`,
	`for k, v in pairs({1, 2, 3}) do end`,
	`local x = 1 while x < 10 do x = x + 1 end`,
	`function vargs(...) return 1, ... end`,
	`local a = "x" .. "y" .. "z"`,
	`goto done ::done::`,
	`function two() return 1, 2 end local t = {0, two()}`,
}

func TestCompilerRegisterSafety(t *testing.T) {
	for _, source := range registerSafetySamples {
		t.Run(source, func(t *testing.T) {
			proto := mustCompile(t, source)
			if err := proto.CheckRegisterSafety(); err != nil {
				t.Errorf("CheckRegisterSafety() = %v", err)
			}
		})
	}
}

func TestBuildIDIsSetOnRootAndNotOnNestedPrototypes(t *testing.T) {
	proto := mustCompile(t, `function f() end`)
	if proto.BuildID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("root Prototype.BuildID is zero; want a random UUID")
	}
	if len(proto.Functions) != 1 {
		t.Fatalf("got %d nested functions; want 1", len(proto.Functions))
	}
	if proto.Functions[0].BuildID.String() != "00000000-0000-0000-0000-000000000000" {
		t.Error("nested Prototype.BuildID is non-zero; want zero value")
	}
}

func TestBreakOutsideLoopIsACompileError(t *testing.T) {
	chunk, err := luaast.Parse(t.Name(), strings.NewReader(`break`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = Compile(chunk)
	var cerr *CompileError
	if err == nil {
		t.Fatal("Compile succeeded; want a CompileError")
	}
	if !isCompileError(err, &cerr) {
		t.Fatalf("error type = %T; want *CompileError", err)
	}
	if cerr.Kind != BreakOutsideLoop {
		t.Errorf("Kind = %v; want %v", cerr.Kind, BreakOutsideLoop)
	}
}

func TestDuplicateLabelInSameBlockIsACompileError(t *testing.T) {
	chunk, err := luaast.Parse(t.Name(), strings.NewReader(`::top:: ::top::`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = Compile(chunk)
	var cerr *CompileError
	if !isCompileError(err, &cerr) {
		t.Fatalf("error type = %T; want *CompileError", err)
	}
	if cerr.Kind != DuplicateLabel {
		t.Errorf("Kind = %v; want %v", cerr.Kind, DuplicateLabel)
	}
}

func TestZeroForStepIsACompileError(t *testing.T) {
	chunk, err := luaast.Parse(t.Name(), strings.NewReader(`for i = 1, 10, 0 do end`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = Compile(chunk)
	var cerr *CompileError
	if !isCompileError(err, &cerr) {
		t.Fatalf("error type = %T; want *CompileError", err)
	}
	if cerr.Kind != ZeroForStep {
		t.Errorf("Kind = %v; want %v", cerr.Kind, ZeroForStep)
	}
}

func isCompileError(err error, target **CompileError) bool {
	ce, ok := err.(*CompileError)
	if ok {
		*target = ce
	}
	return ok
}
