package luavm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"lua53vm.dev/lua/internal/luaast"
	"lua53vm.dev/lua/internal/luacode"
)

// run compiles and executes source, returning the chunk's results, the
// VM's stdout, and any error.
func run(tb testing.TB, source string) ([]Value, string, error) {
	tb.Helper()
	chunk, err := luaast.Parse(tb.Name(), strings.NewReader(source))
	if err != nil {
		tb.Fatalf("parse: %v", err)
	}
	proto, err := luacode.Compile(chunk)
	if err != nil {
		tb.Fatalf("compile: %v", err)
	}
	var stdout bytes.Buffer
	vm := New(&stdout)
	results, runErr := vm.Run(proto, nil)
	return results, stdout.String(), runErr
}

func TestArithmeticAndRecursion(t *testing.T) {
	const source = `
function add(a, b) return a + b end
local x = add(2, 3)
assert(x == 5)
assert(add(5, 5) == 10)
`
	if _, _, err := run(t, source); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestVarargsForwarding(t *testing.T) {
	const source = `
function vargs(...) return 1, ... end
local a, b, c = vargs(2, 3, 4, 5)
assert(a == 1 and b == 2 and c == 3)
`
	if _, _, err := run(t, source); err != nil {
		t.Fatalf("run: %v", err)
	}
}

// TestVarargForwardingIgnoresStaleRegisters guards against a register-VM
// bug where a dynamic "all available" return/forward inferred its value
// count from the whole function's frame size instead of the live top at
// the point of the "..." — if an earlier statement had used more
// registers (here, print's ten arguments) than the trailing "..." has
// live values, the stale leftovers would leak into the result.
func TestVarargForwardingIgnoresStaleRegisters(t *testing.T) {
	const source = `
function f(...)
	local g = print
	g(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	return ...
end
return f(99)
`
	results, _, err := run(t, source)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 1 || results[0] != integerValue(99) {
		t.Fatalf("f(99) returned %v; want [99]", results)
	}
}

func TestIterativeFibonacci(t *testing.T) {
	const source = `
function fib(n)
	local a, b = 0, 1
	for i = 1, n do
		a, b = b, a + b
	end
	return a
end
return fib(60)
`
	results, _, err := run(t, source)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	const want = int64(1548008755920)
	got, ok := asInt(results[0])
	if !ok || got != want {
		t.Errorf("fib(60) = %v; want %d", results[0], want)
	}
}

func TestNumericSieve(t *testing.T) {
	const source = `
function nsieve(m)
	local isComposite = {}
	local count = 0
	for i = 2, m do
		if not isComposite[i] then
			count = count + 1
			local j = i + i
			while j <= m do
				isComposite[j] = true
				j = j + i
			end
		end
	end
	return count
end
return nsieve(200000)
`
	results, _, err := run(t, source)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	got, ok := asInt(results[0])
	if !ok || got != 17984 {
		t.Errorf("nsieve(200000) = %v; want 17984", results[0])
	}
}

func TestTableSumOfSquares(t *testing.T) {
	const source = `
local t = {}
for i = 1, 10 do t[i] = i * i end
local s = 0
for i = 1, #t do s = s + t[i] end
assert(s == 385)
`
	if _, _, err := run(t, source); err != nil {
		t.Fatalf("run: %v", err)
	}
}

// TestTableConstructorExpandsTrailingMultiValue covers spec.md §4.3's
// multi-value-adjustment rule as it applies to table constructors: a
// call (or "...") in the LAST field expands to every result it
// produces, unlike the same expression in any earlier field, which is
// truncated to one value.
func TestTableConstructorExpandsTrailingMultiValue(t *testing.T) {
	const source = `
function two() return 1, 2 end
local t = {0, two()}
assert(#t == 3 and t[1] == 0 and t[2] == 1 and t[3] == 2)

local u = {two(), 0}
assert(#u == 2 and u[1] == 1 and u[2] == 0)
`
	if _, _, err := run(t, source); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestAssertionFailureExitsWithMessage(t *testing.T) {
	const source = `assert(false, "boom")`
	_, _, err := run(t, source)
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("run error = %v (%T); want *RuntimeError", err, err)
	}
	if rerr.Kind != AssertionFailed {
		t.Errorf("Kind = %v; want %v", rerr.Kind, AssertionFailed)
	}
	if !strings.Contains(rerr.Error(), "boom") {
		t.Errorf("Error() = %q; want it to contain %q", rerr.Error(), "boom")
	}
}

func TestPrintWritesTabSeparatedValues(t *testing.T) {
	const source = `print(1, "two", true, nil)`
	_, stdout, err := run(t, source)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	const want = "1\ttwo\ttrue\tnil\n"
	if stdout != want {
		t.Errorf("stdout = %q; want %q", stdout, want)
	}
}

func TestPairsIteratesGenericFor(t *testing.T) {
	const source = `
local t = {10, 20, 30}
local sum = 0
for k, v in pairs(t) do
	sum = sum + v
end
assert(sum == 60)
`
	if _, _, err := run(t, source); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestIntegerFloorDivisionSignRules(t *testing.T) {
	const source = `
assert(7 // 2 == 3)
assert(-7 // 2 == -4)
assert(7 // -2 == -4)
assert(-7 // -2 == 3)
assert(7 % 2 == 1)
assert(-7 % 2 == 1)
assert(7 % -2 == -1)
`
	if _, _, err := run(t, source); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestShortCircuitValueSemantics(t *testing.T) {
	const source = `
assert((nil or 5) == 5)
assert((false or 5) == 5)
assert((3 or 5) == 3)
assert((nil and 5) == nil)
assert((3 and 5) == 5)
`
	if _, _, err := run(t, source); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestStringConcatAssociativity(t *testing.T) {
	const source = `
local a, b, c = "a", "b", "c"
assert((a .. b) .. c == a .. (b .. c))
assert(a .. b .. c == "abc")
`
	if _, _, err := run(t, source); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestDivideByZeroRaisesRuntimeError(t *testing.T) {
	const source = `return 1 // 0`
	_, _, err := run(t, source)
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("run error = %v (%T); want *RuntimeError", err, err)
	}
	if rerr.Kind != DivideByZero {
		t.Errorf("Kind = %v; want %v", rerr.Kind, DivideByZero)
	}
}

func TestCallingNilRaisesRuntimeError(t *testing.T) {
	const source = `local f = nil; f()`
	_, _, err := run(t, source)
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("run error = %v (%T); want *RuntimeError", err, err)
	}
	if rerr.Kind != NilCall {
		t.Errorf("Kind = %v; want %v", rerr.Kind, NilCall)
	}
}
