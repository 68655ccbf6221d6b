package luabc

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"lua53vm.dev/lua/internal/luaast"
	"lua53vm.dev/lua/internal/luacode"
)

func compileSource(tb testing.TB, src string) *luacode.Prototype {
	tb.Helper()
	chunk, err := luaast.Parse("test", strings.NewReader(src))
	if err != nil {
		tb.Fatalf("parse: %v", err)
	}
	proto, err := luacode.Compile(chunk)
	if err != nil {
		tb.Fatalf("compile: %v", err)
	}
	return proto
}

func TestRoundTrip(t *testing.T) {
	tests := []string{
		`return 1`,
		`local x = 1 + 2 * 3 return x`,
		`function add(a, b) return a + b end local x = add(2, 3) assert(x == 5)`,
		`local t = {} for i = 1, 10 do t[i] = i * i end`,
		`local function fib(n) if n < 2 then return n end return fib(n-1) + fib(n-2) end`,
		`local s = "hello" .. " " .. "world"`,
		`for k, v in pairs({}) do print(k, v) end`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			want := compileSource(t, src)
			data, err := Marshal(want)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			got, err := Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnmarshalBadMagic(t *testing.T) {
	_, err := Unmarshal([]byte("NOPE"))
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
	var loadErr *luacode.LoadError
	if !asLoadError(err, &loadErr) {
		t.Fatalf("error is not a *luacode.LoadError: %v", err)
	}
	if loadErr.Kind != luacode.BadMagic {
		t.Errorf("Kind = %q, want %q", loadErr.Kind, luacode.BadMagic)
	}
}

func TestUnmarshalTruncated(t *testing.T) {
	want := compileSource(t, `return 1`)
	data, err := Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	_, err = Unmarshal(data[:len(data)-1])
	if err == nil {
		t.Fatal("expected error for truncated data")
	}
}

func asLoadError(err error, target **luacode.LoadError) bool {
	le, ok := err.(*luacode.LoadError)
	if !ok {
		return false
	}
	*target = le
	return true
}

func FuzzRoundTrip(f *testing.F) {
	seeds := []string{
		`return 1`,
		`local x = -1.5 return x`,
		`local t = {1, 2, 3, ["k"] = "v"}`,
		`local a, b = 1, 2 while a < b do a = a + 1 end`,
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, src string) {
		chunk, err := luaast.Parse("fuzz", strings.NewReader(src))
		if err != nil {
			t.Skip()
		}
		proto, err := luacode.Compile(chunk)
		if err != nil {
			t.Skip()
		}
		data, err := Marshal(proto)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		got, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if diff := cmp.Diff(proto, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})
}
