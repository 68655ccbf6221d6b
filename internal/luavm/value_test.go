package luavm

import (
	"testing"

	"lua53vm.dev/lua/internal/luacode"
)

func TestEqualCrossesIntegerFloatButNotOtherTypes(t *testing.T) {
	if !Equal(integerValue(3), floatValue(3.0)) {
		t.Error("Equal(3, 3.0) = false; want true")
	}
	if Equal(stringValue("3"), integerValue(3)) {
		t.Error("Equal(\"3\", 3) = true; want false")
	}
	if Equal(booleanValue(true), integerValue(1)) {
		t.Error("Equal(true, 1) = true; want false")
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{nil, false},
		{booleanValue(false), false},
		{booleanValue(true), true},
		{integerValue(0), true},
		{stringValue(""), true},
	}
	for _, c := range cases {
		if got := Truthy(c.v); got != c.want {
			t.Errorf("Truthy(%#v) = %v; want %v", c.v, got, c.want)
		}
	}
}

func TestLessNumericAndString(t *testing.T) {
	if less, ok := Less(integerValue(1), floatValue(2.5)); !ok || !less {
		t.Errorf("Less(1, 2.5) = %v, %v; want true, true", less, ok)
	}
	if less, ok := Less(stringValue("a"), stringValue("b")); !ok || !less {
		t.Errorf("Less(\"a\", \"b\") = %v, %v; want true, true", less, ok)
	}
	if _, ok := Less(stringValue("a"), integerValue(1)); ok {
		t.Error("Less(\"a\", 1) ok = true; want false (mixed types incomparable)")
	}
}

func TestArithmeticCommutativity(t *testing.T) {
	a, b := integerValue(17), integerValue(-4)
	ab, err := arith(luacode.OpAdd, a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := arith(luacode.OpAdd, b, a)
	if err != nil {
		t.Fatal(err)
	}
	if ab != ba {
		t.Errorf("a+b = %#v, b+a = %#v; want equal", ab, ba)
	}
}

func TestFloorDivisionAgreesWithMathFloorForAllSigns(t *testing.T) {
	cases := []struct{ a, b, want int64 }{
		{7, 2, 3},
		{-7, 2, -4},
		{7, -2, -4},
		{-7, -2, 3},
	}
	for _, c := range cases {
		if got := floorDivInt(c.a, c.b); got != c.want {
			t.Errorf("floorDivInt(%d, %d) = %d; want %d", c.a, c.b, got, c.want)
		}
	}
}
