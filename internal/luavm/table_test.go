package luavm

import "testing"

func TestEmptyTable(t *testing.T) {
	tab := NewTable()
	if got, want := TypeOf(tab), TypeTable; got != want {
		t.Errorf("TypeOf(NewTable()) = %v; want %v", got, want)
	}
	if got := tab.Len(); got != 0 {
		t.Errorf("NewTable().Len() = %d; want 0", got)
	}
	if got := tab.Get(stringValue("bork")); got != nil {
		t.Errorf("Get(%q) = %#v; want nil", "bork", got)
	}
}

func TestArrayAppendAndBorder(t *testing.T) {
	tab := NewTable()
	tab.Set(integerValue(1), integerValue(42))
	tab.Set(integerValue(2), stringValue("abc"))
	tab.Set(integerValue(3), floatValue(3.14))

	if got, want := tab.Len(), int64(3); got != want {
		t.Errorf("Len() = %d; want %d", got, want)
	}
	if got, want := tab.Get(integerValue(1)), Value(integerValue(42)); got != want {
		t.Errorf("Get(1) = %#v; want %#v", got, want)
	}
	if got, want := tab.Get(integerValue(2)), Value(stringValue("abc")); got != want {
		t.Errorf("Get(2) = %#v; want %#v", got, want)
	}
}

func TestOutOfOrderArrayAssignmentMigratesFromHash(t *testing.T) {
	tab := NewTable()
	tab.Set(integerValue(2), stringValue("two"))
	tab.Set(integerValue(1), stringValue("one"))
	if got, want := tab.Len(), int64(2); got != want {
		t.Errorf("Len() = %d; want %d", got, want)
	}
	if got := tab.Get(integerValue(2)); got != Value(stringValue("two")) {
		t.Errorf("Get(2) = %#v; want %q", got, "two")
	}
}

func TestFloatKeyNormalizesToInteger(t *testing.T) {
	tab := NewTable()
	tab.Set(floatValue(1), stringValue("one"))
	if got := tab.Get(integerValue(1)); got != Value(stringValue("one")) {
		t.Errorf("Get(integerValue(1)) = %#v after Set(floatValue(1), ...); want %q", got, "one")
	}
}

func TestDeleteShrinksArrayTail(t *testing.T) {
	tab := NewTable()
	tab.Set(integerValue(1), integerValue(1))
	tab.Set(integerValue(2), integerValue(2))
	tab.Set(integerValue(2), nil)
	if got, want := tab.Len(), int64(1); got != want {
		t.Errorf("Len() after deleting trailing element = %d; want %d", got, want)
	}
}

func TestNextVisitsEveryEntryOnce(t *testing.T) {
	tab := NewTable()
	tab.Set(integerValue(1), stringValue("a"))
	tab.Set(integerValue(2), stringValue("b"))
	tab.Set(stringValue("x"), integerValue(99))

	seen := make(map[Value]Value)
	var k Value
	for {
		nk, nv, ok := tab.Next(k)
		if !ok {
			break
		}
		seen[nk] = nv
		k = nk
		if len(seen) > 10 {
			t.Fatal("Next did not terminate")
		}
	}
	if len(seen) != 3 {
		t.Fatalf("visited %d entries; want 3", len(seen))
	}
	if seen[integerValue(1)] != Value(stringValue("a")) {
		t.Errorf("seen[1] = %#v; want %q", seen[integerValue(1)], "a")
	}
	if seen[stringValue("x")] != Value(integerValue(99)) {
		t.Errorf("seen[\"x\"] = %#v; want 99", seen[stringValue("x")])
	}
}
