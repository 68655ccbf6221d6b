// Package luavm is the register-based Lua virtual machine: runtime
// values, tables, the call-frame dispatch loop, and the base library.
package luavm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type enumerates the runtime type tags a [Value] can carry.
type Type int

// Value types, per spec.md §3's "tagged union" data model.
const (
	TypeNil Type = iota
	TypeBoolean
	TypeNumber
	TypeString
	TypeTable
	TypeFunction
)

func (t Type) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeTable:
		return "table"
	case TypeFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Value is the internal representation of a runtime Lua value. The nil
// interface value represents Lua nil; the other variants are the
// concrete types below. This mirrors the teacher's value-interface
// approach (one small concrete Go type per Lua type) rather than a
// single tagged struct, so each variant's zero-allocation conversion
// (bool, int64, float64, string) stays a plain Go value.
type Value interface {
	valueType() Type
}

type booleanValue bool

func (booleanValue) valueType() Type { return TypeBoolean }

type integerValue int64

func (integerValue) valueType() Type { return TypeNumber }

type floatValue float64

func (floatValue) valueType() Type { return TypeNumber }

type stringValue string

func (stringValue) valueType() Type { return TypeString }

// TypeOf returns the runtime [Type] of v (TypeNil for a nil interface).
func TypeOf(v Value) Type {
	if v == nil {
		return TypeNil
	}
	return v.valueType()
}

// Truthy reports whether v is truthy: everything except nil and false,
// per spec.md's "Falsey" glossary entry.
func Truthy(v Value) bool {
	if v == nil {
		return false
	}
	b, ok := v.(booleanValue)
	return !ok || bool(b)
}

// Bool converts a Go bool to a Value.
func Bool(b bool) Value { return booleanValue(b) }

// Int converts a Go int64 to a Value.
func Int(i int64) Value { return integerValue(i) }

// Float converts a Go float64 to a Value.
func Float(f float64) Value { return floatValue(f) }

// Str converts a Go string to a Value.
func Str(s string) Value { return stringValue(s) }

// asFloat reports whether v holds a number, returning it widened to
// float64.
func asFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case integerValue:
		return float64(n), true
	case floatValue:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt(v Value) (int64, bool) {
	switch n := v.(type) {
	case integerValue:
		return int64(n), true
	case floatValue:
		if float64(int64(n)) == float64(n) {
			return int64(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// toNumber attempts to coerce v to a number, following string-to-number
// coercion rules (spec.md §4.3's "arithmetic on a string first attempts
// string-to-number coercion").
func toNumber(v Value) (Value, bool) {
	switch n := v.(type) {
	case integerValue, floatValue:
		return v, true
	case stringValue:
		return parseNumber(strings.TrimSpace(string(n)))
	default:
		return nil, false
	}
}

func parseNumber(s string) (Value, bool) {
	if s == "" {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return integerValue(i), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return floatValue(f), true
	}
	return nil, false
}

// ToString renders v the way Lua's tostring() and CONCAT's numeric
// coercion do: numbers in their shortest canonical decimal form,
// strings verbatim, booleans/nil as keywords, tables/functions as a
// "type: 0x..."-shaped reference (spec.md §4.3's CONCAT coercion plus
// the base library's tostring).
func ToString(v Value) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case booleanValue:
		if x {
			return "true"
		}
		return "false"
	case integerValue:
		return strconv.FormatInt(int64(x), 10)
	case floatValue:
		return formatFloat(float64(x))
	case stringValue:
		return string(x)
	case *Table:
		return fmt.Sprintf("table: %p", x)
	case *Function:
		return fmt.Sprintf("function: %p", x)
	case *GoFunction:
		return fmt.Sprintf("function: builtin: %s", x.Name)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', 14, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Equal implements Lua's "==": false across different types except
// Integer/Float, which compare numerically (spec.md §4.3).
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case booleanValue:
		y, ok := b.(booleanValue)
		return ok && x == y
	case stringValue:
		y, ok := b.(stringValue)
		return ok && x == y
	case integerValue, floatValue:
		fx, xok := asFloat(a)
		fy, yok := asFloat(b)
		return xok && yok && fx == fy
	case *Table:
		y, ok := b.(*Table)
		return ok && x == y
	case *Function:
		y, ok := b.(*Function)
		return ok && x == y
	case *GoFunction:
		y, ok := b.(*GoFunction)
		return ok && x == y
	default:
		return false
	}
}

// Less implements "<": numeric comparison (promoting to float when
// mixed) or byte-lexicographic string comparison. ok is false for any
// other combination, signaling a RuntimeError to the caller.
func Less(a, b Value) (result, ok bool) {
	if fa, aok := asFloat(a); aok {
		if fb, bok := asFloat(b); bok {
			return fa < fb, true
		}
		return false, false
	}
	if sa, aok := a.(stringValue); aok {
		if sb, bok := b.(stringValue); bok {
			return sa < sb, true
		}
	}
	return false, false
}

// LessEqual implements "<=" with the same domain as [Less].
func LessEqual(a, b Value) (result, ok bool) {
	if fa, aok := asFloat(a); aok {
		if fb, bok := asFloat(b); bok {
			return fa <= fb, true
		}
		return false, false
	}
	if sa, aok := a.(stringValue); aok {
		if sb, bok := b.(stringValue); bok {
			return sa <= sb, true
		}
	}
	return false, false
}
