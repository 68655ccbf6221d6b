package luavm

import (
	"math"

	"lua53vm.dev/lua/internal/luacode"
)

// arith implements the arithmetic and bitwise binary opcodes, following
// spec.md §4.3's coercion table: Integer op Integer stays Integer for
// + - * // % & | ~ << >>, while / and ^ always produce Float; operands
// that are strings first attempt string-to-number coercion.
func arith(op luacode.OpCode, a, b Value) (Value, error) {
	switch op {
	case luacode.OpBAnd, luacode.OpBOr, luacode.OpBXor, luacode.OpSHL, luacode.OpSHR:
		return bitwise(op, a, b)
	}

	na, aok := toNumber(a)
	nb, bok := toNumber(b)
	if !aok || !bok {
		bad := a
		if aok {
			bad = b
		}
		return nil, runtimeErrorf(TypeMismatch, "attempt to perform arithmetic on a %s value", TypeOf(bad))
	}

	if op == luacode.OpDiv || op == luacode.OpPow {
		fa, _ := asFloat(na)
		fb, _ := asFloat(nb)
		if op == luacode.OpDiv {
			return floatValue(fa / fb), nil
		}
		return floatValue(math.Pow(fa, fb)), nil
	}

	ia, aIsInt := na.(integerValue)
	ib, bIsInt := nb.(integerValue)
	if aIsInt && bIsInt {
		switch op {
		case luacode.OpAdd:
			return integerValue(int64(ia) + int64(ib)), nil
		case luacode.OpSub:
			return integerValue(int64(ia) - int64(ib)), nil
		case luacode.OpMul:
			return integerValue(int64(ia) * int64(ib)), nil
		case luacode.OpFDiv:
			if ib == 0 {
				return nil, &RuntimeError{Kind: DivideByZero}
			}
			return integerValue(floorDivInt(int64(ia), int64(ib))), nil
		case luacode.OpMod:
			if ib == 0 {
				return nil, &RuntimeError{Kind: DivideByZero}
			}
			return integerValue(modInt(int64(ia), int64(ib))), nil
		}
	}

	fa, _ := asFloat(na)
	fb, _ := asFloat(nb)
	switch op {
	case luacode.OpAdd:
		return floatValue(fa + fb), nil
	case luacode.OpSub:
		return floatValue(fa - fb), nil
	case luacode.OpMul:
		return floatValue(fa * fb), nil
	case luacode.OpFDiv:
		return floatValue(math.Floor(fa / fb)), nil
	case luacode.OpMod:
		return floatValue(modFloat(fa, fb)), nil
	default:
		return nil, runtimeErrorf(TypeMismatch, "unsupported arithmetic opcode %s", op)
	}
}

// floorDivInt implements Lua's integer floor division, which rounds
// toward negative infinity rather than truncating toward zero.
func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// modInt implements Lua's integer modulo: the result takes the sign of
// the divisor (a - floor(a/b)*b), not the sign of the dividend.
func modInt(a, b int64) int64 {
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

func modFloat(a, b float64) float64 {
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

func bitwise(op luacode.OpCode, a, b Value) (Value, error) {
	ia, aok := asBitwiseInt(a)
	ib, bok := asBitwiseInt(b)
	if !aok || !bok {
		bad := a
		if aok {
			bad = b
		}
		return nil, runtimeErrorf(TypeMismatch, "attempt to perform bitwise operation on a %s value", TypeOf(bad))
	}
	switch op {
	case luacode.OpBAnd:
		return integerValue(ia & ib), nil
	case luacode.OpBOr:
		return integerValue(ia | ib), nil
	case luacode.OpBXor:
		return integerValue(ia ^ ib), nil
	case luacode.OpSHL:
		return integerValue(shiftLeft(ia, ib)), nil
	case luacode.OpSHR:
		return integerValue(shiftLeft(ia, -ib)), nil
	default:
		return nil, runtimeErrorf(TypeMismatch, "unsupported bitwise opcode %s", op)
	}
}

// shiftLeft implements Lua's logical shift: negative counts shift the
// other way, and counts >= 64 in either direction produce zero.
func shiftLeft(a, n int64) int64 {
	if n <= -64 || n >= 64 {
		return 0
	}
	if n >= 0 {
		return int64(uint64(a) << uint(n))
	}
	return int64(uint64(a) >> uint(-n))
}

func asBitwiseInt(v Value) (int64, bool) {
	n, ok := toNumber(v)
	if !ok {
		return 0, false
	}
	return asInt(n)
}

// length implements the # operator: string byte length, or a table's
// border length (spec.md §3/§4.3).
func length(v Value) (Value, error) {
	switch x := v.(type) {
	case stringValue:
		return integerValue(len(x)), nil
	case *Table:
		return integerValue(x.Len()), nil
	default:
		return nil, runtimeErrorf(TypeMismatch, "attempt to get length of a %s value", TypeOf(v))
	}
}

// concat implements ".." with the number-to-string coercion spec.md
// §4.3 requires for CONCAT specifically (distinct from arithmetic
// coercion: only numbers and strings participate).
func concat(a, b Value) (Value, error) {
	sa, aok := concatOperand(a)
	sb, bok := concatOperand(b)
	if !aok {
		return nil, runtimeErrorf(TypeMismatch, "attempt to concatenate a %s value", TypeOf(a))
	}
	if !bok {
		return nil, runtimeErrorf(TypeMismatch, "attempt to concatenate a %s value", TypeOf(b))
	}
	return stringValue(sa + sb), nil
}

func concatOperand(v Value) (string, bool) {
	switch x := v.(type) {
	case stringValue:
		return string(x), true
	case integerValue, floatValue:
		return ToString(x), true
	default:
		return "", false
	}
}
