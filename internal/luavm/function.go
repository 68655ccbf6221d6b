package luavm

import "lua53vm.dev/lua/internal/luacode"

// Function is a Lua closure: a reference to a compiled prototype. Per
// spec.md §9's open question, this VM only supports the "globals, no
// upvalues" resolution: a nested function body may read/write globals
// and its own locals/parameters, but not capture an enclosing
// function's locals.
type Function struct {
	Proto *luacode.Prototype
}

func (*Function) valueType() Type { return TypeFunction }

// GoFunction is a native function installed in the global environment
// (the base library). It receives already-evaluated arguments and
// returns result values or a *RuntimeError.
type GoFunction struct {
	Name string
	Fn   func(vm *VM, args []Value) ([]Value, error)
}

func (*GoFunction) valueType() Type { return TypeFunction }

// importConstant converts a compile-time constant to its runtime Value.
func importConstant(v luacode.Value) Value {
	if v.IsNil() {
		return nil
	}
	if b, ok := v.IsBool(); ok {
		return booleanValue(b)
	}
	if i, ok := v.IsInteger(); ok {
		return integerValue(i)
	}
	if f, ok := v.IsFloat(); ok {
		return floatValue(f)
	}
	s, _ := v.IsString()
	return stringValue(s)
}
