package luavm

import "fmt"

// registerBaseLibrary installs the base library functions named in
// spec.md's function-library addition: print, assert, error, type,
// tostring, tonumber, pairs, ipairs, select, next. Grounded on the teacher's
// NewOpenBase/baseXxx functions, adapted from its stack-based State
// API to this VM's plain []Value GoFunction convention.
func registerBaseLibrary(vm *VM) {
	register := func(name string, fn func(vm *VM, args []Value) ([]Value, error)) {
		vm.Globals.Set(stringValue(name), &GoFunction{Name: name, Fn: fn})
	}

	register("print", basePrint)
	register("assert", baseAssert)
	register("error", baseError)
	register("type", baseType)
	register("tostring", baseToString)
	register("tonumber", baseToNumber)
	register("pairs", basePairs)
	register("ipairs", baseIPairs)
	register("select", baseSelect)
	register("next", baseNext)
}

func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func basePrint(vm *VM, args []Value) ([]Value, error) {
	for i, v := range args {
		if i > 0 {
			fmt.Fprint(vm.Stdout, "\t")
		}
		fmt.Fprint(vm.Stdout, ToString(v))
	}
	fmt.Fprintln(vm.Stdout)
	return nil, nil
}

// baseAssert raises an error carrying the message argument (or the
// literal string "assertion failed!" if none was given) when its first
// argument is falsey, per spec.md §8's "assert(false, ...) exits 1"
// scenario.
func baseAssert(vm *VM, args []Value) ([]Value, error) {
	if Truthy(arg(args, 0)) {
		return args, nil
	}
	msg := arg(args, 1)
	if msg == nil {
		msg = stringValue("assertion failed!")
	}
	return nil, &RuntimeError{Kind: AssertionFailed, Value: msg}
}

func baseError(vm *VM, args []Value) ([]Value, error) {
	return nil, &RuntimeError{Kind: ExplicitError, Value: arg(args, 0)}
}

func baseType(vm *VM, args []Value) ([]Value, error) {
	return []Value{stringValue(TypeOf(arg(args, 0)).String())}, nil
}

func baseToString(vm *VM, args []Value) ([]Value, error) {
	return []Value{stringValue(ToString(arg(args, 0)))}, nil
}

func baseToNumber(vm *VM, args []Value) ([]Value, error) {
	n, ok := toNumber(arg(args, 0))
	if !ok {
		return []Value{nil}, nil
	}
	return []Value{n}, nil
}

func baseNext(vm *VM, args []Value) ([]Value, error) {
	t, ok := arg(args, 0).(*Table)
	if !ok {
		return nil, runtimeErrorf(TypeMismatch, "bad argument #1 to 'next' (table expected, got %s)", TypeOf(arg(args, 0)))
	}
	k, v, ok := t.Next(arg(args, 1))
	if !ok {
		return []Value{nil}, nil
	}
	return []Value{k, v}, nil
}

// basePairs returns the stateless iterator triple (next, t, nil), the
// standard desugaring the compiler emits a CALL for at the head of a
// generic for loop.
func basePairs(vm *VM, args []Value) ([]Value, error) {
	t, ok := arg(args, 0).(*Table)
	if !ok {
		return nil, runtimeErrorf(TypeMismatch, "bad argument #1 to 'pairs' (table expected, got %s)", TypeOf(arg(args, 0)))
	}
	return []Value{vm.Globals.Get(stringValue("next")), t, nil}, nil
}

// baseIPairs returns an iterator triple that walks the array part in
// order 1, 2, 3, ... stopping at the first nil.
func baseIPairs(vm *VM, args []Value) ([]Value, error) {
	t, ok := arg(args, 0).(*Table)
	if !ok {
		return nil, runtimeErrorf(TypeMismatch, "bad argument #1 to 'ipairs' (table expected, got %s)", TypeOf(arg(args, 0)))
	}
	iter := &GoFunction{Name: "ipairs.iterator", Fn: func(vm *VM, args []Value) ([]Value, error) {
		t := args[0].(*Table)
		i, _ := asInt(args[1])
		i++
		v := t.Get(integerValue(i))
		if v == nil {
			return []Value{nil}, nil
		}
		return []Value{integerValue(i), v}, nil
	}}
	return []Value{iter, t, integerValue(0)}, nil
}

// baseSelect implements select('#', ...) and select(n, ...), per Lua's
// standard varargs-introspection helper.
func baseSelect(vm *VM, args []Value) ([]Value, error) {
	rest := args[1:]
	if s, ok := arg(args, 0).(stringValue); ok && s == "#" {
		return []Value{integerValue(len(rest))}, nil
	}
	n, ok := asInt(arg(args, 0))
	if !ok {
		return nil, runtimeErrorf(TypeMismatch, "bad argument #1 to 'select' (number expected)")
	}
	if n < 0 {
		n = int64(len(rest)) + n + 1
	}
	if n < 1 || int(n) > len(rest) {
		return nil, nil
	}
	return rest[n-1:], nil
}
