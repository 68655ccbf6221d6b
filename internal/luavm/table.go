package luavm

import "fmt"

// Table is a Lua table: a dense array part indexed 1..N plus a hash
// part for everything else, matching spec.md §3's explicit two-part
// data model (as opposed to a single sorted-entries representation).
type Table struct {
	array []Value // array[i] holds key i+1
	hash  map[Value]Value
}

func (*Table) valueType() Type { return TypeTable }

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// normalizeKey converts a float key holding an exact integer to an
// integer key, so t[1] and t[1.0] address the same slot (Lua's key
// normalization rule).
func normalizeKey(key Value) Value {
	if f, ok := key.(floatValue); ok {
		if i := int64(f); float64(i) == float64(f) {
			return integerValue(i)
		}
	}
	return key
}

// Get returns the value stored at key, or nil if absent. A nil
// receiver behaves like an empty table.
func (t *Table) Get(key Value) Value {
	if t == nil || key == nil {
		return nil
	}
	key = normalizeKey(key)
	if i, ok := key.(integerValue); ok && i >= 1 && int64(i) <= int64(len(t.array)) {
		return t.array[i-1]
	}
	if t.hash == nil {
		return nil
	}
	return t.hash[key]
}

// Set stores value at key, or deletes key if value is nil. Setting a
// nil or NaN key is a caller error, reported as a RuntimeError by the
// VM's SETTABLE handler before Set is ever called with one.
func (t *Table) Set(key, value Value) {
	key = normalizeKey(key)
	if i, ok := key.(integerValue); ok && i >= 1 {
		idx := int64(i)
		switch {
		case idx <= int64(len(t.array)):
			t.array[idx-1] = value
			if value == nil && idx == int64(len(t.array)) {
				t.shrinkArray()
			}
			return
		case idx == int64(len(t.array))+1 && value != nil:
			t.array = append(t.array, value)
			t.migrateFromHash()
			return
		}
	}
	if value == nil {
		delete(t.hash, key)
		return
	}
	if t.hash == nil {
		t.hash = make(map[Value]Value)
	}
	t.hash[key] = value
}

// shrinkArray trims trailing nils off the array part after a deletion
// at its end, so Len (a border search) stays cheap.
func (t *Table) shrinkArray() {
	n := len(t.array)
	for n > 0 && t.array[n-1] == nil {
		n--
	}
	t.array = t.array[:n]
}

// migrateFromHash pulls any now-contiguous integer keys out of the
// hash part and appends them to the array part, e.g. after t[1], t[2]
// were set via the hash part (out of order) and t[3] just extended
// the array to meet them.
func (t *Table) migrateFromHash() {
	for t.hash != nil {
		next := integerValue(len(t.array) + 1)
		v, ok := t.hash[next]
		if !ok {
			return
		}
		t.array = append(t.array, v)
		delete(t.hash, next)
	}
}

// Len returns a border of t: an N with t[N] non-nil and t[N+1] nil (or
// 0), per spec.md §3. The dense array part makes this exact for
// arrays built by 1..N assignment.
func (t *Table) Len() int64 {
	if t == nil {
		return 0
	}
	n := len(t.array)
	for n > 0 && t.array[n-1] == nil {
		n--
	}
	if n == len(t.array) && t.hash != nil {
		// Array is fully dense; keep consulting the hash part in case
		// the sequence continues there (e.g. t[n+1] was set directly
		// without ever extending the array).
		for {
			if _, ok := t.hash[integerValue(n+1)]; !ok {
				break
			}
			n++
		}
	}
	return int64(n)
}

// Next supports a stateless iteration order for pairs(): array part
// first in index order, then the hash part in the order sortValues
// gives its keys. key == nil starts the
// iteration. It returns ok == false once exhausted.
func (t *Table) Next(key Value) (nextKey, nextValue Value, ok bool) {
	if t == nil {
		return nil, nil, false
	}
	if key == nil {
		if len(t.array) > 0 {
			return integerValue(1), t.array[0], true
		}
		return t.firstHashEntry()
	}
	key = normalizeKey(key)
	if i, isInt := key.(integerValue); isInt && i >= 1 && int64(i) <= int64(len(t.array)) {
		for j := int64(i); j < int64(len(t.array)); j++ {
			if t.array[j] != nil {
				return integerValue(j + 1), t.array[j], true
			}
		}
		return t.firstHashEntry()
	}
	return t.hashEntryAfter(key)
}

// hashKeys returns a stable ordering of the hash part's keys. Table
// mutation between Next calls during the same traversal is undefined
// behavior in Lua, so recomputing (and re-sorting by an arbitrary but
// stable tiebreak) each call is acceptable.
func (t *Table) hashKeys() []Value {
	keys := make([]Value, 0, len(t.hash))
	for k := range t.hash {
		keys = append(keys, k)
	}
	sortValues(keys)
	return keys
}

func (t *Table) firstHashEntry() (Value, Value, bool) {
	keys := t.hashKeys()
	if len(keys) == 0 {
		return nil, nil, false
	}
	return keys[0], t.hash[keys[0]], true
}

func (t *Table) hashEntryAfter(key Value) (Value, Value, bool) {
	keys := t.hashKeys()
	for i, k := range keys {
		if k == key {
			if i+1 < len(keys) {
				return keys[i+1], t.hash[keys[i+1]], true
			}
			return nil, nil, false
		}
	}
	return nil, nil, false
}

// sortValues orders keys into a deterministic sequence (booleans, then
// numbers, then strings, then tables and functions, following TypeOf's
// order; each group sorted) purely so repeated pairs() traversals of an
// unmodified table agree.
func sortValues(keys []Value) {
	less := func(i, j int) bool {
		ti, tj := TypeOf(keys[i]), TypeOf(keys[j])
		if ti != tj {
			return ti < tj
		}
		switch a := keys[i].(type) {
		case integerValue:
			if b, ok := keys[j].(integerValue); ok {
				return a < b
			}
			bf, _ := asFloat(keys[j])
			return float64(a) < bf
		case floatValue:
			bf, _ := asFloat(keys[j])
			return float64(a) < bf
		case booleanValue:
			return !bool(a) && bool(keys[j].(booleanValue))
		case stringValue:
			return a < keys[j].(stringValue)
		default:
			// Tables and functions, by address.
			return fmt.Sprintf("%p", a) < fmt.Sprintf("%p", keys[j])
		}
	}
	insertionSort(keys, less)
}

func insertionSort(keys []Value, less func(i, j int) bool) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}
