package vm

import (
	"fmt"
	"math"
	"strconv"

	"github.com/galang-lang/gal/code"
	"github.com/galang-lang/gal/internal/galerr"
	"github.com/galang-lang/gal/object"
	"github.com/galang-lang/gal/value"
)

// metamethod looks up the tagged method slot on v's metatable, if v is a
// table with one set (spec §4.10's tagged-method dispatch).
func (vm *VM) metamethod(v value.Value, tm object.TagMethod) (value.Value, bool) {
	tbl, ok := vm.Heap.Resolve(v).(*object.Table)
	if !ok || tbl.Metatable == nil {
		return value.Null, false
	}
	fn := tbl.Metatable.Get(vm.NewString(object.TagMethodNames[tm]))
	if fn.IsNull() {
		return value.Null, false
	}
	return fn, true
}

// index implements GAL's `[]`/`.` read, falling back to __index on a table
// metatable (spec §4.10).
func (vm *VM) index(obj, key value.Value) (value.Value, error) {
	tbl, ok := vm.Heap.Resolve(obj).(*object.Table)
	if !ok {
		return value.Null, galerr.TypeError("index", categoryOf(vm.Heap.Resolve(obj)))
	}
	v := tbl.Get(key)
	if !v.IsNull() || tbl.Metatable == nil {
		return v, nil
	}
	tm, ok := vm.metamethod(obj, object.TMIndex)
	if !ok {
		return value.Null, nil
	}
	if _, ok := vm.Heap.Resolve(tm).(*object.Table); ok {
		return vm.index(tm, key)
	}
	results, err := vm.callValue(vm.Main, tm, []value.Value{obj, key})
	if err != nil {
		return value.Null, err
	}
	return first(results), nil
}

// newindex implements GAL's `[]=`/`.=` write, falling back to __newindex
// (spec §4.10).
func (vm *VM) newindex(obj, key, val value.Value) error {
	tbl, ok := vm.Heap.Resolve(obj).(*object.Table)
	if !ok {
		return galerr.TypeError("index", categoryOf(vm.Heap.Resolve(obj)))
	}
	if tbl.Get(key).IsNull() && tbl.Metatable != nil {
		if tm, ok := vm.metamethod(obj, object.TMNewIndex); ok {
			if _, ok := vm.Heap.Resolve(tm).(*object.Table); ok {
				return vm.newindex(tm, key, val)
			}
			_, err := vm.callValue(vm.Main, tm, []value.Value{obj, key, val})
			return err
		}
	}
	if !tbl.Mutable {
		return fmt.Errorf("%w: table is immutable", galerr.ErrTypeError)
	}
	tbl.Set(key, val)
	vm.GC.Barrier(tbl, val)
	vm.GC.Barrier(tbl, key)
	return nil
}

var arithTagMethod = map[code.Op]object.TagMethod{
	code.OpPlus:     object.TMAdd,
	code.OpMinus:    object.TMSub,
	code.OpMultiply: object.TMMul,
	code.OpDivide:   object.TMDiv,
	code.OpModulus:  object.TMMod,
	code.OpPow:      object.TMPow,
}

// arith implements the arithmetic/bitwise ABC opcodes, including plus's
// dual role as numeric add and string concatenation (spec: GAL has no
// dedicated concat opcode or __concat tag method; + is polymorphic at
// runtime on its operand types).
func (vm *VM) arith(op code.Op, l, r value.Value) (value.Value, error) {
	if op == code.OpPlus && !(l.IsNumber() && r.IsNumber()) {
		if ls, lok := vm.asConcatString(l); lok {
			if rs, rok := vm.asConcatString(r); rok {
				return vm.NewString(ls + rs), nil
			}
		}
	}

	if l.IsNumber() && r.IsNumber() {
		a, b := l.AsNumber(), r.AsNumber()
		switch op {
		case code.OpPlus:
			return value.Number(a + b), nil
		case code.OpMinus:
			return value.Number(a - b), nil
		case code.OpMultiply:
			return value.Number(a * b), nil
		case code.OpDivide:
			if b == 0 {
				return value.Null, galerr.ErrDivideByZero
			}
			return value.Number(a / b), nil
		case code.OpModulus:
			if b == 0 {
				return value.Null, galerr.ErrDivideByZero
			}
			m := a - floorDiv(a, b)*b
			return value.Number(m), nil
		case code.OpPow:
			return value.Number(math.Pow(a, b)), nil
		case code.OpBitwiseAnd:
			return value.Number(float64(int64(a) & int64(b))), nil
		case code.OpBitwiseOr:
			return value.Number(float64(int64(a) | int64(b))), nil
		case code.OpBitwiseXor:
			return value.Number(float64(int64(a) ^ int64(b))), nil
		case code.OpBitwiseLeftShift:
			return value.Number(float64(int64(a) << uint(int64(b)))), nil
		case code.OpBitwiseRightShift:
			return value.Number(float64(int64(a) >> uint(int64(b)))), nil
		}
	}

	if tm, ok := arithTagMethod[op]; ok {
		if fn, ok := vm.metamethod(l, tm); ok {
			results, err := vm.callValue(vm.Main, fn, []value.Value{l, r})
			if err != nil {
				return value.Null, err
			}
			return first(results), nil
		}
		if fn, ok := vm.metamethod(r, tm); ok {
			results, err := vm.callValue(vm.Main, fn, []value.Value{l, r})
			if err != nil {
				return value.Null, err
			}
			return first(results), nil
		}
	}

	bad := l
	if bad.IsNumber() {
		bad = r
	}
	return value.Null, galerr.TypeError("perform arithmetic on", categoryOf(vm.Heap.Resolve(bad)))
}

func floorDiv(a, b float64) float64 {
	q := a / b
	if q < 0 {
		return float64(int64(q)) - 1
	}
	return float64(int64(q))
}

// asConcatString renders v as a string for `+`'s concat path: strings pass
// through, numbers format like the teacher's debug dumps, everything else
// is not concatenable.
func (vm *VM) asConcatString(v value.Value) (string, bool) {
	if s, ok := vm.Heap.Resolve(v).(*object.String); ok {
		return s.String(), true
	}
	if v.IsNumber() {
		return strconv.FormatFloat(v.AsNumber(), 'g', -1, 64), true
	}
	return "", false
}

// compareBranch evaluates the three branch-opcode comparisons, falling
// back to __eq/__lt/__le for table operands (spec §4.10).
func (vm *VM) compareBranch(op code.Op, l, r value.Value) (bool, error) {
	switch op {
	case code.OpJumpIfEq:
		if l.IsObject() && r.IsObject() {
			if ls, ok := vm.Heap.Resolve(l).(*object.String); ok {
				if rs, ok := vm.Heap.Resolve(r).(*object.String); ok {
					return object.StringsEqual(ls, rs), nil
				}
			}
			if value.Equal(l, r) {
				return true, nil
			}
			if fn, ok := vm.metamethod(l, object.TMEq); ok {
				results, err := vm.callValue(vm.Main, fn, []value.Value{l, r})
				if err != nil {
					return false, err
				}
				return first(results).Truthy(), nil
			}
			return false, nil
		}
		return value.Equal(l, r), nil

	case code.OpJumpIfLt, code.OpJumpIfLe:
		if l.IsNumber() && r.IsNumber() {
			if op == code.OpJumpIfLt {
				return l.AsNumber() < r.AsNumber(), nil
			}
			return l.AsNumber() <= r.AsNumber(), nil
		}
		if ls, ok := vm.Heap.Resolve(l).(*object.String); ok {
			if rs, ok := vm.Heap.Resolve(r).(*object.String); ok {
				c := compareBytes(ls.Bytes, rs.Bytes)
				if op == code.OpJumpIfLt {
					return c < 0, nil
				}
				return c <= 0, nil
			}
		}
		tm := object.TMLt
		if op == code.OpJumpIfLe {
			tm = object.TMLe
		}
		if fn, ok := vm.metamethod(l, tm); ok {
			results, err := vm.callValue(vm.Main, fn, []value.Value{l, r})
			if err != nil {
				return false, err
			}
			return first(results).Truthy(), nil
		}
		return false, galerr.TypeError("compare", categoryOf(vm.Heap.Resolve(l)))
	}
	return false, fmt.Errorf("vm: unhandled comparison opcode %s", op)
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}

// length implements the `#` unary operator, falling back to __len (spec
// §4.10).
func (vm *VM) length(v value.Value) (value.Value, error) {
	switch obj := vm.Heap.Resolve(v).(type) {
	case *object.String:
		return value.Number(float64(len(obj.Bytes))), nil
	case *object.Table:
		if obj.Metatable != nil {
			if fn, ok := vm.metamethod(v, object.TMLen); ok {
				results, err := vm.callValue(vm.Main, fn, []value.Value{v})
				if err != nil {
					return value.Null, err
				}
				return first(results), nil
			}
		}
		return value.Number(float64(obj.Len())), nil
	default:
		return value.Null, galerr.TypeError("get the length of", categoryOf(obj))
	}
}

// constant resolves a prototype constant-pool entry to a runtime value
// (spec §6.1 constant kinds: null, boolean, number, string-ref, import,
// table, closure).
func (vm *VM) constant(proto *object.Prototype, idx int) value.Value {
	if idx < 0 || idx >= len(proto.Constants) {
		return value.Null
	}
	c := proto.Constants[idx]
	switch c.Kind {
	case object.ConstNull:
		return value.Null
	case object.ConstBool:
		return value.Bool(c.Bool)
	case object.ConstNumber:
		return value.Number(c.Number)
	case object.ConstString:
		return vm.str(c.Str)
	case object.ConstImport:
		cur := vm.Globals
		for _, ref := range c.Import {
			v, err := vm.index(cur, vm.str(ref))
			if err != nil {
				return value.Null
			}
			cur = v
		}
		return cur
	case object.ConstClosure:
		if int(c.ChildIdx) >= len(proto.Children) {
			return value.Null
		}
		closure := object.NewScriptClosure(vm.Heap, vm.white(), proto.Children[c.ChildIdx], nil, vm.Globals)
		vm.track(closure)
		return closure
	default:
		return value.Null
	}
}
