package vm

import (
	"math"

	"github.com/galang-lang/gal/internal/galerr"
	"github.com/galang-lang/gal/object"
	"github.com/galang-lang/gal/value"
)

// RegisterStdlib installs the fastcall-recognized built-ins (spec §4.10's
// BuiltinID enum) as ordinary host closures under their natural globals:
// assert, typeof and vector bare, the rest under math/bits/string/table/raw
// tables. The compiler in this implementation never emits the dedicated
// fastcall_*/fastcall_2_key opcodes — every one of these still goes
// through the regular call/named_call path — so this is the only place
// BuiltinID's members get a concrete implementation to dispatch to.
func (vm *VM) RegisterStdlib() {
	vm.RegisterBuiltin("assert", vm.builtinAssert)
	vm.RegisterBuiltin("typeof", vm.builtinTypeof)

	vm.registerModule("math", map[string]object.HostFunc{
		"abs":   numeric1(math.Abs),
		"floor": numeric1(math.Floor),
		"ceil":  numeric1(math.Ceil),
		"sqrt":  numeric1(math.Sqrt),
		"min":   vm.builtinMathMin,
		"max":   vm.builtinMathMax,
	})

	vm.registerModule("bits", map[string]object.HostFunc{
		"band": bitwise2(func(a, b int64) int64 { return a & b }),
		"bor":  bitwise2(func(a, b int64) int64 { return a | b }),
		"bxor": bitwise2(func(a, b int64) int64 { return a ^ b }),
	})

	vm.registerModule("string", map[string]object.HostFunc{
		"sub": vm.builtinStringSub,
	})

	vm.registerModule("raw", map[string]object.HostFunc{
		"get":   vm.builtinRawGet,
		"set":   vm.builtinRawSet,
		"equal": vm.builtinRawEqual,
	})

	vm.registerModule("table", map[string]object.HostFunc{
		"insert": vm.builtinTableInsert,
		"unpack": vm.builtinTableUnpack,
	})

	vm.RegisterBuiltin("vector", vm.builtinVector)
}

func (vm *VM) registerModule(name string, fns map[string]object.HostFunc) {
	tbl, tv := object.NewTable(vm.Heap, vm.white())
	vm.GC.Track(tbl)
	for fname, fn := range fns {
		closure := object.NewHostClosure(vm.Heap, vm.white(), name+"."+fname, fn, nil)
		vm.track(closure)
		tbl.Set(vm.NewString(fname), closure)
	}
	vm.GlobalsTbl.Set(vm.NewString(name), tv)
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Null
}

func numeric1(f func(float64) float64) object.HostFunc {
	return func(_ *object.Thread, args []value.Value) ([]value.Value, error) {
		v := arg(args, 0)
		if !v.IsNumber() {
			return nil, galerr.TypeError("call", object.CategoryString)
		}
		return []value.Value{value.Number(f(v.AsNumber()))}, nil
	}
}

func bitwise2(f func(a, b int64) int64) object.HostFunc {
	return func(_ *object.Thread, args []value.Value) ([]value.Value, error) {
		a, b := arg(args, 0), arg(args, 1)
		if !a.IsNumber() || !b.IsNumber() {
			return nil, galerr.TypeError("call", object.CategoryString)
		}
		return []value.Value{value.Number(float64(f(int64(a.AsNumber()), int64(b.AsNumber()))))}, nil
	}
}

func (vm *VM) builtinAssert(_ *object.Thread, args []value.Value) ([]value.Value, error) {
	if !arg(args, 0).Truthy() {
		msg := "assertion failed!"
		if len(args) > 1 {
			if s, ok := vm.Heap.Resolve(args[1]).(*object.String); ok {
				msg = s.String()
			}
		}
		return nil, galerr.MetaHookError(msg)
	}
	return args, nil
}

func (vm *VM) builtinTypeof(_ *object.Thread, args []value.Value) ([]value.Value, error) {
	v := arg(args, 0)
	if v.IsObject() {
		obj := vm.Heap.Resolve(v)
		if obj == nil {
			return []value.Value{vm.NewString("null")}, nil
		}
		return []value.Value{vm.NewString(obj.Head().Category.String())}, nil
	}
	return []value.Value{vm.NewString(v.Kind().String())}, nil
}

func (vm *VM) builtinMathMin(_ *object.Thread, args []value.Value) ([]value.Value, error) {
	if len(args) == 0 || !arg(args, 0).IsNumber() {
		return nil, galerr.TypeError("call", object.CategoryString)
	}
	m := args[0].AsNumber()
	for _, a := range args[1:] {
		if a.IsNumber() && a.AsNumber() < m {
			m = a.AsNumber()
		}
	}
	return []value.Value{value.Number(m)}, nil
}

func (vm *VM) builtinMathMax(_ *object.Thread, args []value.Value) ([]value.Value, error) {
	if len(args) == 0 || !arg(args, 0).IsNumber() {
		return nil, galerr.TypeError("call", object.CategoryString)
	}
	m := args[0].AsNumber()
	for _, a := range args[1:] {
		if a.IsNumber() && a.AsNumber() > m {
			m = a.AsNumber()
		}
	}
	return []value.Value{value.Number(m)}, nil
}

func (vm *VM) builtinStringSub(_ *object.Thread, args []value.Value) ([]value.Value, error) {
	s, ok := vm.Heap.Resolve(arg(args, 0)).(*object.String)
	if !ok {
		return nil, galerr.TypeError("call", object.CategoryString)
	}
	n := len(s.Bytes)
	i := clampIndex(int(arg(args, 1).AsNumber()), n)
	j := n
	if len(args) > 2 {
		j = clampIndex(int(arg(args, 2).AsNumber()), n)
	}
	if i < 1 {
		i = 1
	}
	if j > n {
		j = n
	}
	if i > j {
		return []value.Value{vm.NewString("")}, nil
	}
	return []value.Value{vm.NewString(string(s.Bytes[i-1 : j]))}, nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		i = n + i + 1
	}
	return i
}

func (vm *VM) builtinRawGet(_ *object.Thread, args []value.Value) ([]value.Value, error) {
	tbl, ok := vm.Heap.Resolve(arg(args, 0)).(*object.Table)
	if !ok {
		return nil, galerr.TypeError("call", object.CategoryTable)
	}
	return []value.Value{tbl.Get(arg(args, 1))}, nil
}

func (vm *VM) builtinRawSet(_ *object.Thread, args []value.Value) ([]value.Value, error) {
	tbl, ok := vm.Heap.Resolve(arg(args, 0)).(*object.Table)
	if !ok {
		return nil, galerr.TypeError("call", object.CategoryTable)
	}
	val := arg(args, 2)
	tbl.Set(arg(args, 1), val)
	vm.GC.Barrier(tbl, val)
	vm.GC.Barrier(tbl, arg(args, 1))
	return []value.Value{args[0]}, nil
}

func (vm *VM) builtinRawEqual(_ *object.Thread, args []value.Value) ([]value.Value, error) {
	a, b := arg(args, 0), arg(args, 1)
	if as, ok := vm.Heap.Resolve(a).(*object.String); ok {
		if bs, ok := vm.Heap.Resolve(b).(*object.String); ok {
			return []value.Value{value.Bool(object.StringsEqual(as, bs))}, nil
		}
	}
	return []value.Value{value.Bool(value.Equal(a, b))}, nil
}

func (vm *VM) builtinTableInsert(_ *object.Thread, args []value.Value) ([]value.Value, error) {
	tbl, ok := vm.Heap.Resolve(arg(args, 0)).(*object.Table)
	if !ok {
		return nil, galerr.TypeError("call", object.CategoryTable)
	}
	if len(args) == 2 {
		val := args[1]
		tbl.Set(value.Number(float64(tbl.Len()+1)), val)
		vm.GC.Barrier(tbl, val)
		return nil, nil
	}
	pos := int(arg(args, 1).AsNumber())
	val := arg(args, 2)
	n := tbl.Len()
	for i := n + 1; i > pos; i-- {
		tbl.Set(value.Number(float64(i)), tbl.Get(value.Number(float64(i-1))))
	}
	tbl.Set(value.Number(float64(pos)), val)
	vm.GC.Barrier(tbl, val)
	return nil, nil
}

func (vm *VM) builtinTableUnpack(_ *object.Thread, args []value.Value) ([]value.Value, error) {
	tbl, ok := vm.Heap.Resolve(arg(args, 0)).(*object.Table)
	if !ok {
		return nil, galerr.TypeError("call", object.CategoryTable)
	}
	n := tbl.Len()
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		out[i] = tbl.Get(value.Number(float64(i + 1)))
	}
	return out, nil
}

func (vm *VM) builtinVector(_ *object.Thread, args []value.Value) ([]value.Value, error) {
	x, y, z := arg(args, 0).AsNumber(), arg(args, 1).AsNumber(), arg(args, 2).AsNumber()
	v := object.NewVector(vm.Heap, vm.white(), x, y, z)
	vm.track(v)
	return []value.Value{v}, nil
}
