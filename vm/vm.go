// Package vm implements GAL's register-based interpreter (spec §4.10):
// instruction dispatch, call frames, tagged-method dispatch, and fastcall
// built-ins, running over the object/value/code packages' heap and
// bytecode representation. The dispatch loop's shape — a big switch over
// the decoded opcode inside a per-frame loop — is grounded on
// sentra-language-sentra's vmregister VM.run, generalized from its
// stack-of-values model to GAL's register file.
package vm

import (
	"fmt"

	"github.com/galang-lang/gal/code"
	"github.com/galang-lang/gal/gc"
	"github.com/galang-lang/gal/internal/galerr"
	"github.com/galang-lang/gal/object"
	"github.com/galang-lang/gal/value"
)

// VM owns one heap, its collector, and the global environment shared by
// every thread spawned from it (spec §4.10, §6.3).
type VM struct {
	Heap  *object.Heap
	Alloc *gc.Allocator
	GC    *gc.Collector

	Globals    value.Value
	GlobalsTbl *object.Table
	Main       *object.Thread
	MainVal    value.Value

	intern  map[string]value.Value
	strings []value.Value // the most recently loaded chunk's string table, resolved to interned String objects

	// OnPanic, when set, is invoked with a recovered runtime error before
	// it is returned from Resume/Call (spec §6.3 "panic" callback).
	OnPanic func(err error)
}

// New builds a VM with an empty global table and a main thread.
func New() *VM {
	heap := object.NewHeap()
	alloc := gc.NewAllocator()

	vm := &VM{Heap: heap, Alloc: alloc, intern: make(map[string]value.Value)}
	vm.GC = gc.NewCollector(heap, alloc, 200, vm.roots)

	gtbl, gval := object.NewTable(heap, vm.GC.CurrentWhite())
	vm.Globals = gval
	vm.GlobalsTbl = gtbl
	vm.GC.Track(gtbl)

	main, mainVal := object.NewThread(heap, vm.GC.CurrentWhite(), vm.Globals)
	vm.Main = main
	vm.MainVal = mainVal
	vm.GC.Track(main)

	return vm
}

func (vm *VM) roots() gc.Roots {
	return gc.Roots{MainThread: vm.MainVal, Globals: vm.Globals}
}

func (vm *VM) white() object.Mark { return vm.GC.CurrentWhite() }

// NewString interns s into the VM's shared string table, accounting the
// allocation against total_bytes only on a genuine intern-table miss (a
// cache hit reuses existing storage, so it must not be double-counted).
func (vm *VM) NewString(s string) value.Value {
	if v, ok := vm.intern[s]; ok {
		return v
	}
	v := object.NewString(vm.Heap, vm.intern, vm.white(), s)
	if obj := vm.Heap.Resolve(v); obj != nil {
		vm.GC.Track(obj)
	}
	return v
}

func (vm *VM) str(idx uint32) value.Value {
	if int(idx) >= len(vm.strings) {
		return value.Null
	}
	return vm.strings[idx]
}

// RegisterBuiltin installs a host function into the global table under
// name (spec §6.3's register_builtin).
func (vm *VM) RegisterBuiltin(name string, fn object.HostFunc) {
	closure := object.NewHostClosure(vm.Heap, vm.white(), name, fn, nil)
	vm.track(closure)
	vm.GlobalsTbl.Set(vm.NewString(name), closure)
}

// track accounts a freshly allocated value against total_bytes, running an
// assist step if the allocation crossed gc_threshold (spec §4.4).
func (vm *VM) track(v value.Value) {
	if obj := vm.Heap.Resolve(v); obj != nil {
		vm.GC.Track(obj)
	}
}

// Load installs every prototype in chunk into the heap and returns the
// handle of the entry-point (main chunk) prototype (spec §6.3's load).
func (vm *VM) Load(chunk *code.Chunk) (value.Value, error) {
	vm.strings = make([]value.Value, len(chunk.Strings))
	for i, s := range chunk.Strings {
		vm.strings[i] = vm.NewString(s)
	}

	protoHandles := make([]value.Value, len(chunk.Prototypes))
	protos := make([]*object.Prototype, len(chunk.Prototypes))
	for i := range chunk.Prototypes {
		p := &object.Prototype{}
		p.Header.Category = object.CategoryPrototype
		protos[i] = p
		protoHandles[i] = vm.Heap.Alloc(p, vm.white())
	}

	for i, cp := range chunk.Prototypes {
		p := protos[i]
		p.MaxStackSize = cp.MaxStackSize
		p.NumParams = cp.NumParams
		p.NumUpvalues = cp.NumUpvalues
		p.IsVararg = cp.IsVararg
		p.Code = cp.Code
		lines := cp.Lines
		p.Lines = &lines
		p.SourceName = stringAt(chunk.Strings, cp.SourceNameRef)
		p.DebugName = stringAt(chunk.Strings, cp.DebugNameRef)
		p.Locals = cp.Locals
		p.UpvalNames = cp.UpvalNames

		p.Children = make([]value.Value, len(cp.Children))
		for j, ci := range cp.Children {
			p.Children[j] = protoHandles[ci]
		}

		p.Constants = make([]object.Constant, len(cp.Constants))
		for j, cc := range cp.Constants {
			p.Constants[j] = object.Constant{
				Kind:     cc.Kind,
				Bool:     cc.Bool,
				Number:   cc.Number,
				Str:      cc.StrRef,
				Import:   cc.Import,
				ChildIdx: cc.ChildIdx,
			}
		}
		vm.GC.Track(p)
	}

	if int(chunk.MainPrototype) >= len(protoHandles) {
		return value.Null, galerr.ErrMalformedChunk
	}
	return protoHandles[chunk.MainPrototype], nil
}

func stringAt(table []string, idx uint32) string {
	if int(idx) >= len(table) {
		return ""
	}
	return table[idx]
}

// Call invokes a prototype or closure value with args on the VM's main
// thread (spec §6.3's call).
func (vm *VM) Call(fn value.Value, args []value.Value) (results []value.Value, err error) {
	return vm.CallOn(vm.Main, fn, args)
}

// CallOn invokes fn on a specific thread, wrapping a bare Prototype handle
// in a fresh closure with no upvalues and the VM's globals as environment.
func (vm *VM) CallOn(th *object.Thread, fn value.Value, args []value.Value) (results []value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toError(r)
			if vm.OnPanic != nil {
				vm.OnPanic(err)
			}
		}
	}()

	closure := fn
	if obj := vm.Heap.Resolve(fn); obj != nil {
		if _, ok := obj.(*object.Prototype); ok {
			closure = object.NewScriptClosure(vm.Heap, vm.white(), fn, nil, vm.Globals)
			vm.track(closure)
		}
	}
	return vm.callValue(th, closure, args)
}

func toError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("vm: %v", r)
}

// callValue dispatches to a host or script closure, growing th's call
// stack for the duration of the call. Script calls recurse through
// runFrame; this mirrors the language's own call stack onto Go's, a
// deliberate simplification documented in DESIGN.md in place of a single
// flat trampoline loop.
func (vm *VM) callValue(th *object.Thread, fn value.Value, args []value.Value) ([]value.Value, error) {
	obj := vm.Heap.Resolve(fn)
	closure, ok := obj.(*object.Closure)
	if !ok {
		if tm, ok := vm.metamethod(fn, object.TMCall); ok {
			return vm.callValue(th, tm, append([]value.Value{fn}, args...))
		}
		return nil, galerr.TypeError("call", categoryOf(obj))
	}

	if closure.IsHost {
		return closure.Host(th, args)
	}

	proto, _ := vm.Heap.Resolve(closure.Prototype).(*object.Prototype)
	if proto == nil {
		return nil, galerr.ErrMalformedChunk
	}
	if len(th.Calls) >= 200 {
		return nil, galerr.ErrStackOverflow
	}

	base := th.Top
	frameSize := int(proto.MaxStackSize)
	th.EnsureStack(base + frameSize + 1)

	nparams := int(proto.NumParams)
	for i := 0; i < frameSize; i++ {
		if i < nparams && i < len(args) {
			th.Stack[base+i] = args[i]
		} else {
			th.Stack[base+i] = value.Null
		}
	}
	var varargs []value.Value
	if proto.IsVararg && len(args) > nparams {
		varargs = append(varargs, args[nparams:]...)
	}

	ci := object.CallInfo{Base: base, Function: fn, Top: base + frameSize}
	th.Calls = append(th.Calls, ci)
	th.Top = base + frameSize

	results, err := vm.runFrame(th, proto, closure, varargs)

	th.Calls = th.Calls[:len(th.Calls)-1]
	th.CloseUpvaluesFrom(vm.Heap, base)
	th.Top = base
	return results, err
}

func categoryOf(obj object.Object) object.Category {
	if obj == nil {
		return object.CategoryString // placeholder; caller only uses the String() rendering
	}
	return obj.Head().Category
}
