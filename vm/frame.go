package vm

import (
	"fmt"

	"github.com/galang-lang/gal/code"
	"github.com/galang-lang/gal/internal/galerr"
	"github.com/galang-lang/gal/object"
	"github.com/galang-lang/gal/value"
)

// runFrame executes proto's bytecode on th starting at register base,
// returning once a call_return instruction fires or the code runs off the
// end (an implicit no-values return, which the compiler never actually
// leaves reachable since emitImplicitReturn always appends one).
func (vm *VM) runFrame(th *object.Thread, proto *object.Prototype, closure *object.Closure, varargs []value.Value) ([]value.Value, error) {
	base := th.Calls[len(th.Calls)-1].Base
	words := proto.Code
	pc := 0

	reg := func(r uint8) value.Value { return th.Stack[base+int(r)] }
	setReg := func(r uint8, v value.Value) { th.Stack[base+int(r)] = v }

	for {
		if pc >= len(words) {
			return nil, nil
		}
		inst := code.Instruction(words[pc])
		op := inst.Op()
		width := op.Width()
		var aux code.AuxWord
		if width == 2 {
			aux = code.AuxWord(words[pc+1])
		}

		switch op {
		case code.OpNop:

		case code.OpLoadNull:
			setReg(inst.A(), value.Null)

		case code.OpLoadBoolean:
			setReg(inst.A(), value.Bool(inst.D() != 0))

		case code.OpLoadNumber:
			setReg(inst.A(), value.Number(float64(inst.D())))

		case code.OpLoadKey:
			setReg(inst.A(), vm.constant(proto, int(inst.D())))

		case code.OpMove:
			setReg(inst.A(), reg(inst.B()))

		case code.OpLoadGlobal:
			setReg(inst.A(), vm.GlobalsTbl.Get(vm.str(uint32(aux))))

		case code.OpSetGlobal:
			if !vm.GlobalsTbl.Mutable {
				return nil, fmt.Errorf("%w: globals table is immutable", galerr.ErrTypeError)
			}
			key := vm.str(uint32(aux))
			val := reg(inst.A())
			vm.GlobalsTbl.Set(key, val)
			vm.GC.Barrier(vm.GlobalsTbl, val)

		case code.OpLoadUpvalue:
			setReg(inst.A(), vm.readUpvalue(closure, int(inst.D())))

		case code.OpSetUpvalue:
			vm.writeUpvalue(closure, int(inst.D()), reg(inst.A()))

		case code.OpCloseUpvalues:
			th.CloseUpvaluesFrom(vm.Heap, base+int(inst.A()))

		case code.OpNewTable:
			tbl, tv := object.NewTable(vm.Heap, vm.white())
			vm.GC.Track(tbl)
			setReg(inst.A(), tv)

		case code.OpLoadTable:
			v, err := vm.index(reg(inst.B()), reg(inst.C()))
			if err != nil {
				return nil, err
			}
			setReg(inst.A(), v)

		case code.OpSetTable:
			if err := vm.newindex(reg(inst.B()), reg(inst.C()), reg(inst.A())); err != nil {
				return nil, err
			}

		case code.OpLoadTableStringKey:
			v, err := vm.index(reg(inst.B()), vm.str(uint32(aux)))
			if err != nil {
				return nil, err
			}
			setReg(inst.A(), v)

		case code.OpSetTableStringKey:
			if err := vm.newindex(reg(inst.B()), vm.str(uint32(aux)), reg(inst.A())); err != nil {
				return nil, err
			}

		case code.OpSetList:
			tbl, ok := vm.Heap.Resolve(reg(inst.A())).(*object.Table)
			if !ok {
				return nil, galerr.TypeError("index", categoryOf(vm.Heap.Resolve(reg(inst.A()))))
			}
			tbl.Set(value.Number(float64(aux)), reg(inst.B()))

		case code.OpNewClosure:
			v, err := vm.newClosure(th, proto, closure, base, int(inst.D()), words[pc+width:])
			if err != nil {
				return nil, err
			}
			setReg(inst.A(), v)
			if childProto, ok := vm.Heap.Resolve(proto.Children[inst.D()]).(*object.Prototype); ok {
				width += int(childProto.NumUpvalues)
			}

		case code.OpCall:
			a := inst.A()
			nargs := int(inst.B()) - 1
			nres := int(inst.C()) - 1
			fn := reg(a)
			args := make([]value.Value, nargs)
			copy(args, th.Stack[base+int(a)+1:base+int(a)+1+nargs])
			results, err := vm.callValue(th, fn, args)
			if err != nil {
				return nil, err
			}
			storeResults(th, base+int(a), nres, results)

		case code.OpNamedCall:
			a := inst.A()
			obj := reg(a + 1)
			method, err := vm.index(obj, vm.str(uint32(aux)))
			if err != nil {
				return nil, err
			}
			setReg(a, method)
			th.CachedMethod = method

		case code.OpCallReturn:
			nret := int(inst.D()) - 1
			a := base + int(inst.A())
			out := make([]value.Value, nret)
			copy(out, th.Stack[a:a+nret])
			return out, nil

		case code.OpJump:
			pc += int(inst.E()) + 1
			continue
		case code.OpJumpExtra:
			pc += int(inst.E()) + 1
			continue
		case code.OpJumpBack:
			pc -= int(inst.E())
			continue

		case code.OpJumpIf:
			if reg(inst.A()).Truthy() {
				pc += int(inst.D()) + 1
				continue
			}
		case code.OpJumpIfNot:
			if !reg(inst.A()).Truthy() {
				pc += int(inst.D()) + 1
				continue
			}

		case code.OpJumpIfEq, code.OpJumpIfLt, code.OpJumpIfLe:
			taken, err := vm.compareBranch(op, reg(inst.A()), reg(inst.B()))
			if err != nil {
				return nil, err
			}
			if taken {
				pc += int(int32(aux)) + 2
				continue
			}

		case code.OpPlus, code.OpMinus, code.OpMultiply, code.OpDivide, code.OpModulus, code.OpPow,
			code.OpBitwiseAnd, code.OpBitwiseOr, code.OpBitwiseXor, code.OpBitwiseLeftShift, code.OpBitwiseRightShift:
			v, err := vm.arith(op, reg(inst.B()), reg(inst.C()))
			if err != nil {
				return nil, err
			}
			setReg(inst.A(), v)

		case code.OpLogicalAnd:
			if !reg(inst.A()).Truthy() {
				pc += int(inst.D()) + 1
				continue
			}
		case code.OpLogicalOr:
			if reg(inst.A()).Truthy() {
				pc += int(inst.D()) + 1
				continue
			}

		case code.OpNegate:
			v := reg(inst.B())
			if !v.IsNumber() {
				if tm, ok := vm.metamethod(v, object.TMUnm); ok {
					results, err := vm.callValue(th, tm, []value.Value{v, v})
					if err != nil {
						return nil, err
					}
					setReg(inst.A(), first(results))
					break
				}
				return nil, galerr.TypeError("negate", categoryOf(vm.Heap.Resolve(v)))
			}
			setReg(inst.A(), value.Number(-v.AsNumber()))

		case code.OpNot:
			setReg(inst.A(), value.Bool(!reg(inst.B()).Truthy()))

		case code.OpLength:
			v, err := vm.length(reg(inst.B()))
			if err != nil {
				return nil, err
			}
			setReg(inst.A(), v)

		case code.OpForNumericLoopPrepare:
			skip, err := vm.forPrepare(th, base, inst.A())
			if err != nil {
				return nil, err
			}
			if skip {
				pc += int(inst.D()) + 1
				continue
			}

		case code.OpForNumericLoop:
			if vm.forLoop(th, base, inst.A()) {
				pc += int(inst.D()) + 1
				continue
			}

		case code.OpForGenericLoop:
			if err := vm.forGenericLoop(th, base, inst, aux); err != nil {
				return nil, err
			}

		case code.OpLoadVarargs:
			a := int(inst.A())
			th.EnsureStack(base + a + len(varargs) + 1)
			for i, v := range varargs {
				th.Stack[base+a+i] = v
			}

		case code.OpPrepareVarargs, code.OpCoverage, code.OpDebuggerBreak:
			// No runtime effect in this interpreter: prepare_varargs is
			// subsumed by callValue's frame setup, and coverage/debugger_break
			// have no host-side hook wired up yet.

		default:
			return nil, fmt.Errorf("vm: unimplemented opcode %s", op)
		}

		pc += width
	}
}

func storeResults(th *object.Thread, at int, nres int, results []value.Value) {
	if nres < 0 {
		nres = len(results)
	}
	th.EnsureStack(at + nres)
	for i := 0; i < nres; i++ {
		if i < len(results) {
			th.Stack[at+i] = results[i]
		} else {
			th.Stack[at+i] = value.Null
		}
	}
}

func first(vs []value.Value) value.Value {
	if len(vs) == 0 {
		return value.Null
	}
	return vs[0]
}

// readUpvalue dereferences an open (stack-aliasing) or closed upvalue.
func (vm *VM) readUpvalue(closure *object.Closure, idx int) value.Value {
	if idx < 0 || idx >= len(closure.Upvalues) {
		return value.Null
	}
	u, ok := vm.Heap.Resolve(closure.Upvalues[idx]).(*object.Upvalue)
	if !ok {
		return value.Null
	}
	if u.Open {
		return vm.upvalueOwner(u).Stack[u.Address]
	}
	return u.Closed
}

func (vm *VM) writeUpvalue(closure *object.Closure, idx int, v value.Value) {
	if idx < 0 || idx >= len(closure.Upvalues) {
		return
	}
	u, ok := vm.Heap.Resolve(closure.Upvalues[idx]).(*object.Upvalue)
	if !ok {
		return
	}
	if u.Open {
		vm.upvalueOwner(u).Stack[u.Address] = v
		return
	}
	u.Closed = v
	vm.GC.Barrier(u, v)
}

// upvalueOwner finds which live thread an open upvalue aliases: the thread
// whose OpenUpvalues list links u. The main thread is checked first, then
// every coroutine thread known to coroutineStates; the main thread is the
// fallback when no list links u.
func (vm *VM) upvalueOwner(u *object.Upvalue) *object.Thread {
	links := func(th *object.Thread) bool {
		for _, uv := range th.OpenUpvalues {
			if o, ok := vm.Heap.Resolve(uv).(*object.Upvalue); ok && o == u {
				return true
			}
		}
		return false
	}
	if links(vm.Main) {
		return vm.Main
	}
	for th := range coroutineStates {
		if links(th) {
			return th
		}
	}
	return vm.Main
}

// newClosure allocates a closure over proto.Children[childIdx], resolving
// each trailing capture word against the enclosing frame (spec §6.2:
// new_closure followed by one capture word per upvalue the child needs).
func (vm *VM) newClosure(th *object.Thread, proto *object.Prototype, enclosing *object.Closure, base, childIdx int, tail []uint32) (value.Value, error) {
	if childIdx < 0 || childIdx >= len(proto.Children) {
		return value.Null, galerr.ErrMalformedChunk
	}
	childHandle := proto.Children[childIdx]
	childProto, ok := vm.Heap.Resolve(childHandle).(*object.Prototype)
	if !ok {
		return value.Null, galerr.ErrMalformedChunk
	}

	upvalues := make([]value.Value, childProto.NumUpvalues)
	for i := range upvalues {
		word := code.Instruction(tail[i])
		kind := code.CaptureKind(word.A())
		idx := word.B()
		switch kind {
		case code.CaptureValue:
			u := &object.Upvalue{Closed: th.Stack[base+int(idx)]}
			u.Header.Category = object.CategoryUpvalue
			upvalues[i] = vm.Heap.Alloc(u, vm.white())
			vm.GC.Track(u)
		case code.CaptureReference:
			addr := base + int(idx)
			if uv, ok := th.FindOpenUpvalue(vm.Heap, addr); ok {
				upvalues[i] = uv
			} else {
				uv := object.NewOpenUpvalue(vm.Heap, vm.white(), addr)
				th.LinkOpenUpvalue(vm.Heap, uv)
				upvalues[i] = uv
				vm.track(uv)
			}
		case code.CaptureUpvalue:
			if enclosing != nil && int(idx) < len(enclosing.Upvalues) {
				upvalues[i] = enclosing.Upvalues[idx]
			}
		}
	}

	closure := object.NewScriptClosure(vm.Heap, vm.white(), childHandle, upvalues, vm.Globals)
	vm.track(closure)
	return closure, nil
}

// forPrepare validates the numeric for loop's [limit, step, index] slots
// and reports whether the loop should be skipped entirely (spec's
// for_numeric_loop_prepare).
func (vm *VM) forPrepare(th *object.Thread, base int, a uint8) (bool, error) {
	limit := th.Stack[base+int(a)]
	step := th.Stack[base+int(a)+1]
	idx := th.Stack[base+int(a)+2]
	if !limit.IsNumber() || !step.IsNumber() || !idx.IsNumber() {
		return false, galerr.TypeError("iterate over", object.CategoryTable)
	}
	if step.AsNumber() == 0 {
		return false, galerr.ErrDivideByZero
	}
	if (step.AsNumber() > 0 && idx.AsNumber() > limit.AsNumber()) ||
		(step.AsNumber() < 0 && idx.AsNumber() < limit.AsNumber()) {
		return true, nil
	}
	th.Stack[base+int(a)+3] = idx
	return false, nil
}

// forLoop advances a numeric for loop's index by its step, copying the new
// index into the user-visible variable slot, and reports whether another
// iteration should run.
func (vm *VM) forLoop(th *object.Thread, base int, a uint8) bool {
	limit := th.Stack[base+int(a)].AsNumber()
	step := th.Stack[base+int(a)+1].AsNumber()
	next := th.Stack[base+int(a)+2].AsNumber() + step
	cont := (step > 0 && next <= limit) || (step < 0 && next >= limit)
	if cont {
		th.Stack[base+int(a)+2] = value.Number(next)
		th.Stack[base+int(a)+3] = value.Number(next)
	}
	return cont
}

// forGenericLoop calls the iterator triple at base+A — fn, state, control —
// without disturbing those three registers (the instruction re-runs every
// iteration, so fn must still be callable next time), and distributes the
// call's results into the variable registers at the AUX-encoded base. The
// loop's continuation test reads the first variable register directly
// (jump_if_not varBase), not this triple.
func (vm *VM) forGenericLoop(th *object.Thread, base int, inst code.Instruction, aux code.AuxWord) error {
	a := int(inst.A())
	nvars := int(inst.B())
	fn := th.Stack[base+a]
	state := th.Stack[base+a+1]
	control := th.Stack[base+a+2]

	results, err := vm.callValue(th, fn, []value.Value{state, control})
	if err != nil {
		return err
	}

	varBase := base + int(aux)
	th.EnsureStack(varBase + nvars)
	for i := 0; i < nvars; i++ {
		if i < len(results) {
			th.Stack[varBase+i] = results[i]
		} else {
			th.Stack[varBase+i] = value.Null
		}
	}
	if nvars > 0 {
		th.Stack[base+a+2] = th.Stack[varBase]
	}
	return nil
}
