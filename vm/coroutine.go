package vm

import (
	"github.com/galang-lang/gal/internal/galerr"
	"github.com/galang-lang/gal/object"
	"github.com/galang-lang/gal/value"
)

// coroutineMsg carries one resume/yield handoff across the channel pair a
// running thread's goroutine uses to suspend itself (spec §3.8, §4.10: a
// coroutine's native call stack must survive a yield, so this interpreter
// suspends the actual goroutine executing it rather than threading an
// explicit continuation through every opcode).
type coroutineMsg struct {
	values []value.Value
	err    error
}

// coroutineState is the goroutine-side plumbing for one Thread, created
// lazily on its first resume.
type coroutineState struct {
	resumeCh chan coroutineMsg // main -> coroutine goroutine
	yieldCh  chan coroutineMsg // coroutine goroutine -> main
	started  bool
	done     bool
}

var coroutineStates = map[*object.Thread]*coroutineState{}

func stateFor(th *object.Thread) *coroutineState {
	cs, ok := coroutineStates[th]
	if !ok {
		cs = &coroutineState{
			resumeCh: make(chan coroutineMsg),
			yieldCh:  make(chan coroutineMsg),
		}
		coroutineStates[th] = cs
	}
	return cs
}

// NewThread allocates a coroutine sharing the VM's globals (spec §6.3's
// new_thread).
func (vm *VM) NewThread() (*object.Thread, value.Value) {
	th, v := object.NewThread(vm.Heap, vm.white(), vm.Globals)
	vm.GC.Track(th)
	return th, v
}

// Resume runs fn (on first resume) or continues th from its last yield
// point, blocking the calling goroutine until th yields, returns, or
// errors (spec §6.4's resume(thread, args)).
func (vm *VM) Resume(th *object.Thread, fn value.Value, args []value.Value) ([]value.Value, error) {
	if th.Status == object.StatusErrorRun || th.Status == object.StatusErrorSyntax {
		return nil, galerr.ErrErrorInError
	}

	cs := stateFor(th)
	if !cs.started {
		cs.started = true
		th.Status = object.StatusOK
		go vm.runCoroutine(th, cs, fn, args)
	} else {
		if th.Status != object.StatusYield {
			return nil, galerr.TypeError("resume", object.CategoryThread)
		}
		cs.resumeCh <- coroutineMsg{values: args}
	}

	msg := <-cs.yieldCh
	if msg.err != nil {
		th.Status = object.StatusErrorRun
	}
	return msg.values, msg.err
}

// runCoroutine is the body of the goroutine backing one Thread; it runs
// entirely inside callValue/runFrame and only ever communicates back
// through yieldCh, whether finishing normally, erroring, or (via Yield)
// pausing mid-call.
func (vm *VM) runCoroutine(th *object.Thread, cs *coroutineState, fn value.Value, args []value.Value) {
	var results []value.Value
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = toError(r)
				if vm.OnPanic != nil {
					vm.OnPanic(err)
				}
			}
		}()
		results, err = vm.callValue(th, fn, args)
	}()
	if err != nil {
		th.Status = object.StatusErrorRun
	} else {
		th.Status = object.StatusOK
	}
	cs.done = true
	cs.yieldCh <- coroutineMsg{values: results, err: err}
}

// Yield suspends th's goroutine, handing values back to whoever is blocked
// in Resume, and blocks until the next Resume call supplies the
// continuation's arguments (spec §6.4's yield(values)). Must be called
// from the same goroutine currently executing th's frame (i.e. from a
// host closure called while resuming th).
func (vm *VM) Yield(th *object.Thread, values []value.Value) []value.Value {
	cs := stateFor(th)
	th.Status = object.StatusYield
	cs.yieldCh <- coroutineMsg{values: values}
	msg := <-cs.resumeCh
	th.Status = object.StatusOK
	return msg.values
}

// Transfer suspends caller (the coroutine currently running, exactly as
// Yield would) and hands control directly to target, bypassing the
// resumer link Resume would establish (spec §6.4: "transfer does not
// preserve a resumer link" and §4.10's symmetric-coroutine transfer). fn
// is used only to start target's body on its first transfer or resume,
// mirroring Resume's first-call convention; it is ignored once target has
// already started. Must be called from the goroutine currently executing
// caller's frame, just like Yield.
func (vm *VM) Transfer(caller *object.Thread, target *object.Thread, fn value.Value, args []value.Value) ([]value.Value, error) {
	if target.Status == object.StatusErrorRun || target.Status == object.StatusErrorSyntax {
		return nil, galerr.ErrErrorInError
	}

	callerCs := stateFor(caller)
	targetCs := stateFor(target)

	caller.Status = object.StatusYield
	if !targetCs.started {
		targetCs.started = true
		target.Status = object.StatusOK
		go vm.runCoroutine(target, targetCs, fn, args)
	} else {
		if target.Status != object.StatusYield {
			return nil, galerr.TypeError("transfer", object.CategoryThread)
		}
		targetCs.resumeCh <- coroutineMsg{values: args}
	}

	msg := <-callerCs.resumeCh
	if msg.err != nil {
		caller.Status = object.StatusErrorRun
	} else {
		caller.Status = object.StatusOK
	}
	return msg.values, msg.err
}
