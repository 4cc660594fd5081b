package object

import "github.com/galang-lang/gal/value"

// Status is a coroutine's run status (spec §3.8, §6.4).
type Status uint8

const (
	StatusOK Status = iota
	StatusYield
	StatusErrorRun
	StatusErrorSyntax
	StatusErrorMemory
	StatusErrorError
	StatusBreakpoint
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusYield:
		return "yield"
	case StatusErrorRun:
		return "error-run"
	case StatusErrorSyntax:
		return "error-syntax"
	case StatusErrorMemory:
		return "error-memory"
	case StatusErrorError:
		return "error-error"
	case StatusBreakpoint:
		return "breakpoint"
	default:
		return "unknown"
	}
}

// CallInfo is one frame of a thread's call-info stack (spec §4.10).
type CallInfo struct {
	Base       int // register 0 of this call, index into Thread.Stack
	Function   value.Value
	Top        int
	SavedPC    int
	NumReturns int
	IsHost     bool
}

// StackState mirrors spec §3.8's {active, sleeping} bitmask.
type StackState uint8

const (
	StackActive StackState = 1 << iota
	StackSleeping
)

// Thread is a GAL coroutine (spec §3.8).
type Thread struct {
	Header

	Stack []value.Value
	Base  int
	Top   int

	Calls []CallInfo

	Status      Status
	StackState  StackState
	SingleStep  bool
	CachedMethod value.Value

	// OpenUpvalues is sorted ascending by Address (spec §3.7).
	OpenUpvalues []value.Value

	Globals value.Value // shared with sibling threads of the same VM

	// Resumer is never set by the vm package: Resume, Yield and Transfer
	// hand control over through per-thread channels (vm/coroutine.go), so a
	// yield or a normal return goes back to whichever caller is blocked in
	// Resume on this thread, and the field stays nil.
	Resumer *Thread
}

func (t *Thread) Head() *Header { return &t.Header }

func (t *Thread) Size() int { return 96 + len(t.Stack)*8 + len(t.Calls)*40 }

func (t *Thread) Trace(mark func(value.Value)) {
	for _, v := range t.Stack[:t.Top] {
		mark(v)
	}
	for _, ci := range t.Calls {
		mark(ci.Function)
	}
	for _, u := range t.OpenUpvalues {
		mark(u)
	}
	mark(t.Globals)
	mark(t.CachedMethod)
}

const defaultStackSize = 64

// NewThread allocates a coroutine sharing globals with its creator (spec
// §4.10: "new_thread allocates a child thread sharing the parent VM's
// global-table").
func NewThread(h *Heap, currentWhite Mark, globals value.Value) (*Thread, value.Value) {
	t := &Thread{
		Stack:      make([]value.Value, defaultStackSize),
		Globals:    globals,
		StackState: StackActive,
	}
	t.Header.Category = CategoryThread
	v := h.Alloc(t, currentWhite)
	return t, v
}

// EnsureStack grows the value stack, doubling capacity, so index n is
// addressable (spec §3.8: "default 2× min size, extendable").
func (t *Thread) EnsureStack(n int) {
	if n < len(t.Stack) {
		return
	}
	newSize := len(t.Stack) * 2
	if newSize <= n {
		newSize = n + 1
	}
	grown := make([]value.Value, newSize)
	copy(grown, t.Stack)
	t.Stack = grown
}

// FindOpenUpvalue returns the open upvalue at addr if one is already
// linked into OpenUpvalues, or (0, false).
func (t *Thread) FindOpenUpvalue(h *Heap, addr int) (value.Value, bool) {
	for _, uv := range t.OpenUpvalues {
		u := h.Resolve(uv).(*Upvalue)
		if u.Address == addr {
			return uv, true
		}
	}
	return value.Null, false
}

// LinkOpenUpvalue inserts uv into OpenUpvalues keeping ascending Address
// order (spec §3.7: "Open upvalues are linked in a per-thread list, sorted
// by stack address").
func (t *Thread) LinkOpenUpvalue(h *Heap, uv value.Value) {
	addr := h.Resolve(uv).(*Upvalue).Address
	i := 0
	for ; i < len(t.OpenUpvalues); i++ {
		if h.Resolve(t.OpenUpvalues[i]).(*Upvalue).Address > addr {
			break
		}
	}
	t.OpenUpvalues = append(t.OpenUpvalues, value.Null)
	copy(t.OpenUpvalues[i+1:], t.OpenUpvalues[i:])
	t.OpenUpvalues[i] = uv
}

// CloseUpvaluesFrom closes and unlinks every open upvalue with address >=
// from, copying each one's current stack value before detaching (spec
// §4.10: "close_upvalues A: closes and unlinks every open upvalue with
// address ≥ base+A").
func (t *Thread) CloseUpvaluesFrom(h *Heap, from int) {
	i := 0
	for ; i < len(t.OpenUpvalues); i++ {
		u := h.Resolve(t.OpenUpvalues[i]).(*Upvalue)
		if u.Address < from {
			continue
		}
		u.Close(t.Stack[u.Address])
		t.OpenUpvalues[i] = value.Null
	}
	kept := t.OpenUpvalues[:0]
	for _, uv := range t.OpenUpvalues {
		if uv != value.Null {
			kept = append(kept, uv)
		}
	}
	t.OpenUpvalues = kept
}
