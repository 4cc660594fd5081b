package object

import "github.com/galang-lang/gal/value"

// Upvalue points either into a thread's stack (open) or holds a closed
// value (closed), per spec §3.7.
type Upvalue struct {
	Header

	// Open is true while the upvalue still aliases its owning thread's
	// stack at Address; once Close is called, Closed holds the value and
	// Open becomes false.
	Open    bool
	Address int // stack index into the owning thread, valid while Open
	Closed  value.Value
}

func (u *Upvalue) Head() *Header { return &u.Header }

func (u *Upvalue) Size() int { return 32 }

func (u *Upvalue) Trace(mark func(value.Value)) {
	if !u.Open {
		mark(u.Closed)
	}
}

// NewOpenUpvalue allocates an upvalue aliasing a stack slot.
func NewOpenUpvalue(h *Heap, currentWhite Mark, addr int) value.Value {
	u := &Upvalue{Open: true, Address: addr}
	u.Header.Category = CategoryUpvalue
	return h.Alloc(u, currentWhite)
}

// Close promotes an open upvalue to a closed one, copying its current
// stack value (spec §3.7: "closed on scope exit or thread death").
func (u *Upvalue) Close(stackValue value.Value) {
	u.Open = false
	u.Closed = stackValue
}
