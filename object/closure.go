package object

import "github.com/galang-lang/gal/value"

// Continuation is the optional resumption function a host closure carries
// (NewHostClosure's cont argument). The VM stores it on the Closure but
// never calls it: a host closure suspends its coroutine through vm.Yield,
// and Resume hands the new arguments back as Yield's return value.
type Continuation func(thread *Thread, results []value.Value) ([]value.Value, error)

// HostFunc is a Go-native function registered into GAL via
// gal.VM.RegisterBuiltin.
type HostFunc func(thread *Thread, args []value.Value) ([]value.Value, error)

// Closure is either a host closure wrapping a Go function or a script
// closure over a compiled Prototype (spec §3.6).
type Closure struct {
	Header

	IsHost bool

	// Host closure fields.
	Host         HostFunc
	Continuation Continuation
	DebugName    string

	// Script closure fields.
	Prototype value.Value // Prototype object handle
	Upvalues  []value.Value // Upvalue object handles
	Env       value.Value   // environment table, usually the VM globals
}

func (c *Closure) Head() *Header { return &c.Header }

func (c *Closure) Size() int { return 48 + len(c.Upvalues)*8 }

func (c *Closure) Trace(mark func(value.Value)) {
	if c.IsHost {
		return
	}
	mark(c.Prototype)
	for _, u := range c.Upvalues {
		mark(u)
	}
	mark(c.Env)
}

// NewScriptClosure allocates a closure over a compiled prototype.
func NewScriptClosure(h *Heap, currentWhite Mark, proto value.Value, upvalues []value.Value, env value.Value) value.Value {
	c := &Closure{Prototype: proto, Upvalues: upvalues, Env: env}
	c.Header.Category = CategoryClosure
	return h.Alloc(c, currentWhite)
}

// NewHostClosure allocates a closure wrapping a Go function, optionally
// with a continuation for yielding across the host boundary.
func NewHostClosure(h *Heap, currentWhite Mark, name string, fn HostFunc, cont Continuation) value.Value {
	c := &Closure{IsHost: true, Host: fn, Continuation: cont, DebugName: name}
	c.Header.Category = CategoryClosure
	return h.Alloc(c, currentWhite)
}
