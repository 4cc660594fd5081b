// Package object implements GAL's heap object hierarchy (spec §3.2-3.8):
// String, Table, Prototype, Closure, Upvalue, Thread, each sharing a common
// GC header. Because value.Value boxes a handle rather than a raw pointer
// (see value.Object's doc comment), every heap object lives in a Heap's
// object table and is addressed by that handle.
package object

import "github.com/galang-lang/gal/value"

// Mark is the tri-color mark byte (spec §3.2): exactly one of {White0,
// White1} is "current white" at any time; the other marks dead objects
// during sweep. Gray is represented implicitly as "not white, not black".
type Mark uint8

const (
	MarkWhite0 Mark = 1 << iota
	MarkWhite1
	MarkBlack
	MarkFixed
)

// Category is the heap object's type tag.
type Category uint8

const (
	CategoryString Category = iota
	CategoryTable
	CategoryClosure
	CategoryPrototype
	CategoryUpvalue
	CategoryThread
	CategoryVector
	CategoryUserData
)

func (c Category) String() string {
	switch c {
	case CategoryString:
		return "string"
	case CategoryTable:
		return "table"
	case CategoryClosure:
		return "closure"
	case CategoryPrototype:
		return "prototype"
	case CategoryUpvalue:
		return "upvalue"
	case CategoryThread:
		return "thread"
	case CategoryVector:
		return "vector"
	case CategoryUserData:
		return "userdata"
	default:
		return "unknown"
	}
}

// Header is the common GC header embedded in every heap object (spec
// §3.2). Next threads objects onto the heap's root_gc list in allocation
// order; Go's own allocator manages the actual memory, so Next exists to
// reproduce the sweep-cursor traversal order spec §4.4 depends on, not to
// manage storage.
type Header struct {
	Handle   uint64
	Next     uint64 // handle of the next object in root_gc list order, 0 = none
	Category Category
	Mark     Mark
}

// Object is implemented by every heap object variant; Trace pushes every
// Value-typed field the GC must follow onto the supplied gray-marking
// callback (spec §4.3 "pointer-valued fields are traced by per-type mark
// methods").
type Object interface {
	Head() *Header
	Trace(mark func(value.Value))
	// Size reports the object's contribution to total_bytes (spec §4.4).
	Size() int
}

// Heap owns every live object's backing storage and the handle table that
// lets value.Value address objects without embedding a raw pointer.
type Heap struct {
	objects []Object // index 0 is reserved/unused so handle 0 means "nil"
	free    []uint64
	root    uint64 // head handle of the root_gc list, in allocation order
}

// NewHeap returns an empty heap with handle 0 reserved as a null sentinel.
func NewHeap() *Heap {
	return &Heap{objects: make([]Object, 1)}
}

// Alloc installs obj into the heap, assigns it a handle, links it at the
// head of root_gc, and sets its mark to current white (spec §4.3).
func (h *Heap) Alloc(obj Object, currentWhite Mark) value.Value {
	var handle uint64
	if n := len(h.free); n > 0 {
		handle = h.free[n-1]
		h.free = h.free[:n-1]
		h.objects[handle] = obj
	} else {
		handle = uint64(len(h.objects))
		h.objects = append(h.objects, obj)
	}
	hdr := obj.Head()
	hdr.Handle = handle
	hdr.Next = h.root
	hdr.Mark = currentWhite
	h.root = handle
	return value.Object(handle)
}

// Get resolves a handle (or a boxed value.Value) back to its Object.
func (h *Heap) Get(handle uint64) Object {
	if handle == 0 || handle >= uint64(len(h.objects)) {
		return nil
	}
	return h.objects[handle]
}

// Resolve is a convenience wrapper over Get for a boxed object Value.
func (h *Heap) Resolve(v value.Value) Object {
	if !v.IsObject() {
		return nil
	}
	return h.Get(v.AsObject())
}

// Root returns the handle of the first object in root_gc list order, for
// sweep-cursor traversal.
func (h *Heap) Root() uint64 { return h.root }

// Free releases a handle back to the free list and drops the strong
// reference so the underlying Go object becomes collectible. Called only
// from the GC's sweep phase (spec §4.3: "Destruction is always via the
// sweep phase").
func (h *Heap) Free(handle uint64) {
	if handle == 0 || handle >= uint64(len(h.objects)) {
		return
	}
	h.objects[handle] = nil
	h.free = append(h.free, handle)
}

// Unlink removes handle from the root_gc singly-linked list, given the
// handle that currently points to it (0 if handle is the current root).
func (h *Heap) Unlink(prev, handle uint64) {
	next := h.objects[handle].Head().Next
	if prev == 0 {
		h.root = next
	} else if p := h.Get(prev); p != nil {
		p.Head().Next = next
	}
}
