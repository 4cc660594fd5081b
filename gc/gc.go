package gc

import (
	"github.com/galang-lang/gal/object"
	"github.com/galang-lang/gal/value"
)

// State is one stop in the incremental collector's state machine (spec
// §4.4): pause -> propagate -> propagate_again -> atomic -> sweep_string
// -> sweep -> pause.
type State int

const (
	// StatePause is idle between cycles; the next Step call starts one.
	StatePause State = iota
	// StatePropagate pops one gray object, blackens it, and marks its
	// references.
	StatePropagate
	// StatePropagateAgain re-marks objects the write barrier deferred
	// during sweep-free work.
	StatePropagateAgain
	// StateAtomic is the single uninterruptible step: remark roots, flip
	// current-white, reset sweep cursors.
	StateAtomic
	// StateSweepString advances the string-sweep cursor.
	StateSweepString
	// StateSweep advances the root_gc sweep cursor.
	StateSweep
)

// Roots supplies the collector's fixed marking roots (spec §4.4 pause:
// "main thread, globals, registry, metatables").
type Roots struct {
	MainThread value.Value
	Globals    value.Value
	Registry   value.Value
	Metatables []value.Value
}

// Collector drives one heap's incremental mark-sweep cycle.
type Collector struct {
	Heap  *object.Heap
	Alloc *Allocator

	state        State
	currentWhite object.Mark
	gray         []uint64
	grayAgain    []uint64

	sweepPrev, sweepCursor             uint64
	stringSweepPrev, stringSweepCursor uint64
	sweepStarted                       bool

	roots func() Roots

	trigger      *triggerController
	goalPercent  int
	threshold    int64
	lastAtomicAt int64
}

// NewCollector builds a Collector over heap, backed by alloc for
// total_bytes accounting, with roots supplied lazily (the VM's globals and
// current thread change as it runs).
func NewCollector(heap *object.Heap, alloc *Allocator, goalPercent int, roots func() Roots) *Collector {
	if goalPercent <= 0 {
		goalPercent = 200
	}
	c := &Collector{
		Heap:         heap,
		Alloc:        alloc,
		currentWhite: object.MarkWhite0,
		roots:        roots,
		trigger:      newTriggerController(),
		goalPercent:  goalPercent,
	}
	c.threshold = heapGoal(alloc.TotalBytes, goalPercent)
	return c
}

// deadMask is the white bit that marks an object as garbage: the white
// that is NOT current-white (spec §4.4: "the dead mask = the old white").
func (c *Collector) deadMask() object.Mark {
	if c.currentWhite == object.MarkWhite0 {
		return object.MarkWhite1
	}
	return object.MarkWhite0
}

// ShouldStep reports whether total_bytes has crossed gc_threshold (spec
// §4.4 "Triggering").
func (c *Collector) ShouldStep() bool {
	return c.Alloc.TotalBytes >= c.threshold
}

// assistStepWork is how much incremental work Track asks for when an
// allocation crosses gc_threshold (spec §4.4's on-allocation assist step):
// small enough that a single allocation never stalls the mutator for a
// full cycle.
const assistStepWork = 64

// Track accounts obj against total_bytes through the allocator's
// size-class/mmap bookkeeping (spec §4.1: "every allocation... updates
// total_bytes") and, if that crossed gc_threshold, runs an incremental
// assist step (spec §4.4 Triggering). obj's Go-level storage already
// exists by the time Track is called; Allocate is invoked purely for the
// byte accounting, not as the object's backing memory.
func (c *Collector) Track(obj object.Object) {
	if _, err := c.Alloc.Allocate(obj.Size()); err != nil {
		return
	}
	if c.ShouldStep() {
		c.Step(assistStepWork)
	}
}

// CurrentWhite reports the mark new allocations must be stamped with to be
// considered live for the collector's current cycle (spec §4.3).
func (c *Collector) CurrentWhite() object.Mark {
	return c.currentWhite
}

// mark pushes an object onto the gray worklist if it is white (spec §4.2
// mark(v)).
func (c *Collector) mark(v value.Value) {
	obj := c.Heap.Resolve(v)
	if obj == nil {
		return
	}
	hdr := obj.Head()
	if hdr.Mark&(object.MarkWhite0|object.MarkWhite1) == 0 {
		return // already black, gray (on a worklist), or fixed
	}
	hdr.Mark = 0 // gray: neither white nor black
	c.gray = append(c.gray, hdr.Handle)
}

// Barrier is the single heap-field mutation chokepoint design note §9
// calls for: every write of value into a field owned by holder must route
// through here so the tri-color invariant survives the write.
func (c *Collector) Barrier(holder object.Object, v value.Value) {
	hdr := holder.Head()
	if hdr.Mark != object.MarkBlack {
		return
	}
	target := c.Heap.Resolve(v)
	if target == nil {
		return
	}
	thdr := target.Head()
	if thdr.Mark&(object.MarkWhite0|object.MarkWhite1) == 0 {
		return
	}

	switch c.state {
	case StatePropagateAgain:
		// Forward barrier: mark the white value immediately.
		c.mark(v)
	default:
		// Backward barrier: re-gray the holder so it's rescanned.
		hdr.Mark = 0
		c.grayAgain = append(c.grayAgain, hdr.Handle)
	}
}

// Step advances the state machine by roughly `limit` units of work (one
// unit per object processed) and returns the work actually performed.
func (c *Collector) Step(limit int) int {
	work := 0
	for work < limit {
		switch c.state {
		case StatePause:
			c.startCycle()
			work++
		case StatePropagate:
			if len(c.gray) == 0 {
				c.state = StatePropagateAgain
				continue
			}
			c.propagateOne(&c.gray)
			work++
		case StatePropagateAgain:
			if len(c.grayAgain) == 0 {
				c.state = StateAtomic
				continue
			}
			c.propagateOne(&c.grayAgain)
			work++
		case StateAtomic:
			c.atomicStep()
			work++
		case StateSweepString:
			if c.sweepStringStep() {
				c.state = StateSweep
				c.sweepStarted = false
			}
			work++
		case StateSweep:
			if c.sweepStep() {
				c.state = StatePause
				return work
			}
			work++
		}
	}
	return work
}

// FullGC runs the cycle to completion (embedder's full_gc per spec §6.3).
func (c *Collector) FullGC() {
	if c.state == StatePause {
		c.startCycle()
	}
	for c.state != StatePause {
		c.Step(1 << 20)
	}
}

func (c *Collector) startCycle() {
	c.gray = c.gray[:0]
	c.grayAgain = c.grayAgain[:0]
	r := c.roots()
	c.mark(r.MainThread)
	c.mark(r.Globals)
	c.mark(r.Registry)
	for _, mt := range r.Metatables {
		c.mark(mt)
	}
	c.state = StatePropagate
}

// propagateOne pops one handle from worklist, blackens it, and marks (or
// re-grays, for weak tables) its referents (spec §4.4 propagate).
func (c *Collector) propagateOne(worklist *[]uint64) {
	wl := *worklist
	n := len(wl)
	handle := wl[n-1]
	*worklist = wl[:n-1]

	obj := c.Heap.Get(handle)
	if obj == nil {
		return
	}
	hdr := obj.Head()

	if tbl, ok := obj.(*object.Table); ok && tbl.Weak != object.WeakNone {
		// Weak tables are deferred: their contents are not traced here,
		// only cleared of dead entries during atomic.
		hdr.Mark = object.MarkBlack
		return
	}

	hdr.Mark = object.MarkBlack
	obj.Trace(c.mark)
}

// atomicStep is the single uninterruptible remark-and-flip (spec §4.4
// atomic).
func (c *Collector) atomicStep() {
	r := c.roots()
	c.mark(r.MainThread)
	c.mark(r.Globals)
	c.mark(r.Registry)
	for _, mt := range r.Metatables {
		c.mark(mt)
	}
	for len(c.gray) > 0 {
		c.propagateOne(&c.gray)
	}
	for len(c.grayAgain) > 0 {
		c.propagateOne(&c.grayAgain)
	}

	c.clearDeadWeakEntries()

	// Flip current-white.
	if c.currentWhite == object.MarkWhite0 {
		c.currentWhite = object.MarkWhite1
	} else {
		c.currentWhite = object.MarkWhite0
	}

	c.sweepCursor = c.Heap.Root()
	c.sweepPrev = 0
	c.stringSweepCursor = c.Heap.Root()
	c.stringSweepPrev = 0
	c.sweepStarted = false

	c.lastAtomicAt = c.Alloc.TotalBytes
	goal := heapGoal(c.Alloc.TotalBytes, c.goalPercent)
	c.threshold = c.trigger.heapTrigger(c.Alloc.TotalBytes, goal, c.lastAtomicAt)

	c.state = StateSweepString
}

func (c *Collector) clearDeadWeakEntries() {
	dead := c.deadMask()
	for h := c.Heap.Root(); h != 0; {
		obj := c.Heap.Get(h)
		if obj == nil {
			break
		}
		if tbl, ok := obj.(*object.Table); ok && tbl.Weak != object.WeakNone {
			c.pruneWeakTable(tbl, dead)
		}
		h = obj.Head().Next
	}
}

func (c *Collector) pruneWeakTable(tbl *object.Table, dead object.Mark) {
	isDead := func(v value.Value) bool {
		o := c.Heap.Resolve(v)
		return o != nil && o.Head().Mark == dead
	}
	for k, v := range tbl.Hash {
		keyDead := tbl.Weak&object.WeakKeys != 0 && isDead(k)
		valDead := tbl.Weak&object.WeakValues != 0 && isDead(v)
		if keyDead || valDead {
			delete(tbl.Hash, k)
		}
	}
}

// sweepStringStep advances the string-sweep cursor, freeing dead string
// objects and leaving everything else for StateSweep. Returns true when
// the pass reaches the end of root_gc.
func (c *Collector) sweepStringStep() bool {
	dead := c.deadMask()
	for i := 0; i < 64; i++ {
		if c.stringSweepCursor == 0 {
			return true
		}
		obj := c.Heap.Get(c.stringSweepCursor)
		if obj == nil {
			return true
		}
		hdr := obj.Head()
		next := hdr.Next

		if hdr.Category == object.CategoryString && hdr.Mark == dead {
			c.Alloc.Deallocate(obj.Size())
			c.Heap.Unlink(c.stringSweepPrev, c.stringSweepCursor)
			c.Heap.Free(c.stringSweepCursor)
		} else {
			c.stringSweepPrev = c.stringSweepCursor
		}
		c.stringSweepCursor = next
	}
	return false
}

// sweepStep advances the general sweep cursor, freeing any remaining dead
// object and flipping survivors to current-white. Returns true at the end
// of root_gc.
func (c *Collector) sweepStep() bool {
	if !c.sweepStarted {
		c.sweepCursor = c.Heap.Root()
		c.sweepPrev = 0
		c.sweepStarted = true
	}
	dead := c.deadMask()
	for i := 0; i < 64; i++ {
		if c.sweepCursor == 0 {
			return true
		}
		obj := c.Heap.Get(c.sweepCursor)
		if obj == nil {
			return true
		}
		hdr := obj.Head()
		next := hdr.Next

		switch {
		case hdr.Mark == object.MarkFixed:
			c.sweepPrev = c.sweepCursor
		case hdr.Mark == dead:
			if t, ok := obj.(*object.Thread); ok {
				c.sweepThreadUpvalues(t, dead)
			}
			c.Alloc.Deallocate(obj.Size())
			c.Heap.Unlink(c.sweepPrev, c.sweepCursor)
			c.Heap.Free(c.sweepCursor)
		default:
			hdr.Mark = c.currentWhite
			c.sweepPrev = c.sweepCursor
		}
		c.sweepCursor = next
	}
	return false
}

func (c *Collector) sweepThreadUpvalues(t *object.Thread, dead object.Mark) {
	kept := t.OpenUpvalues[:0]
	for _, uv := range t.OpenUpvalues {
		obj := c.Heap.Resolve(uv)
		if obj == nil {
			continue
		}
		if obj.Head().Mark == dead {
			continue
		}
		kept = append(kept, uv)
	}
	t.OpenUpvalues = kept
}
