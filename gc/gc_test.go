package gc

import (
	"testing"

	"github.com/galang-lang/gal/object"
)

func emptyRoots() Roots { return Roots{} }

func TestCollectorReclaimsUnreferencedTables(t *testing.T) {
	heap := object.NewHeap()
	alloc := NewAllocator()
	c := NewCollector(heap, alloc, 200, emptyRoots)

	const n = 2000
	for i := 0; i < n; i++ {
		tbl, v := object.NewTable(heap, c.currentWhite)
		c.Track(tbl)
		_ = v // unreferenced: nothing roots it, so it is eligible for collection
	}

	liveBefore := alloc.TotalBytes
	if liveBefore == 0 {
		t.Fatal("expected allocations to register with the allocator")
	}

	c.FullGC()

	if alloc.TotalBytes > liveBefore/10 {
		t.Fatalf("expected most garbage reclaimed, total_bytes=%d (was %d)", alloc.TotalBytes, liveBefore)
	}
}

func TestCollectorKeepsRootedTable(t *testing.T) {
	heap := object.NewHeap()
	alloc := NewAllocator()

	tbl, rootVal := object.NewTable(heap, object.MarkWhite0)
	_ = tbl

	c := NewCollector(heap, alloc, 200, func() Roots {
		return Roots{Globals: rootVal}
	})

	c.FullGC()

	if heap.Resolve(rootVal) == nil {
		t.Fatal("rooted table was collected")
	}
}

func TestStateMachineProgressesThroughPauseOnEmptyHeap(t *testing.T) {
	heap := object.NewHeap()
	alloc := NewAllocator()
	c := NewCollector(heap, alloc, 200, emptyRoots)

	c.Step(1)
	if c.state == StatePause {
		t.Fatal("expected Step to leave pause on first call")
	}
	c.FullGC()
	if c.state != StatePause {
		t.Fatalf("expected cycle to return to pause, got %v", c.state)
	}
}

func TestBarrierRegraysBlackHolderOnWhiteWrite(t *testing.T) {
	heap := object.NewHeap()
	alloc := NewAllocator()
	c := NewCollector(heap, alloc, 200, emptyRoots)

	holder, holderVal := object.NewTable(heap, c.currentWhite)
	_, childVal := object.NewTable(heap, c.currentWhite)
	_ = holderVal

	holder.Head().Mark = object.MarkBlack

	c.Barrier(holder, childVal)

	if holder.Head().Mark == object.MarkBlack {
		t.Fatal("expected backward barrier to re-gray the holder")
	}
	if len(c.grayAgain) != 1 {
		t.Fatalf("expected holder queued on gray_again, got %d entries", len(c.grayAgain))
	}
}

func TestDeadMaskIsOppositeOfCurrentWhite(t *testing.T) {
	heap := object.NewHeap()
	alloc := NewAllocator()
	c := NewCollector(heap, alloc, 200, emptyRoots)

	c.currentWhite = object.MarkWhite0
	if c.deadMask() != object.MarkWhite1 {
		t.Fatal("dead mask should be the non-current white")
	}
	c.currentWhite = object.MarkWhite1
	if c.deadMask() != object.MarkWhite0 {
		t.Fatal("dead mask should flip with current white")
	}
}
