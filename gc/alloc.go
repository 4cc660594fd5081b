// Package gc implements GAL's incremental tri-color mark-sweep collector
// (spec §4.3, §4.4) and the size-class allocator that feeds it (spec
// §4.1).
package gc

import (
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

const (
	smallTierStride   = 8
	smallTierLimit    = 64
	mediumTierStride  = 16
	mediumTierLimit   = 256
	largeTierStride   = 32
	largeObjectCutoff = 512

	pageSize = 16 * 1024
)

// sizeClasses lists every slab size class, generated from the three tiers
// spec §4.1 describes (stride 8 up to 64, stride 16 up to 256, stride 32 up
// to 512) rather than hand-enumerated.
var sizeClasses = generateSizeClasses()

func generateSizeClasses() []int {
	var classes []int
	for s := smallTierStride; s <= smallTierLimit; s += smallTierStride {
		classes = append(classes, s)
	}
	for s := smallTierLimit + mediumTierStride; s <= mediumTierLimit; s += mediumTierStride {
		classes = append(classes, s)
	}
	for s := mediumTierLimit + largeTierStride; s <= largeObjectCutoff; s += largeTierStride {
		classes = append(classes, s)
	}
	return classes
}

func classIndexFor(size int) (int, bool) {
	for i, c := range sizeClasses {
		if size <= c {
			return i, true
		}
	}
	return 0, false
}

// blockHeader is the 8-byte header every slab block carries, pointing back
// to the page it came from (spec §4.1: "each block carries an 8-byte
// header pointing back to its page").
type blockHeader struct {
	page *page
}

type page struct {
	class     int
	buf       []byte
	freeList  []int // byte offsets of free blocks, header included
	blockSize int
}

func newPage(class, blockSize int) *page {
	n := pageSize / blockSize
	p := &page{class: class, buf: make([]byte, n*blockSize), blockSize: blockSize}
	for i := n - 1; i >= 0; i-- {
		p.freeList = append(p.freeList, i*blockSize)
	}
	return p
}

func (p *page) alloc() ([]byte, bool) {
	if len(p.freeList) == 0 {
		return nil, false
	}
	off := p.freeList[len(p.freeList)-1]
	p.freeList = p.freeList[:len(p.freeList)-1]
	return p.buf[off : off+p.blockSize], true
}

// largeRegion is a big allocation backed by an anonymous-ish memory
// mapping: mmap-go's Map only accepts a file descriptor, so GAL gives the
// "system allocator" tier real OS-backed pages by mmap'ing a short-lived
// temp file, matching how the teacher's file.go maps PE images via
// mmap.Map rather than reading them into a plain []byte.
type largeRegion struct {
	f   *os.File
	mem mmap.MMap
}

func newLargeRegion(size int) (*largeRegion, error) {
	f, err := os.CreateTemp("", "gal-large-*")
	if err != nil {
		return nil, fmt.Errorf("gc: create large-object backing file: %w", err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("gc: size large-object backing file: %w", err)
	}
	mem, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("gc: mmap large object: %w", err)
	}
	return &largeRegion{f: f, mem: mem}, nil
}

func (r *largeRegion) close() {
	r.mem.Unmap()
	name := r.f.Name()
	r.f.Close()
	os.Remove(name)
}

// Allocator is GAL's size-class slab allocator (spec §4.1). It never
// returns a nil slice for a successful allocation: running out of backing
// memory is reported as an error, not a silent null.
type Allocator struct {
	classes      []*classState
	largeRegions map[*largeRegion]struct{}
	TotalBytes   int64
}

type classState struct {
	blockSize int
	pages     []*page
}

// NewAllocator builds an allocator with empty slabs for every size class.
func NewAllocator() *Allocator {
	a := &Allocator{largeRegions: make(map[*largeRegion]struct{})}
	for _, c := range sizeClasses {
		a.classes = append(a.classes, &classState{blockSize: c})
	}
	return a
}

// Allocate returns a zeroed buffer of at least n bytes, routing to the
// matching size class or, above largeObjectCutoff, to the system
// allocator (spec §4.1).
func (a *Allocator) Allocate(n int) ([]byte, error) {
	if n <= largeObjectCutoff {
		idx, ok := classIndexFor(n)
		if !ok {
			return nil, fmt.Errorf("gc: no size class fits %d bytes", n)
		}
		cs := a.classes[idx]
		for _, p := range cs.pages {
			if buf, ok := p.alloc(); ok {
				a.TotalBytes += int64(cs.blockSize)
				return buf[:n], nil
			}
		}
		p := newPage(idx, cs.blockSize)
		cs.pages = append(cs.pages, p)
		buf, _ := p.alloc()
		a.TotalBytes += int64(cs.blockSize)
		return buf[:n], nil
	}

	region, err := newLargeRegion(n)
	if err != nil {
		return nil, fmt.Errorf("galerr: out of memory: %w", err)
	}
	a.largeRegions[region] = struct{}{}
	a.TotalBytes += int64(n)
	return region.mem, nil
}

// Reallocate grows or shrinks an existing allocation by copying, the same
// semantics as realloc(3) (spec §4.1's reallocate(ptr, old, new)).
func (a *Allocator) Reallocate(old []byte, newSize int) ([]byte, error) {
	buf, err := a.Allocate(newSize)
	if err != nil {
		return nil, err
	}
	n := len(old)
	if newSize < n {
		n = newSize
	}
	copy(buf, old[:n])
	return buf, nil
}

// Deallocate returns n bytes to total_bytes accounting. It only adjusts
// the count: no block goes back on a page's free list and no slab page is
// released (Close releases only large-object mappings); this call exists
// for the byte-accounting spec §4.1 requires on every
// allocation/deallocation.
func (a *Allocator) Deallocate(n int) {
	a.TotalBytes -= int64(n)
	if a.TotalBytes < 0 {
		a.TotalBytes = 0
	}
}

// Close releases every large-object mapping. Slab pages are ordinary Go
// memory and need no explicit release.
func (a *Allocator) Close() {
	for r := range a.largeRegions {
		r.close()
	}
	a.largeRegions = make(map[*largeRegion]struct{})
}
