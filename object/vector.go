package object

import "github.com/galang-lang/gal/value"

// Vector is the 3-float SIMD-ish value type named in spec §4.10's fastcall
// builtin enum ("vector") and in original_source's
// gal/CORE/include/gal/defines.hpp. It doesn't fit the NaN-boxing payload's
// 48-bit pointer budget as a 4th inline shape, so GAL represents it as a
// regular heap object instead, dispatched through the same fastcall enum
// slot (documented deviation, see DESIGN.md).
type Vector struct {
	Header
	X, Y, Z float64
}

func (v *Vector) Head() *Header { return &v.Header }

func (v *Vector) Size() int { return 32 }

func (*Vector) Trace(func(value.Value)) {}

// NewVector allocates a vector heap object.
func NewVector(h *Heap, currentWhite Mark, x, y, z float64) value.Value {
	vec := &Vector{X: x, Y: y, Z: z}
	vec.Header.Category = CategoryVector
	return h.Alloc(vec, currentWhite)
}
