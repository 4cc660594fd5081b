package object

import "github.com/galang-lang/gal/value"

// String is GAL's immutable interned string object (spec §3.3).
type String struct {
	Header
	Bytes []byte
	Hash  uint32
	// Atomic is an embedder-assigned interned identifier, 0 if unassigned.
	Atomic uint16
}

func (s *String) Head() *Header { return &s.Header }

func (*String) Trace(func(value.Value)) {} // no Value-typed fields to trace

func (s *String) Size() int { return len(s.Bytes) + 24 }

func (s *String) String() string { return string(s.Bytes) }

// fnv1a32 computes the 32-bit FNV-1a hash spec §3.3 calls for
// ("precomputed 32-bit hash").
func fnv1a32(b []byte) uint32 {
	const (
		offset = 2166136261
		prime  = 16777619
	)
	h := uint32(offset)
	for _, c := range b {
		h ^= uint32(c)
		h *= prime
	}
	return h
}

// NewString allocates an interned string, consulting the given intern
// table first and reusing an existing String object on a content match
// (spec §3.3: "Interned in a per-VM string table").
func NewString(h *Heap, intern map[string]value.Value, currentWhite Mark, s string) value.Value {
	if v, ok := intern[s]; ok {
		return v
	}
	str := &String{Bytes: []byte(s), Hash: fnv1a32([]byte(s))}
	str.Header.Category = CategoryString
	v := h.Alloc(str, currentWhite)
	intern[s] = v
	return v
}

// StringsEqual compares two String objects by hash then bytes (spec §4.2:
// "for objects, pointer identity except for strings, which compare by hash
// then bytes").
func StringsEqual(a, b *String) bool {
	if a == b {
		return true
	}
	if a.Hash != b.Hash || len(a.Bytes) != len(b.Bytes) {
		return false
	}
	for i := range a.Bytes {
		if a.Bytes[i] != b.Bytes[i] {
			return false
		}
	}
	return true
}
