package object

import "github.com/galang-lang/gal/value"

// WeakMode controls how a table's metatable `"mode"` field affects GC
// clearing (spec §3.4).
type WeakMode uint8

const (
	WeakNone WeakMode = iota
	WeakKeys
	WeakValues
	WeakBoth
)

// Table is GAL's hybrid array/hash container (spec §3.4). Integer keys in
// [1, len(Array)] live in Array; everything else lives in Hash.
type Table struct {
	Header
	Array     []value.Value
	Hash      map[value.Value]value.Value
	Metatable *Table
	// Mutable false means writes are rejected (spec: "used for sandboxed
	// globals").
	Mutable bool
	Weak    WeakMode
	// tmFlags caches which tagged methods this table's metatable lacks, one
	// bit per TagMethod, so repeated misses cost only a bitfield test (spec
	// §4.10: "A metatable's flags byte records absence of each tag").
	tmFlags uint32
	tmValid bool
}

func (t *Table) Head() *Header { return &t.Header }

func (t *Table) Size() int {
	return 40 + len(t.Array)*8 + len(t.Hash)*24
}

func (t *Table) Trace(mark func(value.Value)) {
	for _, v := range t.Array {
		mark(v)
	}
	for k, v := range t.Hash {
		mark(k)
		mark(v)
	}
}

// NewTable allocates an empty, mutable table.
func NewTable(h *Heap, currentWhite Mark) (*Table, value.Value) {
	t := &Table{Hash: make(map[value.Value]value.Value), Mutable: true}
	t.Header.Category = CategoryTable
	v := h.Alloc(t, currentWhite)
	return t, v
}

// intKey reports whether v is an integral number usable as an array index,
// returning it as a 1-based int.
func intKey(v value.Value) (int, bool) {
	if !v.IsNumber() {
		return 0, false
	}
	f := v.AsNumber()
	i := int(f)
	if float64(i) != f || i < 1 {
		return 0, false
	}
	return i, true
}

// Get implements table lookup, checking the array part first (spec §3.4).
func (t *Table) Get(key value.Value) value.Value {
	if i, ok := intKey(key); ok && i <= len(t.Array) {
		return t.Array[i-1]
	}
	if v, ok := t.Hash[key]; ok {
		return v
	}
	return value.Null
}

// Set implements table mutation, growing the array part when a write lands
// exactly at its boundary (spec §3.4: "integer keys in [1, array_size] live
// in the array part").
func (t *Table) Set(key, val value.Value) {
	if i, ok := intKey(key); ok {
		switch {
		case i <= len(t.Array):
			t.Array[i-1] = val
			return
		case i == len(t.Array)+1 && !val.IsNull():
			t.Array = append(t.Array, val)
			t.migrateFromHash()
			return
		}
	}
	if val.IsNull() {
		delete(t.Hash, key)
		return
	}
	t.Hash[key] = val
}

// migrateFromHash pulls any hash entries that now fall within the array's
// extended contiguous range back into the array part.
func (t *Table) migrateFromHash() {
	for {
		next := value.Number(float64(len(t.Array) + 1))
		v, ok := t.Hash[next]
		if !ok {
			return
		}
		delete(t.Hash, next)
		t.Array = append(t.Array, v)
	}
}

// Len implements the `#` length operator border rule: the array part's
// length when its last slot is non-null, else a hash-part border search.
func (t *Table) Len() int {
	n := len(t.Array)
	for n > 0 && t.Array[n-1].IsNull() {
		n--
	}
	if n == len(t.Array) {
		for {
			if _, ok := t.Hash[value.Number(float64(n+1))]; !ok {
				break
			}
			n++
		}
	}
	return n
}

// InvalidateTagMethodCache clears the cached absence bitmap, called
// whenever the metatable or its tagged-method entries change.
func (t *Table) InvalidateTagMethodCache() { t.tmValid = false }

// TagMethodAbsent reports the cached "definitely absent" bit for a tagged
// method index, filling the cache lazily from the metatable's contents.
func (t *Table) TagMethodAbsent(names []string, idx int, nameFor func(int) value.Value) bool {
	if t.Metatable == nil {
		return true
	}
	if !t.tmValid {
		var flags uint32
		for i := range names {
			if t.Metatable.Get(nameFor(i)).IsNull() {
				flags |= 1 << uint(i)
			}
		}
		t.tmFlags = flags
		t.tmValid = true
	}
	return t.tmFlags&(1<<uint(idx)) != 0
}
