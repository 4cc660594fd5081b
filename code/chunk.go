package code

import (
	"errors"

	"github.com/galang-lang/gal/internal/binreader"
	"github.com/galang-lang/gal/internal/galsign"
	"github.com/galang-lang/gal/object"
)

// Version is the current chunk format version (spec §6.1). Compatibility
// is a single-byte equality/less-than check; there is no need for a
// semver-range comparator (see DESIGN.md for why golang.org/x/mod/semver
// is not used here).
const Version uint8 = 1

var (
	ErrUnsupportedVersion = errors.New("code: unsupported chunk version")
	ErrMalformedChunk     = errors.New("code: malformed chunk")
)

// ChunkPrototype is the on-disk shape of object.Prototype (spec §6.1):
// object.Prototype holds string-table and child-prototype references the
// live runtime would resolve to heap handles, but a chunk on disk must
// reference them by index instead.
type ChunkPrototype struct {
	MaxStackSize uint8
	NumParams    uint8
	NumUpvalues  uint8
	IsVararg     bool
	Flags        uint8

	Code []uint32

	Constants []ChunkConstant
	Children  []uint32 // indices into Chunk.Prototypes

	Lines object.LineInfo

	SourceNameRef uint32
	DebugNameRef  uint32
	Locals        []object.LocalVarInfo
	UpvalNames    []string
}

// ChunkConstant is the on-disk shape of object.Constant: string references
// are string-table indices rather than live object handles.
type ChunkConstant struct {
	Kind     object.ConstantKind
	Bool     bool
	Number   float64
	StrRef   uint32
	Import   []uint32
	ChildIdx uint32
}

// Chunk is a full serialized program: its string table, prototype table,
// and the index of the entry-point prototype (spec §6.1).
type Chunk struct {
	Version       uint8
	Strings       []string
	Prototypes    []ChunkPrototype
	MainPrototype uint32
	// Signature, if non-empty, is a detached signature over everything
	// preceding it in the serialized form (SPEC_FULL §4/§7, internal/galsign).
	Signature []byte
}

// Serialize encodes c per spec §6.1: version byte, string table, prototype
// table, main-prototype index, optional trailing signature block.
func Serialize(c *Chunk) []byte {
	w := binreader.NewWriter()
	w.WriteUint8(c.Version)

	w.WriteVarint(uint32(len(c.Strings)))
	for _, s := range c.Strings {
		w.WriteString(s)
	}

	w.WriteVarint(uint32(len(c.Prototypes)))
	for _, p := range c.Prototypes {
		writePrototype(w, &p)
	}
	w.WriteUint32(c.MainPrototype)

	body := w.Bytes()
	out := binreader.NewWriter()
	out.WriteBytes(body)
	out.WriteVarint(uint32(len(c.Signature)))
	out.WriteBytes(c.Signature)
	return out.Bytes()
}

func writePrototype(w *binreader.Writer, p *ChunkPrototype) {
	w.WriteUint8(p.MaxStackSize)
	w.WriteUint8(p.NumParams)
	w.WriteUint8(p.NumUpvalues)
	w.WriteUint8(boolByte(p.IsVararg))
	w.WriteUint8(p.Flags)

	w.WriteUint32(uint32(len(p.Code)))
	for _, word := range p.Code {
		w.WriteUint32(word)
	}

	w.WriteVarint(uint32(len(p.Constants)))
	for _, k := range p.Constants {
		writeConstant(w, &k)
	}

	w.WriteVarint(uint32(len(p.Children)))
	for _, idx := range p.Children {
		w.WriteUint32(idx)
	}

	w.WriteUint8(p.Lines.GapLog2)
	w.WriteVarint(uint32(len(p.Lines.Absolute)))
	for _, a := range p.Lines.Absolute {
		w.WriteUint32(uint32(a))
	}
	w.WriteVarint(uint32(len(p.Lines.Deltas)))
	for _, d := range p.Lines.Deltas {
		w.WriteUint8(uint8(d))
	}

	w.WriteUint32(p.SourceNameRef)
	w.WriteUint32(p.DebugNameRef)

	w.WriteVarint(uint32(len(p.Locals)))
	for _, l := range p.Locals {
		w.WriteString(l.Name)
		w.WriteUint32(uint32(l.BeginPC))
		w.WriteUint32(uint32(l.EndPC))
		w.WriteUint8(l.Register)
	}

	w.WriteVarint(uint32(len(p.UpvalNames)))
	for _, n := range p.UpvalNames {
		w.WriteString(n)
	}
}

func writeConstant(w *binreader.Writer, k *ChunkConstant) {
	w.WriteUint8(uint8(k.Kind))
	switch k.Kind {
	case object.ConstBool:
		w.WriteUint8(boolByte(k.Bool))
	case object.ConstNumber:
		w.WriteFloat64(k.Number)
	case object.ConstString:
		w.WriteUint32(k.StrRef)
	case object.ConstImport:
		w.WriteUint8(uint8(len(k.Import)))
		for _, ref := range k.Import {
			w.WriteUint32(ref)
		}
	case object.ConstClosure:
		w.WriteUint32(k.ChildIdx)
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Deserialize decodes a Chunk produced by Serialize. If verifier is
// non-nil, the trailing signature block is checked against it (SPEC_FULL
// §4/§7, internal/galsign) and a failure aborts before any content is
// trusted; a nil verifier skips the check entirely.
func Deserialize(buf []byte, verifier *galsign.Verifier) (*Chunk, error) {
	r := binreader.New(buf)
	version, err := r.ReadUint8()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	if version != Version {
		return nil, ErrUnsupportedVersion
	}

	c := &Chunk{Version: version}

	numStrings, err := r.ReadVarint()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	c.Strings = make([]string, numStrings)
	for i := range c.Strings {
		s, err := r.ReadString()
		if err != nil {
			return nil, ErrMalformedChunk
		}
		c.Strings[i] = s
	}

	numProtos, err := r.ReadVarint()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	c.Prototypes = make([]ChunkPrototype, numProtos)
	for i := range c.Prototypes {
		p, err := readPrototype(r)
		if err != nil {
			return nil, err
		}
		c.Prototypes[i] = *p
	}

	main, err := r.ReadUint32()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	c.MainPrototype = main

	bodyEnd := r.Pos()
	sigLen, err := r.ReadVarint()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	sig, err := r.ReadBytes(sigLen)
	if err != nil {
		return nil, ErrMalformedChunk
	}
	if err := verifier.Verify(buf[:bodyEnd], sig); err != nil {
		return nil, err
	}
	c.Signature = sig

	return c, nil
}

func readPrototype(r *binreader.Reader) (*ChunkPrototype, error) {
	p := &ChunkPrototype{}
	var err error
	fields := []func() error{
		func() (e error) { p.MaxStackSize, e = r.ReadUint8(); return },
		func() (e error) { p.NumParams, e = r.ReadUint8(); return },
		func() (e error) { p.NumUpvalues, e = r.ReadUint8(); return },
	}
	for _, f := range fields {
		if err = f(); err != nil {
			return nil, ErrMalformedChunk
		}
	}
	vararg, err := r.ReadUint8()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	p.IsVararg = vararg != 0
	p.Flags, err = r.ReadUint8()
	if err != nil {
		return nil, ErrMalformedChunk
	}

	codeLen, err := r.ReadUint32()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	p.Code = make([]uint32, codeLen)
	for i := range p.Code {
		if p.Code[i], err = r.ReadUint32(); err != nil {
			return nil, ErrMalformedChunk
		}
	}

	numConsts, err := r.ReadVarint()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	p.Constants = make([]ChunkConstant, numConsts)
	for i := range p.Constants {
		k, err := readConstant(r)
		if err != nil {
			return nil, err
		}
		p.Constants[i] = *k
	}

	numChildren, err := r.ReadVarint()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	p.Children = make([]uint32, numChildren)
	for i := range p.Children {
		if p.Children[i], err = r.ReadUint32(); err != nil {
			return nil, ErrMalformedChunk
		}
	}

	if p.Lines.GapLog2, err = r.ReadUint8(); err != nil {
		return nil, ErrMalformedChunk
	}
	numAbs, err := r.ReadVarint()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	p.Lines.Absolute = make([]int32, numAbs)
	for i := range p.Lines.Absolute {
		v, err := r.ReadUint32()
		if err != nil {
			return nil, ErrMalformedChunk
		}
		p.Lines.Absolute[i] = int32(v)
	}
	numDeltas, err := r.ReadVarint()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	p.Lines.Deltas = make([]int8, numDeltas)
	for i := range p.Lines.Deltas {
		v, err := r.ReadUint8()
		if err != nil {
			return nil, ErrMalformedChunk
		}
		p.Lines.Deltas[i] = int8(v)
	}

	if p.SourceNameRef, err = r.ReadUint32(); err != nil {
		return nil, ErrMalformedChunk
	}
	if p.DebugNameRef, err = r.ReadUint32(); err != nil {
		return nil, ErrMalformedChunk
	}

	numLocals, err := r.ReadVarint()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	p.Locals = make([]object.LocalVarInfo, numLocals)
	for i := range p.Locals {
		name, err := r.ReadString()
		if err != nil {
			return nil, ErrMalformedChunk
		}
		begin, err := r.ReadUint32()
		if err != nil {
			return nil, ErrMalformedChunk
		}
		end, err := r.ReadUint32()
		if err != nil {
			return nil, ErrMalformedChunk
		}
		reg, err := r.ReadUint8()
		if err != nil {
			return nil, ErrMalformedChunk
		}
		p.Locals[i] = object.LocalVarInfo{Name: name, BeginPC: int(begin), EndPC: int(end), Register: reg}
	}

	numUpNames, err := r.ReadVarint()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	p.UpvalNames = make([]string, numUpNames)
	for i := range p.UpvalNames {
		if p.UpvalNames[i], err = r.ReadString(); err != nil {
			return nil, ErrMalformedChunk
		}
	}

	return p, nil
}

func readConstant(r *binreader.Reader) (*ChunkConstant, error) {
	kindByte, err := r.ReadUint8()
	if err != nil {
		return nil, ErrMalformedChunk
	}
	k := &ChunkConstant{Kind: object.ConstantKind(kindByte)}
	switch k.Kind {
	case object.ConstBool:
		b, err := r.ReadUint8()
		if err != nil {
			return nil, ErrMalformedChunk
		}
		k.Bool = b != 0
	case object.ConstNumber:
		if k.Number, err = r.ReadFloat64(); err != nil {
			return nil, ErrMalformedChunk
		}
	case object.ConstString:
		if k.StrRef, err = r.ReadUint32(); err != nil {
			return nil, ErrMalformedChunk
		}
	case object.ConstImport:
		n, err := r.ReadUint8()
		if err != nil {
			return nil, ErrMalformedChunk
		}
		if n > 3 {
			return nil, ErrMalformedChunk
		}
		k.Import = make([]uint32, n)
		for i := range k.Import {
			if k.Import[i], err = r.ReadUint32(); err != nil {
				return nil, ErrMalformedChunk
			}
		}
	case object.ConstClosure:
		if k.ChildIdx, err = r.ReadUint32(); err != nil {
			return nil, ErrMalformedChunk
		}
	}
	return k, nil
}
