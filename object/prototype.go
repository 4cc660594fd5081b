package object

import "github.com/galang-lang/gal/value"

// ConstantKind discriminates the typed constant pool entries (spec §6.1).
type ConstantKind uint8

const (
	ConstNull ConstantKind = iota
	ConstBool
	ConstNumber
	ConstString
	ConstImport
	ConstTable
	ConstClosure
)

// Constant is one entry in a Prototype's constant table.
type Constant struct {
	Kind   ConstantKind
	Bool   bool
	Number float64
	// Str, for ConstString, is the index into the chunk's string table; for
	// ConstImport, the first of up to three chained string-table indices.
	Str      uint32
	Import   []uint32
	ChildIdx uint32 // ConstClosure: index into Prototype.Children
}

// LineInfo stores per-instruction source lines with delta encoding from an
// absolute baseline every 1<<Gap instructions (spec §4.9).
type LineInfo struct {
	GapLog2  uint8
	Absolute []int32
	Deltas   []int8
}

// Line reconstructs the source line for instruction index pc.
func (li *LineInfo) Line(pc int) int {
	if li == nil || len(li.Absolute) == 0 {
		return 0
	}
	base := pc >> li.GapLog2
	if base >= len(li.Absolute) {
		base = len(li.Absolute) - 1
	}
	line := int(li.Absolute[base])
	start := base << li.GapLog2
	for i := start; i < pc && i < len(li.Deltas); i++ {
		line += int(li.Deltas[i])
	}
	return line
}

// LocalVarInfo records one local's live range for debug info (spec §3.5).
type LocalVarInfo struct {
	Name      string
	BeginPC   int
	EndPC     int
	Register  uint8
}

// Prototype is a compiled function template (spec §3.5), immutable after
// compilation.
type Prototype struct {
	Header

	MaxStackSize uint8
	NumParams    uint8
	NumUpvalues  uint8
	IsVararg     bool

	Code []uint32 // 32-bit instruction words, code package defines the encoding

	Constants []Constant
	Children  []value.Value // nested Prototype object handles

	Lines *LineInfo

	SourceName string
	DebugName  string
	Locals     []LocalVarInfo
	UpvalNames []string
}

func (p *Prototype) Head() *Header { return &p.Header }

func (p *Prototype) Size() int {
	return 64 + len(p.Code)*4 + len(p.Constants)*24 + len(p.Children)*8
}

func (p *Prototype) Trace(mark func(value.Value)) {
	for _, c := range p.Children {
		mark(c)
	}
}
