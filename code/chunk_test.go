package code

import (
	"reflect"
	"testing"

	"github.com/galang-lang/gal/object"
)

func sampleChunk() *Chunk {
	return &Chunk{
		Version: Version,
		Strings: []string{"main", "x", "print"},
		Prototypes: []ChunkPrototype{
			{
				MaxStackSize: 4,
				NumParams:    1,
				NumUpvalues:  0,
				IsVararg:     false,
				Flags:        0,
				Code: []uint32{
					uint32(CreateAD(OpLoadNumber, 1, 7)),
					uint32(CreateABC(OpCallReturn, 0, 1, 1)),
				},
				Constants: []ChunkConstant{
					{Kind: object.ConstNumber, Number: 7},
					{Kind: object.ConstString, StrRef: 2},
				},
				Children: []uint32{},
				Lines: object.LineInfo{
					GapLog2:  2,
					Absolute: []int32{1},
					Deltas:   []int8{0, 1},
				},
				SourceNameRef: 0,
				DebugNameRef:  0,
				Locals: []object.LocalVarInfo{
					{Name: "x", BeginPC: 0, EndPC: 2, Register: 1},
				},
				UpvalNames: []string{},
			},
		},
		MainPrototype: 0,
	}
}

func TestChunkRoundTrip(t *testing.T) {
	orig := sampleChunk()
	buf := Serialize(orig)

	got, err := Deserialize(buf, nil)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if !reflect.DeepEqual(orig.Strings, got.Strings) {
		t.Fatalf("strings mismatch: %v != %v", orig.Strings, got.Strings)
	}
	if orig.MainPrototype != got.MainPrototype {
		t.Fatalf("main prototype mismatch: %d != %d", orig.MainPrototype, got.MainPrototype)
	}
	if !reflect.DeepEqual(orig.Prototypes, got.Prototypes) {
		t.Fatalf("prototypes mismatch:\n%+v\n!=\n%+v", orig.Prototypes, got.Prototypes)
	}
}

func TestChunkRejectsUnsupportedVersion(t *testing.T) {
	c := sampleChunk()
	buf := Serialize(c)
	buf[0] = Version + 1

	_, err := Deserialize(buf, nil)
	if err != ErrUnsupportedVersion {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestChunkRejectsTruncatedBuffer(t *testing.T) {
	c := sampleChunk()
	buf := Serialize(c)

	_, err := Deserialize(buf[:len(buf)-3], nil)
	if err == nil {
		t.Fatal("expected error decoding truncated chunk")
	}
}

func TestInstructionEncodingRoundTrip(t *testing.T) {
	abc := CreateABC(OpPlus, 1, 2, 3)
	if abc.Op() != OpPlus || abc.A() != 1 || abc.B() != 2 || abc.C() != 3 {
		t.Fatalf("ABC round trip failed: %#v", abc)
	}

	ad := CreateAD(OpLoadNumber, 5, -100)
	if ad.Op() != OpLoadNumber || ad.A() != 5 || ad.D() != -100 {
		t.Fatalf("AD round trip failed: %#v", ad)
	}

	e := CreateE(OpJump, -12345)
	if e.Op() != OpJump || e.E() != -12345 {
		t.Fatalf("E round trip failed: got E=%d", e.E())
	}
}
